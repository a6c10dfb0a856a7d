package hub

import (
	"github.com/parleyhq/parley/internal/protocol"
)

// The broker relays offer, answer, ice-candidate and renegotiation frames
// between two connections of the same room. It never inspects SDP or ICE
// contents; glare is the clients' problem. Ordering holds per (sender,
// receiver) pair because relaying happens inline on the sender's event and
// the receiver's egress queue is FIFO.

// roomOfConn resolves which room a connection joined, via the reverse index
// maintained on join/leave/disconnect.
func (h *Hub) roomOfConn(c Conn) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st, ok := h.conns[c.ID()]
	if !ok || st.roomID == "" {
		return "", false
	}
	return st.roomID, true
}

// relay looks up both endpoints inside the sender's room and enqueues the
// frame on the target. build receives the sender's participant record so
// outbound identity fields are always the authenticated ones.
func (h *Hub) relay(c Conn, target string, build func(sender *Participant) any) error {
	roomID, ok := h.roomOfConn(c)
	if !ok {
		return ErrInvalidState
	}

	return h.withRoom(roomID, func(r *Room) error {
		sender, ok := r.participants[c.ID()]
		if !ok {
			return ErrInvalidState
		}
		dst, ok := r.participants[target]
		if !ok {
			return ErrInvalidState
		}
		_ = dst.conn.Send(build(sender))
		return nil
	})
}

func (h *Hub) handleSignal(c Conn, kind protocol.EventType, p protocol.Signal) error {
	if len(p.Payload) > h.cfg.MaxSignalBytes {
		return ErrPayloadTooLarge
	}
	return h.relay(c, p.To, func(sender *Participant) any {
		return protocol.NewSignalOut(kind, sender.ConnID, p.Payload, sender.DisplayName, sender.UserID)
	})
}

func (h *Hub) handleICECandidate(c Conn, p protocol.ICECandidate) error {
	if len(p.Candidate) > h.cfg.MaxSignalBytes {
		return ErrPayloadTooLarge
	}
	return h.relay(c, p.To, func(sender *Participant) any {
		return protocol.NewICECandidateOut(sender.ConnID, p.Candidate)
	})
}

func (h *Hub) handleRenegotiation(c Conn, p protocol.RequestRenegotiation) error {
	return h.relay(c, p.To, func(sender *Participant) any {
		return protocol.NewRenegotiationNeeded(sender.ConnID)
	})
}
