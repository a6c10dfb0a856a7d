package hub

import (
	"context"
	"errors"
	"time"

	"github.com/parleyhq/parley/internal/protocol"
	"github.com/parleyhq/parley/internal/store"
)

// handleRequestJoin runs the admission state machine for one join request.
// The room is created lazily on the first request for an unknown room id;
// that requester becomes host for the life of the room.
func (h *Hub) handleRequestJoin(c Conn, p protocol.RequestJoinRoom) error {
	userID := normalizeUserID(c.UserID())
	name := c.DisplayName()

	if _, ok := h.lookupRoom(p.RoomID); !ok {
		if created := h.createRoom(p.RoomID, userID, c); created {
			h.log.Info("room created", "room_id", p.RoomID, "host_user_id", userID)
			approved := protocol.NewJoinApproved(p.RoomID, true, "")
			return c.Send(approved)
		}
		// lost the creation race, fall through to the normal path
	}

	return h.withRoom(p.RoomID, func(r *Room) error {
		switch {
		case r.isHostUser(userID):
			r.HostConnID = c.ID()
			r.hostConn = c
			r.approved[userID] = struct{}{}
			approved := protocol.NewJoinApproved(r.ID, true, "")
			approved.PendingRequests = r.pendingSnapshot()
			return c.Send(approved)

		case r.isDenied(userID):
			rec := r.denied[userID]
			return c.Send(protocol.NewJoinDenied(r.ID, rec.Reason))

		case r.isApproved(userID):
			msg := "admitted"
			if p.IsRejoin {
				msg = "reconnected"
			}
			return c.Send(protocol.NewJoinApproved(r.ID, false, msg))

		case !r.WaitingRoom:
			r.approve(userID)
			return c.Send(protocol.NewJoinApproved(r.ID, false, "admitted"))

		default:
			return h.enqueueJoinRequest(r, c, userID, name)
		}
	})
}

// enqueueJoinRequest inserts or refreshes a pending request. A repeat inside
// the dedup window answers the requester without bothering the host again.
func (h *Hub) enqueueJoinRequest(r *Room, c Conn, userID, name string) error {
	now := h.now()

	if req, ok := r.pending[userID]; ok && now.Sub(req.RequestedAt) < h.cfg.DedupWindow {
		req.conn = c
		return c.Send(protocol.NewWaitingForApproval(r.ID, r.pendingPosition(userID), true))
	}

	r.pending[userID] = &pendingRequest{
		UserID:      userID,
		DisplayName: name,
		RequestedAt: now,
		conn:        c,
	}

	if err := c.Send(protocol.NewWaitingForApproval(r.ID, r.pendingPosition(userID), false)); err != nil {
		return err
	}

	r.sendToHost(protocol.NewJoinRequest(r.ID, userID, name, now.Unix()))
	h.log.Info("join request queued", "room_id", r.ID, "user_id", userID)
	return nil
}

// createRoom reads the meeting record for the waiting-room setting, then
// installs the room if nobody else got there first. The store call happens
// before any lock is taken.
func (h *Hub) createRoom(roomID, hostUserID string, hostConn Conn) bool {
	waitingRoom := h.waitingRoomEnabled(roomID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; ok {
		return false
	}

	r := newRoom(roomID, hostUserID, waitingRoom, h.now())
	r.HostConnID = hostConn.ID()
	r.hostConn = hostConn
	h.rooms[roomID] = r
	return true
}

func (h *Hub) waitingRoomEnabled(roomID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	m, err := h.store.GetMeeting(ctx, roomID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn("meeting lookup failed, defaulting to waiting room", "room_id", roomID, "error", err)
		}
		return true
	}
	return m.WaitingRoomEnabled
}

// handleUpdateWaitingSocket rebinds an existing pending request to the
// caller's current connection after a reconnect, without resetting its age
// or notifying the host again.
func (h *Hub) handleUpdateWaitingSocket(c Conn, p protocol.UpdateWaitingSocket) error {
	return h.withRoom(p.RoomID, func(r *Room) error {
		req, ok := r.pending[normalizeUserID(c.UserID())]
		if !ok {
			return ErrInvalidState
		}
		req.conn = c
		return nil
	})
}

// authorizeHost enforces the double check on every admission decision: the
// asserted approver must be the authenticated identity on the socket, and
// that identity must be the room's immutable host.
func authorizeHost(r *Room, c Conn, assertedApprover string) error {
	if normalizeUserID(assertedApprover) != normalizeUserID(c.UserID()) {
		return ErrNotAuthorized
	}
	if !r.isHostUser(c.UserID()) {
		return ErrNotAuthorized
	}
	return nil
}

func (h *Hub) handleApprove(c Conn, p protocol.ApproveJoinRequest) error {
	return h.withRoom(p.RoomID, func(r *Room) error {
		if err := authorizeHost(r, c, p.ApproverUserID); err != nil {
			return err
		}

		target := normalizeUserID(p.UserID)
		if r.isApproved(target) {
			return nil // idempotent
		}
		_, wasPending := r.pending[target]
		if !wasPending && !r.isDenied(target) {
			return ErrInvalidState
		}

		req := r.approve(target)
		if req != nil && req.conn != nil {
			_ = req.conn.Send(protocol.NewJoinApproved(r.ID, false, ""))
		}
		h.log.Info("join request approved", "room_id", r.ID, "user_id", target)
		return c.Send(protocol.NewJoinRequestProcessed(r.ID, target, "approved"))
	})
}

func (h *Hub) handleDeny(c Conn, p protocol.DenyJoinRequest) error {
	return h.withRoom(p.RoomID, func(r *Room) error {
		if err := authorizeHost(r, c, p.ApproverUserID); err != nil {
			return err
		}

		target := normalizeUserID(p.UserID)
		if r.isApproved(target) {
			return nil // approved stays approved
		}
		req, ok := r.pending[target]
		if !ok {
			return ErrInvalidState
		}

		delete(r.pending, target)
		r.denied[target] = denyRecord{Reason: p.Reason, DeniedAt: h.now()}

		if req.conn != nil {
			_ = req.conn.Send(protocol.NewJoinDenied(r.ID, p.Reason))
		}
		h.log.Info("join request denied", "room_id", r.ID, "user_id", target)
		return c.Send(protocol.NewJoinRequestProcessed(r.ID, target, "denied"))
	})
}

func (h *Hub) handleAdmitAll(c Conn, p protocol.AdmitAllWaiting) error {
	return h.withRoom(p.RoomID, func(r *Room) error {
		if err := authorizeHost(r, c, p.ApproverUserID); err != nil {
			return err
		}

		count := len(r.pending)
		for userID := range r.pending {
			req := r.approve(userID)
			if req != nil && req.conn != nil {
				_ = req.conn.Send(protocol.NewJoinApproved(r.ID, false, ""))
			}
		}

		h.log.Info("admitted all waiting", "room_id", r.ID, "count", count)
		return c.Send(protocol.NewAllAdmitted(r.ID, count))
	})
}

// sweep expires stale pending requests and reaps rooms whose host never came
// back. Runs once per SweepInterval.
func (h *Hub) sweep() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	now := h.now()
	var reap []*Room

	for _, r := range rooms {
		r.mu.Lock()
		if r.destroyed {
			r.mu.Unlock()
			continue
		}

		for userID, req := range r.pending {
			if now.Sub(req.RequestedAt) < h.cfg.PendingTTL {
				continue
			}
			delete(r.pending, userID)
			if req.conn != nil {
				_ = req.conn.Send(protocol.NewJoinRequestExpired(r.ID, "join request expired, please try again"))
			}
			h.log.Info("join request expired", "room_id", r.ID, "user_id", userID)
		}

		if r.empty() && !r.hostAwayAt.IsZero() && now.Sub(r.hostAwayAt) >= h.cfg.HostGrace {
			reap = append(reap, r)
		}
		r.mu.Unlock()
	}

	for _, r := range reap {
		h.destroyRoom(r, "")
	}
}

// detachPendingConn nulls out the connection of any pending request owned by
// a dropped socket. The request itself stays queued: the user may reconnect
// and reattach, or the sweeper will expire it.
func (h *Hub) detachPendingConn(c Conn) {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		r.mu.Lock()
		for _, req := range r.pending {
			if req.conn != nil && req.conn.ID() == c.ID() {
				req.conn = nil
			}
		}
		r.mu.Unlock()
	}
}
