package hub

import (
	"context"
	"time"

	"github.com/parleyhq/parley/internal/protocol"
	"github.com/parleyhq/parley/internal/store"
)

// handleJoinRoom puts an admitted user into the room's live participant set.
// The joiner gets the current roster first, then everyone else learns about
// the joiner, so offers always flow from the newcomer.
func (h *Hub) handleJoinRoom(c Conn, p protocol.JoinRoom) error {
	err := h.withRoom(p.RoomID, func(r *Room) error {
		userID := normalizeUserID(c.UserID())
		if !r.isApproved(userID) {
			return ErrInvalidState
		}

		// a reconnect leaves a stale participant behind under the old conn
		// id; clear it and hint the peers to tear the old connection down
		if old := r.participantByUser(userID); old != nil && old.ConnID != c.ID() {
			delete(r.participants, old.ConnID)
			r.broadcast(protocol.NewUserDisconnected(r.ID, old.ConnID, old.UserID))
		}

		isHost := r.isHostUser(userID)
		if isHost {
			r.HostConnID = c.ID()
			r.hostConn = c
			r.hostAwayAt = time.Time{}
		}

		if err := c.Send(protocol.NewExistingParticipants(r.ID, r.roster(c.ID()))); err != nil {
			return err
		}

		if isHost && len(r.pending) > 0 {
			_ = c.Send(protocol.NewPendingJoinRequests(r.ID, r.pendingSnapshot()))
		}

		part := &Participant{
			ConnID:      c.ID(),
			UserID:      userID,
			DisplayName: c.DisplayName(),
			IsHost:      isHost,
			Media:       p.MediaState,
			JoinedAt:    h.now(),
			conn:        c,
		}
		r.participants[c.ID()] = part

		r.broadcast(protocol.NewUserJoined(r.ID, protocol.ParticipantInfo{
			ConnID:     part.ConnID,
			UserID:     part.UserID,
			UserName:   part.DisplayName,
			IsHost:     part.IsHost,
			MediaState: part.Media,
		}), c.ID())

		h.log.Info("participant joined", "room_id", r.ID, "user_id", userID, "conn_id", c.ID(), "is_host", isHost)
		return nil
	})
	if err != nil {
		return err
	}

	h.setConnRoom(c.ID(), p.RoomID)
	return nil
}

// handleLeaveRoom removes a participant on an explicit leave. The last one
// out destroys the room, unless join requests are still pending.
func (h *Hub) handleLeaveRoom(c Conn, p protocol.LeaveRoom) error {
	var destroy *Room

	err := h.withRoom(p.RoomID, func(r *Room) error {
		part, ok := r.participants[c.ID()]
		if !ok {
			return nil
		}
		delete(r.participants, c.ID())

		r.broadcast(protocol.NewUserLeft(r.ID, part.ConnID, part.UserID, part.DisplayName))

		if part.IsHost && r.participantByUser(part.UserID) == nil {
			r.hostAwayAt = h.now()
			r.hostConn = nil
			r.broadcast(protocol.NewHostLeft(r.ID, part.UserID))
		}

		if r.empty() {
			destroy = r
		}
		h.log.Info("participant left", "room_id", r.ID, "user_id", part.UserID, "conn_id", c.ID())
		return nil
	})
	if err != nil {
		return err
	}

	h.setConnRoom(c.ID(), "")
	if destroy != nil {
		h.destroyRoom(destroy, "")
	}
	return nil
}

// dropParticipant handles a lost socket. Unlike an explicit leave, a host
// drop leaves the room alive for the grace window so a refresh can resume.
func (h *Hub) dropParticipant(roomID string, c Conn) {
	var destroy *Room

	_ = h.withRoom(roomID, func(r *Room) error {
		part, ok := r.participants[c.ID()]
		if !ok {
			return nil
		}
		delete(r.participants, c.ID())

		r.broadcast(protocol.NewUserLeft(r.ID, part.ConnID, part.UserID, part.DisplayName))

		if part.IsHost && r.participantByUser(part.UserID) == nil {
			r.hostAwayAt = h.now()
			r.hostConn = nil
		}

		if r.empty() && !part.IsHost {
			destroy = r
		}
		h.log.Info("participant disconnected", "room_id", r.ID, "user_id", part.UserID, "conn_id", c.ID())
		return nil
	})

	if destroy != nil {
		h.destroyRoom(destroy, "")
	}
}

// handleEndMeeting lets the host end the meeting for everyone, waiting
// requesters included.
func (h *Hub) handleEndMeeting(c Conn, p protocol.EndMeeting) error {
	var room *Room

	err := h.withRoom(p.RoomID, func(r *Room) error {
		if !r.isHostUser(c.UserID()) {
			return ErrNotAuthorized
		}
		room = r
		return nil
	})
	if err != nil {
		return err
	}

	h.log.Info("meeting ended by host", "room_id", p.RoomID, "host_user_id", c.UserID())
	h.destroyRoom(room, "")
	return nil
}

func (h *Hub) handleToggleMedia(c Conn, p protocol.ToggleMedia) error {
	if p.Type != "audio" && p.Type != "video" {
		return ErrInvalidState
	}

	return h.withRoom(p.RoomID, func(r *Room) error {
		part, ok := r.participants[c.ID()]
		if !ok {
			return ErrInvalidState
		}

		switch p.Type {
		case "audio":
			part.Media.Audio = p.Enabled
		case "video":
			part.Media.Video = p.Enabled
		}

		r.broadcast(protocol.NewUserMediaToggle(r.ID, part.ConnID, part.UserID, p.Type, p.Enabled), c.ID())
		return nil
	})
}

func (h *Hub) handleRecordingStatus(c Conn, p protocol.RecordingStatus) error {
	var ev store.RecordingEvent

	err := h.withRoom(p.RoomID, func(r *Room) error {
		part, ok := r.participants[c.ID()]
		if !ok {
			return ErrInvalidState
		}

		r.broadcast(protocol.NewRecordingStatusChanged(r.ID, p.IsRecording, part.DisplayName), c.ID())
		ev = store.RecordingEvent{
			RoomID:      r.ID,
			UserName:    part.DisplayName,
			IsRecording: p.IsRecording,
			At:          h.now(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.SaveRecordingEvent(ctx, ev); err != nil {
			h.log.Warn("failed to persist recording event", "room_id", ev.RoomID, "error", err)
		}
	}()
	return nil
}

func (h *Hub) handleSendMessage(c Conn, p protocol.SendMessage) error {
	return h.withRoom(p.RoomID, func(r *Room) error {
		part, ok := r.participants[c.ID()]
		if !ok {
			return ErrInvalidState
		}

		r.broadcast(protocol.NewReceiveMessage(r.ID, p.Message, part.UserID, part.DisplayName, h.now().Unix()), c.ID())
		return nil
	})
}
