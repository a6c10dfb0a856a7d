package hub

import (
	"time"

	"github.com/parleyhq/parley/internal/protocol"
)

// handleTranscriptionEntry appends a finalized utterance to the room's
// transcript log. Entries are deduplicated by entry id and a final from a
// speaker clears that speaker's interim slot. The sender already has the
// entry locally, so the broadcast excludes it.
func (h *Hub) handleTranscriptionEntry(c Conn, p protocol.TranscriptionEntry) error {
	if len(p.Text) > h.cfg.MaxSignalBytes {
		return ErrPayloadTooLarge
	}

	return h.withRoom(p.RoomID, func(r *Room) error {
		if _, ok := r.participants[c.ID()]; !ok {
			return ErrInvalidState
		}
		if normalizeUserID(p.UserID) != normalizeUserID(c.UserID()) {
			return ErrNotAuthorized
		}

		if _, dup := r.entryIDs[p.EntryID]; dup {
			return nil
		}

		userID := normalizeUserID(c.UserID())
		r.seq++
		entry := TranscriptEntry{
			Seq:                r.seq,
			EntryID:            p.EntryID,
			UserID:             userID,
			DisplayName:        c.DisplayName(),
			Text:               p.Text,
			Timestamp:          p.Timestamp,
			SecondsIntoMeeting: p.SecondsIntoMeeting,
			Confidence:         p.Confidence,
		}
		r.transcript = append(r.transcript, entry)
		r.entryIDs[p.EntryID] = struct{}{}
		delete(r.interim, userID)

		r.broadcast(protocol.NewTranscriptionUpdate(r.ID, protocol.TranscriptEntryOut{
			EntryID:            entry.EntryID,
			UserID:             entry.UserID,
			UserName:           entry.DisplayName,
			Text:               entry.Text,
			Timestamp:          entry.Timestamp,
			SecondsIntoMeeting: entry.SecondsIntoMeeting,
			Confidence:         entry.Confidence,
		}), c.ID())
		return nil
	})
}

// handleTranscriptionInterim overwrites the speaker's single live-caption
// slot. An empty text clears the slot. Nothing here is persisted.
func (h *Hub) handleTranscriptionInterim(c Conn, p protocol.TranscriptionInterim) error {
	if len(p.Text) > h.cfg.MaxSignalBytes {
		return ErrPayloadTooLarge
	}

	return h.withRoom(p.RoomID, func(r *Room) error {
		if _, ok := r.participants[c.ID()]; !ok {
			return ErrInvalidState
		}
		if normalizeUserID(p.UserID) != normalizeUserID(c.UserID()) {
			return ErrNotAuthorized
		}

		userID := normalizeUserID(c.UserID())
		if p.Text == "" {
			delete(r.interim, userID)
		} else {
			r.interim[userID] = interimEntry{
				UserID:      userID,
				DisplayName: c.DisplayName(),
				Text:        p.Text,
				LastUpdate:  h.now(),
			}
		}

		r.broadcast(protocol.NewTranscriptionInterim(r.ID, userID, c.DisplayName(), p.Text, p.Timestamp), c.ID())
		return nil
	})
}

// handleTranscriptionHistory serves the full finalized log, typically to a
// late joiner. Entries are immutable once appended, so this is safe at any
// point in the meeting.
func (h *Hub) handleTranscriptionHistory(c Conn, p protocol.RequestTranscriptionHistory) error {
	return h.withRoom(p.RoomID, func(r *Room) error {
		if _, ok := r.participants[c.ID()]; !ok {
			return ErrInvalidState
		}
		return c.Send(protocol.NewTranscriptionHistory(r.ID, r.transcriptSnapshot()))
	})
}

// handleSetMeetingStartTime records the start once; later writes are ignored.
func (h *Hub) handleSetMeetingStartTime(c Conn, p protocol.SetMeetingStartTime) error {
	return h.withRoom(p.RoomID, func(r *Room) error {
		if !r.isHostUser(c.UserID()) {
			return ErrNotAuthorized
		}
		if r.MeetingStart.IsZero() && p.StartTime > 0 {
			r.MeetingStart = time.Unix(p.StartTime, 0)
		}
		return nil
	})
}

func (h *Hub) handleGetMeetingStartTime(c Conn, p protocol.RequestMeetingStartTime) error {
	return h.withRoom(p.RoomID, func(r *Room) error {
		var start int64
		if !r.MeetingStart.IsZero() {
			start = r.MeetingStart.Unix()
		}
		return c.Send(protocol.NewMeetingStartTime(r.ID, start))
	})
}
