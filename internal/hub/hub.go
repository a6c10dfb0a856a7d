package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/parleyhq/parley/internal/protocol"
	"github.com/parleyhq/parley/internal/store"
	"github.com/parleyhq/parley/pkg/logger"
)

// Conn is one live client connection as the hub sees it. The transport layer
// binds the authenticated identity at upgrade time; the hub trusts these
// accessors and never client-supplied user fields.
type Conn interface {
	ID() string
	UserID() string
	DisplayName() string

	// Send enqueues a frame on the connection's bounded egress queue. It
	// never blocks; on overflow the transport force-closes the connection.
	Send(v any) error
}

// Config bounds the hub's admission and relay behavior.
type Config struct {
	PendingTTL     time.Duration // pending join requests expire after this
	DedupWindow    time.Duration // repeat join requests inside this window are duplicates
	SweepInterval  time.Duration // expiry sweeper period
	HostGrace      time.Duration // empty room survives a host drop this long
	MaxSignalBytes int           // per signaling/transcription payload cap
}

func (c Config) withDefaults() Config {
	if c.PendingTTL <= 0 {
		c.PendingTTL = 5 * time.Minute
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = 5 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.HostGrace <= 0 {
		c.HostGrace = 2 * time.Minute
	}
	if c.MaxSignalBytes <= 0 {
		c.MaxSignalBytes = 64 * 1024
	}
	return c
}

type connState struct {
	conn   Conn
	roomID string
}

// Hub routes every client event to the room it concerns. Rooms serialize
// their own state; the hub's lock only guards the two lookup maps.
type Hub struct {
	cfg   Config
	store store.MeetingStore
	log   *logger.Logger

	// now is swapped out by tests that exercise expiry boundaries
	now func() time.Time

	mu    sync.RWMutex
	rooms map[string]*Room
	conns map[string]*connState
}

func New(cfg Config, st store.MeetingStore, log *logger.Logger) *Hub {
	return &Hub{
		cfg:   cfg.withDefaults(),
		store: st,
		log:   log,
		now:   time.Now,
		rooms: make(map[string]*Room),
		conns: make(map[string]*connState),
	}
}

// Run drives the expiry sweeper until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sweep()
		case <-ctx.Done():
			return
		}
	}
}

// RoomCount reports how many rooms are live.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// HandleConnect registers a freshly authenticated connection. Delivered by
// the transport before any frame from that connection.
func (h *Hub) HandleConnect(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = &connState{conn: c}
	h.mu.Unlock()

	h.log.Debug("connection registered", "conn_id", c.ID(), "user_id", c.UserID())
}

// HandleDisconnect tears down whatever the connection was attached to.
// Delivered exactly once per connection.
func (h *Hub) HandleDisconnect(c Conn) {
	h.mu.Lock()
	st, ok := h.conns[c.ID()]
	delete(h.conns, c.ID())
	h.mu.Unlock()

	if !ok {
		return
	}

	if st.roomID != "" {
		h.dropParticipant(st.roomID, c)
	}
	h.detachPendingConn(c)

	h.log.Debug("connection removed", "conn_id", c.ID(), "user_id", c.UserID())
}

// HandleFrame decodes one inbound frame and dispatches it. Any error comes
// back to the offending connection as an error frame. Events rejected with
// one of the hub's error kinds leave room state untouched; a handler panic
// destroys the room (see withRoom).
func (h *Hub) HandleFrame(c Conn, data []byte) {
	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		h.sendError(c, err)
		return
	}

	if err := h.dispatch(c, env.Type, data); err != nil {
		h.sendError(c, err)
	}
}

func (h *Hub) dispatch(c Conn, typ protocol.EventType, data []byte) error {
	switch typ {
	case protocol.EventRequestJoinRoom:
		var p protocol.RequestJoinRoom
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleRequestJoin(c, p)

	case protocol.EventUpdateWaitingSocket:
		var p protocol.UpdateWaitingSocket
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleUpdateWaitingSocket(c, p)

	case protocol.EventApproveJoinRequest:
		var p protocol.ApproveJoinRequest
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleApprove(c, p)

	case protocol.EventDenyJoinRequest:
		var p protocol.DenyJoinRequest
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleDeny(c, p)

	case protocol.EventAdmitAllWaiting:
		var p protocol.AdmitAllWaiting
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleAdmitAll(c, p)

	case protocol.EventJoinRoom:
		var p protocol.JoinRoom
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleJoinRoom(c, p)

	case protocol.EventLeaveRoom:
		var p protocol.LeaveRoom
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleLeaveRoom(c, p)

	case protocol.EventEndMeeting:
		var p protocol.EndMeeting
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleEndMeeting(c, p)

	case protocol.EventOffer, protocol.EventAnswer:
		var p protocol.Signal
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleSignal(c, typ, p)

	case protocol.EventICECandidate:
		var p protocol.ICECandidate
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleICECandidate(c, p)

	case protocol.EventRequestRenegotiation:
		var p protocol.RequestRenegotiation
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleRenegotiation(c, p)

	case protocol.EventToggleMedia:
		var p protocol.ToggleMedia
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleToggleMedia(c, p)

	case protocol.EventRecordingStatus:
		var p protocol.RecordingStatus
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleRecordingStatus(c, p)

	case protocol.EventSendMessage:
		var p protocol.SendMessage
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleSendMessage(c, p)

	case protocol.EventTranscriptionEntry:
		var p protocol.TranscriptionEntry
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleTranscriptionEntry(c, p)

	case protocol.EventTranscriptionInterim:
		var p protocol.TranscriptionInterim
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleTranscriptionInterim(c, p)

	case protocol.EventRequestTranscription:
		var p protocol.RequestTranscriptionHistory
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleTranscriptionHistory(c, p)

	case protocol.EventSetMeetingStartTime:
		var p protocol.SetMeetingStartTime
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleSetMeetingStartTime(c, p)

	case protocol.EventGetMeetingStartTime:
		var p protocol.RequestMeetingStartTime
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return h.handleGetMeetingStartTime(c, p)

	default:
		return errors.New("unknown event type: " + string(typ))
	}
}

func (h *Hub) sendError(c Conn, err error) {
	_ = c.Send(protocol.NewError(err.Error()))
}

// lookupRoom finds a live room under the registry's read lock.
func (h *Hub) lookupRoom(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

// withRoom runs fn under the room's lock. A panic inside fn poisons the room:
// everyone gets meeting-ended and the room is destroyed, leaving other rooms
// unaffected.
func (h *Hub) withRoom(id string, fn func(*Room) error) (err error) {
	r, ok := h.lookupRoom(id)
	if !ok {
		return ErrUnknownRoom
	}

	poisoned := false
	func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.destroyed {
			err = ErrUnknownRoom
			return
		}
		defer func() {
			if rec := recover(); rec != nil {
				poisoned = true
				h.log.Error("room handler panicked", "room_id", id, "panic", rec)
			}
		}()
		err = fn(r)
	}()

	if poisoned {
		h.destroyRoom(r, "internal error")
		return ErrInternal
	}
	return err
}

// setConnRoom records which room a connection currently belongs to, for the
// disconnect path. Only the hub mutates it; room handlers never look at it.
func (h *Hub) setConnRoom(connID, roomID string) {
	h.mu.Lock()
	if st, ok := h.conns[connID]; ok {
		st.roomID = roomID
	}
	h.mu.Unlock()
}

// destroyRoom evicts everyone, removes the room from the registry, and hands
// the transcript snapshot to the store off the hot path. reason is included
// in the meeting-ended frame when non-empty.
func (h *Hub) destroyRoom(r *Room, reason string) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true

	recipients := make([]Conn, 0, len(r.participants)+len(r.pending))
	for _, p := range r.participants {
		recipients = append(recipients, p.conn)
	}
	for _, req := range r.pending {
		if req.conn != nil {
			recipients = append(recipients, req.conn)
		}
	}
	roomID := r.ID
	transcript := r.transcript
	r.mu.Unlock()

	ended := protocol.NewMeetingEnded(roomID, reason)
	for _, c := range recipients {
		_ = c.Send(ended)
		h.setConnRoom(c.ID(), "")
	}

	h.mu.Lock()
	delete(h.rooms, roomID)
	h.mu.Unlock()

	h.log.Info("room destroyed", "room_id", roomID, "reason", reason, "transcript_entries", len(transcript))

	if len(transcript) > 0 {
		go h.persistTranscript(roomID, transcript)
	}
}

func (h *Hub) persistTranscript(roomID string, entries []TranscriptEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rows := make([]store.TranscriptRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, store.TranscriptRow{
			RoomID:             roomID,
			Seq:                e.Seq,
			EntryID:            e.EntryID,
			UserID:             e.UserID,
			DisplayName:        e.DisplayName,
			Text:               e.Text,
			Timestamp:          e.Timestamp,
			SecondsIntoMeeting: e.SecondsIntoMeeting,
			Confidence:         e.Confidence,
		})
	}

	if err := h.store.SaveTranscript(ctx, roomID, rows); err != nil {
		h.log.Error("failed to persist transcript", "room_id", roomID, "error", err)
	}
}

// Shutdown ends every meeting and drops all rooms. Used on process exit.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.destroyRoom(r, "server shutting down")
	}
}
