package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/parleyhq/parley/internal/protocol"
	"github.com/parleyhq/parley/internal/store"
	"github.com/parleyhq/parley/pkg/logger"
)

// fakeConn records every frame the hub sends to it.
type fakeConn struct {
	id     string
	userID string
	name   string

	mu     sync.Mutex
	frames []json.RawMessage
}

func newFakeConn(id, userID, name string) *fakeConn {
	return &fakeConn{id: id, userID: userID, name: name}
}

func (f *fakeConn) ID() string          { return f.id }
func (f *fakeConn) UserID() string      { return f.userID }
func (f *fakeConn) DisplayName() string { return f.name }

func (f *fakeConn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.frames = append(f.frames, data)
	f.mu.Unlock()
	return nil
}

// framesOfType returns the raw frames with the given type tag, in order.
func (f *fakeConn) framesOfType(typ protocol.EventType) []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []json.RawMessage
	for _, raw := range f.frames {
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err == nil && env.Type == typ {
			out = append(out, raw)
		}
	}
	return out
}

func (f *fakeConn) countOfType(typ protocol.EventType) int {
	return len(f.framesOfType(typ))
}

// lastOfType decodes the newest frame of the given type into dst.
func (f *fakeConn) lastOfType(t *testing.T, typ protocol.EventType, dst any) {
	t.Helper()
	frames := f.framesOfType(typ)
	if len(frames) == 0 {
		t.Fatalf("conn %s received no %q frame", f.id, typ)
	}
	if err := json.Unmarshal(frames[len(frames)-1], dst); err != nil {
		t.Fatalf("decode %q frame: %v", typ, err)
	}
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

// fakeStore is an in-memory MeetingStore. saved is signalled once per
// SaveTranscript so tests can wait for the async persistence path.
type fakeStore struct {
	mu         sync.Mutex
	meeting    *store.Meeting
	transcript map[string][]store.TranscriptRow
	recordings []store.RecordingEvent
	saved      chan struct{}
	recSaved   chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transcript: make(map[string][]store.TranscriptRow),
		saved:      make(chan struct{}, 8),
		recSaved:   make(chan struct{}, 8),
	}
}

func (s *fakeStore) GetMeeting(ctx context.Context, roomID string) (*store.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meeting == nil {
		return nil, store.ErrNotFound
	}
	return s.meeting, nil
}

func (s *fakeStore) SaveTranscript(ctx context.Context, roomID string, rows []store.TranscriptRow) error {
	s.mu.Lock()
	s.transcript[roomID] = rows
	s.mu.Unlock()
	s.saved <- struct{}{}
	return nil
}

func (s *fakeStore) SaveRecordingEvent(ctx context.Context, ev store.RecordingEvent) error {
	s.mu.Lock()
	s.recordings = append(s.recordings, ev)
	s.mu.Unlock()
	s.recSaved <- struct{}{}
	return nil
}

// testHub wires a hub against fakes with a controllable clock.
type testHub struct {
	*Hub
	store *fakeStore
	clock time.Time
	mu    sync.Mutex
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()

	th := &testHub{
		store: newFakeStore(),
		clock: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	th.Hub = New(Config{}, th.store, logger.Discard())
	th.Hub.now = func() time.Time {
		th.mu.Lock()
		defer th.mu.Unlock()
		return th.clock
	}
	return th
}

func (th *testHub) advance(d time.Duration) {
	th.mu.Lock()
	th.clock = th.clock.Add(d)
	th.mu.Unlock()
}

// send marshals v and pushes it through the full frame dispatch path.
func (th *testHub) send(t *testing.T, c Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	th.HandleFrame(c, data)
}

// frame builds an inbound frame as a client would: flat JSON with a type tag.
func frame(t *testing.T, typ protocol.EventType, payload any) map[string]any {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	m["type"] = string(typ)
	return m
}

// connect registers a fake connection with the hub.
func (th *testHub) connect(id, userID, name string) *fakeConn {
	c := newFakeConn(id, userID, name)
	th.HandleConnect(c)
	return c
}

// admitAndJoin walks a guest through request/approve/join using host hc.
func (th *testHub) admitAndJoin(t *testing.T, roomID string, hc *fakeConn, g *fakeConn) {
	t.Helper()
	th.send(t, g, frame(t, protocol.EventRequestJoinRoom, protocol.RequestJoinRoom{RoomID: roomID, UserID: g.userID}))
	th.send(t, hc, frame(t, protocol.EventApproveJoinRequest, protocol.ApproveJoinRequest{
		RoomID: roomID, UserID: g.userID, ApproverUserID: hc.userID,
	}))
	th.send(t, g, frame(t, protocol.EventJoinRoom, protocol.JoinRoom{RoomID: roomID, UserID: g.userID}))
}

// startRoom creates a room with hc as host and joins the host in.
func (th *testHub) startRoom(t *testing.T, roomID string, hc *fakeConn) {
	t.Helper()
	th.send(t, hc, frame(t, protocol.EventRequestJoinRoom, protocol.RequestJoinRoom{RoomID: roomID, UserID: hc.userID}))
	th.send(t, hc, frame(t, protocol.EventJoinRoom, protocol.JoinRoom{RoomID: roomID, UserID: hc.userID}))
}

// assertAdmissionExclusive checks that no user sits in more than one of the
// approved / pending / denied sets.
func assertAdmissionExclusive(t *testing.T, th *testHub, roomID string) {
	t.Helper()
	r, ok := th.lookupRoom(roomID)
	if !ok {
		t.Fatalf("room %s not found", roomID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID := range r.approved {
		if _, ok := r.pending[userID]; ok {
			t.Errorf("user %s is both approved and pending", userID)
		}
		if _, ok := r.denied[userID]; ok {
			t.Errorf("user %s is both approved and denied", userID)
		}
	}
	for userID := range r.pending {
		if _, ok := r.denied[userID]; ok {
			t.Errorf("user %s is both pending and denied", userID)
		}
	}
}

func TestUnknownEventType(t *testing.T) {
	th := newTestHub(t)
	c := th.connect("c1", "u1", "Ann")

	th.HandleFrame(c, []byte(`{"type":"no-such-event"}`))

	if c.countOfType(protocol.EventError) != 1 {
		t.Fatalf("expected one error frame, got %d", c.countOfType(protocol.EventError))
	}
}

func TestMalformedFrame(t *testing.T) {
	th := newTestHub(t)
	c := th.connect("c1", "u1", "Ann")

	th.HandleFrame(c, []byte(`{not json`))

	if c.countOfType(protocol.EventError) != 1 {
		t.Fatalf("expected one error frame, got %d", c.countOfType(protocol.EventError))
	}
}

func TestUnknownRoom(t *testing.T) {
	th := newTestHub(t)
	c := th.connect("c1", "u1", "Ann")

	th.send(t, c, frame(t, protocol.EventLeaveRoom, protocol.LeaveRoom{RoomID: "nope", UserID: "u1"}))

	if c.countOfType(protocol.EventError) != 1 {
		t.Fatalf("expected one error frame, got %d", c.countOfType(protocol.EventError))
	}
}
