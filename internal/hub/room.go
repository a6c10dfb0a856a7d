package hub

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parleyhq/parley/internal/protocol"
)

// Participant is one live connection inside a room. A user that reconnects
// gets a fresh Participant under the new connection id.
type Participant struct {
	ConnID      string
	UserID      string
	DisplayName string
	IsHost      bool
	Media       protocol.MediaState
	JoinedAt    time.Time

	conn Conn
}

// pendingRequest is one user waiting for a host decision. Keyed by user id so
// page refreshes don't duplicate queue entries. conn is nil while the
// requester's socket is down.
type pendingRequest struct {
	UserID      string
	DisplayName string
	RequestedAt time.Time

	conn Conn
}

type denyRecord struct {
	Reason   string
	DeniedAt time.Time
}

// TranscriptEntry is one finalized utterance. Seq is the server-assigned
// position in the room's append-only log.
type TranscriptEntry struct {
	Seq                int64
	EntryID            string
	UserID             string
	DisplayName        string
	Text               string
	Timestamp          int64
	SecondsIntoMeeting float64
	Confidence         float64
}

type interimEntry struct {
	UserID      string
	DisplayName string
	Text        string
	LastUpdate  time.Time
}

// Room holds the authoritative state for one meeting. All fields are guarded
// by mu; every event that touches a room runs under it, so rooms behave as
// independent serializers.
type Room struct {
	mu sync.Mutex

	ID          string
	HostUserID  string // immutable after creation
	HostConnID  string // refreshed on every host reconnect; may be stale
	hostConn    Conn   // live conn behind HostConnID; host is addressable before join-room
	CreatedAt   time.Time
	WaitingRoom bool

	MeetingStart time.Time // zero until the host sets it

	approved     map[string]struct{}
	denied       map[string]denyRecord
	pending      map[string]*pendingRequest
	participants map[string]*Participant // by conn id

	transcript []TranscriptEntry
	entryIDs   map[string]struct{}
	interim    map[string]interimEntry
	seq        int64

	destroyed  bool
	hostAwayAt time.Time // set at creation and when the host's last participant conn goes; cleared when the host joins
}

func newRoom(id, hostUserID string, waitingRoom bool, now time.Time) *Room {
	r := &Room{
		ID:           id,
		HostUserID:   hostUserID,
		CreatedAt:    now,
		WaitingRoom:  waitingRoom,
		approved:     make(map[string]struct{}),
		denied:       make(map[string]denyRecord),
		pending:      make(map[string]*pendingRequest),
		participants: make(map[string]*Participant),
		entryIDs:     make(map[string]struct{}),
		interim:      make(map[string]interimEntry),
	}
	r.approved[hostUserID] = struct{}{}
	// the host has not joined as a participant yet; the grace clock keeps a
	// never-occupied room from living forever
	r.hostAwayAt = now
	return r
}

// normalizeUserID makes admission map keys comparable across clients that
// pad identifiers. Case-preserving, whitespace-trimmed.
func normalizeUserID(id string) string {
	return strings.TrimSpace(id)
}

func (r *Room) isApproved(userID string) bool {
	_, ok := r.approved[normalizeUserID(userID)]
	return ok
}

func (r *Room) isHostUser(userID string) bool {
	return normalizeUserID(userID) == r.HostUserID
}

func (r *Room) isDenied(userID string) bool {
	_, ok := r.denied[normalizeUserID(userID)]
	return ok
}

// pendingPosition is the 1-based place of a user in the waiting queue,
// oldest request first. Zero if the user is not waiting.
func (r *Room) pendingPosition(userID string) int {
	key := normalizeUserID(userID)
	for i, info := range r.pendingSnapshot() {
		if normalizeUserID(info.UserID) == key {
			return i + 1
		}
	}
	return 0
}

// approve moves a user into the approved set, clearing any pending request or
// deny record. Returns the pending request that was displaced, if any.
func (r *Room) approve(userID string) *pendingRequest {
	key := normalizeUserID(userID)
	req := r.pending[key]
	delete(r.pending, key)
	delete(r.denied, key)
	r.approved[key] = struct{}{}
	return req
}

// broadcast enqueues a frame on every participant connection except the
// listed ones. Enqueue never blocks; a slow consumer is force-closed by its
// own egress worker.
func (r *Room) broadcast(v any, except ...string) {
	for connID, p := range r.participants {
		skip := false
		for _, ex := range except {
			if connID == ex {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		_ = p.conn.Send(v)
	}
}

// sendToHost enqueues a frame on the host's current connection, if known.
// A stale connection swallows the frame, same as any closed socket.
func (r *Room) sendToHost(v any) {
	if r.hostConn == nil {
		return
	}
	_ = r.hostConn.Send(v)
}

func (r *Room) participantByUser(userID string) *Participant {
	key := normalizeUserID(userID)
	for _, p := range r.participants {
		if normalizeUserID(p.UserID) == key {
			return p
		}
	}
	return nil
}

func (r *Room) roster(except string) []protocol.ParticipantInfo {
	infos := make([]protocol.ParticipantInfo, 0, len(r.participants))
	for connID, p := range r.participants {
		if connID == except {
			continue
		}
		infos = append(infos, protocol.ParticipantInfo{
			ConnID:     p.ConnID,
			UserID:     p.UserID,
			UserName:   p.DisplayName,
			IsHost:     p.IsHost,
			MediaState: p.Media,
		})
	}
	return infos
}

// pendingSnapshot returns the queue oldest-first, the order hosts see it in.
func (r *Room) pendingSnapshot() []protocol.PendingInfo {
	infos := make([]protocol.PendingInfo, 0, len(r.pending))
	for _, req := range r.pending {
		infos = append(infos, protocol.PendingInfo{
			UserID:      req.UserID,
			UserName:    req.DisplayName,
			RequestedAt: req.RequestedAt.Unix(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].RequestedAt < infos[j].RequestedAt
	})
	return infos
}

func (r *Room) transcriptSnapshot() []protocol.TranscriptEntryOut {
	out := make([]protocol.TranscriptEntryOut, 0, len(r.transcript))
	for _, e := range r.transcript {
		out = append(out, protocol.TranscriptEntryOut{
			EntryID:            e.EntryID,
			UserID:             e.UserID,
			UserName:           e.DisplayName,
			Text:               e.Text,
			Timestamp:          e.Timestamp,
			SecondsIntoMeeting: e.SecondsIntoMeeting,
			Confidence:         e.Confidence,
		})
	}
	return out
}

// empty reports whether nothing keeps the room alive besides a possible
// host grace window.
func (r *Room) empty() bool {
	return len(r.participants) == 0 && len(r.pending) == 0
}
