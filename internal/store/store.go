package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a meeting record does not exist.
var ErrNotFound = errors.New("meeting not found")

// Meeting is the stored meeting record the hub consults on room creation.
type Meeting struct {
	ID                 string
	Title              string
	WaitingRoomEnabled bool
	CreatedAt          time.Time
}

// TranscriptRow is one finalized transcript entry as persisted.
type TranscriptRow struct {
	RoomID             string
	Seq                int64
	EntryID            string
	UserID             string
	DisplayName        string
	Text               string
	Timestamp          int64
	SecondsIntoMeeting float64
	Confidence         float64
}

// RecordingEvent marks a recording being started or stopped in a room.
type RecordingEvent struct {
	RoomID      string
	UserName    string
	IsRecording bool
	At          time.Time
}

// MeetingStore is the narrow outbound interface to the persistence layer.
// The hub never holds a room lock across any of these calls.
type MeetingStore interface {
	GetMeeting(ctx context.Context, roomID string) (*Meeting, error)
	SaveTranscript(ctx context.Context, roomID string, rows []TranscriptRow) error
	SaveRecordingEvent(ctx context.Context, ev RecordingEvent) error
}
