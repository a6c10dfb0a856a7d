package store

import (
	"context"
	"errors"
)

// Store is the production MeetingStore: meeting records and transcript rows
// live in postgres, finished transcripts are additionally archived to object
// storage. The archive is optional.
type Store struct {
	pg      *PostgresStore
	archive *TranscriptArchive
}

func New(pg *PostgresStore, archive *TranscriptArchive) *Store {
	return &Store{pg: pg, archive: archive}
}

func (s *Store) GetMeeting(ctx context.Context, roomID string) (*Meeting, error) {
	return s.pg.GetMeeting(ctx, roomID)
}

func (s *Store) SaveTranscript(ctx context.Context, roomID string, rows []TranscriptRow) error {
	err := s.pg.SaveTranscript(ctx, roomID, rows)

	if s.archive != nil && len(rows) > 0 {
		err = errors.Join(err, s.archive.Upload(ctx, roomID, rows))
	}

	return err
}

func (s *Store) SaveRecordingEvent(ctx context.Context, ev RecordingEvent) error {
	return s.pg.SaveRecordingEvent(ctx, ev)
}
