package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool}
}

// GetMeeting retrieves the stored meeting record for a room
func (s *PostgresStore) GetMeeting(ctx context.Context, roomID string) (*Meeting, error) {
	query := `
		SELECT id, title, waiting_room_enabled, created_at
		FROM meetings
		WHERE id = $1
	`

	m := &Meeting{}
	err := s.pool.QueryRow(ctx, query, roomID).Scan(
		&m.ID,
		&m.Title,
		&m.WaitingRoomEnabled,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	return m, nil
}

// SaveTranscript persists the finalized transcript of a room in one
// transaction. Re-saving the same entries is harmless.
func (s *PostgresStore) SaveTranscript(ctx context.Context, roomID string, rows []TranscriptRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO transcript_entries
			(room_id, seq, entry_id, user_id, display_name, body, spoken_at, seconds_into_meeting, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (room_id, entry_id) DO NOTHING
	`

	for _, row := range rows {
		_, err := tx.Exec(ctx, query,
			roomID,
			row.Seq,
			row.EntryID,
			row.UserID,
			row.DisplayName,
			row.Text,
			row.Timestamp,
			row.SecondsIntoMeeting,
			row.Confidence,
		)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("operation cancelled: %w", ctx.Err())
			}
			return fmt.Errorf("failed to insert transcript entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transcript: %w", err)
	}

	return nil
}

// SaveRecordingEvent appends one recording start/stop marker
func (s *PostgresStore) SaveRecordingEvent(ctx context.Context, ev RecordingEvent) error {
	query := `
		INSERT INTO recording_events (room_id, user_name, is_recording, occurred_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, ev.RoomID, ev.UserName, ev.IsRecording, ev.At)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to insert recording event: %w", err)
	}

	return nil
}
