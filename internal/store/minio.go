package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

// TranscriptArchive keeps a JSON copy of every finished transcript in object
// storage, next to the rows in postgres.
type TranscriptArchive struct {
	client     *minio.Client
	bucketName string
}

func NewTranscriptArchive(client *minio.Client, bucketName string) *TranscriptArchive {
	return &TranscriptArchive{
		client:     client,
		bucketName: bucketName,
	}
}

// objectName creates a consistent S3 key for transcript archives
func (a *TranscriptArchive) objectName(roomID string, now time.Time) string {
	return fmt.Sprintf(
		"transcripts/%d/%02d/%02d/%s.json",
		now.Year(),
		now.Month(),
		now.Day(),
		roomID,
	)
}

// Upload writes the transcript snapshot as a single JSON object
func (a *TranscriptArchive) Upload(ctx context.Context, roomID string, rows []TranscriptRow) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	objectName := a.objectName(roomID, time.Now())

	_, err = a.client.PutObject(
		ctx,
		a.bucketName,
		objectName,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				"room-id":  roomID,
				"uploaded": time.Now().Format(time.RFC3339),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to upload transcript to minio: %w", err)
	}

	return nil
}
