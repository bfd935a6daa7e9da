// Package ingest validates uploaded call audio and creates the persistent
// record the pipeline stages operate on.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/callsight/callsight/internal/blob"
	"github.com/callsight/callsight/internal/storage"
)

// MaxUploadBytes is the upload size ceiling (25 MiB).
const MaxUploadBytes = 25 << 20

var (
	// ErrInvalidFormat is returned for extensions outside the allow-list.
	ErrInvalidFormat = errors.New("invalid file format")
	// ErrPayloadTooLarge is returned for uploads exceeding MaxUploadBytes.
	ErrPayloadTooLarge = errors.New("file size exceeds 25MB limit")
)

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".webm": true,
}

// RecordInserter is the slice of the record store the intake needs.
type RecordInserter interface {
	InsertCall(c storage.CallRecord) error
}

// Service stores audio and creates call records. Each call creates a new
// record; the operation is intentionally not idempotent.
type Service struct {
	records RecordInserter
	blobs   blob.Store
}

func NewService(records RecordInserter, blobs blob.Store) *Service {
	return &Service{records: records, blobs: blobs}
}

// Upload validates the audio, stores the bytes, and inserts a fresh record
// with both stage statuses pending. Nothing is persisted when validation
// fails. durationSeconds is optional, informational metadata.
func (s *Service) Upload(ctx context.Context, filename, contentType string, data []byte, durationSeconds *float64) (storage.CallRecord, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return storage.CallRecord{}, fmt.Errorf("%w: %q (supported: mp3, wav, m4a, mp4, mpeg, mpga, webm)", ErrInvalidFormat, ext)
	}
	if len(data) > MaxUploadBytes {
		return storage.CallRecord{}, ErrPayloadTooLarge
	}

	handle, err := s.blobs.Put(ctx, filename, contentType, data)
	if err != nil {
		return storage.CallRecord{}, fmt.Errorf("storing audio: %w", err)
	}

	record := storage.CallRecord{
		ID:                  uuid.New().String(),
		Filename:            filename,
		AudioHandle:         handle,
		DurationSeconds:     durationSeconds,
		UploadTimestamp:     time.Now().UTC(),
		TranscriptionStatus: storage.StatusPending,
		AnalysisStatus:      storage.StatusPending,
	}
	if err := s.records.InsertCall(record); err != nil {
		return storage.CallRecord{}, fmt.Errorf("creating call record: %w", err)
	}
	return record, nil
}
