// Package transcription implements the speech-to-text stage of the call
// pipeline.
package transcription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/callsight/callsight/internal/ai"
	"github.com/callsight/callsight/internal/blob"
	"github.com/callsight/callsight/internal/storage"
)

// RecordStore is the slice of the record store the stage needs.
type RecordStore interface {
	GetCall(id string) (storage.CallRecord, error)
	UpdateCallFields(id string, fields map[string]any) error
}

// Stage transcribes a call's stored audio and writes the outcome back to
// the record. Re-running a stage overwrites the prior outcome; concurrent
// runs on the same id race last-write-wins.
type Stage struct {
	records     RecordStore
	blobs       blob.Store
	transcriber ai.Transcriber
	language    string
	logger      *slog.Logger
}

func NewStage(records RecordStore, blobs blob.Store, transcriber ai.Transcriber, language string) *Stage {
	return &Stage{
		records:     records,
		blobs:       blobs,
		transcriber: transcriber,
		language:    language,
		logger:      slog.Default(),
	}
}

// Run transcribes the call with the given id and returns the transcript.
// The processing status is written before any external call so concurrent
// readers observe it immediately. On failure the transcript is cleared,
// the status is set to failed, and the error is returned to the caller.
func (s *Stage) Run(ctx context.Context, id string) (string, error) {
	record, err := s.records.GetCall(id)
	if err != nil {
		return "", err
	}

	if err := s.records.UpdateCallFields(id, map[string]any{
		"transcription_status": storage.StatusProcessing,
	}); err != nil {
		return "", fmt.Errorf("marking transcription processing: %w", err)
	}

	text, err := s.transcribe(ctx, record)
	if err != nil {
		s.logger.Warn("transcription failed", "call_id", id, "error", err)
		if failErr := s.records.UpdateCallFields(id, map[string]any{
			"transcription":        nil,
			"transcription_status": storage.StatusFailed,
		}); failErr != nil {
			s.logger.Error("failed to mark transcription failed", "call_id", id, "error", failErr)
		}
		return "", err
	}

	if err := s.records.UpdateCallFields(id, map[string]any{
		"transcription":        text,
		"transcription_status": storage.StatusCompleted,
	}); err != nil {
		s.logger.Error("failed to save transcript", "call_id", id, "error", err)
		if failErr := s.records.UpdateCallFields(id, map[string]any{
			"transcription":        nil,
			"transcription_status": storage.StatusFailed,
		}); failErr != nil {
			s.logger.Error("failed to mark transcription failed", "call_id", id, "error", failErr)
		}
		return "", fmt.Errorf("saving transcript: %w", err)
	}

	s.logger.Info("transcription completed", "call_id", id, "chars", len(text))
	return text, nil
}

func (s *Stage) transcribe(ctx context.Context, record storage.CallRecord) (string, error) {
	audio, err := s.blobs.Get(ctx, record.AudioHandle)
	if err != nil {
		return "", fmt.Errorf("retrieving audio: %w", err)
	}
	text, err := s.transcriber.Transcribe(ctx, audio, record.Filename, s.language)
	if err != nil {
		return "", fmt.Errorf("transcribing audio: %w", err)
	}
	return text, nil
}
