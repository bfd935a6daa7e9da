package transcription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/callsight/callsight/internal/blob"
	"github.com/callsight/callsight/internal/storage"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	return f.text, f.err
}

func setupStage(t *testing.T, tr *fakeTranscriber) (*Stage, *storage.Store, string) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	handle, err := blobs.Put(context.Background(), "demo.wav", "audio/wav", []byte("riff"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	record := storage.CallRecord{
		ID:              "call-1",
		Filename:        "demo.wav",
		AudioHandle:     handle,
		UploadTimestamp: time.Now().UTC(),
	}
	if err := store.InsertCall(record); err != nil {
		t.Fatalf("InsertCall failed: %v", err)
	}

	return NewStage(store, blobs, tr, "en"), store, "call-1"
}

func TestRun_Success(t *testing.T) {
	stage, store, id := setupStage(t, &fakeTranscriber{text: "hello world"})

	text, err := stage.Run(context.Background(), id)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}

	got, _ := store.GetCall(id)
	if got.TranscriptionStatus != storage.StatusCompleted {
		t.Errorf("status = %q, want completed", got.TranscriptionStatus)
	}
	if got.Transcription == nil || *got.Transcription != "hello world" {
		t.Errorf("transcription = %v, want %q", got.Transcription, "hello world")
	}
}

func TestRun_NotFound(t *testing.T) {
	stage, _, _ := setupStage(t, &fakeTranscriber{text: "x"})

	_, err := stage.Run(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRun_TranscriberFailureClearsTranscript(t *testing.T) {
	stage, store, id := setupStage(t, &fakeTranscriber{err: errors.New("quota exceeded")})

	// Seed a prior successful run, then fail: last write wins.
	if err := store.UpdateCallFields(id, map[string]any{
		"transcription":        "old text",
		"transcription_status": storage.StatusCompleted,
	}); err != nil {
		t.Fatalf("UpdateCallFields failed: %v", err)
	}

	if _, err := stage.Run(context.Background(), id); err == nil {
		t.Fatal("Run should surface the transcriber error")
	}

	got, _ := store.GetCall(id)
	if got.TranscriptionStatus != storage.StatusFailed {
		t.Errorf("status = %q, want failed", got.TranscriptionStatus)
	}
	if got.Transcription != nil {
		t.Errorf("transcription = %q, want nil after failure", *got.Transcription)
	}
}

// saveFailingStore rejects the final transcript write while letting every
// other update through.
type saveFailingStore struct {
	*storage.Store
}

func (s *saveFailingStore) UpdateCallFields(id string, fields map[string]any) error {
	if fields["transcription_status"] == storage.StatusCompleted {
		return errors.New("disk full")
	}
	return s.Store.UpdateCallFields(id, fields)
}

func TestRun_SaveFailureMarksFailed(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	handle, err := blobs.Put(context.Background(), "demo.wav", "audio/wav", []byte("riff"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	id := "call-1"
	if err := store.InsertCall(storage.CallRecord{
		ID:              id,
		Filename:        "demo.wav",
		AudioHandle:     handle,
		UploadTimestamp: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("InsertCall failed: %v", err)
	}
	stage := NewStage(&saveFailingStore{store}, blobs, &fakeTranscriber{text: "hello world"}, "en")

	if _, err := stage.Run(context.Background(), id); err == nil {
		t.Fatal("Run should surface the save error")
	}

	// The record must not be stranded in processing.
	got, _ := store.GetCall(id)
	if got.TranscriptionStatus != storage.StatusFailed {
		t.Errorf("status = %q, want failed", got.TranscriptionStatus)
	}
	if got.Transcription != nil {
		t.Errorf("transcription = %q, want nil after failure", *got.Transcription)
	}
}

func TestRun_ReinvocationOverwrites(t *testing.T) {
	tr := &fakeTranscriber{text: "first pass"}
	stage, store, id := setupStage(t, tr)

	if _, err := stage.Run(context.Background(), id); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	tr.text = "second pass"
	if _, err := stage.Run(context.Background(), id); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	got, _ := store.GetCall(id)
	if got.Transcription == nil || *got.Transcription != "second pass" {
		t.Errorf("transcription = %v, want %q", got.Transcription, "second pass")
	}
}
