package ingest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/callsight/callsight/internal/blob"
	"github.com/callsight/callsight/internal/storage"
)

type fakeInserter struct {
	inserted []storage.CallRecord
	err      error
}

func (f *fakeInserter) InsertCall(c storage.CallRecord) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, c)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeInserter) {
	t.Helper()
	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	records := &fakeInserter{}
	return NewService(records, blobs), records
}

func TestUpload_CreatesPendingRecord(t *testing.T) {
	svc, records := newTestService(t)

	rec, err := svc.Upload(context.Background(), "demo.wav", "audio/wav", []byte("riff"), nil)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("record has empty id")
	}
	if rec.TranscriptionStatus != storage.StatusPending || rec.AnalysisStatus != storage.StatusPending {
		t.Errorf("statuses = %q/%q, want pending/pending", rec.TranscriptionStatus, rec.AnalysisStatus)
	}
	if rec.AudioHandle == "" {
		t.Error("record has empty audio handle")
	}
	if len(records.inserted) != 1 {
		t.Fatalf("inserted %d records, want 1", len(records.inserted))
	}
}

func TestUpload_RejectsDisallowedExtensions(t *testing.T) {
	svc, records := newTestService(t)

	for _, name := range []string{"notes.txt", "call.ogg", "call", "call.wav.exe"} {
		_, err := svc.Upload(context.Background(), name, "application/octet-stream", []byte("x"), nil)
		if !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Upload(%q) error = %v, want ErrInvalidFormat", name, err)
		}
	}
	if len(records.inserted) != 0 {
		t.Errorf("inserted %d records, want 0 after rejected uploads", len(records.inserted))
	}
}

func TestUpload_RejectsOversizedPayload(t *testing.T) {
	svc, records := newTestService(t)

	big := bytes.Repeat([]byte("a"), MaxUploadBytes+1)
	_, err := svc.Upload(context.Background(), "big.mp3", "audio/mpeg", big, nil)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("error = %v, want ErrPayloadTooLarge", err)
	}
	if len(records.inserted) != 0 {
		t.Errorf("inserted %d records, want 0", len(records.inserted))
	}
}

func TestUpload_NotIdempotent(t *testing.T) {
	svc, records := newTestService(t)

	r1, err := svc.Upload(context.Background(), "demo.wav", "audio/wav", []byte("riff"), nil)
	if err != nil {
		t.Fatalf("first Upload failed: %v", err)
	}
	r2, err := svc.Upload(context.Background(), "demo.wav", "audio/wav", []byte("riff"), nil)
	if err != nil {
		t.Fatalf("second Upload failed: %v", err)
	}
	if r1.ID == r2.ID {
		t.Error("uploading the same file twice should create distinct records")
	}
	if len(records.inserted) != 2 {
		t.Errorf("inserted %d records, want 2", len(records.inserted))
	}
}
