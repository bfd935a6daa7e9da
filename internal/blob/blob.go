// Package blob stores raw audio bytes outside the call record, addressed
// by an opaque handle.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store is the contract the pipeline requires of an audio blob backend.
type Store interface {
	// Put stores data and returns an opaque handle for later retrieval.
	Put(ctx context.Context, filename, contentType string, data []byte) (string, error)
	// Get returns the bytes previously stored under handle.
	Get(ctx context.Context, handle string) ([]byte, error)
}

// FSStore keeps blobs as files in a single directory. Handles are
// generated UUIDs carrying the original extension; they never contain
// path separators.
type FSStore struct {
	dir string
}

// NewFSStore creates (if needed) the blob directory under dataDir.
func NewFSStore(dataDir string) (*FSStore, error) {
	dir := filepath.Join(dataDir, "audio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	handle := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	if err := os.WriteFile(filepath.Join(s.dir, handle), data, 0o644); err != nil {
		return "", fmt.Errorf("writing blob: %w", err)
	}
	return handle, nil
}

func (s *FSStore) Get(ctx context.Context, handle string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Reject handles that try to escape the blob directory.
	if handle != filepath.Base(handle) {
		return nil, fmt.Errorf("invalid blob handle %q", handle)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, handle))
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", handle, err)
	}
	return data, nil
}
