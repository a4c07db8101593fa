package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore is a durable history keeping one empty marker file per video ID
// under a base directory. Existence of the marker is the entire payload.
// There is no eviction; unbounded growth is the durability trade-off.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Has reports whether a marker file exists for the video ID.
func (s *FileStore) Has(_ context.Context, videoID string) (bool, error) {
	_, err := os.Stat(s.markerPath(videoID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat history marker: %w", err)
}

// Add creates the marker file for the video ID. Concurrent creators racing
// on the same ID must not fail, so "already exists" is treated as success.
func (s *FileStore) Add(_ context.Context, videoID string) error {
	f, err := os.OpenFile(s.markerPath(videoID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("failed to create history marker: %w", err)
	}
	return f.Close()
}

// markerPath maps a video ID to its marker file, sanitizing characters that
// are unsafe in file names. YouTube video IDs are URL-safe base64 already,
// so sanitizing is a guard against hostile payloads, not normal input.
func (s *FileStore) markerPath(videoID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '.'
		}
	}, videoID)
	return filepath.Join(s.dir, sanitized)
}
