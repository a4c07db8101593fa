// Package history tracks which video IDs have already been seen, so that a
// repeated delivery classifies as an edit instead of a fresh upload.
package history

import "context"

// Store is the capability set every history backend implements.
// Has and Add must be safe to interleave from concurrent deliveries, and
// Add must be idempotent: re-adding a known ID is a no-op, not an error.
type Store interface {
	// Has reports whether the video ID was recorded before.
	Has(ctx context.Context, videoID string) (bool, error)

	// Add records the video ID. Adding an already-present ID does nothing.
	Add(ctx context.Context, videoID string) error
}
