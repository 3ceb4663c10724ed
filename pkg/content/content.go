// Package content defines file payload storage, kept separate from the
// namespace metadata so backends can differ per deployment: shard metadata
// in memory or Badger, payload bytes in memory or S3.
package content

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no content was ever written for a path.
// The engine maps it to an empty read: a created file that was never
// written reads as zero bytes, matching its zero size attribute.
var ErrNotFound = errors.New("content not found")

// Store holds payload bytes keyed by namespace path. The namespace entry is
// authoritative for existence; content for a path may legitimately be
// absent (never written) or orphaned for a short window after a failed
// delete, so implementations treat Delete of missing content as success.
type Store interface {
	// Read returns the full content for path or ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write replaces the content for path.
	Write(ctx context.Context, path string, data []byte) error

	// Delete removes the content for path. Missing content is not an
	// error.
	Delete(ctx context.Context, path string) error

	// Close releases backend resources.
	Close() error
}
