// Package fs provides a content store backed by the local filesystem,
// one file per namespace path.
package fs

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shardfs/shardfs/pkg/content"
)

// Store writes payload bytes under a base directory. Namespace paths are
// hex-encoded into flat filenames, so the store never mirrors the namespace
// hierarchy and never needs directory bookkeeping on delete.
//
// Filesystem operations are atomic per file at the OS level, but concurrent
// writes to the same path may interleave; the engine serializes mutations
// per shard, which covers this.
type Store struct {
	basePath string
}

// New creates the base directory if needed and returns the store.
func New(basePath string) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("fs content store: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("fs content store: create %q: %w", basePath, err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.filename(path))
	if os.IsNotExist(err) {
		return nil, content.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read content for %q: %w", path, err)
	}
	return data, nil
}

func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Write-then-rename keeps readers from observing a partial payload.
	target := s.filename(path)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write content for %q: %w", path, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit content for %q: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.filename(path))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete content for %q: %w", path, err)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) filename(path string) string {
	return filepath.Join(s.basePath, hex.EncodeToString([]byte(path)))
}
