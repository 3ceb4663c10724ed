// Package memory provides the in-memory NamespaceStore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shardfs/shardfs/pkg/namespace"
)

// Store implements store.NamespaceStore backed by a single map.
//
// Suitable for tests, development, and deployments where a shard's
// namespace is allowed to vanish on restart. A single read-write mutex
// serializes mutations; that lock is only ever held around map access,
// never across I/O, so it cannot participate in cross-shard deadlocks.
type Store struct {
	mu      sync.RWMutex
	entries map[string]namespace.Entry
}

// New creates an empty store. When ownsRoot is set the permanent root
// directory is seeded, which the factory requests on exactly the shard the
// router maps "/" to.
func New(ownsRoot bool) *Store {
	s := &Store{entries: make(map[string]namespace.Entry)}
	if ownsRoot {
		s.entries[namespace.Root] = namespace.NewEntry(namespace.Root, 0o755)
	}
	return s
}

func (s *Store) Create(ctx context.Context, entry namespace.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Path]; exists {
		return namespace.NewAlreadyExists(entry.Path)
	}
	s.entries[entry.Path] = entry
	return nil
}

func (s *Store) Delete(ctx context.Context, path string, kind namespace.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[path]
	if !exists {
		return namespace.NewNotFound(path)
	}
	if entry.Kind != kind {
		return namespace.NewWrongType(path, kind)
	}
	delete(s.entries, path)
	return nil
}

func (s *Store) Lookup(ctx context.Context, path string) (namespace.Entry, error) {
	if err := ctx.Err(); err != nil {
		return namespace.Entry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[path]
	if !exists {
		return namespace.Entry{}, namespace.NewNotFound(path)
	}
	return entry, nil
}

func (s *Store) ListChildren(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for path := range s.entries {
		if namespace.IsImmediateChild(prefix, path) {
			names = append(names, namespace.BaseName(path))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) HasChild(ctx context.Context, prefix string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for path := range s.entries {
		if namespace.IsImmediateChild(prefix, path) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateAttr(ctx context.Context, path string, update func(*namespace.FileAttr)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[path]
	if !exists {
		return namespace.NewNotFound(path)
	}
	update(&entry.Attr)
	s.entries[path] = entry
	return nil
}

func (s *Store) Close() error {
	return nil
}
