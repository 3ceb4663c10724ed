// Package store defines the per-shard namespace store contract.
package store

import (
	"context"

	"github.com/shardfs/shardfs/pkg/namespace"
)

// ============================================================================
// NamespaceStore Interface
// ============================================================================

// NamespaceStore is the authoritative entry map of one shard. It holds only
// paths the router assigns to this shard; nothing above it re-checks
// ownership, so a store never sees foreign paths in correct operation.
//
// Mutations are atomic with respect to the store's own serialization: a
// Create observes "absent" and inserts under the same critical section, a
// Delete observes kind and removes under the same critical section. That
// atomicity is what the engine relies on when two racing requests survive
// its unlocked validation phase: exactly one wins here.
//
// Stores hold metadata only. File content lives in a content store keyed by
// path (see pkg/content), coordinated by the engine.
type NamespaceStore interface {
	// Create inserts entry. Fails with ErrAlreadyExists when the path is
	// already present.
	Create(ctx context.Context, entry namespace.Entry) error

	// Delete removes the entry at path. Fails with ErrNotFound when
	// absent and ErrWrongType when the stored kind differs from kind.
	// Emptiness of directories is the engine's concern, not the store's.
	Delete(ctx context.Context, path string, kind namespace.Kind) error

	// Lookup returns the entry at path or ErrNotFound.
	Lookup(ctx context.Context, path string) (namespace.Entry, error)

	// ListChildren returns the base names of locally-owned immediate
	// children of the directory at prefix, sorted. Directory names keep
	// their trailing separator. Children owned by other shards are
	// invisible here; a full listing is assembled by scatter-gather.
	ListChildren(ctx context.Context, prefix string) ([]string, error)

	// HasChild reports whether any locally-owned immediate child of
	// prefix exists, without materializing the listing.
	HasChild(ctx context.Context, prefix string) (bool, error)

	// UpdateAttr applies update to the attributes of the entry at path
	// under the store's serialization. Fails with ErrNotFound when absent.
	UpdateAttr(ctx context.Context, path string, update func(*namespace.FileAttr)) error

	// Close releases store resources.
	Close() error
}
