// Package engine implements the distributed namespace engine: the
// per-shard operation layer that sequences cross-shard invariant
// validation against peers with atomic mutations of the local store.
//
// The ordering discipline is the correctness core of the whole system.
// Every mutating operation runs in three phases:
//
//  1. Local fast-fail checks (path shape, ownership, existence). No
//     verdict reached here can be invalidated by a peer's answer.
//  2. Cross-shard validation (parent existence, directory emptiness)
//     through peer RPCs. No local lock is held during this phase, so two
//     shards validating against each other can never deadlock.
//  3. Atomic local commit in the store. The store re-checks what phase 1
//     observed; when two racing requests both survive phase 2, the store
//     picks exactly one winner.
//
// A peer that cannot answer within the deadline fails the operation with
// ErrShardUnavailable. The engine never retries and never guesses: an
// unprovable invariant is treated as violated.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shardfs/shardfs/internal/logger"
	"github.com/shardfs/shardfs/pkg/cluster"
	"github.com/shardfs/shardfs/pkg/content"
	"github.com/shardfs/shardfs/pkg/namespace"
	"github.com/shardfs/shardfs/pkg/store"
)

// PeerClient issues internal queries to other shards. The production
// implementation speaks the wire protocol over TCP (pkg/client); tests
// substitute in-process fakes. Implementations must honor ctx deadlines.
type PeerClient interface {
	// Exists reports whether the entry at path is present on shard.
	Exists(ctx context.Context, shard cluster.ShardID, path string) (bool, error)

	// ChildExists reports whether shard owns any immediate child of
	// the directory at prefix.
	ChildExists(ctx context.Context, shard cluster.ShardID, prefix string) (bool, error)

	// ListChildren returns the immediate children of prefix owned by
	// shard.
	ListChildren(ctx context.Context, shard cluster.ShardID, prefix string) ([]string, error)
}

const (
	defaultPeerTimeout = 2 * time.Second

	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// Config assembles an Engine.
type Config struct {
	// Self is the shard this engine serves.
	Self cluster.ShardID

	// Router computes path ownership. Its topology must contain Self.
	Router *cluster.Router

	// Store is the local authoritative namespace store.
	Store store.NamespaceStore

	// Content holds file payloads. Optional; a nil store turns ReadFile
	// and WriteFile into ErrInternal.
	Content content.Store

	// Peers issues internal queries to other shards.
	Peers PeerClient

	// PeerTimeout bounds every outgoing peer call, including the shared
	// deadline of emptiness fan-outs. Zero selects the default of 2s.
	PeerTimeout time.Duration
}

// Engine is one shard's namespace engine. Safe for concurrent use.
type Engine struct {
	self        cluster.ShardID
	router      *cluster.Router
	store       store.NamespaceStore
	content     content.Store
	peers       PeerClient
	peerTimeout time.Duration
}

func New(cfg Config) (*Engine, error) {
	if cfg.Router == nil {
		return nil, fmt.Errorf("engine requires a router")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine requires a namespace store")
	}
	if !cfg.Router.Topology().Contains(cfg.Self) {
		return nil, fmt.Errorf("shard %d not in topology of size %d", cfg.Self, cfg.Router.Topology().Size())
	}
	if cfg.Peers == nil && cfg.Router.Topology().Size() > 1 {
		return nil, fmt.Errorf("engine requires a peer client in a multi-shard topology")
	}

	timeout := cfg.PeerTimeout
	if timeout == 0 {
		timeout = defaultPeerTimeout
	}

	return &Engine{
		self:        cfg.Self,
		router:      cfg.Router,
		store:       cfg.Store,
		content:     cfg.Content,
		peers:       cfg.Peers,
		peerTimeout: timeout,
	}, nil
}

// ============================================================================
// Client-facing operations
// ============================================================================

// CreateFile inserts a file entry after validating its parent directory,
// which may live on another shard.
func (e *Engine) CreateFile(ctx context.Context, path string) error {
	return e.create(ctx, path, namespace.KindFile, defaultFileMode)
}

// CreateDir inserts a directory entry after validating its parent.
func (e *Engine) CreateDir(ctx context.Context, path string) error {
	return e.create(ctx, path, namespace.KindDirectory, defaultDirMode)
}

func (e *Engine) create(ctx context.Context, path string, kind namespace.Kind, mode uint32) error {
	if namespace.IsRoot(path) {
		// The root exists from bootstrap; creating it fails AlreadyExists
		// unconditionally — before the kind-shape check, so CreateFile and
		// CreateDir agree — and without consulting the owner.
		return namespace.NewAlreadyExists(path)
	}
	if err := e.checkPath(path, kind); err != nil {
		return err
	}
	if err := e.checkOwnership(path); err != nil {
		return err
	}

	// Fast fail before any peer traffic.
	if _, err := e.store.Lookup(ctx, path); err == nil {
		return namespace.NewAlreadyExists(path)
	} else if !isNotFound(err) {
		return err
	}

	if err := e.validateParent(ctx, path); err != nil {
		return err
	}

	// The store re-checks presence atomically: a racing create that also
	// passed validation loses here with ErrAlreadyExists.
	return e.store.Create(ctx, namespace.NewEntry(path, mode))
}

// DeleteFile removes a file entry, then its content best-effort.
func (e *Engine) DeleteFile(ctx context.Context, path string) error {
	if err := e.checkPath(path, namespace.KindFile); err != nil {
		return err
	}
	if err := e.checkOwnership(path); err != nil {
		return err
	}

	if err := e.store.Delete(ctx, path, namespace.KindFile); err != nil {
		return err
	}

	// The namespace entry is gone; orphaned content is invisible and a
	// failed cleanup must not resurrect the operation's outcome.
	if e.content != nil {
		if err := e.content.Delete(ctx, path); err != nil {
			logger.Warn("content cleanup for %s failed: %v", path, err)
		}
	}
	return nil
}

// DeleteDir removes a directory entry once every shard has confirmed it
// has no children anywhere in the cluster.
func (e *Engine) DeleteDir(ctx context.Context, path string) error {
	if err := e.checkPath(path, namespace.KindDirectory); err != nil {
		return err
	}
	if namespace.IsRoot(path) {
		return namespace.NewForbidden("root directory cannot be deleted", path)
	}
	if err := e.checkOwnership(path); err != nil {
		return err
	}

	if _, err := e.store.Lookup(ctx, path); err != nil {
		return err
	}

	empty, err := e.validateEmpty(ctx, path)
	if err != nil {
		return err
	}
	if !empty {
		return namespace.NewNotEmpty(path)
	}

	return e.store.Delete(ctx, path, namespace.KindDirectory)
}

// GetFileAttr returns the entry stored at path.
func (e *Engine) GetFileAttr(ctx context.Context, path string) (namespace.Entry, error) {
	if err := namespace.ValidatePath(path); err != nil {
		return namespace.Entry{}, err
	}
	if err := e.checkOwnership(path); err != nil {
		return namespace.Entry{}, err
	}
	return e.store.Lookup(ctx, path)
}

// OpenFile validates that path names an existing file.
func (e *Engine) OpenFile(ctx context.Context, path string) error {
	if err := e.checkPath(path, namespace.KindFile); err != nil {
		return err
	}
	if err := e.checkOwnership(path); err != nil {
		return err
	}
	_, err := e.store.Lookup(ctx, path)
	return err
}

// ReadFile returns the file's content. A file that was created but never
// written reads as empty, matching its zero size attribute.
func (e *Engine) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := e.checkPath(path, namespace.KindFile); err != nil {
		return nil, err
	}
	if err := e.checkOwnership(path); err != nil {
		return nil, err
	}
	if _, err := e.store.Lookup(ctx, path); err != nil {
		return nil, err
	}

	if e.content == nil {
		return nil, namespace.NewInternal("no content store configured", path)
	}
	data, err := e.content.Read(ctx, path)
	if errors.Is(err, content.ErrNotFound) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, namespace.NewInternal(err.Error(), path)
	}
	return data, nil
}

// WriteFile replaces the file's content and updates its size and mtime.
func (e *Engine) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := e.checkPath(path, namespace.KindFile); err != nil {
		return err
	}
	if err := e.checkOwnership(path); err != nil {
		return err
	}
	if _, err := e.store.Lookup(ctx, path); err != nil {
		return err
	}

	if e.content == nil {
		return namespace.NewInternal("no content store configured", path)
	}
	if err := e.content.Write(ctx, path, data); err != nil {
		return namespace.NewInternal(err.Error(), path)
	}

	size := uint64(len(data))
	return e.store.UpdateAttr(ctx, path, func(a *namespace.FileAttr) {
		a.Size = size
		a.Mtime = time.Now().Truncate(time.Second)
	})
}

// ReadDir returns the complete sorted listing of the directory at path.
// Children are scattered across the cluster by the router, so the local
// children are merged with a concurrent ListChildren fan-out to every
// other shard.
func (e *Engine) ReadDir(ctx context.Context, path string) ([]string, error) {
	if err := e.checkPath(path, namespace.KindDirectory); err != nil {
		return nil, err
	}
	if err := e.checkOwnership(path); err != nil {
		return nil, err
	}
	if _, err := e.store.Lookup(ctx, path); err != nil {
		return nil, err
	}

	names, err := e.store.ListChildren(ctx, path)
	if err != nil {
		return nil, err
	}

	remote, err := e.gatherChildren(ctx, path)
	if err != nil {
		return nil, err
	}

	names = append(names, remote...)
	sort.Strings(names)
	return names, nil
}

// ============================================================================
// Peer-facing operations (internal opcodes)
// ============================================================================

// Exists answers a peer's parent-validation query from the local store.
func (e *Engine) Exists(ctx context.Context, path string) (bool, error) {
	if err := namespace.ValidatePath(path); err != nil {
		return false, err
	}
	_, err := e.store.Lookup(ctx, path)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ChildExists answers a peer's emptiness query: whether this shard owns
// any immediate child of prefix. The directory itself usually lives on
// the asking shard, so no local existence check applies.
func (e *Engine) ChildExists(ctx context.Context, prefix string) (bool, error) {
	if err := namespace.ValidatePath(prefix); err != nil {
		return false, err
	}
	return e.store.HasChild(ctx, prefix)
}

// ListChildren answers a peer's ReadDir gathering query with the locally
// owned immediate children of prefix.
func (e *Engine) ListChildren(ctx context.Context, prefix string) ([]string, error) {
	if err := namespace.ValidatePath(prefix); err != nil {
		return nil, err
	}
	return e.store.ListChildren(ctx, prefix)
}

// ============================================================================
// Shared checks
// ============================================================================

// checkPath validates shape and that the trailing-separator convention
// agrees with the requested kind.
func (e *Engine) checkPath(path string, kind namespace.Kind) error {
	if err := namespace.ValidatePath(path); err != nil {
		return err
	}
	if namespace.KindForPath(path) != kind {
		return namespace.NewWrongType(path, kind)
	}
	return nil
}

// checkOwnership rejects paths the router does not assign to this shard.
// Serving them anyway would scatter entries onto non-owning shards and
// quietly break every later existence answer for those paths.
func (e *Engine) checkOwnership(path string) error {
	if owner := e.router.Route(path); owner != e.self {
		return namespace.NewMalformed(
			fmt.Sprintf("path is owned by shard %d, not shard %d", owner, e.self), path)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsErr *namespace.Error
	return errors.As(err, &nsErr) && nsErr.Code == namespace.ErrNotFound
}
