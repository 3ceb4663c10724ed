package engine

import (
	"context"

	"github.com/shardfs/shardfs/internal/logger"
	"github.com/shardfs/shardfs/pkg/cluster"
	"github.com/shardfs/shardfs/pkg/namespace"
)

// validateParent confirms the parent directory of path exists, consulting
// the owning shard when the parent is not local. A peer that answers
// "absent" fails the operation with ErrNotFound; a peer that cannot answer
// fails it with ErrShardUnavailable.
func (e *Engine) validateParent(ctx context.Context, path string) error {
	parent := namespace.ParentOf(path)
	if parent == "" {
		return nil
	}

	if owner := e.router.Route(parent); owner != e.self {
		return e.validateRemoteParent(ctx, owner, parent, path)
	}

	_, err := e.store.Lookup(ctx, parent)
	if isNotFound(err) {
		return namespace.NewNotFound(parent)
	}
	return err
}

func (e *Engine) validateRemoteParent(ctx context.Context, owner cluster.ShardID, parent, path string) error {
	ctx, cancel := context.WithTimeout(ctx, e.peerTimeout)
	defer cancel()

	exists, err := e.peers.Exists(ctx, owner, parent)
	if err != nil {
		logger.Warn("parent check for %s on shard %d failed: %v", path, owner, err)
		return namespace.NewShardUnavailable(path, err.Error())
	}
	if !exists {
		return namespace.NewNotFound(parent)
	}
	return nil
}

// validateEmpty decides whether the directory at path has no children
// anywhere in the cluster. The local store answers for this shard; every
// other shard is queried concurrently under one shared deadline. The
// answers are OR-ed, and the verdict is only trusted once every shard has
// answered: a missing answer fails the delete rather than risk removing a
// directory whose children live on the silent shard.
func (e *Engine) validateEmpty(ctx context.Context, path string) (bool, error) {
	hasLocal, err := e.store.HasChild(ctx, path)
	if err != nil {
		return false, err
	}
	if hasLocal {
		return false, nil
	}

	others := e.router.Topology().Others(e.self)
	if len(others) == 0 {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.peerTimeout)
	defer cancel()

	type answer struct {
		shard cluster.ShardID
		has   bool
		err   error
	}
	answers := make(chan answer, len(others))
	for _, shard := range others {
		go func(shard cluster.ShardID) {
			has, err := e.peers.ChildExists(ctx, shard, path)
			answers <- answer{shard: shard, has: has, err: err}
		}(shard)
	}

	hasRemote := false
	var unavailable error
	for range others {
		a := <-answers
		if a.err != nil {
			logger.Warn("emptiness check for %s on shard %d failed: %v", path, a.shard, a.err)
			if unavailable == nil {
				unavailable = namespace.NewShardUnavailable(path, a.err.Error())
			}
			continue
		}
		if a.has {
			hasRemote = true
		}
	}

	// A positive child sighting is a definitive NotEmpty even when some
	// other shard failed to answer; only an all-clear requires every
	// shard to have spoken.
	if hasRemote {
		return false, nil
	}
	if unavailable != nil {
		return false, unavailable
	}
	return true, nil
}

// gatherChildren collects the remote part of a directory listing from
// every other shard concurrently under one shared deadline.
func (e *Engine) gatherChildren(ctx context.Context, path string) ([]string, error) {
	others := e.router.Topology().Others(e.self)
	if len(others) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.peerTimeout)
	defer cancel()

	type answer struct {
		shard cluster.ShardID
		names []string
		err   error
	}
	answers := make(chan answer, len(others))
	for _, shard := range others {
		go func(shard cluster.ShardID) {
			names, err := e.peers.ListChildren(ctx, shard, path)
			answers <- answer{shard: shard, names: names, err: err}
		}(shard)
	}

	var merged []string
	for range others {
		a := <-answers
		if a.err != nil {
			logger.Warn("listing %s on shard %d failed: %v", path, a.shard, a.err)
			return nil, namespace.NewShardUnavailable(path, a.err.Error())
		}
		merged = append(merged, a.names...)
	}
	return merged, nil
}
