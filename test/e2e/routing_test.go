package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardfs/shardfs/pkg/cluster"
	"github.com/shardfs/shardfs/pkg/namespace"
)

func TestRoutingIsDeterministic(t *testing.T) {
	c := StartCluster(t, 3)

	paths := []string{"/", "/a.txt", "/dir/", "/dir/nested/file.bin"}
	for _, path := range paths {
		first := c.ShardFor(path)
		for range 100 {
			assert.Equal(t, first, c.ShardFor(path), "route(%q) changed between calls", path)
		}
	}
}

func TestEveryShardAnswersForEveryPath(t *testing.T) {
	c := StartCluster(t, 3)
	ctx := context.Background()

	// Place one file on each shard and read them all back through the
	// single routing client.
	for shard := range c.Topo.Size() {
		path := c.PathOnShard(cluster.ShardID(shard), "/spread-%d.txt")
		require.NoError(t, c.Client.CreateFile(ctx, path))

		entry, err := c.Client.GetFileAttr(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, namespace.KindFile, entry.Kind)
	}
}

// TestNamespaceLifecycle walks a full namespace lifecycle: a root-level
// file cycle, nested directory creation gated on parents, emptiness-gated
// deletes, and parent-gated file creation.
func TestNamespaceLifecycle(t *testing.T) {
	c := StartCluster(t, 3)
	ctx := context.Background()

	// Root-level file: create, duplicate create, delete.
	require.NoError(t, c.Client.CreateFile(ctx, "/t1.txt"))
	requireCode(t, namespace.ErrAlreadyExists, c.Client.CreateFile(ctx, "/t1.txt"))
	require.NoError(t, c.Client.DeleteFile(ctx, "/t1.txt"))

	// Nested directory requires its parent first.
	requireCode(t, namespace.ErrNotFound, c.Client.CreateDir(ctx, "/test1/test_dir/"))
	require.NoError(t, c.Client.CreateDir(ctx, "/test1/"))
	require.NoError(t, c.Client.CreateDir(ctx, "/test1/test_dir/"))

	// A directory with children refuses deletion until emptied.
	requireCode(t, namespace.ErrNotEmpty, c.Client.DeleteDir(ctx, "/test1/"))
	require.NoError(t, c.Client.DeleteDir(ctx, "/test1/test_dir/"))
	require.NoError(t, c.Client.DeleteDir(ctx, "/test1/"))

	// File creation is parent-gated the same way.
	requireCode(t, namespace.ErrNotFound, c.Client.CreateFile(ctx, "/test1/t1.txt"))
	require.NoError(t, c.Client.CreateDir(ctx, "/test1/"))
	require.NoError(t, c.Client.CreateFile(ctx, "/test1/t1.txt"))
}
