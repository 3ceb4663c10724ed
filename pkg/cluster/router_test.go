package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeNodeTopology(t *testing.T) *Topology {
	t.Helper()
	topo, err := NewTopology([]string{"127.0.0.1:8080", "127.0.0.1:8081", "127.0.0.1:8082"})
	require.NoError(t, err)
	return topo
}

func TestChecksum(t *testing.T) {
	// Known CRC-32 (IEEE) values. These pin the routing hash as a wire
	// contract: if they change, every deployed client disagrees with the
	// cluster about shard ownership.
	known := map[string]uint32{
		"/":                2043925204,
		"/t1.txt":          200283824,
		"/test1/":          570873076,
		"/test1/t1.txt":    4068437724,
		"/test1/test_dir/": 22952050,
	}
	for path, sum := range known {
		assert.Equal(t, sum, Checksum(path), "checksum of %q", path)
	}
}

func TestRoute(t *testing.T) {
	t.Run("IsDeterministic", func(t *testing.T) {
		router := NewRouter(threeNodeTopology(t))
		for _, path := range []string{"/", "/t1.txt", "/test1/", "/test1/t1.txt"} {
			first := router.Route(path)
			for range 100 {
				assert.Equal(t, first, router.Route(path))
			}
		}
	})

	t.Run("TrailingSeparatorChangesRoute", func(t *testing.T) {
		// "/a" and "/a/" are different namespace keys and hash
		// independently; nothing may strip the separator before routing.
		assert.NotEqual(t, Checksum("/a"), Checksum("/a/"))
	})

	t.Run("StaysInRange", func(t *testing.T) {
		router := NewRouter(threeNodeTopology(t))
		for i := range 1000 {
			id := router.Route(fmt.Sprintf("/gen/%d.dat", i))
			assert.Less(t, int(id), 3)
		}
	})

	t.Run("CoversAllShards", func(t *testing.T) {
		router := NewRouter(threeNodeTopology(t))
		hits := make(map[ShardID]int)
		for i := range 300 {
			hits[router.Route(fmt.Sprintf("/spread/%d", i))]++
		}
		require.Len(t, hits, 3)
		for id, n := range hits {
			assert.Greater(t, n, 0, "shard %d never selected", id)
		}
	})

	t.Run("SingleShardOwnsEverything", func(t *testing.T) {
		topo, err := NewTopology([]string{"127.0.0.1:9000"})
		require.NoError(t, err)
		router := NewRouter(topo)

		for _, path := range []string{"/", "/x", "/deep/tree/file"} {
			assert.Equal(t, ShardID(0), router.Route(path))
			assert.True(t, router.Owns(0, path))
		}
	})
}

func TestTopology(t *testing.T) {
	t.Run("RejectsEmptyNodeList", func(t *testing.T) {
		_, err := NewTopology(nil)
		assert.Error(t, err)
	})

	t.Run("RejectsAddressWithoutPort", func(t *testing.T) {
		_, err := NewTopology([]string{"127.0.0.1"})
		assert.Error(t, err)
	})

	t.Run("RejectsDuplicateAddress", func(t *testing.T) {
		_, err := NewTopology([]string{"h1:80", "h1:80"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "twice")
	})

	t.Run("AddrReturnsByShardID", func(t *testing.T) {
		topo := threeNodeTopology(t)
		addr, err := topo.Addr(2)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:8082", addr)

		_, err = topo.Addr(3)
		assert.Error(t, err)
	})

	t.Run("OthersExcludesSelf", func(t *testing.T) {
		topo := threeNodeTopology(t)
		assert.Equal(t, []ShardID{0, 2}, topo.Others(1))
		assert.Equal(t, []ShardID{1, 2}, topo.Others(0))
	})

	t.Run("IsImmutableAfterConstruction", func(t *testing.T) {
		nodes := []string{"127.0.0.1:8080", "127.0.0.1:8081"}
		topo, err := NewTopology(nodes)
		require.NoError(t, err)

		nodes[0] = "10.0.0.1:1"
		addr, err := topo.Addr(0)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:8080", addr)
	})
}
