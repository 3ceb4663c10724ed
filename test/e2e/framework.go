// Package e2e drives a complete multi-shard cluster over real TCP
// connections: every shard runs the production server, engine, and stores,
// and the tests speak to the cluster through the routing client.
package e2e

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shardfs/shardfs/pkg/client"
	"github.com/shardfs/shardfs/pkg/cluster"
	contentmem "github.com/shardfs/shardfs/pkg/content/memory"
	"github.com/shardfs/shardfs/pkg/engine"
	"github.com/shardfs/shardfs/pkg/namespace"
	"github.com/shardfs/shardfs/pkg/server"
	storemem "github.com/shardfs/shardfs/pkg/store/memory"
)

// Cluster is a running multi-shard deployment on loopback ports.
type Cluster struct {
	T      *testing.T
	Topo   *cluster.Topology
	Router *cluster.Router
	Client *client.Client

	servers []*server.Server
	cancel  context.CancelFunc
	done    []chan error
}

// StartCluster boots a cluster of size shards. Everything is torn down via
// t.Cleanup in reverse order: client first, then servers.
func StartCluster(t *testing.T, size int) *Cluster {
	t.Helper()

	addrs := make([]string, size)
	for i := range addrs {
		addrs[i] = freePort(t)
	}
	topo, err := cluster.NewTopology(addrs)
	require.NoError(t, err)
	router := cluster.NewRouter(topo)

	ctx, cancel := context.WithCancel(context.Background())

	c := &Cluster{
		T:      t,
		Topo:   topo,
		Router: router,
		cancel: cancel,
	}

	for shard := range size {
		self := cluster.ShardID(shard)
		ownsRoot := router.Route(namespace.Root) == self

		peers := client.New(router, client.Options{CallTimeout: 2 * time.Second})
		t.Cleanup(func() { _ = peers.Close() })

		eng, err := engine.New(engine.Config{
			Self:        self,
			Router:      router,
			Store:       storemem.New(ownsRoot),
			Content:     contentmem.New(),
			Peers:       peers,
			PeerTimeout: time.Second,
		})
		require.NoError(t, err)

		srv, err := server.New(server.Config{
			Addr:            addrs[shard],
			ShutdownTimeout: time.Second,
		}, eng)
		require.NoError(t, err)
		require.NoError(t, srv.Listen())

		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx) }()

		c.servers = append(c.servers, srv)
		c.done = append(c.done, done)
	}

	t.Cleanup(c.shutdown)

	c.Client = client.New(router, client.Options{CallTimeout: 2 * time.Second})
	t.Cleanup(func() { _ = c.Client.Close() })

	return c
}

func (c *Cluster) shutdown() {
	c.cancel()
	for shard, done := range c.done {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			c.T.Errorf("shard %d did not shut down", shard)
		}
	}
}

// StopShard stops one shard's server so tests can exercise partial-cluster
// behavior. The rest of the cluster keeps running. Idle client connections
// to the shard are force-closed, so the drain result is ignored.
func (c *Cluster) StopShard(shard cluster.ShardID) {
	c.T.Helper()
	_ = c.servers[shard].Stop()
	select {
	case <-c.done[shard]:
		// The channel is one-shot; close it so the cluster-wide shutdown
		// receive doesn't block on an already-stopped shard.
		close(c.done[shard])
	case <-time.After(5 * time.Second):
		c.T.Fatalf("shard %d did not stop", shard)
	}
}

// ShardFor reports which shard owns path under the cluster's topology, so
// tests can place paths deliberately instead of hardcoding hash results.
func (c *Cluster) ShardFor(path string) cluster.ShardID {
	return c.Router.Route(path)
}

// PathOnShard finds a path of the given shape owned by the target shard by
// varying a numeric suffix. The shape must contain exactly one %d verb.
func (c *Cluster) PathOnShard(target cluster.ShardID, shape string) string {
	c.T.Helper()
	for i := range 4096 {
		path := fmt.Sprintf(shape, i)
		if c.Router.Route(path) == target {
			return path
		}
	}
	c.T.Fatalf("no path of shape %q routes to shard %d", shape, target)
	return ""
}

// requireCode asserts that err is a namespace error carrying the given code.
func requireCode(t *testing.T, code namespace.ErrorCode, err error) {
	t.Helper()
	var nsErr *namespace.Error
	require.ErrorAs(t, err, &nsErr)
	require.Equal(t, code, nsErr.Code)
}

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}
