// Package cluster models the fixed shard cluster: the ordered node list
// shared by every participant and the pure routing function that assigns
// each path to its owning shard.
package cluster

import (
	"fmt"
	"net"
)

// ShardID identifies one shard, in [0, Size).
type ShardID uint32

// Topology is the immutable ordered list of shard node addresses. The slice
// index is the ShardID, so the node order is part of the cluster contract
// and must be identical in every client and server configuration.
type Topology struct {
	nodes []string
}

// NewTopology validates and freezes the node list.
func NewTopology(nodes []string) (*Topology, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("topology needs at least one node")
	}

	seen := make(map[string]struct{}, len(nodes))
	for i, addr := range nodes {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("node %d address %q: %w", i, addr, err)
		}
		if host == "" || port == "" {
			return nil, fmt.Errorf("node %d address %q: missing host or port", i, addr)
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("node %d address %q appears twice", i, addr)
		}
		seen[addr] = struct{}{}
	}

	frozen := make([]string, len(nodes))
	copy(frozen, nodes)
	return &Topology{nodes: frozen}, nil
}

// Size returns the number of shards.
func (t *Topology) Size() int {
	return len(t.nodes)
}

// Addr returns the address of the given shard.
func (t *Topology) Addr(id ShardID) (string, error) {
	if int(id) >= len(t.nodes) {
		return "", fmt.Errorf("shard %d out of range [0, %d)", id, len(t.nodes))
	}
	return t.nodes[id], nil
}

// Others returns every shard id except self, in ascending order. Used by
// scatter-gather fan-out.
func (t *Topology) Others(self ShardID) []ShardID {
	others := make([]ShardID, 0, len(t.nodes)-1)
	for i := range t.nodes {
		if ShardID(i) != self {
			others = append(others, ShardID(i))
		}
	}
	return others
}

// Contains reports whether id addresses a shard in this topology.
func (t *Topology) Contains(id ShardID) bool {
	return int(id) < len(t.nodes)
}
