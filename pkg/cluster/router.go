package cluster

import "hash/crc32"

// Checksum is the routing hash: CRC-32 (IEEE polynomial) over the exact
// UTF-8 bytes of the normalized path, including the trailing separator for
// directories. The algorithm is part of the wire contract: every client and
// server must compute it identically or requests silently land on the wrong
// shard. Changing it reshards the whole namespace.
func Checksum(path string) uint32 {
	return crc32.ChecksumIEEE([]byte(path))
}

// Router maps paths to their owning shard. Pure and deterministic for a
// fixed topology; no state beyond the shard count.
type Router struct {
	topo *Topology
}

func NewRouter(topo *Topology) *Router {
	return &Router{topo: topo}
}

// Route returns the shard that owns path.
func (r *Router) Route(path string) ShardID {
	return ShardID(Checksum(path) % uint32(r.topo.Size()))
}

// Owns reports whether self is the owning shard for path.
func (r *Router) Owns(self ShardID, path string) bool {
	return r.Route(path) == self
}

// Topology returns the topology this router was built from.
func (r *Router) Topology() *Topology {
	return r.topo
}
