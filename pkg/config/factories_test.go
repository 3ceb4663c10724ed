package config

import (
	"context"
	"testing"

	"github.com/shardfs/shardfs/pkg/namespace"
)

func TestBuildTopology(t *testing.T) {
	topo, err := BuildTopology(&ClusterConfig{
		Nodes: []string{"10.0.0.1:8080", "10.0.0.2:8080"},
	})
	if err != nil {
		t.Fatalf("BuildTopology failed: %v", err)
	}
	if topo.Size() != 2 {
		t.Errorf("Expected 2 shards, got %d", topo.Size())
	}
}

func TestBuildTopology_Invalid(t *testing.T) {
	if _, err := BuildTopology(&ClusterConfig{Nodes: []string{"nope"}}); err == nil {
		t.Fatal("Expected error for malformed node address")
	}
}

func TestCreateNamespaceStore_Memory(t *testing.T) {
	ctx := context.Background()
	s, err := CreateNamespaceStore(ctx, &StoreConfig{Type: "memory"}, true)
	if err != nil {
		t.Fatalf("CreateNamespaceStore failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	entry, err := s.Lookup(ctx, "/")
	if err != nil {
		t.Fatalf("Root lookup failed: %v", err)
	}
	if entry.Kind != namespace.KindDirectory {
		t.Fatalf("Expected seeded root directory, got kind %v", entry.Kind)
	}
}

func TestCreateNamespaceStore_MemoryWithoutRoot(t *testing.T) {
	ctx := context.Background()
	s, err := CreateNamespaceStore(ctx, &StoreConfig{Type: "memory"}, false)
	if err != nil {
		t.Fatalf("CreateNamespaceStore failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := s.Lookup(ctx, "/"); err == nil {
		t.Fatal("Non-root-owning shard must not seed the root")
	}
}

func TestCreateNamespaceStore_Badger(t *testing.T) {
	ctx := context.Background()
	s, err := CreateNamespaceStore(ctx, &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{"path": t.TempDir()},
	}, true)
	if err != nil {
		t.Fatalf("CreateNamespaceStore failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := s.Lookup(ctx, "/"); err != nil {
		t.Fatalf("Root lookup failed: %v", err)
	}
}

func TestCreateNamespaceStore_UnknownType(t *testing.T) {
	if _, err := CreateNamespaceStore(context.Background(), &StoreConfig{Type: "etcd"}, true); err == nil {
		t.Fatal("Expected error for unknown store type")
	}
}

func TestCreateContentStore_Memory(t *testing.T) {
	c, err := CreateContentStore(context.Background(), &ContentConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("CreateContentStore failed: %v", err)
	}
	defer func() { _ = c.Close() }()
}

func TestCreateContentStore_FS(t *testing.T) {
	c, err := CreateContentStore(context.Background(), &ContentConfig{
		Type: "fs",
		FS:   map[string]any{"path": t.TempDir()},
	})
	if err != nil {
		t.Fatalf("CreateContentStore failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Write(context.Background(), "/f", []byte("x")); err != nil {
		t.Fatalf("Write through fs store failed: %v", err)
	}
}

func TestCreateContentStore_S3MissingBucket(t *testing.T) {
	_, err := CreateContentStore(context.Background(), &ContentConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	})
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
}

func TestOwnsRoot_SingleNode(t *testing.T) {
	owns, err := OwnsRoot(&ClusterConfig{ShardID: 0, Nodes: []string{"127.0.0.1:8080"}})
	if err != nil {
		t.Fatalf("OwnsRoot failed: %v", err)
	}
	if !owns {
		t.Error("Single-node cluster must own the root")
	}
}
