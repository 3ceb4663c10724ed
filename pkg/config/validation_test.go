package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := GetDefaultConfig()
	return cfg
}

func TestValidate_ShardIDOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Cluster.ShardID = uint32(len(cfg.Cluster.Nodes))

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for out-of-range shard_id")
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Errorf("Expected 'out of range' error, got: %v", err)
	}
}

func TestValidate_DuplicateNodes(t *testing.T) {
	cfg := validConfig()
	cfg.Cluster.Nodes = []string{"10.0.0.1:8080", "10.0.0.1:8080"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for duplicate node addresses")
	}
	if !strings.Contains(err.Error(), "share address") {
		t.Errorf("Expected duplicate-address error, got: %v", err)
	}
}

func TestValidate_EmptyNodeList(t *testing.T) {
	cfg := validConfig()
	cfg.Cluster.Nodes = nil

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for empty node list")
	}
}

func TestValidate_BadNodeAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Cluster.Nodes = []string{"not-an-address"}

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for node address without port")
	}
}

func TestValidate_UnknownStoreType(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Type = "etcd"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for unknown store type")
	}
}

func TestValidate_BadgerRequiresPath(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Type = "badger"
	cfg.Store.Badger = map[string]any{}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for badger store without path")
	}
	if !strings.Contains(err.Error(), "path") {
		t.Errorf("Expected path error, got: %v", err)
	}
}

func TestValidate_BadgerInMemoryNeedsNoPath(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Type = "badger"
	cfg.Store.Badger = map[string]any{"in_memory": true}

	if err := Validate(cfg); err != nil {
		t.Fatalf("In-memory badger should not require a path: %v", err)
	}
}

func TestValidate_S3RequiresBucketAndRegion(t *testing.T) {
	cfg := validConfig()
	cfg.Content.Type = "s3"
	cfg.Content.S3 = map[string]any{"region": "us-east-1"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for s3 content store without bucket")
	}
	if !strings.Contains(err.Error(), "bucket") {
		t.Errorf("Expected bucket error, got: %v", err)
	}

	cfg.Content.S3 = map[string]any{"bucket": "my-bucket"}
	err = Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for s3 content store without region")
	}
	if !strings.Contains(err.Error(), "region") {
		t.Errorf("Expected region error, got: %v", err)
	}

	cfg.Content.S3 = map[string]any{"bucket": "my-bucket", "region": "us-east-1"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Complete s3 config should validate: %v", err)
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "VERBOSE"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for unknown log level")
	}
}
