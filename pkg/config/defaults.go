package config

import (
	"strings"
	"time"

	"github.com/shardfs/shardfs/pkg/wire"
)

// Default cluster: a three-node loopback deployment. Single-node
// development overrides nodes with one entry.
var defaultNodes = []string{
	"127.0.0.1:8080",
	"127.0.0.1:8081",
	"127.0.0.1:8082",
}

// ApplyDefaults fills unset fields with defaults. Explicit values are
// preserved; only zero values are replaced.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyClusterDefaults(&cfg.Cluster)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyContentDefaults(&cfg.Content)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
}

func applyClusterDefaults(cfg *ClusterConfig) {
	if len(cfg.Nodes) == 0 {
		cfg.Nodes = append([]string(nil), defaultNodes...)
	}
	if cfg.PeerTimeout == 0 {
		cfg.PeerTimeout = 2 * time.Second
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	// BindAddr stays empty: the server binds the node's topology entry.

	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = wire.DefaultMaxMessageSize
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["path"]; !ok {
		cfg.Badger["path"] = "/var/lib/shardfs/namespace"
	}
}

func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.FS == nil {
		cfg.FS = make(map[string]any)
	}
	if _, ok := cfg.FS["path"]; !ok {
		cfg.FS["path"] = "/var/lib/shardfs/content"
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
}

// GetDefaultConfig returns a Config with every default applied, used for
// sample-config generation and tests.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
