// Package config loads, validates, and materializes the shardfs daemon
// configuration.
//
// Configuration sources, highest precedence first:
//
//  1. Environment variables (SHARDFS_*, dots become underscores)
//  2. Configuration file (YAML)
//  3. Defaults
//
// Store selection follows a type-plus-options pattern: the Type field picks
// the implementation and only the matching options map is decoded, so
// adding a backend never touches unrelated configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete daemon configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`

	// Cluster is the shared shard topology plus this node's identity.
	Cluster ClusterConfig `mapstructure:"cluster" yaml:"cluster" json:"cluster"`

	// Server holds the network settings of this node's shard server.
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Store selects and configures the namespace store backend.
	Store StoreConfig `mapstructure:"store" yaml:"store" json:"store"`

	// Content selects and configures the file payload backend.
	Content ContentConfig `mapstructure:"content" yaml:"content" json:"content"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum level to emit: DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" yaml:"level" json:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is the output encoding: text or json.
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"required,oneof=text json"`
}

// ClusterConfig describes the fixed shard cluster.
//
// Nodes is ordered and the order is part of the cluster contract: the slice
// index is the shard id, and every client and server must agree on it.
// Changing the node count reshards the whole namespace and is not supported
// at runtime.
type ClusterConfig struct {
	// ShardID is this node's position in Nodes.
	ShardID uint32 `mapstructure:"shard_id" yaml:"shard_id" json:"shard_id"`

	// Nodes lists every shard's advertised host:port, index = shard id.
	Nodes []string `mapstructure:"nodes" yaml:"nodes" json:"nodes" validate:"required,min=1,dive,hostname_port"`

	// PeerTimeout bounds internal peer queries issued during cross-shard
	// validation.
	PeerTimeout time.Duration `mapstructure:"peer_timeout" yaml:"peer_timeout" json:"peer_timeout" validate:"min=0"`
}

// ServerConfig holds this node's shard server network settings.
type ServerConfig struct {
	// BindAddr overrides the listen address. Empty means listen on the
	// node's own topology entry.
	BindAddr string `mapstructure:"bind_addr" yaml:"bind_addr" json:"bind_addr,omitempty"`

	// MaxConnections caps concurrent client connections. 0 = unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" json:"max_connections" validate:"min=0"`

	// MaxMessageSize caps request and response frames in bytes.
	MaxMessageSize uint32 `mapstructure:"max_message_size" yaml:"max_message_size" json:"max_message_size"`

	// AcceptRate limits accepted connections per second. 0 = unlimited.
	AcceptRate uint `mapstructure:"accept_rate" yaml:"accept_rate" json:"accept_rate"`

	// AcceptBurst is the burst capacity for AcceptRate.
	AcceptBurst uint `mapstructure:"accept_burst" yaml:"accept_burst" json:"accept_burst"`

	// ReadTimeout bounds reading one request frame.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing one response frame.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout" validate:"min=0"`

	// IdleTimeout closes connections idle between requests.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout bounds the graceful drain on shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"required,gt=0"`
}

// StoreConfig selects the namespace store backend.
type StoreConfig struct {
	// Type picks the implementation: memory or badger.
	Type string `mapstructure:"type" yaml:"type" json:"type" validate:"required,oneof=memory badger"`

	// Memory holds memory-store options. Used when Type = "memory".
	Memory map[string]any `mapstructure:"memory" yaml:"memory" json:"memory,omitempty"`

	// Badger holds BadgerDB options. Used when Type = "badger".
	Badger map[string]any `mapstructure:"badger" yaml:"badger" json:"badger,omitempty"`
}

// ContentConfig selects the file payload backend.
type ContentConfig struct {
	// Type picks the implementation: memory, fs, or s3.
	Type string `mapstructure:"type" yaml:"type" json:"type" validate:"required,oneof=memory fs s3"`

	// Memory holds memory-content options. Used when Type = "memory".
	Memory map[string]any `mapstructure:"memory" yaml:"memory" json:"memory,omitempty"`

	// FS holds local-filesystem options. Used when Type = "fs".
	FS map[string]any `mapstructure:"fs" yaml:"fs" json:"fs,omitempty"`

	// S3 holds S3 options. Used when Type = "s3".
	S3 map[string]any `mapstructure:"s3" yaml:"s3" json:"s3,omitempty"`
}

// Load reads configuration from file, environment, and defaults.
//
// A missing config file is fine; defaults plus environment produce a
// runnable single-purpose configuration. A present but unreadable or
// invalid file is an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment overrides and the config file search.
func setupViper(v *viper.Viper, configPath string) {
	// SHARDFS_CLUSTER_SHARD_ID=1 overrides cluster.shard_id.
	v.SetEnvPrefix("SHARDFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/shardfs, falling back to
// ~/.config/shardfs, then to the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "shardfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "shardfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
