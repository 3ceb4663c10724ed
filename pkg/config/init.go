package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a commented sample configuration to the default
// config path and returns that path. It refuses to overwrite an existing
// file unless force is set.
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()
	if err := InitConfigToPath(configPath, force); err != nil {
		return "", err
	}
	return configPath, nil
}

// InitConfigToPath writes a commented sample configuration to path,
// creating parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

type sampleSection struct {
	comment string
	value   any
}

// generateYAMLWithComments renders cfg section by section so each block
// carries an explanatory comment in the emitted file.
func generateYAMLWithComments(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# shardfs Configuration File\n")
	buf.WriteString("#\n")
	buf.WriteString("# Environment variables override file values: SHARDFS_CLUSTER_SHARD_ID=1\n")
	buf.WriteString("# overrides cluster.shard_id. Every node in a cluster must share the\n")
	buf.WriteString("# same nodes list, in the same order.\n")

	sections := []sampleSection{
		{
			comment: "Logging output. Level: DEBUG, INFO, WARN, ERROR. Format: text or json.",
			value:   struct{ Logging LoggingConfig }{cfg.Logging},
		},
		{
			comment: "Shard cluster. shard_id is this node's index into nodes.",
			value:   struct{ Cluster ClusterConfig }{cfg.Cluster},
		},
		{
			comment: "Network settings for this node's shard server.",
			value:   struct{ Server ServerConfig }{cfg.Server},
		},
		{
			comment: "Namespace store backend: memory or badger.",
			value:   struct{ Store StoreConfig }{cfg.Store},
		},
		{
			comment: "File payload backend: memory, fs, or s3.",
			value:   struct{ Content ContentConfig }{cfg.Content},
		},
	}

	for _, section := range sections {
		buf.WriteString("\n# ")
		buf.WriteString(section.comment)
		buf.WriteString("\n")

		out, err := yaml.Marshal(section.value)
		if err != nil {
			return nil, err
		}
		buf.Write(out)
	}

	return buf.Bytes(), nil
}
