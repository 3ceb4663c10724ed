package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration with struct tags plus the cross-field
// rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	// The shard id indexes the node list; an out-of-range id would route
	// every path to nonexistent peers.
	if int(cfg.Cluster.ShardID) >= len(cfg.Cluster.Nodes) {
		return fmt.Errorf("cluster: shard_id %d out of range for %d node(s)",
			cfg.Cluster.ShardID, len(cfg.Cluster.Nodes))
	}

	seen := make(map[string]int, len(cfg.Cluster.Nodes))
	for i, addr := range cfg.Cluster.Nodes {
		if prev, dup := seen[addr]; dup {
			return fmt.Errorf("cluster: nodes[%d] and nodes[%d] share address %q", prev, i, addr)
		}
		seen[addr] = i
	}

	if cfg.Store.Type == "badger" {
		path, _ := cfg.Store.Badger["path"].(string)
		inMemory, _ := cfg.Store.Badger["in_memory"].(bool)
		if path == "" && !inMemory {
			return fmt.Errorf("store.badger: path is required")
		}
	}

	if cfg.Content.Type == "fs" {
		if path, _ := cfg.Content.FS["path"].(string); path == "" {
			return fmt.Errorf("content.fs: path is required")
		}
	}

	if cfg.Content.Type == "s3" {
		if bucket, _ := cfg.Content.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("content.s3: bucket is required")
		}
		if region, _ := cfg.Content.S3["region"].(string); region == "" {
			return fmt.Errorf("content.s3: region is required")
		}
	}

	return nil
}

// formatValidationError converts validator errors into readable messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
