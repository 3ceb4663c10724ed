package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/shardfs/shardfs/internal/logger"
	"github.com/shardfs/shardfs/pkg/cluster"
	"github.com/shardfs/shardfs/pkg/content"
	contentfs "github.com/shardfs/shardfs/pkg/content/fs"
	contentmem "github.com/shardfs/shardfs/pkg/content/memory"
	contents3 "github.com/shardfs/shardfs/pkg/content/s3"
	"github.com/shardfs/shardfs/pkg/namespace"
	"github.com/shardfs/shardfs/pkg/store"
	storebadger "github.com/shardfs/shardfs/pkg/store/badger"
	storemem "github.com/shardfs/shardfs/pkg/store/memory"
)

// BuildTopology freezes the configured node list into the immutable
// topology shared by router, server, and client.
func BuildTopology(cfg *ClusterConfig) (*cluster.Topology, error) {
	topo, err := cluster.NewTopology(cfg.Nodes)
	if err != nil {
		return nil, fmt.Errorf("cluster topology: %w", err)
	}
	return topo, nil
}

// CreateNamespaceStore builds the namespace store selected by cfg.Type.
//
// ownsRoot must be true exactly on the shard the router assigns "/" to;
// the factory threads it through so root seeding happens on one shard only.
func CreateNamespaceStore(ctx context.Context, cfg *StoreConfig, ownsRoot bool) (store.NamespaceStore, error) {
	switch cfg.Type {
	case "memory":
		return storemem.New(ownsRoot), nil
	case "badger":
		return createBadgerStore(ctx, cfg.Badger, ownsRoot)
	default:
		return nil, fmt.Errorf("unknown namespace store type: %q (supported: memory, badger)", cfg.Type)
	}
}

func createBadgerStore(ctx context.Context, options map[string]any, ownsRoot bool) (store.NamespaceStore, error) {
	var storeCfg storebadger.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &storeCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger store options: %w", err)
	}

	s, err := storebadger.New(ctx, storeCfg, ownsRoot)
	if err != nil {
		return nil, err
	}
	logger.Info("badger namespace store opened at %q", storeCfg.Path)
	return s, nil
}

// CreateContentStore builds the content store selected by cfg.Type.
func CreateContentStore(ctx context.Context, cfg *ContentConfig) (content.Store, error) {
	switch cfg.Type {
	case "memory":
		return contentmem.New(), nil
	case "fs":
		path, _ := cfg.FS["path"].(string)
		s, err := contentfs.New(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "s3":
		return createS3ContentStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown content store type: %q (supported: memory, fs, s3)", cfg.Type)
	}
}

func createS3ContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	type s3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg s3Options
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode s3 content store options: %w", err)
	}
	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("s3 content store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("s3 content store: region is required")
	}

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(storeCfg.Region),
	}

	// Custom endpoint supports S3-compatible targets (MinIO, Localstack).
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // BaseEndpoint migration tracked upstream
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		provider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID, storeCfg.SecretAccessKey, "")
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(provider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	s, err := contents3.New(client, storeCfg.Bucket, storeCfg.KeyPrefix)
	if err != nil {
		return nil, err
	}

	logger.Info("s3 content store initialized: bucket=%s region=%s prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)
	return s, nil
}

// OwnsRoot reports whether the configured shard is the owner of the root
// directory under the configured topology.
func OwnsRoot(cfg *ClusterConfig) (bool, error) {
	topo, err := BuildTopology(cfg)
	if err != nil {
		return false, err
	}
	router := cluster.NewRouter(topo)
	return router.Route(namespace.Root) == cluster.ShardID(cfg.ShardID), nil
}
