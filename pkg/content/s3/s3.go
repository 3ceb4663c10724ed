// Package s3 implements the content store on an S3 (or S3-compatible)
// bucket. Objects are keyed by namespace path under an optional prefix, so
// a bucket can be shared between shards or environments.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/shardfs/shardfs/pkg/content"
)

// Store implements content.Store against a bucket. The *s3.Client is
// injected by the store factory, which owns region, endpoint, credential,
// and retry configuration.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

func New(client *s3.Client, bucket, keyPrefix string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{client: client, bucket: bucket, keyPrefix: keyPrefix}, nil
}

// objectKey maps a namespace path to its object key. The leading slash is
// dropped so keys look like conventional S3 paths.
func (s *Store) objectKey(path string) string {
	key := strings.TrimPrefix(path, "/")
	if s.keyPrefix != "" {
		return s.keyPrefix + key
	}
	return key
}

func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("content %s: %w", path, content.ErrNotFound)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// S3 DeleteObject succeeds for missing keys, which matches the store
	// contract.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
