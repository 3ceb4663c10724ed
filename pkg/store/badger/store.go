// Package badger provides the persistent NamespaceStore backed by BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/shardfs/shardfs/internal/logger"
	"github.com/shardfs/shardfs/pkg/namespace"
)

// Store implements store.NamespaceStore on an embedded BadgerDB instance,
// one database directory per shard. Badger transactions provide the
// per-shard serialization the engine relies on: Create and Delete observe
// and mutate inside a single Update transaction, so racing requests that
// both survive cross-shard validation still commit in some serial order.
type Store struct {
	db *badger.DB
}

// Config carries the Badger tuning knobs exposed through the store factory.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string `mapstructure:"path"`

	// InMemory runs Badger without any on-disk state. Used by tests.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites forces an fsync per commit. Durability over throughput.
	SyncWrites bool `mapstructure:"sync_writes"`

	// BlockCacheSizeMB and IndexCacheSizeMB size Badger's caches.
	// Zero selects the defaults below.
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// New opens (or creates) the shard database and seeds the root entry when
// ownsRoot is set and no root is present yet, so reopening an existing
// database never resets root attributes.
func New(ctx context.Context, cfg Config, ownsRoot bool) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger store requires a path")
	}

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := cfg.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithCompression(options.None).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20).
		WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}

	s := &Store{db: db}
	if ownsRoot {
		if err := s.seedRoot(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) seedRoot() error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(entryKey(namespace.Root))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("probe root entry: %w", err)
		}

		data, err := encodeEntry(namespace.NewEntry(namespace.Root, 0o755))
		if err != nil {
			return err
		}
		return txn.Set(entryKey(namespace.Root), data)
	})
}

func (s *Store) Create(ctx context.Context, entry namespace.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(entryKey(entry.Path))
		if err == nil {
			return namespace.NewAlreadyExists(entry.Path)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return namespace.NewInternal(err.Error(), entry.Path)
		}

		data, err := encodeEntry(entry)
		if err != nil {
			return namespace.NewInternal(err.Error(), entry.Path)
		}
		return txn.Set(entryKey(entry.Path), data)
	})
}

func (s *Store) Delete(ctx context.Context, path string, kind namespace.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, path)
		if err != nil {
			return err
		}
		if entry.Kind != kind {
			return namespace.NewWrongType(path, kind)
		}
		return txn.Delete(entryKey(path))
	})
}

func (s *Store) Lookup(ctx context.Context, path string) (namespace.Entry, error) {
	if err := ctx.Err(); err != nil {
		return namespace.Entry{}, err
	}

	var entry namespace.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = getEntry(txn, path)
		return err
	})
	return entry, err
}

func (s *Store) ListChildren(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = descendantScanPrefix(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			path := pathFromKey(it.Item().Key())
			if namespace.IsImmediateChild(prefix, path) {
				names = append(names, namespace.BaseName(path))
			}
		}
		return nil
	})
	if err != nil {
		return nil, namespace.NewInternal(err.Error(), prefix)
	}

	sort.Strings(names)
	return names, nil
}

func (s *Store) HasChild(ctx context.Context, prefix string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = descendantScanPrefix(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if namespace.IsImmediateChild(prefix, pathFromKey(it.Item().Key())) {
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, namespace.NewInternal(err.Error(), prefix)
	}
	return found, nil
}

func (s *Store) UpdateAttr(ctx context.Context, path string, update func(*namespace.FileAttr)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, path)
		if err != nil {
			return err
		}

		update(&entry.Attr)
		data, err := encodeEntry(entry)
		if err != nil {
			return namespace.NewInternal(err.Error(), path)
		}
		return txn.Set(entryKey(path), data)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func getEntry(txn *badger.Txn, path string) (namespace.Entry, error) {
	item, err := txn.Get(entryKey(path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return namespace.Entry{}, namespace.NewNotFound(path)
	}
	if err != nil {
		return namespace.Entry{}, namespace.NewInternal(err.Error(), path)
	}

	var entry namespace.Entry
	err = item.Value(func(val []byte) error {
		var decodeErr error
		entry, decodeErr = decodeEntry(val)
		return decodeErr
	})
	if err != nil {
		return namespace.Entry{}, namespace.NewInternal(err.Error(), path)
	}
	return entry, nil
}

// badgerLogger routes Badger's internal logging through the process logger
// at reduced severity; Badger is chatty at INFO.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, v ...any)   { logger.Error("badger: "+format, v...) }
func (badgerLogger) Warningf(format string, v ...any) { logger.Warn("badger: "+format, v...) }
func (badgerLogger) Infof(format string, v ...any)    { logger.Debug("badger: "+format, v...) }
func (badgerLogger) Debugf(format string, v ...any)   { logger.Debug("badger: "+format, v...) }
