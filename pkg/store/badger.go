package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// BadgerOptions configures a Badger-backed store.
type BadgerOptions struct {
	// Path is the directory for database files. Required unless
	// InMemory is set.
	Path string

	// Namespace prefixes every key. Must not contain ':'.
	Namespace string

	// InMemory keeps all data in RAM. Useful for tests.
	InMemory bool

	// SyncWrites forces fsync on every write.
	SyncWrites bool

	// Logger receives Badger's internal log output. Nil disables it.
	Logger *slog.Logger
}

// Badger is a Store backed by an embedded Badger key-value database.
// Entries live under "namespace:thread:key" byte keys, so listing a
// thread is a prefix scan.
type Badger struct {
	db        *badger.DB
	namespace string

	mu     sync.RWMutex
	closed bool
}

var _ Store = (*Badger)(nil)

// badgerLogger adapts slog to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens a Badger store with the given options, creating the
// directory for persistent databases when missing.
func OpenBadger(opts BadgerOptions) (*Badger, error) {
	if strings.Contains(opts.Namespace, ":") {
		return nil, fmt.Errorf("namespace %q must not contain ':'", opts.Namespace)
	}
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("path is required for a persistent database")
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithSyncWrites(opts.SyncWrites)
	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &Badger{db: db, namespace: opts.Namespace}, nil
}

func (b *Badger) key(thread, key string) []byte {
	return []byte(b.namespace + ":" + thread + ":" + key)
}

func (b *Badger) prefix(thread string) []byte {
	return []byte(b.namespace + ":" + thread + ":")
}

// guard returns ErrStoreClosed after Close, otherwise the context error.
func (b *Badger) guard(ctx context.Context, op, thread string) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return opError(op, thread, ErrStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return opError(op, thread, err)
	}
	return nil
}

func (b *Badger) Get(ctx context.Context, thread, key, def string) (string, error) {
	if err := b.guard(ctx, "get", thread); err != nil {
		return def, err
	}

	value := def
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(thread, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return def, opError("get", thread, err)
	}
	return value, nil
}

func (b *Badger) Put(ctx context.Context, thread, key, value string) error {
	if err := b.guard(ctx, "put", thread); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key(thread, key), []byte(value))
	})
	return opError("put", thread, err)
}

func (b *Badger) Delete(ctx context.Context, thread, key string) error {
	if err := b.guard(ctx, "delete", thread); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(b.key(thread, key))
	})
	return opError("delete", thread, err)
}

func (b *Badger) ListKeys(ctx context.Context, thread string) ([]string, error) {
	if err := b.guard(ctx, "list_keys", thread); err != nil {
		return nil, err
	}

	prefix := b.prefix(thread)
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, opError("list_keys", thread, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *Badger) BatchPut(ctx context.Context, thread string, values map[string]string) error {
	if err := b.guard(ctx, "batch_put", thread); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		for k, v := range values {
			if err := txn.Set(b.key(thread, k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	return opError("batch_put", thread, err)
}

// Close closes the database. Safe to call more than once.
func (b *Badger) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}
