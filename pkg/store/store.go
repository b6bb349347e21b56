package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripgraph/pkg/graph/observability"
)

// ErrStoreClosed is returned by every operation on a closed store.
var ErrStoreClosed = errors.New("store is closed")

// Store persists per-thread preference values. Values are opaque
// strings with overwrite semantics; writes to the same key are
// last-write-wins and there are no cross-key transactions. A store
// carries a single namespace fixed at construction, so two stores with
// different namespaces never see each other's data even on shared
// backing storage.
type Store interface {
	// Get returns the value for key in the thread, or def when absent.
	Get(ctx context.Context, thread, key, def string) (string, error)

	// Put writes the value for key in the thread, overwriting any
	// previous value.
	Put(ctx context.Context, thread, key, value string) error

	// Delete removes key from the thread. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, thread, key string) error

	// ListKeys returns the keys present in the thread, sorted.
	ListKeys(ctx context.Context, thread string) ([]string, error)

	// BatchPut writes all entries for the thread. Backends apply the
	// batch atomically where the engine supports it.
	BatchPut(ctx context.Context, thread string, values map[string]string) error

	// Close releases backend resources. Further operations return
	// ErrStoreClosed.
	Close() error
}

// StoreError wraps a backend failure with the operation and thread
// that produced it.
type StoreError struct {
	Op     string
	Thread string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s on thread %q: %v", e.Op, e.Thread, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// opError wraps err unless it is nil or already a StoreError.
func opError(op, thread string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Thread: thread, Err: err}
}

// instrumented decorates a Store with per-operation metrics.
type instrumented struct {
	inner   Store
	metrics observability.MetricsRecorder
}

// Instrument wraps s so every operation is recorded on rec. A nil
// recorder returns s unchanged.
func Instrument(s Store, rec observability.MetricsRecorder) Store {
	if rec == nil {
		return s
	}
	return &instrumented{inner: s, metrics: rec}
}

func (s *instrumented) record(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.RecordStoreOp(ctx, op, time.Since(start), err)
}

func (s *instrumented) Get(ctx context.Context, thread, key, def string) (string, error) {
	start := time.Now()
	v, err := s.inner.Get(ctx, thread, key, def)
	s.record(ctx, "get", start, err)
	return v, err
}

func (s *instrumented) Put(ctx context.Context, thread, key, value string) error {
	start := time.Now()
	err := s.inner.Put(ctx, thread, key, value)
	s.record(ctx, "put", start, err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, thread, key string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, thread, key)
	s.record(ctx, "delete", start, err)
	return err
}

func (s *instrumented) ListKeys(ctx context.Context, thread string) ([]string, error) {
	start := time.Now()
	keys, err := s.inner.ListKeys(ctx, thread)
	s.record(ctx, "list_keys", start, err)
	return keys, err
}

func (s *instrumented) BatchPut(ctx context.Context, thread string, values map[string]string) error {
	start := time.Now()
	err := s.inner.BatchPut(ctx, thread, values)
	s.record(ctx, "batch_put", start, err)
	return err
}

func (s *instrumented) Close() error {
	return s.inner.Close()
}
