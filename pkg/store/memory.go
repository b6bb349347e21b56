package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store backed by nested maps. It is the
// default backend for tests and single-process runs; data is lost on
// Close.
type Memory struct {
	mu      sync.RWMutex
	threads map[string]map[string]string
	closed  bool
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{threads: make(map[string]map[string]string)}
}

func (m *Memory) Get(ctx context.Context, thread, key, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return def, opError("get", thread, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return def, opError("get", thread, ErrStoreClosed)
	}

	if v, ok := m.threads[thread][key]; ok {
		return v, nil
	}
	return def, nil
}

func (m *Memory) Put(ctx context.Context, thread, key, value string) error {
	if err := ctx.Err(); err != nil {
		return opError("put", thread, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return opError("put", thread, ErrStoreClosed)
	}

	t, ok := m.threads[thread]
	if !ok {
		t = make(map[string]string)
		m.threads[thread] = t
	}
	t[key] = value
	return nil
}

func (m *Memory) Delete(ctx context.Context, thread, key string) error {
	if err := ctx.Err(); err != nil {
		return opError("delete", thread, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return opError("delete", thread, ErrStoreClosed)
	}

	delete(m.threads[thread], key)
	return nil
}

func (m *Memory) ListKeys(ctx context.Context, thread string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, opError("list_keys", thread, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, opError("list_keys", thread, ErrStoreClosed)
	}

	keys := make([]string, 0, len(m.threads[thread]))
	for k := range m.threads[thread] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) BatchPut(ctx context.Context, thread string, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return opError("batch_put", thread, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return opError("batch_put", thread, ErrStoreClosed)
	}

	t, ok := m.threads[thread]
	if !ok {
		t = make(map[string]string, len(values))
		m.threads[thread] = t
	}
	for k, v := range values {
		t[k] = v
	}
	return nil
}

// Close marks the store closed. Safe to call more than once.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.threads = nil
	return nil
}
