// Package store persists per-thread traveler preferences across
// conversation turns.
//
// The Store interface exposes flat string key-value access partitioned
// by thread ID: Get, Put, Delete, ListKeys, and BatchPut, all context
// aware. Three backends implement it:
//
//   - Memory: map behind an RWMutex, the default for tests.
//   - SQLite: embedded database via modernc.org/sqlite with a
//     (namespace, thread_id, key) primary key.
//   - Badger: embedded key-value database via dgraph-io/badger with
//     "namespace:thread:key" byte keys and an in-memory option.
//
// Distinct thread IDs never observe each other's data, and a store's
// namespace is fixed at construction so separate applications can share
// backing storage. Wrap any backend with Instrument to emit
// per-operation metrics.
package store
