// Package store provides the durable local store for the offline engine:
// a small collection/key/value abstraction with secondary indexes that
// survives process restarts. Two backends conform to the same interface,
// a SQLite-backed one and a flat-file fallback; callers never depend on
// which is active.
package store

import (
	"context"
	"errors"
)

// Logical collections used by the engine.
const (
	CollectionQueuedRecords  = "queued-records"
	CollectionPendingActions = "pending-actions"
	CollectionCacheEntries   = "cache-entries"
	CollectionMeta           = "meta"
)

// Index names supported on queued-records.
const (
	IndexSyncStatus = "syncStatus"
	IndexDayKey     = "dayKey"
)

// ErrNotFound is returned by Get when the key does not exist in the collection.
var ErrNotFound = errors.New("store: not found")

// Item is a single stored record. Value is the raw JSON the caller wrote.
type Item struct {
	Key   string
	Value []byte
}

// Indexes maps an index name to this record's value for that index.
// Indexes are replaced wholesale on each Put.
type Indexes map[string]string

// Backend is the durable store contract. Writes are durable before the call
// returns. GetAll and GetAllByIndex preserve insertion order within a
// collection; updating an existing key keeps its original position.
type Backend interface {
	Put(ctx context.Context, collection, key string, value []byte, indexes Indexes) error
	Get(ctx context.Context, collection, key string) ([]byte, error)
	GetAll(ctx context.Context, collection string) ([]Item, error)
	GetAllByIndex(ctx context.Context, collection, indexName, indexValue string) ([]Item, error)
	Delete(ctx context.Context, collection, key string) error
	Close() error
}
