package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	KVStore
	JSONStore
	SortedSetStore
	IndexManager
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// JSONSetItem holds a single key+path+data triple for pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Path string
	Data []byte
}

// JSONStore provides JSON document operations.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	// JSONSetMulti pipelines the writes and returns one error slot per item (nil on success).
	JSONSetMulti(ctx context.Context, items []JSONSetItem) []error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	// JSONGetMulti returns documents in key order; a missing key yields a nil entry.
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
}

// SortedSetStore provides the lexicographically ordered member sets used as key indexes.
// All members are stored with score 0 so that ordering is purely lexicographic.
type SortedSetStore interface {
	ZAddMulti(ctx context.Context, key string, members []string) error
	// ZRangeByLexAfter returns up to limit members strictly greater than after, skipping
	// the first offset of them. An empty after starts at the first member.
	ZRangeByLexAfter(ctx context.Context, key, after string, offset, limit int) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	// ReplaceIndex drops the index named by def, if any, and creates it from def.
	// The documents it covers are kept.
	ReplaceIndex(ctx context.Context, def *IndexDefinition) error
}
