// Package db defines the storage primitives the correlation repository is
// written against. Redis/Valkey and the embedded badger store implement them
// with the same semantics, so one repository serves multi-user and
// single-user deployments.
package db

import (
	"context"
	"time"
)

// Store is everything a correlation backend provides.
//
//nolint:interfacebloat // repositories depend on the narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	SetStore
	KVStore
	Close()
	// WaitForReady blocks until the backend answers or timeout expires.
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one hash written by HSetMulti. Defaults are written
// only for fields the hash does not hold yet.
type HashSetItem struct {
	Key      string
	Fields   map[string]string
	Defaults map[string]string
}

// HashStore holds instance records and data source hash details.
// HGetAll on a missing key returns an empty map, not an error.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SetAddItem is one set extended by SAddMulti.
type SetAddItem struct {
	Key     string
	Members []string
}

// SetStore holds the occurrence indexes (value to instance keys).
type SetStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SAddMulti(ctx context.Context, items []SetAddItem) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// KVStore holds scalar records: type switches, case and data source names.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
}
