// Package badger implements db.Store on an embedded BadgerDB directory. It
// backs the single-user correlation store that lives next to a case.
//
// Redis data types are emulated with key prefixes:
//
//	k<key>             plain value
//	h<key>\x00<field>  hash field
//	s<key>\x00<member> set member (empty value)
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/crossref/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const (
	kindKV   byte = 'k'
	kindHash byte = 'h'
	kindSet  byte = 's'
	sep      byte = 0

	// setNXRetries bounds retries of SetNX on transaction conflicts.
	setNXRetries = 3
)

// ErrClosed is returned by Ping after Close.
var ErrClosed = errors.New("badger: store closed")

// Config holds the options of an embedded store.
type Config struct {
	Dir      string
	InMemory bool
}

// Store implements db.Store via BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store directory.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Dir != "":
		opts = badger.DefaultOptions(filepath.Clean(cfg.Dir))
	default:
		return nil, fmt.Errorf("data dir is required")
	}
	opts = opts.WithLogger(nil)

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: bdb}, nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpPing, Err: ErrClosed}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady returns once the store answers Ping. An open embedded store
// is always ready.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("waiting for database: %w", err)
	}
	return nil
}

func kvKey(key string) []byte {
	return append([]byte{kindKV}, key...)
}

// prefix returns the iteration prefix of a hash or set.
func prefix(kind byte, key string) []byte {
	p := make([]byte, 0, len(key)+2)
	p = append(p, kind)
	p = append(p, key...)
	return append(p, sep)
}

func subKey(kind byte, key, sub string) []byte {
	return append(prefix(kind, key), sub...)
}

// scan calls fn for each entry under p with the suffix after p.
func scan(txn *badger.Txn, p []byte, values bool, fn func(suffix []byte, item *badger.Item) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = values
	opts.Prefix = p
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		if err := fn(bytes.TrimPrefix(item.Key(), p), item); err != nil {
			return err
		}
	}
	return nil
}

func hasPrefix(txn *badger.Txn, p []byte) bool {
	found := false
	_ = scan(txn, p, false, func([]byte, *badger.Item) error {
		found = true
		return errStop
	})
	return found
}

var errStop = errors.New("stop")
