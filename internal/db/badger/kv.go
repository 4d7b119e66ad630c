package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/crossref/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(kvKey(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return out, nil
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(kvKey(key), value)
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// SetNX stores a value only if the key does not exist. Conflicting
// transactions are retried so the loser observes the winner's write.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	var err error
	for attempt := 0; attempt < setNXRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			break
		}
		created := false
		err = s.db.Update(func(txn *badger.Txn) error {
			_, getErr := txn.Get(kvKey(key))
			switch {
			case getErr == nil:
				return nil
			case !errors.Is(getErr, badger.ErrKeyNotFound):
				return getErr
			}
			created = true
			return txn.Set(kvKey(key), value)
		})
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	return false, &db.Error{Op: db.OpSetNX, Err: err}
}
