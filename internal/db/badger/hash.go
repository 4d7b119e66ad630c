package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/crossref/internal/db"
)

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	return s.HSetMulti(ctx, []db.HashSetItem{{Key: key, Fields: fields}})
}

// HSetMulti stores multiple hashes in one write batch.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, item := range items {
		for f, v := range item.Fields {
			if err := wb.Set(subKey(kindHash, item.Key, f), []byte(v)); err != nil {
				return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", item.Key, err)}
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return s.setDefaults(ctx, items)
}

// setDefaults writes Defaults fields that are still absent. It needs a
// read, so it runs in a transaction and retries on conflicts like SetNX.
func (s *Store) setDefaults(ctx context.Context, items []db.HashSetItem) error {
	n := 0
	for _, item := range items {
		n += len(item.Defaults)
	}
	if n == 0 {
		return nil
	}
	var err error
	for attempt := 0; attempt < setNXRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			break
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			for _, item := range items {
				for f, v := range item.Defaults {
					k := subKey(kindHash, item.Key, f)
					_, getErr := txn.Get(k)
					switch {
					case getErr == nil:
						continue
					case !errors.Is(getErr, badger.ErrKeyNotFound):
						return getErr
					}
					if setErr := txn.Set(k, []byte(v)); setErr != nil {
						return fmt.Errorf("key %s: %w", item.Key, setErr)
					}
				}
			}
			return nil
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	return &db.Error{Op: db.OpHSet, Err: err}
}

// HGetAll returns all fields of a hash. A missing key is an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	out, err := s.HGetAllMulti(ctx, []string{key})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// HGetAllMulti fetches all fields for multiple hashes in one read transaction.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}

	out := make([]map[string]string, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for i, key := range keys {
			m := make(map[string]string)
			err := scan(txn, prefix(kindHash, key), true, func(field []byte, item *badger.Item) error {
				v, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				m[string(field)] = string(v)
				return nil
			})
			if err != nil {
				return fmt.Errorf("key %s: %w", key, err)
			}
			out[i] = m
		}
		return nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return out, nil
}

// Del deletes a key of any type.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(kvKey(key)); err != nil {
			return err
		}
		for _, kind := range []byte{kindHash, kindSet} {
			var subs [][]byte
			err := scan(txn, prefix(kind, key), false, func(_ []byte, item *badger.Item) error {
				subs = append(subs, item.KeyCopy(nil))
				return nil
			})
			if err != nil {
				return err
			}
			for _, k := range subs {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// Exists checks if a key of any type exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(kvKey(key))
		switch {
		case err == nil:
			found = true
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		found = hasPrefix(txn, prefix(kindHash, key)) || hasPrefix(txn, prefix(kindSet, key))
		return nil
	})
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return found, nil
}
