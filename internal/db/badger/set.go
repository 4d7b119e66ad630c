package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/crossref/internal/db"
)

// SAdd adds members to a set.
func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	return s.SAddMulti(ctx, []db.SetAddItem{{Key: key, Members: members}})
}

// SAddMulti adds members to multiple sets in one write batch.
func (s *Store) SAddMulti(ctx context.Context, items []db.SetAddItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpSAdd, Err: err}
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, item := range items {
		for _, m := range item.Members {
			if err := wb.Set(subKey(kindSet, item.Key, m), nil); err != nil {
				return &db.Error{Op: db.OpSAdd, Err: fmt.Errorf("key %s: %w", item.Key, err)}
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return &db.Error{Op: db.OpSAdd, Err: err}
	}
	return nil
}

// SMembers returns all members of a set in key order.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSMembers, Err: err}
	}
	var members []string
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefix(kindSet, key), false, func(m []byte, _ *badger.Item) error {
			members = append(members, string(m))
			return nil
		})
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpSMembers, Err: err}
	}
	return members, nil
}
