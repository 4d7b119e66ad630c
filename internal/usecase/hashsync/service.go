// Package hashsync copies data source hashes computed during ingest from the
// case database to the correlation store.
package hashsync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/datasource"
	"github.com/kailas-cloud/crossref/internal/domain/job"
	"github.com/kailas-cloud/crossref/internal/logger"
)

// Service synchronizes data source hashes. The case database is the source
// of truth; the store is never read back into it.
type Service struct {
	cases CaseDataSources
	store Store
}

// New creates a hash sync service.
func New(cases CaseDataSources, store Store) *Service {
	return &Service{cases: cases, store: store}
}

// Run overwrites every store-side hash of the job's data source that differs
// from the case database. Returns the hash kinds that were updated. A data
// source the case database no longer has is a no-op.
func (s *Service) Run(ctx context.Context, j job.Job) ([]datasource.HashKind, error) {
	var (
		caseDS     datasource.DataSource
		storeSide  datasource.Hashes
		caseFound  = true
		storeFound = true
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ds, err := s.cases.DataSource(gctx, j.DataSourceObjID())
		if errors.Is(err, domain.ErrNotFound) {
			caseFound = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("read case data source %d: %w", j.DataSourceObjID(), err)
		}
		caseDS = ds
		return nil
	})
	g.Go(func() error {
		h, err := s.store.DataSourceHashes(gctx, j.Case().UUID, j.DataSourceObjID())
		if errors.Is(err, domain.ErrNotFound) {
			storeFound = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stored data source %d: %w", j.DataSourceObjID(), err)
		}
		storeSide = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	if !caseFound {
		log.Debug("Data source gone from case database, nothing to synchronize",
			zap.Int64("data_source_id", j.DataSourceObjID()))
		return nil, nil
	}
	if !caseDS.IsImage() {
		return nil, nil
	}

	if !storeFound {
		log.Warn("Data source missing from correlation store, writing hashes anyway",
			zap.Int64("data_source_id", j.DataSourceObjID()))
	}

	var updated []datasource.HashKind
	for _, kind := range datasource.HashKinds() {
		want := caseDS.Hashes.Get(kind)
		if want == storeSide.Get(kind) {
			continue
		}
		if err := s.store.SetDataSourceHash(ctx, j.Case().UUID, j.DataSourceObjID(), kind, want); err != nil {
			return updated, fmt.Errorf("update %s: %w", kind, err)
		}
		updated = append(updated, kind)
	}
	if len(updated) > 0 {
		log.Info("Synchronized data source hashes",
			zap.Int64("data_source_id", j.DataSourceObjID()),
			zap.Int("updated", len(updated)))
	}
	return updated, nil
}
