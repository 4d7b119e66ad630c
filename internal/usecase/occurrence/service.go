// Package occurrence finds prior sightings of an attribute in other cases.
package occurrence

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	domocc "github.com/kailas-cloud/crossref/internal/domain/occurrence"
	"github.com/kailas-cloud/crossref/internal/metrics"
)

// Service queries the correlation store on behalf of ingest workers.
type Service struct {
	store Store
}

// New creates an occurrence lookup service.
func New(store Store) *Service {
	return &Service{store: store}
}

// Find returns the occurrences of a's value outside a's own case.
// Errors wrap domain.ErrStoreUnavailable or domain.ErrNormalization.
func (s *Service) Find(ctx context.Context, a attribute.Attribute) ([]domocc.Occurrence, error) {
	return s.FindInCases(ctx, a.Type(), a.Value(), a.CaseUUID())
}

// FindInCases returns the occurrences of (t, value) in every case except
// excludeCase. An empty excludeCase returns all occurrences.
func (s *Service) FindInCases(
	ctx context.Context, t attribute.Type, value, excludeCase string,
) ([]domocc.Occurrence, error) {
	start := time.Now()
	occs, err := s.store.FindOccurrences(ctx, t, value)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LookupDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("find %s occurrences: %w", t, err)
	}

	if excludeCase == "" {
		return occs, nil
	}
	return domocc.ExcludeCase(occs, excludeCase), nil
}

// Tag sets the known status of every instance of (t, value) recorded by
// caseUUID. Tagging a value bad makes later jobs in other cases report it as
// notable. Returns the number of instances updated.
func (s *Service) Tag(
	ctx context.Context, t attribute.Type, value, caseUUID string, status domain.KnownStatus,
) (int, error) {
	if caseUUID == "" {
		return 0, fmt.Errorf("case uuid is required: %w", domain.ErrInvalidInput)
	}
	n, err := s.store.SetKnownStatus(ctx, t, value, caseUUID, status)
	if err != nil {
		return 0, fmt.Errorf("tag %s value: %w", t, err)
	}
	return n, nil
}
