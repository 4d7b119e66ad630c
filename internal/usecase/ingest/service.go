// Package ingest runs the per-worker hooks of the correlation engine:
// job startup, per-item classification and job teardown.
package ingest

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/domain/item"
	"github.com/kailas-cloud/crossref/internal/domain/job"
	"github.com/kailas-cloud/crossref/internal/domain/outcome"
	"github.com/kailas-cloud/crossref/internal/domain/policy"
	"github.com/kailas-cloud/crossref/internal/logger"
	"github.com/kailas-cloud/crossref/internal/metrics"
	"github.com/kailas-cloud/crossref/internal/usecase/publish"
)

// Service wires the collaborators shared by every worker module.
type Service struct {
	store       CorrelationStore
	finder      OccurrenceFinder
	publisher   Publisher
	coordinator *Coordinator
}

// New creates an ingest service. hashes and cases can be nil.
func New(
	store CorrelationStore,
	finder OccurrenceFinder,
	publisher Publisher,
	hashes HashSyncer,
	cases CaseDataSources,
) *Service {
	return &Service{
		store:       store,
		finder:      finder,
		publisher:   publisher,
		coordinator: NewCoordinator(store, hashes, cases),
	}
}

// Coordinator returns the job lifecycle coordinator.
func (s *Service) Coordinator() *Coordinator { return s.coordinator }

// NewModule creates the engine instance for one worker.
func (s *Service) NewModule() *Module {
	return &Module{svc: s}
}

// ProcessResult summarizes one Process call.
type ProcessResult struct {
	Attributes int `json:"attributes"`
	Claimed    int `json:"claimed"`
	Outcomes   int `json:"outcomes"`
	Published  int `json:"published"`
}

// Module is the engine instance of one worker. StartUp, Process and ShutDown
// are called from the worker's goroutine; Process calls of different modules
// of the same job run concurrently.
type Module struct {
	svc     *Service
	handle  *Handle
	log     *zap.Logger
	started atomic.Bool
}

// StartUp joins the module to job j. Errors are *StartupError and fatal for
// the job.
func (m *Module) StartUp(ctx context.Context, j job.Job) error {
	if m.started.Load() {
		return fmt.Errorf("module already started for job %d: %w", m.handle.Job().ID(), domain.ErrInvalidInput)
	}
	if j.MultiUser() && m.svc.store.Platform() == domain.PlatformSingleUser {
		return newStartupError(j.ID(), fmt.Errorf("case %s is multi-user: %w", j.Case().UUID, domain.ErrPlatformMismatch))
	}

	ctx, log := logger.With(ctx,
		zap.Int64("job_id", j.ID()),
		zap.String("case_uuid", j.Case().UUID),
		zap.Int64("data_source_id", j.DataSourceObjID()),
	)
	h, err := m.svc.coordinator.OnWorkerStartup(ctx, j)
	if err != nil {
		log.Error("Worker startup failed", zap.Error(err))
		return err
	}
	m.handle = h
	m.log = log
	m.started.Store(true)
	metrics.WorkersActive.Inc()
	return nil
}

// Process extracts, classifies and records the correlation attributes of it.
// Lookup and publish failures are logged per attribute and never fail the
// item.
func (m *Module) Process(ctx context.Context, it item.Item) (ProcessResult, error) {
	if !m.started.Load() {
		metrics.ItemsProcessedTotal.WithLabelValues("error").Inc()
		return ProcessResult{}, fmt.Errorf("process item %d: %w", it.ObjectID(), domain.ErrJobNotActive)
	}
	j := m.handle.Job()
	log := m.log.With(zap.Int64("object_id", it.ObjectID()))
	ctx = logger.ContextWithLogger(ctx, log)

	attrs, errs := attribute.Extract(it, attribute.Scope{
		CaseUUID:        j.Case().UUID,
		DataSourceObjID: j.DataSourceObjID(),
	})
	for _, err := range errs {
		log.Debug("Skipping attribute value", zap.Error(err))
	}

	res := ProcessResult{Attributes: len(attrs)}
	checks := j.Flags().Checks()
	for _, a := range attrs {
		typeLabel := a.Type().String()
		if !m.handle.Enabled(a.Type()) {
			metrics.AttributesTotal.WithLabelValues(typeLabel, "disabled").Inc()
			continue
		}
		if !m.handle.Dedup().TryClaim(a) {
			metrics.AttributesTotal.WithLabelValues(typeLabel, "duplicate").Inc()
			continue
		}
		metrics.AttributesTotal.WithLabelValues(typeLabel, "claimed").Inc()
		res.Claimed++

		outcomes := m.classify(ctx, a, checks)
		res.Outcomes += len(outcomes)
		for _, o := range outcomes {
			metrics.OutcomesTotal.WithLabelValues(string(o.Kind()), string(o.Score())).Inc()
			ok, err := m.svc.publisher.Publish(ctx, publish.Request{
				Item:      it,
				Attribute: a,
				Outcome:   o,
				JobID:     j.ID(),
			})
			if err != nil {
				log.Warn("Failed to publish analysis result",
					zap.String("attr_type", typeLabel),
					zap.String("outcome", o.String()),
					zap.Error(err),
				)
				continue
			}
			if ok {
				res.Published++
			}
		}

		if j.Flags().SaveInstances {
			m.handle.Buffer().Add(a)
		}
	}

	metrics.ItemsProcessedTotal.WithLabelValues("ok").Inc()
	return res, nil
}

// classify looks up a's occurrences and runs the enabled checks. A failed
// lookup yields no outcomes for a.
func (m *Module) classify(ctx context.Context, a attribute.Attribute, checks []policy.Check) []outcome.Outcome {
	if len(checks) == 0 {
		return nil
	}
	occs, err := m.svc.finder.Find(ctx, a)
	if err != nil {
		logger.FromContext(ctx).Warn("Occurrence lookup failed",
			zap.String("attr_type", a.Type().String()),
			zap.Error(err),
		)
		return nil
	}
	return policy.Evaluate(checks, a.Type(), occs)
}

// ShutDown leaves the job. The last module of the job to shut down performs
// the teardown. Calling ShutDown on a module that never started is a no-op.
func (m *Module) ShutDown(ctx context.Context) (Teardown, error) {
	if !m.started.CompareAndSwap(true, false) {
		return Teardown{}, nil
	}
	metrics.WorkersActive.Dec()
	td, err := m.svc.coordinator.OnWorkerShutdown(logger.ContextWithLogger(ctx, m.log), m.handle.Job().ID())
	if err != nil {
		return Teardown{}, fmt.Errorf("shut down worker: %w", err)
	}
	return td, nil
}

// Job returns the job the module is attached to.
func (m *Module) Job() (job.Job, bool) {
	if !m.started.Load() {
		return job.Job{}, false
	}
	return m.handle.Job(), true
}
