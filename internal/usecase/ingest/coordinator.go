package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/domain/datasource"
	"github.com/kailas-cloud/crossref/internal/domain/job"
	"github.com/kailas-cloud/crossref/internal/logger"
	"github.com/kailas-cloud/crossref/internal/metrics"
)

type jobState int

const (
	stateUninitialized jobState = iota
	stateActive
	stateDraining
	stateClosed
)

func (s jobState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateActive:
		return "active"
	case stateDraining:
		return "draining"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// jobEntry is the state shared by the workers of one job.
// Fields below mu are guarded by it; the rest are written once before
// ready is closed.
type jobEntry struct {
	job    job.Job
	ready  chan struct{}
	closed chan struct{}

	setupErr error
	types    map[attribute.Type]bool
	dedup    *DedupSet
	buffer   *BulkBuffer

	mu    sync.Mutex
	refs  int
	state jobState
}

// Handle gives a worker access to its job's shared state.
type Handle struct {
	e *jobEntry
}

// Job returns the job the handle belongs to.
func (h *Handle) Job() job.Job { return h.e.job }

// Dedup returns the job's dedup set.
func (h *Handle) Dedup() *DedupSet { return h.e.dedup }

// Buffer returns the job's bulk buffer.
func (h *Handle) Buffer() *BulkBuffer { return h.e.buffer }

// Enabled reports whether correlation type t is enabled in the store.
func (h *Handle) Enabled(t attribute.Type) bool { return h.e.types[t] }

// Teardown summarizes the work done by the last worker of a job.
type Teardown struct {
	Last          bool
	Flushed       int
	FlushErr      error
	HashesUpdated []datasource.HashKind
	HashSyncErr   error
}

// Coordinator reference-counts the workers of each job. The first worker
// registers the case and data source, the last one flushes the buffer and
// syncs hashes. Jobs never share a lock.
type Coordinator struct {
	store  CorrelationStore
	hashes HashSyncer
	cases  CaseDataSources

	jobs sync.Map // job id -> *jobEntry
}

// NewCoordinator creates a coordinator. cases can be nil, in which case the
// data source is registered from the job parameters alone.
func NewCoordinator(store CorrelationStore, hashes HashSyncer, cases CaseDataSources) *Coordinator {
	return &Coordinator{store: store, hashes: hashes, cases: cases}
}

// OnWorkerStartup joins a worker to job j. The first worker of the job runs
// the one-time setup; the others wait for it and share its result. A setup
// failure is returned to every waiting worker as a *StartupError and the
// worker is not counted.
func (c *Coordinator) OnWorkerStartup(ctx context.Context, j job.Job) (*Handle, error) {
	for {
		v, _ := c.jobs.LoadOrStore(j.ID(), c.newEntry(j))
		e := v.(*jobEntry)

		e.mu.Lock()
		if e.state == stateDraining || e.state == stateClosed {
			e.mu.Unlock()
			// previous run of this job id is still tearing down
			select {
			case <-e.closed:
				continue
			case <-ctx.Done():
				return nil, newStartupError(j.ID(), fmt.Errorf("wait for previous run: %w", ctx.Err()))
			}
		}
		e.refs++
		first := e.state == stateUninitialized
		if first {
			e.state = stateActive
		}
		e.mu.Unlock()

		if first {
			e.setupErr = c.setup(ctx, e)
			if e.setupErr == nil {
				metrics.JobsActive.Inc()
			}
			close(e.ready)
		} else {
			select {
			case <-e.ready:
			case <-ctx.Done():
				c.release(ctx, e)
				return nil, newStartupError(j.ID(), fmt.Errorf("wait for job setup: %w", ctx.Err()))
			}
		}

		if e.setupErr != nil {
			c.release(ctx, e)
			return nil, newStartupError(j.ID(), e.setupErr)
		}
		return &Handle{e: e}, nil
	}
}

// OnWorkerShutdown removes a worker from job jobID. The last worker out
// flushes the bulk buffer, then syncs data source hashes, then releases the
// job. Flush and sync failures are reported in Teardown, not as errors.
func (c *Coordinator) OnWorkerShutdown(ctx context.Context, jobID int64) (Teardown, error) {
	v, ok := c.jobs.Load(jobID)
	if !ok {
		return Teardown{}, fmt.Errorf("job %d: %w", jobID, domain.ErrJobNotActive)
	}
	e := v.(*jobEntry)

	e.mu.Lock()
	if e.state != stateActive || e.refs == 0 {
		e.mu.Unlock()
		return Teardown{}, fmt.Errorf("job %d: %w", jobID, domain.ErrJobNotActive)
	}
	e.mu.Unlock()

	return c.release(ctx, e), nil
}

// Active reports whether job jobID has running workers.
func (c *Coordinator) Active(jobID int64) bool {
	v, ok := c.jobs.Load(jobID)
	if !ok {
		return false
	}
	e := v.(*jobEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateActive && e.refs > 0
}

func (c *Coordinator) newEntry(j job.Job) *jobEntry {
	return &jobEntry{
		job:    j,
		ready:  make(chan struct{}),
		closed: make(chan struct{}),
		dedup:  NewDedupSet(),
		buffer: NewBulkBuffer(c.store),
	}
}

// release drops one reference and tears the job down when it was the last.
func (c *Coordinator) release(ctx context.Context, e *jobEntry) Teardown {
	e.mu.Lock()
	e.refs--
	last := e.refs == 0
	if last {
		e.state = stateDraining
	}
	e.mu.Unlock()

	if !last {
		return Teardown{}
	}
	return c.teardown(context.WithoutCancel(ctx), e)
}

func (c *Coordinator) setup(ctx context.Context, e *jobEntry) error {
	j := e.job

	types, err := c.store.CorrelationTypes(ctx)
	if err != nil {
		return fmt.Errorf("load correlation types: %w", err)
	}
	if !types[attribute.Files] {
		return fmt.Errorf("correlation type %s: %w", attribute.Files, domain.ErrNotConfigured)
	}
	if _, err := c.store.GetOrCreateCase(ctx, j.Case()); err != nil {
		return fmt.Errorf("register case %s: %w", j.Case().UUID, err)
	}
	ds, err := c.dataSource(ctx, j)
	if err != nil {
		return err
	}
	if _, err := c.store.GetOrCreateDataSource(ctx, j.Case().UUID, ds); err != nil {
		return fmt.Errorf("register data source %d: %w", j.DataSourceObjID(), err)
	}
	e.types = types

	logger.FromContext(ctx).Info("Job registered in correlation store",
		zap.Int64("job_id", j.ID()),
		zap.String("case_uuid", j.Case().UUID),
		zap.Int64("data_source_id", j.DataSourceObjID()),
	)
	return nil
}

// dataSource prefers the case database record, which carries the type and
// any hashes already computed.
func (c *Coordinator) dataSource(ctx context.Context, j job.Job) (datasource.DataSource, error) {
	fallback := datasource.DataSource{
		ObjID:    j.DataSourceObjID(),
		Name:     j.DataSourceName(),
		DeviceID: j.DeviceID(),
		Type:     datasource.TypeImage,
	}
	if c.cases == nil {
		return fallback, nil
	}
	ds, err := c.cases.DataSource(ctx, j.DataSourceObjID())
	if errors.Is(err, domain.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return datasource.DataSource{}, fmt.Errorf("read data source %d: %w", j.DataSourceObjID(), err)
	}
	if ds.Name == "" {
		ds.Name = fallback.Name
	}
	if ds.DeviceID == "" {
		ds.DeviceID = fallback.DeviceID
	}
	return ds, nil
}

func (c *Coordinator) teardown(ctx context.Context, e *jobEntry) Teardown {
	j := e.job
	log := logger.FromContext(ctx).With(
		zap.Int64("job_id", j.ID()),
		zap.String("case_uuid", j.Case().UUID),
	)
	td := Teardown{Last: true}

	if e.setupErr == nil {
		td.Flushed, td.FlushErr = e.buffer.FlushAll(ctx)
		if td.FlushErr != nil {
			log.Warn("Bulk flush failed, instances of this job are not recorded", zap.Error(td.FlushErr))
		}
		if c.hashes != nil {
			td.HashesUpdated, td.HashSyncErr = c.hashes.Run(ctx, j)
			if td.HashSyncErr != nil {
				log.Warn("Data source hash sync failed", zap.Error(td.HashSyncErr))
			}
		}
		metrics.JobsActive.Dec()
		log.Info("Job closed", zap.Int("instances_flushed", td.Flushed))
	}

	c.jobs.CompareAndDelete(j.ID(), e)
	e.mu.Lock()
	e.state = stateClosed
	e.mu.Unlock()
	close(e.closed)
	return td
}
