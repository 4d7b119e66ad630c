package crossref

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/item"
	"github.com/kailas-cloud/crossref/internal/domain/job"
	"github.com/kailas-cloud/crossref/internal/logger"
	ingestuc "github.com/kailas-cloud/crossref/internal/usecase/ingest"
)

// Worker is the engine instance of one ingest worker. Process and Close
// must be called from a single goroutine; workers of the same job run
// concurrently.
type Worker struct {
	module *ingestuc.Module
	logger *zap.Logger
	obs    *observer
}

// StartWorker joins a worker to the job described by spec. The first worker
// of a job registers the case and data source; the others wait for it.
// Startup errors are fatal for the job.
func (c *Client) StartWorker(ctx context.Context, spec JobSpec) (w *Worker, err error) {
	start := time.Now()
	defer func() { c.obs.observe("start_worker", start, err) }()

	if c.ingestSvc == nil {
		return nil, ErrNoCaseDB
	}
	j, err := job.New(job.Params{
		ID:              spec.ID,
		DataSourceObjID: spec.DataSourceObjID,
		DataSourceName:  spec.DataSourceName,
		DeviceID:        spec.DeviceID,
		Case:            job.Case{UUID: spec.CaseUUID, DisplayName: spec.CaseName},
		MultiUser:       spec.MultiUser,
		Flags: job.Flags{
			FlagNotable:         spec.Flags.FlagNotable,
			FlagPrevSeen:        spec.Flags.FlagPrevSeen,
			FlagUniqueArtifacts: spec.Flags.FlagUniqueArtifacts,
			SaveInstances:       spec.Flags.SaveInstances,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	m := c.ingestSvc.NewModule()
	if err := m.StartUp(logger.ContextWithLogger(ctx, c.logger), j); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	return &Worker{module: m, logger: c.logger, obs: c.obs}, nil
}

// Process classifies it and buffers its attributes. Lookup and publish
// failures are logged and do not fail the item.
func (w *Worker) Process(ctx context.Context, it Item) (res ProcessResult, err error) {
	start := time.Now()
	defer func() { w.obs.observe("process", start, err) }()

	known, err := domain.ParseKnownStatus(it.KnownStatus)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("process item %d: %w", it.ObjectID, err)
	}
	domItem, err := item.New(item.Params{
		ObjectID:     it.ObjectID,
		Kind:         it.Kind,
		Name:         it.Name,
		ParentPath:   it.ParentPath,
		FileType:     it.FileType,
		Allocated:    it.Allocated,
		KnownStatus:  known,
		MD5:          it.MD5,
		ArtifactType: it.ArtifactType,
		Fields:       it.Fields,
	})
	if err != nil {
		return ProcessResult{}, fmt.Errorf("process item %d: %w", it.ObjectID, err)
	}
	res, err = w.module.Process(logger.ContextWithLogger(ctx, w.logger), domItem)
	if err == nil {
		w.obs.observeItem(res)
	}
	return res, err
}

// Close detaches the worker from its job. The last worker of the job
// flushes buffered instances and syncs data source hashes; a cancelled ctx
// does not abort that teardown.
func (w *Worker) Close(ctx context.Context) (summary JobSummary, err error) {
	start := time.Now()
	defer func() { w.obs.observe("close_worker", start, err) }()

	td, err := w.module.ShutDown(logger.ContextWithLogger(ctx, w.logger))
	if err != nil {
		return JobSummary{}, fmt.Errorf("close worker: %w", err)
	}
	summary = JobSummary{
		Last:        td.Last,
		Flushed:     td.Flushed,
		FlushErr:    td.FlushErr,
		HashSyncErr: td.HashSyncErr,
	}
	for _, k := range td.HashesUpdated {
		summary.HashesUpdated = append(summary.HashesUpdated, string(k))
	}
	return summary, nil
}
