package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/domain/item"
	"github.com/kailas-cloud/crossref/internal/domain/job"
	"github.com/kailas-cloud/crossref/internal/domain/occurrence"
	"github.com/kailas-cloud/crossref/internal/domain/policy"
	"github.com/kailas-cloud/crossref/internal/logger"
	healthuc "github.com/kailas-cloud/crossref/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/crossref/internal/usecase/ingest"
	occurrenceuc "github.com/kailas-cloud/crossref/internal/usecase/occurrence"
)

const maxBodyBytes = 1 << 20

// errWorkerNotFound signals an unknown worker id.
var errWorkerNotFound = errors.New("worker not found")

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the ingest hooks and correlation lookups over HTTP.
type Server struct {
	ingest        *ingestuc.Service
	occurrences   *occurrenceuc.Service
	health        *healthuc.Service
	workers       *workerRegistry
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	occurrences *occurrenceuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:      ingest,
		occurrences: occurrences,
		health:      health,
		workers:     newWorkerRegistry(),
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		startupErrorHandler,
		sentinelHandler(errWorkerNotFound, http.StatusNotFound, CodeWorkerNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrJobNotActive, http.StatusConflict, CodeJobNotActive),
		sentinelHandler(domain.ErrNormalization, http.StatusBadRequest, CodeNormalization),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	}
	return s
}

// Mount registers the API routes on r.
func (s *Server) Mount(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r gochi.Router) {
		r.Post("/jobs/{jobID}/workers", s.StartWorker)
		r.Post("/workers/{workerID}/items", s.ProcessItem)
		r.Delete("/workers/{workerID}", s.ShutdownWorker)
		r.Post("/classify", s.Classify)
		r.Get("/occurrences", s.FindOccurrences)
		r.Put("/known-status", s.SetKnownStatus)
	})
}

// StartWorker handles POST /v1/jobs/{jobID}/workers.
func (s *Server) StartWorker(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(gochi.URLParam(r, "jobID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "job id must be an integer")
		return
	}
	var req StartWorkerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	j, err := job.New(job.Params{
		ID:              jobID,
		DataSourceObjID: req.DataSourceObjID,
		DataSourceName:  req.DataSourceName,
		DeviceID:        req.DeviceID,
		Case:            job.Case{UUID: req.CaseUUID, DisplayName: req.CaseName},
		MultiUser:       req.MultiUser,
		Flags: job.Flags{
			FlagNotable:         req.Flags.FlagNotable,
			FlagPrevSeen:        req.Flags.FlagPrevSeen,
			FlagUniqueArtifacts: req.Flags.FlagUniqueArtifacts,
			SaveInstances:       req.Flags.SaveInstances,
		},
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	m := s.ingest.NewModule()
	if err := m.StartUp(r.Context(), j); err != nil {
		s.handleDomainError(w, err)
		return
	}
	id := s.workers.add(m)
	writeJSON(w, http.StatusCreated, WorkerResponse{WorkerID: id, JobID: j.ID()})
}

// ProcessItem handles POST /v1/workers/{workerID}/items.
func (s *Server) ProcessItem(w http.ResponseWriter, r *http.Request) {
	m, ok := s.workers.get(gochi.URLParam(r, "workerID"))
	if !ok {
		s.handleDomainError(w, errWorkerNotFound)
		return
	}
	var req ItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	it, err := itemFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	res, err := m.Process(r.Context(), it)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ShutdownWorker handles DELETE /v1/workers/{workerID}.
func (s *Server) ShutdownWorker(w http.ResponseWriter, r *http.Request) {
	m, ok := s.workers.remove(gochi.URLParam(r, "workerID"))
	if !ok {
		s.handleDomainError(w, errWorkerNotFound)
		return
	}
	td, err := m.ShutDown(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shutdownToResponse(td))
}

// Classify handles POST /v1/classify. It runs one check over the given
// occurrences without touching any store.
func (s *Server) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	check, err := policy.ParseCheck(req.Check)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	t, err := attribute.ParseType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	occs := make([]occurrence.Occurrence, 0, len(req.Occurrences))
	for _, o := range req.Occurrences {
		known, err := domain.ParseKnownStatus(o.KnownStatus)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
			return
		}
		occs = append(occs, occurrence.New(o.CaseUUID, o.CaseName, known))
	}

	out := policy.Classify(check, t, occs)
	writeJSON(w, http.StatusOK, ClassifyResponse{
		Kind:      string(out.Kind()),
		Score:     string(out.Score()),
		CaseNames: out.CaseNames(),
	})
}

// FindOccurrences handles GET /v1/occurrences?type=&value=&exclude_case=.
func (s *Server) FindOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t, err := attribute.ParseType(q.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	value := q.Get("value")
	if value == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "value is required")
		return
	}

	occs, err := s.occurrences.FindInCases(r.Context(), t, value, q.Get("exclude_case"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OccurrencesResponse{
		Type:        t.String(),
		Value:       value,
		Cases:       len(occurrence.CollapseByCase(occs)),
		Occurrences: occurrencesToDTO(occs),
	})
}

// SetKnownStatus handles PUT /v1/known-status.
func (s *Server) SetKnownStatus(w http.ResponseWriter, r *http.Request) {
	var req KnownStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := attribute.ParseType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	status, err := domain.ParseKnownStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	n, err := s.occurrences.Tag(r.Context(), t, req.Value, req.CaseUUID, status)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, KnownStatusResponse{Updated: n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Shutdown stops every worker still registered so that their jobs flush.
func (s *Server) Shutdown(ctx context.Context) {
	log := logger.FromContext(ctx)
	for _, m := range s.workers.drain() {
		j, _ := m.Job()
		if _, err := m.ShutDown(ctx); err != nil {
			log.Warn("Failed to stop worker", zap.Int64("job_id", j.ID()), zap.Error(err))
		}
	}
}

func itemFromRequest(req ItemRequest) (item.Item, error) {
	known, err := domain.ParseKnownStatus(req.KnownStatus)
	if err != nil {
		return item.Item{}, err
	}
	return item.New(item.Params{
		ObjectID:     req.ObjectID,
		Kind:         item.Kind(req.Kind),
		Name:         req.Name,
		ParentPath:   req.ParentPath,
		FileType:     item.FileType(req.FileType),
		Allocated:    req.Allocated,
		KnownStatus:  known,
		MD5:          req.MD5,
		ArtifactType: item.ArtifactType(req.ArtifactType),
		Fields:       req.Fields,
	})
}

func shutdownToResponse(td ingestuc.Teardown) ShutdownResponse {
	resp := ShutdownResponse{Last: td.Last, Flushed: td.Flushed}
	if td.FlushErr != nil {
		resp.FlushError = safeDomainMessage(td.FlushErr)
	}
	if td.HashSyncErr != nil {
		resp.HashSyncError = safeDomainMessage(td.HashSyncErr)
	}
	for _, k := range td.HashesUpdated {
		resp.HashesUpdated = append(resp.HashesUpdated, string(k))
	}
	return resp
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		errWorkerNotFound,
		domain.ErrNotFound,
		domain.ErrJobNotActive,
		domain.ErrNormalization,
		domain.ErrInvalidInput,
		domain.ErrStoreUnavailable,
		domain.ErrNotConfigured,
		domain.ErrPlatformMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// startupErrorHandler reports fatal job startup failures with the operator
// message of the StartupError.
func startupErrorHandler(w http.ResponseWriter, err error, _ string) bool {
	var se *ingestuc.StartupError
	if !errors.As(err, &se) {
		return false
	}
	switch {
	case errors.Is(err, domain.ErrPlatformMismatch):
		writeError(w, http.StatusConflict, CodePlatformMismatch, se.Message)
	case errors.Is(err, domain.ErrNotConfigured):
		writeError(w, http.StatusConflict, CodeNotConfigured, se.Message)
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, se.Message)
	default:
		writeError(w, http.StatusInternalServerError, CodeStartupFailed, se.Message)
	}
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
