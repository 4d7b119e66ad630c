package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	gochi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/db/badger"
	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/result"
	"github.com/kailas-cloud/crossref/internal/repository/correlation"
	healthuc "github.com/kailas-cloud/crossref/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/crossref/internal/usecase/ingest"
	occurrenceuc "github.com/kailas-cloud/crossref/internal/usecase/occurrence"
	publishuc "github.com/kailas-cloud/crossref/internal/usecase/publish"
)

const testHash = "5d41402abc4b2a76b9719d911017c592"

// --- Fakes ---

type memBlackboard struct {
	mu      sync.Mutex
	results []result.Result
}

func (m *memBlackboard) Exists(_ context.Context, objID int64, typ result.Type, attrs []result.Attribute) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := result.Digest(attrs)
	for _, r := range m.results {
		if r.ObjID() == objID && r.Type() == typ && r.Digest() == d {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBlackboard) Create(_ context.Context, res result.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
	return nil
}

func (m *memBlackboard) Post(_ context.Context, _ uuid.UUID, _ string, _ int64) error { return nil }

// --- Helpers ---

type testEnv struct {
	server *Server
	router http.Handler
	bb     *memBlackboard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := badger.Open(badger.Config{InMemory: true})
	if err != nil {
		t.Fatalf("badger.Open: %v", err)
	}
	t.Cleanup(store.Close)

	repo := correlation.New(store, correlation.Options{KeyPrefix: "cr:", Platform: domain.PlatformSingleUser})
	if err := repo.EnsureTypes(context.Background()); err != nil {
		t.Fatalf("EnsureTypes: %v", err)
	}

	bb := &memBlackboard{}
	occSvc := occurrenceuc.New(repo)
	ingestSvc := ingestuc.New(repo, occSvc, publishuc.New(bb, nil), nil, nil)
	srv := NewServer(ingestSvc, occSvc, healthuc.New(store, nil, nil), zap.NewNop())

	r := gochi.NewRouter()
	srv.Mount(r)
	return &testEnv{server: srv, router: r, bb: bb}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func (e *testEnv) startWorker(t *testing.T, jobID int64, req StartWorkerRequest) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, fmt.Sprintf("/v1/jobs/%d/workers", jobID), req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("start worker: status %d body %s", rr.Code, rr.Body.String())
	}
	return decode[WorkerResponse](t, rr).WorkerID
}

func fileItem(objectID int64) ItemRequest {
	return ItemRequest{
		ObjectID:   objectID,
		Kind:       "file",
		Name:       "invoice.pdf.exe",
		ParentPath: "/downloads/",
		FileType:   "fs",
		Allocated:  true,
		MD5:        testHash,
	}
}

// --- Tests ---

func TestServer_CrossCaseNotableFlow(t *testing.T) {
	env := newTestEnv(t)

	// case A records the hash
	w1 := env.startWorker(t, 1, StartWorkerRequest{
		DataSourceObjID: 10,
		CaseUUID:        "case-a",
		CaseName:        "Case A",
		Flags:           FlagsDTO{SaveInstances: true},
	})
	if rr := env.do(t, http.MethodPost, "/v1/workers/"+w1+"/items", fileItem(100)); rr.Code != http.StatusOK {
		t.Fatalf("process: status %d body %s", rr.Code, rr.Body.String())
	}
	rr := env.do(t, http.MethodDelete, "/v1/workers/"+w1, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("shutdown: status %d", rr.Code)
	}
	if sd := decode[ShutdownResponse](t, rr); !sd.Last || sd.Flushed != 1 {
		t.Fatalf("shutdown = %+v, want last with 1 flushed", sd)
	}

	// examiner tags it bad in case A
	rr = env.do(t, http.MethodPut, "/v1/known-status", KnownStatusRequest{
		Type: "files", Value: testHash, CaseUUID: "case-a", Status: "bad",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("known-status: status %d body %s", rr.Code, rr.Body.String())
	}
	if ks := decode[KnownStatusResponse](t, rr); ks.Updated != 1 {
		t.Fatalf("updated = %d, want 1", ks.Updated)
	}

	// case B sees it as notable
	w2 := env.startWorker(t, 2, StartWorkerRequest{
		DataSourceObjID: 20,
		CaseUUID:        "case-b",
		Flags:           FlagsDTO{FlagNotable: true},
	})
	rr = env.do(t, http.MethodPost, "/v1/workers/"+w2+"/items", fileItem(200))
	if rr.Code != http.StatusOK {
		t.Fatalf("process: status %d body %s", rr.Code, rr.Body.String())
	}
	if res := decode[ingestuc.ProcessResult](t, rr); res.Published != 1 {
		t.Fatalf("published = %d, want 1", res.Published)
	}
	if len(env.bb.results) != 1 || env.bb.results[0].Type() != result.TypePreviouslyNotable {
		t.Fatalf("blackboard = %v", env.bb.results)
	}
	env.do(t, http.MethodDelete, "/v1/workers/"+w2, nil)

	rr = env.do(t, http.MethodGet, "/v1/occurrences?type=files&value="+testHash+"&exclude_case=case-b", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("occurrences: status %d", rr.Code)
	}
	occ := decode[OccurrencesResponse](t, rr)
	if occ.Cases != 1 || occ.Occurrences[0].CaseName != "Case A" || occ.Occurrences[0].KnownStatus != "bad" {
		t.Errorf("occurrences = %+v", occ)
	}
}

func TestServer_StartWorker_Validation(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/v1/jobs/abc/workers", StartWorkerRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("non-numeric job id: got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/v1/jobs/1/workers", StartWorkerRequest{DataSourceObjID: 1})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing case uuid: got %d", rr.Code)
	}
	if e := decode[ErrorResponse](t, rr); e.Code != CodeValidationFailed {
		t.Errorf("code = %s", e.Code)
	}
}

func TestServer_StartWorker_PlatformMismatch(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/v1/jobs/1/workers", StartWorkerRequest{
		DataSourceObjID: 1,
		CaseUUID:        "case-a",
		MultiUser:       true,
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusConflict)
	}
	e := decode[ErrorResponse](t, rr)
	if e.Code != CodePlatformMismatch || e.Message == "" {
		t.Errorf("error = %+v", e)
	}
}

func TestServer_UnknownWorker(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/v1/workers/nope/items", fileItem(1))
	if rr.Code != http.StatusNotFound {
		t.Errorf("process: got %d", rr.Code)
	}
	rr = env.do(t, http.MethodDelete, "/v1/workers/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("shutdown: got %d", rr.Code)
	}
	if e := decode[ErrorResponse](t, rr); e.Code != CodeWorkerNotFound {
		t.Errorf("code = %s", e.Code)
	}
}

func TestServer_ProcessItem_InvalidItem(t *testing.T) {
	env := newTestEnv(t)
	w := env.startWorker(t, 1, StartWorkerRequest{DataSourceObjID: 1, CaseUUID: "case-a"})

	rr := env.do(t, http.MethodPost, "/v1/workers/"+w+"/items", ItemRequest{ObjectID: 1, Kind: "folder"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestServer_Classify(t *testing.T) {
	env := newTestEnv(t)

	occs := make([]OccurrenceDTO, 0, 11)
	for i := 0; i < 11; i++ {
		occs = append(occs, OccurrenceDTO{CaseUUID: fmt.Sprintf("c%d", i), CaseName: fmt.Sprintf("Case %d", i)})
	}
	rr := env.do(t, http.MethodPost, "/v1/classify", ClassifyRequest{
		Check:       "previously_seen",
		Type:        "usb_id",
		Occurrences: occs,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	out := decode[ClassifyResponse](t, rr)
	if out.Kind != "seen" || out.Score != "none" || len(out.CaseNames) != 11 {
		t.Errorf("classify = %+v", out)
	}

	rr = env.do(t, http.MethodPost, "/v1/classify", ClassifyRequest{Check: "bogus", Type: "usb_id"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown check: got %d", rr.Code)
	}
}

func TestServer_Occurrences_Normalization(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/v1/occurrences?type=files&value=not-a-hash", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if e := decode[ErrorResponse](t, rr); e.Code != CodeNormalization {
		t.Errorf("code = %s", e.Code)
	}
}

func TestServer_KnownStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPut, "/v1/known-status", KnownStatusRequest{
		Type: "files", Value: testHash, CaseUUID: "case-a", Status: "bad",
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	h := decode[HealthResponse](t, rr)
	if h.Status != string(healthuc.Healthy) || h.Checks[healthuc.ComponentCorrelationStore] != "ok" {
		t.Errorf("health = %+v", h)
	}
}

func TestServer_ShutdownFlushesRegisteredWorkers(t *testing.T) {
	env := newTestEnv(t)
	w := env.startWorker(t, 1, StartWorkerRequest{
		DataSourceObjID: 1,
		CaseUUID:        "case-a",
		Flags:           FlagsDTO{SaveInstances: true},
	})
	env.do(t, http.MethodPost, "/v1/workers/"+w+"/items", fileItem(1))

	env.server.Shutdown(context.Background())
	if env.server.workers.count() != 0 {
		t.Fatal("workers not drained")
	}

	rr := env.do(t, http.MethodGet, "/v1/occurrences?type=files&value="+testHash, nil)
	if occ := decode[OccurrencesResponse](t, rr); occ.Cases != 1 {
		t.Errorf("cases = %d, want 1 after shutdown flush", occ.Cases)
	}
}
