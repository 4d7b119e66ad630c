package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/domain/datasource"
	"github.com/kailas-cloud/crossref/internal/domain/inbox"
	"github.com/kailas-cloud/crossref/internal/domain/job"
	"github.com/kailas-cloud/crossref/internal/domain/occurrence"
	"github.com/kailas-cloud/crossref/internal/domain/result"
)

// --- Fakes ---

type fakeStore struct {
	platform domain.Platform
	types    map[attribute.Type]bool
	typesErr error
	caseErr  error
	// gate, when set, blocks case registration until closed.
	gate chan struct{}

	commitErr error

	caseCalls   atomic.Int32
	dsCalls     atomic.Int32
	commitCalls atomic.Int32

	mu        sync.Mutex
	committed []attribute.Attribute
	lastDS    datasource.DataSource
}

func newFakeStore() *fakeStore {
	types := make(map[attribute.Type]bool)
	for _, t := range attribute.AllTypes() {
		types[t] = true
	}
	return &fakeStore{platform: domain.PlatformMultiUser, types: types}
}

func (f *fakeStore) Platform() domain.Platform { return f.platform }

func (f *fakeStore) CorrelationTypes(_ context.Context) (map[attribute.Type]bool, error) {
	if f.typesErr != nil {
		return nil, f.typesErr
	}
	out := make(map[attribute.Type]bool, len(f.types))
	for k, v := range f.types {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) GetOrCreateCase(_ context.Context, _ job.Case) (bool, error) {
	f.caseCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.caseErr != nil {
		return false, f.caseErr
	}
	return true, nil
}

func (f *fakeStore) GetOrCreateDataSource(_ context.Context, _ string, ds datasource.DataSource) (bool, error) {
	f.dsCalls.Add(1)
	f.mu.Lock()
	f.lastDS = ds
	f.mu.Unlock()
	return true, nil
}

func (f *fakeStore) CommitBulk(_ context.Context, attrs []attribute.Attribute) (int, error) {
	f.commitCalls.Add(1)
	if f.commitErr != nil {
		return 0, f.commitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, attrs...)
	return len(attrs), nil
}

func (f *fakeStore) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type fakeHashSync struct {
	calls atomic.Int32
	err   error
}

func (f *fakeHashSync) Run(_ context.Context, _ job.Job) ([]datasource.HashKind, error) {
	f.calls.Add(1)
	return nil, f.err
}

// fakeFinder returns fixed occurrences per attribute value.
type fakeFinder struct {
	occs  map[string][]occurrence.Occurrence
	err   error
	calls atomic.Int32
}

func (f *fakeFinder) Find(_ context.Context, a attribute.Attribute) ([]occurrence.Occurrence, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return occurrence.ExcludeCase(f.occs[a.Value()], a.CaseUUID()), nil
}

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

func (m *memBlackboard) all() []result.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]result.Result, len(m.results))
	copy(out, m.results)
	return out
}

type memNotifier struct {
	mu   sync.Mutex
	msgs []inbox.Message
}

func (m *memNotifier) PostMessage(_ context.Context, msg inbox.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

// --- Helpers ---

func makeJob(t *testing.T, id int64, flags job.Flags) job.Job {
	t.Helper()
	j, err := job.New(job.Params{
		ID:              id,
		DataSourceObjID: 100,
		DataSourceName:  "disk.e01",
		Case:            job.Case{UUID: "case-current", DisplayName: "Current"},
		Flags:           flags,
	})
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	return j
}

func makeAttr(t *testing.T, typ attribute.Type, value string) attribute.Attribute {
	t.Helper()
	a, err := attribute.New(typ, value, attribute.Source{CaseUUID: "case-current", DataSourceObjID: 100})
	if err != nil {
		t.Fatalf("attribute.New: %v", err)
	}
	return a
}
