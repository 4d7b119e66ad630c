package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/domain/item"
	"github.com/kailas-cloud/crossref/internal/domain/job"
	"github.com/kailas-cloud/crossref/internal/domain/occurrence"
	"github.com/kailas-cloud/crossref/internal/domain/outcome"
	"github.com/kailas-cloud/crossref/internal/domain/result"
	"github.com/kailas-cloud/crossref/internal/usecase/publish"
)

const fileHash = "abc123abc123abc123abc123abc123ab"

type harness struct {
	store  *fakeStore
	finder *fakeFinder
	bb     *memBlackboard
	inbox  *memNotifier
	svc    *Service
}

func newHarness(occs map[string][]occurrence.Occurrence) *harness {
	h := &harness{
		store:  newFakeStore(),
		finder: &fakeFinder{occs: occs},
		bb:     &memBlackboard{},
		inbox:  &memNotifier{},
	}
	pub := publish.New(h.bb, h.inbox)
	h.svc = New(h.store, h.finder, pub, &fakeHashSync{}, nil)
	return h
}

func makeFileItem(t *testing.T, id int64, md5 string) item.Item {
	t.Helper()
	it, err := item.New(item.Params{
		ObjectID:   id,
		Kind:       item.KindFile,
		Name:       "payload.bin",
		ParentPath: "/users/bob/",
		FileType:   item.FileFS,
		Allocated:  true,
		MD5:        md5,
	})
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}
	return it
}

func makeHistoryItem(t *testing.T, id int64, domainName string) item.Item {
	t.Helper()
	it, err := item.New(item.Params{
		ObjectID:     id,
		Kind:         item.KindArtifact,
		Name:         "history",
		ArtifactType: item.ArtifactWebHistory,
		Fields:       map[string]string{item.FieldDomain: domainName},
	})
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}
	return it
}

func startModule(t *testing.T, svc *Service, j job.Job) *Module {
	t.Helper()
	m := svc.NewModule()
	if err := m.StartUp(context.Background(), j); err != nil {
		t.Fatalf("StartUp: %v", err)
	}
	return m
}

// --- Scenarios ---

func TestProcess_ZeroOccurrencesNotableOnly(t *testing.T) {
	h := newHarness(nil)
	j := makeJob(t, 1, job.Flags{FlagNotable: true, SaveInstances: true})
	m := startModule(t, h.svc, j)

	res, err := m.Process(context.Background(), makeFileItem(t, 7, fileHash))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Outcomes != 0 || res.Published != 0 {
		t.Errorf("result = %+v, want no outcomes", res)
	}
	if len(h.bb.all()) != 0 {
		t.Errorf("expected no analysis results")
	}

	td, err := m.ShutDown(context.Background())
	if err != nil {
		t.Fatalf("ShutDown: %v", err)
	}
	if td.Flushed != 1 {
		t.Errorf("flushed = %d, want 1", td.Flushed)
	}
}

func TestProcess_NotableInOneOfThreeCases(t *testing.T) {
	h := newHarness(map[string][]occurrence.Occurrence{
		fileHash: {
			occurrence.New("a", "caseA", domain.KnownBad),
			occurrence.New("b", "caseB", domain.KnownUnknown),
			occurrence.New("c", "caseC", domain.KnownUnknown),
		},
	})
	m := startModule(t, h.svc, makeJob(t, 2, job.Flags{FlagNotable: true}))

	res, err := m.Process(context.Background(), makeFileItem(t, 7, fileHash))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Published != 1 {
		t.Fatalf("published = %d, want 1", res.Published)
	}

	results := h.bb.all()
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if r.Type() != result.TypePreviouslyNotable || r.Score() != outcome.ScoreNotable {
		t.Errorf("result = %s/%s", r.Type(), r.Score())
	}
	var others string
	for _, a := range r.Attributes() {
		if a.Name == result.AttrOtherCases {
			others = a.Value
		}
	}
	if others != "caseA" {
		t.Errorf("other cases = %q, want caseA", others)
	}
	if len(h.inbox.msgs) != 1 {
		t.Errorf("inbox messages = %d, want 1", len(h.inbox.msgs))
	}
}

func TestProcess_UnseenDomain(t *testing.T) {
	h := newHarness(nil)
	m := startModule(t, h.svc, makeJob(t, 3, job.Flags{FlagUniqueArtifacts: true}))

	if _, err := m.Process(context.Background(), makeHistoryItem(t, 8, "Rare.Example.ORG")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	results := h.bb.all()
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Type() != result.TypePreviouslyUnseen || results[0].Score() != outcome.ScoreLikelyNotable {
		t.Errorf("result = %s/%s", results[0].Type(), results[0].Score())
	}
	if len(h.inbox.msgs) != 0 {
		t.Errorf("unseen results must not notify")
	}
}

// --- Behaviour ---

func TestProcess_SharedHashScoredOncePerJob(t *testing.T) {
	h := newHarness(map[string][]occurrence.Occurrence{
		fileHash: {occurrence.New("a", "caseA", domain.KnownBad)},
	})
	j := makeJob(t, 4, job.Flags{FlagNotable: true, SaveInstances: true})
	m1 := startModule(t, h.svc, j)
	m2 := startModule(t, h.svc, j)

	if _, err := m1.Process(context.Background(), makeFileItem(t, 1, fileHash)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	res, err := m2.Process(context.Background(), makeFileItem(t, 2, fileHash))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Claimed != 0 {
		t.Errorf("second item claimed %d attributes, want 0", res.Claimed)
	}
	if got := h.finder.calls.Load(); got != 1 {
		t.Errorf("lookups = %d, want 1", got)
	}

	if td, _ := m1.ShutDown(context.Background()); td.Last {
		t.Error("first shutdown must not tear down")
	}
	td, err := m2.ShutDown(context.Background())
	if err != nil {
		t.Fatalf("ShutDown: %v", err)
	}
	if !td.Last || td.Flushed != 1 {
		t.Errorf("teardown = %+v, want last with 1 flushed", td)
	}
}

func TestProcess_ConcurrentModulesShareHash(t *testing.T) {
	const workers = 8
	h := newHarness(map[string][]occurrence.Occurrence{
		fileHash: {occurrence.New("a", "caseA", domain.KnownBad)},
	})
	j := makeJob(t, 11, job.Flags{FlagNotable: true, SaveInstances: true})
	mods := make([]*Module, workers)
	for i := range mods {
		mods[i] = startModule(t, h.svc, j)
	}

	var (
		wg      sync.WaitGroup
		claimed atomic.Int32
	)
	errs := make(chan error, workers)
	for i, m := range mods {
		wg.Add(1)
		go func(m *Module, it item.Item) {
			defer wg.Done()
			res, err := m.Process(context.Background(), it)
			if err != nil {
				errs <- err
				return
			}
			claimed.Add(int32(res.Claimed))
		}(m, makeFileItem(t, int64(i+1), fileHash))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Process: %v", err)
	}

	if got := claimed.Load(); got != 1 {
		t.Errorf("claimed = %d, want 1", got)
	}
	if got := h.finder.calls.Load(); got != 1 {
		t.Errorf("lookups = %d, want 1", got)
	}
	if got := len(h.bb.all()); got != 1 {
		t.Errorf("published results = %d, want 1", got)
	}
	if got := mods[0].handle.Buffer().Len(); got != 1 {
		t.Errorf("buffered instances = %d, want 1", got)
	}

	var td Teardown
	for _, m := range mods {
		var err error
		if td, err = m.ShutDown(context.Background()); err != nil {
			t.Fatalf("ShutDown: %v", err)
		}
	}
	if !td.Last || td.Flushed != 1 {
		t.Errorf("teardown = %+v, want last with 1 flushed", td)
	}
	if got := h.store.committedCount(); got != 1 {
		t.Errorf("committed = %d, want 1", got)
	}
}

func TestProcess_LookupFailureSkipsAttributeOnly(t *testing.T) {
	h := newHarness(nil)
	h.finder.err = domain.ErrStoreUnavailable
	m := startModule(t, h.svc, makeJob(t, 5, job.Flags{FlagUniqueArtifacts: true, SaveInstances: true}))

	res, err := m.Process(context.Background(), makeHistoryItem(t, 9, "example.org"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Outcomes != 0 {
		t.Errorf("failed lookup must not produce outcomes, got %d", res.Outcomes)
	}
	if m.handle.Buffer().Len() != 1 {
		t.Errorf("instance should still be buffered")
	}
}

func TestProcess_DisabledTypeSkipped(t *testing.T) {
	h := newHarness(nil)
	h.store.types[attribute.Domain] = false
	m := startModule(t, h.svc, makeJob(t, 6, job.Flags{FlagUniqueArtifacts: true, SaveInstances: true}))

	res, err := m.Process(context.Background(), makeHistoryItem(t, 9, "example.org"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Claimed != 0 || h.finder.calls.Load() != 0 {
		t.Errorf("disabled type should not be claimed or looked up")
	}
}

func TestProcess_NoSaveInstances(t *testing.T) {
	h := newHarness(nil)
	m := startModule(t, h.svc, makeJob(t, 7, job.Flags{FlagNotable: true}))

	if _, err := m.Process(context.Background(), makeFileItem(t, 1, fileHash)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if m.handle.Buffer().Len() != 0 {
		t.Errorf("nothing should be buffered without saveInstances")
	}
}

func TestProcess_BeforeStartUp(t *testing.T) {
	h := newHarness(nil)
	_, err := h.svc.NewModule().Process(context.Background(), makeFileItem(t, 1, fileHash))
	if !errors.Is(err, domain.ErrJobNotActive) {
		t.Fatalf("err = %v, want ErrJobNotActive", err)
	}
}

func TestStartUp_PlatformMismatch(t *testing.T) {
	h := newHarness(nil)
	h.store.platform = domain.PlatformSingleUser
	j, err := job.New(job.Params{
		ID:              8,
		DataSourceObjID: 100,
		Case:            job.Case{UUID: "case-current"},
		MultiUser:       true,
	})
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}

	err = h.svc.NewModule().StartUp(context.Background(), j)
	if !errors.Is(err, domain.ErrPlatformMismatch) {
		t.Fatalf("err = %v, want ErrPlatformMismatch", err)
	}
	if h.store.caseCalls.Load() != 0 {
		t.Error("mismatch must be detected before setup")
	}
}

func TestShutDown_NotStartedIsNoop(t *testing.T) {
	h := newHarness(nil)
	td, err := h.svc.NewModule().ShutDown(context.Background())
	if err != nil || td.Last {
		t.Fatalf("ShutDown = %+v, %v", td, err)
	}
}

func TestProcess_ExtractionSkipsInvalidValues(t *testing.T) {
	h := newHarness(nil)
	m := startModule(t, h.svc, makeJob(t, 9, job.Flags{SaveInstances: true}))
	it, err := item.New(item.Params{
		ObjectID:     3,
		Kind:         item.KindArtifact,
		ArtifactType: item.ArtifactDeviceInfo,
		Fields: map[string]string{
			item.FieldIMEI:  "not-an-imei",
			item.FieldICCID: "89014103211118510720",
		},
	})
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}

	res, err := m.Process(context.Background(), it)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := ProcessResult{Attributes: 1, Claimed: 1}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}
}
