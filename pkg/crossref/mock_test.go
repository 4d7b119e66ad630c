package crossref

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	dbBadger "github.com/kailas-cloud/crossref/internal/db/badger"
	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/datasource"
	"github.com/kailas-cloud/crossref/internal/domain/result"
)

// --- Mocks ---

type fakeCaseDB struct {
	mu          sync.Mutex
	results     []result.Result
	posted      int
	dataSources map[int64]datasource.DataSource
}

func (f *fakeCaseDB) Exists(_ context.Context, objID int64, typ result.Type, attrs []result.Attribute) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := result.Digest(attrs)
	for _, r := range f.results {
		if r.ObjID() == objID && r.Type() == typ && r.Digest() == d {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCaseDB) Create(_ context.Context, res result.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, res)
	return nil
}

func (f *fakeCaseDB) Post(_ context.Context, _ uuid.UUID, _ string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted++
	return nil
}

func (f *fakeCaseDB) DataSource(_ context.Context, objID int64) (datasource.DataSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.dataSources[objID]
	if !ok {
		return datasource.DataSource{}, domain.ErrNotFound
	}
	return ds, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []InboxMessage
}

func (n *fakeNotifier) PostMessage(_ context.Context, msg InboxMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

// --- Helpers ---

// newTestClient wires a client over an in-memory store. cases can be nil.
func newTestClient(t *testing.T, cases *fakeCaseDB, opts ...Option) *Client {
	t.Helper()
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	WithInMemory().apply(cfg)
	for _, o := range opts {
		o.apply(cfg)
	}

	store, err := dbBadger.Open(dbBadger.Config{InMemory: true})
	if err != nil {
		t.Fatalf("badger.Open: %v", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	var db caseDB
	if cases != nil {
		db = cases
	}
	c, err := wireClient(context.Background(), store, db, nil, cfg, obs)
	if err != nil {
		store.Close()
		t.Fatalf("wireClient: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}
