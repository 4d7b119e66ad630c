package chi

import (
	"sync"

	"github.com/google/uuid"

	ingestuc "github.com/kailas-cloud/crossref/internal/usecase/ingest"
)

// workerRegistry maps worker ids handed to the pipeline to their modules.
type workerRegistry struct {
	mu      sync.Mutex
	modules map[string]*ingestuc.Module
}

func newWorkerRegistry() *workerRegistry {
	return &workerRegistry{modules: make(map[string]*ingestuc.Module)}
}

func (r *workerRegistry) add(m *ingestuc.Module) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.modules[id] = m
	r.mu.Unlock()
	return id
}

func (r *workerRegistry) get(id string) (*ingestuc.Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[id]
	return m, ok
}

// remove detaches the worker so that only one shutdown call can reach it.
func (r *workerRegistry) remove(id string) (*ingestuc.Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[id]
	delete(r.modules, id)
	return m, ok
}

func (r *workerRegistry) drain() []*ingestuc.Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ingestuc.Module, 0, len(r.modules))
	for id, m := range r.modules {
		out = append(out, m)
		delete(r.modules, id)
	}
	return out
}

func (r *workerRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.modules)
}
