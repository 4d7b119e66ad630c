package ingest

import (
	"sync"

	"github.com/kailas-cloud/crossref/internal/domain/attribute"
)

// DedupSet records the (type, value) pairs already scored in a job.
// Safe for concurrent use by every worker of the job.
type DedupSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupSet creates an empty set.
func NewDedupSet() *DedupSet {
	return &DedupSet{seen: make(map[string]struct{})}
}

// TryClaim returns true only for the first claim of a's type and value.
func (d *DedupSet) TryClaim(a attribute.Attribute) bool {
	key := a.Key()
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Len returns the number of claimed pairs.
func (d *DedupSet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
