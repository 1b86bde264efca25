package stress

import "sync"

// ReferenceMap is the mutex-guarded counter map a run is checked against.
type ReferenceMap struct {
	mu sync.Mutex
	m  map[string]int64
}

func NewReferenceMap() *ReferenceMap {
	return &ReferenceMap{m: make(map[string]int64)}
}

func (r *ReferenceMap) Add(key string, delta int64) {
	r.mu.Lock()
	r.m[key] += delta
	r.mu.Unlock()
}

// Snapshot returns a copy of the totals.
func (r *ReferenceMap) Snapshot() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.m))
	for k, v := range r.m {
		out[k] = v
	}
	return out
}
