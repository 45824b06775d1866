package analytics

import (
	"sync"
)

// Recomputer runs compute passes per key (usually a user ID) and discards
// the result of any pass that was superseded by a newer snapshot before it
// finished. There is no cancellation; the newest pass simply wins.
//
// Only keys with a pass in flight are tracked, so a long-lived instance does
// not grow with the number of users it has served.
type Recomputer struct {
	compute func(Snapshot, Request) *Report

	mu sync.Mutex
	// seq numbers passes across all keys. It never repeats, so a pass that
	// finishes after its key was dropped cannot be mistaken for the newest.
	seq    uint64
	newest map[string]uint64
}

func NewRecomputer(engine *Engine) *Recomputer {
	return &Recomputer{
		compute: engine.Compute,
		newest:  make(map[string]uint64),
	}
}

// Recompute computes a report for key. fresh is false when another
// Recompute for the same key started after this one; the returned report is
// then the stale result and must not be published.
func (r *Recomputer) Recompute(key string, snap Snapshot, req Request) (report *Report, fresh bool) {
	r.mu.Lock()
	r.seq++
	pass := r.seq
	r.newest[key] = pass
	r.mu.Unlock()

	report = r.compute(snap, req)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.newest[key] != pass {
		return report, false
	}
	delete(r.newest, key)
	return report, true
}

// inFlight reports how many keys have a pass that has not finished.
func (r *Recomputer) inFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.newest)
}
