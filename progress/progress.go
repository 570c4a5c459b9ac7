package progress

import (
	"sync"
	"time"
)

// Delta represents an incremental counter change reported after a pass.
type Delta struct {
	FullPasses    int
	PartialPasses int
	Computed      int
	Changed       int
	Edges         int
	Deltas        int
	// Seq and Reason describe the pass, when the delta comes from one.
	Seq    int
	Reason string
	At     time.Time
}

// Counters is a point-in-time copy of the tracker.
type Counters struct {
	StartedAt     time.Time
	FullPasses    int
	PartialPasses int
	Computed      int
	Changed       int
	Edges         int
	Deltas        int
	LastSeq       int
	LastReason    string
	LastPassAt    time.Time
}

// Passes returns the total number of passes.
func (c Counters) Passes() int {
	return c.FullPasses + c.PartialPasses
}

// Progress aggregates counters. It is safe for concurrent use.
type Progress struct {
	mu       sync.Mutex
	counters Counters
	onChange func(Counters)
}

// New creates a tracker started at startedAt.
func New(startedAt time.Time) *Progress {
	return &Progress{counters: Counters{StartedAt: startedAt}}
}

// Update applies the supplied delta. The callback, if any, receives a copy
// of the updated counters outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mu.Lock()
	c := &p.counters
	c.FullPasses += d.FullPasses
	c.PartialPasses += d.PartialPasses
	c.Computed += d.Computed
	c.Changed += d.Changed
	c.Edges += d.Edges
	c.Deltas += d.Deltas
	if d.Seq != 0 {
		c.LastSeq = d.Seq
		c.LastReason = d.Reason
		c.LastPassAt = d.At
	}
	snapshot := *c
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters.
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it.
func (p *Progress) OnChange(cb func(Counters)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}
