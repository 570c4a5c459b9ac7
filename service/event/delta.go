package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/viant/oomadj/model/record"
)

// Mode controls when the tracker emits deltas.
type Mode string

const (
	// ModePass collapses every write of a process within a pass into one
	// delta carrying only the fields whose values actually moved.
	ModePass Mode = "pass"
	// ModeAlways emits a delta for every setter call, changed or not.
	ModeAlways Mode = "always"
)

// ParseMode validates a textual mode, defaulting to ModePass.
func ParseMode(text string) (Mode, error) {
	switch Mode(text) {
	case "", ModePass:
		return ModePass, nil
	case ModeAlways:
		return ModeAlways, nil
	}
	return "", fmt.Errorf("unsupported delta mode: %q", text)
}

// Delta describes the observable change of one process.
type Delta struct {
	ProcessID int          `json:"processID"`
	Name      string       `json:"name"`
	UID       int          `json:"uid"`
	Fields    record.Field `json:"fields"`
	Before    record.State `json:"before"`
	After     record.State `json:"after"`
}

func (d *Delta) String() string {
	return fmt.Sprintf("%v #%v %v", d.Name, d.ProcessID, d.Fields)
}

type pendingDelta struct {
	process *record.Process
	before  record.State
	written record.Field
}

// Tracker is a record.Observer turning setter calls into deltas. Writes
// happen under the caller's locks, so events are only buffered there;
// Release delivers them once the caller let go of its locks.
type Tracker struct {
	mode      Mode
	publisher *Publisher[Delta]
	logger    *slog.Logger

	mux      sync.Mutex
	current  *Context
	pending  map[int]*pendingDelta
	order    []int
	outbox   []*Event[Delta]
	draining bool
	emitted  int
}

// NewTracker creates a tracker publishing to publisher.
func NewTracker(mode Mode, publisher *Publisher[Delta], logger *slog.Logger) *Tracker {
	if mode == "" {
		mode = ModePass
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		mode:      mode,
		publisher: publisher,
		logger:    logger,
		pending:   map[int]*pendingDelta{},
	}
}

// Mode returns the emission mode.
func (t *Tracker) Mode() Mode {
	return t.mode
}

// Begin sets the pass context stamped on events until the next Begin.
func (t *Tracker) Begin(ctx *Context) {
	t.mux.Lock()
	t.current = ctx
	t.mux.Unlock()
}

// OnChange implements record.Observer.
func (t *Tracker) OnChange(p *record.Process, field record.Field, before record.State) {
	t.mux.Lock()
	defer t.mux.Unlock()
	if t.mode == ModeAlways {
		delta := Delta{ProcessID: p.ID, Name: p.Name, UID: p.UID, Fields: field, Before: before, After: p.State()}
		t.outbox = append(t.outbox, NewEvent(t.current, delta))
		t.emitted++
		return
	}
	if entry, ok := t.pending[p.ID]; ok && entry.process == p {
		entry.written |= field
		return
	}
	t.pending[p.ID] = &pendingDelta{process: p, before: before, written: field}
	t.order = append(t.order, p.ID)
}

// Collect turns the writes since the previous collect into one delta per
// process, skipping processes whose observable state ended where it started,
// and queues them for Release. In ModeAlways it returns nil.
func (t *Tracker) Collect() []Delta {
	t.mux.Lock()
	defer t.mux.Unlock()
	pending, order := t.pending, t.order
	t.pending = map[int]*pendingDelta{}
	t.order = nil

	var deltas []Delta
	for _, id := range order {
		entry := pending[id]
		after := entry.process.State()
		fields := entry.before.Diff(after)
		if fields == record.FieldNone {
			continue
		}
		delta := Delta{
			ProcessID: entry.process.ID,
			Name:      entry.process.Name,
			UID:       entry.process.UID,
			Fields:    fields,
			Before:    entry.before,
			After:     after,
		}
		deltas = append(deltas, delta)
		t.outbox = append(t.outbox, NewEvent(t.current, delta))
	}
	t.emitted += len(deltas)
	return deltas
}

// Release publishes the queued events in order. It must be called without
// any lock a handler may take. A Release reached from a handler returns at
// once; the outer Release delivers what it queued.
func (t *Tracker) Release(ctx context.Context) error {
	t.mux.Lock()
	if t.draining {
		t.mux.Unlock()
		return nil
	}
	t.draining = true
	t.mux.Unlock()
	defer func() {
		if r := recover(); r != nil {
			t.mux.Lock()
			t.draining = false
			t.mux.Unlock()
			panic(r)
		}
	}()

	var errs []error
	for {
		event := t.next()
		if event == nil {
			return errors.Join(errs...)
		}
		if err := t.publisher.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish delta for %v: %w", event.Data.Name, err))
		}
	}
}

// next pops the oldest queued event; on an empty queue it ends the drain.
func (t *Tracker) next() *Event[Delta] {
	t.mux.Lock()
	defer t.mux.Unlock()
	if len(t.outbox) == 0 {
		t.outbox = nil
		t.draining = false
		return nil
	}
	event := t.outbox[0]
	t.outbox = t.outbox[1:]
	return event
}

// Flush collects and releases in one step, for callers holding no locks.
func (t *Tracker) Flush(ctx context.Context) ([]Delta, error) {
	deltas := t.Collect()
	return deltas, t.Release(ctx)
}

// Forget drops pending writes of a removed process.
func (t *Tracker) Forget(p *record.Process) {
	t.mux.Lock()
	defer t.mux.Unlock()
	entry, ok := t.pending[p.ID]
	if !ok || entry.process != p {
		return
	}
	delete(t.pending, p.ID)
	for i, id := range t.order {
		if id == p.ID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Emitted returns the number of deltas published so far.
func (t *Tracker) Emitted() int {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.emitted
}

var _ record.Observer = (*Tracker)(nil)
