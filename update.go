package oomadj

import (
	"context"
	"log/slog"
	"time"

	"github.com/viant/oomadj/internal/clock"
	"github.com/viant/oomadj/internal/idgen"
	"github.com/viant/oomadj/metrics"
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/progress"
	"github.com/viant/oomadj/service/adjuster"
	"github.com/viant/oomadj/service/event"
	"github.com/viant/oomadj/service/session"
	"github.com/viant/oomadj/tracing"
)

// StartBatchSession opens a batch session. Updates requested until the
// outermost guard closes are coalesced into one pass, run with reason.
func (s *Service) StartBatchSession(reason model.Reason) *session.Guard {
	return s.session.Start(reason)
}

// SetFullUpdate makes the open batch session release a full pass.
func (s *Service) SetFullUpdate() {
	s.session.SetFullUpdate()
}

// Enqueue defers fn to the close of the outermost batch session. Outside a
// session fn runs immediately. fn runs without any service lock held.
func (s *Service) Enqueue(fn func()) {
	s.session.Enqueue(fn)
}

// Stage holds fn until the start of the next update pass.
func (s *Service) Stage(fn func()) {
	s.session.Stage(fn)
}

// RunBatch implements session.Runner.
func (s *Service) RunBatch(batch *session.Batch) {
	for _, fn := range batch.Work {
		fn()
	}
	switch {
	case batch.Full:
		s.runUpdate(true, batch.Reason)
	case batch.Update:
		s.runUpdate(false, batch.Reason)
	}
}

// EnqueueUpdateTarget marks id for the next partial pass.
func (s *Service) EnqueueUpdateTarget(id int) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	p, err := s.registry.load(id)
	if err != nil {
		return err
	}
	s.enqueue(p)
	return nil
}

// RemoveUpdateTarget drops id from the pending targets. A process that died
// is also forgotten by the delta tracker.
func (s *Service) RemoveUpdateTarget(id int, died bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	p, ok := s.pending.Get(id)
	if !ok {
		return
	}
	_ = s.pending.Delete(context.Background(), id)
	if died {
		s.tracker.Forget(p)
	}
}

// RunUpdate recomputes id together with every pending target and everything
// reachable from them. Inside a batch session the pass is deferred.
func (s *Service) RunUpdate(id int, reason model.Reason) error {
	if err := s.EnqueueUpdateTarget(id); err != nil {
		return err
	}
	s.session.RunUpdate(reason)
	return nil
}

// RunPendingUpdate recomputes the pending targets, if any.
func (s *Service) RunPendingUpdate(reason model.Reason) {
	s.session.RunUpdate(reason)
}

// RunFullUpdate recomputes every process. Inside a batch session the pass is
// deferred to the outermost close.
func (s *Service) RunFullUpdate(reason model.Reason) {
	if s.session.Active() {
		s.session.SetFullUpdate()
		s.session.RunUpdate(reason)
		return
	}
	s.runUpdate(true, reason)
}

// RunFollowUpUpdate recomputes the processes whose time windows expired.
// It reports whether a pass ran.
func (s *Service) RunFollowUpUpdate() bool {
	s.mux.Lock()
	now := clock.Now()
	if s.followUp.IsZero() || now.Before(s.followUp) {
		s.mux.Unlock()
		return false
	}
	due, _ := s.registry.processes.List(context.Background(), func(p *record.Process) bool {
		return !p.FollowUpTime.IsZero() && !now.Before(p.FollowUpTime)
	})
	for _, p := range due {
		s.enqueue(p)
	}
	s.followUp = time.Time{}
	s.mux.Unlock()
	if len(due) == 0 {
		return false
	}
	s.session.RunUpdate(model.ReasonFollowUp)
	return true
}

// NextFollowUp returns when RunFollowUpUpdate is next due, zero when nothing waits.
func (s *Service) NextFollowUp() time.Time {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.followUp
}

// enqueue requires mux.
func (s *Service) enqueue(p *record.Process) {
	_ = s.pending.Save(context.Background(), p)
}

func (s *Service) runUpdate(full bool, reason model.Reason) *adjuster.Result {
	for _, fn := range s.session.DrainStaged() {
		fn()
	}
	s.lock()
	result, deltas := s.runPass(context.Background(), full, reason)
	s.unlock()
	if result != nil {
		s.logger.Debug("update completed",
			slog.String("reason", reason.String()),
			slog.Int("seq", result.Pass.Seq),
			slog.Int("visited", len(result.Computed)),
			slog.Int("changed", len(result.Changed)),
			slog.Int("deltas", len(deltas)))
	}
	return result
}

// runPass requires both locks; its deltas are delivered by unlock. A partial
// pass with no pending target is skipped.
func (s *Service) runPass(ctx context.Context, full bool, reason model.Reason) (*adjuster.Result, []event.Delta) {
	var targets []*record.Process
	if !full {
		targets = s.pending.Values()
		if len(targets) == 0 {
			return nil, nil
		}
	}
	for _, key := range s.pending.Keys() {
		_ = s.pending.Delete(ctx, key)
	}

	started := time.Now()
	s.seq++
	pass := &adjuster.Pass{
		ID:           idgen.New(),
		Seq:          s.seq,
		Now:          clock.Now(),
		Reason:       reason,
		Top:          s.registry.Process(s.topID),
		TopProcState: s.topProcState,
		Awake:        s.awake,
	}
	ctx, span := tracing.StartPass(ctx, full, pass.ID, pass.Seq, reason.String())
	s.tracker.Begin(&event.Context{PassID: pass.ID, Seq: pass.Seq, Reason: reason.String(), Full: full})

	lru := s.registry.lru()
	var result *adjuster.Result
	kind := metrics.KindPartial
	if full {
		kind = metrics.KindFull
		result = s.adjuster.FullUpdate(pass, lru)
	} else {
		result = s.adjuster.PartialUpdate(pass, lru, targets)
	}
	s.freezePending(result)

	deltas := s.tracker.Collect()
	s.followUp = s.nextFollowUp()
	s.last = result

	span.WithInt("visited", len(result.Computed)).WithInt("changed", len(result.Changed))
	tracing.EndSpan(span, nil)
	elapsed := time.Since(started)
	s.metrics.ObservePass(kind, elapsed, len(result.Changed), result.Edges)
	s.metrics.ObserveDeltas(len(deltas))
	s.metrics.SetProcesses(len(lru))
	delta := progress.Delta{
		Computed: len(result.Computed),
		Changed:  len(result.Changed),
		Edges:    result.Edges,
		Deltas:   len(deltas),
		Seq:      pass.Seq,
		Reason:   reason.String(),
		At:       pass.Now,
	}
	if full {
		delta.FullPasses = 1
	} else {
		delta.PartialPasses = 1
	}
	s.progress.Update(delta)
	return result, deltas
}

// freezePending completes the freezes decided by the pass; there is no
// external freezer to confirm them.
func (s *Service) freezePending(result *adjuster.Result) {
	freezer := s.adjuster.Freezer()
	for _, p := range result.Computed {
		freezer.MarkFrozen(p)
	}
}

func (s *Service) nextFollowUp() time.Time {
	var next time.Time
	for _, p := range s.registry.lru() {
		if p.FollowUpTime.IsZero() {
			continue
		}
		if next.IsZero() || p.FollowUpTime.Before(next) {
			next = p.FollowUpTime
		}
	}
	return next
}

var _ session.Runner = (*Service)(nil)
