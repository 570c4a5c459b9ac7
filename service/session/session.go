package session

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/viant/oomadj/model"
	"golang.org/x/time/rate"
)

// Batch is the work released by the outermost Close, or by a request made
// outside a session.
type Batch struct {
	Reason model.Reason
	// Full requests an update over every process.
	Full bool
	// Update requests an update over the pending targets.
	Update bool
	// Work holds enqueued functions, run before the update.
	Work []func()
}

// Empty reports whether the batch has nothing to run.
func (b *Batch) Empty() bool {
	return !b.Full && !b.Update && len(b.Work) == 0
}

// Runner executes released batches. The session never holds its own lock
// while calling it.
type Runner interface {
	RunBatch(batch *Batch)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(batch *Batch)

func (f RunnerFunc) RunBatch(batch *Batch) {
	f(batch)
}

// Session is a nestable batch marker.
type Session struct {
	runner  Runner
	logger  *slog.Logger
	limiter *rate.Limiter

	mux       sync.Mutex
	nesting   int
	reason    model.Reason
	full      bool
	runUpdate bool
	work      []func()
	staged    []func()
}

// New creates a session releasing batches to runner.
func New(runner Runner, options ...Option) *Session {
	ret := &Session{
		runner:  runner,
		logger:  slog.Default(),
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Start opens a session, or nests into the active one. The reason is kept
// only for the outermost start.
func (s *Session) Start(reason model.Reason) *Guard {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.nesting == 0 {
		s.reason = reason
		s.full = false
		s.runUpdate = false
	}
	s.nesting++
	return &Guard{session: s}
}

// Active reports whether a session is open.
func (s *Session) Active() bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.nesting > 0
}

// Nesting returns the current nesting depth.
func (s *Session) Nesting() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.nesting
}

// SetFullUpdate makes the outermost close run a full update. It is ignored
// outside a session.
func (s *Session) SetFullUpdate() {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.nesting > 0 {
		s.full = true
	}
}

// RunUpdate requests an update over the pending targets. Inside a session it
// is deferred to the outermost close; otherwise it runs now with reason.
func (s *Session) RunUpdate(reason model.Reason) {
	s.mux.Lock()
	if s.nesting > 0 {
		s.runUpdate = true
		s.mux.Unlock()
		return
	}
	s.mux.Unlock()
	s.runner.RunBatch(&Batch{Reason: reason, Update: true})
}

// Enqueue defers fn to the outermost close, or runs it now outside a session.
func (s *Session) Enqueue(fn func()) {
	s.mux.Lock()
	if s.nesting > 0 {
		s.work = append(s.work, fn)
		s.mux.Unlock()
		return
	}
	s.mux.Unlock()
	s.runner.RunBatch(&Batch{Work: []func(){fn}})
}

// Stage holds fn until the next update, whichever triggers it.
func (s *Session) Stage(fn func()) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.staged = append(s.staged, fn)
}

// DrainStaged returns and clears the staged functions.
func (s *Session) DrainStaged() []func() {
	s.mux.Lock()
	defer s.mux.Unlock()
	staged := s.staged
	s.staged = nil
	return staged
}

func (s *Session) close() {
	s.mux.Lock()
	if s.nesting == 0 {
		s.mux.Unlock()
		s.unstarted()
		return
	}
	s.nesting--
	if s.nesting > 0 {
		s.mux.Unlock()
		return
	}
	batch := &Batch{Reason: s.reason, Full: s.full, Update: s.runUpdate, Work: s.work}
	s.work = nil
	s.full = false
	s.runUpdate = false
	s.mux.Unlock()
	if batch.Empty() {
		return
	}
	s.runner.RunBatch(batch)
}

func (s *Session) unstarted() {
	if !s.limiter.Allow() {
		return
	}
	s.logger.Error("close called on an unstarted batch session", "wtf", true, "stack", string(debug.Stack()))
}

// Guard closes one level of a session.
type Guard struct {
	session *Session
	once    sync.Once
}

// Close decrements the session. Closing a guard twice is reported like
// closing an unstarted session.
func (g *Guard) Close() {
	first := false
	g.once.Do(func() { first = true })
	if !first {
		g.session.unstarted()
		return
	}
	g.session.close()
}
