package oomadj

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/oomadj/internal/clock"
	"github.com/viant/oomadj/metrics"
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/policy"
	"github.com/viant/oomadj/progress"
	"github.com/viant/oomadj/service/adjuster"
	"github.com/viant/oomadj/service/dao/store"
	"github.com/viant/oomadj/service/event"
	"github.com/viant/oomadj/service/session"
	"golang.org/x/time/rate"
)

// Service is the process importance controller.
//
// Two locks guard it. mux covers the graph: registry, pending targets,
// sequence numbers and sessions bookkeeping. procMux covers the observable
// process fields. Writers hold both, always taking mux first; readers of
// process state may hold either, so Snapshot only contends with passes and
// writes, never with graph-only work.
type Service struct {
	mux     sync.Mutex
	procMux sync.RWMutex

	policy   *policy.Policy
	logger   *slog.Logger
	registry *registry
	adjuster *adjuster.Adjuster
	session  *session.Session
	pending  *store.Table[int, record.Process]

	publisher *event.Publisher[event.Delta]
	tracker   *event.Tracker
	listener  *event.Listener[event.Delta]
	events    event.Config

	metrics    *metrics.Collectors
	registerer prometheus.Registerer
	progress   *progress.Progress
	tracing    *TracingConfig

	visitOrder adjuster.VisitOrder
	limiter    *rate.Limiter

	seq          int
	lruSeq       int
	topID        int
	topProcState model.ProcState
	awake        bool
	currentUser  int
	followUp     time.Time
	receivers    map[int]int
	last         *adjuster.Result
}

// New creates a service.
func New(options ...Option) *Service {
	ret := &Service{
		topProcState: model.ProcStateTop,
		awake:        true,
		events:       event.DefaultConfig(),
		receivers:    map[int]int{},
	}
	ret.init(options)
	return ret
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	s.registry = newRegistry()
	s.pending = store.NewTable[int, record.Process](func(p *record.Process) int { return p.ID })
	adjusterOptions := []adjuster.Option{adjuster.WithLogger(s.logger)}
	if s.visitOrder != nil {
		adjusterOptions = append(adjusterOptions, adjuster.WithVisitOrder(s.visitOrder))
	}
	s.adjuster = adjuster.New(s.policy, s.registry, adjusterOptions...)
	sessionOptions := []session.Option{session.WithLogger(s.logger)}
	if s.limiter != nil {
		sessionOptions = append(sessionOptions, session.WithLimiter(s.limiter))
	}
	s.session = session.New(s, sessionOptions...)
	mode, _ := event.ParseMode(s.events.Mode)
	if s.publisher == nil {
		s.publisher = s.events.NewDeltaPublisher()
	}
	s.tracker = event.NewTracker(mode, s.publisher, s.logger)
	s.progress = progress.New(clock.Now())
	if s.registerer != nil {
		s.metrics = metrics.New()
		if err := s.metrics.Register(s.registerer); err != nil {
			s.logger.Warn("failed to register metrics", "error", err)
		}
	}
	if s.tracing != nil && s.tracing.Enabled {
		if err := s.tracing.init(); err != nil {
			s.logger.Warn("failed to initialise tracing", "error", err)
		}
	}
}

func (s *Service) ensureBaseSetup() {
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.policy == nil {
		s.policy = policy.Default()
	}
}

func (s *Service) lock() {
	s.mux.Lock()
	s.procMux.Lock()
}

// unlock releases both locks, then delivers the deltas written while they
// were held, so handlers may call back into the service.
func (s *Service) unlock() {
	s.procMux.Unlock()
	s.mux.Unlock()
	if err := s.tracker.Release(context.Background()); err != nil {
		s.logger.Warn("failed to publish deltas", "error", err)
	}
}

// Policy returns the policy the service runs with.
func (s *Service) Policy() *policy.Policy {
	return s.policy
}

// Progress returns the pass counters.
func (s *Service) Progress() *progress.Progress {
	return s.progress
}

// Subscribe registers a handler receiving every published delta, in
// registration order, synchronously with the pass that produced it.
func (s *Service) Subscribe(handler event.Handler[event.Delta]) func() {
	return s.publisher.Subscribe(handler)
}

// Listen starts draining the async delta queue into handler until Close.
// It returns false when events are not async or a listener already runs.
func (s *Service) Listen(ctx context.Context, handler event.Handler[event.Delta]) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	if !s.events.Async || s.listener != nil {
		return false
	}
	s.listener = event.NewListener(s.publisher, handler, s.logger)
	s.listener.Start(ctx)
	return true
}

// Seq returns the sequence number of the last pass.
func (s *Service) Seq() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.seq
}

// LastResult returns the summary of the last pass, nil before the first one.
func (s *Service) LastResult() *adjuster.Result {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.last
}

// Process returns the process registered under id.
func (s *Service) Process(id int) (*record.Process, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.registry.load(id)
}

// Processes returns the registered processes, least recently used first.
func (s *Service) Processes() []*record.Process {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.registry.lru()
}

// Uid returns the uid record, nil when no process runs under uid.
func (s *Service) Uid(uid int) *record.Uid {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.registry.Uid(uid)
}

// Snapshot returns the observable state of a process. It only takes the
// process lock, so it does not wait for graph mutations.
func (s *Service) Snapshot(id int) (record.State, bool) {
	s.procMux.RLock()
	defer s.procMux.RUnlock()
	p := s.registry.Process(id)
	if p == nil {
		return record.State{}, false
	}
	return p.State(), true
}

// Connections returns the connections in which id is the client.
func (s *Service) Connections(id int) []record.Connection {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]record.Connection(nil), s.registry.Connections(id)...)
}

// ClientConnections returns the connections in which id is the host.
func (s *Service) ClientConnections(id int) []record.Connection {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]record.Connection(nil), s.registry.ClientConnections(id)...)
}

// Close stops the async delta listener started by Listen, if any.
func (s *Service) Close() {
	s.mux.Lock()
	listener := s.listener
	s.listener = nil
	s.mux.Unlock()
	if listener != nil {
		listener.Stop()
	}
}
