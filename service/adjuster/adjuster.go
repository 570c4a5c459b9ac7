package adjuster

import (
	"log/slog"
	"time"

	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/policy"
	"github.com/viant/oomadj/service/freeze"
	"github.com/viant/oomadj/service/uid"
)

// Graph exposes the records a pass walks. Connections are looked up by
// process id in both directions.
type Graph interface {
	Process(id int) *record.Process
	Uid(uid int) *record.Uid
	// Connections returns the connections in which id is the client.
	Connections(id int) []record.Connection
	// ClientConnections returns the connections in which id is the host.
	ClientConnections(id int) []record.Connection
}

// VisitOrder may reorder the connections of one client before they are
// evaluated. The fixed point does not depend on it.
type VisitOrder func(connections []record.Connection) []record.Connection

// Pass carries the epoch and the global inputs of one update.
type Pass struct {
	ID           string
	Seq          int
	Now          time.Time
	Reason       model.Reason
	Top          *record.Process
	TopProcState model.ProcState
	Awake        bool
	Full         bool
}

// Result summarises a completed pass.
type Result struct {
	Pass *Pass
	// Computed holds the processes re-derived by the pass.
	Computed []*record.Process
	// Changed holds the processes whose applied values moved.
	Changed    []*record.Process
	UidChanges map[int]uid.Change
	Edges      int
	// FollowUp is the earliest time a seeded window expires, zero when none.
	FollowUp time.Time
}

// Adjuster runs update passes over a Graph. It is not safe for concurrent
// use; the owning service serialises passes.
type Adjuster struct {
	policy  *policy.Policy
	graph   Graph
	freezer *freeze.Policy
	uids    *uid.Aggregator
	order   VisitOrder
	logger  *slog.Logger

	pass       *Pass
	procStates *queue
	adjs       *queue
	touched    map[int]*record.Uid
	edges      int
	followUp   time.Time

	numServiceProcs    int
	newNumServiceProcs int
	newNumAService     int
	numCachedHidden    int
	numNonCached       int
	numEmpty           int
}

// New creates an adjuster over graph.
func New(p *policy.Policy, graph Graph, options ...Option) *Adjuster {
	if p == nil {
		p = policy.Default()
	}
	ret := &Adjuster{
		policy:  p,
		graph:   graph,
		freezer: freeze.New(p),
		uids:    uid.New(),
		logger:  slog.Default(),
	}
	ret.procStates = newQueue(func(p *record.Process) int { return int(p.CurProcState()) })
	ret.adjs = newQueue(func(p *record.Process) int { return p.CurRawAdj() })
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Policy returns the policy the adjuster was created with.
func (a *Adjuster) Policy() *policy.Policy {
	return a.policy
}

// Freezer returns the freeze policy applied at the end of each pass.
func (a *Adjuster) Freezer() *freeze.Policy {
	return a.freezer
}

// FullUpdate recomputes every process in lru, ordered least recently used first.
func (a *Adjuster) FullUpdate(pass *Pass, lru []*record.Process) *Result {
	pass.Full = true
	a.begin(pass)
	a.newNumServiceProcs = 0
	a.newNumAService = 0
	a.procStates.reset()
	a.adjs.reset()

	computed := make([]*record.Process, 0, len(lru))
	for i := len(lru) - 1; i >= 0; i-- {
		p := lru[i]
		p.ResetCachedInfo()
		if u := a.graph.Uid(p.UID); u != nil {
			a.uids.Reset(u)
		}
		a.seed(p, true)
		a.procStates.offer(p)
		computed = append(computed, p)
	}
	a.adjs.reset()
	a.computeConnections()
	a.settleCapabilities(computed)
	a.applyLruAdjust(lru)
	for _, p := range lru {
		a.ensureCompleted(p)
	}
	a.numServiceProcs = a.newNumServiceProcs
	return a.finish(lru, computed, nil)
}

// PartialUpdate recomputes targets and every process reachable from them.
// Processes outside that set keep their values and are read as fixed clients.
func (a *Adjuster) PartialUpdate(pass *Pass, lru []*record.Process, targets []*record.Process) *Result {
	pass.Full = false
	a.begin(pass)
	a.touched = map[int]*record.Uid{}
	defer func() { a.touched = nil }()

	reachables := make([]*record.Process, 0, len(targets))
	for _, target := range targets {
		if target.Reachable {
			continue
		}
		target.ResetCachedInfo()
		target.Reachable = true
		reachables = append(reachables, target)
	}
	targetCount := len(reachables)
	reachables = a.collectReachable(reachables)

	a.procStates.reset()
	a.initReachables(reachables, targetCount)
	a.adjs.reset()
	a.computeConnections()
	a.settleCapabilities(reachables)

	needLruAdjust := false
	for _, p := range reachables {
		p.Reachable = false
		p.CompletedAdjSeq = pass.Seq
		if a.needsLruAdjust(p.CurAdj()) {
			needLruAdjust = true
		}
		a.touch(p)
	}
	if needLruAdjust {
		a.applyLruAdjust(lru)
	}
	for _, u := range a.touched {
		a.uids.Rebuild(u)
	}
	return a.finish(lru, reachables, a.touched)
}

// WouldRaise reports, without mutating anything, whether conn would raise its
// host given the current client values.
func (a *Adjuster) WouldRaise(pass *Pass, conn record.Connection) bool {
	a.pass = pass
	host, client := a.graph.Process(conn.Host()), a.graph.Process(conn.Client())
	if host == nil || client == nil || host == client {
		return false
	}
	return conn.ComputeHostImportance(a, host, client, pass.Now, true)
}

func (a *Adjuster) begin(pass *Pass) {
	a.pass = pass
	a.edges = 0
	a.followUp = time.Time{}
}

func (a *Adjuster) needsLruAdjust(adj int) bool {
	t := &a.policy.Adj
	if adj >= t.Unknown {
		return true
	}
	if a.policy.PreviousLaddering && adj >= t.Previous && adj <= t.PreviousMax {
		return true
	}
	return a.policy.VisibleLaddering && adj >= t.Visible && adj <= t.VisibleMax
}

// collectReachable appends every host reachable from reachables, marking them.
func (a *Adjuster) collectReachable(reachables []*record.Process) []*record.Process {
	for i := 0; i < len(reachables); i++ {
		for _, conn := range a.graph.Connections(reachables[i].ID) {
			host := a.graph.Process(conn.Host())
			if host == nil || host.Reachable {
				continue
			}
			host.Reachable = true
			reachables = append(reachables, host)
		}
	}
	return reachables
}

func (a *Adjuster) initReachables(reachables []*record.Process, targetCount int) {
	i := 0
	initAll := false
	for ; i < targetCount && !initAll; i++ {
		target := reachables[i]
		prevProcState := target.CurProcState()
		prevAdj := target.CurRawAdj()
		prevCapability := target.CurCapability()
		prevShouldNotFreeze := target.ShouldNotFreeze()

		initAll = a.seedIgnoringReachables(target) || initAll
		initAll = selfImportanceLowered(target, prevProcState, prevAdj, prevCapability, prevShouldNotFreeze) || initAll
		a.procStates.offer(target)
		a.adjs.offer(target)
	}
	if !initAll {
		return
	}
	for ; i < len(reachables); i++ {
		reachable := reachables[i]
		reachable.ResetCachedInfo()
		a.seedIgnoringReachables(reachable)
		a.procStates.offer(reachable)
	}
}

// seedIgnoringReachables seeds p and applies the connections of clients that
// cannot change in this pass. It reports whether a client is itself reachable.
func (a *Adjuster) seedIgnoringReachables(p *record.Process) bool {
	a.seed(p, false)
	hasReachableClient := false
	for _, conn := range a.visit(a.graph.ClientConnections(p.ID)) {
		client := a.graph.Process(conn.Client())
		if client == nil || client == p {
			continue
		}
		if client.Reachable {
			hasReachableClient = true
			continue
		}
		if a.unimportant(conn, p, client) {
			continue
		}
		a.edges++
		conn.ComputeHostImportance(a, p, client, a.pass.Now, false)
	}
	return hasReachableClient
}

func selfImportanceLowered(p *record.Process, prevProcState model.ProcState, prevAdj int, prevCapability model.Capability, prevShouldNotFreeze bool) bool {
	switch {
	case p.CurProcState() > prevProcState:
		return true
	case p.CurRawAdj() > prevAdj:
		return true
	case p.CurCapability()&prevCapability != prevCapability:
		return true
	}
	return !p.ShouldNotFreeze() && prevShouldNotFreeze
}

// computeConnections drains the process state queue before the adj queue
// until both are empty.
func (a *Adjuster) computeConnections() {
	for {
		client := a.procStates.poll()
		if client == nil {
			client = a.adjs.poll()
		}
		if client == nil {
			return
		}
		a.computeHosts(client)
	}
}

func (a *Adjuster) computeHosts(client *record.Process) {
	client.CompletedAdjSeq = a.pass.Seq
	a.touch(client)
	for _, conn := range a.visit(a.graph.Connections(client.ID)) {
		host := a.graph.Process(conn.Host())
		if host == nil || host == client {
			continue
		}
		if a.isHighPriority(host) && allowSkipForScheduleLikeTop(conn, host) {
			continue
		}
		prevProcState := host.CurProcState()
		prevAdj := host.CurRawAdj()
		prevGroup := host.CurSchedGroup()
		prevCapability := host.CurCapability()
		prevShouldNotFreeze := host.ShouldNotFreeze()
		if a.unimportant(conn, host, client) {
			continue
		}
		a.edges++
		conn.ComputeHostImportance(a, host, client, a.pass.Now, false)
		if host.CurProcState() != prevProcState {
			a.procStates.offer(host)
		} else if host.CurSchedGroup() != prevGroup || host.CurCapability() != prevCapability ||
			host.ShouldNotFreeze() != prevShouldNotFreeze {
			// Same proc state, so re-offering keeps the host's position among
			// its peers while its own hosts see the new values.
			a.procStates.offer(host)
		}
		if host.CurRawAdj() != prevAdj {
			a.adjs.offer(host)
		}
	}
}

func (a *Adjuster) visit(connections []record.Connection) []record.Connection {
	if a.order == nil || len(connections) < 2 {
		return connections
	}
	return a.order(append([]record.Connection(nil), connections...))
}

func (a *Adjuster) touch(p *record.Process) {
	if a.touched == nil {
		return
	}
	if u := a.graph.Uid(p.UID); u != nil {
		a.touched[u.UID] = u
	}
}

func (a *Adjuster) isHighPriority(p *record.Process) bool {
	t := &a.policy.Adj
	persistentSystem := p.MaxAdj >= t.System && p.MaxAdj < t.Foreground
	effectivelyForeground := p.CurAdj() <= t.Foreground &&
		p.CurSchedGroup() > model.SchedGroupBackground &&
		p.CurProcState() <= model.ProcStateTop
	return persistentSystem || effectivelyForeground
}

// allowSkipForScheduleLikeTop keeps SCHEDULE_LIKE_TOP_APP bindings evaluated
// until the host has been marked.
func allowSkipForScheduleLikeTop(conn record.Connection, host *record.Process) bool {
	service, ok := conn.(*record.ServiceConnection)
	if !ok {
		return true
	}
	return !(service.Flags.Has(model.BindScheduleLikeTopApp) && !host.ScheduleLikeTopApp)
}

// unimportant reports whether host already holds everything client could give.
func (a *Adjuster) unimportant(conn record.Connection, host, client *record.Process) bool {
	if host.CurProcState() > client.CurProcState() {
		return false
	}
	if host.CurRawAdj() > client.CurRawAdj() {
		return false
	}
	if host.CurSchedGroup() < client.CurSchedGroup() {
		return false
	}
	hostCapability, clientCapability := host.CurCapability(), client.CurCapability()
	if hostCapability&clientCapability != clientCapability {
		if clientCapability.Has(model.CapabilityBFSL) && !hostCapability.Has(model.CapabilityBFSL) {
			return false
		}
		if conn.CanAffectCapabilities() {
			return false
		}
	}
	return host.ShouldNotFreeze() || !client.ShouldNotFreeze()
}

// ensureCompleted gives background defaults to a process the pass never stamped.
func (a *Adjuster) ensureCompleted(p *record.Process) {
	if p.CompletedAdjSeq == a.pass.Seq {
		return
	}
	p.AdjSeq = a.pass.Seq
	p.CompletedAdjSeq = a.pass.Seq
	p.SetCurSchedGroup(model.SchedGroupBackground)
	p.SetCurProcState(model.ProcStateCachedEmpty)
	p.SetCurRawProcState(model.ProcStateCachedEmpty, false)
	p.SetCurAdj(a.policy.Adj.CachedMax)
	p.SetCurRawAdj(a.policy.Adj.CachedMax, false)
	p.SetCurCapability(model.CapabilityNone)
	p.AdjType = "unreachable"
}

func (a *Adjuster) followUpAt(p *record.Process, at time.Time) {
	if !at.After(a.pass.Now) {
		return
	}
	if p.FollowUpTime.IsZero() || at.Before(p.FollowUpTime) {
		p.FollowUpTime = at
	}
	if a.followUp.IsZero() || at.Before(a.followUp) {
		a.followUp = at
	}
}
