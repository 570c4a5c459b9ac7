package adjuster

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/policy"
	"github.com/viant/oomadj/service/uid"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type testGraph struct {
	processes   map[int]*record.Process
	uids        map[int]*record.Uid
	connections []record.Connection
	lru         []*record.Process
}

func newTestGraph() *testGraph {
	return &testGraph{processes: map[int]*record.Process{}, uids: map[int]*record.Uid{}}
}

func (g *testGraph) add(id int, name string, uidValue int) *record.Process {
	p := record.NewProcess(id, name, uidValue)
	g.processes[id] = p
	u, ok := g.uids[uidValue]
	if !ok {
		u = record.NewUid(uidValue)
		g.uids[uidValue] = u
	}
	u.AddProcess(p)
	g.lru = append(g.lru, p)
	return p
}

func (g *testGraph) bind(client, host *record.Process, flags model.BindFlag) *record.ServiceConnection {
	conn := record.NewServiceConnection(len(g.connections)+1, client.ID, host.ID, flags, &record.ServiceRecord{Name: host.Name + "/.Svc"})
	g.connections = append(g.connections, conn)
	return conn
}

func (g *testGraph) Process(id int) *record.Process { return g.processes[id] }

func (g *testGraph) Uid(uidValue int) *record.Uid { return g.uids[uidValue] }

func (g *testGraph) Connections(id int) []record.Connection {
	var ret []record.Connection
	for _, conn := range g.connections {
		if conn.Client() == id {
			ret = append(ret, conn)
		}
	}
	return ret
}

func (g *testGraph) ClientConnections(id int) []record.Connection {
	var ret []record.Connection
	for _, conn := range g.connections {
		if conn.Host() == id {
			ret = append(ret, conn)
		}
	}
	return ret
}

func newPass(seq int) *Pass {
	return &Pass{ID: "test", Seq: seq, Now: testNow, Reason: model.ReasonNone, TopProcState: model.ProcStateTop, Awake: true}
}

func visible(p *record.Process) {
	p.Components = &record.StaticComponents{VisibleActivities: true}
}

func TestAdjuster_FullUpdate_Seed(t *testing.T) {
	testCases := []struct {
		description     string
		setup           func(p *record.Process, pass *Pass)
		expectAdj       int
		expectProcState model.ProcState
		expectGroup     model.SchedGroup
		expectAdjType   string
		expectCaps      model.Capability
	}{
		{
			description:     "top activity",
			setup:           func(p *record.Process, pass *Pass) { pass.Top = p },
			expectAdj:       model.ForegroundAppAdj,
			expectProcState: model.ProcStateTop,
			expectGroup:     model.SchedGroupTopApp,
			expectAdjType:   "top-activity",
			expectCaps:      model.CapabilityAll | model.CapabilityCpuTime | model.CapabilityImplicitCpuTime,
		},
		{
			description:     "visible activity",
			setup:           func(p *record.Process, pass *Pass) { visible(p) },
			expectAdj:       model.VisibleAppAdj,
			expectProcState: model.ProcStateTop,
			expectGroup:     model.SchedGroupDefault,
			expectAdjType:   "vis-activity",
			expectCaps:      model.CapabilityAll | model.CapabilityCpuTime | model.CapabilityImplicitCpuTime,
		},
		{
			description: "foreground service",
			setup: func(p *record.Process, pass *Pass) {
				p.Services = []*record.ServiceRecord{{Name: "fgs", IsForeground: true}}
			},
			expectAdj:       model.PerceptibleAppAdj,
			expectProcState: model.ProcStateForegroundService,
			expectGroup:     model.SchedGroupDefault,
			expectAdjType:   "fg-service",
			expectCaps:      model.CapabilityBFSL | model.CapabilityNetwork | model.CapabilityCpuTime | model.CapabilityImplicitCpuTime,
		},
		{
			description:     "heavy weight",
			setup:           func(p *record.Process, pass *Pass) { p.Components = &record.StaticComponents{HeavyWeight: true} },
			expectAdj:       model.HeavyWeightAppAdj,
			expectProcState: model.ProcStateHeavyWeight,
			expectGroup:     model.SchedGroupBackground,
			expectAdjType:   "heavy",
			expectCaps:      model.CapabilityImplicitCpuTime,
		},
		{
			description:     "home",
			setup:           func(p *record.Process, pass *Pass) { p.Components = &record.StaticComponents{Home: true} },
			expectAdj:       model.HomeAppAdj,
			expectProcState: model.ProcStateHome,
			expectGroup:     model.SchedGroupBackground,
			expectAdjType:   "home",
			expectCaps:      model.CapabilityImplicitCpuTime,
		},
		{
			description: "recently active started service",
			setup: func(p *record.Process, pass *Pass) {
				p.Services = []*record.ServiceRecord{{Name: "sync", StartRequested: true, LastActivity: testNow.Add(-time.Minute)}}
			},
			expectAdj:       model.ServiceAdj,
			expectProcState: model.ProcStateService,
			expectGroup:     model.SchedGroupBackground,
			expectAdjType:   "started-services",
			expectCaps:      model.CapabilityImplicitCpuTime,
		},
		{
			description: "persistent system process",
			setup: func(p *record.Process, pass *Pass) {
				p.MaxAdj = model.PersistentProcAdj
			},
			expectAdj:       model.PersistentProcAdj,
			expectProcState: model.ProcStatePersistent,
			expectGroup:     model.SchedGroupDefault,
			expectAdjType:   "fixed",
			expectCaps:      model.CapabilityAll,
		},
		{
			description:     "recent task lands in the first cached slot",
			setup:           func(p *record.Process, pass *Pass) { p.Components = &record.StaticComponents{RecentTasks: true} },
			expectAdj:       model.CachedAppMinAdj,
			expectProcState: model.ProcStateCachedRecent,
			expectGroup:     model.SchedGroupBackground,
			expectAdjType:   "cch-rec",
		},
		{
			description:     "empty process lands in the first empty slot",
			setup:           func(p *record.Process, pass *Pass) {},
			expectAdj:       model.CachedAppMinAdj + 5,
			expectProcState: model.ProcStateCachedEmpty,
			expectGroup:     model.SchedGroupBackground,
			expectAdjType:   "cch-empty",
		},
	}
	for _, testCase := range testCases {
		graph := newTestGraph()
		p := graph.add(1, "com.example", 10001)
		pass := newPass(1)
		testCase.setup(p, pass)
		adjuster := New(policy.Default(), graph)
		adjuster.FullUpdate(pass, graph.lru)

		assert.Equal(t, testCase.expectAdj, p.CurAdj(), testCase.description)
		assert.Equal(t, testCase.expectProcState, p.CurProcState(), testCase.description)
		assert.Equal(t, testCase.expectGroup, p.CurSchedGroup(), testCase.description)
		assert.Equal(t, testCase.expectAdjType, p.AdjType, testCase.description)
		assert.Equal(t, testCase.expectCaps, p.CurCapability(), testCase.description)
		assert.Equal(t, p.CurAdj(), p.AppliedAdj, testCase.description)
		assert.Equal(t, p.CurProcState(), p.AppliedProcState, testCase.description)
		assert.Equal(t, pass.Seq, p.CompletedAdjSeq, testCase.description)
	}
}

func TestAdjuster_FullUpdate_ServiceBinding(t *testing.T) {
	graph := newTestGraph()
	host := graph.add(2, "host", 10002)
	client := graph.add(1, "client", 10001)
	visible(client)
	graph.bind(client, host, model.BindIncludeCapabilities)

	adjuster := New(policy.Default(), graph)
	result := adjuster.FullUpdate(newPass(1), graph.lru)

	assert.Equal(t, model.VisibleAppAdj, client.CurAdj())
	assert.Equal(t, model.VisibleAppAdj, host.CurAdj())
	assert.Equal(t, model.ProcStateBoundTop, host.CurProcState())
	assert.Equal(t, model.SchedGroupDefault, host.CurSchedGroup())
	assert.Equal(t, client.CurCapability(), host.CurCapability())
	assert.Equal(t, "service", host.AdjType)
	assert.Equal(t, "client", host.AdjSource)
	assert.Equal(t, "host/.Svc", host.AdjTarget)
	assert.True(t, host.CurBoundByNonBgRestricted)
	assert.Equal(t, 1, result.Edges)
	assert.Len(t, result.Changed, 2)
	require.Contains(t, result.UidChanges, 10002)
	assert.True(t, result.UidChanges[10002].Has(uid.ChangeUncached))
	assert.Equal(t, model.ProcStateBoundTop, graph.uids[10002].AppliedProcState)
}

func TestAdjuster_FullUpdate_SeedIsLowerBound(t *testing.T) {
	graph := newTestGraph()
	host := graph.add(2, "host", 10002)
	client := graph.add(1, "client", 10001)
	host.Services = []*record.ServiceRecord{{Name: "sync", StartRequested: true, LastActivity: testNow}}
	graph.bind(client, host, 0)

	adjuster := New(policy.Default(), graph)
	result := adjuster.FullUpdate(newPass(1), graph.lru)

	assert.Equal(t, model.ServiceAdj, host.CurAdj())
	assert.Equal(t, model.ProcStateService, host.CurProcState())
	assert.Equal(t, model.CachedAppMinAdj+5, client.CurAdj())
	assert.Equal(t, 0, result.Edges)
	assert.Equal(t, testNow.Add(30*time.Minute), result.FollowUp)
	assert.Equal(t, testNow.Add(30*time.Minute), host.FollowUpTime)
}

func buildOrderGraph() *testGraph {
	graph := newTestGraph()
	visibleClient := graph.add(1, "visible", 10001)
	fgsClient := graph.add(2, "fgs", 10002)
	shared := graph.add(3, "shared", 10003)
	provider := graph.add(4, "provider", 10004)
	leaf := graph.add(5, "leaf", 10005)
	visible(visibleClient)
	fgsClient.Services = []*record.ServiceRecord{{Name: "fgs", IsForeground: true}}
	graph.bind(visibleClient, shared, 0)
	graph.bind(visibleClient, leaf, model.BindNotForeground)
	graph.bind(fgsClient, shared, model.BindIncludeCapabilities|model.BindImportant)
	graph.bind(fgsClient, leaf, model.BindBypassPowerNetworkRestrictions)
	graph.connections = append(graph.connections, record.NewProviderConnection(10, shared.ID, provider.ID, "contacts"))
	return graph
}

func TestAdjuster_FullUpdate_OrderIndependent(t *testing.T) {
	reverse := func(connections []record.Connection) []record.Connection {
		for i, j := 0, len(connections)-1; i < j; i, j = i+1, j-1 {
			connections[i], connections[j] = connections[j], connections[i]
		}
		return connections
	}
	forward := buildOrderGraph()
	backward := buildOrderGraph()
	New(policy.Default(), forward).FullUpdate(newPass(1), forward.lru)
	New(policy.Default(), backward, WithVisitOrder(reverse)).FullUpdate(newPass(1), backward.lru)

	for id, expected := range forward.processes {
		actual := backward.processes[id]
		assert.Equal(t, expected.CurAdj(), actual.CurAdj(), expected.Name)
		assert.Equal(t, expected.CurProcState(), actual.CurProcState(), expected.Name)
		assert.Equal(t, expected.CurSchedGroup(), actual.CurSchedGroup(), expected.Name)
		assert.Equal(t, expected.CurCapability(), actual.CurCapability(), expected.Name)
	}
	assert.Equal(t, model.VisibleAppAdj, forward.processes[4].CurAdj(), "provider host follows its client")
	assert.Equal(t, model.ProcStateBoundForegroundService, forward.processes[4].CurProcState())
	assert.Equal(t, model.ProcStateForegroundService, forward.processes[5].CurProcState())
}

var sweepBindFlags = []model.BindFlag{
	0,
	model.BindWaivePriority,
	model.BindIncludeCapabilities,
	model.BindNotForeground,
	model.BindImportant,
	model.BindAboveClient,
	model.BindNotPerceptible,
	model.BindBypassPowerNetworkRestrictions,
	model.BindBypassUserNetworkRestrictions,
	model.BindImportantBackground,
	model.BindAllowOomManagement,
	model.BindIncludeCapabilities | model.BindNotForeground,
	model.BindImportant | model.BindBypassPowerNetworkRestrictions,
}

// buildRandomGraph returns the same graph and top process id for the same seed.
func buildRandomGraph(seed int64) (*testGraph, int) {
	rng := rand.New(rand.NewSource(seed))
	graph := newTestGraph()
	count := 3 + rng.Intn(6)
	for id := 1; id <= count; id++ {
		p := graph.add(id, fmt.Sprintf("p%d", id), 10000+id)
		switch rng.Intn(6) {
		case 1:
			visible(p)
		case 2:
			p.Services = []*record.ServiceRecord{{Name: "fgs", IsForeground: true}}
		case 3:
			p.Services = []*record.ServiceRecord{{Name: "sync", StartRequested: true, LastActivity: testNow.Add(-time.Minute)}}
		case 4:
			p.Components = &record.StaticComponents{HeavyWeight: true}
		}
	}
	top := 0
	if rng.Intn(2) == 0 {
		top = 1 + rng.Intn(count)
	}
	for i := 1 + rng.Intn(2*count); i > 0; i-- {
		client, host := graph.processes[1+rng.Intn(count)], graph.processes[1+rng.Intn(count)]
		if client == host {
			continue
		}
		if rng.Intn(3) == 0 {
			graph.connections = append(graph.connections, record.NewProviderConnection(len(graph.connections)+1, client.ID, host.ID, "provider"))
			continue
		}
		graph.bind(client, host, sweepBindFlags[rng.Intn(len(sweepBindFlags))])
	}
	return graph, top
}

func TestAdjuster_FullUpdate_OrderIndependentSweep(t *testing.T) {
	type outcome struct {
		adj        int
		procState  model.ProcState
		group      model.SchedGroup
		capability model.Capability
	}
	run := func(seed int64, order VisitOrder) map[int]outcome {
		graph, top := buildRandomGraph(seed)
		pass := newPass(1)
		pass.Top = graph.processes[top]
		var options []Option
		if order != nil {
			options = append(options, WithVisitOrder(order))
		}
		New(policy.Default(), graph, options...).FullUpdate(pass, graph.lru)
		ret := map[int]outcome{}
		for id, p := range graph.processes {
			ret[id] = outcome{adj: p.CurAdj(), procState: p.CurProcState(), group: p.CurSchedGroup(), capability: p.CurCapability()}
		}
		return ret
	}
	for seed := int64(1); seed <= 200; seed++ {
		expected := run(seed, nil)
		for shuffle := int64(1); shuffle <= 4; shuffle++ {
			rng := rand.New(rand.NewSource(seed*100 + shuffle))
			actual := run(seed, func(connections []record.Connection) []record.Connection {
				rng.Shuffle(len(connections), func(i, j int) {
					connections[i], connections[j] = connections[j], connections[i]
				})
				return connections
			})
			if !assert.Equal(t, expected, actual, "graph %d shuffle %d", seed, shuffle) {
				return
			}
		}
	}
}

func TestAdjuster_FullUpdate_CapabilityOrderIndependent(t *testing.T) {
	reverse := func(connections []record.Connection) []record.Connection {
		for i, j := 0, len(connections)-1; i < j; i, j = i+1, j-1 {
			connections[i], connections[j] = connections[j], connections[i]
		}
		return connections
	}
	testCases := []struct {
		description string
		build       func(graph *testGraph)
		expectCaps  model.Capability
	}{
		{
			description: "provider before a waived binding",
			build: func(graph *testGraph) {
				graph.connections = append(graph.connections, record.NewProviderConnection(1, 1, 2, "contacts"))
				graph.bind(graph.processes[1], graph.processes[2], model.BindWaivePriority)
			},
			expectCaps: model.CapabilityBFSL | model.CapabilityNetwork | model.CapabilityCpuTime | model.CapabilityImplicitCpuTime,
		},
		{
			description: "waived binding before a provider",
			build: func(graph *testGraph) {
				graph.bind(graph.processes[1], graph.processes[2], model.BindWaivePriority)
				graph.connections = append(graph.connections, record.NewProviderConnection(2, 1, 2, "contacts"))
			},
			expectCaps: model.CapabilityBFSL | model.CapabilityNetwork | model.CapabilityCpuTime | model.CapabilityImplicitCpuTime,
		},
		{
			description: "provider alone",
			build: func(graph *testGraph) {
				graph.connections = append(graph.connections, record.NewProviderConnection(1, 1, 2, "contacts"))
			},
			expectCaps: model.CapabilityBFSL | model.CapabilityNetwork | model.CapabilityCpuTime | model.CapabilityImplicitCpuTime,
		},
	}
	for _, testCase := range testCases {
		var hosts []*record.Process
		for _, order := range []VisitOrder{nil, reverse} {
			graph := newTestGraph()
			visible(graph.add(1, "client", 10001))
			hosts = append(hosts, graph.add(2, "host", 10002))
			testCase.build(graph)
			var options []Option
			if order != nil {
				options = append(options, WithVisitOrder(order))
			}
			New(policy.Default(), graph, options...).FullUpdate(newPass(1), graph.lru)
		}
		assert.Equal(t, model.ProcStateBoundTop, hosts[0].CurProcState(), testCase.description)
		assert.Equal(t, testCase.expectCaps, hosts[0].CurCapability(), testCase.description)
		assert.Equal(t, hosts[0].CurCapability(), hosts[1].CurCapability(), testCase.description)
	}
}

func TestAdjuster_FullUpdate_Idempotent(t *testing.T) {
	graph := buildOrderGraph()
	adjuster := New(policy.Default(), graph)
	adjuster.FullUpdate(newPass(1), graph.lru)
	type outcome struct {
		adj        int
		procState  model.ProcState
		capability model.Capability
	}
	first := map[int]outcome{}
	for id, p := range graph.processes {
		first[id] = outcome{adj: p.CurAdj(), procState: p.CurProcState(), capability: p.CurCapability()}
	}
	result := adjuster.FullUpdate(newPass(2), graph.lru)
	for id, p := range graph.processes {
		assert.Equal(t, first[id], outcome{adj: p.CurAdj(), procState: p.CurProcState(), capability: p.CurCapability()}, p.Name)
	}
	assert.Empty(t, result.Changed)
	assert.Empty(t, result.UidChanges)
}

func TestAdjuster_FullUpdate_UidFold(t *testing.T) {
	graph := newTestGraph()
	front := graph.add(1, "app", 10001)
	back := graph.add(2, "app:remote", 10001)
	visible(front)
	back.Services = []*record.ServiceRecord{{Name: "fgs", IsForeground: true}}

	New(policy.Default(), graph).FullUpdate(newPass(1), graph.lru)

	u := graph.uids[10001]
	assert.Equal(t, model.ProcStateTop, u.AppliedProcState)
	assert.Equal(t, front.CurCapability()|back.CurCapability(), u.AppliedCapability)
	assert.True(t, u.AppliedForegroundServices)
	assert.False(t, u.Idle)
}

func TestAdjuster_WouldRaise(t *testing.T) {
	graph := newTestGraph()
	host := graph.add(2, "host", 10002)
	client := graph.add(1, "client", 10001)
	visible(client)
	adjuster := New(policy.Default(), graph)
	adjuster.FullUpdate(newPass(1), graph.lru)

	conn := graph.bind(client, host, 0)
	before := host.State()
	var writes int
	host.SetObserver(record.ObserverFunc(func(*record.Process, record.Field, record.State) { writes++ }))

	assert.True(t, adjuster.WouldRaise(newPass(2), conn))
	assert.Equal(t, 0, writes)
	assert.Equal(t, before, host.State())
	assert.False(t, host.CurBoundByNonBgRestricted)
	_, trackedSeq := conn.TrackedProcState()
	assert.Equal(t, 0, trackedSeq)

	host.SetObserver(nil)
	adjuster.FullUpdate(newPass(3), graph.lru)
	assert.False(t, adjuster.WouldRaise(newPass(4), conn))
}

func TestAdjuster_PartialUpdate(t *testing.T) {
	graph := newTestGraph()
	host := graph.add(2, "host", 10002)
	client := graph.add(1, "client", 10001)
	visible(client)
	graph.bind(client, host, 0)
	adjuster := New(policy.Default(), graph)
	adjuster.FullUpdate(newPass(1), graph.lru)
	require.Equal(t, model.VisibleAppAdj, host.CurAdj())

	client.Components = &record.StaticComponents{}
	result := adjuster.PartialUpdate(newPass(2), graph.lru, []*record.Process{client})

	assert.ElementsMatch(t, []*record.Process{client, host}, result.Computed)
	assert.Equal(t, model.CachedAppMinAdj+5, client.CurAdj())
	assert.Equal(t, model.CachedAppMinAdj+15, host.CurAdj())
	assert.Equal(t, model.ProcStateCachedEmpty, host.CurProcState())
	assert.False(t, client.Reachable)
	assert.False(t, host.Reachable)
	assert.Equal(t, 2, host.CompletedAdjSeq)
	require.Contains(t, result.UidChanges, 10002)
	assert.True(t, result.UidChanges[10002].Has(uid.ChangeCached))
}

func TestAdjuster_PartialUpdate_LeavesUnreachableAlone(t *testing.T) {
	graph := newTestGraph()
	bystander := graph.add(3, "bystander", 10003)
	host := graph.add(2, "host", 10002)
	client := graph.add(1, "client", 10001)
	visible(bystander)
	graph.bind(client, host, 0)
	adjuster := New(policy.Default(), graph)
	adjuster.FullUpdate(newPass(1), graph.lru)

	visible(client)
	result := adjuster.PartialUpdate(newPass(2), graph.lru, []*record.Process{client})

	assert.Equal(t, model.VisibleAppAdj, host.CurAdj())
	assert.Equal(t, 1, bystander.CompletedAdjSeq)
	assert.NotContains(t, result.Computed, bystander)
	assert.NotContains(t, result.UidChanges, 10003)
}

func TestAdjuster_CollectReachable(t *testing.T) {
	graph := buildOrderGraph()
	adjuster := New(policy.Default(), graph)
	target := graph.processes[3]
	target.Reachable = true
	reachable := adjuster.collectReachable([]*record.Process{target})
	assert.ElementsMatch(t, []*record.Process{graph.processes[3], graph.processes[4]}, reachable)
	for id, p := range graph.processes {
		assert.Equal(t, id == 3 || id == 4, p.Reachable, p.Name)
	}
}
