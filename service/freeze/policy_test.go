package freeze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/policy"
)

func cachedProcess() *record.Process {
	p := record.NewProcess(1, "app", 10001)
	p.SetCurAdj(model.CachedAppMinAdj + 5)
	p.SetCurProcState(model.ProcStateCachedEmpty)
	return p
}

func TestPolicy_Evaluate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	testCases := []struct {
		description string
		cpuBased    bool
		prepare     func(p *record.Process)
		expected    Decision
	}{
		{
			description: "plain cached process freezes",
			prepare:     func(p *record.Process) {},
			expected:    Decision{Freeze: true},
		},
		{
			description: "visible process is not frozen",
			prepare:     func(p *record.Process) { p.SetCurAdj(model.VisibleAppAdj) },
			expected:    Decision{},
		},
		{
			description: "reasons accumulate",
			prepare: func(p *record.Process) {
				p.SetShouldNotFreeze(true, false, model.FreezeReasonBindWaivePriority, 1)
				p.PendingFinishAttach = true
				p.LastTopTime = now.Add(-time.Second)
			},
			expected: Decision{
				Exempt:  true,
				Reasons: model.FreezeReasonBindWaivePriority | model.FreezeReasonPendingFinishAttach | model.FreezeReasonRecentTop,
			},
		},
		{
			description: "recent top outside debounce",
			prepare:     func(p *record.Process) { p.LastTopTime = now.Add(-time.Minute) },
			expected:    Decision{Freeze: true},
		},
		{
			description: "keep warm service",
			prepare: func(p *record.Process) {
				p.Services = []*record.ServiceRecord{{Name: "a"}, {Name: "b", KeepWarming: true}}
			},
			expected: Decision{Exempt: true, Reasons: model.FreezeReasonKeepWarm},
		},
		{
			description: "executing service",
			prepare:     func(p *record.Process) { p.NumExecutingServices = 1 },
			expected:    Decision{Exempt: true, Reasons: model.FreezeReasonStartedServices},
		},
		{
			description: "explicit exemption",
			prepare:     func(p *record.Process) { p.FreezeExempt = true },
			expected:    Decision{Exempt: true},
		},
		{
			description: "cpu based policy ignores adj",
			cpuBased:    true,
			prepare:     func(p *record.Process) { p.SetCurAdj(model.VisibleAppAdj) },
			expected:    Decision{Freeze: true},
		},
		{
			description: "cpu based policy keeps cpu time holders",
			cpuBased:    true,
			prepare:     func(p *record.Process) { p.SetCurCapability(model.CapabilityImplicitCpuTime) },
			expected:    Decision{},
		},
	}
	for _, testCase := range testCases {
		pol := policy.Default()
		pol.CpuTimeCapabilityBasedFreeze = testCase.cpuBased
		freezer := New(pol)
		p := cachedProcess()
		testCase.prepare(p)

		dry := freezer.Evaluate(p, now, true)
		assert.Equal(t, testCase.expected, dry, testCase.description)
		assert.False(t, p.PendingFreeze, testCase.description)

		actual := freezer.Evaluate(p, now, false)
		assert.Equal(t, dry, actual, testCase.description)
		assert.Equal(t, testCase.expected.Freeze, p.PendingFreeze, testCase.description)
	}
}

func TestPolicy_MarkFrozen(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	freezer := New(policy.Default())
	p := cachedProcess()
	freezer.Evaluate(p, now, false)
	freezer.MarkFrozen(p)
	assert.True(t, p.Frozen)
	assert.False(t, p.PendingFreeze)

	freezer.Evaluate(p, now, false)
	assert.False(t, p.PendingFreeze, "already frozen")

	p.SetCurAdj(model.ForegroundAppAdj)
	freezer.Evaluate(p, now, false)
	assert.False(t, p.Frozen)
}
