package uid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
)

func newMember(u *record.Uid, id int, state model.ProcState, capability model.Capability) *record.Process {
	p := record.NewProcess(id, "p", u.UID)
	p.SetCurProcState(state)
	p.SetCurCapability(capability)
	u.AddProcess(p)
	return p
}

func TestAggregator_Rebuild(t *testing.T) {
	testCases := []struct {
		description string
		states      []model.ProcState
		caps        []model.Capability
	}{
		{
			description: "single process",
			states:      []model.ProcState{model.ProcStateService},
			caps:        []model.Capability{model.CapabilityNone},
		},
		{
			description: "best state and union of capabilities",
			states:      []model.ProcState{model.ProcStateCachedEmpty, model.ProcStateForegroundService, model.ProcStateHome},
			caps:        []model.Capability{model.CapabilityCpuTime, model.CapabilityForegroundLocation, model.CapabilityBFSL},
		},
		{
			description: "duplicate top members",
			states:      []model.ProcState{model.ProcStateTop, model.ProcStateTop},
			caps:        []model.Capability{model.CapabilityAll, model.CapabilityNone},
		},
	}
	aggregator := New()
	for _, testCase := range testCases {
		u := record.NewUid(10001)
		expectedState := model.ProcStateCachedEmpty
		expectedCaps := model.CapabilityNone
		for i, state := range testCase.states {
			newMember(u, i+1, state, testCase.caps[i])
			expectedState = expectedState.Better(state)
			expectedCaps |= testCase.caps[i]
		}
		aggregator.Rebuild(u)
		assert.Equal(t, expectedState, u.CurProcState, testCase.description)
		assert.Equal(t, expectedCaps, u.CurCapability, testCase.description)
	}
}

func TestAggregator_FoldSkipsUncomputed(t *testing.T) {
	u := record.NewUid(10001)
	p := record.NewProcess(1, "p", 10001)
	u.AddProcess(p)
	New().Rebuild(u)
	assert.Equal(t, model.ProcStateCachedEmpty, u.CurProcState)
}

func TestAggregator_Update(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	testCases := []struct {
		description string
		prepare     func(u *record.Uid)
		expected    Change
		verify      func(t *testing.T, u *record.Uid)
	}{
		{
			description: "first foreground pass",
			prepare: func(u *record.Uid) {
				u.CurProcState = model.ProcStateTop
				u.CurCapability = model.CapabilityAll
			},
			expected: ChangeActive | ChangeUncached | ChangeCapability | ChangeProcState,
			verify: func(t *testing.T, u *record.Uid) {
				assert.False(t, u.Idle)
				assert.True(t, u.LastBackgroundTime.IsZero())
			},
		},
		{
			description: "moving to background stamps the background time",
			prepare: func(u *record.Uid) {
				u.Idle, u.AppliedIdle = false, false
				u.AppliedProcState = model.ProcStateTop
				u.CurProcState = model.ProcStateCachedEmpty
			},
			expected: ChangeCached | ChangeProcState,
			verify: func(t *testing.T, u *record.Uid) {
				assert.Equal(t, now, u.LastBackgroundTime)
			},
		},
		{
			description: "externally idled background uid",
			prepare: func(u *record.Uid) {
				u.AppliedProcState = model.ProcStateCachedEmpty
				u.CurProcState = model.ProcStateCachedEmpty
				u.AppliedIdle = false
				u.LastBackgroundTime = now.Add(-time.Minute)
			},
			expected: ChangeIdle,
			verify: func(t *testing.T, u *record.Uid) {
				assert.Equal(t, now.Add(-time.Minute), u.LastBackgroundTime)
				assert.True(t, u.AppliedIdle)
			},
		},
		{
			description: "allowlisted background uid is active",
			prepare: func(u *record.Uid) {
				u.AppliedProcState = model.ProcStateService
				u.CurProcState = model.ProcStateService
				u.CurAllowListed = true
			},
			expected: ChangeActive,
		},
		{
			description: "adj change only",
			prepare: func(u *record.Uid) {
				u.Idle, u.AppliedIdle = false, false
				u.AppliedProcState = model.ProcStateTop
				u.CurProcState = model.ProcStateTop
				u.ProcAdjChanged = true
			},
			expected: ChangeProcAdj,
			verify: func(t *testing.T, u *record.Uid) {
				assert.False(t, u.ProcAdjChanged)
			},
		},
		{
			description: "nothing changed",
			prepare: func(u *record.Uid) {
				u.Idle, u.AppliedIdle = false, false
				u.AppliedProcState = model.ProcStateTop
				u.CurProcState = model.ProcStateTop
			},
			expected: ChangeNone,
		},
	}
	aggregator := New()
	for _, testCase := range testCases {
		u := record.NewUid(10001)
		testCase.prepare(u)
		actual := aggregator.Update(u, now)
		assert.Equal(t, testCase.expected, actual, testCase.description)
		assert.Equal(t, u.CurProcState, u.AppliedProcState, testCase.description)
		if testCase.verify != nil {
			testCase.verify(t, u)
		}
	}
}

func TestChange_String(t *testing.T) {
	assert.Equal(t, "none", ChangeNone.String())
	assert.Equal(t, "idle|procAdj", (ChangeIdle | ChangeProcAdj).String())
}
