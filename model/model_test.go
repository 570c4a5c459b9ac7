package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatUID(t *testing.T) {
	testCases := []struct {
		description string
		uid         int
		expected    string
	}{
		{description: "system uid", uid: 1000, expected: "u0s1000"},
		{description: "app uid", uid: 10057, expected: "u0a57"},
		{description: "secondary user app", uid: 1010057, expected: "u10a57"},
		{description: "isolated uid", uid: 99003, expected: "u0i3"},
		{description: "negative uid", uid: -1, expected: "-1"},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, FormatUID(testCase.uid), testCase.description)
	}
}

func TestCapability_Summary(t *testing.T) {
	assert.Equal(t, "---------", CapabilityNone.Summary())
	assert.Equal(t, "LCMNFUA--", CapabilityAll.Summary())
	assert.Equal(t, "----F--TX", (CapabilityBFSL | CapabilityAllCpuTime).Summary())
	assert.True(t, CapabilityAll.Has(CapabilityAllImplicit))
	assert.False(t, CapabilityAllImplicit.Has(CapabilityAll))
}

func TestProcState(t *testing.T) {
	assert.Equal(t, "TOP ", ProcStateTop.String())
	assert.Equal(t, "CEM ", ProcStateCachedEmpty.String())
	assert.True(t, ProcStateCachedRecent.IsCached())
	assert.False(t, ProcStateLastActivity.IsCached())
	assert.Equal(t, ProcStateTop, ProcStateService.Better(ProcStateTop))
	assert.Equal(t, 19, int(ProcStateCachedEmpty))
}

func TestBindFlag(t *testing.T) {
	flags := BindImportant | BindAboveClient
	assert.True(t, flags.Has(BindImportant|BindWaivePriority))
	assert.True(t, flags.Lacks(BindWaivePriority|BindNotForeground))
	assert.Equal(t, "ABOVE_CLIENT|IMPORTANT", flags.String())
	assert.Equal(t, "0", BindFlag(0).String())
}

func TestFreezeReason_String(t *testing.T) {
	assert.Equal(t, "none", FreezeReasonNone.String())
	assert.Equal(t, "uid-allowlisted,keep-warm", (FreezeReasonKeepWarm | FreezeReasonUidAllowlisted).String())
}

func TestReason_String(t *testing.T) {
	assert.Equal(t, "bindService", ReasonBindService.String())
	assert.Equal(t, "reason(99)", Reason(99).String())
}

func TestParseSchedGroup(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		expect      SchedGroup
		expectErr   bool
	}{
		{description: "name", input: "top-app", expect: SchedGroupTopApp},
		{description: "dump letter", input: "F", expect: SchedGroupDefault},
		{description: "padded", input: " restricted ", expect: SchedGroupRestricted},
		{description: "unknown", input: "realtime", expectErr: true},
	}
	for _, testCase := range testCases {
		actual, err := ParseSchedGroup(testCase.input)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}
