package record

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/oomadj/internal/clock"
	"github.com/viant/oomadj/model"
)

func TestServiceConnection_CpuTimeTransmission(t *testing.T) {
	testCases := []struct {
		description  string
		flags        model.BindFlag
		ongoingCalls bool
		expected     model.TransmissionType
	}{
		{description: "default flags", expected: model.TransmissionNormal},
		{description: "allow freeze", flags: model.BindAllowFreeze, expected: model.TransmissionNone},
		{description: "simulate allow freeze", flags: model.BindSimulateAllowFreeze, expected: model.TransmissionLegacy},
		{description: "both freeze flags", flags: model.BindAllowFreeze | model.BindSimulateAllowFreeze, expected: model.TransmissionNone},
		{description: "ongoing call overrides allow freeze", flags: model.BindAllowFreeze, ongoingCalls: true, expected: model.TransmissionNormal},
		{description: "ongoing call overrides simulate", flags: model.BindSimulateAllowFreeze, ongoingCalls: true, expected: model.TransmissionNormal},
	}
	for _, testCase := range testCases {
		conn := NewServiceConnection(1, 1, 2, testCase.flags, &ServiceRecord{Name: "svc"})
		conn.SetOngoingCalls(testCase.ongoingCalls)
		assert.Equal(t, testCase.expected, conn.CpuTimeTransmission(), testCase.description)
	}
}

func TestServiceConnection_CanAffectCapabilities(t *testing.T) {
	testCases := []struct {
		description string
		flags       model.BindFlag
		expected    bool
	}{
		{description: "no flags", expected: false},
		{description: "important only", flags: model.BindImportant, expected: false},
		{description: "include capabilities", flags: model.BindIncludeCapabilities, expected: true},
		{description: "power network bypass", flags: model.BindBypassPowerNetworkRestrictions, expected: true},
		{description: "user network bypass", flags: model.BindBypassUserNetworkRestrictions, expected: true},
	}
	for _, testCase := range testCases {
		conn := NewServiceConnection(1, 1, 2, testCase.flags, nil)
		assert.Equal(t, testCase.expected, conn.CanAffectCapabilities(), testCase.description)
	}
	provider := NewProviderConnection(2, 1, 2, "contacts")
	assert.False(t, provider.CanAffectCapabilities())
	assert.Equal(t, model.TransmissionNormal, provider.CpuTimeTransmission())
}

func TestServiceConnection_SetOngoingCalls(t *testing.T) {
	conn := NewServiceConnection(1, 1, 2, 0, nil)
	assert.False(t, conn.SetOngoingCalls(false))
	assert.True(t, conn.SetOngoingCalls(true))
	assert.True(t, conn.OngoingCalls())
	assert.False(t, conn.SetOngoingCalls(true))
}

type recordingComputer struct {
	service  int
	provider int
}

func (r *recordingComputer) ComputeServiceHost(*ServiceConnection, *Process, *Process, time.Time, bool) bool {
	r.service++
	return true
}

func (r *recordingComputer) ComputeProviderHost(*ProviderConnection, *Process, *Process, time.Time, bool) bool {
	r.provider++
	return false
}

func TestConnection_Dispatch(t *testing.T) {
	computer := &recordingComputer{}
	host, client := NewProcess(2, "host", 10002), NewProcess(1, "client", 10001)
	connections := []Connection{
		NewServiceConnection(1, 1, 2, 0, nil),
		NewProviderConnection(2, 1, 2, "contacts"),
	}
	var results []bool
	for _, conn := range connections {
		results = append(results, conn.ComputeHostImportance(computer, host, client, time.Time{}, false))
	}
	assert.Equal(t, []bool{true, false}, results)
	assert.Equal(t, 1, computer.service)
	assert.Equal(t, 1, computer.provider)
}

func TestServiceRecord_UpdateKeepWarm(t *testing.T) {
	service := &ServiceRecord{Name: "com.example/.Sync", UserID: 0}
	service.UpdateKeepWarm([]string{"com.example/.Sync"}, 0)
	assert.True(t, service.KeepWarming)
	service.UpdateKeepWarm([]string{"com.example/.Sync"}, 10)
	assert.False(t, service.KeepWarming)
	service.UpdateKeepWarm(nil, 0)
	assert.False(t, service.KeepWarming)
}

func TestServiceRecord_ForegroundCapabilities(t *testing.T) {
	service := &ServiceRecord{
		IsForeground:          true,
		FgsAllowedWhileInUse:  true,
		ForegroundServiceType: ForegroundServiceTypeLocation | ForegroundServiceTypeCamera,
	}
	assert.Equal(t,
		model.CapabilityForegroundLocation|model.CapabilityForegroundAudioControl|model.CapabilityForegroundCamera,
		service.ForegroundCapabilities(true))
	assert.Equal(t,
		model.CapabilityForegroundLocation|model.CapabilityForegroundAudioControl|model.CapabilityAllImplicit,
		service.ForegroundCapabilities(false))
	service.FgsAllowedWhileInUse = false
	assert.Equal(t, model.CapabilityNone, service.ForegroundCapabilities(true))
}

func TestUid_MergeAndCommit(t *testing.T) {
	uid := NewUid(10001)
	a, b := NewProcess(1, "a", 10001), NewProcess(2, "b", 10001)
	uid.AddProcess(a)
	uid.AddProcess(b)
	uid.AddProcess(a)
	assert.Equal(t, 2, uid.NumProcesses())

	a.SetCurProcState(model.ProcStateService)
	a.SetCurCapability(model.CapabilityPowerRestrictedNetwork)
	a.SetCurAdj(model.ServiceAdj)
	b.SetCurProcState(model.ProcStateTop)
	b.SetCurCapability(model.CapabilityAll)
	b.SetCurAdj(model.ForegroundAppAdj)
	b.Services = []*ServiceRecord{{Name: "fg", IsForeground: true}}

	uid.Reset()
	for i := 0; i < uid.NumProcesses(); i++ {
		uid.Merge(uid.ProcessAt(i))
	}
	assert.Equal(t, model.ProcStateTop, uid.CurProcState)
	assert.Equal(t, model.CapabilityAll, uid.CurCapability)
	assert.True(t, uid.ForegroundServices)
	assert.Equal(t, model.ForegroundAppAdj, uid.MinProcAdj())

	assert.True(t, uid.Commit())
	assert.Equal(t, model.ProcStateTop, uid.AppliedProcState)
	assert.False(t, uid.Commit())

	uid.RemoveProcess(b)
	assert.Equal(t, 1, uid.NumProcesses())
	assert.Equal(t, model.ServiceAdj, uid.MinProcAdj())
}

func TestUid_String(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	uid := NewUid(10057)
	uid.CurProcState = model.ProcStateForegroundService
	uid.CurCapability = model.CapabilityForegroundLocation | model.CapabilityBFSL
	uid.ForegroundServices = true
	uid.CurAllowListed = true
	uid.LastBackgroundTime = now.Add(-2 * time.Second)

	actual := uid.String()
	assert.True(t, strings.HasPrefix(actual, "ProcessUidRecord{"))
	assert.Contains(t, actual, " u0a57 FGS fgServices allowlist bg:-2s idle} caps=L---F----")

	uid.Idle = false
	uid.LastBackgroundTime = time.Time{}
	assert.True(t, strings.HasSuffix(uid.String(), " u0a57 FGS fgServices allowlist} caps=L---F----"))
	assert.Equal(t, "ProcessUidRecord{u0a57 FGS fgServices allowlist} caps=L---F----", uid.Format(now))
}
