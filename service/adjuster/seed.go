package adjuster

import (
	"time"

	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
)

// seed derives p's importance from its own components. doingAll is set on
// full passes, where service processes are split into A and B lists.
func (a *Adjuster) seed(p *record.Process, doingAll bool) {
	t := &a.policy.Adj
	seq := a.pass.Seq
	now := a.pass.Now

	p.ClearCurCpuTimeReasons()
	p.ClearCurImplicitCpuTimeReasons()
	p.FollowUpTime = time.Time{}
	defer func() { p.SeedCapability = p.CurCapability() }()

	if !p.Alive {
		p.AdjSeq = seq
		p.SetCurSchedGroup(model.SchedGroupBackground)
		p.SetCurProcState(model.ProcStateCachedEmpty)
		p.SetCurRawProcState(model.ProcStateCachedEmpty, false)
		p.SetCurAdj(t.CachedMax)
		p.SetCurRawAdj(t.CachedMax, false)
		p.CompletedAdjSeq = p.AdjSeq
		p.SetCurCapability(model.CapabilityNone)
		return
	}

	p.AdjTypeCode = 0
	p.AdjSource = ""
	p.AdjTarget = ""
	allowListed := false
	if u := a.graph.Uid(p.UID); u != nil {
		allowListed = u.CurAllowListed
	}
	reasons := model.FreezeReasonNone
	if allowListed {
		reasons = model.FreezeReasonUidAllowlisted
	}
	p.SetShouldNotFreeze(allowListed, false, reasons, seq)

	isTop := a.pass.Top == p
	if p.MaxAdj <= t.Foreground {
		a.seedFixed(p, isTop)
		return
	}
	p.SystemNoUi = false

	curTop := a.pass.TopProcState
	var (
		adj         int
		group       model.SchedGroup
		procState   model.ProcState
		capability  model.Capability
		visible     bool
		receiving   bool
		broadcastSG model.SchedGroup
	)
	receiving, broadcastSG = p.CachedIsReceivingBroadcast()
	switch {
	case isTop && curTop == model.ProcStateTop:
		adj = t.Foreground
		if a.policy.UseTopSchedGroupForTopProcess {
			group = model.SchedGroupTopApp
			p.AdjType = "top-activity"
		} else {
			group = model.SchedGroupDefault
			p.AdjType = "intermediate-top-activity"
		}
		visible = true
		procState = model.ProcStateTop
	case p.RunningRemoteAnimation:
		adj = t.Visible
		group = model.SchedGroupTopApp
		p.AdjType = "running-remote-anim"
		procState = curTop
	case p.HasActiveInstrumentation():
		adj = t.Foreground
		group = model.SchedGroupDefault
		p.AdjType = "instrumentation"
		procState = model.ProcStateForegroundService
		capability |= model.CapabilityBFSL
	case receiving:
		adj = t.Foreground
		group = broadcastSG
		p.AdjType = "broadcast"
		procState = model.ProcStateReceiver
	case p.NumExecutingServices > 0:
		adj = t.Foreground
		group = model.SchedGroupBackground
		if p.ExecServicesFg {
			group = model.SchedGroupDefault
		}
		p.AdjType = "exec-service"
		procState = model.ProcStateService
	case isTop:
		adj = t.Foreground
		group = model.SchedGroupBackground
		p.AdjType = "top-sleeping"
		procState = curTop
	default:
		adj = t.Unknown
		group = model.SchedGroupBackground
		procState = model.ProcStateCachedEmpty
		p.AdjType = "cch-empty"
	}

	foregroundActivities := isTop
	if !foregroundActivities && p.CachedHasActivities() {
		window := a.activityWindow(p, adj, visible, procState, group)
		adj = window.Adj
		foregroundActivities = window.ForegroundActivities
		visible = window.VisibleActivities
		procState = window.ProcState
		group = window.SchedGroup
		p.AdjType = window.AdjType
	}

	if procState > model.ProcStateCachedRecent && p.CachedHasRecentTasks() {
		procState = model.ProcStateCachedRecent
		p.AdjType = "cch-rec"
	}

	var capabilityFromFGS model.Capability
	hasFGS := p.HasForegroundServices()
	hasNonShortFGS := p.HasNonShortForegroundServices()
	hasShortFGS := hasFGS && !p.AllShortForegroundServicesTimedOut(now)

	if adj > t.Perceptible || procState > model.ProcStateForegroundService {
		adjType := ""
		var newAdj int
		var newProcState model.ProcState
		switch {
		case hasFGS && hasNonShortFGS:
			adjType = "fg-service"
			newAdj = t.Perceptible
			newProcState = model.ProcStateForegroundService
			capabilityFromFGS |= model.CapabilityBFSL
		case hasShortFGS:
			adjType = "fg-service-short"
			newAdj = t.PerceptibleMedium + 1
			newProcState = model.ProcStateForegroundService
		case p.HasOverlayUi():
			adjType = "has-overlay-ui"
			newAdj = t.Perceptible
			newProcState = model.ProcStateImportantForeground
		}
		if adjType != "" {
			adj = newAdj
			procState = newProcState
			p.AdjType = adjType
			group = model.SchedGroupDefault
		}
	}

	recentlyTop := func(grace time.Duration) bool {
		return p.LastTopTime.Add(grace).After(now) || p.AppliedProcState <= model.ProcStateTop
	}
	if hasFGS && adj > t.PerceptibleRecentForeground && recentlyTop(a.policy.TopToFgsGrace) {
		if hasNonShortFGS {
			adj = t.PerceptibleRecentForeground
			p.AdjType = "fg-service-act"
		} else {
			adj = t.PerceptibleRecentForeground + 1
			p.AdjType = "fg-service-short-act"
		}
		a.followUpAt(p, p.LastTopTime.Add(a.policy.TopToFgsGrace))
	}

	if p.HasTopStartedAlmostPerceptibleServices && adj > t.PerceptibleRecentForeground+2 &&
		recentlyTop(a.policy.TopToAlmostPerceptibleGrace) {
		adj = t.PerceptibleRecentForeground + 2
		p.AdjType = "top-ej-act"
		a.followUpAt(p, p.LastTopTime.Add(a.policy.TopToAlmostPerceptibleGrace))
	}

	if adj > t.Perceptible || procState > model.ProcStateTransientBackground {
		if p.ForcingToImportant != "" {
			adj = t.Perceptible
			procState = model.ProcStateTransientBackground
			p.AdjType = "force-imp"
			p.AdjSource = p.ForcingToImportant
			group = model.SchedGroupDefault
		}
	}

	if p.CachedIsHeavyWeight() {
		if adj > t.HeavyWeight {
			adj = t.HeavyWeight
			group = model.SchedGroupBackground
			p.AdjType = "heavy"
		}
		if procState > model.ProcStateHeavyWeight {
			procState = model.ProcStateHeavyWeight
			p.AdjType = "heavy"
		}
	}

	if p.CachedIsHome() {
		if adj > t.Home {
			adj = t.Home
			group = model.SchedGroupBackground
			p.AdjType = "home"
		}
		if procState > model.ProcStateHome {
			procState = model.ProcStateHome
			p.AdjType = "home"
		}
	}

	if p.CachedIsPrevious() && p.CachedHasActivities() {
		if procState >= model.ProcStateLastActivity && p.AppliedProcState == model.ProcStateLastActivity &&
			!p.LastStateTime.Add(a.policy.MaxPreviousTime).After(now) {
			procState = model.ProcStateLastActivity
			group = model.SchedGroupBackground
			p.AdjType = "previous-expired"
		} else {
			if adj > t.Previous {
				adj = t.Previous
				group = model.SchedGroupBackground
				p.AdjType = "previous"
			}
			if procState > model.ProcStateLastActivity {
				procState = model.ProcStateLastActivity
				p.AdjType = "previous"
			}
			lastStateTime := now
			if p.AppliedProcState == model.ProcStateLastActivity {
				lastStateTime = p.LastStateTime
			}
			a.followUpAt(p, lastStateTime.Add(a.policy.MaxPreviousTime))
		}
	}

	p.SetCurRawAdj(adj, false)
	p.SetCurRawProcState(procState, false)
	p.SetHasStartedServices(false)
	p.AdjSeq = seq

	if p.BackupTarget {
		if adj > t.Backup {
			adj = t.Backup
			if procState > model.ProcStateTransientBackground {
				procState = model.ProcStateTransientBackground
			}
			p.AdjType = "backup"
		}
		if procState > model.ProcStateBackup {
			procState = model.ProcStateBackup
			p.AdjType = "backup"
		}
	}

	p.CurBoundByNonBgRestricted = false
	p.ScheduleLikeTopApp = false

	cameraMicByType := p.CachedCompatChange(model.CompatChangeCameraMicrophoneCapability)
	for i := len(p.Services) - 1; i >= 0 && a.canRaise(adj, group, procState); i-- {
		service := p.Services[i]
		if service.StartRequested {
			p.SetHasStartedServices(true)
			if procState > model.ProcStateService {
				procState = model.ProcStateService
				p.AdjType = "started-services"
			}
			if !service.KeepWarming && p.HasShownUi && !p.CachedIsHome() {
				if adj > t.Service {
					p.AdjType = "cch-started-ui-services"
				}
			} else {
				inactiveAt := service.LastActivity.Add(a.policy.MaxServiceInactivity)
				if service.KeepWarming || now.Before(inactiveAt) {
					if !p.SdkSandbox && adj > t.Service {
						adj = t.Service
						p.AdjType = "started-services"
						a.followUpAt(p, inactiveAt)
					}
				}
				if adj > t.Service {
					p.AdjType = "cch-started-services"
				}
			}
		}
		if service.IsForeground {
			capabilityFromFGS |= service.ForegroundCapabilities(cameraMicByType)
		}
	}

	for i := len(p.Providers) - 1; i >= 0 && a.canRaise(adj, group, procState); i-- {
		provider := p.Providers[i]
		if !provider.HasExternalProcessHandles() {
			continue
		}
		if adj > t.Foreground {
			adj = t.Foreground
			p.SetCurRawAdj(adj, false)
			group = model.SchedGroupDefault
			p.AdjType = "ext-provider"
			p.AdjTarget = provider.Name
		}
		if procState > model.ProcStateImportantForeground {
			procState = model.ProcStateImportantForeground
			p.SetCurRawProcState(procState, false)
		}
	}

	if !p.LastProviderTime.IsZero() {
		retainUntil := p.LastProviderTime.Add(a.policy.ContentProviderRetainTime)
		if retainUntil.After(now) {
			if adj > t.Previous {
				adj = t.Previous
				group = model.SchedGroupBackground
				p.AdjType = "recent-provider"
				a.followUpAt(p, retainUntil)
			}
			if procState > model.ProcStateLastActivity {
				procState = model.ProcStateLastActivity
				p.AdjType = "recent-provider"
				a.followUpAt(p, retainUntil)
			}
		}
	}

	if procState >= model.ProcStateCachedEmpty {
		if p.HasClientActivities {
			procState = model.ProcStateCachedActivityClient
			p.AdjType = "cch-client-act"
		} else if p.TreatLikeActivity {
			procState = model.ProcStateCachedActivity
			p.AdjType = "cch-as-act"
		}
	}

	if adj == t.Service {
		if doingAll {
			p.ServiceB = a.newNumAService > a.numServiceProcs/3
			a.newNumServiceProcs++
			if !p.ServiceB {
				a.newNumAService++
			} else {
				p.ServiceHighRam = false
			}
		}
		if p.ServiceB {
			adj = t.ServiceB
		}
	}

	if hasFGS {
		capability |= capabilityFromFGS
	}
	capability |= a.defaultCapability(p, procState)
	capability |= a.cpuCapability(p, foregroundActivities)
	capability |= a.implicitCpuCapability(p, adj)
	if procState > model.ProcStateBoundForegroundService {
		capability &^= model.CapabilityBFSL
	}

	if p.PendingFinishAttach {
		a.setAttachingStates(p)
		p.AdjSeq = seq
		p.CompletedAdjSeq = p.AdjSeq
		return
	}

	p.SetCurCapability(capability)
	p.UpdateLastInvisibleTime(visible, now)
	p.HasForegroundActivities = foregroundActivities
	p.HasVisibleActivities = visible
	p.CompletedAdjSeq = seq

	group = a.setIntermediateAdj(p, adj, group)
	a.setIntermediateProcState(p, procState)
	a.setIntermediateSchedGroup(p, group)
}

// canRaise reports whether any of adj, group or procState can still improve
// from hosted services or providers.
func (a *Adjuster) canRaise(adj int, group model.SchedGroup, procState model.ProcState) bool {
	return adj > a.policy.Adj.Foreground || group == model.SchedGroupBackground || procState > model.ProcStateTop
}

func (a *Adjuster) seedFixed(p *record.Process, isTop bool) {
	p.AdjType = "fixed"
	p.AdjSeq = a.pass.Seq
	p.SetCurRawAdj(p.MaxAdj, false)
	p.HasForegroundActivities = false
	p.SetCurSchedGroup(model.SchedGroupDefault)
	p.SetCurCapability(model.CapabilityAll)
	p.AddCurCpuTimeReasons(model.CpuTimeReasonOther)
	p.AddCurImplicitCpuTimeReasons(model.ImplicitCpuTimeReasonOther)
	p.SetCurProcState(model.ProcStatePersistent)
	p.SystemNoUi = true
	switch {
	case isTop:
		p.SystemNoUi = false
		p.SetCurSchedGroup(model.SchedGroupTopApp)
		p.AdjType = "pers-top-activity"
	case p.HasTopUi():
		p.SystemNoUi = false
		p.AdjType = "pers-top-ui"
	case p.CachedHasVisibleActivities():
		p.SystemNoUi = false
	}
	if !p.SystemNoUi {
		if a.pass.Awake || p.RunningRemoteAnimation {
			p.SetCurProcState(model.ProcStatePersistentUI)
			p.SetCurSchedGroup(model.SchedGroupTopApp)
		} else {
			p.SetCurProcState(model.ProcStateBoundForegroundService)
			p.SetCurSchedGroup(model.SchedGroupRestricted)
		}
	}
	p.SetCurRawProcState(p.CurProcState(), false)
	p.SetCurAdj(p.MaxAdj)
	p.CompletedAdjSeq = p.AdjSeq
}

// setAttachingStates keeps a process that is still attaching runnable.
func (a *Adjuster) setAttachingStates(p *record.Process) {
	group := model.SchedGroupDefault
	procState := model.ProcStateCachedEmpty
	capability := model.CapabilityAllCpuTime
	if p.HasForegroundActivities && (a.pass.Awake || p.RunningRemoteAnimation) {
		group = model.SchedGroupTopApp
		procState = model.ProcStateTop
		capability |= model.CapabilityAll
	}
	p.SetCurSchedGroup(group)
	p.SetCurProcState(procState)
	p.SetCurRawProcState(procState, false)
	p.SetCurCapability(capability)
	p.AddCurCpuTimeReasons(model.CpuTimeReasonOther)
	p.AddCurImplicitCpuTimeReasons(model.ImplicitCpuTimeReasonOther)
	p.SetCurAdj(a.policy.Adj.Foreground)
	p.SetCurRawAdj(a.policy.Adj.Foreground, false)
	p.ForcingToImportant = ""
	p.HasShownUi = false
	p.AdjType = "attaching"
}

// activityWindow evaluates the non-top activities of p once per pass.
func (a *Adjuster) activityWindow(p *record.Process, adj int, foreground bool, procState model.ProcState, group model.SchedGroup) record.ActivityWindow {
	if window, ok := p.CachedActivityWindow(); ok {
		return window
	}
	t := &a.policy.Adj
	curTop := a.pass.TopProcState
	window := record.ActivityWindow{
		Adj:                  adj,
		ForegroundActivities: foreground,
		ProcState:            procState,
		SchedGroup:           group,
		AdjType:              p.AdjType,
	}
	switch state := p.CachedActivityState(); state {
	case model.ActivityStateVisible, model.ActivityStatePaused:
		adjType, bound := "vis-activity", t.Visible
		if state == model.ActivityStatePaused {
			adjType, bound = "pause-activity", t.Perceptible
		}
		if window.Adj > bound {
			window.Adj = bound
			window.AdjType = adjType
		}
		if window.ProcState > curTop {
			window.ProcState = curTop
			window.AdjType = adjType
		}
		if window.SchedGroup < model.SchedGroupDefault {
			window.SchedGroup = model.SchedGroupDefault
		}
		window.ForegroundActivities = true
		window.VisibleActivities = state == model.ActivityStateVisible
	case model.ActivityStateStopping, model.ActivityStateStoppingFinishing:
		if window.Adj > t.Perceptible {
			window.Adj = t.Perceptible
			window.AdjType = "stop-activity"
		}
		if state == model.ActivityStateStopping && window.ProcState > model.ProcStateLastActivity {
			window.ProcState = model.ProcStateLastActivity
			window.AdjType = "stop-activity"
		}
		window.ForegroundActivities = true
	default:
		if window.ProcState > model.ProcStateCachedActivity {
			window.ProcState = model.ProcStateCachedActivity
			window.AdjType = "cch-act"
		}
	}
	p.SetCachedActivityWindow(window)
	return window
}
