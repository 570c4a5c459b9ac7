package adjuster

import (
	"time"

	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
)

// ComputeServiceHost raises host on behalf of client over a service binding.
// In dry-run mode nothing is written and the result tells whether the
// binding would raise host.
func (a *Adjuster) ComputeServiceHost(conn *record.ServiceConnection, host, client *record.Process, now time.Time, dryRun bool) bool {
	if host.PendingFinishAttach {
		return false
	}
	t := &a.policy.Adj
	seq := a.pass.Seq
	flags := conn.Flags

	clientAdj := client.CurRawAdj()
	clientProcState := client.CurRawProcState()
	clientIsSystem := clientProcState < model.ProcStateTop

	adj := host.CurRawAdj()
	procState := host.CurRawProcState()
	group := host.CurSchedGroup()
	capability := host.CurCapability()

	prevAdj, prevProcState, prevGroup, prevCapability := adj, procState, group, capability
	cpuBased := a.policy.CpuTimeCapabilityBasedFreeze

	if !dryRun {
		host.CurBoundByNonBgRestricted = host.CurBoundByNonBgRestricted ||
			client.CurBoundByNonBgRestricted ||
			clientProcState <= model.ProcStateBoundTop ||
			(clientProcState == model.ProcStateForegroundService && !client.BackgroundRestricted)
	}

	if client.ShouldNotFreeze() {
		reasons := host.ShouldNotFreezeReason() | client.ShouldNotFreezeReason()
		if host.SetShouldNotFreeze(true, dryRun, reasons, seq) && dryRun && !cpuBased {
			return true
		}
	}

	trackedProcState := false
	capability |= bfslFromClient(client)
	capability |= cpuCapabilitiesFromClient(conn, host, client, dryRun)

	if flags.Lacks(model.BindWaivePriority) {
		clientCapability := client.CurCapability()
		if flags.Has(model.BindIncludeCapabilities) {
			capability |= clientCapability
		}
		if clientCapability.Has(model.CapabilityPowerRestrictedNetwork) {
			if clientProcState > model.ProcStateBoundForegroundService || flags.Has(model.BindBypassPowerNetworkRestrictions) {
				capability |= model.CapabilityPowerRestrictedNetwork
			}
		}
		if clientCapability.Has(model.CapabilityUserRestrictedNetwork) &&
			clientProcState <= model.ProcStateImportantForeground && flags.Has(model.BindBypassUserNetworkRestrictions) {
			capability |= model.CapabilityUserRestrictedNetwork
		}
		if clientCapability.Has(model.CapabilityForegroundAudioControl) && host.SdkSandbox {
			capability |= model.CapabilityForegroundAudioControl
		}

		if clientProcState >= model.ProcStateCachedActivity {
			clientProcState = model.ProcStateCachedEmpty
		}
		adjType := ""
		if flags.Has(model.BindAllowOomManagement) {
			if clientAdj < t.CachedMin {
				reasons := host.ShouldNotFreezeReason() | model.FreezeReasonBinderAllowOomManagement
				if host.SetShouldNotFreeze(true, dryRun, reasons, seq) && dryRun && !cpuBased {
					return true
				}
			}
			if host.HasShownUi && !host.CachedIsHome() {
				if adj > clientAdj {
					adjType = "cch-bound-ui-services"
				}
				if host.IsCached() && dryRun {
					return true
				}
				clientAdj = adj
				clientProcState = procState
			} else if !now.Before(serviceLastActivity(conn).Add(a.policy.MaxServiceInactivity)) {
				if adj > clientAdj {
					adjType = "cch-bound-services"
				}
				clientAdj = adj
			}
		}

		if adj > clientAdj {
			if host.HasShownUi && !host.CachedIsHome() && clientAdj > a.policy.CachingUiServiceClientAdjThreshold {
				if adj >= t.CachedMin {
					adjType = "cch-bound-ui-services"
				}
			} else {
				lowerBound := t.Visible
				within := func(cond bool, bound int) bool {
					if !cond {
						return false
					}
					lowerBound = bound
					return adj >= bound
				}
				var newAdj int
				switch {
				case flags.Has(model.BindAboveClient | model.BindImportant):
					if clientAdj >= t.PersistentService {
						newAdj = clientAdj
					} else {
						newAdj = t.PersistentService
						group = model.SchedGroupDefault
						procState = model.ProcStatePersistent
						if !dryRun {
							conn.TrackProcState(procState, seq)
						}
						trackedProcState = true
					}
				case within(flags.Has(model.BindNotPerceptible) && clientAdj <= t.Perceptible, t.PerceptibleLow):
					newAdj = t.PerceptibleLow
				case within(flags.Has(model.BindAlmostPerceptible) && flags.Lacks(model.BindNotForeground) && clientAdj < t.Perceptible, t.Perceptible):
					newAdj = t.Perceptible + 1
				case within(flags.Has(model.BindAlmostPerceptible) && flags.Has(model.BindNotForeground) && clientAdj < t.Perceptible, t.PerceptibleMedium+2):
					newAdj = t.PerceptibleMedium + 2
				case within(flags.Has(model.BindNotVisible) && clientAdj < t.Perceptible, t.Perceptible):
					newAdj = t.Perceptible
				case clientAdj >= t.Perceptible:
					newAdj = clientAdj
				case flags.Has(model.BindTreatLikeVisibleForegroundSvc) && clientAdj <= t.Visible && adj > t.Visible:
					newAdj = t.Visible
				case adj > t.Visible:
					newAdj = max(clientAdj, lowerBound)
				default:
					newAdj = adj
				}
				if !client.IsCached() && host.IsCached() && dryRun {
					return true
				}
				if newAdj == clientAdj && host.Isolated {
					newAdj = clientAdj + 1
				}
				if adj > newAdj {
					adj = newAdj
					host.SetCurRawAdj(adj, dryRun)
					adjType = "service"
				}
			}
		}

		if flags.Lacks(model.BindNotForeground | model.BindImportantBackground) {
			if clientGroup := client.CurSchedGroup(); clientGroup > group {
				if flags.Has(model.BindImportant) {
					group = clientGroup
				} else {
					group = model.SchedGroupDefault
				}
			}
			switch {
			case clientProcState < model.ProcStateTop:
				switch {
				case flags.Has(model.BindTreatLikeVisibleForegroundSvc):
					clientProcState = model.ProcStateForegroundService
				case flags.Has(model.BindForegroundService):
					clientProcState = model.ProcStateBoundForegroundService
				case a.pass.Awake && flags.Has(model.BindForegroundServiceWhileAwake):
					clientProcState = model.ProcStateBoundForegroundService
				default:
					clientProcState = model.ProcStateImportantForeground
				}
			case clientProcState == model.ProcStateTop:
				clientProcState = model.ProcStateBoundTop
				if !client.CachedCompatChange(model.CompatChangeProcessCapability) || flags.Has(model.BindIncludeCapabilities) {
					capability |= client.CurCapability()
				}
			}
		} else if flags.Lacks(model.BindImportantBackground) {
			if clientProcState < model.ProcStateTransientBackground {
				clientProcState = model.ProcStateTransientBackground
			}
		} else if clientProcState < model.ProcStateImportantBackground {
			clientProcState = model.ProcStateImportantBackground
		}

		if flags.Has(model.BindScheduleLikeTopApp) && clientIsSystem {
			group = model.SchedGroupTopApp
			if dryRun {
				if prevGroup < group {
					return true
				}
			} else {
				host.ScheduleLikeTopApp = true
			}
		}

		if !trackedProcState && !dryRun {
			conn.TrackProcState(clientProcState, seq)
		}

		if procState > clientProcState {
			procState = clientProcState
			if host.SetCurRawProcState(procState, dryRun) && dryRun {
				return true
			}
			if adjType == "" {
				adjType = "service"
			}
		}
		if procState < model.ProcStateImportantBackground && flags.Has(model.BindShowingUI) && !dryRun {
			host.PendingUiClean = true
		}
		if adjType != "" && !dryRun {
			host.AdjType = adjType
			host.AdjTypeCode = record.AdjTypeCodeServiceInUse
			host.AdjSource = client.Name
			host.AdjSourceProcState = clientProcState
			host.AdjTarget = conn.ServiceName()
		}
	} else if clientAdj < t.CachedMin {
		reasons := host.ShouldNotFreezeReason() | model.FreezeReasonBindWaivePriority
		if host.SetShouldNotFreeze(true, dryRun, reasons, seq) && dryRun && !cpuBased {
			return true
		}
	}

	if flags.Has(model.BindTreatLikeActivity) {
		if !dryRun {
			host.TreatLikeActivity = true
		}
		if clientProcState <= model.ProcStateCachedActivity && procState > model.ProcStateCachedActivity {
			procState = model.ProcStateCachedActivity
			if !dryRun {
				host.AdjType = "cch-as-act"
			}
		}
	}

	if flags.Has(model.BindAdjustWithActivity) && conn.HasActivity && conn.ActivityVisible && adj > t.Foreground {
		adj = t.Foreground
		if host.SetCurRawAdj(adj, dryRun) && dryRun {
			return true
		}
		if flags.Lacks(model.BindNotForeground) {
			if flags.Has(model.BindImportant) {
				group = model.SchedGroupTopAppBound
			} else {
				group = model.SchedGroupDefault
			}
		}
		if !dryRun {
			host.AdjType = "service"
			host.AdjTypeCode = record.AdjTypeCodeServiceInUse
			host.AdjSource = "activity"
			host.AdjSourceProcState = procState
			host.AdjTarget = conn.ServiceName()
		}
	}

	capability |= a.defaultCapability(host, procState)
	if procState > model.ProcStateBoundForegroundService {
		capability &^= model.CapabilityBFSL
	}
	updated := adj < prevAdj || procState < prevProcState || group > prevGroup ||
		a.capabilityRaised(prevCapability, capability)
	if dryRun {
		return updated
	}
	if adj < prevAdj {
		group = a.setIntermediateAdj(host, adj, group)
	}
	if procState < prevProcState {
		a.setIntermediateProcState(host, procState)
	}
	if group > prevGroup {
		a.setIntermediateSchedGroup(host, group)
	}
	host.SetCurCapability(capability)
	return updated
}

// ComputeProviderHost raises host on behalf of client over a provider
// connection.
func (a *Adjuster) ComputeProviderHost(conn *record.ProviderConnection, host, client *record.Process, now time.Time, dryRun bool) bool {
	if host.PendingFinishAttach || client == host {
		return false
	}
	t := &a.policy.Adj
	seq := a.pass.Seq

	clientAdj := client.CurRawAdj()
	clientProcState := client.CurRawProcState()

	adj := host.CurRawAdj()
	procState := host.CurRawProcState()
	group := host.CurSchedGroup()
	capability := host.CurCapability()
	prevAdj, prevProcState, prevGroup, prevCapability := adj, procState, group, capability

	capability |= bfslFromClient(client)
	capability |= cpuCapabilitiesFromClient(conn, host, client, dryRun)

	if clientProcState >= model.ProcStateCachedActivity {
		clientProcState = model.ProcStateCachedEmpty
	}
	if client.ShouldNotFreeze() {
		reasons := host.ShouldNotFreezeReason() | client.ShouldNotFreezeReason()
		if host.SetShouldNotFreeze(true, dryRun, reasons, seq) && dryRun && !a.policy.CpuTimeCapabilityBasedFreeze {
			return true
		}
	}
	if !dryRun {
		host.CurBoundByNonBgRestricted = host.CurBoundByNonBgRestricted ||
			client.CurBoundByNonBgRestricted ||
			clientProcState <= model.ProcStateBoundTop ||
			(clientProcState == model.ProcStateForegroundService && !client.BackgroundRestricted)
	}

	adjType := ""
	if adj > clientAdj {
		if host.HasShownUi && !host.CachedIsHome() && clientAdj > t.Perceptible {
			adjType = "cch-ui-provider"
		} else {
			adj = max(clientAdj, t.Foreground)
			if host.SetCurRawAdj(adj, dryRun) && dryRun {
				return true
			}
			adjType = "provider"
		}
		if host.IsCached() && !client.IsCached() && dryRun {
			return true
		}
	}

	if clientProcState <= model.ProcStateForegroundService {
		if adjType == "" {
			adjType = "provider"
		}
		if clientProcState == model.ProcStateTop {
			clientProcState = model.ProcStateBoundTop
		} else {
			clientProcState = model.ProcStateBoundForegroundService
		}
	}

	if !dryRun {
		conn.TrackProcState(clientProcState, seq)
	}
	if procState > clientProcState {
		procState = clientProcState
		if host.SetCurRawProcState(procState, dryRun) && dryRun {
			return true
		}
	}
	if client.CurSchedGroup() > group {
		group = model.SchedGroupDefault
	}
	if adjType != "" && !dryRun {
		host.AdjType = adjType
		host.AdjTypeCode = record.AdjTypeCodeProviderInUse
		host.AdjSource = client.Name
		host.AdjSourceProcState = clientProcState
		host.AdjTarget = conn.ProviderName
	}

	capability |= a.defaultCapability(host, procState)
	if procState > model.ProcStateBoundForegroundService {
		capability &^= model.CapabilityBFSL
	}
	if dryRun {
		return adj < prevAdj || procState < prevProcState || group > prevGroup ||
			a.capabilityRaised(prevCapability, capability)
	}
	if adj < prevAdj {
		group = a.setIntermediateAdj(host, adj, group)
	}
	if procState < prevProcState {
		a.setIntermediateProcState(host, procState)
	}
	if group > prevGroup {
		a.setIntermediateSchedGroup(host, group)
	}
	host.SetCurCapability(capability)
	return false
}

func serviceLastActivity(conn *record.ServiceConnection) time.Time {
	if conn.Service == nil {
		return time.Time{}
	}
	return conn.Service.LastActivity
}
