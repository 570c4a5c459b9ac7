package adjuster

import (
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
)

// defaultCapability returns the capabilities implied by procState alone.
func (a *Adjuster) defaultCapability(p *record.Process, procState model.ProcState) model.Capability {
	var ret model.Capability
	switch procState {
	case model.ProcStatePersistent, model.ProcStatePersistentUI, model.ProcStateTop:
		return model.CapabilityAll
	case model.ProcStateBoundTop:
		ret = model.CapabilityBFSL
		if p.HasActiveInstrumentation() {
			ret |= model.CapabilityAllImplicit
		}
	case model.ProcStateForegroundService:
		if p.HasActiveInstrumentation() {
			ret = model.CapabilityAllImplicit
		}
	}
	if procState <= model.ProcStateBoundForegroundService {
		ret |= model.CapabilityNetwork
	}
	return ret
}

// cpuCapability grants cpu time to processes doing foreground work.
func (a *Adjuster) cpuCapability(p *record.Process, foregroundActivities bool) model.Capability {
	reasons := model.CpuTimeReasonNone
	allowListed := false
	if u := a.graph.Uid(p.UID); u != nil {
		allowListed = u.CurAllowListed
	}
	receiving, _ := p.CachedIsReceivingBroadcast()
	if allowListed || foregroundActivities || p.NumExecutingServices > 0 ||
		p.HasForegroundServices() || receiving || p.HasActiveInstrumentation() {
		reasons |= model.CpuTimeReasonOther
	}
	if reasons == model.CpuTimeReasonNone {
		return model.CapabilityNone
	}
	p.AddCurCpuTimeReasons(reasons)
	return model.CapabilityCpuTime
}

// implicitCpuCapability grants implicit cpu time above the freezer cutoff.
func (a *Adjuster) implicitCpuCapability(p *record.Process, adj int) model.Capability {
	cutoff := a.policy.FreezerCutoffAdj
	if adj < cutoff || p.MaxAdj < cutoff {
		p.AddCurImplicitCpuTimeReasons(model.ImplicitCpuTimeReasonOther)
		return model.CapabilityImplicitCpuTime
	}
	return model.CapabilityNone
}

func bfslFromClient(client *record.Process) model.Capability {
	if client.CurProcState() < model.ProcStateForegroundService {
		return model.CapabilityBFSL
	}
	return client.CurCapability() & model.CapabilityBFSL
}

// cpuCapabilitiesFromClient transfers the client's cpu time over conn.
func cpuCapabilitiesFromClient(conn record.Connection, host, client *record.Process, dryRun bool) model.Capability {
	transmission := conn.CpuTimeTransmission()
	if transmission == model.TransmissionNone {
		return model.CapabilityNone
	}
	clientCapability := client.CurCapability()
	if !dryRun {
		if clientCapability.Has(model.CapabilityCpuTime) {
			reason := model.CpuTimeReasonTransmitted
			if client.CurCpuTimeReasons() == model.CpuTimeReasonTransmittedLegacy || transmission == model.TransmissionLegacy {
				reason = model.CpuTimeReasonTransmittedLegacy
			}
			host.AddCurCpuTimeReasons(reason)
		}
		if clientCapability.Has(model.CapabilityImplicitCpuTime) {
			reason := model.ImplicitCpuTimeReasonTransmitted
			if client.CurImplicitCpuTimeReasons() == model.ImplicitCpuTimeReasonTransmittedLegacy || transmission == model.TransmissionLegacy {
				reason = model.ImplicitCpuTimeReasonTransmittedLegacy
			}
			host.AddCurImplicitCpuTimeReasons(reason)
		}
	}
	return clientCapability & model.CapabilityAllCpuTime
}

// capabilityRaised reports whether capability is a strict superset of prev.
// Cpu-time bits only count when freezing is capability based.
func (a *Adjuster) capabilityRaised(prev, capability model.Capability) bool {
	if !a.policy.CpuTimeCapabilityBasedFreeze {
		prev &^= model.CapabilityAllCpuTime
		capability &^= model.CapabilityAllCpuTime
	}
	return capability != prev && capability&prev == prev
}

// settleCapabilities recomputes the capabilities of processes from their
// final proc states. Each starts from its own capability and gathers what
// its clients transfer until nothing moves; the least fixed point does not
// depend on the order edges were visited in.
func (a *Adjuster) settleCapabilities(processes []*record.Process) {
	for _, p := range processes {
		p.SetCurCapability(a.ownCapability(p))
	}
	for changed := true; changed; {
		changed = false
		for _, host := range processes {
			capability := host.CurCapability()
			for _, conn := range a.graph.ClientConnections(host.ID) {
				client := a.graph.Process(conn.Client())
				if client == nil || client == host {
					continue
				}
				capability |= a.transferredCapability(conn, host, client)
			}
			capability = trimBFSL(host, capability)
			if capability != host.CurCapability() {
				host.SetCurCapability(capability)
				changed = true
			}
		}
	}
}

func (a *Adjuster) ownCapability(p *record.Process) model.Capability {
	return trimBFSL(p, p.SeedCapability|a.defaultCapability(p, p.CurRawProcState()))
}

// transferredCapability is what client grants host over conn at their
// current values. It writes nothing.
func (a *Adjuster) transferredCapability(conn record.Connection, host, client *record.Process) model.Capability {
	if host.PendingFinishAttach {
		return model.CapabilityNone
	}
	capability := bfslFromClient(client) | cpuCapabilitiesFromClient(conn, host, client, true)
	service, ok := conn.(*record.ServiceConnection)
	if !ok {
		return capability
	}
	flags := service.Flags
	if flags.Has(model.BindWaivePriority) {
		return capability
	}
	clientCapability := client.CurCapability()
	clientProcState := client.CurRawProcState()
	if flags.Has(model.BindIncludeCapabilities) {
		capability |= clientCapability
	}
	if clientCapability.Has(model.CapabilityPowerRestrictedNetwork) &&
		(clientProcState > model.ProcStateBoundForegroundService || flags.Has(model.BindBypassPowerNetworkRestrictions)) {
		capability |= model.CapabilityPowerRestrictedNetwork
	}
	if clientCapability.Has(model.CapabilityUserRestrictedNetwork) &&
		clientProcState <= model.ProcStateImportantForeground && flags.Has(model.BindBypassUserNetworkRestrictions) {
		capability |= model.CapabilityUserRestrictedNetwork
	}
	if clientCapability.Has(model.CapabilityForegroundAudioControl) && host.SdkSandbox {
		capability |= model.CapabilityForegroundAudioControl
	}
	if flags.Lacks(model.BindNotForeground | model.BindImportantBackground) {
		if flags.Has(model.BindAllowOomManagement) && host.HasShownUi && !host.CachedIsHome() {
			clientProcState = host.CurRawProcState()
		}
		if clientProcState == model.ProcStateTop &&
			(!client.CachedCompatChange(model.CompatChangeProcessCapability) || flags.Has(model.BindIncludeCapabilities)) {
			capability |= clientCapability
		}
	}
	return capability
}

// trimBFSL drops BFSL from a process that ends below bound foreground service.
func trimBFSL(p *record.Process, capability model.Capability) model.Capability {
	if p.CurRawProcState() > model.ProcStateBoundForegroundService {
		capability &^= model.CapabilityBFSL
	}
	return capability
}
