package freeze

import (
	"time"

	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/policy"
)

// Decision is the outcome of evaluating one process.
type Decision struct {
	// Freeze is true when the process should be frozen.
	Freeze bool
	// Exempt is true when at least one reason keeps the process running.
	Exempt  bool
	Reasons model.FreezeReason
}

// Policy evaluates freeze decisions.
type Policy struct {
	policy *policy.Policy
}

// New creates a freeze policy bound to p.
func New(p *policy.Policy) *Policy {
	return &Policy{policy: p}
}

// Reasons returns every reason p must not be frozen right now.
func (f *Policy) Reasons(p *record.Process, now time.Time) model.FreezeReason {
	reasons := model.FreezeReasonNone
	if p.ShouldNotFreeze() {
		reasons |= p.ShouldNotFreezeReason()
	}
	if p.HasActiveInstrumentation() {
		reasons |= model.FreezeReasonInstrumentation
	}
	if p.PendingFinishAttach {
		reasons |= model.FreezeReasonPendingFinishAttach
	}
	if p.HasStartedServices() || p.NumExecutingServices > 0 {
		reasons |= model.FreezeReasonStartedServices
	}
	if !p.LastTopTime.IsZero() && now.Sub(p.LastTopTime) < f.policy.RecentTopFreezeDebounce {
		reasons |= model.FreezeReasonRecentTop
	}
	if KeepWarm(p) {
		reasons |= model.FreezeReasonKeepWarm
	}
	return reasons
}

// KeepWarm reports whether any hosted service is kept warm.
func KeepWarm(p *record.Process) bool {
	for _, service := range p.Services {
		if service.KeepWarming {
			return true
		}
	}
	return false
}

// Evaluate decides for p. With dryRun the record is left untouched;
// otherwise Frozen and PendingFreeze follow the decision.
func (f *Policy) Evaluate(p *record.Process, now time.Time, dryRun bool) Decision {
	decision := Decision{Reasons: f.Reasons(p, now)}
	decision.Exempt = decision.Reasons != model.FreezeReasonNone || p.FreezeExempt
	decision.Freeze = f.shouldFreeze(p, decision.Exempt)
	if dryRun {
		return decision
	}
	if !p.Alive {
		p.Frozen, p.PendingFreeze = false, false
		return decision
	}
	if decision.Freeze {
		if !p.Frozen {
			p.PendingFreeze = true
		}
		return decision
	}
	p.Frozen, p.PendingFreeze = false, false
	return decision
}

// MarkFrozen completes a pending freeze.
func (f *Policy) MarkFrozen(p *record.Process) {
	if p.PendingFreeze {
		p.Frozen, p.PendingFreeze = true, false
	}
}

func (f *Policy) shouldFreeze(p *record.Process, exempt bool) bool {
	if f.policy.CpuTimeCapabilityBasedFreeze {
		if p.CurCapability()&model.CapabilityAllCpuTime != 0 {
			return false
		}
		return !p.FreezeExempt
	}
	if exempt {
		return false
	}
	return p.CurAdj() >= f.policy.Adj.CachedMin
}
