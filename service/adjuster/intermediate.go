package adjuster

import (
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
)

// setIntermediateAdj stores adj as the raw value and derives the capped
// current adj. It returns the possibly adjusted sched group.
func (a *Adjuster) setIntermediateAdj(p *record.Process, adj int, group model.SchedGroup) model.SchedGroup {
	p.SetCurRawAdj(adj, false)
	adj = a.applyBindAboveClient(p, adj)
	if adj > p.MaxAdj {
		adj = p.MaxAdj
		if adj <= a.policy.Adj.PerceptibleLow {
			group = model.SchedGroupDefault
		}
	}
	p.SetCurAdj(adj)
	return group
}

func (a *Adjuster) setIntermediateProcState(p *record.Process, procState model.ProcState) {
	p.SetCurProcState(procState)
	p.SetCurRawProcState(procState, false)
}

// setIntermediateSchedGroup keeps background work of a sleeping device
// restricted unless it is scheduled like the top app.
func (a *Adjuster) setIntermediateSchedGroup(p *record.Process, group model.SchedGroup) {
	if p.CurProcState() >= model.ProcStateBoundForegroundService && !a.pass.Awake && !p.ScheduleLikeTopApp {
		if group > model.SchedGroupRestricted {
			group = model.SchedGroupRestricted
		}
	}
	p.SetCurSchedGroup(group)
}

// applyBindAboveClient demotes a process hosting an above-client binding by
// one band.
func (a *Adjuster) applyBindAboveClient(p *record.Process, adj int) int {
	if !p.HasAboveClient {
		return adj
	}
	t := &a.policy.Adj
	switch {
	case adj < t.Foreground:
		return adj
	case adj < t.Visible:
		return t.Visible
	case adj < t.Perceptible:
		return t.Perceptible
	case adj < t.PerceptibleLow:
		return t.PerceptibleLow
	case adj < t.Service:
		return t.Service
	case adj < t.CachedMin:
		return t.CachedMin
	case adj < t.CachedMax:
		return adj + 1
	}
	return adj
}
