package adjuster

import (
	"log/slog"
	"time"

	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/service/uid"
)

// finish applies the computed values, refreshes the cached counts and
// folds uids. touched is nil on full passes, where every uid is rebuilt.
func (a *Adjuster) finish(lru []*record.Process, computed []*record.Process, touched map[int]*record.Uid) *Result {
	result := &Result{
		Pass:       a.pass,
		Computed:   computed,
		UidChanges: map[int]uid.Change{},
	}
	for i := len(lru) - 1; i >= 0; i-- {
		p := lru[i]
		if p.CompletedAdjSeq != a.pass.Seq {
			continue
		}
		if a.apply(p) {
			result.Changed = append(result.Changed, p)
		}
	}
	a.countCached(lru)

	if touched == nil {
		touched = map[int]*record.Uid{}
		for _, p := range lru {
			u := a.graph.Uid(p.UID)
			if u == nil {
				continue
			}
			a.uids.Fold(u, p)
			touched[u.UID] = u
		}
	}
	for id, u := range touched {
		if change := a.uids.Update(u, a.pass.Now); change != uid.ChangeNone {
			result.UidChanges[id] = change
		}
	}
	result.Edges = a.edges
	result.FollowUp = a.followUp
	a.logger.Debug("update pass completed",
		slog.String("pass", a.pass.ID),
		slog.Int("seq", a.pass.Seq),
		slog.String("reason", a.pass.Reason.String()),
		slog.Bool("full", a.pass.Full),
		slog.Int("computed", len(computed)),
		slog.Int("changed", len(result.Changed)),
		slog.Int("edges", a.edges),
		slog.Int("uidChanges", len(result.UidChanges)))
	return result
}

// apply publishes the pass outcome of p into its applied fields and
// reports whether any of them moved.
func (a *Adjuster) apply(p *record.Process) bool {
	now := a.pass.Now
	changed := false
	u := a.graph.Uid(p.UID)

	if p.AppliedRawAdj != p.CurRawAdj() {
		p.AppliedRawAdj = p.CurRawAdj()
		changed = true
	}
	if p.CurAdj() != p.AppliedAdj {
		p.AppliedAdj = p.CurAdj()
		p.VerifiedAdj = model.InvalidAdj
		if u != nil {
			u.ProcAdjChanged = true
		}
		changed = true
	}
	if p.AppliedSchedGroup != p.CurSchedGroup() {
		p.AppliedSchedGroup = p.CurSchedGroup()
		changed = true
	}
	if p.ReportedProcState() != p.CurProcState() {
		p.SetReportedProcState(p.CurProcState())
	}

	curProcState := p.CurProcState()
	if p.AppliedProcState != curProcState {
		if p.AppliedProcState < model.ProcStateService && curProcState >= model.ProcStateService {
			p.SetWhenUnimportant(now)
		}
		a.updateUsageStats(p)
		if p.AppliedProcState <= model.ProcStateTop && curProcState > model.ProcStateTop {
			p.LastTopTime = now
		}
		p.ApplyProcState(curProcState, now)
		p.AppliedProcState = curProcState
		p.AppliedRawProcState = p.CurRawProcState()
		changed = true
	} else if p.HasReportedInteraction {
		if now.Sub(p.InteractionEventTime()) > a.interactionInterval(p) {
			a.updateUsageStats(p)
		}
	} else if !p.FgInteractionTime().IsZero() {
		if now.Sub(p.FgInteractionTime()) > a.serviceUsageTime(p) {
			a.updateUsageStats(p)
		}
	}

	if p.AppliedCapability != p.CurCapability() {
		p.AppliedCapability = p.CurCapability()
		changed = true
	}
	p.AppliedCpuTimeReasons = p.CurCpuTimeReasons()
	p.AppliedImplicitCpuTimeReasons = p.CurImplicitCpuTimeReasons()
	p.AppliedBoundByNonBgRestricted = p.CurBoundByNonBgRestricted

	cached := p.IsCached()
	if cached != p.AppliedCached {
		if cached {
			p.LastCachedTime = now
		}
		p.AppliedCached = cached
	}
	a.freezer.Evaluate(p, now, false)
	return changed
}

func (a *Adjuster) serviceUsageTime(p *record.Process) time.Duration {
	if p.CachedCompatChange(model.CompatChangeUseShortFgsUsageInteractionTime) {
		return a.policy.ShortServiceUsageInteractionTime
	}
	return a.policy.ServiceUsageInteractionTime
}

func (a *Adjuster) interactionInterval(p *record.Process) time.Duration {
	if p.CachedCompatChange(model.CompatChangeUseShortFgsUsageInteractionTime) {
		return a.policy.ShortUsageStatsInteractionInterval
	}
	return a.policy.UsageStatsInteractionInterval
}

// updateUsageStats tracks whether p currently counts as a user interaction.
// Short foreground services only count once they outlive the service usage time.
func (a *Adjuster) updateUsageStats(p *record.Process) {
	now := a.pass.Now
	procState := p.CurProcState()
	var interaction bool
	switch {
	case procState <= model.ProcStateBoundTop:
		interaction = true
		setFgInteractionTime(p, time.Time{})
	case procState <= model.ProcStateForegroundService:
		if p.FgInteractionTime().IsZero() {
			setFgInteractionTime(p, now)
		} else {
			interaction = now.After(p.FgInteractionTime().Add(a.serviceUsageTime(p)))
		}
	default:
		interaction = procState <= model.ProcStateImportantForeground
		setFgInteractionTime(p, time.Time{})
	}
	if interaction && (!p.HasReportedInteraction || now.Sub(p.InteractionEventTime()) > a.interactionInterval(p)) {
		p.SetInteractionEventTime(now)
	}
	p.HasReportedInteraction = interaction
	if !interaction && !p.InteractionEventTime().IsZero() {
		p.SetInteractionEventTime(time.Time{})
	}
}

func setFgInteractionTime(p *record.Process, t time.Time) {
	if !p.FgInteractionTime().Equal(t) {
		p.SetFgInteractionTime(t)
	}
}
