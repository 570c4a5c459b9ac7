package record

import "github.com/viant/oomadj/model"

type tristate int8

const (
	cacheInvalid tristate = iota
	cacheFalse
	cacheTrue
)

func tristateOf(value bool) tristate {
	if value {
		return cacheTrue
	}
	return cacheFalse
}

// processCache holds component query results for the current pass.
type processCache struct {
	hasActivities        tristate
	isHeavyWeight        tristate
	hasVisibleActivities tristate
	isHome               tristate
	isPrevious           tristate
	hasRecentTasks       tristate
	isReceivingBroadcast tristate
	compatChanges        [model.CompatChangeCount]tristate
	broadcastSchedGroup  model.SchedGroup

	adj                  int
	foregroundActivities bool
	visibleActivities    bool
	procState            model.ProcState
	schedGroup           model.SchedGroup
	adjType              string
	computed             bool
}

// ActivityStateReporter is implemented by Components that can describe
// their non-top activities in more detail than visible or not.
type ActivityStateReporter interface {
	ActivityState() model.ActivityState
}

// ResetCachedInfo invalidates every cached component query.
func (p *Process) ResetCachedInfo() {
	compat := p.cache.compatChanges
	p.cache = processCache{
		adj:                 model.InvalidAdj,
		procState:           model.ProcStateCachedEmpty,
		schedGroup:          model.SchedGroupBackground,
		broadcastSchedGroup: model.SchedGroupBackground,
	}
	p.cache.compatChanges = compat
}

func (p *Process) CachedHasActivities() bool {
	if p.cache.hasActivities == cacheInvalid {
		before := p.State()
		p.cache.hasActivities = tristateOf(p.Components.HasActivities())
		p.observer.OnChange(p, FieldHasActivities, before)
	}
	return p.cache.hasActivities == cacheTrue
}

func (p *Process) CachedIsHeavyWeight() bool {
	if p.cache.isHeavyWeight == cacheInvalid {
		p.cache.isHeavyWeight = tristateOf(p.Components.IsHeavyWeightProcess())
	}
	return p.cache.isHeavyWeight == cacheTrue
}

func (p *Process) CachedHasVisibleActivities() bool {
	if p.cache.hasVisibleActivities == cacheInvalid {
		p.cache.hasVisibleActivities = tristateOf(p.Components.HasVisibleActivities())
	}
	return p.cache.hasVisibleActivities == cacheTrue
}

func (p *Process) CachedIsHome() bool {
	if p.cache.isHome == cacheInvalid {
		p.cache.isHome = tristateOf(p.Components.IsHomeProcess())
	}
	return p.cache.isHome == cacheTrue
}

func (p *Process) CachedIsPrevious() bool {
	if p.cache.isPrevious == cacheInvalid {
		p.cache.isPrevious = tristateOf(p.Components.IsPreviousProcess())
	}
	return p.cache.isPrevious == cacheTrue
}

func (p *Process) CachedHasRecentTasks() bool {
	if p.cache.hasRecentTasks == cacheInvalid {
		p.cache.hasRecentTasks = tristateOf(p.Components.HasRecentTasks())
	}
	return p.cache.hasRecentTasks == cacheTrue
}

// CachedIsReceivingBroadcast also returns the sched group the receiver asked for.
func (p *Process) CachedIsReceivingBroadcast() (bool, model.SchedGroup) {
	if p.cache.isReceivingBroadcast == cacheInvalid {
		before := p.State()
		receiving, group := p.Components.IsReceivingBroadcast()
		p.cache.isReceivingBroadcast = tristateOf(receiving)
		if receiving {
			p.cache.broadcastSchedGroup = group
		}
		p.observer.OnChange(p, FieldReceivingBroadcast, before)
	}
	return p.cache.isReceivingBroadcast == cacheTrue, p.cache.broadcastSchedGroup
}

// CachedCompatChange caches the compat flag until the record is cleaned up.
// change must be below model.CompatChangeCount.
func (p *Process) CachedCompatChange(change model.CompatChange) bool {
	if p.cache.compatChanges[change] == cacheInvalid {
		p.cache.compatChanges[change] = tristateOf(p.Components.HasCompatChange(change))
	}
	return p.cache.compatChanges[change] == cacheTrue
}

// CachedActivityState returns the detailed activity state, falling back to
// the visible flag when Components cannot say more.
func (p *Process) CachedActivityState() model.ActivityState {
	if reporter, ok := p.Components.(ActivityStateReporter); ok {
		return reporter.ActivityState()
	}
	if p.CachedHasVisibleActivities() {
		return model.ActivityStateVisible
	}
	return model.ActivityStateOther
}

// ActivityWindow is the outcome of evaluating non-top activities.
type ActivityWindow struct {
	Adj                  int
	ForegroundActivities bool
	VisibleActivities    bool
	ProcState            model.ProcState
	SchedGroup           model.SchedGroup
	AdjType              string
}

// CachedActivityWindow returns the window stored for this pass, if any.
func (p *Process) CachedActivityWindow() (ActivityWindow, bool) {
	if !p.cache.computed {
		return ActivityWindow{}, false
	}
	return ActivityWindow{
		Adj:                  p.cache.adj,
		ForegroundActivities: p.cache.foregroundActivities,
		VisibleActivities:    p.cache.visibleActivities,
		ProcState:            p.cache.procState,
		SchedGroup:           p.cache.schedGroup,
		AdjType:              p.cache.adjType,
	}, true
}

// SetCachedActivityWindow stores the activity evaluation for the rest of the pass.
func (p *Process) SetCachedActivityWindow(window ActivityWindow) {
	p.cache.adj = window.Adj
	p.cache.foregroundActivities = window.ForegroundActivities
	p.cache.visibleActivities = window.VisibleActivities
	p.cache.procState = window.ProcState
	p.cache.schedGroup = window.SchedGroup
	p.cache.adjType = window.AdjType
	p.cache.computed = true
}
