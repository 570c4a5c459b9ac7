package adjuster

import (
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
)

// applyLruAdjust spreads processes still at the unknown adj across the
// cached slots, most recently used first. Slot sizes come from the counts of
// the previous pass.
func (a *Adjuster) applyLruAdjust(lru []*record.Process) {
	t := &a.policy.Adj
	levels := a.policy.CachedImportanceLevels
	slots := a.policy.CachedSlots()

	nextVisible := t.Visible
	nextPrevious := t.Previous

	curCached := t.CachedMin
	nextCached := curCached + levels*2
	curEmpty := t.CachedMin + levels
	nextEmpty := curEmpty + levels*2

	cachedLimit := a.policy.MaxCachedProcesses - a.policy.MaxEmptyProcesses
	numEmpty := len(lru) - a.numNonCached - a.numCachedHidden
	if numEmpty > cachedLimit {
		numEmpty = cachedLimit
	}
	cachedFactor := 1
	if a.numCachedHidden > 0 {
		cachedFactor = max(1, (a.numCachedHidden+slots-1)/slots)
	}
	emptyFactor := max(1, (numEmpty+slots-1)/slots)
	stepCached, stepEmpty := -1, -1

	for i := len(lru) - 1; i >= 0; i-- {
		p := lru[i]
		curAdj := p.CurAdj()
		switch {
		case a.policy.VisibleLaddering && curAdj >= t.Visible && curAdj <= t.VisibleMax:
			p.SetCurAdj(nextVisible)
			nextVisible = min(nextVisible+1, t.VisibleMax)
		case a.policy.PreviousLaddering && curAdj >= t.Previous && curAdj <= t.PreviousMax:
			p.SetCurAdj(nextPrevious)
			nextPrevious = min(nextPrevious+1, t.PreviousMax)
		case p.Alive && curAdj >= t.Unknown:
			switch p.CurProcState() {
			case model.ProcStateLastActivity, model.ProcStateCachedActivity,
				model.ProcStateCachedActivityClient, model.ProcStateCachedRecent:
				if curCached != nextCached {
					stepCached++
					if stepCached >= cachedFactor {
						stepCached = 0
						curCached = nextCached
						nextCached = min(nextCached+levels*2, t.CachedMax)
					}
				}
				p.SetCurRawAdj(curCached, false)
				p.SetCurAdj(a.applyBindAboveClient(p, curCached))
			default:
				if curEmpty != nextEmpty {
					stepEmpty++
					if stepEmpty >= emptyFactor {
						stepEmpty = 0
						curEmpty = nextEmpty
						nextEmpty = min(nextEmpty+levels*2, t.CachedMax)
					}
				}
				p.SetCurRawAdj(curEmpty, false)
				p.SetCurAdj(a.applyBindAboveClient(p, curEmpty))
			}
		}
	}
}

// countCached tallies the live processes by cached class for the next pass.
func (a *Adjuster) countCached(lru []*record.Process) {
	a.numCachedHidden, a.numNonCached, a.numEmpty = 0, 0, 0
	for _, p := range lru {
		if !p.Alive || p.PendingFinishAttach {
			continue
		}
		switch p.CurProcState() {
		case model.ProcStateCachedActivity, model.ProcStateCachedActivityClient:
			a.numCachedHidden++
		case model.ProcStateCachedEmpty:
			a.numEmpty++
		default:
			a.numNonCached++
		}
	}
}

// Counts holds the cached class tallies of the last pass.
type Counts struct {
	CachedHidden int
	NonCached    int
	Empty        int
	ServiceProcs int
}

// Counts returns the tallies used to size the cached slots of the next pass.
func (a *Adjuster) Counts() Counts {
	return Counts{
		CachedHidden: a.numCachedHidden,
		NonCached:    a.numNonCached,
		Empty:        a.numEmpty,
		ServiceProcs: a.numServiceProcs,
	}
}
