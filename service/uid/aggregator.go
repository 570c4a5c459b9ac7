package uid

import (
	"time"

	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
)

// Aggregator maintains uid records from their member processes.
type Aggregator struct{}

// New creates an aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Reset prepares u for a pass.
func (a *Aggregator) Reset(u *record.Uid) {
	u.Reset()
}

// Fold merges one process outcome into its uid. Processes without a
// computed state are ignored.
func (a *Aggregator) Fold(u *record.Uid, p *record.Process) {
	if p.CurProcState() == model.ProcStateNonexistent {
		return
	}
	u.Merge(p)
}

// Rebuild resets u and folds every member process.
func (a *Aggregator) Rebuild(u *record.Uid) {
	a.Reset(u)
	for i := 0; i < u.NumProcesses(); i++ {
		a.Fold(u, u.ProcessAt(i))
	}
}

// Update derives the uid transitions for the completed pass and commits the
// current values. It returns ChangeNone when nothing observable moved.
func (a *Aggregator) Update(u *record.Uid, now time.Time) Change {
	if u.CurProcState == model.ProcStateNonexistent {
		return ChangeNone
	}
	if u.AppliedProcState == u.CurProcState && u.AppliedCapability == u.CurCapability &&
		u.AppliedAllowListed == u.CurAllowListed && !u.ProcAdjChanged &&
		u.AppliedIdle == u.Idle && u.AppliedForegroundServices == u.ForegroundServices {
		return ChangeNone
	}
	var change Change
	if isBackground(u.CurProcState) && !u.CurAllowListed {
		if !isBackground(u.AppliedProcState) || u.AppliedAllowListed || u.LastBackgroundTime.IsZero() {
			u.LastBackgroundTime = now
		}
		if u.Idle && !u.AppliedIdle {
			change |= ChangeIdle
		}
	} else {
		if u.Idle {
			change |= ChangeActive
			u.Idle = false
		}
		u.LastBackgroundTime = time.Time{}
		u.ClearLastIdleTimeIfStillIdle()
	}
	wasCached := u.AppliedProcState > model.ProcStateReceiver
	isCached := u.CurProcState > model.ProcStateReceiver
	if wasCached != isCached || u.AppliedProcState == model.ProcStateNonexistent {
		if isCached {
			change |= ChangeCached
		} else {
			change |= ChangeUncached
		}
	}
	if u.AppliedCapability != u.CurCapability {
		change |= ChangeCapability
	}
	if u.AppliedProcState != u.CurProcState {
		change |= ChangeProcState
	}
	if u.ProcAdjChanged {
		change |= ChangeProcAdj
	}
	u.Commit()
	return change
}

// Remove reports the uid as gone once its last process left.
func (a *Aggregator) Remove(u *record.Uid) Change {
	if u.NumProcesses() > 0 {
		return ChangeNone
	}
	return ChangeGone
}

func isBackground(state model.ProcState) bool {
	return state >= model.ProcStateTransientBackground
}
