package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/viant/oomadj/internal/clock"
	"github.com/viant/oomadj/model"
)

// Uid aggregates the processes running under one uid.
type Uid struct {
	UID int

	CurProcState     model.ProcState
	AppliedProcState model.ProcState

	CurCapability     model.Capability
	AppliedCapability model.Capability

	CurAllowListed     bool
	AppliedAllowListed bool

	Idle        bool
	AppliedIdle bool

	Ephemeral                 bool
	ForegroundServices        bool
	AppliedForegroundServices bool
	ProcAdjChanged            bool

	LastBackgroundTime time.Time

	lastIdleTimeIfStillIdle time.Time
	lastIdleTime            time.Time

	processes []*Process
}

// NewUid creates an idle uid record with no processes.
func NewUid(uid int) *Uid {
	return &Uid{
		UID:              uid,
		CurProcState:     model.ProcStateCachedEmpty,
		AppliedProcState: model.ProcStateNonexistent,
		Idle:             true,
		AppliedIdle:      true,
	}
}

// Reset prepares the record for a pass.
func (u *Uid) Reset() {
	u.CurProcState = model.ProcStateCachedEmpty
	u.CurCapability = model.CapabilityNone
	u.ForegroundServices = false
}

// Merge folds a process outcome into the uid; more important wins.
func (u *Uid) Merge(p *Process) {
	if p.CurProcState() < u.CurProcState {
		u.CurProcState = p.CurProcState()
	}
	u.CurCapability |= p.CurCapability()
	if p.HasForegroundServices() {
		u.ForegroundServices = true
	}
}

// Commit copies the pass result into the applied fields and reports
// whether anything changed.
func (u *Uid) Commit() bool {
	changed := u.AppliedProcState != u.CurProcState ||
		u.AppliedCapability != u.CurCapability ||
		u.AppliedAllowListed != u.CurAllowListed ||
		u.AppliedIdle != u.Idle ||
		u.AppliedForegroundServices != u.ForegroundServices
	u.AppliedProcState = u.CurProcState
	u.AppliedCapability = u.CurCapability
	u.AppliedAllowListed = u.CurAllowListed
	u.AppliedIdle = u.Idle
	u.AppliedForegroundServices = u.ForegroundServices
	u.ProcAdjChanged = false
	return changed
}

// SetLastIdleTime records when the uid went idle.
func (u *Uid) SetLastIdleTime(t time.Time) {
	u.lastIdleTime = t
	u.lastIdleTimeIfStillIdle = t
}

// LastIdleTime is the permanent idle timestamp.
func (u *Uid) LastIdleTime() time.Time {
	return u.lastIdleTime
}

// LastIdleTimeIfStillIdle is cleared once the uid leaves idle.
func (u *Uid) LastIdleTimeIfStillIdle() time.Time {
	return u.lastIdleTimeIfStillIdle
}

// ClearLastIdleTimeIfStillIdle forgets the resettable idle timestamp.
func (u *Uid) ClearLastIdleTimeIfStillIdle() {
	u.lastIdleTimeIfStillIdle = time.Time{}
}

func (u *Uid) AddProcess(p *Process) {
	for _, candidate := range u.processes {
		if candidate == p {
			return
		}
	}
	u.processes = append(u.processes, p)
}

func (u *Uid) RemoveProcess(p *Process) {
	for i, candidate := range u.processes {
		if candidate == p {
			u.processes = append(u.processes[:i], u.processes[i+1:]...)
			return
		}
	}
}

func (u *Uid) NumProcesses() int {
	return len(u.processes)
}

func (u *Uid) ProcessAt(index int) *Process {
	return u.processes[index]
}

// Processes returns a copy of the member processes.
func (u *Uid) Processes() []*Process {
	return append([]*Process(nil), u.processes...)
}

// MinProcAdj returns the best current adj among member processes.
func (u *Uid) MinProcAdj() int {
	result := model.UnknownAdj
	for _, p := range u.processes {
		if p.CurAdj() < result {
			result = p.CurAdj()
		}
	}
	return result
}

func (u *Uid) String() string {
	return u.format(clock.Now(), true)
}

// Format renders the record like String, without the identity hash, so that
// dumps of separate runs compare equal.
func (u *Uid) Format(now time.Time) string {
	return u.format(now, false)
}

func (u *Uid) format(now time.Time, identity bool) string {
	var b strings.Builder
	b.WriteString("ProcessUidRecord{")
	if identity {
		b.WriteString(strings.TrimPrefix(fmt.Sprintf("%p", u), "0x"))
		b.WriteByte(' ')
	}
	b.WriteString(model.FormatUID(u.UID))
	b.WriteByte(' ')
	b.WriteString(strings.TrimSpace(u.CurProcState.String()))
	if u.Ephemeral {
		b.WriteString(" ephemeral")
	}
	if u.ForegroundServices {
		b.WriteString(" fgServices")
	}
	if u.CurAllowListed {
		b.WriteString(" allowlist")
	}
	if !u.LastBackgroundTime.IsZero() {
		b.WriteString(" bg:")
		b.WriteString(formatRelative(u.LastBackgroundTime, now))
	}
	if u.Idle {
		b.WriteString(" idle")
	}
	b.WriteString("} caps=")
	b.WriteString(u.CurCapability.Summary())
	return b.String()
}

// formatRelative renders t relative to now, negative for the past.
func formatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if t.Equal(Forever) {
		return "forever"
	}
	delta := t.Sub(now).Round(time.Millisecond)
	if delta > 0 {
		return "+" + delta.String()
	}
	return delta.String()
}
