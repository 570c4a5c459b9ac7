package record

import (
	"strings"
	"time"

	"github.com/viant/oomadj/model"
)

// Field identifies an observable process field.
type Field uint32

const (
	FieldCurRawAdj Field = 1 << iota
	FieldCurAdj
	FieldSchedGroup
	FieldProcState
	FieldReportedProcState
	FieldHasTopUi
	FieldHasOverlayUi
	FieldInteractionEventTime
	FieldFgInteractionTime
	FieldWhenUnimportant
	FieldHasStartedServices
	FieldReceivingBroadcast
	FieldHasActivities

	FieldNone Field = 0
)

var fieldNames = []struct {
	field Field
	name  string
}{
	{FieldCurRawAdj, "rawAdj"},
	{FieldCurAdj, "adj"},
	{FieldSchedGroup, "schedGroup"},
	{FieldProcState, "procState"},
	{FieldReportedProcState, "reportedProcState"},
	{FieldHasTopUi, "hasTopUi"},
	{FieldHasOverlayUi, "hasOverlayUi"},
	{FieldInteractionEventTime, "interactionEventTime"},
	{FieldFgInteractionTime, "fgInteractionTime"},
	{FieldWhenUnimportant, "whenUnimportant"},
	{FieldHasStartedServices, "hasStartedServices"},
	{FieldReceivingBroadcast, "receivingBroadcast"},
	{FieldHasActivities, "hasActivities"},
}

// Has reports whether any of the given fields is set.
func (f Field) Has(fields Field) bool {
	return f&fields != 0
}

func (f Field) String() string {
	if f == FieldNone {
		return "none"
	}
	var names []string
	for _, item := range fieldNames {
		if f&item.field != 0 {
			names = append(names, item.name)
		}
	}
	return strings.Join(names, "|")
}

// State is the observable subset of a process record.
type State struct {
	CurRawAdj            int
	CurAdj               int
	SchedGroup           model.SchedGroup
	ProcState            model.ProcState
	ReportedProcState    model.ProcState
	HasTopUi             bool
	HasOverlayUi         bool
	InteractionEventTime time.Time
	FgInteractionTime    time.Time
	WhenUnimportant      time.Time
	HasStartedServices   bool
	ReceivingBroadcast   bool
	HasActivities        bool
}

// Diff returns the fields whose values differ between s and other.
func (s State) Diff(other State) Field {
	var changed Field
	if s.CurRawAdj != other.CurRawAdj {
		changed |= FieldCurRawAdj
	}
	if s.CurAdj != other.CurAdj {
		changed |= FieldCurAdj
	}
	if s.SchedGroup != other.SchedGroup {
		changed |= FieldSchedGroup
	}
	if s.ProcState != other.ProcState {
		changed |= FieldProcState
	}
	if s.ReportedProcState != other.ReportedProcState {
		changed |= FieldReportedProcState
	}
	if s.HasTopUi != other.HasTopUi {
		changed |= FieldHasTopUi
	}
	if s.HasOverlayUi != other.HasOverlayUi {
		changed |= FieldHasOverlayUi
	}
	if !s.InteractionEventTime.Equal(other.InteractionEventTime) {
		changed |= FieldInteractionEventTime
	}
	if !s.FgInteractionTime.Equal(other.FgInteractionTime) {
		changed |= FieldFgInteractionTime
	}
	if !s.WhenUnimportant.Equal(other.WhenUnimportant) {
		changed |= FieldWhenUnimportant
	}
	if s.HasStartedServices != other.HasStartedServices {
		changed |= FieldHasStartedServices
	}
	if s.ReceivingBroadcast != other.ReceivingBroadcast {
		changed |= FieldReceivingBroadcast
	}
	if s.HasActivities != other.HasActivities {
		changed |= FieldHasActivities
	}
	return changed
}

// Observer receives every write of an observable field, changed or not.
// before holds the observable state captured prior to the write.
type Observer interface {
	OnChange(p *Process, field Field, before State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(p *Process, field Field, before State)

func (f ObserverFunc) OnChange(p *Process, field Field, before State) {
	f(p, field, before)
}

type nopObserver struct{}

func (nopObserver) OnChange(*Process, Field, State) {}
