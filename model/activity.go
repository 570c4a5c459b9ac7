package model

// ActivityState summarises the most important non-top activity of a process.
type ActivityState int

const (
	ActivityStateOther ActivityState = iota
	ActivityStateVisible
	ActivityStatePaused
	ActivityStateStopping
	ActivityStateStoppingFinishing
)

func (s ActivityState) String() string {
	switch s {
	case ActivityStateVisible:
		return "visible"
	case ActivityStatePaused:
		return "paused"
	case ActivityStateStopping:
		return "stopping"
	case ActivityStateStoppingFinishing:
		return "stopping-finishing"
	}
	return "other"
}
