package record

import "github.com/viant/oomadj/model"

// Components answers questions about the components hosted by a process.
// Implementations must be total; results are cached per pass by Process.
type Components interface {
	HasActivities() bool
	HasVisibleActivities() bool
	IsHeavyWeightProcess() bool
	IsHomeProcess() bool
	IsPreviousProcess() bool
	HasRecentTasks() bool
	// IsReceivingBroadcast also returns the sched group the receiver requires.
	IsReceivingBroadcast() (bool, model.SchedGroup)
	HasCompatChange(change model.CompatChange) bool
	HasActiveInstrumentation() bool
}

// StaticComponents is a plain-field Components implementation.
type StaticComponents struct {
	Activities          bool                 `yaml:"activities,omitempty"`
	NonTopActivity      model.ActivityState  `yaml:"nonTopActivity,omitempty"`
	VisibleActivities   bool                 `yaml:"visibleActivities,omitempty"`
	HeavyWeight         bool                 `yaml:"heavyWeight,omitempty"`
	Home                bool                 `yaml:"home,omitempty"`
	Previous            bool                 `yaml:"previous,omitempty"`
	RecentTasks         bool                 `yaml:"recentTasks,omitempty"`
	ReceivingBroadcast  bool                 `yaml:"receivingBroadcast,omitempty"`
	BroadcastSchedGroup model.SchedGroup     `yaml:"broadcastSchedGroup,omitempty"`
	Instrumentation     bool                 `yaml:"instrumentation,omitempty"`
	CompatChanges       []model.CompatChange `yaml:"compatChanges,omitempty"`
}

func (c *StaticComponents) HasActivities() bool        { return c.Activities || c.VisibleActivities }
func (c *StaticComponents) HasVisibleActivities() bool { return c.VisibleActivities }
func (c *StaticComponents) IsHeavyWeightProcess() bool { return c.HeavyWeight }
func (c *StaticComponents) IsHomeProcess() bool        { return c.Home }
func (c *StaticComponents) IsPreviousProcess() bool    { return c.Previous }
func (c *StaticComponents) HasRecentTasks() bool       { return c.RecentTasks }

func (c *StaticComponents) IsReceivingBroadcast() (bool, model.SchedGroup) {
	if !c.ReceivingBroadcast {
		return false, model.SchedGroupBackground
	}
	return true, c.BroadcastSchedGroup
}

func (c *StaticComponents) HasCompatChange(change model.CompatChange) bool {
	for _, candidate := range c.CompatChanges {
		if candidate == change {
			return true
		}
	}
	return false
}

func (c *StaticComponents) HasActiveInstrumentation() bool { return c.Instrumentation }

// ActivityState reports visible when VisibleActivities is set, NonTopActivity otherwise.
func (c *StaticComponents) ActivityState() model.ActivityState {
	if c.VisibleActivities {
		return model.ActivityStateVisible
	}
	return c.NonTopActivity
}
