package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SchedGroup is the coarse cpu scheduling class. Higher is more favourable.
type SchedGroup int

const (
	SchedGroupBackground SchedGroup = iota
	SchedGroupRestricted
	SchedGroupDefault
	SchedGroupTopApp
	SchedGroupTopAppBound
)

func (g SchedGroup) String() string {
	switch g {
	case SchedGroupBackground:
		return "B"
	case SchedGroupRestricted:
		return "R"
	case SchedGroupDefault:
		return "F"
	case SchedGroupTopApp:
		return "T"
	case SchedGroupTopAppBound:
		return "TB"
	}
	return strconv.Itoa(int(g))
}

var schedGroupNames = map[string]SchedGroup{
	"background":    SchedGroupBackground,
	"b":             SchedGroupBackground,
	"restricted":    SchedGroupRestricted,
	"r":             SchedGroupRestricted,
	"default":       SchedGroupDefault,
	"f":             SchedGroupDefault,
	"top-app":       SchedGroupTopApp,
	"t":             SchedGroupTopApp,
	"top-app-bound": SchedGroupTopAppBound,
	"tb":            SchedGroupTopAppBound,
}

// ParseSchedGroup maps a group name or its dump letter to a SchedGroup.
func ParseSchedGroup(name string) (SchedGroup, error) {
	if group, ok := schedGroupNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return group, nil
	}
	return SchedGroupBackground, fmt.Errorf("unknown sched group: %q", name)
}
