package model

import (
	"sort"
	"strings"
)

// BindFlag is the bitmask supplied when a client binds to a service.
type BindFlag uint64

const (
	BindAutoCreate                     BindFlag = 1 << 0
	BindNotForeground                  BindFlag = 1 << 2
	BindAboveClient                    BindFlag = 1 << 3
	BindAllowOomManagement             BindFlag = 1 << 4
	BindWaivePriority                  BindFlag = 1 << 5
	BindImportant                      BindFlag = 1 << 6
	BindAdjustWithActivity             BindFlag = 1 << 7
	BindNotPerceptible                 BindFlag = 1 << 8
	BindIncludeCapabilities            BindFlag = 1 << 12
	BindAlmostPerceptible              BindFlag = 1 << 16
	BindBypassPowerNetworkRestrictions BindFlag = 1 << 17
	BindBypassUserNetworkRestrictions  BindFlag = 1 << 18
	BindScheduleLikeTopApp             BindFlag = 1 << 19
	BindTreatLikeVisibleForegroundSvc  BindFlag = 1 << 20
	BindImportantBackground            BindFlag = 1 << 23
	BindForegroundServiceWhileAwake    BindFlag = 1 << 25
	BindForegroundService              BindFlag = 1 << 26
	BindTreatLikeActivity              BindFlag = 1 << 27
	BindShowingUI                      BindFlag = 1 << 29
	BindNotVisible                     BindFlag = 1 << 30
	BindAllowFreeze                    BindFlag = 1 << 33
	BindSimulateAllowFreeze            BindFlag = 1 << 34
)

// BindFlagNames maps the textual names accepted by flagexpr to flags.
var BindFlagNames = map[string]BindFlag{
	"AUTO_CREATE":                           BindAutoCreate,
	"NOT_FOREGROUND":                        BindNotForeground,
	"ABOVE_CLIENT":                          BindAboveClient,
	"ALLOW_OOM_MANAGEMENT":                  BindAllowOomManagement,
	"WAIVE_PRIORITY":                        BindWaivePriority,
	"IMPORTANT":                             BindImportant,
	"ADJUST_WITH_ACTIVITY":                  BindAdjustWithActivity,
	"NOT_PERCEPTIBLE":                       BindNotPerceptible,
	"INCLUDE_CAPABILITIES":                  BindIncludeCapabilities,
	"ALMOST_PERCEPTIBLE":                    BindAlmostPerceptible,
	"BYPASS_POWER_NETWORK_RESTRICTIONS":     BindBypassPowerNetworkRestrictions,
	"BYPASS_USER_NETWORK_RESTRICTIONS":      BindBypassUserNetworkRestrictions,
	"SCHEDULE_LIKE_TOP_APP":                 BindScheduleLikeTopApp,
	"TREAT_LIKE_VISIBLE_FOREGROUND_SERVICE": BindTreatLikeVisibleForegroundSvc,
	"IMPORTANT_BACKGROUND":                  BindImportantBackground,
	"FOREGROUND_SERVICE_WHILE_AWAKE":        BindForegroundServiceWhileAwake,
	"FOREGROUND_SERVICE":                    BindForegroundService,
	"TREAT_LIKE_ACTIVITY":                   BindTreatLikeActivity,
	"SHOWING_UI":                            BindShowingUI,
	"NOT_VISIBLE":                           BindNotVisible,
	"ALLOW_FREEZE":                          BindAllowFreeze,
	"SIMULATE_ALLOW_FREEZE":                 BindSimulateAllowFreeze,
}

// Has reports whether any of the given flags is set.
func (f BindFlag) Has(flags BindFlag) bool {
	return f&flags != 0
}

// Lacks reports whether none of the given flags is set.
func (f BindFlag) Lacks(flags BindFlag) bool {
	return f&flags == 0
}

// String renders the set flags joined by '|', sorted by name.
func (f BindFlag) String() string {
	if f == 0 {
		return "0"
	}
	var names []string
	for name, flag := range BindFlagNames {
		if f&flag != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
