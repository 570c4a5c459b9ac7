package model

import "strconv"

// ProcState is the ordinal process state. Lower is more important; CachedEmpty
// is the least important live state.
type ProcState int

const (
	ProcStateUnknown ProcState = iota - 1
	ProcStatePersistent
	ProcStatePersistentUI
	ProcStateTop
	ProcStateBoundTop
	ProcStateForegroundService
	ProcStateBoundForegroundService
	ProcStateImportantForeground
	ProcStateImportantBackground
	ProcStateTransientBackground
	ProcStateBackup
	ProcStateService
	ProcStateReceiver
	ProcStateTopSleeping
	ProcStateHeavyWeight
	ProcStateHome
	ProcStateLastActivity
	ProcStateCachedActivity
	ProcStateCachedActivityClient
	ProcStateCachedRecent
	ProcStateCachedEmpty
	ProcStateNonexistent
)

var procStateNames = map[ProcState]string{
	ProcStateUnknown:                "UNKNOWN",
	ProcStatePersistent:             "PER ",
	ProcStatePersistentUI:           "PERU",
	ProcStateTop:                    "TOP ",
	ProcStateBoundTop:               "BTOP",
	ProcStateForegroundService:      "FGS ",
	ProcStateBoundForegroundService: "BFGS",
	ProcStateImportantForeground:    "IMPF",
	ProcStateImportantBackground:    "IMPB",
	ProcStateTransientBackground:    "TRNB",
	ProcStateBackup:                 "BKUP",
	ProcStateService:                "SVC ",
	ProcStateReceiver:               "RCVR",
	ProcStateTopSleeping:            "TPSL",
	ProcStateHeavyWeight:            "HVY ",
	ProcStateHome:                   "HOME",
	ProcStateLastActivity:           "LAST",
	ProcStateCachedActivity:         "CAC ",
	ProcStateCachedActivityClient:   "CACC",
	ProcStateCachedRecent:           "CRE ",
	ProcStateCachedEmpty:            "CEM ",
	ProcStateNonexistent:            "NONE",
}

// String returns the fixed-width short code used in dumps.
func (s ProcState) String() string {
	if name, ok := procStateNames[s]; ok {
		return name
	}
	return "?" + strconv.Itoa(int(s))
}

// IsCached reports whether the state is one of the cached states.
func (s ProcState) IsCached() bool {
	return s >= ProcStateCachedActivity && s <= ProcStateCachedEmpty
}

// Better returns the more important of the two states.
func (s ProcState) Better(other ProcState) ProcState {
	if other < s {
		return other
	}
	return s
}
