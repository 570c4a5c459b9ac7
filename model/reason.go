package model

import "strconv"

// Reason identifies the event that triggered an update pass.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonActivity
	ReasonFinishReceiver
	ReasonStartReceiver
	ReasonBindService
	ReasonUnbindService
	ReasonStartService
	ReasonStopService
	ReasonExecutingService
	ReasonGetProvider
	ReasonRemoveProvider
	ReasonUIVisibility
	ReasonAllowlist
	ReasonProcessBegin
	ReasonProcessEnd
	ReasonBackup
	ReasonUidIdle
	ReasonFollowUp
	ReasonServiceBinderCall
	ReasonSystemInit
)

var reasonNames = [...]string{
	ReasonNone:              "none",
	ReasonActivity:          "activity",
	ReasonFinishReceiver:    "finishReceiver",
	ReasonStartReceiver:     "startReceiver",
	ReasonBindService:       "bindService",
	ReasonUnbindService:     "unbindService",
	ReasonStartService:      "startService",
	ReasonStopService:       "stopService",
	ReasonExecutingService:  "executingService",
	ReasonGetProvider:       "getProvider",
	ReasonRemoveProvider:    "removeProvider",
	ReasonUIVisibility:      "uiVisibility",
	ReasonAllowlist:         "allowlist",
	ReasonProcessBegin:      "processBegin",
	ReasonProcessEnd:        "processEnd",
	ReasonBackup:            "backup",
	ReasonUidIdle:           "uidIdle",
	ReasonFollowUp:          "followUp",
	ReasonServiceBinderCall: "serviceBinderCall",
	ReasonSystemInit:        "systemInit",
}

func (r Reason) String() string {
	if r >= 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "reason(" + strconv.Itoa(int(r)) + ")"
}

// CompatChange indexes the per-process compatibility change cache.
type CompatChange int

const (
	CompatChangeProcessCapability CompatChange = iota
	CompatChangeCameraMicrophoneCapability
	CompatChangeUseShortFgsUsageInteractionTime
	CompatChangeCount
)
