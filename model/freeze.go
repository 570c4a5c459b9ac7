package model

import "strings"

// FreezeReason is a bitmask of reasons a cached process must not be frozen.
// Several reasons can be held at once and all of them are kept for dumps.
type FreezeReason uint32

const (
	FreezeReasonNone                     FreezeReason = 0
	FreezeReasonUidAllowlisted           FreezeReason = 1 << 0
	FreezeReasonBinderAllowOomManagement FreezeReason = 1 << 1
	FreezeReasonBindWaivePriority        FreezeReason = 1 << 2
	FreezeReasonInstrumentation          FreezeReason = 1 << 3
	FreezeReasonPendingFinishAttach      FreezeReason = 1 << 4
	FreezeReasonStartedServices          FreezeReason = 1 << 5
	FreezeReasonRecentTop                FreezeReason = 1 << 6
	FreezeReasonKeepWarm                 FreezeReason = 1 << 7
)

var freezeReasonNames = []struct {
	reason FreezeReason
	name   string
}{
	{FreezeReasonUidAllowlisted, "uid-allowlisted"},
	{FreezeReasonBinderAllowOomManagement, "allow-oom-management"},
	{FreezeReasonBindWaivePriority, "waive-priority"},
	{FreezeReasonInstrumentation, "instrumentation"},
	{FreezeReasonPendingFinishAttach, "pending-attach"},
	{FreezeReasonStartedServices, "started-services"},
	{FreezeReasonRecentTop, "recent-top"},
	{FreezeReasonKeepWarm, "keep-warm"},
}

func (r FreezeReason) String() string {
	if r == FreezeReasonNone {
		return "none"
	}
	var names []string
	for _, item := range freezeReasonNames {
		if r&item.reason != 0 {
			names = append(names, item.name)
		}
	}
	return strings.Join(names, ",")
}
