package record

import (
	"fmt"
	"io"
	"time"

	"github.com/viant/oomadj/model"
)

// Dump writes a human readable view of the record. Times are relative to now.
func (p *Process) Dump(w io.Writer, prefix string, now time.Time) {
	fmt.Fprintf(w, "%s%s #%d uid=%s pid=%d\n", prefix, p.Name, p.ID, model.FormatUID(p.UID), p.Pid)
	fmt.Fprintf(w, "%soom adj: max=%d curRaw=%d setRaw=%d cur=%d set=%d verified=%d\n",
		prefix, p.MaxAdj, p.curRawAdj, p.AppliedRawAdj, p.curAdj, p.AppliedAdj, p.VerifiedAdj)
	fmt.Fprintf(w, "%scurSchedGroup=%v setSchedGroup=%v systemNoUi=%t\n",
		prefix, p.curSchedGroup, p.AppliedSchedGroup, p.SystemNoUi)
	fmt.Fprintf(w, "%scurProcState=%d curRawProcState=%d repProcState=%d setProcState=%d lastStateTime=%s\n",
		prefix, int(p.curProcState), int(p.curRawProcState), int(p.reportedProcState),
		int(p.AppliedProcState), formatRelative(p.LastStateTime, now))
	fmt.Fprintf(w, "%scurCapability=%s setCapability=%s\n",
		prefix, p.curCapability.Summary(), p.AppliedCapability.Summary())
	fmt.Fprintf(w, "%scurCpuTimeReasons=%v curImplicitCpuTimeReasons=%v\n",
		prefix, p.curCpuTimeReasons, p.curImplicitCpuTimeReasons)
	if p.HasShownUi || p.PendingUiClean || p.hasTopUi || p.hasOverlayUi {
		fmt.Fprintf(w, "%shasShownUi=%t pendingUiClean=%t hasTopUi=%t hasOverlayUi=%t\n",
			prefix, p.HasShownUi, p.PendingUiClean, p.hasTopUi, p.hasOverlayUi)
	}
	if p.ForcingToImportant != "" {
		fmt.Fprintf(w, "%sforcingToImportant=%s\n", prefix, p.ForcingToImportant)
	}
	if p.AdjType != "" || p.AdjSource != "" || p.AdjTarget != "" {
		fmt.Fprintf(w, "%sadjType=%s adjSource=%s adjSourceProcState=%v adjTarget=%s\n",
			prefix, p.AdjType, p.AdjSource, p.AdjSourceProcState, p.AdjTarget)
	}
	fmt.Fprintf(w, "%sadjSeq=%d completedAdjSeq=%d lruSeq=%d\n",
		prefix, p.AdjSeq, p.CompletedAdjSeq, p.LruSeq)
	fmt.Fprintf(w, "%slastTopTime=%s lastInvisibleTime=%s\n",
		prefix, formatRelative(p.LastTopTime, now), formatRelative(p.LastInvisibleTime, now))
	if !p.interactionEventTime.IsZero() || !p.fgInteractionTime.IsZero() {
		fmt.Fprintf(w, "%sinteractionEventTime=%s fgInteractionTime=%s\n",
			prefix, formatRelative(p.interactionEventTime, now), formatRelative(p.fgInteractionTime, now))
	}
	if !p.whenUnimportant.IsZero() {
		fmt.Fprintf(w, "%swhenUnimportant=%s\n", prefix, formatRelative(p.whenUnimportant, now))
	}
	if !p.FollowUpTime.IsZero() {
		fmt.Fprintf(w, "%sfollowUpTime=%s\n", prefix, formatRelative(p.FollowUpTime, now))
	}
	fmt.Fprintf(w, "%sshouldNotFreeze=%t reason=%v seq=%d freezeExempt=%t frozen=%t\n",
		prefix, p.shouldNotFreeze, p.shouldNotFreezeReason, p.shouldNotFreezeSeq, p.FreezeExempt, p.Frozen)
	if p.ServiceB || p.ServiceHighRam {
		fmt.Fprintf(w, "%sserviceb=%t serviceHighRam=%t\n", prefix, p.ServiceB, p.ServiceHighRam)
	}
}
