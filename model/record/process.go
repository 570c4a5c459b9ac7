package record

import (
	"time"

	"github.com/viant/oomadj/model"
)

// Forever marks a time point that has not been reached.
var Forever = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Adj type codes explain a raise caused by a binding.
const (
	AdjTypeCodeNone          = 0
	AdjTypeCodeProviderInUse = 1
	AdjTypeCodeServiceInUse  = 2
)

// Process holds the importance state of one running process.
//
// cur values belong to the computation in progress; Applied values are only
// overwritten once a pass completes. Records carry no lock of their own, the
// owning service guards them.
type Process struct {
	ID         int
	Name       string
	UID        int
	Pid        int
	Isolated   bool
	SdkSandbox bool
	// Alive is false until the process has an attached thread.
	Alive bool

	Components Components
	Services   []*ServiceRecord
	Providers  []*ProviderRecord

	NumExecutingServices                   int
	ExecServicesFg                         bool
	HasClientActivities                    bool
	TreatLikeActivity                      bool
	HasAboveClient                         bool
	HasTopStartedAlmostPerceptibleServices bool
	LastProviderTime                       time.Time

	MaxAdj        int
	AppliedRawAdj int
	AppliedAdj    int
	VerifiedAdj   int

	// SeedCapability is what the last seed granted before any connection.
	SeedCapability                model.Capability
	AppliedCapability             model.Capability
	AppliedCpuTimeReasons         model.CpuTimeReason
	AppliedImplicitCpuTimeReasons model.ImplicitCpuTimeReason
	AppliedSchedGroup             model.SchedGroup
	AppliedProcState              model.ProcState
	AppliedRawProcState           model.ProcState

	AdjType            string
	AdjTypeCode        int
	AdjSource          string
	AdjSourceProcState model.ProcState
	AdjTarget          string

	AdjSeq          int
	CompletedAdjSeq int
	LruSeq          int

	HasShownUi                    bool
	RunningRemoteAnimation        bool
	ForcingToImportant            string
	BackgroundRestricted          bool
	CurBoundByNonBgRestricted     bool
	AppliedBoundByNonBgRestricted bool
	SystemNoUi                    bool
	ScheduleLikeTopApp            bool
	ServiceB                      bool
	ServiceHighRam                bool
	HasForegroundActivities       bool
	HasVisibleActivities          bool
	PendingFinishAttach           bool
	PendingUiClean                bool
	HasReportedInteraction        bool
	AppliedCached                 bool
	BackupTarget                  bool
	Reachable                     bool
	CacheOomRankerUseCount        int

	LastTopTime       time.Time
	LastInvisibleTime time.Time
	LastCachedTime    time.Time
	LastStateTime     time.Time
	FollowUpTime      time.Time

	FreezeExempt  bool
	Frozen        bool
	PendingFreeze bool

	curRawAdj                 int
	curAdj                    int
	curSchedGroup             model.SchedGroup
	curProcState              model.ProcState
	curRawProcState           model.ProcState
	reportedProcState         model.ProcState
	curCapability             model.Capability
	curCpuTimeReasons         model.CpuTimeReason
	curImplicitCpuTimeReasons model.ImplicitCpuTimeReason
	hasTopUi                  bool
	hasOverlayUi              bool
	interactionEventTime      time.Time
	fgInteractionTime         time.Time
	whenUnimportant           time.Time
	hasStartedServices        bool

	shouldNotFreeze       bool
	shouldNotFreezeReason model.FreezeReason
	shouldNotFreezeSeq    int

	cache    processCache
	observer Observer
}

// NewProcess creates a record with every adj field invalid.
func NewProcess(id int, name string, uid int) *Process {
	p := &Process{
		ID:         id,
		Name:       name,
		UID:        uid,
		Alive:      true,
		Components: &StaticComponents{},
		MaxAdj:     model.UnknownAdj,
		observer:   nopObserver{},
	}
	p.reset()
	p.ResetCachedInfo()
	return p
}

// SetObserver installs the observer notified on every observable write.
func (p *Process) SetObserver(observer Observer) {
	if observer == nil {
		observer = nopObserver{}
	}
	p.observer = observer
}

// State captures the observable fields.
func (p *Process) State() State {
	return State{
		CurRawAdj:            p.curRawAdj,
		CurAdj:               p.curAdj,
		SchedGroup:           p.curSchedGroup,
		ProcState:            p.curProcState,
		ReportedProcState:    p.reportedProcState,
		HasTopUi:             p.hasTopUi,
		HasOverlayUi:         p.hasOverlayUi,
		InteractionEventTime: p.interactionEventTime,
		FgInteractionTime:    p.fgInteractionTime,
		WhenUnimportant:      p.whenUnimportant,
		HasStartedServices:   p.hasStartedServices,
		ReceivingBroadcast:   p.cache.isReceivingBroadcast == cacheTrue,
		HasActivities:        p.cache.hasActivities == cacheTrue,
	}
}

func (p *Process) CurRawAdj() int {
	return p.curRawAdj
}

// SetCurRawAdj reports whether adj would lower the current raw adj.
// With dryRun nothing is written.
func (p *Process) SetCurRawAdj(adj int, dryRun bool) bool {
	improves := p.curRawAdj > adj
	if dryRun {
		return improves
	}
	before := p.State()
	p.curRawAdj = adj
	p.observer.OnChange(p, FieldCurRawAdj, before)
	return improves
}

func (p *Process) CurAdj() int {
	return p.curAdj
}

func (p *Process) SetCurAdj(adj int) {
	before := p.State()
	p.curAdj = adj
	p.observer.OnChange(p, FieldCurAdj, before)
}

func (p *Process) CurSchedGroup() model.SchedGroup {
	return p.curSchedGroup
}

func (p *Process) SetCurSchedGroup(group model.SchedGroup) {
	before := p.State()
	p.curSchedGroup = group
	p.observer.OnChange(p, FieldSchedGroup, before)
}

func (p *Process) CurProcState() model.ProcState {
	return p.curProcState
}

func (p *Process) SetCurProcState(state model.ProcState) {
	before := p.State()
	p.curProcState = state
	p.observer.OnChange(p, FieldProcState, before)
}

func (p *Process) CurRawProcState() model.ProcState {
	return p.curRawProcState
}

// SetCurRawProcState reports whether state would improve the current raw
// proc state. With dryRun nothing is written.
func (p *Process) SetCurRawProcState(state model.ProcState, dryRun bool) bool {
	improves := p.curRawProcState > state
	if !dryRun {
		p.curRawProcState = state
	}
	return improves
}

func (p *Process) ReportedProcState() model.ProcState {
	return p.reportedProcState
}

func (p *Process) SetReportedProcState(state model.ProcState) {
	before := p.State()
	p.reportedProcState = state
	p.observer.OnChange(p, FieldReportedProcState, before)
}

func (p *Process) HasTopUi() bool {
	return p.hasTopUi
}

func (p *Process) SetHasTopUi(hasTopUi bool) {
	before := p.State()
	p.hasTopUi = hasTopUi
	p.observer.OnChange(p, FieldHasTopUi, before)
}

func (p *Process) HasOverlayUi() bool {
	return p.hasOverlayUi
}

func (p *Process) SetHasOverlayUi(hasOverlayUi bool) {
	before := p.State()
	p.hasOverlayUi = hasOverlayUi
	p.observer.OnChange(p, FieldHasOverlayUi, before)
}

func (p *Process) InteractionEventTime() time.Time {
	return p.interactionEventTime
}

func (p *Process) SetInteractionEventTime(t time.Time) {
	before := p.State()
	p.interactionEventTime = t
	p.observer.OnChange(p, FieldInteractionEventTime, before)
}

func (p *Process) FgInteractionTime() time.Time {
	return p.fgInteractionTime
}

func (p *Process) SetFgInteractionTime(t time.Time) {
	before := p.State()
	p.fgInteractionTime = t
	p.observer.OnChange(p, FieldFgInteractionTime, before)
}

func (p *Process) WhenUnimportant() time.Time {
	return p.whenUnimportant
}

func (p *Process) SetWhenUnimportant(t time.Time) {
	before := p.State()
	p.whenUnimportant = t
	p.observer.OnChange(p, FieldWhenUnimportant, before)
}

func (p *Process) HasStartedServices() bool {
	return p.hasStartedServices
}

func (p *Process) SetHasStartedServices(started bool) {
	before := p.State()
	p.hasStartedServices = started
	p.observer.OnChange(p, FieldHasStartedServices, before)
}

func (p *Process) CurCapability() model.Capability {
	return p.curCapability
}

func (p *Process) SetCurCapability(capability model.Capability) {
	p.curCapability = capability
}

func (p *Process) CurCpuTimeReasons() model.CpuTimeReason {
	return p.curCpuTimeReasons
}

func (p *Process) AddCurCpuTimeReasons(reasons model.CpuTimeReason) {
	p.curCpuTimeReasons |= reasons
}

func (p *Process) ClearCurCpuTimeReasons() {
	p.curCpuTimeReasons = model.CpuTimeReasonNone
}

func (p *Process) CurImplicitCpuTimeReasons() model.ImplicitCpuTimeReason {
	return p.curImplicitCpuTimeReasons
}

func (p *Process) AddCurImplicitCpuTimeReasons(reasons model.ImplicitCpuTimeReason) {
	p.curImplicitCpuTimeReasons |= reasons
}

func (p *Process) ClearCurImplicitCpuTimeReasons() {
	p.curImplicitCpuTimeReasons = model.ImplicitCpuTimeReasonNone
}

func (p *Process) ShouldNotFreeze() bool {
	return p.shouldNotFreeze
}

func (p *Process) ShouldNotFreezeReason() model.FreezeReason {
	return p.shouldNotFreezeReason
}

// ShouldNotFreezeSeq is the pass seq in which the flag last flipped.
func (p *Process) ShouldNotFreezeSeq() int {
	return p.shouldNotFreezeSeq
}

// SetShouldNotFreeze reports whether the flag would flip. When applied the
// reasons replace the current ones.
func (p *Process) SetShouldNotFreeze(shouldNotFreeze, dryRun bool, reasons model.FreezeReason, seq int) bool {
	flips := p.shouldNotFreeze != shouldNotFreeze
	if dryRun {
		return flips
	}
	if flips {
		p.shouldNotFreezeSeq = seq
	}
	p.shouldNotFreeze = shouldNotFreeze
	p.shouldNotFreezeReason = reasons
	return flips
}

// ApplyProcState records the proc state handed to the system.
func (p *Process) ApplyProcState(state model.ProcState, now time.Time) {
	if p.AppliedProcState.IsCached() && !state.IsCached() {
		p.CacheOomRankerUseCount++
	}
	if p.AppliedProcState != state {
		p.LastStateTime = now
	}
	p.AppliedProcState = state
}

// IsCached reports whether the current adj is in the cached band.
func (p *Process) IsCached() bool {
	return p.curAdj >= model.CachedAppMinAdj
}

// IsEmpty reports whether the process hosts nothing of interest.
func (p *Process) IsEmpty() bool {
	return p.curProcState >= model.ProcStateCachedEmpty
}

// IsFixed reports whether MaxAdj pins the process at foreground or better.
func (p *Process) IsFixed() bool {
	return p.MaxAdj <= model.ForegroundAppAdj
}

func (p *Process) UpdateLastInvisibleTime(hasVisibleActivities bool, now time.Time) {
	if hasVisibleActivities {
		p.LastInvisibleTime = Forever
	} else if p.LastInvisibleTime.Equal(Forever) {
		p.LastInvisibleTime = now
	}
}

// HasForegroundServices reports whether any hosted service runs in the foreground.
func (p *Process) HasForegroundServices() bool {
	for _, service := range p.Services {
		if service.IsForeground {
			return true
		}
	}
	return false
}

// HasNonShortForegroundServices reports whether a foreground service other
// than a short one is running.
func (p *Process) HasNonShortForegroundServices() bool {
	for _, service := range p.Services {
		if service.IsForeground && !service.ShortService {
			return true
		}
	}
	return false
}

// AllShortForegroundServicesTimedOut reports whether every short foreground
// service has passed its proc state timeout.
func (p *Process) AllShortForegroundServicesTimedOut(now time.Time) bool {
	for _, service := range p.Services {
		if !service.IsForeground || !service.ShortService {
			continue
		}
		if now.Before(service.ShortFgsTimeout) {
			return false
		}
	}
	return true
}

// HasActiveInstrumentation is not cached; instrumentation is a start-time property.
func (p *Process) HasActiveInstrumentation() bool {
	return p.Components.HasActiveInstrumentation()
}

// OnCleanup resets the record after process death.
func (p *Process) OnCleanup() {
	p.HasForegroundActivities = false
	p.HasShownUi = false
	p.ForcingToImportant = ""
	p.reset()
	p.cache.compatChanges = [model.CompatChangeCount]tristate{}
}

func (p *Process) reset() {
	p.curRawAdj, p.AppliedRawAdj, p.curAdj, p.AppliedAdj, p.VerifiedAdj =
		model.InvalidAdj, model.InvalidAdj, model.InvalidAdj, model.InvalidAdj, model.InvalidAdj
	p.curCapability, p.AppliedCapability, p.SeedCapability = model.CapabilityNone, model.CapabilityNone, model.CapabilityNone
	p.curCpuTimeReasons, p.AppliedCpuTimeReasons = model.CpuTimeReasonNone, model.CpuTimeReasonNone
	p.curImplicitCpuTimeReasons, p.AppliedImplicitCpuTimeReasons = model.ImplicitCpuTimeReasonNone, model.ImplicitCpuTimeReasonNone
	p.curSchedGroup, p.AppliedSchedGroup = model.SchedGroupBackground, model.SchedGroupBackground
	p.curProcState, p.curRawProcState = model.ProcStateNonexistent, model.ProcStateNonexistent
	p.AppliedProcState, p.AppliedRawProcState = model.ProcStateNonexistent, model.ProcStateNonexistent
	p.reportedProcState = model.ProcStateNonexistent
	p.AdjSourceProcState = model.ProcStateNonexistent
	p.LastTopTime = time.Time{}
	p.LastInvisibleTime = Forever
}
