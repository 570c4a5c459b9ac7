package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/viant/oomadj/model"
)

// Thresholds holds the adj bands used by the walker. Lower is more important.
type Thresholds struct {
	Native                      int `json:"native" yaml:"native"`
	System                      int `json:"system" yaml:"system"`
	PersistentProc              int `json:"persistentProc" yaml:"persistentProc"`
	PersistentService           int `json:"persistentService" yaml:"persistentService"`
	Foreground                  int `json:"foreground" yaml:"foreground"`
	PerceptibleRecentForeground int `json:"perceptibleRecentForeground" yaml:"perceptibleRecentForeground"`
	Visible                     int `json:"visible" yaml:"visible"`
	VisibleMax                  int `json:"visibleMax" yaml:"visibleMax"`
	Perceptible                 int `json:"perceptible" yaml:"perceptible"`
	PerceptibleMedium           int `json:"perceptibleMedium" yaml:"perceptibleMedium"`
	PerceptibleLow              int `json:"perceptibleLow" yaml:"perceptibleLow"`
	Backup                      int `json:"backup" yaml:"backup"`
	HeavyWeight                 int `json:"heavyWeight" yaml:"heavyWeight"`
	Service                     int `json:"service" yaml:"service"`
	Home                        int `json:"home" yaml:"home"`
	Previous                    int `json:"previous" yaml:"previous"`
	PreviousMax                 int `json:"previousMax" yaml:"previousMax"`
	ServiceB                    int `json:"serviceB" yaml:"serviceB"`
	CachedMin                   int `json:"cachedMin" yaml:"cachedMin"`
	CachedMax                   int `json:"cachedMax" yaml:"cachedMax"`
	Unknown                     int `json:"unknown" yaml:"unknown"`
}

// DefaultThresholds returns the bands defined in package model.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Native:                      model.NativeAdj,
		System:                      model.SystemAdj,
		PersistentProc:              model.PersistentProcAdj,
		PersistentService:           model.PersistentServiceAdj,
		Foreground:                  model.ForegroundAppAdj,
		PerceptibleRecentForeground: model.PerceptibleRecentForegroundAppAdj,
		Visible:                     model.VisibleAppAdj,
		VisibleMax:                  model.PerceptibleAppAdj - 1,
		Perceptible:                 model.PerceptibleAppAdj,
		PerceptibleMedium:           model.PerceptibleMediumAppAdj,
		PerceptibleLow:              model.PerceptibleLowAppAdj,
		Backup:                      model.BackupAppAdj,
		HeavyWeight:                 model.HeavyWeightAppAdj,
		Service:                     model.ServiceAdj,
		Home:                        model.HomeAppAdj,
		Previous:                    model.PreviousAppAdj,
		PreviousMax:                 model.ServiceBAdj - 1,
		ServiceB:                    model.ServiceBAdj,
		CachedMin:                   model.CachedAppMinAdj,
		CachedMax:                   model.CachedAppMaxAdj,
		Unknown:                     model.UnknownAdj,
	}
}

// Validate checks that the bands are strictly ordered. Upper bounds of the
// visible and previous bands may equal their lower bound.
func (t *Thresholds) Validate() error {
	chain := []struct {
		name  string
		value int
		equal bool
	}{
		{"native", t.Native, false},
		{"system", t.System, false},
		{"persistentProc", t.PersistentProc, false},
		{"persistentService", t.PersistentService, false},
		{"foreground", t.Foreground, false},
		{"perceptibleRecentForeground", t.PerceptibleRecentForeground, false},
		{"visible", t.Visible, false},
		{"visibleMax", t.VisibleMax, true},
		{"perceptible", t.Perceptible, false},
		{"perceptibleMedium", t.PerceptibleMedium, false},
		{"perceptibleLow", t.PerceptibleLow, false},
		{"backup", t.Backup, false},
		{"heavyWeight", t.HeavyWeight, false},
		{"service", t.Service, false},
		{"home", t.Home, false},
		{"previous", t.Previous, false},
		{"previousMax", t.PreviousMax, true},
		{"serviceB", t.ServiceB, false},
		{"cachedMin", t.CachedMin, false},
		{"cachedMax", t.CachedMax, false},
		{"unknown", t.Unknown, false},
	}
	var errs []error
	for i := 1; i < len(chain); i++ {
		prev, cur := chain[i-1], chain[i]
		if cur.value > prev.value || (cur.equal && cur.value == prev.value) {
			continue
		}
		errs = append(errs, fmt.Errorf("adj %v (%d) must be above %v (%d)", cur.name, cur.value, prev.name, prev.value))
	}
	if t.PerceptibleMedium+2 >= t.PerceptibleLow {
		errs = append(errs, fmt.Errorf("adj perceptibleMedium+2 (%d) must be below perceptibleLow (%d)", t.PerceptibleMedium+2, t.PerceptibleLow))
	}
	return errors.Join(errs...)
}

// Policy holds the thresholds and time constants of the importance engine.
type Policy struct {
	Adj Thresholds

	// CachedImportanceLevels is the number of adj steps inside one cached slot.
	CachedImportanceLevels int
	// FreezerCutoffAdj is the adj below which a process holds implicit cpu time.
	FreezerCutoffAdj int
	// CachingUiServiceClientAdjThreshold keeps ui hosts cached for clients above it.
	CachingUiServiceClientAdjThreshold int
	// MaxCachedProcesses and MaxEmptyProcesses size the empty slot spread.
	MaxCachedProcesses int
	MaxEmptyProcesses  int

	MaxServiceInactivity        time.Duration
	TopToFgsGrace               time.Duration
	TopToAlmostPerceptibleGrace time.Duration
	ContentProviderRetainTime   time.Duration
	MaxPreviousTime             time.Duration
	RecentTopFreezeDebounce     time.Duration

	ServiceUsageInteractionTime        time.Duration
	ShortServiceUsageInteractionTime   time.Duration
	UsageStatsInteractionInterval      time.Duration
	ShortUsageStatsInteractionInterval time.Duration

	KeepWarmingServices []string

	CpuTimeCapabilityBasedFreeze  bool
	UseTopSchedGroupForTopProcess bool
	VisibleLaddering              bool
	PreviousLaddering             bool
}

// Default returns production defaults.
func Default() *Policy {
	return &Policy{
		Adj:                                DefaultThresholds(),
		CachedImportanceLevels:             5,
		FreezerCutoffAdj:                   model.CachedAppMinAdj,
		CachingUiServiceClientAdjThreshold: model.ServiceAdj,
		MaxCachedProcesses:                 32,
		MaxEmptyProcesses:                  16,
		MaxServiceInactivity:               30 * time.Minute,
		TopToFgsGrace:                      15 * time.Second,
		TopToAlmostPerceptibleGrace:        15 * time.Second,
		ContentProviderRetainTime:          20 * time.Second,
		MaxPreviousTime:                    time.Minute,
		RecentTopFreezeDebounce:            10 * time.Second,
		ServiceUsageInteractionTime:        30 * time.Minute,
		ShortServiceUsageInteractionTime:   time.Minute,
		UsageStatsInteractionInterval:      2 * time.Hour,
		ShortUsageStatsInteractionInterval: 10 * time.Minute,
		UseTopSchedGroupForTopProcess:      true,
	}
}

// CachedSlots returns how many cached slots fit between CachedMin and CachedMax.
func (p *Policy) CachedSlots() int {
	levels := p.CachedImportanceLevels
	if levels <= 0 {
		levels = 1
	}
	slots := (p.Adj.CachedMax - p.Adj.CachedMin + 1) / 2 / levels
	if slots < 1 {
		return 1
	}
	return slots
}

// Validate checks thresholds and durations.
func (p *Policy) Validate() error {
	var errs []error
	if err := p.Adj.Validate(); err != nil {
		errs = append(errs, err)
	}
	if p.MaxEmptyProcesses < 0 || p.MaxEmptyProcesses > p.MaxCachedProcesses {
		errs = append(errs, fmt.Errorf("maxEmptyProcesses (%d) must be within [0, maxCachedProcesses (%d)]", p.MaxEmptyProcesses, p.MaxCachedProcesses))
	}
	if p.CachedImportanceLevels <= 0 {
		errs = append(errs, fmt.Errorf("cachedImportanceLevels must be positive: %d", p.CachedImportanceLevels))
	}
	durations := map[string]time.Duration{
		"maxServiceInactivity":        p.MaxServiceInactivity,
		"topToFgsGrace":               p.TopToFgsGrace,
		"topToAlmostPerceptibleGrace": p.TopToAlmostPerceptibleGrace,
		"contentProviderRetainTime":   p.ContentProviderRetainTime,
		"maxPreviousTime":             p.MaxPreviousTime,
		"recentTopFreezeDebounce":     p.RecentTopFreezeDebounce,
	}
	for name, value := range durations {
		if value < 0 {
			errs = append(errs, fmt.Errorf("%v must not be negative: %v", name, value))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	clone := *p
	clone.KeepWarmingServices = append([]string(nil), p.KeepWarmingServices...)
	return &clone
}

// Config represents the serialisable form of a Policy. Durations are
// duration strings; empty values fall back to Default.
type Config struct {
	Adj                                *Thresholds `json:"adj,omitempty" yaml:"adj,omitempty"`
	CachedImportanceLevels             int         `json:"cachedImportanceLevels,omitempty" yaml:"cachedImportanceLevels,omitempty"`
	FreezerCutoffAdj                   *int        `json:"freezerCutoffAdj,omitempty" yaml:"freezerCutoffAdj,omitempty"`
	CachingUiServiceClientAdjThreshold *int        `json:"cachingUiServiceClientAdjThreshold,omitempty" yaml:"cachingUiServiceClientAdjThreshold,omitempty"`
	MaxCachedProcesses                 int         `json:"maxCachedProcesses,omitempty" yaml:"maxCachedProcesses,omitempty"`
	MaxEmptyProcesses                  int         `json:"maxEmptyProcesses,omitempty" yaml:"maxEmptyProcesses,omitempty"`
	MaxServiceInactivity               string      `json:"maxServiceInactivity,omitempty" yaml:"maxServiceInactivity,omitempty"`
	TopToFgsGrace                      string      `json:"topToFgsGrace,omitempty" yaml:"topToFgsGrace,omitempty"`
	TopToAlmostPerceptibleGrace        string      `json:"topToAlmostPerceptibleGrace,omitempty" yaml:"topToAlmostPerceptibleGrace,omitempty"`
	ContentProviderRetainTime          string      `json:"contentProviderRetainTime,omitempty" yaml:"contentProviderRetainTime,omitempty"`
	MaxPreviousTime                    string      `json:"maxPreviousTime,omitempty" yaml:"maxPreviousTime,omitempty"`
	RecentTopFreezeDebounce            string      `json:"recentTopFreezeDebounce,omitempty" yaml:"recentTopFreezeDebounce,omitempty"`
	ServiceUsageInteractionTime        string      `json:"serviceUsageInteractionTime,omitempty" yaml:"serviceUsageInteractionTime,omitempty"`
	ShortServiceUsageInteractionTime   string      `json:"shortServiceUsageInteractionTime,omitempty" yaml:"shortServiceUsageInteractionTime,omitempty"`
	UsageStatsInteractionInterval      string      `json:"usageStatsInteractionInterval,omitempty" yaml:"usageStatsInteractionInterval,omitempty"`
	ShortUsageStatsInteractionInterval string      `json:"shortUsageStatsInteractionInterval,omitempty" yaml:"shortUsageStatsInteractionInterval,omitempty"`
	KeepWarmingServices                []string    `json:"keepWarmingServices,omitempty" yaml:"keepWarmingServices,omitempty"`
	CpuTimeCapabilityBasedFreeze       bool        `json:"cpuTimeCapabilityBasedFreeze,omitempty" yaml:"cpuTimeCapabilityBasedFreeze,omitempty"`
	UseTopSchedGroupForTopProcess      *bool       `json:"useTopSchedGroupForTopProcess,omitempty" yaml:"useTopSchedGroupForTopProcess,omitempty"`
	VisibleLaddering                   bool        `json:"visibleLaddering,omitempty" yaml:"visibleLaddering,omitempty"`
	PreviousLaddering                  bool        `json:"previousLaddering,omitempty" yaml:"previousLaddering,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	adj := p.Adj
	freezerCutoff := p.FreezerCutoffAdj
	uiThreshold := p.CachingUiServiceClientAdjThreshold
	useTop := p.UseTopSchedGroupForTopProcess
	return &Config{
		Adj:                                &adj,
		CachedImportanceLevels:             p.CachedImportanceLevels,
		FreezerCutoffAdj:                   &freezerCutoff,
		CachingUiServiceClientAdjThreshold: &uiThreshold,
		MaxCachedProcesses:                 p.MaxCachedProcesses,
		MaxEmptyProcesses:                  p.MaxEmptyProcesses,
		MaxServiceInactivity:               p.MaxServiceInactivity.String(),
		TopToFgsGrace:                      p.TopToFgsGrace.String(),
		TopToAlmostPerceptibleGrace:        p.TopToAlmostPerceptibleGrace.String(),
		ContentProviderRetainTime:          p.ContentProviderRetainTime.String(),
		MaxPreviousTime:                    p.MaxPreviousTime.String(),
		RecentTopFreezeDebounce:            p.RecentTopFreezeDebounce.String(),
		ServiceUsageInteractionTime:        p.ServiceUsageInteractionTime.String(),
		ShortServiceUsageInteractionTime:   p.ShortServiceUsageInteractionTime.String(),
		UsageStatsInteractionInterval:      p.UsageStatsInteractionInterval.String(),
		ShortUsageStatsInteractionInterval: p.ShortUsageStatsInteractionInterval.String(),
		KeepWarmingServices:                append([]string(nil), p.KeepWarmingServices...),
		CpuTimeCapabilityBasedFreeze:       p.CpuTimeCapabilityBasedFreeze,
		UseTopSchedGroupForTopProcess:      &useTop,
		VisibleLaddering:                   p.VisibleLaddering,
		PreviousLaddering:                  p.PreviousLaddering,
	}
}

// FromConfig converts a stored Config back to a runtime Policy. A nil config
// yields Default.
func FromConfig(c *Config) (*Policy, error) {
	result := Default()
	if c == nil {
		return result, nil
	}
	if c.Adj != nil {
		result.Adj = *c.Adj
	}
	if c.CachedImportanceLevels != 0 {
		result.CachedImportanceLevels = c.CachedImportanceLevels
	}
	if c.FreezerCutoffAdj != nil {
		result.FreezerCutoffAdj = *c.FreezerCutoffAdj
	}
	if c.CachingUiServiceClientAdjThreshold != nil {
		result.CachingUiServiceClientAdjThreshold = *c.CachingUiServiceClientAdjThreshold
	}
	if c.MaxCachedProcesses != 0 {
		result.MaxCachedProcesses = c.MaxCachedProcesses
	}
	if c.MaxEmptyProcesses != 0 {
		result.MaxEmptyProcesses = c.MaxEmptyProcesses
	}
	if c.UseTopSchedGroupForTopProcess != nil {
		result.UseTopSchedGroupForTopProcess = *c.UseTopSchedGroupForTopProcess
	}
	result.KeepWarmingServices = append([]string(nil), c.KeepWarmingServices...)
	result.CpuTimeCapabilityBasedFreeze = c.CpuTimeCapabilityBasedFreeze
	result.VisibleLaddering = c.VisibleLaddering
	result.PreviousLaddering = c.PreviousLaddering

	durations := []struct {
		name   string
		value  string
		target *time.Duration
	}{
		{"maxServiceInactivity", c.MaxServiceInactivity, &result.MaxServiceInactivity},
		{"topToFgsGrace", c.TopToFgsGrace, &result.TopToFgsGrace},
		{"topToAlmostPerceptibleGrace", c.TopToAlmostPerceptibleGrace, &result.TopToAlmostPerceptibleGrace},
		{"contentProviderRetainTime", c.ContentProviderRetainTime, &result.ContentProviderRetainTime},
		{"maxPreviousTime", c.MaxPreviousTime, &result.MaxPreviousTime},
		{"recentTopFreezeDebounce", c.RecentTopFreezeDebounce, &result.RecentTopFreezeDebounce},
		{"serviceUsageInteractionTime", c.ServiceUsageInteractionTime, &result.ServiceUsageInteractionTime},
		{"shortServiceUsageInteractionTime", c.ShortServiceUsageInteractionTime, &result.ShortServiceUsageInteractionTime},
		{"usageStatsInteractionInterval", c.UsageStatsInteractionInterval, &result.UsageStatsInteractionInterval},
		{"shortUsageStatsInteractionInterval", c.ShortUsageStatsInteractionInterval, &result.ShortUsageStatsInteractionInterval},
	}
	for _, item := range durations {
		if item.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(item.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %v: %w", item.name, err)
		}
		*item.target = parsed
	}
	return result, nil
}
