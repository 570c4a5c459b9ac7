package model

import "strings"

// Capability is a bitmask of privileges granted at a given importance.
type Capability uint32

const (
	CapabilityNone                   Capability = 0
	CapabilityForegroundLocation     Capability = 1 << 0
	CapabilityForegroundCamera       Capability = 1 << 1
	CapabilityForegroundMicrophone   Capability = 1 << 2
	CapabilityPowerRestrictedNetwork Capability = 1 << 3
	CapabilityBFSL                   Capability = 1 << 4
	CapabilityUserRestrictedNetwork  Capability = 1 << 5
	CapabilityForegroundAudioControl Capability = 1 << 6
	CapabilityCpuTime                Capability = 1 << 7
	CapabilityImplicitCpuTime        Capability = 1 << 8

	// CapabilityAllImplicit is granted to processes that may use camera and
	// microphone without an explicit foreground service type.
	CapabilityAllImplicit = CapabilityForegroundCamera | CapabilityForegroundMicrophone

	// CapabilityAll is every non cpu-time capability.
	CapabilityAll = CapabilityForegroundLocation | CapabilityForegroundCamera |
		CapabilityForegroundMicrophone | CapabilityPowerRestrictedNetwork |
		CapabilityBFSL | CapabilityUserRestrictedNetwork | CapabilityForegroundAudioControl

	// CapabilityAllCpuTime groups the explicit and implicit cpu-time grants.
	CapabilityAllCpuTime = CapabilityCpuTime | CapabilityImplicitCpuTime

	// CapabilityNetwork groups both network restriction bypasses.
	CapabilityNetwork = CapabilityPowerRestrictedNetwork | CapabilityUserRestrictedNetwork
)

var capabilityCodes = []struct {
	bit  Capability
	code byte
}{
	{CapabilityForegroundLocation, 'L'},
	{CapabilityForegroundCamera, 'C'},
	{CapabilityForegroundMicrophone, 'M'},
	{CapabilityPowerRestrictedNetwork, 'N'},
	{CapabilityBFSL, 'F'},
	{CapabilityUserRestrictedNetwork, 'U'},
	{CapabilityForegroundAudioControl, 'A'},
	{CapabilityCpuTime, 'T'},
	{CapabilityImplicitCpuTime, 'X'},
}

// Has reports whether every bit of other is present.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

// Summary renders one character per capability, '-' when absent.
func (c Capability) Summary() string {
	var b strings.Builder
	b.Grow(len(capabilityCodes))
	for _, item := range capabilityCodes {
		if c&item.bit != 0 {
			b.WriteByte(item.code)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func (c Capability) String() string {
	return c.Summary()
}
