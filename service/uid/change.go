package uid

import "strings"

// Change is a bitmask of uid level transitions produced by Update.
type Change uint32

const (
	ChangeNone       Change = 0
	ChangeGone       Change = 1 << 0
	ChangeIdle       Change = 1 << 1
	ChangeActive     Change = 1 << 2
	ChangeCached     Change = 1 << 3
	ChangeUncached   Change = 1 << 4
	ChangeCapability Change = 1 << 5
	ChangeProcState  Change = 1 << 6
	ChangeProcAdj    Change = 1 << 7
)

var changeNames = []struct {
	change Change
	name   string
}{
	{ChangeGone, "gone"},
	{ChangeIdle, "idle"},
	{ChangeActive, "active"},
	{ChangeCached, "cached"},
	{ChangeUncached, "uncached"},
	{ChangeCapability, "capability"},
	{ChangeProcState, "procState"},
	{ChangeProcAdj, "procAdj"},
}

// Has reports whether any of the given bits is set.
func (c Change) Has(other Change) bool {
	return c&other != 0
}

func (c Change) String() string {
	if c == ChangeNone {
		return "none"
	}
	var names []string
	for _, item := range changeNames {
		if c&item.change != 0 {
			names = append(names, item.name)
		}
	}
	return strings.Join(names, "|")
}
