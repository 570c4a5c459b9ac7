// Package model contains the value types shared by the importance engine:
// adjustment levels, process states, scheduling groups, capability and
// cpu-time reason bitmasks, bind flags and update reasons.
//
// Records that carry these values live in the `record` sub-package; textual
// bind-flag expressions are parsed by `flagexpr`. The root model package has
// no dependencies so that every other part of the code base can import it.
package model
