// Package idgen produces the opaque pass identifiers stamped on delta events
// and trace spans.
package idgen
