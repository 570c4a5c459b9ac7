// Package snapshot stores text dumps of the engine under any afs URL and
// compares two dumps as a unified diff.
package snapshot
