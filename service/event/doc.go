// Package event turns process record writes into structured deltas and
// delivers them to subscribers.
//
// A Tracker is installed as the record.Observer of every process. In pass
// mode it collapses all writes made to a process during one update into a
// single Delta listing the fields that moved; in always mode it emits one
// Delta per setter call, changed or not. Deltas are published through a
// Publisher to synchronous handlers and optionally to an in-memory queue
// drained by a Listener.
package event
