// Package adjuster computes process importance.
//
// A pass seeds every process from its own hosted components, then drains two
// priority queues (process state first, raw adj second) evaluating the
// outgoing connections of each polled client. A host is re-queued whenever a
// connection changed it, so the pass ends at the fixed point. Processes that
// remain unassigned receive cached slots in LRU order before the results are
// applied, folded into their uids and handed to the freeze policy.
package adjuster
