// Package messaging defines the queue abstraction used to hand process deltas
// to consumers that run outside the update pass.
package messaging
