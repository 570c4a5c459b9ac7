// Package uid folds per-process outcomes into their uid records and derives
// the uid level changes (idle, cached, capability) once a pass completes.
package uid
