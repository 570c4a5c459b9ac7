// Package freeze decides whether a process may be frozen once its importance
// is final for the pass, and collects every reason that keeps it running.
package freeze
