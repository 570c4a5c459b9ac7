package adjuster

import "log/slog"

// Option configures an Adjuster.
type Option func(a *Adjuster)

// WithVisitOrder reorders the connections of each client before evaluation.
func WithVisitOrder(order VisitOrder) Option {
	return func(a *Adjuster) {
		a.order = order
	}
}

// WithLogger sets the logger used for pass summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adjuster) {
		if logger != nil {
			a.logger = logger
		}
	}
}
