package session

import (
	"log/slog"

	"golang.org/x/time/rate"
)

// Option configures a Session.
type Option func(s *Session)

// WithLogger sets the logger used for discipline violations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLimiter sets the limiter throttling violation reports.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(s *Session) {
		if limiter != nil {
			s.limiter = limiter
		}
	}
}
