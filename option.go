package oomadj

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/oomadj/policy"
	"github.com/viant/oomadj/service/adjuster"
	"github.com/viant/oomadj/service/event"
	"golang.org/x/time/rate"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures a Service.
type Option func(s *Service)

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPolicy sets the thresholds and time constants.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithMetrics registers pass collectors on registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(s *Service) {
		s.registerer = registerer
	}
}

// WithEventConfig sets how process deltas are delivered.
func WithEventConfig(config event.Config) Option {
	return func(s *Service) {
		s.events = config
	}
}

// WithPublisher replaces the delta publisher, for example to share one
// between services.
func WithPublisher(publisher *event.Publisher[event.Delta]) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithVisitOrder reorders the connections of each client before the walker
// evaluates them.
func WithVisitOrder(order adjuster.VisitOrder) Option {
	return func(s *Service) {
		s.visitOrder = order
	}
}

// WithSessionLimiter throttles batch session discipline reports.
func WithSessionLimiter(limiter *rate.Limiter) Option {
	return func(s *Service) {
		s.limiter = limiter
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.tracing = &TracingConfig{Enabled: true, ServiceName: serviceName, ServiceVersion: serviceVersion, OutputFile: outputFile}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.tracing = &TracingConfig{Enabled: true, ServiceName: serviceName, ServiceVersion: serviceVersion, exporter: exporter}
	}
}
