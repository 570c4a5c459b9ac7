package oomadj

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/oomadj/internal/logging"
	"github.com/viant/oomadj/policy"
	"github.com/viant/oomadj/service/event"
	"github.com/viant/oomadj/service/meta"
	"github.com/viant/oomadj/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from YAML or JSON. The zero-value is useful: every nested
// field inherits its package defaults.
type Config struct {
	Policy  policy.Config  `json:"policy" yaml:"policy"`
	Log     logging.Config `json:"log" yaml:"log"`
	Events  event.Config   `json:"events" yaml:"events"`
	Tracing TracingConfig  `json:"tracing" yaml:"tracing"`
}

// TracingConfig enables OpenTelemetry spans per pass.
type TracingConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	ServiceName    string `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion"`
	// OutputFile receives the stdout exporter output; empty means stdout.
	OutputFile string `json:"outputFile" yaml:"outputFile"`

	exporter sdktrace.SpanExporter
}

func (c *TracingConfig) init() error {
	name := c.ServiceName
	if name == "" {
		name = "oomadj"
	}
	if c.exporter != nil {
		return tracing.InitWithExporter(name, c.ServiceVersion, c.exporter)
	}
	return tracing.Init(name, c.ServiceVersion, c.OutputFile)
}

// DefaultConfig returns a Config populated with the production defaults.
// Callers may modify the returned struct before passing it to NewFromConfig.
func DefaultConfig() *Config {
	return &Config{
		Policy: *policy.ToConfig(policy.Default()),
		Log:    logging.DefaultConfig(),
		Events: event.DefaultConfig(),
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	p, err := policy.FromConfig(&c.Policy)
	if err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	} else if err = p.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}
	if err = c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if err = c.Events.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("events: %w", err))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML or JSON config from any afs URL (file://, mem://,
// embed://). ${env.KEY} references are expanded; missing sections keep their
// defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	ret := DefaultConfig()
	if err := meta.New(nil).Load(ctx, URL, ret); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}

// NewFromConfig builds a Service from cfg. Options are applied after the
// config, so they take precedence.
func NewFromConfig(cfg *Config, options ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := policy.FromConfig(&cfg.Policy)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(&cfg.Log)
	if err != nil {
		return nil, err
	}
	fromConfig := []Option{WithPolicy(p), WithLogger(logger), WithEventConfig(cfg.Events)}
	if cfg.Tracing.Enabled {
		tracingConfig := cfg.Tracing
		fromConfig = append(fromConfig, func(s *Service) { s.tracing = &tracingConfig })
	}
	return New(append(fromConfig, options...)...), nil
}
