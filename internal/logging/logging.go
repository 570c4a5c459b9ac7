// Package logging builds the slog logger used across the engine.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config describes the logger.
type Config struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	// Format is text or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	// File is an optional output path; stderr when empty.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// DefaultConfig logs warnings and above as text to stderr.
func DefaultConfig() Config {
	return Config{Level: "warn", Format: "text"}
}

// Validate checks level and format.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
		return nil
	}
	return fmt.Errorf("unsupported log format: %q", c.Format)
}

// ParseLevel maps a level name to slog.Level. An empty name is warn.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelWarn, fmt.Errorf("unsupported log level: %q", name)
}

// New creates a logger from cfg; a nil cfg uses DefaultConfig.
func New(cfg *Config) (*slog.Logger, error) {
	if cfg == nil {
		defaults := DefaultConfig()
		cfg = &defaults
	}
	var w io.Writer = os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		w = f
	}
	return NewWithWriter(cfg, w)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg *Config, w io.Writer) (*slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h), nil
}

// Discard returns a logger dropping every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
