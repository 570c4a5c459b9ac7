package event

import (
	"github.com/viant/oomadj/service/messaging/memory"
)

// Config describes how process deltas are delivered.
type Config struct {
	// Mode is "pass" or "always".
	Mode string `json:"mode" yaml:"mode"`
	// Async enables the in-memory queue drained by a Listener.
	Async bool          `json:"async" yaml:"async"`
	Queue memory.Config `json:"queue" yaml:"queue"`
}

// DefaultConfig returns per-pass synchronous delivery.
func DefaultConfig() Config {
	return Config{
		Mode:  string(ModePass),
		Queue: memory.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := ParseMode(c.Mode); err != nil {
		return err
	}
	if c.Async {
		return c.Queue.Validate()
	}
	return nil
}

// NewDeltaPublisher creates the delta publisher described by c.
func (c Config) NewDeltaPublisher() *Publisher[Delta] {
	if !c.Async {
		return NewPublisher[Delta](nil)
	}
	return NewPublisher[Delta](memory.NewQueue[Event[Delta]](c.Queue))
}
