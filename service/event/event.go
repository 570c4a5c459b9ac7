package event

import (
	"time"

	"github.com/viant/oomadj/internal/clock"
)

// Context identifies the update pass an event belongs to.
type Context struct {
	PassID string `json:"passID"`
	Seq    int    `json:"seq"`
	Reason string `json:"reason"`
	Full   bool   `json:"full"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Data:      data,
	}
}
