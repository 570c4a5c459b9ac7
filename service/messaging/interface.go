package messaging

import (
	"context"
)

// Queue carries published values from the pass that produced them to a
// consumer running on its own goroutine.
type Queue[T any] interface {
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a value is available or ctx is done.
	Consume(ctx context.Context) (Message[T], error)
}

// Message is one consumed value. A Nack'ed message is redelivered until the
// queue gives up on it.
type Message[T any] interface {
	ID() string
	T() *T
	Ack() error
	Nack(err error) error
}
