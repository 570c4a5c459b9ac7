package event

import (
	"context"
	"errors"
	"sync"

	"github.com/viant/oomadj/service/messaging"
)

// ErrNoQueue is returned by Consume on a publisher created without a queue.
var ErrNoQueue = errors.New("publisher has no queue")

// Handler receives published events synchronously.
type Handler[T any] func(*Event[T])

// Publisher delivers events to synchronous handlers and, when configured,
// to a queue drained by a Listener.
type Publisher[T any] struct {
	queue    messaging.Queue[Event[T]]
	mux      sync.RWMutex
	handlers map[int]Handler[T]
	order    []int
	nextID   int
}

// NewPublisher creates a publisher. queue may be nil.
func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{
		queue:    queue,
		handlers: map[int]Handler[T]{},
	}
}

// Subscribe registers handler and returns a function removing it.
func (p *Publisher[T]) Subscribe(handler Handler[T]) func() {
	p.mux.Lock()
	defer p.mux.Unlock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	p.order = append(p.order, id)
	return func() {
		p.mux.Lock()
		defer p.mux.Unlock()
		if _, ok := p.handlers[id]; !ok {
			return
		}
		delete(p.handlers, id)
		for i, candidate := range p.order {
			if candidate == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

// Publish calls every handler in subscription order, then hands the event to
// the queue.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	p.mux.RLock()
	handlers := make([]Handler[T], 0, len(p.order))
	for _, id := range p.order {
		handlers = append(handlers, p.handlers[id])
	}
	p.mux.RUnlock()
	for _, handler := range handlers {
		handler(event)
	}
	if p.queue == nil {
		return nil
	}
	return p.queue.Publish(ctx, event)
}

// HasSubscribers reports whether anything consumes published events.
func (p *Publisher[T]) HasSubscribers() bool {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return len(p.order) > 0 || p.queue != nil
}

// Consume takes the next queued event and acknowledges it.
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	if p.queue == nil {
		return nil, ErrNoQueue
	}
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
