package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Listener drains a publisher's queue on its own goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   Handler[T]
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
}

func NewListener[T any](publisher *Publisher[T], handler Handler[T], logger *slog.Logger) *Listener[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Stop cancels the consumer and waits for it to exit.
func (l *Listener[T]) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

func (l *Listener[T]) Start(ctx context.Context) {
	l.once.Do(func() {
		ctx, l.cancel = context.WithCancel(ctx)
		go l.run(ctx)
	})
}

func (l *Listener[T]) run(ctx context.Context) {
	defer close(l.done)
	for {
		event, err := l.publisher.Consume(ctx)
		if err != nil {
			if errors.Is(err, ErrNoQueue) || ctx.Err() != nil {
				return
			}
			l.logger.Error("failed to consume event", "error", err)
			continue
		}
		if event == nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		l.handler(event)
	}
}
