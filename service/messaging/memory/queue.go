package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/viant/oomadj/internal/clock"
	"github.com/viant/oomadj/internal/idgen"
	"github.com/viant/oomadj/service/messaging"
)

// ErrQueueFull is returned by Publish when the queue rejects on overflow.
var ErrQueueFull = errors.New("queue is full")

// Overflow defines what Publish does when the buffer is full.
type Overflow string

const (
	// OverflowDropOldest evicts the oldest pending message.
	OverflowDropOldest Overflow = "dropOldest"
	// OverflowReject returns ErrQueueFull.
	OverflowReject Overflow = "reject"
)

// Config for memory queue implementation
type Config struct {
	MaxRetries  int      `json:"maxRetries" yaml:"maxRetries"`
	DeadLetter  bool     `json:"deadLetter" yaml:"deadLetter"`
	QueueBuffer int      `json:"queueBuffer" yaml:"queueBuffer"`
	Overflow    Overflow `json:"overflow" yaml:"overflow"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		DeadLetter:  true,
		QueueBuffer: 1024,
		Overflow:    OverflowDropOldest,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.QueueBuffer < 0 {
		return fmt.Errorf("queueBuffer must be >= 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must be >= 0")
	}
	switch c.Overflow {
	case "", OverflowDropOldest, OverflowReject:
	default:
		return fmt.Errorf("unsupported overflow policy: %s", c.Overflow)
	}
	return nil
}

// Message is a queued payload.
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	retryCount int
	mu         sync.Mutex
	processed  bool
	createdAt  time.Time
}

// ID returns the message identifier
func (m *Message[T]) ID() string {
	return m.id
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// CreatedAt returns the time the message was first published.
func (m *Message[T]) CreatedAt() time.Time {
	return m.createdAt
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	return nil
}

// Nack returns the message to the tail of the queue while retries remain,
// otherwise moves it to the dead letter list when enabled.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	if m.retryCount < m.queue.config.MaxRetries {
		m.queue.push(&Message[T]{
			id:         m.id,
			payload:    m.payload,
			queue:      m.queue,
			retryCount: m.retryCount + 1,
			createdAt:  m.createdAt,
		})
		return nil
	}
	if m.queue.config.DeadLetter {
		m.queue.mu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.mu.Unlock()
	}
	return nil
}

// Queue is a bounded in-memory messaging.Queue. Publish never blocks.
type Queue[T any] struct {
	config   Config
	mu       sync.Mutex
	messages []*Message[T]
	dlq      []*Message[T]
	dropped  int
	ready    chan struct{}
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	if config.Overflow == "" {
		config.Overflow = OverflowDropOldest
	}
	return &Queue[T]{
		config: config,
		ready:  make(chan struct{}, 1),
	}
}

// Publish adds a new item to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.push(&Message[T]{
		id:        idgen.New(),
		payload:   *t,
		queue:     q,
		createdAt: clock.Now(),
	})
}

func (q *Queue[T]) push(msg *Message[T]) error {
	q.mu.Lock()
	if len(q.messages) >= q.config.QueueBuffer {
		if q.config.Overflow == OverflowReject {
			q.mu.Unlock()
			return ErrQueueFull
		}
		q.messages[0] = nil
		q.messages = q.messages[1:]
		q.dropped++
	}
	q.messages = append(q.messages, msg)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

func (q *Queue[T]) pop() *Message[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return nil
	}
	msg := q.messages[0]
	q.messages[0] = nil
	q.messages = q.messages[1:]
	if len(q.messages) > 0 {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return msg
}

// Consume retrieves a single item from the queue, waiting until one is
// available or ctx is done.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		if msg := q.pop(); msg != nil {
			return msg, nil
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Dropped returns the number of messages evicted on overflow.
func (q *Queue[T]) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dlq)
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
