package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	ID    string
	Count int
}

func TestQueue(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())
	ctx := context.Background()
	payload := testPayload{ID: "test-1", Count: 1}

	require.NoError(t, queue.Publish(ctx, &payload))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Size())
	assert.NotEmpty(t, message.ID())
	assert.Equal(t, payload, *message.T())

	assert.NoError(t, message.Ack())
	assert.Error(t, message.Ack())
}

func TestQueue_Overflow(t *testing.T) {
	testCases := []struct {
		description string
		overflow    Overflow
		expectErr   bool
		expectFirst string
		dropped     int
	}{
		{description: "drop oldest", overflow: OverflowDropOldest, expectFirst: "b", dropped: 1},
		{description: "reject", overflow: OverflowReject, expectErr: true, expectFirst: "a"},
	}
	for _, testCase := range testCases {
		queue := NewQueue[testPayload](Config{QueueBuffer: 2, Overflow: testCase.overflow})
		ctx := context.Background()
		for _, id := range []string{"a", "b"} {
			require.NoError(t, queue.Publish(ctx, &testPayload{ID: id}), testCase.description)
		}
		err := queue.Publish(ctx, &testPayload{ID: "c"})
		if testCase.expectErr {
			assert.ErrorIs(t, err, ErrQueueFull, testCase.description)
		} else {
			assert.NoError(t, err, testCase.description)
		}
		assert.Equal(t, 2, queue.Size(), testCase.description)
		assert.Equal(t, testCase.dropped, queue.Dropped(), testCase.description)
		message, err := queue.Consume(ctx)
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectFirst, message.T().ID, testCase.description)
	}
}

func TestQueueRetries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	queue := NewQueue[testPayload](config)
	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &testPayload{ID: "retry"}))

	for attempt := 0; attempt < 3; attempt++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err, attempt)
		assert.Equal(t, "retry", message.T().ID)
		assert.NoError(t, message.Nack(nil))
	}
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
}

func TestQueueConcurrency(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	producers, perProducer := 10, 10

	var wg sync.WaitGroup
	var consumedMu sync.Mutex
	consumed := 0
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				message, err := queue.Consume(ctx)
				if !assert.NoError(t, err) {
					return
				}
				assert.NoError(t, message.Ack())
				consumedMu.Lock()
				consumed++
				consumedMu.Unlock()
			}
		}()
	}
	for i := 0; i < producers; i++ {
		go func(producerID int) {
			for j := 0; j < perProducer; j++ {
				payload := testPayload{ID: fmt.Sprintf("p%d-m%d", producerID, j), Count: j}
				assert.NoError(t, queue.Publish(ctx, &payload))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, producers*perProducer, consumed)
	assert.Equal(t, 0, queue.Size())
}

func TestQueueContextCancellation(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, queue.Publish(ctx, &testPayload{ID: "test"}))

	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelTimeout()
	_, err := queue.Consume(timeoutCtx)
	assert.Error(t, err)

	require.NoError(t, queue.Publish(context.Background(), &testPayload{ID: "test"}))
	message, err := queue.Consume(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, message)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Overflow: "block"}.Validate())
	assert.Error(t, Config{QueueBuffer: -1}.Validate())
}
