package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/osemu/service/messaging"
	"github.com/viant/osemu/service/messaging/memory"
)

func TestListener_DeliversInOrder(t *testing.T) {
	ctx := context.Background()
	publisher := NewPublisher[int](memory.NewQueue[Event[int]](memory.DefaultConfig()))

	var mu sync.Mutex
	var got []int
	listener := NewListener[int](publisher, func(e *Event[int]) {
		mu.Lock()
		got = append(got, e.Data)
		mu.Unlock()
	}, nil)
	listener.Start(ctx)

	for i := 1; i <= 5; i++ {
		require.NoError(t, publisher.Publish(ctx, NewEvent(&Context{PID: i, EventType: TypeAdmitted}, i)))
	}
	listener.Stop()
	listener.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestPublisher_Consume(t *testing.T) {
	ctx := context.Background()
	publisher := NewPublisher[string](memory.NewQueue[Event[string]](memory.DefaultConfig()))
	require.NoError(t, publisher.Publish(ctx, NewEvent(&Context{PID: 3, Process: "p3", EventType: TypeFinished}, "done")))

	e, err := publisher.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "done", e.Data)
	assert.Equal(t, TypeFinished, e.Context.EventType)
	assert.False(t, e.CreatedAt.IsZero())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = publisher.Consume(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

// failingQueue reports a broken backend on every consume.
type failingQueue struct {
	consumed atomic.Int32
}

func (q *failingQueue) Publish(context.Context, *Event[int]) error { return nil }

func (q *failingQueue) Consume(context.Context) (messaging.Message[Event[int]], error) {
	q.consumed.Add(1)
	return nil, errors.New("backend unavailable")
}

func TestListener_BacksOffOnConsumeError(t *testing.T) {
	queue := &failingQueue{}
	listener := NewListener[int](NewPublisher[int](queue), func(*Event[int]) {}, nil)
	listener.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	listener.Stop()

	assert.Greater(t, queue.consumed.Load(), int32(0))
	assert.Less(t, queue.consumed.Load(), int32(20))
}
