package event

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	drainWait = 10 * time.Millisecond
	retryWait = 10 * time.Millisecond
)

// Listener drains a publisher on its own goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	logger    *logrus.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
}

// NewListener creates a listener delivering publisher events to handler.  A
// nil logger falls back to the logrus standard logger.
func NewListener[T any](publisher *Publisher[T], handler func(*Event[T]), logger *logrus.Logger) *Listener[T] {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start begins delivery; it must be called once.
func (l *Listener[T]) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go func() {
		defer close(l.done)
		for {
			event, err := l.publisher.Consume(ctx)
			if event != nil {
				l.handler(event)
				continue
			}
			if ctx.Err() != nil {
				l.drain()
				return
			}
			if err != nil {
				l.logger.WithError(err).Warn("error consuming event")
			}
			select {
			case <-ctx.Done():
			case <-time.After(retryWait):
			}
		}
	}()
}

// drain delivers events that were queued before Stop.
func (l *Listener[T]) drain() {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), drainWait)
		event, err := l.publisher.Consume(ctx)
		cancel()
		if err != nil || event == nil {
			return
		}
		l.handler(event)
	}
}

// Stop cancels delivery, delivers what is still queued and waits for the
// goroutine to exit.
func (l *Listener[T]) Stop() {
	l.once.Do(func() {
		if l.cancel == nil {
			close(l.done)
			return
		}
		l.cancel()
	})
	<-l.done
}
