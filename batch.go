package osemu

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBatchRunning is returned by StartBatch while admission is active.
	ErrBatchRunning = errors.New("osemu: batch admission already running")
	// ErrBatchStopped is returned by StopBatch when admission is not active.
	ErrBatchStopped = errors.New("osemu: batch admission not running")
)

type batch struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartBatch submits a generated process every batch-process-freq seconds
// until StopBatch.
func (s *Service) StartBatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch != nil {
		return ErrBatchRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	b := &batch{cancel: cancel, done: make(chan struct{})}
	s.batch = b
	go s.admit(ctx, b, s.config.BatchInterval())
	s.logger.WithField("interval", s.config.BatchInterval().String()).Info("batch admission started")
	return nil
}

func (s *Service) admit(ctx context.Context, b *batch, interval time.Duration) {
	defer close(b.done)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Submit(ctx, ""); err != nil {
			s.logger.WithError(err).Warn("batch admission")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// StopBatch stops batch admission and waits for the admission goroutine.
func (s *Service) StopBatch() error {
	s.mu.Lock()
	b := s.batch
	s.batch = nil
	s.mu.Unlock()
	if b == nil {
		return ErrBatchStopped
	}
	b.cancel()
	<-b.done
	s.logger.Info("batch admission stopped")
	return nil
}

// BatchRunning reports whether batch admission is active.
func (s *Service) BatchRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch != nil
}
