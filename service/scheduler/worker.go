package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/osemu/service/event"
	"github.com/viant/osemu/tracing"
)

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// run executes slices from the queue until the worker context is cancelled.
func (w *worker) run() {
	defer w.service.workerWg.Done()
	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || w.ctx.Err() != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		w.service.execute(w.ctx, msg.T())
		if err = msg.Ack(); err != nil {
			w.service.logger.WithError(err).WithField("worker", w.id).Warn("ack")
		}
	}
}

// execute runs one slice: the whole remaining budget under fcfs, at most a
// quantum under rr.  A process swapped out by eviction stops at the next
// instruction boundary; every slice retires at least one instruction.  Memory is released before the slot is returned.
func (s *Service) execute(ctx context.Context, slice *Slice) {
	defer s.inFlight.Done()
	p := slice.Process
	ctx, span := tracing.StartSpan(ctx, "scheduler.slice", "CONSUMER")
	span.WithAttributes(map[string]string{"process": p.Name}).WithInt("core", slice.Core)

	budget := p.Remaining()
	if s.config.IsRoundRobin() && budget > s.config.Quantum {
		budget = s.config.Quantum
	}
	executed := 0
	for i := 0; i < budget; i++ {
		if i > 0 && p.SwappedOut() {
			span.WithAttributes(map[string]string{"swapped": "true"})
			break
		}
		executed += p.Advance(1)
		if s.config.StepDelay > 0 {
			time.Sleep(s.config.StepDelay)
		}
	}
	p.CompleteSlice()
	span.WithInt("executed", executed)
	s.leaveCore(p)

	var err error
	if s.config.IsRoundRobin() && s.snapshotter != nil {
		if err = s.snapshotter.Snapshot(ctx, s.nextCycle()); err != nil {
			s.logger.WithError(err).Warn("failed to write memory snapshot")
		}
	}
	if _, dErr := s.memory.Deallocate(ctx, p); dErr != nil {
		s.logger.WithError(dErr).WithField("process", p.Name).Warn("failed to release memory")
	}
	if s.complete(p, slice.Core) {
		s.publish(ctx, event.TypeFinished, p, slice.Core)
	}
	s.logger.WithFields(logrus.Fields{
		"process":  p.Name,
		"core":     slice.Core,
		"executed": executed,
		"current":  p.Current(),
		"total":    p.TotalInstructions,
	}).Debug("slice completed")
	tracing.EndSpan(span, err)
}
