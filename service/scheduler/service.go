package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/osemu/internal/idgen"
	"github.com/viant/osemu/model/process"
	"github.com/viant/osemu/progress"
	"github.com/viant/osemu/service/event"
	"github.com/viant/osemu/service/memory"
	"github.com/viant/osemu/service/messaging"
	mqueue "github.com/viant/osemu/service/messaging/memory"
	"github.com/viant/osemu/tracing"
)

var (
	// ErrStopped is returned by Submit after Shutdown.
	ErrStopped = errors.New("scheduler: stopped")
	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("scheduler: already started")
)

// MemoryManager grants and releases process memory.  running lists the
// processes currently holding core slots.
type MemoryManager interface {
	Allocate(ctx context.Context, p *process.Process, running []*process.Process) (*memory.Handle, error)
	Deallocate(ctx context.Context, p *process.Process) (int, error)
}

// Snapshotter records memory layout after a round robin slice.
type Snapshotter interface {
	Snapshot(ctx context.Context, cycle int) error
}

// Slice is one unit of work handed to a worker.
type Slice struct {
	Process *process.Process
	Core    int
	Seq     int64
}

// Service is the scheduling engine.
type Service struct {
	config      Config
	memory      MemoryManager
	snapshotter Snapshotter
	queue       messaging.Queue[Slice]
	progress    *progress.Progress
	events      *event.Publisher[process.Info]
	logger      *logrus.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	ready    []*process.Process
	slots    []*process.Process
	finished []*process.Process
	running  bool
	started  bool
	stopped  bool
	seq      int64
	cycle    int

	inFlight     sync.WaitGroup
	dispatchDone chan struct{}
	workers      []*worker
	workerWg     sync.WaitGroup
	shutdownOnce sync.Once
}

// New creates a scheduler.
func New(config Config, mem MemoryManager, opts ...Option) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if mem == nil {
		return nil, fmt.Errorf("memory manager is required")
	}
	s := &Service{
		config:       config,
		memory:       mem,
		slots:        make([]*process.Process, config.Cores),
		dispatchDone: make(chan struct{}),
		logger:       logrus.StandardLogger(),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = mqueue.NewQueue[Slice](mqueue.Config{QueueBuffer: config.Cores})
	}
	if s.progress == nil {
		s.progress = progress.New(idgen.New(), nil)
	}
	return s, nil
}

// Config returns scheduler configuration.
func (s *Service) Config() Config { return s.config }

// Progress returns the engine counters.
func (s *Service) Progress() *progress.Progress { return s.progress }

// Submit appends p to the ready queue tail.  Admission is decided under the
// engine lock; the admitted event is published before p becomes dispatchable
// so it always precedes the finished event.
func (s *Service) Submit(p *process.Process) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	p.AssignCore(process.NoCore)
	p.SetState(process.StateWaiting)
	if s.events == nil {
		s.enqueueLocked(p)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	s.publish(context.Background(), event.TypeAdmitted, p, process.NoCore)
	s.mu.Lock()
	s.enqueueLocked(p)
	s.mu.Unlock()
	return nil
}

// enqueueLocked appends p to the ready queue.  Caller holds s.mu.
func (s *Service) enqueueLocked(p *process.Process) {
	s.ready = append(s.ready, p)
	s.cond.Broadcast()
}

// Start launches the worker pool and the dispatch goroutine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrStarted
	}
	s.started = true
	s.running = true
	// workers outlive ctx so that Shutdown can drain in flight slices
	for i := 0; i < s.config.Cores; i++ {
		workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		w := &worker{id: i, service: s, ctx: workerCtx, cancelFn: cancel}
		s.workers = append(s.workers, w)
		s.workerWg.Add(1)
		go w.run()
	}
	go s.dispatchLoop(ctx)
	s.logger.WithFields(logrus.Fields{
		"cores":     s.config.Cores,
		"algorithm": s.config.Algorithm,
		"quantum":   s.config.Quantum,
	}).Info("scheduler started")
	return nil
}

func (s *Service) dispatchLoop(ctx context.Context) {
	defer close(s.dispatchDone)
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.running {
		if ctx.Err() != nil {
			s.running = false
			break
		}
		if len(s.ready) == 0 {
			s.progress.Update(progress.Delta{IdleTicks: 1})
			s.wait()
			continue
		}
		if s.dispatchPass(ctx) == 0 {
			s.wait()
			continue
		}
		if s.config.DispatchDelay > 0 {
			s.mu.Unlock()
			time.Sleep(s.config.DispatchDelay)
			s.mu.Lock()
		}
	}
}

// wait blocks on the condition for at most IdleWait.  Caller holds s.mu.
func (s *Service) wait() {
	if s.config.IdleWait > 0 {
		timer := time.AfterFunc(s.config.IdleWait, func() {
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		})
		defer timer.Stop()
	}
	s.cond.Wait()
}

// dispatchPass fills empty slots in index order and returns the number of
// dispatched processes.  Each waiting process is tried at most once per pass.
// Caller holds s.mu.
func (s *Service) dispatchPass(ctx context.Context) int {
	dispatched := 0
	attempts := len(s.ready)
	for core := range s.slots {
		if !s.running {
			break
		}
		for s.slots[core] == nil && attempts > 0 && len(s.ready) > 0 {
			attempts--
			p := s.ready[0]
			s.ready = s.ready[1:]
			if s.dispatch(ctx, p, core) {
				dispatched++
			}
		}
	}
	return dispatched
}

func (s *Service) dispatch(ctx context.Context, p *process.Process, core int) bool {
	p.AssignCore(core)
	if _, err := s.memory.Allocate(ctx, p, s.runningLocked()); err != nil {
		if !errors.Is(err, memory.ErrBusy) {
			s.logger.WithError(err).WithField("process", p.Name).Error("failed to allocate memory")
		}
		p.AssignCore(process.NoCore)
		p.SetState(process.StateWaiting)
		s.ready = append(s.ready, p)
		s.progress.Update(progress.Delta{Requeued: 1})
		return false
	}
	_, span := tracing.StartSpan(ctx, "scheduler.dispatch", "INTERNAL")
	span.WithAttributes(map[string]string{"process": p.Name}).WithInt("core", core)
	s.slots[core] = p
	s.seq++
	p.MarkDispatched(s.seq)
	p.SetState(process.StateRunning)
	s.progress.Update(progress.Delta{ActiveTicks: 1, Dispatched: 1})
	s.inFlight.Add(1)
	err := s.queue.Publish(ctx, &Slice{Process: p, Core: core, Seq: s.seq})
	tracing.EndSpan(span, err)
	if err != nil {
		s.inFlight.Done()
		s.slots[core] = nil
		s.logger.WithError(err).WithField("process", p.Name).Error("failed to publish slice")
		if _, dErr := s.memory.Deallocate(ctx, p); dErr != nil {
			s.logger.WithError(dErr).Warn("failed to release memory")
		}
		p.AssignCore(process.NoCore)
		p.SetState(process.StateWaiting)
		s.ready = append(s.ready, p)
		return false
	}
	return true
}

// runningLocked returns processes holding slots.  Caller holds s.mu.
func (s *Service) runningLocked() []*process.Process {
	result := make([]*process.Process, 0, len(s.slots))
	for _, p := range s.slots {
		if p != nil {
			result = append(result, p)
		}
	}
	return result
}

// publish emits a lifecycle event when a publisher is configured.
func (s *Service) publish(ctx context.Context, eventType event.Type, p *process.Process, core int) {
	if s.events == nil {
		return
	}
	info := p.Info()
	e := event.NewEvent(&event.Context{PID: p.PID, Process: p.Name, EventType: eventType, Core: core}, info)
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.WithError(err).WithField("process", p.Name).Warn("failed to publish event")
	}
}

// leaveCore ends the RUNNING state of p before its memory is released; the
// slot itself is returned by complete.
func (s *Service) leaveCore(p *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.IsDone() {
		p.SetState(process.StateFinished)
		return
	}
	p.SetState(process.StateWaiting)
}

// complete returns p's slot and routes it to the finished list or the ready
// queue tail.  It reports whether p finished.
func (s *Service) complete(p *process.Process, core int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if core >= 0 && core < len(s.slots) && s.slots[core] == p {
		s.slots[core] = nil
	}
	p.AssignCore(process.NoCore)
	delta := progress.Delta{Slices: 1}
	if p.IsDone() {
		p.SetState(process.StateFinished)
		s.finished = append(s.finished, p)
		delta.Finished = 1
	} else {
		p.SetState(process.StateWaiting)
		s.ready = append(s.ready, p)
	}
	s.progress.Update(delta)
	s.cond.Broadcast()
	return delta.Finished == 1
}

// nextCycle returns a monotonically increasing snapshot cycle number.
func (s *Service) nextCycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle++
	return s.cycle
}

// Shutdown stops dispatching, waits for in flight slices and stops the
// workers.  It is idempotent.
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.running = false
		started := s.started
		s.cond.Broadcast()
		s.mu.Unlock()
		if !started {
			return
		}
		<-s.dispatchDone
		s.inFlight.Wait()
		for _, w := range s.workers {
			w.cancelFn()
		}
		s.workerWg.Wait()
		s.logger.Info("scheduler stopped")
	})
}

// RunningProcesses returns the processes holding slots in slot order.  A
// process swapped out while its slice winds down is not reported.
func (s *Service) RunningProcesses() []process.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []process.Info
	for _, p := range s.slots {
		if p == nil {
			continue
		}
		if info := p.Info(); info.State == process.StateRunning {
			result = append(result, info)
		}
	}
	return result
}

// FinishedProcesses returns finished processes in completion order.
func (s *Service) FinishedProcesses() []process.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]process.Info, 0, len(s.finished))
	for _, p := range s.finished {
		result = append(result, p.Info())
	}
	return result
}

// Waiting returns the ready queue length.
func (s *Service) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ready)
}

// CoresUsed returns occupied slot count.
func (s *Service) CoresUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	used := 0
	for _, p := range s.slots {
		if p != nil {
			used++
		}
	}
	return used
}

// Ticks returns active and idle CPU ticks.
func (s *Service) Ticks() (active, idle int) {
	snapshot := s.progress.Snapshot()
	return snapshot.ActiveTicks, snapshot.IdleTicks
}
