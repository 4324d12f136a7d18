package osemu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/osemu/model/process"
	"github.com/viant/osemu/progress"
	"github.com/viant/osemu/service/backingstore"
	"github.com/viant/osemu/service/dao"
	"github.com/viant/osemu/service/dao/store"
	"github.com/viant/osemu/service/event"
	"github.com/viant/osemu/service/memory/eviction"
	"github.com/viant/osemu/service/memory/manager"
	mqueue "github.com/viant/osemu/service/messaging/memory"
	"github.com/viant/osemu/service/scheduler"
	"github.com/viant/osemu/service/snapshot"
)

const eventBuffer = 1024

// ErrDuplicateName is returned by Submit when a process with the name exists.
var ErrDuplicateName = errors.New("osemu: process name already exists")

// ConfigInfo is the configuration view exposed to the console layer.
type ConfigInfo struct {
	Cores     int           `json:"cores"`
	Algorithm string        `json:"algorithm"`
	Quantum   int           `json:"quantum"`
	Ins       process.Range `json:"ins"`
	Pages     process.Range `json:"pages"`
	Memory    process.Range `json:"memory"`
}

// Service is the emulator composition root.
type Service struct {
	config           *Config
	fs               afs.Service
	logger           *logrus.Logger
	logLevel         *logrus.Level
	policy           eviction.Policy
	progressListener func(progress.Progress)
	eventHandler     func(*event.Event[process.Info])

	factory   *process.Factory
	registry  dao.Service[string, process.Process]
	store     *backingstore.Store
	snapshots *snapshot.Writer
	memory    *manager.Service
	scheduler *scheduler.Service
	progress  *progress.Progress
	listener  *event.Listener[process.Info]

	mu    sync.Mutex
	batch *batch
}

// New creates a service for a validated configuration.
func New(config *Config, options ...Option) (*Service, error) {
	s := newService(options)
	if err := s.configure(config); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromURL loads configuration from URL and creates a service.  Options are
// applied once, before loading, so WithFS also serves the config file.
func NewFromURL(ctx context.Context, URL string, options ...Option) (*Service, error) {
	s := newService(options)
	config, err := LoadConfig(ctx, s.fs, URL)
	if err != nil {
		return nil, err
	}
	if err = s.configure(config); err != nil {
		return nil, err
	}
	return s, nil
}

func newService(options []Option) *Service {
	s := &Service{}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Service) configure(config *Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s.config = config
	return s.init()
}

func (s *Service) init() error {
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.logLevel != nil {
		s.logger.SetLevel(*s.logLevel)
	}
	s.factory = process.NewFactory(s.config.ProcessSpec(), s.config.Seed)
	s.registry = store.NewMemoryStore[string, process.Process](func(p *process.Process) string { return p.Name })
	s.store = backingstore.New(s.fs, s.config.BackingStoreURL, backingstore.WithLogger(s.logger))
	s.progress = progress.New(s.store.RunID(), s.progressListener)
	if s.config.SnapshotURL != "" {
		s.snapshots = snapshot.New(s.fs, s.config.SnapshotURL)
	}

	memoryOptions := []manager.Option{manager.WithLogger(s.logger), manager.WithBackingStore(s.store)}
	if s.policy != nil {
		memoryOptions = append(memoryOptions, manager.WithPolicy(s.policy))
	}
	var err error
	if s.memory, err = manager.New(s.config.MemoryConfig(), memoryOptions...); err != nil {
		return fmt.Errorf("failed to create memory manager: %w", err)
	}
	schedulerOptions := []scheduler.Option{
		scheduler.WithLogger(s.logger),
		scheduler.WithProgress(s.progress),
		scheduler.WithSnapshotter(s),
	}
	if s.eventHandler != nil {
		publisher := event.NewPublisher[process.Info](mqueue.NewQueue[event.Event[process.Info]](mqueue.Config{QueueBuffer: eventBuffer}))
		s.listener = event.NewListener[process.Info](publisher, s.eventHandler, s.logger)
		schedulerOptions = append(schedulerOptions, scheduler.WithEvents(publisher))
	}
	s.scheduler, err = scheduler.New(s.config.SchedulerConfig(), s.memory, schedulerOptions...)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	return nil
}

// Start starts the scheduling engine.
func (s *Service) Start(ctx context.Context) error {
	ctx = progress.WithTracker(ctx, s.progress)
	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}
	if s.listener != nil {
		s.listener.Start(context.WithoutCancel(ctx))
	}
	return nil
}

// Shutdown stops batch admission and the engine, waiting for in flight
// slices to finish.
func (s *Service) Shutdown(ctx context.Context) {
	_ = s.StopBatch()
	s.scheduler.Shutdown()
	if s.listener != nil {
		s.listener.Stop()
	}
	s.logger.WithFields(logrus.Fields{
		"runId":    s.store.RunID(),
		"finished": len(s.scheduler.FinishedProcesses()),
		"swaps":    s.store.Len(),
	}).Info("emulator stopped")
}

// Submit creates a process with name and appends it to the ready queue.  An
// empty name is replaced with "p_<pid>".
func (s *Service) Submit(ctx context.Context, name string) (*process.Process, error) {
	if name != "" {
		if existing, _ := s.registry.Load(ctx, name); existing != nil {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateName, name)
		}
	}
	p := s.factory.New(name)
	if err := s.registry.Insert(ctx, p); err != nil {
		if errors.Is(err, dao.ErrExists) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateName, p.Name)
		}
		return nil, err
	}
	if err := s.scheduler.Submit(p); err != nil {
		_ = s.registry.Delete(ctx, p.Name)
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"pid":          p.PID,
		"process":      p.Name,
		"instructions": p.TotalInstructions,
		"memory":       p.MemoryRequired,
		"pages":        p.NumPages,
	}).Debug("process submitted")
	return p, nil
}

// Process returns the named process view.
func (s *Service) Process(ctx context.Context, name string) (*process.Info, bool) {
	p, _ := s.registry.Load(ctx, name)
	if p == nil {
		return nil, false
	}
	info := p.Info()
	return &info, true
}

// Processes returns every submitted process in submission order.
func (s *Service) Processes(ctx context.Context) ([]process.Info, error) {
	list, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]process.Info, 0, len(list))
	for _, p := range list {
		result = append(result, p.Info())
	}
	return result, nil
}

// RunningProcesses returns processes holding core slots in core order.
func (s *Service) RunningProcesses() []process.Info {
	return s.scheduler.RunningProcesses()
}

// FinishedProcesses returns finished processes in completion order.
func (s *Service) FinishedProcesses() []process.Info {
	return s.scheduler.FinishedProcesses()
}

// ConfigInfo returns the configuration view.
func (s *Service) ConfigInfo() ConfigInfo {
	spec := s.config.ProcessSpec()
	return ConfigInfo{
		Cores:     s.config.NumCPU,
		Algorithm: s.config.SchedulerConfig().Algorithm,
		Quantum:   s.config.QuantumCycles,
		Ins:       spec.Instructions,
		Pages:     spec.Pages,
		Memory:    spec.Memory,
	}
}

// MemoryInfo returns memory usage counters.
func (s *Service) MemoryInfo() manager.Info {
	return s.memory.Info()
}

// Swaps returns the backing store log.
func (s *Service) Swaps() []backingstore.Record {
	return s.store.Records()
}

// Progress returns engine counters.
func (s *Service) Progress() progress.Progress {
	return s.progress.Snapshot()
}

// Snapshot writes the memory stamp for cycle.
func (s *Service) Snapshot(ctx context.Context, cycle int) error {
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots.Write(ctx, cycle, s.memory.Capacity(), s.memory.Layout())
}
