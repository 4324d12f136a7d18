// Package manager provides the memory manager used by the scheduler.  It owns
// one allocator, keeps usage and paging counters, and runs the eviction
// protocol when a paging request does not fit.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/osemu/model/process"
	"github.com/viant/osemu/service/memory"
	"github.com/viant/osemu/service/memory/eviction"
	"github.com/viant/osemu/service/memory/flat"
	"github.com/viant/osemu/service/memory/paging"
)

// Recorder receives swap events.
type Recorder interface {
	RecordSwap(ctx context.Context, in, out *process.Process) error
}

// Info is a point in time view of memory usage.
type Info struct {
	Total     int    `json:"total"`
	Used      int    `json:"used"`
	Active    int    `json:"active"`
	Inactive  int    `json:"inactive"`
	Allocator string `json:"allocator"`
	PagedIn   int    `json:"pagedIn"`
	PagedOut  int    `json:"pagedOut"`
	HasActive bool   `json:"hasActive"`
}

// Free returns unused bytes.
func (i Info) Free() int { return i.Total - i.Used }

// Service is the memory manager.
type Service struct {
	config    Config
	allocator memory.Allocator
	policy    eviction.Policy
	store     Recorder
	logger    *logrus.Logger

	mu       sync.Mutex
	used     int
	pagedIn  int
	pagedOut int
}

// New creates a memory manager.
func New(config Config, opts ...Option) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Service{config: config, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.allocator == nil {
		if config.IsFlat() {
			s.allocator = flat.New(config.TotalMemory)
		} else {
			s.allocator = paging.New(config.TotalMemory, config.FrameSize)
		}
	}
	if s.policy == nil {
		policy, err := eviction.New(config.EvictionPolicy, config.Seed)
		if err != nil {
			return nil, err
		}
		s.policy = policy
	}
	return s, nil
}

// Allocator returns the underlying allocator.
func (s *Service) Allocator() memory.Allocator { return s.allocator }

// Allocate makes p resident.  running lists processes currently holding core
// slots; when the allocator is evictable they are the eviction candidates and
// every victim is flagged swapped out.  It returns memory.ErrBusy when p
// cannot be placed.  Allocating an already resident p returns its handle.
func (s *Service) Allocate(ctx context.Context, p *process.Process, running []*process.Process) (*memory.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resident := s.allocator.Owns(p.PID) > 0
	handle, err := s.allocator.Allocate(p)
	if err == nil {
		if resident {
			p.SetHandle(handle)
		} else {
			s.admit(p, handle)
		}
		return handle, nil
	}
	if !errors.Is(err, memory.ErrBusy) {
		return nil, fmt.Errorf("failed to allocate %v: %w", p.Name, err)
	}
	if !s.allocator.Evictable() {
		return nil, err
	}
	return s.evictAndAllocate(ctx, p, running)
}

func (s *Service) admit(p *process.Process, handle *memory.Handle) {
	s.used += handle.Bytes
	p.SetHandle(handle)
}

func (s *Service) evictAndAllocate(ctx context.Context, p *process.Process, running []*process.Process) (*memory.Handle, error) {
	need := s.allocator.Footprint(p)
	capacity := s.allocator.Capacity()
	if need > capacity {
		return nil, memory.ErrBusy
	}
	var candidates []*process.Process
	reclaimable := 0
	for _, candidate := range running {
		if candidate == nil || candidate.PID == p.PID {
			continue
		}
		if owned := s.allocator.Owns(candidate.PID); owned > 0 {
			candidates = append(candidates, candidate)
			reclaimable += owned
		}
	}
	if capacity-s.allocator.Allocated()+reclaimable < need {
		return nil, memory.ErrBusy
	}

	var victims []*process.Process
	var handle *memory.Handle
	var err error
	for {
		victim := s.policy.Select(candidates)
		if victim == nil {
			err = memory.ErrBusy
			break
		}
		candidates = remove(candidates, victim)
		freed, dErr := s.allocator.Deallocate(victim)
		if dErr != nil {
			s.logger.WithError(dErr).WithField("pid", victim.PID).Warn("failed to evict")
			continue
		}
		s.release(freed)
		victim.Evict()
		victims = append(victims, victim)
		s.pagedOut++
		s.logger.WithFields(logrus.Fields{
			"victim":    victim.Name,
			"requester": p.Name,
			"freed":     freed,
			"policy":    s.policy.Name(),
		}).Debug("evicted")
		if handle, err = s.allocator.Allocate(p); err == nil {
			s.admit(p, handle)
			s.pagedIn++
			break
		}
	}
	for i, victim := range victims {
		var in *process.Process
		if err == nil && i == len(victims)-1 {
			in = p
		}
		s.record(ctx, in, victim)
	}
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func (s *Service) record(ctx context.Context, in, out *process.Process) {
	if s.store == nil {
		return
	}
	if err := s.store.RecordSwap(ctx, in, out); err != nil {
		s.logger.WithError(err).Error("failed to record swap")
	}
}

func (s *Service) release(freed int) {
	s.used -= freed
	if s.used < 0 {
		s.logger.WithField("used", s.used).Error("memory usage counter below zero")
		s.used = 0
	}
}

func remove(list []*process.Process, p *process.Process) []*process.Process {
	result := list[:0:0]
	for _, candidate := range list {
		if candidate != p {
			result = append(result, candidate)
		}
	}
	return result
}

// Deallocate releases p's memory and returns bytes freed.
func (s *Service) Deallocate(ctx context.Context, p *process.Process) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	freed, err := s.allocator.Deallocate(p)
	if err != nil {
		s.logger.WithError(err).WithField("pid", p.PID).Warn("deallocate")
		return 0, err
	}
	s.release(freed)
	p.SetHandle(nil)
	return freed, nil
}

// Layout returns resident regions.
func (s *Service) Layout() []memory.Region {
	return s.allocator.Layout()
}

// Capacity returns pool size.
func (s *Service) Capacity() int {
	return s.allocator.Capacity()
}

// Info returns memory usage counters.
func (s *Service) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		Total:     s.allocator.Capacity(),
		Used:      s.used,
		Allocator: s.allocator.Name(),
		PagedIn:   s.pagedIn,
		PagedOut:  s.pagedOut,
	}
	if active, ok := s.allocator.ActiveMemory(); ok {
		info.HasActive = true
		info.Active = active
		if info.Inactive = info.Used - active; info.Inactive < 0 {
			info.Inactive = 0
		}
	}
	return info
}
