// Package eviction provides victim selection for the paging memory manager.
package eviction

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/viant/osemu/model/process"
)

// Policy names recognised by New.
const (
	NameRandom   = "random"
	NameLowestID = "lowest-id"
	NameLRU      = "lru"
)

// Policy picks one victim among candidates or returns nil when there is none.
// Callers pass only candidates that may be evicted.
type Policy interface {
	Name() string
	Select(candidates []*process.Process) *process.Process
}

// New returns the named policy.  An empty name means random.
func New(name string, seed int64) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameRandom:
		return NewRandom(seed), nil
	case NameLowestID:
		return LowestID{}, nil
	case NameLRU:
		return LRU{}, nil
	}
	return nil, fmt.Errorf("unsupported eviction policy: %v", name)
}

// IsValid reports whether name is a recognised policy.
func IsValid(name string) bool {
	_, err := New(name, 0)
	return err == nil
}

// Random selects uniformly with a seeded source so runs are reproducible.
type Random struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom creates a random policy.
func NewRandom(seed int64) *Random {
	return &Random{rnd: rand.New(rand.NewSource(seed))}
}

func (r *Random) Name() string { return NameRandom }

func (r *Random) Select(candidates []*process.Process) *process.Process {
	if len(candidates) == 0 {
		return nil
	}
	r.mu.Lock()
	idx := r.rnd.Intn(len(candidates))
	r.mu.Unlock()
	return candidates[idx]
}

// LowestID selects the candidate with the smallest pid.
type LowestID struct{}

func (LowestID) Name() string { return NameLowestID }

func (LowestID) Select(candidates []*process.Process) *process.Process {
	var victim *process.Process
	for _, candidate := range candidates {
		if victim == nil || candidate.PID < victim.PID {
			victim = candidate
		}
	}
	return victim
}

// LRU selects the candidate dispatched longest ago; ties go to the lower pid.
type LRU struct{}

func (LRU) Name() string { return NameLRU }

func (LRU) Select(candidates []*process.Process) *process.Process {
	var victim *process.Process
	var oldest int64
	for _, candidate := range candidates {
		seq := candidate.LastDispatched()
		if victim == nil || seq < oldest || (seq == oldest && candidate.PID < victim.PID) {
			victim, oldest = candidate, seq
		}
	}
	return victim
}
