package process

import (
	"math/bits"
	"math/rand"
	"strconv"
	"sync"

	"github.com/viant/osemu/internal/clock"
)

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min int
	Max int
}

// Spec holds the ranges a Factory draws from.
type Spec struct {
	Instructions Range
	Memory       Range
	Pages        Range
}

// MaxMemory returns the largest MemoryRequired a Factory can draw from s.
func (s Spec) MaxMemory() int {
	r := s.Memory
	lo, hi := CeilLog2(max(r.Min, 1)), floorLog2(r.Max)
	if r.Max < 1 || lo > hi {
		return max(r.Min, r.Max)
	}
	return 1 << hi
}

// Factory assigns monotonic PIDs and draws per-process demand.  Safe for
// concurrent use.
type Factory struct {
	mu   sync.Mutex
	spec Spec
	rnd  *rand.Rand
	next int
}

// NewFactory creates a factory whose draws are reproducible for a given seed.
func NewFactory(spec Spec, seed int64) *Factory {
	return &Factory{spec: spec, rnd: rand.New(rand.NewSource(seed)), next: 1}
}

// NextPID reserves the next identifier.
func (f *Factory) NextPID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reservePID()
}

func (f *Factory) reservePID() int {
	pid := f.next
	f.next++
	return pid
}

// New creates a process named name.  An empty name becomes "p_<pid>".
func (f *Factory) New(name string) *Process {
	f.mu.Lock()
	pid := f.reservePID()
	instructions := f.uniform(f.spec.Instructions)
	memoryRequired := f.powerOfTwo(f.spec.Memory)
	pages := f.uniform(f.spec.Pages)
	f.mu.Unlock()
	if name == "" {
		name = BatchName(pid)
	}
	return New(pid, name, clock.Timestamp(), instructions, memoryRequired, pages)
}

// BatchName returns the generated name for pid.
func BatchName(pid int) string {
	return "p_" + strconv.Itoa(pid)
}

func (f *Factory) uniform(r Range) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + f.rnd.Intn(r.Max-r.Min+1)
}

// powerOfTwo draws a power of two inside r, falling back to a uniform draw
// when the range holds none.
func (f *Factory) powerOfTwo(r Range) int {
	if r.Min < 1 {
		r.Min = 1
	}
	lo := CeilLog2(r.Min)
	hi := floorLog2(r.Max)
	if r.Max < 1 || lo > hi {
		return f.uniform(r)
	}
	return 1 << (lo + f.rnd.Intn(hi-lo+1))
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << CeilLog2(n)
}

// CeilLog2 returns ceil(log2(n)) for n >= 1.
func CeilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func floorLog2(n int) int {
	if n < 1 {
		return -1
	}
	return bits.Len(uint(n)) - 1
}
