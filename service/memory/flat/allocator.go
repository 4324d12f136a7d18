// Package flat implements a first-fit contiguous allocator over a fixed
// byte arena.  There is no compaction, so a request larger than the largest
// free run stays busy even when enough total bytes are free.
package flat

import (
	"sort"
	"sync"

	"github.com/viant/osemu/service/memory"
)

// Name is the allocator name reported to collaborators.
const Name = "FlatMemoryAllocator"

// Allocator is a first-fit arena allocator.
type Allocator struct {
	mu        sync.Mutex
	size      int
	used      []bool
	starts    map[int]int // start -> length
	owners    map[int]int // pid -> start
	names     map[int]string
	allocated int
}

var _ memory.Allocator = (*Allocator)(nil)

// New creates an arena of size bytes.
func New(size int) *Allocator {
	if size < 0 {
		size = 0
	}
	return &Allocator{
		size:   size,
		used:   make([]bool, size),
		starts: make(map[int]int),
		owners: make(map[int]int),
		names:  make(map[int]string),
	}
}

// Allocate claims the first run of Demand().Bytes free bytes.
func (a *Allocator) Allocate(owner memory.Owner) (*memory.Handle, error) {
	size := owner.Demand().Bytes
	a.mu.Lock()
	defer a.mu.Unlock()
	if start, ok := a.owners[owner.ID()]; ok {
		return a.handle(owner.ID(), start), nil
	}
	if size <= 0 || size > a.size {
		return nil, memory.ErrBusy
	}
	start := a.firstFit(size)
	if start < 0 {
		return nil, memory.ErrBusy
	}
	for i := start; i < start+size; i++ {
		a.used[i] = true
	}
	a.starts[start] = size
	a.owners[owner.ID()] = start
	a.names[owner.ID()] = owner.Label()
	a.allocated += size
	return a.handle(owner.ID(), start), nil
}

func (a *Allocator) handle(pid, start int) *memory.Handle {
	length := a.starts[start]
	return &memory.Handle{PID: pid, Start: start, Length: length, Bytes: length}
}

// firstFit returns the lowest start of a free run of size bytes or -1.
func (a *Allocator) firstFit(size int) int {
	run := 0
	for i := 0; i < a.size; i++ {
		if a.used[i] {
			run = 0
			continue
		}
		run++
		if run == size {
			return i - size + 1
		}
	}
	return -1
}

// Deallocate releases owner's run; an unknown owner yields ErrNotFound.
func (a *Allocator) Deallocate(owner memory.Owner) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	start, ok := a.owners[owner.ID()]
	if !ok {
		return 0, memory.ErrNotFound
	}
	size := a.starts[start]
	for i := start; i < start+size; i++ {
		a.used[i] = false
	}
	delete(a.starts, start)
	delete(a.owners, owner.ID())
	delete(a.names, owner.ID())
	a.allocated -= size
	return size, nil
}

// Owns returns the bytes held by pid.
func (a *Allocator) Owns(pid int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if start, ok := a.owners[pid]; ok {
		return a.starts[start]
	}
	return 0
}

// Footprint returns the requested byte count.
func (a *Allocator) Footprint(owner memory.Owner) int {
	return owner.Demand().Bytes
}

// Capacity returns arena size.
func (a *Allocator) Capacity() int { return a.size }

// Allocated returns resident bytes.
func (a *Allocator) Allocated() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocated
}

// ActiveMemory equals resident bytes for the flat strategy.
func (a *Allocator) ActiveMemory() (int, bool) {
	return a.Allocated(), true
}

// LargestFreeRun returns the longest contiguous free byte run.
func (a *Allocator) LargestFreeRun() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	best, run := 0, 0
	for _, used := range a.used {
		if used {
			run = 0
			continue
		}
		run++
		if run > best {
			best = run
		}
	}
	return best
}

// Layout returns live runs ordered by start.
func (a *Allocator) Layout() []memory.Region {
	a.mu.Lock()
	defer a.mu.Unlock()
	regions := make([]memory.Region, 0, len(a.owners))
	for pid, start := range a.owners {
		regions = append(regions, memory.Region{PID: pid, Name: a.names[pid], Start: start, End: start + a.starts[start]})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Start < regions[j].Start })
	return regions
}

// Evictable is false: a flat request waits for the owner to finish.
func (a *Allocator) Evictable() bool { return false }

// Name returns the allocator name.
func (a *Allocator) Name() string { return Name }
