// Package paging implements a frame allocator.  Capacity is counted in
// frames; a process needs NumPages pages, each rounded up to a power of two
// and spread over as many frames as it takes to hold it.  Requests either
// get every frame they need or none.
package paging

import (
	"sort"
	"sync"

	"github.com/viant/osemu/model/process"
	"github.com/viant/osemu/service/memory"
)

// Name is the allocator name reported to collaborators.
const Name = "PagingMemoryAllocator"

type owned struct {
	name   string
	frames []int
	active int
}

// Allocator hands out frames from a free stack.
type Allocator struct {
	mu         sync.Mutex
	frameSize  int
	frameCount int
	free       []int       // stack, top is the last element
	frameOwner map[int]int // frame -> pid
	owners     map[int]*owned
	active     int
}

var _ memory.Allocator = (*Allocator)(nil)

// New creates an allocator over totalMemory bytes split into frames of
// frameSize bytes.
func New(totalMemory, frameSize int) *Allocator {
	if frameSize <= 0 {
		frameSize = 1
	}
	count := totalMemory / frameSize
	if count < 0 {
		count = 0
	}
	free := make([]int, count)
	for i := range free {
		free[i] = count - 1 - i
	}
	return &Allocator{
		frameSize:  frameSize,
		frameCount: count,
		free:       free,
		frameOwner: make(map[int]int),
		owners:     make(map[int]*owned),
	}
}

// PageSize returns the smallest power of two holding perPage bytes.
func PageSize(perPage int) int {
	return process.NextPowerOfTwo(perPage)
}

// FramesFor returns the frames owner needs.
func (a *Allocator) FramesFor(owner memory.Owner) int {
	demand := owner.Demand()
	return FrameCount(demand.Pages, demand.PerPage, a.frameSize)
}

// FrameCount returns how many frames of frameSize bytes hold pages pages of
// perPage bytes each.
func FrameCount(pages, perPage, frameSize int) int {
	if pages < 1 {
		pages = 1
	}
	if frameSize < 1 {
		frameSize = 1
	}
	pageSize := PageSize(perPage)
	return pages * ((pageSize + frameSize - 1) / frameSize)
}

// Allocate pops the needed frames or returns ErrBusy.
func (a *Allocator) Allocate(owner memory.Owner) (*memory.Handle, error) {
	needed := a.FramesFor(owner)
	a.mu.Lock()
	defer a.mu.Unlock()
	if entry, ok := a.owners[owner.ID()]; ok {
		return a.handle(owner.ID(), entry), nil
	}
	if needed <= 0 || len(a.free) < needed {
		return nil, memory.ErrBusy
	}
	frames := make([]int, needed)
	for i := 0; i < needed; i++ {
		top := len(a.free) - 1
		frames[i] = a.free[top]
		a.free = a.free[:top]
		a.frameOwner[frames[i]] = owner.ID()
	}
	demand := owner.Demand()
	entry := &owned{name: owner.Label(), frames: frames, active: demand.Pages * demand.PerPage}
	a.owners[owner.ID()] = entry
	a.active += entry.active
	return a.handle(owner.ID(), entry), nil
}

func (a *Allocator) handle(pid int, entry *owned) *memory.Handle {
	frames := append([]int(nil), entry.frames...)
	return &memory.Handle{PID: pid, Frames: frames, Bytes: len(frames) * a.frameSize}
}

// Deallocate returns every frame owned by owner to the free stack.  It is
// idempotent: an owner without frames frees nothing.
func (a *Allocator) Deallocate(owner memory.Owner) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.owners[owner.ID()]
	if !ok {
		return 0, nil
	}
	for i := len(entry.frames) - 1; i >= 0; i-- {
		frame := entry.frames[i]
		delete(a.frameOwner, frame)
		a.free = append(a.free, frame)
	}
	delete(a.owners, owner.ID())
	a.active -= entry.active
	return len(entry.frames) * a.frameSize, nil
}

// Owns returns the bytes held by pid.
func (a *Allocator) Owns(pid int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if entry, ok := a.owners[pid]; ok {
		return len(entry.frames) * a.frameSize
	}
	return 0
}

// Footprint returns the bytes owner would occupy.
func (a *Allocator) Footprint(owner memory.Owner) int {
	return a.FramesFor(owner) * a.frameSize
}

// Frames returns frame count.
func (a *Allocator) Frames() int { return a.frameCount }

// FrameSize returns bytes per frame.
func (a *Allocator) FrameSize() int { return a.frameSize }

// FreeFrames returns the free frame count.
func (a *Allocator) FreeFrames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}

// FrameOwner returns the pid owning frame.
func (a *Allocator) FrameOwner(frame int) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pid, ok := a.frameOwner[frame]
	return pid, ok
}

// OwnedFrames returns a copy of the frames held by pid.
func (a *Allocator) OwnedFrames(pid int) []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if entry, ok := a.owners[pid]; ok {
		return append([]int(nil), entry.frames...)
	}
	return nil
}

// Capacity returns total bytes.
func (a *Allocator) Capacity() int { return a.frameCount * a.frameSize }

// Allocated returns resident bytes.
func (a *Allocator) Allocated() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return (a.frameCount - len(a.free)) * a.frameSize
}

// ActiveMemory returns Σ NumPages × MemPerPage over resident owners.
func (a *Allocator) ActiveMemory() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active, true
}

// Layout returns one region per contiguous run of frames held by the same
// owner.
func (a *Allocator) Layout() []memory.Region {
	a.mu.Lock()
	defer a.mu.Unlock()
	var regions []memory.Region
	for pid, entry := range a.owners {
		frames := append([]int(nil), entry.frames...)
		sort.Ints(frames)
		start := frames[0]
		prev := start
		for _, frame := range frames[1:] {
			if frame == prev+1 {
				prev = frame
				continue
			}
			regions = append(regions, a.region(pid, entry.name, start, prev))
			start, prev = frame, frame
		}
		regions = append(regions, a.region(pid, entry.name, start, prev))
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Start < regions[j].Start })
	return regions
}

func (a *Allocator) region(pid int, name string, first, last int) memory.Region {
	return memory.Region{PID: pid, Name: name, Start: first * a.frameSize, End: (last + 1) * a.frameSize}
}

// Evictable is true: whole processes can be swapped out to the backing store.
func (a *Allocator) Evictable() bool { return true }

// Name returns the allocator name.
func (a *Allocator) Name() string { return Name }
