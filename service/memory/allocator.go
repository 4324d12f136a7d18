package memory

import "errors"

var (
	// ErrBusy is returned when the pool cannot satisfy a request right now.
	ErrBusy = errors.New("memory: busy")

	// ErrNotFound is returned when deallocating an owner without a live
	// allocation.  Allocator state is left untouched.
	ErrNotFound = errors.New("memory: allocation not found")
)

// Demand describes how much memory an owner asks for.
type Demand struct {
	Bytes   int
	Pages   int
	PerPage int
}

// Owner is the view of a process the allocators need.
type Owner interface {
	ID() int
	Label() string
	Demand() Demand
}

// Handle identifies a live allocation.  Callers treat it as opaque; only the
// allocator that issued it interprets Start/Length or Frames.
type Handle struct {
	PID    int
	Start  int
	Length int
	Frames []int
	// Bytes is the resident footprint charged against the pool.
	Bytes int
}

// Region is a resident address range [Start, End) used by snapshots.
type Region struct {
	PID   int
	Name  string
	Start int
	End   int
}

// Size returns region length.
func (r Region) Size() int { return r.End - r.Start }

// Allocator is implemented by the flat and paging strategies.
type Allocator interface {
	// Allocate claims memory for owner or returns ErrBusy.  It never blocks
	// and never partially succeeds.
	Allocate(owner Owner) (*Handle, error)

	// Deallocate releases everything owned by owner and returns the bytes freed.
	Deallocate(owner Owner) (int, error)

	// Owns returns the bytes currently held by pid.
	Owns(pid int) int

	// Footprint returns the bytes owner would occupy once resident.
	Footprint(owner Owner) int

	// Capacity returns pool size in bytes.
	Capacity() int

	// Allocated returns resident bytes.
	Allocated() int

	// ActiveMemory returns bytes actively backing owners; ok is false when the
	// strategy does not track it.
	ActiveMemory() (active int, ok bool)

	// Layout returns resident regions ordered by start address.
	Layout() []Region

	// Evictable reports whether resident owners may be swapped out to make
	// room for a request.
	Evictable() bool

	Name() string
}
