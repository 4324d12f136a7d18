package process

import (
	"fmt"
	"sync"

	"github.com/viant/osemu/service/memory"
)

// State represents the scheduling state of a process.
type State int

const (
	// StateReady means created but not yet queued.
	StateReady State = iota
	// StateWaiting means sitting in the ready queue.
	StateWaiting
	// StateRunning means occupying a core slot with a live allocation.
	StateRunning
	// StateFinished is terminal.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateWaiting:
		return "WAITING"
	case StateRunning:
		return "RUNNING"
	case StateFinished:
		return "FINISHED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// NoCore marks a process that is not assigned to any core.
const NoCore = -1

// Process represents a synthetic task.  Identity and demand fields are set
// once at creation; progress, state and assignment are guarded by mu.
type Process struct {
	PID               int    `json:"pid"`
	Name              string `json:"name"`
	Timestamp         string `json:"timestamp"`
	TotalInstructions int    `json:"totalInstructions"`
	MemoryRequired    int    `json:"memoryRequired"`
	NumPages          int    `json:"numPages"`
	MemPerPage        int    `json:"memPerPage"`

	mu             sync.RWMutex
	current        int
	state          State
	coreID         int
	handle         *memory.Handle
	lastDispatched int64
	slices         int
	swappedOut     bool
}

// New creates a process in StateReady.
func New(pid int, name, timestamp string, instructions, memoryRequired, numPages int) *Process {
	if numPages < 1 {
		numPages = 1
	}
	return &Process{
		PID:               pid,
		Name:              name,
		Timestamp:         timestamp,
		TotalInstructions: instructions,
		MemoryRequired:    memoryRequired,
		NumPages:          numPages,
		MemPerPage:        ceilDiv(memoryRequired, numPages),
		state:             StateReady,
		coreID:            NoCore,
	}
}

// ID implements memory.Owner.
func (p *Process) ID() int { return p.PID }

// Label implements memory.Owner.
func (p *Process) Label() string { return p.Name }

// Demand implements memory.Owner.
func (p *Process) Demand() memory.Demand {
	return memory.Demand{Bytes: p.MemoryRequired, Pages: p.NumPages, PerPage: p.MemPerPage}
}

// GetState returns the current state.
func (p *Process) GetState() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetState sets the state.
func (p *Process) SetState(state State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// CoreID returns the assigned core or NoCore.
func (p *Process) CoreID() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.coreID
}

// AssignCore records the core slot; pass NoCore to clear.
func (p *Process) AssignCore(core int) {
	p.mu.Lock()
	p.coreID = core
	p.mu.Unlock()
}

// Handle returns the live allocation or nil when not resident.
func (p *Process) Handle() *memory.Handle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.handle
}

// SetHandle replaces the live allocation; a process holds at most one.  A
// non nil handle clears the swapped out flag.
func (p *Process) SetHandle(handle *memory.Handle) {
	p.mu.Lock()
	p.handle = handle
	if handle != nil {
		p.swappedOut = false
	}
	p.mu.Unlock()
}

// Evict drops the live allocation and flags the process as swapped out.  A
// running process stops being RUNNING at once; its execution unit notices the
// flag at the next instruction boundary and returns the core.
func (p *Process) Evict() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handle = nil
	p.swappedOut = true
	if p.state == StateRunning {
		p.state = StateWaiting
	}
}

// SwappedOut reports whether the memory was taken away by eviction since the
// last allocation.
func (p *Process) SwappedOut() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.swappedOut
}

// Current returns the instruction progress counter.
func (p *Process) Current() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Remaining returns instructions left.
func (p *Process) Remaining() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.TotalInstructions - p.current
}

// IsDone reports whether the instruction budget is exhausted.
func (p *Process) IsDone() bool {
	return p.Remaining() <= 0
}

// Advance moves progress forward by up to n instructions and returns how many
// were applied.  Progress never exceeds TotalInstructions.
func (p *Process) Advance(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if left := p.TotalInstructions - p.current; n > left {
		n = left
	}
	if n < 0 {
		n = 0
	}
	p.current += n
	return n
}

// MarkDispatched records the dispatch sequence number, used by LRU eviction.
func (p *Process) MarkDispatched(seq int64) {
	p.mu.Lock()
	p.lastDispatched = seq
	p.mu.Unlock()
}

// LastDispatched returns the most recent dispatch sequence number.
func (p *Process) LastDispatched() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastDispatched
}

// CompleteSlice counts a finished execution slice.
func (p *Process) CompleteSlice() {
	p.mu.Lock()
	p.slices++
	p.mu.Unlock()
}

// Slices returns the number of execution slices completed.
func (p *Process) Slices() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.slices
}

// Info returns a read-only snapshot for reporting.
func (p *Process) Info() Info {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Info{
		PID:       p.PID,
		Name:      p.Name,
		Timestamp: p.Timestamp,
		CoreID:    p.coreID,
		Current:   p.current,
		Total:     p.TotalInstructions,
		Memory:    p.MemoryRequired,
		State:     p.state,
		Resident:  p.handle != nil,
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
