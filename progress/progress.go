package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the scheduler.
type Delta struct {
	ActiveTicks int
	IdleTicks   int
	Dispatched  int
	Slices      int
	Finished    int
	Requeued    int
}

// Progress keeps aggregated engine counters.  It is safe for concurrent use.
type Progress struct {
	RunID     string
	StartedAt time.Time

	ActiveTicks int
	IdleTicks   int
	Dispatched  int
	Slices      int
	Finished    int
	Requeued    int

	sync.Mutex
	onChange func(Progress)
}

// New creates a tracker.
func New(runID string, onChange func(Progress)) *Progress {
	return &Progress{RunID: runID, StartedAt: time.Now(), onChange: onChange}
}

// Update applies the supplied delta.  The onChange callback, if any, receives
// a copy outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.ActiveTicks += d.ActiveTicks
	p.IdleTicks += d.IdleTicks
	p.Dispatched += d.Dispatched
	p.Slices += d.Slices
	p.Finished += d.Finished
	p.Requeued += d.Requeued
	snapshot := p.copy()
	cb := p.onChange
	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

func (p *Progress) copy() Progress {
	return Progress{
		RunID:       p.RunID,
		StartedAt:   p.StartedAt,
		ActiveTicks: p.ActiveTicks,
		IdleTicks:   p.IdleTicks,
		Dispatched:  p.Dispatched,
		Slices:      p.Slices,
		Finished:    p.Finished,
		Requeued:    p.Requeued,
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

// TotalTicks returns active plus idle ticks.
func (p Progress) TotalTicks() int { return p.ActiveTicks + p.IdleTicks }

// OnChange registers a callback invoked after every Update; nil disables it.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds tracker in a derived context.
func WithTracker(ctx context.Context, tracker *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tracker)
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies d to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
