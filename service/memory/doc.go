// Package memory defines the contract shared by the allocator strategies.
//
// An Allocator owns a finite pool (a byte arena or a set of frames) and tracks
// live allocations keyed by the owning process.  Running out of space is not
// an error condition for callers: Allocate reports ErrBusy and the scheduler
// simply retries on a later dispatch pass.
package memory
