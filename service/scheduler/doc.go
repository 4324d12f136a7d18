// Package scheduler implements the scheduling engine: a FIFO ready queue, a
// fixed number of core slots, a dispatch goroutine that admits processes to
// free slots once memory is granted, and a worker pool that executes the
// resulting slices under FCFS or round robin.
package scheduler
