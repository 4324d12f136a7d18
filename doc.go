// Package osemu emulates an operating system process scheduler and memory
// manager.  Synthetic processes are dispatched across a configurable number
// of cores under first come first served or round robin scheduling, and each
// running process is backed by memory from either a flat first-fit allocator
// or a paging allocator that evicts running processes to a backing store
// under pressure.
//
// The root Service wires the components together:
//
//	srv, _ := osemu.NewFromURL(ctx, "config.txt")
//	_ = srv.Start(ctx)
//	_, _ = srv.Submit(ctx, "worker")
//	_ = srv.StartBatch(ctx)
//	...
//	srv.Shutdown(ctx)
package osemu
