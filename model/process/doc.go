// Package process defines the simulated process entity scheduled by the
// engine and backed by the memory allocators, together with a Factory that
// draws each process' workload and memory demand from configured ranges.
package process
