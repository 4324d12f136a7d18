package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Scheduling algorithms.
const (
	AlgorithmFCFS = "fcfs"
	AlgorithmRR   = "rr"
)

// Config represents scheduler configuration
type Config struct {
	// Cores is the number of core slots and worker goroutines.
	Cores int
	// Algorithm is fcfs or rr.
	Algorithm string
	// Quantum is the number of instructions a process runs per rr slice.
	Quantum int
	// DispatchDelay pauses the dispatcher after each pass that admitted work.
	DispatchDelay time.Duration
	// StepDelay is slept after every executed instruction.
	StepDelay time.Duration
	// IdleWait bounds how long the dispatcher sleeps without a wake up.
	IdleWait time.Duration
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Cores:     4,
		Algorithm: AlgorithmFCFS,
		Quantum:   5,
		IdleWait:  100 * time.Millisecond,
	}
}

// IsRoundRobin reports whether slices are bounded by the quantum.
func (c Config) IsRoundRobin() bool {
	return strings.EqualFold(c.Algorithm, AlgorithmRR)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Cores <= 0 {
		return fmt.Errorf("invalid core count: %v", c.Cores)
	}
	switch strings.ToLower(c.Algorithm) {
	case AlgorithmFCFS:
	case AlgorithmRR:
		if c.Quantum <= 0 {
			return fmt.Errorf("invalid quantum: %v", c.Quantum)
		}
	default:
		return fmt.Errorf("unsupported scheduler: %v", c.Algorithm)
	}
	if c.DispatchDelay < 0 || c.StepDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}
