package manager

import (
	"fmt"

	"github.com/viant/osemu/service/memory/eviction"
)

// Config represents memory manager configuration
type Config struct {
	// TotalMemory is the pool size in bytes.
	TotalMemory int
	// FrameSize is the paging frame size in bytes.
	FrameSize int
	// MinPage and MaxPage bound pages per process; both equal to one selects
	// the flat allocator.
	MinPage int
	MaxPage int
	// EvictionPolicy names the paging victim policy.
	EvictionPolicy string
	// Seed drives the random eviction policy.
	Seed int64
}

// DefaultConfig returns the default memory configuration
func DefaultConfig() Config {
	return Config{
		TotalMemory:    16384,
		FrameSize:      16,
		MinPage:        1,
		MaxPage:        1,
		EvictionPolicy: eviction.NameRandom,
	}
}

// IsFlat reports whether the flat allocator serves this configuration.
func (c Config) IsFlat() bool {
	return c.MinPage == 1 && c.MaxPage == 1
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TotalMemory <= 0 {
		return fmt.Errorf("invalid total memory: %v", c.TotalMemory)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("invalid frame size: %v", c.FrameSize)
	}
	if c.FrameSize > c.TotalMemory {
		return fmt.Errorf("frame size %v exceeds total memory %v", c.FrameSize, c.TotalMemory)
	}
	if c.MinPage <= 0 || c.MaxPage < c.MinPage {
		return fmt.Errorf("invalid page range: [%v, %v]", c.MinPage, c.MaxPage)
	}
	if !eviction.IsValid(c.EvictionPolicy) {
		return fmt.Errorf("unsupported eviction policy: %v", c.EvictionPolicy)
	}
	return nil
}
