package manager

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/osemu/service/memory"
	"github.com/viant/osemu/service/memory/eviction"
)

// Option configures the memory manager.
type Option func(*Service)

// WithLogger sets logger
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithBackingStore sets the swap log.
func WithBackingStore(store Recorder) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithPolicy overrides the configured eviction policy.
func WithPolicy(policy eviction.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithAllocator overrides allocator selection.
func WithAllocator(allocator memory.Allocator) Option {
	return func(s *Service) {
		s.allocator = allocator
	}
}
