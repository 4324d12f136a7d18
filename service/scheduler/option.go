package scheduler

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/osemu/model/process"
	"github.com/viant/osemu/progress"
	"github.com/viant/osemu/service/event"
	"github.com/viant/osemu/service/messaging"
)

// Option configures the scheduler.
type Option func(*Service)

// WithLogger sets logger
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithQueue sets the slice queue implementation
func WithQueue(queue messaging.Queue[Slice]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithProgress sets the counter tracker
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) {
		s.progress = tracker
	}
}

// WithSnapshotter sets the per quantum memory snapshot sink
func WithSnapshotter(snapshotter Snapshotter) Option {
	return func(s *Service) {
		s.snapshotter = snapshotter
	}
}

// WithEvents publishes admitted and finished process events
func WithEvents(publisher *event.Publisher[process.Info]) Option {
	return func(s *Service) {
		s.events = publisher
	}
}
