package osemu

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/osemu/model/process"
	"github.com/viant/osemu/progress"
	"github.com/viant/osemu/service/event"
	"github.com/viant/osemu/service/memory/eviction"
	"github.com/viant/osemu/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures the emulator service
type Option func(s *Service)

// WithLogger sets the logger shared by every component
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLogLevel sets the logger level
func WithLogLevel(level logrus.Level) Option {
	return func(s *Service) {
		s.logLevel = &level
	}
}

// WithFS sets the storage service used for config, logs and reports
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithEvictionPolicy overrides the configured eviction policy
func WithEvictionPolicy(policy eviction.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithProgressListener registers a callback invoked on every engine counter change
func WithProgressListener(fn func(progress.Progress)) Option {
	return func(s *Service) {
		s.progressListener = fn
	}
}

// WithEventHandler registers a callback receiving admitted and finished
// process events on a dedicated goroutine
func WithEventHandler(fn func(*event.Event[process.Info])) Option {
	return func(s *Service) {
		s.eventHandler = fn
	}
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter; an
// empty outputFile writes to stdout.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
