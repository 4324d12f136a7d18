// Package tracing wraps OpenTelemetry so the scheduler and memory services
// can emit spans without importing the SDK directly.
package tracing
