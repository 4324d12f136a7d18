// Package idgen wraps the UUID generator so that it can be stubbed in tests.
// Run identifiers stamped on backing-store records and spans come from here;
// callers treat them as opaque strings.
package idgen
