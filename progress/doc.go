// Package progress keeps aggregated scheduler counters (CPU ticks, dispatches,
// completed slices, finished processes) and notifies an optional observer on
// every change.
package progress
