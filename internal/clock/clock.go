package clock

import "time"

// TimestampLayout is the display format used for process creation times and
// report headers, e.g. "10/19/2026, 03:04:05 PM".
const TimestampLayout = "01/02/2006, 03:04:05 PM"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Timestamp returns the current time formatted with TimestampLayout.
func Timestamp() string { return Now().Format(TimestampLayout) }
