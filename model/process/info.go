package process

import "strconv"

// Info is a value snapshot of a process used by the query surface.
type Info struct {
	PID       int    `json:"pid"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	CoreID    int    `json:"coreId"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	Memory    int    `json:"memory"`
	State     State  `json:"state"`
	// Resident reports whether the process held memory when the view was taken.
	Resident bool `json:"resident"`
}

// Core returns the core label; finished or unassigned processes report "none".
func (i Info) Core() string {
	if i.State == StateFinished || i.CoreID == NoCore {
		return "none"
	}
	return strconv.Itoa(i.CoreID)
}
