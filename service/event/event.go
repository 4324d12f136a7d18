// Package event publishes process lifecycle notifications over a
// messaging.Queue and delivers them to a listener goroutine.
package event

import (
	"time"

	"github.com/viant/osemu/internal/clock"
)

// Type names a lifecycle transition.
type Type string

const (
	// TypeAdmitted is emitted when a process enters the ready queue.
	TypeAdmitted Type = "admitted"
	// TypeFinished is emitted when a process retires its last instruction.
	TypeFinished Type = "finished"
)

// Context identifies the source of an event.
type Context struct {
	PID       int    `json:"pid"`
	Process   string `json:"process"`
	EventType Type   `json:"eventType"`
	Core      int    `json:"core"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
