package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp(t *testing.T) {
	prev := NowFunc
	defer func() { NowFunc = prev }()
	NowFunc = func() time.Time {
		return time.Date(2026, 10, 19, 15, 4, 5, 0, time.UTC)
	}
	assert.Equal(t, "10/19/2026, 03:04:05 PM", Timestamp())
}
