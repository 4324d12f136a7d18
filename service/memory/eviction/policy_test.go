package eviction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/osemu/model/process"
)

func candidates() []*process.Process {
	var result []*process.Process
	for i, seq := range []int64{5, 2, 9} {
		p := process.New(10-i, "p", "", 10, 4, 1)
		p.MarkDispatched(seq)
		result = append(result, p)
	}
	return result
}

func TestNew(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
		hasError bool
	}{
		{name: "", expected: NameRandom},
		{name: "random", expected: NameRandom},
		{name: "LRU", expected: NameLRU},
		{name: "lowest-id", expected: NameLowestID},
		{name: "fifo", hasError: true},
	}
	for _, tc := range testCases {
		policy, err := New(tc.name, 1)
		if tc.hasError {
			assert.Error(t, err, tc.name)
			assert.False(t, IsValid(tc.name))
			continue
		}
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.expected, policy.Name())
	}
}

func TestSelect(t *testing.T) {
	list := candidates()
	assert.Equal(t, 8, LowestID{}.Select(list).PID)
	assert.Equal(t, 9, LRU{}.Select(list).PID)
	assert.Nil(t, LRU{}.Select(nil))
	assert.Nil(t, LowestID{}.Select(nil))
	assert.Nil(t, NewRandom(1).Select(nil))
}

func TestRandom_Reproducible(t *testing.T) {
	list := candidates()
	a, b := NewRandom(99), NewRandom(99)
	for i := 0; i < 20; i++ {
		va, vb := a.Select(list), b.Select(list)
		assert.Same(t, va, vb)
		assert.Contains(t, list, va)
	}
}
