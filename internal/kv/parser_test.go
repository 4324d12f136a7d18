package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		expected    []Pair
		hasError    bool
	}{
		{
			description: "plain pairs",
			input:       "num-cpu 4\nscheduler rr\n",
			expected:    []Pair{{Key: "num-cpu", Value: "4", Line: 1}, {Key: "scheduler", Value: "rr", Line: 2}},
		},
		{
			description: "quoted value and comments",
			input:       "# header\n\nscheduler \"fcfs\"  # trailing\n\tquantum-cycles\t5\r\n",
			expected:    []Pair{{Key: "scheduler", Value: "fcfs", Line: 3}, {Key: "quantum-cycles", Value: "5", Line: 4}},
		},
		{
			description: "quoted with spaces",
			input:       `eviction-policy "lowest-id"`,
			expected:    []Pair{{Key: "eviction-policy", Value: "lowest-id", Line: 1}},
		},
		{
			description: "missing value",
			input:       "num-cpu\n",
			hasError:    true,
		},
		{
			description: "extra token",
			input:       "num-cpu 4 5\n",
			hasError:    true,
		},
		{
			description: "unterminated quote",
			input:       "scheduler \"rr\n",
			hasError:    true,
		},
	}
	for _, tc := range testCases {
		actual, err := Parse([]byte(tc.input))
		if tc.hasError {
			assert.Error(t, err, tc.description)
			continue
		}
		if !assert.NoError(t, err, tc.description) {
			continue
		}
		assert.Equal(t, tc.expected, actual, tc.description)
	}
}

func TestParse_ErrorNamesLine(t *testing.T) {
	_, err := Parse([]byte("num-cpu 4\n!bad 1\n"))
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "line 2")
	}
}
