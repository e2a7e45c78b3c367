package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"lowest", PriorityLowest},
		{"LOW", PriorityLow},
		{"Normal", PriorityNormal},
		{"high", PriorityHigh},
		{" highest ", PriorityHighest},
		{"monitor", PriorityMonitor},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePriority_Invalid(t *testing.T) {
	_, err := ParsePriority("urgent")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestPriority_String(t *testing.T) {
	assert.Equal(t, "normal", PriorityNormal.String())
	assert.Equal(t, "monitor", PriorityMonitor.String())
	assert.Equal(t, "priority(42)", Priority(42).String())
	assert.False(t, Priority(-1).Valid())
}
