package obs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRollingAverageEmpty(t *testing.T) {
	r := NewRollingAverage(3)
	require.Equal(t, 0.0, r.Mean())
}

func TestRollingAveragePartialWindow(t *testing.T) {
	r := NewRollingAverage(3)
	r.Observe(1)
	r.Observe(2)
	require.InDelta(t, 1.5, r.Mean(), 0.0001)
}

func TestRollingAverageWraps(t *testing.T) {
	r := NewRollingAverage(2)
	r.Observe(10)
	r.Observe(20)
	r.Observe(30) // overwrites the 10
	require.InDelta(t, 25.0, r.Mean(), 0.0001)
}
