package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccountantGetUsage(t *testing.T) {
	a := NewAccountant()
	a.Set("nodes", 1000)
	a.Set("adjacency", 2000)

	usage := a.GetUsage()
	require.Equal(t, int64(1000), usage.Nodes)
	require.Equal(t, int64(2000), usage.Adjacency)
	require.Equal(t, int64(3000), usage.Total)
	require.Equal(t, int64(-1), usage.Available)
}

func TestAccountantPressureLevels(t *testing.T) {
	a := NewAccountant()
	a.SetLimit(1000)
	require.Equal(t, NoPressure, a.Pressure())

	a.Set("nodes", 950)
	require.Equal(t, CriticalPressure, a.Pressure())

	a.Set("nodes", 750)
	require.Equal(t, LowPressure, a.Pressure())
}

func TestAccountantNoLimitIsNoPressure(t *testing.T) {
	a := NewAccountant()
	a.Set("nodes", 1 << 30)
	require.Equal(t, NoPressure, a.Pressure())
}
