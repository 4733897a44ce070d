package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabelSetAllows(t *testing.T) {
	f := NewLabelSet([]int64{3, 1, 2, 1})
	require.True(t, f.Allows(1))
	require.True(t, f.Allows(2))
	require.False(t, f.Allows(5))

	list, ok := f.AllowList()
	require.True(t, ok)
	require.Equal(t, []int64{1, 2, 3}, list)
}

func TestLogicalAnd(t *testing.T) {
	a := NewLabelSet([]int64{1, 2, 3})
	b := NewLabelSet([]int64{2, 3, 4})
	and := NewAnd(a, b)
	require.NoError(t, and.Validate())
	require.True(t, and.Allows(2))
	require.False(t, and.Allows(1))

	list, ok := and.AllowList()
	require.True(t, ok)
	require.Equal(t, []int64{2, 3}, list)
}

func TestLogicalOrHasNoAllowList(t *testing.T) {
	a := NewLabelSet([]int64{1})
	b := NewLabelSet([]int64{2})
	or := NewOr(a, b)
	require.True(t, or.Allows(1))
	require.True(t, or.Allows(2))
	require.False(t, or.Allows(3))
	_, ok := or.AllowList()
	require.False(t, ok)
}

func TestLogicalNot(t *testing.T) {
	a := NewLabelSet([]int64{1, 2})
	not := NewNot(a)
	require.NoError(t, not.Validate())
	require.False(t, not.Allows(1))
	require.True(t, not.Allows(3))
}

func TestShouldShortcut(t *testing.T) {
	f := NewLabelSet([]int64{1, 2})
	require.True(t, ShouldShortcut(f, 100))
	require.False(t, ShouldShortcut(f, 2))
}
