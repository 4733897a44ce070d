package labeltable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndGetIdByLabel(t *testing.T) {
	tbl := New()
	tbl.Insert(0, 100)
	tbl.Insert(1, 200)

	require.Equal(t, uint32(0), tbl.GetIdByLabel(100, false))
	require.Equal(t, uint32(1), tbl.GetIdByLabel(200, false))
	require.Equal(t, NoID, tbl.GetIdByLabel(300, false))
}

func TestMarkRemoveHidesFromGetIdByLabel(t *testing.T) {
	tbl := New()
	tbl.Insert(0, 100)

	flipped := tbl.MarkRemove([]uint32{0})
	require.Equal(t, 1, flipped)
	require.Equal(t, NoID, tbl.GetIdByLabel(100, false))
	require.Equal(t, uint32(0), tbl.GetIdByLabel(100, true))
	require.Equal(t, 1, tbl.NumDead())

	// Re-removing an already-tombstoned id flips nothing further.
	require.Equal(t, 0, tbl.MarkRemove([]uint32{0}))
}

func TestRecoverRemove(t *testing.T) {
	tbl := New()
	tbl.Insert(0, 100)
	tbl.MarkRemove([]uint32{0})

	require.True(t, tbl.RecoverRemove(0))
	require.Equal(t, uint32(0), tbl.GetIdByLabel(100, false))
	require.Equal(t, 0, tbl.NumDead())
	require.False(t, tbl.RecoverRemove(0))
}

func TestUpdateLabelRejectsLiveTarget(t *testing.T) {
	tbl := New()
	tbl.Insert(0, 100)
	tbl.Insert(1, 200)

	err := tbl.UpdateLabel(0, 200)
	require.ErrorIs(t, err, ErrLabelLive)

	require.NoError(t, tbl.UpdateLabel(0, 999))
	require.Equal(t, uint32(0), tbl.GetIdByLabel(999, false))
	require.Equal(t, NoID, tbl.GetIdByLabel(100, false))
}

func TestRepointMovesReverseEntryOnly(t *testing.T) {
	tbl := New()
	tbl.Insert(0, 100)
	tbl.Insert(1, 100) // duplicate primary holder is a no-op on the reverse map

	tbl.Repoint(100, 5)
	require.Equal(t, uint32(5), tbl.GetIdByLabel(100, false))
}

func TestDuplicateChain(t *testing.T) {
	tbl := New()
	tbl.Insert(0, 100)
	tbl.Insert(1, 100)
	tbl.Insert(2, 100)

	tbl.SetDuplicateId(0, 1)
	tbl.SetDuplicateId(1, 2)

	require.ElementsMatch(t, []uint32{0, 1, 2}, tbl.DuplicatesOf(0))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	tbl := New()
	tbl.Insert(0, 100)
	tbl.Insert(1, 200)
	tbl.MarkRemove([]uint32{1})

	snap := tbl.Snapshot()
	restored := Restore(snap)

	require.Equal(t, uint32(0), restored.GetIdByLabel(100, false))
	require.Equal(t, NoID, restored.GetIdByLabel(200, false))
	require.Equal(t, 1, restored.NumDead())
	require.Equal(t, tbl.Len(), restored.Len())
}
