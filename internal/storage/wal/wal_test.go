package wal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal")

	w, err := New(path)
	require.NoError(t, err)

	require.NoError(t, w.Append(&Entry{Operation: OpAdd, Label: 1, Vector: []float32{1, 2, 3}}))
	require.NoError(t, w.Append(&Entry{Operation: OpRemove, Label: 1}))
	require.NoError(t, w.Close())

	w2, err := New(path)
	require.NoError(t, err)
	defer w2.Close()

	entries, err := w2.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, OpAdd, entries[0].Operation)
	require.Equal(t, int64(1), entries[0].Label)
	require.Equal(t, OpRemove, entries[1].Operation)
}

func TestTruncate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal")

	w, err := New(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(&Entry{Operation: OpAdd, Label: 1}))
	require.NoError(t, w.Truncate())
	require.NoError(t, w.Close())

	w2, err := New(path)
	require.NoError(t, err)
	defer w2.Close()
	entries, err := w2.Read()
	require.NoError(t, err)
	require.Empty(t, entries)
}
