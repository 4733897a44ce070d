package annsearch

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xDarkicex/annsearch/internal/index/sindi"
)

func denseSet(n, dim int, seed int64) DataSet {
	r := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	labels := make([]int64, n)
	for i := 0; i < n; i++ {
		v := make([]float32, dim)
		for d := range v {
			v[d] = r.Float32()
		}
		vectors[i] = v
		labels[i] = int64(i)
	}
	return DataSet{Vectors: vectors, Labels: labels}
}

func TestCollectionHGraphBuildAndSearch(t *testing.T) {
	c, err := NewCollection(
		WithIndexType(HGraph),
		WithDimension(8),
		WithMaxDegree(8),
		WithEfConstruction(32),
		WithMaxElements(64),
	)
	require.NoError(t, err)
	defer c.Close()

	data := denseSet(32, 8, 1)
	failed, err := c.Build(context.Background(), data)
	require.NoError(t, err)
	require.Empty(t, failed)

	results, err := c.KnnSearch(context.Background(), DataSet{Vectors: data.Vectors[:1]}, 5, SearchParams{EfSearch: 32})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, data.Labels[0], results[0].Label)
}

func TestCollectionBuildTwiceFails(t *testing.T) {
	c, err := NewCollection(WithIndexType(HGraph), WithDimension(4), WithMaxElements(16))
	require.NoError(t, err)
	defer c.Close()

	data := denseSet(4, 4, 2)
	_, err = c.Build(context.Background(), data)
	require.NoError(t, err)

	_, err = c.Build(context.Background(), data)
	require.Error(t, err)
}

func TestCollectionClosedRejectsCalls(t *testing.T) {
	c, err := NewCollection(WithIndexType(HGraph), WithDimension(4), WithMaxElements(16))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Add(context.Background(), denseSet(1, 4, 3))
	require.ErrorIs(t, err, ErrCollectionClosed)
}

func TestCollectionSindiRoundTrip(t *testing.T) {
	c, err := NewCollection(WithIndexType(SINDI), WithTermIDLimit(32))
	require.NoError(t, err)
	defer c.Close()

	data := DataSet{
		Sparse: []sindi.SparseVector{
			{TermIDs: []uint32{1, 2, 3}, Weights: []float32{0.9, 0.5, 0.2}},
			{TermIDs: []uint32{2, 4}, Weights: []float32{0.8, 0.3}},
		},
		Labels: []int64{10, 20},
	}
	_, err = c.Build(context.Background(), data)
	require.NoError(t, err)

	results, err := c.KnnSearch(context.Background(), DataSet{Sparse: data.Sparse[:1]}, 2, SearchParams{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, int64(10), results[0].Label)
}

func TestCollectionOutOfMemoryMapsToKindOutOfMemory(t *testing.T) {
	c, err := NewCollection(WithIndexType(SINDI), WithTermIDLimit(32), WithMemoryLimit(10))
	require.NoError(t, err)
	defer c.Close()

	data := DataSet{
		Sparse: []sindi.SparseVector{
			{TermIDs: []uint32{1, 2}, Weights: []float32{1.0, 0.5}},
			{TermIDs: []uint32{3, 4}, Weights: []float32{0.8, 0.2}},
		},
		Labels: []int64{1, 2},
	}
	_, err = c.Build(context.Background(), data)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, KindOutOfMemory, e.Kind)
}

func TestCollectionUnsupportedIndexType(t *testing.T) {
	_, err := NewCollection(WithIndexType(IndexType(99)))
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, KindUnsupportedIndex, e.Kind)
}

func TestCollectionWALReplaysAfterReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collection.wal")

	c, err := NewCollection(WithIndexType(HGraph), WithDimension(4), WithMaxElements(16), WithWAL(path))
	require.NoError(t, err)

	data := denseSet(4, 4, 7)
	_, err = c.Build(context.Background(), data)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := NewCollection(WithIndexType(HGraph), WithDimension(4), WithMaxElements(16), WithWAL(path))
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, 4, reopened.GetNumElements())
	results, err := reopened.KnnSearch(context.Background(), DataSet{Vectors: data.Vectors[:1]}, 1, SearchParams{EfSearch: 16})
	require.NoError(t, err)
	require.Equal(t, data.Labels[0], results[0].Label)
}
