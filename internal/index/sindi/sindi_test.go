package sindi

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xDarkicex/annsearch/internal/filter"
)

func sparse(terms []uint32, weights []float32) SparseVector {
	return SparseVector{TermIDs: terms, Weights: weights}
}

func newTestIndex(t *testing.T, opts ...Option) *Index {
	t.Helper()
	allOpts := append([]Option{WithTermIDLimit(64)}, opts...)
	cfg, err := NewConfig(allOpts...)
	require.NoError(t, err)
	idx, err := New(cfg)
	require.NoError(t, err)
	return idx
}

func TestBuildAndKnnSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	vectors := []SparseVector{
		sparse([]uint32{1, 2, 3}, []float32{1.0, 0.5, 0.2}),
		sparse([]uint32{4, 5}, []float32{0.9, 0.8}),
		sparse([]uint32{1, 6}, []float32{0.7, 0.3}),
	}
	labels := []int64{10, 20, 30}

	failed, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)
	require.Empty(t, failed)
	require.Equal(t, 3, idx.Size())

	query := sparse([]uint32{1, 2, 3}, []float32{1.0, 0.5, 0.2})
	results, err := idx.KnnSearch(ctx, query, 2, SearchParams{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, int64(10), results[0].Label)
}

func TestBuildTwiceFails(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := []SparseVector{sparse([]uint32{1}, []float32{1.0})}
	labels := []int64{1}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	_, err = idx.Build(ctx, vectors, labels)
	require.ErrorIs(t, err, ErrAlreadyBuilt)
}

func TestDuplicateLabelRejected(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := []SparseVector{
		sparse([]uint32{1}, []float32{1.0}),
		sparse([]uint32{2}, []float32{1.0}),
	}
	labels := []int64{1, 1}
	failed, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)
	require.Contains(t, failed, int64(1))
}

func TestTermOutOfRangeRejected(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := []SparseVector{sparse([]uint32{1000}, []float32{1.0})}
	labels := []int64{1}
	failed, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)
	require.Contains(t, failed, int64(1))
}

func TestDocPruneRatioDropsLowWeightTerms(t *testing.T) {
	idx := newTestIndex(t, WithDocPruneRatio(0.5))
	ctx := context.Background()
	vectors := []SparseVector{
		sparse([]uint32{1, 2, 3}, []float32{10.0, 1.0, 1.0}),
	}
	labels := []int64{1}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	require.Equal(t, 1, idx.termAt(1).size())
	require.Equal(t, 0, idx.termAt(2).size())
	require.Equal(t, 0, idx.termAt(3).size())
}

func TestRemoveAndRecoverRemove(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := []SparseVector{
		sparse([]uint32{1}, []float32{1.0}),
		sparse([]uint32{1}, []float32{0.9}),
	}
	labels := []int64{1, 2}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	changed, err := idx.Remove(1)
	require.NoError(t, err)
	require.True(t, changed)

	results, err := idx.KnnSearch(ctx, sparse([]uint32{1}, []float32{1.0}), 5, SearchParams{})
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, int64(1), r.Label)
	}

	recovered, err := idx.RecoverRemove(1)
	require.NoError(t, err)
	require.True(t, recovered)
}

func TestFilteredSearchUsesAllowListShortcut(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := []SparseVector{
		sparse([]uint32{1, 2}, []float32{1.0, 0.5}),
		sparse([]uint32{1, 3}, []float32{0.9, 0.4}),
		sparse([]uint32{1, 4}, []float32{0.8, 0.3}),
	}
	labels := []int64{1, 2, 3}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	f := filter.NewLabelSet([]int64{1})
	results, err := idx.KnnSearch(ctx, sparse([]uint32{1}, []float32{1.0}), 5, SearchParams{Filter: f})
	require.NoError(t, err)
	for _, r := range results {
		require.True(t, f.Allows(r.Label))
	}
}

func TestReorderModeMatchesAccumulatorRanking(t *testing.T) {
	idx := newTestIndex(t, WithUseReorder(true))
	ctx := context.Background()
	vectors := []SparseVector{
		sparse([]uint32{1, 2}, []float32{1.0, 1.0}),
		sparse([]uint32{1}, []float32{0.3}),
	}
	labels := []int64{1, 2}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	results, err := idx.KnnSearch(ctx, sparse([]uint32{1, 2}, []float32{1.0, 1.0}), 2, SearchParams{NCandidate: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, int64(1), results[0].Label)
}

func TestInsertRejectedUnderCriticalMemoryPressure(t *testing.T) {
	idx := newTestIndex(t, WithMemoryLimit(10))
	ctx := context.Background()
	vectors := []SparseVector{
		sparse([]uint32{1, 2}, []float32{1.0, 0.5}),
		sparse([]uint32{3, 4}, []float32{0.8, 0.2}),
	}
	labels := []int64{1, 2}

	failed, err := idx.Build(ctx, vectors, labels)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Empty(t, failed)
	require.Equal(t, 1, idx.Size())
}

func TestSerializeRoundTrip(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := []SparseVector{
		sparse([]uint32{1, 2}, []float32{1.0, 0.5}),
		sparse([]uint32{3, 4}, []float32{0.8, 0.2}),
	}
	labels := []int64{1, 2}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, idx.Serialize(&buf))

	restored := newTestIndex(t)
	r := bytes.NewReader(buf.Bytes())
	require.NoError(t, restored.Deserialize(r, int64(buf.Len())))
	require.Equal(t, idx.Size(), restored.Size())

	results, err := restored.KnnSearch(ctx, sparse([]uint32{1, 2}, []float32{1.0, 0.5}), 2, SearchParams{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
}
