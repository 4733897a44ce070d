package hgraph

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xDarkicex/annsearch/internal/filter"
	"github.com/xDarkicex/annsearch/internal/util"
)

func randomVectors(n, dim int, seed int64) [][]float32 {
	r := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = r.Float32()
		}
		out[i] = v
	}
	return out
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	cfg, err := NewConfig(
		WithDimension(8),
		WithMetric(util.L2Distance),
		WithMaxDegree(8),
		WithEfConstruction(32),
		WithMaxElements(16),
		WithSeed(42),
	)
	require.NoError(t, err)
	idx, err := New(cfg)
	require.NoError(t, err)
	return idx
}

func TestBuildAndKnnSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := randomVectors(50, 8, 1)
	labels := make([]int64, 50)
	for i := range labels {
		labels[i] = int64(i)
	}

	failed, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)
	require.Empty(t, failed)
	require.Equal(t, 50, idx.Size())

	results, err := idx.KnnSearch(ctx, vectors[10], 5, SearchParams{EfSearch: 64})
	require.NoError(t, err)
	require.Len(t, results, 5)
	require.Equal(t, int64(10), results[0].Label)
}

func TestBuildTwiceFails(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := randomVectors(5, 8, 2)
	labels := []int64{1, 2, 3, 4, 5}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	_, err = idx.Build(ctx, vectors, labels)
	require.ErrorIs(t, err, ErrAlreadyBuilt)
}

func TestDuplicateLabelRejected(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := randomVectors(3, 8, 3)
	labels := []int64{1, 1, 2}
	failed, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)
	require.Contains(t, failed, int64(1))
}

func TestRemoveAndRecoverRemove(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := randomVectors(10, 8, 4)
	labels := make([]int64, 10)
	for i := range labels {
		labels[i] = int64(i)
	}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	changed, err := idx.Remove(3)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = idx.Remove(3)
	require.NoError(t, err)
	require.False(t, changed)

	results, err := idx.KnnSearch(ctx, vectors[3], 10, SearchParams{EfSearch: 64})
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, int64(3), r.Label)
	}

	recovered, err := idx.RecoverRemove(3)
	require.NoError(t, err)
	require.True(t, recovered)
}

func TestUpdateLabelRejectsLiveTarget(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := randomVectors(3, 8, 5)
	labels := []int64{1, 2, 3}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	err = idx.UpdateLabel(1, 2)
	require.ErrorIs(t, err, ErrLabelLive)

	err = idx.UpdateLabel(1, 99)
	require.NoError(t, err)
}

func TestFilteredSearchUsesAllowListShortcut(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := randomVectors(20, 8, 6)
	labels := make([]int64, 20)
	for i := range labels {
		labels[i] = int64(i)
	}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	f := filter.NewLabelSet([]int64{0, 1, 2})
	results, err := idx.KnnSearch(ctx, vectors[1], 5, SearchParams{EfSearch: 32, Filter: f})
	require.NoError(t, err)
	for _, r := range results {
		require.True(t, f.Allows(r.Label))
	}
}

func TestInsertRejectedUnderCriticalMemoryPressure(t *testing.T) {
	cfg, err := NewConfig(
		WithDimension(4),
		WithMetric(util.L2Distance),
		WithMaxDegree(5),
		WithEfConstruction(8),
		WithMaxElements(8),
		WithSeed(1),
		WithMemoryLimit(100),
	)
	require.NoError(t, err)
	cfg.BlockCap = 64 // after one insert, the 64-byte block plus the 64-byte node estimate cross the 95% critical threshold
	idx, err := New(cfg)
	require.NoError(t, err)

	vectors := randomVectors(3, 4, 8)
	labels := []int64{1, 2, 3}
	failed, err := idx.Build(context.Background(), vectors, labels)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Empty(t, failed)
	require.Equal(t, 1, idx.Size())
}

func TestSerializeRoundTrip(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	vectors := randomVectors(12, 8, 7)
	labels := make([]int64, 12)
	for i := range labels {
		labels[i] = int64(i)
	}
	_, err := idx.Build(ctx, vectors, labels)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, idx.Serialize(&buf))

	restored := newTestIndex(t)
	r := bytes.NewReader(buf.Bytes())
	require.NoError(t, restored.Deserialize(r, int64(buf.Len())))
	require.Equal(t, idx.Size(), restored.Size())

	results, err := restored.KnnSearch(ctx, vectors[0], 3, SearchParams{EfSearch: 32})
	require.NoError(t, err)
	require.NotEmpty(t, results)
}
