package annsearch

import (
	"context"
	"errors"
	"io"

	"github.com/xDarkicex/annsearch/internal/index/hgraph"
	"github.com/xDarkicex/annsearch/internal/index/sindi"
	"github.com/xDarkicex/annsearch/internal/memory"
	"github.com/xDarkicex/annsearch/internal/quant"
	"github.com/xDarkicex/annsearch/internal/util"
)

// translateErr maps a raw backend error to the *Error kind the public
// contract promises (§7), discriminating on the underlying index's
// sentinel errors rather than assuming every backend.Build/Add failure
// means the same thing.
func translateErr(err error) *Error {
	switch {
	case errors.Is(err, hgraph.ErrAlreadyBuilt), errors.Is(err, sindi.ErrAlreadyBuilt):
		return newError(KindBuildTwice, err.Error(), err)
	case errors.Is(err, hgraph.ErrOutOfMemory), errors.Is(err, sindi.ErrOutOfMemory):
		return newError(KindOutOfMemory, err.Error(), err)
	case errors.Is(err, hgraph.ErrDimensionMismatch):
		return newError(KindDimensionMismatch, err.Error(), err)
	default:
		return newError(KindInternal, err.Error(), err)
	}
}

// backend is the narrow surface a Collection drives, implemented by both
// *hgraphBackend and *sindiBackend: a registry/wrapper interface selecting
// between index families by name, widened from a single dense-vector
// contract to one that also covers SINDI's sparse-vector shape via DataSet.
type backend interface {
	Build(ctx context.Context, data DataSet) ([]int64, error)
	Add(ctx context.Context, data DataSet) ([]int64, error)
	Remove(label int64) (bool, error)
	RecoverRemove(label int64) (bool, error)
	UpdateLabel(old, newLabel int64) error
	UpdateVector(ctx context.Context, label int64, data DataSet, idx int) error
	KnnSearch(ctx context.Context, query DataSet, k int, params SearchParams) ([]Result, error)
	RangeSearch(ctx context.Context, query DataSet, radius float32, params SearchParams, limit int) ([]Result, error)
	Serialize(w io.Writer) error
	Deserialize(r io.ReaderAt, size int64) error
	Size() int
	NumDeleted() int
	GetMemoryUsage() memory.Usage
	GetStats() map[string]interface{}
	Close() error
}

// newBackend constructs the backend named by p.IndexType, failing with
// KindUnsupportedIndex for anything else (§7).
func newBackend(p *BuildParams) (backend, error) {
	switch p.IndexType {
	case HGraph:
		return newHGraphBackend(p)
	case SINDI:
		return newSindiBackend(p)
	default:
		return nil, newError(KindUnsupportedIndex, "unknown index type", nil)
	}
}

// --- HGraph backend ---

type hgraphBackend struct {
	idx *hgraph.Index
}

func toHgraphMetric(m DistanceMetric) util.Metric {
	switch m {
	case InnerProduct:
		return util.InnerProduct
	case CosineDistance:
		return util.CosineDistance
	default:
		return util.L2Distance
	}
}

func newHGraphBackend(p *BuildParams) (backend, error) {
	opts := []hgraph.Option{
		hgraph.WithName(p.Name),
		hgraph.WithDimension(p.Dimension),
		hgraph.WithMetric(toHgraphMetric(p.Metric)),
		hgraph.WithMaxDegree(p.MaxDegree),
		hgraph.WithEfConstruction(p.EfConstruction),
		hgraph.WithMaxElements(p.MaxElements),
		hgraph.WithUseStatic(p.UseStatic),
		hgraph.WithAllowDuplicates(p.AllowDuplicates),
		hgraph.WithSeed(p.Seed),
		hgraph.WithMemoryLimit(p.MemoryLimit),
	}
	if p.QuantizeVectors {
		opts = append(opts, hgraph.WithQuantization(&quant.Config{Bits: p.QuantBits, TrainRatio: 0.1}))
	}
	cfg, err := hgraph.NewConfig(opts...)
	if err != nil {
		return nil, newError(KindInvalidArgument, err.Error(), err)
	}
	idx, err := hgraph.New(cfg)
	if err != nil {
		return nil, newError(KindInternal, err.Error(), err)
	}
	return &hgraphBackend{idx: idx}, nil
}

func (b *hgraphBackend) Build(ctx context.Context, data DataSet) ([]int64, error) {
	return b.idx.Build(ctx, data.Vectors, data.Labels)
}

func (b *hgraphBackend) Add(ctx context.Context, data DataSet) ([]int64, error) {
	return b.idx.Add(ctx, data.Vectors, data.Labels)
}

func (b *hgraphBackend) Remove(label int64) (bool, error) { return b.idx.Remove(label) }

func (b *hgraphBackend) RecoverRemove(label int64) (bool, error) { return b.idx.RecoverRemove(label) }

func (b *hgraphBackend) UpdateLabel(old, newLabel int64) error {
	return b.idx.UpdateLabel(old, newLabel)
}

func (b *hgraphBackend) UpdateVector(ctx context.Context, label int64, data DataSet, i int) error {
	return b.idx.UpdateVector(ctx, label, data.Vectors[i])
}

func (b *hgraphBackend) KnnSearch(ctx context.Context, query DataSet, k int, params SearchParams) ([]Result, error) {
	var iter *hgraph.Iterator
	if params.Iterator != nil {
		iter = params.Iterator.hg
	}
	results, err := b.idx.KnnSearch(ctx, query.Vectors[0], k, hgraph.SearchParams{
		EfSearch: params.EfSearch,
		Filter:   params.Filter,
		Iterator: iter,
	})
	return toFacadeResults(results), err
}

func (b *hgraphBackend) RangeSearch(ctx context.Context, query DataSet, radius float32, params SearchParams, limit int) ([]Result, error) {
	results, err := b.idx.RangeSearch(ctx, query.Vectors[0], radius, hgraph.SearchParams{
		EfSearch: params.EfSearch,
		Filter:   params.Filter,
	}, limit)
	return toFacadeResults(results), err
}

func (b *hgraphBackend) Serialize(w io.Writer) error                    { return b.idx.Serialize(w) }
func (b *hgraphBackend) Deserialize(r io.ReaderAt, size int64) error     { return b.idx.Deserialize(r, size) }
func (b *hgraphBackend) Size() int                                      { return b.idx.Size() }
func (b *hgraphBackend) NumDeleted() int                                { return b.idx.NumDeleted() }
func (b *hgraphBackend) GetMemoryUsage() memory.Usage                   { return b.idx.GetMemoryUsage() }
func (b *hgraphBackend) GetStats() map[string]interface{}               { return b.idx.GetStats() }
func (b *hgraphBackend) Close() error                                   { return b.idx.Close() }

func toFacadeResults(in []hgraph.Result) []Result {
	out := make([]Result, len(in))
	for i, r := range in {
		out[i] = Result{Label: r.Label, Distance: r.Distance}
	}
	return out
}

// --- SINDI backend ---

type sindiBackend struct {
	idx *sindi.Index
}

func newSindiBackend(p *BuildParams) (backend, error) {
	opts := []sindi.Option{
		sindi.WithName(p.Name),
		sindi.WithTermIDLimit(p.TermIDLimit),
		sindi.WithUseReorder(p.UseReorder),
		sindi.WithDocPruneRatio(p.DocPruneRatio),
		sindi.WithWindowSize(p.WindowSize),
		sindi.WithMemoryLimit(p.MemoryLimit),
	}
	if p.UseQuantization {
		opts = append(opts, sindi.WithQuantization(p.SindiQuantBits))
	}
	cfg, err := sindi.NewConfig(opts...)
	if err != nil {
		return nil, newError(KindInvalidArgument, err.Error(), err)
	}
	idx, err := sindi.New(cfg)
	if err != nil {
		return nil, newError(KindInternal, err.Error(), err)
	}
	return &sindiBackend{idx: idx}, nil
}

func (b *sindiBackend) Build(ctx context.Context, data DataSet) ([]int64, error) {
	return b.idx.Build(ctx, data.Sparse, data.Labels)
}

func (b *sindiBackend) Add(ctx context.Context, data DataSet) ([]int64, error) {
	return b.idx.Add(ctx, data.Sparse, data.Labels)
}

func (b *sindiBackend) Remove(label int64) (bool, error) { return b.idx.Remove(label) }

func (b *sindiBackend) RecoverRemove(label int64) (bool, error) { return b.idx.RecoverRemove(label) }

func (b *sindiBackend) UpdateLabel(old, newLabel int64) error {
	return b.idx.UpdateLabel(old, newLabel)
}

func (b *sindiBackend) UpdateVector(ctx context.Context, label int64, data DataSet, i int) error {
	return b.idx.UpdateVector(label, data.Sparse[i])
}

func (b *sindiBackend) KnnSearch(ctx context.Context, query DataSet, k int, params SearchParams) ([]Result, error) {
	results, err := b.idx.KnnSearch(ctx, query.Sparse[0], k, sindi.SearchParams{
		QueryPruneRatio: params.QueryPruneRatio,
		TermPruneRatio:  params.TermPruneRatio,
		NCandidate:      params.NCandidate,
		Filter:          params.Filter,
	})
	return toSindiFacadeResults(results), err
}

func (b *sindiBackend) RangeSearch(ctx context.Context, query DataSet, radius float32, params SearchParams, limit int) ([]Result, error) {
	results, err := b.idx.RangeSearch(ctx, query.Sparse[0], radius, sindi.SearchParams{
		QueryPruneRatio: params.QueryPruneRatio,
		TermPruneRatio:  params.TermPruneRatio,
		NCandidate:      params.NCandidate,
		Filter:          params.Filter,
	}, limit)
	return toSindiFacadeResults(results), err
}

func (b *sindiBackend) Serialize(w io.Writer) error                    { return b.idx.Serialize(w) }
func (b *sindiBackend) Deserialize(r io.ReaderAt, size int64) error     { return b.idx.Deserialize(r, size) }
func (b *sindiBackend) Size() int                                      { return b.idx.Size() }
func (b *sindiBackend) NumDeleted() int                                { return b.idx.NumDeleted() }
func (b *sindiBackend) GetMemoryUsage() memory.Usage                   { return b.idx.GetMemoryUsage() }
func (b *sindiBackend) GetStats() map[string]interface{}               { return b.idx.GetStats() }
func (b *sindiBackend) Close() error                                   { return b.idx.Close() }

func toSindiFacadeResults(in []sindi.Result) []Result {
	out := make([]Result, len(in))
	for i, r := range in {
		out[i] = Result{Label: r.Label, Distance: r.Distance}
	}
	return out
}
