package annsearch

import (
	"fmt"

	"github.com/xDarkicex/annsearch/internal/filter"
)

// BuildParams configures a new Collection (§6.2's build_params table,
// flattened into a single struct per-collection), constructed via the
// functional-options pattern (WithDimension/WithMetric/...).
type BuildParams struct {
	Name      string
	IndexType IndexType
	Dimension int
	Metric    DistanceMetric

	// hnsw.* (HGraph only)
	MaxDegree        int
	EfConstruction   int
	UseReversedEdges bool
	UseStatic        bool
	MaxElements      int
	AllowDuplicates  bool
	Seed             int64
	QuantizeVectors  bool
	QuantBits        int

	// sindi.* (SINDI only)
	UseReorder      bool
	TermIDLimit     int
	DocPruneRatio   float64
	WindowSize      int
	UseQuantization bool
	SindiQuantBits  int

	MemoryLimit int64

	// WALPath, if set, places a write-ahead log in front of every mutating
	// call (Add/Remove/UpdateLabel/UpdateVector). An existing log at this
	// path is replayed into the freshly constructed backend before
	// NewCollection returns.
	WALPath string
}

type BuildOption func(*BuildParams) error

func WithName(name string) BuildOption {
	return func(p *BuildParams) error { p.Name = name; return nil }
}

func WithIndexType(t IndexType) BuildOption {
	return func(p *BuildParams) error { p.IndexType = t; return nil }
}

func WithDimension(dim int) BuildOption {
	return func(p *BuildParams) error {
		if dim <= 0 {
			return fmt.Errorf("dimension must be positive, got %d", dim)
		}
		p.Dimension = dim
		return nil
	}
}

func WithMetric(m DistanceMetric) BuildOption {
	return func(p *BuildParams) error { p.Metric = m; return nil }
}

func WithMaxDegree(m int) BuildOption {
	return func(p *BuildParams) error { p.MaxDegree = m; return nil }
}

func WithEfConstruction(ef int) BuildOption {
	return func(p *BuildParams) error { p.EfConstruction = ef; return nil }
}

func WithUseReversedEdges(use bool) BuildOption {
	return func(p *BuildParams) error { p.UseReversedEdges = use; return nil }
}

func WithUseStatic(use bool) BuildOption {
	return func(p *BuildParams) error { p.UseStatic = use; return nil }
}

func WithMaxElements(n int) BuildOption {
	return func(p *BuildParams) error { p.MaxElements = n; return nil }
}

func WithAllowDuplicates(allow bool) BuildOption {
	return func(p *BuildParams) error { p.AllowDuplicates = allow; return nil }
}

func WithSeed(seed int64) BuildOption {
	return func(p *BuildParams) error { p.Seed = seed; return nil }
}

func WithVectorQuantization(bits int) BuildOption {
	return func(p *BuildParams) error { p.QuantizeVectors = true; p.QuantBits = bits; return nil }
}

func WithUseReorder(use bool) BuildOption {
	return func(p *BuildParams) error { p.UseReorder = use; return nil }
}

func WithTermIDLimit(limit int) BuildOption {
	return func(p *BuildParams) error { p.TermIDLimit = limit; return nil }
}

func WithDocPruneRatio(ratio float64) BuildOption {
	return func(p *BuildParams) error { p.DocPruneRatio = ratio; return nil }
}

func WithWindowSize(n int) BuildOption {
	return func(p *BuildParams) error { p.WindowSize = n; return nil }
}

func WithTermQuantization(bits int) BuildOption {
	return func(p *BuildParams) error { p.UseQuantization = true; p.SindiQuantBits = bits; return nil }
}

func WithMemoryLimit(bytes int64) BuildOption {
	return func(p *BuildParams) error { p.MemoryLimit = bytes; return nil }
}

// WithWAL enables write-ahead logging of mutating calls to path, replaying
// any entries already there before the collection becomes usable.
func WithWAL(path string) BuildOption {
	return func(p *BuildParams) error { p.WALPath = path; return nil }
}

func defaultBuildParams() *BuildParams {
	return &BuildParams{
		IndexType:      HGraph,
		Dimension:      128,
		Metric:         L2Distance,
		MaxDegree:      16,
		EfConstruction: 200,
		MaxElements:    1000,
		TermIDLimit:    1_000_000,
		UseReorder:     true,
		WindowSize:     60_000,
	}
}

func newBuildParams(opts ...BuildOption) (*BuildParams, error) {
	p := defaultBuildParams()
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, newError(KindInvalidArgument, err.Error(), err)
		}
	}
	return p, nil
}

// SearchParams configures a single KnnSearch/RangeSearch call across either
// index type (§6.2's search_params table).
type SearchParams struct {
	EfSearch        int // HGraph only
	QueryPruneRatio float64
	TermPruneRatio  float64
	NCandidate      int
	Filter          filter.Filter
	Iterator        *Iterator
}
