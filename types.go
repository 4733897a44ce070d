package annsearch

import (
	"time"

	"github.com/xDarkicex/annsearch/internal/index/sindi"
)

// IndexType selects which index core a Collection is backed by.
type IndexType int

const (
	HGraph IndexType = iota
	SINDI
)

func (it IndexType) String() string {
	switch it {
	case HGraph:
		return "hgraph"
	case SINDI:
		return "sindi"
	default:
		return "unknown"
	}
}

// DistanceMetric mirrors util.Metric at the facade boundary so callers
// don't need to import internal packages.
type DistanceMetric int

const (
	L2Distance DistanceMetric = iota
	InnerProduct
	CosineDistance
)

// DataSet is one batch of (vector, label) pairs. For a dense (HGraph)
// collection, use Vectors; for a sparse (SINDI) collection, use Sparse.
// Labels must be the same length as whichever vector slice is populated.
type DataSet struct {
	Vectors [][]float32
	Sparse  []sindi.SparseVector
	Labels  []int64
}

// Result is a single k-NN/range hit, ordered by increasing Distance.
type Result struct {
	Label    int64
	Distance float32
}

// CollectionStats is a snapshot of a collection's identity and size,
// narrowed to what HGraph/SINDI actually expose.
type CollectionStats struct {
	Name        string    `json:"name"`
	IndexType   string    `json:"index_type"`
	VectorCount int       `json:"vector_count"`
	Dimension   int       `json:"dimension,omitempty"`
	MemoryUsage int64     `json:"memory_usage"`
	Timestamp   time.Time `json:"timestamp"`
}
