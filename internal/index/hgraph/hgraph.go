// Package hgraph implements the hierarchical navigable small-world graph
// index: incremental insertion, tombstone-based soft delete, label renaming,
// concurrent search, and serialization. A label-keyed, filterable,
// quantization-aware index built from the shared building blocks in
// internal/{alloc,blockstore,visited,labeltable,quant,filter,framing,obs,
// memory}.
package hgraph

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/xDarkicex/annsearch/internal/blockstore"
	"github.com/xDarkicex/annsearch/internal/filter"
	"github.com/xDarkicex/annsearch/internal/labeltable"
	"github.com/xDarkicex/annsearch/internal/memory"
	"github.com/xDarkicex/annsearch/internal/obs"
	"github.com/xDarkicex/annsearch/internal/quant"
	"github.com/xDarkicex/annsearch/internal/util"
	"github.com/xDarkicex/annsearch/internal/visited"
)

// Result is one k-NN/range hit.
type Result struct {
	Label    int64
	Distance float32
}

// SearchParams configures a single KnnSearch/RangeSearch call (§6.2's
// search_params, narrowed to what HGraph consumes).
type SearchParams struct {
	EfSearch          int
	Filter            filter.Filter
	IncludeTombstones bool
	Iterator          *Iterator
}

// Index is a concurrent HGraph instance. The lock set mirrors §4.2.2/§5
// directly: a resize lock held in read mode by every mutator and search and
// in write mode only by growth, an entry-pointer lock held briefly on
// promotion, per-node locks (node.go), and the label table's own internal
// locking.
type Index struct {
	cfg       *Config
	dist      util.DistanceFunc
	normalize bool // cosine metric: unit-normalize every vector at insert/query time

	resizeMu sync.RWMutex // shared by all ops; exclusive during growLocked, Close and Deserialize
	nodesMu  sync.Mutex   // serializes id allocation and nodes-slice growth
	nodes    []*node
	count    int32 // ids allocated so far, live or tombstoned

	vectors  *blockstore.Store // raw float32 vectors, one slot per id
	quantVec *blockstore.Store // optional quantized bytes, one slot per id
	quant    quant.Quantizer

	entryMu    sync.RWMutex
	entryID    uint32
	hasEntry   bool
	maxLevel   int32

	labels  *labeltable.Table
	visited *visited.Pool

	levelMu sync.Mutex
	rng     *rand.Rand

	metrics      *obs.Metrics
	knnLatency   *obs.RollingAverage
	rangeLatency *obs.RollingAverage
	mem          *memory.Accountant

	trainMu  sync.Mutex
	trainBuf []float32 // flattened training samples, quantizer.Train consumes the whole stream

	built bool
}

// quantTrainThreshold is the number of observed vector values collected
// before an untrained quantizer is trained, giving Train's TrainRatio
// sampling step a meaningfully sized stream to walk.
const quantTrainThreshold = 256

// New constructs an empty index from cfg.
func New(cfg *Config) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("hgraph: %w", err)
	}
	dist, err := util.GetDistanceFunc(cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("hgraph: %w", err)
	}

	initialCap := cfg.MaxElements
	if initialCap < 1 {
		initialCap = 1
	}

	idx := &Index{
		cfg:          cfg,
		dist:         dist,
		normalize:    util.NormalizesVectors(cfg.Metric),
		nodes:        make([]*node, initialCap),
		entryID:      labeltable.NoID,
		vectors:      blockstore.New(nil, cfg.Dimension*4, cfg.BlockCap),
		labels:       labeltable.New(),
		visited:      visited.NewPool(2, initialCap),
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		metrics:      obs.NewMetrics(),
		knnLatency:   obs.NewRollingAverage(20),
		rangeLatency: obs.NewRollingAverage(20),
		mem:          memory.NewAccountant(),
	}
	if cfg.MemoryLimit > 0 {
		idx.mem.SetLimit(cfg.MemoryLimit)
	}
	if cfg.Quantization != nil {
		q, err := (&quant.ScalarFactory{}).Create(cfg.Quantization)
		if err != nil {
			return nil, fmt.Errorf("hgraph: configure quantizer: %w", err)
		}
		idx.quant = q
		idx.quantVec = blockstore.New(nil, cfg.Dimension, cfg.BlockCap)
	}
	return idx, nil
}

func (idx *Index) name() string {
	if idx.cfg.Name != "" {
		return idx.cfg.Name
	}
	return "hgraph"
}

// Build bulk-loads vectors/labels into an empty index. Per §4.2.1 it fails
// if called on a non-empty index.
func (idx *Index) Build(ctx context.Context, vectors [][]float32, labels []int64) ([]int64, error) {
	if idx.built || idx.count > 0 {
		return nil, ErrAlreadyBuilt
	}
	idx.built = true
	return idx.insertBatch(ctx, vectors, labels)
}

// Add inserts into a built index.
func (idx *Index) Add(ctx context.Context, vectors [][]float32, labels []int64) ([]int64, error) {
	if idx.cfg.UseStatic && idx.built {
		return nil, ErrStatic
	}
	idx.built = true
	return idx.insertBatch(ctx, vectors, labels)
}

func (idx *Index) insertBatch(ctx context.Context, vectors [][]float32, labels []int64) ([]int64, error) {
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("hgraph: vectors and labels must have equal length")
	}
	var failed []int64
	for i, v := range vectors {
		select {
		case <-ctx.Done():
			return failed, ctx.Err()
		default:
		}
		if len(v) != idx.cfg.Dimension {
			failed = append(failed, labels[i])
			continue
		}
		if err := idx.insertOne(ctx, v, labels[i]); err != nil {
			if err == ErrOutOfMemory {
				return failed, err
			}
			failed = append(failed, labels[i])
			continue
		}
		idx.metrics.Inserts.WithLabelValues(idx.name()).Inc()
	}
	return failed, nil
}

// Size returns the number of ids ever allocated, live or tombstoned.
func (idx *Index) Size() int {
	idx.nodesMu.Lock()
	defer idx.nodesMu.Unlock()
	return int(idx.count)
}

// NumDeleted returns the number of currently tombstoned ids.
func (idx *Index) NumDeleted() int {
	return idx.labels.NumDead()
}

// refreshMemory updates the accountant's per-component figures from the
// index's current state, so GetMemoryUsage/GetStats and insert-time
// pressure checks see up-to-date numbers.
func (idx *Index) refreshMemory() {
	idx.mem.Set("nodes", int64(idx.Size())*64)
	idx.mem.Set("vectors", idx.vectors.MemoryUsage())
	if idx.quantVec != nil {
		idx.mem.Set("quantized", idx.quantVec.MemoryUsage())
	}
}

// GetMemoryUsage returns the current footprint snapshot.
func (idx *Index) GetMemoryUsage() memory.Usage {
	idx.refreshMemory()
	return idx.mem.GetUsage()
}

// GetStats returns the §6.4 statistics map for this index.
func (idx *Index) GetStats() map[string]interface{} {
	usage := idx.GetMemoryUsage()
	return map[string]interface{}{
		"index_name":         idx.name(),
		"data_num":           idx.Size() - idx.NumDeleted(),
		"memory":             usage.Total,
		"knn_latency_avg_ms": idx.knnLatency.Mean(),
		"range_latency_avg_ms": idx.rangeLatency.Mean(),
	}
}

// Close releases the index's storage. Further use is undefined.
func (idx *Index) Close() error {
	idx.resizeMu.Lock()
	defer idx.resizeMu.Unlock()
	idx.nodes = nil
	idx.vectors.Reset()
	if idx.quantVec != nil {
		idx.quantVec.Reset()
	}
	idx.hasEntry = false
	return nil
}

// growLocked doubles node-storage capacity. Callers must hold nodesMu; it
// additionally takes resizeMu in write mode so concurrent readers/mutators
// (who hold it in read mode for their whole operation) block until the copy
// completes, matching §4.2.5.
func (idx *Index) growLocked() {
	idx.resizeMu.Lock()
	defer idx.resizeMu.Unlock()
	newCap := len(idx.nodes) * 2
	if newCap == 0 {
		newCap = 1
	}
	grown := make([]*node, newCap)
	copy(grown, idx.nodes)
	idx.nodes = grown
	idx.visited.Grow(newCap)
}

// allocateID reserves the next internal id, growing storage if needed, and
// reserves the matching vector/quantized-vector slots so id indexes all
// three in lockstep.
func (idx *Index) allocateID(level int) uint32 {
	idx.nodesMu.Lock()
	defer idx.nodesMu.Unlock()
	if int(idx.count) >= len(idx.nodes) {
		idx.growLocked()
	}
	id := uint32(idx.count)
	idx.nodes[id] = newNode(level)
	idx.count++
	idx.vectors.Append()
	if idx.quantVec != nil {
		idx.quantVec.Append()
	}
	return id
}

func (idx *Index) nodeAt(id uint32) *node {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()
	if int(id) >= len(idx.nodes) {
		return nil
	}
	return idx.nodes[id]
}

// storeVector writes v's raw bytes into slot id, and, if quantization is
// configured and trained, also writes the quantized byte representation.
func (idx *Index) storeVector(id uint32, v []float32) {
	slot := idx.vectors.Get(int(id))
	for i, f := range v {
		binary.LittleEndian.PutUint32(slot[i*4:i*4+4], math.Float32bits(f))
	}
	if idx.quant != nil && idx.quant.IsTrained() {
		copy(idx.quantVec.Get(int(id)), idx.quant.Compress(v))
	}
}

// vectorAt decodes the raw stored vector for id.
func (idx *Index) vectorAt(id uint32) []float32 {
	slot := idx.vectors.Get(int(id))
	out := make([]float32, idx.cfg.Dimension)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(slot[i*4 : i*4+4]))
	}
	return out
}

// distanceTo computes the distance from query to the vector at id, using
// the quantized representation when trained (decompressing on the fly)
// and falling back to the raw vector otherwise.
func (idx *Index) distanceTo(query []float32, id uint32) float32 {
	if idx.quant != nil && idx.quant.IsTrained() {
		bytes := idx.quantVec.Get(int(id))
		decoded := idx.quant.Decompress(bytes, idx.cfg.Dimension)
		return idx.dist(query, decoded)
	}
	return idx.dist(query, idx.vectorAt(id))
}

// maybeNormalize unit-normalizes v when the index's metric requires it
// (cosine), leaving v untouched for every other metric. Normalization lives
// here, at the index boundary, rather than inside the distance kernel: both
// the stored vector and every query must go through it so IP computed
// between two normalized vectors is a true cosine distance.
func (idx *Index) maybeNormalize(v []float32) []float32 {
	if !idx.normalize {
		return v
	}
	return util.Normalize(v)
}

// generateLevel draws a random layer via the standard geometric
// distribution with factor mL = 1/ln(M) (§3), capped to keep pathological
// tall towers bounded.
func (idx *Index) generateLevel() int {
	idx.levelMu.Lock()
	defer idx.levelMu.Unlock()
	level := int(math.Floor(-math.Log(idx.rng.Float64()) * idx.cfg.levelFactor()))
	if level > 16 {
		level = 16
	}
	return level
}
