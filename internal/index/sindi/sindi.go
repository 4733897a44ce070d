package sindi

import (
	"context"
	"fmt"
	"sync"

	"github.com/xDarkicex/annsearch/internal/labeltable"
	"github.com/xDarkicex/annsearch/internal/memory"
	"github.com/xDarkicex/annsearch/internal/obs"
	"github.com/xDarkicex/annsearch/internal/quant"
)

// SparseVector is one document: parallel term-id/weight arrays. Callers
// don't need to pre-sort; insertion sorts by decreasing weight itself (§4.3.2).
type SparseVector struct {
	TermIDs []uint32
	Weights []float32
}

// Result is one k-NN/range hit.
type Result struct {
	Label    int64
	Distance float32
}

// postingList is one term's entry: parallel id/weight arrays extended (but
// never shrunk in place) on every document that retains the term after
// pruning.
type postingList struct {
	mu       sync.RWMutex
	ids      []uint32
	weights  []float32
	qweights []byte
}

func (pl *postingList) size() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return len(pl.ids)
}

func (pl *postingList) append(id uint32, weight float32, qweight byte, quantized bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.ids = append(pl.ids, id)
	pl.weights = append(pl.weights, weight)
	if quantized {
		pl.qweights = append(pl.qweights, qweight)
	}
}

// snapshot returns copies of id/weight (and quantized weight, if any) for
// lock-free scanning during search.
func (pl *postingList) snapshot() ([]uint32, []float32, []byte) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	ids := append([]uint32(nil), pl.ids...)
	weights := append([]float32(nil), pl.weights...)
	var q []byte
	if pl.qweights != nil {
		q = append([]byte(nil), pl.qweights...)
	}
	return ids, weights, q
}

// Index is a concurrent SINDI instance: one posting list per term id,
// lazily created on first write, plus the label table shared with HGraph's
// vocabulary of labels/tombstones/duplicate chains.
type Index struct {
	cfg *Config

	mu    sync.RWMutex // guards lazy creation of entries in terms
	terms []*postingList

	labels  *labeltable.Table
	nextID  uint32
	idMu    sync.Mutex

	quant        quant.Quantizer
	quantCfg     *quant.Config
	trainMu      sync.Mutex
	trainBuf     []float32

	metrics      *obs.Metrics
	knnLatency   *obs.RollingAverage
	rangeLatency *obs.RollingAverage
	mem          *memory.Accountant

	built bool
}

// New constructs an empty index from cfg.
func New(cfg *Config) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("sindi: %w", err)
	}
	idx := &Index{
		cfg:          cfg,
		terms:        make([]*postingList, cfg.TermIDLimit),
		labels:       labeltable.New(),
		metrics:      obs.NewMetrics(),
		knnLatency:   obs.NewRollingAverage(20),
		rangeLatency: obs.NewRollingAverage(20),
		mem:          memory.NewAccountant(),
	}
	if cfg.MemoryLimit > 0 {
		idx.mem.SetLimit(cfg.MemoryLimit)
	}
	if cfg.UseQuantization {
		idx.quantCfg = &quant.Config{Bits: cfg.QuantBits, TrainRatio: 0.1}
		q, err := (&quant.ScalarFactory{}).Create(idx.quantCfg)
		if err != nil {
			return nil, fmt.Errorf("sindi: configure quantizer: %w", err)
		}
		idx.quant = q
	}
	return idx, nil
}

func (idx *Index) name() string {
	if idx.cfg.Name != "" {
		return idx.cfg.Name
	}
	return "sindi"
}

// termAt returns (creating if necessary) the posting list for term t.
func (idx *Index) termAt(t uint32) *postingList {
	idx.mu.RLock()
	pl := idx.terms[t]
	idx.mu.RUnlock()
	if pl != nil {
		return pl
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.terms[t] == nil {
		idx.terms[t] = &postingList{}
	}
	return idx.terms[t]
}

// allocateID assigns the next internal id for a newly inserted document.
func (idx *Index) allocateID() uint32 {
	idx.idMu.Lock()
	defer idx.idMu.Unlock()
	id := idx.nextID
	idx.nextID++
	return id
}

// Build bulk-loads vectors/labels into an empty index; fails if non-empty.
func (idx *Index) Build(ctx context.Context, vectors []SparseVector, labels []int64) ([]int64, error) {
	if idx.built || idx.nextID > 0 {
		return nil, ErrAlreadyBuilt
	}
	idx.built = true
	return idx.insertBatch(ctx, vectors, labels)
}

// Add inserts into a built index.
func (idx *Index) Add(ctx context.Context, vectors []SparseVector, labels []int64) ([]int64, error) {
	idx.built = true
	return idx.insertBatch(ctx, vectors, labels)
}

// Size returns the number of ids ever allocated, live or tombstoned.
func (idx *Index) Size() int {
	idx.idMu.Lock()
	defer idx.idMu.Unlock()
	return int(idx.nextID)
}

func (idx *Index) NumDeleted() int { return idx.labels.NumDead() }

// Remove soft-deletes label.
func (idx *Index) Remove(label int64) (bool, error) {
	id := idx.labels.GetIdByLabel(label, false)
	if id == labeltable.NoID {
		return false, nil
	}
	return idx.labels.MarkRemove([]uint32{id}) > 0, nil
}

// RecoverRemove clears label's tombstone bit.
func (idx *Index) RecoverRemove(label int64) (bool, error) {
	id := idx.labels.GetIdByLabel(label, true)
	if id == labeltable.NoID {
		return false, ErrNotFound
	}
	return idx.labels.RecoverRemove(id), nil
}

// UpdateLabel atomically renames old to new.
func (idx *Index) UpdateLabel(old, newLabel int64) error {
	id := idx.labels.GetIdByLabel(old, false)
	if id == labeltable.NoID {
		return ErrNotFound
	}
	if err := idx.labels.UpdateLabel(id, newLabel); err != nil {
		return ErrLabelLive
	}
	return nil
}

// refreshMemory updates the accountant's per-component figures from the
// index's current state, so GetMemoryUsage/GetStats and insert-time
// pressure checks see up-to-date numbers.
func (idx *Index) refreshMemory() {
	var postingBytes int64
	idx.mu.RLock()
	for _, pl := range idx.terms {
		if pl == nil {
			continue
		}
		pl.mu.RLock()
		postingBytes += int64(len(pl.ids))*4 + int64(len(pl.weights))*4 + int64(len(pl.qweights))
		pl.mu.RUnlock()
	}
	idx.mu.RUnlock()
	idx.mem.Set("postings", postingBytes)
	if idx.quant != nil {
		idx.mem.Set("quantized", idx.quant.MemoryUsage())
	}
}

// GetMemoryUsage reports the current footprint snapshot.
func (idx *Index) GetMemoryUsage() memory.Usage {
	idx.refreshMemory()
	return idx.mem.GetUsage()
}

// GetStats returns the §6.4 statistics map for this index.
func (idx *Index) GetStats() map[string]interface{} {
	usage := idx.GetMemoryUsage()
	return map[string]interface{}{
		"index_name":           idx.name(),
		"data_num":             idx.Size() - idx.NumDeleted(),
		"memory":               usage.Total,
		"knn_latency_avg_ms":   idx.knnLatency.Mean(),
		"range_latency_avg_ms": idx.rangeLatency.Mean(),
	}
}

// Close releases the index's storage. Further use is undefined.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.terms = nil
	return nil
}
