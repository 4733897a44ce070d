package hgraph

import (
	"context"

	"github.com/xDarkicex/annsearch/internal/labeltable"
	"github.com/xDarkicex/annsearch/internal/memory"
	"github.com/xDarkicex/annsearch/internal/util"
)

// insertOne implements the §4.2.2 insertion algorithm for one (label,
// vector) pair: greedy single-candidate descent down to the new node's
// level, then ef-construction-width search and heuristic wiring at each
// remaining layer down to 0.
func (idx *Index) insertOne(ctx context.Context, vector []float32, label int64) error {
	idx.refreshMemory()
	if idx.mem.Pressure() == memory.CriticalPressure {
		return ErrOutOfMemory
	}

	existing := idx.labels.GetIdByLabel(label, false)
	if existing != labeltable.NoID && !idx.cfg.AllowDuplicates {
		return ErrDuplicateLabel
	}

	vector = idx.maybeNormalize(vector)

	if idx.cfg.Quantization != nil {
		idx.maybeTrainQuantizer(ctx, vector)
	}

	level := idx.generateLevel()
	id := idx.allocateID(level)
	idx.storeVector(id, vector)
	idx.labels.Insert(id, label)
	if existing != labeltable.NoID && idx.cfg.AllowDuplicates {
		idx.labels.SetDuplicateId(existing, id)
	}

	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	idx.wireNode(vector, id, level)
	return nil
}

// wireNode runs the greedy-descent-then-heuristic-search insertion body,
// shared by fresh inserts and UpdateVector's re-insertion of a replacement
// id. Callers must already hold resizeMu in read mode.
func (idx *Index) wireNode(vector []float32, id uint32, level int) {
	idx.entryMu.RLock()
	ep := idx.entryID
	hasEntry := idx.hasEntry
	lMax := int(idx.maxLevel)
	idx.entryMu.RUnlock()

	if !hasEntry {
		idx.entryMu.Lock()
		if !idx.hasEntry {
			idx.entryID = id
			idx.hasEntry = true
			idx.maxLevel = int32(level)
		}
		idx.entryMu.Unlock()
		return
	}

	curr := ep
	currDist := idx.distanceTo(vector, curr)
	for l := lMax; l > level; l-- {
		curr, currDist = idx.greedyDescend(vector, curr, currDist, l)
	}

	top := level
	if lMax < top {
		top = lMax
	}
	entryPoints := []*util.Candidate{{ID: curr, Distance: currDist}}
	for l := top; l >= 0; l-- {
		candidates := idx.searchLayer(vector, entryPoints, idx.cfg.EfConstruction, l, nil, true, false)
		maxM := idx.cfg.M
		if l == 0 {
			maxM = idx.cfg.maxM0()
		}
		selected := idx.selectNeighborsHeuristic(candidates, maxM)
		idx.connectBidirectional(id, selected, l, maxM)
		if len(selected) > 0 {
			entryPoints = selected
		}
	}

	if level > lMax {
		idx.entryMu.Lock()
		if level > int(idx.maxLevel) {
			idx.entryID = id
			idx.maxLevel = int32(level)
		}
		idx.entryMu.Unlock()
	}
}

// greedyDescend repeatedly jumps to the neighbor of curr (at layer l)
// closest to query until no neighbor improves on currDist, implementing the
// ef=1 candidate search used above the new node's level.
func (idx *Index) greedyDescend(query []float32, curr uint32, currDist float32, l int) (uint32, float32) {
	for {
		n := idx.nodeAt(curr)
		if n == nil {
			return curr, currDist
		}
		changed := false
		for _, neighbor := range n.linksAt(l) {
			d := idx.distanceTo(query, neighbor)
			if d < currDist {
				currDist = d
				curr = neighbor
				changed = true
			}
		}
		if !changed {
			return curr, currDist
		}
	}
}

// maybeTrainQuantizer accumulates flattened vector values until
// quantTrainThreshold is reached, then trains the configured quantizer once
// off that buffer. No corpus is staged ahead of Build, so training happens
// opportunistically off the first several inserted vectors, the same way
// SINDI trains off its first observed term weights.
func (idx *Index) maybeTrainQuantizer(ctx context.Context, vector []float32) {
	if idx.quant.IsTrained() {
		return
	}
	idx.trainMu.Lock()
	defer idx.trainMu.Unlock()
	if idx.quant.IsTrained() {
		return
	}
	idx.trainBuf = append(idx.trainBuf, vector...)
	if len(idx.trainBuf) < quantTrainThreshold {
		return
	}
	if err := idx.quant.Configure(idx.cfg.Quantization); err != nil {
		return
	}
	if err := idx.quant.Train(ctx, idx.trainBuf); err == nil {
		idx.trainBuf = nil
	}
}
