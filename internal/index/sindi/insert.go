package sindi

import (
	"context"
	"sort"

	"github.com/xDarkicex/annsearch/internal/labeltable"
	"github.com/xDarkicex/annsearch/internal/memory"
)

const quantTrainThreshold = 256

// insertBatch inserts every (vector, label) pair, returning the labels that
// failed (duplicate live label, or a term id outside TermIDLimit) without
// aborting the rest of the batch. A memory-pressure failure is the
// exception: it aborts the remaining batch immediately and is returned as
// an error rather than folded into the failed-labels list.
func (idx *Index) insertBatch(ctx context.Context, vectors []SparseVector, labels []int64) ([]int64, error) {
	if len(vectors) != len(labels) {
		return nil, ErrDuplicateLabel
	}
	var failed []int64
	for i, v := range vectors {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		if err := idx.insertOne(v, labels[i]); err != nil {
			if err == ErrOutOfMemory {
				return failed, err
			}
			failed = append(failed, labels[i])
		}
	}
	return failed, nil
}

// insertOne implements §4.3.2: sort terms by decreasing weight, prune to the
// smallest decreasing-weight prefix whose cumulative mass meets
// docRetainRatio, then append the surviving (id, weight) pairs onto each
// term's posting list.
func (idx *Index) insertOne(vector SparseVector, label int64) error {
	idx.refreshMemory()
	if idx.mem.Pressure() == memory.CriticalPressure {
		return ErrOutOfMemory
	}

	if existing := idx.labels.GetIdByLabel(label, false); existing != labeltable.NoID {
		return ErrDuplicateLabel
	}
	for _, t := range vector.TermIDs {
		if int(t) >= idx.cfg.TermIDLimit {
			return ErrTermOutOfRange
		}
	}

	pairs := sortedByWeightDesc(vector.TermIDs, vector.Weights)
	retained := pruneByMass(pairs, idx.cfg.docRetainRatio())

	id := idx.allocateID()
	if prev := idx.labels.GetIdByLabel(label, true); prev != labeltable.NoID {
		idx.labels.SetDuplicateId(prev, id)
	}
	idx.labels.Insert(id, label)

	idx.maybeTrainQuantizer(retained)

	for _, p := range retained {
		var qw byte
		quantized := idx.quant != nil && idx.quant.IsTrained()
		if quantized {
			qw = idx.quant.EncodeOne(p.weight)
		}
		idx.termAt(p.term).append(id, p.weight, qw, quantized)
	}
	return nil
}

type termWeight struct {
	term   uint32
	weight float32
}

// sortedByWeightDesc pairs term ids with weights and returns them sorted by
// decreasing weight, ties broken by term id for determinism.
func sortedByWeightDesc(termIDs []uint32, weights []float32) []termWeight {
	pairs := make([]termWeight, len(termIDs))
	for i := range termIDs {
		pairs[i] = termWeight{term: termIDs[i], weight: weights[i]}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].weight != pairs[j].weight {
			return pairs[i].weight > pairs[j].weight
		}
		return pairs[i].term < pairs[j].term
	})
	return pairs
}

// pruneByMass keeps the smallest prefix of pairs (already sorted by
// decreasing weight) whose cumulative weight reaches retainRatio of the
// document's total weight mass. retainRatio >= 1 keeps everything.
func pruneByMass(pairs []termWeight, retainRatio float64) []termWeight {
	if retainRatio >= 1 || len(pairs) == 0 {
		return pairs
	}
	var total float64
	for _, p := range pairs {
		total += float64(p.weight)
	}
	if total <= 0 {
		return pairs
	}
	target := total * retainRatio
	var cum float64
	for i, p := range pairs {
		cum += float64(p.weight)
		if cum >= target {
			return pairs[:i+1]
		}
	}
	return pairs
}

// maybeTrainQuantizer accumulates observed weights until quantTrainThreshold
// values are available, then trains the quantizer once so its min/diff
// range reflects the distribution of term weights actually seen, mirroring
// hgraph's opportunistic-training approach.
func (idx *Index) maybeTrainQuantizer(retained []termWeight) {
	if idx.quant == nil || idx.quant.IsTrained() {
		return
	}
	idx.trainMu.Lock()
	defer idx.trainMu.Unlock()
	if idx.quant.IsTrained() {
		return
	}
	for _, p := range retained {
		idx.trainBuf = append(idx.trainBuf, p.weight)
	}
	if len(idx.trainBuf) < quantTrainThreshold {
		return
	}
	if err := idx.quant.Configure(idx.quantCfg); err != nil {
		return
	}
	_ = idx.quant.Train(context.Background(), idx.trainBuf)
	idx.trainBuf = nil
}
