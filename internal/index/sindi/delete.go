package sindi

import "github.com/xDarkicex/annsearch/internal/labeltable"

// UpdateVector replaces label's document: the old id is tombstoned and a
// fresh id is allocated and inserted with newVector's terms, then the
// label's reverse-map entry is repointed onto it (mirrors hgraph's
// UpdateVector, simplified since SINDI has no adjacency to rewire).
func (idx *Index) UpdateVector(label int64, newVector SparseVector) error {
	oldID := idx.labels.GetIdByLabel(label, false)
	if oldID == labeltable.NoID {
		return ErrNotFound
	}
	for _, t := range newVector.TermIDs {
		if int(t) >= idx.cfg.TermIDLimit {
			return ErrTermOutOfRange
		}
	}

	pairs := sortedByWeightDesc(newVector.TermIDs, newVector.Weights)
	retained := pruneByMass(pairs, idx.cfg.docRetainRatio())

	newID := idx.allocateID()
	idx.maybeTrainQuantizer(retained)
	for _, p := range retained {
		var qw byte
		quantized := idx.quant != nil && idx.quant.IsTrained()
		if quantized {
			qw = idx.quant.EncodeOne(p.weight)
		}
		idx.termAt(p.term).append(newID, p.weight, qw, quantized)
	}

	idx.labels.Insert(newID, label)
	idx.labels.Repoint(label, newID)
	idx.labels.MarkRemove([]uint32{oldID})
	return nil
}
