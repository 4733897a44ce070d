package hgraph

import (
	"context"

	"github.com/xDarkicex/annsearch/internal/labeltable"
)

// Remove soft-deletes label: sets its tombstone bit. Idempotent; reports
// whether a state change actually occurred. Neighbors keep pointing at the
// tombstoned node (§4.2.4) so graph connectivity through it is preserved,
// rather than hard-deleting and reconnecting neighbors.
func (idx *Index) Remove(label int64) (bool, error) {
	id := idx.labels.GetIdByLabel(label, false)
	if id == labeltable.NoID {
		return false, nil
	}
	return idx.labels.MarkRemove([]uint32{id}) > 0, nil
}

// RecoverRemove clears a label's tombstone bit, restoring it to search
// results.
func (idx *Index) RecoverRemove(label int64) (bool, error) {
	id := idx.labels.GetIdByLabel(label, true)
	if id == labeltable.NoID {
		return false, ErrNotFound
	}
	return idx.labels.RecoverRemove(id), nil
}

// UpdateLabel atomically renames old to new. Fails if new is already held
// by a different id, live or tombstoned.
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

// UpdateVector replaces the stored vector for label and re-wires adjacency
// by allocating a fresh internal id, re-inserting it, rewiring old
// neighbors to point at the replacement, and tombstoning the original
// (§4.2.4).
func (idx *Index) UpdateVector(ctx context.Context, label int64, newVector []float32) error {
	if len(newVector) != idx.cfg.Dimension {
		return ErrDimensionMismatch
	}
	oldID := idx.labels.GetIdByLabel(label, false)
	if oldID == labeltable.NoID {
		return ErrNotFound
	}
	newVector = idx.maybeNormalize(newVector)

	level := idx.generateLevel()
	newID := idx.allocateID(level)
	idx.storeVector(newID, newVector)
	idx.labels.Insert(newID, label)

	idx.resizeMu.RLock()
	idx.wireNode(newVector, newID, level)
	idx.rewireReplacement(oldID, newID)
	idx.resizeMu.RUnlock()

	idx.labels.Repoint(label, newID)
	idx.labels.MarkRemove([]uint32{oldID})
	return nil
}

// rewireReplacement copies oldID's adjacency at every level onto newID and
// repoints oldID's neighbors to newID, so callers still holding edges into
// oldID reach the replacement instead of a tombstone. Caller must hold
// resizeMu in read mode.
func (idx *Index) rewireReplacement(oldID, newID uint32) {
	oldNode := idx.nodeAt(oldID)
	newNodePtr := idx.nodeAt(newID)
	if oldNode == nil || newNodePtr == nil {
		return
	}
	top := oldNode.topLevel()
	if newNodePtr.topLevel() < top {
		top = newNodePtr.topLevel()
	}
	for l := 0; l <= top; l++ {
		for _, neighborID := range oldNode.linksAt(l) {
			if neighborID == newID {
				continue
			}
			neighbor := idx.nodeAt(neighborID)
			if neighbor == nil || l > neighbor.topLevel() {
				continue
			}
			neighbor.replaceLink(l, oldID, newID)
			newNodePtr.addLink(l, neighborID)
		}
	}
}
