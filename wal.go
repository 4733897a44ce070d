package annsearch

import (
	"context"
	"fmt"

	"github.com/xDarkicex/annsearch/internal/index/sindi"
	"github.com/xDarkicex/annsearch/internal/storage/wal"
)

// excludeFailed returns a copy of data with every entry whose label appears
// in failed removed, so a batch's WAL entries mirror what the backend
// actually committed rather than the full request.
func excludeFailed(data DataSet, failed []int64) DataSet {
	if len(failed) == 0 {
		return data
	}
	skip := make(map[int64]bool, len(failed))
	for _, l := range failed {
		skip[l] = true
	}
	out := DataSet{Labels: make([]int64, 0, len(data.Labels))}
	if data.Vectors != nil {
		out.Vectors = make([][]float32, 0, len(data.Vectors))
	}
	if data.Sparse != nil {
		out.Sparse = make([]sindi.SparseVector, 0, len(data.Sparse))
	}
	for i, label := range data.Labels {
		if skip[label] {
			continue
		}
		out.Labels = append(out.Labels, label)
		if data.Vectors != nil {
			out.Vectors = append(out.Vectors, data.Vectors[i])
		}
		if data.Sparse != nil {
			out.Sparse = append(out.Sparse, data.Sparse[i])
		}
	}
	return out
}

// logAdd appends one OpAdd entry per item of data, once the backend has
// actually committed it, so a crash mid-batch can be replayed from the log
// on reopen without ever replaying an entry the backend rejected.
func (c *Collection) logAdd(data DataSet) error {
	if c.wal == nil {
		return nil
	}
	n := len(data.Labels)
	for i := 0; i < n; i++ {
		entry := &wal.Entry{Operation: wal.OpAdd, Label: data.Labels[i]}
		if c.params.IndexType == SINDI {
			entry.TermIDs = data.Sparse[i].TermIDs
			entry.Weights = data.Sparse[i].Weights
		} else {
			entry.Vector = data.Vectors[i]
		}
		if err := c.wal.Append(entry); err != nil {
			return fmt.Errorf("annsearch: wal append: %w", err)
		}
	}
	return nil
}

func (c *Collection) logRemove(label int64) error {
	if c.wal == nil {
		return nil
	}
	return c.wal.Append(&wal.Entry{Operation: wal.OpRemove, Label: label})
}

func (c *Collection) logUpdateLabel(old, newLabel int64) error {
	if c.wal == nil {
		return nil
	}
	return c.wal.Append(&wal.Entry{Operation: wal.OpUpdateLabel, Label: old, NewLabel: newLabel})
}

func (c *Collection) logUpdateVector(label int64, data DataSet) error {
	if c.wal == nil {
		return nil
	}
	entry := &wal.Entry{Operation: wal.OpUpdateVector, Label: label}
	if c.params.IndexType == SINDI {
		entry.TermIDs = data.Sparse[0].TermIDs
		entry.Weights = data.Sparse[0].Weights
	} else {
		entry.Vector = data.Vectors[0]
	}
	return c.wal.Append(entry)
}

// replayWAL re-applies every entry already in the log onto a freshly
// constructed, empty backend. Called once from NewCollection when WALPath
// names a log with content from a previous process.
func replayWAL(b backend, indexType IndexType, log *wal.WAL) error {
	entries, err := log.Read()
	if err != nil {
		return fmt.Errorf("annsearch: wal replay: %w", err)
	}
	ctx := context.Background()
	for _, e := range entries {
		switch e.Operation {
		case wal.OpAdd:
			data := DataSet{Labels: []int64{e.Label}}
			if indexType == SINDI {
				data.Sparse = []sindi.SparseVector{{TermIDs: e.TermIDs, Weights: e.Weights}}
			} else {
				data.Vectors = [][]float32{e.Vector}
			}
			if _, err := b.Add(ctx, data); err != nil {
				return fmt.Errorf("annsearch: wal replay add(label=%d): %w", e.Label, err)
			}
		case wal.OpRemove:
			if _, err := b.Remove(e.Label); err != nil {
				return fmt.Errorf("annsearch: wal replay remove(label=%d): %w", e.Label, err)
			}
		case wal.OpUpdateLabel:
			if err := b.UpdateLabel(e.Label, e.NewLabel); err != nil {
				return fmt.Errorf("annsearch: wal replay update-label(%d->%d): %w", e.Label, e.NewLabel, err)
			}
		case wal.OpUpdateVector:
			data := DataSet{}
			if indexType == SINDI {
				data.Sparse = []sindi.SparseVector{{TermIDs: e.TermIDs, Weights: e.Weights}}
			} else {
				data.Vectors = [][]float32{e.Vector}
			}
			if err := b.UpdateVector(ctx, e.Label, data, 0); err != nil {
				return fmt.Errorf("annsearch: wal replay update-vector(label=%d): %w", e.Label, err)
			}
		}
	}
	return nil
}
