package annsearch

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/xDarkicex/annsearch/internal/storage/wal"
)

// Collection wraps a single named index (HGraph or SINDI) behind the
// shared §6.1 contract: the user-facing handle over one backend index.
type Collection struct {
	mu      sync.RWMutex
	name    string
	params  *BuildParams
	backend backend
	wal     *wal.WAL
	closed  bool
}

// NewCollection constructs a standalone Collection. If WithWAL named a
// path, any entries already logged there (from a previous process) are
// replayed into the backend before the collection is returned.
func NewCollection(opts ...BuildOption) (*Collection, error) {
	params, err := newBuildParams(opts...)
	if err != nil {
		return nil, err
	}
	b, err := newBackend(params)
	if err != nil {
		return nil, err
	}
	c := &Collection{name: params.Name, params: params, backend: b}
	if params.WALPath != "" {
		log, err := wal.New(params.WALPath)
		if err != nil {
			return nil, newError(KindInternal, "opening write-ahead log", err)
		}
		if err := replayWAL(b, params.IndexType, log); err != nil {
			log.Close()
			return nil, newError(KindInternal, "replaying write-ahead log", err)
		}
		c.wal = log
	}
	return c, nil
}

// Build bulk-loads data into an empty collection, returning the labels
// that failed to insert (duplicate label, out-of-range term id, etc.)
// without aborting the rest of the batch (§7 propagation policy).
func (c *Collection) Build(ctx context.Context, data DataSet) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCollectionClosed
	}
	failed, err := c.backend.Build(ctx, data)
	if err != nil {
		return failed, translateErr(err)
	}
	if err := c.logAdd(excludeFailed(data, failed)); err != nil {
		return failed, newError(KindInternal, err.Error(), err)
	}
	return failed, nil
}

// Add inserts into a collection that may already hold data.
func (c *Collection) Add(ctx context.Context, data DataSet) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCollectionClosed
	}
	failed, err := c.backend.Add(ctx, data)
	if err != nil {
		return failed, translateErr(err)
	}
	if err := c.logAdd(excludeFailed(data, failed)); err != nil {
		return failed, newError(KindInternal, err.Error(), err)
	}
	return failed, nil
}

// Remove soft-deletes label.
func (c *Collection) Remove(label int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrCollectionClosed
	}
	changed, err := c.backend.Remove(label)
	if err != nil || !changed {
		return changed, err
	}
	if err := c.logRemove(label); err != nil {
		return changed, newError(KindInternal, err.Error(), err)
	}
	return changed, nil
}

// RecoverRemove clears label's tombstone bit.
func (c *Collection) RecoverRemove(label int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrCollectionClosed
	}
	return c.backend.RecoverRemove(label)
}

// UpdateLabel atomically renames old to new.
func (c *Collection) UpdateLabel(old, newLabel int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCollectionClosed
	}
	if err := c.backend.UpdateLabel(old, newLabel); err != nil {
		return err
	}
	if err := c.logUpdateLabel(old, newLabel); err != nil {
		return newError(KindInternal, err.Error(), err)
	}
	return nil
}

// UpdateVector replaces the stored vector/document for label. data must
// hold exactly one entry at index 0 (Vectors[0] for HGraph, Sparse[0] for
// SINDI).
func (c *Collection) UpdateVector(ctx context.Context, label int64, data DataSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCollectionClosed
	}
	if err := c.backend.UpdateVector(ctx, label, data, 0); err != nil {
		return err
	}
	if err := c.logUpdateVector(label, data); err != nil {
		return newError(KindInternal, err.Error(), err)
	}
	return nil
}

// KnnSearch returns at most k results ordered by increasing distance.
// query must hold exactly one entry (Vectors[0] or Sparse[0]).
func (c *Collection) KnnSearch(ctx context.Context, query DataSet, k int, params SearchParams) ([]Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrCollectionClosed
	}
	return c.backend.KnnSearch(ctx, query, k, params)
}

// RangeSearch returns every result within radius, capped at limit if
// positive.
func (c *Collection) RangeSearch(ctx context.Context, query DataSet, radius float32, params SearchParams, limit int) ([]Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrCollectionClosed
	}
	return c.backend.RangeSearch(ctx, query, radius, params, limit)
}

// Serialize writes the collection's index to w.
func (c *Collection) Serialize(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrCollectionClosed
	}
	if c.backend.Size() == 0 {
		return ErrIndexEmpty
	}
	if err := c.backend.Serialize(w); err != nil {
		return err
	}
	if c.wal != nil {
		if err := c.wal.Truncate(); err != nil {
			return newError(KindInternal, "truncating write-ahead log after save", err)
		}
	}
	return nil
}

// Deserialize replaces the collection's contents with what r encodes.
func (c *Collection) Deserialize(r io.ReaderAt, size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCollectionClosed
	}
	if c.backend.Size() > 0 {
		return ErrIndexNotEmpty
	}
	return c.backend.Deserialize(r, size)
}

// GetNumElements returns the number of live elements (allocated ids minus
// tombstoned ones).
func (c *Collection) GetNumElements() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend.Size() - c.backend.NumDeleted()
}

// GetMemoryUsage returns the current memory footprint snapshot.
func (c *Collection) GetMemoryUsage() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend.GetMemoryUsage().Total
}

// Stats returns the collection's statistics (§6.4).
func (c *Collection) Stats() *CollectionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &CollectionStats{
		Name:        c.name,
		IndexType:   c.params.IndexType.String(),
		VectorCount: c.backend.Size() - c.backend.NumDeleted(),
		Dimension:   c.params.Dimension,
		MemoryUsage: c.backend.GetMemoryUsage().Total,
		Timestamp:   time.Now(),
	}
}

// GetStats returns the backend's raw §6.4 statistics map.
func (c *Collection) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend.GetStats()
}

// Close releases the collection's resources. Afterwards, mutations,
// searches, Serialize and Deserialize return ErrCollectionClosed, and a
// second Close returns nil.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.wal != nil {
		if err := c.wal.Close(); err != nil {
			return err
		}
	}
	return c.backend.Close()
}
