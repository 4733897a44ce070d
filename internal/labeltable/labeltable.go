// Package labeltable implements the bidirectional mapping between a
// caller's external 64-bit labels and an index's dense internal 32-bit ids,
// including tombstone bits for soft delete and duplicate-id chains.
package labeltable

import "sync"

// NoID is the sentinel returned when a label is absent or tombstoned.
const NoID = ^uint32(0)

// Table is the label<->id map shared by HGraph and SINDI. The forward
// direction (id -> label/tombstone/duplicate-link) is a plain slice indexed
// by id; the reverse direction (label -> id) is a map guarded by its own
// lock so lookups by label don't contend with inserts that only touch the
// forward slice.
type Table struct {
	mu       sync.RWMutex // guards forward (labels, tombstone, dupNext)
	revMu    sync.RWMutex // guards reverse
	labels   []int64
	tomb     []bool
	dupNext  []uint32 // circular chain of ids sharing a label; NoID if none
	reverse  map[int64]uint32
	numDead  int
}

// New creates an empty table.
func New() *Table {
	return &Table{reverse: make(map[int64]uint32)}
}

// Insert appends id's label, growing the forward slice if id >= current
// length. The reverse map is updated whenever label has no live holder yet
// — either because nothing has ever claimed it, or because its current
// holder is tombstoned — so re-adding a previously removed label always
// repoints the reverse entry at the new id; duplicate holders of a label
// that's still live are reachable via the dup chain instead.
func (t *Table) Insert(id uint32, label int64) {
	t.mu.Lock()
	for int(id) >= len(t.labels) {
		t.labels = append(t.labels, 0)
		t.tomb = append(t.tomb, false)
		t.dupNext = append(t.dupNext, NoID)
	}
	t.labels[id] = label
	t.mu.Unlock()

	t.revMu.Lock()
	if existing, exists := t.reverse[label]; !exists || t.IsTombstoned(existing) {
		t.reverse[label] = id
	}
	t.revMu.Unlock()
}

// GetIdByLabel resolves label to its primary internal id. allowTombstone
// controls whether a soft-deleted primary holder is still returned; when
// false (the default for search) a tombstoned primary returns NoID even
// though the reverse map still points at it.
func (t *Table) GetIdByLabel(label int64, allowTombstone bool) uint32 {
	t.revMu.RLock()
	id, ok := t.reverse[label]
	t.revMu.RUnlock()
	if !ok {
		return NoID
	}
	if !allowTombstone && t.IsTombstoned(id) {
		return NoID
	}
	return id
}

// Label returns the label stored for id.
func (t *Table) Label(id uint32) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.labels[id]
}

// IsTombstoned reports whether id has been soft-deleted.
func (t *Table) IsTombstoned(id uint32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int(id) < len(t.tomb) && t.tomb[id]
}

// MarkRemove flips the tombstone bit for each id in ids that isn't already
// tombstoned, returning the count actually flipped.
func (t *Table) MarkRemove(ids []uint32) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	flipped := 0
	for _, id := range ids {
		if int(id) < len(t.tomb) && !t.tomb[id] {
			t.tomb[id] = true
			t.numDead++
			flipped++
		}
	}
	return flipped
}

// RecoverRemove clears the tombstone bit for id, returning true if it was
// previously set.
func (t *Table) RecoverRemove(id uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) < len(t.tomb) && t.tomb[id] {
		t.tomb[id] = false
		t.numDead--
		return true
	}
	return false
}

// UpdateLabel renames the label held by id to newLabel. Fails if newLabel
// already maps to a different id, live or tombstoned: renaming onto a
// tombstoned target would silently resurrect it under a new identity, which
// violates the tombstone invariant just as renaming onto a live label would.
func (t *Table) UpdateLabel(id uint32, newLabel int64) error {
	t.revMu.Lock()
	defer t.revMu.Unlock()
	if existing, ok := t.reverse[newLabel]; ok && existing != id {
		return ErrLabelLive
	}
	t.mu.Lock()
	old := t.labels[id]
	t.labels[id] = newLabel
	t.mu.Unlock()
	delete(t.reverse, old)
	t.reverse[newLabel] = id
	return nil
}

// Repoint moves label's reverse-map entry to newID directly, without
// touching any forward slice. UpdateVector uses this after re-inserting a
// label under a fresh internal id: the label's identity is unchanged, only
// which id now owns it.
func (t *Table) Repoint(label int64, newID uint32) {
	t.revMu.Lock()
	t.reverse[label] = newID
	t.revMu.Unlock()
}

// SetDuplicateId threads cur onto prev's duplicate chain, so a later
// GetIdByLabel walk via DuplicatesOf can surface every id sharing a label.
func (t *Table) SetDuplicateId(prev, cur uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.dupNext[prev]
	if next == NoID {
		next = prev
	}
	t.dupNext[cur] = next
	t.dupNext[prev] = cur
}

// DuplicatesOf returns every id in id's duplicate chain, including id
// itself, in chain order.
func (t *Table) DuplicatesOf(id uint32) []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	chain := []uint32{id}
	for next := t.dupNext[id]; next != NoID && next != id; next = t.dupNext[next] {
		chain = append(chain, next)
	}
	return chain
}

// MergeOther appends other's ids into t, passing each of other's internal
// ids through idMapFn to get the id it occupies in t. Labels, tombstone
// bits, and duplicate-chain links all carry over under the remapped ids;
// used when concatenating indices so the merged table's ids stay dense
// without colliding with t's existing ones.
func (t *Table) MergeOther(other *Table, idMapFn func(uint32) uint32) {
	other.mu.RLock()
	labels := append([]int64(nil), other.labels...)
	tomb := append([]bool(nil), other.tomb...)
	dupNext := append([]uint32(nil), other.dupNext...)
	other.mu.RUnlock()

	t.mu.Lock()
	for oldID := range labels {
		newID := idMapFn(uint32(oldID))
		for int(newID) >= len(t.labels) {
			t.labels = append(t.labels, 0)
			t.tomb = append(t.tomb, false)
			t.dupNext = append(t.dupNext, NoID)
		}
		t.labels[newID] = labels[oldID]
		if tomb[oldID] && !t.tomb[newID] {
			t.tomb[newID] = true
			t.numDead++
		}
		if next := dupNext[oldID]; next != NoID {
			t.dupNext[newID] = idMapFn(next)
		}
	}
	t.mu.Unlock()

	t.revMu.Lock()
	for oldID, label := range labels {
		if tomb[oldID] {
			continue
		}
		newID := idMapFn(uint32(oldID))
		if existing, exists := t.reverse[label]; !exists || t.IsTombstoned(existing) {
			t.reverse[label] = newID
		}
	}
	t.revMu.Unlock()
}

// Len returns the number of ids the table has ever been told about,
// including tombstoned ones.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.labels)
}

// NumDead returns the count of currently tombstoned ids.
func (t *Table) NumDead() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.numDead
}

// Snapshot captures the state needed for serialization: parallel label and
// tombstone slices plus the duplicate-chain links.
type Snapshot struct {
	Labels  []int64
	Tomb    []bool
	DupNext []uint32
}

// Snapshot returns a copy of the table's forward state for persistence.
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := Snapshot{
		Labels:  append([]int64(nil), t.labels...),
		Tomb:    append([]bool(nil), t.tomb...),
		DupNext: append([]uint32(nil), t.dupNext...),
	}
	return s
}

// Restore rebuilds the table (forward and reverse state) from a snapshot
// produced by Snapshot.
func Restore(s Snapshot) *Table {
	t := New()
	t.labels = s.Labels
	t.tomb = s.Tomb
	t.dupNext = s.DupNext
	for id, label := range t.labels {
		if t.tomb[id] {
			t.numDead++
		}
		if existing, exists := t.reverse[label]; !exists || t.tomb[existing] {
			t.reverse[label] = uint32(id)
		}
	}
	return t
}
