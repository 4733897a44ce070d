package annsearch

import "github.com/xDarkicex/annsearch/internal/index/hgraph"

// Iterator carries pagination state across repeated KnnSearch calls on the
// same query, deduplicating ids already returned; RangeSearch ignores it. Only
// meaningful against an HGraph collection today; passing one to a SINDI
// collection is a no-op.
type Iterator struct {
	hg *hgraph.Iterator
}

// NewIterator creates a fresh iterator with no ids seen yet.
func NewIterator() *Iterator {
	return &Iterator{hg: hgraph.NewIterator()}
}

// SetLastPage marks this call as the final page: the search stops
// expanding as soon as the candidate frontier stops improving the result
// set, instead of always exploring the full ef budget.
func (it *Iterator) SetLastPage(last bool) {
	it.hg.SetLastPage(last)
}
