package hgraph

import "github.com/xDarkicex/annsearch/internal/util"

// Iterator lets a caller paginate through one logical k-NN request across
// several KnnSearch calls instead of re-running the whole search at a
// larger k each time (§4.6). It remembers which internal ids have already
// been handed back so a later page skips them.
type Iterator struct {
	seen map[uint32]struct{}
	last bool
}

// NewIterator creates a fresh paging context for a new logical request.
func NewIterator() *Iterator {
	return &Iterator{seen: make(map[uint32]struct{})}
}

// SetLastPage marks this as the final page: the search that consumes it
// stops expanding as soon as the candidate frontier stops improving the
// result set, instead of always exploring the full ef budget.
func (it *Iterator) SetLastPage(last bool) { it.last = last }

// lastPage reports whether this iterator was marked as the final page.
func (it *Iterator) lastPage() bool { return it.last }

// apply filters out ids already returned by a previous page and records the
// ids in this page as seen, so a monotonically-increasing sequence of
// KnnSearch calls against the same Iterator produces a prefix of the
// ordering a single large k-NN call would.
func (it *Iterator) apply(candidates []*util.Candidate) []*util.Candidate {
	out := make([]*util.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := it.seen[c.ID]; dup {
			continue
		}
		it.seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
