package hgraph

import (
	"context"
	"sort"
	"time"

	"github.com/xDarkicex/annsearch/internal/filter"
	"github.com/xDarkicex/annsearch/internal/labeltable"
	"github.com/xDarkicex/annsearch/internal/util"
)

// searchLayer implements searchBaseLayerST (§4.2.3): a min-heap of
// candidates to expand and a max-heap of the best ef results so far, seeded
// from entryPoints. forConstruction bypasses tombstone/filter admission so
// insertion always sees the true graph neighborhood; search callers pass
// false and supply f. stopOnStall implements the iterator's last-page hint
// (§4.6): once set, the search stops expanding as soon as the next
// candidate can no longer improve the result set, rather than continuing
// until ef results have been collected.
func (idx *Index) searchLayer(query []float32, entryPoints []*util.Candidate, ef int, level int, f filter.Filter, forConstruction bool, stopOnStall bool) []*util.Candidate {
	vl := idx.visited.Get()
	defer idx.visited.Put(vl)

	candidates := util.NewMinHeap(ef * 2)
	result := util.NewMaxHeap(ef)

	admit := func(id uint32) bool {
		return forConstruction || idx.admitted(id, f)
	}

	for _, ep := range entryPoints {
		if vl.Visited(ep.ID) {
			continue
		}
		vl.Visit(ep.ID)
		candidates.PushCandidate(&util.Candidate{ID: ep.ID, Distance: ep.Distance})
		if admit(ep.ID) {
			result.PushCandidate(&util.Candidate{ID: ep.ID, Distance: ep.Distance})
		}
	}

	for candidates.Len() > 0 {
		c := candidates.PopCandidate()
		if result.Top() != nil && c.Distance > result.Top().Distance {
			if result.Len() >= ef || stopOnStall {
				break
			}
		}
		node := idx.nodeAt(c.ID)
		if node == nil || level > node.topLevel() {
			continue
		}
		for _, n := range node.linksAt(level) {
			if vl.Visited(n) {
				continue
			}
			vl.Visit(n)
			d := idx.distanceTo(query, n)
			if result.Len() < ef || (result.Top() != nil && d < result.Top().Distance) {
				candidates.PushCandidate(&util.Candidate{ID: n, Distance: d})
				if admit(n) {
					result.PushCandidate(&util.Candidate{ID: n, Distance: d})
					if result.Len() > ef {
						result.PopCandidate()
					}
				}
			}
		}
	}

	out := make([]*util.Candidate, 0, result.Len())
	for result.Len() > 0 {
		out = append([]*util.Candidate{result.PopCandidate()}, out...)
	}
	return out
}

// admitted reports whether id should be visible to a search: not
// tombstoned and accepted by f, if present. Tombstoned ids are always
// excluded; SearchParams.IncludeTombstones is not consulted by any search
// path.
func (idx *Index) admitted(id uint32, f filter.Filter) bool {
	if idx.labels.IsTombstoned(id) {
		return false
	}
	if f != nil && !f.Allows(idx.labels.Label(id)) {
		return false
	}
	return true
}

// KnnSearch returns at most min(k, live_count) results ordered by
// increasing distance.
func (idx *Index) KnnSearch(ctx context.Context, query []float32, k int, params SearchParams) (_ []Result, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		idx.knnLatency.Observe(float64(elapsed.Microseconds()) / 1000.0)
		idx.metrics.SearchLatency.WithLabelValues(idx.name(), "knn").Observe(elapsed.Seconds())
		if err != nil {
			idx.metrics.SearchErrors.WithLabelValues(idx.name(), "knn").Inc()
		}
	}()

	if len(query) != idx.cfg.Dimension {
		return nil, ErrDimensionMismatch
	}
	query = idx.maybeNormalize(query)

	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	idx.metrics.Searches.WithLabelValues(idx.name(), "knn").Inc()

	idx.entryMu.RLock()
	ep, hasEntry, lMax := idx.entryID, idx.hasEntry, int(idx.maxLevel)
	idx.entryMu.RUnlock()
	if !hasEntry {
		return nil, nil
	}

	ef := params.EfSearch
	if ef < k {
		ef = k
	}

	liveCount := idx.Size() - idx.NumDeleted()
	if params.Filter != nil && filter.ShouldShortcut(params.Filter, liveCount) {
		return idx.searchAllowList(query, k, params.Filter, false, 0), nil
	}

	curr, currDist := ep, idx.distanceTo(query, ep)
	for l := lMax; l > 0; l-- {
		curr, currDist = idx.greedyDescend(query, curr, currDist, l)
	}

	stopOnStall := params.Iterator != nil && params.Iterator.lastPage()
	candidates := idx.searchLayer(query, []*util.Candidate{{ID: curr, Distance: currDist}}, ef, 0, params.Filter, false, stopOnStall)
	if it := params.Iterator; it != nil {
		fresh := make([]*util.Candidate, 0, len(candidates))
		for _, c := range candidates {
			if _, dup := it.seen[c.ID]; !dup {
				fresh = append(fresh, c)
			}
		}
		if k > 0 && len(fresh) > k {
			fresh = fresh[:k]
		}
		candidates = it.apply(fresh)
	}
	return idx.toResults(candidates, k), nil
}

// RangeSearch returns every result with distance <= radius, capped at limit
// if positive.
func (idx *Index) RangeSearch(ctx context.Context, query []float32, radius float32, params SearchParams, limit int) (_ []Result, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		idx.rangeLatency.Observe(float64(elapsed.Microseconds()) / 1000.0)
		idx.metrics.SearchLatency.WithLabelValues(idx.name(), "range").Observe(elapsed.Seconds())
		if err != nil {
			idx.metrics.SearchErrors.WithLabelValues(idx.name(), "range").Inc()
		}
	}()

	if len(query) != idx.cfg.Dimension {
		return nil, ErrDimensionMismatch
	}
	query = idx.maybeNormalize(query)

	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()
	idx.metrics.Searches.WithLabelValues(idx.name(), "range").Inc()

	idx.entryMu.RLock()
	ep, hasEntry, lMax := idx.entryID, idx.hasEntry, int(idx.maxLevel)
	idx.entryMu.RUnlock()
	if !hasEntry {
		return nil, nil
	}

	liveCount := idx.Size() - idx.NumDeleted()
	if params.Filter != nil && filter.ShouldShortcut(params.Filter, liveCount) {
		return idx.searchAllowList(query, limit, params.Filter, true, radius), nil
	}

	ef := params.EfSearch
	if ef < 1 {
		ef = idx.cfg.EfConstruction
	}
	curr, currDist := ep, idx.distanceTo(query, ep)
	for l := lMax; l > 0; l-- {
		curr, currDist = idx.greedyDescend(query, curr, currDist, l)
	}
	candidates := idx.searchLayer(query, []*util.Candidate{{ID: curr, Distance: currDist}}, ef, 0, params.Filter, false, false)

	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if c.Distance > radius {
			continue
		}
		out = append(out, Result{Label: idx.labels.Label(c.ID), Distance: c.Distance})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// searchAllowList implements the §4.2.3 allow-list shortcut: instead of
// traversing the graph, score every label the filter admits directly. A
// label threaded onto a duplicate-id chain (AllowDuplicates) scores every
// live chain member as its own hit, matching what graph traversal would
// have surfaced anyway since each duplicate is its own node.
func (idx *Index) searchAllowList(query []float32, k int, f filter.Filter, isRange bool, radius float32) []Result {
	labels, _ := f.AllowList()
	scored := make([]Result, 0, len(labels))
	for _, label := range labels {
		primary := idx.labels.GetIdByLabel(label, true)
		if primary == labeltable.NoID {
			continue
		}
		for _, id := range idx.labels.DuplicatesOf(primary) {
			if idx.labels.IsTombstoned(id) {
				continue
			}
			d := idx.distanceTo(query, id)
			if isRange && d > radius {
				continue
			}
			scored = append(scored, Result{Label: label, Distance: d})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

func (idx *Index) toResults(candidates []*util.Candidate, k int) []Result {
	n := len(candidates)
	if k > 0 && k < n {
		n = k
	}
	out := make([]Result, n)
	for i := 0; i < n; i++ {
		out[i] = Result{Label: idx.labels.Label(candidates[i].ID), Distance: candidates[i].Distance}
	}
	return out
}
