package sindi

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/xDarkicex/annsearch/internal/filter"
	"github.com/xDarkicex/annsearch/internal/labeltable"
)

// accumulate walks query's retained terms against their posting lists and
// returns an internal-id -> accumulated inner-product score map. When
// restrict is non-nil only ids present in restrict are scored, implementing
// the allow-list shortcut (§4.3.3) without needing a doc-major layout.
func (idx *Index) accumulate(query []termWeight, termPruneRatio float64, restrict map[uint32]struct{}) map[uint32]float32 {
	scores := make(map[uint32]float32)
	for _, qt := range query {
		if int(qt.term) >= len(idx.terms) {
			continue
		}
		idx.mu.RLock()
		pl := idx.terms[qt.term]
		idx.mu.RUnlock()
		if pl == nil {
			continue
		}
		ids, weights, qweights := pl.snapshot()
		n := len(ids)
		if termPruneRatio > 0 && termPruneRatio < 1 {
			n = int(math.Ceil(float64(n) * termPruneRatio))
		}
		quantized := len(qweights) == len(ids)
		for i := 0; i < n; i++ {
			id := ids[i]
			if restrict != nil {
				if _, ok := restrict[id]; !ok {
					continue
				}
			}
			w := weights[i]
			if quantized && idx.quant != nil {
				w = idx.quant.DecodeOne(qweights[i])
			}
			scores[id] += qt.weight * w
		}
	}
	return scores
}

// exactRerank recomputes scores for exactly the given candidate ids using
// each posting's raw (never quantized) weight, implementing stage 2 of the
// two-stage reorder search (§4.3.3).
func (idx *Index) exactRerank(query []termWeight, candidateIDs []uint32) map[uint32]float32 {
	restrict := make(map[uint32]struct{}, len(candidateIDs))
	for _, id := range candidateIDs {
		restrict[id] = struct{}{}
	}
	scores := make(map[uint32]float32)
	for _, qt := range query {
		if int(qt.term) >= len(idx.terms) {
			continue
		}
		idx.mu.RLock()
		pl := idx.terms[qt.term]
		idx.mu.RUnlock()
		if pl == nil {
			continue
		}
		ids, weights, _ := pl.snapshot()
		for i, id := range ids {
			if _, ok := restrict[id]; !ok {
				continue
			}
			scores[id] += qt.weight * weights[i]
		}
	}
	return scores
}

// pruneQueryTerms keeps the top QueryPruneRatio fraction of terms by weight,
// or all of them if the ratio is <= 0 or >= 1.
func pruneQueryTerms(query SparseVector, ratio float64) []termWeight {
	pairs := sortedByWeightDesc(query.TermIDs, query.Weights)
	if ratio <= 0 || ratio >= 1 {
		return pairs
	}
	keep := int(math.Ceil(float64(len(pairs)) * ratio))
	if keep < 1 {
		keep = 1
	}
	if keep < len(pairs) {
		pairs = pairs[:keep]
	}
	return pairs
}

func (idx *Index) admitted(id uint32, f filter.Filter) bool {
	if idx.labels.IsTombstoned(id) {
		return false
	}
	if f != nil && !f.Allows(idx.labels.Label(id)) {
		return false
	}
	return true
}

// allowedRestrict builds the restrict set backing the allow-list shortcut,
// or nil if the filter's selectivity doesn't clear the shared threshold.
func (idx *Index) allowedRestrict(f filter.Filter, liveCount int) map[uint32]struct{} {
	if f == nil || !filter.ShouldShortcut(f, liveCount) {
		return nil
	}
	labels, ok := f.AllowList()
	if !ok {
		return nil
	}
	restrict := make(map[uint32]struct{}, len(labels))
	for _, l := range labels {
		id := idx.labels.GetIdByLabel(l, false)
		if id != labeltable.NoID {
			restrict[id] = struct{}{}
		}
	}
	return restrict
}

func scoresToResults(idx *Index, scores map[uint32]float32, f filter.Filter, restricted bool) []Result {
	out := make([]Result, 0, len(scores))
	for id, score := range scores {
		if !restricted && !idx.admitted(id, f) {
			continue
		}
		out = append(out, Result{Label: idx.labels.Label(id), Distance: 1 - score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// KnnSearch returns at most k results ordered by increasing distance
// (1 - inner_product, so smaller is closer, matching HGraph's convention).
func (idx *Index) KnnSearch(ctx context.Context, query SparseVector, k int, params SearchParams) (_ []Result, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		idx.knnLatency.Observe(float64(elapsed.Microseconds()) / 1000.0)
		idx.metrics.SearchLatency.WithLabelValues(idx.name(), "knn").Observe(elapsed.Seconds())
		if err != nil {
			idx.metrics.SearchErrors.WithLabelValues(idx.name(), "knn").Inc()
		}
	}()
	idx.metrics.Searches.WithLabelValues(idx.name(), "knn").Inc()

	liveCount := idx.Size() - idx.NumDeleted()
	restrict := idx.allowedRestrict(params.Filter, liveCount)
	qterms := pruneQueryTerms(query, params.QueryPruneRatio)

	scores := idx.accumulate(qterms, params.TermPruneRatio, restrict)

	if idx.cfg.UseReorder && len(scores) > 0 {
		n := params.NCandidate
		if n <= 0 {
			n = k * 4
		}
		stage1 := scoresToResultIDs(scores, n)
		scores = idx.exactRerank(qterms, stage1)
	}

	results := scoresToResults(idx, scores, params.Filter, restrict != nil)
	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// RangeSearch returns every result with distance <= radius, capped at limit
// if positive.
func (idx *Index) RangeSearch(ctx context.Context, query SparseVector, radius float32, params SearchParams, limit int) (_ []Result, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		idx.rangeLatency.Observe(float64(elapsed.Microseconds()) / 1000.0)
		idx.metrics.SearchLatency.WithLabelValues(idx.name(), "range").Observe(elapsed.Seconds())
		if err != nil {
			idx.metrics.SearchErrors.WithLabelValues(idx.name(), "range").Inc()
		}
	}()
	idx.metrics.Searches.WithLabelValues(idx.name(), "range").Inc()

	liveCount := idx.Size() - idx.NumDeleted()
	restrict := idx.allowedRestrict(params.Filter, liveCount)
	qterms := pruneQueryTerms(query, params.QueryPruneRatio)

	scores := idx.accumulate(qterms, params.TermPruneRatio, restrict)
	if idx.cfg.UseReorder && len(scores) > 0 {
		n := params.NCandidate
		if n <= 0 {
			n = len(scores)
		}
		stage1 := scoresToResultIDs(scores, n)
		scores = idx.exactRerank(qterms, stage1)
	}

	all := scoresToResults(idx, scores, params.Filter, restrict != nil)
	out := make([]Result, 0, len(all))
	for _, r := range all {
		if r.Distance > radius {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// scoresToResultIDs returns up to n ids ranked by decreasing score, the
// stage-1 candidate set for stage-2 exact reranking.
func scoresToResultIDs(scores map[uint32]float32, n int) []uint32 {
	type pair struct {
		id    uint32
		score float32
	}
	pairs := make([]pair, 0, len(scores))
	for id, s := range scores {
		pairs = append(pairs, pair{id, s})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })
	if n > 0 && n < len(pairs) {
		pairs = pairs[:n]
	}
	out := make([]uint32, len(pairs))
	for i, p := range pairs {
		out[i] = p.id
	}
	return out
}
