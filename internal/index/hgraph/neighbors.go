package hgraph

import (
	"sort"

	"github.com/xDarkicex/annsearch/internal/util"
)

// distanceBetween computes the distance between two stored nodes, used by
// the neighbor heuristic and pruning, which only ever compare already
// inserted vectors against each other (never against a live query).
func (idx *Index) distanceBetween(a, b uint32) float32 {
	return idx.distanceTo(idx.vectorAt(a), b)
}

// selectNeighborsHeuristic implements §4.2.2's diverse selection: maintain
// a min-heap of candidates by distance to the insertion point, pop nearest
// r, and keep it iff every already-selected neighbor s is farther from r
// than r is from the insertion point. This prunes clusters of near-
// duplicate candidates in favor of long-range connectivity.
func (idx *Index) selectNeighborsHeuristic(candidates []*util.Candidate, maxM int) []*util.Candidate {
	if len(candidates) <= maxM {
		return candidates
	}

	h := util.NewMinHeap(len(candidates))
	for _, c := range candidates {
		h.PushCandidate(c)
	}

	selected := make([]*util.Candidate, 0, maxM)
	for h.Len() > 0 && len(selected) < maxM {
		r := h.PopCandidate()
		keep := true
		for _, s := range selected {
			if idx.distanceBetween(r.ID, s.ID) < r.Distance {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, r)
		}
	}
	return selected
}

// connectBidirectional wires id to each selected neighbor at level in both
// directions, then re-runs the heuristic on any neighbor whose degree now
// exceeds maxM.
func (idx *Index) connectBidirectional(id uint32, neighbors []*util.Candidate, level int, maxM int) {
	node := idx.nodeAt(id)
	if node == nil {
		return
	}
	ids := make([]uint32, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.ID
	}
	node.setLinks(level, ids)

	for _, n := range neighbors {
		neighbor := idx.nodeAt(n.ID)
		if neighbor == nil || level > neighbor.topLevel() {
			continue
		}
		neighbor.addLink(level, id)
		if neighbor.degree(level) > maxM {
			idx.pruneNode(n.ID, level, maxM)
		}
	}
}

// pruneNode re-applies the neighbor heuristic to an existing node's
// adjacency list at level, used when an insertion pushes a pre-existing
// node's degree over its cap (§4.2.2 "when a pre-existing node overflows
// its cap, re-run the heuristic to prune it").
func (idx *Index) pruneNode(id uint32, level int, maxM int) {
	node := idx.nodeAt(id)
	if node == nil {
		return
	}
	links := node.linksAt(level)
	candidates := make([]*util.Candidate, 0, len(links))
	for _, l := range links {
		candidates = append(candidates, &util.Candidate{ID: l, Distance: idx.distanceBetween(id, l)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Distance < candidates[j].Distance })

	selected := idx.selectNeighborsHeuristic(candidates, maxM)
	newLinks := make([]uint32, len(selected))
	for i, s := range selected {
		newLinks[i] = s.ID
	}
	node.setLinks(level, newLinks)
}
