// Package visited implements the generation-counter visited-list pool used
// by HGraph's greedy search to mark nodes seen during one query without
// clearing a bitmap between queries.
package visited

import "sync"

// List is a reusable "have I seen this node" marker array. Instead of a
// bool slice cleared before every search, each slot stores the generation
// at which it was last marked; a node is visited iff its slot equals the
// list's current generation. Reset bumps the generation in O(1) and only
// falls back to a real memset when the 16-bit counter wraps.
type List struct {
	gen  uint16
	mass []uint16
}

func newList(n int) *List {
	return &List{gen: 0, mass: make([]uint16, n)}
}

// Reset starts a new generation, clearing the list in amortized O(1).
func (l *List) Reset() {
	l.gen++
	if l.gen == 0 {
		for i := range l.mass {
			l.mass[i] = 0
		}
		l.gen++
	}
}

// Visit marks id as seen in the current generation.
func (l *List) Visit(id uint32) { l.mass[id] = l.gen }

// Visited reports whether id was marked in the current generation.
func (l *List) Visited(id uint32) bool { return l.mass[id] == l.gen }

// Pool hands out and reclaims Lists so concurrent searches don't each pay
// for a fresh n-element allocation.
type Pool struct {
	mu    sync.Mutex
	free  []*List
	nelem int
}

// NewPool preallocates initial Lists sized for nelem nodes.
func NewPool(initial, nelem int) *Pool {
	p := &Pool{nelem: nelem}
	for i := 0; i < initial; i++ {
		p.free = append(p.free, newList(nelem))
	}
	return p
}

// Get returns a List ready for a fresh generation, either from the free
// list or newly allocated if the pool is empty.
func (p *Pool) Get() *List {
	p.mu.Lock()
	var l *List
	if n := len(p.free); n > 0 {
		l = p.free[n-1]
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()
	if l == nil {
		l = newList(p.nelem)
	}
	l.Reset()
	return l
}

// Put returns a List to the pool for reuse.
func (p *Pool) Put(l *List) {
	p.mu.Lock()
	p.free = append(p.free, l)
	p.mu.Unlock()
}

// Grow must be called under the resize write-lock when the index's element
// capacity increases; it resizes all pooled (but not currently checked-out)
// lists and future allocations to the new capacity.
func (p *Pool) Grow(nelem int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nelem = nelem
	for _, l := range p.free {
		if len(l.mass) < nelem {
			grown := make([]uint16, nelem)
			copy(grown, l.mass)
			l.mass = grown
		}
	}
}
