// Package blockstore implements the slab allocator backing HGraph's
// per-node storage: fixed-size, size-capped blocks that guarantee
// contiguous access within a block, instead of one ever-growing slice
// that needs periodic whole-array copies.
package blockstore

import (
	"fmt"

	"github.com/xDarkicex/annsearch/internal/alloc"
)

// DefaultBlockCap is the default size ceiling for a single block, matching
// the 128 MiB cap used by the HNSW-family block managers this is grounded
// on.
const DefaultBlockCap = 128 * 1024 * 1024

// Store is a fixed-stride append-only slab: every item occupies itemSize
// bytes, items are packed into blocks of at most blockCap bytes, and a
// block never spans multiple underlying allocations. Item index i always
// lives entirely within block i/itemsPerBlock, so a reader holding a block
// reference can slice it without copying.
type Store struct {
	alloc         alloc.Allocator
	itemSize      int
	itemsPerBlock int
	blockCap      int
	blocks        [][]byte
	count         int
}

// New creates a Store for fixed-size items. blockCap<=0 selects
// DefaultBlockCap. Panics if itemSize<=0: a zero-stride slab cannot address
// anything.
func New(a alloc.Allocator, itemSize, blockCap int) *Store {
	if itemSize <= 0 {
		panic("blockstore: itemSize must be positive")
	}
	if blockCap <= 0 {
		blockCap = DefaultBlockCap
	}
	itemsPerBlock := blockCap / itemSize
	if itemsPerBlock < 1 {
		itemsPerBlock = 1
	}
	if a == nil {
		a = alloc.NewDefault()
	}
	return &Store{
		alloc:         a,
		itemSize:      itemSize,
		itemsPerBlock: itemsPerBlock,
		blockCap:      itemsPerBlock * itemSize,
	}
}

// Len returns the number of items appended so far.
func (s *Store) Len() int { return s.count }

// ItemSize returns the fixed per-item stride in bytes.
func (s *Store) ItemSize() int { return s.itemSize }

// Append reserves the next item slot and returns its index along with a
// byte slice view of exactly itemSize bytes, ready to be written into.
func (s *Store) Append() (int, []byte) {
	blockIdx := s.count / s.itemsPerBlock
	if blockIdx >= len(s.blocks) {
		buf, err := s.alloc.Allocate(s.blockCap)
		if err != nil {
			panic(fmt.Sprintf("blockstore: allocate block: %v", err))
		}
		s.blocks = append(s.blocks, buf)
	}
	idx := s.count
	s.count++
	return idx, s.itemAt(idx)
}

// Get returns the byte slice for item idx. The slice aliases the
// underlying block; callers must not retain it past a concurrent Reset.
func (s *Store) Get(idx int) []byte {
	if idx < 0 || idx >= s.count {
		panic(fmt.Sprintf("blockstore: index %d out of range [0,%d)", idx, s.count))
	}
	return s.itemAt(idx)
}

func (s *Store) itemAt(idx int) []byte {
	block := idx / s.itemsPerBlock
	offset := (idx % s.itemsPerBlock) * s.itemSize
	return s.blocks[block][offset : offset+s.itemSize]
}

// MemoryUsage reports the bytes currently committed across all allocated
// blocks, including slots reserved but not yet appended within the final
// block.
func (s *Store) MemoryUsage() int64 {
	return int64(len(s.blocks)) * int64(s.blockCap)
}

// Reset releases every block back to the allocator and empties the store.
func (s *Store) Reset() {
	for _, b := range s.blocks {
		s.alloc.Deallocate(b)
	}
	s.blocks = nil
	s.count = 0
}
