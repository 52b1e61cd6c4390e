// Package slab layers fixed-size, size-classed allocation on top of a
// buddyheap.Heap, the way QuangTung97-espresso/allocator's Slab and
// RealSlab layer fixed-element chunks on top of its Buddy: a Pool asks the
// underlying Heap for one chunk at a time and carves it into elemSize
// pieces linked by an intrusive free list stored in their own bytes.
package slab

import (
	"unsafe"

	"github.com/nquang/buddyheap"
)

type listNode struct {
	next unsafe.Pointer
}

// Pool hands out fixed-size elements backed by chunks allocated from a
// shared Heap. A Pool never returns chunks to the Heap once taken, the
// same way the teacher's RealSlab never calls back into Buddy.Deallocate
// (pool.go has no Shrink/Reset — it is a grow-only arena).
//
// Pool is not safe for concurrent use, for the same reason as Heap.
type Pool struct {
	heap      *buddyheap.Heap
	elemSize  uintptr
	chunkSize int
	perChunk  int

	freeList unsafe.Pointer

	memUsage    uint64
	unusedBytes uint64
}

// NewPool creates a Pool of elemSize-byte elements, requesting chunkSize
// bytes from heap at a time (chunkSize is rounded down to a whole number
// of elements; any remainder is wasted per chunk, matching the teacher's
// RealSlab.unusedBytes accounting).
func NewPool(heap *buddyheap.Heap, elemSize, chunkSize int) *Pool {
	if elemSize <= 0 {
		panic("slab: elemSize must be > 0")
	}
	if chunkSize < elemSize {
		panic("slab: chunkSize must be >= elemSize")
	}

	perChunk := chunkSize / elemSize
	return &Pool{
		heap:      heap,
		elemSize:  uintptr(elemSize),
		chunkSize: chunkSize,
		perChunk:  perChunk,
	}
}

// allocChunk requests one more chunk from the Heap and links its elements
// into the free list (teacher: RealSlab.initChunk).
func (p *Pool) allocChunk() bool {
	chunkPtr, ok := p.heap.Alloc(p.chunkSize)
	if !ok {
		return false
	}

	for i := 0; i < p.perChunk; i++ {
		node := (*listNode)(unsafe.Pointer(uintptr(chunkPtr) + uintptr(i)*p.elemSize))
		if i == p.perChunk-1 {
			node.next = nil
		} else {
			node.next = unsafe.Pointer(uintptr(chunkPtr) + uintptr(i)*p.elemSize + p.elemSize)
		}
	}

	p.freeList = chunkPtr
	p.unusedBytes += uint64(p.chunkSize) - uint64(p.perChunk)*uint64(p.elemSize)
	return true
}

// Alloc returns one element, requesting a new chunk from the Heap if the
// free list is empty (teacher: RealSlab.Allocate).
func (p *Pool) Alloc() (unsafe.Pointer, bool) {
	if p.freeList == nil {
		if !p.allocChunk() {
			return nil, false
		}
	}

	result := p.freeList
	p.freeList = (*listNode)(result).next
	p.memUsage += uint64(p.elemSize)
	return result, true
}

// Free returns an element to the pool's free list (teacher:
// RealSlab.Deallocate). The element must have come from this Pool's Alloc.
func (p *Pool) Free(ptr unsafe.Pointer) {
	(*listNode)(ptr).next = p.freeList
	p.freeList = ptr
	p.memUsage -= uint64(p.elemSize)
}

// MemUsage returns the number of bytes currently handed out to callers
// (teacher: RealSlab.GetMemUsage), excluding the per-chunk padding tracked
// separately in unusedBytes.
func (p *Pool) MemUsage() uint64 {
	return p.memUsage
}
