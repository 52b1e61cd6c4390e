package buddyheap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func newTestHeap(poolSize int) *Heap {
	return NewHeap(make([]byte, poolSize))
}

func TestInitPanicsOnTooSmallMemSize(t *testing.T) {
	h := &Heap{}
	assert.Panics(t, func() { h.Init(make([]byte, 64), MinSize-1) })
}

func TestInitPanicsWhenMemSizeExceedsPool(t *testing.T) {
	h := &Heap{}
	assert.Panics(t, func() { h.Init(make([]byte, 64), 128) })
}

func TestAllocFreeRoundTrip(t *testing.T) {
	h := newTestHeap(4096)
	assert.Equal(t, 0, h.Pending())

	ptr, ok := h.Alloc(100)
	assert.True(t, ok)
	assert.Equal(t, 1, h.Pending())

	assert.True(t, h.Free(ptr))
	assert.Equal(t, 0, h.Pending())
}

func TestAllocRoundsUpToMinSize(t *testing.T) {
	h := newTestHeap(4096)
	ptr, ok := h.Alloc(1)
	assert.True(t, ok)
	assert.True(t, h.Free(ptr))
}

func TestAllocFailsOnOOM(t *testing.T) {
	// A 32-byte pool has exactly one MinSize leaf left after the
	// allocator's own metadata claims the other.
	h := newTestHeap(32)

	ptr1, ok := h.Alloc(MinSize)
	assert.True(t, ok)
	assert.Equal(t, uint32(MinSize), h.offsetOf(ptr1))

	_, ok = h.Alloc(MinSize)
	assert.False(t, ok)
}

func TestFreeRejectsOutOfBoundsPointer(t *testing.T) {
	h := newTestHeap(4096)

	past := unsafe.Pointer(uintptr(h.base) + uintptr(h.memSize))
	assert.Equal(t, ErrOutOfBounds, h.FreeErr(past))
	assert.False(t, h.Free(past))

	before := unsafe.Pointer(uintptr(h.base) - 1)
	assert.Equal(t, ErrOutOfBounds, h.FreeErr(before))
}

func TestFreeRejectsReservedMetadataPointer(t *testing.T) {
	h := newTestHeap(4096)
	metaPtr := h.ptrOf(h.metaOffset)
	assert.Equal(t, ErrReservedMetadata, h.FreeErr(metaPtr))
}

func TestFreeRejectsUnalignedPointer(t *testing.T) {
	h := newTestHeap(4096)
	misaligned := unsafe.Pointer(uintptr(h.base) + 1)
	assert.Equal(t, ErrNotAllocated, h.FreeErr(misaligned))
}

func TestDoubleFreeFails(t *testing.T) {
	h := newTestHeap(4096)

	ptr, ok := h.Alloc(128)
	assert.True(t, ok)
	assert.True(t, h.Free(ptr))
	assert.Equal(t, ErrNotAllocated, h.FreeErr(ptr))
}

func TestPendingTracksOutstandingAllocationsOnly(t *testing.T) {
	h := newTestHeap(4096)
	// The metadata block's own bootstrap allocation is never counted.
	assert.Equal(t, 0, h.Pending())

	a, _ := h.Alloc(64)
	b, _ := h.Alloc(64)
	assert.Equal(t, 2, h.Pending())

	h.Free(a)
	assert.Equal(t, 1, h.Pending())
	h.Free(b)
	assert.Equal(t, 0, h.Pending())
}

// TestMergeReclaimsContiguousSpace exercises a full split-then-merge cycle
// by hand against a fresh 4096-byte heap (power-of-two memSize, so the
// metadata block always lands at buddy-space offset 0, leaving a clean,
// fully-derivable free-list chain: 2048@2048, 1024@1024, 512@512, 256@256,
// 128@128, 64@64).
func TestMergeReclaimsContiguousSpace(t *testing.T) {
	h := newTestHeap(4096)

	// Pops the already-free 128-byte block at offset 128 directly.
	a, ok := h.Alloc(128)
	assert.True(t, ok)
	assert.Equal(t, uint32(128), h.offsetOf(a))

	// No 128-byte block remains free, so this splits the 256-byte block
	// at offset 256 into two 128-byte halves, returning the left one.
	b, ok := h.Alloc(128)
	assert.True(t, ok)
	assert.Equal(t, uint32(256), h.offsetOf(b))

	// Freeing b finds its freshly-split sibling at offset 384 still
	// free, so the pair merges back into one 256-byte block at 256.
	assert.True(t, h.Free(b))

	c, ok := h.Alloc(256)
	assert.True(t, ok)
	assert.Equal(t, uint32(256), h.offsetOf(c), "merged block should be handed back out whole")

	assert.True(t, h.Free(a))
	assert.True(t, h.Free(c))
	assert.Equal(t, 0, h.Pending())
}

func TestNewHeapUsesWholePool(t *testing.T) {
	pool := make([]byte, 2048)
	h := NewHeap(pool)
	assert.Equal(t, uint32(2048), h.memSize)
}
