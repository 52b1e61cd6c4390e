package buddyheap

import (
	"errors"
	"math"
	"unsafe"
)

// Errors returned by FreeErr, one per spec.md §7 failure mode. Free itself
// only ever returns a bool per the spec.md §6 contract; FreeErr exposes
// which of the four reasons applies, for callers that want to tell them
// apart (see SPEC_FULL.md REDESIGN).
var (
	// ErrOutOfBounds is returned when the pointer does not lie within
	// the pool handed to Init.
	ErrOutOfBounds = errors.New("buddyheap: pointer out of bounds")
	// ErrReservedMetadata is returned for the one pointer that is never
	// freeable: the allocator's own metadata block.
	ErrReservedMetadata = errors.New("buddyheap: pointer is the reserved metadata block")
	// ErrNotAllocated is returned when the pointer is not a live block
	// start: it does not fall on a block boundary, it lies inside the
	// metadata block, or the block it names is already free.
	ErrNotAllocated = errors.New("buddyheap: pointer is not a currently allocated block")
)

// Heap is a buddy-system allocator over one caller-supplied []byte (spec.md
// §1). A Heap is not safe for concurrent use; all operations must run on a
// single goroutine at a time (spec.md §5).
type Heap struct {
	pool []byte
	base unsafe.Pointer

	memSize        uint32 // usable size, rounded down to a multiple of MinSize
	buddySize      uint32
	levelsNum      uint32
	memStartOffset uint32 // buddy-space offset of memStart (the phantom prefix length)

	metaOffset uint32
	metaSize   uint32
	metaSet    bool
	leafBits   []byte
	splitBits  []byte

	freeHeads [MaxLevels]uint32
	pending   int
}

// NewHeap allocates a Heap and initializes it over pool (spec.md §6
// HeapInit), using the whole of pool as the managed region.
func NewHeap(pool []byte) *Heap {
	h := &Heap{}
	h.Init(pool, len(pool))
	return h
}

// Init (re-)initializes the heap over pool, managing the first memSize
// bytes of it (spec.md §4.5 HeapInit). Init may be called repeatedly on
// the same or a different pool; each call discards all prior state.
func (h *Heap) Init(pool []byte, memSize int) {
	if memSize < MinSize {
		panic("buddyheap: memSize must be at least MinSize")
	}
	if memSize > len(pool) {
		panic("buddyheap: pool shorter than memSize")
	}

	*h = Heap{}
	h.pool = pool
	h.base = unsafe.Pointer(&pool[0])
	for i := range h.freeHeads {
		h.freeHeads[i] = nullAddr
	}

	// Round memSize down to a multiple of MinSize (spec.md §4.5 step 2).
	h.memSize = uint32(memSize) &^ (MinSize - 1)

	// levelsNum uses the caller's raw memSize, not the rounded
	// h.memSize, as the reference's HeapInit does. levelsNeeded divides
	// by MinSize before taking the log, so both give the same level count.
	h.levelsNum = levelsNeeded(uint32(memSize))
	if h.levelsNum+minSizeLog-1 > 31 {
		// buddySize would need more than 31 bits: past what a uint32
		// offset can address. Levels this deep exist in the abstract
		// MaxLevels-deep tree but no real Heap can reach them.
		panic("buddyheap: pool too large for uint32 addressing")
	}
	h.buddySize = pow2(h.levelsNum + minSizeLog - 1)
	h.memStartOffset = h.buddySize - h.memSize

	h.initBuddySystem()

	h.metaSize = metaSizeFor(h.levelsNum)
	metaLevel := sizeToLevel(h.metaSize)
	metaOff, ok := h.buddyAlloc(metaLevel)
	if !ok {
		panic("buddyheap: pool too small to hold its own metadata")
	}
	h.metaOffset = metaOff
	h.metaSet = true

	metaReal := h.realIndex(metaOff)
	metaBuf := h.pool[metaReal : metaReal+int(h.metaSize)]
	h.leafBits = metaBuf[:h.metaSize/2]
	h.splitBits = metaBuf[h.metaSize/2:]

	h.initMeta()
}

// metaSizeFor returns the combined byte size of the leaf-taken and split
// bitmaps (spec.md §4.5 step 7). The unclamped formula (2 bits per leaf,
// packed) falls below MinSize whenever levelsNum < 7 (a buddy region of
// 512 bytes or less), but
// the metadata block is allocated the same way any other block is, in
// units no smaller than one leaf — so it is clamped to MinSize whenever
// the raw formula would ask for less (also avoiding the negative shift
// the formula would otherwise need for levelsNum < 3).
func metaSizeFor(levelsNum uint32) uint32 {
	if levelsNum < 7 {
		return MinSize
	}
	return pow2(levelsNum - 3)
}

// initBuddySystem seeds the free lists greedily from the top of the
// usable region downward, placing at most one block per level (spec.md
// §4.5 step 6).
func (h *Heap) initBuddySystem() {
	blockSize := h.buddySize
	memLeft := h.memSize
	level := h.topLevel()

	for blockSize >= MinSize {
		if blockSize <= memLeft {
			off := h.memStartOffset + (memLeft - blockSize)
			h.pushFree(level, off, blockSize)
			memLeft -= blockSize
		}
		blockSize /= 2
		level++
	}
}

// initMeta seeds both bitmaps so they are consistent with the greedy
// free-list seeding above (spec.md §4.5 step 9): the phantom prefix and
// the metadata block itself are marked taken, and the split bitmap is
// painted level by level to match which upper nodes the seeding implicitly
// split to reach the phantom boundary.
func (h *Heap) initMeta() {
	leafsTaken := h.memStartOffset / MinSize
	leafsTotal := h.buddySize / MinSize
	ratioTaken := float64(leafsTaken) / float64(leafsTotal)

	if leafsTaken > 0 {
		h.markFree(leafsTaken, leafsTotal-leafsTaken)
		h.markTaken(0, leafsTaken)
	} else {
		h.markFree(0, leafsTotal)
	}

	// Mark the metadata's own leaves taken.
	startLeaf := h.metaOffset / MinSize
	h.markTaken(startLeaf, h.metaSize/MinSize)

	bitsSet := 0
	numBlocksInLevel := 1
	ratio := ratioTaken
	for i := uint32(0); i < h.levelsNum-1; i++ {
		numSplit := int(math.Ceil(ratio))
		markBits(h.splitBits, bitsSet, numSplit, true)
		numMerged := numBlocksInLevel - numSplit
		markBits(h.splitBits, bitsSet+numSplit, numMerged, false)
		bitsSet += numBlocksInLevel
		ratio *= 2
		numBlocksInLevel *= 2
	}
}

// realIndex converts a buddy-space offset that is known to lie within the
// real pool (>= memStartOffset) into an index into h.pool.
func (h *Heap) realIndex(off uint32) int {
	return int(off - h.memStartOffset)
}

// offsetOf converts a real pointer within the pool into a buddy-space
// offset (the inverse of h.headerAt / realIndex).
func (h *Heap) offsetOf(ptr unsafe.Pointer) uint32 {
	return h.memStartOffset + uint32(uintptr(ptr)-uintptr(h.base))
}

// ptrOf converts a buddy-space offset within the real pool back into a
// pointer.
func (h *Heap) ptrOf(off uint32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(h.base) + uintptr(h.realIndex(off)))
}

// Alloc allocates size bytes and returns a pointer to them (spec.md §6
// HeapAlloc). The backing block may be larger than size (rounded up to
// the next power of two, minimum MinSize). Returns ok=false on OOM.
func (h *Heap) Alloc(size int) (unsafe.Pointer, bool) {
	level := sizeToLevel(uint32(size))
	off, ok := h.buddyAlloc(level)
	if !ok {
		return nil, false
	}
	h.pending++
	return h.ptrOf(off), true
}

// Free releases a block previously returned by Alloc (spec.md §6
// HeapFree). Returns false for any of the four failure modes in spec.md
// §7; see FreeErr to distinguish which one.
func (h *Heap) Free(ptr unsafe.Pointer) bool {
	return h.FreeErr(ptr) == nil
}

// FreeErr is Free with the failure reason preserved (SPEC_FULL.md
// REDESIGN). Free is defined as FreeErr(ptr) == nil, so the two never
// disagree.
func (h *Heap) FreeErr(ptr unsafe.Pointer) error {
	start := uintptr(h.base)
	end := start + uintptr(h.memSize)
	p := uintptr(ptr)
	if p < start || p >= end {
		return ErrOutOfBounds
	}

	off := h.offsetOf(ptr)
	if h.metaSet && off == h.metaOffset {
		return ErrReservedMetadata
	}
	if h.metaSet && off > h.metaOffset && off < h.metaOffset+h.metaSize {
		// The metadata's leaves are marked taken, so the bitmap check
		// below would otherwise accept an address inside it.
		return ErrNotAllocated
	}

	size, ok := h.freeByAddress(off)
	if !ok {
		return ErrNotAllocated
	}

	mergedOff, mergedSize := h.merge(off, size)
	h.pushFree(sizeToLevel(mergedSize), mergedOff, mergedSize)
	h.pending--
	return nil
}

// Pending returns the number of outstanding allocations (spec.md §6
// HeapDone): Alloc successes minus Free successes. The metadata
// allocation is never counted.
func (h *Heap) Pending() int {
	return h.pending
}
