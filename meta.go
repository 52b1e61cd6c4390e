package buddyheap

// This file implements the bitmap-store component of spec.md §4.2: the
// leaf-taken and split bitmaps, addressed by leaf index / global tree
// index rather than raw bit position, plus the nil-guarded semantics the
// reference relies on during its own bootstrap (MarkAlloc and IsSplit are
// no-ops/false until the metadata bitmaps exist).

// isLeafTaken reports whether leaf i (the MinSize-byte block at
// buddyStart + i*MinSize) is taken, either by a real allocation or by the
// permanently-taken phantom prefix. Returns false before the leaf bitmap
// exists, matching the reference's g_metaStart nil guard.
func (h *Heap) isLeafTaken(leaf uint32) bool {
	if h.leafBits == nil {
		return false
	}
	return getBit(h.leafBits, int(leaf))
}

// isSplit reports whether the node with the given global index is
// currently split. False for leaf-level indices (leaves cannot split) and
// before the split bitmap exists.
func (h *Heap) isSplit(g uint32) bool {
	if g >= h.buddySize/MinSize-1 || h.splitBits == nil {
		return false
	}
	return getBit(h.splitBits, int(g))
}

func (h *Heap) markSplit(g uint32) {
	if h.splitBits == nil {
		return
	}
	setBit(h.splitBits, int(g))
}

func (h *Heap) markMerged(g uint32) {
	if h.splitBits == nil {
		return
	}
	clearBit(h.splitBits, int(g))
}

func (h *Heap) markTaken(startLeaf, numLeaves uint32) {
	markBits(h.leafBits, int(startLeaf), int(numLeaves), true)
}

func (h *Heap) markFree(startLeaf, numLeaves uint32) {
	markBits(h.leafBits, int(startLeaf), int(numLeaves), false)
}

// isTaken reports whether the block named by global index g is currently
// allocated: it walks down to the leaf level aligned with g's start and
// consults the leaf bitmap, since an allocated block's taken bit is
// recorded at leaf granularity for every leaf it spans.
func (h *Heap) isTaken(g uint32) bool {
	level := indexGlobalToLevel(g, h.levelsNum)
	for level < MaxLevels-1 {
		level++
		g = childIndex(g)
	}
	leafIndex := g - indexOfLevel(MaxLevels-1, h.levelsNum)
	return h.isLeafTaken(leafIndex)
}

// markAlloc marks every leaf a newly allocated block spans as taken. A
// no-op until the leaf bitmap itself exists, so the metadata block's own
// self-hosted allocation (heap.go, Init) is harmless before InitMeta runs.
func (h *Heap) markAlloc(blockOffset, level uint32) {
	if h.leafBits == nil {
		return
	}
	size := levelToSize(level)
	h.markTaken(blockOffset/MinSize, size/MinSize)
}
