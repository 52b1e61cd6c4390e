package buddyheap

// This file implements the buddy-engine component of spec.md §4.4: the
// recursive split (allocOnLevel), the public allocate (buddyAlloc), the
// bitmap walk that recovers a block's size from its address alone
// (freeByAddress), and pairwise buddy merging (merge).

// topLevel is L_top in spec.md §3: the level holding the single node that
// spans the whole buddy region.
func (h *Heap) topLevel() uint32 {
	return MaxLevels - h.levelsNum
}

// allocOnLevel returns a free block of level L, splitting a block from a
// shallower level if none is already free at L (spec.md §4.4.1).
func (h *Heap) allocOnLevel(level uint32) (uint32, bool) {
	if level < h.topLevel() {
		return 0, false
	}
	if off, ok := h.popFree(level); ok {
		return off, true
	}

	first, ok := h.allocOnLevel(level - 1)
	if !ok {
		return 0, false
	}

	h.markSplit(indexGlobal(first, level-1, h.levelsNum))

	newSize := levelToSize(level)
	second := first + newSize
	h.pushFree(level, second, newSize)

	return first, true
}

// buddyAlloc allocates a block of level L and marks its leaves taken
// (spec.md §4.4.2).
func (h *Heap) buddyAlloc(level uint32) (uint32, bool) {
	off, ok := h.allocOnLevel(level)
	if !ok {
		return 0, false
	}
	h.markAlloc(off, level)
	return off, true
}

// freeByAddress locates the block that starts at the given buddy-space
// offset by walking the split bitmap down from the largest block that
// could begin there, then verifies it is actually taken (spec.md §4.4.3).
func (h *Heap) freeByAddress(off uint32) (size uint32, ok bool) {
	if off%MinSize != 0 {
		return 0, false
	}

	size = maxBlockSizeByAddr(off, h.buddySize)
	level := sizeToLevel(size)
	g := indexGlobal(off, level, h.levelsNum)

	for h.isSplit(g) {
		g = childIndex(g)
		size /= 2
	}

	if !h.isTaken(g) {
		return 0, false
	}

	h.markFree(off/MinSize, size/MinSize)
	return size, true
}

// merge iteratively coalesces a freed block with its buddy, climbing the
// tree one level per successful merge (spec.md §4.4.4).
func (h *Heap) merge(off, size uint32) (uint32, uint32) {
	level := sizeToLevel(size)

	for {
		buddyOff, ok := findBuddy(off, level, h.buddySize, h.memStartOffset)
		if !ok {
			break
		}
		if !h.removeFree(level, buddyOff) {
			break
		}

		merged := off
		if buddyOff < merged {
			merged = buddyOff
		}
		size *= 2
		level--
		h.markMerged(indexGlobal(merged, level, h.levelsNum))
		off = merged
	}

	return off, size
}
