package buddyheap

import "math/bits"

// Geometry constants (spec.md §3).
const (
	// MinSize is the smallest block the allocator ever hands out.
	MinSize = 16
	// minSizeLog is log2(MinSize).
	minSizeLog = 4
	// MaxLevels bounds the buddy tree depth, matching the reference's
	// MAX_LEVELS. Block sizes and buddy-space offsets are carried in
	// uint32 throughout this package, so the practical ceiling on a
	// single Heap's region is narrower than the full MaxLevels tree
	// could address in principle: Init rejects any pool whose buddy
	// region would need a size wider than 31 bits (see the overflow
	// guard there). Levels below that ceiling simply never get used by
	// any real Heap, the same way the reference's TestRef never comes
	// close to exercising MAX_LEVELS deep trees either.
	MaxLevels = 32
)

// log2Ceil returns the smallest k with 2^k >= n. Panics on n == 0: the
// reference's Log2Int silently returns 0 for both 0 and 1 inputs, but
// nothing in this allocator ever asks for the log of zero bytes.
func log2Ceil(n uint32) uint32 {
	if n == 0 {
		panic("buddyheap: log2Ceil of 0")
	}
	if isPow2(n) {
		return uint32(bits.Len32(n - 1))
	}
	return uint32(bits.Len32(n))
}

func pow2(k uint32) uint32 {
	return 1 << k
}

func isPow2(n uint32) bool {
	return n&(n-1) == 0
}

// maxBlockSizeByAddr returns the largest power-of-two block that could
// legally begin at the given buddy-space offset: the largest power of two
// dividing offset, or buddySize when offset is 0 (the start of the region
// divides everything).
func maxBlockSizeByAddr(offset uint32, buddySize uint32) uint32 {
	if offset == 0 {
		return buddySize
	}
	return offset & -offset
}

// levelsNeeded returns the tree depth needed to cover memSize bytes.
// Deliberately takes the caller's raw, possibly-unrounded memSize (spec.md
// §9 Open Question: HeapInit calls this with memSize, not the MinSize-
// rounded usable size; preserved here to match the reference exactly).
func levelsNeeded(memSize uint32) uint32 {
	return log2Ceil(memSize/MinSize) + 1
}

// levelToSize returns the block size, in bytes, of every node at level L.
func levelToSize(level uint32) uint32 {
	return pow2(MaxLevels + minSizeLog - level - 1)
}

// sizeToLevel returns the level whose block size first covers size bytes.
// Requests smaller than MinSize round up to the leaf level.
func sizeToLevel(size uint32) uint32 {
	if size < MinSize {
		size = MinSize
	}
	return MaxLevels + minSizeLog - log2Ceil(size) - 1
}

// indexOfLevel returns the global tree index of the first node at level L,
// for a tree with the given actual depth levelsNum.
func indexOfLevel(level, levelsNum uint32) uint32 {
	return pow2(level-MaxLevels+levelsNum) - 1
}

// indexWithinLevel returns a block's 0-based position among the nodes of
// its level, given its buddy-space offset.
func indexWithinLevel(blockOffset uint32, level uint32) uint32 {
	return blockOffset / levelToSize(level)
}

// indexGlobal returns a block's unique breadth-first tree index.
func indexGlobal(blockOffset, level, levelsNum uint32) uint32 {
	return indexOfLevel(level, levelsNum) + indexWithinLevel(blockOffset, level)
}

// childIndex returns the global index of g's left child.
func childIndex(g uint32) uint32 {
	return 2*(g+1) - 1
}

// indexGlobalToLevel returns the level of the node with the given global
// index, for a tree with actual depth levelsNum.
func indexGlobalToLevel(index, levelsNum uint32) uint32 {
	lg := uint32(bits.Len32(index + 1)) - 1
	return MaxLevels - levelsNum + lg
}

// findBuddy returns the buddy-space offset of block's sibling at the given
// level, or ok==false if the buddy would fall outside [memStartOffset,
// buddySize): the phantom prefix (everything below memStartOffset) and the
// right edge of the right-anchored region (buddySize) are both off limits,
// matching the reference's bounds checks against g_memStart and g_end.
func findBuddy(blockOffset, level, buddySize, memStartOffset uint32) (buddy uint32, ok bool) {
	size := levelToSize(level)
	if indexWithinLevel(blockOffset, level)%2 == 0 {
		addr := blockOffset + size
		if addr+size > buddySize {
			return 0, false
		}
		return addr, true
	}
	addr := blockOffset - size
	if addr < memStartOffset {
		return 0, false
	}
	return addr, true
}
