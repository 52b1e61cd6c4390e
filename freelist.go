package buddyheap

import "unsafe"

// nullAddr marks the end of a free list, mirroring the reference's
// nullptr and the teacher's buddyNullPtr (QuangTung97-espresso/allocator/buddy.go).
const nullAddr uint32 = ^uint32(0)

// freeHeader is the in-band header a free block carries in its own first
// bytes (spec.md §3 "Free block"). It is overwritten by user data the
// moment the block is allocated; headers exist only for currently-free
// blocks.
type freeHeader struct {
	size uint32
	next uint32 // buddy-space offset of the next free block, or nullAddr
}

// headerAt views the real memory at the given buddy-space offset as a
// freeHeader. Callers must only pass offsets within the real pool (i.e.
// >= h.memStartOffset); the phantom prefix is never dereferenced.
func (h *Heap) headerAt(off uint32) *freeHeader {
	return (*freeHeader)(unsafe.Pointer(uintptr(h.base) + uintptr(off-h.memStartOffset)))
}

// pushFree adds a block to the head of free list L (spec.md §4.3: O(1)
// insertion at head), writing its header in place.
func (h *Heap) pushFree(level uint32, off uint32, size uint32) {
	hdr := h.headerAt(off)
	hdr.size = size
	hdr.next = h.freeHeads[level]
	h.freeHeads[level] = off
}

// popFree removes and returns the head of free list L.
func (h *Heap) popFree(level uint32) (off uint32, ok bool) {
	off = h.freeHeads[level]
	if off == nullAddr {
		return 0, false
	}
	h.freeHeads[level] = h.headerAt(off).next
	return off, true
}

// removeFree scans free list L for a block starting at off and unlinks it
// if found (spec.md §4.3: removal is a linear scan, the only non-constant
// step on the alloc/free path).
func (h *Heap) removeFree(level uint32, off uint32) bool {
	cur := h.freeHeads[level]
	if cur == nullAddr {
		return false
	}
	if cur == off {
		h.freeHeads[level] = h.headerAt(cur).next
		return true
	}
	for cur != nullAddr {
		hdr := h.headerAt(cur)
		if hdr.next == off {
			hdr.next = h.headerAt(off).next
			return true
		}
		cur = hdr.next
	}
	return false
}

// freeListContents returns the buddy-space offsets of every block on free
// list L, head first. Used by the debug dumper; never on the alloc/free
// path.
func (h *Heap) freeListContents(level uint32) []uint32 {
	var result []uint32
	for off := h.freeHeads[level]; off != nullAddr; off = h.headerAt(off).next {
		result = append(result, off)
	}
	return result
}
