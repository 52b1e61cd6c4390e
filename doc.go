// Package buddyheap implements a buddy-system memory allocator over a
// single caller-supplied byte slice. It carves the slice into
// power-of-two blocks, tracks which ones are in use with two bitmaps
// stored inside the slice itself, and recovers a freed block's size from
// its address alone — no size argument at Free time.
//
// A Heap owns no memory beyond the slice passed to Init: it never grows,
// never calls into the host allocator, and is not safe for concurrent
// use. See the package's SPEC_FULL.md for the full design.
package buddyheap
