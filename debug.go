package buddyheap

import (
	"fmt"
	"strings"
)

// DumpFreeLists renders the contents of every free list, one line per
// level, for diagnostics (spec.md §2's "debugging printers", grounded in
// the reference's DebugBuddySystemInfo). It is never called on the
// alloc/free path; callers decide whether and where to log it.
func (h *Heap) DumpFreeLists() string {
	var b strings.Builder
	for level := uint32(0); level < MaxLevels; level++ {
		if level < h.topLevel() {
			fmt.Fprintf(&b, "  [unused] level %d\n", level)
			continue
		}

		blocks := h.freeListContents(level)
		fmt.Fprintf(&b, "  level %d (%d B): ", level, levelToSize(level))
		if len(blocks) == 0 {
			b.WriteString("empty\n")
			continue
		}
		for i, off := range blocks {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "offset=%d", off)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// DumpBitmaps renders both metadata bitmaps as a hex dump, bytesPerRow
// bytes per line (grounded in the reference's DebugBuddySystemMeta).
func (h *Heap) DumpBitmaps(bytesPerRow int) string {
	var b strings.Builder
	b.WriteString("leaf-taken bitmap:\n")
	writeHexRows(&b, h.leafBits, bytesPerRow)
	b.WriteString("split bitmap:\n")
	writeHexRows(&b, h.splitBits, bytesPerRow)
	return b.String()
}

func writeHexRows(b *strings.Builder, buf []byte, bytesPerRow int) {
	for i := 0; i < len(buf); i += bytesPerRow {
		end := i + bytesPerRow
		if end > len(buf) {
			end = len(buf)
		}
		b.WriteString("  ")
		for _, v := range buf[i:end] {
			fmt.Fprintf(b, "%#04x ", v)
		}
		b.WriteString("\n")
	}
}
