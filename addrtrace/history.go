package addrtrace

import (
	"fmt"
	"io"
)

// History is one vCPU's backward-searchable instruction log. It is an
// append-optimized slice with a register-index-to-positions map kept in
// sync incrementally, rather than an intrusive prepend-and-linear-scan
// list: the walker's "newest producer of register R" query is answered by
// scanning the tail of one slice instead of the whole history.
//
// History is not safe for concurrent use. A multi-vCPU caller must keep
// one *History per vCPU index.
type History struct {
	entries    []InsnDecode
	byRegister map[int][]int // register index -> positions in entries, oldest first

	maxEntries int
	dropped    int
}

// NewHistory returns an empty history. maxEntries caps retained entries;
// once exceeded, the oldest entry is dropped on every further Append. Zero
// means unbounded.
func NewHistory(maxEntries int) *History {
	return &History{
		byRegister: make(map[int][]int),
		maxEntries: maxEntries,
	}
}

// Append records d as the newest entry.
func (h *History) Append(d InsnDecode) {
	h.entries = append(h.entries, d)
	pos := len(h.entries) - 1

	if d.Rd != RegUnused {
		h.byRegister[d.Rd] = append(h.byRegister[d.Rd], pos)
	}

	if h.maxEntries > 0 && len(h.entries) > h.maxEntries {
		h.evictOldest()
	}
}

// evictOldest drops entries[0] and re-bases every stored position by one.
// Re-basing visits every position in byRegister, so each eviction costs
// time proportional to the retained history.
func (h *History) evictOldest() {
	h.entries = h.entries[1:]
	h.dropped++

	for reg, positions := range h.byRegister {
		shifted := positions[:0]
		for _, p := range positions {
			if p == 0 {
				continue
			}
			shifted = append(shifted, p-1)
		}
		if len(shifted) == 0 {
			delete(h.byRegister, reg)
		} else {
			h.byRegister[reg] = shifted
		}
	}
}

// Len returns the number of entries currently retained.
func (h *History) Len() int { return len(h.entries) }

// at returns entries[i], guarding the walker against a position that fell
// off the front of a capped history mid-walk.
func (h *History) at(i int) (InsnDecode, bool) {
	if i < 0 || i >= len(h.entries) {
		return InsnDecode{}, false
	}
	return h.entries[i], true
}

// lastProducerBefore returns the position of the newest entry strictly
// before "before" whose Rd equals reg, searching newest-to-older.
func (h *History) lastProducerBefore(reg, before int) (int, bool) {
	positions := h.byRegister[reg]
	for i := len(positions) - 1; i >= 0; i-- {
		p := positions[i]
		if p < before {
			return p, true
		}
	}
	return 0, false
}

// Dump writes every retained entry's vaddr and disassembly, oldest first,
// for debugging a run after the fact.
func (h *History) Dump(w io.Writer) {
	for _, e := range h.entries {
		fmt.Fprintf(w, "0x%08x %s\n", e.Vaddr, e.Disas)
	}
}
