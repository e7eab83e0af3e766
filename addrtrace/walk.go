package addrtrace

// Separator is emitted after each triggering instruction's dependency chain
// completes.
const Separator = "@@@@@@@@@@@@@@@@@"

// Walk traces the producer chain of register reg backward through h,
// starting just before the entry at position "before" (normally the
// triggering instruction's own position), and calls emit for every vaddr it
// visits. Duplicate-suppression uses only the immediately preceding emitted
// vaddr, so a compact loop that repeats the same producer prints it once
// per burst rather than once per iteration.
//
// Termination is guaranteed by the search order: every recursive call looks
// strictly before its caller's position, so the cursor only ever moves
// toward the start of history.
func (h *History) Walk(reg int, before int, emit func(InsnDecode)) {
	h.walk(reg, before, 0, false, emit)
}

// Trace emits the triggering instruction d itself, then walks its rs1
// producer chain through the whole retained history. The trigger's vaddr
// seeds the duplicate-suppression, so a self-referencing load in a loop
// (ld a0, 0(a0)) does not print its previous iteration twice.
func (h *History) Trace(d InsnDecode, emit func(InsnDecode)) {
	emit(d)
	h.walk(d.Rs1, len(h.entries), d.Vaddr, true, emit)
}

func (h *History) walk(reg, before int, lastEmitted uint64, haveLast bool, emit func(InsnDecode)) {
	var rec func(reg, before int)
	rec = func(reg, before int) {
		if reg == RegUnused {
			return
		}

		pos, ok := h.lastProducerBefore(reg, before)
		if !ok {
			return
		}

		producer, ok := h.at(pos)
		if !ok {
			return
		}

		if !haveLast || producer.Vaddr != lastEmitted {
			emit(producer)
			lastEmitted = producer.Vaddr
			haveLast = true
		}

		if producer.AddrSource == AddrSourceRd {
			return
		}

		rec(producer.Rs1, pos)
		rec(producer.Rs2, pos)
	}

	rec(reg, before)
}
