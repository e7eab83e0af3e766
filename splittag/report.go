package splittag

import (
	"fmt"
	"io"
	"sort"
)

// coreSnapshot is one row's worth of counters for the stats table.
type coreSnapshot struct {
	dAccesses, dMisses, dInvals uint64
	iAccesses, iMisses, iInvals uint64
	l2Accesses, l2Misses, l2Invals uint64
}

func snapshotOf(c *perCore) coreSnapshot {
	s := coreSnapshot{
		dAccesses: c.l1d.Accesses, dMisses: c.l1d.Misses, dInvals: c.l1d.Invals,
		iAccesses: c.l1i.Accesses, iMisses: c.l1i.Misses, iInvals: c.l1i.Invals,
	}
	if c.l2 != nil {
		s.l2Accesses, s.l2Misses, s.l2Invals = c.l2.Accesses, c.l2.Misses, c.l2.Invals
	}
	return s
}

func missRate(misses, accesses uint64) float64 {
	if accesses == 0 {
		return 0
	}
	return float64(misses) / float64(accesses) * 100
}

func writeStatsHeader(w io.Writer, useL2 bool) {
	fmt.Fprint(w, "core #, data accesses, data misses, dmiss rate, dcache inval, "+
		"insn accesses, insn misses, imiss rate, icache inval")
	if useL2 {
		fmt.Fprint(w, ", l2 accesses, l2 misses, l2 miss rate")
	}
	fmt.Fprint(w, "\n")
}

func writeStatsRow(w io.Writer, label string, s coreSnapshot, useL2 bool) {
	fmt.Fprintf(w, "%-8s%-14d %-12d %9.4f%%  %-14d  %-14d %-12d %9.4f%%  %-14d  ",
		label,
		s.dAccesses, s.dMisses, missRate(s.dMisses, s.dAccesses), s.dInvals,
		s.iAccesses, s.iMisses, missRate(s.iMisses, s.iAccesses), s.iInvals)

	if useL2 {
		fmt.Fprintf(w, "  %-12d %-11d %10.4f%%  %-14d",
			s.l2Accesses, s.l2Misses, missRate(s.l2Misses, s.l2Accesses), s.l2Invals)
	}
	fmt.Fprint(w, "\n")
}

// Dump renders the per-core stats table to w and, when reset is true,
// zeroes every cache's counters afterward, matching the reporting a
// stop-marker triggers mid-run.
func (e *Engine) Dump(w io.Writer, reset bool) {
	writeStatsHeader(w, e.cfg.UseL2)

	var sum coreSnapshot
	for i := range e.cores {
		s := snapshotOf(&e.cores[i])
		writeStatsRow(w, fmt.Sprintf("%d", i), s, e.cfg.UseL2)

		sum.dAccesses += s.dAccesses
		sum.dMisses += s.dMisses
		sum.dInvals += s.dInvals
		sum.iAccesses += s.iAccesses
		sum.iMisses += s.iMisses
		// Sum i-invals from Invals, not from Misses: conflating the two
		// double-counts every invalidating miss as two events.
		sum.iInvals += s.iInvals
		sum.l2Accesses += s.l2Accesses
		sum.l2Misses += s.l2Misses
		sum.l2Invals += s.l2Invals

		if reset {
			e.cores[i].l1d.ResetStats()
			e.cores[i].l1i.ResetStats()
			if e.cores[i].l2 != nil {
				e.cores[i].l2.ResetStats()
			}
		}
	}

	if len(e.cores) > 1 {
		writeStatsRow(w, "sum", sum, e.cfg.UseL2)
	}

	fmt.Fprint(w, "\n")
}

// TopN renders up to e.cfg.Limit worst-offender instructions for each of
// L1-D misses, L1-I misses, and (if enabled) L2 misses.
func (e *Engine) TopN(w io.Writer) {
	records := e.registry.Records()

	writeTopSection(w, "data", records, func(r *InsnRecord) uint64 { return atomicLoad(&r.l1DMisses) }, e.cfg.Limit)
	fmt.Fprint(w, "\n")
	writeTopSection(w, "fetch", records, func(r *InsnRecord) uint64 { return atomicLoad(&r.l1IMisses) }, e.cfg.Limit)

	if e.cfg.UseL2 {
		fmt.Fprint(w, "\n")
		writeTopSection(w, "L2", records, func(r *InsnRecord) uint64 { return atomicLoad(&r.l2Misses) }, e.cfg.Limit)
	}
}

func writeTopSection(w io.Writer, kind string, records []*InsnRecord, key func(*InsnRecord) uint64, limit int) {
	sorted := append([]*InsnRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })

	fmt.Fprintf(w, "address, %s misses, instruction\n", kind)
	for i, rec := range sorted {
		if i >= limit {
			break
		}
		if rec.Symbol != "" {
			fmt.Fprintf(w, "0x%x (%s), %d, %s\n", rec.Addr, rec.Symbol, key(rec), rec.Disas)
		} else {
			fmt.Fprintf(w, "0x%x, %d, %s\n", rec.Addr, key(rec), rec.Disas)
		}
	}
}
