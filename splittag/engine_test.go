package splittag_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tbtrace/host"
	"github.com/sarchlab/tbtrace/splittag"
)

type fakeMemAccess struct {
	vaddr uint64
	hw    uint64
	isIO  bool
	ok    bool
}

func (m fakeMemAccess) Vaddr() uint64                { return m.vaddr }
func (m fakeMemAccess) HWAddr() (uint64, bool, bool) { return m.hw, m.isIO, m.ok }

var _ = Describe("Engine", func() {
	newEngine := func(magic bool) *splittag.Engine {
		cfg := splittag.DefaultConfig(host.Info{SystemEmulation: false, VCPUCount: 1})
		cfg.Magic = magic
		e, err := splittag.NewEngine(cfg)
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("counts a data miss on first access", func() {
		e := newEngine(false)
		reg := e.Registry()
		rec := reg.Intern(0x1000, "lw a0, 0(a1)", "")

		e.OnMemAccess(0, fakeMemAccess{vaddr: 0x2000, hw: 0x2000, ok: true}, rec)

		var buf bytes.Buffer
		e.Dump(&buf, false)
		Expect(buf.String()).To(ContainSubstring("1"))
	})

	It("skips IO-mapped memory accesses entirely", func() {
		e := newEngine(false)
		reg := e.Registry()
		rec := reg.Intern(0x1000, "lw a0, 0(a1)", "")

		e.OnMemAccess(0, fakeMemAccess{vaddr: 0x2000, hw: 0x2000, isIO: true, ok: true}, rec)

		var buf bytes.Buffer
		e.Dump(&buf, false)
		// No accesses should have been counted on the data cache.
		Expect(buf.String()).To(ContainSubstring("data accesses"))
		Expect(buf.String()).To(MatchRegexp(`(?m)^0\s+0\s+0\s`))
	})

	It("suppresses all counting until the start marker fires when magic is enabled", func() {
		e := newEngine(true)
		reg := e.Registry()
		rec := reg.Intern(0x1000, "lw a0, 0(a1)", "")

		// Before the start marker nothing is counted; after it, one access.
		e.OnMemAccess(0, fakeMemAccess{vaddr: 0x2000, hw: 0x2000, ok: true}, rec)
		e.StartInstrumentation(0)
		e.OnMemAccess(0, fakeMemAccess{vaddr: 0x2004, hw: 0x2004, ok: true}, rec)

		var stopOut bytes.Buffer
		e.StopInstrumentation(0, &stopOut)
		Expect(stopOut.String()).To(ContainSubstring("data accesses"))
		// Core 0's row: 1 data access, 1 data miss.
		Expect(stopOut.String()).To(MatchRegexp(`(?m)^0\s+1\s+1\s`))

		// The stop marker reported and reset; a fresh dump shows zeroed
		// counters, and further accesses stay suppressed until restarted.
		e.OnMemAccess(0, fakeMemAccess{vaddr: 0x2008, hw: 0x2008, ok: true}, rec)
		var after bytes.Buffer
		e.Dump(&after, false)
		Expect(after.String()).To(ContainSubstring("0"))
		Expect(after.String()).To(MatchRegexp(`(?m)^0\s+0\s+0\s`))
	})
})
