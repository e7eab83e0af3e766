package splittag_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tbtrace/host"
	"github.com/sarchlab/tbtrace/internal/synthost"
	"github.com/sarchlab/tbtrace/splittag"
)

var _ = Describe("Plugin", func() {
	info := host.Info{SystemEmulation: false, VCPUCount: 1}

	run := func(argv []string, trace string) string {
		cfg, err := splittag.ParseArgs(argv, info)
		Expect(err).NotTo(HaveOccurred())
		engine, err := splittag.NewEngine(cfg)
		Expect(err).NotTo(HaveOccurred())

		var out bytes.Buffer
		p := splittag.NewPlugin(engine, &out)
		Expect(synthost.Run(p, strings.NewReader(trace), 0)).To(Succeed())
		return out.String()
	}

	It("renders the stats table and top-N report at exit", func() {
		trace := strings.Join([]string{
			"0x100 lw a0, 0(a1); mem=0x2000",
			"0x104 sw a0, 8(a1); mem=0x2008",
		}, "\n")

		out := run(nil, trace)
		Expect(out).To(ContainSubstring("core #"))
		Expect(out).To(ContainSubstring("data accesses"))
		Expect(out).To(ContainSubstring("data misses"))
		Expect(out).To(ContainSubstring("fetch misses"))
	})

	It("counts nothing before the start marker and dumps on the stop marker", func() {
		trace := strings.Join([]string{
			"0x100 lw a0, 0(a1); mem=0x2000",
			"0x104 csrrs zero, time, zero; op=0xc0102073",
			"0x108 lw a0, 0(a1); mem=0x2000",
			"0x10c csrrs zero, cycle, zero; op=0xc0002073",
		}, "\n")

		out := run([]string{"magic=on"}, trace)

		// One table from the stop marker, one from exit; the second is fully
		// reset since nothing ran between stop and exit.
		Expect(strings.Count(out, "core #")).To(Equal(2))
		Expect(out).To(ContainSubstring("data accesses"))
	})
})
