package addrtrace_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tbtrace/addrtrace"
	"github.com/sarchlab/tbtrace/internal/synthost"
)

var _ = Describe("Plugin", func() {
	It("emits a triggering load's chain followed by a separator", func() {
		trace := strings.Join([]string{
			"0x1000 lui a1, 0x10",
			"0x1004 add a0, a1, zero",
			"0x1008 lw a2, 0(a0)",
		}, "\n")

		var out bytes.Buffer
		p := addrtrace.NewPlugin(0, &out)

		err := synthost.Run(p, strings.NewReader(trace), 0)
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
		Expect(lines).To(Equal([]string{
			"0x00001008 lw a2, 0(a0)",
			"0x00001004 add a0, a1, zero",
			"0x00001000 lui a1, 0x10",
			addrtrace.Separator,
		}))
	})

	It("does not trigger a walk for a non-address-bearing instruction", func() {
		trace := "0x1000 add a0, a1, a2"

		var out bytes.Buffer
		p := addrtrace.NewPlugin(0, &out)

		err := synthost.Run(p, strings.NewReader(trace), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(BeEmpty())
	})
})
