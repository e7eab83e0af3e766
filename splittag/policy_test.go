package splittag_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tbtrace/splittag"
)

var _ = Describe("ParsePolicy", func() {
	It("resolves the three known names", func() {
		for _, name := range []string{"lru", "fifo", "rand"} {
			p, err := splittag.ParsePolicy(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).NotTo(BeNil())
		}
	})

	It("rejects an unknown name", func() {
		_, err := splittag.ParsePolicy("mru")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("FIFOPolicy", func() {
	It("evicts in insertion order", func() {
		p := splittag.NewFIFOPolicy()
		meta := p.InitSet(3)

		p.OnMiss(meta, 0)
		p.OnMiss(meta, 1)
		p.OnMiss(meta, 2)

		Expect(p.Victim(meta, 3)).To(Equal(0))
		Expect(p.Victim(meta, 3)).To(Equal(1))
		Expect(p.Victim(meta, 3)).To(Equal(2))
	})
})

var _ = Describe("RandPolicy", func() {
	It("is deterministic for a fixed seed", func() {
		p1 := splittag.NewSeededRandPolicy(42)
		p2 := splittag.NewSeededRandPolicy(42)

		for i := 0; i < 10; i++ {
			Expect(p1.Victim(nil, 4)).To(Equal(p2.Victim(nil, 4)))
		}
	})

	It("stays within [0, assoc)", func() {
		p := splittag.NewSeededRandPolicy(7)
		for i := 0; i < 100; i++ {
			v := p.Victim(nil, 5)
			Expect(v).To(BeNumerically(">=", 0))
			Expect(v).To(BeNumerically("<", 5))
		}
	})
})

var _ = Describe("LRUPolicy", func() {
	It("breaks ties on untouched blocks by lowest index", func() {
		p := splittag.NewLRUPolicy()
		meta := p.InitSet(4)
		Expect(p.Victim(meta, 4)).To(Equal(0))
	})
})
