package hart_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvcsr/config"
	"github.com/sarchlab/rvcsr/csr"
	"github.com/sarchlab/rvcsr/hart"
)

var _ = Describe("Counters", func() {
	var (
		counter *hart.RetireCounter
		h       *hart.Hart
	)

	BeforeEach(func() {
		counter = &hart.RetireCounter{}
		h = hart.New(config.DefaultConfig(), hart.WithCounter(counter))
	})

	It("should count retired instructions", func() {
		counter.Retire(100)

		Expect(h.Read(csr.Mcycle)).To(Equal(uint64(100)))
		Expect(h.Read(csr.Minstret)).To(Equal(uint64(100)))
		Expect(h.Read(csr.Cycle)).To(Equal(uint64(100)))
		Expect(h.Read(csr.Instret)).To(Equal(uint64(100)))
	})

	It("should continue counting from a written value", func() {
		counter.Retire(100)

		Expect(h.Write(csr.Mcycle, 1000)).To(Succeed())
		counter.Retire(5)

		Expect(h.Read(csr.Mcycle)).To(Equal(uint64(1005)))
		Expect(h.Read(csr.Minstret)).To(Equal(uint64(105)))
	})

	It("should freeze an inhibited counter and resume without a jump", func() {
		counter.Retire(100)

		Expect(h.Write(csr.Mcountinhibit, 1)).To(Succeed())
		counter.Retire(50)

		Expect(h.Read(csr.Mcycle)).To(Equal(uint64(100)))
		Expect(h.Read(csr.Minstret)).To(Equal(uint64(150)))

		Expect(h.Write(csr.Mcountinhibit, 0)).To(Succeed())
		Expect(h.Read(csr.Mcycle)).To(Equal(uint64(100)))

		counter.Retire(10)
		Expect(h.Read(csr.Mcycle)).To(Equal(uint64(110)))
	})

	It("should store a written value directly while inhibited", func() {
		Expect(h.Write(csr.Mcountinhibit, 4)).To(Succeed())
		counter.Retire(30)

		Expect(h.Write(csr.Minstret, 7)).To(Succeed())
		Expect(h.Read(csr.Minstret)).To(Equal(uint64(7)))

		Expect(h.Write(csr.Mcountinhibit, 0)).To(Succeed())
		counter.Retire(3)
		Expect(h.Read(csr.Minstret)).To(Equal(uint64(10)))
	})

	It("should only make CY and IR inhibitable", func() {
		Expect(h.Write(csr.Mcountinhibit, ^uint64(0))).To(Succeed())

		Expect(h.Read(csr.Mcountinhibit)).To(Equal(uint64(5)))
	})

	It("should read time from the clock", func() {
		clock := &hart.RetireCounter{}
		h = hart.New(config.DefaultConfig(), hart.WithClock(clock))
		clock.Retire(42)

		Expect(h.Read(csr.Time)).To(Equal(uint64(42)))
	})

	It("should read hardware performance counters as zero", func() {
		Expect(h.Write(csr.MHPMCounterBase, 5)).To(Succeed())
		Expect(h.Write(csr.MHPMEventBase+4, 5)).To(Succeed())

		Expect(h.Read(csr.MHPMCounterBase)).To(BeZero())
		Expect(h.Read(csr.MHPMEventBase + 4)).To(BeZero())
		Expect(h.Read(csr.HPMCounterBase + 28)).To(BeZero())
	})
})
