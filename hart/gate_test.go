package hart_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvcsr/config"
	"github.com/sarchlab/rvcsr/csr"
	"github.com/sarchlab/rvcsr/hart"
)

var _ = Describe("Access control", func() {
	var (
		cfg *config.Config
		h   *hart.Hart
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		h = hart.New(cfg)
	})

	Context("register existence", func() {
		It("should raise illegal instruction for an absent register", func() {
			_, err := h.Read(0x7C0)

			Expect(err).To(beIllegal())
			t := trapOf(err)
			Expect(t.HasCSR).To(BeTrue())
			Expect(t.CSR).To(Equal(uint16(0x7C0)))
		})

		It("should treat extension registers as absent when the extension is off", func() {
			h = hart.New(config.MinimalConfig())

			_, err := h.Read(csr.Hstatus)
			Expect(err).To(beIllegal())
			_, err = h.Read(csr.Fcsr)
			Expect(err).To(beIllegal())
			_, err = h.Read(csr.PMPCfgBase)
			Expect(err).To(beIllegal())
		})

		It("should panic when configured to treat absent registers as fatal", func() {
			cfg.PanicOnUnimplementedCSR = true
			h = hart.New(cfg)

			Expect(func() { _, _ = h.Read(0x7C0) }).To(
				PanicWith(&hart.UnimplementedCSRError{Addr: 0x7C0}))
		})
	})

	Context("privilege level", func() {
		It("should allow machine mode to access every level", func() {
			_, err := h.Read(csr.Mstatus)
			Expect(err).NotTo(HaveOccurred())
			_, err = h.Read(csr.Hstatus)
			Expect(err).NotTo(HaveOccurred())
			_, err = h.Read(csr.Sstatus)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should deny machine registers to HS mode", func() {
			h.SetMode(csr.ModeS)

			_, err := h.Read(csr.Mstatus)
			Expect(err).To(beIllegal())
		})

		It("should allow hypervisor registers to HS mode", func() {
			h.SetMode(csr.ModeS)

			_, err := h.Read(csr.Hstatus)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should deny supervisor registers to U mode", func() {
			h.SetMode(csr.ModeU)

			_, err := h.Read(csr.Sstatus)
			Expect(err).To(beIllegal())
		})

		It("should raise virtual instruction for hypervisor registers in VS mode", func() {
			h.SetMode(csr.ModeS)
			h.SetVirtualized(true)

			_, err := h.Read(csr.Hstatus)
			Expect(err).To(beVirtual())
		})

		It("should raise illegal instruction for machine registers in VS mode", func() {
			h.SetMode(csr.ModeS)
			h.SetVirtualized(true)

			_, err := h.Read(csr.Mstatus)
			Expect(err).To(beIllegal())
		})

		It("should raise virtual instruction for supervisor registers in VU mode", func() {
			h.SetMode(csr.ModeU)
			h.SetVirtualized(true)

			_, err := h.Read(csr.Sstatus)
			Expect(err).To(beVirtual())
		})
	})

	Context("read-only registers", func() {
		It("should read mhartid", func() {
			cfg.HartID = 3
			h = hart.New(cfg)

			Expect(h.Read(csr.Mhartid)).To(Equal(uint64(3)))
		})

		It("should raise illegal instruction on a write", func() {
			err := h.Write(csr.Mhartid, 1)

			Expect(err).To(beIllegal())
			Expect(h.File().Get(csr.Mhartid)).To(BeZero())
		})

		It("should raise illegal instruction on a write of a counter", func() {
			Expect(h.Write(csr.Cycle, 1)).To(beIllegal())
		})

		It("should allow an access that reads only", func() {
			_, err := h.Access(csr.Mhartid, 0, true, false)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("counter enables", func() {
		setEnables := func(m, hv, s uint64) {
			h.File().Set(csr.Mcounteren, m)
			h.File().Set(csr.Hcounteren, hv)
			h.File().Set(csr.Scounteren, s)
		}

		It("should deny cycle to S mode when mcounteren.CY is clear", func() {
			h.SetMode(csr.ModeS)
			setEnables(0, 1, 1)

			_, err := h.Read(csr.Cycle)
			Expect(err).To(beIllegal())
		})

		It("should allow cycle to S mode when mcounteren.CY is set", func() {
			h.SetMode(csr.ModeS)
			setEnables(1, 0, 0)

			_, err := h.Read(csr.Cycle)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should check the bit of the accessed counter", func() {
			h.SetMode(csr.ModeS)
			setEnables(1, 0, 0)

			_, err := h.Read(csr.Time)
			Expect(err).To(beIllegal())
		})

		DescribeTable("the counter-enable matrix",
			func(mode csr.Mode, virt bool, m, hv, s uint64, want string) {
				h.SetMode(mode)
				h.SetVirtualized(virt)
				setEnables(m, hv, s)

				_, err := h.Read(csr.Instret)

				switch want {
				case "ok":
					Expect(err).NotTo(HaveOccurred())
				case "II":
					Expect(err).To(beIllegal())
				case "VI":
					Expect(err).To(beVirtual())
				}
			},
			Entry("U without mcounteren", csr.ModeU, false, uint64(0), uint64(4), uint64(4), "II"),
			Entry("U without scounteren", csr.ModeU, false, uint64(4), uint64(4), uint64(0), "II"),
			Entry("U with both", csr.ModeU, false, uint64(4), uint64(0), uint64(4), "ok"),
			Entry("VS without mcounteren", csr.ModeS, true, uint64(0), uint64(4), uint64(4), "II"),
			Entry("VS without hcounteren", csr.ModeS, true, uint64(4), uint64(0), uint64(4), "VI"),
			Entry("VS without scounteren", csr.ModeS, true, uint64(4), uint64(4), uint64(0), "ok"),
			Entry("VU without hcounteren", csr.ModeU, true, uint64(4), uint64(0), uint64(4), "VI"),
			Entry("VU without scounteren", csr.ModeU, true, uint64(4), uint64(4), uint64(0), "VI"),
			Entry("VU with all three", csr.ModeU, true, uint64(4), uint64(4), uint64(4), "ok"),
			Entry("M with none", csr.ModeM, false, uint64(0), uint64(0), uint64(0), "ok"),
		)
	})
})
