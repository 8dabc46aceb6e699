package hart_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/rvcsr/config"
	"github.com/sarchlab/rvcsr/csr"
	"github.com/sarchlab/rvcsr/hart"
)

var _ = Describe("Write effects", func() {
	var (
		mockCtrl *gomock.Controller
		mmu      *hart.MockMMU
		system   *hart.MockSystem
		fpu      *hart.MockFPU
		vpu      *hart.MockVPU
		cfg      *config.Config
		h        *hart.Hart
	)

	build := func() {
		h = hart.New(cfg,
			hart.WithMMU(mmu),
			hart.WithSystem(system),
			hart.WithFPU(fpu),
			hart.WithVPU(vpu),
		)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mmu = hart.NewMockMMU(mockCtrl)
		system = hart.NewMockSystem(mockCtrl)
		fpu = hart.NewMockFPU(mockCtrl)
		vpu = hart.NewMockVPU(mockCtrl)
		cfg = config.DefaultConfig()
		build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should update translation, flush and mark state dirty after satp", func() {
		gomock.InOrder(
			mmu.EXPECT().UpdateState(),
			mmu.EXPECT().Flush(uint64(0)),
			system.EXPECT().MarkStateDirty(),
		)

		Expect(h.Write(csr.Satp, csr.SatpModeSv39<<60|0x42)).To(Succeed())
	})

	It("should update translation and mark state dirty after mstatus", func() {
		gomock.InOrder(
			mmu.EXPECT().UpdateState(),
			system.EXPECT().MarkStateDirty(),
		)

		Expect(h.Write(csr.Mstatus, csr.MstatusMIE)).To(Succeed())
	})

	It("should only mark state dirty after sstatus", func() {
		system.EXPECT().MarkStateDirty()

		Expect(h.Write(csr.Sstatus, csr.MstatusSIE)).To(Succeed())
	})

	It("should flush the code cache after hstatus", func() {
		system.EXPECT().FlushCodeCache()

		Expect(h.Write(csr.Hstatus, csr.HstatusSPV)).To(Succeed())
	})

	It("should update translation after hgatp and vsatp", func() {
		mmu.EXPECT().UpdateState().Times(2)

		Expect(h.Write(csr.Hgatp, 0)).To(Succeed())
		Expect(h.Write(csr.Vsatp, 0)).To(Succeed())
	})

	It("should mark state dirty after interrupt enable and pending writes", func() {
		system.EXPECT().MarkStateDirty().Times(4)

		Expect(h.Write(csr.Mie, csr.IrqMTI)).To(Succeed())
		Expect(h.Write(csr.Mip, csr.IrqSSI)).To(Succeed())
		Expect(h.Write(csr.Sie, 0)).To(Succeed())
		Expect(h.Write(csr.Sip, 0)).To(Succeed())
	})

	It("should have no effect after a plain scratch write", func() {
		Expect(h.Write(csr.Mscratch, 0xdead)).To(Succeed())
		Expect(h.Read(csr.Mscratch)).To(Equal(uint64(0xdead)))
	})

	It("should have no effect after a read", func() {
		_, err := h.Read(csr.Satp)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should have no effect after a trapped write", func() {
		h.SetMode(csr.ModeU)

		Expect(h.Write(csr.Satp, 0)).To(beIllegal())
	})

	Context("floating-point state", func() {
		It("should dirty the FPU and update the rounding mode", func() {
			gomock.InOrder(
				fpu.EXPECT().SetDirty(),
				fpu.EXPECT().UpdateRoundingMode(uint64(3)),
			)

			Expect(h.Write(csr.Fcsr, 3<<5|0x05)).To(Succeed())

			Expect(h.Read(csr.Fflags)).To(Equal(uint64(0x05)))
			Expect(h.Read(csr.Frm)).To(Equal(uint64(3)))
			ms := h.File().Get(csr.Mstatus)
			Expect(csr.Field(ms, csr.MstatusFS)).To(Equal(csr.ExtDirty))
			Expect(ms & csr.MstatusSD).NotTo(BeZero())
		})

		It("should keep fcsr consistent with fflags and frm", func() {
			fpu.EXPECT().SetDirty().AnyTimes()
			fpu.EXPECT().UpdateRoundingMode(gomock.Any()).AnyTimes()

			Expect(h.Write(csr.Fflags, 0xff)).To(Succeed())
			Expect(h.Write(csr.Frm, 0xf)).To(Succeed())

			Expect(h.Read(csr.Fcsr)).To(Equal(uint64(7<<5 | 0x1f)))
			Expect(h.Read(csr.Fflags)).To(Equal(uint64(0x1f)))
			Expect(h.Read(csr.Frm)).To(Equal(uint64(7)))
		})

		It("should dirty vsstatus too while virtualized", func() {
			fpu.EXPECT().SetDirty()
			fpu.EXPECT().UpdateRoundingMode(uint64(0))
			h.SetMode(csr.ModeS)
			h.SetVirtualized(true)

			Expect(h.Write(csr.Fflags, 1)).To(Succeed())

			vs := h.File().Get(csr.Vsstatus)
			Expect(csr.Field(vs, csr.MstatusFS)).To(Equal(csr.ExtDirty))
		})

		It("should pin a non-off FS to dirty when configured", func() {
			cfg.FSAlwaysDirty = true
			build()
			mmu.EXPECT().UpdateState()
			system.EXPECT().MarkStateDirty()

			Expect(h.Write(csr.Mstatus, csr.ExtInitial<<csr.MstatusFSShift)).To(Succeed())

			ms, err := h.Read(csr.Mstatus)
			Expect(err).NotTo(HaveOccurred())
			Expect(csr.Field(ms, csr.MstatusFS)).To(Equal(csr.ExtDirty))
			Expect(ms & csr.MstatusSD).NotTo(BeZero())
		})
	})

	Context("vector state", func() {
		It("should dirty the VPU and pack vcsr", func() {
			vpu.EXPECT().SetDirty()

			Expect(h.Write(csr.Vxrm, 2)).To(Succeed())

			Expect(h.Read(csr.Vcsr)).To(Equal(uint64(4)))
			ms := h.File().Get(csr.Mstatus)
			Expect(csr.Field(ms, csr.MstatusVS)).To(Equal(csr.ExtDirty))
			Expect(ms & csr.MstatusSD).NotTo(BeZero())
		})

		It("should split a vcsr write into vxrm and vxsat", func() {
			vpu.EXPECT().SetDirty()

			Expect(h.Write(csr.Vcsr, 0xff)).To(Succeed())

			Expect(h.Read(csr.Vxrm)).To(Equal(uint64(3)))
			Expect(h.Read(csr.Vxsat)).To(Equal(uint64(1)))
			Expect(h.Read(csr.Vcsr)).To(Equal(uint64(7)))
		})

		It("should report vlenb from the vector width", func() {
			Expect(h.Read(csr.Vlenb)).To(Equal(uint64(16)))
		})

		It("should expose vl and vtype read-only", func() {
			h.SetVectorState(5, 0x18)

			Expect(h.Read(csr.Vl)).To(Equal(uint64(5)))
			Expect(h.Read(csr.Vtype)).To(Equal(uint64(0x18)))
			Expect(h.Write(csr.Vl, 1)).To(beIllegal())
		})
	})

	Context("staged writes", func() {
		It("should leave every register unchanged when a handler traps", func() {
			h.File().Set(csr.Mstatus, h.File().Get(csr.Mstatus)|csr.MstatusTVM)
			h.File().Set(csr.Satp, 0x1234)
			h.SetMode(csr.ModeS)

			err := h.Write(csr.Satp, csr.SatpModeSv39<<60)

			Expect(err).To(beIllegal())
			Expect(trapOf(err).CSR).To(Equal(csr.Satp))
			Expect(h.File().Get(csr.Satp)).To(Equal(uint64(0x1234)))
		})

		It("should return the value read before the write", func() {
			h.File().Set(csr.Mscratch, 7)

			old, err := h.Access(csr.Mscratch, 9, true, true)

			Expect(err).NotTo(HaveOccurred())
			Expect(old).To(Equal(uint64(7)))
			Expect(h.Read(csr.Mscratch)).To(Equal(uint64(9)))
		})
	})
})
