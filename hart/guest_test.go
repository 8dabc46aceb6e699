package hart_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/rvcsr/config"
	"github.com/sarchlab/rvcsr/csr"
	"github.com/sarchlab/rvcsr/hart"
)

var _ = Describe("Guest memory access", func() {
	var (
		mockCtrl *gomock.Controller
		memory   *hart.MockGuestMemory
		cfg      *config.Config
		h        *hart.Hart
	)

	const (
		hlvB   = 0x600
		hlvBU  = 0x601
		hlvxHU = 0x643
		hlvW   = 0x680
		hlvD   = 0x6c0
		hsvD   = 0x37
		hsvH   = 0x33
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		memory = hart.NewMockGuestMemory(mockCtrl)
		cfg = config.DefaultConfig()
		h = hart.New(cfg, hart.WithGuestMemory(memory))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	user := hart.TranslationMode{Mode: csr.ModeU}

	It("should sign-extend signed loads", func() {
		memory.EXPECT().Load(uint64(0x1000), 1, user).Return(uint64(0x80), nil)

		Expect(h.GuestLoad(hlvB, 0x1000)).To(Equal(uint64(0xFFFF_FFFF_FFFF_FF80)))
	})

	It("should zero-extend unsigned loads", func() {
		memory.EXPECT().Load(uint64(0x1000), 1, user).Return(uint64(0x80), nil)

		Expect(h.GuestLoad(hlvBU, 0x1000)).To(Equal(uint64(0x80)))
	})

	It("should sign-extend words", func() {
		memory.EXPECT().Load(uint64(0x2000), 4, user).Return(uint64(0x8000_0000), nil)

		Expect(h.GuestLoad(hlvW, 0x2000)).To(Equal(uint64(0xFFFF_FFFF_8000_0000)))
	})

	It("should pass the guest translation roots", func() {
		h.File().Set(csr.Vsatp, csr.SatpModeSv39<<60|1)
		h.File().Set(csr.Hgatp, csr.SatpModeSv39<<60|2)
		want := hart.TranslationMode{
			Mode:  csr.ModeU,
			Vsatp: csr.SatpModeSv39<<60 | 1,
			Hgatp: csr.SatpModeSv39<<60 | 2,
		}
		Expect(want.Translated()).To(BeTrue())
		memory.EXPECT().Load(uint64(0x3000), 8, want).Return(uint64(7), nil)

		Expect(h.GuestLoad(hlvD, 0x3000)).To(Equal(uint64(7)))
	})

	It("should check S-mode permissions when hstatus.SPVP is set", func() {
		h.File().Set(csr.Hstatus, h.File().Get(csr.Hstatus)|csr.HstatusSPVP)
		want := hart.TranslationMode{Mode: csr.ModeS, Execute: true}
		memory.EXPECT().Load(uint64(0x4000), 2, want).Return(uint64(0x13), nil)

		Expect(h.GuestLoad(hlvxHU, 0x4000)).To(Equal(uint64(0x13)))
	})

	It("should store the low bytes of the value", func() {
		memory.EXPECT().Store(uint64(0x5000), 2, uint64(0xBEEF), user).Return(nil)

		Expect(h.GuestStore(hsvH, 0x5000, 0xBEEF)).To(Succeed())
	})

	It("should wrap memory errors", func() {
		fault := errors.New("page fault")
		memory.EXPECT().Store(uint64(0x6000), 8, uint64(1), user).Return(fault)

		err := h.GuestStore(hsvD, 0x6000, 1)

		Expect(errors.Is(err, fault)).To(BeTrue())
		Expect(hart.IsTrap(err, hart.TrapIllegalInstruction)).To(BeFalse())
	})

	It("should allow U mode when hstatus.HU is set", func() {
		h.SetMode(csr.ModeU)
		_, err := h.GuestLoad(hlvD, 0)
		Expect(err).To(beIllegal())

		h.File().Set(csr.Hstatus, h.File().Get(csr.Hstatus)|csr.HstatusHU)
		memory.EXPECT().Load(uint64(0), 8, user).Return(uint64(0), nil)
		_, err = h.GuestLoad(hlvD, 0)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should raise virtual instruction in a guest", func() {
		h.SetMode(csr.ModeS)
		h.SetVirtualized(true)

		_, err := h.GuestLoad(hlvD, 0)
		Expect(err).To(beVirtual())
		Expect(h.GuestStore(hsvD, 0, 0)).To(beVirtual())
	})

	It("should reject an unknown width", func() {
		_, err := h.GuestLoad(0x602, 0)

		Expect(err).To(beIllegal())
		Expect(errors.Is(err, hart.ErrUnsupportedOp)).To(BeTrue())
	})

	It("should be illegal without the hypervisor extension", func() {
		cfg.Hypervisor = false
		h = hart.New(cfg, hart.WithGuestMemory(memory))

		_, err := h.GuestLoad(hlvD, 0)
		Expect(err).To(beIllegal())
	})

	It("should fail without attached memory", func() {
		h = hart.New(cfg)

		_, err := h.GuestLoad(hlvD, 0)
		Expect(errors.Is(err, hart.ErrNoGuestMemory)).To(BeTrue())
	})
})
