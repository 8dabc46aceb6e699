package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvcsr/insts"
)

// system assembles a SYSTEM-opcode word.
func system(funct12, rs1, funct3, rd uint32) uint32 {
	return funct12<<20 | rs1<<15 | funct3<<12 | rd<<7 | 0x73
}

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("CSR access", func() {
		// CSRRW x1, mstatus, x2 -> 0x300110f3
		It("should decode CSRRW x1, mstatus, x2", func() {
			inst := decoder.Decode(0x300110f3)

			Expect(inst.Op).To(Equal(insts.OpCSRRW))
			Expect(inst.Format).To(Equal(insts.FormatCSR))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.CSR).To(Equal(uint16(0x300)))
			Expect(inst.ReadsCSR()).To(BeTrue())
			Expect(inst.WritesCSR()).To(BeTrue())
		})

		// CSRRS x5, cycle, x0 -> csrr x5, cycle
		It("should decode a read-only CSRRS", func() {
			inst := decoder.Decode(system(0xC00, 0, 2, 5))

			Expect(inst.Op).To(Equal(insts.OpCSRRS))
			Expect(inst.CSR).To(Equal(uint16(0xC00)))
			Expect(inst.ReadsCSR()).To(BeTrue())
			Expect(inst.WritesCSR()).To(BeFalse())
		})

		It("should decode CSRRC with a source as a write", func() {
			inst := decoder.Decode(system(0x100, 3, 3, 0))

			Expect(inst.Op).To(Equal(insts.OpCSRRC))
			Expect(inst.WritesCSR()).To(BeTrue())
		})

		It("should skip the read of CSRRW to x0", func() {
			inst := decoder.Decode(system(0x340, 4, 1, 0))

			Expect(inst.ReadsCSR()).To(BeFalse())
			Expect(inst.WritesCSR()).To(BeTrue())
		})

		// CSRRSI x0, sstatus, 2 -> csrsi sstatus, 2
		It("should decode the immediate forms", func() {
			inst := decoder.Decode(system(0x100, 2, 6, 0))

			Expect(inst.Op).To(Equal(insts.OpCSRRSI))
			Expect(inst.Format).To(Equal(insts.FormatCSRImm))
			Expect(inst.Imm).To(Equal(uint64(2)))
			Expect(inst.WritesCSR()).To(BeTrue())

			inst = decoder.Decode(system(0x100, 0, 7, 1))
			Expect(inst.Op).To(Equal(insts.OpCSRRCI))
			Expect(inst.WritesCSR()).To(BeFalse())

			inst = decoder.Decode(system(0x100, 0, 5, 1))
			Expect(inst.Op).To(Equal(insts.OpCSRRWI))
			Expect(inst.WritesCSR()).To(BeTrue())
		})
	})

	Describe("Privileged instructions", func() {
		It("should decode SRET", func() {
			inst := decoder.Decode(0x10200073)

			Expect(inst.Op).To(Equal(insts.OpSRET))
			Expect(inst.Format).To(Equal(insts.FormatPriv))
			Expect(inst.Funct12).To(Equal(uint32(insts.Funct12SRET)))
		})

		It("should decode MRET", func() {
			Expect(decoder.Decode(0x30200073).Op).To(Equal(insts.OpMRET))
		})

		It("should decode WFI", func() {
			Expect(decoder.Decode(0x10500073).Op).To(Equal(insts.OpWFI))
		})

		It("should decode the svinval barriers", func() {
			Expect(decoder.Decode(system(0x180, 0, 0, 0)).Op).To(Equal(insts.OpSFENCEWINVAL))
			Expect(decoder.Decode(system(0x181, 0, 0, 0)).Op).To(Equal(insts.OpSFENCEINVALIR))
		})

		It("should not decode a privileged instruction with a destination", func() {
			Expect(decoder.Decode(system(0x102, 0, 0, 1)).Op).To(Equal(insts.OpUnknown))
		})

		It("should leave ECALL unknown", func() {
			Expect(decoder.Decode(0x00000073).Op).To(Equal(insts.OpUnknown))
		})
	})

	Describe("Fences", func() {
		// SFENCE.VMA x0, x0 -> 0x12000073
		It("should decode SFENCE.VMA x0, x0", func() {
			inst := decoder.Decode(0x12000073)

			Expect(inst.Op).To(Equal(insts.OpSFENCEVMA))
			Expect(inst.Format).To(Equal(insts.FormatFence))
			Expect(inst.Funct12 >> 5).To(Equal(uint32(insts.Funct7SFENCEVMA)))
		})

		// SFENCE.VMA a0, a1
		It("should decode register operands", func() {
			inst := decoder.Decode(0x09<<25 | 11<<20 | 10<<15 | 0x73)

			Expect(inst.Op).To(Equal(insts.OpSFENCEVMA))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Rs2).To(Equal(uint8(11)))
		})

		DescribeTable("should decode the hypervisor and invalidate fences",
			func(funct7 uint32, op insts.Op) {
				inst := decoder.Decode(funct7<<25 | 5<<15 | 0x73)
				Expect(inst.Op).To(Equal(op))
			},
			Entry("sinval.vma", uint32(0x0b), insts.OpSINVALVMA),
			Entry("hfence.vvma", uint32(0x11), insts.OpHFENCEVVMA),
			Entry("hfence.gvma", uint32(0x31), insts.OpHFENCEGVMA),
			Entry("hinval.vvma", uint32(0x13), insts.OpHINVALVVMA),
			Entry("hinval.gvma", uint32(0x33), insts.OpHINVALGVMA),
		)

		It("should decode FENCE.I", func() {
			inst := decoder.Decode(0x0000100F)

			Expect(inst.Op).To(Equal(insts.OpFENCEI))
			Expect(inst.Format).To(Equal(insts.FormatFenceI))
		})

		It("should not decode a plain FENCE", func() {
			Expect(decoder.Decode(0x0ff0000f).Op).To(Equal(insts.OpUnknown))
		})
	})

	Describe("Hypervisor loads and stores", func() {
		DescribeTable("should decode HLV widths",
			func(funct12 uint32) {
				inst := decoder.Decode(system(funct12, 10, 4, 5))

				Expect(inst.Op).To(Equal(insts.OpHLV))
				Expect(inst.Format).To(Equal(insts.FormatHypLoad))
				Expect(inst.Funct12).To(Equal(funct12))
				Expect(inst.Rd).To(Equal(uint8(5)))
			},
			Entry("hlv.b", uint32(0x600)),
			Entry("hlv.hu", uint32(0x641)),
			Entry("hlvx.hu", uint32(0x643)),
			Entry("hlvx.wu", uint32(0x683)),
			Entry("hlv.d", uint32(0x6c0)),
		)

		It("should reject an undefined HLV width", func() {
			Expect(decoder.Decode(system(0x602, 10, 4, 5)).Op).To(Equal(insts.OpUnknown))
		})

		// HSV.D a1, (a0)
		It("should decode HSV.D", func() {
			inst := decoder.Decode(0x37<<25 | 11<<20 | 10<<15 | 4<<12 | 0x73)

			Expect(inst.Op).To(Equal(insts.OpHSV))
			Expect(inst.Format).To(Equal(insts.FormatHypStore))
			Expect(inst.Funct7).To(Equal(uint32(0x37)))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Rs2).To(Equal(uint8(11)))
		})
	})
})
