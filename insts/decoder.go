package insts

// Op represents a decoded privileged operation.
type Op uint16

// Operations.
const (
	OpUnknown Op = iota
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI
	OpSRET
	OpMRET
	OpWFI
	OpSFENCEVMA
	OpSINVALVMA
	OpSFENCEWINVAL
	OpSFENCEINVALIR
	OpHFENCEVVMA
	OpHFENCEGVMA
	OpHINVALVVMA
	OpHINVALGVMA
	OpFENCEI
	OpHLV
	OpHSV
)

var opNames = map[Op]string{
	OpUnknown:       "unknown",
	OpCSRRW:         "csrrw",
	OpCSRRS:         "csrrs",
	OpCSRRC:         "csrrc",
	OpCSRRWI:        "csrrwi",
	OpCSRRSI:        "csrrsi",
	OpCSRRCI:        "csrrci",
	OpSRET:          "sret",
	OpMRET:          "mret",
	OpWFI:           "wfi",
	OpSFENCEVMA:     "sfence.vma",
	OpSINVALVMA:     "sinval.vma",
	OpSFENCEWINVAL:  "sfence.w.inval",
	OpSFENCEINVALIR: "sfence.inval.ir",
	OpHFENCEVVMA:    "hfence.vvma",
	OpHFENCEGVMA:    "hfence.gvma",
	OpHINVALVVMA:    "hinval.vvma",
	OpHINVALGVMA:    "hinval.gvma",
	OpFENCEI:        "fence.i",
	OpHLV:           "hlv",
	OpHSV:           "hsv",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "unknown"
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatCSR       // CSR access with a register operand
	FormatCSRImm    // CSR access with a 5-bit immediate operand
	FormatPriv      // funct12-encoded privileged instruction
	FormatFence     // funct7-encoded fence with rs1/rs2 operands
	FormatFenceI    // MISC-MEM fence.i
	FormatHypLoad   // hypervisor virtual-machine load
	FormatHypStore  // hypervisor virtual-machine store
)

// Major opcodes.
const (
	opcodeSystem  = 0x73
	opcodeMiscMem = 0x0F
)

// funct12 values of the SYSTEM funct3=0 instructions.
const (
	Funct12SRET          = 0x102
	Funct12WFI           = 0x105
	Funct12SFENCEWINVAL  = 0x180
	Funct12SFENCEINVALIR = 0x181
	Funct12MRET          = 0x302
)

// funct7 values of the fence instructions.
const (
	Funct7SFENCEVMA  = 0x09
	Funct7SINVALVMA  = 0x0b
	Funct7HFENCEVVMA = 0x11
	Funct7HINVALVVMA = 0x13
	Funct7HFENCEGVMA = 0x31
	Funct7HINVALGVMA = 0x33
)

// Instruction represents a decoded SYSTEM instruction.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding format

	Rd  uint8 // Destination register
	Rs1 uint8 // First source register
	Rs2 uint8 // Second source register

	// CSR is the CSR address of CSR access instructions.
	CSR uint16

	// Imm is the zero-extended 5-bit operand of the CSR immediate forms.
	Imm uint64

	// Funct12 is bits 31:20 of the word. For privileged instructions and
	// fences it is the operation code handed to the hart; for hypervisor
	// loads it selects the access width.
	Funct12 uint32

	// Funct7 is bits 31:25 of the word.
	Funct7 uint32
}

// WritesCSR reports whether the instruction writes its CSR. CSRRW always
// does; the set and clear forms write only when they name a source.
func (i *Instruction) WritesCSR() bool {
	switch i.Op {
	case OpCSRRW, OpCSRRWI:
		return true
	case OpCSRRS, OpCSRRC:
		return i.Rs1 != 0
	case OpCSRRSI, OpCSRRCI:
		return i.Imm != 0
	}
	return false
}

// ReadsCSR reports whether the instruction reads its CSR. CSRRW with rd=x0
// performs no read.
func (i *Instruction) ReadsCSR() bool {
	switch i.Op {
	case OpCSRRW, OpCSRRWI:
		return i.Rd != 0
	case OpCSRRS, OpCSRRC, OpCSRRSI, OpCSRRCI:
		return true
	}
	return false
}

// Decoder decodes RISC-V machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new SYSTEM instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Words outside the supported set
// decode to OpUnknown.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Op: OpUnknown, Format: FormatUnknown}

	inst.Rd = uint8((word >> 7) & 0x1F)
	inst.Rs1 = uint8((word >> 15) & 0x1F)
	inst.Rs2 = uint8((word >> 20) & 0x1F)
	inst.Funct12 = word >> 20
	inst.Funct7 = word >> 25
	funct3 := (word >> 12) & 0x7

	switch word & 0x7F {
	case opcodeSystem:
		d.decodeSystem(word, funct3, inst)
	case opcodeMiscMem:
		if funct3 == 1 {
			inst.Op = OpFENCEI
			inst.Format = FormatFenceI
		}
	}

	return inst
}

func (d *Decoder) decodeSystem(word, funct3 uint32, inst *Instruction) {
	switch funct3 {
	case 0:
		d.decodePriv(inst)
	case 4:
		d.decodeHypervisor(inst)
	default:
		d.decodeCSR(word, funct3, inst)
	}
}

// decodeCSR decodes the Zicsr instructions.
// Format: csr[31:20] | rs1/uimm[19:15] | funct3[14:12] | rd[11:7] | 1110011
func (d *Decoder) decodeCSR(word, funct3 uint32, inst *Instruction) {
	inst.CSR = uint16(word >> 20)

	switch funct3 {
	case 1:
		inst.Op = OpCSRRW
	case 2:
		inst.Op = OpCSRRS
	case 3:
		inst.Op = OpCSRRC
	case 5:
		inst.Op = OpCSRRWI
	case 6:
		inst.Op = OpCSRRSI
	case 7:
		inst.Op = OpCSRRCI
	}

	if funct3 >= 5 {
		inst.Format = FormatCSRImm
		inst.Imm = uint64(inst.Rs1)
	} else {
		inst.Format = FormatCSR
	}
}

// decodePriv decodes the funct3=0 privileged instructions. Trap returns,
// wfi and the svinval barriers take no operands; the fences are identified
// by funct7 and carry rs1/rs2.
func (d *Decoder) decodePriv(inst *Instruction) {
	if inst.Rd != 0 {
		return
	}

	if inst.Rs1 == 0 {
		inst.Format = FormatPriv
		switch inst.Funct12 {
		case Funct12SRET:
			inst.Op = OpSRET
			return
		case Funct12MRET:
			inst.Op = OpMRET
			return
		case Funct12WFI:
			inst.Op = OpWFI
			return
		case Funct12SFENCEWINVAL:
			inst.Op = OpSFENCEWINVAL
			return
		case Funct12SFENCEINVALIR:
			inst.Op = OpSFENCEINVALIR
			return
		}
		inst.Format = FormatUnknown
	}

	inst.Format = FormatFence
	switch inst.Funct7 {
	case Funct7SFENCEVMA:
		inst.Op = OpSFENCEVMA
	case Funct7SINVALVMA:
		inst.Op = OpSINVALVMA
	case Funct7HFENCEVVMA:
		inst.Op = OpHFENCEVVMA
	case Funct7HFENCEGVMA:
		inst.Op = OpHFENCEGVMA
	case Funct7HINVALVVMA:
		inst.Op = OpHINVALVVMA
	case Funct7HINVALGVMA:
		inst.Op = OpHINVALGVMA
	default:
		inst.Format = FormatUnknown
	}
}

// decodeHypervisor decodes HLV/HLVX/HSV. Loads use even funct7 values and
// encode the width in funct12; stores use odd funct7 values with rd=x0.
func (d *Decoder) decodeHypervisor(inst *Instruction) {
	if inst.Funct7&0x71 == 0x30 {
		switch inst.Funct12 {
		case 0x600, 0x601, 0x640, 0x641, 0x643, 0x680, 0x681, 0x683, 0x6c0:
			inst.Op = OpHLV
			inst.Format = FormatHypLoad
		}
		return
	}

	if inst.Funct7&0x71 == 0x31 && inst.Rd == 0 {
		inst.Op = OpHSV
		inst.Format = FormatHypStore
	}
}
