package hart

import "github.com/sarchlab/rvcsr/insts"

// Result is the outcome of an executed SYSTEM instruction.
type Result struct {
	// Value is written to rd when WritesRd is set.
	Value    uint64
	WritesRd bool

	// NextPC is the address to continue at when Redirect is set.
	NextPC   uint64
	Redirect bool

	Err error
}

// Execute executes a decoded instruction. rs1 and rs2 are the values of its
// source registers.
func (h *Hart) Execute(inst *insts.Instruction, rs1, rs2 uint64) Result {
	switch inst.Format {
	case insts.FormatCSR, insts.FormatCSRImm:
		return h.executeCSR(inst, rs1)

	case insts.FormatPriv, insts.FormatFence:
		pc, err := h.ExecutePrivileged(inst.Funct12, rs1)
		if err != nil {
			return Result{Err: err}
		}
		redirect := inst.Op == insts.OpSRET || inst.Op == insts.OpMRET
		return Result{NextPC: pc, Redirect: redirect}

	case insts.FormatFenceI:
		_, err := h.ExecutePrivileged(OpFenceI, 0)
		return Result{Err: err}

	case insts.FormatHypLoad:
		v, err := h.GuestLoad(inst.Funct12, rs1)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Value: v, WritesRd: inst.Rd != 0}

	case insts.FormatHypStore:
		return Result{Err: h.GuestStore(inst.Funct7, rs1, rs2)}
	}

	return Result{Err: h.logTrap(unsupported(inst.Funct12), "unknown instruction")}
}

func (h *Hart) executeCSR(inst *insts.Instruction, rs1 uint64) Result {
	src := rs1
	if inst.Format == insts.FormatCSRImm {
		src = inst.Imm
	}

	next := func(old uint64) uint64 {
		switch inst.Op {
		case insts.OpCSRRS, insts.OpCSRRSI:
			return old | src
		case insts.OpCSRRC, insts.OpCSRRCI:
			return old &^ src
		default:
			return src
		}
	}

	read := inst.ReadsCSR()
	old, err := h.access(inst.CSR, read, inst.WritesCSR(), next)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Value: old, WritesRd: read && inst.Rd != 0}
}
