package hart

import (
	"github.com/sarchlab/rvcsr/csr"
	"github.com/sarchlab/rvcsr/insts"
)

// Operation codes accepted by ExecutePrivileged. They are the funct12 field
// of the SYSTEM instruction; fences are identified by funct12>>5, their
// funct7.
const (
	OpSret          = uint32(insts.Funct12SRET)
	OpWfi           = uint32(insts.Funct12WFI)
	OpSfenceWInval  = uint32(insts.Funct12SFENCEWINVAL)
	OpSfenceInvalIR = uint32(insts.Funct12SFENCEINVALIR)
	OpMret          = uint32(insts.Funct12MRET)

	// OpFenceI is fence.i, which is not a SYSTEM instruction.
	OpFenceI uint32 = 0xFFFFFFFF
)

// ExecutePrivileged executes a privileged instruction. operand is the rs1
// value of the fences: the virtual address to flush, or 0 for all. Trap
// returns yield the address to continue at; every other operation returns 0.
// Legality is decided before any state changes.
func (h *Hart) ExecutePrivileged(op uint32, operand uint64) (uint64, error) {
	pc, err := h.executePrivileged(op, operand)
	if err != nil {
		return 0, h.logTrap(err, "privileged instruction trapped")
	}
	return pc, nil
}

func (h *Hart) executePrivileged(op uint32, operand uint64) (uint64, error) {
	switch op {
	case OpSret:
		return h.sret()
	case OpMret:
		return h.mret()
	case OpWfi:
		return 0, h.wfi()
	case OpSfenceWInval, OpSfenceInvalIR:
		return 0, h.checkSvinval()
	case OpFenceI:
		h.system.FlushCodeCache()
		return 0, nil
	}

	var err error
	switch op >> 5 {
	case insts.Funct7SFENCEVMA:
		err = h.checkSfence()
	case insts.Funct7SINVALVMA:
		err = firstErr(h.checkSvinval, h.checkSfence)
	case insts.Funct7HFENCEVVMA:
		err = h.checkHfence(false)
	case insts.Funct7HFENCEGVMA:
		err = h.checkHfence(true)
	case insts.Funct7HINVALVVMA:
		err = firstErr(h.checkSvinval, func() error { return h.checkHfence(false) })
	case insts.Funct7HINVALGVMA:
		err = firstErr(h.checkSvinval, func() error { return h.checkHfence(true) })
	default:
		return 0, unsupported(op)
	}
	if err != nil {
		return 0, err
	}

	h.mmu.Flush(operand)
	return 0, nil
}

func firstErr(checks ...func() error) error {
	for _, c := range checks {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hart) status(addr uint16, bit uint64) bool {
	return h.file.Get(addr)&bit != 0
}

// returnFrom restores the interrupt enable ie from its saved copy pie, sets
// pie and resets the previous-privilege field pp to U.
func returnFrom(status, ie, pie, pp uint64) uint64 {
	status = csr.SetField(status, ie, csr.Field(status, pie))
	status |= pie
	return csr.SetField(status, pp, uint64(csr.ModeU))
}

func (h *Hart) sret() (uint64, error) {
	if h.virt {
		if h.mode == csr.ModeU || (h.mode == csr.ModeS && h.status(csr.Hstatus, csr.HstatusVTSR)) {
			return 0, virtual()
		}

		vs := h.file.Slot(csr.Vsstatus)
		h.mode = csr.Mode(csr.Field(*vs, csr.MstatusSPP))
		*vs = returnFrom(*vs, csr.MstatusSIE, csr.MstatusSPIE, csr.MstatusSPP)
		h.mmu.UpdateState()
		return h.file.Get(csr.Vsepc), nil
	}

	if h.mode == csr.ModeU || (h.mode == csr.ModeS && h.status(csr.Mstatus, csr.MstatusTSR)) {
		return 0, illegal()
	}

	if h.cfg.Hypervisor {
		hs := h.file.Slot(csr.Hstatus)
		h.virt = *hs&csr.HstatusSPV != 0
		*hs &^= csr.HstatusSPV
		h.system.FlushCodeCache()
	}

	ms := h.file.Slot(csr.Mstatus)
	h.mode = csr.Mode(csr.Field(*ms, csr.MstatusSPP))
	*ms = returnFrom(*ms, csr.MstatusSIE, csr.MstatusSPIE, csr.MstatusSPP)
	*ms &^= csr.MstatusMPRV
	h.mmu.UpdateState()
	return h.file.Get(csr.Sepc), nil
}

func (h *Hart) mret() (uint64, error) {
	if h.mode < csr.ModeM {
		return 0, illegal()
	}

	ms := h.file.Slot(csr.Mstatus)
	mpp := csr.Mode(csr.Field(*ms, csr.MstatusMPP))

	if h.cfg.Hypervisor {
		h.virt = mpp != csr.ModeM && *ms&csr.MstatusMPV != 0
		*ms &^= csr.MstatusMPV
	}

	*ms = returnFrom(*ms, csr.MstatusMIE, csr.MstatusMPIE, csr.MstatusMPP)
	if mpp != csr.ModeM {
		*ms &^= csr.MstatusMPRV
	}
	h.mode = mpp

	if h.cfg.Hypervisor {
		h.system.FlushCodeCache()
	}
	h.mmu.UpdateState()
	return h.file.Get(csr.Mepc), nil
}

// wfi only checks legality; suspending the hart is up to the caller.
func (h *Hart) wfi() error {
	tw := h.status(csr.Mstatus, csr.MstatusTW)

	if h.virt {
		vtw := h.status(csr.Hstatus, csr.HstatusVTW)
		if (h.mode == csr.ModeS && vtw && !tw) || (h.mode == csr.ModeU && !tw) {
			return virtual()
		}
	}

	if (h.mode < csr.ModeM && tw) || h.mode == csr.ModeU {
		return illegal()
	}
	return nil
}

func (h *Hart) checkSvinval() error {
	if !h.cfg.Svinval || !h.status(csr.Srnctl, csr.SrnctlSvinval) {
		return illegal()
	}
	return nil
}

// checkSfence applies mstatus.TVM to HS mode and hstatus.VTVM to VS mode.
// VU mode may never fence.
func (h *Hart) checkSfence() error {
	if h.virt {
		if h.mode == csr.ModeU || (h.mode == csr.ModeS && h.status(csr.Hstatus, csr.HstatusVTVM)) {
			return virtual()
		}
		return nil
	}

	if h.mode == csr.ModeU || (h.mode == csr.ModeS && h.status(csr.Mstatus, csr.MstatusTVM)) {
		return illegal()
	}
	return nil
}

// checkHfence guards the hypervisor fences. The G-stage variants are also
// subject to mstatus.TVM.
func (h *Hart) checkHfence(gstage bool) error {
	if !h.cfg.Hypervisor {
		return illegal()
	}
	if h.virt {
		return virtual()
	}
	if h.mode == csr.ModeU {
		return illegal()
	}
	if gstage && h.mode == csr.ModeS && h.status(csr.Mstatus, csr.MstatusTVM) {
		return illegal()
	}
	return nil
}
