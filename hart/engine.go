package hart

import "github.com/sarchlab/rvcsr/csr"

// handler is the read and write behavior of one CSR address. When read is
// nil the stored value is returned under readMask; when write is nil the
// value is merged into storage under writeMask.
type handler struct {
	readMask  uint64
	writeMask uint64

	read  func(h *Hart, addr uint16) (uint64, error)
	write func(h *Hart, tx *txn, addr uint16, v uint64) error
}

// flat is the handler of a plain storage register.
var flat = handler{readMask: ^uint64(0), writeMask: ^uint64(0)}

// masked returns a storage handler with separate read and write masks.
func masked(read, write uint64) handler {
	return handler{readMask: read, writeMask: write}
}

// Registers that stand for their virtual-supervisor counterpart while the
// hart is virtualized.
var redirect = map[uint16]uint16{
	csr.Sstatus:  csr.Vsstatus,
	csr.Sie:      csr.Vsie,
	csr.Stvec:    csr.Vstvec,
	csr.Sscratch: csr.Vsscratch,
	csr.Sepc:     csr.Vsepc,
	csr.Scause:   csr.Vscause,
	csr.Stval:    csr.Vstval,
	csr.Sip:      csr.Vsip,
	csr.Satp:     csr.Vsatp,
}

// target returns the storage register an access to addr resolves to.
func (h *Hart) target(addr uint16) uint16 {
	if h.virt {
		if shadow, ok := redirect[addr]; ok {
			return shadow
		}
	}
	return addr
}

// txn stages the register updates of one write. Nothing reaches the
// register file or a collaborator until commit.
type txn struct {
	h     *Hart
	addrs []uint16
	vals  []uint64
	hooks []func()
}

func (t *txn) get(addr uint16) uint64 {
	for i := len(t.addrs) - 1; i >= 0; i-- {
		if t.addrs[i] == addr {
			return t.vals[i]
		}
	}
	return t.h.file.Get(addr)
}

func (t *txn) set(addr uint16, v uint64) {
	t.addrs = append(t.addrs, addr)
	t.vals = append(t.vals, v)
}

// then runs fn at commit, after the staged registers are written.
func (t *txn) then(fn func()) {
	t.hooks = append(t.hooks, fn)
}

func (t *txn) commit() {
	for i, a := range t.addrs {
		t.h.file.Set(a, t.vals[i])
	}
	for _, fn := range t.hooks {
		fn()
	}
}

// Read returns the visible value of CSR addr.
func (h *Hart) Read(addr uint16) (uint64, error) {
	return h.Access(addr, 0, true, false)
}

// Write writes v to CSR addr.
func (h *Hart) Write(addr uint16, v uint64) error {
	_, err := h.Access(addr, v, false, true)
	return err
}

// Access performs one CSR instruction: an access check covering both
// halves, then an optional read and an optional write. The returned value is
// the one read before the write. On a trap nothing is modified.
func (h *Hart) Access(addr uint16, v uint64, read, write bool) (uint64, error) {
	return h.access(addr, read, write, func(uint64) uint64 { return v })
}

// access is Access with the written value computed from the value read, as
// needed by the set and clear forms of the CSR instructions.
func (h *Hart) access(addr uint16, read, write bool, next func(old uint64) uint64) (uint64, error) {
	if err := h.check(addr, write); err != nil {
		return 0, h.logTrap(withCSR(err, addr), "csr access denied")
	}

	dst := h.target(addr)
	hd := &h.handlers[dst]

	var old uint64
	if read {
		var err error
		old, err = h.readWith(hd, dst)
		if err != nil {
			return 0, h.logTrap(withCSR(err, addr), "csr read trapped")
		}
	}

	if !write {
		return old, nil
	}

	tx := &txn{h: h}
	if err := h.writeWith(hd, tx, dst, next(old)); err != nil {
		return 0, h.logTrap(withCSR(err, addr), "csr write trapped")
	}
	tx.commit()
	h.postWrite(addr)

	return old, nil
}

func (h *Hart) readWith(hd *handler, addr uint16) (uint64, error) {
	if hd.read != nil {
		return hd.read(h, addr)
	}
	return h.file.Get(addr) & hd.readMask, nil
}

func (h *Hart) writeWith(hd *handler, tx *txn, addr uint16, v uint64) error {
	if hd.write != nil {
		return hd.write(h, tx, addr, v)
	}
	tx.set(addr, csr.MaskBitset(tx.get(addr), hd.writeMask, v))
	return nil
}

// writeInfo is the state shared by the post-write conditions of one write.
type writeInfo struct {
	addr uint16

	// unitDirty is set when a floating-point or vector register was written.
	unitDirty bool
}

// postWriteConditions are evaluated in order after every committed write.
// Later conditions observe the state left by earlier ones.
var postWriteConditions = []func(h *Hart, w *writeInfo){
	(*Hart).afterFloatWrite,
	(*Hart).afterVectorWrite,
	(*Hart).afterStatusWrite,
	(*Hart).afterTranslationWrite,
	(*Hart).afterHstatusWrite,
	(*Hart).afterVsstatusWrite,
	(*Hart).afterSatpWrite,
	(*Hart).afterInterruptStateWrite,
}

func (h *Hart) postWrite(addr uint16) {
	w := &writeInfo{addr: addr}
	for _, cond := range postWriteConditions {
		cond(h, w)
	}
}

func (h *Hart) afterFloatWrite(w *writeInfo) {
	if !h.cfg.FPU {
		return
	}
	switch w.addr {
	case csr.Fflags, csr.Frm, csr.Fcsr:
	default:
		return
	}

	h.setUnitDirty(csr.MstatusFS)
	h.fpu.SetDirty()
	h.fpu.UpdateRoundingMode(csr.Field(h.file.Get(csr.Fcsr), fcsrFrm))
	w.unitDirty = true
}

func (h *Hart) afterVectorWrite(w *writeInfo) {
	if !h.cfg.Vector {
		return
	}
	switch w.addr {
	case csr.Vcsr, csr.Vstart, csr.Vxsat, csr.Vxrm:
	default:
		return
	}

	h.setUnitDirty(csr.MstatusVS)
	h.vpu.SetDirty()
	w.unitDirty = true
}

// setUnitDirty marks a unit state field of mstatus dirty, and of vsstatus
// too while virtualized.
func (h *Hart) setUnitDirty(field uint64) {
	ms := h.file.Slot(csr.Mstatus)
	*ms = csr.SetField(*ms, field, csr.ExtDirty)
	if h.virt {
		vs := h.file.Slot(csr.Vsstatus)
		*vs = csr.SetField(*vs, field, csr.ExtDirty)
	}
}

func (h *Hart) afterStatusWrite(w *writeInfo) {
	if w.addr == csr.Sstatus || w.addr == csr.Mstatus || w.unitDirty {
		h.updateMstatusSD()
	}
}

func (h *Hart) afterTranslationWrite(w *writeInfo) {
	switch w.addr {
	case csr.Mstatus, csr.Satp:
		h.mmu.UpdateState()
	case csr.Vsatp, csr.Hgatp:
		if h.cfg.Hypervisor {
			h.mmu.UpdateState()
		}
	}
}

func (h *Hart) afterHstatusWrite(w *writeInfo) {
	if w.addr == csr.Hstatus {
		h.system.FlushCodeCache()
	}
}

func (h *Hart) afterVsstatusWrite(w *writeInfo) {
	if w.addr == csr.Vsstatus {
		h.updateVsstatusSD()
	}
}

func (h *Hart) afterSatpWrite(w *writeInfo) {
	if w.addr == csr.Satp {
		h.mmu.Flush(0)
	}
}

func (h *Hart) afterInterruptStateWrite(w *writeInfo) {
	switch w.addr {
	case csr.Mstatus, csr.Sstatus, csr.Satp, csr.Mie, csr.Sie, csr.Mip, csr.Sip:
		h.system.MarkStateDirty()
	}
}

// updateMstatusSD recomputes mstatus.SD from FS and VS.
func (h *Hart) updateMstatusSD() {
	ms := h.file.Slot(csr.Mstatus)
	if h.cfg.FSAlwaysDirty && csr.Field(*ms, csr.MstatusFS) != csr.ExtOff {
		*ms = csr.SetField(*ms, csr.MstatusFS, csr.ExtDirty)
	}
	*ms = withSD(*ms)
}

// updateVsstatusSD recomputes vsstatus.SD from FS and VS.
func (h *Hart) updateVsstatusSD() {
	vs := h.file.Slot(csr.Vsstatus)
	*vs = withSD(*vs)
}

func withSD(status uint64) uint64 {
	dirty := csr.Field(status, csr.MstatusFS) == csr.ExtDirty ||
		csr.Field(status, csr.MstatusVS) == csr.ExtDirty
	if dirty {
		return status | csr.MstatusSD
	}
	return status &^ csr.MstatusSD
}
