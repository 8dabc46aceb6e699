package hart

import "github.com/sarchlab/rvcsr/csr"

// fcsr sub-fields.
const (
	fcsrFflags uint64 = 0x1f
	fcsrFrm    uint64 = 0x7 << 5
)

// buildHandlers fills the handler table. Addresses without an entry behave
// as flat storage.
func (h *Hart) buildHandlers() {
	for i := range h.handlers {
		h.handlers[i] = flat
	}

	m := h.masks
	all := ^uint64(0)
	set := h.setHandler

	// Machine trap setup and handling
	set(handler{read: readMstatus, write: writeMstatus}, csr.Mstatus)
	set(handler{readMask: all, write: writeMisa}, csr.Misa)
	set(masked(all, m.Medeleg), csr.Medeleg)
	set(handler{read: readMideleg, write: writeMideleg}, csr.Mideleg)
	set(masked(all, m.MieWrite), csr.Mie)
	set(masked(all, m.MipWrite), csr.Mip)
	set(masked(csr.TvecReadMask, m.TvecWrite), csr.Mtvec, csr.Stvec, csr.Vstvec)
	set(masked(all, csr.EpcWriteMask), csr.Mepc, csr.Sepc, csr.Vsepc)
	set(masked(all, m.Counteren), csr.Mcounteren, csr.Scounteren, csr.Hcounteren)

	// Supervisor views of machine state
	set(handler{read: readSstatus, write: writeSstatus}, csr.Sstatus)
	set(handler{read: readSie, write: writeSie}, csr.Sie)
	set(handler{read: readSip, write: writeSip}, csr.Sip)
	set(handler{read: readSatp, write: writeSatp}, csr.Satp)
	set(masked(all, csr.SrnctlSvinval), csr.Srnctl)

	h.buildCounterHandlers()
	h.buildPMPHandlers()
	h.buildTriggerHandlers()

	if h.cfg.FPU {
		set(handler{read: readFflags, write: writeFflags}, csr.Fflags)
		set(handler{read: readFrm, write: writeFrm}, csr.Frm)
		set(handler{read: readFcsr, write: writeFcsr}, csr.Fcsr)
	}

	if h.cfg.Vector {
		set(handler{read: readVcsr, write: writeVcsr}, csr.Vcsr)
		set(handler{readMask: all, write: writeVxrm}, csr.Vxrm)
		set(handler{readMask: all, write: writeVxsat}, csr.Vxsat)
		set(handler{read: readVlenb}, csr.Vlenb)
	}

	if h.cfg.Hypervisor {
		set(masked(all, m.HstatusWrite), csr.Hstatus)
		set(handler{read: readHideleg, write: writeHideleg}, csr.Hideleg)
		set(handler{read: readHie, write: writeHie}, csr.Hie)
		set(handler{read: readHip, write: writeHip}, csr.Hip)
		set(handler{read: readHvip, write: writeHvip}, csr.Hvip)
		set(masked(csr.HgeMaskRead, 0), csr.Hgeip)
		set(masked(csr.HgeMaskRead, all), csr.Hgeie)
		set(handler{readMask: all, write: writeHgatp}, csr.Hgatp)
		set(handler{read: readVsstatus, write: writeVsstatus}, csr.Vsstatus)
		set(handler{read: readVsie, write: writeVsie}, csr.Vsie)
		set(handler{read: readVsip, write: writeVsip}, csr.Vsip)
		set(handler{read: readVsatp, write: writeVsatp}, csr.Vsatp)
	}
}

func (h *Hart) setHandler(hd handler, addrs ...uint16) {
	for _, a := range addrs {
		h.handlers[a] = hd
	}
}

// mstatus and its views

func readMstatus(h *Hart, _ uint16) (uint64, error) {
	h.updateMstatusSD()
	return h.file.Get(csr.Mstatus), nil
}

// writeMstatus rejects an MPP value of HS: the encoding is reserved and no
// hart stores it.
func writeMstatus(h *Hart, tx *txn, _ uint16, v uint64) error {
	old := tx.get(csr.Mstatus)
	next := csr.MaskBitset(old, h.masks.MstatusWrite, v)
	if csr.Mode(csr.Field(next, csr.MstatusMPP)) == csr.ModeHS {
		next = csr.SetField(next, csr.MstatusMPP, csr.Field(old, csr.MstatusMPP))
	}
	tx.set(csr.Mstatus, next)
	return nil
}

func readSstatus(h *Hart, _ uint16) (uint64, error) {
	h.updateMstatusSD()
	return h.file.Get(csr.Mstatus) & h.masks.SstatusRead, nil
}

func writeSstatus(h *Hart, tx *txn, _ uint16, v uint64) error {
	tx.set(csr.Mstatus, csr.MaskBitset(tx.get(csr.Mstatus), h.masks.SstatusWrite, v))
	return nil
}

func readVsstatus(h *Hart, _ uint16) (uint64, error) {
	h.updateVsstatusSD()
	return h.file.Get(csr.Vsstatus) & h.masks.SstatusRead, nil
}

func writeVsstatus(h *Hart, tx *txn, _ uint16, v uint64) error {
	next := csr.MaskBitset(tx.get(csr.Vsstatus), h.masks.SstatusWrite, v)
	tx.set(csr.Vsstatus, withSD(next))
	return nil
}

func writeMisa(h *Hart, tx *txn, _ uint16, v uint64) error {
	if h.cfg.MisaUnchangeable {
		return nil
	}
	tx.set(csr.Misa, v)
	return nil
}

// Interrupt delegation, enable and pending views

// midelegView is mideleg with the bits forced to one by the hypervisor
// extension.
func (h *Hart) midelegView() uint64 {
	v := h.file.Get(csr.Mideleg)
	if h.cfg.Hypervisor {
		v |= csr.MidelegForced
	}
	return v
}

// hidelegView is hideleg restricted to the interrupts delegated by mideleg.
func (h *Hart) hidelegView() uint64 {
	return h.file.Get(csr.Hideleg) & h.midelegView()
}

func readMideleg(h *Hart, _ uint16) (uint64, error) {
	return h.midelegView(), nil
}

func writeMideleg(h *Hart, tx *txn, _ uint16, v uint64) error {
	next := v & csr.SupervisorIrqs
	if h.cfg.Hypervisor {
		next |= csr.MidelegForced
	}
	tx.set(csr.Mideleg, next)
	return nil
}

func readSie(h *Hart, _ uint16) (uint64, error) {
	return h.file.Get(csr.Mie) & csr.SupervisorIrqs & h.midelegView(), nil
}

func writeSie(h *Hart, tx *txn, _ uint16, v uint64) error {
	mask := csr.SupervisorIrqs & h.midelegView()
	tx.set(csr.Mie, csr.MaskBitset(tx.get(csr.Mie), mask, v))
	return nil
}

func readSip(h *Hart, _ uint16) (uint64, error) {
	return h.file.Get(csr.Mip) & csr.SupervisorIrqs & h.midelegView(), nil
}

// writeSip can only change SSIP; timer and external pending bits are driven
// by the platform.
func writeSip(h *Hart, tx *txn, _ uint16, v uint64) error {
	mask := csr.IrqSSI & h.midelegView()
	tx.set(csr.Mip, csr.MaskBitset(tx.get(csr.Mip), mask, v))
	return nil
}

func readHideleg(h *Hart, _ uint16) (uint64, error) {
	return h.hidelegView(), nil
}

func writeHideleg(_ *Hart, tx *txn, _ uint16, v uint64) error {
	tx.set(csr.Hideleg, csr.MaskBitset(tx.get(csr.Hideleg), csr.VSIrqs, v))
	return nil
}

func readHie(h *Hart, _ uint16) (uint64, error) {
	return h.file.Get(csr.Mie) & csr.HSIrqs & h.midelegView(), nil
}

func writeHie(h *Hart, tx *txn, _ uint16, v uint64) error {
	mask := csr.HSIrqs & h.midelegView()
	tx.set(csr.Mie, csr.MaskBitset(tx.get(csr.Mie), mask, v))
	return nil
}

func readHip(h *Hart, _ uint16) (uint64, error) {
	return h.file.Get(csr.Mip) & csr.HSIrqs & h.midelegView(), nil
}

func writeHip(h *Hart, tx *txn, _ uint16, v uint64) error {
	mask := csr.IrqVSSI & h.midelegView()
	tx.set(csr.Mip, csr.MaskBitset(tx.get(csr.Mip), mask, v))
	return nil
}

func readHvip(h *Hart, _ uint16) (uint64, error) {
	return h.file.Get(csr.Mip) & csr.VSIrqs, nil
}

func writeHvip(_ *Hart, tx *txn, _ uint16, v uint64) error {
	tx.set(csr.Mip, csr.MaskBitset(tx.get(csr.Mip), csr.VSIrqs, v))
	return nil
}

// vsie and vsip show the VS-level interrupts one bit lower, at the position
// of their supervisor counterparts.

func readVsie(h *Hart, _ uint16) (uint64, error) {
	return (h.file.Get(csr.Mie) & h.hidelegView() & csr.VSIrqs) >> 1, nil
}

func writeVsie(h *Hart, tx *txn, _ uint16, v uint64) error {
	mask := csr.VSIrqs & h.hidelegView()
	tx.set(csr.Mie, csr.MaskBitset(tx.get(csr.Mie), mask, v<<1))
	return nil
}

func readVsip(h *Hart, _ uint16) (uint64, error) {
	return (h.file.Get(csr.Mip) & h.hidelegView() & csr.VSIrqs) >> 1, nil
}

func writeVsip(h *Hart, tx *txn, _ uint16, v uint64) error {
	mask := csr.IrqVSSI & h.hidelegView()
	tx.set(csr.Mip, csr.MaskBitset(tx.get(csr.Mip), mask, v<<1))
	return nil
}

// Address translation roots

// validTranslationMode reports whether the mode field of a satp, vsatp or
// hgatp value names a supported scheme. Other values leave the register
// unchanged.
func validTranslationMode(v uint64) bool {
	mode := csr.Field(v, csr.SatpModeMask)
	return mode == csr.SatpModeBare || mode == csr.SatpModeSv39
}

// satpTrapped reports whether mstatus.TVM denies satp to HS mode.
func (h *Hart) satpTrapped() bool {
	return h.mode == csr.ModeS && !h.virt && h.file.Get(csr.Mstatus)&csr.MstatusTVM != 0
}

// vsatpTrapped reports whether hstatus.VTVM denies satp to VS mode.
func (h *Hart) vsatpTrapped() bool {
	return h.mode == csr.ModeS && h.virt && h.file.Get(csr.Hstatus)&csr.HstatusVTVM != 0
}

func readSatp(h *Hart, _ uint16) (uint64, error) {
	if h.satpTrapped() {
		return 0, illegal()
	}
	return h.file.Get(csr.Satp), nil
}

func writeSatp(h *Hart, tx *txn, _ uint16, v uint64) error {
	if h.satpTrapped() {
		return illegal()
	}
	if validTranslationMode(v) {
		tx.set(csr.Satp, v&h.masks.Satp)
	}
	return nil
}

func readVsatp(h *Hart, _ uint16) (uint64, error) {
	if h.vsatpTrapped() {
		return 0, virtual()
	}
	return h.file.Get(csr.Vsatp), nil
}

func writeVsatp(h *Hart, tx *txn, _ uint16, v uint64) error {
	if h.vsatpTrapped() {
		return virtual()
	}
	if validTranslationMode(v) {
		tx.set(csr.Vsatp, v&h.masks.Satp)
	}
	return nil
}

func writeHgatp(h *Hart, tx *txn, _ uint16, v uint64) error {
	if validTranslationMode(v) {
		tx.set(csr.Hgatp, v&h.masks.Hgatp)
	}
	return nil
}

// Floating-point status. fcsr is authoritative; fflags and frm slots are
// kept equal to its fields.

func readFcsr(h *Hart, _ uint16) (uint64, error) {
	return h.file.Get(csr.Fcsr) & csr.FcsrMask, nil
}

func readFflags(h *Hart, _ uint16) (uint64, error) {
	return h.file.Get(csr.Fcsr) & fcsrFflags, nil
}

func readFrm(h *Hart, _ uint16) (uint64, error) {
	return csr.Field(h.file.Get(csr.Fcsr), fcsrFrm), nil
}

func setFcsr(tx *txn, v uint64) {
	v &= csr.FcsrMask
	tx.set(csr.Fcsr, v)
	tx.set(csr.Fflags, v&fcsrFflags)
	tx.set(csr.Frm, csr.Field(v, fcsrFrm))
}

func writeFflags(_ *Hart, tx *txn, _ uint16, v uint64) error {
	setFcsr(tx, csr.MaskBitset(tx.get(csr.Fcsr), fcsrFflags, v))
	return nil
}

func writeFrm(_ *Hart, tx *txn, _ uint16, v uint64) error {
	setFcsr(tx, csr.SetField(tx.get(csr.Fcsr), fcsrFrm, v&csr.FrmMask))
	return nil
}

func writeFcsr(_ *Hart, tx *txn, _ uint16, v uint64) error {
	setFcsr(tx, v)
	return nil
}

// Vector status. vxrm and vxsat are authoritative; vcsr packs them.

func readVcsr(h *Hart, _ uint16) (uint64, error) {
	return packVcsr(h.file.Get(csr.Vxrm), h.file.Get(csr.Vxsat)), nil
}

func packVcsr(vxrm, vxsat uint64) uint64 {
	return (vxrm&csr.VxrmMask)<<1 | vxsat&csr.VxsatMask
}

func writeVcsr(_ *Hart, tx *txn, _ uint16, v uint64) error {
	v &= csr.VcsrMask
	tx.set(csr.Vcsr, v)
	tx.set(csr.Vxrm, (v>>1)&csr.VxrmMask)
	tx.set(csr.Vxsat, v&csr.VxsatMask)
	return nil
}

func writeVxrm(_ *Hart, tx *txn, _ uint16, v uint64) error {
	v &= csr.VxrmMask
	tx.set(csr.Vxrm, v)
	tx.set(csr.Vcsr, packVcsr(v, tx.get(csr.Vxsat)))
	return nil
}

func writeVxsat(_ *Hart, tx *txn, _ uint16, v uint64) error {
	v &= csr.VxsatMask
	tx.set(csr.Vxsat, v)
	tx.set(csr.Vcsr, packVcsr(tx.get(csr.Vxrm), v))
	return nil
}

func readVlenb(h *Hart, _ uint16) (uint64, error) {
	return uint64(h.cfg.VLEN) / 8, nil
}
