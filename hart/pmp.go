package hart

import "github.com/sarchlab/rvcsr/csr"

func (h *Hart) buildPMPHandlers() {
	if !h.cfg.PMP {
		return
	}
	for i := uint16(0); i < csr.NumPMPCfgCSRs; i++ {
		h.setHandler(handler{readMask: ^uint64(0), write: writePMPCfg}, csr.PMPCfgBase+i)
	}
	for i := uint16(0); i < csr.MaxPMPEntries; i++ {
		h.setHandler(handler{read: readPMPAddr, write: writePMPAddr}, csr.PMPAddrBase+i)
	}
}

// readPMPAddr shapes the stored address by the addressing mode of the entry:
// NAPOT entries read with the bits below the granularity set, the other
// modes with them clear.
func readPMPAddr(h *Hart, addr uint16) (uint64, error) {
	idx := int(addr - csr.PMPAddrBase)
	if idx >= h.cfg.PMPActiveEntries {
		return 0, nil
	}

	v := h.file.Get(addr)
	if h.file.PMPConfig(idx)&csr.PMPA == csr.PMPNapot {
		return v | h.masks.PMPNapotOnes(), nil
	}
	return v & h.masks.PMPTor, nil
}

func writePMPAddr(h *Hart, tx *txn, addr uint16, v uint64) error {
	idx := int(addr - csr.PMPAddrBase)
	active := h.cfg.PMPActiveEntries
	if idx >= active {
		return nil
	}

	locked := h.file.PMPLocked(idx, active)
	if !locked {
		tx.set(addr, v&h.masks.PMPAddrWrite)
	}

	tx.then(func() {
		h.logger.V(2).Info("pmp address write",
			"entry", idx, "value", h.file.Get(addr), "locked", locked)
		h.mmu.Flush(0)
	})
	return nil
}

// writePMPCfg updates the eight entries packed into one pmpcfg register.
// Frozen and inactive entries keep their configuration. Accepted entries
// drop reserved bits, never hold W without R, and use NAPOT in place of NA4
// when the granularity is coarser than four bytes.
func writePMPCfg(h *Hart, tx *txn, addr uint16, v uint64) error {
	first := csr.PMPCfgFirstEntry(addr)
	active := h.cfg.PMPActiveEntries
	old := tx.get(addr)

	var next uint64
	for lane := 0; lane < 8; lane++ {
		idx := first + lane
		shift := lane * 8
		if idx >= active {
			continue
		}
		if h.file.PMPLocked(idx, active) {
			next |= old & (0xff << shift)
			continue
		}

		cfg := uint8(v>>shift) & csr.PMPCfgLegal
		if cfg&csr.PMPRead == 0 {
			cfg &^= csr.PMPWrite
		}
		if h.cfg.PMPGranularity != csr.PMPShift && cfg&csr.PMPA == csr.PMPNa4 {
			cfg |= csr.PMPNapot
		}
		next |= uint64(cfg) << shift
	}

	tx.set(addr, next)
	tx.then(func() {
		h.logger.V(2).Info("pmp config write", "csr", csr.Name(addr), "value", next)
		h.mmu.Flush(0)
	})
	return nil
}
