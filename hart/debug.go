package hart

import "github.com/sarchlab/rvcsr/csr"

// The trigger registers are windows onto the trigger module; their slots in
// the register file are unused.

func (h *Hart) buildTriggerHandlers() {
	if !h.cfg.Triggers {
		return
	}
	h.setHandler(handler{read: readTselect, write: writeTselect}, csr.Tselect)
	h.setHandler(handler{read: readTdata, write: writeTdata}, csr.Tdata1, csr.Tdata2, csr.Tdata3)
}

func readTselect(h *Hart, _ uint16) (uint64, error) {
	return uint64(h.triggers.Selected()), nil
}

func writeTselect(h *Hart, tx *txn, _ uint16, v uint64) error {
	tx.then(func() {
		if !h.triggers.Select(v) {
			h.logger.V(2).Info("tselect out of range", "value", v)
		}
	})
	return nil
}

func readTdata(h *Hart, addr uint16) (uint64, error) {
	switch addr {
	case csr.Tdata1:
		return h.triggers.ReadData1(), nil
	case csr.Tdata2:
		return h.triggers.ReadData2(), nil
	default:
		return h.triggers.ReadData3(), nil
	}
}

func writeTdata(h *Hart, tx *txn, addr uint16, v uint64) error {
	tx.then(func() {
		idx := h.triggers.Selected()
		switch addr {
		case csr.Tdata1:
			if !h.triggers.WriteData1(v) {
				h.logger.V(2).Info("trigger type not supported", "trigger", idx, "value", v)
				return
			}
		case csr.Tdata2:
			h.triggers.WriteData2(v)
		default:
			h.triggers.WriteData3(v)
		}
		h.logger.V(2).Info("trigger write", "csr", csr.Name(addr), "trigger", idx, "value", v)
	})
	return nil
}
