package hart

import "github.com/sarchlab/rvcsr/csr"

// check decides whether the current privilege context may access addr.
func (h *Hart) check(addr uint16, write bool) error {
	if !h.file.Exists(addr) {
		if h.cfg.PanicOnUnimplementedCSR {
			panic(&UnimplementedCSRError{Addr: addr})
		}
		return illegal()
	}

	need := csr.Mode(csr.Level(addr))
	if h.effectiveLevel() < need {
		if h.virt && need <= csr.ModeHS {
			return virtual()
		}
		return illegal()
	}

	if write && csr.ReadOnly(addr) {
		return illegal()
	}

	if csr.IsCounter(addr) {
		return h.checkCounterEnable(addr)
	}

	return nil
}

// checkCounterEnable applies the three counter-enable registers to an
// access of the unprivileged counter window.
//
//	| mode        | VU | VS | U  | S/HS | M  |
//	| mcounteren  | II | II | II | II   | ok |
//	| hcounteren  | VI | VI | ok | ok   | ok |
//	| scounteren  | VI | ok | II | ok   | ok |
func (h *Hart) checkCounterEnable(addr uint16) error {
	bit := uint64(1) << (addr - csr.Cycle)

	if h.mode < csr.ModeM && h.file.Get(csr.Mcounteren)&bit == 0 {
		return illegal()
	}

	if h.virt && h.file.Get(csr.Hcounteren)&bit == 0 {
		return virtual()
	}

	if h.mode < csr.ModeS && h.file.Get(csr.Scounteren)&bit == 0 {
		if h.virt {
			return virtual()
		}
		return illegal()
	}

	return nil
}
