package hart

import "github.com/sarchlab/rvcsr/csr"

// mcountinhibit bits of the two computed counters.
const (
	inhibitCY uint64 = 1 << 0
	inhibitIR uint64 = 1 << 2
)

// The cycle and instret counters are not stored as incrementing state. The
// slot of mcycle and minstret holds a base; the visible value is the base
// plus the retired instruction count unless the counter is inhibited, in
// which case the base alone is the value. The hart retires one instruction
// per cycle, so both counters share the same source.

func (h *Hart) buildCounterHandlers() {
	counter := handler{read: readCounter, write: writeCounter}
	h.setHandler(counter, csr.Mcycle, csr.Minstret)
	h.setHandler(handler{read: readCounter}, csr.Cycle, csr.Instret)
	h.setHandler(handler{read: readTime}, csr.Time)
	h.setHandler(handler{readMask: ^uint64(0), write: writeMcountinhibit}, csr.Mcountinhibit)

	// Performance-monitor counters and event selectors are not implemented:
	// they read as zero and ignore writes.
	zero := masked(0, 0)
	for i := uint16(0); i < csr.NumHPM; i++ {
		h.setHandler(zero, csr.HPMCounterBase+i, csr.MHPMCounterBase+i, csr.MHPMEventBase+i)
	}
}

// counterSlot returns the machine counter backing addr and its inhibit bit.
func counterSlot(addr uint16) (uint16, uint64) {
	switch addr {
	case csr.Mcycle, csr.Cycle:
		return csr.Mcycle, inhibitCY
	default:
		return csr.Minstret, inhibitIR
	}
}

func (h *Hart) inhibited(bit uint64) bool {
	return h.file.Get(csr.Mcountinhibit)&bit != 0
}

func readCounter(h *Hart, addr uint16) (uint64, error) {
	slot, bit := counterSlot(addr)
	base := h.file.Get(slot)
	if h.inhibited(bit) {
		return base, nil
	}
	return base + h.counter.Retired(), nil
}

func writeCounter(h *Hart, tx *txn, addr uint16, v uint64) error {
	slot, bit := counterSlot(addr)
	if h.inhibited(bit) {
		tx.set(slot, v)
		return nil
	}
	tx.set(slot, v-h.counter.Retired())
	return nil
}

func readTime(h *Hart, _ uint16) (uint64, error) {
	return h.clock.Uptime(), nil
}

// writeMcountinhibit folds the retired count into a counter base when the
// counter stops and out of it when the counter resumes, so the visible value
// is continuous.
func writeMcountinhibit(h *Hart, tx *txn, _ uint16, v uint64) error {
	old := tx.get(csr.Mcountinhibit)
	next := csr.MaskBitset(old, h.masks.Mcountinhibit, v)
	n := h.counter.Retired()

	fold := func(slot uint16, bit uint64) {
		switch {
		case old&bit == 0 && next&bit != 0:
			tx.set(slot, tx.get(slot)+n)
		case old&bit != 0 && next&bit == 0:
			tx.set(slot, tx.get(slot)-n)
		}
	}
	fold(csr.Mcycle, inhibitCY)
	fold(csr.Minstret, inhibitIR)

	tx.set(csr.Mcountinhibit, next)
	return nil
}
