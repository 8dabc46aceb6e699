package hart

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/rvcsr/csr"
)

type guestLoadKind struct {
	size    int
	signed  bool
	execute bool
}

// Hypervisor loads by funct12.
var guestLoads = map[uint32]guestLoadKind{
	0x600: {size: 1, signed: true},  // hlv.b
	0x601: {size: 1},                // hlv.bu
	0x640: {size: 2, signed: true},  // hlv.h
	0x641: {size: 2},                // hlv.hu
	0x643: {size: 2, execute: true}, // hlvx.hu
	0x680: {size: 4, signed: true},  // hlv.w
	0x681: {size: 4},                // hlv.wu
	0x683: {size: 4, execute: true}, // hlvx.wu
	0x6c0: {size: 8},                // hlv.d
}

// Hypervisor stores by funct7.
var guestStores = map[uint32]int{
	0x31: 1, // hsv.b
	0x33: 2, // hsv.h
	0x35: 4, // hsv.w
	0x37: 8, // hsv.d
}

// GuestLoad executes the hypervisor load selected by funct12, reading addr
// in the guest address space.
func (h *Hart) GuestLoad(funct12 uint32, addr uint64) (uint64, error) {
	if err := h.checkGuestAccess(); err != nil {
		return 0, h.logTrap(err, "guest load trapped")
	}

	kind, ok := guestLoads[funct12]
	if !ok {
		return 0, h.logTrap(unsupported(funct12), "guest load trapped")
	}

	v, err := h.memory.Load(addr, kind.size, h.guestTranslation(kind.execute))
	if err != nil {
		return 0, errors.Wrapf(err, "guest load at %#x", addr)
	}

	if kind.signed {
		shift := 64 - 8*kind.size
		v = uint64(int64(v<<shift) >> shift)
	}
	return v, nil
}

// GuestStore executes the hypervisor store selected by funct7, writing the
// low bytes of value to addr in the guest address space.
func (h *Hart) GuestStore(funct7 uint32, addr, value uint64) error {
	if err := h.checkGuestAccess(); err != nil {
		return h.logTrap(err, "guest store trapped")
	}

	size, ok := guestStores[funct7]
	if !ok {
		return h.logTrap(unsupported(funct7), "guest store trapped")
	}

	if err := h.memory.Store(addr, size, value, h.guestTranslation(false)); err != nil {
		return errors.Wrapf(err, "guest store at %#x", addr)
	}
	return nil
}

// checkGuestAccess allows guest accesses from M, HS, and from U when
// hstatus.HU is set. A virtualized hart may not use them at all.
func (h *Hart) checkGuestAccess() error {
	if !h.cfg.Hypervisor {
		return illegal()
	}
	if h.virt {
		return virtual()
	}
	if h.mode == csr.ModeU && !h.status(csr.Hstatus, csr.HstatusHU) {
		return illegal()
	}
	return nil
}

func (h *Hart) guestTranslation(execute bool) TranslationMode {
	mode := csr.ModeU
	if h.status(csr.Hstatus, csr.HstatusSPVP) {
		mode = csr.ModeS
	}
	return TranslationMode{
		Mode:    mode,
		Vsatp:   h.file.Get(csr.Vsatp),
		Hgatp:   h.file.Get(csr.Hgatp),
		Execute: execute,
	}
}
