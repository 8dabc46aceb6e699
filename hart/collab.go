package hart

// Collaborators the hart notifies or queries. Tests mock them.
//
//go:generate mockgen -destination "mock_collab_test.go" -package $GOPACKAGE -write_package_comment=false -source collab.go

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/rvcsr/csr"
)

// MMU is the address translation collaborator.
type MMU interface {
	// UpdateState recomputes the cached translation mode after a change to a
	// status or translation root register.
	UpdateState()

	// Flush invalidates cached translations of the page holding vaddr, or of
	// every page when vaddr is 0.
	Flush(vaddr uint64)
}

// System is the execution-control collaborator.
type System interface {
	// FlushCodeCache drops decoded-instruction state because the privilege
	// or virtualization context changed.
	FlushCodeCache()

	// MarkStateDirty tells the interrupt logic that interrupt-relevant state
	// changed.
	MarkStateDirty()
}

// Counter provides the authoritative count of retired instructions.
type Counter interface {
	Retired() uint64
}

// Clock provides the platform timer read through the time CSR.
type Clock interface {
	Uptime() uint64
}

// FPU is the floating-point unit collaborator.
type FPU interface {
	SetDirty()
	UpdateRoundingMode(rm uint64)
}

// VPU is the vector unit collaborator.
type VPU interface {
	SetDirty()
}

// TranslationMode describes how a guest access is translated.
type TranslationMode struct {
	// Mode is the privilege the access is checked against: hstatus.SPVP
	// selects S, otherwise U.
	Mode csr.Mode

	// Vsatp and Hgatp are the two translation roots of the guest.
	Vsatp uint64
	Hgatp uint64

	// Execute is set for HLVX, which requires execute instead of read
	// permission.
	Execute bool
}

// Translated reports whether either translation stage is active.
func (t TranslationMode) Translated() bool {
	return t.Vsatp&csr.SatpModeMask != 0 || t.Hgatp&csr.SatpModeMask != 0
}

// GuestMemory performs the memory transactions of the hypervisor load and
// store instructions.
type GuestMemory interface {
	// Load returns size bytes at addr, zero-extended.
	Load(addr uint64, size int, mode TranslationMode) (uint64, error)

	// Store writes the low size bytes of value to addr.
	Store(addr uint64, size int, value uint64, mode TranslationMode) error
}

// ErrNoGuestMemory is returned by guest accesses on a hart built without a
// GuestMemory.
var ErrNoGuestMemory = errors.New("no guest memory attached")

type nopMMU struct{}

func (nopMMU) UpdateState() {}
func (nopMMU) Flush(uint64) {}

type nopSystem struct{}

func (nopSystem) FlushCodeCache() {}
func (nopSystem) MarkStateDirty() {}

type nopFPU struct{}

func (nopFPU) SetDirty() {}
func (nopFPU) UpdateRoundingMode(uint64) {}

type nopVPU struct{}

func (nopVPU) SetDirty() {}

type noGuestMemory struct{}

func (noGuestMemory) Load(uint64, int, TranslationMode) (uint64, error) {
	return 0, ErrNoGuestMemory
}

func (noGuestMemory) Store(uint64, int, uint64, TranslationMode) error {
	return ErrNoGuestMemory
}

// RetireCounter is a Counter advanced explicitly by its owner. It also
// serves as a Clock that ticks once per retired instruction.
type RetireCounter struct {
	n uint64
}

// Retire advances the count by n instructions.
func (c *RetireCounter) Retire(n uint64) {
	c.n += n
}

// Retired returns the number of retired instructions.
func (c *RetireCounter) Retired() uint64 {
	return c.n
}

// Uptime returns the retired count.
func (c *RetireCounter) Uptime() uint64 {
	return c.n
}
