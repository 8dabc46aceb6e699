// Package hart models the privileged state of one RISC-V hardware thread:
// CSR access control, the read and write effects of every register, and the
// privileged instructions that change mode or flush translation state.
package hart

import (
	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/sarchlab/rvcsr/config"
	"github.com/sarchlab/rvcsr/csr"
	"github.com/sarchlab/rvcsr/trigger"
)

// Hart holds the privileged state of one hardware thread.
type Hart struct {
	cfg   *config.Config
	file  csr.File
	masks csr.Masks

	// mode is U, S or M. Supervisor mode is stored as ModeS whether or not
	// the hart is virtualized.
	mode csr.Mode
	virt bool

	triggers *trigger.Module
	handlers [csr.NumCSRs]handler

	// Collaborators
	mmu     MMU
	system  System
	counter Counter
	clock   Clock
	fpu     FPU
	vpu     VPU
	memory  GuestMemory

	logger logr.Logger
}

// Option is a functional option for configuring the Hart.
type Option func(*Hart)

// WithLogger sets the logger. Traps are logged at V(1), PMP and trigger
// writes at V(2).
func WithLogger(l logr.Logger) Option {
	return func(h *Hart) {
		h.logger = l
	}
}

// WithMMU sets the address translation collaborator.
func WithMMU(m MMU) Option {
	return func(h *Hart) {
		h.mmu = m
	}
}

// WithSystem sets the execution-control collaborator.
func WithSystem(s System) Option {
	return func(h *Hart) {
		h.system = s
	}
}

// WithCounter sets the source of the retired instruction count.
func WithCounter(c Counter) Option {
	return func(h *Hart) {
		h.counter = c
	}
}

// WithClock sets the source of the time CSR.
func WithClock(c Clock) Option {
	return func(h *Hart) {
		h.clock = c
	}
}

// WithFPU sets the floating-point unit collaborator.
func WithFPU(f FPU) Option {
	return func(h *Hart) {
		h.fpu = f
	}
}

// WithVPU sets the vector unit collaborator.
func WithVPU(v VPU) Option {
	return func(h *Hart) {
		h.vpu = v
	}
}

// WithGuestMemory sets the memory used by hypervisor loads and stores.
func WithGuestMemory(m GuestMemory) Option {
	return func(h *Hart) {
		h.memory = m
	}
}

// New creates a hart for cfg in machine mode with every register at its
// reset value. The configuration is cloned; later changes to cfg have no
// effect.
func New(cfg *config.Config, opts ...Option) *Hart {
	h := &Hart{
		cfg:    cfg.Clone(),
		mode:   csr.ModeM,
		logger: logr.Discard(),
	}

	for _, opt := range opts {
		opt(h)
	}

	// If no collaborator was provided, use inert defaults
	if h.mmu == nil {
		h.mmu = nopMMU{}
	}
	if h.system == nil {
		h.system = nopSystem{}
	}
	if h.counter == nil {
		h.counter = &RetireCounter{}
	}
	if h.clock == nil {
		h.clock = &RetireCounter{}
	}
	if h.fpu == nil {
		h.fpu = nopFPU{}
	}
	if h.vpu == nil {
		h.vpu = nopVPU{}
	}
	if h.memory == nil {
		h.memory = noGuestMemory{}
	}

	h.masks = csr.NewMasks(h.cfg)
	csr.Init(&h.file, h.cfg)

	n := 0
	if h.cfg.Triggers {
		n = max(h.cfg.TriggerCount, 1)
	}
	h.triggers = trigger.New(n)

	h.buildHandlers()

	return h
}

// Config returns the configuration of the hart.
func (h *Hart) Config() *config.Config {
	return h.cfg
}

// File returns the register file. Writes through it bypass every access
// check and effect.
func (h *Hart) File() *csr.File {
	return &h.file
}

// Masks returns the masks derived from the configuration.
func (h *Hart) Masks() csr.Masks {
	return h.masks
}

// Triggers returns the debug trigger module.
func (h *Hart) Triggers() *trigger.Module {
	return h.triggers
}

// Mode returns the current privilege level.
func (h *Hart) Mode() csr.Mode {
	return h.mode
}

// SetMode sets the current privilege level, as done by trap entry. ModeHS
// is stored as ModeS.
func (h *Hart) SetMode(m csr.Mode) {
	if m == csr.ModeHS {
		m = csr.ModeS
	}
	h.mode = m
}

// Virtualized reports whether the hart executes as a guest.
func (h *Hart) Virtualized() bool {
	return h.virt
}

// SetVirtualized sets the virtualization flag, as done by trap entry. It has
// no effect on a hart without the hypervisor extension.
func (h *Hart) SetVirtualized(v bool) {
	h.virt = v && h.cfg.Hypervisor
}

// SetVectorState records the vl and vtype produced by a vset{i}vl{i}
// instruction. vl and vtype are read-only to CSR instructions.
func (h *Hart) SetVectorState(vl, vtype uint64) {
	if !h.cfg.Vector {
		return
	}
	h.file.Set(csr.Vl, vl)
	h.file.Set(csr.Vtype, vtype)
}

// DisableTimerInterrupt clears mie.MTIE.
func (h *Hart) DisableTimerInterrupt() {
	h.logger.Info("disabled machine timer interrupt")
	mie := h.file.Slot(csr.Mie)
	*mie &^= csr.IrqMTI
}

// effectiveLevel is the level compared against the privilege bits of a CSR
// address.
func (h *Hart) effectiveLevel() csr.Mode {
	if h.mode == csr.ModeS && !h.virt {
		return csr.ModeHS
	}
	return h.mode
}

func (h *Hart) logTrap(err error, msg string) error {
	var t *Trap
	if !errors.As(err, &t) {
		return err
	}
	kv := []any{"trap", t.Kind.String(), "mode", h.mode.String(), "virt", h.virt}
	if t.HasCSR {
		kv = append(kv, "csr", csr.Name(t.CSR))
	}
	h.logger.V(1).Info(msg, kv...)
	return err
}
