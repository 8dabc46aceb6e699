package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/sarchlab/rvcsr/config"
	"github.com/sarchlab/rvcsr/csr"
	"github.com/sarchlab/rvcsr/hart"
	"github.com/sarchlab/rvcsr/insts"
	"github.com/sarchlab/rvcsr/tlb"
)

// ErrGuestFault is returned by guest accesses to an unmapped guest page.
var ErrGuestFault = errors.New("guest page fault")

// systemCounter is the System collaborator of the simulated hart. It only
// counts notifications.
type systemCounter struct {
	codeFlushes uint64
	dirtyMarks  uint64
}

func (s *systemCounter) FlushCodeCache() { s.codeFlushes++ }
func (s *systemCounter) MarkStateDirty() { s.dirtyMarks++ }

// guestMemory is byte-addressed sparse memory reached through the guest
// translation of the hypervisor loads and stores.
type guestMemory struct {
	bytes map[uint64]byte
	tlb   *tlb.TLB
}

func (m *guestMemory) translate(addr uint64, mode hart.TranslationMode) (uint64, error) {
	if !mode.Translated() {
		return addr, nil
	}

	m.tlb.UpdateState()
	paddr, ok := m.tlb.Translate(addr)
	if !ok {
		return 0, errors.Wrapf(ErrGuestFault, "addr=%#x", addr)
	}
	return paddr, nil
}

func (m *guestMemory) Load(addr uint64, size int, mode hart.TranslationMode) (uint64, error) {
	paddr, err := m.translate(addr, mode)
	if err != nil {
		return 0, err
	}

	var v uint64
	for i := 0; i < size; i++ {
		v |= uint64(m.bytes[paddr+uint64(i)]) << (8 * i)
	}
	return v, nil
}

func (m *guestMemory) Store(addr uint64, size int, value uint64, mode hart.TranslationMode) error {
	paddr, err := m.translate(addr, mode)
	if err != nil {
		return err
	}

	for i := 0; i < size; i++ {
		m.bytes[paddr+uint64(i)] = byte(value >> (8 * i))
	}
	return nil
}

// Machine is a hart with the collaborators used by the simulator: a TLB as
// its MMU, a retire counter as its counter and clock, and sparse guest
// memory.
type Machine struct {
	hart    *hart.Hart
	tlb     *tlb.TLB
	counter *hart.RetireCounter
	system  *systemCounter
	memory  *guestMemory
	decoder *insts.Decoder
	logger  logr.Logger
}

// NewMachine builds a Machine for the script.
func NewMachine(cfg *config.Config, s *Script, logger logr.Logger) *Machine {
	pages := tlb.PageTable(s.Pages)
	m := &Machine{
		tlb:     tlb.New(tlb.DefaultConfig(), pages),
		counter: &hart.RetireCounter{},
		system:  &systemCounter{},
		memory: &guestMemory{
			bytes: make(map[uint64]byte),
			tlb:   tlb.New(tlb.DefaultConfig(), pages),
		},
		decoder: insts.NewDecoder(),
		logger:  logger,
	}

	m.hart = hart.New(cfg,
		hart.WithLogger(logger),
		hart.WithMMU(m.tlb),
		hart.WithSystem(m.system),
		hart.WithCounter(m.counter),
		hart.WithClock(m.counter),
		hart.WithGuestMemory(m.memory),
	)
	m.tlb.SetRoot(m.root)
	m.memory.tlb.SetRoot(func() uint64 { return m.hart.File().Get(csr.Vsatp) })

	for addr, word := range s.Memory {
		for i := 0; i < 8; i++ {
			m.memory.bytes[addr+uint64(i)] = byte(word >> (8 * i))
		}
	}

	return m
}

// root is satp, or vsatp while the hart is virtualized.
func (m *Machine) root() uint64 {
	if m.hart.Virtualized() {
		return m.hart.File().Get(csr.Vsatp)
	}
	return m.hart.File().Get(csr.Satp)
}

// Hart returns the simulated hart.
func (m *Machine) Hart() *hart.Hart {
	return m.hart
}

// TLB returns the MMU of the hart.
func (m *Machine) TLB() *tlb.TLB {
	return m.tlb
}

// Run replays every step, writing one line per step to w.
func (m *Machine) Run(steps []Step, w io.Writer) {
	for i := range steps {
		fmt.Fprintf(w, "%s\n", m.Step(&steps[i]))
	}

	stats := m.tlb.Stats()
	m.logger.V(1).Info("script done",
		"steps", len(steps),
		"retired", m.counter.Retired(),
		"tlbHits", stats.Hits,
		"tlbMisses", stats.Misses,
		"tlbFlushes", stats.Flushes,
		"codeCacheFlushes", m.system.codeFlushes,
		"stateDirty", m.system.dirtyMarks)
}

// Step performs one step and returns its report line. Steps are assumed
// checked by ParseScript.
func (m *Machine) Step(st *Step) string {
	h := m.hart

	switch {
	case st.Mode != "":
		h.SetMode(modes[strings.ToLower(st.Mode)])
		m.tlb.UpdateState()
		return fmt.Sprintf("mode = %s", h.Mode())

	case st.Virt != nil:
		h.SetVirtualized(*st.Virt)
		m.tlb.UpdateState()
		return fmt.Sprintf("virt = %t", h.Virtualized())

	case st.Read != "":
		addr, _ := parseCSR(st.Read)
		v, err := h.Read(addr)
		return report("read "+csr.Name(addr), v, err)

	case st.Write != "":
		addr, _ := parseCSR(st.Write)
		err := h.Write(addr, st.Value)
		return reportDone(fmt.Sprintf("write %s %#x", csr.Name(addr), st.Value), err)

	case st.Priv != "":
		pc, err := h.ExecutePrivileged(privOps[st.Priv], st.Addr)
		if st.Priv == "sret" || st.Priv == "mret" {
			return report(st.Priv, pc, err)
		}
		return reportDone(st.Priv, err)

	case st.Exec != nil:
		return m.exec(*st.Exec, st.Rs1, st.Rs2)

	case st.Retire != 0:
		m.counter.Retire(st.Retire)
		return fmt.Sprintf("retire %d", st.Retire)

	case st.HLV != "":
		v, err := h.GuestLoad(hlvOps[st.HLV], st.Addr)
		return report(fmt.Sprintf("%s %#x", st.HLV, st.Addr), v, err)

	case st.HSV != "":
		err := h.GuestStore(hsvOps[st.HSV], st.Addr, st.Value)
		return reportDone(fmt.Sprintf("%s %#x %#x", st.HSV, st.Addr, st.Value), err)

	case st.Translate != nil:
		vaddr := *st.Translate
		paddr, ok := m.tlb.Translate(vaddr)
		if !ok {
			return fmt.Sprintf("translate %#x: page fault", vaddr)
		}
		return fmt.Sprintf("translate %#x = %#x", vaddr, paddr)
	}

	return "nop"
}

func (m *Machine) exec(word uint32, rs1, rs2 uint64) string {
	inst := m.decoder.Decode(word)
	label := fmt.Sprintf("exec %#010x %s", word, inst.Op)

	res := m.hart.Execute(inst, rs1, rs2)
	switch {
	case res.Err != nil:
		return reportDone(label, res.Err)
	case res.Redirect:
		return fmt.Sprintf("%s: pc = %#x", label, res.NextPC)
	case res.WritesRd:
		return fmt.Sprintf("%s: x%d = %#x", label, inst.Rd, res.Value)
	}
	return label + ": ok"
}

func report(label string, v uint64, err error) string {
	if err != nil {
		return reportDone(label, err)
	}
	return fmt.Sprintf("%s = %#x", label, v)
}

func reportDone(label string, err error) string {
	var trap *hart.Trap
	switch {
	case err == nil:
		return label + ": ok"
	case errors.As(err, &trap):
		return fmt.Sprintf("%s: trap (cause %d): %v", label, trap.Kind.Cause(), err)
	}
	return fmt.Sprintf("%s: error: %v", label, err)
}
