// Package trigger implements the debug trigger module: a table of
// watchpoints addressed indirectly through tselect and tdata1..3.
package trigger

import "github.com/sarchlab/rvcsr/csr"

// Type is the tdata1.type field.
type Type uint8

// Trigger types. Only MControl has an effect; the other recognized types are
// placeholders whose writes are accepted without changing the trigger.
const (
	TypeNone      Type = 0
	TypeLegacy    Type = 1
	TypeMControl  Type = 2
	TypeICount    Type = 3
	TypeITrigger  Type = 4
	TypeETrigger  Type = 5
	TypeMControl6 Type = 6
	TypeTMExt     Type = 7
	TypeDisabled  Type = 15
)

// tdata1.type occupies bits 63:60 on RV64.
const typeShift = 60

// mcontrol fields.
const (
	McLoad     uint64 = 1 << 0
	McStore    uint64 = 1 << 1
	McExecute  uint64 = 1 << 2
	McU        uint64 = 1 << 3
	McS        uint64 = 1 << 4
	McM        uint64 = 1 << 6
	McMatch    uint64 = 0xf << 7
	McChain    uint64 = 1 << 11
	McAction   uint64 = 0xf << 12
	McSizeLo   uint64 = 3 << 16
	McTiming   uint64 = 1 << 18
	McSelect   uint64 = 1 << 19
	McHit      uint64 = 1 << 20
	McMaskMax  uint64 = 0x3f << 53
	McDMode    uint64 = 1 << 59
	mcWritable        = McLoad | McStore | McExecute | McU | McS | McM |
		McMatch | McChain | McTiming
)

// Match kinds held in mcontrol.match.
const (
	MatchEqual uint64 = 0
	MatchNAPOT uint64 = 1
	MatchGE    uint64 = 2
	MatchLT    uint64 = 3
)

// Kind is the kind of access checked against the triggers.
type Kind uint64

// Access kinds, numerically equal to the mcontrol select bits.
const (
	KindLoad    = Kind(McLoad)
	KindStore   = Kind(McStore)
	KindExecute = Kind(McExecute)
)

// Trigger is one watchpoint slot.
type Trigger struct {
	Data1 uint64
	Data2 uint64
	Data3 uint64
	Hit   bool
}

// Type returns the trigger type held in Data1.
func (t *Trigger) Type() Type {
	return Type(t.Data1 >> typeShift)
}

func (t *Trigger) disable() {
	t.Data1 = uint64(TypeDisabled) << typeShift
	t.Hit = false
}

// Timings summarizes which checks the armed triggers require, so that the
// execution loop can skip trigger matching when nothing is armed.
type Timings struct {
	Execute bool
	Load    bool
	Store   bool

	// Before is set when an armed trigger fires before the access, After when
	// one fires after it.
	Before bool
	After  bool
}

// Module is the trigger table of one hart.
type Module struct {
	triggers []Trigger
	selected int
	timings  Timings
}

// New allocates a module with n triggers, all disabled.
func New(n int) *Module {
	m := &Module{triggers: make([]Trigger, n)}
	for i := range m.triggers {
		m.triggers[i].disable()
	}
	return m
}

// Len returns the number of trigger slots.
func (m *Module) Len() int {
	return len(m.triggers)
}

// Selected returns the index held by tselect.
func (m *Module) Selected() int {
	return m.selected
}

// Select writes tselect. Indices beyond the table are ignored.
func (m *Module) Select(idx uint64) bool {
	if idx >= uint64(len(m.triggers)) {
		return false
	}
	m.selected = int(idx)
	return true
}

// Trigger returns slot idx.
func (m *Module) Trigger(idx int) *Trigger {
	return &m.triggers[idx]
}

// Timings returns the summary of armed triggers.
func (m *Module) Timings() Timings {
	return m.timings
}

// ReadData1 returns tdata1 of the selected trigger with its hit flag folded
// into bit 20.
func (m *Module) ReadData1() uint64 {
	t := &m.triggers[m.selected]
	v := t.Data1
	if t.Hit {
		v |= McHit
	}
	return v
}

// ReadData2 returns tdata2 of the selected trigger.
func (m *Module) ReadData2() uint64 {
	return m.triggers[m.selected].Data2
}

// ReadData3 returns tdata3 of the selected trigger.
func (m *Module) ReadData3() uint64 {
	return m.triggers[m.selected].Data3
}

// WriteData1 writes tdata1 of the selected trigger, dispatching on the
// requested type. It reports whether the trigger changed.
func (m *Module) WriteData1(v uint64) bool {
	t := &m.triggers[m.selected]

	switch Type(v >> typeShift) {
	case TypeNone, TypeDisabled:
		t.disable()
	case TypeMControl:
		m.writeMControl(t, v)
	default:
		return false
	}

	m.updateTimings()
	return true
}

// writeMControl keeps the fields this module implements and forces the rest
// to their only supported value: no debug mode, address match only,
// breakpoint exception action.
func (m *Module) writeMControl(t *Trigger, v uint64) {
	v &= mcWritable
	if match := csr.Field(v, McMatch); match > MatchLT {
		v = csr.SetField(v, McMatch, MatchEqual)
	}
	if m.selected == len(m.triggers)-1 {
		v &^= McChain
	}
	t.Data1 = uint64(TypeMControl)<<typeShift | v
	t.Hit = false
}

// WriteData2 writes tdata2 of the selected trigger.
func (m *Module) WriteData2(v uint64) {
	m.triggers[m.selected].Data2 = v
}

// WriteData3 writes tdata3 of the selected trigger. It carries no semantics
// for the implemented types.
func (m *Module) WriteData3(v uint64) {
	m.triggers[m.selected].Data3 = v
}

func (m *Module) updateTimings() {
	m.timings = Timings{}
	for i := range m.triggers {
		t := &m.triggers[i]
		if t.Type() != TypeMControl {
			continue
		}
		d := t.Data1
		m.timings.Execute = m.timings.Execute || d&McExecute != 0
		m.timings.Load = m.timings.Load || d&McLoad != 0
		m.timings.Store = m.timings.Store || d&McStore != 0
		if d&(McExecute|McLoad|McStore) == 0 {
			continue
		}
		if d&McTiming != 0 {
			m.timings.After = true
		} else {
			m.timings.Before = true
		}
	}
}

// Match checks an access against the armed triggers and returns the index
// of the first one that fires. A chained trigger fires only together with
// its successor. The hit flag of every firing trigger is set.
func (m *Module) Match(kind Kind, addr uint64, mode csr.Mode) (int, bool) {
	for i := 0; i < len(m.triggers); i++ {
		start := i
		ok := true
		for {
			ok = ok && m.matchOne(i, kind, addr, mode)
			if m.triggers[i].Data1&McChain == 0 || i == len(m.triggers)-1 {
				break
			}
			i++
		}
		if !ok {
			continue
		}
		for j := start; j <= i; j++ {
			m.triggers[j].Hit = true
		}
		return start, true
	}
	return -1, false
}

func (m *Module) matchOne(idx int, kind Kind, addr uint64, mode csr.Mode) bool {
	t := &m.triggers[idx]
	if t.Type() != TypeMControl || t.Data1&uint64(kind) == 0 {
		return false
	}

	var modeBit uint64
	switch mode {
	case csr.ModeM:
		modeBit = McM
	case csr.ModeS, csr.ModeHS:
		modeBit = McS
	default:
		modeBit = McU
	}
	if t.Data1&modeBit == 0 {
		return false
	}

	tdata2 := t.Data2
	switch csr.Field(t.Data1, McMatch) {
	case MatchNAPOT:
		mask := tdata2 ^ (tdata2 + 1)
		return addr&^mask == tdata2&^mask
	case MatchGE:
		return addr >= tdata2
	case MatchLT:
		return addr < tdata2
	default:
		return addr == tdata2
	}
}
