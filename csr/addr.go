// Package csr provides the control-and-status register file of a RISC-V
// hart: the 4096-entry address space, the register existence table for a
// build configuration, field layouts and the masks derived from them.
package csr

// Unprivileged floating-point and vector CSRs.
const (
	Fflags uint16 = 0x001
	Frm    uint16 = 0x002
	Fcsr   uint16 = 0x003
	Vstart uint16 = 0x008
	Vxsat  uint16 = 0x009
	Vxrm   uint16 = 0x00A
	Vcsr   uint16 = 0x00F
)

// Unprivileged counters and vector configuration (read-only).
const (
	Cycle          uint16 = 0xC00
	Time           uint16 = 0xC01
	Instret        uint16 = 0xC02
	HPMCounterBase uint16 = 0xC03
	CounterEnd     uint16 = 0xC1F
	Vl             uint16 = 0xC20
	Vtype          uint16 = 0xC21
	Vlenb          uint16 = 0xC22
)

// Supervisor CSRs.
const (
	Sstatus    uint16 = 0x100
	Sie        uint16 = 0x104
	Stvec      uint16 = 0x105
	Scounteren uint16 = 0x106
	Sscratch   uint16 = 0x140
	Sepc       uint16 = 0x141
	Scause     uint16 = 0x142
	Stval      uint16 = 0x143
	Sip        uint16 = 0x144
	Satp       uint16 = 0x180
	Srnctl     uint16 = 0x5C4
)

// Hypervisor and virtual-supervisor CSRs.
const (
	Vsstatus   uint16 = 0x200
	Vsie       uint16 = 0x204
	Vstvec     uint16 = 0x205
	Vsscratch  uint16 = 0x240
	Vsepc      uint16 = 0x241
	Vscause    uint16 = 0x242
	Vstval     uint16 = 0x243
	Vsip       uint16 = 0x244
	Vsatp      uint16 = 0x280
	Hstatus    uint16 = 0x600
	Hedeleg    uint16 = 0x602
	Hideleg    uint16 = 0x603
	Hie        uint16 = 0x604
	Hcounteren uint16 = 0x606
	Hgeie      uint16 = 0x607
	Htval      uint16 = 0x643
	Hip        uint16 = 0x644
	Hvip       uint16 = 0x645
	Htinst     uint16 = 0x64A
	Hgatp      uint16 = 0x680
	Hgeip      uint16 = 0xE12
)

// Machine CSRs.
const (
	Mvendorid       uint16 = 0xF11
	Marchid         uint16 = 0xF12
	Mimpid          uint16 = 0xF13
	Mhartid         uint16 = 0xF14
	Mstatus         uint16 = 0x300
	Misa            uint16 = 0x301
	Medeleg         uint16 = 0x302
	Mideleg         uint16 = 0x303
	Mie             uint16 = 0x304
	Mtvec           uint16 = 0x305
	Mcounteren      uint16 = 0x306
	Mcountinhibit   uint16 = 0x320
	MHPMEventBase   uint16 = 0x323
	Mscratch        uint16 = 0x340
	Mepc            uint16 = 0x341
	Mcause          uint16 = 0x342
	Mtval           uint16 = 0x343
	Mip             uint16 = 0x344
	Mtinst          uint16 = 0x34A
	Mtval2          uint16 = 0x34B
	PMPCfgBase      uint16 = 0x3A0
	PMPAddrBase     uint16 = 0x3B0
	Tselect         uint16 = 0x7A0
	Tdata1          uint16 = 0x7A1
	Tdata2          uint16 = 0x7A2
	Tdata3          uint16 = 0x7A3
	Mcycle          uint16 = 0xB00
	Minstret        uint16 = 0xB02
	MHPMCounterBase uint16 = 0xB03
)

// Sizes of the banked CSR windows.
const (
	NumCSRs       = 4096
	NumHPM        = 29
	NumPMPCfgCSRs = 16
	MaxPMPEntries = 64
)

// Privilege level encoded in bits 9:8 of a CSR address.
func Level(addr uint16) uint8 {
	return uint8((addr >> 8) & 0x3)
}

// ReadOnly reports whether bits 11:10 of the address mark the CSR read-only.
func ReadOnly(addr uint16) bool {
	return addr>>10 == 0x3
}

// IsCounter reports whether addr is in the unprivileged counter window.
func IsCounter(addr uint16) bool {
	return addr >= Cycle && addr <= CounterEnd
}

// IsHPMCounter reports whether addr is one of hpmcounter3..31.
func IsHPMCounter(addr uint16) bool {
	return addr >= HPMCounterBase && addr <= CounterEnd
}

// IsMHPMCounter reports whether addr is one of mhpmcounter3..31.
func IsMHPMCounter(addr uint16) bool {
	return addr >= MHPMCounterBase && addr < MHPMCounterBase+NumHPM
}

// IsMHPMEvent reports whether addr is one of mhpmevent3..31.
func IsMHPMEvent(addr uint16) bool {
	return addr >= MHPMEventBase && addr < MHPMEventBase+NumHPM
}

// IsPMPCfg reports whether addr is one of pmpcfg0..15.
func IsPMPCfg(addr uint16) bool {
	return addr >= PMPCfgBase && addr < PMPCfgBase+NumPMPCfgCSRs
}

// IsPMPAddr reports whether addr is one of pmpaddr0..63.
func IsPMPAddr(addr uint16) bool {
	return addr >= PMPAddrBase && addr < PMPAddrBase+MaxPMPEntries
}
