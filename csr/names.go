package csr

import "fmt"

var names = map[uint16]string{
	Fflags: "fflags", Frm: "frm", Fcsr: "fcsr",
	Vstart: "vstart", Vxsat: "vxsat", Vxrm: "vxrm", Vcsr: "vcsr",
	Cycle: "cycle", Time: "time", Instret: "instret",
	Vl: "vl", Vtype: "vtype", Vlenb: "vlenb",
	Sstatus: "sstatus", Sie: "sie", Stvec: "stvec", Scounteren: "scounteren",
	Sscratch: "sscratch", Sepc: "sepc", Scause: "scause", Stval: "stval",
	Sip: "sip", Satp: "satp", Srnctl: "srnctl",
	Vsstatus: "vsstatus", Vsie: "vsie", Vstvec: "vstvec",
	Vsscratch: "vsscratch", Vsepc: "vsepc", Vscause: "vscause",
	Vstval: "vstval", Vsip: "vsip", Vsatp: "vsatp",
	Hstatus: "hstatus", Hedeleg: "hedeleg", Hideleg: "hideleg", Hie: "hie",
	Hcounteren: "hcounteren", Hgeie: "hgeie", Htval: "htval", Hip: "hip",
	Hvip: "hvip", Htinst: "htinst", Hgatp: "hgatp", Hgeip: "hgeip",
	Mvendorid: "mvendorid", Marchid: "marchid", Mimpid: "mimpid",
	Mhartid: "mhartid", Mstatus: "mstatus", Misa: "misa",
	Medeleg: "medeleg", Mideleg: "mideleg", Mie: "mie", Mtvec: "mtvec",
	Mcounteren: "mcounteren", Mcountinhibit: "mcountinhibit",
	Mscratch: "mscratch", Mepc: "mepc", Mcause: "mcause", Mtval: "mtval",
	Mip: "mip", Mtinst: "mtinst", Mtval2: "mtval2",
	Tselect: "tselect", Tdata1: "tdata1", Tdata2: "tdata2", Tdata3: "tdata3",
	Mcycle: "mcycle", Minstret: "minstret",
}

var byName map[string]uint16

func init() {
	for i := uint16(0); i < NumHPM; i++ {
		names[HPMCounterBase+i] = fmt.Sprintf("hpmcounter%d", i+3)
		names[MHPMCounterBase+i] = fmt.Sprintf("mhpmcounter%d", i+3)
		names[MHPMEventBase+i] = fmt.Sprintf("mhpmevent%d", i+3)
	}
	for i := uint16(0); i < NumPMPCfgCSRs; i++ {
		names[PMPCfgBase+i] = fmt.Sprintf("pmpcfg%d", i)
	}
	for i := uint16(0); i < MaxPMPEntries; i++ {
		names[PMPAddrBase+i] = fmt.Sprintf("pmpaddr%d", i)
	}

	byName = make(map[string]uint16, len(names))
	for addr, name := range names {
		byName[name] = addr
	}
}

// Name returns the mnemonic of addr, or its hex encoding if it has none.
func Name(addr uint16) string {
	if n, ok := names[addr]; ok {
		return n
	}
	return fmt.Sprintf("csr%#03x", addr)
}

// Lookup returns the address of a CSR mnemonic.
func Lookup(name string) (uint16, bool) {
	addr, ok := byName[name]
	return addr, ok
}
