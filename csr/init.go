package csr

import "github.com/sarchlab/rvcsr/config"

// misa extension letters.
const (
	MisaA uint64 = 1 << ('A' - 'A')
	MisaC uint64 = 1 << ('C' - 'A')
	MisaD uint64 = 1 << ('D' - 'A')
	MisaF uint64 = 1 << ('F' - 'A')
	MisaH uint64 = 1 << ('H' - 'A')
	MisaI uint64 = 1 << ('I' - 'A')
	MisaM uint64 = 1 << ('M' - 'A')
	MisaS uint64 = 1 << ('S' - 'A')
	MisaU uint64 = 1 << ('U' - 'A')
	MisaV uint64 = 1 << ('V' - 'A')

	MisaMXL64 uint64 = 2 << 62
)

// SrnctlSvinval enables the Svinval instructions in srnctl.
const SrnctlSvinval uint64 = 1 << 4

// Init marks the registers of the configured CSR set as existing and loads
// their reset values. Addresses outside the set stay nonexistent.
func Init(f *File, cfg *config.Config) {
	*f = File{}

	f.Implement(
		Mvendorid, Marchid, Mimpid, Mhartid,
		Mstatus, Misa, Medeleg, Mideleg, Mie, Mtvec, Mcounteren,
		Mscratch, Mepc, Mcause, Mtval, Mip,
		Mcycle, Minstret,
		Sstatus, Sie, Stvec, Scounteren, Sscratch, Sepc, Scause, Stval, Sip,
		Satp,
	)
	for i := uint16(0); i < NumHPM; i++ {
		f.Implement(MHPMCounterBase+i, MHPMEventBase+i)
	}

	if cfg.FPU {
		f.Implement(Fflags, Frm, Fcsr)
	}
	if cfg.Vector {
		f.Implement(Vstart, Vxsat, Vxrm, Vcsr, Vl, Vtype, Vlenb)
	}
	if cfg.Zicntr {
		f.Implement(Cycle, Instret)
		if cfg.Time {
			f.Implement(Time)
		}
	}
	if cfg.Zihpm {
		for i := uint16(0); i < NumHPM; i++ {
			f.Implement(HPMCounterBase + i)
		}
	}
	if cfg.CountInhibit {
		f.Implement(Mcountinhibit)
	}
	if cfg.PMP {
		// On RV64 only the even pmpcfg registers exist, eight entries each.
		for i := 0; i < cfg.PMPMaxEntries/8; i++ {
			f.Implement(PMPCfgBase + uint16(i*2))
		}
		for i := 0; i < cfg.PMPMaxEntries; i++ {
			f.Implement(PMPAddrBase + uint16(i))
		}
	}
	if cfg.Hypervisor {
		f.Implement(
			Hstatus, Hedeleg, Hideleg, Hie, Hcounteren, Hgeie, Htval, Hip,
			Hvip, Htinst, Hgatp, Hgeip,
			Vsstatus, Vsie, Vstvec, Vsscratch, Vsepc, Vscause, Vstval, Vsip,
			Vsatp,
			Mtval2, Mtinst,
		)
	}
	if cfg.Triggers {
		f.Implement(Tselect, Tdata1, Tdata2, Tdata3)
	}
	if cfg.Svinval {
		f.Implement(Srnctl)
	}

	reset(f, cfg)
}

func reset(f *File, cfg *config.Config) {
	f.Set(Mstatus, 2<<MstatusUXLShift|2<<MstatusSXLShift)
	f.Set(Misa, MisaValue(cfg))
	f.Set(Mhartid, cfg.HartID)

	if cfg.Hypervisor {
		f.Set(Hstatus, 2<<HstatusVSXLShift)
		f.Set(Vsstatus, 2<<MstatusUXLShift)
		f.Set(Mideleg, MidelegForced)
	}
	if cfg.Svinval {
		f.Set(Srnctl, SrnctlSvinval)
	}
}

// MisaValue returns the misa reset value for cfg.
func MisaValue(cfg *config.Config) uint64 {
	misa := MisaMXL64 | MisaI | MisaM | MisaA | MisaC | MisaS | MisaU
	if cfg.FPU {
		misa |= MisaF | MisaD
	}
	if cfg.Hypervisor {
		misa |= MisaH
	}
	if cfg.Vector {
		misa |= MisaV
	}
	return misa
}
