package csr

import "github.com/sarchlab/rvcsr/config"

// Base write mask of mstatus: SIE, MIE, SPIE, MPIE, SPP, MPP, MPRV, SUM,
// MXR, TVM, TW, TSR, SBE, MBE and SD. WPRI, UXL and SXL cannot be written.
const mstatusWriteBase uint64 = 0x7e19aa | 1<<63 | 3<<36

// Fixed masks that do not depend on the configuration.
const (
	SstatusReadBase uint64 = 0x80000003000de162
	HstatusWrite    uint64 = 1<<22 | 1<<21 | 1<<20 | 1<<18 | 0x3f<<12 |
		1<<9 | 1<<8 | 1<<7 | 1<<6 | 1<<5
	MedelegMaskH  uint64 = 0xf0b7ff
	MedelegMask   uint64 = 0xb3ff
	MieMaskBase   uint64 = 0xaaa
	MipMaskBase   uint64 = IrqSEI | IrqSTI | IrqSSI
	FflagsMask    uint64 = 0x1f
	FrmMask       uint64 = 0x07
	FcsrMask      uint64 = 0xff
	VxrmMask      uint64 = 0x3
	VxsatMask     uint64 = 0x1
	VcsrMask      uint64 = 0x7
	EpcWriteMask  uint64 = ^uint64(1)
	HgeMaskRead   uint64 = ^uint64(1)
	TvecReadMask  uint64 = ^uint64(2)
	PMPCfgLegal   uint8  = PMPRead | PMPWrite | PMPExec | PMPA | PMPLock
)

// Masks are the configuration-dependent read and write masks of the
// multi-field registers. They are computed once per build configuration.
type Masks struct {
	MstatusWrite  uint64
	SstatusRead   uint64
	SstatusWrite  uint64
	HstatusWrite  uint64
	Counteren     uint64
	Mcountinhibit uint64
	MieWrite      uint64
	MipWrite      uint64
	Medeleg       uint64
	TvecWrite     uint64
	Satp          uint64
	Hgatp         uint64
	PMPAddrWrite  uint64
	PMPTor        uint64
}

// NewMasks derives the masks for cfg.
func NewMasks(cfg *config.Config) Masks {
	m := Masks{
		MstatusWrite: mstatusWriteBase,
		SstatusRead:  SstatusReadBase,
		MieWrite:     MieMaskBase,
		MipWrite:     MipMaskBase,
		Medeleg:      MedelegMask,
		TvecWrite:    ^uint64(3),
	}

	if cfg.FPU || cfg.MstatusFSWritable {
		m.MstatusWrite |= MstatusFS
	}
	if cfg.Hypervisor {
		m.MstatusWrite |= MstatusGVA | MstatusMPV
		m.HstatusWrite = HstatusWrite
		m.MieWrite |= VSIrqs | IrqSGEI
		m.MipWrite |= IrqVSSI
		m.Medeleg = MedelegMaskH
	}
	if cfg.Vector {
		m.MstatusWrite |= MstatusVS
		m.SstatusRead |= MstatusVS
	}
	m.SstatusWrite = m.MstatusWrite & m.SstatusRead

	if cfg.Zicntr {
		m.Counteren |= 0x7
	}
	if cfg.Zihpm {
		m.Counteren |= 0xfffffff8
	}
	if cfg.CountInhibit {
		if cfg.CountInhibitCounters {
			m.Mcountinhibit |= 0x5
		}
		if cfg.CountInhibitHPM {
			m.Mcountinhibit |= 0xfffffff8
		}
	}

	if cfg.VectoredTrapMode {
		m.TvecWrite = ^uint64(2)
	}

	ppn := uint64(1)<<(cfg.PAddrBits-12) - 1
	m.Satp = SatpModeMask | (uint64(1)<<cfg.ASIDLen-1)<<SatpASIDShift | ppn
	m.Hgatp = SatpModeMask | (uint64(1)<<cfg.VMIDLen-1)<<HgatpVMIDShift | ppn

	m.PMPAddrWrite = uint64(1)<<(cfg.PAddrBits-PMPShift) - 1
	m.PMPTor = -(uint64(1) << (cfg.PMPGranularity - PMPShift))

	return m
}

// PMPNapotOnes is the set of low pmpaddr bits forced to one when reading a
// NAPOT entry.
func (m Masks) PMPNapotOnes() uint64 {
	return ^m.PMPTor >> 1
}
