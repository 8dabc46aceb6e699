package csr

// Mode is a hart privilege level as stored in xPP fields.
type Mode uint8

// Privilege levels. ModeHS is the effective level of supervisor mode while
// the hart is not virtualized; it is never stored as the current mode.
const (
	ModeU  Mode = 0
	ModeS  Mode = 1
	ModeHS Mode = 2
	ModeM  Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeU:
		return "U"
	case ModeS:
		return "S"
	case ModeHS:
		return "HS"
	case ModeM:
		return "M"
	}
	return "?"
}

// mstatus / sstatus / vsstatus fields.
const (
	MstatusSIE  uint64 = 1 << 1
	MstatusMIE  uint64 = 1 << 3
	MstatusSPIE uint64 = 1 << 5
	MstatusUBE  uint64 = 1 << 6
	MstatusMPIE uint64 = 1 << 7
	MstatusSPP  uint64 = 1 << 8
	MstatusVS   uint64 = 3 << 9
	MstatusMPP  uint64 = 3 << 11
	MstatusFS   uint64 = 3 << 13
	MstatusXS   uint64 = 3 << 15
	MstatusMPRV uint64 = 1 << 17
	MstatusSUM  uint64 = 1 << 18
	MstatusMXR  uint64 = 1 << 19
	MstatusTVM  uint64 = 1 << 20
	MstatusTW   uint64 = 1 << 21
	MstatusTSR  uint64 = 1 << 22
	MstatusUXL  uint64 = 3 << 32
	MstatusSXL  uint64 = 3 << 34
	MstatusSBE  uint64 = 1 << 36
	MstatusMBE  uint64 = 1 << 37
	MstatusGVA  uint64 = 1 << 38
	MstatusMPV  uint64 = 1 << 39
	MstatusSD   uint64 = 1 << 63
)

// Field shifts used when extracting multi-bit fields.
const (
	MstatusSPPShift = 8
	MstatusVSShift  = 9
	MstatusMPPShift = 11
	MstatusFSShift  = 13
	MstatusUXLShift = 32
	MstatusSXLShift = 34
)

// Extension unit state in mstatus.FS / mstatus.VS.
const (
	ExtOff     uint64 = 0
	ExtInitial uint64 = 1
	ExtClean   uint64 = 2
	ExtDirty   uint64 = 3
)

// hstatus fields.
const (
	HstatusVSBE  uint64 = 1 << 5
	HstatusGVA   uint64 = 1 << 6
	HstatusSPV   uint64 = 1 << 7
	HstatusSPVP  uint64 = 1 << 8
	HstatusHU    uint64 = 1 << 9
	HstatusVGEIN uint64 = 0x3f << 12
	HstatusVTVM  uint64 = 1 << 20
	HstatusVTW   uint64 = 1 << 21
	HstatusVTSR  uint64 = 1 << 22
	HstatusVSXL  uint64 = 3 << 32

	HstatusVSXLShift = 32
)

// Interrupt bits of mip/mie and their supervisor views.
const (
	IrqSSI  uint64 = 1 << 1
	IrqVSSI uint64 = 1 << 2
	IrqMSI  uint64 = 1 << 3
	IrqSTI  uint64 = 1 << 5
	IrqVSTI uint64 = 1 << 6
	IrqMTI  uint64 = 1 << 7
	IrqSEI  uint64 = 1 << 9
	IrqVSEI uint64 = 1 << 10
	IrqMEI  uint64 = 1 << 11
	IrqSGEI uint64 = 1 << 12
)

// Interrupt groups.
const (
	// SupervisorIrqs are the interrupts visible through sie/sip.
	SupervisorIrqs = IrqSSI | IrqSTI | IrqSEI
	// VSIrqs are the interrupts delegable to virtual supervisor mode.
	VSIrqs = IrqVSSI | IrqVSTI | IrqVSEI
	// MidelegForced are the mideleg bits that read as one with hypervisor.
	MidelegForced = VSIrqs | IrqSGEI
	// HSIrqs are the interrupts visible through hie/hip.
	HSIrqs = IrqSGEI | VSIrqs
)

// satp / vsatp / hgatp fields.
const (
	SatpModeMask  uint64 = 0xF << 60
	SatpModeShift        = 60
	SatpASIDShift        = 44
	HgatpVMIDShift       = 44
	SatpPPNBits          = 44

	SatpModeBare uint64 = 0
	SatpModeSv39 uint64 = 8
)

// PMP configuration byte fields.
const (
	PMPRead  uint8 = 1 << 0
	PMPWrite uint8 = 1 << 1
	PMPExec  uint8 = 1 << 2
	PMPA     uint8 = 3 << 3
	PMPTor   uint8 = 1 << 3
	PMPNa4   uint8 = 2 << 3
	PMPNapot uint8 = 3 << 3
	PMPLock  uint8 = 1 << 7

	// PMPShift is the number of address bits below pmpaddr bit 0.
	PMPShift = 2
)

// Field returns bits of v selected by mask, shifted down to bit 0.
func Field(v, mask uint64) uint64 {
	if mask == 0 {
		return 0
	}
	shift := 0
	for mask&(1<<shift) == 0 {
		shift++
	}
	return (v & mask) >> shift
}

// SetField replaces the bits of v selected by mask with x.
func SetField(v, mask, x uint64) uint64 {
	if mask == 0 {
		return v
	}
	shift := 0
	for mask&(1<<shift) == 0 {
		shift++
	}
	return (v &^ mask) | ((x << shift) & mask)
}

// MaskBitset merges the bits of new selected by mask into old.
func MaskBitset(old, mask, new uint64) uint64 {
	return (old &^ mask) | (new & mask)
}
