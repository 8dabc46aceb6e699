package csr

// On RV64 one pmpcfg CSR packs the 8-bit configuration of eight entries and
// only the even-numbered pmpcfg CSRs exist.
const pmpCfgsPerCSR = 8

// PMPCfgAddr returns the pmpcfg CSR address and byte lane holding the
// configuration of entry idx.
func PMPCfgAddr(idx int) (addr uint16, lane int) {
	return PMPCfgBase + uint16(idx/pmpCfgsPerCSR*2), idx % pmpCfgsPerCSR
}

// PMPCfgFirstEntry returns the first entry packed into pmpcfg CSR addr.
func PMPCfgFirstEntry(addr uint16) int {
	return int(addr-PMPCfgBase) * 4
}

// PMPConfig returns the 8-bit configuration of entry idx.
func (f *File) PMPConfig(idx int) uint8 {
	addr, lane := PMPCfgAddr(idx)
	return uint8(f.Get(addr) >> (lane * 8))
}

// SetPMPConfig overwrites the 8-bit configuration of entry idx.
func (f *File) SetPMPConfig(idx int, cfg uint8) {
	addr, lane := PMPCfgAddr(idx)
	shift := lane * 8
	v := f.Get(addr)
	v = (v &^ (0xff << shift)) | uint64(cfg)<<shift
	f.Set(addr, v)
}

// PMPAddress returns the raw pmpaddr value of entry idx.
func (f *File) PMPAddress(idx int) uint64 {
	return f.Get(PMPAddrBase + uint16(idx))
}

// PMPLocked reports whether entry idx is frozen: it is locked itself, or the
// next entry is a locked top-of-range entry that uses it as its base. The
// last active entry has no successor.
func (f *File) PMPLocked(idx, active int) bool {
	if f.PMPConfig(idx)&PMPLock != 0 {
		return true
	}
	if idx+1 >= active {
		return false
	}
	next := f.PMPConfig(idx + 1)
	return next&PMPLock != 0 && next&PMPA == PMPTor
}
