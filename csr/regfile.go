package csr

// File represents the CSR address space of one hart.
// Every one of the 4096 encodings has a 64-bit slot; only the slots marked
// as existing belong to the configured register set.
type File struct {
	// regs holds the raw storage, indexed by CSR address.
	regs [NumCSRs]uint64

	// exist marks the addresses implemented by the active configuration.
	exist [NumCSRs]bool
}

// Exists reports whether addr is implemented. Addresses above 0xFFF never
// exist.
func (f *File) Exists(addr uint16) bool {
	if int(addr) >= NumCSRs {
		return false
	}
	return f.exist[addr]
}

// Implement marks addresses as existing.
func (f *File) Implement(addrs ...uint16) {
	for _, a := range addrs {
		f.exist[a&0xFFF] = true
	}
}

// Slot returns a reference to the raw storage of addr. No validation is
// performed.
func (f *File) Slot(addr uint16) *uint64 {
	return &f.regs[addr&0xFFF]
}

// Get returns the raw stored value of addr.
func (f *File) Get(addr uint16) uint64 {
	return f.regs[addr&0xFFF]
}

// Set overwrites the raw stored value of addr.
func (f *File) Set(addr uint16, value uint64) {
	f.regs[addr&0xFFF] = value
}

// Count returns the number of implemented addresses.
func (f *File) Count() int {
	n := 0
	for _, e := range f.exist {
		if e {
			n++
		}
	}
	return n
}

// Implemented returns the implemented addresses in ascending order.
func (f *File) Implemented() []uint16 {
	addrs := make([]uint16, 0, f.Count())
	for a, e := range f.exist {
		if e {
			addrs = append(addrs, uint16(a))
		}
	}
	return addrs
}
