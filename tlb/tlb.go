// Package tlb provides a translation lookaside buffer built on the Akita cache
// directory. A TLB serves as the MMU collaborator of a hart: the hart asks it
// to refresh its translation state and to drop cached translations.
package tlb

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/rvcsr/csr"
)

// Config holds TLB configuration parameters.
type Config struct {
	// Entries is the total number of cached translations.
	Entries int
	// Associativity is the number of ways per set.
	Associativity int
	// PageSize in bytes.
	PageSize int
}

// DefaultConfig returns a 64-entry, 4-way TLB of 4 KiB pages.
func DefaultConfig() Config {
	return Config{
		Entries:       64,
		Associativity: 4,
		PageSize:      4096,
	}
}

// Walker resolves a translation that is not cached.
type Walker interface {
	// Walk returns the physical page holding vpage, both page-aligned.
	Walk(vpage uint64) (ppage uint64, ok bool)
}

// PageTable is a Walker backed by a map from virtual to physical page.
type PageTable map[uint64]uint64

// Walk looks vpage up in the table.
func (p PageTable) Walk(vpage uint64) (uint64, bool) {
	ppage, ok := p[vpage]
	return ppage, ok
}

// RootFunc returns the translation root in effect: satp, or vsatp while the
// hart is virtualized.
type RootFunc func() uint64

// Statistics holds TLB statistics.
type Statistics struct {
	Lookups   uint64
	Hits      uint64
	Misses    uint64
	Faults    uint64
	Evictions uint64
	Flushes   uint64
}

// TLB caches virtual-to-physical page translations.
type TLB struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// frames holds the physical page of each block, indexed by
	// (setID * associativity + wayID)
	frames []uint64

	walker Walker
	root   RootFunc

	// lastRoot is the root seen by the latest UpdateState. Translation is
	// enabled when its mode field is not Bare.
	lastRoot uint64
	enabled  bool

	stats Statistics
}

// New creates a TLB. Until a root is attached with SetRoot, translation is
// disabled and addresses pass through unchanged.
func New(config Config, walker Walker) *TLB {
	numSets := config.Entries / config.Associativity

	return &TLB{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.PageSize,
			akitacache.NewLRUVictimFinder(),
		),
		frames: make([]uint64, numSets*config.Associativity),
		walker: walker,
	}
}

// SetRoot attaches the source of the translation root and refreshes the
// translation state from it.
func (t *TLB) SetRoot(fn RootFunc) {
	t.root = fn
	t.UpdateState()
}

// Config returns the TLB configuration.
func (t *TLB) Config() Config {
	return t.config
}

// Stats returns TLB statistics.
func (t *TLB) Stats() Statistics {
	return t.stats
}

// Enabled reports whether addresses are translated.
func (t *TLB) Enabled() bool {
	return t.enabled
}

// UpdateState recomputes whether translation is enabled. A change of the
// root drops every cached translation, since entries are not tagged with an
// address space.
func (t *TLB) UpdateState() {
	if t.root == nil {
		return
	}

	root := t.root()
	t.enabled = root&csr.SatpModeMask != 0
	if root != t.lastRoot {
		t.directory.Reset()
	}
	t.lastRoot = root
}

// Flush drops the cached translation of the page holding vaddr, or every
// cached translation when vaddr is 0.
func (t *TLB) Flush(vaddr uint64) {
	t.stats.Flushes++

	if vaddr == 0 {
		t.directory.Reset()
		return
	}

	block := t.directory.Lookup(0, t.pageOf(vaddr))
	if block != nil && block.IsValid {
		block.IsValid = false
	}
}

// Translate returns the physical address of vaddr. ok is false when the
// walker has no translation for the page.
func (t *TLB) Translate(vaddr uint64) (paddr uint64, ok bool) {
	if !t.enabled {
		return vaddr, true
	}

	t.stats.Lookups++
	vpage := t.pageOf(vaddr)
	offset := vaddr - vpage

	block := t.directory.Lookup(0, vpage)
	if block != nil && block.IsValid {
		t.stats.Hits++
		t.directory.Visit(block)
		return t.frames[t.blockIndex(block)] + offset, true
	}

	t.stats.Misses++
	ppage, ok := t.walker.Walk(vpage)
	if !ok {
		t.stats.Faults++
		return 0, false
	}

	t.fill(vpage, ppage)
	return ppage + offset, true
}

// Cached reports whether the page holding vaddr has a cached translation.
func (t *TLB) Cached(vaddr uint64) bool {
	block := t.directory.Lookup(0, t.pageOf(vaddr))
	return block != nil && block.IsValid
}

func (t *TLB) fill(vpage, ppage uint64) {
	victim := t.directory.FindVictim(vpage)
	if victim == nil {
		return
	}
	if victim.IsValid {
		t.stats.Evictions++
	}

	victim.Tag = vpage
	victim.IsValid = true
	victim.IsDirty = false
	t.frames[t.blockIndex(victim)] = ppage
	t.directory.Visit(victim)
}

func (t *TLB) pageOf(vaddr uint64) uint64 {
	size := uint64(t.config.PageSize)
	return vaddr / size * size
}

func (t *TLB) blockIndex(block *akitacache.Block) int {
	return block.SetID*t.config.Associativity + block.WayID
}
