// Package config holds the build configuration of a simulated RISC-V hart:
// which optional extensions exist and the sizes that shape the CSR masks.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v3"
)

// Errors returned by Validate.
var (
	ErrPMPEntries     = errors.New("pmp entry count out of range")
	ErrPMPGranularity = errors.New("pmp granularity out of range")
	ErrPAddrBits      = errors.New("physical address width out of range")
	ErrTriggerCount   = errors.New("trigger count out of range")
	ErrVLEN           = errors.New("vlen must be a power of two >= 64")
	ErrASIDLen        = errors.New("asid length out of range")
	ErrVMIDLen        = errors.New("vmid length out of range")
)

// Config selects the CSR set and the masks of one hart. It is fixed for the
// lifetime of the hart once applied.
type Config struct {
	// HartID is the value read from mhartid.
	HartID uint64 `json:"hart_id" yaml:"hart_id"`

	// Hypervisor enables the H extension: hypervisor and virtual-supervisor
	// CSRs, the virtualization flag and guest load/store instructions.
	Hypervisor bool `json:"hypervisor" yaml:"hypervisor"`

	// Vector enables the vector CSRs and mstatus.VS.
	Vector bool `json:"vector" yaml:"vector"`

	// FPU enables fflags, frm, fcsr and a writable mstatus.FS.
	FPU bool `json:"fpu" yaml:"fpu"`

	// MstatusFSWritable keeps mstatus.FS writable even without an FPU.
	MstatusFSWritable bool `json:"mstatus_fs_writable" yaml:"mstatus_fs_writable"`

	// FSAlwaysDirty pins a non-off mstatus.FS to the dirty state.
	FSAlwaysDirty bool `json:"fs_always_dirty" yaml:"fs_always_dirty"`

	// Zicntr enables the cycle and instret counters (and their
	// counter-enable bits).
	Zicntr bool `json:"zicntr" yaml:"zicntr"`

	// Time enables the time CSR. Requires Zicntr.
	Time bool `json:"time" yaml:"time"`

	// Zihpm enables the hpmcounter3..31 window.
	Zihpm bool `json:"zihpm" yaml:"zihpm"`

	// CountInhibit enables mcountinhibit.
	CountInhibit bool `json:"count_inhibit" yaml:"count_inhibit"`

	// CountInhibitCounters makes the CY and IR bits of mcountinhibit writable.
	CountInhibitCounters bool `json:"count_inhibit_counters" yaml:"count_inhibit_counters"`

	// CountInhibitHPM makes the HPM bits of mcountinhibit writable.
	CountInhibitHPM bool `json:"count_inhibit_hpm" yaml:"count_inhibit_hpm"`

	// PMP enables the pmpcfg/pmpaddr CSRs.
	PMP bool `json:"pmp" yaml:"pmp"`

	// PMPMaxEntries is the number of pmpaddr CSRs that exist (16 or 64).
	PMPMaxEntries int `json:"pmp_max_entries" yaml:"pmp_max_entries"`

	// PMPActiveEntries is the number of entries that hold state. Entries at
	// or above it read as zero and ignore writes.
	PMPActiveEntries int `json:"pmp_active_entries" yaml:"pmp_active_entries"`

	// PMPGranularity is log2 of the smallest PMP region in bytes.
	PMPGranularity int `json:"pmp_granularity" yaml:"pmp_granularity"`

	// PAddrBits is the physical address width.
	PAddrBits int `json:"paddr_bits" yaml:"paddr_bits"`

	// ASIDLen is the number of implemented satp.ASID bits.
	ASIDLen int `json:"asid_len" yaml:"asid_len"`

	// VMIDLen is the number of implemented hgatp.VMID bits.
	VMIDLen int `json:"vmid_len" yaml:"vmid_len"`

	// Triggers enables the debug trigger module.
	Triggers bool `json:"triggers" yaml:"triggers"`

	// TriggerCount is the number of trigger slots.
	TriggerCount int `json:"trigger_count" yaml:"trigger_count"`

	// Svinval enables the fine-grained fence instructions and srnctl.
	Svinval bool `json:"svinval" yaml:"svinval"`

	// VLEN is the vector register width in bits.
	VLEN int `json:"vlen" yaml:"vlen"`

	// VectoredTrapMode allows mtvec/stvec MODE=1.
	VectoredTrapMode bool `json:"vectored_trap_mode" yaml:"vectored_trap_mode"`

	// MisaUnchangeable makes misa ignore writes.
	MisaUnchangeable bool `json:"misa_unchangeable" yaml:"misa_unchangeable"`

	// PanicOnUnimplementedCSR turns an access to a CSR that does not exist
	// into a fatal error instead of an illegal instruction trap.
	PanicOnUnimplementedCSR bool `json:"panic_on_unimplemented_csr" yaml:"panic_on_unimplemented_csr"`
}

// DefaultConfig returns an RV64GCV hart with hypervisor, PMP and triggers.
func DefaultConfig() *Config {
	return &Config{
		HartID:               0,
		Hypervisor:           true,
		Vector:               true,
		FPU:                  true,
		Zicntr:               true,
		Time:                 true,
		Zihpm:                true,
		CountInhibit:         true,
		CountInhibitCounters: true,
		CountInhibitHPM:      false,
		PMP:                  true,
		PMPMaxEntries:        16,
		PMPActiveEntries:     16,
		PMPGranularity:       12,
		PAddrBits:            36,
		ASIDLen:              16,
		VMIDLen:              14,
		Triggers:             true,
		TriggerCount:         4,
		Svinval:              true,
		VLEN:                 128,
		VectoredTrapMode:     true,
		MisaUnchangeable:     true,
	}
}

// MinimalConfig returns an RV64IMAC-style hart: machine, supervisor and user
// modes with counters and nothing else.
func MinimalConfig() *Config {
	return &Config{
		Zicntr:           true,
		PMPMaxEntries:    16,
		PMPGranularity:   12,
		PAddrBits:        36,
		ASIDLen:          16,
		VMIDLen:          14,
		VLEN:             128,
		MisaUnchangeable: true,
	}
}

// LoadConfig loads a Config from a JSON or YAML file. Fields the file does
// not mention keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read hart config file")
	}

	c := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse hart config")
	}

	return c, nil
}

// SaveConfig writes the Config to a JSON or YAML file chosen by extension.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "failed to serialize hart config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write hart config file")
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Validate checks that sizes are consistent with each other.
func (c *Config) Validate() error {
	if c.PMP {
		if c.PMPMaxEntries != 16 && c.PMPMaxEntries != 64 {
			return errors.Wrapf(ErrPMPEntries, "pmp_max_entries=%d", c.PMPMaxEntries)
		}
		if c.PMPActiveEntries < 0 || c.PMPActiveEntries > c.PMPMaxEntries {
			return errors.Wrapf(ErrPMPEntries, "pmp_active_entries=%d", c.PMPActiveEntries)
		}
	}
	if c.PMPGranularity < 2 || c.PMPGranularity > c.PAddrBits {
		return errors.Wrapf(ErrPMPGranularity, "pmp_granularity=%d", c.PMPGranularity)
	}
	if c.PAddrBits < 32 || c.PAddrBits > 56 {
		return errors.Wrapf(ErrPAddrBits, "paddr_bits=%d", c.PAddrBits)
	}
	if c.ASIDLen < 0 || c.ASIDLen > 16 {
		return errors.Wrapf(ErrASIDLen, "asid_len=%d", c.ASIDLen)
	}
	if c.VMIDLen < 0 || c.VMIDLen > 14 {
		return errors.Wrapf(ErrVMIDLen, "vmid_len=%d", c.VMIDLen)
	}
	if c.Triggers && (c.TriggerCount < 1 || c.TriggerCount > 64) {
		return errors.Wrapf(ErrTriggerCount, "trigger_count=%d", c.TriggerCount)
	}
	if c.Vector && (c.VLEN < 64 || c.VLEN&(c.VLEN-1) != 0) {
		return errors.Wrapf(ErrVLEN, "vlen=%d", c.VLEN)
	}
	if c.Time && !c.Zicntr {
		return errors.New("time requires zicntr")
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
