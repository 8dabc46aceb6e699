package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/rvcsr/csr"
	"github.com/sarchlab/rvcsr/hart"
	"github.com/sarchlab/rvcsr/insts"
)

// ErrBadStep is returned for a script step that does not name exactly one
// action, or names it with an unknown operand.
var ErrBadStep = errors.New("bad script step")

// Script is a sequence of steps replayed against one hart. YAML is a superset
// of JSON, so either syntax loads.
type Script struct {
	// Pages maps virtual pages to physical pages for the TLB walker.
	Pages map[uint64]uint64 `yaml:"pages"`

	// Memory holds initial little-endian 64-bit words of guest memory,
	// keyed by physical address.
	Memory map[uint64]uint64 `yaml:"memory"`

	Steps []Step `yaml:"steps"`
}

// Step is one action. Exactly one of the action fields is set; Value, Addr,
// Rs1 and Rs2 are operands.
type Step struct {
	Mode      string  `yaml:"mode,omitempty"`
	Virt      *bool   `yaml:"virt,omitempty"`
	Read      string  `yaml:"read,omitempty"`
	Write     string  `yaml:"write,omitempty"`
	Priv      string  `yaml:"priv,omitempty"`
	Exec      *uint32 `yaml:"exec,omitempty"`
	Retire    uint64  `yaml:"retire,omitempty"`
	HLV       string  `yaml:"hlv,omitempty"`
	HSV       string  `yaml:"hsv,omitempty"`
	Translate *uint64 `yaml:"translate,omitempty"`

	Value uint64 `yaml:"value,omitempty"`
	Addr  uint64 `yaml:"addr,omitempty"`
	Rs1   uint64 `yaml:"rs1,omitempty"`
	Rs2   uint64 `yaml:"rs2,omitempty"`
}

var modes = map[string]csr.Mode{
	"u": csr.ModeU, "s": csr.ModeS, "hs": csr.ModeHS, "m": csr.ModeM,
}

var privOps = map[string]uint32{
	"sret":            hart.OpSret,
	"mret":            hart.OpMret,
	"wfi":             hart.OpWfi,
	"sfence.w.inval":  hart.OpSfenceWInval,
	"sfence.inval.ir": hart.OpSfenceInvalIR,
	"fence.i":         hart.OpFenceI,
	"sfence.vma":      insts.Funct7SFENCEVMA << 5,
	"sinval.vma":      insts.Funct7SINVALVMA << 5,
	"hfence.vvma":     insts.Funct7HFENCEVVMA << 5,
	"hfence.gvma":     insts.Funct7HFENCEGVMA << 5,
	"hinval.vvma":     insts.Funct7HINVALVVMA << 5,
	"hinval.gvma":     insts.Funct7HINVALGVMA << 5,
}

var hlvOps = map[string]uint32{
	"hlv.b": 0x600, "hlv.bu": 0x601,
	"hlv.h": 0x640, "hlv.hu": 0x641, "hlvx.hu": 0x643,
	"hlv.w": 0x680, "hlv.wu": 0x681, "hlvx.wu": 0x683,
	"hlv.d": 0x6c0,
}

var hsvOps = map[string]uint32{
	"hsv.b": 0x31, "hsv.h": 0x33, "hsv.w": 0x35, "hsv.d": 0x37,
}

// LoadScript reads and checks a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read script")
	}
	return ParseScript(data)
}

// ParseScript decodes a script and checks every step.
func ParseScript(data []byte) (*Script, error) {
	s := &Script{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "failed to parse script")
	}

	for i := range s.Steps {
		if err := s.Steps[i].check(); err != nil {
			return nil, errors.WithMessagef(err, "step %d", i)
		}
	}
	return s, nil
}

func (st *Step) actions() int {
	n := 0
	for _, set := range []bool{
		st.Mode != "", st.Virt != nil, st.Read != "", st.Write != "",
		st.Priv != "", st.Exec != nil, st.Retire != 0, st.HLV != "",
		st.HSV != "", st.Translate != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (st *Step) check() error {
	if n := st.actions(); n != 1 {
		return errors.Wrapf(ErrBadStep, "%d actions", n)
	}

	switch {
	case st.Mode != "":
		if _, ok := modes[strings.ToLower(st.Mode)]; !ok {
			return errors.Wrapf(ErrBadStep, "mode %q", st.Mode)
		}
	case st.Read != "":
		_, err := parseCSR(st.Read)
		return err
	case st.Write != "":
		_, err := parseCSR(st.Write)
		return err
	case st.Priv != "":
		if _, ok := privOps[st.Priv]; !ok {
			return errors.Wrapf(ErrBadStep, "privileged instruction %q", st.Priv)
		}
	case st.HLV != "":
		if _, ok := hlvOps[st.HLV]; !ok {
			return errors.Wrapf(ErrBadStep, "hypervisor load %q", st.HLV)
		}
	case st.HSV != "":
		if _, ok := hsvOps[st.HSV]; !ok {
			return errors.Wrapf(ErrBadStep, "hypervisor store %q", st.HSV)
		}
	}
	return nil
}

// parseCSR accepts a mnemonic or a numeric address.
func parseCSR(s string) (uint16, error) {
	if addr, ok := csr.Lookup(s); ok {
		return addr, nil
	}

	addr, err := strconv.ParseUint(s, 0, 12)
	if err != nil {
		return 0, errors.Wrapf(ErrBadStep, "csr %q", s)
	}
	return uint16(addr), nil
}
