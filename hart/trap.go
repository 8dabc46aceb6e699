package hart

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sarchlab/rvcsr/csr"
)

// TrapKind classifies an architectural violation.
type TrapKind uint8

// Trap kinds.
const (
	TrapIllegalInstruction TrapKind = iota
	TrapVirtualInstruction
)

func (k TrapKind) String() string {
	switch k {
	case TrapIllegalInstruction:
		return "illegal instruction"
	case TrapVirtualInstruction:
		return "virtual instruction"
	}
	return "unknown trap"
}

// Cause returns the mcause exception code of the trap.
func (k TrapKind) Cause() uint64 {
	if k == TrapVirtualInstruction {
		return 22
	}
	return 2
}

// Trap is returned by every access or instruction that violates the
// architecture. The state of the hart is unchanged when a Trap is returned.
type Trap struct {
	Kind TrapKind

	// CSR is the register being accessed, if the trap came from a CSR
	// access.
	CSR    uint16
	HasCSR bool

	// Err carries the underlying reason when the trap was caused by an
	// unsupported operation.
	Err error
}

func (t *Trap) Error() string {
	switch {
	case t.HasCSR:
		return fmt.Sprintf("%s: %s", t.Kind, csr.Name(t.CSR))
	case t.Err != nil:
		return fmt.Sprintf("%s: %v", t.Kind, t.Err)
	}
	return t.Kind.String()
}

// Unwrap returns the underlying reason, if any.
func (t *Trap) Unwrap() error {
	return t.Err
}

// IsTrap reports whether err is a Trap of the given kind.
func IsTrap(err error, kind TrapKind) bool {
	var t *Trap
	if !errors.As(err, &t) {
		return false
	}
	return t.Kind == kind
}

// ErrUnsupportedOp is wrapped by the illegal-instruction trap raised for
// privileged operation codes the hart does not implement.
var ErrUnsupportedOp = errors.New("unsupported privileged operation")

// UnimplementedCSRError is the panic value raised when an absent CSR is
// accessed on a hart configured with PanicOnUnimplementedCSR.
type UnimplementedCSRError struct {
	Addr uint16
}

func (e *UnimplementedCSRError) Error() string {
	return fmt.Sprintf("unimplemented CSR %#03x", e.Addr)
}

func illegal() error {
	return &Trap{Kind: TrapIllegalInstruction}
}

func virtual() error {
	return &Trap{Kind: TrapVirtualInstruction}
}

func unsupported(op uint32) error {
	return &Trap{
		Kind: TrapIllegalInstruction,
		Err:  errors.Wrapf(ErrUnsupportedOp, "op %#x", op),
	}
}

// withCSR attaches the accessed register to a Trap raised by a handler.
func withCSR(err error, addr uint16) error {
	var t *Trap
	if errors.As(err, &t) && !t.HasCSR {
		t.CSR = addr
		t.HasCSR = true
	}
	return err
}
