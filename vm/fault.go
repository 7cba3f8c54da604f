package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/sparrow/pkg/bytecode"
)

// FaultKind classifies a fatal execution error.
type FaultKind uint8

const (
	FaultDecode      FaultKind = iota + 1 // operand bytes ended early, or unknown opcode
	FaultStackShape                       // stack top has the wrong shape
	FaultResolution                       // LOAD of a local absent from the current frame
	FaultExhaustion                       // CLEAR emptied the stack
	FaultOutOfBounds                      // operand outside the constant or local table
)

// Sentinels matched by errors.Is against a *Fault of the same kind.
var (
	ErrDecode      = errors.New("decode fault")
	ErrStackShape  = errors.New("stack-shape fault")
	ErrResolution  = errors.New("resolution fault")
	ErrExhaustion  = errors.New("exhaustion fault")
	ErrOutOfBounds = errors.New("out-of-bounds fault")
)

// String returns the fault category name.
func (k FaultKind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("FaultKind(%d)", k)
}

func (k FaultKind) sentinel() error {
	switch k {
	case FaultDecode:
		return ErrDecode
	case FaultStackShape:
		return ErrStackShape
	case FaultResolution:
		return ErrResolution
	case FaultExhaustion:
		return ErrExhaustion
	case FaultOutOfBounds:
		return ErrOutOfBounds
	default:
		return nil
	}
}

// Fault is the error returned by Run when an instruction cannot complete.
// The stack is left as the failing instruction found it, minus whatever
// earlier instructions changed; a faulted VM should be Reset or dropped.
type Fault struct {
	Kind   FaultKind
	Offset int             // offset of the failing opcode in the chunk
	Op     bytecode.Opcode // the failing opcode
	Msg    string
	Err    error // underlying cause, if any
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s at %04X (%s): %s", f.Kind, f.Offset, f.Op, f.Msg)
}

// Is reports whether target is the sentinel for this fault's kind.
func (f *Fault) Is(target error) bool {
	return target != nil && target == f.Kind.sentinel()
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// KindOf returns the kind of the first *Fault in err's chain.
func KindOf(err error) (FaultKind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

// IsFault reports whether err carries a fault of the given kind.
func IsFault(err error, kind FaultKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
