package vm

import (
	"fmt"

	"github.com/chazu/sparrow/pkg/bytecode"
	"github.com/chazu/sparrow/pkg/value"
)

// ---------------------------------------------------------------------------
// VM: the sparrow stack machine
// ---------------------------------------------------------------------------

// VM executes bytecode chunks against a single stack. The stack persists
// across Run calls, so a REPL can feed one chunk per line and keep its
// bindings. A VM is not safe for concurrent use.
type VM struct {
	chunk  *bytecode.Chunk
	ip     int
	stack  *Stack
	tracer Tracer

	// offset and opcode of the instruction being executed
	curOffset int
	curOp     bytecode.Opcode
}

// Option configures a VM.
type Option func(*VM)

// WithTracer installs a tracer that observes every executed instruction.
func WithTracer(t Tracer) Option {
	return func(vm *VM) { vm.tracer = t }
}

// New creates a VM with no chunk loaded and a stack holding only the base
// frame.
func New(opts ...Option) *VM {
	vm := &VM{stack: NewStack()}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// SetTracer replaces the tracer. A nil tracer disables tracing.
func (vm *VM) SetTracer(t Tracer) {
	vm.tracer = t
}

// Stack returns the live execution stack.
func (vm *VM) Stack() *Stack {
	return vm.stack
}

// Chunk returns the chunk being executed, or nil between runs.
func (vm *VM) Chunk() *bytecode.Chunk {
	return vm.chunk
}

// IP returns the current instruction pointer.
func (vm *VM) IP() int {
	return vm.ip
}

// Reset drops every binding and value and restores the base frame.
func (vm *VM) Reset() {
	vm.stack.reset()
	vm.chunk = nil
	vm.ip = 0
}

// Top returns a copy of the value of the topmost Data or Local item. It
// reports false when the top of the stack is a Frame.
func (vm *VM) Top() (value.Data, bool) {
	it, ok := vm.stack.Peek()
	if !ok || it.Kind == ItemFrame {
		return value.Data{}, false
	}
	return it.Value.Deref(), true
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Run executes chunk from offset zero until the instruction pointer reaches
// the end of its code. The first fault aborts the run and is returned as a
// *Fault.
//
// Whatever chunk and instruction pointer were current before the call are
// restored when Run returns, whether or not it faulted.
func (vm *VM) Run(chunk *bytecode.Chunk) (err error) {
	if chunk == nil {
		chunk = bytecode.NewChunk()
	}

	prevChunk, prevIP := vm.chunk, vm.ip
	vm.chunk, vm.ip = chunk, 0
	defer func() {
		vm.chunk, vm.ip = prevChunk, prevIP
	}()

	if t := vm.tracer; t != nil {
		t.BeginRun(chunk)
		defer func() { t.EndRun(err) }()
	}

	for vm.ip < len(vm.chunk.Code) {
		offset := vm.ip
		op := bytecode.Opcode(vm.chunk.Code[offset])
		if err := vm.step(); err != nil {
			return err
		}
		if vm.tracer != nil {
			vm.tracer.Step(StepEvent{Offset: offset, Op: op, Stack: vm.stack.Snapshot()})
		}
	}
	return nil
}

// step decodes and executes the instruction at ip, leaving ip at the start
// of the next one.
func (vm *VM) step() error {
	vm.curOffset = vm.ip
	vm.curOp = bytecode.Opcode(vm.chunk.Code[vm.ip])
	vm.ip++

	switch vm.curOp {
	case bytecode.OpCon:
		return vm.opCon()
	case bytecode.OpSave:
		return vm.opSave()
	case bytecode.OpLoad:
		return vm.opLoad()
	case bytecode.OpClear:
		return vm.opClear()
	default:
		return vm.fault(FaultDecode, nil, "unknown opcode 0x%02X", byte(vm.curOp))
	}
}

// readOperand decodes the varint operand at ip and advances past it.
func (vm *VM) readOperand() (uint64, error) {
	v, next, err := bytecode.DecodeOperand(vm.chunk.Code, vm.ip)
	if err != nil {
		return 0, vm.fault(FaultDecode, err, "bad operand at %04X: %v", vm.ip, err)
	}
	vm.ip = next
	return v, nil
}

// readLocal decodes a local table index and returns its descriptor.
func (vm *VM) readLocal() (bytecode.Local, error) {
	idx, err := vm.readOperand()
	if err != nil {
		return bytecode.Local{}, err
	}
	l, ok := vm.chunk.GetLocal(toIndex(idx))
	if !ok {
		return bytecode.Local{}, vm.fault(FaultOutOfBounds, nil,
			"local index %d out of range (table has %d)", idx, vm.chunk.LocalCount())
	}
	return l, nil
}

func (vm *VM) fault(kind FaultKind, cause error, format string, args ...any) *Fault {
	return &Fault{
		Kind:   kind,
		Offset: vm.curOffset,
		Op:     vm.curOp,
		Msg:    fmt.Sprintf(format, args...),
		Err:    cause,
	}
}

// toIndex converts a decoded operand to a table index. Values that do not
// fit an int map to -1, which every table lookup rejects.
func toIndex(v uint64) int {
	if v > uint64(maxInt) {
		return -1
	}
	return int(v)
}

const maxInt = int(^uint(0) >> 1)
