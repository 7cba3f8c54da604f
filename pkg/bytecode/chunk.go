package bytecode

import (
	"fmt"

	"github.com/chazu/sparrow/pkg/value"
)

// BytecodeVersion is the current bytecode format version.
// Increment when making incompatible changes to the instruction layout.
const BytecodeVersion uint16 = 1

// Local identifies one variable binding. Two bindings that share a display
// name but live in different lexical scopes have different descriptors.
// The VM compares descriptors with ==.
type Local struct {
	Name  string
	Scope uint32
}

// String returns "name" for the outermost scope and "name@scope" otherwise.
func (l Local) String() string {
	if l.Scope == 0 {
		return l.Name
	}
	return fmt.Sprintf("%s@%d", l.Name, l.Scope)
}

// SourceLocation maps bytecode position to source location for debugging.
type SourceLocation struct {
	BytecodeOffset uint32 // Offset in code section
	Line           uint32 // Source line number (1-based)
	Column         uint16 // Source column number (1-based)
}

// Chunk is a unit of compiled bytecode: instructions, the constant pool
// and the local descriptor table. The VM treats a chunk as read-only.
type Chunk struct {
	Version uint16

	// Code section: opcodes interleaved with uvarint operands
	Code []byte

	// Constant pool, indexed by OpCon operands
	Constants []value.Data

	// Local descriptor table, indexed by OpLoad/OpSave operands
	Locals []Local

	// Debug information (optional)
	SourceMap []SourceLocation
}

// NewChunk creates a new empty chunk with the current version.
func NewChunk() *Chunk {
	return &Chunk{
		Version:   BytecodeVersion,
		Code:      make([]byte, 0, 64),
		Constants: make([]value.Data, 0, 8),
		Locals:    make([]Local, 0, 8),
	}
}

// AddConstant adds a value to the pool and returns its index.
// If an identical constant already exists, returns the existing index.
func (c *Chunk) AddConstant(v value.Data) int {
	for i, existing := range c.Constants {
		if existing.Identical(v) {
			return i
		}
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// GetConstant returns the constant at the given index.
func (c *Chunk) GetConstant(index int) (value.Data, bool) {
	if index < 0 || index >= len(c.Constants) {
		return value.Data{}, false
	}
	return c.Constants[index], true
}

// AddLocal adds a descriptor to the local table and returns its index.
// If the descriptor already exists, returns the existing index.
func (c *Chunk) AddLocal(l Local) int {
	for i, existing := range c.Locals {
		if existing == l {
			return i
		}
	}
	c.Locals = append(c.Locals, l)
	return len(c.Locals) - 1
}

// GetLocal returns the descriptor at the given index.
func (c *Chunk) GetLocal(index int) (Local, bool) {
	if index < 0 || index >= len(c.Locals) {
		return Local{}, false
	}
	return c.Locals[index], true
}

// Emit appends a single-byte opcode to the code section.
func (c *Chunk) Emit(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return offset
}

// EmitWithOperand appends an opcode followed by its encoded operand.
func (c *Chunk) EmitWithOperand(op Opcode, operand uint64) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = AppendOperand(c.Code, operand)
	return offset
}

// EmitConstant emits an OpCon instruction for the given value.
// Adds the constant to the pool if not already present.
func (c *Chunk) EmitConstant(v value.Data) int {
	idx := c.AddConstant(v)
	return c.EmitWithOperand(OpCon, uint64(idx))
}

// EmitSave emits an OpSave instruction binding the given descriptor.
func (c *Chunk) EmitSave(l Local) int {
	idx := c.AddLocal(l)
	return c.EmitWithOperand(OpSave, uint64(idx))
}

// EmitLoad emits an OpLoad instruction reading the given descriptor.
func (c *Chunk) EmitLoad(l Local) int {
	idx := c.AddLocal(l)
	return c.EmitWithOperand(OpLoad, uint64(idx))
}

// CurrentOffset returns the current offset in the code section.
func (c *Chunk) CurrentOffset() int {
	return len(c.Code)
}

// CodeLen returns the length of the code section.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.Constants)
}

// LocalCount returns the number of descriptors in the local table.
func (c *Chunk) LocalCount() int {
	return len(c.Locals)
}

// AddSourceLocation adds a debug source location mapping.
func (c *Chunk) AddSourceLocation(bytecodeOffset uint32, line uint32, column uint16) {
	c.SourceMap = append(c.SourceMap, SourceLocation{
		BytecodeOffset: bytecodeOffset,
		Line:           line,
		Column:         column,
	})
}

// GetSourceLocation returns the source location for a bytecode offset.
// Returns line 0, column 0 if no mapping exists.
func (c *Chunk) GetSourceLocation(offset uint32) (line uint32, column uint16) {
	// Find the nearest mapping at or before the offset
	for i := len(c.SourceMap) - 1; i >= 0; i-- {
		if c.SourceMap[i].BytecodeOffset <= offset {
			return c.SourceMap[i].Line, c.SourceMap[i].Column
		}
	}
	return 0, 0
}
