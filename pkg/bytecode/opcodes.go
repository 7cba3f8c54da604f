package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpClear Opcode = 0x01 // Drop Data items down to the nearest Local or Frame

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpCon Opcode = 0x10 // Push constant from pool: OpCon <index:uvarint>

	// ========================================================================
	// Local variables (0x20-0x2F)
	// ========================================================================

	OpLoad Opcode = 0x20 // Push copy of a local binding: OpLoad <local:uvarint>
	OpSave Opcode = 0x21 // Pop data and bind it: OpSave <local:uvarint>
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name      string // Human-readable name
	StackPop  int    // How many items popped from stack (-1 = variable)
	StackPush int    // How many items pushed to stack
	Operands  int    // Number of uvarint operands following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpClear: {"CLEAR", -1, 0, 0},
	OpCon:   {"CON", 0, 1, 1},
	OpLoad:  {"LOAD", 0, 1, 1},
	OpSave:  {"SAVE", 1, -1, 1}, // pushes one on first declaration, zero on reassignment
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// IsValid reports whether op is a defined opcode.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Operands returns the number of uvarint operands for this opcode.
func (op Opcode) Operands() int {
	return GetOpcodeInfo(op).Operands
}

// IsLocalOp returns true if the operand of this opcode indexes the local table.
func (op Opcode) IsLocalOp() bool {
	return op >= OpLoad && op <= OpSave
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
