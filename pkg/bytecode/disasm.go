package bytecode

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Sparrow Bytecode v%d\n", c.Version))
	sb.WriteString("\n")

	// Constants
	if len(c.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, k := range c.Constants {
			display := k.Inspect()
			if utf8.RuneCountInString(display) > 40 {
				display = string([]rune(display)[:37]) + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %s (%s)\n", i, display, k.Kind()))
		}
		sb.WriteString("\n")
	}

	// Locals
	if len(c.Locals) > 0 {
		sb.WriteString("; Locals:\n")
		for i, l := range c.Locals {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, l))
		}
		sb.WriteString("\n")
	}

	// Code section
	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset)

		if srcLine, srcCol := c.GetSourceLocation(uint32(offset)); srcLine > 0 {
			sb.WriteString(fmt.Sprintf("%04X  %-30s ; line %d:%d\n", offset, line, srcLine, srcCol))
		} else {
			sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		}

		offset += instrLen
	}

	return sb.String()
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length. A truncated
// operand consumes the rest of the code so listing always terminates.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	if offset >= len(c.Code) {
		return "<end of code>", 0
	}

	op := Opcode(c.Code[offset])
	info := GetOpcodeInfo(op)

	if !op.IsValid() {
		return info.Name, 1
	}
	if info.Operands == 0 {
		return info.Name, 1
	}

	operand, next, err := DecodeOperand(c.Code, offset+1)
	if err != nil {
		if errors.Is(err, ErrOperandOverflow) {
			return fmt.Sprintf("%s <overflow>", info.Name), len(c.Code) - offset
		}
		return fmt.Sprintf("%s <truncated>", info.Name), len(c.Code) - offset
	}

	switch op {
	case OpCon:
		if k, ok := c.GetConstant(int(operand)); ok {
			return fmt.Sprintf("%s %d ; %s", info.Name, operand, k.Inspect()), next - offset
		}
		return fmt.Sprintf("%s %d ; <out of range>", info.Name, operand), next - offset

	case OpLoad, OpSave:
		if l, ok := c.GetLocal(int(operand)); ok {
			return fmt.Sprintf("%s %d ; %s", info.Name, operand, l), next - offset
		}
		return fmt.Sprintf("%s %d ; <out of range>", info.Name, operand), next - offset

	default:
		return fmt.Sprintf("%s %d", info.Name, operand), next - offset
	}
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (c *Chunk) DisassembleInstruction(offset int) string {
	line, _ := c.disassembleInstruction(offset)
	return line
}

// DisassembleToLines returns the disassembly as a slice of lines.
func (c *Chunk) DisassembleToLines() []string {
	var lines []string
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset)
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, line))
		offset += instrLen
	}
	return lines
}

// InstructionCount returns the number of instructions in the chunk.
// Note: This iterates through all code, so it's O(n).
func (c *Chunk) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(c.Code) {
		_, instrLen := c.disassembleInstruction(offset)
		offset += instrLen
		count++
	}
	return count
}
