// Package bytecode defines the instruction chunk consumed by the sparrow VM.
//
// A chunk has three sections:
//
//   - Code: opcode bytes interleaved with operands. Every operand is an
//     unsigned LEB128 varint, so small indexes cost one byte and the
//     decoder only ever moves forward.
//
//   - Constants: the pool of runtime values pushed by OpCon.
//
//   - Locals: the descriptor table addressed by OpLoad and OpSave. A
//     descriptor is a (name, scope) pair; the VM compares descriptors
//     verbatim and never looks them up by name.
//
// The instruction set is deliberately tiny:
//
//	CLEAR          drop Data items down to the nearest Local or Frame
//	CON   <const>  push a copy of a constant
//	LOAD  <local>  push a copy of a local binding
//	SAVE  <local>  pop Data and bind it, replacing an existing binding
//	               in the current frame or pushing a new one
//
// There is no halt instruction: execution ends when the instruction
// pointer reaches the end of Code. Chunks are produced by the compiler
// package and are never persisted.
package bytecode
