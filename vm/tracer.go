package vm

import "github.com/chazu/sparrow/pkg/bytecode"

// StepEvent describes one executed instruction.
type StepEvent struct {
	Offset int             // offset of the opcode
	Op     bytecode.Opcode // the opcode that ran
	Stack  []Item          // stack after the instruction, bottom first
}

// Tracer observes execution. A VM without a tracer has no side effects
// beyond its own stack.
//
// Tracer methods run on the interpreting goroutine between instructions.
// A tracer may call Run on the same VM; the nested run executes to
// completion and the outer run resumes where it left off.
type Tracer interface {
	BeginRun(chunk *bytecode.Chunk)
	Step(ev StepEvent)
	EndRun(err error)
}

// StepFunc adapts a function to a Tracer that only observes steps.
type StepFunc func(ev StepEvent)

func (f StepFunc) BeginRun(*bytecode.Chunk) {}
func (f StepFunc) Step(ev StepEvent)        { f(ev) }
func (f StepFunc) EndRun(error)             {}
