// Package trace provides vm.Tracer implementations: a commonlog line
// tracer, a CBOR step recorder, an opcode profiler and a fan-out.
package trace

import (
	"github.com/chazu/sparrow/pkg/bytecode"
	"github.com/chazu/sparrow/vm"
)

// Multi forwards every event to each tracer in order.
type Multi []vm.Tracer

// NewMulti drops nil tracers. It returns nil when none are left, so the
// VM skips tracing entirely.
func NewMulti(tracers ...vm.Tracer) vm.Tracer {
	var m Multi
	for _, t := range tracers {
		if t != nil {
			m = append(m, t)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}

func (m Multi) BeginRun(chunk *bytecode.Chunk) {
	for _, t := range m {
		t.BeginRun(chunk)
	}
}

func (m Multi) Step(ev vm.StepEvent) {
	for _, t := range m {
		t.Step(ev)
	}
}

func (m Multi) EndRun(err error) {
	for _, t := range m {
		t.EndRun(err)
	}
}
