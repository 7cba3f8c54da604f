package trace

import (
	"fmt"
	"io"
	"sort"

	"github.com/chazu/sparrow/pkg/bytecode"
	"github.com/chazu/sparrow/vm"
)

// OpProfile holds execution counts for one opcode.
type OpProfile struct {
	Op    bytecode.Opcode
	Count uint64
}

// Profiler counts executed instructions per opcode and tracks how deep the
// stack got. It is not safe for concurrent use; a VM calls its tracer from
// one goroutine.
type Profiler struct {
	counts   map[bytecode.Opcode]uint64
	runs     uint64
	faults   uint64
	maxDepth int
}

// NewProfiler creates an empty profiler.
func NewProfiler() *Profiler {
	return &Profiler{counts: make(map[bytecode.Opcode]uint64)}
}

func (p *Profiler) BeginRun(*bytecode.Chunk) {
	p.runs++
}

func (p *Profiler) Step(ev vm.StepEvent) {
	p.counts[ev.Op]++
	p.maxDepth = max(p.maxDepth, len(ev.Stack))
}

func (p *Profiler) EndRun(err error) {
	if err != nil {
		p.faults++
	}
}

// Count returns how many times op was executed.
func (p *Profiler) Count(op bytecode.Opcode) uint64 {
	return p.counts[op]
}

// Total returns the number of executed instructions.
func (p *Profiler) Total() uint64 {
	var n uint64
	for _, c := range p.counts {
		n += c
	}
	return n
}

// MaxDepth returns the deepest stack seen after any instruction.
func (p *Profiler) MaxDepth() int {
	return p.maxDepth
}

// Hottest returns opcode profiles sorted by descending count, ties broken
// by opcode value.
func (p *Profiler) Hottest() []OpProfile {
	out := make([]OpProfile, 0, len(p.counts))
	for op, c := range p.counts {
		out = append(out, OpProfile{Op: op, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Op < out[j].Op
	})
	return out
}

// Report writes a summary table.
func (p *Profiler) Report(w io.Writer) {
	fmt.Fprintf(w, "runs: %d  faults: %d  instructions: %d  max stack depth: %d\n",
		p.runs, p.faults, p.Total(), p.maxDepth)
	for _, prof := range p.Hottest() {
		fmt.Fprintf(w, "  %-8s %d\n", prof.Op, prof.Count)
	}
}
