package trace

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/sparrow/pkg/bytecode"
	"github.com/chazu/sparrow/vm"
)

// LogTracer writes one debug line per executed instruction.
type LogTracer struct {
	log commonlog.Logger
}

// NewLogTracer returns a tracer that logs to log, or to the "sparrow.trace"
// logger when log is nil.
func NewLogTracer(log commonlog.Logger) *LogTracer {
	if log == nil {
		log = commonlog.GetLogger("sparrow.trace")
	}
	return &LogTracer{log: log}
}

func (t *LogTracer) BeginRun(chunk *bytecode.Chunk) {
	t.log.Debugf("run: %d bytes, %d constants, %d locals",
		chunk.CodeLen(), chunk.ConstantCount(), chunk.LocalCount())
}

func (t *LogTracer) Step(ev vm.StepEvent) {
	t.log.Debugf("%04X %-5s %s", ev.Offset, ev.Op, FormatStack(ev.Stack))
}

func (t *LogTracer) EndRun(err error) {
	if err != nil {
		t.log.Errorf("run faulted: %s", err)
		return
	}
	t.log.Debug("run complete")
}
