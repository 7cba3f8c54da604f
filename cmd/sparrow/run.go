package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/tliron/commonlog"

	"github.com/chazu/sparrow/compiler"
	"github.com/chazu/sparrow/manifest"
	"github.com/chazu/sparrow/pkg/bytecode"
	"github.com/chazu/sparrow/trace"
	"github.com/chazu/sparrow/vm"
)

var log = commonlog.GetLogger("sparrow")

// runner executes sources on one VM, so bindings made by an earlier source
// are visible to later ones.
type runner struct {
	vm     *vm.VM
	gen    *compiler.Generator
	out    io.Writer
	errOut io.Writer

	disasm      bool
	stackFormat string
}

func newRunner(tracer vm.Tracer, out, errOut io.Writer) *runner {
	return &runner{
		vm:          vm.New(vm.WithTracer(tracer)),
		gen:         compiler.NewGenerator(),
		out:         out,
		errOut:      errOut,
		stackFormat: manifest.StackText,
	}
}

// runSource compiles and runs one source text. name labels errors.
func (r *runner) runSource(name, src string) error {
	prog, err := compiler.Parse(src)
	if err != nil {
		return sourceError(name, err)
	}
	chunk, err := r.gen.Generate(prog)
	if err != nil {
		return sourceError(name, err)
	}

	if r.disasm {
		fmt.Fprint(r.out, chunk.DisassembleWithName(name))
	}

	log.Debugf("running %s: %d bytes", name, chunk.CodeLen())
	if err := r.vm.Run(chunk); err != nil {
		return faultError(name, chunk, err)
	}
	return nil
}

// sourceError prefixes each positioned compile error with the source name.
func sourceError(name string, err error) error {
	var list compiler.ErrorList
	if !errors.As(err, &list) {
		return fmt.Errorf("%s: %w", name, err)
	}
	msgs := make([]error, len(list))
	for i, e := range list {
		msgs[i] = fmt.Errorf("%s:%s", name, e)
	}
	return errors.Join(msgs...)
}

// faultError locates a VM fault in the source.
func faultError(name string, chunk *bytecode.Chunk, err error) error {
	var f *vm.Fault
	if !errors.As(err, &f) {
		return fmt.Errorf("%s: %w", name, err)
	}
	line, col := chunk.GetSourceLocation(uint32(f.Offset))
	if line == 0 {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s:%d:%d: %w", name, line, col, err)
}

// printTop writes the value on top of the stack, if there is one.
func (r *runner) printTop() {
	if v, ok := r.vm.Top(); ok {
		fmt.Fprintln(r.out, v.Inspect())
	}
}

// printStack dumps the whole stack in the configured format.
func (r *runner) printStack() error {
	items := r.vm.Stack().Snapshot()
	switch r.stackFormat {
	case manifest.StackYAML:
		data, err := trace.StackYAML(items)
		if err != nil {
			return err
		}
		_, err = r.out.Write(data)
		return err
	default:
		for i := len(items) - 1; i >= 0; i-- {
			fmt.Fprintf(r.out, "%3d  %s\n", i, items[i])
		}
		return nil
	}
}
