package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/sparrow/compiler"
	"github.com/chazu/sparrow/pkg/bytecode"
)

// clearChunk drops the Data a REPL line left behind once it is printed.
var clearChunk = func() *bytecode.Chunk {
	c := bytecode.NewChunk()
	c.Emit(bytecode.OpClear)
	return c
}()

// repl reads lines from in until EOF or "exit". Lines are buffered while a
// block is still open. The prompt is only shown when prompt is true.
func (r *runner) repl(in io.Reader, prompt bool) {
	if prompt {
		fmt.Fprintln(r.out, "sparrow REPL (type 'exit' to quit, ':help' for commands)")
	}

	scanner := bufio.NewScanner(in)
	var buf strings.Builder

	for {
		if prompt {
			if buf.Len() == 0 {
				fmt.Fprint(r.out, ">> ")
			} else {
				fmt.Fprint(r.out, ".. ")
			}
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if buf.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "exit" || trimmed == "quit" {
				break
			}
			if strings.HasPrefix(trimmed, ":") {
				r.command(trimmed)
				continue
			}
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)

		input := buf.String()
		if openBlocks(input) > 0 {
			continue
		}
		buf.Reset()

		if strings.TrimSpace(input) == "" {
			continue
		}
		r.evalAndPrint(input)
	}
}

// evalAndPrint runs one REPL entry and prints its value.
func (r *runner) evalAndPrint(input string) {
	if err := r.runSource("repl", input); err != nil {
		fmt.Fprintln(r.errOut, err)
		return
	}
	r.printTop()
	if err := r.vm.Run(clearChunk); err != nil {
		fmt.Fprintln(r.errOut, err)
	}
}

func (r *runner) command(cmd string) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(r.out, "  :stack            Show the stack")
		fmt.Fprintln(r.out, "  :disasm           Toggle disassembly of each entry")
		fmt.Fprintln(r.out, "  :reset            Drop every binding")
		fmt.Fprintln(r.out, "  exit, quit        Exit REPL")
	case ":stack":
		if err := r.printStack(); err != nil {
			fmt.Fprintln(r.errOut, err)
		}
	case ":disasm":
		r.disasm = !r.disasm
		fmt.Fprintf(r.out, "disassembly %s\n", onOff(r.disasm))
	case ":reset":
		r.vm.Reset()
		r.gen = compiler.NewGenerator()
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// openBlocks counts braces still open at the end of src.
func openBlocks(src string) int {
	depth := 0
	for _, tok := range compiler.Tokenize(src) {
		switch tok.Type {
		case compiler.TokenLBrace:
			depth++
		case compiler.TokenRBrace:
			depth--
		}
	}
	return depth
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
