// Command sparrow compiles and runs sparrow programs on the scope-owned
// stack VM.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/sparrow/manifest"
	"github.com/chazu/sparrow/server"
	"github.com/chazu/sparrow/trace"
	"github.com/chazu/sparrow/vm"

	_ "github.com/tliron/commonlog/simple"
)

// debugVerbosity is the commonlog verbosity at which debug lines appear.
const debugVerbosity = 2

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	verbose     int
	expr        string
	interactive bool
	disasm      bool
	trace       string
	traceFile   string
	stack       string
	lsp         bool
	dir         string
	init        bool
	profile     bool
}

func newFlagSet(opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("sparrow", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.IntVar(&opts.verbose, "v", 0, "Log verbosity (overrides [log] verbosity)")
	fs.StringVar(&opts.expr, "e", "", "Run an expression after any files")
	fs.BoolVar(&opts.interactive, "i", false, "Start the REPL after running files")
	fs.BoolVar(&opts.disasm, "disasm", false, "Print the disassembly of each chunk before running it")
	fs.StringVar(&opts.trace, "trace", "", "Trace mode: off, log or record")
	fs.StringVar(&opts.traceFile, "trace-file", "", "Trace record output file (with -trace record)")
	fs.StringVar(&opts.stack, "stack", "", "Print the whole final stack: text or yaml")
	fs.BoolVar(&opts.lsp, "lsp", false, "Serve the language server on stdio")
	fs.StringVar(&opts.dir, "C", ".", "Directory to search for "+manifest.FileName)
	fs.BoolVar(&opts.init, "init", false, "Write a default "+manifest.FileName+" and exit")
	fs.BoolVar(&opts.profile, "profile", false, "Print opcode execution counts to stderr after running")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: sparrow [options] [files...]\n\n")
		fmt.Fprintf(stderr, "Compile and run sparrow programs. With no files and no -e, the\n")
		fmt.Fprintf(stderr, "entry from %s is run, or the REPL starts.\n\n", manifest.FileName)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  sparrow main.spr                 # Run a file and print its value\n")
		fmt.Fprintf(stderr, "  sparrow -e 'x = 37.2; x'         # Run an expression\n")
		fmt.Fprintf(stderr, "  sparrow -disasm -stack yaml a.spr # Show bytecode and the final stack\n")
		fmt.Fprintf(stderr, "  sparrow -trace record -trace-file run.cbor a.spr\n")
		fmt.Fprintf(stderr, "  sparrow -i                       # Interactive REPL\n")
		fmt.Fprintf(stderr, "  sparrow -lsp                     # Language server on stdio\n")
	}
	return fs
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	fs := newFlagSet(&opts, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.init {
		if err := initProject(opts.dir); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Created %s\n", filepath.Join(opts.dir, manifest.FileName))
		return 0
	}

	m, err := loadManifest(opts.dir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := applyFlags(m, fs, &opts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	configureLogging(m)

	if opts.lsp {
		if err := server.NewLSP(nil).Run(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	tracer, closeTrace, err := openTracer(m)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	var prof *trace.Profiler
	if opts.profile {
		prof = trace.NewProfiler()
		tracer = trace.NewMulti(tracer, prof)
	}
	status := execute(m, &opts, fs.Args(), tracer, stdin, stdout, stderr)
	if prof != nil {
		prof.Report(stderr)
	}
	if err := closeTrace(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if status == 0 {
			status = 1
		}
	}
	return status
}

// execute runs the requested sources and, if asked, the REPL.
func execute(m *manifest.Manifest, opts *options, files []string, tracer vm.Tracer, stdin io.Reader, stdout, stderr io.Writer) int {
	r := newRunner(tracer, stdout, stderr)
	r.disasm = m.Run.Disasm
	r.stackFormat = m.Run.StackFormat

	type source struct{ name, text string }
	var sources []source
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		sources = append(sources, source{path, string(data)})
	}
	if opts.expr != "" {
		sources = append(sources, source{"-e", opts.expr})
	}
	if len(sources) == 0 && !opts.interactive {
		if entry := m.EntryPath(); entry != "" {
			data, err := os.ReadFile(entry)
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
			sources = append(sources, source{entry, string(data)})
		} else {
			opts.interactive = true
		}
	}

	for _, src := range sources {
		if err := r.runSource(src.name, src.text); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	if len(sources) > 0 {
		if opts.stack != "" {
			if err := r.printStack(); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
		} else if !opts.interactive {
			r.printTop()
		}
	}

	if opts.interactive {
		r.repl(stdin, isTerminal(stdin))
	}
	return 0
}

// initProject writes a default manifest named after dir.
func initProject(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	m := manifest.Default()
	m.Project.Name = filepath.Base(abs)
	m.Project.Version = "0.1.0"
	m.Source.Entry = "main.spr"
	return m.Write(abs)
}

// loadManifest finds the nearest sparrow.toml, or returns the defaults
// rooted at dir when there is none.
func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}
	m = manifest.Default()
	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// applyFlags overrides manifest settings with flags given on the command
// line, then re-validates.
func applyFlags(m *manifest.Manifest, fs *flag.FlagSet, opts *options) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			m.Log.Verbosity = opts.verbose
		case "disasm":
			m.Run.Disasm = opts.disasm
		case "trace":
			m.Run.Trace = opts.trace
		case "trace-file":
			var abs string
			abs, err = filepath.Abs(opts.traceFile)
			m.Run.TraceFile = abs
		case "stack":
			m.Run.StackFormat = opts.stack
		}
	})
	if err != nil {
		return err
	}
	return m.Validate()
}

func configureLogging(m *manifest.Manifest) {
	verbosity := m.Log.Verbosity
	if m.Run.Trace == manifest.TraceLog {
		// Step lines are logged at debug level.
		verbosity = max(verbosity, debugVerbosity)
	}
	var path *string
	if m.Log.File != "" {
		file := m.Log.File
		if !filepath.IsAbs(file) && m.Dir != "" {
			file = filepath.Join(m.Dir, file)
		}
		path = &file
	}
	commonlog.Configure(verbosity, path)
}

// openTracer builds the tracer for the configured trace mode. The returned
// close function flushes and closes any trace file.
func openTracer(m *manifest.Manifest) (vm.Tracer, func() error, error) {
	noop := func() error { return nil }

	switch m.Run.Trace {
	case manifest.TraceLog:
		return trace.NewLogTracer(commonlog.GetLogger("sparrow.trace")), noop, nil
	case manifest.TraceRecord:
		path := m.TraceFilePath()
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create trace file: %w", err)
		}
		rec := trace.NewRecorder(f)
		closeFn := func() error {
			if err := rec.Err(); err != nil {
				f.Close()
				return fmt.Errorf("writing %s: %w", path, err)
			}
			return f.Close()
		}
		// Recorded runs are also logged when debug output is on.
		var logged vm.Tracer
		if m.Log.Verbosity >= debugVerbosity {
			logged = trace.NewLogTracer(commonlog.GetLogger("sparrow.trace"))
		}
		return trace.NewMulti(rec, logged), closeFn, nil
	default:
		return nil, noop, nil
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
