// Package manifest handles sparrow.toml project configuration.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "sparrow.toml"

// Trace modes accepted by [run] trace.
const (
	TraceOff    = "off"
	TraceLog    = "log"
	TraceRecord = "record"
)

// Stack formats accepted by [run] stack-format.
const (
	StackText = "text"
	StackYAML = "yaml"
)

// Manifest represents a sparrow.toml project configuration.
type Manifest struct {
	Project Project   `toml:"project"`
	Source  Source    `toml:"source"`
	Run     RunConfig `toml:"run"`
	Log     LogConfig `toml:"log"`

	// Dir is the directory containing the sparrow.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// RunConfig configures how programs are executed.
type RunConfig struct {
	Trace       string `toml:"trace"`
	TraceFile   string `toml:"trace-file"`
	Disasm      bool   `toml:"disasm"`
	StackFormat string `toml:"stack-format"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no sparrow.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Run.Trace == "" {
		m.Run.Trace = TraceOff
	}
	if m.Run.StackFormat == "" {
		m.Run.StackFormat = StackText
	}
}

// Load parses a sparrow.toml file from the given directory. Unknown keys
// are rejected.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a sparrow.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Write stores m as dir/sparrow.toml, refusing to overwrite an existing
// file. A failed write leaves no file behind.
func (m *Manifest) Write(dir string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("cannot encode %s: %w", FileName, err)
	}
	return writeNew(filepath.Join(dir, FileName), buf.Bytes())
}

// writeNew creates path with data. It fails if path exists and removes the
// file again if the write does not complete.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// Validate checks enumerated settings.
func (m *Manifest) Validate() error {
	switch m.Run.Trace {
	case TraceOff, TraceLog, TraceRecord:
	default:
		return fmt.Errorf("run.trace: unknown mode %q (want off, log or record)", m.Run.Trace)
	}
	if m.Run.Trace == TraceRecord && m.Run.TraceFile == "" {
		return fmt.Errorf("run.trace-file is required when run.trace is %q", TraceRecord)
	}
	switch m.Run.StackFormat {
	case StackText, StackYAML:
	default:
		return fmt.Errorf("run.stack-format: unknown format %q (want text or yaml)", m.Run.StackFormat)
	}
	if m.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative, got %d", m.Log.Verbosity)
	}
	return nil
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// EntryPath returns the path of the entry file, searched for in each
// source directory in order, or "" when no entry is configured or found.
func (m *Manifest) EntryPath() string {
	if m.Source.Entry == "" {
		return ""
	}
	for _, dir := range m.SourceDirPaths() {
		path := filepath.Join(dir, m.Source.Entry)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// TraceFilePath returns the trace output path, resolved against the
// manifest directory when relative.
func (m *Manifest) TraceFilePath() string {
	if m.Run.TraceFile == "" || filepath.IsAbs(m.Run.TraceFile) {
		return m.Run.TraceFile
	}
	return filepath.Join(m.Dir, m.Run.TraceFile)
}
