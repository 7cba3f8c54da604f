package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/sparrow/compiler"
	"github.com/chazu/sparrow/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "sparrow-lsp"

// document is an open editor buffer and what evaluating it produced.
type document struct {
	text     string
	analysis *analysis
}

// analysis is the outcome of compiling and running one document.
type analysis struct {
	diagnostics []protocol.Diagnostic
	names       []string  // every assigned name, in source order
	stack       []vm.Item // final stack, nil when the program did not run
}

// LspServer serves diagnostics, hover and completion for sparrow sources.
// Each document is compiled and run on a reset VM whenever it changes.
type LspServer struct {
	worker *VMWorker
	log    commonlog.Logger

	mu   sync.Mutex
	docs map[string]*document // URI → document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server evaluating documents on v. A nil v gets
// a fresh VM.
func NewLSP(v *vm.VM) *LspServer {
	s := &LspServer{
		worker:  NewVMWorker(v),
		log:     commonlog.GetLogger("sparrow.lsp"),
		docs:    make(map[string]*document),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("sparrow LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.update(ctx, params.TextDocument.URI, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update re-evaluates a document and publishes its diagnostics.
func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	a := s.analyze(text)

	s.mu.Lock()
	s.docs[string(uri)] = &document{text: text, analysis: a}
	s.mu.Unlock()

	diagnostics := a.diagnostics
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (s *LspServer) document(uri protocol.DocumentUri) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[string(uri)]
	return doc, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(doc.text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return complete(doc.analysis, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return hover(doc.analysis, word), nil
}

// --- Evaluation ---

type runOutcome struct {
	err   error
	stack []vm.Item
}

// analyze compiles text and, when it compiles, runs it on the worker VM.
func (s *LspServer) analyze(text string) *analysis {
	a := &analysis{}

	prog, err := compiler.Parse(text)
	if prog != nil {
		a.names = compiler.AssignedNames(prog)
	}
	if err != nil {
		a.addCompileErrors(err)
		return a
	}
	chunk, err := compiler.Generate(prog)
	if err != nil {
		a.addCompileErrors(err)
		return a
	}

	result, err := s.worker.Do(func(v *vm.VM) any {
		runErr := v.Run(chunk)
		return runOutcome{err: runErr, stack: v.Stack().Snapshot()}
	})
	if err != nil {
		s.log.Errorf("evaluation failed: %s", err)
		return a
	}

	out := result.(runOutcome)
	a.stack = out.stack

	var f *vm.Fault
	if errors.As(out.err, &f) {
		line, col := chunk.GetSourceLocation(uint32(f.Offset))
		a.diagnostics = append(a.diagnostics, diagnostic(int(line), int(col), f.Error()))
	}
	return a
}

func (a *analysis) addCompileErrors(err error) {
	var list compiler.ErrorList
	if !errors.As(err, &list) {
		a.diagnostics = append(a.diagnostics, diagnostic(1, 1, err.Error()))
		return
	}
	for _, e := range list {
		a.diagnostics = append(a.diagnostics, diagnostic(e.Pos.Line, e.Pos.Column, e.Msg))
	}
}

// diagnostic builds an error spanning one character at a 1-based source
// position. Unknown positions map to the start of the document.
func diagnostic(line, col int, msg string) protocol.Diagnostic {
	start := protocol.Position{
		Line:      protocol.UInteger(max(line-1, 0)),
		Character: protocol.UInteger(max(col-1, 0)),
	}
	end := start
	end.Character++

	severity := protocol.DiagnosticSeverityError
	source := lspName
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

// --- Feature logic ---

var keywords = []string{"true", "false"}

func complete(a *analysis, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem

	names := append([]string(nil), a.names...)
	sort.Strings(names)
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindVariable
		detail := "variable"
		nameCopy := name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &nameCopy,
		})
	}

	for _, kw := range keywords {
		if !strings.HasPrefix(kw, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		kwCopy := kw
		items = append(items, protocol.CompletionItem{
			Label:      kw,
			Kind:       &kind,
			InsertText: &kwCopy,
		})
	}

	return items
}

// hover describes the topmost binding named word on the final stack.
func hover(a *analysis, word string) *protocol.Hover {
	var b strings.Builder

	found := false
	for i := len(a.stack) - 1; i >= 0; i-- {
		it := a.stack[i]
		if it.Kind != vm.ItemLocal || it.Local.Name != word {
			continue
		}
		d := it.Value.Deref()
		fmt.Fprintf(&b, "**%s** : %s\n\n```\n%s\n```", it.Local, d.Kind(), d.Inspect())
		found = true
		break
	}

	if !found {
		declared := false
		for _, name := range a.names {
			if name == word {
				declared = true
				break
			}
		}
		if !declared {
			return nil
		}
		fmt.Fprintf(&b, "**%s** : not evaluated", word)
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// --- Text extraction helpers ---

func isNameChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isNameChar(rune(line[start-1])) {
		start--
	}

	if start == col {
		return ""
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isNameChar(rune(line[start-1])) {
		start--
	}

	end := col
	for end < len(line) && isNameChar(rune(line[end])) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
