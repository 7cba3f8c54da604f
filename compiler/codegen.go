package compiler

import (
	"maps"

	"github.com/chazu/sparrow/pkg/bytecode"
	"github.com/chazu/sparrow/pkg/value"
)

// ---------------------------------------------------------------------------
// Codegen: compile the AST to a bytecode chunk
// ---------------------------------------------------------------------------

// scope maps names declared in one lexical scope to their descriptors.
type scope struct {
	id    uint32
	names map[string]bytecode.Local
}

// Generator compiles programs to chunks. The outermost scope survives
// between Generate calls, so names bound by one program stay visible to the
// next; this is how the REPL keeps its variables. Block scopes are
// numbered from a counter that is never reset, so two blocks never share a
// descriptor.
type Generator struct {
	chunk     *bytecode.Chunk
	scopes    []scope
	nextScope uint32
	errors    ErrorList
}

// NewGenerator creates a generator with an empty outermost scope.
func NewGenerator() *Generator {
	return &Generator{
		scopes:    []scope{{id: 0, names: make(map[string]bytecode.Local)}},
		nextScope: 1,
	}
}

// Generate compiles prog to a new chunk. When compilation fails no chunk is
// returned and names the program would have declared are forgotten.
func (g *Generator) Generate(prog *Program) (*bytecode.Chunk, error) {
	saved := maps.Clone(g.scopes[0].names)

	g.chunk = bytecode.NewChunk()
	g.errors = nil
	g.body(prog.Body, false)

	chunk := g.chunk
	g.chunk = nil
	if err := g.errors.Err(); err != nil {
		g.scopes = g.scopes[:1]
		g.scopes[0].names = saved
		return nil, err
	}
	return chunk, nil
}

// Names returns the names visible in the outermost scope.
func (g *Generator) Names() []string {
	names := make([]string, 0, len(g.scopes[0].names))
	for name := range g.scopes[0].names {
		names = append(names, name)
	}
	return names
}

// body compiles a statement list. Every statement but the last is followed
// by CLEAR. A block body always leaves a value: unit when it is empty or
// ends in an assignment.
func (g *Generator) body(stmts []Stmt, block bool) {
	for i, s := range stmts {
		g.stmt(s)
		if i < len(stmts)-1 {
			g.emit(bytecode.OpClear, s.Span().End)
		}
	}
	if !block || len(stmts) == 0 {
		return
	}
	if last, ok := stmts[len(stmts)-1].(*Assign); ok {
		g.emitConstant(value.Unit(), last.Span().End)
	}
}

func (g *Generator) stmt(s Stmt) {
	switch s := s.(type) {
	case *Assign:
		g.expr(s.Value)
		local := g.bind(s.Name)
		g.mark(s.NamePos)
		g.chunk.EmitSave(local)
	case *ExprStmt:
		g.expr(s.Expr)
	}
}

func (g *Generator) expr(e Expr) {
	switch e := e.(type) {
	case *Literal:
		g.emitConstant(e.Value, e.SpanVal.Start)

	case *Variable:
		local, ok := g.lookup(e.Name)
		if !ok {
			g.errors.add(e.SpanVal.Start, "undefined variable %q", e.Name)
			return
		}
		g.mark(e.SpanVal.Start)
		g.chunk.EmitLoad(local)

	case *Block:
		g.pushScope()
		if len(e.Body) == 0 {
			g.emitConstant(value.Unit(), e.SpanVal.Start)
		}
		g.body(e.Body, true)
		g.popScope()
	}
}

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

func (g *Generator) pushScope() {
	g.scopes = append(g.scopes, scope{id: g.nextScope, names: make(map[string]bytecode.Local)})
	g.nextScope++
}

func (g *Generator) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
}

// lookup finds the innermost visible declaration of name.
func (g *Generator) lookup(name string) (bytecode.Local, bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if l, ok := g.scopes[i].names[name]; ok {
			return l, true
		}
	}
	return bytecode.Local{}, false
}

// bind returns the descriptor an assignment to name writes: a visible
// declaration if there is one, otherwise a new one in the innermost scope.
func (g *Generator) bind(name string) bytecode.Local {
	if l, ok := g.lookup(name); ok {
		return l
	}
	inner := &g.scopes[len(g.scopes)-1]
	l := bytecode.Local{Name: name, Scope: inner.id}
	inner.names[name] = l
	return l
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

// mark records pos as the source of the next instruction.
func (g *Generator) mark(pos Position) {
	g.chunk.AddSourceLocation(uint32(g.chunk.CurrentOffset()), uint32(pos.Line), uint16(pos.Column))
}

func (g *Generator) emit(op bytecode.Opcode, pos Position) {
	g.mark(pos)
	g.chunk.Emit(op)
}

func (g *Generator) emitConstant(v value.Data, pos Position) {
	g.mark(pos)
	g.chunk.EmitConstant(v)
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Generate compiles a parsed program with a fresh generator.
func Generate(prog *Program) (*bytecode.Chunk, error) {
	return NewGenerator().Generate(prog)
}

// Compile parses and compiles src.
func Compile(src string) (*bytecode.Chunk, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Generate(prog)
}
