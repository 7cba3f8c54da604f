package compiler

import "github.com/chazu/sparrow/pkg/value"

// ---------------------------------------------------------------------------
// AST
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number, counted in runes
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan creates a span from two positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Literal is a unit, number, string or boolean literal.
type Literal struct {
	SpanVal Span
	Value   value.Data
}

func (n *Literal) Span() Span { return n.SpanVal }
func (n *Literal) node()      {}
func (n *Literal) expr()      {}

// Variable is a read of a named binding.
type Variable struct {
	SpanVal Span
	Name    string
}

func (n *Variable) Span() Span { return n.SpanVal }
func (n *Variable) node()      {}
func (n *Variable) expr()      {}

// Block is a braced sequence of statements. Its value is the value of its
// last statement, or unit when it is empty or ends in an assignment.
type Block struct {
	SpanVal Span
	Body    []Stmt
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) node()      {}
func (n *Block) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Assign binds the value of an expression to a name.
type Assign struct {
	SpanVal Span
	Name    string
	NamePos Position
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}
func (n *Assign) stmt()      {}

// ExprStmt is an expression evaluated for its value.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// Program is the root of a parsed source file.
type Program struct {
	SpanVal Span
	Body    []Stmt
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}

// ---------------------------------------------------------------------------
// Traversal
// ---------------------------------------------------------------------------

// Walk calls fn for n and every node beneath it, depth first. Returning
// false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if isNilNode(n) || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Program:
		for _, s := range n.Body {
			Walk(s, fn)
		}
	case *Block:
		for _, s := range n.Body {
			Walk(s, fn)
		}
	case *Assign:
		Walk(n.Value, fn)
	case *ExprStmt:
		Walk(n.Expr, fn)
	}
}

// isNilNode reports whether n is nil or a nil node pointer.
func isNilNode(n Node) bool {
	switch n := n.(type) {
	case nil:
		return true
	case *Program:
		return n == nil
	case *Block:
		return n == nil
	case *Assign:
		return n == nil
	case *ExprStmt:
		return n == nil
	case *Literal:
		return n == nil
	case *Variable:
		return n == nil
	}
	return false
}

// AssignedNames returns the distinct names assigned anywhere in the
// program, in order of first appearance.
func AssignedNames(p *Program) []string {
	var names []string
	seen := make(map[string]bool)
	Walk(p, func(n Node) bool {
		if a, ok := n.(*Assign); ok && !seen[a.Name] {
			seen[a.Name] = true
			names = append(names, a.Name)
		}
		return true
	})
	return names
}
