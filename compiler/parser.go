package compiler

import (
	"strconv"

	"github.com/chazu/sparrow/pkg/value"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent over the token stream
// ---------------------------------------------------------------------------

// Parser parses sparrow source code into an AST.
//
//	program := body EOF
//	body    := sep* (stmt (sep+ stmt)*)? sep*
//	stmt    := symbol '=' expr | expr
//	expr    := number | string | boolean | unit | symbol
//	         | '(' expr ')' | '{' body '}'
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    ErrorList
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.unexpected("expected %s", t)
	return false
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...any) {
	p.errors.add(p.curToken.Pos, format, args...)
}

// unexpected records an error naming what was found instead of what the
// grammar needed.
func (p *Parser) unexpected(format string, args ...any) {
	if p.curTokenIs(TokenError) {
		p.errorf("%s", p.curToken.Literal)
		return
	}
	args = append(args, p.curToken.Type)
	p.errorf(format+", found %s", args...)
}

// unsupported reports lambdas, print and labels, which lex but have no
// instructions to compile to.
func (p *Parser) unsupported() bool {
	switch p.curToken.Type {
	case TokenLambda, TokenPrint, TokenKind:
		p.errorf("%s is not supported by this runtime", p.curToken.Type)
		return true
	}
	return false
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() ErrorList {
	return p.errors
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses the whole input. The program is returned even when
// errors were recorded, with the failing statements left out.
func (p *Parser) ParseProgram() *Program {
	start := p.curToken.Pos
	body := p.parseBody()
	if !p.curTokenIs(TokenEOF) {
		p.unexpected("expected %s", TokenEOF)
	}
	return &Program{SpanVal: MakeSpan(start, p.curToken.Pos), Body: body}
}

// parseBody parses statements up to a closing bracket or the end of input.
func (p *Parser) parseBody() []Stmt {
	var stmts []Stmt

	p.skipSeps()
	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenRBrace) {
		stmt := p.ParseStatement()
		if stmt == nil {
			p.synchronize()
		} else {
			stmts = append(stmts, stmt)
		}

		if p.curTokenIs(TokenSep) {
			p.skipSeps()
			continue
		}
		if !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenRBrace) {
			if !p.unsupported() {
				p.unexpected("expected %s", TokenSep)
			}
			p.synchronize()
			p.skipSeps()
		}
	}

	return stmts
}

func (p *Parser) skipSeps() {
	for p.curTokenIs(TokenSep) {
		p.nextToken()
	}
}

// synchronize skips to the next statement boundary after an error.
func (p *Parser) synchronize() {
	depth := 0
	for !p.curTokenIs(TokenEOF) {
		switch p.curToken.Type {
		case TokenLBrace:
			depth++
		case TokenRBrace:
			if depth == 0 {
				return
			}
			depth--
		case TokenSep:
			if depth == 0 {
				return
			}
		}
		p.nextToken()
	}
}

// ParseStatement parses an assignment or an expression statement.
func (p *Parser) ParseStatement() Stmt {
	if p.curTokenIs(TokenSymbol) && p.peekTokenIs(TokenAssign) {
		return p.parseAssign()
	}

	expr := p.ParseExpression()
	if expr == nil {
		return nil
	}
	return &ExprStmt{SpanVal: expr.Span(), Expr: expr}
}

// parseAssign returns a nil Stmt, never a nil *Assign, when the value
// fails to parse.
func (p *Parser) parseAssign() Stmt {
	name := p.curToken
	p.nextToken() // consume symbol
	p.nextToken() // consume =

	val := p.ParseExpression()
	if val == nil {
		return nil
	}
	return &Assign{
		SpanVal: MakeSpan(name.Pos, val.Span().End),
		Name:    name.Literal,
		NamePos: name.Pos,
		Value:   val,
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	tok := p.curToken

	switch tok.Type {
	case TokenUnit:
		p.nextToken()
		return p.literal(tok, value.Unit())

	case TokenNumber:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf("invalid number literal %q", tok.Literal)
			p.nextToken()
			return nil
		}
		p.nextToken()
		return p.literal(tok, value.Number(f))

	case TokenString:
		p.nextToken()
		return p.literal(tok, value.String(tok.Literal))

	case TokenBoolean:
		p.nextToken()
		return p.literal(tok, value.Boolean(tok.Literal == "true"))

	case TokenSymbol:
		p.nextToken()
		return &Variable{SpanVal: p.spanFrom(tok), Name: tok.Literal}

	case TokenLParen:
		p.nextToken() // consume (
		p.skipSeps()
		expr := p.ParseExpression()
		if expr == nil {
			return nil
		}
		p.skipSeps()
		if !p.expect(TokenRParen) {
			return nil
		}
		return expr

	case TokenLBrace:
		return p.parseBlock()

	case TokenLambda, TokenPrint, TokenKind:
		p.unsupported()
		p.nextToken()
		return nil

	default:
		p.unexpected("expected an expression")
		return nil
	}
}

func (p *Parser) parseBlock() Expr {
	start := p.curToken.Pos
	p.nextToken() // consume {

	body := p.parseBody()

	end := p.curToken
	if !p.expect(TokenRBrace) {
		return nil
	}
	return &Block{SpanVal: MakeSpan(start, endOf(end)), Body: body}
}

func (p *Parser) literal(tok Token, v value.Data) *Literal {
	return &Literal{SpanVal: p.spanFrom(tok), Value: v}
}

// spanFrom returns the span covering a single already-consumed token.
func (p *Parser) spanFrom(tok Token) Span {
	return MakeSpan(tok.Pos, endOf(tok))
}

// endOf approximates the position just past tok. String tokens hold their
// unescaped contents, so the end of a string with escapes falls short.
func endOf(tok Token) Position {
	end := tok.Pos
	n := len(tok.Literal)
	if tok.Type == TokenString {
		n += 2
	}
	end.Offset += n
	end.Column += n
	return end
}

// Parse parses input and returns the program along with any errors.
func Parse(input string) (*Program, error) {
	p := NewParser(input)
	prog := p.ParseProgram()
	return prog, p.Errors().Err()
}
