package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer
// ---------------------------------------------------------------------------

// Lexer tokenizes sparrow source code. Newlines are significant: each one
// is reported as a separator, the same as ';'.
type Lexer struct {
	input     string
	pos       int  // offset of ch
	readPos   int  // offset after ch
	ch        rune // current character, 0 at EOF (a NUL in the input is not EOF)
	line      int  // line of ch (1-based)
	lineStart int  // offset where the current line begins
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// atEOF reports whether the whole input has been consumed.
func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the position of the current character.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: utf8.RuneCountInString(l.input[l.lineStart:l.pos]) + 1,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipBlanksAndComments()

	pos := l.position()

	switch {
	case l.atEOF():
		return Token{Type: TokenEOF, Pos: pos}

	case l.ch == '\n' || l.ch == ';':
		lit := string(l.ch)
		l.readChar()
		return Token{Type: TokenSep, Literal: lit, Pos: pos}

	case l.ch == '{':
		l.readChar()
		return Token{Type: TokenLBrace, Literal: "{", Pos: pos}

	case l.ch == '}':
		l.readChar()
		return Token{Type: TokenRBrace, Literal: "}", Pos: pos}

	case l.ch == '(':
		l.readChar()
		if l.ch == ')' {
			l.readChar()
			return Token{Type: TokenUnit, Literal: "()", Pos: pos}
		}
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}

	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}

	case l.ch == '=':
		l.readChar()
		return Token{Type: TokenAssign, Literal: "=", Pos: pos}

	case l.ch == '-' && l.peekChar() == '>':
		l.readChar()
		l.readChar()
		return Token{Type: TokenLambda, Literal: "->", Pos: pos}

	case l.ch == '"':
		return l.readString(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case l.ch == '-' && isDigit(l.peekChar()):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readName(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %q", ch), Pos: pos}
	}
}

// skipBlanksAndComments skips spaces, tabs, carriage returns and "--"
// comments. The newline ending a comment is left in place.
func (l *Lexer) skipBlanksAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}
		return
	}
}

// readString reads a double-quoted string literal.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for l.ch != '"' {
		if l.atEOF() {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		switch l.ch {
		case '\\':
			l.readChar()
			if l.atEOF() {
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			}
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '"':
				sb.WriteRune('"')
			case '\\':
				sb.WriteRune('\\')
			default:
				return Token{Type: TokenError, Literal: fmt.Sprintf("unknown escape sequence: \\%c", l.ch), Pos: pos}
			}
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
	l.readChar() // consume closing "

	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readNumber reads a decimal number with optional fraction and exponent.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos

	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume .
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			return Token{Type: TokenError, Literal: "malformed exponent", Pos: pos}
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: pos}
}

// readName reads a symbol, label or reserved word. Names starting with an
// upper-case letter are labels.
func (l *Lexer) readName(pos Position) Token {
	start := l.pos
	first := l.ch

	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	literal := l.input[start:l.pos]
	if tokType, ok := reservedWords[literal]; ok {
		return Token{Type: tokType, Literal: literal, Pos: pos}
	}
	if unicode.IsUpper(first) {
		return Token{Type: TokenKind, Literal: literal, Pos: pos}
	}
	return Token{Type: TokenSymbol, Literal: literal, Pos: pos}
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input, ending with EOF or the first
// error token.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
