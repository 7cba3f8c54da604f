package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Delimiters
	TokenLBrace // {
	TokenRBrace // }
	TokenLParen // (
	TokenRParen // )
	TokenSep    // ; or newline

	TokenAssign // =
	TokenLambda // ->
	TokenPrint  // print

	// Literals
	TokenUnit    // ()
	TokenNumber  // 37.2, 1e3
	TokenString  // "hello"
	TokenBoolean // true, false

	// Names
	TokenSymbol // lowercase identifier
	TokenKind   // Capitalised label
)

var tokenNames = map[TokenType]string{
	TokenEOF:     "end of source",
	TokenError:   "an error",
	TokenLBrace:  "an opening bracket",
	TokenRBrace:  "a closing bracket",
	TokenLParen:  "an opening paren",
	TokenRParen:  "a closing paren",
	TokenSep:     "a separator",
	TokenAssign:  "an assignment",
	TokenLambda:  "a lambda",
	TokenPrint:   "a print keyword",
	TokenUnit:    "the unit, '()'",
	TokenNumber:  "a number",
	TokenString:  "a string",
	TokenBoolean: "a boolean, like 'true' or 'false'",
	TokenSymbol:  "a symbol",
	TokenKind:    "a Label",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // raw text; for strings, the unescaped contents
	Pos     Position // start position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	case TokenSep:
		return "SEP"
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"print": TokenPrint,
	"true":  TokenBoolean,
	"false": TokenBoolean,
}
