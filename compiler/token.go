package compiler

import "fmt"

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError

	TokenInteger    // 42, -7
	TokenFloat      // 3.5
	TokenString     // 'Ride ID: '
	TokenSymbol     // #fare, #'two words'
	TokenCharacter  // $a
	TokenIdentifier // fare, StandardRide
	TokenKeyword    // rideID:  (one part of a keyword selector)
	TokenBinarySelector

	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenCaret
	TokenPeriod
	TokenSemicolon
	TokenAssign // :=
	TokenColon  // block parameter prefix
	TokenBar

	TokenSelf
	TokenSuper
	TokenNil
)

var tokenNames = [...]string{
	TokenEOF:            "EOF",
	TokenError:          "ERROR",
	TokenInteger:        "INTEGER",
	TokenFloat:          "FLOAT",
	TokenString:         "STRING",
	TokenSymbol:         "SYMBOL",
	TokenCharacter:      "CHARACTER",
	TokenIdentifier:     "IDENTIFIER",
	TokenKeyword:        "KEYWORD",
	TokenBinarySelector: "BINARY",
	TokenLParen:         "(",
	TokenRParen:         ")",
	TokenLBracket:       "[",
	TokenRBracket:       "]",
	TokenCaret:          "^",
	TokenPeriod:         ".",
	TokenSemicolon:      ";",
	TokenAssign:         ":=",
	TokenColon:          ":",
	TokenBar:            "|",
	TokenSelf:           "self",
	TokenSuper:          "super",
	TokenNil:            "nil",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token is one lexeme. Literal holds the decoded text for strings, symbols
// and characters and the raw text for everything else.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	lit := t.Literal
	if len(lit) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, lit[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, lit)
}

var pseudoVariables = map[string]TokenType{
	"self":  TokenSelf,
	"super": TokenSuper,
	"nil":   TokenNil,
}

// IsBinaryChar reports whether r may appear in a binary selector.
func IsBinaryChar(r rune) bool {
	switch r {
	case '+', '-', '*', '/', '\\', '~', '<', '>', '=', '@', '%', '&', '?', '!', ',':
		return true
	}
	return false
}
