package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer splits source text into tokens. Double-quoted text is a comment.
type Lexer struct {
	src  string
	off  int  // offset of ch
	next int  // offset just past ch
	ch   rune // 0 once the input is exhausted
	line int
	col  int
}

func NewLexer(src string) *Lexer {
	l := &Lexer{src: src, line: 1}
	l.advance()
	return l
}

func (l *Lexer) advance() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.off = l.next
	l.col++
	if l.next >= len(l.src) {
		l.ch = 0
		return
	}
	r, size := utf8.DecodeRuneInString(l.src[l.next:])
	l.ch = r
	l.next += size
}

func (l *Lexer) peek() rune {
	if l.next >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.next:])
	return r
}

func (l *Lexer) position() Position {
	return Position{Offset: l.off, Line: l.line, Column: l.col}
}

// Tokenize returns every token of the input, ending with TokenEOF.
func (l *Lexer) Tokenize() []Token {
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

var punctuation = map[rune]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	'^': TokenCaret,
	'.': TokenPeriod,
	';': TokenSemicolon,
	'|': TokenBar,
}

func (l *Lexer) NextToken() Token {
	l.skipBlank()
	pos := l.position()

	if l.ch == 0 {
		return Token{Type: TokenEOF, Pos: pos}
	}
	if typ, ok := punctuation[l.ch]; ok {
		lit := string(l.ch)
		l.advance()
		return Token{Type: typ, Literal: lit, Pos: pos}
	}

	switch c := l.ch; {
	case c == ':':
		l.advance()
		if l.ch == '=' {
			l.advance()
			return Token{Type: TokenAssign, Literal: ":=", Pos: pos}
		}
		return Token{Type: TokenColon, Literal: ":", Pos: pos}
	case c == '#':
		return l.symbol(pos)
	case c == '\'':
		return l.quoted(pos, TokenString)
	case c == '$':
		l.advance()
		if l.ch == 0 {
			return Token{Type: TokenError, Literal: "unexpected EOF in character literal", Pos: pos}
		}
		ch := l.ch
		l.advance()
		return Token{Type: TokenCharacter, Literal: string(ch), Pos: pos}
	case isDigit(c), c == '-' && isDigit(l.peek()):
		return l.number(pos)
	case isWordStart(c):
		return l.word(pos)
	case IsBinaryChar(c):
		return l.binary(pos)
	}

	c := l.ch
	l.advance()
	return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", c), Pos: pos}
}

func (l *Lexer) skipBlank() {
	for {
		switch l.ch {
		case ' ', '\t', '\n', '\r':
			l.advance()
		case '"':
			l.advance()
			for l.ch != '"' && l.ch != 0 {
				l.advance()
			}
			l.advance()
		default:
			return
		}
	}
}

// quoted reads '...' where a doubled quote stands for one quote.
func (l *Lexer) quoted(pos Position, typ TokenType) Token {
	l.advance()
	var sb strings.Builder
	for {
		switch {
		case l.ch == 0:
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		case l.ch == '\'' && l.peek() == '\'':
			sb.WriteRune('\'')
			l.advance()
			l.advance()
		case l.ch == '\'':
			l.advance()
			return Token{Type: typ, Literal: sb.String(), Pos: pos}
		default:
			sb.WriteRune(l.ch)
			l.advance()
		}
	}
}

// symbol reads #name, #kw:kw:, #+ or #'text'. The literal omits the #.
func (l *Lexer) symbol(pos Position) Token {
	l.advance()
	start := l.off
	switch {
	case l.ch == '\'':
		return l.quoted(pos, TokenSymbol)
	case isWordStart(l.ch):
		for isWordPart(l.ch) || (l.ch == ':' && l.peek() != '=') {
			l.advance()
		}
	case IsBinaryChar(l.ch):
		for IsBinaryChar(l.ch) {
			l.advance()
		}
	default:
		return Token{Type: TokenError, Literal: "unexpected character: #", Pos: pos}
	}
	return Token{Type: TokenSymbol, Literal: l.src[start:l.off], Pos: pos}
}

// number reads an optionally negative integer or decimal. A period is only a
// decimal point when a digit follows it; `x := 10.` ends a statement.
func (l *Lexer) number(pos Position) Token {
	start := l.off
	if l.ch == '-' {
		l.advance()
	}
	for isDigit(l.ch) {
		l.advance()
	}
	typ := TokenInteger
	if l.ch == '.' && isDigit(l.peek()) {
		typ = TokenFloat
		l.advance()
		for isDigit(l.ch) {
			l.advance()
		}
	}
	return Token{Type: typ, Literal: l.src[start:l.off], Pos: pos}
}

// word reads an identifier, a pseudo-variable or one keyword part. `x:=` is
// an identifier followed by an assignment, not a keyword.
func (l *Lexer) word(pos Position) Token {
	start := l.off
	for isWordPart(l.ch) {
		l.advance()
	}
	text := l.src[start:l.off]

	if l.ch == ':' && l.peek() != '=' {
		l.advance()
		return Token{Type: TokenKeyword, Literal: text + ":", Pos: pos}
	}
	if typ, ok := pseudoVariables[text]; ok {
		return Token{Type: typ, Literal: text, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: text, Pos: pos}
}

func (l *Lexer) binary(pos Position) Token {
	start := l.off
	for IsBinaryChar(l.ch) {
		// "a -1" lexes as a negative literal, so stop before a digit-led minus.
		if l.off > start && l.ch == '-' && isDigit(l.peek()) {
			break
		}
		l.advance()
	}
	return Token{Type: TokenBinarySelector, Literal: l.src[start:l.off], Pos: pos}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isWordStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isWordPart(r rune) bool { return isWordStart(r) || isDigit(r) }
