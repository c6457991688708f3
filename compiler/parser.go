package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Parser is a recursive-descent parser over a pre-lexed token slice. Class
// and script parsing scan ahead for bracket and statement boundaries, then
// hand each method body or statement to a sub-parser over just its tokens.
//
// Every parse function returns an untyped nil on failure after recording an
// error, so callers can test results against nil.
type Parser struct {
	toks      []Token
	idx       int
	curToken  Token
	peekToken Token
	errors    []string
	input     string
}

func NewParser(input string) *Parser {
	return newTokenParser(NewLexer(input).Tokenize(), input)
}

// newTokenParser expects toks to end with TokenEOF.
func newTokenParser(toks []Token, input string) *Parser {
	p := &Parser{toks: toks, input: input}
	p.seek(0)
	return p
}

func (p *Parser) nextToken() {
	p.idx++
	p.curToken = p.tokenAt(p.idx)
	p.peekToken = p.tokenAt(p.idx + 1)
}

// seek moves the cursor to an absolute token index.
func (p *Parser) seek(idx int) {
	p.idx = idx - 1
	p.nextToken()
}

// tokenAt clamps i to the trailing EOF token.
func (p *Parser) tokenAt(i int) Token {
	if i < 0 {
		return Token{Type: TokenEOF}
	}
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) curTokenIs(t TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken.Type)
	return false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.curToken.Pos.Line, fmt.Sprintf(format, args...)))
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

func isOpener(t TokenType) bool { return t == TokenLBracket || t == TokenLParen }
func isCloser(t TokenType) bool { return t == TokenRBracket || t == TokenRParen }

// matchingClose returns the index of the token closing the bracket or paren
// at open, or -1 if the input ends first.
func (p *Parser) matchingClose(open int) int {
	depth := 0
	for i := open; i < len(p.toks) && p.toks[i].Type != TokenEOF; i++ {
		switch t := p.toks[i].Type; {
		case isOpener(t):
			depth++
		case isCloser(t):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// subParser returns a parser over toks[from:to] terminated by an EOF token
// positioned at toks[to].
func (p *Parser) subParser(from, to int) *Parser {
	sub := make([]Token, 0, to-from+1)
	sub = append(sub, p.toks[from:to]...)
	sub = append(sub, Token{Type: TokenEOF, Pos: p.tokenAt(to).Pos})
	return newTokenParser(sub, p.input)
}

// sourceBetween returns the trimmed source text from the start of token
// from up to the start of token to.
func (p *Parser) sourceBetween(from, to int) string {
	start := p.tokenAt(from).Pos.Offset
	end := p.tokenAt(to).Pos.Offset
	if to >= len(p.toks) {
		end = len(p.input)
	}
	if start < 0 || end > len(p.input) || start >= end {
		return ""
	}
	return strings.TrimSpace(p.input[start:end])
}

// ParseExpression parses one expression, including a trailing cascade.
func (p *Parser) ParseExpression() Expr {
	return p.parseExpr()
}

func (p *Parser) ParseStatement() Stmt {
	if p.curTokenIs(TokenCaret) {
		return p.parseReturn()
	}
	e := p.parseExpr()
	if e == nil {
		return nil
	}
	return &ExprStmt{SpanVal: e.Span(), Expr: e}
}

// ParseStatements parses period-separated statements up to a closing
// bracket or the end of input, stopping at the first statement not followed
// by a period.
func (p *Parser) ParseStatements() []Stmt {
	var stmts []Stmt
	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenRBracket) {
		if s := p.ParseStatement(); s != nil {
			stmts = append(stmts, s)
		}
		if !p.curTokenIs(TokenPeriod) {
			break
		}
		p.nextToken()
	}
	return stmts
}

// parseBodyStatements parses a method body. A statement that fails is dropped
// up to the next top-level period and the rest of the body still parses.
func (p *Parser) parseBodyStatements() []Stmt {
	var stmts []Stmt
	for !p.curTokenIs(TokenEOF) {
		before := len(p.errors)
		s := p.ParseStatement()
		if s != nil && len(p.errors) == before {
			stmts = append(stmts, s)
		}

		switch {
		case p.curTokenIs(TokenPeriod):
			p.nextToken()
			continue
		case p.curTokenIs(TokenEOF):
			return stmts
		case len(p.errors) == before:
			p.errorf("unexpected %s after statement", p.curToken.Type)
		}
		p.skipStatement()
	}
	return stmts
}

// skipStatement advances past the next period that is not nested in brackets.
func (p *Parser) skipStatement() {
	depth := 0
	for ; !p.curTokenIs(TokenEOF); p.nextToken() {
		switch t := p.curToken.Type; {
		case isOpener(t):
			depth++
		case isCloser(t):
			depth--
		case t == TokenPeriod && depth <= 0:
			p.nextToken()
			return
		}
	}
}

// parseTemporaries parses `| a b |` starting at the first bar.
func (p *Parser) parseTemporaries() []string {
	p.nextToken()
	var temps []string
	for p.curTokenIs(TokenIdentifier) {
		temps = append(temps, p.curToken.Literal)
		p.nextToken()
	}
	if !p.expect(TokenBar) {
		return nil
	}
	return temps
}

func (p *Parser) parseReturn() Stmt {
	start := p.curToken.Pos
	p.nextToken() // ^
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &Return{SpanVal: MakeSpan(start, value.Span().End), Value: value}
}

// parseExpr parses a keyword-level send and any cascade hanging off it.
func (p *Parser) parseExpr() Expr {
	e := p.parseKeywordSend()
	if e == nil || !p.curTokenIs(TokenSemicolon) {
		return e
	}
	return p.parseCascade(e)
}

func (p *Parser) parseKeywordSend() Expr {
	recv := p.parseBinarySend()
	if recv == nil || !p.curTokenIs(TokenKeyword) {
		return recv
	}
	selector, keywords, args, ok := p.keywordParts()
	if !ok {
		return nil
	}
	return &KeywordMessage{
		SpanVal:   MakeSpan(recv.Span().Start, p.curToken.Pos),
		Receiver:  recv,
		Selector:  selector,
		Keywords:  keywords,
		Arguments: args,
	}
}

// keywordParts reads `kw: arg kw: arg ...`. Arguments bind at binary level so
// a cascade stays with the outer send.
func (p *Parser) keywordParts() (selector string, keywords []string, args []Expr, ok bool) {
	for p.curTokenIs(TokenKeyword) {
		keywords = append(keywords, p.curToken.Literal)
		p.nextToken()
		arg := p.parseBinarySend()
		if arg == nil {
			return "", nil, nil, false
		}
		args = append(args, arg)
	}
	return strings.Join(keywords, ""), keywords, args, true
}

// parseBinarySend is left associative: a + b * c is (a + b) * c.
func (p *Parser) parseBinarySend() Expr {
	left := p.parseUnarySend()
	for left != nil && p.curTokenIs(TokenBinarySelector) {
		selector := p.curToken.Literal
		p.nextToken()
		right := p.parseUnarySend()
		if right == nil {
			return nil
		}
		left = &BinaryMessage{
			SpanVal:  MakeSpan(left.Span().Start, right.Span().End),
			Receiver: left,
			Selector: selector,
			Argument: right,
		}
	}
	return left
}

func (p *Parser) parseUnarySend() Expr {
	e := p.parsePrimary()
	// An identifier followed by := starts the next assignment, not a send.
	for e != nil && p.curTokenIs(TokenIdentifier) && !p.peekTokenIs(TokenAssign) {
		selector := p.curToken.Literal
		p.nextToken()
		e = &UnaryMessage{
			SpanVal:  MakeSpan(e.Span().Start, p.curToken.Pos),
			Receiver: e,
			Selector: selector,
		}
	}
	return e
}

func (p *Parser) parseCascade(first Expr) Expr {
	recv, msg, ok := splitSend(first)
	if !ok {
		p.errorf("cascade requires a message send")
		return first
	}
	messages := []CascadedMessage{msg}
	for p.curTokenIs(TokenSemicolon) {
		p.nextToken()
		next, ok := p.parseCascadedMessage()
		if !ok {
			return nil
		}
		messages = append(messages, next)
	}
	return &Cascade{
		SpanVal:  MakeSpan(first.Span().Start, p.curToken.Pos),
		Receiver: recv,
		Messages: messages,
	}
}

// splitSend separates a message send into its receiver and message.
func splitSend(e Expr) (Expr, CascadedMessage, bool) {
	switch m := e.(type) {
	case *UnaryMessage:
		return m.Receiver, CascadedMessage{Type: UnaryMsg, Selector: m.Selector}, true
	case *BinaryMessage:
		return m.Receiver, CascadedMessage{Type: BinaryMsg, Selector: m.Selector, Arguments: []Expr{m.Argument}}, true
	case *KeywordMessage:
		return m.Receiver, CascadedMessage{Type: KeywordMsg, Selector: m.Selector, Keywords: m.Keywords, Arguments: m.Arguments}, true
	}
	return nil, CascadedMessage{}, false
}

// parseCascadedMessage parses one message after a semicolon.
func (p *Parser) parseCascadedMessage() (CascadedMessage, bool) {
	switch p.curToken.Type {
	case TokenIdentifier:
		selector := p.curToken.Literal
		p.nextToken()
		return CascadedMessage{Type: UnaryMsg, Selector: selector}, true
	case TokenBinarySelector:
		selector := p.curToken.Literal
		p.nextToken()
		arg := p.parseUnarySend()
		if arg == nil {
			return CascadedMessage{}, false
		}
		return CascadedMessage{Type: BinaryMsg, Selector: selector, Arguments: []Expr{arg}}, true
	case TokenKeyword:
		selector, keywords, args, ok := p.keywordParts()
		return CascadedMessage{Type: KeywordMsg, Selector: selector, Keywords: keywords, Arguments: args}, ok
	}
	p.errorf("expected message in cascade")
	return CascadedMessage{}, false
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	switch tok.Type {
	case TokenLParen:
		return p.parseParen()
	case TokenLBracket:
		return p.parseBlock()
	case TokenIdentifier:
		return p.parseIdentifier()
	case TokenError:
		p.errorf("%s", tok.Literal)
		return nil
	}
	if lit := p.parseLiteral(); lit != nil {
		return lit
	}
	p.errorf("unexpected token: %s", tok.Type)
	return nil
}

// parseLiteral consumes a literal or pseudo-variable token. It returns nil
// without consuming anything for other tokens.
func (p *Parser) parseLiteral() Expr {
	tok := p.curToken
	span := MakeSpan(tok.Pos, p.peekToken.Pos)

	var e Expr
	switch tok.Type {
	case TokenInteger:
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid integer: %s", tok.Literal)
		}
		e = &IntLiteral{SpanVal: span, Value: n}
	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf("invalid float: %s", tok.Literal)
		}
		e = &FloatLiteral{SpanVal: span, Value: f}
	case TokenString:
		e = &StringLiteral{SpanVal: span, Value: tok.Literal}
	case TokenSymbol:
		e = &SymbolLiteral{SpanVal: span, Value: tok.Literal}
	case TokenCharacter:
		r, _ := utf8.DecodeRuneInString(tok.Literal)
		e = &CharLiteral{SpanVal: span, Value: r}
	case TokenNil:
		e = &NilLiteral{SpanVal: span}
	case TokenSelf:
		e = &Self{SpanVal: span}
	case TokenSuper:
		e = &Super{SpanVal: span}
	default:
		return nil
	}
	p.nextToken()
	return e
}

func (p *Parser) parseParen() Expr {
	start := p.curToken.Pos
	p.nextToken() // (
	inner := p.parseExpr()
	if inner == nil || !p.expect(TokenRParen) {
		return nil
	}
	return &Paren{SpanVal: MakeSpan(start, p.curToken.Pos), Expr: inner}
}

// parseBlock parses [:a :b | | t | stmts]. [:x] is a block with a parameter
// and an empty body.
func (p *Parser) parseBlock() Expr {
	start := p.curToken.Pos
	p.nextToken() // [

	var params []string
	for p.curTokenIs(TokenColon) {
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected parameter name after :")
			return nil
		}
		params = append(params, p.curToken.Literal)
		p.nextToken()
	}
	if len(params) > 0 && !p.curTokenIs(TokenRBracket) && !p.expect(TokenBar) {
		return nil
	}

	var temps []string
	if p.curTokenIs(TokenBar) {
		temps = p.parseTemporaries()
	}
	stmts := p.ParseStatements()
	if !p.expect(TokenRBracket) {
		return nil
	}

	return &Block{
		SpanVal:    MakeSpan(start, p.curToken.Pos),
		Parameters: params,
		Temps:      temps,
		Statements: stmts,
	}
}

// parseIdentifier parses a variable reference or `name := expr`.
func (p *Parser) parseIdentifier() Expr {
	tok := p.curToken
	p.nextToken()
	if !p.curTokenIs(TokenAssign) {
		return &Variable{SpanVal: MakeSpan(tok.Pos, p.curToken.Pos), Name: tok.Literal}
	}

	p.nextToken() // :=
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &Assignment{
		SpanVal:  MakeSpan(tok.Pos, value.Span().End),
		Variable: tok.Literal,
		Value:    value,
	}
}
