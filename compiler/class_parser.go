package compiler

import (
	"errors"
	"strings"
)

// ErrParseMismatch is returned when a source text contains no class
// declaration block.
var ErrParseMismatch = errors.New("no class declaration matched")

// ParseClasses parses every `Super subclass: Name [ ... ]` block in src.
//
// A block that does not match the declaration shape is skipped and
// scanning continues after it; the messages for skipped regions are
// returned alongside the classes. ErrParseMismatch is returned when no
// block at all was parsed.
func ParseClasses(src string) ([]*ClassDef, []string, error) {
	p := NewParser(src)
	classes := p.parseClassBlocks()
	if len(classes) == 0 {
		return nil, p.Errors(), ErrParseMismatch
	}
	return classes, p.Errors(), nil
}

// parseClassBlocks scans the token stream for class declarations.
func (p *Parser) parseClassBlocks() []*ClassDef {
	var classes []*ClassDef

	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenKeyword) && p.peekToken.Literal == "subclass:" {
			if cls := p.parseClassDecl(); cls != nil {
				classes = append(classes, cls)
			}
			continue
		}
		p.nextToken()
	}

	return classes
}

// parseClassDecl parses `Super subclass: Name [ body ]` starting at Super.
// On mismatch it records an error, leaves the cursor past the offending
// region and returns nil.
func (p *Parser) parseClassDecl() *ClassDef {
	startPos := p.curToken.Pos
	superclass := p.curToken.Literal
	p.nextToken() // superclass
	p.nextToken() // subclass:

	var name string
	switch {
	case p.curTokenIs(TokenIdentifier):
		name = p.curToken.Literal
	case p.curTokenIs(TokenSymbol):
		name = p.curToken.Literal
	default:
		p.errorf("expected class name after 'subclass:', got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()

	if !p.curTokenIs(TokenLBracket) {
		p.errorf("expected '[' after class name %s", name)
		return nil
	}

	open := p.idx
	closeIdx := p.matchingClose(open)
	if closeIdx < 0 {
		p.errorf("unterminated body for class %s", name)
		p.seek(len(p.toks) - 1)
		return nil
	}

	cls := &ClassDef{
		Name:       name,
		Superclass: superclass,
	}
	p.parseClassBody(cls, open+1, closeIdx)

	p.seek(closeIdx + 1)
	cls.SpanVal = MakeSpan(startPos, p.curToken.Pos)
	return cls
}

// parseClassBody parses the tokens strictly between a class's brackets:
// instance variable lists and method blocks.
func (p *Parser) parseClassBody(cls *ClassDef, from, to int) {
	p.seek(from)

	for p.idx < to {
		switch {
		case p.curTokenIs(TokenBar):
			cls.InstanceVariables = append(cls.InstanceVariables, p.parseInstanceVars(to)...)

		case p.isClassSideHeader():
			if !p.skipToBlockEnd(to) {
				return
			}
			cls.SkippedClassMethods++

		default:
			if m := p.parseMethodBlock(to); m != nil {
				cls.Methods = append(cls.Methods, m)
			}
		}
	}
}

// parseInstanceVars parses | name1 name2 | inside a class body.
func (p *Parser) parseInstanceVars(limit int) []string {
	p.nextToken() // consume |

	var vars []string
	for p.idx < limit && p.curTokenIs(TokenIdentifier) {
		vars = append(vars, p.curToken.Literal)
		p.nextToken()
	}

	if p.idx < limit && p.curTokenIs(TokenBar) {
		p.nextToken()
	} else {
		p.errorf("unterminated instance variable list")
	}
	return vars
}

// isClassSideHeader reports whether the cursor is at `Name class >> ...` or
// `Name class [`.
func (p *Parser) isClassSideHeader() bool {
	if !p.curTokenIs(TokenIdentifier) || !p.peekTokenIs(TokenIdentifier) || p.peekToken.Literal != "class" {
		return false
	}
	next := p.tokenAt(p.idx + 2)
	return (next.Type == TokenBinarySelector && next.Literal == ">>") || next.Type == TokenLBracket
}

// skipToBlockEnd advances past the next bracketed block before limit.
func (p *Parser) skipToBlockEnd(limit int) bool {
	for p.idx < limit && !p.curTokenIs(TokenLBracket) {
		p.nextToken()
	}
	if p.idx >= limit {
		return false
	}
	closeIdx := p.matchingClose(p.idx)
	if closeIdx < 0 || closeIdx >= limit {
		p.errorf("unterminated class-side block")
		p.seek(limit)
		return false
	}
	p.seek(closeIdx + 1)
	return true
}

// parseMethodBlock parses `pattern [ body ]`. Tokens that do not start a
// method pattern are skipped one at a time.
func (p *Parser) parseMethodBlock(limit int) *MethodDef {
	startPos := p.curToken.Pos
	selector, params, ok := p.parseMethodPattern(limit)
	if !ok {
		p.nextToken()
		return nil
	}

	if p.idx >= limit || !p.curTokenIs(TokenLBracket) {
		p.errorf("expected '[' after method pattern %s", selector)
		return nil
	}

	open := p.idx
	closeIdx := p.matchingClose(open)
	if closeIdx < 0 || closeIdx >= limit {
		p.errorf("unterminated body for method %s", selector)
		p.seek(limit)
		return nil
	}

	body := p.subParser(open+1, closeIdx)
	var temps []string
	if body.curTokenIs(TokenBar) {
		temps = body.parseTemporaries()
	}
	stmts := body.parseBodyStatements()
	for _, e := range body.Errors() {
		p.errors = append(p.errors, selector+": "+e)
	}

	m := &MethodDef{
		Selector:   selector,
		Parameters: params,
		Temps:      temps,
		Statements: stmts,
		Source:     p.bodySource(open, closeIdx),
	}

	p.seek(closeIdx + 1)
	m.SpanVal = MakeSpan(startPos, p.curToken.Pos)
	return m
}

// parseMethodPattern parses a unary, binary or keyword method pattern.
// Keyword parts may omit their parameter name; only the `kw:` parts form
// the selector.
func (p *Parser) parseMethodPattern(limit int) (string, []string, bool) {
	switch {
	case p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenLBracket):
		selector := p.curToken.Literal
		p.nextToken()
		return selector, nil, true

	case p.curTokenIs(TokenBinarySelector) && p.peekTokenIs(TokenIdentifier):
		selector := p.curToken.Literal
		p.nextToken()
		param := p.curToken.Literal
		p.nextToken()
		return selector, []string{param}, true

	case p.curTokenIs(TokenKeyword):
		var selector strings.Builder
		var params []string
		for p.idx < limit && p.curTokenIs(TokenKeyword) {
			selector.WriteString(p.curToken.Literal)
			p.nextToken()
			if p.curTokenIs(TokenIdentifier) {
				params = append(params, p.curToken.Literal)
				p.nextToken()
			}
		}
		return selector.String(), params, true

	default:
		return "", nil, false
	}
}

// bodySource returns the raw text between two bracket tokens.
func (p *Parser) bodySource(open, closeIdx int) string {
	start := p.toks[open].Pos.Offset + 1
	end := p.toks[closeIdx].Pos.Offset
	if start > end || end > len(p.input) {
		return ""
	}
	return strings.TrimSpace(p.input[start:end])
}
