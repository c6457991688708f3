package compiler

// ParseScript splits a top-level script into statements.
//
// Statements end at a period that is not nested inside brackets, so an
// iteration block spanning several lines is one statement. A `| a b |`
// declaration may precede any statement and is collected into Temps.
// Each statement is parsed independently: one that fails to parse keeps its
// source text and errors and has a nil Stmt.
func ParseScript(src string) *Script {
	p := NewParser(src)
	script := &Script{}
	startPos := p.curToken.Pos

	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenPeriod) {
			p.nextToken()
			continue
		}
		if p.curTokenIs(TokenBar) {
			script.Temps = append(script.Temps, p.parseTemporaries()...)
			continue
		}

		from := p.idx
		to := p.statementEnd(from)
		script.Statements = append(script.Statements, p.parseScriptStatement(from, to))
		p.seek(to)
	}

	script.SpanVal = MakeSpan(startPos, p.curToken.Pos)
	return script
}

// statementEnd returns the index of the period (or EOF) ending the statement
// that starts at from.
func (p *Parser) statementEnd(from int) int {
	depth := 0
	for i := from; i < len(p.toks); i++ {
		switch p.toks[i].Type {
		case TokenLBracket, TokenLParen:
			depth++
		case TokenRBracket, TokenRParen:
			if depth > 0 {
				depth--
			}
		case TokenPeriod:
			if depth == 0 {
				return i
			}
		case TokenEOF:
			return i
		}
	}
	return len(p.toks) - 1
}

func (p *Parser) parseScriptStatement(from, to int) *ScriptStmt {
	ss := &ScriptStmt{
		SpanVal: MakeSpan(p.tokenAt(from).Pos, p.tokenAt(to).Pos),
		Source:  p.sourceBetween(from, to),
	}

	sub := p.subParser(from, to)
	stmt := sub.ParseStatement()
	if !sub.curTokenIs(TokenEOF) && len(sub.Errors()) == 0 {
		sub.errorf("unexpected %s after statement", sub.curToken.Type)
	}
	ss.Errors = sub.Errors()
	if len(ss.Errors) == 0 {
		ss.Stmt = stmt
	}
	return ss
}
