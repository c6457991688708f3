package interp

import (
	"fmt"
	"strings"

	"github.com/chazu/minitalk/compiler"
	"github.com/chazu/minitalk/lib/runtime"
)

// StatementResult is the outcome of one top-level statement.
type StatementResult struct {
	Line    int
	Source  string
	Outcome runtime.Outcome
}

// Report describes a script run: every statement reached, in order, and
// the final local scope.
type Report struct {
	Statements []StatementResult
	Scope      *Scope
}

// Run executes a script and reports per-statement outcomes. Statements
// outside the supported forms are skipped with outcome NotApplicable. The
// first fatal error (an unresolved send to an object, an unknown class)
// stops the run; the report then ends at the failing statement.
func (e *Environment) Run(src string) (*Report, error) {
	script := compiler.ParseScript(src)

	x := &executor{rt: e.rt, scope: NewScope()}
	x.scope.Declare(script.Temps...)

	report := &Report{Scope: x.scope}
	for _, ss := range script.Statements {
		res := StatementResult{Line: ss.SpanVal.Start.Line, Source: ss.Source}

		if ss.Stmt == nil {
			log.Debugf("line %d: skipped unparsable statement %q: %s", res.Line, ss.Source, strings.Join(ss.Errors, "; "))
			res.Outcome = runtime.NotApplicable
			report.Statements = append(report.Statements, res)
			continue
		}

		out, err := x.exec(ss.Stmt)
		res.Outcome = out
		report.Statements = append(report.Statements, res)
		if err != nil {
			return report, fmt.Errorf("line %d: %w", res.Line, err)
		}
		if out == runtime.NotApplicable {
			log.Debugf("line %d: skipped %q", res.Line, ss.Source)
		}
	}
	return report, nil
}

// executor runs script statements against one scope.
type executor struct {
	rt    *runtime.Interpreter
	scope *Scope
}

// exec classifies a statement and runs it. Shapes are tried in order:
// output, assignment, iteration, unary send, keyword send.
func (x *executor) exec(stmt compiler.Stmt) (runtime.Outcome, error) {
	es, ok := stmt.(*compiler.ExprStmt)
	if !ok {
		return runtime.NotApplicable, nil
	}
	expr := compiler.Unparen(es.Expr)

	if out, ok := x.output(expr); ok {
		return out, nil
	}

	switch e := expr.(type) {
	case *compiler.Assignment:
		return x.assign(e)
	case *compiler.KeywordMessage:
		if e.Selector == "do:" {
			if out, ok, err := x.iterate(e); ok {
				return out, err
			}
		}
		return x.keywordSend(e)
	case *compiler.UnaryMessage:
		return x.unarySend(e)
	case *compiler.Cascade:
		return x.cascade(e)
	}
	return runtime.NotApplicable, nil
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// output runs messages sent to Transcript. ok is false when the statement
// is not addressed to Transcript.
func (x *executor) output(expr compiler.Expr) (runtime.Outcome, bool) {
	var recv compiler.Expr
	var msgs []compiler.CascadedMessage

	switch m := expr.(type) {
	case *compiler.UnaryMessage:
		recv = m.Receiver
		msgs = []compiler.CascadedMessage{{Type: compiler.UnaryMsg, Selector: m.Selector}}
	case *compiler.KeywordMessage:
		recv = m.Receiver
		msgs = []compiler.CascadedMessage{{Type: compiler.KeywordMsg, Selector: m.Selector, Keywords: m.Keywords, Arguments: m.Arguments}}
	case *compiler.Cascade:
		recv = m.Receiver
		msgs = m.Messages
	default:
		return runtime.NotApplicable, false
	}
	if v, ok := compiler.Unparen(recv).(*compiler.Variable); !ok || v.Name != compiler.TranscriptName {
		return runtime.NotApplicable, false
	}

	emitted := false
	for _, msg := range msgs {
		action, ok := compiler.TranscriptAction(msg.Selector)
		if !ok {
			log.Debugf("Transcript does not understand %s", msg.Selector)
			continue
		}
		switch action {
		case compiler.DisplayNewline:
			x.rt.Out.Newline()
		case compiler.DisplayTab:
			x.rt.Out.Show("\t")
		case compiler.DisplaySpace:
			x.rt.Out.Show(" ")
		case compiler.DisplayShow:
			if len(msg.Arguments) == 0 {
				continue
			}
			for _, seg := range compiler.SplitSegments(msg.Arguments[0]) {
				text, ok := x.segment(seg)
				if !ok {
					log.Debugf("skipped output segment %T", seg)
					continue
				}
				x.rt.Out.Show(text)
				emitted = true
			}
			continue
		}
		emitted = true
	}

	if !emitted {
		return runtime.NotApplicable, true
	}
	return runtime.Executed, true
}

// segment renders one output segment: a literal, a local, `local
// printString`, `(local sel)` or `(local sel) printString`. ok is false for
// anything else.
func (x *executor) segment(e compiler.Expr) (string, bool) {
	if v, ok := literal(e); ok {
		return v.String(), true
	}

	switch s := e.(type) {
	case *compiler.Variable:
		if v, ok := x.scope.Get(s.Name); ok {
			return v.String(), true
		}
	case *compiler.Paren:
		return x.parenSend(s)
	case *compiler.UnaryMessage:
		if s.Selector != "printString" && s.Selector != "displayString" {
			return "", false
		}
		switch r := s.Receiver.(type) {
		case *compiler.Variable:
			if v, ok := x.scope.Get(r.Name); ok {
				return v.String(), true
			}
		case *compiler.Paren:
			return x.parenSend(r)
		}
	}
	return "", false
}

// parenSend renders `(local sel)`. A failed send skips the segment.
func (x *executor) parenSend(p *compiler.Paren) (string, bool) {
	u, ok := compiler.Unparen(p).(*compiler.UnaryMessage)
	if !ok {
		return "", false
	}
	r, ok := u.Receiver.(*compiler.Variable)
	if !ok {
		return "", false
	}
	recv, ok := x.scope.Get(r.Name)
	if !ok {
		return "", false
	}
	v, err := x.rt.SendValue(recv, u.Selector, nil)
	if err != nil {
		log.Warningf("output segment (%s %s): %v", r.Name, u.Selector, err)
		return "", false
	}
	return v.String(), true
}

// ---------------------------------------------------------------------------
// Assignment
// ---------------------------------------------------------------------------

func (x *executor) assign(a *compiler.Assignment) (runtime.Outcome, error) {
	v, out, err := x.value(a.Value)
	if out != runtime.Executed {
		return out, err
	}
	x.scope.Set(a.Variable, v)
	return runtime.Executed, nil
}

// value evaluates the right-hand side of an assignment: `Class new`, a
// literal, `Array with: a with: b`, arithmetic, a local or `local sel`.
func (x *executor) value(e compiler.Expr) (runtime.Value, runtime.Outcome, error) {
	e = compiler.Unparen(e)
	if v, ok := literal(e); ok {
		return v, runtime.Executed, nil
	}

	switch n := e.(type) {
	case *compiler.Variable:
		if v, ok := x.scope.Get(n.Name); ok {
			return v, runtime.Executed, nil
		}
		log.Warningf("undefined local %s", n.Name)
		return runtime.NilValue(), runtime.Invalid, nil

	case *compiler.UnaryMessage:
		r, ok := n.Receiver.(*compiler.Variable)
		if !ok {
			break
		}
		if recv, ok := x.scope.Get(r.Name); ok {
			v, err := x.rt.SendValue(recv, n.Selector, nil)
			if err != nil {
				return runtime.NilValue(), runtime.Invalid, err
			}
			return v, runtime.Executed, nil
		}
		if n.Selector == "new" {
			v, err := x.rt.New(r.Name)
			if err != nil {
				return runtime.NilValue(), runtime.Invalid, err
			}
			return v, runtime.Executed, nil
		}

	case *compiler.KeywordMessage:
		if r, ok := n.Receiver.(*compiler.Variable); ok && r.Name == "Array" && allWith(n.Keywords) {
			var elems []runtime.Value
			for _, arg := range n.Arguments {
				if v, ok := x.element(arg); ok {
					elems = append(elems, v)
				}
			}
			return runtime.SequenceValue(runtime.NewSequence(elems...)), runtime.Executed, nil
		}

	case *compiler.BinaryMessage:
		switch n.Selector {
		case "+", "-", "*", "/":
		default:
			return runtime.NilValue(), runtime.NotApplicable, nil
		}
		left, err := x.arithOperand(n.Receiver)
		if err != nil {
			return runtime.NilValue(), runtime.Invalid, err
		}
		right, err := x.arithOperand(n.Argument)
		if err != nil {
			return runtime.NilValue(), runtime.Invalid, err
		}
		v, err := runtime.Arithmetic(n.Selector, left, right)
		if err != nil {
			log.Warningf("%s: %v", n.Selector, err)
			return runtime.NilValue(), runtime.Invalid, nil
		}
		return v, runtime.Executed, nil
	}

	return runtime.NilValue(), runtime.NotApplicable, nil
}

// element resolves one `Array with:` argument. Unbound locals are dropped.
func (x *executor) element(e compiler.Expr) (runtime.Value, bool) {
	if v, ok := literal(e); ok {
		return v, true
	}
	if r, ok := e.(*compiler.Variable); ok {
		return x.scope.Get(r.Name)
	}
	return runtime.NilValue(), false
}

// arithOperand resolves an operand of script arithmetic. An unbound local
// counts as zero; a local holding an instance contributes its accessor
// value.
func (x *executor) arithOperand(e compiler.Expr) (runtime.Value, error) {
	e = compiler.Unparen(e)
	if v, ok := literal(e); ok {
		return v, nil
	}

	switch n := e.(type) {
	case *compiler.Variable:
		v, ok := x.scope.Get(n.Name)
		if !ok {
			return runtime.IntValue(0), nil
		}
		if v.Type == runtime.TypeInstance {
			return x.rt.SendValue(v, x.rt.Conventions.AccessorSelector, nil)
		}
		return v, nil

	case *compiler.UnaryMessage:
		r, ok := n.Receiver.(*compiler.Variable)
		if !ok {
			break
		}
		recv, ok := x.scope.Get(r.Name)
		if !ok {
			return runtime.IntValue(0), nil
		}
		return x.rt.SendValue(recv, n.Selector, nil)

	case *compiler.BinaryMessage:
		left, err := x.arithOperand(n.Receiver)
		if err != nil {
			return runtime.NilValue(), err
		}
		right, err := x.arithOperand(n.Argument)
		if err != nil {
			return runtime.NilValue(), err
		}
		return runtime.Arithmetic(n.Selector, left, right)
	}

	return runtime.IntValue(0), nil
}

// ---------------------------------------------------------------------------
// Iteration
// ---------------------------------------------------------------------------

// iterate runs `coll do: [:item | ... ]`. Each element is bound to the
// item name in turn and every body statement runs for it before the next
// element; the previous binding of the item name is restored afterwards.
// ok is false when the receiver is not a bare variable.
func (x *executor) iterate(k *compiler.KeywordMessage) (runtime.Outcome, bool, error) {
	c, ok := compiler.Unparen(k.Receiver).(*compiler.Variable)
	if !ok {
		return runtime.NotApplicable, false, nil
	}

	block, ok := k.Arguments[0].(*compiler.Block)
	if !ok || len(block.Parameters) != 1 {
		return runtime.NotApplicable, true, nil
	}

	coll, ok := x.scope.Get(c.Name)
	if !ok || coll.Type != runtime.TypeSequence {
		log.Debugf("do: receiver %s is not a collection", c.Name)
		return runtime.NotApplicable, true, nil
	}

	item := block.Parameters[0]
	for _, elem := range coll.SeqVal.Elements() {
		restore := x.scope.shadow(item, elem)
		for _, s := range block.Statements {
			if _, err := x.exec(s); err != nil {
				restore()
				return runtime.Invalid, true, err
			}
		}
		restore()
	}
	return runtime.Executed, true, nil
}

// ---------------------------------------------------------------------------
// Sends
// ---------------------------------------------------------------------------

func (x *executor) unarySend(u *compiler.UnaryMessage) (runtime.Outcome, error) {
	r, ok := compiler.Unparen(u.Receiver).(*compiler.Variable)
	if !ok {
		return runtime.NotApplicable, nil
	}
	recv, ok := x.scope.Get(r.Name)
	if !ok {
		return runtime.NotApplicable, nil
	}
	if _, err := x.rt.SendValue(recv, u.Selector, nil); err != nil {
		return runtime.Invalid, err
	}
	return runtime.Executed, nil
}

func (x *executor) keywordSend(k *compiler.KeywordMessage) (runtime.Outcome, error) {
	r, ok := compiler.Unparen(k.Receiver).(*compiler.Variable)
	if !ok {
		return runtime.NotApplicable, nil
	}
	recv, ok := x.scope.Get(r.Name)
	if !ok {
		return runtime.NotApplicable, nil
	}
	return x.sendKeyword(recv, r.Name, k.Selector, k.Arguments)
}

// sendKeyword resolves each argument as a literal or a bound local and
// sends. An unresolvable argument skips the send.
func (x *executor) sendKeyword(recv runtime.Value, name, selector string, argExprs []compiler.Expr) (runtime.Outcome, error) {
	args := make([]runtime.Value, 0, len(argExprs))
	for _, a := range argExprs {
		v, ok := x.element(compiler.Unparen(a))
		if !ok {
			log.Warningf("%s %s: unresolvable argument %T", name, selector, a)
			return runtime.Invalid, nil
		}
		args = append(args, v)
	}
	if _, err := x.rt.SendValue(recv, selector, args); err != nil {
		return runtime.Invalid, err
	}
	return runtime.Executed, nil
}

// cascade sends each message of `local m1; m2: v` to the same local.
func (x *executor) cascade(c *compiler.Cascade) (runtime.Outcome, error) {
	r, ok := compiler.Unparen(c.Receiver).(*compiler.Variable)
	if !ok {
		return runtime.NotApplicable, nil
	}
	recv, ok := x.scope.Get(r.Name)
	if !ok {
		return runtime.NotApplicable, nil
	}

	out := runtime.Executed
	for _, msg := range c.Messages {
		switch msg.Type {
		case compiler.UnaryMsg:
			if _, err := x.rt.SendValue(recv, msg.Selector, nil); err != nil {
				return runtime.Invalid, err
			}
		case compiler.KeywordMsg:
			o, err := x.sendKeyword(recv, r.Name, msg.Selector, msg.Arguments)
			if err != nil {
				return runtime.Invalid, err
			}
			if o != runtime.Executed {
				out = o
			}
		default:
			out = runtime.Invalid
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// literal converts a literal expression to a value.
func literal(e compiler.Expr) (runtime.Value, bool) {
	switch e.(type) {
	case *compiler.IntLiteral, *compiler.FloatLiteral, *compiler.StringLiteral,
		*compiler.SymbolLiteral, *compiler.CharLiteral, *compiler.NilLiteral:
		lit := compiler.LowerOperand(e).(*compiler.Literal)
		return runtime.LiteralValue(lit), true
	}
	return runtime.NilValue(), false
}

func allWith(keywords []string) bool {
	for _, k := range keywords {
		if k != "with:" {
			return false
		}
	}
	return len(keywords) > 0
}
