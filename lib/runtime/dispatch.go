package runtime

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/minitalk/compiler"
)

var (
	// ErrNotCollection is reported when a collection shape finds no
	// sequence to work on.
	ErrNotCollection = errors.New("no collection")

	// ErrUnsupportedExpression is reported for operands outside the
	// evaluator's expression forms.
	ErrUnsupportedExpression = errors.New("unsupported expression")
)

// Outcome is the result of running one lowered statement.
type Outcome int

const (
	// Executed means the statement matched its shape and ran.
	Executed Outcome = iota
	// NotApplicable means no shape matched; the statement had no effect.
	NotApplicable
	// Invalid means a shape matched but could not complete. A Diagnostic
	// was recorded.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Executed:
		return "executed"
	case NotApplicable:
		return "not-applicable"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// frame is one method activation.
type frame struct {
	method *Method
	self   *Instance
	args   []Value
	temps  map[string]Value
}

// lookup resolves a name as a temporary, a parameter, then an instance
// variable.
func (f *frame) lookup(name string) (Value, bool) {
	if v, ok := f.temps[name]; ok {
		return v, true
	}
	for i, p := range f.method.Parameters {
		if p == name {
			if i < len(f.args) {
				return f.args[i], true
			}
			return NilValue(), true
		}
	}
	return f.self.GetVar(name)
}

func (f *frame) store(name string, v Value) error {
	if _, ok := f.temps[name]; ok {
		f.temps[name] = v
		return nil
	}
	if !f.self.SetVar(name, v) {
		return contain(fmt.Errorf("%w: %s", ErrUndefinedVariable, name))
	}
	return nil
}

// containedError is an evaluator failure limited to the statement that
// raised it. Anything else returned from exec aborts the run.
type containedError struct {
	err error
}

func (e *containedError) Error() string { return e.err.Error() }
func (e *containedError) Unwrap() error { return e.err }

func contain(err error) error {
	return &containedError{err: err}
}

// ---------------------------------------------------------------------------
// Method body evaluation
// ---------------------------------------------------------------------------

// Evaluate runs an already-resolved method against recv. It returns the
// method's result (nil unless a return statement ran or the method is the
// initializer) and one Outcome per statement executed, in run order.
// Initialize, ParamAssign and Return end the method.
func (in *Interpreter) Evaluate(m *Method, recv *Instance, args []Value) (Value, []Outcome, error) {
	if in.depth >= MaxDepth {
		return NilValue(), nil, fmt.Errorf("%w: %s>>%s", ErrRecursionLimit, recv.Class.Name, m.Selector)
	}
	in.depth++
	defer func() { in.depth-- }()

	f := &frame{
		method: m,
		self:   recv,
		args:   args,
		temps:  make(map[string]Value, len(m.Temps)),
	}
	for _, t := range m.Temps {
		f.temps[t] = NilValue()
	}

	outcomes := make([]Outcome, 0, len(m.Body))
	for _, s := range m.Body {
		out, ret, done, err := in.exec(f, s)
		if err != nil {
			var ce *containedError
			if !errors.As(err, &ce) {
				return NilValue(), outcomes, err
			}
			in.diagnose(f, s.Span().Start, ce.err)
			out = Invalid
		}
		outcomes = append(outcomes, out)
		if done {
			return ret, outcomes, nil
		}
	}
	return NilValue(), outcomes, nil
}

// phase groups shapes for runOrder. A method body runs one group at a time:
// parameter binding first, then state and return statements, then super
// delegation, output, collection appends and iteration.
func phase(s compiler.Shape) int {
	switch s.(type) {
	case *compiler.Initialize:
		return 0
	case *compiler.ParamAssign:
		return 1
	case *compiler.SuperSend:
		return 3
	case *compiler.Display:
		return 4
	case *compiler.CollectionAdd:
		return 5
	case *compiler.CollectionIterate:
		return 6
	}
	// SelfSend, ReturnShape, Assign, Unrecognized
	return 2
}

// runOrder sorts shapes by phase, keeping source order within a phase.
// A `super rideDetails` written after the output statements still prints
// first, and `x := v` returns before any later output.
func runOrder(body []compiler.Shape) []compiler.Shape {
	sorted := make([]compiler.Shape, len(body))
	copy(sorted, body)
	sort.SliceStable(sorted, func(i, j int) bool {
		return phase(sorted[i]) < phase(sorted[j])
	})
	return sorted
}

// exec runs one shape. The boolean result reports that the method has
// returned the accompanying value.
func (in *Interpreter) exec(f *frame, s compiler.Shape) (Outcome, Value, bool, error) {
	switch s := s.(type) {
	case *compiler.Initialize:
		in.resetVars(f.self)
		return Executed, InstanceValue(f.self), true, nil

	case *compiler.ParamAssign:
		v, _ := f.lookup(s.Param)
		if err := f.store(s.Var, v); err != nil {
			return Invalid, NilValue(), true, err
		}
		return Executed, NilValue(), true, nil

	case *compiler.SelfSend:
		args, err := in.evalOperands(f, s.Args)
		if err != nil {
			return Invalid, NilValue(), false, err
		}
		v, err := in.sendSelf(f, s.Selector, args)
		if err != nil {
			return Invalid, NilValue(), false, err
		}
		if s.Target != "" {
			if err := f.store(s.Target, v); err != nil {
				return Invalid, NilValue(), false, err
			}
		}
		return Executed, NilValue(), false, nil

	case *compiler.ReturnShape:
		v, err := in.evalOperand(f, s.Value)
		if err != nil {
			return Invalid, NilValue(), true, err
		}
		return Executed, v, true, nil

	case *compiler.SuperSend:
		return in.execSuper(f, s)

	case *compiler.Display:
		return in.execDisplay(f, s)

	case *compiler.CollectionAdd:
		seq, err := in.collection(f, s.Collection)
		if err != nil {
			return Invalid, NilValue(), false, err
		}
		v, err := in.evalOperand(f, s.Arg)
		if err != nil {
			return Invalid, NilValue(), false, err
		}
		seq.Add(v)
		return Executed, NilValue(), false, nil

	case *compiler.CollectionIterate:
		return in.execIterate(f, s)

	case *compiler.Assign:
		v, err := in.evalOperand(f, s.Value)
		if err != nil {
			return Invalid, NilValue(), false, err
		}
		if err := f.store(s.Var, v); err != nil {
			return Invalid, NilValue(), false, err
		}
		return Executed, NilValue(), false, nil

	case *compiler.Unrecognized:
		log.Debugf("%s>>%s line %d: skipped (%s)", f.method.Owner.Name, f.method.Selector, s.SpanVal.Start.Line, s.Reason)
		return NotApplicable, NilValue(), false, nil
	}

	return NotApplicable, NilValue(), false, nil
}

// execSuper resolves the selector starting above the class that defines
// the running method, so an inherited method calling super does not find
// itself again.
func (in *Interpreter) execSuper(f *frame, s *compiler.SuperSend) (Outcome, Value, bool, error) {
	start := in.Classes.Superclass(f.method.Owner)
	m := in.Classes.FindMethod(start, s.Selector)
	if m == nil {
		return Invalid, NilValue(), false, contain(fmt.Errorf("%w: super %s", ErrMethodNotFound, s.Selector))
	}
	args, err := in.evalOperands(f, s.Args)
	if err != nil {
		return Invalid, NilValue(), false, err
	}
	if _, _, err := in.Evaluate(m, f.self, args); err != nil {
		return Invalid, NilValue(), false, err
	}
	return Executed, NilValue(), false, nil
}

func (in *Interpreter) execDisplay(f *frame, s *compiler.Display) (Outcome, Value, bool, error) {
	outcome := Executed
	for _, part := range s.Parts {
		switch part.Action {
		case compiler.DisplayNewline:
			in.Out.Newline()
		case compiler.DisplayTab:
			in.Out.Show("\t")
		case compiler.DisplaySpace:
			in.Out.Show(" ")
		case compiler.DisplayShow:
			for _, seg := range part.Segments {
				text, err := in.renderSegment(f, seg)
				if err != nil {
					var ce *containedError
					if !errors.As(err, &ce) {
						return Invalid, NilValue(), false, err
					}
					in.diagnose(f, s.SpanVal.Start, ce.err)
					outcome = Invalid
					continue
				}
				in.Out.Show(text)
			}
		}
	}
	return outcome, NilValue(), false, nil
}

// renderSegment renders one comma-joined display segment. A bare `self`
// shows the receiver's accessor value.
func (in *Interpreter) renderSegment(f *frame, seg compiler.Operand) (string, error) {
	if _, ok := seg.(*compiler.SelfRef); ok {
		v, err := in.sendSelf(f, in.Conventions.AccessorSelector, nil)
		if err != nil {
			return "", err
		}
		return v.String(), nil
	}
	v, err := in.evalOperand(f, seg)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (in *Interpreter) execIterate(f *frame, s *compiler.CollectionIterate) (Outcome, Value, bool, error) {
	seq, err := in.collection(f, s.Collection)
	if err != nil {
		return Invalid, NilValue(), false, err
	}
	selectors := s.Selectors
	if len(selectors) == 0 {
		selectors = []string{in.Conventions.DisplaySelector}
	}
	for _, elem := range seq.Elements() {
		for _, sel := range selectors {
			if _, err := in.SendValue(elem, sel, nil); err != nil {
				return Invalid, NilValue(), false, err
			}
		}
	}
	return Executed, NilValue(), false, nil
}

// collection finds the sequence a collection shape works on: the named
// variable when it holds one, else the first conventional collection
// variable the receiver has.
func (in *Interpreter) collection(f *frame, name string) (*Sequence, error) {
	if v, ok := f.lookup(name); ok && v.Type == TypeSequence {
		return v.SeqVal, nil
	}
	for _, c := range in.Conventions.Collections {
		if v, ok := f.self.GetVar(c); ok && v.Type == TypeSequence {
			return v.SeqVal, nil
		}
	}
	return nil, contain(fmt.Errorf("%w: %s", ErrNotCollection, name))
}

// sendSelf sends to the receiver of f. A selector the class does not
// define falls back to the value primitives; failing that the send is
// contained to the statement. Sends of the derived-value selector cache
// their result in the derived slot.
func (in *Interpreter) sendSelf(f *frame, selector string, args []Value) (Value, error) {
	if in.Classes.FindMethod(f.self.Class, selector) == nil {
		v, err := in.SendValue(InstanceValue(f.self), selector, args)
		if err != nil {
			return NilValue(), contain(err)
		}
		return v, nil
	}

	v, err := in.Send(f.self, selector, args)
	if err != nil {
		return NilValue(), err
	}
	if selector == in.Conventions.DerivedSelector && in.Conventions.DerivedSlot != "" {
		f.self.SetVar(in.Conventions.DerivedSlot, v)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

func (in *Interpreter) evalOperands(f *frame, ops []compiler.Operand) ([]Value, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	vals := make([]Value, len(ops))
	for i, op := range ops {
		v, err := in.evalOperand(f, op)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (in *Interpreter) evalOperand(f *frame, op compiler.Operand) (Value, error) {
	switch op := op.(type) {
	case *compiler.Literal:
		return LiteralValue(op), nil

	case *compiler.Ref:
		v, ok := f.lookup(op.Name)
		if !ok {
			return NilValue(), contain(fmt.Errorf("%w: %s", ErrUndefinedVariable, op.Name))
		}
		return v, nil

	case *compiler.SelfRef:
		return InstanceValue(f.self), nil

	case *compiler.SelfCall:
		args, err := in.evalOperands(f, op.Args)
		if err != nil {
			return NilValue(), err
		}
		return in.sendSelf(f, op.Selector, args)

	case *compiler.Query:
		v, err := in.evalOperand(f, op.Target)
		if err != nil {
			return NilValue(), err
		}
		if op.Selector == "size" {
			switch v.Type {
			case TypeSequence:
				return IntValue(int64(v.SeqVal.Size())), nil
			case TypeString:
				return IntValue(int64(len(v.StringVal))), nil
			}
			return v, nil
		}
		return StringValue(v.String()), nil

	case *compiler.Arith:
		left, err := in.evalOperand(f, op.Left)
		if err != nil {
			return NilValue(), err
		}
		right, err := in.evalOperand(f, op.Right)
		if err != nil {
			return NilValue(), err
		}
		v, err := Arithmetic(op.Op, left, right)
		if err != nil {
			return NilValue(), contain(err)
		}
		return v, nil

	case *compiler.Unsupported:
		return NilValue(), contain(fmt.Errorf("%w: %s", ErrUnsupportedExpression, op.Reason))
	}

	return NilValue(), contain(fmt.Errorf("%w: %T", ErrUnsupportedExpression, op))
}

// LiteralValue converts a lowered literal into a runtime value.
func LiteralValue(lit *compiler.Literal) Value {
	switch lit.Kind {
	case compiler.LitInt:
		return IntValue(lit.Int)
	case compiler.LitFloat:
		return FloatValue(lit.Float)
	case compiler.LitString:
		return StringValue(lit.Str)
	}
	return NilValue()
}
