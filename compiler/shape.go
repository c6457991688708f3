package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Shapes: method-body statements lowered into a closed set of variants
// ---------------------------------------------------------------------------

// Shape is a method-body statement classified into one of the forms the
// evaluator knows how to run. Method bodies are lowered once, when a class
// is registered.
type Shape interface {
	Span() Span
	shape() // marker method
}

// Initialize marks the reserved initializer. Its body is not interpreted:
// the evaluator resets every instance variable to its conventional default.
type Initialize struct {
	SpanVal Span
}

// ParamAssign binds an instance variable to the method's first argument
// (`name := aName`).
type ParamAssign struct {
	SpanVal Span
	Var     string
	Param   string
}

// SelfSend sends a message to the receiver (`self calculateFare`). When
// Target is set the result is stored into that variable
// (`fare := self calculateFare`).
type SelfSend struct {
	SpanVal  Span
	Target   string
	Selector string
	Args     []Operand
}

// ReturnShape ends the method with the value of an operand (`^distance * 2`).
type ReturnShape struct {
	SpanVal Span
	Value   Operand
}

// SuperSend sends a message starting lookup above the method's class
// (`super rideDetails`). The result is discarded.
type SuperSend struct {
	SpanVal  Span
	Selector string
	Args     []Operand
}

// Display writes to the output sink (`Transcript show: 'a', b; cr`).
type Display struct {
	SpanVal Span
	Parts   []DisplayPart
}

// CollectionAdd appends to a sequence-valued instance variable
// (`assignedRides add: aRide`).
type CollectionAdd struct {
	SpanVal    Span
	Collection string
	Arg        Operand
}

// CollectionIterate sends each of Selectors to every element of a
// sequence-valued instance variable (`assignedRides do: [:r | r rideDetails]`).
// An empty Selectors list means the conventional display selector.
type CollectionIterate struct {
	SpanVal    Span
	Collection string
	Item       string
	Selectors  []string
}

// Assign stores an operand into an instance variable (`count := 0`).
type Assign struct {
	SpanVal Span
	Var     string
	Value   Operand
}

// Unrecognized is a statement outside the supported forms. It has no effect.
type Unrecognized struct {
	SpanVal Span
	Reason  string
}

func (s *Initialize) Span() Span        { return s.SpanVal }
func (s *ParamAssign) Span() Span       { return s.SpanVal }
func (s *SelfSend) Span() Span          { return s.SpanVal }
func (s *ReturnShape) Span() Span       { return s.SpanVal }
func (s *SuperSend) Span() Span         { return s.SpanVal }
func (s *Display) Span() Span           { return s.SpanVal }
func (s *CollectionAdd) Span() Span     { return s.SpanVal }
func (s *CollectionIterate) Span() Span { return s.SpanVal }
func (s *Assign) Span() Span            { return s.SpanVal }
func (s *Unrecognized) Span() Span      { return s.SpanVal }

func (s *Initialize) shape()        {}
func (s *ParamAssign) shape()       {}
func (s *SelfSend) shape()          {}
func (s *ReturnShape) shape()       {}
func (s *SuperSend) shape()         {}
func (s *Display) shape()           {}
func (s *CollectionAdd) shape()     {}
func (s *CollectionIterate) shape() {}
func (s *Assign) shape()            {}
func (s *Unrecognized) shape()      {}

// DisplayAction is one output operation inside a Display shape.
type DisplayAction int

const (
	DisplayShow DisplayAction = iota
	DisplayNewline
	DisplayTab
	DisplaySpace
)

// DisplayPart is one message to the output sink. Show parts carry the
// comma-joined segments of their argument.
type DisplayPart struct {
	Action   DisplayAction
	Segments []Operand
}

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

// Operand is the restricted expression language available inside shapes.
type Operand interface {
	operand() // marker method
}

// LiteralKind tags the value held by a Literal.
type LiteralKind int

const (
	LitNil LiteralKind = iota
	LitInt
	LitFloat
	LitString
)

// Literal is a constant.
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
}

// Ref names an instance variable or a method parameter.
type Ref struct {
	Name string
}

// SelfRef is the receiver itself.
type SelfRef struct{}

// SelfCall is a message sent to the receiver inside an operand.
type SelfCall struct {
	Selector string
	Args     []Operand
}

// Query is a `size` or `printString` query on another operand.
type Query struct {
	Target   Operand
	Selector string
}

// Arith is a binary arithmetic operation (+ - * /).
type Arith struct {
	Op    string
	Left  Operand
	Right Operand
}

// Unsupported stands in for an expression outside the operand language.
type Unsupported struct {
	Reason string
}

func (*Literal) operand()     {}
func (*Ref) operand()         {}
func (*SelfRef) operand()     {}
func (*SelfCall) operand()    {}
func (*Query) operand()       {}
func (*Arith) operand()       {}
func (*Unsupported) operand() {}

// TranscriptName is the global naming the output sink.
const TranscriptName = "Transcript"

// ---------------------------------------------------------------------------
// Lowering
// ---------------------------------------------------------------------------

// LowerMethod classifies every statement of m. The method named by
// initializer lowers to a single Initialize shape.
func LowerMethod(m *MethodDef, initializer string) []Shape {
	if m.Selector == initializer {
		return []Shape{&Initialize{SpanVal: m.SpanVal}}
	}

	shapes := make([]Shape, 0, len(m.Statements))
	for _, stmt := range m.Statements {
		shapes = append(shapes, lowerStatement(stmt, m.Parameters))
	}
	return shapes
}

// lowerStatement tries each shape in priority order.
func lowerStatement(stmt Stmt, params []string) Shape {
	span := stmt.Span()

	if ret, ok := stmt.(*Return); ok {
		value := LowerOperand(ret.Value)
		if u, bad := value.(*Unsupported); bad {
			return &Unrecognized{SpanVal: span, Reason: "return: " + u.Reason}
		}
		return &ReturnShape{SpanVal: span, Value: value}
	}

	es, ok := stmt.(*ExprStmt)
	if !ok {
		return &Unrecognized{SpanVal: span, Reason: fmt.Sprintf("unsupported statement %T", stmt)}
	}

	switch e := es.Expr.(type) {
	case *Assignment:
		if v, ok := e.Value.(*Variable); ok && len(params) > 0 && v.Name == params[0] {
			return &ParamAssign{SpanVal: span, Var: e.Variable, Param: v.Name}
		}
		if sel, args, ok := selfMessage(e.Value); ok {
			return &SelfSend{SpanVal: span, Target: e.Variable, Selector: sel, Args: args}
		}
		value := LowerOperand(e.Value)
		if u, bad := value.(*Unsupported); bad {
			return &Unrecognized{SpanVal: span, Reason: "assignment: " + u.Reason}
		}
		return &Assign{SpanVal: span, Var: e.Variable, Value: value}

	case *UnaryMessage, *KeywordMessage:
		if sel, args, ok := selfMessage(e); ok {
			return &SelfSend{SpanVal: span, Selector: sel, Args: args}
		}
		if sel, args, ok := superMessage(e); ok {
			return &SuperSend{SpanVal: span, Selector: sel, Args: args}
		}
		if d := lowerDisplay(e, span); d != nil {
			return d
		}
		if km, ok := e.(*KeywordMessage); ok {
			if s := lowerCollectionSend(km, span); s != nil {
				return s
			}
		}

	case *Cascade:
		if d := lowerDisplay(e, span); d != nil {
			return d
		}
	}

	return &Unrecognized{SpanVal: span, Reason: fmt.Sprintf("unsupported expression %T", es.Expr)}
}

// selfMessage matches `self sel` and `self kw: arg ...`.
func selfMessage(e Expr) (string, []Operand, bool) {
	switch m := e.(type) {
	case *UnaryMessage:
		if _, ok := m.Receiver.(*Self); ok {
			return m.Selector, nil, true
		}
	case *KeywordMessage:
		if _, ok := m.Receiver.(*Self); ok {
			return m.Selector, lowerOperands(m.Arguments), true
		}
	}
	return "", nil, false
}

// superMessage matches `super sel` and `super kw: arg ...`.
func superMessage(e Expr) (string, []Operand, bool) {
	switch m := e.(type) {
	case *UnaryMessage:
		if _, ok := m.Receiver.(*Super); ok {
			return m.Selector, nil, true
		}
	case *KeywordMessage:
		if _, ok := m.Receiver.(*Super); ok {
			return m.Selector, lowerOperands(m.Arguments), true
		}
	}
	return "", nil, false
}

// lowerDisplay matches messages and cascades sent to Transcript.
func lowerDisplay(e Expr, span Span) *Display {
	var receiver Expr
	var msgs []CascadedMessage

	switch m := e.(type) {
	case *UnaryMessage:
		receiver = m.Receiver
		msgs = []CascadedMessage{{Type: UnaryMsg, Selector: m.Selector}}
	case *KeywordMessage:
		receiver = m.Receiver
		msgs = []CascadedMessage{{Type: KeywordMsg, Selector: m.Selector, Keywords: m.Keywords, Arguments: m.Arguments}}
	case *Cascade:
		receiver = m.Receiver
		msgs = m.Messages
	default:
		return nil
	}

	if v, ok := receiver.(*Variable); !ok || v.Name != TranscriptName {
		return nil
	}

	d := &Display{SpanVal: span}
	for _, msg := range msgs {
		action, ok := TranscriptAction(msg.Selector)
		if !ok {
			continue
		}
		part := DisplayPart{Action: action}
		if action == DisplayShow && len(msg.Arguments) > 0 {
			part.Segments = lowerOperands(SplitSegments(msg.Arguments[0]))
		}
		d.Parts = append(d.Parts, part)
	}
	return d
}

// TranscriptAction maps a selector sent to Transcript onto a display
// action. ok is false for selectors the sink does not support.
func TranscriptAction(selector string) (DisplayAction, bool) {
	switch selector {
	case "show:", "display:", "nextPutAll:":
		return DisplayShow, true
	case "cr", "nl":
		return DisplayNewline, true
	case "tab":
		return DisplayTab, true
	case "space":
		return DisplaySpace, true
	}
	return 0, false
}

// SplitSegments flattens a left-associative `a , b , c` chain.
func SplitSegments(e Expr) []Expr {
	if b, ok := Unparen(e).(*BinaryMessage); ok && b.Selector == "," {
		return append(SplitSegments(b.Receiver), b.Argument)
	}
	return []Expr{e}
}

// lowerCollectionSend matches `coll add: x` and `coll do: [:e | ...]`.
func lowerCollectionSend(m *KeywordMessage, span Span) Shape {
	coll, ok := m.Receiver.(*Variable)
	if !ok {
		return nil
	}

	switch m.Selector {
	case "add:":
		return &CollectionAdd{SpanVal: span, Collection: coll.Name, Arg: LowerOperand(m.Arguments[0])}

	case "do:":
		it := &CollectionIterate{SpanVal: span, Collection: coll.Name}
		block, ok := m.Arguments[0].(*Block)
		if !ok || len(block.Parameters) != 1 {
			return it
		}
		it.Item = block.Parameters[0]
		for _, s := range block.Statements {
			es, ok := s.(*ExprStmt)
			if !ok {
				continue
			}
			um, ok := es.Expr.(*UnaryMessage)
			if !ok {
				continue
			}
			if v, ok := um.Receiver.(*Variable); ok && v.Name == it.Item {
				it.Selectors = append(it.Selectors, um.Selector)
			}
		}
		return it
	}

	return nil
}

func lowerOperands(exprs []Expr) []Operand {
	ops := make([]Operand, len(exprs))
	for i, e := range exprs {
		ops[i] = LowerOperand(e)
	}
	return ops
}

// LowerOperand maps an expression onto the operand language. Expressions
// outside it become *Unsupported.
func LowerOperand(e Expr) Operand {
	switch n := Unparen(e).(type) {
	case *IntLiteral:
		return &Literal{Kind: LitInt, Int: n.Value}
	case *FloatLiteral:
		return &Literal{Kind: LitFloat, Float: n.Value}
	case *StringLiteral:
		return &Literal{Kind: LitString, Str: n.Value}
	case *SymbolLiteral:
		return &Literal{Kind: LitString, Str: n.Value}
	case *CharLiteral:
		return &Literal{Kind: LitString, Str: string(n.Value)}
	case *NilLiteral:
		return &Literal{Kind: LitNil}
	case *Variable:
		return &Ref{Name: n.Name}
	case *Self:
		return &SelfRef{}
	case *UnaryMessage:
		if _, ok := n.Receiver.(*Self); ok {
			return &SelfCall{Selector: n.Selector}
		}
		switch n.Selector {
		case "printString", "displayString", "size":
			return &Query{Target: LowerOperand(n.Receiver), Selector: n.Selector}
		}
		return &Unsupported{Reason: fmt.Sprintf("unary send %s to a non-self receiver", n.Selector)}
	case *KeywordMessage:
		if _, ok := n.Receiver.(*Self); ok {
			return &SelfCall{Selector: n.Selector, Args: lowerOperands(n.Arguments)}
		}
		return &Unsupported{Reason: fmt.Sprintf("keyword send %s to a non-self receiver", n.Selector)}
	case *BinaryMessage:
		switch n.Selector {
		case "+", "-", "*", "/":
			return &Arith{Op: n.Selector, Left: LowerOperand(n.Receiver), Right: LowerOperand(n.Argument)}
		}
		return &Unsupported{Reason: fmt.Sprintf("binary operator %s", n.Selector)}
	}
	return &Unsupported{Reason: fmt.Sprintf("expression %T", e)}
}
