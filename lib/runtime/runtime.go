package runtime

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/minitalk/compiler"
	"github.com/chazu/minitalk/transcript"
)

var log = commonlog.GetLogger("minitalk.runtime")

var (
	// ErrMethodNotFound is returned when a send resolves to no method
	// anywhere in the receiver's hierarchy.
	ErrMethodNotFound = errors.New("method not found")

	// ErrClassNotFound is returned when instantiation names an unregistered
	// class.
	ErrClassNotFound = errors.New("class not found")

	// ErrUndefinedVariable marks a reference to a variable that is neither
	// a parameter, a temporary nor an instance variable. It is only ever
	// reported as a Diagnostic.
	ErrUndefinedVariable = errors.New("undefined variable")

	// ErrRecursionLimit is returned when sends nest deeper than MaxDepth.
	ErrRecursionLimit = errors.New("recursion limit exceeded")
)

// MaxDepth bounds nested method invocations.
const MaxDepth = 512

// primitive class names answered by New without a class table entry
var primitiveClasses = map[string]bool{
	"OrderedCollection": true,
	"Array":             true,
}

// Interpreter owns a class table and runs methods against it. It is not
// safe for concurrent use.
type Interpreter struct {
	Classes     *ClassTable
	Conventions Conventions
	Out         transcript.Sink

	diagnostics []Diagnostic
	depth       int
}

// NewInterpreter creates an interpreter with an empty class table. A nil
// sink discards output.
func NewInterpreter(conv Conventions, out transcript.Sink) *Interpreter {
	if out == nil {
		out = transcript.Discard
	}
	return &Interpreter{
		Classes:     NewClassTable(),
		Conventions: conv,
		Out:         out,
	}
}

// Define lowers a parsed class declaration and registers it.
func (in *Interpreter) Define(def *compiler.ClassDef) *Class {
	c := ClassFromDef(def, in.Conventions.Initializer)
	in.Classes.Register(c)
	log.Debugf("registered class %s (superclass %s, %d methods)", c.Name, c.Superclass, len(c.Methods))
	return c
}

// Diagnostics returns the non-fatal evaluator failures recorded so far.
func (in *Interpreter) Diagnostics() []Diagnostic {
	return in.diagnostics
}

// ---------------------------------------------------------------------------
// Instantiation
// ---------------------------------------------------------------------------

// Instantiate allocates an instance of the named class, fills every
// inherited instance variable with its conventional default, then runs the
// initializer once if one resolves.
func (in *Interpreter) Instantiate(name string) (*Instance, error) {
	c, ok := in.Classes.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}

	inst := newInstance(c, in.Classes.AllInstanceVars(c), in.Conventions)
	if m := in.Classes.FindMethod(c, in.Conventions.Initializer); m != nil {
		if _, _, err := in.Evaluate(m, inst, nil); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// New answers `name new`: a sequence for the primitive collection classes,
// an instance otherwise.
func (in *Interpreter) New(name string) (Value, error) {
	if _, ok := in.Classes.Lookup(name); !ok && primitiveClasses[name] {
		return SequenceValue(NewSequence()), nil
	}
	inst, err := in.Instantiate(name)
	if err != nil {
		return NilValue(), err
	}
	return InstanceValue(inst), nil
}

// resetVars refills every instance variable with a fresh default.
func (in *Interpreter) resetVars(inst *Instance) {
	for _, name := range in.Classes.AllInstanceVars(inst.Class) {
		inst.Vars[name] = in.Conventions.DefaultFor(name)
	}
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// Send resolves selector through the receiver's hierarchy and runs the
// method.
func (in *Interpreter) Send(recv *Instance, selector string, args []Value) (Value, error) {
	m := in.Classes.FindMethod(recv.Class, selector)
	if m == nil {
		return NilValue(), fmt.Errorf("%w: %s>>%s", ErrMethodNotFound, recv.Class.Name, selector)
	}
	v, _, err := in.Evaluate(m, recv, args)
	return v, err
}

// SendValue sends to any value. Instances dispatch through the class
// table; the other kinds answer a few primitives (`size`, `add:`,
// `printString`, `new`).
func (in *Interpreter) SendValue(recv Value, selector string, args []Value) (Value, error) {
	if recv.Type == TypeInstance && recv.InstanceVal != nil {
		if in.Classes.FindMethod(recv.InstanceVal.Class, selector) != nil {
			return in.Send(recv.InstanceVal, selector, args)
		}
	}

	switch selector {
	case "printString", "displayString":
		return StringValue(recv.String()), nil
	case "size":
		if recv.Type == TypeSequence {
			return IntValue(int64(recv.SeqVal.Size())), nil
		}
		if recv.Type == TypeString {
			return IntValue(int64(len(recv.StringVal))), nil
		}
	case "add:":
		if recv.Type == TypeSequence && len(args) == 1 {
			recv.SeqVal.Add(args[0])
			return args[0], nil
		}
	case "new":
		if recv.Type == TypeClass {
			return in.New(recv.ClassVal.Name)
		}
	}

	return NilValue(), fmt.Errorf("%w: %s>>%s", ErrMethodNotFound, recv.ClassName(), selector)
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// Diagnostic records an evaluator failure that was contained to a single
// statement.
type Diagnostic struct {
	Class    string
	Selector string
	Pos      compiler.Position
	Err      error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s>>%s line %d: %v", d.Class, d.Selector, d.Pos.Line, d.Err)
}

func (in *Interpreter) diagnose(f *frame, pos compiler.Position, err error) {
	d := Diagnostic{
		Class:    f.method.Owner.Name,
		Selector: f.method.Selector,
		Pos:      pos,
		Err:      err,
	}
	in.diagnostics = append(in.diagnostics, d)
	log.Warningf("%s", d)
}
