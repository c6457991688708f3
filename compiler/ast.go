package compiler

// Position is a location in source text. Offset is in bytes; Line and Column
// start at 1.
type Position struct {
	Offset int
	Line   int
	Column int
}

type Span struct {
	Start Position
	End   Position
}

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// Node is anything the parser produces.
type Node interface {
	Span() Span
}

// Expr is a node that yields a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is one period-separated statement of a method, block or script.
type Stmt interface {
	Node
	stmtNode()
}

// Literals. Integer and float literals may carry a leading minus.

type IntLiteral struct {
	SpanVal Span
	Value   int64
}

type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

type StringLiteral struct {
	SpanVal Span
	Value   string
}

// SymbolLiteral is #name, #kw:kw:, #+ or #'quoted text'.
type SymbolLiteral struct {
	SpanVal Span
	Value   string
}

// CharLiteral is $c.
type CharLiteral struct {
	SpanVal Span
	Value   rune
}

type NilLiteral struct {
	SpanVal Span
}

type Self struct {
	SpanVal Span
}

type Super struct {
	SpanVal Span
}

// Variable names an instance variable, parameter, temporary or global such
// as a class name or Transcript.
type Variable struct {
	SpanVal Span
	Name    string
}

type Assignment struct {
	SpanVal  Span
	Variable string
	Value    Expr
}

type UnaryMessage struct {
	SpanVal  Span
	Receiver Expr
	Selector string
}

type BinaryMessage struct {
	SpanVal  Span
	Receiver Expr
	Selector string
	Argument Expr
}

// KeywordMessage is `recv from: a to: b`. Selector is the concatenation of
// Keywords ("from:to:").
type KeywordMessage struct {
	SpanVal   Span
	Receiver  Expr
	Selector  string
	Keywords  []string
	Arguments []Expr
}

// Cascade sends every message in Messages to the same Receiver. The first
// message is the one written before the first semicolon.
type Cascade struct {
	SpanVal  Span
	Receiver Expr
	Messages []CascadedMessage
}

type CascadedMessage struct {
	Type      MessageType
	Selector  string
	Keywords  []string
	Arguments []Expr
}

type MessageType int

const (
	UnaryMsg MessageType = iota
	BinaryMsg
	KeywordMsg
)

// Block is [:a :b | | t | stmts]. Blocks are never closed over; the
// evaluator only inspects their parameters and statements.
type Block struct {
	SpanVal    Span
	Parameters []string
	Temps      []string
	Statements []Stmt
}

// Paren keeps explicit grouping visible to the script executor, which
// accepts `(local sel)` as an output segment but not `local sel`.
type Paren struct {
	SpanVal Span
	Expr    Expr
}

// Unparen strips any number of enclosing parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

func (n *IntLiteral) Span() Span     { return n.SpanVal }
func (n *FloatLiteral) Span() Span   { return n.SpanVal }
func (n *StringLiteral) Span() Span  { return n.SpanVal }
func (n *SymbolLiteral) Span() Span  { return n.SpanVal }
func (n *CharLiteral) Span() Span    { return n.SpanVal }
func (n *NilLiteral) Span() Span     { return n.SpanVal }
func (n *Self) Span() Span           { return n.SpanVal }
func (n *Super) Span() Span          { return n.SpanVal }
func (n *Variable) Span() Span       { return n.SpanVal }
func (n *Assignment) Span() Span     { return n.SpanVal }
func (n *UnaryMessage) Span() Span   { return n.SpanVal }
func (n *BinaryMessage) Span() Span  { return n.SpanVal }
func (n *KeywordMessage) Span() Span { return n.SpanVal }
func (n *Cascade) Span() Span        { return n.SpanVal }
func (n *Block) Span() Span          { return n.SpanVal }
func (n *Paren) Span() Span          { return n.SpanVal }

func (*IntLiteral) exprNode()     {}
func (*FloatLiteral) exprNode()   {}
func (*StringLiteral) exprNode()  {}
func (*SymbolLiteral) exprNode()  {}
func (*CharLiteral) exprNode()    {}
func (*NilLiteral) exprNode()     {}
func (*Self) exprNode()           {}
func (*Super) exprNode()          {}
func (*Variable) exprNode()       {}
func (*Assignment) exprNode()     {}
func (*UnaryMessage) exprNode()   {}
func (*BinaryMessage) exprNode()  {}
func (*KeywordMessage) exprNode() {}
func (*Cascade) exprNode()        {}
func (*Block) exprNode()          {}
func (*Paren) exprNode()          {}

type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

// Return is ^expr.
type Return struct {
	SpanVal Span
	Value   Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *Return) Span() Span   { return n.SpanVal }
func (*ExprStmt) stmtNode()    {}
func (*Return) stmtNode()      {}

// MethodDef is one instance-side `pattern [ body ]` block.
type MethodDef struct {
	SpanVal    Span
	Selector   string   // "rideID", "from:to:", "+"
	Parameters []string // one per keyword part, or the binary argument
	Temps      []string
	Statements []Stmt
	Source     string // body text between the brackets, trimmed
}

// ClassDef is `Super subclass: Name [ ... ]`.
type ClassDef struct {
	SpanVal           Span
	Name              string
	Superclass        string
	InstanceVariables []string
	Methods           []*MethodDef

	// SkippedClassMethods counts `Name class >> sel [ ... ]` blocks that were
	// recognized but not compiled.
	SkippedClassMethods int
}

// Script is a top-level sequence of statements plus every `| temps |`
// declaration found between them.
type Script struct {
	SpanVal    Span
	Temps      []string
	Statements []*ScriptStmt
}

// ScriptStmt is one top-level statement. Stmt is nil when the source text did
// not parse; Source always holds the original text.
type ScriptStmt struct {
	SpanVal Span
	Stmt    Stmt
	Source  string
	Errors  []string
}

func (n *MethodDef) Span() Span  { return n.SpanVal }
func (n *ClassDef) Span() Span   { return n.SpanVal }
func (n *Script) Span() Span     { return n.SpanVal }
func (n *ScriptStmt) Span() Span { return n.SpanVal }
