package compiler

import (
	"reflect"
	"testing"
)

// lowerAll parses a single class and lowers each of its methods.
func lowerAll(t *testing.T, body string) map[string][]Shape {
	t.Helper()
	defs, errs, err := ParseClasses("Object subclass: Sampler [ " + body + " ]")
	if err != nil {
		t.Fatalf("ParseClasses: %v", err)
	}
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	out := make(map[string][]Shape)
	for _, m := range defs[0].Methods {
		out[m.Selector] = LowerMethod(m, "initialize")
	}
	return out
}

func TestLowerMethodShapes(t *testing.T) {
	shapes := lowerAll(t, `
    initialize [ fare := 0. Transcript show: 'ignored' ]
    rideID: anID [ rideID := anID ]
    from: a to: b [ dropoff := b ]
    fare [ ^self calculateFare ]
    update [ fare := self calculateFare ]
    refresh [ self calculateFare ]
    rideDetails [ super rideDetails ]
    addRide: aRide [ assignedRides add: aRide ]
    showAllRides [ assignedRides do: [:r | r rideDetails. r fare] ]
    reset [ count := 0 ]
    odd [ rides inject: 0 into: [:a :b | a] ]
`)

	tests := []struct {
		selector string
		want     Shape
	}{
		{"initialize", &Initialize{}},
		{"rideID:", &ParamAssign{Var: "rideID", Param: "anID"}},
		{"from:to:", &Assign{Var: "dropoff", Value: &Ref{Name: "b"}}},
		{"fare", &ReturnShape{Value: &SelfCall{Selector: "calculateFare"}}},
		{"update", &SelfSend{Target: "fare", Selector: "calculateFare"}},
		{"refresh", &SelfSend{Selector: "calculateFare"}},
		{"rideDetails", &SuperSend{Selector: "rideDetails"}},
		{"addRide:", &CollectionAdd{Collection: "assignedRides", Arg: &Ref{Name: "aRide"}}},
		{"showAllRides", &CollectionIterate{Collection: "assignedRides", Item: "r", Selectors: []string{"rideDetails", "fare"}}},
		{"reset", &Assign{Var: "count", Value: &Literal{Kind: LitInt, Int: 0}}},
	}

	for _, tc := range tests {
		got := shapes[tc.selector]
		if len(got) != 1 {
			t.Errorf("%s lowered to %d shapes, want 1", tc.selector, len(got))
			continue
		}
		if !reflect.DeepEqual(withoutSpan(got[0]), tc.want) {
			t.Errorf("%s = %#v, want %#v", tc.selector, got[0], tc.want)
		}
	}

	if u, ok := shapes["odd"][0].(*Unrecognized); !ok || u.Reason == "" {
		t.Errorf("odd = %#v, want Unrecognized with a reason", shapes["odd"][0])
	}
}

// withoutSpan zeroes the span so shapes compare on content.
func withoutSpan(s Shape) Shape {
	switch v := s.(type) {
	case *Initialize:
		c := *v
		c.SpanVal = Span{}
		return &c
	case *ParamAssign:
		c := *v
		c.SpanVal = Span{}
		return &c
	case *SelfSend:
		c := *v
		c.SpanVal = Span{}
		return &c
	case *ReturnShape:
		c := *v
		c.SpanVal = Span{}
		return &c
	case *SuperSend:
		c := *v
		c.SpanVal = Span{}
		return &c
	case *CollectionAdd:
		c := *v
		c.SpanVal = Span{}
		return &c
	case *CollectionIterate:
		c := *v
		c.SpanVal = Span{}
		return &c
	case *Assign:
		c := *v
		c.SpanVal = Span{}
		return &c
	}
	return s
}

func TestLowerDisplay(t *testing.T) {
	shapes := lowerAll(t, `
    show [ Transcript show: 'Ride ID: ', rideID printString; cr; tab; show: self ]
    blank [ Transcript cr ]
    unknown [ Transcript flush ]
`)

	d, ok := shapes["show"][0].(*Display)
	if !ok {
		t.Fatalf("show = %T, want *Display", shapes["show"][0])
	}
	want := []DisplayPart{
		{Action: DisplayShow, Segments: []Operand{
			&Literal{Kind: LitString, Str: "Ride ID: "},
			&Query{Target: &Ref{Name: "rideID"}, Selector: "printString"},
		}},
		{Action: DisplayNewline},
		{Action: DisplayTab},
		{Action: DisplayShow, Segments: []Operand{&SelfRef{}}},
	}
	if !reflect.DeepEqual(d.Parts, want) {
		t.Errorf("parts = %#v, want %#v", d.Parts, want)
	}

	blank := shapes["blank"][0].(*Display)
	if len(blank.Parts) != 1 || blank.Parts[0].Action != DisplayNewline {
		t.Errorf("blank parts = %#v", blank.Parts)
	}

	unknown := shapes["unknown"][0].(*Display)
	if len(unknown.Parts) != 0 {
		t.Errorf("unsupported transcript selector produced %#v", unknown.Parts)
	}
}

func TestLowerReturnArithmetic(t *testing.T) {
	shapes := lowerAll(t, `calculateFare [ ^distance * 3.5 ]`)

	ret := shapes["calculateFare"][0].(*ReturnShape)
	want := &Arith{
		Op:    "*",
		Left:  &Ref{Name: "distance"},
		Right: &Literal{Kind: LitFloat, Float: 3.5},
	}
	if !reflect.DeepEqual(ret.Value, want) {
		t.Errorf("return value = %#v, want %#v", ret.Value, want)
	}
}

func TestLowerStatementsInOrder(t *testing.T) {
	shapes := lowerAll(t, `
    getDriverInfo [
        Transcript show: 'Driver: ', name; cr.
        count := assignedRides size.
        ^count
    ]
`)

	got := shapes["getDriverInfo"]
	if len(got) != 3 {
		t.Fatalf("shapes = %d, want 3", len(got))
	}
	if _, ok := got[0].(*Display); !ok {
		t.Errorf("shape[0] = %T, want *Display", got[0])
	}
	a, ok := got[1].(*Assign)
	if !ok {
		t.Fatalf("shape[1] = %T, want *Assign", got[1])
	}
	if p, ok := a.Value.(*Query); !ok || p.Selector != "size" {
		t.Errorf("assign value = %#v, want size query", a.Value)
	}
	if _, ok := got[2].(*ReturnShape); !ok {
		t.Errorf("shape[2] = %T, want *ReturnShape", got[2])
	}
}

func TestTranscriptAction(t *testing.T) {
	tests := []struct {
		selector string
		want     DisplayAction
		ok       bool
	}{
		{"show:", DisplayShow, true},
		{"display:", DisplayShow, true},
		{"nextPutAll:", DisplayShow, true},
		{"cr", DisplayNewline, true},
		{"nl", DisplayNewline, true},
		{"tab", DisplayTab, true},
		{"space", DisplaySpace, true},
		{"flush", 0, false},
	}

	for _, tc := range tests {
		got, ok := TranscriptAction(tc.selector)
		if got != tc.want || ok != tc.ok {
			t.Errorf("TranscriptAction(%q) = %v, %v; want %v, %v", tc.selector, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSplitSegments(t *testing.T) {
	expr := parseExpr(t, "('a' , b) , c printString , 'd'")

	segs := SplitSegments(expr)
	if len(segs) != 4 {
		t.Fatalf("segments = %d, want 4", len(segs))
	}
	if u, ok := segs[2].(*UnaryMessage); !ok || u.Selector != "printString" {
		t.Errorf("segment[2] = %#v", segs[2])
	}
}

func TestLowerOperand(t *testing.T) {
	tests := []struct {
		src  string
		want Operand
	}{
		{"nil", &Literal{Kind: LitNil}},
		{"#fare", &Literal{Kind: LitString, Str: "fare"}},
		{"$x", &Literal{Kind: LitString, Str: "x"}},
		{"self", &SelfRef{}},
		{"(self fare)", &SelfCall{Selector: "fare"}},
		{"self from: 1 to: x", &SelfCall{Selector: "from:to:", Args: []Operand{
			&Literal{Kind: LitInt, Int: 1},
			&Ref{Name: "x"},
		}}},
		{"rides size", &Query{Target: &Ref{Name: "rides"}, Selector: "size"}},
		{"a - b / 2", &Arith{
			Op:    "/",
			Left:  &Arith{Op: "-", Left: &Ref{Name: "a"}, Right: &Ref{Name: "b"}},
			Right: &Literal{Kind: LitInt, Int: 2},
		}},
	}

	for _, tc := range tests {
		got := LowerOperand(parseExpr(t, tc.src))
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("LowerOperand(%q) = %#v, want %#v", tc.src, got, tc.want)
		}
	}

	for _, src := range []string{"ride fare", "a < b", "ride at: 1", "[:x | x]"} {
		if _, ok := LowerOperand(parseExpr(t, src)).(*Unsupported); !ok {
			t.Errorf("LowerOperand(%q) should be unsupported", src)
		}
	}
}
