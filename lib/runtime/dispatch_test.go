package runtime

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chazu/minitalk/compiler"
	"github.com/chazu/minitalk/transcript"
)

const fleetSource = `
Object subclass: Ride [
    | rideID pickupLocation dropoffLocation distance fare |

    initialize [ rideID := 0 ]

    rideID: anID [ rideID := anID ]
    pickupLocation: aLocation [ pickupLocation := aLocation ]
    dropoffLocation: aLocation [ dropoffLocation := aLocation ]
    distance: aDistance [ distance := aDistance ]
    distance [ ^distance ]

    calculateFare [ ^distance * 2 ]
    fare [ ^self calculateFare ]

    rideDetails [
        Transcript show: 'Ride ID: ', rideID printString; cr.
        Transcript show: 'Pickup: ', pickupLocation; cr.
        Transcript show: 'Dropoff: ', dropoffLocation; cr.
        Transcript show: 'Distance: ', distance printString, ' miles'; cr.
        Transcript show: 'Fare: $', self; cr.
        Transcript show: '---'; cr
    ]
]

Ride subclass: StandardRide [
    rideDetails [
        Transcript show: '=== STANDARD RIDE ==='; cr.
        super rideDetails
    ]
]

Ride subclass: PremiumRide [
    calculateFare [ ^distance * 3.5 ]

    rideDetails [
        Transcript show: '=== PREMIUM RIDE ==='; cr.
        super rideDetails
    ]
]

Object subclass: Driver [
    | driverID name rating assignedRides |

    initialize [ assignedRides := OrderedCollection new ]

    name: aName [ name := aName ]
    addRide: aRide [ assignedRides add: aRide ]
    totalRides [ ^assignedRides size ]
    showAllRides [ assignedRides do: [:r | r rideDetails] ]
    showFares [ assignedRides do: [:r | r fare] ]
]

Object subclass: Sampler [
    | a |

    mixed [
        a := 1.
        rides inject: 0 into: [:x :y | x].
        a := missing.
        b := 2
    ]
    early [ ^1. a := 2 ]
    describe [ ^self printString ]
    bogus [ ^self fly ]
    loop [ ^self loop ]
    divide [ a := 1 / 0. ^a ]
    tally [ ^self printString size ]
    broken [ Transcript show: 'x=', missing, '!'; cr ]
]

Sampler subclass: Orphan [
    setUp [ super initialize ]
]

Object subclass: Base [
    | x |
    greet [ Transcript show: 'base'; cr ]
]

Base subclass: Ordered [
    x: v [ x := v. Transcript show: 'after x:'; cr ]
    greet [
        Transcript show: 'derived'; cr.
        super greet
    ]
    answer [
        Transcript show: 'unseen'; cr.
        ^42
    ]
    stash: v [
        Transcript show: 'stash'; cr.
        x := v
    ]
    mark [
        Transcript show: 'mark'; cr.
        x := 5
    ]
]
`

func newFleet(t *testing.T, out transcript.Sink) *Interpreter {
	t.Helper()
	defs, errs, err := compiler.ParseClasses(fleetSource)
	if err != nil {
		t.Fatalf("ParseClasses: %v", err)
	}
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	in := NewInterpreter(DefaultConventions(), out)
	for _, def := range defs {
		in.Define(def)
	}
	return in
}

func mustInstantiate(t *testing.T, in *Interpreter, class string) *Instance {
	t.Helper()
	inst, err := in.Instantiate(class)
	if err != nil {
		t.Fatalf("Instantiate(%s): %v", class, err)
	}
	return inst
}

func mustSend(t *testing.T, in *Interpreter, recv *Instance, selector string, args ...Value) Value {
	t.Helper()
	v, err := in.Send(recv, selector, args)
	if err != nil {
		t.Fatalf("%s>>%s: %v", recv.Class.Name, selector, err)
	}
	return v
}

func newRide(t *testing.T, in *Interpreter, class string, id int64, pickup, dropoff string, distance int64) *Instance {
	t.Helper()
	r := mustInstantiate(t, in, class)
	mustSend(t, in, r, "rideID:", IntValue(id))
	mustSend(t, in, r, "pickupLocation:", StringValue(pickup))
	mustSend(t, in, r, "dropoffLocation:", StringValue(dropoff))
	mustSend(t, in, r, "distance:", IntValue(distance))
	return r
}

func TestInstantiateDefaults(t *testing.T) {
	in := newFleet(t, nil)
	ride := mustInstantiate(t, in, "PremiumRide")

	want := map[string]Value{
		"rideID":          IntValue(0),
		"pickupLocation":  StringValue(""),
		"dropoffLocation": StringValue(""),
		"distance":        IntValue(0),
		"fare":            IntValue(0),
	}
	if len(ride.Vars) != len(want) {
		t.Errorf("vars = %v", ride.Vars)
	}
	for name, w := range want {
		if got, _ := ride.GetVar(name); got != w {
			t.Errorf("%s = %#v, want %#v", name, got, w)
		}
	}

	driver := mustInstantiate(t, in, "Driver")
	if rides, _ := driver.GetVar("assignedRides"); rides.Type != TypeSequence || rides.SeqVal.Size() != 0 {
		t.Errorf("assignedRides = %#v, want empty sequence", rides)
	}
	if rating, _ := driver.GetVar("rating"); rating != FloatValue(5.0) {
		t.Errorf("rating = %#v, want 5.0", rating)
	}
}

func TestInstantiateClassNotFound(t *testing.T) {
	in := newFleet(t, nil)
	if _, err := in.Instantiate("Bicycle"); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("err = %v, want ErrClassNotFound", err)
	}
	if _, err := in.New("Bicycle"); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("New err = %v, want ErrClassNotFound", err)
	}
}

func TestNewPrimitiveCollections(t *testing.T) {
	in := newFleet(t, nil)
	for _, name := range []string{"OrderedCollection", "Array"} {
		v, err := in.New(name)
		if err != nil {
			t.Fatalf("New(%s): %v", name, err)
		}
		if v.Type != TypeSequence || v.SeqVal.Size() != 0 {
			t.Errorf("New(%s) = %#v, want empty sequence", name, v)
		}
	}

	v, err := in.New("Ride")
	if err != nil || v.Type != TypeInstance {
		t.Errorf("New(Ride) = %#v, %v", v, err)
	}
}

func TestReinitializeIsIdempotent(t *testing.T) {
	in := newFleet(t, nil)
	ride := newRide(t, in, "StandardRide", 7, "Mall", "Hotel", 4)

	mustSend(t, in, ride, "initialize")
	first := make(map[string]Value)
	for k, v := range ride.Vars {
		first[k] = v
	}
	mustSend(t, in, ride, "initialize")

	if !reflect.DeepEqual(first, ride.Vars) {
		t.Errorf("second initialize changed state: %v -> %v", first, ride.Vars)
	}
	if id, _ := ride.GetVar("rideID"); id != IntValue(0) {
		t.Errorf("rideID = %v, want 0 after initialize", id)
	}

	driver := mustInstantiate(t, in, "Driver")
	mustSend(t, in, driver, "addRide:", InstanceValue(ride))
	mustSend(t, in, driver, "initialize")
	if n := mustSend(t, in, driver, "totalRides"); n != IntValue(0) {
		t.Errorf("totalRides after initialize = %v, want 0", n)
	}
}

func TestInitializeWithoutMethod(t *testing.T) {
	in := NewInterpreter(DefaultConventions(), nil)
	in.Classes.Register(NewClass("Plain", RootClassName, []string{"distance"}))

	inst := mustInstantiate(t, in, "Plain")
	if d, _ := inst.GetVar("distance"); d != IntValue(0) {
		t.Errorf("distance = %v, want 0", d)
	}
	if _, err := in.Send(inst, "initialize", nil); !errors.Is(err, ErrMethodNotFound) {
		t.Errorf("err = %v, want ErrMethodNotFound", err)
	}
}

func TestPolymorphicFare(t *testing.T) {
	in := newFleet(t, nil)

	tests := []struct {
		class string
		want  Value
		text  string
	}{
		{"Ride", IntValue(20), "20"},
		{"StandardRide", IntValue(20), "20"},
		{"PremiumRide", FloatValue(35), "35.0"},
	}

	for _, tc := range tests {
		ride := newRide(t, in, tc.class, 1, "A", "B", 10)
		got := mustSend(t, in, ride, "fare")
		if got != tc.want {
			t.Errorf("%s fare = %#v, want %#v", tc.class, got, tc.want)
		}
		if got.String() != tc.text {
			t.Errorf("%s fare renders %q, want %q", tc.class, got.String(), tc.text)
		}
		if cached, _ := ride.GetVar("fare"); cached != tc.want {
			t.Errorf("%s fare slot = %#v, want %#v", tc.class, cached, tc.want)
		}
	}
}

func TestSuperSendDisplay(t *testing.T) {
	var out transcript.Buffer
	in := newFleet(t, &out)

	premium := newRide(t, in, "PremiumRide", 2, "Mall", "Hotel", 10)
	mustSend(t, in, premium, "rideDetails")

	want := []string{
		"Ride ID: 2",
		"Pickup: Mall",
		"Dropoff: Hotel",
		"Distance: 10 miles",
		"Fare: $35.0",
		"---",
		"=== PREMIUM RIDE ===",
	}
	if got := out.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("output:\n%q\nwant:\n%q", got, want)
	}
	if len(in.Diagnostics()) != 0 {
		t.Errorf("diagnostics: %v", in.Diagnostics())
	}
}

func TestCollectionAddAndIterate(t *testing.T) {
	var out transcript.Buffer
	in := newFleet(t, &out)

	driver := mustInstantiate(t, in, "Driver")
	r1 := newRide(t, in, "StandardRide", 1, "Downtown", "Airport", 5)
	r2 := newRide(t, in, "PremiumRide", 2, "Mall", "Hotel", 10)
	mustSend(t, in, driver, "addRide:", InstanceValue(r1))
	mustSend(t, in, driver, "addRide:", InstanceValue(r2))

	if n := mustSend(t, in, driver, "totalRides"); n != IntValue(2) {
		t.Fatalf("totalRides = %v, want 2", n)
	}

	mustSend(t, in, driver, "showAllRides")
	lines := out.Lines()
	if len(lines) != 14 {
		t.Fatalf("lines = %d, want 14:\n%q", len(lines), lines)
	}
	if lines[6] != "=== STANDARD RIDE ===" || lines[13] != "=== PREMIUM RIDE ===" {
		t.Errorf("rides out of order: %q, %q", lines[6], lines[13])
	}

	mustSend(t, in, driver, "showFares")
	if fare, _ := r2.GetVar("fare"); fare != FloatValue(35) {
		t.Errorf("r2 fare slot = %v, want 35.0", fare)
	}
}

func TestRunOrder(t *testing.T) {
	tests := []struct {
		selector string
		args     []Value
		want     Value
		lines    []string
		x        Value
		outcomes []Outcome
	}{
		{"x:", []Value{IntValue(7)}, NilValue(), nil, IntValue(7), []Outcome{Executed}},
		{"greet", nil, NilValue(), []string{"base", "derived"}, StringValue(""), []Outcome{Executed, Executed}},
		{"answer", nil, IntValue(42), nil, StringValue(""), []Outcome{Executed}},
		{"stash:", []Value{IntValue(3)}, NilValue(), nil, IntValue(3), []Outcome{Executed}},
		{"mark", nil, NilValue(), []string{"mark"}, IntValue(5), []Outcome{Executed, Executed}},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			var out transcript.Buffer
			in := newFleet(t, &out)
			inst := mustInstantiate(t, in, "Ordered")

			m := in.Classes.FindMethod(inst.Class, tt.selector)
			got, outcomes, err := in.Evaluate(m, inst, tt.args)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("result = %#v, want %#v", got, tt.want)
			}
			if !reflect.DeepEqual(outcomes, tt.outcomes) {
				t.Errorf("outcomes = %v, want %v", outcomes, tt.outcomes)
			}
			if lines := out.Lines(); !reflect.DeepEqual(lines, tt.lines) {
				t.Errorf("output = %q, want %q", lines, tt.lines)
			}
			if x, _ := inst.GetVar("x"); x != tt.x {
				t.Errorf("x = %#v, want %#v", x, tt.x)
			}
		})
	}
}

func TestOutcomes(t *testing.T) {
	in := newFleet(t, nil)
	sampler := mustInstantiate(t, in, "Sampler")

	m := in.Classes.FindMethod(sampler.Class, "mixed")
	_, outcomes, err := in.Evaluate(m, sampler, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	want := []Outcome{Executed, NotApplicable, Invalid, Invalid}
	if !reflect.DeepEqual(outcomes, want) {
		t.Errorf("outcomes = %v, want %v", outcomes, want)
	}
	if a, _ := sampler.GetVar("a"); a != IntValue(1) {
		t.Errorf("a = %v, want 1", a)
	}

	diags := in.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %v", diags)
	}
	for _, d := range diags {
		if !errors.Is(d.Err, ErrUndefinedVariable) {
			t.Errorf("diagnostic err = %v, want ErrUndefinedVariable", d.Err)
		}
		if d.Class != "Sampler" || d.Selector != "mixed" {
			t.Errorf("diagnostic = %s", d)
		}
	}
	if diags[0].Pos.Line == 0 {
		t.Error("diagnostic has no position")
	}
}

func TestReturnEndsMethod(t *testing.T) {
	in := newFleet(t, nil)
	sampler := mustInstantiate(t, in, "Sampler")

	m := in.Classes.FindMethod(sampler.Class, "early")
	v, outcomes, err := in.Evaluate(m, sampler, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != IntValue(1) {
		t.Errorf("result = %v, want 1", v)
	}
	if len(outcomes) != 1 {
		t.Errorf("outcomes = %v, want one", outcomes)
	}
	if a, _ := sampler.GetVar("a"); a != StringValue("") {
		t.Errorf("a = %#v, statement after return ran", a)
	}
}

func TestSelfSendFallsBackToPrimitives(t *testing.T) {
	in := newFleet(t, nil)
	sampler := mustInstantiate(t, in, "Sampler")

	if v := mustSend(t, in, sampler, "describe"); v != StringValue("a Sampler") {
		t.Errorf("describe = %#v, want 'a Sampler'", v)
	}
	if v := mustSend(t, in, sampler, "tally"); v != IntValue(7) {
		t.Errorf("tally = %#v, want 7", v)
	}

	v, err := in.Send(sampler, "bogus", nil)
	if err != nil {
		t.Fatalf("bogus should be contained, got %v", err)
	}
	if !v.IsNil() {
		t.Errorf("bogus = %v, want nil", v)
	}
	diags := in.Diagnostics()
	if len(diags) != 1 || !errors.Is(diags[0].Err, ErrMethodNotFound) {
		t.Errorf("diagnostics = %v", diags)
	}
}

func TestDivisionByZeroIsContained(t *testing.T) {
	in := newFleet(t, nil)
	sampler := mustInstantiate(t, in, "Sampler")

	m := in.Classes.FindMethod(sampler.Class, "divide")
	_, outcomes, err := in.Evaluate(m, sampler, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(outcomes, []Outcome{Invalid, Executed}) {
		t.Errorf("outcomes = %v", outcomes)
	}
	if d := in.Diagnostics(); len(d) != 1 || !errors.Is(d[0].Err, ErrDivisionByZero) {
		t.Errorf("diagnostics = %v", d)
	}
}

func TestDisplayKeepsGoodSegments(t *testing.T) {
	var out transcript.Buffer
	in := newFleet(t, &out)
	sampler := mustInstantiate(t, in, "Sampler")

	m := in.Classes.FindMethod(sampler.Class, "broken")
	_, outcomes, err := in.Evaluate(m, sampler, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "x=!\n" {
		t.Errorf("output = %q", out.String())
	}
	if !reflect.DeepEqual(outcomes, []Outcome{Invalid}) {
		t.Errorf("outcomes = %v", outcomes)
	}
}

func TestRecursionLimit(t *testing.T) {
	in := newFleet(t, nil)
	sampler := mustInstantiate(t, in, "Sampler")

	if _, err := in.Send(sampler, "loop", nil); !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("err = %v, want ErrRecursionLimit", err)
	}
	if in.depth != 0 {
		t.Errorf("depth = %d after unwinding", in.depth)
	}
	if v := mustSend(t, in, sampler, "describe"); v.IsNil() {
		t.Error("interpreter unusable after recursion limit")
	}
}

func TestSuperSendFromSubclass(t *testing.T) {
	in := newFleet(t, nil)
	orphan := mustInstantiate(t, in, "Orphan")

	_, err := in.Send(orphan, "setUp", nil)
	if err != nil {
		t.Fatalf("setUp: %v", err)
	}
	d := in.Diagnostics()
	if len(d) != 1 || !errors.Is(d[0].Err, ErrMethodNotFound) {
		t.Errorf("diagnostics = %v, want one method-not-found", d)
	}
}

func TestSendValuePrimitives(t *testing.T) {
	in := newFleet(t, nil)
	seq := SequenceValue(NewSequence())

	if _, err := in.SendValue(seq, "add:", []Value{IntValue(3)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if n, _ := in.SendValue(seq, "size", nil); n != IntValue(1) {
		t.Errorf("size = %v, want 1", n)
	}
	if n, _ := in.SendValue(StringValue("Mall"), "size", nil); n != IntValue(4) {
		t.Errorf("string size = %v, want 4", n)
	}
	if s, _ := in.SendValue(FloatValue(35), "printString", nil); s != StringValue("35.0") {
		t.Errorf("printString = %v", s)
	}

	ride, _ := in.Classes.Lookup("Ride")
	v, err := in.SendValue(ClassValue(ride), "new", nil)
	if err != nil || v.Type != TypeInstance {
		t.Errorf("Ride new = %#v, %v", v, err)
	}

	if _, err := in.SendValue(IntValue(3), "fly", nil); !errors.Is(err, ErrMethodNotFound) {
		t.Errorf("err = %v, want ErrMethodNotFound", err)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		Executed:      "executed",
		NotApplicable: "not-applicable",
		Invalid:       "invalid",
		Outcome(9):    "Outcome(9)",
	}
	for o, want := range tests {
		if o.String() != want {
			t.Errorf("String() = %q, want %q", o.String(), want)
		}
	}
}
