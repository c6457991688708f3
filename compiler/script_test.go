package compiler

import (
	"reflect"
	"testing"
)

func TestParseScript(t *testing.T) {
	src := `| ride rides |
ride := StandardRide new.
rides do: [:r |
    r rideDetails.
    total := total + r fare
].
| total |
Transcript show: 'Total: ', total printString; cr.
`
	script := ParseScript(src)

	if want := []string{"ride", "rides", "total"}; !reflect.DeepEqual(script.Temps, want) {
		t.Errorf("temps = %v, want %v", script.Temps, want)
	}
	if len(script.Statements) != 3 {
		t.Fatalf("statements = %d, want 3", len(script.Statements))
	}

	wantSources := []string{
		"ride := StandardRide new",
		"rides do: [:r |\n    r rideDetails.\n    total := total + r fare\n]",
		"Transcript show: 'Total: ', total printString; cr",
	}
	for i, ss := range script.Statements {
		if ss.Source != wantSources[i] {
			t.Errorf("statement[%d] source = %q, want %q", i, ss.Source, wantSources[i])
		}
		if ss.Stmt == nil {
			t.Errorf("statement[%d] failed to parse: %v", i, ss.Errors)
		}
	}

	if line := script.Statements[1].Span().Start.Line; line != 3 {
		t.Errorf("do: statement starts on line %d, want 3", line)
	}

	es := script.Statements[1].Stmt.(*ExprStmt)
	km, ok := es.Expr.(*KeywordMessage)
	if !ok || km.Selector != "do:" {
		t.Fatalf("statement[1] = %#v, want do: send", es.Expr)
	}
	if b, ok := km.Arguments[0].(*Block); !ok || len(b.Statements) != 2 {
		t.Errorf("do: block = %#v", km.Arguments[0])
	}
}

func TestParseScriptBadStatement(t *testing.T) {
	script := ParseScript("a := ). b := 2. c d e :=")

	if len(script.Statements) != 3 {
		t.Fatalf("statements = %d, want 3", len(script.Statements))
	}

	bad := script.Statements[0]
	if bad.Stmt != nil {
		t.Errorf("bad statement parsed as %#v", bad.Stmt)
	}
	if len(bad.Errors) == 0 {
		t.Error("bad statement has no errors")
	}
	if bad.Source != "a := )" {
		t.Errorf("bad source = %q", bad.Source)
	}

	if script.Statements[1].Stmt == nil {
		t.Errorf("b := 2 failed: %v", script.Statements[1].Errors)
	}
	if script.Statements[2].Stmt != nil {
		t.Error("trailing garbage parsed")
	}
}

func TestParseScriptEmpty(t *testing.T) {
	for _, src := range []string{"", "  \n", ". . .", `"just a comment"`} {
		script := ParseScript(src)
		if len(script.Statements) != 0 {
			t.Errorf("ParseScript(%q) = %d statements, want 0", src, len(script.Statements))
		}
	}
}
