package jani

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/statechart-tools/janic/diag"
)

// Helper: minimal well-formed one-automaton model.
func testModel() *Model {
	m := New("demo")
	m.Variables = []Variable{{Name: "count", Type: IntType(), Initial: Int(0)}}
	m.Automata = []Automaton{{
		Name:             "main",
		Locations:        []Location{{Name: "a"}, {Name: "b"}},
		InitialLocations: []string{"a"},
		Edges: []Edge{{
			Location: "a",
			Guard:    &Guard{Exp: Binary(OpLt, Var("count"), Int(5))},
			Destinations: []Destination{{
				Location:    "b",
				Assignments: []Assignment{{Ref: "count", Value: Binary(OpAdd, Var("count"), Int(1))}},
			}},
		}},
	}}
	m.System = Composition{Elements: []Element{{Automaton: "main"}}}
	return m
}

// === Expression Serialization Tests ===

func TestExpressionMarshalShapes(t *testing.T) {
	cases := []struct {
		expr *Expression
		want string
	}{
		{Bool(true), `true`},
		{Int(42), `42`},
		{Var("x"), `"x"`},
		{Not(Var("p")), `{"exp":"p","op":"¬"}`},
		{Binary(OpAnd, Var("p"), Var("q")), `{"left":"p","op":"∧","right":"q"}`},
		{Ite(Var("p"), Int(1), Int(2)), `{"else":2,"if":"p","op":"ite","then":1}`},
		{ArrayAccess(Var("g"), Int(0)), `{"exp":"g","index":0,"op":"aa"}`},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.expr)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) != tc.want {
			t.Errorf("marshal = %s, want %s", b, tc.want)
		}
	}
}

func TestTypeMarshalShapes(t *testing.T) {
	cases := []struct {
		typ  Type
		want string
	}{
		{BoolType(), `"bool"`},
		{IntType(), `"int"`},
		{RealType(), `"real"`},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.typ)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) != tc.want {
			t.Errorf("marshal = %s, want %s", b, tc.want)
		}
	}

	b, err := json.Marshal(BoundedInt(0, 7))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"kind":"bounded"`, `"lower-bound":0`, `"upper-bound":7`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("bounded marshal %s missing %s", b, want)
		}
	}
}

func TestAndNotFolding(t *testing.T) {
	if got := And(nil, Var("g")); got.Ident != "g" {
		t.Errorf("And(nil, g) = %v, want g", got)
	}
	if got := And(Bool(true), Var("g")); got.Ident != "g" {
		t.Errorf("And(true, g) = %v, want g", got)
	}
	if got := Not(Bool(false)); !got.IsTrue() {
		t.Errorf("Not(false) = %v, want true", got)
	}
}

// === Model Tests ===

func TestModelEmit(t *testing.T) {
	out, err := testModel().Emit()
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("emitted model is not valid JSON: %v", err)
	}
	if decoded["jani-version"].(float64) != 1 {
		t.Error("jani-version should be 1")
	}
	if decoded["type"] != "mdp" {
		t.Errorf("type = %v, want mdp", decoded["type"])
	}
}

func TestValidateCatchesDefects(t *testing.T) {
	cases := []struct {
		name  string
		corrupt func(*Model)
	}{
		{"dangling edge target", func(m *Model) {
			m.Automata[0].Edges[0].Destinations[0].Location = "nowhere"
		}},
		{"unknown initial location", func(m *Model) {
			m.Automata[0].InitialLocations = []string{"nowhere"}
		}},
		{"undeclared guard variable", func(m *Model) {
			m.Automata[0].Edges[0].Guard = &Guard{Exp: Var("ghost")}
		}},
		{"duplicate location", func(m *Model) {
			m.Automata[0].Locations = append(m.Automata[0].Locations, Location{Name: "a"})
		}},
		{"sync arity mismatch", func(m *Model) {
			label := "go"
			m.System.Syncs = []Sync{{Synchronise: []*string{&label, &label}, Result: "go"}}
		}},
	}
	for _, tc := range cases {
		m := testModel()
		tc.corrupt(m)
		err := m.Validate()
		if err == nil {
			t.Errorf("%s: Validate should fail", tc.name)
			continue
		}
		if kind, _ := diag.KindOf(err); kind != diag.KindInternal {
			t.Errorf("%s: error = %v, want internal-consistency", tc.name, err)
		}
	}
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	if err := testModel().Validate(); err != nil {
		t.Errorf("well-formed model should validate: %v", err)
	}
}
