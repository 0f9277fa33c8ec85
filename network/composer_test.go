package network

import (
	"errors"
	"testing"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/expr"
	"github.com/statechart-tools/janic/jani"
	"github.com/statechart-tools/janic/resolver"
	"github.com/statechart-tools/janic/scxml"
)

func mustResolve(t *testing.T, src string, global expr.Scope, internal map[string]bool) *resolver.Automaton {
	t.Helper()
	chart, err := scxml.Parse([]byte(src), "test.scxml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a, err := resolver.New(chart, global, internal).Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return a
}

func slotString(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func syncStrings(m *jani.Model) []string {
	var out []string
	for _, s := range m.System.Syncs {
		line := s.Result + ":"
		for _, slot := range s.Synchronise {
			line += " " + slotString(slot)
		}
		out = append(out, line)
	}
	return out
}

func hasSync(m *jani.Model, want string) bool {
	for _, line := range syncStrings(m) {
		if line == want {
			return true
		}
	}
	return false
}

// === Event Classification Tests ===

func TestClassifyEvents(t *testing.T) {
	parse := func(src string) *scxml.Chart {
		c, err := scxml.Parse([]byte(src), "t.scxml")
		if err != nil {
			t.Fatal(err)
		}
		return c
	}
	a := parse(`<scxml name="a" initial="s">
  <state id="s">
    <transition event="go" target="s"><raise event="tick"/><send event="out"/></transition>
    <transition event="tick" target="s"/>
    <transition event="shared" target="s"/>
  </state>
</scxml>`)
	b := parse(`<scxml name="b" initial="s">
  <state id="s">
    <transition event="go" target="s"><raise event="shared"/></transition>
  </state>
</scxml>`)

	internal := ClassifyEvents([]*scxml.Chart{a, b})
	if !internal["a"]["tick"] {
		t.Error("tick is raised and consumed only inside a; should be internal")
	}
	if internal["a"]["out"] {
		t.Error("out goes through send; never internal")
	}
	if internal["a"]["shared"] || internal["b"]["shared"] {
		t.Error("shared is raised in b and consumed in a; it crosses the boundary")
	}
	if internal["a"]["go"] || internal["b"]["go"] {
		t.Error("go is raised by nobody; the environment supplies it")
	}
}

// === Payload Typing Tests ===

func TestEventParams(t *testing.T) {
	parse := func(src string) *scxml.Chart {
		c, err := scxml.Parse([]byte(src), "t.scxml")
		if err != nil {
			t.Fatal(err)
		}
		return c
	}
	a := parse(`<scxml name="a" initial="s"><state id="s">
  <transition event="go" target="s"><send event="report"><param name="level" expr="1"/></send></transition>
</state></scxml>`)
	b := parse(`<scxml name="b" initial="s"><state id="s">
  <transition event="go" target="s"><send event="report"><param name="level" expr="0.5"/></send></transition>
</state></scxml>`)

	params, err := EventParams([]*scxml.Chart{a, b}, nil)
	if err != nil {
		t.Fatal(err)
	}
	typ, ok := params["report.level"]
	if !ok {
		t.Fatal("report.level not inferred")
	}
	if typ.Kind != expr.KindReal {
		t.Errorf("report.level = %s, want real after numeric widening", typ)
	}

	c := parse(`<scxml name="c" initial="s"><state id="s">
  <transition event="go" target="s"><send event="report"><param name="level" expr="true"/></send></transition>
</state></scxml>`)
	_, err = EventParams([]*scxml.Chart{a, c}, nil)
	if err == nil {
		t.Fatal("bool against int payload should fail")
	}
	if !errors.Is(err, &diag.Error{Kind: diag.KindComposition}) {
		t.Errorf("error = %v, want composition-inconsistency", err)
	}
}

// === Composition Tests ===

// Producer broadcasts note on every go; consumer listens once.
const producerSrc = `<scxml name="producer" initial="idle">
  <state id="idle">
    <transition event="go" target="idle"><send event="note"/></transition>
  </state>
</scxml>`

const consumerSrc = `<scxml name="consumer" initial="waiting">
  <state id="waiting">
    <transition event="note" target="done"/>
  </state>
  <state id="done"/>
</scxml>`

func TestComposeBroadcastVectors(t *testing.T) {
	p := mustResolve(t, producerSrc, nil, nil)
	c := mustResolve(t, consumerSrc, nil, nil)
	model, err := NewComposer("net").Add(p).Add(c).Compose()
	if err != nil {
		t.Fatal(err)
	}

	if len(model.System.Elements) != 2 ||
		model.System.Elements[0].Automaton != "producer" ||
		model.System.Elements[1].Automaton != "consumer" {
		t.Fatalf("elements = %+v", model.System.Elements)
	}

	// go has no emitter: the environment supplies it to the producer.
	// note is delivered to the consumer while it listens, and passes it
	// by once it is done.
	want := []string{
		"go: go_recv -",
		"note: note_emit note_recv",
		"note: note_emit note_off",
	}
	for _, w := range want {
		if !hasSync(model, w) {
			t.Errorf("missing vector %q in %v", w, syncStrings(model))
		}
	}
	if len(model.System.Syncs) != len(want) {
		t.Errorf("syncs = %v, want exactly %d", syncStrings(model), len(want))
	}

	if err := model.Validate(); err != nil {
		t.Errorf("composed model should validate: %v", err)
	}
}

func TestComposeEnvironmentEventReachesEverybody(t *testing.T) {
	// Two automata both triggered by the same environment event: one
	// vector delivers it to both at once, and delivery is never partial
	// while both are listening.
	p := mustResolve(t, `<scxml name="p" initial="idle">
  <state id="idle"><transition event="go" target="running"/></state>
  <state id="running"/>
</scxml>`, nil, nil)
	c := mustResolve(t, `<scxml name="c" initial="waiting">
  <state id="waiting"><transition event="go" target="acked"/></state>
  <state id="acked"/>
</scxml>`, nil, nil)

	model, err := NewComposer("net").Add(p).Add(c).Compose()
	if err != nil {
		t.Fatal(err)
	}
	if len(model.System.Syncs) != 1 {
		t.Fatalf("syncs = %v, want exactly one joint delivery", syncStrings(model))
	}
	if !hasSync(model, "go: go_recv go_recv") {
		t.Errorf("syncs = %v", syncStrings(model))
	}
	if err := model.Validate(); err != nil {
		t.Errorf("composed model should validate: %v", err)
	}
}

func TestComposeNamespacesLocals(t *testing.T) {
	a := mustResolve(t, `<scxml name="robot" initial="s">
  <datamodel><data id="steps" expr="0"/></datamodel>
  <state id="s">
    <transition event="go" cond="steps &lt; 5" target="s">
      <assign location="steps" expr="steps + 1"/>
    </transition>
  </state>
</scxml>`, nil, nil)

	model, err := NewComposer("net").Add(a).Compose()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, v := range model.Variables {
		if v.Name == "robot.steps" {
			found = true
		}
		if v.Name == "steps" {
			t.Error("local variable leaked unprefixed into the model namespace")
		}
	}
	if !found {
		t.Fatalf("variables = %+v, want robot.steps", model.Variables)
	}

	for _, e := range model.Automata[0].Edges {
		if e.Guard != nil {
			for _, ident := range e.Guard.Exp.Identifiers(nil) {
				if ident == "steps" {
					t.Error("guard still references the unprefixed local")
				}
			}
		}
	}
	if err := model.Validate(); err != nil {
		t.Errorf("composed model should validate: %v", err)
	}
}

func TestComposeGlobalsAndPayloads(t *testing.T) {
	sender := mustResolve(t, `<scxml name="sender" initial="s">
  <state id="s">
    <transition event="go" target="s">
      <send event="report"><param name="level" expr="3"/></send>
    </transition>
  </state>
</scxml>`, nil, nil)

	globals := []Global{{Name: "limit", Type: expr.IntType(), Init: "10", Doc: "net"}}
	params := map[string]expr.Type{"report.level": expr.IntType()}
	receiver := mustResolve(t, `<scxml name="receiver" initial="s">
  <state id="s">
    <transition event="report" cond="report.level &lt; limit" target="s"/>
  </state>
</scxml>`, Scope(globals, params), nil)

	model, err := NewComposer("net").
		WithGlobals(globals).
		WithParams(params).
		Add(sender).Add(receiver).
		Compose()
	if err != nil {
		t.Fatal(err)
	}

	names := make(map[string]bool)
	for _, v := range model.Variables {
		names[v.Name] = true
	}
	for _, want := range []string{"limit", "report.level"} {
		if !names[want] {
			t.Errorf("variables = %+v, missing %q", model.Variables, want)
		}
	}
	if err := model.Validate(); err != nil {
		t.Errorf("composed model should validate: %v", err)
	}
}

func TestComposeRejectsDuplicateAutomaton(t *testing.T) {
	a := mustResolve(t, producerSrc, nil, nil)
	b := mustResolve(t, producerSrc, nil, nil)
	_, err := NewComposer("net").Add(a).Add(b).Compose()
	if err == nil {
		t.Fatal("duplicate instance name should fail")
	}
	if !errors.Is(err, &diag.Error{Kind: diag.KindComposition}) {
		t.Errorf("error = %v, want composition-inconsistency", err)
	}
}

func TestComposeRejectsGlobalCollision(t *testing.T) {
	a := mustResolve(t, producerSrc, nil, nil)
	globals := []Global{
		{Name: "x", Type: expr.IntType(), Doc: "one"},
		{Name: "x", Type: expr.BoolType(), Doc: "two"},
	}
	_, err := NewComposer("net").WithGlobals(globals).Add(a).Compose()
	if err == nil {
		t.Fatal("colliding globals should fail")
	}
	if !errors.Is(err, &diag.Error{Kind: diag.KindComposition}) {
		t.Errorf("error = %v, want composition-inconsistency", err)
	}
}

func TestComposeFullTableFallback(t *testing.T) {
	// A product bound of zero forces the full combination table; the
	// extra vectors are unreachable but the model still validates.
	p := mustResolve(t, producerSrc, nil, nil)
	c := mustResolve(t, consumerSrc, nil, nil)
	model, err := NewComposer("net").WithMaxProduct(0).Add(p).Add(c).Compose()
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []string{"note: note_emit note_recv", "note: note_emit note_off"} {
		if !hasSync(model, w) {
			t.Errorf("missing vector %q in %v", w, syncStrings(model))
		}
	}
	if err := model.Validate(); err != nil {
		t.Errorf("fallback model should validate: %v", err)
	}
}
