package scxml

import (
	"testing"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/expr"
)

const trafficChart = `<scxml name="light" initial="red">
  <datamodel>
    <data id="cycles" expr="0"/>
    <data id="broken" expr="false"/>
  </datamodel>
  <state id="red">
    <transition event="go" target="green">
      <assign location="cycles" expr="cycles + 1"/>
    </transition>
  </state>
  <state id="green">
    <onexit>
      <log label="leaving" expr="cycles"/>
    </onexit>
    <transition event="stop" cond="!broken" target="red"/>
  </state>
</scxml>`

func mustParse(t *testing.T, src string) *Chart {
	t.Helper()
	chart, err := Parse([]byte(src), "test.scxml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return chart
}

// === Parsing Tests ===

func TestParseBasicChart(t *testing.T) {
	chart := mustParse(t, trafficChart)
	if chart.Name != "light" {
		t.Errorf("name = %q, want light", chart.Name)
	}
	if len(chart.Initial) != 1 || chart.Initial[0] != "red" {
		t.Errorf("initial = %v, want [red]", chart.Initial)
	}
	if len(chart.States) != 2 {
		t.Fatalf("top-level states = %d, want 2", len(chart.States))
	}
	if len(chart.Variables) != 2 {
		t.Errorf("variables = %d, want 2", len(chart.Variables))
	}

	red := chart.StateByID("red")
	if red == nil || red.Kind != Atomic {
		t.Fatal("red should be an atomic state")
	}
	if len(red.Transitions) != 1 {
		t.Fatalf("red transitions = %d, want 1", len(red.Transitions))
	}
	tr := red.Transitions[0]
	if tr.Event != "go" || len(tr.Targets) != 1 || tr.Targets[0] != "green" {
		t.Errorf("transition = %+v", tr)
	}
	if len(tr.Actions) != 1 || tr.Actions[0].Kind != ActionAssign {
		t.Errorf("transition actions = %+v", tr.Actions)
	}
}

func TestParseHierarchy(t *testing.T) {
	chart := mustParse(t, `<scxml initial="run">
  <state id="run" initial="slow">
    <state id="slow"/>
    <state id="fast"/>
  </state>
  <parallel id="monitors">
    <state id="battery" initial="ok"><state id="ok"/><state id="low"/></state>
    <state id="temp" initial="cool"><state id="cool"/><state id="hot"/></state>
  </parallel>
</scxml>`)

	run := chart.StateByID("run")
	if run.Kind != Compound {
		t.Errorf("run kind = %v, want compound", run.Kind)
	}
	monitors := chart.StateByID("monitors")
	if monitors.Kind != Parallel {
		t.Errorf("monitors kind = %v, want parallel", monitors.Kind)
	}
	slow := chart.StateByID("slow")
	if !slow.IsAncestor(run) {
		t.Error("slow should be inside run")
	}
}

func TestParseDocOrder(t *testing.T) {
	chart := mustParse(t, `<scxml initial="a">
  <state id="a">
    <transition event="x" target="b"/>
    <transition event="x" target="c"/>
  </state>
  <state id="b"/>
  <state id="c"/>
</scxml>`)
	trs := chart.StateByID("a").Transitions
	if trs[0].DocIndex >= trs[1].DocIndex {
		t.Error("document order index should increase across siblings")
	}
}

func TestParseSendParams(t *testing.T) {
	chart := mustParse(t, `<scxml initial="a">
  <state id="a">
    <transition event="x" target="a">
      <send event="report"><param name="level" expr="3"/></send>
    </transition>
  </state>
</scxml>`)
	a := chart.StateByID("a").Transitions[0].Actions[0]
	if a.Kind != ActionSend || a.Event != "report" {
		t.Fatalf("action = %+v", a)
	}
	if len(a.Params) != 1 || a.Params[0].Name != "level" {
		t.Errorf("params = %+v", a.Params)
	}
}

// === Validation Tests ===

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		src  string
		kind diag.Kind
	}{
		{"duplicate state id", `<scxml initial="a"><state id="a"/><state id="a"/></scxml>`,
			diag.KindStructural},
		{"dangling target", `<scxml initial="a"><state id="a"><transition event="x" target="ghost"/></state></scxml>`,
			diag.KindStructural},
		{"missing initial state", `<scxml initial="ghost"><state id="a"/></scxml>`,
			diag.KindStructural},
		{"initial not a child", `<scxml initial="p"><state id="p" initial="b"><state id="c"/></state><state id="b"/></scxml>`,
			diag.KindStructural},
		{"final with transition", `<scxml initial="f"><final id="f"><transition event="x" target="f"/></final></scxml>`,
			diag.KindStructural},
		{"unsupported executable content", `<scxml initial="a"><state id="a"><onentry><script>x()</script></onentry></state></scxml>`,
			diag.KindUnsupported},
		{"bad initial expression", `<scxml initial="a"><datamodel><data id="v" expr="1 +"/></datamodel><state id="a"/></scxml>`,
			diag.KindStructural},
		{"duplicate variable", `<scxml initial="a"><datamodel><data id="v" expr="1"/><data id="v" expr="2"/></datamodel><state id="a"/></scxml>`,
			diag.KindStructural},
	}
	for _, tc := range cases {
		_, err := Parse([]byte(tc.src), "t.scxml")
		if err == nil {
			t.Errorf("%s: Parse should fail", tc.name)
			continue
		}
		if kind, _ := diag.KindOf(err); kind != tc.kind {
			t.Errorf("%s: error = %v, want kind %s", tc.name, err, tc.kind)
		}
	}
}

func TestCompoundDefaultsToFirstChild(t *testing.T) {
	chart := mustParse(t, `<scxml initial="p">
  <state id="p"><state id="first"/><state id="second"/></state>
</scxml>`)
	init := chart.StateByID("p").InitialChildren()
	if len(init) != 1 || init[0].ID != "first" {
		t.Errorf("initial children = %v, want [first]", init)
	}
}

// === Variable Typing Tests ===

func TestVariableTypes(t *testing.T) {
	chart := mustParse(t, `<scxml initial="a">
  <datamodel>
    <data id="n" expr="3"/>
    <data id="r" type="real" expr="1"/>
    <data id="flags" type="bool[3]"/>
  </datamodel>
  <state id="a"/>
</scxml>`)

	want := map[string]expr.Kind{"n": expr.KindInt, "r": expr.KindReal, "flags": expr.KindArray}
	scope := chart.TypeScope(nil)
	for name, kind := range want {
		typ, ok := scope.Lookup(name)
		if !ok {
			t.Errorf("%s not in scope", name)
			continue
		}
		if typ.Kind != kind {
			t.Errorf("%s type = %s, want kind %d", name, typ, kind)
		}
	}
}

func TestVariableTypeMismatch(t *testing.T) {
	_, err := Parse([]byte(`<scxml initial="a">
  <datamodel><data id="v" type="bool" expr="3"/></datamodel>
  <state id="a"/>
</scxml>`), "t.scxml")
	if err == nil {
		t.Fatal("declared bool with int initializer should fail")
	}
}

func TestParseTypeNames(t *testing.T) {
	if typ, err := ParseType("int[4]"); err != nil || typ.Kind != expr.KindArray || typ.Size != 4 {
		t.Errorf("ParseType(int[4]) = %v, %v", typ, err)
	}
	if _, err := ParseType("string"); err == nil {
		t.Error("ParseType(string) should fail")
	}
}
