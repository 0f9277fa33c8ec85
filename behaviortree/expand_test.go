package behaviortree

import (
	"errors"
	"strings"
	"testing"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/scxml"
)

const twoLeafTree = `<root main_tree_to_execute="Main">
  <BehaviorTree ID="Main">
    <Sequence>
      <AlwaysSuccess/>
      <AlwaysFailure/>
    </Sequence>
  </BehaviorTree>
</root>`

func chartByName(charts []*scxml.Chart, name string) *scxml.Chart {
	for _, c := range charts {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// === Tree Parsing Tests ===

func TestParseTree(t *testing.T) {
	root, err := Parse([]byte(`<root main_tree_to_execute="Main">
  <BehaviorTree ID="Other"><AlwaysSuccess/></BehaviorTree>
  <BehaviorTree ID="Main">
    <Fallback>
      <SaySomething name="greet" message="hi"/>
      <AlwaysSuccess/>
    </Fallback>
  </BehaviorTree>
</root>`), "t.xml")
	if err != nil {
		t.Fatal(err)
	}
	if root.Type != "Fallback" || len(root.Children) != 2 {
		t.Fatalf("root = %s/%d children, want Fallback/2", root.Type, len(root.Children))
	}
	leaf := root.Children[0]
	if leaf.Type != "SaySomething" || leaf.Name != "greet" {
		t.Errorf("leaf = %s %q", leaf.Type, leaf.Name)
	}
	if leaf.Params["message"] != "hi" {
		t.Errorf("params = %v, want message=hi", leaf.Params)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"no trees", `<root/>`},
		{"two top-level nodes", `<root><BehaviorTree ID="T"><AlwaysSuccess/><AlwaysSuccess/></BehaviorTree></root>`},
		{"ambiguous main", `<root><BehaviorTree ID="A"><AlwaysSuccess/></BehaviorTree><BehaviorTree ID="B"><AlwaysSuccess/></BehaviorTree></root>`},
		{"main not declared", `<root main_tree_to_execute="Gone"><BehaviorTree ID="T"><AlwaysSuccess/></BehaviorTree></root>`},
		{"not a root element", `<behavior><BehaviorTree ID="T"><AlwaysSuccess/></BehaviorTree></behavior>`},
	}
	for _, tc := range cases {
		_, err := Parse([]byte(tc.src), "t.xml")
		if err == nil {
			t.Errorf("%s: Parse should fail", tc.name)
			continue
		}
		if kind, _ := diag.KindOf(err); kind != diag.KindStructural {
			t.Errorf("%s: error = %v, want structural-validity", tc.name, err)
		}
	}
}

// === Expansion Tests ===

func TestExpandSequence(t *testing.T) {
	root, err := Parse([]byte(twoLeafTree), "t.xml")
	if err != nil {
		t.Fatal(err)
	}
	charts, err := Expand(root, DefaultLibrary(), "t.xml")
	if err != nil {
		t.Fatal(err)
	}

	// One chart per node plus the driver, parent before children.
	want := []string{"bt_driver", "bt1_sequence", "bt2_alwayssuccess", "bt3_alwaysfailure"}
	if len(charts) != len(want) {
		t.Fatalf("charts = %d, want %d", len(charts), len(want))
	}
	for i, name := range want {
		if charts[i].Name != name {
			t.Errorf("chart %d = %q, want %q", i, charts[i].Name, name)
		}
	}

	// The driver ticks the root instance and re-ticks on every status.
	driver := chartByName(charts, "bt_driver")
	tick := driver.StateByID("tick")
	if len(tick.OnEntry) != 1 || tick.OnEntry[0].Event != "bt1_sequence_tick" {
		t.Errorf("driver entry = %+v", tick.OnEntry)
	}
	if len(tick.Transitions) != 3 {
		t.Errorf("driver transitions = %d, want one per status", len(tick.Transitions))
	}

	// Child 1 succeeding advances the chain and ticks child 2.
	seq := chartByName(charts, "bt1_sequence")
	idle := seq.StateByID("idle")
	if idle.Transitions[0].Event != "bt1_sequence_tick" {
		t.Errorf("sequence tick event = %q", idle.Transitions[0].Event)
	}
	if idle.Transitions[0].Actions[0].Event != "bt2_alwayssuccess_tick" {
		t.Errorf("sequence first tick sends %q", idle.Transitions[0].Actions[0].Event)
	}
	wait1 := seq.StateByID("wait_1")
	var advance *scxml.Transition
	for _, tr := range wait1.Transitions {
		if tr.Event == "bt2_alwayssuccess_success" {
			advance = tr
		}
	}
	if advance == nil {
		t.Fatal("no advance transition on child 1 success")
	}
	if len(advance.Targets) != 1 || advance.Targets[0] != "wait_2" {
		t.Errorf("advance targets %v, want wait_2", advance.Targets)
	}
	if advance.Actions[0].Event != "bt3_alwaysfailure_tick" {
		t.Errorf("advance sends %q, want the child 2 tick", advance.Actions[0].Event)
	}

	// Child 1 failing halts the chain: the sequence reports failure
	// without ever ticking child 2.
	var halt *scxml.Transition
	for _, tr := range wait1.Transitions {
		if tr.Event == "bt2_alwayssuccess_failure" {
			halt = tr
		}
	}
	if halt == nil {
		t.Fatal("no halt transition on child 1 failure")
	}
	if halt.Targets[0] != "idle" || halt.Actions[0].Event != "bt1_sequence_failure" {
		t.Errorf("halt = %v sending %q", halt.Targets, halt.Actions[0].Event)
	}
}

func TestExpandParallel(t *testing.T) {
	root, err := Parse([]byte(`<root>
  <BehaviorTree ID="T">
    <Parallel success_count="1">
      <AlwaysSuccess/>
      <AlwaysFailure/>
    </Parallel>
  </BehaviorTree>
</root>`), "t.xml")
	if err != nil {
		t.Fatal(err)
	}
	charts, err := Expand(root, DefaultLibrary(), "t.xml")
	if err != nil {
		t.Fatal(err)
	}
	par := chartByName(charts, "bt1_parallel")
	if par == nil {
		t.Fatal("no parallel instance chart")
	}
	if len(par.Variables) != 3 {
		t.Errorf("parallel counters = %d, want succ/fail/done", len(par.Variables))
	}
	// Ticking fans out to every child at once.
	tickTr := par.StateByID("idle").Transitions[0]
	sent := 0
	for _, a := range tickTr.Actions {
		if a.Kind == scxml.ActionSend && strings.HasSuffix(a.Event, "_tick") {
			sent++
		}
	}
	if sent != 2 {
		t.Errorf("tick fans out to %d children, want 2", sent)
	}
}

func TestExpandRejectsUnknownNodeType(t *testing.T) {
	root, err := Parse([]byte(`<root>
  <BehaviorTree ID="T">
    <Sequence>
      <Teleport/>
    </Sequence>
  </BehaviorTree>
</root>`), "t.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Expand(root, DefaultLibrary(), "t.xml")
	if err == nil {
		t.Fatal("unknown node type should fail")
	}
	var diagErr *diag.Error
	if !errors.As(err, &diagErr) {
		t.Fatalf("error = %T, want a diagnostic", err)
	}
	if diagErr.Kind != diag.KindUnsupported {
		t.Errorf("kind = %s, want unsupported-construct", diagErr.Kind)
	}
	if diagErr.Element != "Sequence/Teleport#1" {
		t.Errorf("element = %q, want the tree path", diagErr.Element)
	}
}

func TestExpandRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"leaf with children", `<root><BehaviorTree ID="T"><AlwaysSuccess><AlwaysFailure/></AlwaysSuccess></BehaviorTree></root>`},
		{"childless sequence", `<root><BehaviorTree ID="T"><Sequence/></BehaviorTree></root>`},
		{"success_count out of range", `<root><BehaviorTree ID="T"><Parallel success_count="3"><AlwaysSuccess/></Parallel></BehaviorTree></root>`},
	}
	for _, tc := range cases {
		root, err := Parse([]byte(tc.src), "t.xml")
		if err != nil {
			t.Fatalf("%s: Parse: %v", tc.name, err)
		}
		_, err = Expand(root, DefaultLibrary(), "t.xml")
		if err == nil {
			t.Errorf("%s: Expand should fail", tc.name)
			continue
		}
		if kind, _ := diag.KindOf(err); kind != diag.KindUnsupported {
			t.Errorf("%s: error = %v, want unsupported-construct", tc.name, err)
		}
	}
}
