package jani

import (
	"fmt"

	"github.com/statechart-tools/janic/diag"
)

// Validate checks the composed model against the target schema shape.
// A violation here is an internal-consistency failure: the composer
// produced something the interchange format cannot represent.
func (m *Model) Validate() error {
	if m.JaniVersion != Version {
		return internalf("model", "jani-version is %d, want %d", m.JaniVersion, Version)
	}
	if m.Name == "" {
		return internalf("model", "model has no name")
	}
	if m.Type != ModelType {
		return internalf("model", "model type is %q, want %q", m.Type, ModelType)
	}
	if len(m.Automata) == 0 {
		return internalf("model", "model contains no automata")
	}

	actions := make(map[string]bool, len(m.Actions))
	for _, a := range m.Actions {
		if a.Name == "" {
			return internalf("actions", "empty action name")
		}
		if actions[a.Name] {
			return internalf("actions", "duplicate action %q", a.Name)
		}
		actions[a.Name] = true
	}

	globals := make(map[string]bool, len(m.Variables))
	if err := checkVariables(m.Variables, globals, "model"); err != nil {
		return err
	}

	automata := make(map[string]*Automaton, len(m.Automata))
	for i := range m.Automata {
		a := &m.Automata[i]
		if a.Name == "" {
			return internalf("automata", "automaton %d has no name", i)
		}
		if automata[a.Name] != nil {
			return internalf("automata", "duplicate automaton %q", a.Name)
		}
		automata[a.Name] = a
		if err := m.validateAutomaton(a, globals, actions); err != nil {
			return err
		}
	}

	if len(m.System.Elements) == 0 {
		return internalf("system", "composition has no elements")
	}
	for _, el := range m.System.Elements {
		if automata[el.Automaton] == nil {
			return internalf("system", "element references unknown automaton %q", el.Automaton)
		}
	}
	for i, sync := range m.System.Syncs {
		if len(sync.Synchronise) != len(m.System.Elements) {
			return internalf("system",
				"sync %d has %d slots for %d elements", i, len(sync.Synchronise), len(m.System.Elements))
		}
		participants := 0
		for slot, label := range sync.Synchronise {
			if label == nil {
				continue
			}
			participants++
			if !actions[*label] {
				return internalf("system", "sync %d slot %d uses undeclared action %q", i, slot, *label)
			}
			el := automata[m.System.Elements[slot].Automaton]
			if !automatonHasAction(el, *label) {
				return internalf("system",
					"sync %d slot %d: automaton %q has no edge labeled %q",
					i, slot, el.Name, *label)
			}
		}
		if participants == 0 {
			return internalf("system", "sync %d has no participants", i)
		}
		if sync.Result != "" && !actions[sync.Result] {
			return internalf("system", "sync %d result uses undeclared action %q", i, sync.Result)
		}
	}
	return nil
}

func (m *Model) validateAutomaton(a *Automaton, globals map[string]bool, actions map[string]bool) error {
	if len(a.Locations) == 0 {
		return internalf(a.Name, "automaton has no locations")
	}
	locations := make(map[string]bool, len(a.Locations))
	for _, loc := range a.Locations {
		if loc.Name == "" {
			return internalf(a.Name, "location with empty name")
		}
		if locations[loc.Name] {
			return internalf(a.Name, "duplicate location %q", loc.Name)
		}
		locations[loc.Name] = true
	}
	if len(a.InitialLocations) == 0 {
		return internalf(a.Name, "automaton has no initial location")
	}
	for _, init := range a.InitialLocations {
		if !locations[init] {
			return internalf(a.Name, "initial location %q is not a location", init)
		}
	}

	scope := make(map[string]bool, len(globals)+len(a.Variables))
	for name := range globals {
		scope[name] = true
	}
	if err := checkVariables(a.Variables, scope, a.Name); err != nil {
		return err
	}

	for i, e := range a.Edges {
		where := fmt.Sprintf("edge %d", i)
		if !locations[e.Location] {
			return internalf(a.Name, "%s leaves unknown location %q", where, e.Location)
		}
		if e.Action != "" && !actions[e.Action] {
			return internalf(a.Name, "%s uses undeclared action %q", where, e.Action)
		}
		if e.Guard != nil {
			if err := checkRefs(e.Guard.Exp, scope, a.Name, where+" guard"); err != nil {
				return err
			}
		}
		if len(e.Destinations) == 0 {
			return internalf(a.Name, "%s has no destinations", where)
		}
		for _, d := range e.Destinations {
			if !locations[d.Location] {
				return internalf(a.Name, "%s targets unknown location %q", where, d.Location)
			}
			if d.Probability != nil {
				if err := checkRefs(d.Probability.Exp, scope, a.Name, where+" probability"); err != nil {
					return err
				}
			}
			for _, asgn := range d.Assignments {
				if !scope[asgn.Ref] {
					return internalf(a.Name, "%s assigns undeclared variable %q", where, asgn.Ref)
				}
				if err := checkRefs(asgn.Value, scope, a.Name, where+" assignment"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkVariables(vars []Variable, scope map[string]bool, doc string) error {
	for _, v := range vars {
		if v.Name == "" {
			return internalf(doc, "variable with empty name")
		}
		if scope[v.Name] {
			return internalf(doc, "duplicate variable %q", v.Name)
		}
		scope[v.Name] = true
	}
	// Initial values may reference previously declared variables.
	for _, v := range vars {
		if v.Initial != nil {
			if err := checkRefs(v.Initial, scope, doc, "initial value of "+v.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkRefs(e *Expression, scope map[string]bool, doc, where string) error {
	for _, ident := range e.Identifiers(nil) {
		if !scope[ident] {
			return internalf(doc, "%s references undeclared identifier %q", where, ident)
		}
	}
	return nil
}

func automatonHasAction(a *Automaton, label string) bool {
	for _, e := range a.Edges {
		if e.Action == label {
			return true
		}
	}
	return false
}

func internalf(element, format string, args ...any) error {
	return diag.New(diag.KindInternal, "", element, format, args...)
}

// Emit validates the model and renders it to interchange JSON. The model
// is never serialized when validation fails.
func (m *Model) Emit() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m.Marshal()
}
