// Package scxml builds the in-memory statechart model from one statechart
// document: the state tree, transitions, executable content and data
// variables, each carrying an explicit document-order index. The package
// validates document structure but never evaluates expressions; that is
// the translator's job.
package scxml

import (
	"github.com/statechart-tools/janic/expr"
)

// StateKind discriminates the members of the state tree.
type StateKind int

const (
	// Atomic is a leaf state.
	Atomic StateKind = iota
	// Compound holds mutually exclusive child states.
	Compound
	// Parallel holds concurrently active child regions.
	Parallel
	// Final marks completion of its enclosing region.
	Final
)

func (k StateKind) String() string {
	switch k {
	case Atomic:
		return "atomic"
	case Compound:
		return "compound"
	case Parallel:
		return "parallel"
	case Final:
		return "final"
	}
	return "unknown"
}

// Chart is one parsed statechart automaton.
type Chart struct {
	// Name identifies the automaton instance; unique per compilation run.
	Name string
	// Doc identifies the source document for diagnostics.
	Doc string
	// Initial names the initially active top-level state(s).
	Initial []string
	// States are the top-level states in document order.
	States []*State
	// Variables are the automaton-local data declarations in document order.
	Variables []*Variable

	byID map[string]*State
}

// State is one node of the state tree.
type State struct {
	ID          string
	Kind        StateKind
	Parent      *State // nil for top-level states
	Children    []*State
	Initial     []string // initial child IDs; empty means first child
	OnEntry     []Action
	OnExit      []Action
	Transitions []*Transition
	// DocIndex is the state's position in document order. Load-bearing:
	// it breaks priority ties during transition selection.
	DocIndex int
}

// Transition is one guarded, possibly event-triggered transition.
type Transition struct {
	Source *State
	// Event is the trigger name; empty for eventless transitions.
	Event string
	// Cond is the raw guard expression; empty means always enabled.
	Cond string
	// Targets are target state IDs; empty for an internal transition.
	Targets []string
	Actions []Action
	// DocIndex orders transitions across the whole document.
	DocIndex int
}

// ActionKind discriminates executable content.
type ActionKind int

const (
	// ActionAssign writes the value of an expression to a variable.
	ActionAssign ActionKind = iota
	// ActionRaise places an event on the internal queue.
	ActionRaise
	// ActionSend emits an event toward the other automata.
	ActionSend
	// ActionLog is diagnostic output; it carries no model semantics.
	ActionLog
)

// Action is one piece of executable content in entry/exit handlers or
// transition bodies.
type Action struct {
	Kind     ActionKind
	Location string  // assign: target variable, optionally var[index]
	Expr     string  // assign value / log expression
	Event    string  // raise / send event name
	Params   []Param // send payload
	Label    string  // log label
}

// Param is one named payload expression of a send action.
type Param struct {
	Name string
	Expr string
}

// Variable is an automaton-local data declaration. Type is inferred from
// the declared type attribute or, failing that, from the initial-value
// expression during validation.
type Variable struct {
	ID       string
	TypeName string // raw declared type, may be empty
	Init     string // raw initial-value expression
	Type     expr.Type
}

// StateByID returns the state with the given ID, or nil.
func (c *Chart) StateByID(id string) *State {
	return c.byID[id]
}

// AllStates returns every state of the chart in document order.
func (c *Chart) AllStates() []*State {
	var out []*State
	var walk func([]*State)
	walk = func(states []*State) {
		for _, s := range states {
			out = append(out, s)
			walk(s.Children)
		}
	}
	walk(c.States)
	return out
}

// AllTransitions returns every transition of the chart in document order.
func (c *Chart) AllTransitions() []*Transition {
	var out []*Transition
	for _, s := range c.AllStates() {
		out = append(out, s.Transitions...)
	}
	return out
}

// IsAncestor reports whether a is a strict ancestor of s.
func (s *State) IsAncestor(a *State) bool {
	for p := s.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

// Path returns the state and its ancestors, innermost first.
func (s *State) Path() []*State {
	var path []*State
	for cur := s; cur != nil; cur = cur.Parent {
		path = append(path, cur)
	}
	return path
}

// InitialChildren returns the child states activated when s is entered:
// the single configured (or first) child of a compound state, all
// children of a parallel state.
func (s *State) InitialChildren() []*State {
	switch s.Kind {
	case Parallel:
		return s.Children
	case Compound:
		if len(s.Initial) > 0 {
			var out []*State
			for _, id := range s.Initial {
				for _, c := range s.Children {
					if c.ID == id {
						out = append(out, c)
					}
				}
			}
			return out
		}
		return s.Children[:1]
	}
	return nil
}
