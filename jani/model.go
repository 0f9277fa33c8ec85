// Package jani holds the target automata-network model: typed variables,
// automata built from flat locations and guarded edges, and the
// synchronization table that composes them into one network. The package
// also serializes the model to the interchange JSON shape and checks the
// result against the target schema before it leaves the compiler.
package jani

import (
	json "github.com/goccy/go-json"
)

// Version is the interchange format version the emitter targets.
const Version = 1

// ModelType identifies the semantics of the emitted network.
// Nondeterministic choice with optional probability weights maps to "mdp".
const ModelType = "mdp"

// TypeKind discriminates variable types.
type TypeKind int

const (
	TypeBool TypeKind = iota
	TypeInt
	TypeReal
	TypeBounded // bounded int
	TypeArray
)

// Type is a variable type in the target model.
type Type struct {
	Kind  TypeKind
	Base  *Type       // array element type
	Lower *Expression // bounded only
	Upper *Expression // bounded only
}

// BoolType returns the boolean type.
func BoolType() Type { return Type{Kind: TypeBool} }

// IntType returns the unbounded integer type.
func IntType() Type { return Type{Kind: TypeInt} }

// RealType returns the real type.
func RealType() Type { return Type{Kind: TypeReal} }

// BoundedInt returns an integer type restricted to [lower, upper].
func BoundedInt(lower, upper int64) Type {
	return Type{Kind: TypeBounded, Lower: Int(lower), Upper: Int(upper)}
}

// ArrayType returns a fixed-size array type over base.
func ArrayType(base Type) Type {
	b := base
	return Type{Kind: TypeArray, Base: &b}
}

// MarshalJSON renders basic types as bare strings and structured types as
// objects, per the interchange schema.
func (t Type) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TypeBool:
		return json.Marshal("bool")
	case TypeInt:
		return json.Marshal("int")
	case TypeReal:
		return json.Marshal("real")
	case TypeBounded:
		return json.Marshal(map[string]any{
			"kind":        "bounded",
			"base":        "int",
			"lower-bound": t.Lower,
			"upper-bound": t.Upper,
		})
	case TypeArray:
		return json.Marshal(map[string]any{"kind": "array", "base": t.Base})
	}
	return json.Marshal(nil)
}

// Variable is a typed variable declaration, global or automaton-local.
type Variable struct {
	Name      string      `json:"name"`
	Type      Type        `json:"type"`
	Transient bool        `json:"transient,omitempty"`
	Initial   *Expression `json:"initial-value,omitempty"`
}

// Action declares a synchronization action label.
type Action struct {
	Name string `json:"name"`
}

// Location is one flat configuration of an automaton.
type Location struct {
	Name string `json:"name"`
}

// Guard wraps a boolean enabling condition.
type Guard struct {
	Exp *Expression `json:"exp"`
}

// Probability wraps an explicit destination weight.
type Probability struct {
	Exp *Expression `json:"exp"`
}

// Assignment updates one variable when an edge is taken. Index orders
// assignments within a destination; lower indices apply first.
type Assignment struct {
	Ref   string      `json:"ref"`
	Value *Expression `json:"value"`
	Index int         `json:"index,omitempty"`
}

// Destination is one probabilistic outcome of an edge. A nil Probability
// means the edge is a plain nondeterministic alternative.
type Destination struct {
	Location    string       `json:"location"`
	Probability *Probability `json:"probability,omitempty"`
	Assignments []Assignment `json:"assignments,omitempty"`
}

// Edge connects a source location to its destinations, optionally labeled
// with a synchronization action and guarded by a boolean expression.
type Edge struct {
	Location     string        `json:"location"`
	Action       string        `json:"action,omitempty"`
	Guard        *Guard        `json:"guard,omitempty"`
	Destinations []Destination `json:"destinations"`
}

// Automaton is one component of the network.
type Automaton struct {
	Name             string     `json:"name"`
	Variables        []Variable `json:"variables,omitempty"`
	Locations        []Location `json:"locations"`
	InitialLocations []string   `json:"initial-locations"`
	Edges            []Edge     `json:"edges"`
}

// Element names one automaton instance participating in the composition.
type Element struct {
	Automaton string `json:"automaton"`
}

// Sync is one synchronization vector: slot i names the action element i
// participates with, or nil when element i does not take part.
type Sync struct {
	Synchronise []*string `json:"synchronise"`
	Result      string    `json:"result,omitempty"`
}

// Composition is the system line: the element list plus the vector table.
type Composition struct {
	Elements []Element `json:"elements"`
	Syncs    []Sync    `json:"syncs,omitempty"`
}

// RestrictInitial constrains the initial variable valuation.
type RestrictInitial struct {
	Exp *Expression `json:"exp"`
}

// Model is the complete composed network.
type Model struct {
	JaniVersion     int              `json:"jani-version"`
	Name            string           `json:"name"`
	Type            string           `json:"type"`
	Features        []string         `json:"features,omitempty"`
	Actions         []Action         `json:"actions,omitempty"`
	Variables       []Variable       `json:"variables,omitempty"`
	RestrictInitial *RestrictInitial `json:"restrict-initial,omitempty"`
	Automata        []Automaton      `json:"automata"`
	System          Composition      `json:"system"`
}

// New returns an empty network model with the version and type fields set.
func New(name string) *Model {
	return &Model{JaniVersion: Version, Name: name, Type: ModelType}
}

// AddFeature records a format feature the model relies on (e.g. "arrays").
// Duplicates are ignored.
func (m *Model) AddFeature(feature string) {
	for _, f := range m.Features {
		if f == feature {
			return
		}
	}
	m.Features = append(m.Features, feature)
}

// AddAction declares an action label, ignoring duplicates.
func (m *Model) AddAction(name string) {
	for _, a := range m.Actions {
		if a.Name == name {
			return
		}
	}
	m.Actions = append(m.Actions, Action{Name: name})
}

// Marshal renders the model as indented interchange JSON.
func (m *Model) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
