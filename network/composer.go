package network

import (
	"sort"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/expr"
	"github.com/statechart-tools/janic/jani"
	"github.com/statechart-tools/janic/resolver"
	"github.com/statechart-tools/janic/scxml"
)

// Global is one network-wide data variable declaration.
type Global struct {
	Name string
	Type expr.Type
	// Init is the initial-value expression source; empty means the type's
	// zero value.
	Init string
	Doc  string
}

// EventParams infers the payload variable types of every broadcast
// event by translating each emitter's parameter expressions. A payload
// slot written with incompatible types by different emitters is a
// composition inconsistency. The resulting map is keyed "event.param";
// receivers read the payload under exactly those names.
func EventParams(charts []*scxml.Chart, global expr.Scope) (map[string]expr.Type, error) {
	params := make(map[string]expr.Type)
	for _, c := range charts {
		scope := c.TypeScope(global)
		record := func(actions []scxml.Action, element string) error {
			for _, a := range actions {
				if a.Kind != scxml.ActionSend {
					continue
				}
				for _, p := range a.Params {
					_, typ, err := expr.Translate(p.Expr, scope, c.Doc)
					if err != nil {
						return err
					}
					ref := a.Event + "." + p.Name
					prev, seen := params[ref]
					switch {
					case !seen:
						params[ref] = typ
					case prev.Equal(typ):
					case prev.IsNumeric() && typ.IsNumeric():
						params[ref] = expr.RealType()
					default:
						return diag.New(diag.KindComposition, c.Doc, element,
							"event payload %q sent as %s here but as %s elsewhere", ref, typ, prev)
					}
				}
			}
			return nil
		}
		for _, tr := range c.AllTransitions() {
			if err := record(tr.Actions, tr.Source.ID); err != nil {
				return nil, err
			}
		}
		for _, s := range c.AllStates() {
			if err := record(s.OnEntry, s.ID); err != nil {
				return nil, err
			}
			if err := record(s.OnExit, s.ID); err != nil {
				return nil, err
			}
		}
	}
	return params, nil
}

// Scope builds the network-global type scope the per-automaton
// resolvers translate against: declared globals plus event payload
// variables.
func Scope(globals []Global, params map[string]expr.Type) expr.Scope {
	vars := make(map[string]expr.Type, len(globals)+len(params))
	for _, g := range globals {
		vars[g.Name] = g.Type
	}
	for ref, typ := range params {
		vars[ref] = typ
	}
	return &expr.MapScope{Vars: vars}
}

// Composer assembles resolved automata into one composed network
// model: a merged variable namespace, the per-automaton location
// graphs, and the synchronization-vector table implementing broadcast
// delivery.
type Composer struct {
	name       string
	globals    []Global
	params     map[string]expr.Type
	automata   []*resolver.Automaton
	maxProduct int
}

// NewComposer creates a composer for a network with the given model name.
func NewComposer(name string) *Composer {
	return &Composer{name: name, params: make(map[string]expr.Type), maxProduct: 50000}
}

// WithMaxProduct bounds the joint-location exploration that prunes
// unreachable synchronization vectors. Past the bound the composer
// keeps the full combination table instead; the extra vectors can
// never fire, so the model stays correct, only larger.
func (c *Composer) WithMaxProduct(max int) *Composer {
	c.maxProduct = max
	return c
}

// WithGlobals declares the network-wide variables.
func (c *Composer) WithGlobals(globals []Global) *Composer {
	c.globals = globals
	return c
}

// WithParams declares the event payload variables, keyed "event.param".
func (c *Composer) WithParams(params map[string]expr.Type) *Composer {
	c.params = params
	return c
}

// Add appends one resolved automaton. Composition order is declaration
// order; the vector table indexes automata by this order.
func (c *Composer) Add(a *resolver.Automaton) *Composer {
	c.automata = append(c.automata, a)
	return c
}

// Compose builds the network model. Every local variable is merged
// into the global namespace under "<automaton>.<variable>"; name
// collisions anywhere in the merged namespace are composition errors.
func (c *Composer) Compose() (*jani.Model, error) {
	model := jani.New(c.name)
	model.AddFeature("derived-operators")

	declared := make(map[string]string) // merged name -> declaring document
	declare := func(name, doc string) error {
		if prev, ok := declared[name]; ok {
			return diag.New(diag.KindComposition, doc, name,
				"variable %q already declared by %s", name, prev)
		}
		declared[name] = doc
		return nil
	}

	globalScope := Scope(c.globals, c.params)
	for _, g := range c.globals {
		if err := declare(g.Name, g.Doc); err != nil {
			return nil, err
		}
		initial, err := c.globalInitial(g, globalScope)
		if err != nil {
			return nil, err
		}
		model.Variables = append(model.Variables, jani.Variable{
			Name: g.Name, Type: janiType(g.Type, model), Initial: initial,
		})
	}

	for _, ref := range sortedKeys(c.params) {
		if err := declare(ref, "network"); err != nil {
			return nil, err
		}
		typ := c.params[ref]
		model.Variables = append(model.Variables, jani.Variable{
			Name: ref, Type: janiType(typ, model), Initial: defaultValue(typ),
		})
	}

	seenAutomata := make(map[string]bool)
	for _, a := range c.automata {
		if seenAutomata[a.Chart.Name] {
			return nil, diag.New(diag.KindComposition, a.Chart.Doc, a.Chart.Name,
				"duplicate automaton instance name %q", a.Chart.Name)
		}
		seenAutomata[a.Chart.Name] = true

		rename := localRenamer(a.Chart)
		for _, v := range a.Chart.Variables {
			merged := a.Chart.Name + "." + v.ID
			if err := declare(merged, a.Chart.Doc); err != nil {
				return nil, err
			}
			initial, err := c.localInitial(a, v, globalScope, rename)
			if err != nil {
				return nil, err
			}
			model.Variables = append(model.Variables, jani.Variable{
				Name: merged, Type: janiType(v.Type, model), Initial: initial,
			})
		}

		model.Automata = append(model.Automata, c.buildAutomaton(a, rename))
	}

	if err := c.buildSystem(model); err != nil {
		return nil, err
	}
	return model, nil
}

// localRenamer maps an automaton's local variable references onto their
// merged network-global names, leaving globals and payload references
// untouched.
func localRenamer(chart *scxml.Chart) func(string) string {
	locals := make(map[string]bool, len(chart.Variables))
	for _, v := range chart.Variables {
		locals[v.ID] = true
	}
	return func(name string) string {
		if locals[name] {
			return chart.Name + "." + name
		}
		return name
	}
}

func (c *Composer) globalInitial(g Global, scope expr.Scope) (*jani.Expression, error) {
	if g.Init == "" {
		return defaultValue(g.Type), nil
	}
	value, typ, err := expr.Translate(g.Init, scope, g.Doc)
	if err != nil {
		return nil, err
	}
	if !typ.Equal(g.Type) && !(g.Type.Kind == expr.KindReal && typ.IsNumeric()) {
		return nil, diag.New(diag.KindComposition, g.Doc, g.Name,
			"initial value of %q has type %s, declared %s", g.Name, typ, g.Type)
	}
	return value, nil
}

func (c *Composer) localInitial(a *resolver.Automaton, v *scxml.Variable, global expr.Scope, rename func(string) string) (*jani.Expression, error) {
	if v.Init == "" {
		return defaultValue(v.Type), nil
	}
	scope := a.Chart.TypeScope(global)
	value, _, err := expr.Translate(v.Init, scope, a.Chart.Doc)
	if err != nil {
		return nil, err
	}
	return jani.Rename(value, rename), nil
}

// buildAutomaton lowers one resolved automaton into its model form,
// applying the merged variable names and the broadcast action labels.
func (c *Composer) buildAutomaton(a *resolver.Automaton, rename func(string) string) jani.Automaton {
	out := jani.Automaton{
		Name:             a.Chart.Name,
		InitialLocations: []string{a.Initial.Name},
	}
	for _, loc := range a.Locations {
		out.Locations = append(out.Locations, jani.Location{Name: loc.Name})
	}
	for _, e := range a.Edges {
		edge := jani.Edge{Location: e.From.Name}
		switch {
		case e.Off:
			edge.Action = offLabel(e.Trigger)
		case e.Trigger != "":
			edge.Action = recvLabel(e.Trigger)
		case e.Emit != "":
			edge.Action = emitLabel(e.Emit)
		}
		if e.Guard != nil {
			edge.Guard = &jani.Guard{Exp: jani.Rename(e.Guard, rename)}
		}
		dest := jani.Destination{Location: e.To.Name}
		for _, asg := range e.Assignments {
			dest.Assignments = append(dest.Assignments, jani.Assignment{
				Ref:   rename(asg.Ref),
				Value: jani.Rename(asg.Value, rename),
				Index: asg.Index,
			})
		}
		edge.Destinations = []jani.Destination{dest}
		out.Edges = append(out.Edges, edge)
	}
	return out
}

func emitLabel(event string) string { return event + "_emit" }
func recvLabel(event string) string { return event + "_recv" }
func offLabel(event string) string  { return event + "_off" }

func strptr(s string) *string { return &s }

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]expr.Type) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedEventSet(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// janiType lowers a scripting-subset type, recording the array feature
// when one appears anywhere in the model.
func janiType(t expr.Type, model *jani.Model) jani.Type {
	switch t.Kind {
	case expr.KindBool:
		return jani.BoolType()
	case expr.KindInt:
		return jani.IntType()
	case expr.KindReal:
		return jani.RealType()
	case expr.KindArray:
		model.AddFeature("arrays")
		return jani.ArrayType(janiType(*t.Elem, model))
	}
	return jani.IntType()
}

// defaultValue is the zero value of a type: false, 0, 0.0, or an array
// of element zero values.
func defaultValue(t expr.Type) *jani.Expression {
	switch t.Kind {
	case expr.KindBool:
		return jani.Bool(false)
	case expr.KindInt:
		return jani.Int(0)
	case expr.KindReal:
		return jani.Real(0)
	case expr.KindArray:
		elems := make([]*jani.Expression, t.Size)
		for i := range elems {
			elems[i] = defaultValue(*t.Elem)
		}
		return jani.ArrayValue(elems)
	}
	return jani.Int(0)
}
