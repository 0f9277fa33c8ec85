package resolver

import (
	"sort"
	"strings"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/expr"
	"github.com/statechart-tools/janic/jani"
	"github.com/statechart-tools/janic/scxml"
)

// progOp is one step of the linearized action program of a microstep:
// exactly one of the fields is meaningful.
type progOp struct {
	assign *Assignment
	raise  string        // internal event queued for this macrostep
	emit   string        // external event broadcast to the network
	params []Assignment  // payload writes committed before the emit
}

type program []progOp

func (p program) empty() bool { return len(p) == 0 }

// lcca returns the lowest common compound ancestor of the given states;
// nil stands for the chart root.
func (r *Resolver) lcca(states []*scxml.State) *scxml.State {
	if len(states) == 0 {
		return nil
	}
	for _, anc := range states[0].Path()[1:] {
		if anc.Kind != scxml.Compound && anc.Kind != scxml.Parallel {
			continue
		}
		all := true
		for _, s := range states[1:] {
			if !s.IsAncestor(anc) {
				all = false
				break
			}
		}
		if all {
			return anc
		}
	}
	return nil
}

// exitSet returns the IDs of the active states a transition leaves:
// every active state strictly inside the transition's domain. Internal
// transitions (no targets) leave nothing.
func (r *Resolver) exitSet(cfg []string, tr *scxml.Transition) map[string]bool {
	if len(tr.Targets) == 0 {
		return nil
	}
	domain := r.transitionDomain(tr)
	exits := make(map[string]bool)
	for _, id := range cfg {
		atom := r.chart.StateByID(id)
		if domain != nil && !atom.IsAncestor(domain) && atom != domain {
			continue
		}
		for s := atom; s != nil && s != domain; s = s.Parent {
			exits[s.ID] = true
		}
	}
	return exits
}

func (r *Resolver) transitionDomain(tr *scxml.Transition) *scxml.State {
	states := []*scxml.State{tr.Source}
	for _, id := range tr.Targets {
		states = append(states, r.chart.StateByID(id))
	}
	return r.lcca(states)
}

// entryList returns the states entered when moving into targets below
// domain, outermost first, including default completions of compound
// and parallel states.
func (r *Resolver) entryList(targets []*scxml.State, domain *scxml.State) []*scxml.State {
	var entered []*scxml.State
	seen := make(map[string]bool)
	add := func(s *scxml.State) {
		if !seen[s.ID] {
			seen[s.ID] = true
			entered = append(entered, s)
		}
	}

	for _, target := range targets {
		var chain []*scxml.State
		for s := target; s != nil && s != domain; s = s.Parent {
			chain = append(chain, s)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			add(chain[i])
		}
	}

	// Default completion: every entered compound state activates one
	// child, every entered parallel state activates all children.
	for i := 0; i < len(entered); i++ {
		s := entered[i]
		switch s.Kind {
		case scxml.Compound:
			hasChild := false
			for _, c := range s.Children {
				if seen[c.ID] {
					hasChild = true
					break
				}
			}
			if !hasChild {
				add(s.InitialChildren()[0])
			}
		case scxml.Parallel:
			for _, c := range s.Children {
				add(c)
			}
		}
	}

	sort.SliceStable(entered, func(i, j int) bool {
		return depth(entered[i]) < depth(entered[j])
	})
	return entered
}

func depth(s *scxml.State) int {
	d := 0
	for p := s.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// transitionStep computes the configuration reached by firing a
// selection and the linearized action program of the microstep:
// exit actions innermost to outermost, entry actions outermost to
// innermost, then the transitions' own actions in priority order.
func (r *Resolver) transitionStep(cfg []string, sel selection) ([]string, program, error) {
	if len(sel.taken) == 0 {
		return cfg, nil, nil
	}

	exited := make(map[string]bool)
	var enteredAll []*scxml.State
	enteredSeen := make(map[string]bool)

	for _, c := range sel.taken {
		for id := range c.exits {
			exited[id] = true
		}
		if len(c.tr.Targets) == 0 {
			continue
		}
		domain := r.transitionDomain(c.tr)
		targets := make([]*scxml.State, len(c.tr.Targets))
		for i, id := range c.tr.Targets {
			targets[i] = r.chart.StateByID(id)
		}
		for _, s := range r.entryList(targets, domain) {
			if !enteredSeen[s.ID] {
				enteredSeen[s.ID] = true
				enteredAll = append(enteredAll, s)
			}
		}
	}

	// Exit order: innermost first, document order among equals.
	var exitStates []*scxml.State
	for id := range exited {
		exitStates = append(exitStates, r.chart.StateByID(id))
	}
	sort.SliceStable(exitStates, func(i, j int) bool {
		di, dj := depth(exitStates[i]), depth(exitStates[j])
		if di != dj {
			return di > dj
		}
		return exitStates[i].DocIndex < exitStates[j].DocIndex
	})
	sort.SliceStable(enteredAll, func(i, j int) bool {
		di, dj := depth(enteredAll[i]), depth(enteredAll[j])
		if di != dj {
			return di < dj
		}
		return enteredAll[i].DocIndex < enteredAll[j].DocIndex
	})

	var prog program
	for _, s := range exitStates {
		p, err := r.translateActions(s.OnExit, s.ID)
		if err != nil {
			return nil, nil, err
		}
		prog = append(prog, p...)
	}
	for _, s := range enteredAll {
		p, err := r.translateActions(s.OnEntry, s.ID)
		if err != nil {
			return nil, nil, err
		}
		prog = append(prog, p...)
	}
	for _, c := range sel.taken {
		p, err := r.translateActions(c.tr.Actions, c.tr.Source.ID)
		if err != nil {
			return nil, nil, err
		}
		prog = append(prog, p...)
	}

	// New configuration: surviving atoms plus the entered atoms.
	var next []string
	for _, id := range cfg {
		if !exited[id] {
			next = append(next, id)
		}
	}
	for _, s := range enteredAll {
		if s.Kind == scxml.Atomic || s.Kind == scxml.Final {
			next = append(next, s.ID)
		}
	}
	sort.Strings(next)
	return next, prog, nil
}

// translateActions lowers executable content into program operations.
func (r *Resolver) translateActions(actions []scxml.Action, element string) (program, error) {
	var prog program
	for _, a := range actions {
		switch a.Kind {
		case scxml.ActionAssign:
			if strings.ContainsAny(a.Location, "[].") {
				return nil, diag.New(diag.KindUnsupported, r.chart.Doc, element,
					"assignment target %q: only plain variable references are supported", a.Location)
			}
			declared, ok := r.scope.Lookup(a.Location)
			if !ok {
				return nil, diag.New(diag.KindUnresolvedRef, r.chart.Doc, element,
					"assignment to undeclared variable %q", a.Location)
			}
			value, typ, err := expr.Translate(a.Expr, r.scope, r.chart.Doc)
			if err != nil {
				return nil, r.relocate(err, element)
			}
			if !typ.Equal(declared) && !(declared.Kind == expr.KindReal && typ.IsNumeric()) {
				return nil, diag.New(diag.KindUnsupported, r.chart.Doc, element,
					"assigning %s value to %s variable %q", typ, declared, a.Location)
			}
			prog = append(prog, progOp{assign: &Assignment{Ref: a.Location, Value: value}})

		case scxml.ActionRaise:
			if r.internal[a.Event] {
				prog = append(prog, progOp{raise: a.Event})
			} else {
				prog = append(prog, progOp{emit: a.Event})
			}

		case scxml.ActionSend:
			op := progOp{emit: a.Event}
			for _, p := range a.Params {
				value, _, err := expr.Translate(p.Expr, r.scope, r.chart.Doc)
				if err != nil {
					return nil, r.relocate(err, element)
				}
				op.params = append(op.params, Assignment{Ref: a.Event + "." + p.Name, Value: value})
			}
			prog = append(prog, op)

		case scxml.ActionLog:
			// Diagnostic output carries no model semantics.
		}
	}
	return prog, nil
}

func (r *Resolver) relocate(err error, element string) error {
	if e, ok := err.(*diag.Error); ok {
		return &diag.Error{Kind: e.Kind, Doc: r.chart.Doc, Element: element, Msg: e.Msg, Err: e.Err}
	}
	return err
}

// applySelection emits the edge chain realizing one selection from loc.
func (r *Resolver) applySelection(loc *Location, trigger string, sel selection, tailPending []string) error {
	next, prog, err := r.transitionStep(config(loc), sel)
	if err != nil {
		return err
	}
	return r.emitChain(loc, trigger, sel.guard, prog, next, tailPending)
}

// edgeStep is one edge of a chain: either a batch of assignments or a
// single broadcast, never both. Broadcast edges stay free of
// assignments so that receivers' guards always read fully committed
// variable state.
type edgeStep struct {
	assigns []Assignment
	emit    string
}

// emitChain realizes one microstep as a chain of edges through
// synthetic intermediate locations: one edge per assignment batch or
// broadcast. Internal raises land on the final location's pending
// queue.
func (r *Resolver) emitChain(from *Location, trigger string, guard *jani.Expression, prog program, targetConfig, basePending []string) error {
	var raised []string
	var steps []edgeStep
	var batch []Assignment
	idx := 0
	flushBatch := func() {
		if len(batch) > 0 {
			steps = append(steps, edgeStep{assigns: batch})
			batch = nil
		}
	}
	for _, op := range prog {
		switch {
		case op.assign != nil:
			a := *op.assign
			a.Index = idx
			idx++
			batch = append(batch, a)
		case op.raise != "":
			raised = append(raised, op.raise)
		case op.emit != "":
			for _, p := range op.params {
				p.Index = idx
				idx++
				batch = append(batch, p)
			}
			flushBatch()
			steps = append(steps, edgeStep{emit: op.emit})
		}
	}
	flushBatch()
	if len(steps) == 0 {
		steps = []edgeStep{{}}
	}
	// A consuming edge cannot also broadcast: give the trigger its own
	// leading edge when the first step emits.
	if trigger != "" && steps[0].emit != "" {
		steps = append([]edgeStep{{}}, steps...)
	}

	pending := append(append([]string(nil), basePending...), raised...)
	final, err := r.location(targetConfig, pending, 0)
	if err != nil {
		return err
	}

	cur := from
	for i, step := range steps {
		to := final
		if i < len(steps)-1 {
			mid, err := r.location(targetConfig, nil, r.nextStage())
			if err != nil {
				return err
			}
			to = mid
		}
		edge := &Edge{From: cur, To: to, Emit: step.emit, Assignments: step.assigns}
		if i == 0 {
			edge.Trigger = trigger
			edge.Guard = guard
		}
		r.edges = append(r.edges, edge)
		cur = to
	}
	return nil
}

// initialConfiguration computes the initially active atoms and the
// entry-action program executed when the automaton starts.
func (r *Resolver) initialConfiguration() ([]string, program, error) {
	root := r.chart.StateByID(r.chart.Initial[0])
	entered := r.entryList([]*scxml.State{root}, nil)

	var cfg []string
	var prog program
	for _, s := range entered {
		if s.Kind == scxml.Atomic || s.Kind == scxml.Final {
			cfg = append(cfg, s.ID)
		}
		p, err := r.translateActions(s.OnEntry, s.ID)
		if err != nil {
			return nil, nil, err
		}
		prog = append(prog, p...)
	}
	sort.Strings(cfg)
	return cfg, prog, nil
}
