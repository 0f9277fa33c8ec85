package resolver

import (
	"sort"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/expr"
	"github.com/statechart-tools/janic/jani"
	"github.com/statechart-tools/janic/scxml"
)

// candidate is one transition that could take part in a microstep for a
// given configuration and event, with its lowered guard and the states
// it would exit.
type candidate struct {
	tr    *scxml.Transition
	guard *jani.Expression // nil when unguarded
	exits map[string]bool  // state IDs left when taken; empty for internal transitions
}

// selection is one resolved outcome of transition selection under a
// fixed guard valuation: the transitions that fire together, plus the
// conjunction of guard literals that makes this the chosen set.
type selection struct {
	taken []*candidate
	guard *jani.Expression // nil means always
}

// candidates collects the transitions of the active tree triggered by
// event, in priority order: transitions on strictly nested sources
// first, document order among the rest. Guards are not inspected here.
func (r *Resolver) candidates(cfg []string, event string) []*scxml.Transition {
	active := r.activeTree(cfg)
	var out []*scxml.Transition
	for _, tr := range r.chart.AllTransitions() {
		if tr.Event != event {
			continue
		}
		if !active[tr.Source.ID] {
			continue
		}
		out = append(out, tr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Source != b.Source {
			if a.Source.IsAncestor(b.Source) {
				return true // a's source nested inside b's: inner wins
			}
			if b.Source.IsAncestor(a.Source) {
				return false
			}
		}
		return a.DocIndex < b.DocIndex
	})
	return out
}

// activeTree returns the IDs of the active atomic states and all their
// ancestors.
func (r *Resolver) activeTree(cfg []string) map[string]bool {
	active := make(map[string]bool)
	for _, id := range cfg {
		for s := r.chart.StateByID(id); s != nil; s = s.Parent {
			active[s.ID] = true
		}
	}
	return active
}

// loweredCandidates translates candidate guards and computes exit sets.
// Candidates whose guard is provably false are discarded here;
// constant-true guards become unguarded.
func (r *Resolver) loweredCandidates(cfg []string, event string) ([]*candidate, error) {
	var out []*candidate
	for _, tr := range r.candidates(cfg, event) {
		c := &candidate{tr: tr}
		if tr.Cond != "" {
			guard, err := expr.TranslateBool(tr.Cond, r.scope, r.chart.Doc)
			if err != nil {
				return nil, r.located(err, tr)
			}
			if guard.IsFalse() {
				continue
			}
			if !guard.IsTrue() {
				c.guard = guard
			}
		}
		c.exits = r.exitSet(cfg, tr)
		out = append(out, c)
	}
	return out, nil
}

// conflicts reports whether two candidates cannot fire in the same
// microstep: their sources serve the same region (one nested in the
// other, or equal), or their exit sets intersect.
func conflicts(a, b *candidate) bool {
	if a.tr.Source == b.tr.Source ||
		a.tr.Source.IsAncestor(b.tr.Source) ||
		b.tr.Source.IsAncestor(a.tr.Source) {
		return true
	}
	for id := range a.exits {
		if b.exits[id] {
			return true
		}
	}
	return false
}

// enumerateSelections resolves transition selection symbolically. The
// runtime rule — take every enabled candidate not preempted by an
// already-taken higher-priority conflicting one — depends on guard
// valuations unknown until checking time, so each valuation branch
// becomes its own selection carrying the guard literals that identify
// it. Preempted candidates are dropped without branching: they cannot
// fire no matter how their guard evaluates.
func enumerateSelections(cands []*candidate) []selection {
	var out []selection
	var rec func(i int, taken []*candidate, guard *jani.Expression)
	rec = func(i int, taken []*candidate, guard *jani.Expression) {
		if i == len(cands) {
			sel := selection{taken: append([]*candidate(nil), taken...), guard: guard}
			out = append(out, sel)
			return
		}
		c := cands[i]
		preempted := false
		for _, t := range taken {
			if conflicts(c, t) {
				preempted = true
				break
			}
		}
		if preempted {
			rec(i+1, taken, guard)
			return
		}
		if c.guard == nil {
			rec(i+1, append(taken, c), guard)
			return
		}
		rec(i+1, append(taken, c), jani.And(guard, c.guard))
		rec(i+1, taken, jani.And(guard, jani.Not(c.guard)))
	}
	rec(0, nil, nil)
	return out
}

// located rewraps a translation error with the automaton and transition
// identifiers the diagnostic contract requires.
func (r *Resolver) located(err error, tr *scxml.Transition) error {
	var e *diag.Error
	if diagErr, ok := err.(*diag.Error); ok {
		e = diagErr
	}
	element := tr.Source.ID + "/transition#" + itoa(tr.DocIndex)
	if e != nil {
		return &diag.Error{Kind: e.Kind, Doc: r.chart.Doc, Element: element, Msg: e.Msg, Err: e.Err}
	}
	return diag.Wrap(err, diag.KindUnresolvedRef, r.chart.Doc, element, "translation failed")
}
