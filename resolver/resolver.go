// Package resolver flattens one hierarchical statechart automaton into
// the set of reachable flat locations and the guarded edges between
// them, reproducing the statechart microstep semantics: configuration
// expansion, priority-based transition selection, and the
// eventless-transition closure that precedes every event consumption.
//
// A location is a (configuration, pending-internal-events) pair. Keeping
// the pending queue in the location makes the microstep structure
// explicit in the emitted model, so guards always read the variable
// state produced by the microsteps before them.
package resolver

import (
	"sort"
	"strings"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/expr"
	"github.com/statechart-tools/janic/jani"
	"github.com/statechart-tools/janic/scxml"
)

// Location is one reachable flat configuration of the automaton.
type Location struct {
	Index int
	// Config holds the active atomic state IDs, sorted.
	Config []string
	// Pending holds internal events queued within the current macrostep,
	// oldest first. A location is stable when Pending is empty and it is
	// not an intermediate stage of an edge chain.
	Pending []string
	// Stage marks synthetic intermediate locations created to keep one
	// emitted event per edge.
	Stage int
	Name  string
}

// Stable reports whether external events may be consumed here.
func (l *Location) Stable() bool { return len(l.Pending) == 0 && l.Stage == 0 }

// Assignment is one lowered variable update. Index preserves execution
// order within an edge.
type Assignment struct {
	Ref   string
	Value *jani.Expression
	Index int
}

// Edge is one realized microstep.
type Edge struct {
	From *Location
	// Trigger is the consumed external event; empty for silent edges
	// (eventless transitions and internal-event processing).
	Trigger string
	// Emit is the external event this edge broadcasts; empty for none.
	// An edge never both consumes and emits.
	Emit string
	// Off marks a receiver self-loop: the automaton participates in the
	// Trigger broadcast without an enabled transition, passing through
	// unchanged. Needed so exactly one synchronization vector is enabled
	// in any joint state.
	Off bool
	// Guard is nil when the edge is always enabled.
	Guard       *jani.Expression
	Assignments []Assignment
	To          *Location
}

// Automaton is the flattening result for one chart.
type Automaton struct {
	Chart     *scxml.Chart
	Locations []*Location
	Initial   *Location
	Edges     []*Edge
	// Triggers holds the external events the automaton can consume.
	Triggers []string
	// Emits holds the external events the automaton can broadcast.
	Emits []string
}

// Resolver flattens one chart.
type Resolver struct {
	chart        *scxml.Chart
	scope        expr.Scope
	internal     map[string]bool
	maxPending   int
	maxLocations int

	locations map[string]*Location
	ordered   []*Location
	edges     []*Edge
	queue     []*Location
	stage     int
}

// New creates a resolver for chart. scope resolves variable references
// (local declarations shadow it); internal lists the events raised and
// consumed entirely within this automaton.
func New(chart *scxml.Chart, global expr.Scope, internal map[string]bool) *Resolver {
	return &Resolver{
		chart:        chart,
		scope:        chart.TypeScope(global),
		internal:     internal,
		maxPending:   16,
		maxLocations: 10000,
		locations:    make(map[string]*Location),
	}
}

// WithMaxPending bounds the internal-event queue length. Exceeding the
// bound is reported as semantic nontermination.
func (r *Resolver) WithMaxPending(max int) *Resolver {
	r.maxPending = max
	return r
}

// WithMaxLocations bounds the explored location count.
func (r *Resolver) WithMaxLocations(max int) *Resolver {
	r.maxLocations = max
	return r
}

// Resolve computes the reachable locations and edges. Unreachable
// configurations are never materialized.
func (r *Resolver) Resolve() (*Automaton, error) {
	initConfig, entryProgram, err := r.initialConfiguration()
	if err != nil {
		return nil, err
	}

	var initial *Location
	if entryProgram.empty() {
		initial, err = r.location(initConfig, nil, 0)
		if err != nil {
			return nil, err
		}
	} else {
		// Entry actions of the initial configuration run on a silent
		// chain out of a synthetic start location.
		initial = &Location{Index: len(r.ordered), Name: "__init", Stage: r.nextStage()}
		r.locations["__init"] = initial
		r.ordered = append(r.ordered, initial)
		if err := r.emitChain(initial, "", nil, entryProgram, initConfig, nil); err != nil {
			return nil, err
		}
	}

	// BFS over (configuration, pending) pairs, in discovery order.
	for len(r.queue) > 0 {
		loc := r.queue[0]
		r.queue = r.queue[1:]
		if err := r.expand(loc); err != nil {
			return nil, err
		}
	}

	if err := r.checkEventlessCycles(); err != nil {
		return nil, err
	}

	a := &Automaton{
		Chart:     r.chart,
		Locations: r.ordered,
		Initial:   initial,
		Edges:     r.edges,
	}
	a.Triggers, a.Emits = r.eventSets()
	return a, nil
}

// location interns the (config, pending) pair, queueing new locations
// for expansion. The pending queue is canonicalized first: events no
// transition in the configuration could ever consume are discarded, per
// statechart semantics for unconsumed events.
func (r *Resolver) location(config, pending []string, stage int) (*Location, error) {
	if stage == 0 {
		pending = r.canonicalPending(config, pending)
	}
	if len(pending) > r.maxPending {
		return nil, diag.New(diag.KindNontermination, r.chart.Doc, r.chart.Name,
			"internal event queue grew past %d events: %s", r.maxPending, strings.Join(pending, ", "))
	}
	name := locationName(config, pending, stage)
	if loc, ok := r.locations[name]; ok {
		return loc, nil
	}
	if len(r.ordered) >= r.maxLocations {
		return nil, diag.New(diag.KindNontermination, r.chart.Doc, r.chart.Name,
			"reachable location count exceeds %d", r.maxLocations)
	}
	loc := &Location{
		Index:   len(r.ordered),
		Config:  append([]string(nil), config...),
		Pending: append([]string(nil), pending...),
		Stage:   stage,
		Name:    name,
	}
	r.locations[name] = loc
	r.ordered = append(r.ordered, loc)
	if stage == 0 {
		r.queue = append(r.queue, loc)
	}
	return loc, nil
}

func (r *Resolver) nextStage() int {
	r.stage++
	return r.stage
}

func locationName(config, pending []string, stage int) string {
	name := strings.Join(config, "__")
	if len(pending) > 0 {
		name += "+" + strings.Join(pending, "+")
	}
	if stage > 0 {
		name += "~" + itoa(stage)
	}
	return name
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// canonicalPending drops leading queued events that no transition in
// the configuration can consume.
func (r *Resolver) canonicalPending(config, pending []string) []string {
	for len(pending) > 0 && !r.consumable(config, pending[0]) {
		pending = pending[1:]
	}
	return pending
}

func (r *Resolver) consumable(config []string, event string) bool {
	return len(r.candidates(config, event)) > 0
}

// expand emits every outgoing edge of a stable or pending-processing
// location.
func (r *Resolver) expand(loc *Location) error {
	if len(loc.Pending) > 0 {
		return r.expandPending(loc)
	}
	return r.expandStable(loc)
}

// expandPending processes the head of the internal queue: one silent
// edge per guard-valuation branch, including the branch where every
// candidate is disabled and the event is discarded.
func (r *Resolver) expandPending(loc *Location) error {
	event := loc.Pending[0]
	tail := loc.Pending[1:]
	cands, err := r.loweredCandidates(config(loc), event)
	if err != nil {
		return err
	}
	selections := enumerateSelections(cands)
	for _, sel := range selections {
		if err := r.applySelection(loc, "", sel, tail); err != nil {
			return err
		}
	}
	return nil
}

// expandStable emits the eventless edges, then the event-consuming
// edges guarded so that consumption only happens once the eventless
// closure is finished, then the pass-through self-loops the composer
// needs for exact broadcast delivery.
func (r *Resolver) expandStable(loc *Location) error {
	cfg := config(loc)

	eventless, err := r.loweredCandidates(cfg, "")
	if err != nil {
		return err
	}
	for _, sel := range enumerateSelections(eventless) {
		if len(sel.taken) == 0 {
			continue // stable under this valuation; no microstep
		}
		if err := r.applySelection(loc, "", sel, nil); err != nil {
			return err
		}
	}

	// The location is busy while any eventless candidate is enabled.
	// An unguarded one means external events are never consumed here.
	stable := jani.Bool(true)
	for _, cand := range eventless {
		if cand.guard == nil {
			return nil
		}
		stable = jani.And(stable, jani.Not(cand.guard))
	}

	for _, event := range r.externalTriggers() {
		cands, err := r.loweredCandidates(cfg, event)
		if err != nil {
			return err
		}
		for _, sel := range enumerateSelections(cands) {
			guardExtra := stable
			if len(sel.taken) == 0 {
				// No transition enabled for this event here: the
				// automaton passes through unchanged.
				off := jani.And(guardExtra, sel.guard)
				edge := &Edge{From: loc, Trigger: event, Off: true, To: loc}
				if !off.IsTrue() {
					edge.Guard = off
				}
				r.edges = append(r.edges, edge)
				continue
			}
			selWithStability := sel
			selWithStability.guard = jani.And(guardExtra, sel.guard)
			if err := r.applySelection(loc, event, selWithStability, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// externalTriggers returns the chart's externally-consumed trigger
// alphabet, sorted for deterministic output.
func (r *Resolver) externalTriggers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, tr := range r.chart.AllTransitions() {
		if tr.Event == "" || r.internal[tr.Event] || seen[tr.Event] {
			continue
		}
		seen[tr.Event] = true
		out = append(out, tr.Event)
	}
	sort.Strings(out)
	return out
}

func (r *Resolver) eventSets() (triggers, emits []string) {
	triggerSet := make(map[string]bool)
	emitSet := make(map[string]bool)
	for _, e := range r.edges {
		if e.Trigger != "" && !e.Off {
			triggerSet[e.Trigger] = true
		}
		if e.Off {
			triggerSet[e.Trigger] = true
		}
		if e.Emit != "" {
			emitSet[e.Emit] = true
		}
	}
	for t := range triggerSet {
		triggers = append(triggers, t)
	}
	for e := range emitSet {
		emits = append(emits, e)
	}
	sort.Strings(triggers)
	sort.Strings(emits)
	return triggers, emits
}

// checkEventlessCycles rejects closures that provably never terminate:
// a cycle of silent, unguarded edges is taken forever regardless of the
// variable state.
func (r *Resolver) checkEventlessCycles() error {
	next := make(map[*Location][]*Location)
	for _, e := range r.edges {
		if e.Trigger == "" && e.Guard == nil {
			next[e.From] = append(next[e.From], e.To)
		}
	}
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[*Location]int)
	var visit func(*Location) bool
	visit = func(l *Location) bool {
		state[l] = visiting
		for _, m := range next[l] {
			switch state[m] {
			case visiting:
				return false
			case unvisited:
				if !visit(m) {
					return false
				}
			}
		}
		state[l] = done
		return true
	}
	for _, l := range r.ordered {
		if state[l] == unvisited && !visit(l) {
			return diag.New(diag.KindNontermination, r.chart.Doc, l.Name,
				"non-terminating eventless cycle")
		}
	}
	return nil
}

func config(loc *Location) []string { return loc.Config }
