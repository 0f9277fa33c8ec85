package network

import (
	"sort"
	"strconv"
	"strings"

	"github.com/statechart-tools/janic/jani"
	"github.com/statechart-tools/janic/resolver"
)

// buildSystem derives the synchronization-vector table. For every
// broadcast event, one vector per reachable combination of
// participating automata: the emitter (or nobody, for events only the
// environment can supply), every automaton with an enabled receiving
// edge, and pass-through slots for the involved automata with nothing
// enabled. In any joint state at most one vector per emitter is
// enabled, so delivery is all-at-once and never partial.
//
// Reachable combinations are found by exploring the joint location
// space, guard-agnostic: every guarded branch counts as possible.
// When the exploration bound is exceeded the composer falls back to
// the full combination table, which is a superset containing vectors
// that can never fire.
func (c *Composer) buildSystem(model *jani.Model) error {
	for _, a := range c.automata {
		model.System.Elements = append(model.System.Elements, jani.Element{Automaton: a.Chart.Name})
	}
	e := newExplorer(c.automata)
	syncs, complete := e.explore(c.maxProduct)
	if !complete {
		syncs = e.fullTable()
	}
	model.System.Syncs = syncs
	for _, s := range syncs {
		for _, slot := range s.Synchronise {
			if slot != nil {
				model.AddAction(*slot)
			}
		}
		model.AddAction(s.Result)
	}
	// Labels on edges whose combinations were all pruned still need a
	// declaration; without a vector they simply never fire.
	for i := range model.Automata {
		for _, edge := range model.Automata[i].Edges {
			if edge.Action != "" {
				model.AddAction(edge.Action)
			}
		}
	}
	return nil
}

// explorer walks the joint location space of the composed automata.
type explorer struct {
	automata []*resolver.Automaton
	// edgesFrom[i][loc] lists automaton i's edges out of location loc,
	// in resolver order.
	edgesFrom [][][]*resolver.Edge
	// recvNext[i][loc][event] lists the receiving-edge targets.
	recvNext []map[int]map[string][]int
	// hasOff[i][loc][event] marks a pass-through self-loop.
	hasOff []map[int]map[string]bool
	// involved[event] lists the automata carrying any edge for the
	// event, ascending. Each owns a slot in every vector of the event.
	involved map[string][]int
	// envEvents are consumed somewhere but emitted nowhere: only the
	// environment can supply them, at any stable point.
	envEvents []string

	seen    map[string]bool
	queue   [][]int
	vecSeen map[string]bool
	syncs   []jani.Sync
}

func newExplorer(automata []*resolver.Automaton) *explorer {
	n := len(automata)
	e := &explorer{
		automata:  automata,
		edgesFrom: make([][][]*resolver.Edge, n),
		recvNext:  make([]map[int]map[string][]int, n),
		hasOff:    make([]map[int]map[string]bool, n),
		involved:  make(map[string][]int),
		seen:      make(map[string]bool),
		vecSeen:   make(map[string]bool),
	}

	emitted := make(map[string]bool)
	consumed := make(map[string]bool)
	involvedSet := make(map[string]map[int]bool)
	for i, a := range automata {
		e.edgesFrom[i] = make([][]*resolver.Edge, len(a.Locations))
		e.recvNext[i] = make(map[int]map[string][]int)
		e.hasOff[i] = make(map[int]map[string]bool)
		for _, edge := range a.Edges {
			from := edge.From.Index
			e.edgesFrom[i][from] = append(e.edgesFrom[i][from], edge)
			switch {
			case edge.Off:
				offs := e.hasOff[i][from]
				if offs == nil {
					offs = make(map[string]bool)
					e.hasOff[i][from] = offs
				}
				offs[edge.Trigger] = true
			case edge.Trigger != "":
				recvs := e.recvNext[i][from]
				if recvs == nil {
					recvs = make(map[string][]int)
					e.recvNext[i][from] = recvs
				}
				recvs[edge.Trigger] = append(recvs[edge.Trigger], edge.To.Index)
			}
		}
		for _, event := range a.Triggers {
			consumed[event] = true
			if involvedSet[event] == nil {
				involvedSet[event] = make(map[int]bool)
			}
			involvedSet[event][i] = true
		}
		for _, event := range a.Emits {
			emitted[event] = true
		}
	}
	for event, set := range involvedSet {
		for i := range set {
			e.involved[event] = append(e.involved[event], i)
		}
		sort.Ints(e.involved[event])
	}
	for event := range consumed {
		if !emitted[event] {
			e.envEvents = append(e.envEvents, event)
		}
	}
	sort.Strings(e.envEvents)
	return e
}

// explore runs the bounded joint-location search. The boolean result
// is false when the bound was hit before the space was exhausted.
func (e *explorer) explore(maxStates int) ([]jani.Sync, bool) {
	initial := make([]int, len(e.automata))
	for i, a := range e.automata {
		initial[i] = a.Initial.Index
	}
	e.push(initial)

	explored := 0
	for len(e.queue) > 0 {
		if explored >= maxStates {
			return nil, false
		}
		explored++
		state := e.queue[0]
		e.queue = e.queue[1:]

		for i := range e.automata {
			for _, edge := range e.edgesFrom[i][state[i]] {
				switch {
				case edge.Emit != "":
					e.broadcast(state, i, edge.Emit, edge.To.Index)
				case edge.Trigger == "":
					e.push(moved(state, i, edge.To.Index))
				}
			}
		}
		for _, event := range e.envEvents {
			e.broadcast(state, -1, event, -1)
		}
	}
	return e.syncs, true
}

// broadcast records the delivery combinations of one emission (or one
// environment event, sender -1) from a joint state, and queues the
// joint successors. A combination exists only when every involved
// automaton can take a slot here; otherwise the emission waits until
// the automata mid-macrostep reach a stable location.
func (e *explorer) broadcast(state []int, sender int, event string, senderTarget int) {
	var participants []int
	for _, j := range e.involved[event] {
		if j != sender {
			participants = append(participants, j)
		}
	}
	for _, j := range participants {
		if len(e.recvNext[j][state[j]][event]) == 0 && !e.hasOff[j][state[j]][event] {
			return
		}
	}

	on := make([]bool, len(participants))
	var assign func(k int)
	assign = func(k int) {
		if k < len(participants) {
			j := participants[k]
			if len(e.recvNext[j][state[j]][event]) > 0 {
				on[k] = true
				assign(k + 1)
			}
			if e.hasOff[j][state[j]][event] {
				on[k] = false
				assign(k + 1)
			}
			return
		}

		anyOn := false
		for _, o := range on {
			anyOn = anyOn || o
		}
		if sender < 0 && !anyOn {
			return // nobody listening; the environment event is dropped
		}
		e.record(sender, event, participants, on)
		e.successors(state, sender, event, senderTarget, participants, on, 0, state)
	}
	assign(0)
}

// record emits the vector for one combination, once.
func (e *explorer) record(sender int, event string, participants []int, on []bool) {
	slots := make([]*string, len(e.automata))
	if sender >= 0 {
		slots[sender] = strptr(emitLabel(event))
	}
	for k, j := range participants {
		if on[k] {
			slots[j] = strptr(recvLabel(event))
		} else {
			slots[j] = strptr(offLabel(event))
		}
	}
	var key strings.Builder
	for _, s := range slots {
		if s != nil {
			key.WriteString(*s)
		}
		key.WriteByte('|')
	}
	if e.vecSeen[key.String()] {
		return
	}
	e.vecSeen[key.String()] = true
	e.syncs = append(e.syncs, jani.Sync{Synchronise: slots, Result: event})
}

// successors pushes every joint state a combination can step to,
// branching over each participating receiver's edge choices.
func (e *explorer) successors(state []int, sender int, event string, senderTarget int, participants []int, on []bool, k int, next []int) {
	if k == len(participants) {
		final := append([]int(nil), next...)
		if sender >= 0 {
			final[sender] = senderTarget
		}
		e.push(final)
		return
	}
	j := participants[k]
	if !on[k] {
		e.successors(state, sender, event, senderTarget, participants, on, k+1, next)
		return
	}
	for _, target := range e.recvNext[j][state[j]][event] {
		e.successors(state, sender, event, senderTarget, participants, on, k+1, moved(next, j, target))
	}
}

func (e *explorer) push(state []int) {
	key := jointKey(state)
	if e.seen[key] {
		return
	}
	e.seen[key] = true
	e.queue = append(e.queue, state)
}

func moved(state []int, i, to int) []int {
	next := append([]int(nil), state...)
	next[i] = to
	return next
}

func jointKey(state []int) string {
	var b strings.Builder
	for _, loc := range state {
		b.WriteString(strconv.Itoa(loc))
		b.WriteByte(',')
	}
	return b.String()
}

// fullTable enumerates every combination regardless of joint
// reachability: per emitter and event, each involved automaton takes
// its receive or pass-through label in all ways it supports anywhere.
func (e *explorer) fullTable() []jani.Sync {
	n := len(e.automata)
	canRecv := make([]map[string]bool, n)
	canOff := make([]map[string]bool, n)
	for i, a := range e.automata {
		canRecv[i] = make(map[string]bool)
		canOff[i] = make(map[string]bool)
		for _, edge := range a.Edges {
			if edge.Off {
				canOff[i][edge.Trigger] = true
			} else if edge.Trigger != "" {
				canRecv[i][edge.Trigger] = true
			}
		}
	}

	events := make(map[string]bool)
	for _, a := range e.automata {
		for _, event := range a.Emits {
			events[event] = true
		}
	}
	for _, event := range e.envEvents {
		events[event] = true
	}

	var syncs []jani.Sync
	emitFor := func(event string, sender int) {
		var participants []int
		for _, j := range e.involved[event] {
			if j != sender {
				participants = append(participants, j)
			}
		}
		for mask := 0; mask < 1<<len(participants); mask++ {
			slots := make([]*string, n)
			if sender >= 0 {
				slots[sender] = strptr(emitLabel(event))
			}
			ok := true
			anyOn := false
			for k, j := range participants {
				if mask&(1<<k) != 0 {
					if !canRecv[j][event] {
						ok = false
						break
					}
					slots[j] = strptr(recvLabel(event))
					anyOn = true
				} else {
					if !canOff[j][event] {
						ok = false
						break
					}
					slots[j] = strptr(offLabel(event))
				}
			}
			if !ok || (sender < 0 && !anyOn) {
				continue
			}
			syncs = append(syncs, jani.Sync{Synchronise: slots, Result: event})
		}
	}

	for _, event := range sortedEventSet(events) {
		if contains(e.envEvents, event) {
			emitFor(event, -1)
			continue
		}
		for i, a := range e.automata {
			if contains(a.Emits, event) {
				emitFor(event, i)
			}
		}
	}
	return syncs
}
