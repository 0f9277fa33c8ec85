// Package network composes the resolved automata and the global
// declarations into one automata network: it classifies events,
// derives the synchronization-vector table for every broadcast, merges
// all variables into one collision-checked namespace, and preserves
// each automaton's initial location and valuation as the network's
// single initial state.
package network

import (
	"github.com/statechart-tools/janic/scxml"
)

// eventUsage records which charts raise and which charts listen for an
// event, and whether any raise goes through <send>.
type eventUsage struct {
	raisedBy    map[string]bool // chart name -> raises via <raise>
	sentBy      map[string]bool // chart name -> emits via <send>
	triggeredBy map[string]bool
}

// ClassifyEvents determines, per chart, the set of events that stay
// internal to it: raised only by it, via <raise>, and consumed by no
// other chart. Everything else crosses automaton boundaries and is
// implemented as a broadcast synchronization. Classification happens
// before resolution because the resolver folds internal events into
// its macrostep closure.
func ClassifyEvents(charts []*scxml.Chart) map[string]map[string]bool {
	usage := make(map[string]*eventUsage)
	use := func(event string) *eventUsage {
		u := usage[event]
		if u == nil {
			u = &eventUsage{
				raisedBy:    make(map[string]bool),
				sentBy:      make(map[string]bool),
				triggeredBy: make(map[string]bool),
			}
			usage[event] = u
		}
		return u
	}

	for _, c := range charts {
		for _, tr := range c.AllTransitions() {
			if tr.Event != "" {
				use(tr.Event).triggeredBy[c.Name] = true
			}
			collectRaises(c.Name, tr.Actions, use)
		}
		for _, s := range c.AllStates() {
			collectRaises(c.Name, s.OnEntry, use)
			collectRaises(c.Name, s.OnExit, use)
		}
	}

	internal := make(map[string]map[string]bool, len(charts))
	for _, c := range charts {
		internal[c.Name] = make(map[string]bool)
	}
	for event, u := range usage {
		if len(u.sentBy) > 0 {
			continue // <send> always addresses the network
		}
		if len(u.raisedBy) != 1 {
			continue
		}
		var owner string
		for name := range u.raisedBy {
			owner = name
		}
		for name := range u.triggeredBy {
			if name != owner {
				owner = ""
				break
			}
		}
		if owner != "" {
			internal[owner][event] = true
		}
	}
	return internal
}

func collectRaises(chart string, actions []scxml.Action, use func(string) *eventUsage) {
	for _, a := range actions {
		switch a.Kind {
		case scxml.ActionRaise:
			use(a.Event).raisedBy[chart] = true
		case scxml.ActionSend:
			use(a.Event).sentBy[chart] = true
		}
	}
}
