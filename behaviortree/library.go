package behaviortree

import (
	"fmt"
	"strconv"
	"strings"
)

// A Generator produces the statechart template text for one node type,
// given the child count and the node's parameters. Templates carry
// placeholders the expander substitutes per instance:
//
//	$ID                 instance identifier (chart name)
//	$TICK               tick event from the parent
//	$SUCCESS $FAILURE $RUNNING
//	                    status events back to the parent
//	$CHILD_k_TICK       tick event to child k (1-based)
//	$CHILD_k_SUCCESS $CHILD_k_FAILURE $CHILD_k_RUNNING
//	                    status events from child k
type Generator func(children int, params map[string]string) (string, error)

// Library maps node type names to their template generators.
type Library struct {
	gens map[string]Generator
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{gens: make(map[string]Generator)}
}

// Register adds or replaces the generator for a node type.
func (l *Library) Register(nodeType string, g Generator) {
	l.gens[nodeType] = g
}

// Lookup returns the generator for a node type.
func (l *Library) Lookup(nodeType string) (Generator, bool) {
	g, ok := l.gens[nodeType]
	return g, ok
}

// RegisterChart adds a leaf node type backed by a fixed statechart
// template. The text may use the $ID/$TICK/status placeholders; leaf
// templates take no children.
func (l *Library) RegisterChart(nodeType, template string) {
	l.gens[nodeType] = func(children int, _ map[string]string) (string, error) {
		if children != 0 {
			return "", fmt.Errorf("%s is a leaf node, got %d children", nodeType, children)
		}
		return template, nil
	}
}

// DefaultLibrary returns the standard control nodes: Sequence,
// Fallback, Parallel, and the constant leaves AlwaysSuccess and
// AlwaysFailure.
func DefaultLibrary() *Library {
	l := NewLibrary()
	l.Register("Sequence", sequenceTemplate)
	l.Register("Fallback", fallbackTemplate)
	l.Register("Parallel", parallelTemplate)
	l.RegisterChart("AlwaysSuccess", `<scxml name="$ID" initial="idle">
  <state id="idle">
    <transition event="$TICK" target="idle">
      <send event="$SUCCESS"/>
    </transition>
  </state>
</scxml>`)
	l.RegisterChart("AlwaysFailure", `<scxml name="$ID" initial="idle">
  <state id="idle">
    <transition event="$TICK" target="idle">
      <send event="$FAILURE"/>
    </transition>
  </state>
</scxml>`)
	return l
}

// sequenceTemplate ticks children left to right: any failure or
// running status reports immediately without ticking the remaining
// siblings; success of the last child reports success.
func sequenceTemplate(n int, _ map[string]string) (string, error) {
	return chainTemplate(n, "SUCCESS", "FAILURE")
}

// fallbackTemplate is the sequence dual: tick until a child succeeds,
// report failure only when every child failed.
func fallbackTemplate(n int, _ map[string]string) (string, error) {
	return chainTemplate(n, "FAILURE", "SUCCESS")
}

// chainTemplate builds the shared sequence/fallback chart: advance on
// the continuing status, stop and report on the halting one.
func chainTemplate(n int, advance, halt string) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("needs at least one child")
	}
	var b strings.Builder
	b.WriteString("<scxml name=\"$ID\" initial=\"idle\">\n")
	b.WriteString("  <state id=\"idle\">\n")
	b.WriteString("    <transition event=\"$TICK\" target=\"wait_1\">\n")
	b.WriteString("      <send event=\"$CHILD_1_TICK\"/>\n")
	b.WriteString("    </transition>\n")
	b.WriteString("  </state>\n")
	for k := 1; k <= n; k++ {
		fmt.Fprintf(&b, "  <state id=\"wait_%d\">\n", k)
		if k < n {
			fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_%s\" target=\"wait_%d\">\n", k, advance, k+1)
			fmt.Fprintf(&b, "      <send event=\"$CHILD_%d_TICK\"/>\n", k+1)
			b.WriteString("    </transition>\n")
		} else {
			fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_%s\" target=\"idle\">\n", k, advance)
			fmt.Fprintf(&b, "      <send event=\"$%s\"/>\n", advance)
			b.WriteString("    </transition>\n")
		}
		fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_%s\" target=\"idle\">\n", k, halt)
		fmt.Fprintf(&b, "      <send event=\"$%s\"/>\n", halt)
		b.WriteString("    </transition>\n")
		fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_RUNNING\" target=\"idle\">\n", k)
		b.WriteString("      <send event=\"$RUNNING\"/>\n")
		b.WriteString("    </transition>\n")
		b.WriteString("  </state>\n")
	}
	b.WriteString("</scxml>\n")
	return b.String(), nil
}

// parallelTemplate ticks all children at once and combines statuses by
// threshold: success once success_count children succeeded, failure
// once too many failed for the threshold to remain reachable, running
// when all children reported without a verdict.
func parallelTemplate(n int, params map[string]string) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("needs at least one child")
	}
	threshold := n
	if s, ok := params["success_count"]; ok {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > n {
			return "", fmt.Errorf("success_count %q must be an integer in 1..%d", s, n)
		}
		threshold = v
	}
	failLimit := n - threshold // tolerable failures

	var b strings.Builder
	b.WriteString("<scxml name=\"$ID\" initial=\"idle\">\n")
	b.WriteString("  <datamodel>\n")
	b.WriteString("    <data id=\"succ\" expr=\"0\"/>\n")
	b.WriteString("    <data id=\"fail\" expr=\"0\"/>\n")
	b.WriteString("    <data id=\"done\" expr=\"0\"/>\n")
	b.WriteString("  </datamodel>\n")
	b.WriteString("  <state id=\"idle\">\n")
	b.WriteString("    <transition event=\"$TICK\" target=\"busy\">\n")
	b.WriteString("      <assign location=\"succ\" expr=\"0\"/>\n")
	b.WriteString("      <assign location=\"fail\" expr=\"0\"/>\n")
	b.WriteString("      <assign location=\"done\" expr=\"0\"/>\n")
	for k := 1; k <= n; k++ {
		fmt.Fprintf(&b, "      <send event=\"$CHILD_%d_TICK\"/>\n", k)
	}
	b.WriteString("    </transition>\n")
	b.WriteString("  </state>\n")
	b.WriteString("  <state id=\"busy\">\n")
	for k := 1; k <= n; k++ {
		// Verdict guards check the count including this report.
		fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_SUCCESS\" cond=\"succ + 1 &gt;= %d\" target=\"idle\">\n", k, threshold)
		b.WriteString("      <send event=\"$SUCCESS\"/>\n")
		b.WriteString("    </transition>\n")
		fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_SUCCESS\" cond=\"done + 1 &gt;= %d\" target=\"idle\">\n", k, n)
		b.WriteString("      <send event=\"$RUNNING\"/>\n")
		b.WriteString("    </transition>\n")
		fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_SUCCESS\">\n", k)
		b.WriteString("      <assign location=\"succ\" expr=\"succ + 1\"/>\n")
		b.WriteString("      <assign location=\"done\" expr=\"done + 1\"/>\n")
		b.WriteString("    </transition>\n")
		fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_FAILURE\" cond=\"fail + 1 &gt; %d\" target=\"idle\">\n", k, failLimit)
		b.WriteString("      <send event=\"$FAILURE\"/>\n")
		b.WriteString("    </transition>\n")
		fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_FAILURE\" cond=\"done + 1 &gt;= %d\" target=\"idle\">\n", k, n)
		b.WriteString("      <send event=\"$RUNNING\"/>\n")
		b.WriteString("    </transition>\n")
		fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_FAILURE\">\n", k)
		b.WriteString("      <assign location=\"fail\" expr=\"fail + 1\"/>\n")
		b.WriteString("      <assign location=\"done\" expr=\"done + 1\"/>\n")
		b.WriteString("    </transition>\n")
		fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_RUNNING\" cond=\"done + 1 &gt;= %d\" target=\"idle\">\n", k, n)
		b.WriteString("      <send event=\"$RUNNING\"/>\n")
		b.WriteString("    </transition>\n")
		fmt.Fprintf(&b, "    <transition event=\"$CHILD_%d_RUNNING\">\n", k)
		b.WriteString("      <assign location=\"done\" expr=\"done + 1\"/>\n")
		b.WriteString("    </transition>\n")
	}
	b.WriteString("  </state>\n")
	b.WriteString("</scxml>\n")
	return b.String(), nil
}
