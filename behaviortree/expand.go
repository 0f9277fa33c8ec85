package behaviortree

import (
	"fmt"
	"strings"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/scxml"
)

// Expand instantiates the tree into one chart per node plus a driver
// chart that ticks the root in a loop. Each instance gets a fresh
// identifier namespace; per-instance tick and status events wire
// parents to children. Chart order is parent before children, children
// in document order, so downstream priority follows the tree shape.
func Expand(root *Node, lib *Library, doc string) ([]*scxml.Chart, error) {
	e := &expander{lib: lib, doc: doc}
	rootID, charts, err := e.instantiate(root, root.Type)
	if err != nil {
		return nil, err
	}
	driver, err := e.driver(rootID)
	if err != nil {
		return nil, err
	}
	return append([]*scxml.Chart{driver}, charts...), nil
}

type expander struct {
	lib  *Library
	doc  string
	next int
}

// instantiate expands one node and its subtree. pos is the slash path
// of node types from the root, used in diagnostics.
func (e *expander) instantiate(node *Node, pos string) (string, []*scxml.Chart, error) {
	gen, ok := e.lib.Lookup(node.Type)
	if !ok {
		return "", nil, diag.New(diag.KindUnsupported, e.doc, pos,
			"unsupported behavior-tree node type %q", node.Type)
	}
	e.next++
	id := fmt.Sprintf("bt%d_%s", e.next, strings.ToLower(node.Type))

	var childIDs []string
	var childCharts []*scxml.Chart
	for i, child := range node.Children {
		childPos := fmt.Sprintf("%s/%s#%d", pos, child.Type, i+1)
		childID, charts, err := e.instantiate(child, childPos)
		if err != nil {
			return "", nil, err
		}
		childIDs = append(childIDs, childID)
		childCharts = append(childCharts, charts...)
	}

	text, err := gen(len(node.Children), node.Params)
	if err != nil {
		return "", nil, diag.Wrap(err, diag.KindUnsupported, e.doc, pos,
			"cannot instantiate %q node", node.Type)
	}
	chart, err := e.parseInstance(substitute(text, id, childIDs), pos)
	if err != nil {
		return "", nil, err
	}
	return id, append([]*scxml.Chart{chart}, childCharts...), nil
}

// substitute rewrites the template placeholders for one instance.
// Child placeholders are replaced highest index first so numbered
// placeholders never shadow each other.
func substitute(text, id string, childIDs []string) string {
	var pairs []string
	for k := len(childIDs); k >= 1; k-- {
		cid := childIDs[k-1]
		pairs = append(pairs,
			fmt.Sprintf("$CHILD_%d_TICK", k), tickEvent(cid),
			fmt.Sprintf("$CHILD_%d_SUCCESS", k), statusEvent(cid, "success"),
			fmt.Sprintf("$CHILD_%d_FAILURE", k), statusEvent(cid, "failure"),
			fmt.Sprintf("$CHILD_%d_RUNNING", k), statusEvent(cid, "running"),
		)
	}
	pairs = append(pairs,
		"$TICK", tickEvent(id),
		"$SUCCESS", statusEvent(id, "success"),
		"$FAILURE", statusEvent(id, "failure"),
		"$RUNNING", statusEvent(id, "running"),
		"$ID", id,
	)
	return strings.NewReplacer(pairs...).Replace(text)
}

func (e *expander) parseInstance(text, pos string) (*scxml.Chart, error) {
	chart, err := scxml.Parse([]byte(text), e.doc)
	if err != nil {
		return nil, diag.Wrap(err, diag.KindUnsupported, e.doc, pos,
			"expanded template is not a valid chart")
	}
	return chart, nil
}

// driver builds the chart that ticks the root instance and re-ticks it
// on every status report.
func (e *expander) driver(rootID string) (*scxml.Chart, error) {
	var b strings.Builder
	b.WriteString("<scxml name=\"bt_driver\" initial=\"tick\">\n")
	b.WriteString("  <state id=\"tick\">\n")
	fmt.Fprintf(&b, "    <onentry><send event=\"%s\"/></onentry>\n", tickEvent(rootID))
	for _, status := range []string{"success", "failure", "running"} {
		fmt.Fprintf(&b, "    <transition event=\"%s\" target=\"tick\"/>\n", statusEvent(rootID, status))
	}
	b.WriteString("  </state>\n")
	b.WriteString("</scxml>\n")
	return e.parseInstance(b.String(), "driver")
}

func tickEvent(id string) string { return id + "_tick" }

func statusEvent(id, status string) string { return id + "_" + status }
