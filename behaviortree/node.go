// Package behaviortree expands a behavior-tree description into a set
// of communicating statechart automata. Each tree node instantiates a
// control-node template from a library under a fresh identifier
// namespace; parent and child instances are wired by per-instance
// tick and status events, so the expanded set composes like any other
// group of charts.
package behaviortree

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/statechart-tools/janic/diag"
)

// Node is one reference in the behavior-tree description: a node type,
// ordered children, and the attribute parameters of the element.
type Node struct {
	Type     string
	Name     string
	Params   map[string]string
	Children []*Node
}

// Parse decodes a behavior-tree document. The expected shape is a
// <root> element holding one or more <BehaviorTree ID=...> trees; the
// main tree is named by root's main_tree_to_execute attribute, or is
// the only tree when the attribute is absent. Every element below a
// tree becomes a Node typed by its tag name.
func Parse(data []byte, doc string) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var root xml.StartElement
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, diag.New(diag.KindStructural, doc, "", "document has no root element")
		}
		if err != nil {
			return nil, diag.Wrap(err, diag.KindStructural, doc, "", "malformed XML")
		}
		if start, ok := tok.(xml.StartElement); ok {
			root = start
			break
		}
	}
	if root.Name.Local != "root" {
		return nil, diag.New(diag.KindStructural, doc, root.Name.Local, "root element must be <root>")
	}
	mainID := btAttr(root, "main_tree_to_execute")

	trees := make(map[string]*Node)
	var order []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, diag.Wrap(err, diag.KindStructural, doc, "root", "malformed XML")
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "BehaviorTree" {
			if err := dec.Skip(); err != nil {
				return nil, diag.Wrap(err, diag.KindStructural, doc, start.Name.Local, "malformed XML")
			}
			continue
		}
		id := btAttr(start, "ID")
		children, err := parseChildren(dec, doc, id)
		if err != nil {
			return nil, err
		}
		if len(children) != 1 {
			return nil, diag.New(diag.KindStructural, doc, id,
				"behavior tree %q must have exactly one top-level node, has %d", id, len(children))
		}
		trees[id] = children[0]
		order = append(order, id)
	}

	if len(trees) == 0 {
		return nil, diag.New(diag.KindStructural, doc, "root", "document declares no behavior tree")
	}
	if mainID == "" {
		if len(trees) > 1 {
			return nil, diag.New(diag.KindStructural, doc, "root",
				"multiple behavior trees but no main_tree_to_execute attribute")
		}
		mainID = order[0]
	}
	main, ok := trees[mainID]
	if !ok {
		return nil, diag.New(diag.KindStructural, doc, mainID, "main tree %q not declared", mainID)
	}
	return main, nil
}

func parseChildren(dec *xml.Decoder, doc, element string) ([]*Node, error) {
	var out []*Node
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, diag.Wrap(err, diag.KindStructural, doc, element, "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Type: t.Name.Local, Params: make(map[string]string)}
			for _, a := range t.Attr {
				if a.Name.Local == "name" {
					node.Name = a.Value
					continue
				}
				node.Params[a.Name.Local] = a.Value
			}
			children, err := parseChildren(dec, doc, t.Name.Local)
			if err != nil {
				return nil, err
			}
			node.Children = children
			out = append(out, node)
		case xml.EndElement:
			return out, nil
		}
	}
}

func btAttr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
