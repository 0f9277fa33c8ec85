package scxml

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/statechart-tools/janic/diag"
)

// Parse decodes one statechart document into a Chart. The decoder walks
// the token stream directly so that sibling order is preserved exactly
// as written; document order is a tie-break the later stages rely on.
// Parse performs structural validation before returning.
func Parse(data []byte, doc string) (*Chart, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	p := &docParser{dec: dec, doc: doc}

	root, err := p.findRoot()
	if err != nil {
		return nil, err
	}
	chart, err := p.parseRoot(root)
	if err != nil {
		return nil, err
	}
	if err := Validate(chart); err != nil {
		return nil, err
	}
	return chart, nil
}

// ParseChart is Parse without the validation pass, for callers that
// assemble or inspect partial documents before validating them.
func ParseChart(data []byte, doc string) (*Chart, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	p := &docParser{dec: dec, doc: doc}
	root, err := p.findRoot()
	if err != nil {
		return nil, err
	}
	return p.parseRoot(root)
}

type docParser struct {
	dec *xml.Decoder
	doc string
	ord int
}

func (p *docParser) nextOrd() int {
	o := p.ord
	p.ord++
	return o
}

func (p *docParser) errorf(element, format string, args ...any) error {
	return diag.New(diag.KindStructural, p.doc, element, format, args...)
}

// findRoot scans to the document's root element and checks it is <scxml>.
func (p *docParser) findRoot() (xml.StartElement, error) {
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return xml.StartElement{}, p.errorf("", "document has no root element")
		}
		if err != nil {
			return xml.StartElement{}, diag.Wrap(err, diag.KindStructural, p.doc, "", "malformed XML")
		}
		if start, ok := tok.(xml.StartElement); ok {
			if start.Name.Local != "scxml" {
				return xml.StartElement{}, p.errorf(start.Name.Local, "root element must be <scxml>")
			}
			return start, nil
		}
	}
}

func (p *docParser) parseRoot(root xml.StartElement) (*Chart, error) {
	chart := &Chart{Doc: p.doc, byID: make(map[string]*State)}
	chart.Name = attr(root, "name")
	if chart.Name == "" {
		chart.Name = strings.TrimSuffix(p.doc, ".scxml")
	}
	if init := attr(root, "initial"); init != "" {
		chart.Initial = strings.Fields(init)
	}

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, diag.Wrap(err, diag.KindStructural, p.doc, "scxml", "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "state", "parallel", "final":
				s, err := p.parseState(t, nil, chart)
				if err != nil {
					return nil, err
				}
				chart.States = append(chart.States, s)
			case "datamodel":
				vars, err := p.parseDatamodel(t)
				if err != nil {
					return nil, err
				}
				chart.Variables = append(chart.Variables, vars...)
			default:
				return nil, p.errorf(t.Name.Local, "unexpected element <%s> under <scxml>", t.Name.Local)
			}
		case xml.EndElement:
			if len(chart.States) == 0 {
				return nil, p.errorf("scxml", "document declares no states")
			}
			if len(chart.Initial) == 0 {
				chart.Initial = []string{chart.States[0].ID}
			}
			return chart, nil
		}
	}
}

func (p *docParser) parseState(start xml.StartElement, parent *State, chart *Chart) (*State, error) {
	s := &State{
		ID:       attr(start, "id"),
		Parent:   parent,
		DocIndex: p.nextOrd(),
	}
	if s.ID == "" {
		return nil, p.errorf(start.Name.Local, "<%s> element without id", start.Name.Local)
	}
	switch start.Name.Local {
	case "parallel":
		s.Kind = Parallel
	case "final":
		s.Kind = Final
	default:
		s.Kind = Atomic // becomes Compound if children appear
	}
	if init := attr(start, "initial"); init != "" {
		s.Initial = strings.Fields(init)
	}
	if prev := chart.byID[s.ID]; prev != nil {
		return nil, p.errorf(s.ID, "duplicate state identifier %q", s.ID)
	}
	chart.byID[s.ID] = s

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, diag.Wrap(err, diag.KindStructural, p.doc, s.ID, "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "state", "parallel", "final":
				child, err := p.parseState(t, s, chart)
				if err != nil {
					return nil, err
				}
				s.Children = append(s.Children, child)
				if s.Kind == Atomic {
					s.Kind = Compound
				}
			case "initial":
				targets, err := p.parseInitial(s.ID)
				if err != nil {
					return nil, err
				}
				s.Initial = targets
			case "transition":
				tr, err := p.parseTransition(t, s)
				if err != nil {
					return nil, err
				}
				s.Transitions = append(s.Transitions, tr)
			case "onentry":
				actions, err := p.parseActions(t.Name.Local, s.ID)
				if err != nil {
					return nil, err
				}
				s.OnEntry = append(s.OnEntry, actions...)
			case "onexit":
				actions, err := p.parseActions(t.Name.Local, s.ID)
				if err != nil {
					return nil, err
				}
				s.OnExit = append(s.OnExit, actions...)
			case "datamodel":
				vars, err := p.parseDatamodel(t)
				if err != nil {
					return nil, err
				}
				// Nested datamodels hoist to the automaton scope.
				chart.Variables = append(chart.Variables, vars...)
			default:
				return nil, p.errorf(s.ID, "unexpected element <%s> under state %q", t.Name.Local, s.ID)
			}
		case xml.EndElement:
			return s, nil
		}
	}
}

// parseInitial parses an <initial><transition target=.../></initial> block.
func (p *docParser) parseInitial(stateID string) ([]string, error) {
	var targets []string
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, diag.Wrap(err, diag.KindStructural, p.doc, stateID, "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "transition" {
				return nil, p.errorf(stateID, "unexpected element <%s> under <initial>", t.Name.Local)
			}
			targets = strings.Fields(attr(t, "target"))
			if err := p.dec.Skip(); err != nil {
				return nil, diag.Wrap(err, diag.KindStructural, p.doc, stateID, "malformed XML")
			}
		case xml.EndElement:
			if len(targets) == 0 {
				return nil, p.errorf(stateID, "<initial> without a transition target")
			}
			return targets, nil
		}
	}
}

func (p *docParser) parseTransition(start xml.StartElement, source *State) (*Transition, error) {
	tr := &Transition{
		Source:   source,
		Event:    attr(start, "event"),
		Cond:     attr(start, "cond"),
		DocIndex: p.nextOrd(),
	}
	if target := attr(start, "target"); target != "" {
		tr.Targets = strings.Fields(target)
	}
	actions, err := p.parseActionList(source.ID)
	if err != nil {
		return nil, err
	}
	tr.Actions = actions
	return tr, nil
}

// parseActions parses the executable content of an onentry/onexit block.
func (p *docParser) parseActions(container, stateID string) ([]Action, error) {
	return p.parseActionList(stateID)
}

// parseActionList consumes executable content up to the enclosing end tag.
func (p *docParser) parseActionList(element string) ([]Action, error) {
	var actions []Action
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, diag.Wrap(err, diag.KindStructural, p.doc, element, "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "assign":
				a := Action{Kind: ActionAssign, Location: attr(t, "location"), Expr: attr(t, "expr")}
				if a.Location == "" {
					return nil, p.errorf(element, "<assign> without location")
				}
				actions = append(actions, a)
				if err := p.skip(element); err != nil {
					return nil, err
				}
			case "raise":
				a := Action{Kind: ActionRaise, Event: attr(t, "event")}
				if a.Event == "" {
					return nil, p.errorf(element, "<raise> without event")
				}
				actions = append(actions, a)
				if err := p.skip(element); err != nil {
					return nil, err
				}
			case "send":
				a, err := p.parseSend(t, element)
				if err != nil {
					return nil, err
				}
				actions = append(actions, a)
			case "log":
				actions = append(actions, Action{Kind: ActionLog, Label: attr(t, "label"), Expr: attr(t, "expr")})
				if err := p.skip(element); err != nil {
					return nil, err
				}
			default:
				return nil, diag.New(diag.KindUnsupported, p.doc, element,
					"unsupported executable content <%s>", t.Name.Local)
			}
		case xml.EndElement:
			return actions, nil
		}
	}
}

func (p *docParser) parseSend(start xml.StartElement, element string) (Action, error) {
	a := Action{Kind: ActionSend, Event: attr(start, "event")}
	if a.Event == "" {
		return a, p.errorf(element, "<send> without event")
	}
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return a, diag.Wrap(err, diag.KindStructural, p.doc, element, "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "param" {
				return a, p.errorf(element, "unexpected element <%s> under <send>", t.Name.Local)
			}
			param := Param{Name: attr(t, "name"), Expr: attr(t, "expr")}
			if param.Name == "" || param.Expr == "" {
				return a, p.errorf(element, "<param> needs name and expr")
			}
			a.Params = append(a.Params, param)
			if err := p.skip(element); err != nil {
				return a, err
			}
		case xml.EndElement:
			return a, nil
		}
	}
}

func (p *docParser) parseDatamodel(start xml.StartElement) ([]*Variable, error) {
	var vars []*Variable
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, diag.Wrap(err, diag.KindStructural, p.doc, "datamodel", "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "data" {
				return nil, p.errorf("datamodel", "unexpected element <%s> under <datamodel>", t.Name.Local)
			}
			v := &Variable{ID: attr(t, "id"), TypeName: attr(t, "type"), Init: attr(t, "expr")}
			if v.ID == "" {
				return nil, p.errorf("datamodel", "<data> element without id")
			}
			vars = append(vars, v)
			if err := p.skip("datamodel"); err != nil {
				return nil, err
			}
		case xml.EndElement:
			return vars, nil
		}
	}
}

func (p *docParser) skip(element string) error {
	if err := p.dec.Skip(); err != nil {
		return diag.Wrap(err, diag.KindStructural, p.doc, element, "malformed XML")
	}
	return nil
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
