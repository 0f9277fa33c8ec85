package scxml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/expr"
)

// Validate performs the structural-validity pass over a parsed chart:
// identifier uniqueness (already enforced while parsing), dangling
// transition targets, initial-state consistency per region, and
// syntactic validity of data initial-value expressions. Expressions are
// parsed, never evaluated.
func Validate(c *Chart) error {
	if len(c.Initial) != 1 {
		return diag.New(diag.KindStructural, c.Doc, "scxml",
			"document must declare exactly one initial state, found %d", len(c.Initial))
	}
	top := c.StateByID(c.Initial[0])
	if top == nil {
		return diag.New(diag.KindStructural, c.Doc, "scxml",
			"initial state %q does not exist", c.Initial[0])
	}
	if top.Parent != nil {
		return diag.New(diag.KindStructural, c.Doc, "scxml",
			"initial state %q is not a top-level state", c.Initial[0])
	}

	for _, s := range c.AllStates() {
		if err := validateState(c, s); err != nil {
			return err
		}
	}
	return validateVariables(c)
}

func validateState(c *Chart, s *State) error {
	switch s.Kind {
	case Compound:
		init := s.Initial
		if len(init) == 0 {
			init = []string{s.Children[0].ID}
		}
		if len(init) != 1 {
			return diag.New(diag.KindStructural, c.Doc, s.ID,
				"compound state must have exactly one initial child, found %d", len(init))
		}
		if !isChild(s, init[0]) {
			return diag.New(diag.KindStructural, c.Doc, s.ID,
				"initial state %q is not a child of %q", init[0], s.ID)
		}
	case Parallel:
		if len(s.Children) == 0 {
			return diag.New(diag.KindStructural, c.Doc, s.ID, "parallel state has no child regions")
		}
		if len(s.Initial) > 0 {
			return diag.New(diag.KindStructural, c.Doc, s.ID,
				"parallel state must not declare an initial child; all regions activate")
		}
	case Final:
		if len(s.Children) > 0 {
			return diag.New(diag.KindStructural, c.Doc, s.ID, "final state has children")
		}
		if len(s.Transitions) > 0 {
			return diag.New(diag.KindStructural, c.Doc, s.ID, "final state has outgoing transitions")
		}
	}

	for _, tr := range s.Transitions {
		for _, target := range tr.Targets {
			if c.StateByID(target) == nil {
				return diag.New(diag.KindStructural, c.Doc, s.ID,
					"transition target %q does not exist", target)
			}
		}
		if tr.Event == "" && tr.Cond == "" && len(tr.Targets) == 0 && len(tr.Actions) == 0 {
			return diag.New(diag.KindStructural, c.Doc, s.ID,
				"transition with no event, guard, target or action")
		}
	}
	return nil
}

func validateVariables(c *Chart) error {
	seen := make(map[string]bool, len(c.Variables))
	scope := &expr.MapScope{Vars: make(map[string]expr.Type, len(c.Variables))}
	for _, v := range c.Variables {
		if seen[v.ID] {
			return diag.New(diag.KindStructural, c.Doc, v.ID, "duplicate data variable %q", v.ID)
		}
		seen[v.ID] = true

		declared, declaredOK, err := parseTypeName(v.TypeName)
		if err != nil {
			return diag.Wrap(err, diag.KindStructural, c.Doc, v.ID, "invalid declared type %q", v.TypeName)
		}

		if v.Init == "" {
			if !declaredOK {
				return diag.New(diag.KindStructural, c.Doc, v.ID,
					"data variable %q has neither a type nor an initial value", v.ID)
			}
			v.Type = declared
			scope.Vars[v.ID] = v.Type
			continue
		}

		node, err := expr.Parse(v.Init, c.Doc)
		if err != nil {
			return diag.Wrap(err, diag.KindStructural, c.Doc, v.ID,
				"initial value of %q is not a valid expression", v.ID)
		}
		inferred, err := expr.NewChecker(scope, c.Doc).Check(node)
		if err != nil {
			return err
		}
		if declaredOK {
			if !declared.Equal(inferred) && !(declared.IsNumeric() && inferred.IsNumeric()) {
				return diag.New(diag.KindStructural, c.Doc, v.ID,
					"initial value of %q has type %s, declared %s", v.ID, inferred, declared)
			}
			v.Type = declared
		} else {
			v.Type = inferred
		}
		scope.Vars[v.ID] = v.Type
	}
	return nil
}

// parseTypeName resolves a declared type attribute. The boolean result
// is false when the attribute is absent.
func parseTypeName(name string) (expr.Type, bool, error) {
	if name == "" {
		return expr.Type{}, false, nil
	}
	base := name
	size := 0
	if open := strings.IndexByte(name, '['); open >= 0 {
		if !strings.HasSuffix(name, "]") {
			return expr.Type{}, false, fmt.Errorf("malformed array type %q", name)
		}
		n, err := strconv.Atoi(name[open+1 : len(name)-1])
		if err != nil || n <= 0 {
			return expr.Type{}, false, fmt.Errorf("malformed array size in %q", name)
		}
		base = name[:open]
		size = n
	}
	var elem expr.Type
	switch base {
	case "bool", "boolean":
		elem = expr.BoolType()
	case "int", "int32", "int64", "integer":
		elem = expr.IntType()
	case "real", "float", "float32", "float64", "double":
		elem = expr.RealType()
	default:
		return expr.Type{}, false, fmt.Errorf("unknown type %q", base)
	}
	if size > 0 {
		return expr.ArrayOf(elem, size), true, nil
	}
	return elem, true, nil
}

// ParseType resolves a declared type name ("int", "real", "bool[4]").
func ParseType(name string) (expr.Type, error) {
	t, ok, err := parseTypeName(name)
	if err != nil {
		return expr.Type{}, err
	}
	if !ok {
		return expr.Type{}, fmt.Errorf("missing type name")
	}
	return t, nil
}

// TypeScope returns a Scope over the chart's variables, for checking
// guard and action expressions against the local declarations.
func (c *Chart) TypeScope(parent expr.Scope) expr.Scope {
	vars := make(map[string]expr.Type, len(c.Variables))
	for _, v := range c.Variables {
		vars[v.ID] = v.Type
	}
	return &expr.MapScope{Vars: vars, Parent: parent}
}

func isChild(s *State, id string) bool {
	for _, child := range s.Children {
		if child.ID == id {
			return true
		}
	}
	return false
}
