package expr

import (
	"github.com/statechart-tools/janic/diag"
)

// Checker type-checks expression trees against a scope.
type Checker struct {
	scope Scope
	doc   string
}

// NewChecker creates a checker resolving names in scope; doc names the
// source document for error reporting.
func NewChecker(scope Scope, doc string) *Checker {
	return &Checker{scope: scope, doc: doc}
}

// Check infers the type of node, verifying every variable reference
// resolves and every operator is applied to operands it accepts. The
// check is eager: it runs once at translation time, never during model
// exploration.
func (c *Checker) Check(node Node) (Type, error) {
	switch n := node.(type) {
	case *Literal:
		return n.LitType, nil

	case *Ident:
		t, ok := c.scope.Lookup(n.Name)
		if !ok {
			return Type{}, diag.New(diag.KindUnresolvedRef, c.doc, offsetElement(n.Off),
				"undeclared variable %q", n.Name)
		}
		return t, nil

	case *Unary:
		t, err := c.Check(n.X)
		if err != nil {
			return Type{}, err
		}
		switch n.Op {
		case "!":
			if t.Kind != KindBool {
				return Type{}, c.typeErrorf(n.Off, "operator ! applied to %s", t)
			}
			return BoolType(), nil
		case "-":
			if !t.IsNumeric() {
				return Type{}, c.typeErrorf(n.Off, "operator - applied to %s", t)
			}
			return t, nil
		}
		return Type{}, c.typeErrorf(n.Off, "unknown unary operator %q", n.Op)

	case *Binary:
		return c.checkBinary(n)

	case *Conditional:
		ct, err := c.Check(n.Cond)
		if err != nil {
			return Type{}, err
		}
		if ct.Kind != KindBool {
			return Type{}, c.typeErrorf(n.Off, "conditional needs a boolean condition, got %s", ct)
		}
		tt, err := c.Check(n.Then)
		if err != nil {
			return Type{}, err
		}
		et, err := c.Check(n.Else)
		if err != nil {
			return Type{}, err
		}
		if tt.Equal(et) {
			return tt, nil
		}
		if tt.IsNumeric() && et.IsNumeric() {
			return widen(tt, et), nil
		}
		return Type{}, c.typeErrorf(n.Off, "conditional branches disagree: %s vs %s", tt, et)

	case *Index:
		xt, err := c.Check(n.X)
		if err != nil {
			return Type{}, err
		}
		if xt.Kind != KindArray {
			return Type{}, c.typeErrorf(n.Off, "indexing a non-array %s", xt)
		}
		it, err := c.Check(n.Idx)
		if err != nil {
			return Type{}, err
		}
		if it.Kind != KindInt {
			return Type{}, c.typeErrorf(n.Off, "array index must be int, got %s", it)
		}
		return *xt.Elem, nil

	case *ArrayLit:
		if len(n.Elems) == 0 {
			return Type{}, c.typeErrorf(n.Off, "empty array literal")
		}
		elem, err := c.Check(n.Elems[0])
		if err != nil {
			return Type{}, err
		}
		for _, e := range n.Elems[1:] {
			t, err := c.Check(e)
			if err != nil {
				return Type{}, err
			}
			if t.Equal(elem) {
				continue
			}
			if t.IsNumeric() && elem.IsNumeric() {
				elem = widen(t, elem)
				continue
			}
			return Type{}, c.typeErrorf(e.Pos(), "array element type %s does not match %s", t, elem)
		}
		return ArrayOf(elem, len(n.Elems)), nil

	case *Call:
		return c.checkCall(n)
	}
	return Type{}, c.typeErrorf(node.Pos(), "unknown expression node")
}

func (c *Checker) checkBinary(n *Binary) (Type, error) {
	lt, err := c.Check(n.L)
	if err != nil {
		return Type{}, err
	}
	rt, err := c.Check(n.R)
	if err != nil {
		return Type{}, err
	}
	switch n.Op {
	case "&&", "||":
		if lt.Kind != KindBool || rt.Kind != KindBool {
			return Type{}, c.typeErrorf(n.Off, "operator %s applied to %s and %s", n.Op, lt, rt)
		}
		return BoolType(), nil

	case "==", "!=":
		if lt.Equal(rt) || (lt.IsNumeric() && rt.IsNumeric()) {
			return BoolType(), nil
		}
		return Type{}, c.typeErrorf(n.Off, "comparing %s with %s", lt, rt)

	case "<", "<=", ">", ">=":
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return Type{}, c.typeErrorf(n.Off, "operator %s applied to %s and %s", n.Op, lt, rt)
		}
		return BoolType(), nil

	case "+", "-", "*":
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return Type{}, c.typeErrorf(n.Off, "operator %s applied to %s and %s", n.Op, lt, rt)
		}
		return widen(lt, rt), nil

	case "%":
		if lt.Kind != KindInt || rt.Kind != KindInt {
			return Type{}, c.typeErrorf(n.Off, "operator %% needs int operands, got %s and %s", lt, rt)
		}
		if isZeroConst(n.R) {
			return Type{}, c.typeErrorf(n.Off, "modulo by constant zero")
		}
		return IntType(), nil

	case "/":
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return Type{}, c.typeErrorf(n.Off, "operator / applied to %s and %s", lt, rt)
		}
		if isZeroConst(n.R) {
			return Type{}, c.typeErrorf(n.Off, "division by constant zero")
		}
		// Division yields a real in the target algebra; a runtime zero
		// divisor is left to the model checker.
		return RealType(), nil
	}
	return Type{}, c.typeErrorf(n.Off, "unknown operator %q", n.Op)
}

func (c *Checker) checkCall(n *Call) (Type, error) {
	types := make([]Type, len(n.Args))
	for i, a := range n.Args {
		t, err := c.Check(a)
		if err != nil {
			return Type{}, err
		}
		if !t.IsNumeric() {
			return Type{}, c.typeErrorf(a.Pos(), "%s argument must be numeric, got %s", n.Name, t)
		}
		types[i] = t
	}
	switch n.Name {
	case "min", "max":
		return widen(types[0], types[1]), nil
	case "abs":
		return types[0], nil
	case "floor", "ceil":
		return IntType(), nil
	}
	return Type{}, c.typeErrorf(n.Off, "unknown builtin %q", n.Name)
}

func (c *Checker) typeErrorf(pos int, format string, args ...any) error {
	return diag.New(diag.KindUnsupported, c.doc, offsetElement(pos), format, args...)
}

// isZeroConst reports whether node is a provably-zero numeric constant.
func isZeroConst(node Node) bool {
	lit, ok := node.(*Literal)
	if !ok {
		return false
	}
	switch lit.LitType.Kind {
	case KindInt:
		return lit.Int == 0
	case KindReal:
		return lit.Real == 0
	}
	return false
}
