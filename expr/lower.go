package expr

import (
	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/jani"
)

// binaryOps is the fixed mapping from scripting operators to the target
// algebra. > and >= are absent: they normalize to < and ≤ with swapped
// operands during lowering.
var binaryOps = map[string]string{
	"&&": jani.OpAnd,
	"||": jani.OpOr,
	"==": jani.OpEq,
	"!=": jani.OpNeq,
	"<":  jani.OpLt,
	"<=": jani.OpLeq,
	"+":  jani.OpAdd,
	"-":  jani.OpSub,
	"*":  jani.OpMul,
	"/":  jani.OpDiv,
	"%":  jani.OpMod,
}

// Lower translates a type-checked expression tree into the target
// algebra. Renamer, when non-nil, rewrites variable references (the
// composer uses it to apply the automaton namespace prefix).
func Lower(node Node, renamer func(string) string) (*jani.Expression, error) {
	switch n := node.(type) {
	case *Literal:
		switch n.LitType.Kind {
		case KindBool:
			return jani.Bool(n.Bool), nil
		case KindInt:
			return jani.Int(n.Int), nil
		default:
			return jani.Real(n.Real), nil
		}

	case *Ident:
		name := n.Name
		if renamer != nil {
			name = renamer(name)
		}
		return jani.Var(name), nil

	case *Unary:
		x, err := Lower(n.X, renamer)
		if err != nil {
			return nil, err
		}
		if n.Op == "!" {
			return jani.Not(x), nil
		}
		return jani.Binary(jani.OpSub, jani.Int(0), x), nil

	case *Binary:
		l, err := Lower(n.L, renamer)
		if err != nil {
			return nil, err
		}
		r, err := Lower(n.R, renamer)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case ">":
			return jani.Binary(jani.OpLt, r, l), nil
		case ">=":
			return jani.Binary(jani.OpLeq, r, l), nil
		}
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, diag.New(diag.KindUnsupported, "", offsetElement(n.Off),
				"no target operator for %q", n.Op)
		}
		return jani.Binary(op, l, r), nil

	case *Conditional:
		cond, err := Lower(n.Cond, renamer)
		if err != nil {
			return nil, err
		}
		then, err := Lower(n.Then, renamer)
		if err != nil {
			return nil, err
		}
		els, err := Lower(n.Else, renamer)
		if err != nil {
			return nil, err
		}
		return jani.Ite(cond, then, els), nil

	case *Index:
		x, err := Lower(n.X, renamer)
		if err != nil {
			return nil, err
		}
		idx, err := Lower(n.Idx, renamer)
		if err != nil {
			return nil, err
		}
		return jani.ArrayAccess(x, idx), nil

	case *ArrayLit:
		elems := make([]*jani.Expression, len(n.Elems))
		for i, e := range n.Elems {
			le, err := Lower(e, renamer)
			if err != nil {
				return nil, err
			}
			elems[i] = le
		}
		return jani.ArrayValue(elems), nil

	case *Call:
		args := make([]*jani.Expression, len(n.Args))
		for i, a := range n.Args {
			la, err := Lower(a, renamer)
			if err != nil {
				return nil, err
			}
			args[i] = la
		}
		switch n.Name {
		case "min":
			return jani.Binary(jani.OpMin, args[0], args[1]), nil
		case "max":
			return jani.Binary(jani.OpMax, args[0], args[1]), nil
		default: // abs, floor, ceil
			return jani.Unary(n.Name, args[0]), nil
		}
	}
	return nil, diag.New(diag.KindUnsupported, "", offsetElement(node.Pos()), "unknown expression node")
}

// Translate parses, type-checks and lowers one expression in a single
// pass. It returns the lowered expression and its inferred type.
func Translate(src string, scope Scope, doc string) (*jani.Expression, Type, error) {
	node, err := Parse(src, doc)
	if err != nil {
		return nil, Type{}, err
	}
	typ, err := NewChecker(scope, doc).Check(node)
	if err != nil {
		return nil, Type{}, err
	}
	lowered, err := Lower(node, nil)
	if err != nil {
		return nil, Type{}, err
	}
	return lowered, typ, nil
}

// TranslateBool is Translate restricted to boolean expressions; it is
// the entry point for guard conditions.
func TranslateBool(src string, scope Scope, doc string) (*jani.Expression, error) {
	lowered, typ, err := Translate(src, scope, doc)
	if err != nil {
		return nil, err
	}
	if typ.Kind != KindBool {
		return nil, diag.New(diag.KindUnsupported, doc, "", "guard must be boolean, got %s", typ)
	}
	return lowered, nil
}
