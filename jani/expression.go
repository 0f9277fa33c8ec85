package jani

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Operator names of the target expression algebra.
const (
	OpAnd     = "∧"
	OpOr      = "∨"
	OpNot     = "¬"
	OpEq      = "="
	OpNeq     = "≠"
	OpLt      = "<"
	OpLeq     = "≤"
	OpAdd     = "+"
	OpSub     = "-"
	OpMul     = "*"
	OpDiv     = "/"
	OpMod     = "%"
	OpMin     = "min"
	OpMax     = "max"
	OpAbs     = "abs"
	OpFloor   = "floor"
	OpCeil    = "ceil"
	OpIte     = "ite"
	OpArrayAt = "aa"
	OpArrayOf = "av"
)

// Expression is one node of the target expression algebra. Exactly one of
// the value fields is populated; operator nodes carry their operands in
// the role fields the serialized form uses (left/right, exp, if/then/else).
type Expression struct {
	BoolVal *bool
	IntVal  *int64
	RealVal *float64
	Ident   string

	Op       string
	Left     *Expression // binary left
	Right    *Expression // binary right
	Exp      *Expression // unary operand, or array in "aa"
	If       *Expression
	Then     *Expression
	Else     *Expression
	Index    *Expression   // "aa"
	Elements []*Expression // "av"
}

// Bool builds a boolean constant.
func Bool(v bool) *Expression { return &Expression{BoolVal: &v} }

// Int builds an integer constant.
func Int(v int64) *Expression { return &Expression{IntVal: &v} }

// Real builds a real constant.
func Real(v float64) *Expression { return &Expression{RealVal: &v} }

// Var builds an identifier reference.
func Var(name string) *Expression { return &Expression{Ident: name} }

// Binary builds a binary operator node.
func Binary(op string, left, right *Expression) *Expression {
	return &Expression{Op: op, Left: left, Right: right}
}

// Unary builds a unary operator node.
func Unary(op string, exp *Expression) *Expression {
	return &Expression{Op: op, Exp: exp}
}

// Ite builds a conditional expression.
func Ite(cond, then, els *Expression) *Expression {
	return &Expression{Op: OpIte, If: cond, Then: then, Else: els}
}

// ArrayAccess builds an array-indexing expression.
func ArrayAccess(array, index *Expression) *Expression {
	return &Expression{Op: OpArrayAt, Exp: array, Index: index}
}

// ArrayValue builds an array-literal expression.
func ArrayValue(elements []*Expression) *Expression {
	return &Expression{Op: OpArrayOf, Elements: elements}
}

// And builds a conjunction, flattening constant-true operands.
func And(left, right *Expression) *Expression {
	if left == nil || left.IsTrue() {
		return right
	}
	if right == nil || right.IsTrue() {
		return left
	}
	return Binary(OpAnd, left, right)
}

// Not builds a negation, folding constant operands.
func Not(exp *Expression) *Expression {
	if exp.BoolVal != nil {
		return Bool(!*exp.BoolVal)
	}
	return Unary(OpNot, exp)
}

// IsTrue reports whether the expression is the constant true.
func (e *Expression) IsTrue() bool {
	return e != nil && e.BoolVal != nil && *e.BoolVal
}

// IsFalse reports whether the expression is the constant false.
func (e *Expression) IsFalse() bool {
	return e != nil && e.BoolVal != nil && !*e.BoolVal
}

// IsConst reports whether the expression is a literal constant.
func (e *Expression) IsConst() bool {
	return e != nil && (e.BoolVal != nil || e.IntVal != nil || e.RealVal != nil)
}

// Identifiers appends every identifier referenced by the expression to dst.
func (e *Expression) Identifiers(dst []string) []string {
	if e == nil {
		return dst
	}
	if e.Ident != "" {
		dst = append(dst, e.Ident)
	}
	for _, sub := range []*Expression{e.Left, e.Right, e.Exp, e.If, e.Then, e.Else, e.Index} {
		dst = sub.Identifiers(dst)
	}
	for _, sub := range e.Elements {
		dst = sub.Identifiers(dst)
	}
	return dst
}

// MarshalJSON renders the expression in the target interchange shape:
// constants as bare values, identifiers as strings, operators as objects.
func (e *Expression) MarshalJSON() ([]byte, error) {
	switch {
	case e.BoolVal != nil:
		return json.Marshal(*e.BoolVal)
	case e.IntVal != nil:
		return json.Marshal(*e.IntVal)
	case e.RealVal != nil:
		return json.Marshal(*e.RealVal)
	case e.Ident != "":
		return json.Marshal(e.Ident)
	}
	obj := map[string]any{"op": e.Op}
	switch e.Op {
	case OpIte:
		obj["if"] = e.If
		obj["then"] = e.Then
		obj["else"] = e.Else
	case OpArrayAt:
		obj["exp"] = e.Exp
		obj["index"] = e.Index
	case OpArrayOf:
		obj["elements"] = e.Elements
	case OpNot, OpFloor, OpCeil, OpAbs:
		obj["exp"] = e.Exp
	case "":
		return nil, fmt.Errorf("jani: expression with no value and no operator")
	default:
		obj["left"] = e.Left
		obj["right"] = e.Right
	}
	return json.Marshal(obj)
}

func (e *Expression) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}
