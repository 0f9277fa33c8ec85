package expr

import "fmt"

// Kind discriminates scripting-subset types.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindReal
	KindArray
)

// Type is a declared or inferred type in the scripting subset.
type Type struct {
	Kind Kind
	Elem *Type // array element type
	Size int   // array size, 0 when unknown
}

// BoolType returns the boolean type.
func BoolType() Type { return Type{Kind: KindBool} }

// IntType returns the integer type.
func IntType() Type { return Type{Kind: KindInt} }

// RealType returns the real type.
func RealType() Type { return Type{Kind: KindReal} }

// ArrayOf returns a fixed-size array type over elem.
func ArrayOf(elem Type, size int) Type {
	e := elem
	return Type{Kind: KindArray, Elem: &e, Size: size}
}

// IsNumeric reports whether the type takes part in arithmetic.
func (t Type) IsNumeric() bool { return t.Kind == KindInt || t.Kind == KindReal }

// Equal reports structural type equality, ignoring array sizes.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == KindArray {
		return t.Elem.Equal(*o.Elem)
	}
	return true
}

func (t Type) String() string {
	switch t.Kind {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindArray:
		if t.Size > 0 {
			return fmt.Sprintf("%s[%d]", t.Elem, t.Size)
		}
		return t.Elem.String() + "[]"
	}
	return fmt.Sprintf("type(%d)", int(t.Kind))
}

// widen applies the numeric-promotion rule: mixing int and real widens
// to real. Both operands must already be numeric.
func widen(a, b Type) Type {
	if a.Kind == KindReal || b.Kind == KindReal {
		return RealType()
	}
	return IntType()
}

// Scope resolves variable names to their declared types. Lookups walk
// local declarations before network-global ones.
type Scope interface {
	Lookup(name string) (Type, bool)
}

// MapScope is a Scope over a plain map, with an optional parent chain.
type MapScope struct {
	Vars   map[string]Type
	Parent Scope
}

// Lookup implements Scope; local entries shadow the parent.
func (s *MapScope) Lookup(name string) (Type, bool) {
	if t, ok := s.Vars[name]; ok {
		return t, true
	}
	if s.Parent != nil {
		return s.Parent.Lookup(name)
	}
	return Type{}, false
}
