package jani

// Rename returns a copy of the expression with every identifier passed
// through f. The input is never mutated; composed automata share
// lowered expression trees.
func Rename(e *Expression, f func(string) string) *Expression {
	if e == nil {
		return nil
	}
	out := *e
	if e.Ident != "" {
		out.Ident = f(e.Ident)
		return &out
	}
	out.Left = Rename(e.Left, f)
	out.Right = Rename(e.Right, f)
	out.Exp = Rename(e.Exp, f)
	out.If = Rename(e.If, f)
	out.Then = Rename(e.Then, f)
	out.Else = Rename(e.Else, f)
	out.Index = Rename(e.Index, f)
	if e.Elements != nil {
		out.Elements = make([]*Expression, len(e.Elements))
		for i, sub := range e.Elements {
			out.Elements[i] = Rename(sub, f)
		}
	}
	return &out
}
