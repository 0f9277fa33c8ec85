package expr

// Node is one node of the parsed expression tree. The variant set is
// closed: anything the parser cannot express as one of these is rejected
// as an unsupported construct.
type Node interface {
	Pos() int
}

// Literal is a boolean, integer or real constant.
type Literal struct {
	Off     int
	Bool    bool
	Int     int64
	Real    float64
	LitType Type // TBool, TInt or TReal
}

// Ident is a reference to a declared variable (possibly dotted, for
// event parameters such as _event.data).
type Ident struct {
	Off  int
	Name string
}

// Unary is !x or -x.
type Unary struct {
	Off int
	Op  string
	X   Node
}

// Binary is a two-operand operator application.
type Binary struct {
	Off  int
	Op   string
	L, R Node
}

// Conditional is cond ? then : else.
type Conditional struct {
	Off              int
	Cond, Then, Else Node
}

// Index is x[i].
type Index struct {
	Off    int
	X, Idx Node
}

// ArrayLit is [e0, e1, ...].
type ArrayLit struct {
	Off   int
	Elems []Node
}

// Call is one of the supported Math.* builtins applied to its arguments.
type Call struct {
	Off  int
	Name string // "min", "max", "abs", "floor", "ceil"
	Args []Node
}

func (n *Literal) Pos() int     { return n.Off }
func (n *Ident) Pos() int       { return n.Off }
func (n *Unary) Pos() int       { return n.Off }
func (n *Binary) Pos() int      { return n.Off }
func (n *Conditional) Pos() int { return n.Off }
func (n *Index) Pos() int       { return n.Off }
func (n *ArrayLit) Pos() int    { return n.Off }
func (n *Call) Pos() int        { return n.Off }
