package expr

import (
	"strconv"

	"github.com/statechart-tools/janic/diag"
)

// builtins maps the supported Math.* calls to their operator names and
// arities. Any other call expression is an unsupported construct.
var builtins = map[string]struct {
	name  string
	arity int
}{
	"Math.min":   {"min", 2},
	"Math.max":   {"max", 2},
	"Math.abs":   {"abs", 1},
	"Math.floor": {"floor", 1},
	"Math.ceil":  {"ceil", 1},
}

// Binary operator precedence, loosest first. The conditional operator
// binds looser than all of these and is handled separately.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

// Parser parses one scripting-subset expression into a Node tree.
type Parser struct {
	lexer *Lexer
	cur   Token
	peek  Token
	doc   string // document identifier for error reporting
}

// NewParser creates a parser over input; doc names the document the
// expression came from, for error reporting.
func NewParser(input, doc string) *Parser {
	p := &Parser{lexer: NewLexer(input), doc: doc}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

// Parse parses input as a single complete expression.
func Parse(input, doc string) (Node, error) {
	p := NewParser(input, doc)
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenEOF {
		return nil, p.unsupportedf(p.cur.Pos, "trailing input %q", p.cur.Literal)
	}
	return node, nil
}

// parseExpr parses a full expression including the conditional operator,
// which is right-associative.
func (p *Parser) parseExpr() (Node, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenOp || p.cur.Literal != "?" {
		return cond, nil
	}
	off := p.cur.Pos
	p.nextToken()
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenOp || p.cur.Literal != ":" {
		return nil, p.unsupportedf(p.cur.Pos, "conditional missing ':'")
	}
	p.nextToken()
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Conditional{Off: off, Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseBinary(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOp {
		prec, ok := precedence[p.cur.Literal]
		if !ok || prec < minPrec {
			break
		}
		op := p.cur.Literal
		off := p.cur.Pos
		p.nextToken()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Off: off, Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Node, error) {
	if p.cur.Type == TokenOp && (p.cur.Literal == "!" || p.cur.Literal == "-") {
		op := p.cur.Literal
		off := p.cur.Pos
		p.nextToken()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold unary minus into numeric literals.
		if lit, ok := x.(*Literal); ok && op == "-" && lit.LitType.IsNumeric() {
			lit.Int = -lit.Int
			lit.Real = -lit.Real
			lit.Off = off
			return lit, nil
		}
		return &Unary{Off: off, Op: op, X: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any number of
// index suffixes.
func (p *Parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenLBracket {
		off := p.cur.Pos
		p.nextToken()
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRBracket {
			return nil, p.unsupportedf(p.cur.Pos, "index missing ']'")
		}
		p.nextToken()
		x = &Index{Off: off, X: x, Idx: idx}
	}
	return x, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	switch p.cur.Type {
	case TokenInt:
		v, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			return nil, p.unsupportedf(p.cur.Pos, "integer literal %q out of range", p.cur.Literal)
		}
		node := &Literal{Off: p.cur.Pos, Int: v, Real: float64(v), LitType: IntType()}
		p.nextToken()
		return node, nil

	case TokenReal:
		v, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return nil, p.unsupportedf(p.cur.Pos, "real literal %q out of range", p.cur.Literal)
		}
		node := &Literal{Off: p.cur.Pos, Real: v, LitType: RealType()}
		p.nextToken()
		return node, nil

	case TokenIdent:
		name := p.cur.Literal
		off := p.cur.Pos
		p.nextToken()
		switch name {
		case "true", "false":
			return &Literal{Off: off, Bool: name == "true", LitType: BoolType()}, nil
		}
		if p.cur.Type == TokenLParen {
			return p.parseCall(name, off)
		}
		return &Ident{Off: off, Name: name}, nil

	case TokenLParen:
		p.nextToken()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			return nil, p.unsupportedf(p.cur.Pos, "missing ')'")
		}
		p.nextToken()
		return x, nil

	case TokenLBracket:
		off := p.cur.Pos
		p.nextToken()
		var elems []Node
		for p.cur.Type != TokenRBracket {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.cur.Type == TokenComma {
				p.nextToken()
				continue
			}
			break
		}
		if p.cur.Type != TokenRBracket {
			return nil, p.unsupportedf(p.cur.Pos, "array literal missing ']'")
		}
		p.nextToken()
		return &ArrayLit{Off: off, Elems: elems}, nil

	case TokenEOF:
		return nil, p.unsupportedf(p.cur.Pos, "unexpected end of expression")
	}
	return nil, p.unsupportedf(p.cur.Pos, "unexpected token %q", p.cur.Literal)
}

func (p *Parser) parseCall(name string, off int) (Node, error) {
	builtin, ok := builtins[name]
	if !ok {
		return nil, p.unsupportedf(off, "call to %s", name)
	}
	p.nextToken() // consume '('
	var args []Node
	for p.cur.Type != TokenRParen {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.cur.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}
	if p.cur.Type != TokenRParen {
		return nil, p.unsupportedf(p.cur.Pos, "call to %s missing ')'", name)
	}
	p.nextToken()
	if len(args) != builtin.arity {
		return nil, p.unsupportedf(off, "%s takes %d arguments, got %d", name, builtin.arity, len(args))
	}
	return &Call{Off: off, Name: builtin.name, Args: args}, nil
}

func (p *Parser) unsupportedf(pos int, format string, args ...any) error {
	e := diag.New(diag.KindUnsupported, p.doc, offsetElement(pos), format, args...)
	return e
}

func offsetElement(pos int) string {
	return "offset " + strconv.Itoa(pos)
}
