package expr

import (
	"testing"

	"github.com/statechart-tools/janic/diag"
)

// === Lexer Tests ===

func TestTokenizeOperators(t *testing.T) {
	toks := Tokenize("a && b || !c")
	var ops []string
	for _, tok := range toks {
		if tok.Type == TokenOp {
			ops = append(ops, tok.Literal)
		}
	}
	want := []string{"&&", "||", "!"}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op[%d] = %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestTokenizeDottedIdent(t *testing.T) {
	toks := Tokenize("Math.abs")
	if toks[0].Type != TokenIdent || toks[0].Literal != "Math.abs" {
		t.Errorf("dotted name should lex as one identifier, got %v", toks[0])
	}
}

func TestTokenizeNumbers(t *testing.T) {
	cases := []struct {
		input string
		typ   TokenType
	}{
		{"42", TokenInt},
		{"3.14", TokenReal},
		{"1e3", TokenReal},
		{"2.5e-1", TokenReal},
	}
	for _, tc := range cases {
		toks := Tokenize(tc.input)
		if toks[0].Type != tc.typ {
			t.Errorf("Tokenize(%q)[0].Type = %v, want %v", tc.input, toks[0].Type, tc.typ)
		}
	}
}

func TestTokenizeBareEqualsIllegal(t *testing.T) {
	toks := Tokenize("a = b")
	found := false
	for _, tok := range toks {
		if tok.Type == TokenIllegal {
			found = true
		}
	}
	if !found {
		t.Error("bare = should lex as an illegal token")
	}
}

// === Parser Tests ===

func TestParsePrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3)
	node, err := Parse("1 + 2 * 3", "t")
	if err != nil {
		t.Fatal(err)
	}
	add, ok := node.(*Binary)
	if !ok || add.Op != "+" {
		t.Fatalf("root should be +, got %T", node)
	}
	mul, ok := add.R.(*Binary)
	if !ok || mul.Op != "*" {
		t.Fatalf("right of + should be *, got %T", add.R)
	}
}

func TestParseConditionalRightAssociative(t *testing.T) {
	node, err := Parse("a ? 1 : b ? 2 : 3", "t")
	if err != nil {
		t.Fatal(err)
	}
	outer, ok := node.(*Conditional)
	if !ok {
		t.Fatalf("root should be conditional, got %T", node)
	}
	if _, ok := outer.Else.(*Conditional); !ok {
		t.Errorf("else branch should nest the second conditional, got %T", outer.Else)
	}
}

func TestParseUnaryMinusFoldsLiterals(t *testing.T) {
	node, err := Parse("-5", "t")
	if err != nil {
		t.Fatal(err)
	}
	lit, ok := node.(*Literal)
	if !ok {
		t.Fatalf("-5 should fold to a literal, got %T", node)
	}
	if lit.Int != -5 {
		t.Errorf("folded value = %d, want -5", lit.Int)
	}
}

func TestParseIndexChain(t *testing.T) {
	node, err := Parse("grid[i][j]", "t")
	if err != nil {
		t.Fatal(err)
	}
	outer, ok := node.(*Index)
	if !ok {
		t.Fatalf("root should be an index, got %T", node)
	}
	if _, ok := outer.X.(*Index); !ok {
		t.Errorf("inner expression should be an index, got %T", outer.X)
	}
}

func TestParseBuiltins(t *testing.T) {
	node, err := Parse("Math.min(a, b)", "t")
	if err != nil {
		t.Fatal(err)
	}
	call, ok := node.(*Call)
	if !ok {
		t.Fatalf("root should be a call, got %T", node)
	}
	if call.Name != "min" || len(call.Args) != 2 {
		t.Errorf("call = %s/%d args, want min/2", call.Name, len(call.Args))
	}
}

func TestParseRejectsUnsupported(t *testing.T) {
	cases := []string{
		"foo(1)",          // unknown function
		"Math.min(1)",     // wrong arity
		"a ? 1 : ",        // incomplete conditional
		"(a + b",          // unbalanced parens
		"1 + + 2 3",       // trailing input
		"Math.sqrt(4)",    // builtin outside the subset
	}
	for _, input := range cases {
		_, err := Parse(input, "t")
		if err == nil {
			t.Errorf("Parse(%q) should fail", input)
			continue
		}
		if kind, ok := diag.KindOf(err); !ok || kind != diag.KindUnsupported {
			t.Errorf("Parse(%q) error kind = %v, want unsupported-construct", input, err)
		}
	}
}
