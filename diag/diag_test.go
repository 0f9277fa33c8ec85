package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessageCarriesLocation(t *testing.T) {
	err := New(KindStructural, "robot.scxml", "idle", "duplicate state identifier %q", "idle")
	msg := err.Error()
	for _, want := range []string{"robot.scxml", "idle", "duplicate state identifier"} {
		if !contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestKindOf(t *testing.T) {
	err := New(KindUnresolvedRef, "a.scxml", "s1", "undeclared variable")
	wrapped := fmt.Errorf("resolving: %w", err)

	kind, ok := KindOf(wrapped)
	if !ok {
		t.Fatal("KindOf should see through wrapping")
	}
	if kind != KindUnresolvedRef {
		t.Errorf("kind = %v, want %v", kind, KindUnresolvedRef)
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf should report false for non-diagnostic errors")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, KindInternal, "model", "", "emit failed")
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
}

func TestIsMatchesByKind(t *testing.T) {
	a := New(KindComposition, "x", "v", "collision")
	if !errors.Is(a, &Error{Kind: KindComposition}) {
		t.Error("errors of the same kind should match")
	}
	if errors.Is(a, &Error{Kind: KindStructural}) {
		t.Error("errors of different kinds should not match")
	}
}

func TestKindStrings(t *testing.T) {
	cases := map[Kind]string{
		KindStructural:     "structural-validity",
		KindUnresolvedRef:  "unresolved-reference",
		KindUnsupported:    "unsupported-construct",
		KindNontermination: "semantic-nontermination",
		KindComposition:    "composition-inconsistency",
		KindInternal:       "internal-consistency",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
