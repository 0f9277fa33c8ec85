// Package diag defines the error taxonomy shared by every stage of the
// compilation pipeline. Each failure carries a machine-distinguishable
// kind, the offending document and element, and a human-readable message,
// so callers never see a bare string.
package diag

import (
	"errors"
	"fmt"
)

// Kind classifies a compilation failure.
type Kind int

const (
	// KindStructural is a malformed document shape: duplicate identifiers,
	// dangling transition targets, missing initial states.
	KindStructural Kind = iota
	// KindUnresolvedRef is a use of an undeclared variable or unknown event.
	KindUnresolvedRef
	// KindUnsupported is a template node type or expression construct
	// outside the supported subset.
	KindUnsupported
	// KindNontermination is an eventless-transition closure that exceeds
	// the bounded iteration count.
	KindNontermination
	// KindComposition is a namespace collision or inconsistent
	// synchronization label discovered while merging automata.
	KindComposition
	// KindInternal is an emitted model failing target-schema validation.
	// Always a compiler defect, never a user input defect.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural-validity"
	case KindUnresolvedRef:
		return "unresolved-reference"
	case KindUnsupported:
		return "unsupported-construct"
	case KindNontermination:
		return "semantic-nontermination"
	case KindComposition:
		return "composition-inconsistency"
	case KindInternal:
		return "internal-consistency"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a located compilation failure.
type Error struct {
	Kind    Kind
	Doc     string // offending document identifier, "" if not tied to one
	Element string // element or expression location within the document
	Msg     string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Doc != "" {
		s += " [" + e.Doc
		if e.Element != "" {
			s += "/" + e.Element
		}
		s += "]"
	} else if e.Element != "" {
		s += " [" + e.Element + "]"
	}
	s += ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so callers can match with errors.Is(err,
// &diag.Error{Kind: diag.KindStructural}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// New builds a located error.
func New(kind Kind, doc, element, format string, args ...any) *Error {
	return &Error{Kind: kind, Doc: doc, Element: element, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a located error around a cause.
func Wrap(err error, kind Kind, doc, element, format string, args ...any) *Error {
	return &Error{Kind: kind, Doc: doc, Element: element, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from any error produced by the pipeline.
// The second return is false when err is not a diag.Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
