// Package filter implements path-based filtering of token streams.
//
// A Filter is a pipeline stage that re-emits only the tokens belonging to
// subtrees accepted by a predicate over the current path.  The predicate
// comes in three interchangeable forms: an exact path (Literal), a pattern
// with wildcards (ParsePattern) and an arbitrary function (Func).
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jsonflume/jsonflume/token"
)

// An Element is one level of the current path: an object's pending key
// name or an array's running element index.
type Element struct {
	Key     string
	Index   int
	IsIndex bool
}

func (e Element) String() string {
	if e.IsIndex {
		return strconv.Itoa(e.Index)
	}
	return e.Key
}

// A Path is the stack of in-progress container keys and indices, root
// first.
type Path []Element

// String joins the path elements with dots, e.g. "a.b.2".
func (p Path) String() string {
	var b strings.Builder
	for i, e := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(e.String())
	}
	return b.String()
}

// A Decision is a predicate's verdict on the value starting at the
// current path.
type Decision uint8

const (
	// Undecided descends into the value and re-evaluates the predicate on
	// its children.  For scalars it is equivalent to Reject.
	Undecided Decision = iota
	// Accept re-emits the whole subtree rooted at the current path.
	Accept
	// Reject discards the whole subtree.
	Reject
)

// A Predicate decides whether the value starting at the given path is
// accepted.  tok is the token that starts the value, so predicates can
// discriminate on the value's shape as well as its position.
type Predicate interface {
	Decide(path Path, tok token.Token) Decision
}

// Func adapts a function to the Predicate interface.
type Func func(path Path, tok token.Token) Decision

func (f Func) Decide(path Path, tok token.Token) Decision {
	return f(path, tok)
}

// Literal matches exactly one path, given in dotted form ("a.b.2").  An
// empty literal matches the top-level value.
type Literal string

var _ Predicate = Literal("")

func (l Literal) Decide(path Path, tok token.Token) Decision {
	var segs []string
	if l != "" {
		segs = strings.Split(string(l), ".")
	}
	if len(path) > len(segs) {
		return Reject
	}
	for i, e := range path {
		if e.String() != segs[i] {
			return Reject
		}
	}
	if len(path) == len(segs) {
		return Accept
	}
	return Undecided
}

// A PathNotFoundError is returned when a filter that requires at least one
// match reaches the end of input without any subtree being accepted.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	if e.Path == "" {
		return "no value matched the filter"
	}
	return fmt.Sprintf("no value found at path %q", e.Path)
}
