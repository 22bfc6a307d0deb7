package streamer

import (
	"fmt"

	"github.com/theory/jsonpath"
)

// MatchSelector builds a Keep predicate from a JSONPath expression
// evaluated against each assembled element: the element is retained iff
// the query selects at least one node.
//
//	s := streamer.New(src)
//	s.Keep, err = streamer.MatchSelector(`$.tags[? @ == "new"]`)
func MatchSelector(expr string) (func(v any) bool, error) {
	path, err := jsonpath.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid element selector %q: %w", expr, err)
	}
	return func(v any) bool {
		return len(path.Select(v)) > 0
	}, nil
}
