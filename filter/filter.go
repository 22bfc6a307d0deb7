package filter

import (
	"fmt"

	"github.com/jsonflume/jsonflume/pipeline"
	"github.com/jsonflume/jsonflume/token"
)

type filterState uint8

const (
	stateCheck       filterState = iota // deciding at a value boundary
	stateProcessKey                     // buffering a fragmented key
	stateAccept                         // inside an accepted container
	stateAcceptValue                    // inside an accepted fragmented scalar
	stateReject                         // inside a rejected container
	stateRejectValue                    // inside a rejected fragmented scalar
	statePass                           // single match delivered, stop the pipeline
)

// A Filter is a pipeline stage that re-emits only tokens belonging to
// subtrees accepted by its predicate.  Containers the predicate is
// undecided about are descended into without their start/end tokens being
// emitted, so an accepted subtree comes out as a self-contained token
// sequence.
//
// The filter requires packed key and value tokens (fragment tokens may be
// present as well and are passed through inside accepted subtrees).
//
// The zero value is not usable; set Predicate:
//
//	f := &filter.Filter{Predicate: filter.Literal("a.b")}
type Filter struct {
	// Predicate decides the fate of each subtree.
	Predicate Predicate

	// First stops the whole pipeline once one accepted subtree has been
	// fully emitted.
	First bool

	// Required makes the end-of-input flush fail with *PathNotFoundError
	// if no subtree was accepted.
	Required bool

	state    filterState
	path     Path
	depth    int        // depth inside the accepted/rejected subtree
	valueEnd token.Kind // packed kind that ends the current scalar
	keyBuf   []byte
	matched  int
}

var _ pipeline.Stage = &Filter{}
var _ pipeline.Flusher = &Filter{}

func (f *Filter) Process(tok token.Token) (pipeline.Result, error) {
	switch f.state {
	case stateCheck:
		return f.check(tok)
	case stateProcessKey:
		return f.processKey(tok)
	case stateAccept:
		return f.insideContainer(tok, true)
	case stateReject:
		return f.insideContainer(tok, false)
	case stateAcceptValue:
		if tok.Kind == f.valueEnd {
			return pipeline.Emit(tok), f.valueDone()
		}
		return pipeline.Emit(tok), nil
	case stateRejectValue:
		if tok.Kind == f.valueEnd {
			return pipeline.None, f.valueDone()
		}
		return pipeline.None, nil
	case statePass:
		return pipeline.None, pipeline.Stop
	default:
		panic("invalid filter state")
	}
}

// Flush reports a missing required match at end of input.
func (f *Filter) Flush() (pipeline.Result, error) {
	if f.Required && f.matched == 0 {
		err := &PathNotFoundError{}
		if s, ok := f.Predicate.(fmt.Stringer); ok {
			err.Path = s.String()
		}
		return pipeline.None, err
	}
	return pipeline.None, nil
}

func (f *Filter) check(tok token.Token) (pipeline.Result, error) {
	switch tok.Kind {
	case token.KeyValue:
		if err := f.setKey(string(tok.Bytes)); err != nil {
			return pipeline.None, err
		}
		return pipeline.None, nil

	case token.StartKey:
		f.keyBuf = f.keyBuf[:0]
		f.state = stateProcessKey
		return pipeline.None, nil

	case token.EndObject, token.EndArray:
		// End of a container we descended into undecided.
		if len(f.path) == 0 {
			return pipeline.None, fmt.Errorf("filter: unexpected %s", tok.Kind)
		}
		f.path = f.path[:len(f.path)-1]
		f.childCompleted()
		return pipeline.None, nil

	case token.StartObject, token.StartArray:
		switch f.Predicate.Decide(f.path, tok) {
		case Accept:
			f.state = stateAccept
			f.depth = 1
			return pipeline.Emit(tok), nil
		case Reject:
			f.state = stateReject
			f.depth = 1
			return pipeline.None, nil
		default:
			// Descend: push the placeholder for the container's children.
			if tok.Kind == token.StartArray {
				f.path = append(f.path, Element{IsIndex: true})
			} else {
				f.path = append(f.path, Element{})
			}
			return pipeline.None, nil
		}

	case token.StringValue, token.NumberValue, token.True, token.False, token.Null:
		// A packed scalar is a complete value in one token.
		if f.Predicate.Decide(f.path, tok) == Accept {
			return pipeline.Emit(tok), f.valueDone()
		}
		f.childCompleted()
		return pipeline.None, nil

	case token.StartString, token.StartNumber:
		end := token.StringValue
		if tok.Kind == token.StartNumber {
			end = token.NumberValue
		}
		if f.Predicate.Decide(f.path, tok) == Accept {
			f.state = stateAcceptValue
			f.valueEnd = end
			return pipeline.Emit(tok), nil
		}
		f.state = stateRejectValue
		f.valueEnd = end
		return pipeline.None, nil

	case token.KeyFragment, token.EndKey, token.StringFragment, token.EndString,
		token.NumberFragment, token.EndNumber:
		// Fragments of a scalar are only seen here when the scalar's
		// start was consumed by a decision; they cannot occur in check.
		return pipeline.None, fmt.Errorf("filter: unexpected %s", tok.Kind)

	default:
		return pipeline.None, fmt.Errorf("filter: unexpected %s", tok.Kind)
	}
}

func (f *Filter) processKey(tok token.Token) (pipeline.Result, error) {
	switch tok.Kind {
	case token.KeyFragment:
		f.keyBuf = append(f.keyBuf, tok.Bytes...)
		return pipeline.None, nil
	case token.EndKey:
		err := f.setKey(string(f.keyBuf))
		f.state = stateCheck
		return pipeline.None, err
	default:
		return pipeline.None, fmt.Errorf("filter: unexpected %s in key", tok.Kind)
	}
}

func (f *Filter) insideContainer(tok token.Token, emit bool) (pipeline.Result, error) {
	if tok.IsStartContainer() {
		f.depth++
	} else if tok.IsEndContainer() {
		f.depth--
	}
	res := pipeline.None
	if emit {
		res = pipeline.Emit(tok)
	}
	if f.depth == 0 {
		var err error
		if emit {
			err = f.subtreeDone()
		} else {
			f.state = stateCheck
			f.childCompleted()
		}
		return res, err
	}
	return res, nil
}

// valueDone records a completed accepted scalar at check level.
func (f *Filter) valueDone() error {
	return f.subtreeDone()
}

// subtreeDone records a fully emitted accepted subtree.  In First mode
// the pipeline is stopped on the spot, so no further input is consumed.
func (f *Filter) subtreeDone() error {
	f.matched++
	if f.First {
		f.state = statePass
		return pipeline.Stop
	}
	f.state = stateCheck
	f.childCompleted()
	return nil
}

// childCompleted advances the array index when a child value at the
// current check level has completed.
func (f *Filter) childCompleted() {
	if len(f.path) > 0 && f.path[len(f.path)-1].IsIndex {
		f.path[len(f.path)-1].Index++
	}
}

func (f *Filter) setKey(key string) error {
	if len(f.path) == 0 || f.path[len(f.path)-1].IsIndex {
		return fmt.Errorf("filter: key %q outside object", key)
	}
	f.path[len(f.path)-1].Key = key
	return nil
}
