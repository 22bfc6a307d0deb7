// Package assemble reconstructs concrete Go values from token streams.
//
// An Assembler consumes packed tokens one at a time and exposes the built
// value once the top-level value completes.  It maintains its own
// container/key stack, decoupled from the tokenizer, so it can be attached
// to any sub-range of a token stream - in particular to the subtrees
// re-emitted by a filter, or to single array elements fed to it by a
// streamer.
package assemble

import (
	"fmt"
	"strconv"

	"github.com/jsonflume/jsonflume/token"
)

// A Reviver is invoked on every fully-assembled key/value pair and array
// element, and finally on the top-level value with an empty key.
// Returning ok == false drops the pair or array slot.
type Reviver func(key string, value any) (value2 any, ok bool)

type frame struct {
	object map[string]any
	array  []any
	key    string
}

// An Assembler incrementally builds one value.  Objects become
// map[string]any, arrays []any, strings string, numbers float64, booleans
// bool and null nil.
//
// Duplicate object keys are not an error: the last write wins, matching
// common JSON parser behavior.
type Assembler struct {
	// Reviver, if set, transforms or drops each assembled pair/element.
	Reviver Reviver

	stack   []frame
	current *frame
	value   any
	done    bool
}

func New() *Assembler {
	return &Assembler{}
}

// Done reports whether the top-level value is complete.  It flips to true
// only at top-level closure, or immediately for a top-level scalar.
func (a *Assembler) Done() bool {
	return a.done
}

// Value returns the assembled value.  It panics if the assembler is not
// done.
func (a *Assembler) Value() any {
	if !a.done {
		panic("assembler not done")
	}
	return a.value
}

// Put consumes one token.  Fragment and bracketing tokens (StartString,
// StringFragment, ...) are ignored: the assembler works off the packed
// value tokens.
func (a *Assembler) Put(tok token.Token) error {
	if a.done {
		return fmt.Errorf("assemble: token %s after value completed", tok.Kind)
	}
	switch tok.Kind {
	case token.StartObject:
		a.push(frame{object: map[string]any{}})
	case token.StartArray:
		a.push(frame{array: []any{}})
	case token.EndObject:
		if a.current == nil || a.current.object == nil {
			return fmt.Errorf("assemble: unexpected %s", tok.Kind)
		}
		a.pop()
	case token.EndArray:
		if a.current == nil || a.current.array == nil {
			return fmt.Errorf("assemble: unexpected %s", tok.Kind)
		}
		a.pop()
	case token.KeyValue:
		if a.current == nil || a.current.object == nil {
			return fmt.Errorf("assemble: key %q outside object", tok.Bytes)
		}
		a.current.key = string(tok.Bytes)
	case token.StringValue:
		a.add(string(tok.Bytes))
	case token.NumberValue:
		n, err := strconv.ParseFloat(string(tok.Bytes), 64)
		if err != nil {
			return fmt.Errorf("assemble: invalid number %q: %w", tok.Bytes, err)
		}
		a.add(n)
	case token.True:
		a.add(true)
	case token.False:
		a.add(false)
	case token.Null:
		a.add(nil)
	case token.StartKey, token.KeyFragment, token.EndKey,
		token.StartString, token.StringFragment, token.EndString,
		token.StartNumber, token.NumberFragment, token.EndNumber:
		// fragments carry no information the packed tokens don't
	default:
		return fmt.Errorf("assemble: unexpected %s", tok.Kind)
	}
	return nil
}

func (a *Assembler) push(f frame) {
	if a.current != nil {
		a.stack = append(a.stack, *a.current)
	}
	a.current = &f
}

func (a *Assembler) pop() {
	f := a.current
	if len(a.stack) > 0 {
		a.current = &a.stack[len(a.stack)-1]
		a.stack = a.stack[:len(a.stack)-1]
	} else {
		a.current = nil
	}
	if f.object != nil {
		a.add(f.object)
	} else {
		a.add(f.array)
	}
}

// add attaches a completed value to the current container, or finishes
// the assembly if there is none.
func (a *Assembler) add(v any) {
	switch {
	case a.current == nil:
		if a.Reviver != nil {
			v2, ok := a.Reviver("", v)
			if !ok {
				v = nil
			} else {
				v = v2
			}
		}
		a.value = v
		a.done = true
	case a.current.object != nil:
		key := a.current.key
		if a.Reviver != nil {
			v2, ok := a.Reviver(key, v)
			if !ok {
				delete(a.current.object, key)
				return
			}
			v = v2
		}
		a.current.object[key] = v
	default:
		if a.Reviver != nil {
			v2, ok := a.Reviver(strconv.Itoa(len(a.current.array)), v)
			if !ok {
				return
			}
			v = v2
		}
		a.current.array = append(a.current.array, v)
	}
}

// Build assembles a complete value from a token slice.
func Build(toks []token.Token) (any, error) {
	a := New()
	for _, tok := range toks {
		if err := a.Put(tok); err != nil {
			return nil, err
		}
	}
	if !a.Done() {
		return nil, fmt.Errorf("assemble: incomplete value")
	}
	return a.Value(), nil
}
