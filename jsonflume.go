package jsonflume

import (
	"context"
	"errors"
	"io"

	"github.com/jsonflume/jsonflume/assemble"
	"github.com/jsonflume/jsonflume/filter"
	"github.com/jsonflume/jsonflume/streamer"
	"github.com/jsonflume/jsonflume/token"
	"github.com/jsonflume/jsonflume/tokenizer"
)

// Decode parses a whole JSON document from r into a Go value.  The input
// is still consumed incrementally, but the assembled value is only
// available once the top-level value completes.
func Decode(ctx context.Context, r io.Reader) (any, error) {
	src := NewSource(ctx, r, tokenizer.PackedOnly())
	a := assemble.New()
	for {
		tok, ok := src.Next()
		if !ok {
			break
		}
		if err := a.Put(tok); err != nil {
			return nil, err
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	if !a.Done() {
		return nil, errors.New("incomplete document")
	}
	return a.Value(), nil
}

// Select parses r and returns the values of all subtrees accepted by the
// predicate, in document order.
func Select(ctx context.Context, r io.Reader, pred filter.Predicate) ([]any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return collectValues(ctx, r, &filter.Filter{Predicate: pred})
}

// SelectOne parses r and returns the value of the first subtree accepted
// by the predicate, reading no more input than needed to complete it.  If
// the input ends without a match the error is a *filter.PathNotFoundError.
func SelectOne(ctx context.Context, r io.Reader, pred filter.Predicate) (any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	values, err := collectValues(ctx, r, &filter.Filter{Predicate: pred, First: true, Required: true})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, &filter.PathNotFoundError{}
	}
	return values[0], nil
}

func collectValues(ctx context.Context, r io.Reader, f *filter.Filter) ([]any, error) {
	src := NewSource(ctx, r, tokenizer.PackedOnly())
	out := Transform(src, f)
	c := &valueCollector{a: assemble.New()}
	for {
		tok, ok := out.Next()
		if !ok {
			break
		}
		if err := c.put(tok); err != nil {
			return nil, err
		}
	}
	if r, ok := out.(token.ErrorReporter); ok {
		if err := r.Err(); err != nil {
			return nil, err
		}
	}
	return c.values, nil
}

// A valueCollector assembles each self-contained subtree coming out of a
// filter into a value.
type valueCollector struct {
	a      *assemble.Assembler
	values []any
}

func (c *valueCollector) put(tok token.Token) error {
	if err := c.a.Put(tok); err != nil {
		return err
	}
	if c.a.Done() {
		c.values = append(c.values, c.a.Value())
		c.a = assemble.New()
	}
	return nil
}

// StreamArrayOptions configure StreamArray.
type StreamArrayOptions struct {
	// Path, if set, selects the array to paginate instead of requiring
	// the top-level value to be one.  The first accepted subtree is
	// streamed.
	Path filter.Predicate

	// Keep is the per-element discard predicate (see streamer.Stream).
	Keep func(v any) bool

	// Reviver is passed to the per-element assembler.
	Reviver assemble.Reviver
}

// StreamArray paginates a JSON array read from r.  The returned stream
// yields assembled elements one at a time; see streamer.Stream for the
// pagination contract.  Cancelling the context tears down the underlying
// reader loop and stops the stream.
func StreamArray(ctx context.Context, r io.Reader, opts StreamArrayOptions) *streamer.Stream {
	src := NewSource(ctx, r, tokenizer.PackedOnly())
	var in token.ReadStream = src
	if opts.Path != nil {
		in = Transform(src, &filter.Filter{Predicate: opts.Path, First: true, Required: true})
	}
	s := streamer.New(in)
	s.Keep = opts.Keep
	s.Reviver = opts.Reviver
	return s
}
