// Package streamer paginates a top-level JSON array into assembled
// elements without materializing the whole array.
//
// A Stream pulls tokens from a token.ReadStream, asserts that the stream
// encodes an array, and yields one assembled element as soon as that
// element completes.  Yielded elements are never retained, so memory use
// is bounded by one element regardless of the size of the array.
package streamer

import (
	"context"
	"fmt"

	"github.com/jsonflume/jsonflume/assemble"
	"github.com/jsonflume/jsonflume/token"
)

// A TopLevelShapeError reports that the input's top-level value is not an
// array, which makes pagination undefined.  It is raised before any
// element is yielded.
type TopLevelShapeError struct {
	Got token.Kind
}

func (e *TopLevelShapeError) Error() string {
	return fmt.Sprintf("expected a top-level array, got %s", e.Got)
}

// A Page is one batch of assembled array elements.  HasMore reports
// whether requesting another page can yield further elements.
type Page struct {
	Values  []any
	HasMore bool
}

// A Stream yields the elements of a top-level array one at a time.
// Successive calls resume the same underlying token stream rather than
// re-reading from the start; restarting from the first element requires a
// new Stream over a fresh token stream.
type Stream struct {
	// Keep, if set, is evaluated on each assembled element before it is
	// retained; elements it returns false for are dropped, not yielded.
	Keep func(v any) bool

	// Reviver is passed to the per-element assembler.
	Reviver assemble.Reviver

	src      token.ReadStream
	started  bool
	finished bool
	pending  *token.Token
	err      error
}

func New(src token.ReadStream) *Stream {
	return &Stream{src: src}
}

// Next yields the next retained element.  ok is false once the array is
// exhausted.  Cancelling the context stops the stream; a cancelled stream
// yields no further elements.
func (s *Stream) Next(ctx context.Context) (v any, ok bool, err error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if err := ctx.Err(); err != nil {
		s.err = err
		return nil, false, err
	}
	if s.finished {
		return nil, false, nil
	}
	if !s.started {
		if err := s.start(); err != nil {
			return nil, false, err
		}
	}
	for {
		tok, ok, err := s.next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, s.fail(fmt.Errorf("streamer: input ended inside array"))
		}
		if tok.Kind == token.EndArray {
			s.finished = true
			return nil, false, nil
		}
		elem, err := s.assembleElement(tok)
		if err != nil {
			return nil, false, err
		}
		if s.Keep != nil && !s.Keep(elem) {
			continue
		}
		return elem, true, nil
	}
}

// NextPage yields the next page of up to n retained elements.  A page is
// only marked HasMore after confirming that at least one further element
// begins, so an exactly-full final page reports HasMore == false.
func (s *Stream) NextPage(ctx context.Context, n int) (Page, error) {
	page := Page{}
	for len(page.Values) < n {
		v, ok, err := s.Next(ctx)
		if err != nil {
			return Page{}, err
		}
		if !ok {
			return page, nil
		}
		page.Values = append(page.Values, v)
	}
	more, err := s.probe()
	if err != nil {
		return Page{}, err
	}
	page.HasMore = more
	return page, nil
}

// start consumes the opening StartArray.
func (s *Stream) start() error {
	tok, ok, err := s.next()
	if err != nil {
		return err
	}
	if !ok {
		return s.fail(fmt.Errorf("streamer: empty input"))
	}
	if tok.Kind != token.StartArray {
		return s.fail(&TopLevelShapeError{Got: tok.Kind})
	}
	s.started = true
	return nil
}

// next returns the read-ahead token if one is pending, otherwise pulls
// from the source, converting a source failure into the stream error.
func (s *Stream) next() (token.Token, bool, error) {
	if s.pending != nil {
		tok := *s.pending
		s.pending = nil
		return tok, true, nil
	}
	tok, ok := s.src.Next()
	if !ok {
		if r, hasErr := s.src.(token.ErrorReporter); hasErr {
			if err := r.Err(); err != nil {
				return token.Token{}, false, s.fail(err)
			}
		}
	}
	return tok, ok, nil
}

// probe looks one token ahead to determine whether another element
// begins.  The token is kept pending for the next call.
func (s *Stream) probe() (bool, error) {
	if s.finished {
		return false, nil
	}
	tok, ok, err := s.next()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, s.fail(fmt.Errorf("streamer: input ended inside array"))
	}
	if tok.Kind == token.EndArray {
		s.finished = true
		return false, nil
	}
	s.pending = &tok
	return true, nil
}

// assembleElement feeds tokens to a fresh assembler until the element
// rooted at first completes.  An element that errors mid-assembly is not
// yielded.
func (s *Stream) assembleElement(first token.Token) (any, error) {
	a := assemble.New()
	a.Reviver = s.Reviver
	if err := a.Put(first); err != nil {
		return nil, s.fail(err)
	}
	for !a.Done() {
		tok, ok, err := s.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, s.fail(fmt.Errorf("streamer: input ended inside element"))
		}
		if err := a.Put(tok); err != nil {
			return nil, s.fail(err)
		}
	}
	return a.Value(), nil
}

func (s *Stream) fail(err error) error {
	s.err = err
	return err
}
