package jsonflume

import (
	"context"
	"errors"
	"io"

	"github.com/jsonflume/jsonflume/internal/chunker"
	"github.com/jsonflume/jsonflume/pipeline"
	"github.com/jsonflume/jsonflume/token"
	"github.com/jsonflume/jsonflume/tokenizer"
)

// A Source tokenizes an io.Reader into a pull-based token stream.  The
// reader is consumed chunk by chunk in a goroutine that suspends while
// the consumer is not asking for tokens, so the consumer's pace is the
// only thing driving input ingestion.
//
// Cancelling the context stops chunk ingestion and ends the stream; the
// cause is then available from Err.  Err must only be consulted after
// Next has returned ok == false.
type Source struct {
	ch  chan token.Token
	err error
}

var _ token.ReadStream = &Source{}
var _ token.ErrorReporter = &Source{}

// NewSource starts tokenizing r with the given tokenizer options.
func NewSource(ctx context.Context, r io.Reader, opts tokenizer.Options) *Source {
	s := &Source{ch: make(chan token.Token)}
	go s.run(ctx, r, opts)
	return s
}

func (s *Source) run(ctx context.Context, r io.Reader, opts tokenizer.Options) {
	defer close(s.ch)
	in := chunker.New(r)
	tz := tokenizer.NewWithOptions(opts)
	for {
		chunk, err := in.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				toks, ferr := tz.Finish()
				if s.send(ctx, toks) {
					s.err = ferr
				}
			} else {
				s.err = err
			}
			return
		}
		toks, terr := tz.Write(chunk)
		if !s.send(ctx, toks) {
			return
		}
		if terr != nil {
			s.err = terr
			return
		}
	}
}

// send delivers tokens, suspending while the consumer is not ready.  It
// reports false if the context was cancelled mid-delivery.
func (s *Source) send(ctx context.Context, toks []token.Token) bool {
	for _, tok := range toks {
		select {
		case s.ch <- tok:
		case <-ctx.Done():
			s.err = ctx.Err()
			return false
		}
	}
	return true
}

func (s *Source) Next() (token.Token, bool) {
	tok, ok := <-s.ch
	return tok, ok
}

func (s *Source) Err() error {
	return s.err
}

// Transform applies a pipeline stage to the incoming token stream,
// returning a new stream.  This is always fast because the stage runs in
// a goroutine, fed one token at a time as the returned stream is read.
func Transform(in token.ReadStream, stage pipeline.Stage) token.ReadStream {
	out := &stageStream{ch: make(chan token.Token)}
	tracked := &trackedStream{in: in}
	go func() {
		defer close(out.ch)
		err := pipeline.Run(tracked, stage, token.ChannelWriteStream(out.ch))
		// The upstream error may only be consulted once the upstream has
		// ended; a stage stopping early leaves it running.
		if err == nil && tracked.exhausted {
			if r, ok := in.(token.ErrorReporter); ok {
				err = r.Err()
			}
		}
		out.err = err
	}()
	return out
}

type trackedStream struct {
	in        token.ReadStream
	exhausted bool
}

func (s *trackedStream) Next() (token.Token, bool) {
	tok, ok := s.in.Next()
	if !ok {
		s.exhausted = true
	}
	return tok, ok
}

type stageStream struct {
	ch  chan token.Token
	err error
}

var _ token.ReadStream = &stageStream{}
var _ token.ErrorReporter = &stageStream{}

func (s *stageStream) Next() (token.Token, bool) {
	tok, ok := <-s.ch
	return tok, ok
}

func (s *stageStream) Err() error {
	return s.err
}
