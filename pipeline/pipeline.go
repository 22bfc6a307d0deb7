// Package pipeline provides a small combinator framework for composing
// token-to-token transforms into a single pull-driven pipeline.
//
// A Stage consumes one token at a time and produces zero, one or many
// tokens (see Result).  Gen composes any number of stages into one: each
// upstream output is threaded depth-first through all downstream stages
// before the next upstream output is requested, so an oversized fan-out
// never has to be buffered in full by the driver.
//
// A stage terminates the whole pipeline early by returning Stop; the
// driver treats this as clean completion, not as an error.  Stages that
// hold residue (e.g. a tokenizer's trailing number) implement Flusher to
// receive exactly one final call once the upstream is exhausted.
package pipeline

import (
	"errors"
	"log"

	"github.com/jsonflume/jsonflume/token"
)

// Stop terminates the pipeline early.  It is the only sanctioned form of
// pipeline-internal early termination: the driver recognizes it with
// errors.Is and reports success.  Any other error aborts the pipeline and
// is propagated to the caller.
var Stop = errors.New("pipeline stopped")

// A Stage transforms one input token into a Result.  Tokens returned
// alongside a non-nil error are still delivered downstream before the
// error takes effect, so a stage can return its final output and Stop
// from the same call.
type Stage interface {
	Process(tok token.Token) (Result, error)
}

// StageFunc adapts a plain function to the Stage interface.
type StageFunc func(tok token.Token) (Result, error)

func (f StageFunc) Process(tok token.Token) (Result, error) {
	return f(tok)
}

// A Flusher is a Stage with residue to flush when the upstream is
// exhausted.  Flush is called exactly once, in pipeline order, and only on
// stages that implement it.
type Flusher interface {
	Flush() (Result, error)
}

// Gen composes stages into a single stage.  With no arguments it returns
// the identity stage.
func Gen(stages ...Stage) Stage {
	if len(stages) == 1 {
		return stages[0]
	}
	return &chain{stages: stages}
}

type chain struct {
	stages []Stage
}

var _ Stage = &chain{}
var _ Flusher = &chain{}

func (c *chain) Process(tok token.Token) (Result, error) {
	var out []token.Token
	err := c.feed(0, tok, func(t token.Token) {
		out = append(out, t)
	})
	// Tokens produced before a failure are still delivered; with Stop
	// they are the tail of the output.
	return Many(out...), err
}

// feed pushes one token through stages i..n-1, depth-first, calling sink
// for every token that comes out of the last stage.
func (c *chain) feed(i int, tok token.Token, sink func(token.Token)) error {
	if i == len(c.stages) {
		sink(tok)
		return nil
	}
	res, err := c.stages[i].Process(tok)
	for j := 0; j < res.Len(); j++ {
		if ferr := c.feed(i+1, res.At(j), sink); ferr != nil {
			return ferr
		}
	}
	return err
}

// Flush flushes each flushable stage in pipeline order, pushing whatever
// it produces through the remaining stages first.
func (c *chain) Flush() (Result, error) {
	var out []token.Token
	sink := func(t token.Token) {
		out = append(out, t)
	}
	for i, stage := range c.stages {
		f, ok := stage.(Flusher)
		if !ok {
			continue
		}
		res, err := f.Flush()
		for j := 0; j < res.Len(); j++ {
			if ferr := c.feed(i+1, res.At(j), sink); ferr != nil {
				return Many(out...), ferr
			}
		}
		if err != nil {
			return Many(out...), err
		}
	}
	return Many(out...), nil
}

// A Trace logs every token passing through it and sends it on unchanged.
// It's useful for debugging pipelines.
type Trace struct {
	// Logger defaults to the standard logger.
	Logger *log.Logger
}

var _ Stage = Trace{}

func (t Trace) Process(tok token.Token) (Result, error) {
	if t.Logger != nil {
		t.Logger.Printf("%s", tok)
	} else {
		log.Printf("%s", tok)
	}
	return Emit(tok), nil
}

// Run drives tokens from in through the stage into out.  It returns nil
// on normal completion or when the stage stopped the pipeline with Stop;
// any other stage error is returned as is.  Run performs no buffering
// beyond a single Result: the upstream is only pulled when the previous
// token has been fully pushed through, which is the backpressure contract.
func Run(in token.ReadStream, stage Stage, out token.WriteStream) error {
	emit := func(res Result) {
		for i := 0; i < res.Len(); i++ {
			out.Put(res.At(i))
		}
	}
	for {
		tok, ok := in.Next()
		if !ok {
			break
		}
		res, err := stage.Process(tok)
		// Tokens returned alongside an error are delivered first, so a
		// stage can stop the pipeline on the same call that completes
		// its output.
		emit(res)
		if err != nil {
			if errors.Is(err, Stop) {
				return nil
			}
			return err
		}
	}
	if f, ok := stage.(Flusher); ok {
		res, err := f.Flush()
		emit(res)
		if err != nil {
			if errors.Is(err, Stop) {
				return nil
			}
			return err
		}
	}
	return nil
}
