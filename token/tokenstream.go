package token

// A ReadStream is a pull-based source of tokens.  Next returns the next
// token in the stream; ok is false once the stream is exhausted.  The
// consumer's Next call is the only backpressure signal: a producer feeding
// an unbuffered channel suspends until the consumer asks for more.
type ReadStream interface {
	Next() (tok Token, ok bool)
}

// A WriteStream is a push-based sink of tokens.
type WriteStream interface {
	Put(Token)
}

// An ErrorReporter is implemented by streams that can fail after the fact,
// e.g. a stream fed by a tokenizer reading from a network body.  Err must
// only be consulted once Next has returned ok == false.
type ErrorReporter interface {
	Err() error
}

type ChannelReadStream <-chan Token

var _ ReadStream = make(ChannelReadStream)

func (r ChannelReadStream) Next() (Token, bool) {
	tok, ok := <-r
	return tok, ok
}

type ChannelWriteStream chan<- Token

var _ WriteStream = make(ChannelWriteStream)

func (w ChannelWriteStream) Put(tok Token) {
	w <- tok
}

type SliceReadStream struct {
	toks []Token
}

var _ ReadStream = &SliceReadStream{}

func NewSliceReadStream(toks []Token) *SliceReadStream {
	return &SliceReadStream{toks: toks}
}

func (r *SliceReadStream) Next() (tok Token, ok bool) {
	if len(r.toks) == 0 {
		return Token{}, false
	}
	tok = r.toks[0]
	r.toks = r.toks[1:]
	return tok, true
}

// An AccumulatorStream is a WriteStream that records all tokens put into
// it.  Mostly useful for tests and for assembling filtered subtrees.
type AccumulatorStream struct {
	toks []Token
}

var _ WriteStream = &AccumulatorStream{}

func NewAccumulatorStream() *AccumulatorStream {
	return &AccumulatorStream{}
}

func (w *AccumulatorStream) Put(tok Token) {
	w.toks = append(w.toks, tok)
}

func (w *AccumulatorStream) GetTokens() []Token {
	return w.toks
}

// A RestartableReadStream wraps a ReadStream, recording consumed tokens so
// the stream can be replayed from the start.  It is used to re-run a
// pipeline over the same token sequence without re-tokenizing the input.
type RestartableReadStream struct {
	stream   ReadStream
	consumed []Token
	index    int
}

var _ ReadStream = &RestartableReadStream{}

func NewRestartableReadStream(stream ReadStream) *RestartableReadStream {
	return &RestartableReadStream{stream: stream}
}

func (r *RestartableReadStream) Next() (Token, bool) {
	if r.index < len(r.consumed) {
		next := r.consumed[r.index]
		r.index++
		return next, true
	}
	next, ok := r.stream.Next()
	if ok {
		r.consumed = append(r.consumed, next)
		r.index++
	}
	return next, ok
}

func (r *RestartableReadStream) Restart() {
	r.index = 0
}
