package pipeline

import "github.com/jsonflume/jsonflume/token"

// A Result is what a stage produces for one input token: nothing, one
// token, or several tokens that fan out in order through the remaining
// stages.  The zero value is None.  Construct results only with None,
// Emit and Many so every consumer can handle the three cases uniformly
// with Len/At.
type Result struct {
	one  token.Token
	many []token.Token
	n    int
}

// None is the result that emits nothing for this input.
var None = Result{}

// Emit produces a single token.
func Emit(tok token.Token) Result {
	return Result{one: tok, n: 1}
}

// Many fans a single input out into an ordered sequence of outputs, each
// independently continuing through the remaining stages.
func Many(toks ...token.Token) Result {
	switch len(toks) {
	case 0:
		return None
	case 1:
		return Emit(toks[0])
	default:
		return Result{many: toks, n: len(toks)}
	}
}

// Len is the number of tokens in the result.
func (r Result) Len() int {
	return r.n
}

// At returns the i-th token of the result.
func (r Result) At(i int) token.Token {
	if r.many != nil {
		return r.many[i]
	}
	if i != 0 || r.n == 0 {
		panic("result index out of range")
	}
	return r.one
}
