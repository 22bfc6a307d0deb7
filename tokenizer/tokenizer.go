// Package tokenizer implements an incremental JSON tokenizer.
//
// Input is delivered in chunks of arbitrary size (e.g. as received from a
// network body or a file read) and the tokenizer emits the lexical tokens
// each chunk completes, holding partial strings, numbers, escapes and
// literals in its own state across chunk boundaries.  The token sequence
// produced is independent of how the input is chunked (fragment tokens are
// split at chunk boundaries, but their concatenation is invariant).
//
// A Tokenizer instance is tied to a single input source: once Finish has
// been called, or an error has occurred, it cannot be reused.
package tokenizer

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/jsonflume/jsonflume/token"
)

// Options control which tokens the tokenizer emits.
//
// The Pack options buffer each complete key, string or number and emit it
// as a single value token (KeyValue, StringValue, NumberValue).  This is
// required by consumers that assemble concrete values.
//
// The Stream options emit fragment-level tokens (StartKey/KeyFragment/
// EndKey and their string/number counterparts) as input arrives, which is
// what a pure pass-through transcoder needs.  Disabling them suppresses
// fragment tokens entirely.
type Options struct {
	PackKeys    bool
	PackStrings bool
	PackNumbers bool

	StreamKeys    bool
	StreamStrings bool
	StreamNumbers bool
}

// DefaultOptions enables both packed values and fragments for all three
// fragmentable kinds.
func DefaultOptions() Options {
	return Options{
		PackKeys:    true,
		PackStrings: true,
		PackNumbers: true,

		StreamKeys:    true,
		StreamStrings: true,
		StreamNumbers: true,
	}
}

// PackedOnly emits only packed value tokens, no fragments.  This is the
// natural configuration when the stream is consumed by an assembler.
func PackedOnly() Options {
	return Options{PackKeys: true, PackStrings: true, PackNumbers: true}
}

type state uint8

const (
	stateValue state = iota // expecting the start of a value
	stateDone               // top-level value complete, only whitespace allowed

	stateObjectFirstKey // after '{': expecting '"' or '}'
	stateObjectKey      // after ',' in an object: expecting '"'
	stateColon          // expecting ':'
	stateObjectComma    // expecting ',' or '}'
	stateArrayFirst     // after '[': expecting a value or ']'
	stateArrayComma     // expecting ',' or ']'

	stateStringBody // inside a string or key body
	stateEscape     // just after '\'
	stateUnicode    // inside the hex digits of \uXXXX
	stateSurrogateA // after a high surrogate: expecting '\'
	stateSurrogateB // after a high surrogate: expecting 'u'

	stateLiteral // inside true/false/null

	stateNumberMinus     // after '-'
	stateNumberZero      // after a leading '0'
	stateNumberDigits    // inside integer digits
	stateNumberDot       // after '.'
	stateNumberFrac      // inside fraction digits
	stateNumberExp       // after 'e'/'E'
	stateNumberExpSign   // after the exponent sign
	stateNumberExpDigits // inside exponent digits
)

var stateNames = [...]string{
	stateValue:           "value",
	stateDone:            "done",
	stateObjectFirstKey:  "objectFirstKey",
	stateObjectKey:       "objectKey",
	stateColon:           "colon",
	stateObjectComma:     "objectComma",
	stateArrayFirst:      "arrayFirst",
	stateArrayComma:      "arrayComma",
	stateStringBody:      "stringBody",
	stateEscape:          "escape",
	stateUnicode:         "unicodeEscape",
	stateSurrogateA:      "surrogatePair",
	stateSurrogateB:      "surrogatePair",
	stateLiteral:         "literal",
	stateNumberMinus:     "numberSign",
	stateNumberZero:      "numberLeadingZero",
	stateNumberDigits:    "numberDigits",
	stateNumberDot:       "numberFractionStart",
	stateNumberFrac:      "numberFractionDigits",
	stateNumberExp:       "numberExponentStart",
	stateNumberExpSign:   "numberExponentSign",
	stateNumberExpDigits: "numberExponentDigits",
}

func (s state) String() string {
	return stateNames[s]
}

// A MalformedError reports input that does not match the JSON grammar, or
// input that ends in the middle of a token.  It carries the name of the
// tokenizer state and the offending fragment.
type MalformedError struct {
	State    string
	Fragment string
}

func (e *MalformedError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("malformed input: unexpected end of input in state %s", e.State)
	}
	return fmt.Sprintf("malformed input: unexpected %q in state %s", e.Fragment, e.State)
}

// A Tokenizer converts chunks of JSON text into a stream of tokens.  The
// zero value is not usable; use New or NewWithOptions.
type Tokenizer struct {
	opts Options

	state state
	stack []byte // parent container kinds, '{' or '['

	acc   []byte // decoded accumulator for the in-progress packed value
	frag  []byte // decoded run for the pending fragment token
	inKey bool

	lit     []byte // remaining bytes of the expected literal
	litKind token.Kind

	hex    [4]byte // hex digits of the current \uXXXX escape
	hexLen int
	high   rune // pending high surrogate, 0 if none

	out  []token.Token
	err  error
	done bool
}

func New() *Tokenizer {
	return NewWithOptions(DefaultOptions())
}

func NewWithOptions(opts Options) *Tokenizer {
	return &Tokenizer{opts: opts}
}

// Write consumes one chunk of input and returns the tokens it completes.
// The returned slice is reused by subsequent calls; the caller must not
// retain it across calls (the tokens themselves own their payloads and
// remain valid).
func (t *Tokenizer) Write(chunk []byte) ([]token.Token, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.done {
		t.err = &MalformedError{State: stateDone.String(), Fragment: "input after end"}
		return nil, t.err
	}
	t.out = t.out[:0]
	for _, b := range chunk {
		if err := t.processByte(b); err != nil {
			t.err = err
			return nil, err
		}
	}
	// A chunk boundary flushes the pending decoded run as a fragment.
	t.flushFragment()
	return t.out, nil
}

// Finish signals the end of input.  A trailing number is completed here;
// any other unfinished token is a malformed-input error.
func (t *Tokenizer) Finish() ([]token.Token, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.done {
		return nil, nil
	}
	t.out = t.out[:0]
	switch t.state {
	case stateDone:
		// unreachable, t.done is set with the state
	case stateNumberZero, stateNumberDigits, stateNumberFrac, stateNumberExpDigits:
		// Only a top-level number can be pending at end of input: inside a
		// container the closing bracket would have ended it.
		t.endNumber()
	default:
		t.err = &MalformedError{State: t.state.String(), Fragment: string(t.acc)}
		return nil, t.err
	}
	if t.state != stateDone {
		t.err = &MalformedError{State: t.state.String()}
		return nil, t.err
	}
	t.done = true
	return t.out, nil
}

// Tokens runs a whole document through a fresh pass of the tokenizer.
func (t *Tokenizer) Tokens(data []byte) ([]token.Token, error) {
	toks, err := t.Write(data)
	if err != nil {
		return nil, err
	}
	all := append([]token.Token(nil), toks...)
	toks, err = t.Finish()
	if err != nil {
		return nil, err
	}
	return append(all, toks...), nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// processByte advances the state machine by one input byte.  A byte that
// terminates a number is reprocessed in the state the number completion
// leads to, hence the loop.
func (t *Tokenizer) processByte(b byte) error {
	for {
		again, err := t.step(b)
		if err != nil || !again {
			return err
		}
	}
}

func (t *Tokenizer) step(b byte) (again bool, err error) {
	switch t.state {
	case stateValue:
		if isSpace(b) {
			return false, nil
		}
		return false, t.beginValue(b)

	case stateDone:
		if isSpace(b) {
			return false, nil
		}
		return false, t.unexpected(b)

	case stateObjectFirstKey:
		switch {
		case isSpace(b):
		case b == '"':
			t.beginString(true)
		case b == '}':
			t.closeContainer('{', token.EndObject)
		default:
			return false, t.unexpected(b)
		}
		return false, nil

	case stateObjectKey:
		switch {
		case isSpace(b):
		case b == '"':
			t.beginString(true)
		default:
			return false, t.unexpected(b)
		}
		return false, nil

	case stateColon:
		switch {
		case isSpace(b):
		case b == ':':
			t.state = stateValue
		default:
			return false, t.unexpected(b)
		}
		return false, nil

	case stateObjectComma:
		switch {
		case isSpace(b):
		case b == ',':
			t.state = stateObjectKey
		case b == '}':
			t.closeContainer('{', token.EndObject)
		default:
			return false, t.unexpected(b)
		}
		return false, nil

	case stateArrayFirst:
		if isSpace(b) {
			return false, nil
		}
		if b == ']' {
			t.closeContainer('[', token.EndArray)
			return false, nil
		}
		return false, t.beginValue(b)

	case stateArrayComma:
		switch {
		case isSpace(b):
		case b == ',':
			t.state = stateValue
		case b == ']':
			t.closeContainer('[', token.EndArray)
		default:
			return false, t.unexpected(b)
		}
		return false, nil

	case stateStringBody:
		switch {
		case b == '"':
			t.endString()
		case b == '\\':
			t.state = stateEscape
		case b < 0x20:
			return false, t.unexpected(b)
		default:
			t.putDecoded(b)
		}
		return false, nil

	case stateEscape:
		switch b {
		case '"', '\\', '/':
			t.putDecoded(b)
		case 'b':
			t.putDecoded('\b')
		case 'f':
			t.putDecoded('\f')
		case 'n':
			t.putDecoded('\n')
		case 'r':
			t.putDecoded('\r')
		case 't':
			t.putDecoded('\t')
		case 'u':
			t.hexLen = 0
			t.state = stateUnicode
			return false, nil
		default:
			return false, t.unexpected(b)
		}
		t.state = stateStringBody
		return false, nil

	case stateUnicode:
		if !isHex(b) {
			return false, t.unexpected(b)
		}
		t.hex[t.hexLen] = b
		t.hexLen++
		if t.hexLen == 4 {
			t.endUnicodeEscape()
		}
		return false, nil

	case stateSurrogateA:
		if b == '\\' {
			t.state = stateSurrogateB
			return false, nil
		}
		// Unpaired high surrogate: decode it on its own (yielding the
		// replacement character) and reprocess the byte as string body.
		t.putRune(t.high)
		t.high = 0
		t.state = stateStringBody
		return true, nil

	case stateSurrogateB:
		if b == 'u' {
			t.hexLen = 0
			t.state = stateUnicode
			return false, nil
		}
		t.putRune(t.high)
		t.high = 0
		t.state = stateEscape
		return true, nil

	case stateLiteral:
		if b != t.lit[0] {
			return false, t.unexpected(b)
		}
		t.lit = t.lit[1:]
		if len(t.lit) == 0 {
			t.emit(token.New(t.litKind))
			t.afterValue()
		}
		return false, nil

	case stateNumberMinus:
		switch {
		case b == '0':
			t.putNumber(b)
			t.state = stateNumberZero
		case b >= '1' && b <= '9':
			t.putNumber(b)
			t.state = stateNumberDigits
		default:
			return false, t.unexpected(b)
		}
		return false, nil

	case stateNumberZero:
		switch {
		case b == '.':
			t.putNumber(b)
			t.state = stateNumberDot
		case b == 'e' || b == 'E':
			t.putNumber(b)
			t.state = stateNumberExp
		default:
			t.endNumber()
			return true, nil
		}
		return false, nil

	case stateNumberDigits:
		switch {
		case isDigit(b):
			t.putNumber(b)
		case b == '.':
			t.putNumber(b)
			t.state = stateNumberDot
		case b == 'e' || b == 'E':
			t.putNumber(b)
			t.state = stateNumberExp
		default:
			t.endNumber()
			return true, nil
		}
		return false, nil

	case stateNumberDot:
		if !isDigit(b) {
			return false, t.unexpected(b)
		}
		t.putNumber(b)
		t.state = stateNumberFrac
		return false, nil

	case stateNumberFrac:
		switch {
		case isDigit(b):
			t.putNumber(b)
		case b == 'e' || b == 'E':
			t.putNumber(b)
			t.state = stateNumberExp
		default:
			t.endNumber()
			return true, nil
		}
		return false, nil

	case stateNumberExp:
		switch {
		case b == '+' || b == '-':
			t.putNumber(b)
			t.state = stateNumberExpSign
		case isDigit(b):
			t.putNumber(b)
			t.state = stateNumberExpDigits
		default:
			return false, t.unexpected(b)
		}
		return false, nil

	case stateNumberExpSign:
		if !isDigit(b) {
			return false, t.unexpected(b)
		}
		t.putNumber(b)
		t.state = stateNumberExpDigits
		return false, nil

	case stateNumberExpDigits:
		if isDigit(b) {
			t.putNumber(b)
			return false, nil
		}
		t.endNumber()
		return true, nil

	default:
		panic("invalid tokenizer state")
	}
}

func (t *Tokenizer) beginValue(b byte) error {
	switch {
	case b == '{':
		t.stack = append(t.stack, '{')
		t.emit(token.New(token.StartObject))
		t.state = stateObjectFirstKey
	case b == '[':
		t.stack = append(t.stack, '[')
		t.emit(token.New(token.StartArray))
		t.state = stateArrayFirst
	case b == '"':
		t.beginString(false)
	case b == 't':
		t.beginLiteral("rue", token.True)
	case b == 'f':
		t.beginLiteral("alse", token.False)
	case b == 'n':
		t.beginLiteral("ull", token.Null)
	case b == '-':
		t.beginNumber(b, stateNumberMinus)
	case b == '0':
		t.beginNumber(b, stateNumberZero)
	case b >= '1' && b <= '9':
		t.beginNumber(b, stateNumberDigits)
	default:
		return t.unexpected(b)
	}
	return nil
}

func (t *Tokenizer) beginString(key bool) {
	t.inKey = key
	t.state = stateStringBody
	if key {
		if t.opts.StreamKeys {
			t.emit(token.New(token.StartKey))
		}
	} else if t.opts.StreamStrings {
		t.emit(token.New(token.StartString))
	}
}

func (t *Tokenizer) endString() {
	if t.inKey {
		t.flushFragment()
		if t.opts.StreamKeys {
			t.emit(token.New(token.EndKey))
		}
		if t.opts.PackKeys {
			t.emit(token.Token{Kind: token.KeyValue, Bytes: t.takeAcc()})
		} else {
			t.acc = t.acc[:0]
		}
		t.state = stateColon
		return
	}
	t.flushFragment()
	if t.opts.StreamStrings {
		t.emit(token.New(token.EndString))
	}
	if t.opts.PackStrings {
		t.emit(token.Token{Kind: token.StringValue, Bytes: t.takeAcc()})
	} else {
		t.acc = t.acc[:0]
	}
	t.afterValue()
}

func (t *Tokenizer) beginLiteral(rest string, kind token.Kind) {
	t.lit = append(t.lit[:0], rest...)
	t.litKind = kind
	t.state = stateLiteral
}

func (t *Tokenizer) beginNumber(b byte, next state) {
	if t.opts.StreamNumbers {
		t.emit(token.New(token.StartNumber))
	}
	t.putNumber(b)
	t.state = next
}

func (t *Tokenizer) endNumber() {
	t.flushFragment()
	if t.opts.StreamNumbers {
		t.emit(token.New(token.EndNumber))
	}
	if t.opts.PackNumbers {
		t.emit(token.Token{Kind: token.NumberValue, Bytes: t.takeAcc()})
	} else {
		t.acc = t.acc[:0]
	}
	t.afterValue()
}

func (t *Tokenizer) closeContainer(open byte, kind token.Kind) {
	// The per-container states make a mismatched close unrepresentable,
	// but the stack invariant is cheap to keep explicit.
	if len(t.stack) == 0 || t.stack[len(t.stack)-1] != open {
		panic("container stack mismatch")
	}
	t.stack = t.stack[:len(t.stack)-1]
	t.emit(token.New(kind))
	t.afterValue()
}

// afterValue sets the state following a completed value, according to the
// innermost open container.
func (t *Tokenizer) afterValue() {
	if len(t.stack) == 0 {
		t.state = stateDone
		return
	}
	if t.stack[len(t.stack)-1] == '{' {
		t.state = stateObjectComma
	} else {
		t.state = stateArrayComma
	}
}

func (t *Tokenizer) endUnicodeEscape() {
	r := rune(hexVal(t.hex[0])<<12 | hexVal(t.hex[1])<<8 | hexVal(t.hex[2])<<4 | hexVal(t.hex[3]))
	if t.high != 0 {
		high := t.high
		t.high = 0
		if utf16.IsSurrogate(r) && r >= 0xDC00 {
			t.putRune(utf16.DecodeRune(high, r))
			t.state = stateStringBody
			return
		}
		// The pair did not materialize: the high surrogate decodes on its
		// own, and r is processed as a fresh escape result below.
		t.putRune(high)
	}
	if utf16.IsSurrogate(r) {
		if r < 0xDC00 {
			t.high = r
			t.state = stateSurrogateA
			return
		}
		// Lone low surrogate: putRune yields the replacement character.
	}
	t.putRune(r)
	t.state = stateStringBody
}

func (t *Tokenizer) putRune(r rune) {
	t.frag = utf8.AppendRune(t.frag, r)
	t.acc = utf8.AppendRune(t.acc, r)
}

func (t *Tokenizer) putDecoded(b byte) {
	t.frag = append(t.frag, b)
	t.acc = append(t.acc, b)
}

func (t *Tokenizer) putNumber(b byte) {
	t.frag = append(t.frag, b)
	t.acc = append(t.acc, b)
}

// flushFragment emits the pending decoded run as a fragment token, if
// fragments are enabled for the kind of token in progress.
func (t *Tokenizer) flushFragment() {
	if len(t.frag) == 0 {
		return
	}
	var kind token.Kind
	switch {
	case t.inStringState() && t.inKey:
		if !t.opts.StreamKeys {
			t.frag = t.frag[:0]
			return
		}
		kind = token.KeyFragment
	case t.inStringState():
		if !t.opts.StreamStrings {
			t.frag = t.frag[:0]
			return
		}
		kind = token.StringFragment
	default:
		if !t.opts.StreamNumbers {
			t.frag = t.frag[:0]
			return
		}
		kind = token.NumberFragment
	}
	t.emit(token.Token{Kind: kind, Bytes: append([]byte(nil), t.frag...)})
	t.frag = t.frag[:0]
}

// inStringState reports whether the pending fragment belongs to a string
// or key (as opposed to a number).  endString and endNumber flush before
// switching state, so checking the current state group is enough.
func (t *Tokenizer) inStringState() bool {
	switch t.state {
	case stateStringBody, stateEscape, stateUnicode, stateSurrogateA, stateSurrogateB:
		return true
	}
	return false
}

// takeAcc returns the accumulator contents and clears it, so successive
// values never contaminate each other.
func (t *Tokenizer) takeAcc() []byte {
	b := append([]byte(nil), t.acc...)
	t.acc = t.acc[:0]
	return b
}

func (t *Tokenizer) emit(tok token.Token) {
	t.out = append(t.out, tok)
}

func (t *Tokenizer) unexpected(b byte) error {
	frag := string(b)
	if len(t.acc) > 0 {
		frag = string(t.acc) + frag
	}
	return &MalformedError{State: t.state.String(), Fragment: frag}
}

func isHex(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

func hexVal(b byte) int {
	switch {
	case b <= '9':
		return int(b - '0')
	case b >= 'a':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}
