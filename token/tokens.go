package token

import "fmt"

// A Token is an item in a stream that encodes a JSON value.  For example,
// the JSON value
//
//	{"id": 123, "tags": ["new"]}
//
// would be represented by the stream of Token (in pseudocode for clarity):
//
//	{       -> StartObject
//	"id":   -> KeyValue("id")
//	123,    -> NumberValue("123")
//	"tags": -> KeyValue("tags")
//	[       -> StartArray
//	"new"   -> StringValue("new")
//	]       -> EndArray
//	}       -> EndObject
//
// A tokenizer configured to stream fragments additionally brackets each
// string, key or number with Start/End tokens and emits the body in
// fragments, so the same input can be transcoded without ever holding a
// complete value in memory.
//
// Tokens are immutable and ordered; they carry no position information.
type Token struct {
	// Kind discriminates the token.
	Kind Kind

	// Bytes is the payload for fragment and value kinds:
	// - for KeyFragment/KeyValue/StringFragment/StringValue it is the
	//   decoded (unescaped) text
	// - for NumberFragment/NumberValue it is the literal text as found
	//   in the input, preserving full precision
	// It is nil for all other kinds.
	Bytes []byte
}

// Kind enumerates the lexical events a tokenizer can produce.
type Kind uint8

const (
	Invalid Kind = iota

	StartObject // '{'
	EndObject   // '}'
	StartArray  // '['
	EndArray    // ']'

	StartKey    // opening quote of an object key
	KeyFragment // part of the decoded key text
	EndKey      // closing quote of an object key
	KeyValue    // complete decoded key

	StartString    // opening quote of a string value
	StringFragment // part of the decoded string text
	EndString      // closing quote of a string value
	StringValue    // complete decoded string

	StartNumber    // first byte of a number
	NumberFragment // part of the number literal
	EndNumber      // byte after the last number byte
	NumberValue    // complete number literal

	True  // the literal true
	False // the literal false
	Null  // the literal null
)

var kindNames = [...]string{
	Invalid:        "Invalid",
	StartObject:    "StartObject",
	EndObject:      "EndObject",
	StartArray:     "StartArray",
	EndArray:       "EndArray",
	StartKey:       "StartKey",
	KeyFragment:    "KeyFragment",
	EndKey:         "EndKey",
	KeyValue:       "KeyValue",
	StartString:    "StartString",
	StringFragment: "StringFragment",
	EndString:      "EndString",
	StringValue:    "StringValue",
	StartNumber:    "StartNumber",
	NumberFragment: "NumberFragment",
	EndNumber:      "EndNumber",
	NumberValue:    "NumberValue",
	True:           "True",
	False:          "False",
	Null:           "Null",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (t Token) String() string {
	switch t.Kind {
	case KeyFragment, KeyValue, StringFragment, StringValue, NumberFragment, NumberValue:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Bytes)
	default:
		return t.Kind.String()
	}
}

// IsStartContainer reports whether the token opens an object or an array.
func (t Token) IsStartContainer() bool {
	return t.Kind == StartObject || t.Kind == StartArray
}

// IsEndContainer reports whether the token closes an object or an array.
func (t Token) IsEndContainer() bool {
	return t.Kind == EndObject || t.Kind == EndArray
}

// IsValue reports whether the token is a complete scalar value, i.e. a
// packed string or number, or one of the three literals.  Keys are not
// values.
func (t Token) IsValue() bool {
	switch t.Kind {
	case StringValue, NumberValue, True, False, Null:
		return true
	}
	return false
}

// Equal compares two tokens by kind and payload.
func (t Token) Equal(u Token) bool {
	return t.Kind == u.Kind && string(t.Bytes) == string(u.Bytes)
}

// New returns a token of the given kind with no payload.
func New(kind Kind) Token {
	return Token{Kind: kind}
}

// Key returns a packed key token with the given decoded text.
func Key(s string) Token {
	return Token{Kind: KeyValue, Bytes: []byte(s)}
}

// Str returns a packed string value token with the given decoded text.
func Str(s string) Token {
	return Token{Kind: StringValue, Bytes: []byte(s)}
}

// Num returns a packed number value token with the given literal text.
func Num(literal string) Token {
	return Token{Kind: NumberValue, Bytes: []byte(literal)}
}

// Bool returns the token for a JSON boolean.
func Bool(b bool) Token {
	if b {
		return Token{Kind: True}
	}
	return Token{Kind: False}
}
