package tokenizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/jsonflume/jsonflume/token"
)

func packedTokens(t *testing.T, input string) []token.Token {
	t.Helper()
	toks, err := NewWithOptions(PackedOnly()).Tokens([]byte(input))
	if err != nil {
		t.Fatalf("Tokens(%q): %s", input, err)
	}
	return toks
}

func checkTokens(t *testing.T, got, want []token.Token) {
	t.Helper()
	n := len(got)
	if len(want) > n {
		n = len(want)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(got):
			t.Errorf("token %d: missing, want %s", i, want[i])
		case i >= len(want):
			t.Errorf("token %d: extra %s", i, got[i])
		case !got[i].Equal(want[i]):
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTokensPacked(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []token.Token
	}{
		{
			name:  "empty object",
			input: `{}`,
			want:  []token.Token{token.New(token.StartObject), token.New(token.EndObject)},
		},
		{
			name:  "empty array",
			input: `[]`,
			want:  []token.Token{token.New(token.StartArray), token.New(token.EndArray)},
		},
		{
			name:  "top-level string",
			input: `"hello"`,
			want:  []token.Token{token.Str("hello")},
		},
		{
			name:  "top-level number",
			input: `-12.5e+3`,
			want:  []token.Token{token.Num("-12.5e+3")},
		},
		{
			name:  "literals",
			input: `[true, false, null]`,
			want: []token.Token{
				token.New(token.StartArray),
				token.Bool(true),
				token.Bool(false),
				token.New(token.Null),
				token.New(token.EndArray),
			},
		},
		{
			name:  "simple object",
			input: `{"a": {"b": [1, 2, 3]}, "c": 1}`,
			want: []token.Token{
				token.New(token.StartObject),
				token.Key("a"),
				token.New(token.StartObject),
				token.Key("b"),
				token.New(token.StartArray),
				token.Num("1"),
				token.Num("2"),
				token.Num("3"),
				token.New(token.EndArray),
				token.New(token.EndObject),
				token.Key("c"),
				token.Num("1"),
				token.New(token.EndObject),
			},
		},
		{
			name:  "surrounding whitespace",
			input: "\n\t [ 0 ] \r\n",
			want: []token.Token{
				token.New(token.StartArray),
				token.Num("0"),
				token.New(token.EndArray),
			},
		},
		{
			name:  "nested empties",
			input: `[[],{},[{}]]`,
			want: []token.Token{
				token.New(token.StartArray),
				token.New(token.StartArray),
				token.New(token.EndArray),
				token.New(token.StartObject),
				token.New(token.EndObject),
				token.New(token.StartArray),
				token.New(token.StartObject),
				token.New(token.EndObject),
				token.New(token.EndArray),
				token.New(token.EndArray),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkTokens(t, packedTokens(t, tt.input), tt.want)
		})
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple escapes", `"\" \\ \/ \b \f \n \r \t"`, "\" \\ / \b \f \n \r \t"},
		{"unicode escape", `"aA\tb"`, "aA\tb"},
		{"unicode non-ascii", `"é世"`, "é世"},
		{"surrogate pair", `"😀"`, "😀"},
		{"pair then text", `"x😀y"`, "x😀y"},
		{"lone high surrogate before text", `"\ud83dZ"`, "�Z"},
		{"lone high surrogate at end", `"\ud83d"`, "�"},
		{"lone low surrogate", `"\ude00"`, "�"},
		{"high surrogate then escape", `"\ud83d\n"`, "�\n"},
		{"high surrogate then non-surrogate escape", `"\ud83dA"`, "�A"},
		{"two high surrogates then low", `"\ud83d😀"`, "�😀"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := packedTokens(t, tt.input)
			checkTokens(t, toks, []token.Token{token.Str(tt.want)})
		})
	}
}

func TestChunkingInvariance(t *testing.T) {
	// The packed token sequence must not depend on where the input is
	// split.  Every split point of every input is checked.
	inputs := []string{
		`{"a": {"b": [1, 2, 3]}, "c": 1}`,
		`"x😀y"`,
		`[-12.5e+3, 0.25, true, null, "aA\tb"]`,
		`{"items": [{"id": 1}, {"id": 2}], "total": 2}`,
	}
	for _, input := range inputs {
		want := packedTokens(t, input)
		for cut := 0; cut <= len(input); cut++ {
			tok := NewWithOptions(PackedOnly())
			var got []token.Token
			toks, err := tok.Write([]byte(input[:cut]))
			if err != nil {
				t.Fatalf("%q cut at %d: %s", input, cut, err)
			}
			got = append(got, toks...)
			toks, err = tok.Write([]byte(input[cut:]))
			if err != nil {
				t.Fatalf("%q cut at %d: %s", input, cut, err)
			}
			got = append(got, toks...)
			toks, err = tok.Finish()
			if err != nil {
				t.Fatalf("%q cut at %d: %s", input, cut, err)
			}
			got = append(got, toks...)
			checkTokens(t, got, want)
		}
	}
}

func TestByteAtATime(t *testing.T) {
	input := `{"key": [1.5, "two\n", {"deep": true}], "n": null}`
	want := packedTokens(t, input)
	tok := NewWithOptions(PackedOnly())
	var got []token.Token
	for i := 0; i < len(input); i++ {
		toks, err := tok.Write([]byte{input[i]})
		if err != nil {
			t.Fatalf("byte %d (%q): %s", i, input[i], err)
		}
		got = append(got, toks...)
	}
	toks, err := tok.Finish()
	if err != nil {
		t.Fatalf("Finish: %s", err)
	}
	got = append(got, toks...)
	checkTokens(t, got, want)
}

func TestStreamedFragments(t *testing.T) {
	// With fragments enabled the split point decides where fragment
	// boundaries fall, but their concatenation is the packed payload.
	input := `"hello world"`
	for cut := 1; cut < len(input); cut++ {
		tok := New()
		var got []token.Token
		for _, chunk := range []string{input[:cut], input[cut:]} {
			toks, err := tok.Write([]byte(chunk))
			if err != nil {
				t.Fatalf("cut at %d: %s", cut, err)
			}
			got = append(got, toks...)
		}
		if _, err := tok.Finish(); err != nil {
			t.Fatalf("cut at %d: %s", cut, err)
		}

		if got[0].Kind != token.StartString {
			t.Fatalf("cut at %d: first token %s, want StartString", cut, got[0])
		}
		var text strings.Builder
		var packed token.Token
		for _, tk := range got[1:] {
			switch tk.Kind {
			case token.StringFragment:
				text.Write(tk.Bytes)
			case token.EndString:
			case token.StringValue:
				packed = tk
			default:
				t.Fatalf("cut at %d: unexpected token %s", cut, tk)
			}
		}
		if text.String() != "hello world" {
			t.Errorf("cut at %d: fragments concatenate to %q", cut, text.String())
		}
		if string(packed.Bytes) != "hello world" {
			t.Errorf("cut at %d: packed value %q", cut, packed.Bytes)
		}
	}
}

func TestStreamOnlyOptions(t *testing.T) {
	opts := Options{StreamKeys: true, StreamStrings: true, StreamNumbers: true}
	toks, err := NewWithOptions(opts).Tokens([]byte(`{"a": 12}`))
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Token{
		token.New(token.StartObject),
		token.New(token.StartKey),
		{Kind: token.KeyFragment, Bytes: []byte("a")},
		token.New(token.EndKey),
		token.New(token.StartNumber),
		{Kind: token.NumberFragment, Bytes: []byte("12")},
		token.New(token.EndNumber),
		token.New(token.EndObject),
	}
	checkTokens(t, toks, want)
}

func TestTrailingNumberCompletedAtFinish(t *testing.T) {
	tok := NewWithOptions(PackedOnly())
	toks, err := tok.Write([]byte(`42`))
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 0 {
		t.Fatalf("got %d tokens before Finish, want 0", len(toks))
	}
	toks, err = tok.Finish()
	if err != nil {
		t.Fatal(err)
	}
	checkTokens(t, toks, []token.Token{token.Num("42")})
}

func TestMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing value", `{"a":}`},
		{"leading zero", `01`},
		{"bare minus", `[-]`},
		{"truncated literal", `tru`},
		{"misspelt literal", `nulL`},
		{"input after end", `{} x`},
		{"unquoted key", `{a: 1}`},
		{"missing colon", `{"a" 1}`},
		{"trailing comma", `[1,]`},
		{"control char in string", "\"a\x01b\""},
		{"bad escape", `"\q"`},
		{"bad unicode escape", `"\u00g0"`},
		{"unterminated string", `"abc`},
		{"unterminated object", `{"a": 1`},
		{"lone comma", `,`},
		{"empty input", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWithOptions(PackedOnly()).Tokens([]byte(tt.input))
			if err == nil {
				t.Fatalf("Tokens(%q): expected error", tt.input)
			}
			var merr *MalformedError
			if !errors.As(err, &merr) {
				t.Fatalf("Tokens(%q): error type %T, want *MalformedError", tt.input, err)
			}
		})
	}
}

func TestMalformedErrorMessage(t *testing.T) {
	_, err := NewWithOptions(PackedOnly()).Tokens([]byte(`{"a":}`))
	if err == nil {
		t.Fatal("expected error")
	}
	var merr *MalformedError
	if !errors.As(err, &merr) {
		t.Fatalf("error type %T, want *MalformedError", err)
	}
	if merr.State != "value" {
		t.Errorf("State = %q, want %q", merr.State, "value")
	}
	if !strings.Contains(merr.Error(), "malformed input") {
		t.Errorf("message %q does not mention malformed input", merr.Error())
	}
}

func TestErrorIsSticky(t *testing.T) {
	tok := NewWithOptions(PackedOnly())
	_, err := tok.Write([]byte(`}`))
	if err == nil {
		t.Fatal("expected error")
	}
	_, err2 := tok.Write([]byte(`{}`))
	if err2 != err {
		t.Errorf("second Write error = %v, want the original %v", err2, err)
	}
}

func TestWriteAfterFinish(t *testing.T) {
	tok := NewWithOptions(PackedOnly())
	if _, err := tok.Write([]byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := tok.Finish(); err != nil {
		t.Fatal(err)
	}
	if _, err := tok.Write([]byte(`{}`)); err == nil {
		t.Error("expected error writing after Finish")
	}
}

func TestFinishAfterFinish(t *testing.T) {
	tok := NewWithOptions(PackedOnly())
	if _, err := tok.Write([]byte(`1 `)); err != nil {
		t.Fatal(err)
	}
	if _, err := tok.Finish(); err != nil {
		t.Fatal(err)
	}
	toks, err := tok.Finish()
	if err != nil {
		t.Fatalf("second Finish: %s", err)
	}
	if len(toks) != 0 {
		t.Errorf("second Finish returned %d tokens", len(toks))
	}
}
