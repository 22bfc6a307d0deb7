package format

import "github.com/jsonflume/jsonflume/token"

// A Colorizer wraps printed tokens in ANSI color codes.  A nil *Colorizer
// is valid and prints without color.
type Colorizer struct {
	KeyColorCode    []byte
	StringColorCode []byte
	NumberColorCode []byte
	BoolColorCode   []byte
	NullColorCode   []byte
	ResetCode       []byte
}

func (c *Colorizer) colorCode(kind token.Kind) []byte {
	switch kind {
	case token.KeyValue:
		return c.KeyColorCode
	case token.StringValue:
		return c.StringColorCode
	case token.NumberValue:
		return c.NumberColorCode
	case token.True, token.False:
		return c.BoolColorCode
	case token.Null:
		return c.NullColorCode
	default:
		return nil
	}
}

// PrintToken outputs the JSON text form of a packed scalar or key token,
// re-escaping decoded string payloads.
func (c *Colorizer) PrintToken(p Printer, tok token.Token) {
	if c != nil {
		p.PrintBytes(c.colorCode(tok.Kind))
	}
	switch tok.Kind {
	case token.KeyValue, token.StringValue:
		p.PrintBytes(AppendQuoted(nil, tok.Bytes))
	case token.NumberValue:
		p.PrintBytes(tok.Bytes)
	case token.True:
		p.PrintBytes(trueBytes)
	case token.False:
		p.PrintBytes(falseBytes)
	case token.Null:
		p.PrintBytes(nullBytes)
	}
	if c != nil {
		p.PrintBytes(c.ResetCode)
	}
}

var (
	trueBytes  = []byte("true")
	falseBytes = []byte("false")
	nullBytes  = []byte("null")
)

const hexDigits = "0123456789abcdef"

// AppendQuoted appends the JSON string literal encoding of s, quotes
// included.  Only characters the JSON grammar cannot carry verbatim are
// escaped; multi-byte UTF-8 passes through unchanged.
func AppendQuoted(dst []byte, s []byte) []byte {
	dst = append(dst, '"')
	for _, b := range s {
		switch {
		case b == '"':
			dst = append(dst, '\\', '"')
		case b == '\\':
			dst = append(dst, '\\', '\\')
		case b >= 0x20:
			dst = append(dst, b)
		case b == '\n':
			dst = append(dst, '\\', 'n')
		case b == '\r':
			dst = append(dst, '\\', 'r')
		case b == '\t':
			dst = append(dst, '\\', 't')
		case b == '\b':
			dst = append(dst, '\\', 'b')
		case b == '\f':
			dst = append(dst, '\\', 'f')
		default:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xF])
		}
	}
	return append(dst, '"')
}
