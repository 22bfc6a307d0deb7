package jsonflume

import (
	"fmt"

	"github.com/jsonflume/jsonflume/internal/format"
	"github.com/jsonflume/jsonflume/token"
)

// An Encoder writes a token stream back out as JSON text using the given
// Printer for layout and an optional Colorizer for terminal color.  It
// works off packed tokens; fragment and bracketing tokens are skipped.
type Encoder struct {
	Printer   format.Printer
	Colorizer *format.Colorizer

	stack   []encoderFrame
	started bool
}

type encoderFrame struct {
	array bool
	first bool
}

// Consume encodes the whole stream.  It assumes the stream is
// well-formed, i.e. a valid encoding of a JSON value, and may panic if
// that is not the case.  An error is returned if the Printer could not
// write, a typical example being a closed pipe.
func (e *Encoder) Consume(stream token.ReadStream) (err error) {
	defer format.CatchPrinterError(&err)
	for {
		tok, ok := stream.Next()
		if !ok {
			break
		}
		e.put(tok)
	}
	if r, ok := stream.(token.ErrorReporter); ok {
		if serr := r.Err(); serr != nil {
			return serr
		}
	}
	return nil
}

func (e *Encoder) put(tok token.Token) {
	switch tok.Kind {
	case token.StartObject:
		e.beforeValue()
		e.Printer.PrintBytes(openObjectBytes)
		e.stack = append(e.stack, encoderFrame{first: true})
	case token.StartArray:
		e.beforeValue()
		e.Printer.PrintBytes(openArrayBytes)
		e.stack = append(e.stack, encoderFrame{array: true, first: true})
	case token.EndObject, token.EndArray:
		top := e.pop()
		if !top.first {
			e.Printer.Dedent()
		}
		if top.array {
			e.Printer.PrintBytes(closeArrayBytes)
		} else {
			e.Printer.PrintBytes(closeObjectBytes)
		}
	case token.KeyValue:
		e.separate()
		e.Colorizer.PrintToken(e.Printer, tok)
		e.Printer.PrintBytes(keyValueSeparatorBytes)
	case token.StringValue, token.NumberValue, token.True, token.False, token.Null:
		e.beforeValue()
		e.Colorizer.PrintToken(e.Printer, tok)
	case token.StartKey, token.KeyFragment, token.EndKey,
		token.StartString, token.StringFragment, token.EndString,
		token.StartNumber, token.NumberFragment, token.EndNumber:
		// packed tokens carry everything the encoder needs
	default:
		panic(fmt.Sprintf("invalid stream token: %s", tok))
	}
}

// beforeValue emits the separator a value needs in its context: nothing
// after a key, a comma between array elements, a new line between
// top-level values.
func (e *Encoder) beforeValue() {
	if len(e.stack) == 0 {
		if e.started {
			e.Printer.NewLine()
		}
		e.started = true
		return
	}
	if e.stack[len(e.stack)-1].array {
		e.separate()
	}
}

// separate positions the printer for the next item of the innermost
// container.
func (e *Encoder) separate() {
	top := &e.stack[len(e.stack)-1]
	if top.first {
		top.first = false
		e.Printer.Indent()
	} else {
		e.Printer.PrintBytes(itemSeparatorBytes)
		e.Printer.NewLine()
	}
}

func (e *Encoder) pop() encoderFrame {
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return top
}

var (
	openObjectBytes        = []byte("{")
	closeObjectBytes       = []byte("}")
	openArrayBytes         = []byte("[")
	closeArrayBytes        = []byte("]")
	itemSeparatorBytes     = []byte(",")
	keyValueSeparatorBytes = []byte(": ")
)
