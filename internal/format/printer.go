// Package format provides output formatting helpers for writing token
// streams back out as JSON text: an indenting printer, ANSI colorizing
// and JSON string escaping.
package format

import (
	"fmt"
	"io"
)

// The Printer interface is used to output structured text.
//
// Indent() starts a new line at an increased indentation level,
// Dedent() at a decreased one, NewLine() at the current one;
// PrintBytes() outputs bytes at the current position.
//
// The methods do not return an error: writing failures are exceptional
// and the only sensible outcome is to unwind.  Implementations panic with
// a *PrinterError, which callers capture with CatchPrinterError:
//
//	func printingFunction(p Printer) (err error) {
//	    defer format.CatchPrinterError(&err)
//	    doSomePrinting(p)
//	    return nil
//	}
type Printer interface {
	Indent()
	Dedent()
	NewLine()
	PrintBytes([]byte)
}

// A PrinterError contains an error that occurred while a Printer was
// sending output.
type PrinterError struct {
	Err error
}

func (e *PrinterError) Error() string {
	return fmt.Sprintf("printer error: %s", e.Err)
}

func (e *PrinterError) Unwrap() error {
	return e.Err
}

// CatchPrinterError captures panics raised by a Printer implementation.
// See the Printer interface documentation.
func CatchPrinterError(err *error) {
	if r := recover(); r != nil {
		perr, ok := r.(*PrinterError)
		if !ok {
			panic(r)
		}
		*err = perr
	}
}

// DefaultPrinter is a Printer writing to an io.Writer, using IndentSize
// spaces per indentation level.  A negative IndentSize suppresses new
// lines entirely so the output is a single line; zero keeps new lines but
// no indentation.  If Flusher is set it is flushed on every new line,
// which gives early feedback when printing to a terminal.
type DefaultPrinter struct {
	io.Writer
	IndentSize  int
	Flusher     interface{ Flush() error }
	indentLevel int
}

var _ Printer = &DefaultPrinter{}

func (p *DefaultPrinter) NewLine() {
	if p.IndentSize < 0 {
		return
	}
	if p.Flusher != nil {
		if err := p.Flusher.Flush(); err != nil {
			panic(&PrinterError{Err: err})
		}
	}
	p.write([]byte{'\n'})
	for i := p.IndentSize * p.indentLevel; i > 0; i-- {
		p.write([]byte{' '})
	}
}

func (p *DefaultPrinter) Indent() {
	p.indentLevel++
	p.NewLine()
}

func (p *DefaultPrinter) Dedent() {
	p.indentLevel--
	p.NewLine()
}

func (p *DefaultPrinter) PrintBytes(b []byte) {
	p.write(b)
}

func (p *DefaultPrinter) write(b []byte) {
	if _, err := p.Write(b); err != nil {
		panic(&PrinterError{Err: err})
	}
}
