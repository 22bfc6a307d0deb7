package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/jsonflume/jsonflume"
	"github.com/jsonflume/jsonflume/filter"
	"github.com/jsonflume/jsonflume/internal/format"
	"github.com/jsonflume/jsonflume/streamer"
	"github.com/jsonflume/jsonflume/token"
	"github.com/jsonflume/jsonflume/tokenizer"
)

func main() {
	// Do not handle SIGPIPE, we'll do it ourselves (see error handling at the bottom of main).
	signal.Ignore(syscall.SIGPIPE)

	// Display a stack trace on panic
	defer func() {
		if e := recover(); e != nil {
			fmt.Fprintf(os.Stderr, "%s: %s", e, debug.Stack())
		}
	}()

	var filename string
	var indent int
	var selectExpr string
	var first bool
	var array bool
	var pageSize int
	var matchExpr string
	var colorizer *format.Colorizer

	if isatty.IsTerminal(os.Stdout.Fd()) {
		colorizer = &defaultColorizer
	}

	flag.BoolFunc("colors", "force using colors", func(s string) error {
		colorizer = &defaultColorizer
		return nil
	})
	flag.BoolFunc("nocolors", "disable colors", func(s string) error {
		colorizer = nil
		return nil
	})

	flag.StringVar(&filename, "file", "", "json input filename (stdin if omitted)")
	flag.IntVar(&indent, "indent", 2, "indent step for json output (negative means no new lines)")
	flag.StringVar(&selectExpr, "select", "", "path pattern selecting the subtrees to output (e.g. 'items.*.id')")
	flag.BoolVar(&first, "first", false, "stop after the first subtree matched by -select")
	flag.BoolVar(&array, "array", false, "stream the elements of the input array one at a time")
	flag.IntVar(&pageSize, "page", 0, "with -array, print a page marker every N elements")
	flag.StringVar(&matchExpr, "match", "", "with -array, JSONPath expression an element must match to be output")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Set up stdout for handling colors

	var stdout io.Writer = os.Stdout
	if colorizer != nil {
		stdout = colorable.NewColorableStdout()
	}

	var input io.Reader
	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			fatalError("error opening %q: %s", filename, err)
		}
		defer f.Close()
		input = f
	} else {
		input = os.Stdin
	}

	var pred filter.Predicate
	if selectExpr != "" {
		var err error
		pred, err = filter.ParsePattern(selectExpr)
		if err != nil {
			fatalError("invalid -select pattern: %s", err)
		}
	}

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	var err error
	if array {
		err = streamElements(ctx, input, pred, matchExpr, pageSize, out)
	} else {
		err = printTokens(ctx, input, pred, first, colorizer, indent, out)
	}
	if err != nil {
		if errors.Is(err, syscall.EPIPE) {
			// stdout is a pipe and something closed it (e.g. 'head' or 'less').
			// In this case we don't want to complain.
			return
		}
		fatalError("error: %s", err)
	}
}

// printTokens runs the token pipeline and pretty-prints the resulting
// stream: the whole document, or each subtree matched by the predicate.
func printTokens(ctx context.Context, input io.Reader, pred filter.Predicate, first bool, colorizer *format.Colorizer, indent int, out *bufio.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stream token.ReadStream = jsonflume.NewSource(ctx, input, tokenizer.DefaultOptions())
	if pred != nil {
		stream = jsonflume.Transform(stream, &filter.Filter{Predicate: pred, First: first, Required: first})
	}

	printer := &format.DefaultPrinter{
		Writer:     out,
		IndentSize: indent,
	}
	// If we are writing to a terminal, flush after each line so the user
	// gets feedback early.
	if isatty.IsTerminal(os.Stdout.Fd()) {
		printer.Flusher = out
	}
	encoder := &jsonflume.Encoder{Printer: printer, Colorizer: colorizer}
	if err := encoder.Consume(stream); err != nil {
		return err
	}
	_, err := out.WriteString("\n")
	return err
}

// streamElements paginates the input array and prints one element per
// line, with an optional page marker every pageSize elements.
func streamElements(ctx context.Context, input io.Reader, pred filter.Predicate, matchExpr string, pageSize int, out *bufio.Writer) error {
	opts := jsonflume.StreamArrayOptions{Path: pred}
	if matchExpr != "" {
		keep, err := streamer.MatchSelector(matchExpr)
		if err != nil {
			return err
		}
		opts.Keep = keep
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream := jsonflume.StreamArray(ctx, input, opts)

	if pageSize <= 0 {
		for {
			v, ok, err := stream.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := printElement(out, v); err != nil {
				return err
			}
		}
	}
	for pageNo := 0; ; pageNo++ {
		page, err := stream.NextPage(ctx, pageSize)
		if err != nil {
			return err
		}
		for _, v := range page.Values {
			if err := printElement(out, v); err != nil {
				return err
			}
		}
		if !page.HasMore {
			return nil
		}
		fmt.Fprintf(out, "-- page %d --\n", pageNo+1)
		if err := out.Flush(); err != nil {
			return err
		}
	}
}

func printElement(out *bufio.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := out.Write(b); err != nil {
		return err
	}
	return out.WriteByte('\n')
}

func fatalError(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}

// Some color ANSI codes
var (
	reset      = []byte("\033[0m")
	yellow     = []byte("\033[33m")
	green      = []byte("\033[32m")
	white      = []byte("\033[37m")
	dimWhite   = []byte("\033[37;2m")
	brightBlue = []byte("\033[34;1m")
)

var defaultColorizer = format.Colorizer{
	KeyColorCode:    brightBlue,
	StringColorCode: green,
	NumberColorCode: white,
	BoolColorCode:   yellow,
	NullColorCode:   dimWhite,
	ResetCode:       reset,
}
