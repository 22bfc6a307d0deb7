// Package jsonflume implements incremental JSON parsing as a
// stream-processing pipeline.
//
// The package is organized into several sub-packages:
//
//   - tokenizer: chunk-resumable JSON tokenizer
//   - token: the token model and token stream abstractions
//   - pipeline: combinators for composing token transforms
//   - filter: path-based filtering of token streams
//   - assemble: reconstructing Go values from token sub-sequences
//   - streamer: element-by-element pagination over top-level arrays
//
// These combine into a pipeline:
//
//	chunks -> tokenizer -> filter -> streamer/assembler -> values
//
// Every stage is streaming and pull-driven: input is consumed only as
// fast as the consumer asks for output, so arbitrarily large documents -
// in particular large top-level arrays that must be paginated into an
// application - are processed in constant memory, without ever
// materializing the whole document.
//
// This package provides the top-level entry points tying the stages to an
// io.Reader input: Decode (full-document mode), Select and SelectOne
// (path-filtered mode) and StreamArray (array pagination mode), plus an
// Encoder that writes a token stream back out as JSON text.
package jsonflume
