// Package chunker turns an io.Reader into a pull-based source of byte
// chunks with a single reusable buffer, so a tokenizer downstream can be
// fed exactly as fast as it is consumed.
package chunker

import (
	"context"
	"io"
)

const (
	defaultBufSize           = 8192
	maxConsecutiveEmptyReads = 100
)

type Chunker struct {
	reader io.Reader
	buf    []byte
}

func New(reader io.Reader) *Chunker {
	return NewSize(reader, defaultBufSize)
}

func NewSize(reader io.Reader, size int) *Chunker {
	return &Chunker{reader: reader, buf: make([]byte, size)}
}

// Next returns the next non-empty chunk of input, or io.EOF when the
// input is exhausted.  The returned slice aliases the internal buffer and
// is only valid until the next call.  The context is checked before each
// read, so cancelling it stops chunk ingestion between reads.
func (c *Chunker) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i := maxConsecutiveEmptyReads; i > 0; i-- {
		n, err := c.reader.Read(c.buf)
		if n > 0 {
			return c.buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, io.ErrNoProgress
}
