package channel

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var ErrPartialLine = errors.New("channel: stream ended with unterminated line")

// LineFramer splits a raw byte stream into logical lines terminated by the
// exact CR LF pair. Reads are batched through bufio but the framing is
// byte-exact: a CR not immediately followed by LF is dropped and never
// appears in any emitted line, while a lone LF is ordinary content.
type LineFramer struct {
	r         *bufio.Reader
	buf       bytes.Buffer
	crPending bool
}

func NewLineFramer(r io.Reader) *LineFramer {
	return &LineFramer{r: bufio.NewReader(r)}
}

// Next returns the next completed line with its terminator stripped.
//
// At end of stream it returns io.EOF when the line buffer is empty and
// ErrPartialLine when bytes of an unterminated line remain. The partial
// bytes are never emitted as a line.
func (f *LineFramer) Next() (string, error) {
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && f.buf.Len() > 0 {
				return "", ErrPartialLine
			}
			return "", err
		}

		switch {
		case b == '\r':
			// A pending CR followed by another CR drops the first one.
			f.crPending = true
		case b == '\n' && f.crPending:
			line := f.buf.String()
			f.buf.Reset()
			f.crPending = false
			return line, nil
		default:
			f.crPending = false
			f.buf.WriteByte(b)
		}
	}
}
