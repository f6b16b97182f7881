package handstream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// MaxLineBytes bounds a single sample line.
const MaxLineBytes = 64 * 1024

// ErrLineTooLong reports a line over the reader's limit. The line has been
// consumed, so reading can continue with the next one.
var ErrLineTooLong = errors.New("line too long")

// LineReader splits a stream into lines without ever giving up on an
// oversized one: a garbled run of bytes costs one line, not the stream.
type LineReader struct {
	r   *bufio.Reader
	max int
}

// NewLineReader reads lines of at most max bytes, excluding the terminator.
func NewLineReader(r io.Reader, max int) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, 4096), max: max}
}

// Next returns the next line without its "\n" or "\r\n" terminator. The
// returned slice is owned by the caller. It returns io.EOF once the stream
// is exhausted, and ErrLineTooLong for a line over the limit.
func (l *LineReader) Next() ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := l.r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > l.max {
				tooLong, line = true, nil
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if !tooLong && len(line) == 0 {
				return nil, io.EOF
			}
		default:
			return nil, err
		}
		break
	}

	if tooLong {
		return nil, ErrLineTooLong
	}
	return bytes.TrimRight(line, "\r\n"), nil
}
