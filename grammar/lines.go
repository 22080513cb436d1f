package grammar

import (
	"bufio"
	"bytes"
	"io"
)

const defaultBufferSize = 1 << 10 // 1024 bytes

// LineSource yields physical lines, each including its line terminator.
// It returns io.EOF once no lines remain.
type LineSource interface {
	ReadLine() (string, error)
}

// LineReader splits a byte stream into physical lines. Lines end at LF,
// CR, CRLF or, when configured, a custom terminator byte sequence.
type LineReader struct {
	src  *bufio.Reader
	term []byte
	line []byte
}

// Terminator returns the bytes a LineReader must split on so that its lines
// end wherever a Reader in mode m ends a record of d. It is "" when d has no
// custom terminator.
func Terminator(d Dialect, m Mode) string {
	r, ok := d.customTerminator()
	switch {
	case !ok:
		return ""
	case m == Bytes:
		if r > 0xff {
			return ""
		}
		return string([]byte{byte(r)})
	}
	return string(r)
}

// NewLineReader returns a LineReader over r. An empty term disables the
// custom terminator; see Terminator.
func NewLineReader(r io.Reader, term string) *LineReader {
	if r == nil {
		panic(errNilSource.Error())
	}
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, defaultBufferSize)
	}
	lr := &LineReader{src: br, line: make([]byte, 0, 128)}
	if term != "\r" && term != "\n" {
		lr.term = []byte(term)
	}
	return lr
}

// ReadLine returns the next physical line including its terminator.
func (l *LineReader) ReadLine() (string, error) {
	l.line = l.line[:0]
	for {
		b, err := l.src.ReadByte()
		if err != nil {
			if err == io.EOF && len(l.line) > 0 {
				return string(l.line), nil
			}
			return "", err
		}
		l.line = append(l.line, b)
		switch {
		case b == '\n':
			return string(l.line), nil
		case b == '\r':
			// Keep CRLF together.
			next, err := l.src.Peek(1)
			if err == nil && next[0] == '\n' {
				_, _ = l.src.ReadByte()
				l.line = append(l.line, '\n')
			} else if err != nil && err != io.EOF {
				return "", err
			}
			return string(l.line), nil
		case len(l.term) > 0 && bytes.HasSuffix(l.line, l.term):
			return string(l.line), nil
		}
	}
}

// LineSlice is a LineSource over an in-memory list of lines.
type LineSlice []string

// ReadLine pops the first line.
func (s *LineSlice) ReadLine() (string, error) {
	if len(*s) == 0 {
		return "", io.EOF
	}
	line := (*s)[0]
	*s = (*s)[1:]
	return line, nil
}
