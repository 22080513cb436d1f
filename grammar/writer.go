package grammar

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

var errNilWriter = errors.New("grammar: writer is nil")

// Writer formats records according to a Dialect. Every record is assembled
// in an internal buffer and handed to the destination in a single Write call.
type Writer struct {
	dst     io.Writer
	dialect Dialect
	mode    Mode

	line  []byte
	field []byte
	term  []byte
	err   error
}

// NewWriter creates a Writer emitting records to w with dialect d in the given mode.
func NewWriter(w io.Writer, d Dialect, mode Mode) (*Writer, error) {
	if w == nil {
		panic(errWriterNoTarget.Error())
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := mode.check(d); err != nil {
		return nil, err
	}
	wr := &Writer{
		dst:     w,
		dialect: d,
		mode:    mode,
		line:    make([]byte, 0, 256),
		field:   make([]byte, 0, 64),
	}
	for _, r := range d.LineTerminator {
		wr.term = wr.appendUnit(wr.term, r)
	}
	return wr, nil
}

// Dialect returns the dialect the writer formats with.
func (w *Writer) Dialect() Dialect { return w.dialect }

// Reset updates the underlying writer while preserving the dialect.
func (w *Writer) Reset(dst io.Writer) {
	if w == nil {
		panic(errNilWriter.Error())
	}
	if dst == nil {
		panic(errWriterNoTarget.Error())
	}
	w.dst = dst
	w.err = nil
}

// Write emits a single record terminated by the dialect's line terminator and
// returns the number of bytes handed to the destination. Formatting errors
// leave the destination untouched; write errors are sticky.
func (w *Writer) Write(record []string) (int, error) {
	if w == nil {
		return 0, errNilWriter
	}
	if w.dst == nil {
		return 0, errWriterNoTarget
	}
	if w.err != nil {
		return 0, w.err
	}

	line, err := w.AppendRecord(w.line[:0], record)
	w.line = line[:0]
	if err != nil {
		return 0, err
	}
	n, err := w.dst.Write(line)
	if err == nil && n < len(line) {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.err = err
	}
	return n, err
}

// WriteAll writes multiple records, stopping at the first error.
func (w *Writer) WriteAll(records [][]string) error {
	if w == nil {
		return errNilWriter
	}
	for _, record := range records {
		if _, err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// Error reports the first write error encountered by the writer.
func (w *Writer) Error() error {
	if w == nil {
		return errNilWriter
	}
	return w.err
}

// AppendRecord appends the formatted record, including the line terminator, to dst.
func (w *Writer) AppendRecord(dst []byte, record []string) ([]byte, error) {
	start := len(dst)
	for i, field := range record {
		if i > 0 {
			dst = w.appendUnit(dst, w.dialect.Delimiter)
		}
		var err error
		dst, err = w.appendField(dst, field, w.dialect.Quoting == QuoteAll || w.dialect.Quoting == QuoteNonNumeric)
		if err != nil {
			return dst[:start], err
		}
	}
	if len(record) > 0 && len(dst) == start {
		// A lone empty field would read back as a blank line.
		if w.dialect.Quoting == QuoteNone {
			return dst[:start], ErrEmptyRecord
		}
		dst = w.appendUnit(dst, w.dialect.QuoteChar)
		dst = w.appendUnit(dst, w.dialect.QuoteChar)
	}
	return append(dst, w.term...), nil
}

func (w *Writer) appendField(dst []byte, field string, quoted bool) ([]byte, error) {
	d := &w.dialect
	body := w.field[:0]

	for i := 0; i < len(field); {
		c, size := w.unit(field, i)
		raw := field[i : i+size]
		i += size

		if w.special(c) {
			wantEscape := false
			if d.Quoting == QuoteNone {
				wantEscape = true
			} else {
				if d.QuoteChar != 0 && c == d.QuoteChar {
					if d.DoubleQuote {
						body = w.appendUnit(body, d.QuoteChar)
					} else {
						wantEscape = true
					}
				} else if d.EscapeChar != 0 && c == d.EscapeChar {
					wantEscape = true
				}
				if !wantEscape {
					quoted = true
				}
			}
			if wantEscape {
				if d.EscapeChar == 0 {
					w.field = body[:0]
					return dst, ErrNeedEscape
				}
				body = w.appendUnit(body, d.EscapeChar)
			}
		}
		body = append(body, raw...)
	}

	if d.SkipInitialSpace && len(field) > 0 && field[0] == ' ' && !quoted {
		// Keep the leading space from being skipped on the way back in.
		if d.Quoting != QuoteNone {
			quoted = true
		} else if d.EscapeChar != 0 {
			dst = w.appendUnit(dst, d.EscapeChar)
		}
	}

	if quoted {
		dst = w.appendUnit(dst, d.QuoteChar)
	}
	dst = append(dst, body...)
	if quoted {
		dst = w.appendUnit(dst, d.QuoteChar)
	}
	w.field = body[:0]
	return dst, nil
}

// special reports whether c needs quoting or escaping.
func (w *Writer) special(c rune) bool {
	d := &w.dialect
	switch {
	case c == d.Delimiter, c == '\n', c == '\r':
		return true
	case d.EscapeChar != 0 && c == d.EscapeChar:
		return true
	case d.QuoteChar != 0 && c == d.QuoteChar:
		return true
	}
	return strings.ContainsRune(d.LineTerminator, c)
}

func (w *Writer) unit(s string, i int) (rune, int) {
	if w.mode == Bytes {
		return rune(s[i]), 1
	}
	c := rune(s[i])
	if c < utf8.RuneSelf {
		return c, 1
	}
	return utf8.DecodeRuneInString(s[i:])
}

func (w *Writer) appendUnit(dst []byte, c rune) []byte {
	if w.mode == Bytes {
		return append(dst, byte(c))
	}
	return utf8.AppendRune(dst, c)
}
