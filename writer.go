package csvcodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/oleg578/csvcodec/charset"
	"github.com/oleg578/csvcodec/grammar"
)

var errNilWriter = errors.New("csvcodec: nil writer")

// Writer writes rows given as lists of UTF-8 fields.
//
// Without an encoding the destination receives UTF-8 text. With an encoding,
// which must be 8-bit clean, each row is formatted into an internal buffer,
// encoded once and handed to the destination in a single write.
type Writer struct {
	rw       grammar.RowWriter
	dst      io.Writer
	dialect  Dialect
	encoding string
	prepare  func([]string) []string

	// Set for writers with an encoding.
	codec     *charset.Codec
	buf       *bytes.Buffer
	transcode bool
	fields    []string
}

// NewWriter returns a Writer onto w. It writes UTF-8 text unless WithEncoding
// is given.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	return newWriter(w, newOptions("", opts))
}

func newWriter(w io.Writer, o *options) (*Writer, error) {
	if w == nil {
		return nil, errNilWriter
	}
	d, err := o.resolveDialect()
	if err != nil {
		return nil, err
	}
	wr := &Writer{dst: w, dialect: d, prepare: keepFields}
	if probeQuirks(o.engine).needsEscapeDoubling(d) {
		o.logger.Warn("writer does not escape the escape character, doubling it in fields",
			slog.String("dialect", o.registry.DialectName(d)),
			slog.String("escapechar", string(d.EscapeChar)))
		wr.prepare = doubleEscapes(d.EscapeChar)
	}

	if o.encoding == "" {
		wr.rw, err = o.engine.NewWriter(w, d, grammar.Text)
		if err != nil {
			return nil, err
		}
		return wr, nil
	}

	cs, err := charset.Lookup(o.encoding)
	if err != nil {
		return nil, err
	}
	if !cs.EightBitClean {
		return nil, &UnsupportedEncodingError{Encoding: o.encoding}
	}
	wr.encoding = cs.Name
	wr.codec = cs.NewCodec()
	wr.buf = &bytes.Buffer{}

	nd, nerr := normalizeDialect(d, cs)
	if nerr != nil && o.strategy == StrategyNative {
		o.logger.Debug("dialect has multi-byte characters, transcoding rows", slog.String("encoding", cs.Name), slog.Any("error", nerr))
	}
	if o.strategy == StrategyTranscode || nerr != nil {
		wr.transcode = true
		wr.rw, err = o.engine.NewWriter(wr.buf, d, grammar.Text)
	} else {
		wr.rw, err = o.engine.NewWriter(wr.buf, nd, grammar.Bytes)
	}
	if err != nil {
		return nil, err
	}
	return wr, nil
}

// Write writes a single row and returns the number of bytes handed to the
// destination.
func (w *Writer) Write(row []string) (int, error) {
	row = w.prepare(row)
	if w.codec == nil {
		return w.rw.Write(row)
	}
	defer w.buf.Reset()

	if w.transcode {
		if _, err := w.rw.Write(row); err != nil {
			return 0, err
		}
		out, err := w.codec.Encode(w.buf.String())
		if err != nil {
			return 0, err
		}
		return io.WriteString(w.dst, out)
	}

	w.fields = w.fields[:0]
	for _, f := range row {
		enc, err := w.codec.Encode(f)
		if err != nil {
			return 0, err
		}
		w.fields = append(w.fields, enc)
	}
	if _, err := w.rw.Write(w.fields); err != nil {
		return 0, err
	}
	return w.dst.Write(w.buf.Bytes())
}

// WriteAll writes all rows and stops at the first error.
func (w *Writer) WriteAll(rows [][]string) error {
	for _, row := range rows {
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteRow writes a List row.
func (w *Writer) WriteRow(row Row) (int, error) {
	l, ok := row.(List)
	if !ok {
		return 0, fmt.Errorf("%w: want list, got %T", ErrRowShape, row)
	}
	return w.Write(l)
}

// Dialect returns the resolved dialect.
func (w *Writer) Dialect() Dialect { return w.dialect }

// Encoding returns the canonical name of the stream encoding, or "" for text.
func (w *Writer) Encoding() string { return w.encoding }
