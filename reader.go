package csvcodec

import (
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/oleg578/csvcodec/charset"
	"github.com/oleg578/csvcodec/grammar"
)

// Reader reads rows as lists of UTF-8 fields.
//
// Without an encoding the source must carry UTF-8 text. With an encoding,
// which must be 8-bit clean, the source carries bytes in that encoding and
// every field is decoded exactly once.
type Reader struct {
	rr       grammar.RowReader
	dialect  Dialect
	encoding string
	// codec decodes fields when the grammar tokenizes encoded bytes.
	codec *charset.Codec
	// lines counts physical lines when they are decoded before tokenizing.
	lines *decodingLines
	done  bool
}

// NewReader returns a Reader over r. It reads UTF-8 text unless WithEncoding
// is given.
func NewReader(r io.Reader, opts ...Option) (*Reader, error) {
	return newReader(r, newOptions("", opts))
}

func newReader(r io.Reader, o *options) (*Reader, error) {
	d, err := o.resolveDialect()
	if err != nil {
		return nil, err
	}
	rd := &Reader{dialect: d}

	var (
		src  grammar.LineSource
		mode = grammar.Text
		gd   = d
	)
	if o.encoding == "" {
		src = grammar.NewLineReader(r, grammar.Terminator(d, grammar.Text))
	} else {
		cs, err := charset.Lookup(o.encoding)
		if err != nil {
			return nil, err
		}
		if !cs.EightBitClean {
			return nil, &UnsupportedEncodingError{Encoding: o.encoding}
		}
		rd.encoding = cs.Name
		codec := cs.NewCodec()

		nd, nerr := normalizeDialect(d, cs)
		if nerr == nil && grammar.Terminator(d, grammar.Text) != "" && grammar.Terminator(nd, grammar.Bytes) == "" {
			nerr = fmt.Errorf("%w: lineterminator %q is not a single byte in %s", grammar.ErrDialect, d.LineTerminator, cs.Name)
		}
		strategy := o.strategy
		if nerr != nil && strategy == StrategyNative {
			o.logger.Debug("dialect has multi-byte characters, transcoding lines", slog.String("encoding", cs.Name), slog.Any("error", nerr))
			strategy = StrategyTranscode
		}
		if strategy == StrategyNative {
			src = grammar.NewLineReader(r, grammar.Terminator(nd, grammar.Bytes))
			mode, gd = grammar.Bytes, nd
			rd.codec = codec
		} else {
			// A terminator the encoding cannot represent never occurs in the input.
			term, err := cs.Encode(grammar.Terminator(d, grammar.Text))
			if err != nil {
				term = ""
			}
			rd.lines = &decodingLines{src: grammar.NewLineReader(r, term), codec: codec}
			src = rd.lines
		}
	}

	rr, err := o.engine.NewReader(src, gd, mode)
	if err != nil {
		return nil, err
	}
	if gr, ok := rr.(*grammar.Reader); ok && o.fieldSizeLimit > 0 {
		gr.FieldSizeLimit = o.fieldSizeLimit
	}
	rd.rr = rr

	if probeQuirks(o.engine).misreadsEmbeddedNewlines(d) {
		o.logger.Warn("reader cannot parse embedded newlines correctly",
			slog.String("dialect", o.registry.DialectName(d)),
			slog.String("escapechar", string(d.EscapeChar)))
	}
	return rd, nil
}

// Read returns the next row. It returns io.EOF once the input is exhausted;
// exhaustion is permanent. Grammar errors are returned unchanged.
func (r *Reader) Read() ([]string, error) {
	if r.done {
		return nil, io.EOF
	}
	rec, err := r.rr.Read()
	if err == io.EOF {
		r.done = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	if r.codec == nil {
		return rec, nil
	}
	out := make([]string, len(rec))
	for i, f := range rec {
		s, err := r.codec.Decode(f)
		if err != nil {
			return nil, &decodeError{line: r.LineNum(), err: err}
		}
		out[i] = s
	}
	return out, nil
}

// ReadAll reads the remaining rows.
func (r *Reader) ReadAll() ([][]string, error) {
	var rows [][]string
	for row, err := range r.All() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadRow returns the next row as a List.
func (r *Reader) ReadRow() (Row, error) {
	rec, err := r.Read()
	if err != nil {
		return nil, err
	}
	return List(rec), nil
}

// All returns the remaining rows as a sequence. The sequence ends after the
// first error.
func (r *Reader) All() iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		for {
			rec, err := r.Read()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// LineNum returns the number of physical lines read so far.
func (r *Reader) LineNum() int {
	if r.lines != nil {
		return r.lines.lines
	}
	return r.rr.LineNum()
}

// Dialect returns the resolved dialect.
func (r *Reader) Dialect() Dialect { return r.dialect }

// Encoding returns the canonical name of the stream encoding, or "" for text.
func (r *Reader) Encoding() string { return r.encoding }

// decodingLines decodes every line of an 8-bit clean byte stream to UTF-8
// before it reaches the grammar. A line that fails to decode still counts.
type decodingLines struct {
	src   grammar.LineSource
	codec *charset.Codec
	lines int
}

func (d *decodingLines) ReadLine() (string, error) {
	line, err := d.src.ReadLine()
	if err != nil {
		return "", err
	}
	d.lines++
	s, err := d.codec.Decode(line)
	if err != nil {
		return "", &decodeError{line: d.lines, err: err}
	}
	return s, nil
}

// decodeError is a field or line that is invalid in the stream encoding.
type decodeError struct {
	line int
	err  error
}

func (e *decodeError) Error() string { return fmt.Sprintf("line %d: %v", e.line, e.err) }

func (e *decodeError) Unwrap() error { return e.err }
