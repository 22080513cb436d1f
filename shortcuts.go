package csvcodec

import (
	"bytes"
	"fmt"
	"hash"
	"io"
	"iter"
	"os"
)

// Source is where ReadCSV takes rows from: a Path, a TextInput or a ByteInput.
type Source interface {
	isSource()
}

// Destination is where WriteCSV puts rows: Memory, a TextOutput, a
// ByteOutput, a HashSink or a Path.
type Destination interface {
	isDestination()
}

// Path is a file system path. It is opened, and for writes created, with the
// configured encoding, UTF-8 by default.
type Path string

// TextInput is a stream of UTF-8 text. It cannot be combined with
// WithEncoding.
type TextInput struct{ io.Reader }

// ByteInput is a stream of bytes in the configured encoding.
type ByteInput struct{ io.Reader }

// Memory collects the output in Result.Data.
type Memory struct{}

// TextOutput receives UTF-8 text. It cannot be combined with WithEncoding.
type TextOutput struct{ io.Writer }

// ByteOutput receives bytes in the configured encoding.
type ByteOutput struct{ io.Writer }

// HashSink receives the encoded output in batches of HashBatchRows rows, so
// the whole output is never held in memory.
type HashSink struct{ hash.Hash }

func (Path) isSource()      {}
func (TextInput) isSource() {}
func (ByteInput) isSource() {}

func (Path) isDestination()       {}
func (Memory) isDestination()     {}
func (TextOutput) isDestination() {}
func (ByteOutput) isDestination() {}
func (HashSink) isDestination()   {}

// HashBatchRows is the number of rows buffered before a HashSink is updated.
const HashBatchRows = 1000

// ReadCSV returns the rows of src as a sequence. Configuration errors are
// returned at once; I/O starts when the sequence is iterated, and a Path is
// closed when iteration ends.
func ReadCSV(src Source, opts ...Option) (iter.Seq2[[]string, error], error) {
	o := newOptions(charsetDefault, opts)
	if _, err := o.resolveDialect(); err != nil {
		return nil, err
	}
	opts = append(opts[:len(opts):len(opts)], WithShape(ShapeList))

	switch src := src.(type) {
	case Path:
		if _, _, err := o.fileCharset(); err != nil {
			return nil, err
		}
		return func(yield func([]string, error) bool) {
			for row, err := range IterRows(string(src), opts...) {
				if !yield(listOf(row), err) {
					return
				}
			}
		}, nil
	case TextInput:
		if o.encodingSet && o.encoding != "" {
			return nil, ErrTextWithEncoding
		}
		return lazyRows(func() (RowReader, error) {
			return NewReader(src.Reader, append(opts, WithoutEncoding())...)
		}), nil
	case ByteInput:
		cs, mode, err := o.fileCharset()
		if err != nil {
			return nil, err
		}
		factory, err := o.dispatch().Reader(ShapeList, mode)
		if err != nil {
			return nil, err
		}
		return lazyRows(func() (RowReader, error) {
			var r io.Reader = src.Reader
			if mode == ModeText {
				r = cs.NewReader(r)
			}
			return factory(r, append(opts, WithEncoding(cs.Name))...)
		}), nil
	}
	return nil, fmt.Errorf("csvcodec: unsupported source %T", src)
}

// ReadCSVAll reads all rows of src.
func ReadCSVAll(src Source, opts ...Option) ([][]string, error) {
	seq, err := ReadCSV(src, opts...)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func lazyRows(open func() (RowReader, error)) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		rr, err := open()
		if err != nil {
			yield(nil, err)
			return
		}
		for {
			row, err := rr.ReadRow()
			if err == io.EOF {
				return
			}
			if !yield(listOf(row), err) || err != nil {
				return
			}
		}
	}
}

func listOf(row Row) []string {
	l, _ := row.(List)
	return l
}

// Result describes the output of WriteCSV.
type Result struct {
	// Destination is the destination given to WriteCSV.
	Destination Destination
	// Data holds the output for Memory destinations.
	Data []byte
	// Rows is the number of rows written, including the header.
	Rows int
	// Bytes is the number of bytes that reached the destination.
	Bytes int64
}

// WriteCSV writes the optional header (WithHeader) and rows to dst. Streams
// stay open; a Path is created or truncated and closed before returning.
func WriteCSV(dst Destination, rows iter.Seq[[]string], opts ...Option) (*Result, error) {
	o := newOptions(charsetDefault, opts)
	if _, err := o.resolveDialect(); err != nil {
		return nil, err
	}
	opts = append(opts[:len(opts):len(opts)], WithShape(ShapeList))
	res := &Result{Destination: dst}

	switch dst := dst.(type) {
	case Path:
		if _, _, err := o.fileCharset(); err != nil {
			return nil, err
		}
		err := WithWriter(string(dst), func(fw *FileWriter) error {
			return writeRows(fw, o.header, rows, res, nil, nil)
		}, opts...)
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(string(dst))
		if err != nil {
			return nil, err
		}
		res.Bytes = fi.Size()
		return res, nil
	case TextOutput:
		if o.encodingSet && o.encoding != "" {
			return nil, ErrTextWithEncoding
		}
		cw := &countingWriter{w: dst.Writer}
		w, err := NewWriter(cw, append(opts, WithoutEncoding())...)
		if err != nil {
			return nil, err
		}
		if err := writeRows(w, o.header, rows, res, nil, nil); err != nil {
			return nil, err
		}
		res.Bytes = cw.n
		return res, nil
	case Memory:
		var buf bytes.Buffer
		if o.encoding == "" {
			w, err := NewWriter(&buf, append(opts, WithoutEncoding())...)
			if err != nil {
				return nil, err
			}
			if err := writeRows(w, o.header, rows, res, nil, nil); err != nil {
				return nil, err
			}
		} else if err := o.writeEncoded(&buf, o.header, rows, res, nil, opts); err != nil {
			return nil, err
		}
		res.Data = buf.Bytes()
		res.Bytes = int64(buf.Len())
		return res, nil
	case ByteOutput:
		cw := &countingWriter{w: dst.Writer}
		if err := o.writeEncoded(cw, o.header, rows, res, nil, opts); err != nil {
			return nil, err
		}
		res.Bytes = cw.n
		return res, nil
	case HashSink:
		var buf bytes.Buffer
		flush := func() error {
			n, err := dst.Hash.Write(buf.Bytes())
			res.Bytes += int64(n)
			buf.Reset()
			return err
		}
		if err := o.writeEncoded(&buf, o.header, rows, res, flush, opts); err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("csvcodec: unsupported destination %T", dst)
}

// writeEncoded writes rows to w in the configured encoding. flush, if set,
// is called after every HashBatchRows rows and at the end.
func (o *options) writeEncoded(w io.Writer, header []string, rows iter.Seq[[]string], res *Result, flush func() error, opts []Option) error {
	cs, mode, err := o.fileCharset()
	if err != nil {
		return err
	}
	factory, err := o.dispatch().Writer(ShapeList, mode)
	if err != nil {
		return err
	}
	var tw io.WriteCloser
	if mode == ModeText {
		tw = cs.NewWriter(w)
		w = tw
	}
	rw, err := factory(w, append(opts, WithEncoding(cs.Name))...)
	if err != nil {
		return err
	}
	end := flush
	if tw != nil {
		end = func() error {
			if err := tw.Close(); err != nil {
				return err
			}
			if flush != nil {
				return flush()
			}
			return nil
		}
	}
	return writeRows(rw, header, rows, res, flush, end)
}

// writeRows writes header and rows to rw. batch, if set, is called every
// HashBatchRows rows and end, if set, once at the end.
func writeRows(rw RowWriter, header []string, rows iter.Seq[[]string], res *Result, batch, end func() error) error {
	if header != nil {
		if _, err := rw.WriteRow(List(header)); err != nil {
			return err
		}
		res.Rows++
	}
	pending := 0
	for row := range rows {
		if _, err := rw.WriteRow(List(row)); err != nil {
			return err
		}
		res.Rows++
		if pending++; batch != nil && pending == HashBatchRows {
			if err := batch(); err != nil {
				return err
			}
			pending = 0
		}
	}
	if end != nil {
		return end()
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
