package csvcodec

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/oleg578/csvcodec/charset"
)

// File is a codec bound to a file it owns.
type File interface {
	Dialect() Dialect
	Close() error
}

// FileReader reads rows from a file opened by OpenReader.
type FileReader struct {
	rr      RowReader
	cs      charset.Charset
	path    string
	closers []io.Closer
	closed  bool
}

// OpenReader opens path for reading rows. The file is decoded with the
// encoding from WithEncoding, UTF-8 by default, and rows come in the shape
// from WithShape, lists by default.
func OpenReader(path string, opts ...Option) (*FileReader, error) {
	o := newOptions(charsetDefault, opts)
	cs, mode, err := o.fileCharset()
	if err != nil {
		return nil, err
	}
	factory, err := o.dispatch().Reader(o.shape, mode)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fr := &FileReader{cs: cs, path: path, closers: []io.Closer{f}}
	var src io.Reader = f
	if c := o.compressionFor(path); c != CompressionNone {
		dr, err := decompress(c, f)
		if err != nil {
			_ = fr.Close()
			return nil, err
		}
		fr.closers = append([]io.Closer{dr}, fr.closers...)
		src = dr
	}
	if mode == ModeText {
		src = cs.NewReader(src)
	}
	fr.rr, err = factory(src, append(opts, WithEncoding(cs.Name))...)
	if err != nil {
		_ = fr.Close()
		return nil, err
	}
	return fr, nil
}

// ReadRow returns the next row, or io.EOF at the end of the file.
func (f *FileReader) ReadRow() (Row, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.rr.ReadRow()
}

// All returns the remaining rows as a sequence that ends after the first error.
func (f *FileReader) All() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			row, err := f.ReadRow()
			if err == io.EOF {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// Codec returns the underlying reader, one of *Reader, *DictReader or
// *RecordReader.
func (f *FileReader) Codec() RowReader { return f.rr }

// Charset returns the file encoding.
func (f *FileReader) Charset() charset.Charset { return f.cs }

// Path returns the path of the file.
func (f *FileReader) Path() string { return f.path }

// LineNum returns the number of physical lines read so far.
func (f *FileReader) LineNum() int { return f.rr.LineNum() }

// Dialect returns the resolved dialect.
func (f *FileReader) Dialect() Dialect { return f.rr.Dialect() }

// Close closes the file. Further calls are no-ops.
func (f *FileReader) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return closeAll(f.closers)
}

// FileWriter writes rows to a file created by OpenWriter.
type FileWriter struct {
	rw      RowWriter
	cs      charset.Charset
	path    string
	closers []io.Closer
	closed  bool
}

// OpenWriter creates or truncates path for writing rows. Encoding and shape
// default as for OpenReader. A mapping writer requires WithFieldNames.
func OpenWriter(path string, opts ...Option) (*FileWriter, error) {
	o := newOptions(charsetDefault, opts)
	cs, mode, err := o.fileCharset()
	if err != nil {
		return nil, err
	}
	if o.shape == ShapeMapping && len(o.fieldNames) == 0 {
		return nil, ErrMissingFieldNames
	}
	if _, err := o.resolveDialect(); err != nil {
		return nil, err
	}
	factory, err := o.dispatch().Writer(o.shape, mode)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{cs: cs, path: path, closers: []io.Closer{f}}
	var dst io.Writer = f
	if c := o.compressionFor(path); c != CompressionNone {
		cw, err := compress(c, f)
		if err != nil {
			_ = fw.Close()
			return nil, err
		}
		fw.closers = append([]io.Closer{cw}, fw.closers...)
		dst = cw
	}
	if mode == ModeText {
		tw := cs.NewWriter(dst)
		fw.closers = append([]io.Closer{tw}, fw.closers...)
		dst = tw
	}
	fw.rw, err = factory(dst, append(opts, WithEncoding(cs.Name))...)
	if err != nil {
		_ = fw.Close()
		return nil, err
	}
	return fw, nil
}

// WriteRow writes a row of the writer's shape.
func (f *FileWriter) WriteRow(row Row) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	return f.rw.WriteRow(row)
}

// WriteAll writes all rows and stops at the first error.
func (f *FileWriter) WriteAll(rows []Row) error {
	for _, row := range rows {
		if _, err := f.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Codec returns the underlying writer, one of *Writer, *DictWriter or
// *RecordWriter.
func (f *FileWriter) Codec() RowWriter { return f.rw }

// Charset returns the file encoding.
func (f *FileWriter) Charset() charset.Charset { return f.cs }

// Path returns the path of the file.
func (f *FileWriter) Path() string { return f.path }

// Dialect returns the resolved dialect.
func (f *FileWriter) Dialect() Dialect { return f.rw.Dialect() }

// Close flushes the encoder and compressor and closes the file. Further
// calls are no-ops.
func (f *FileWriter) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return closeAll(f.closers)
}

// Open opens path for reading with mode "r" or writing with mode "w". The
// result is a *FileReader or a *FileWriter.
func Open(path, mode string, opts ...Option) (File, error) {
	switch mode {
	case "r":
		r, err := OpenReader(path, opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "w":
		w, err := OpenWriter(path, opts...)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, fmt.Errorf("%w: %q (use \"r\" or \"w\")", ErrInvalidMode, mode)
}

// WithReader opens path, passes the reader to fn and closes it on return.
// Errors of fn and Close are combined.
func WithReader(path string, fn func(*FileReader) error, opts ...Option) error {
	r, err := OpenReader(path, opts...)
	if err != nil {
		return err
	}
	return combine(fn(r), r.Close())
}

// WithWriter creates path, passes the writer to fn and closes it on return.
// Errors of fn and Close are combined.
func WithWriter(path string, fn func(*FileWriter) error, opts ...Option) error {
	w, err := OpenWriter(path, opts...)
	if err != nil {
		return err
	}
	return combine(fn(w), w.Close())
}

// IterRows returns the rows of path as a sequence. The file is opened when
// iteration starts and closed when it ends, including on break.
func IterRows(path string, opts ...Option) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		r, err := OpenReader(path, opts...)
		if err != nil {
			yield(nil, err)
			return
		}
		stopped := false
		for row, err := range r.All() {
			if !yield(row, err) {
				stopped = true
				break
			}
		}
		if err := r.Close(); err != nil && !stopped {
			yield(nil, err)
		}
	}
}

// fileCharset looks up the configured encoding and picks the stream mode the
// codec sees: raw bytes for 8-bit clean encodings, decoded text otherwise.
func (o *options) fileCharset() (charset.Charset, StreamMode, error) {
	if o.encoding == "" {
		return charset.Charset{}, 0, ErrNeedEncoding
	}
	cs, err := charset.Lookup(o.encoding)
	if err != nil {
		return charset.Charset{}, 0, err
	}
	if cs.EightBitClean {
		return cs, ModeBytes, nil
	}
	return cs, ModeText, nil
}

// compressionFor returns the compression of path if enabled.
func (o *options) compressionFor(path string) Compression {
	c := CompressionFor(path)
	if c != CompressionNone && !o.autoCompress {
		o.logger.Warn("path suffix suggests compression but auto compression is off",
			slog.String("path", path),
			slog.String("suffix", filepath.Ext(path)))
		return CompressionNone
	}
	return c
}

func closeAll(closers []io.Closer) error {
	var result *multierror.Error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// combine returns err unchanged when closeErr is nil.
func combine(err, closeErr error) error {
	if closeErr == nil {
		return err
	}
	if err == nil {
		return closeErr
	}
	return multierror.Append(err, closeErr)
}
