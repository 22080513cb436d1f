package csvcodec

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Op is the operation of a codec.
type Op int

const (
	OpRead Op = iota
	OpWrite
	numOps
)

func (op Op) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Shape is the form rows are exchanged in.
type Shape int

const (
	// ShapeList exchanges rows as []string.
	ShapeList Shape = iota
	// ShapeMapping exchanges rows as map[string]string keyed by field name.
	ShapeMapping
	// ShapeRecord exchanges rows as Record values of a RecordType.
	ShapeRecord
	numShapes
)

var shapeNames = [...]string{
	ShapeList:    "list",
	ShapeMapping: "mapping",
	ShapeRecord:  "record",
}

func (s Shape) String() string {
	if s < 0 || s >= numShapes {
		return fmt.Sprintf("Shape(%d)", int(s))
	}
	return shapeNames[s]
}

// ParseShape resolves a row shape name. Besides the canonical names it
// accepts "dict" for mappings and "namedtuple" for records.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "list":
		return ShapeList, nil
	case "mapping", "dict":
		return ShapeMapping, nil
	case "record", "namedtuple":
		return ShapeRecord, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedShape, name)
}

// StreamMode tells whether the stream handed to a codec carries UTF-8 text
// or bytes in an 8-bit clean encoding.
type StreamMode int

const (
	ModeText StreamMode = iota
	ModeBytes
	numModes
)

func (m StreamMode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeBytes:
		return "bytes"
	}
	return fmt.Sprintf("StreamMode(%d)", int(m))
}

// Factory constructs a codec. It is either a ReaderFactory or a WriterFactory.
type Factory interface {
	Op() Op
}

// ReaderFactory constructs a reader over r.
type ReaderFactory func(r io.Reader, opts ...Option) (RowReader, error)

// Op returns OpRead.
func (ReaderFactory) Op() Op { return OpRead }

// WriterFactory constructs a writer onto w.
type WriterFactory func(w io.Writer, opts ...Option) (RowWriter, error)

// Op returns OpWrite.
func (WriterFactory) Op() Op { return OpWrite }

// Table maps (operation, row shape, stream mode) to a codec factory.
type Table struct {
	entries [numOps][numShapes][numModes]Factory
}

// Register stores f under the key. Registration is a program setup step:
// it panics on keys outside the enumerated domain, on duplicate keys and on
// factories whose operation does not match op.
func (t *Table) Register(op Op, shape Shape, mode StreamMode, f Factory) {
	if op < 0 || op >= numOps || shape < 0 || shape >= numShapes || mode < 0 || mode >= numModes {
		panic(fmt.Sprintf("csvcodec: register %s/%s/%s: key out of range", op, shape, mode))
	}
	if f == nil || f.Op() != op {
		panic(fmt.Sprintf("csvcodec: register %s/%s/%s: factory does not match operation", op, shape, mode))
	}
	if t.entries[op][shape][mode] != nil {
		panic(fmt.Sprintf("csvcodec: register %s/%s/%s: duplicate key", op, shape, mode))
	}
	t.entries[op][shape][mode] = f
}

// Lookup returns the factory registered under the key. An invalid
// operation or stream mode is a programming error and panics; a shape
// without a registered factory yields an *UnsupportedShapeError.
func (t *Table) Lookup(op Op, shape Shape, mode StreamMode) (Factory, error) {
	if op < 0 || op >= numOps || mode < 0 || mode >= numModes {
		panic(fmt.Sprintf("csvcodec: lookup %s/%s: invalid operation or stream mode", op, mode))
	}
	if shape < 0 || shape >= numShapes || t.entries[op][shape][mode] == nil {
		return nil, &UnsupportedShapeError{Op: op, Shape: shape.String(), Mode: mode}
	}
	return t.entries[op][shape][mode], nil
}

// Reader returns the reader factory for shape and mode.
func (t *Table) Reader(shape Shape, mode StreamMode) (ReaderFactory, error) {
	f, err := t.Lookup(OpRead, shape, mode)
	if err != nil {
		return nil, err
	}
	return f.(ReaderFactory), nil
}

// Writer returns the writer factory for shape and mode.
func (t *Table) Writer(shape Shape, mode StreamMode) (WriterFactory, error) {
	f, err := t.Lookup(OpWrite, shape, mode)
	if err != nil {
		return nil, err
	}
	return f.(WriterFactory), nil
}

var (
	defaultTableOnce sync.Once
	defaultTable     *Table
)

// DefaultTable returns the table holding the codecs of this package for
// every combination of operation, row shape and stream mode.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() { defaultTable = NewDefaultTable() })
	return defaultTable
}

// NewDefaultTable returns a fresh copy of the default table, for callers
// that want to replace single entries.
func NewDefaultTable() *Table {
	t := &Table{}
	for _, mode := range []StreamMode{ModeText, ModeBytes} {
		t.Register(OpRead, ShapeList, mode, readerFactory(mode, func(r io.Reader, opts []Option) (RowReader, error) {
			return readerOf(NewReader(r, opts...))
		}))
		t.Register(OpRead, ShapeMapping, mode, readerFactory(mode, func(r io.Reader, opts []Option) (RowReader, error) {
			return readerOf(NewDictReader(r, opts...))
		}))
		t.Register(OpRead, ShapeRecord, mode, readerFactory(mode, func(r io.Reader, opts []Option) (RowReader, error) {
			return readerOf(NewRecordReader(r, opts...))
		}))
		t.Register(OpWrite, ShapeList, mode, writerFactory(mode, func(w io.Writer, opts []Option) (RowWriter, error) {
			return writerOf(NewWriter(w, opts...))
		}))
		t.Register(OpWrite, ShapeMapping, mode, writerFactory(mode, func(w io.Writer, opts []Option) (RowWriter, error) {
			return writerOf(NewDictWriter(w, opts...))
		}))
		t.Register(OpWrite, ShapeRecord, mode, writerFactory(mode, func(w io.Writer, opts []Option) (RowWriter, error) {
			return writerOf(NewRecordWriter(w, opts...))
		}))
	}
	return t
}

// readerOf and writerOf keep a failed constructor from yielding a typed nil.
func readerOf[T RowReader](r T, err error) (RowReader, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

func writerOf[T RowWriter](w T, err error) (RowWriter, error) {
	if err != nil {
		return nil, err
	}
	return w, nil
}

// forMode pins the stream mode: text factories drop any encoding, bytes
// factories require one.
func forMode(mode StreamMode, opts []Option) ([]Option, error) {
	if mode == ModeText {
		return append(opts[:len(opts):len(opts)], WithoutEncoding()), nil
	}
	if newOptions(charsetDefault, opts).encoding == "" {
		return nil, ErrNeedEncoding
	}
	return append([]Option{WithEncoding(charsetDefault)}, opts...), nil
}

func readerFactory(mode StreamMode, build func(io.Reader, []Option) (RowReader, error)) ReaderFactory {
	return func(r io.Reader, opts ...Option) (RowReader, error) {
		opts, err := forMode(mode, opts)
		if err != nil {
			return nil, err
		}
		return build(r, opts)
	}
}

func writerFactory(mode StreamMode, build func(io.Writer, []Option) (RowWriter, error)) WriterFactory {
	return func(w io.Writer, opts ...Option) (RowWriter, error) {
		opts, err := forMode(mode, opts)
		if err != nil {
			return nil, err
		}
		return build(w, opts)
	}
}
