package csvcodec

import (
	"fmt"
	"go/token"
	"io"
	"iter"
	"strconv"
	"strings"
)

// RecordType describes records with a fixed list of named fields.
type RecordType struct {
	name   string
	fields []string
	index  map[string]int
}

// NewRecordType returns a record type. The name and every field must be an
// identifier; fields must not start with an underscore or repeat. With
// rename, offending fields are replaced by their position (_0, _1, ...).
func NewRecordType(name string, fields []string, rename bool) (*RecordType, error) {
	if !token.IsIdentifier(name) {
		return nil, fmt.Errorf("%w: type name %q", ErrInvalidFieldName, name)
	}
	t := &RecordType{
		name:   name,
		fields: make([]string, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		_, dup := t.index[f]
		if !token.IsIdentifier(f) || strings.HasPrefix(f, "_") || dup {
			if !rename {
				if dup {
					return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidFieldName, f)
				}
				return nil, fmt.Errorf("%w: %q", ErrInvalidFieldName, f)
			}
			f = "_" + strconv.Itoa(i)
		}
		t.fields[i] = f
		t.index[f] = i
	}
	return t, nil
}

// Name returns the type name.
func (t *RecordType) Name() string { return t.name }

// Fields returns the field names in order.
func (t *RecordType) Fields() []string { return t.fields }

// Make returns a record of type t holding values.
func (t *RecordType) Make(values []string) (Record, error) {
	if len(values) != len(t.fields) {
		return Record{}, fmt.Errorf("%w: %s expects %d, got %d", ErrFieldCount, t.name, len(t.fields), len(values))
	}
	return Record{typ: t, values: values}, nil
}

// Record is a row with named fields.
type Record struct {
	typ    *RecordType
	values []string
}

// Type returns the record type.
func (r Record) Type() *RecordType { return r.typ }

// Values returns the field values in order.
func (r Record) Values() []string { return r.values }

// Len returns the number of fields.
func (r Record) Len() int { return len(r.values) }

// Get returns the value at position i.
func (r Record) Get(i int) string { return r.values[i] }

// Field returns the value of the named field.
func (r Record) Field(name string) (string, bool) {
	if r.typ == nil {
		return "", false
	}
	i, ok := r.typ.index[name]
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// Map returns the record as a mapping from field name to value.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for i, v := range r.values {
		m[r.typ.fields[i]] = v
	}
	return m
}

func (r Record) String() string {
	var sb strings.Builder
	sb.WriteString(r.typ.name)
	sb.WriteByte('(')
	for i, v := range r.values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(r.typ.fields[i])
		sb.WriteByte('=')
		sb.WriteString(strconv.Quote(v))
	}
	sb.WriteByte(')')
	return sb.String()
}

// RecordReader reads rows as records. The record type is created from the
// first row, which must exist.
type RecordReader struct {
	r          *Reader
	typ        *RecordType
	rowName    string
	rename     bool
	renameFunc func(string) string
}

// NewRecordReader returns a RecordReader over r. It reads UTF-8 text unless
// WithEncoding is given.
func NewRecordReader(r io.Reader, opts ...Option) (*RecordReader, error) {
	o := newOptions("", opts)
	rd, err := newReader(r, o)
	if err != nil {
		return nil, err
	}
	return &RecordReader{r: rd, rowName: o.rowName, rename: o.rename, renameFunc: o.renameFunc}, nil
}

func (rr *RecordReader) recordType() (*RecordType, error) {
	if rr.typ != nil {
		return rr.typ, nil
	}
	header, err := rr.r.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, err
	}
	rename := rr.rename
	if rr.renameFunc != nil {
		for i, h := range header {
			header[i] = rr.renameFunc(h)
		}
		rename = false
	}
	t, err := NewRecordType(rr.rowName, header, rename)
	if err != nil {
		return nil, err
	}
	rr.typ = t
	return t, nil
}

// Read returns the next row as a record. The first call consumes the header.
func (rr *RecordReader) Read() (Record, error) {
	t, err := rr.recordType()
	if err != nil {
		return Record{}, err
	}
	rec, err := rr.r.Read()
	if err != nil {
		return Record{}, err
	}
	return t.Make(rec)
}

// ReadRow returns the next row as a Record.
func (rr *RecordReader) ReadRow() (Row, error) {
	rec, err := rr.Read()
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// All returns the remaining records as a sequence that ends after the first error.
func (rr *RecordReader) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := rr.Read()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// RecordType returns the record type, or nil before the first row is read.
func (rr *RecordReader) RecordType() *RecordType { return rr.typ }

// LineNum returns the number of physical lines read so far.
func (rr *RecordReader) LineNum() int { return rr.r.LineNum() }

// Dialect returns the resolved dialect.
func (rr *RecordReader) Dialect() Dialect { return rr.r.Dialect() }

// RecordWriter writes records, preceded by a header row taken from the type
// of the first record.
type RecordWriter struct {
	w           *Writer
	wroteHeader bool
}

// NewRecordWriter returns a RecordWriter onto w.
func NewRecordWriter(w io.Writer, opts ...Option) (*RecordWriter, error) {
	wr, err := newWriter(w, newOptions("", opts))
	if err != nil {
		return nil, err
	}
	return &RecordWriter{w: wr}, nil
}

// Write writes rec, and the header before the first record. It returns the
// number of bytes written by this call.
func (rw *RecordWriter) Write(rec Record) (int, error) {
	if rec.typ == nil {
		return 0, fmt.Errorf("%w: record without type", ErrRowShape)
	}
	total := 0
	if !rw.wroteHeader {
		n, err := rw.w.Write(rec.typ.fields)
		if err != nil {
			return n, err
		}
		rw.wroteHeader = true
		total = n
	}
	n, err := rw.w.Write(rec.values)
	return total + n, err
}

// WriteAll writes all records and stops at the first error.
func (rw *RecordWriter) WriteAll(recs []Record) error {
	for _, rec := range recs {
		if _, err := rw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteRow writes a Record row.
func (rw *RecordWriter) WriteRow(row Row) (int, error) {
	rec, ok := row.(Record)
	if !ok {
		return 0, fmt.Errorf("%w: want record, got %T", ErrRowShape, row)
	}
	return rw.Write(rec)
}

// Dialect returns the resolved dialect.
func (rw *RecordWriter) Dialect() Dialect { return rw.w.Dialect() }
