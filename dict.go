package csvcodec

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
)

// DictReader reads rows as mappings from field name to value.
//
// Field names come from WithFieldNames or, by default, from the first row.
// Rows shorter than the header get the rest value for missing fields; values
// beyond the header are kept aside and reported by Extra.
type DictReader struct {
	r          *Reader
	fieldNames []string
	restValue  string
	extra      []string
	headerRead bool
}

// NewDictReader returns a DictReader over r. It reads UTF-8 text unless
// WithEncoding is given.
func NewDictReader(r io.Reader, opts ...Option) (*DictReader, error) {
	o := newOptions("", opts)
	rd, err := newReader(r, o)
	if err != nil {
		return nil, err
	}
	dr := &DictReader{r: rd, restValue: o.restValue}
	if o.fieldNames != nil {
		dr.fieldNames = o.fieldNames
		dr.headerRead = true
	}
	return dr, nil
}

// FieldNames returns the field names, reading the header row on first use.
// It returns io.EOF for empty input.
func (d *DictReader) FieldNames() ([]string, error) {
	if !d.headerRead {
		header, err := d.r.Read()
		if err != nil {
			return nil, err
		}
		d.fieldNames = header
		d.headerRead = true
	}
	return d.fieldNames, nil
}

// Read returns the next non-blank row as a mapping.
func (d *DictReader) Read() (map[string]string, error) {
	names, err := d.FieldNames()
	if err != nil {
		return nil, err
	}
	var rec []string
	for len(rec) == 0 {
		if rec, err = d.r.Read(); err != nil {
			return nil, err
		}
	}
	m := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(rec) {
			m[name] = rec[i]
		} else {
			m[name] = d.restValue
		}
	}
	d.extra = nil
	if len(rec) > len(names) {
		d.extra = rec[len(names):]
	}
	return m, nil
}

// Extra returns the values of the last row beyond the field names.
func (d *DictReader) Extra() []string { return d.extra }

// ReadRow returns the next row as a Mapping.
func (d *DictReader) ReadRow() (Row, error) {
	m, err := d.Read()
	if err != nil {
		return nil, err
	}
	return Mapping(m), nil
}

// All returns the remaining rows as a sequence that ends after the first error.
func (d *DictReader) All() iter.Seq2[map[string]string, error] {
	return func(yield func(map[string]string, error) bool) {
		for {
			m, err := d.Read()
			if err == io.EOF {
				return
			}
			if !yield(m, err) || err != nil {
				return
			}
		}
	}
}

// LineNum returns the number of physical lines read so far.
func (d *DictReader) LineNum() int { return d.r.LineNum() }

// Dialect returns the resolved dialect.
func (d *DictReader) Dialect() Dialect { return d.r.Dialect() }

// DictWriter writes mappings as rows in field name order.
type DictWriter struct {
	w            *Writer
	fieldNames   []string
	known        map[string]struct{}
	restValue    string
	extrasAction ExtrasAction
	row          []string
}

// NewDictWriter returns a DictWriter onto w. WithFieldNames is required.
func NewDictWriter(w io.Writer, opts ...Option) (*DictWriter, error) {
	o := newOptions("", opts)
	if len(o.fieldNames) == 0 {
		return nil, ErrMissingFieldNames
	}
	wr, err := newWriter(w, o)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(o.fieldNames))
	for _, name := range o.fieldNames {
		known[name] = struct{}{}
	}
	return &DictWriter{
		w:            wr,
		fieldNames:   o.fieldNames,
		known:        known,
		restValue:    o.restValue,
		extrasAction: o.extrasAction,
	}, nil
}

// WriteHeader writes the field names as a row.
func (d *DictWriter) WriteHeader() (int, error) {
	return d.w.Write(d.fieldNames)
}

// Write writes m in field name order. Missing keys get the rest value.
func (d *DictWriter) Write(m map[string]string) (int, error) {
	if d.extrasAction == ExtrasRaise {
		var extras []string
		for k := range m {
			if _, ok := d.known[k]; !ok {
				extras = append(extras, k)
			}
		}
		if len(extras) > 0 {
			slices.Sort(extras)
			return 0, fmt.Errorf("%w: %s", ErrExtraFields, strings.Join(extras, ", "))
		}
	}
	d.row = d.row[:0]
	for _, name := range d.fieldNames {
		v, ok := m[name]
		if !ok {
			v = d.restValue
		}
		d.row = append(d.row, v)
	}
	return d.w.Write(d.row)
}

// WriteAll writes all mappings and stops at the first error.
func (d *DictWriter) WriteAll(rows []map[string]string) error {
	for _, m := range rows {
		if _, err := d.Write(m); err != nil {
			return err
		}
	}
	return nil
}

// WriteRow writes a Mapping row.
func (d *DictWriter) WriteRow(row Row) (int, error) {
	m, ok := row.(Mapping)
	if !ok {
		return 0, fmt.Errorf("%w: want mapping, got %T", ErrRowShape, row)
	}
	return d.Write(m)
}

// FieldNames returns the field names.
func (d *DictWriter) FieldNames() []string { return d.fieldNames }

// Dialect returns the resolved dialect.
func (d *DictWriter) Dialect() Dialect { return d.w.Dialect() }
