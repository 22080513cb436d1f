package csvcodec

// Row is a row in one of the three shapes: List, Mapping or Record.
type Row interface {
	isRow()
}

// List is a row as an ordered list of fields.
type List []string

// Mapping is a row keyed by field name.
type Mapping map[string]string

func (List) isRow()    {}
func (Mapping) isRow() {}
func (Record) isRow()  {}

// RowReader is implemented by every reader of this package, whatever its shape.
type RowReader interface {
	// ReadRow returns the next row, or io.EOF once the input is exhausted.
	ReadRow() (Row, error)
	// LineNum returns the number of physical lines consumed.
	LineNum() int
	// Dialect returns the resolved dialect.
	Dialect() Dialect
}

// RowWriter is implemented by every writer of this package, whatever its shape.
type RowWriter interface {
	// WriteRow writes row and returns the number of bytes written.
	WriteRow(row Row) (int, error)
	// Dialect returns the resolved dialect.
	Dialect() Dialect
}
