package grammar

import "io"

// RowReader is the parsing half of an Engine.
type RowReader interface {
	Read() ([]string, error)
	LineNum() int
}

// RowWriter is the formatting half of an Engine.
type RowWriter interface {
	Write(record []string) (int, error)
}

// Engine constructs record readers and writers for a dialect and mode.
// Codecs talk to the grammar only through this interface, so alternative
// implementations can be substituted.
type Engine interface {
	NewReader(src LineSource, d Dialect, mode Mode) (RowReader, error)
	NewWriter(w io.Writer, d Dialect, mode Mode) (RowWriter, error)
}

type standard struct{}

// Standard is the Engine backed by this package's Reader and Writer.
var Standard Engine = standard{}

func (standard) NewReader(src LineSource, d Dialect, mode Mode) (RowReader, error) {
	return NewReader(src, d, mode)
}

func (standard) NewWriter(w io.Writer, d Dialect, mode Mode) (RowWriter, error) {
	return NewWriter(w, d, mode)
}
