package grammar

import (
	"errors"
	"fmt"
)

var (
	// ErrDialect is returned for invalid dialect parameters.
	ErrDialect = errors.New("grammar: invalid dialect")
	// ErrUnexpectedEnd is returned in strict mode when input ends inside a quoted field.
	ErrUnexpectedEnd = errors.New("grammar: unexpected end of data")
	// ErrNewlineInField is returned when a newline shows up where a record cannot continue.
	ErrNewlineInField = errors.New("grammar: new-line character seen in unquoted field")
	// ErrQuoteExpected is returned in strict mode for a character following a closing quote.
	ErrQuoteExpected = errors.New("grammar: delimiter expected after closing quote")
	// ErrFieldLimit is returned when a field grows beyond the reader's field size limit.
	ErrFieldLimit = errors.New("grammar: field larger than field limit")
	// ErrNotNumeric is returned for unquoted non-numeric fields under QuoteNonNumeric.
	ErrNotNumeric = errors.New("grammar: could not convert unquoted field to a number")
	// ErrNeedEscape is returned by the writer when a character must be escaped but no escape char is set.
	ErrNeedEscape = errors.New("grammar: need to escape, but no escapechar set")
	// ErrEmptyRecord is returned by the writer for a single empty field under QuoteNone.
	ErrEmptyRecord = errors.New("grammar: single empty field record must be quoted")

	errNilSource      = errors.New("grammar: line source cannot be nil")
	errWriterNoTarget = errors.New("grammar: writer destination cannot be nil")
)

// ParseError contains location information for CSV parsing errors.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

// Error formats the parse error message with the stored line, column, and Err values.
func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("grammar: parse error on line %d, column %d: %v", e.Line, e.Column, e.Err)
}

// Unwrap returns the underlying Err so ParseError participates in errors.Unwrap.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
