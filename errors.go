package csvcodec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDialect is returned when a dialect name is not registered.
	ErrUnknownDialect = errors.New("csvcodec: unknown dialect")
	// ErrUnsupportedShape is wrapped by every UnsupportedShapeError.
	ErrUnsupportedShape = errors.New("csvcodec: invalid/unsupported row shape")
	// ErrUnsupportedEncoding is wrapped by every UnsupportedEncodingError.
	ErrUnsupportedEncoding = errors.New("csvcodec: encoding is not 8-bit clean")
	// ErrInvalidMode is returned by Open for modes other than "r" and "w".
	ErrInvalidMode = errors.New("csvcodec: invalid open mode")
	// ErrMissingFieldNames is returned when a mapping writer is requested without field names.
	ErrMissingFieldNames = errors.New("csvcodec: mapping writer requires field names")
	// ErrNeedEncoding is returned when a byte stream or path is used without an encoding.
	ErrNeedEncoding = errors.New("csvcodec: need encoding for byte stream or path")
	// ErrTextWithEncoding is returned when a text stream is combined with an encoding.
	ErrTextWithEncoding = errors.New("csvcodec: text stream must not be combined with an encoding")
	// ErrMissingHeader is returned by RecordReader for input without a header row.
	ErrMissingHeader = errors.New("csvcodec: missing header line for record fields")
	// ErrInvalidFieldName is returned for record type and field names that are not identifiers.
	ErrInvalidFieldName = errors.New("csvcodec: invalid field name")
	// ErrFieldCount is returned when a row's length does not match its record type.
	ErrFieldCount = errors.New("csvcodec: wrong number of fields")
	// ErrExtraFields is returned by DictWriter for keys missing from its field names.
	ErrExtraFields = errors.New("csvcodec: mapping contains fields not in field names")
	// ErrRowShape is returned when a Row of the wrong shape is handed to a writer.
	ErrRowShape = errors.New("csvcodec: row shape does not match codec")
	// ErrClosed is returned by scoped codecs after Close.
	ErrClosed = errors.New("csvcodec: file already closed")
)

// UnsupportedEncodingError reports an encoding that cannot be tokenized as bytes.
type UnsupportedEncodingError struct {
	Encoding string
}

func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("csvcodec: encoding %q is not supported for byte streams (not 8-bit clean)", e.Encoding)
}

// Is makes errors.Is(err, ErrUnsupportedEncoding) hold.
func (e *UnsupportedEncodingError) Is(target error) bool { return target == ErrUnsupportedEncoding }

// UnsupportedShapeError reports a row shape with no registered codec.
type UnsupportedShapeError struct {
	Op    Op
	Shape string
	Mode  StreamMode
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("csvcodec: invalid/unsupported row shape %q for %s in %s mode", e.Shape, e.Op, e.Mode)
}

// Is makes errors.Is(err, ErrUnsupportedShape) hold.
func (e *UnsupportedShapeError) Is(target error) bool { return target == ErrUnsupportedShape }
