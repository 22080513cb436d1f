package grammar

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
	"unsafe"
)

// DefaultFieldSizeLimit is the largest field, in characters, a Reader accepts
// unless FieldSizeLimit says otherwise.
const DefaultFieldSizeLimit = 128 << 10

// eol is fed to the state machine after the last character of every physical line.
const eol rune = -1

type parserState int

const (
	startRecord parserState = iota
	startField
	escapedChar
	inField
	inQuotedField
	escapeInQuotedField
	quoteInQuotedField
	eatCRNL
	afterEscapedCRNL
)

// Reader parses records from a LineSource according to a Dialect.
type Reader struct {
	src     LineSource
	dialect Dialect
	mode    Mode

	// FieldSizeLimit caps the number of characters in a single field.
	// Zero means DefaultFieldSizeLimit.
	FieldSizeLimit int
	// ReuseRecord indicates whether Read should reuse the backing array of the returned slice.
	// Fields of a reused record alias an internal buffer and are only valid until the next Read.
	ReuseRecord bool

	term    rune
	hasTerm bool

	state        parserState
	record       []string
	dataBuf      []byte
	fieldBounds  []int
	fieldStart   int
	fieldLen     int
	numericField bool
	finished     bool
	line         int
	column       int
}

// NewReader creates a Reader that pulls physical lines from src and parses
// them with dialect d in the given mode.
func NewReader(src LineSource, d Dialect, mode Mode) (*Reader, error) {
	if src == nil {
		panic(errNilSource.Error())
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := mode.check(d); err != nil {
		return nil, err
	}
	r := &Reader{
		src:         src,
		dialect:     d,
		mode:        mode,
		record:      make([]string, 0, 16),
		dataBuf:     make([]byte, 0, 512),
		fieldBounds: make([]int, 0, 32),
	}
	r.term, r.hasTerm = d.customTerminator()
	return r, nil
}

// Dialect returns the dialect the reader parses with.
func (r *Reader) Dialect() Dialect { return r.dialect }

// LineNum returns the number of physical lines consumed so far. Records may
// span several lines, so this is not the number of records returned.
func (r *Reader) LineNum() int { return r.line }

// Read parses the next record. It returns io.EOF once the source is exhausted;
// exhaustion is permanent. A blank line yields an empty, non-nil record.
func (r *Reader) Read() (dst []string, err error) {
	if r == nil || r.finished {
		return nil, io.EOF
	}
	r.reset()

	for {
		line, err := r.src.ReadLine()
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			r.finished = true
			if r.fieldLen != 0 || r.state == inQuotedField {
				if r.dialect.Strict {
					return nil, r.wrapError(r.column, ErrUnexpectedEnd)
				}
				if err := r.saveField(); err != nil {
					return nil, err
				}
				return r.buildRecord(), nil
			}
			return nil, io.EOF
		}
		r.line++
		r.column = 0

		for i := 0; i < len(line); {
			c, size := r.unit(line, i)
			r.column++
			if err := r.process(c, line[i:i+size]); err != nil {
				return nil, err
			}
			i += size
		}
		if err := r.process(eol, ""); err != nil {
			return nil, err
		}
		if r.state == startRecord {
			return r.buildRecord(), nil
		}
	}
}

// ReadAll exhausts the reader, repeatedly calling Read to collect records until io.EOF
// and returning the accumulated records slice plus the first non-EOF error encountered.
func (r *Reader) ReadAll() (records [][]string, err error) {
	for {
		record, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		if r.ReuseRecord {
			// Reused records alias the parse buffer.
			owned := make([]string, len(record))
			for i, f := range record {
				owned[i] = strings.Clone(f)
			}
			record = owned
		}
		records = append(records, record)
	}
}

func (r *Reader) reset() {
	if r.ReuseRecord {
		r.record = r.record[:0]
	} else {
		r.record = nil
	}
	r.dataBuf = r.dataBuf[:0]
	r.fieldBounds = r.fieldBounds[:0]
	r.fieldStart = 0
	r.fieldLen = 0
	r.numericField = false
	r.state = startRecord
}

// unit decodes the character starting at line[i].
func (r *Reader) unit(line string, i int) (rune, int) {
	if r.mode == Bytes {
		return rune(line[i]), 1
	}
	c := rune(line[i])
	if c < utf8.RuneSelf {
		return c, 1
	}
	return utf8.DecodeRuneInString(line[i:])
}

func (r *Reader) isNewline(c rune) bool {
	return c == '\n' || c == '\r' || (r.hasTerm && c == r.term)
}

func (r *Reader) addChar(raw string) error {
	limit := r.FieldSizeLimit
	if limit <= 0 {
		limit = DefaultFieldSizeLimit
	}
	if r.fieldLen >= limit {
		return r.wrapError(r.column, ErrFieldLimit)
	}
	r.dataBuf = append(r.dataBuf, raw...)
	r.fieldLen++
	return nil
}

func (r *Reader) saveField() error {
	if r.numericField {
		field := string(r.dataBuf[r.fieldStart:])
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
			if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
				return r.wrapError(r.column, ErrNotNumeric)
			}
		}
		r.numericField = false
	}
	r.fieldBounds = append(r.fieldBounds, r.fieldStart, len(r.dataBuf))
	r.fieldStart = len(r.dataBuf)
	r.fieldLen = 0
	return nil
}

// endRecordField saves the current field and moves to the state following a
// line break (or the end of the physical line).
func (r *Reader) endRecordField(c rune) error {
	if err := r.saveField(); err != nil {
		return err
	}
	if c == eol {
		r.state = startRecord
	} else {
		r.state = eatCRNL
	}
	return nil
}

// process advances the state machine by one character. raw holds the
// character's bytes as they appeared in the input.
func (r *Reader) process(c rune, raw string) error {
	d := &r.dialect
	quoting := d.Quoting != QuoteNone

	switch r.state {
	case startRecord:
		if c == eol {
			// Blank line: empty record.
			return nil
		}
		if r.isNewline(c) {
			r.state = eatCRNL
			return nil
		}
		r.state = startField
		return r.startFieldChar(c, raw)

	case startField:
		return r.startFieldChar(c, raw)

	case escapedChar:
		if c == '\n' || c == '\r' {
			if err := r.addChar(raw); err != nil {
				return err
			}
			r.state = afterEscapedCRNL
			return nil
		}
		if c == eol {
			raw = "\n"
		}
		if err := r.addChar(raw); err != nil {
			return err
		}
		r.state = inField
		return nil

	case afterEscapedCRNL:
		if c == eol {
			return nil
		}
		r.state = inField
		return r.inFieldChar(c, raw)

	case inField:
		return r.inFieldChar(c, raw)

	case inQuotedField:
		switch {
		case c == eol:
		case d.EscapeChar != 0 && c == d.EscapeChar:
			r.state = escapeInQuotedField
		case quoting && c == d.QuoteChar:
			if d.DoubleQuote {
				r.state = quoteInQuotedField
			} else {
				r.state = inField
			}
		default:
			return r.addChar(raw)
		}
		return nil

	case escapeInQuotedField:
		if c == eol {
			raw = "\n"
		}
		if err := r.addChar(raw); err != nil {
			return err
		}
		r.state = inQuotedField
		return nil

	case quoteInQuotedField:
		switch {
		case quoting && c == d.QuoteChar:
			// Doubled quote inside quotes represents an escaped quote.
			if err := r.addChar(raw); err != nil {
				return err
			}
			r.state = inQuotedField
		case c == d.Delimiter:
			if err := r.saveField(); err != nil {
				return err
			}
			r.state = startField
		case c == eol || r.isNewline(c):
			return r.endRecordField(c)
		case !d.Strict:
			if err := r.addChar(raw); err != nil {
				return err
			}
			r.state = inField
		default:
			return r.wrapError(r.column, ErrQuoteExpected)
		}
		return nil

	case eatCRNL:
		switch {
		case r.isNewline(c):
		case c == eol:
			r.state = startRecord
		default:
			return r.wrapError(r.column, ErrNewlineInField)
		}
		return nil
	}
	return nil
}

func (r *Reader) startFieldChar(c rune, raw string) error {
	d := &r.dialect
	switch {
	case c == eol || r.isNewline(c):
		return r.endRecordField(c)
	case d.Quoting != QuoteNone && c == d.QuoteChar:
		r.state = inQuotedField
	case d.EscapeChar != 0 && c == d.EscapeChar:
		r.state = escapedChar
	case c == ' ' && d.SkipInitialSpace:
		// Ignore spaces at the start of a field.
	case c == d.Delimiter:
		return r.saveField()
	default:
		if d.Quoting == QuoteNonNumeric {
			r.numericField = true
		}
		if err := r.addChar(raw); err != nil {
			return err
		}
		r.state = inField
	}
	return nil
}

func (r *Reader) inFieldChar(c rune, raw string) error {
	d := &r.dialect
	switch {
	case c == eol || r.isNewline(c):
		return r.endRecordField(c)
	case d.EscapeChar != 0 && c == d.EscapeChar:
		r.state = escapedChar
	case c == d.Delimiter:
		if err := r.saveField(); err != nil {
			return err
		}
		r.state = startField
	default:
		return r.addChar(raw)
	}
	return nil
}

// buildRecord maps the accumulated fieldBounds onto the data buffer, respecting ReuseRecord,
// and returns the materialised []string representing the current record.
func (r *Reader) buildRecord() []string {
	fieldCount := len(r.fieldBounds) / 2

	var recordStr string
	if r.ReuseRecord {
		if len(r.dataBuf) > 0 {
			// Zero-copy string construction so fields can share a single backing buffer.
			recordStr = unsafe.String(unsafe.SliceData(r.dataBuf), len(r.dataBuf))
		}
		if cap(r.record) < fieldCount {
			r.record = make([]string, fieldCount)
		}
		r.record = r.record[:fieldCount]
	} else {
		recordStr = string(r.dataBuf)
		r.record = make([]string, fieldCount)
	}

	for i := 0; i < fieldCount; i++ {
		start := r.fieldBounds[2*i]
		end := r.fieldBounds[2*i+1]
		r.record[i] = recordStr[start:end]
	}
	return r.record
}

// wrapError attaches the current line and supplied column to err, producing a *ParseError.
func (r *Reader) wrapError(column int, err error) error {
	return &ParseError{Line: r.line, Column: column, Err: err}
}
