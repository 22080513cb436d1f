package grammar

import (
	"fmt"
	"strings"
)

// Quoting selects when the writer quotes fields and how the reader treats
// unquoted ones.
type Quoting int

const (
	// QuoteMinimal quotes only fields containing special characters.
	QuoteMinimal Quoting = iota
	// QuoteAll quotes every field.
	QuoteAll
	// QuoteNonNumeric quotes every non-numeric field; the reader rejects
	// unquoted fields that do not parse as a number.
	QuoteNonNumeric
	// QuoteNone never quotes; special characters are escaped instead.
	QuoteNone
)

var quotingNames = [...]string{
	QuoteMinimal:    "minimal",
	QuoteAll:        "all",
	QuoteNonNumeric: "nonnumeric",
	QuoteNone:       "none",
}

func (q Quoting) String() string {
	if q < 0 || int(q) >= len(quotingNames) {
		return fmt.Sprintf("Quoting(%d)", int(q))
	}
	return quotingNames[q]
}

// ParseQuoting resolves a quoting mode by name ("minimal", "all",
// "nonnumeric", "none"), case-insensitively.
func ParseQuoting(name string) (Quoting, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "quote_")
	n = strings.ReplaceAll(n, "-", "")
	for i, s := range quotingNames {
		if s == n {
			return Quoting(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown quoting %q", ErrDialect, name)
}

// Dialect bundles the grammar parameters shared by Reader and Writer.
// A zero rune means the character is not set.
type Dialect struct {
	// Delimiter separates fields.
	Delimiter rune
	// QuoteChar encloses fields containing special characters.
	QuoteChar rune
	// DoubleQuote writes a quote char inside a quoted field as two quote chars.
	DoubleQuote bool
	// EscapeChar removes the special meaning of the following character.
	EscapeChar rune
	// LineTerminator ends every written record.
	LineTerminator string
	// Quoting is the quoting mode.
	Quoting Quoting
	// SkipInitialSpace ignores spaces directly after a delimiter.
	SkipInitialSpace bool
	// Strict turns malformed input into errors instead of best-effort parses.
	Strict bool
}

// Validate reports whether d is a usable dialect.
func (d Dialect) Validate() error {
	switch {
	case d.Delimiter == 0:
		return fmt.Errorf("%w: delimiter must be set", ErrDialect)
	case d.Delimiter == '\r' || d.Delimiter == '\n':
		return fmt.Errorf("%w: bad delimiter value %q", ErrDialect, d.Delimiter)
	case d.Quoting < QuoteMinimal || d.Quoting > QuoteNone:
		return fmt.Errorf("%w: bad quoting value %d", ErrDialect, int(d.Quoting))
	case d.Quoting != QuoteNone && d.QuoteChar == 0:
		return fmt.Errorf("%w: quotechar must be set if quoting enabled", ErrDialect)
	case d.LineTerminator == "":
		return fmt.Errorf("%w: lineterminator must be set", ErrDialect)
	case d.QuoteChar != 0 && d.QuoteChar == d.Delimiter:
		return fmt.Errorf("%w: bad delimiter or quotechar value", ErrDialect)
	case d.EscapeChar != 0 && (d.EscapeChar == d.Delimiter || d.EscapeChar == d.QuoteChar):
		return fmt.Errorf("%w: bad escapechar value", ErrDialect)
	}
	return nil
}

// customTerminator returns the record terminator honoured by the reader in
// addition to CR and LF: the dialect's line terminator when it is a single
// character other than CR or LF.
func (d Dialect) customTerminator() (rune, bool) {
	r := []rune(d.LineTerminator)
	if len(r) != 1 || r[0] == '\r' || r[0] == '\n' {
		return 0, false
	}
	return r[0], true
}

// Mode selects the unit the grammar operates on.
type Mode int

const (
	// Text treats input as UTF-8 and operates on runes.
	Text Mode = iota
	// Bytes treats every byte as one character. Control characters of the
	// dialect must be below 0x100 and stand for the byte of the same value.
	Bytes
)

func (m Mode) String() string {
	switch m {
	case Text:
		return "text"
	case Bytes:
		return "bytes"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) check(d Dialect) error {
	if m == Text {
		return nil
	}
	if m != Bytes {
		return fmt.Errorf("%w: bad mode %d", ErrDialect, int(m))
	}
	for _, c := range []struct {
		name string
		r    rune
	}{{"delimiter", d.Delimiter}, {"quotechar", d.QuoteChar}, {"escapechar", d.EscapeChar}} {
		if c.r > 0xff {
			return fmt.Errorf("%w: %s %q is not a single byte", ErrDialect, c.name, c.r)
		}
	}
	for _, r := range d.LineTerminator {
		if r > 0xff {
			return fmt.Errorf("%w: lineterminator %q is not single bytes", ErrDialect, d.LineTerminator)
		}
	}
	return nil
}
