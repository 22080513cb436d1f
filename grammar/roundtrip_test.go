package grammar

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundtripValues cover every character with a special meaning in the
// dialects below.
var roundtripValues = []string{
	"",
	"spam",
	"spam, eggs",
	"spam\r eggs",
	"spam\n eggs",
	"\"spam spam eggs\"",
	"spam \"spam\" eggs",
	"spam\\eggs",
	"'spam'",
	" spam",
	"späm",
}

type roundtripFormat struct {
	quoting     Quoting
	quoteChar   rune
	escapeChar  rune
	doubleQuote bool
}

var roundtripFormats = []roundtripFormat{
	{QuoteMinimal, '"', 0, true},
	{QuoteMinimal, '"', '\\', true},
	{QuoteMinimal, '"', '\\', false},
	{QuoteMinimal, '"', 0, false},
	{QuoteMinimal, '\'', 0, true},
	{QuoteAll, '"', 0, true},
	{QuoteAll, '"', '\\', false},
	{QuoteNone, 0, '\\', true},
	{QuoteNone, '"', '\\', true},
	{QuoteNone, 0, 0, true},
	{QuoteMinimal, 0, 0, true},
}

func (f roundtripFormat) dialect() Dialect {
	return Dialect{
		Delimiter:      ',',
		QuoteChar:      f.quoteChar,
		DoubleQuote:    f.doubleQuote,
		EscapeChar:     f.escapeChar,
		LineTerminator: "\r\n",
		Quoting:        f.quoting,
	}
}

// expectedErr predicts the outcome of writing value with the format.
func (f roundtripFormat) expectedErr(value string) error {
	if f.quoting != QuoteNone && f.quoteChar == 0 {
		return ErrDialect
	}
	if f.escapeChar == 0 && (f.quoting == QuoteNone || !f.doubleQuote) {
		var needEscape []rune
		if f.quoting == QuoteNone {
			needEscape = append(needEscape, ',', '\r', '\n')
		}
		if f.quoteChar != 0 {
			needEscape = append(needEscape, f.quoteChar)
		}
		for _, c := range needEscape {
			if strings.ContainsRune(value, c) {
				return ErrNeedEscape
			}
		}
	}
	if value == "" && f.quoting == QuoteNone {
		return ErrEmptyRecord
	}
	return nil
}

func TestRoundtrip(t *testing.T) {
	t.Parallel()

	for _, f := range roundtripFormats {
		for _, value := range roundtripValues {
			f, value := f, value
			name := fmt.Sprintf("%s/q=%q/e=%q/dq=%t/%q", f.quoting, f.quoteChar, f.escapeChar, f.doubleQuote, value)

			t.Run(name, func(t *testing.T) {
				t.Parallel()

				d := f.dialect()
				want := f.expectedErr(value)

				var buf bytes.Buffer
				w, err := NewWriter(&buf, d, Text)
				if want == ErrDialect {
					assert.ErrorIs(t, err, ErrDialect)
					return
				}
				require.NoError(t, err)

				_, err = w.Write([]string{value})
				if want != nil {
					assert.ErrorIs(t, err, want)
					return
				}
				require.NoError(t, err)

				src := LineSlice(splitLines(buf.String()))
				r, err := NewReader(&src, d, Text)
				require.NoError(t, err)
				got, err := r.ReadAll()
				require.NoError(t, err)
				assert.Equal(t, [][]string{{value}}, got, "encoded as %q", buf.String())
			})
		}
	}
}

func TestRoundtripMultipleFields(t *testing.T) {
	t.Parallel()

	records := [][]string{
		{"a", "b,c", "d\"e"},
		{"", "x", ""},
		{"multi\nline", "tail"},
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, excel, Text)
	require.NoError(t, err)
	require.NoError(t, w.WriteAll(records))

	r := newTestReader(t, buf.String(), excel, Text)
	got, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, records, got)
	assert.Equal(t, 4, r.LineNum())
}

func splitLines(s string) []string {
	var lines []string
	lr := NewLineReader(strings.NewReader(s), "")
	for {
		line, err := lr.ReadLine()
		if err != nil {
			return lines
		}
		lines = append(lines, line)
	}
}
