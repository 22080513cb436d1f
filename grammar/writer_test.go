package grammar

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterWrite(t *testing.T) {
	t.Parallel()

	escaped := with(excel, func(d *Dialect) { d.EscapeChar = '\\' })
	unquoted := with(escaped, func(d *Dialect) { d.Quoting = QuoteNone })

	tests := []struct {
		name    string
		records [][]string
		dialect Dialect
		mode    Mode
		want    string
	}{
		{
			name:    "basic",
			records: [][]string{{"a", "b", "c"}},
			dialect: excel,
			want:    "a,b,c\r\n",
		},
		{
			name:    "multipleRecords",
			records: [][]string{{"alpha", "beta"}, {"gamma", "delta"}},
			dialect: excel,
			want:    "alpha,beta\r\ngamma,delta\r\n",
		},
		{
			name:    "emptyField",
			records: [][]string{{"", "b"}},
			dialect: excel,
			want:    ",b\r\n",
		},
		{
			name:    "emptyRecord",
			records: [][]string{{}},
			dialect: excel,
			want:    "\r\n",
		},
		{
			name:    "loneEmptyFieldIsQuoted",
			records: [][]string{{""}},
			dialect: excel,
			want:    "\"\"\r\n",
		},
		{
			name:    "commaForcesQuote",
			records: [][]string{{"alpha,beta"}},
			dialect: excel,
			want:    "\"alpha,beta\"\r\n",
		},
		{
			name:    "quoteEscaping",
			records: [][]string{{"he said \"hello\"", "plain"}},
			dialect: excel,
			want:    "\"he said \"\"hello\"\"\",plain\r\n",
		},
		{
			name:    "newlineForcesQuote",
			records: [][]string{{"multi\nline", "z"}},
			dialect: excel,
			want:    "\"multi\nline\",z\r\n",
		},
		{
			name:    "carriageReturnForcesQuote",
			records: [][]string{{"multi\rline"}},
			dialect: excel,
			want:    "\"multi\rline\"\r\n",
		},
		{
			name:    "quoteAll",
			records: [][]string{{"alpha", "beta"}},
			dialect: with(excel, func(d *Dialect) { d.Quoting = QuoteAll }),
			want:    "\"alpha\",\"beta\"\r\n",
		},
		{
			name:    "quoteNonNumeric",
			records: [][]string{{"1", "x"}},
			dialect: with(excel, func(d *Dialect) { d.Quoting = QuoteNonNumeric }),
			want:    "\"1\",\"x\"\r\n",
		},
		{
			name:    "customDelimiter",
			records: [][]string{{"a;b", "c"}},
			dialect: with(excel, func(d *Dialect) { d.Delimiter = ';' }),
			want:    "\"a;b\";c\r\n",
		},
		{
			name:    "customQuote",
			records: [][]string{{"alpha'beta", "plain"}},
			dialect: with(excel, func(d *Dialect) { d.QuoteChar = '\'' }),
			want:    "'alpha''beta',plain\r\n",
		},
		{
			name:    "unixTerminator",
			records: [][]string{{"a"}, {"b"}},
			dialect: with(excel, func(d *Dialect) { d.LineTerminator = "\n"; d.Quoting = QuoteAll }),
			want:    "\"a\"\n\"b\"\n",
		},
		{
			name:    "escapeCharIsEscaped",
			records: [][]string{{"spam\\eggs"}},
			dialect: escaped,
			want:    "spam\\\\eggs\r\n",
		},
		{
			name:    "quoteNoneEscapesDelimiter",
			records: [][]string{{"a,b", "c"}},
			dialect: unquoted,
			want:    "a\\,b,c\r\n",
		},
		{
			name:    "quoteNoneEscapesQuote",
			records: [][]string{{"say \"hi\""}},
			dialect: unquoted,
			want:    "say \\\"hi\\\"\r\n",
		},
		{
			name:    "noDoubleQuoteEscapes",
			records: [][]string{{"say \"hi\""}},
			dialect: with(escaped, func(d *Dialect) { d.DoubleQuote = false }),
			want:    "say \\\"hi\\\"\r\n",
		},
		{
			name:    "skipInitialSpaceQuotesLeadingSpace",
			records: [][]string{{" a", "b"}},
			dialect: with(excel, func(d *Dialect) { d.SkipInitialSpace = true }),
			want:    "\" a\",b\r\n",
		},
		{
			name:    "multibyteText",
			records: [][]string{{"späm", "a§b"}},
			dialect: with(excel, func(d *Dialect) { d.Delimiter = '§' }),
			want:    "späm§\"a§b\"\r\n",
		},
		{
			name:    "bytesModePassesHighBytes",
			records: [][]string{{"sp\xe4m", "x"}},
			dialect: excel,
			mode:    Bytes,
			want:    "sp\xe4m,x\r\n",
		},
		{
			name:    "asciiSeparators",
			records: [][]string{{"spam", "spam spam", "eggs, eggs"}},
			dialect: ascii,
			want:    "spam\x1fspam spam\x1feggs, eggs\x1e",
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w, err := NewWriter(&buf, tc.dialect, tc.mode)
			require.NoError(t, err)
			require.NoError(t, w.WriteAll(tc.records))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestWriterFormatErrors(t *testing.T) {
	t.Parallel()

	noEscape := with(excel, func(d *Dialect) { d.Quoting = QuoteNone })

	tests := []struct {
		name    string
		record  []string
		dialect Dialect
		err     error
	}{
		{"quoteNoneNoEscape", []string{"a,b"}, noEscape, ErrNeedEscape},
		{"quoteNoneNoEscapeNewline", []string{"a\nb"}, noEscape, ErrNeedEscape},
		{"noDoubleQuoteNoEscape", []string{"a\"b"}, with(excel, func(d *Dialect) { d.DoubleQuote = false }), ErrNeedEscape},
		{"asciiUnitSeparator", []string{"spam\x1feggs"}, ascii, ErrNeedEscape},
		{"asciiRecordSeparator", []string{"spam\x1eeggs"}, ascii, ErrNeedEscape},
		{"quoteNoneLoneEmptyField", []string{""}, noEscape, ErrEmptyRecord},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w, err := NewWriter(&buf, tc.dialect, Text)
			require.NoError(t, err)

			n, err := w.Write(tc.record)
			assert.ErrorIs(t, err, tc.err)
			assert.Zero(t, n)
			assert.Zero(t, buf.Len(), "nothing may reach the destination")
			assert.NoError(t, w.Error(), "format errors are not sticky")
		})
	}
}

func TestWriterWriteReturnsLength(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, excel, Text)
	require.NoError(t, err)

	n, err := w.Write([]string{"späm", "eggs"})
	require.NoError(t, err)
	assert.Equal(t, len("späm,eggs\r\n"), n)
}

func TestWriterReset(t *testing.T) {
	t.Parallel()

	var first, second bytes.Buffer
	w, err := NewWriter(&first, excel, Text)
	require.NoError(t, err)

	_, err = w.Write([]string{"a"})
	require.NoError(t, err)
	w.Reset(&second)
	_, err = w.Write([]string{"b"})
	require.NoError(t, err)

	assert.Equal(t, "a\r\n", first.String())
	assert.Equal(t, "b\r\n", second.String())
	assert.Panics(t, func() { w.Reset(nil) })
}

type failWriter struct {
	err error
}

func (f *failWriter) Write([]byte) (int, error) {
	return 0, f.err
}

func TestWriterStickyError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	w, err := NewWriter(&failWriter{err: boom}, excel, Text)
	require.NoError(t, err)

	_, err = w.Write([]string{"a"})
	assert.ErrorIs(t, err, boom)
	_, err = w.Write([]string{"b"})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, w.Error(), boom)
}

func TestWriterNilReceiver(t *testing.T) {
	t.Parallel()

	var w *Writer
	_, err := w.Write([]string{"a"})
	assert.ErrorIs(t, err, errNilWriter)
	assert.ErrorIs(t, w.WriteAll(nil), errNilWriter)
	assert.ErrorIs(t, w.Error(), errNilWriter)
	assert.Panics(t, func() { _, _ = NewWriter(nil, excel, Text) })
}

func TestAppendRecord(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(&bytes.Buffer{}, excel, Text)
	require.NoError(t, err)

	dst := []byte("prefix|")
	dst, err = w.AppendRecord(dst, []string{"a,b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "prefix|\"a,b\",c\r\n", string(dst))

	w2, err := NewWriter(&bytes.Buffer{}, with(excel, func(d *Dialect) { d.Quoting = QuoteNone }), Text)
	require.NoError(t, err)
	dst, err = w2.AppendRecord(dst, []string{"ok", "a,b"})
	assert.ErrorIs(t, err, ErrNeedEscape)
	assert.True(t, strings.HasSuffix(string(dst), "c\r\n"), "failed append must not leave partial output")
}
