package csvcodec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictReader(t *testing.T) {
	t.Parallel()

	input := "name,qty\r\nspäm,1\r\n\r\neggs\r\nham,2,extra,more\r\n"
	r, err := NewDictReader(strings.NewReader(input), WithRestValue("-"))
	require.NoError(t, err)

	names, err := r.FieldNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "qty"}, names)

	var got []map[string]string
	var extras [][]string
	for m, err := range r.All() {
		require.NoError(t, err)
		got = append(got, m)
		extras = append(extras, r.Extra())
	}
	assert.Equal(t, []map[string]string{
		{"name": "späm", "qty": "1"},
		{"name": "eggs", "qty": "-"},
		{"name": "ham", "qty": "2"},
	}, got)
	assert.Equal(t, [][]string{nil, nil, {"extra", "more"}}, extras)
	assert.Equal(t, 5, r.LineNum())

	_, err = r.Read()
	require.ErrorIs(t, err, io.EOF)
}

func TestDictReaderFieldNames(t *testing.T) {
	t.Parallel()

	r, err := NewDictReader(strings.NewReader("a,b\r\n"), WithFieldNames("x", "y"), WithEncoding("latin-1"))
	require.NoError(t, err)
	row, err := r.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, Mapping{"x": "a", "y": "b"}, row)

	r, err = NewDictReader(strings.NewReader(""))
	require.NoError(t, err)
	_, err = r.FieldNames()
	require.ErrorIs(t, err, io.EOF)
	_, err = r.Read()
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, Excel, r.Dialect())
}

func TestDictWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewDictWriter(&buf, WithFieldNames("name", "qty"), WithRestValue("0"), WithEncoding("windows-1252"))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "qty"}, w.FieldNames())

	_, err = w.WriteHeader()
	require.NoError(t, err)
	require.NoError(t, w.WriteAll([]map[string]string{
		{"qty": "1", "name": "späm"},
		{"name": "eggs"},
	}))
	_, err = w.WriteRow(Mapping{"name": "€"})
	require.NoError(t, err)
	assert.Equal(t, "name,qty\r\nsp\xe4m,1\r\neggs,0\r\n\x80,0\r\n", buf.String())

	_, err = w.WriteRow(List{"x"})
	require.ErrorIs(t, err, ErrRowShape)
}

func TestDictWriterExtras(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewDictWriter(&buf, WithFieldNames("a"))
	require.NoError(t, err)
	_, err = w.Write(map[string]string{"a": "1", "z": "2", "b": "3"})
	require.ErrorIs(t, err, ErrExtraFields)
	assert.Contains(t, err.Error(), "b, z")
	assert.Zero(t, buf.Len())

	w, err = NewDictWriter(&buf, WithFieldNames("a"), WithExtrasAction(ExtrasIgnore))
	require.NoError(t, err)
	_, err = w.Write(map[string]string{"a": "1", "z": "2"})
	require.NoError(t, err)
	assert.Equal(t, "1\r\n", buf.String())

	_, err = NewDictWriter(&buf)
	require.ErrorIs(t, err, ErrMissingFieldNames)
}

func TestDictRoundTrip(t *testing.T) {
	t.Parallel()

	rows := []map[string]string{
		{"id": "1", "text": "multi\nline, with comma"},
		{"id": "2", "text": "\"quoted\" äöü"},
	}
	var buf bytes.Buffer
	w, err := NewDictWriter(&buf, WithFieldNames("id", "text"), WithEncoding("iso8859-15"), WithDialectName("unix"))
	require.NoError(t, err)
	_, err = w.WriteHeader()
	require.NoError(t, err)
	require.NoError(t, w.WriteAll(rows))

	r, err := NewDictReader(&buf, WithEncoding("iso8859-15"), WithDialectName("unix"))
	require.NoError(t, err)
	var got []map[string]string
	for m, err := range r.All() {
		require.NoError(t, err)
		got = append(got, m)
	}
	assert.Equal(t, rows, got)
}
