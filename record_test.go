package csvcodec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fields []string
		rename bool
		want   []string
		ok     bool
	}{
		{name: "valid", fields: []string{"spam", "eggs"}, want: []string{"spam", "eggs"}, ok: true},
		{name: "empty", fields: nil, want: []string{}, ok: true},
		{name: "hyphen", fields: []string{"a-b"}},
		{name: "dot", fields: []string{"coordinate.x"}},
		{name: "keyword", fields: []string{"func"}},
		{name: "underscore", fields: []string{"_x"}},
		{name: "digit", fields: []string{"1st"}},
		{name: "duplicate", fields: []string{"a", "a"}},
		{name: "renamed", fields: []string{"ok", "a-b", "ok", "_x", "type"}, rename: true, want: []string{"ok", "_1", "_2", "_3", "_4"}, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			typ, err := NewRecordType("Row", tt.fields, tt.rename)
			if !tt.ok {
				require.ErrorIs(t, err, ErrInvalidFieldName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, typ.Fields())
			assert.Equal(t, "Row", typ.Name())
		})
	}

	_, err := NewRecordType("my-row", []string{"a"}, true)
	require.ErrorIs(t, err, ErrInvalidFieldName)
}

func TestRecord(t *testing.T) {
	t.Parallel()

	typ, err := NewRecordType("Point", []string{"x", "y"}, false)
	require.NoError(t, err)

	_, err = typ.Make([]string{"1"})
	require.ErrorIs(t, err, ErrFieldCount)

	rec, err := typ.Make([]string{"1", "2"})
	require.NoError(t, err)
	assert.Same(t, typ, rec.Type())
	assert.Equal(t, 2, rec.Len())
	assert.Equal(t, "2", rec.Get(1))
	assert.Equal(t, []string{"1", "2"}, rec.Values())
	v, ok := rec.Field("x")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = rec.Field("z")
	assert.False(t, ok)
	assert.Equal(t, map[string]string{"x": "1", "y": "2"}, rec.Map())
	assert.Equal(t, `Point(x="1", y="2")`, rec.String())
}

func TestRecordReader(t *testing.T) {
	t.Parallel()

	r, err := NewRecordReader(strings.NewReader("spam,eggs\r\n1,2\r\n3,4\r\n"), WithRowName("Breakfast"))
	require.NoError(t, err)
	assert.Nil(t, r.RecordType())

	var got []string
	for rec, err := range r.All() {
		require.NoError(t, err)
		got = append(got, rec.String())
	}
	assert.Equal(t, []string{`Breakfast(spam="1", eggs="2")`, `Breakfast(spam="3", eggs="4")`}, got)
	require.NotNil(t, r.RecordType())
	assert.Equal(t, []string{"spam", "eggs"}, r.RecordType().Fields())
	assert.Equal(t, 3, r.LineNum())

	_, err = r.ReadRow()
	require.ErrorIs(t, err, io.EOF)
}

func TestRecordReaderHeader(t *testing.T) {
	t.Parallel()

	r, err := NewRecordReader(strings.NewReader("coordinate.x,coordinate.y\r\n11,22\r\n"),
		WithRenameFunc(func(s string) string { return strings.ReplaceAll(s, ".", "_") }))
	require.NoError(t, err)
	rec, err := r.Read()
	require.NoError(t, err)
	x, _ := rec.Field("coordinate_x")
	assert.Equal(t, "11", x)

	r, err = NewRecordReader(strings.NewReader("a-b,c\r\n1,2\r\n"), WithRename(true))
	require.NoError(t, err)
	row, err := r.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, []string{"_0", "c"}, row.(Record).Type().Fields())

	r, err = NewRecordReader(strings.NewReader("a-b,c\r\n1,2\r\n"))
	require.NoError(t, err)
	_, err = r.Read()
	require.ErrorIs(t, err, ErrInvalidFieldName)

	r, err = NewRecordReader(strings.NewReader(""))
	require.NoError(t, err)
	_, err = r.Read()
	require.ErrorIs(t, err, ErrMissingHeader)

	r, err = NewRecordReader(strings.NewReader("a,b\r\n1\r\n"))
	require.NoError(t, err)
	_, err = r.Read()
	require.ErrorIs(t, err, ErrFieldCount)
}

func TestRecordWriter(t *testing.T) {
	t.Parallel()

	typ, err := NewRecordType("Row", []string{"name", "city"}, false)
	require.NoError(t, err)
	a, _ := typ.Make([]string{"Jürgen", "Köln"})
	b, _ := typ.Make([]string{"Zoë", "Zürich"})

	var buf bytes.Buffer
	w, err := NewRecordWriter(&buf, WithEncoding("latin-1"))
	require.NoError(t, err)
	n, err := w.Write(a)
	require.NoError(t, err)
	assert.Equal(t, len("name,city\r\nJ\xfcrgen,K\xf6ln\r\n"), n)
	_, err = w.WriteRow(b)
	require.NoError(t, err)
	assert.Equal(t, "name,city\r\nJ\xfcrgen,K\xf6ln\r\nZo\xeb,Z\xfcrich\r\n", buf.String())

	_, err = w.WriteRow(List{"x"})
	require.ErrorIs(t, err, ErrRowShape)
	_, err = w.Write(Record{})
	require.ErrorIs(t, err, ErrRowShape)

	r, err := NewRecordReader(&buf, WithEncoding("latin-1"))
	require.NoError(t, err)
	got, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, a.Values(), got.Values())
}
