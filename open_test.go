package csvcodec

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleg578/csvcodec/charset"
)

func TestOpenWriterReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		encoding string
		raw      string
	}{
		{"utf8", "rows.csv", "utf-8", "späm,eggs\r\n1,2\r\n"},
		{"latin1", "rows.csv", "latin-1", "sp\xe4m,eggs\r\n1,2\r\n"},
		{"utf16", "rows.csv", "utf-16-le", "s\x00p\x00\xe4\x00m\x00,\x00e\x00g\x00g\x00s\x00\r\x00\n\x001\x00,\x002\x00\r\x00\n\x00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), tt.file)

			w, err := OpenWriter(path, WithEncoding(tt.encoding))
			require.NoError(t, err)
			require.NoError(t, w.WriteAll([]Row{List{"späm", "eggs"}, List{"1", "2"}}))
			require.NoError(t, w.Close())
			require.NoError(t, w.Close(), "second close is a no-op")
			_, err = w.WriteRow(List{"x"})
			require.ErrorIs(t, err, ErrClosed)

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, string(raw))

			r, err := OpenReader(path, WithEncoding(tt.encoding))
			require.NoError(t, err)
			assert.Equal(t, path, r.Path())
			assert.Equal(t, charset.MustLookup(tt.encoding).Name, r.Charset().Name)
			var rows []Row
			for row, err := range r.All() {
				require.NoError(t, err)
				rows = append(rows, row)
			}
			assert.Equal(t, []Row{List{"späm", "eggs"}, List{"1", "2"}}, rows)
			assert.Equal(t, 2, r.LineNum())
			require.NoError(t, r.Close())
			_, err = r.ReadRow()
			require.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestOpenStreamModes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := OpenWriter(filepath.Join(dir, "a.csv"), WithEncoding("cp1252"))
	require.NoError(t, err)
	assert.IsType(t, &Writer{}, w.Codec())
	assert.Equal(t, "cp1252", w.Codec().(*Writer).Encoding())
	require.NoError(t, w.Close())

	w, err = OpenWriter(filepath.Join(dir, "b.csv"), WithEncoding("utf-16"))
	require.NoError(t, err)
	assert.Empty(t, w.Codec().(*Writer).Encoding(), "non 8-bit clean files are transcoded as text")
	require.NoError(t, w.Close())
}

func TestOpenShapes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dict.csv")
	err := WithWriter(path, func(w *FileWriter) error {
		dw := w.Codec().(*DictWriter)
		if _, err := dw.WriteHeader(); err != nil {
			return err
		}
		_, err := w.WriteRow(Mapping{"id": "1", "name": "späm"})
		return err
	}, WithShape(ShapeMapping), WithFieldNames("id", "name"), WithEncoding("iso8859-15"))
	require.NoError(t, err)

	var got []Row
	err = WithReader(path, func(r *FileReader) error {
		for row, err := range r.All() {
			if err != nil {
				return err
			}
			got = append(got, row)
		}
		return nil
	}, WithShape(ShapeMapping), WithEncoding("iso8859-15"))
	require.NoError(t, err)
	assert.Equal(t, []Row{Mapping{"id": "1", "name": "späm"}}, got)

	for row, err := range IterRows(path, WithShape(ShapeRecord), WithEncoding("iso8859-15")) {
		require.NoError(t, err)
		v, _ := row.(Record).Field("name")
		assert.Equal(t, "späm", v)
	}
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "x.csv")

	_, err := Open(path, "a")
	require.ErrorIs(t, err, ErrInvalidMode)

	_, err = OpenWriter(path, WithShape(ShapeMapping))
	require.ErrorIs(t, err, ErrMissingFieldNames)
	_, err = os.Stat(path)
	require.True(t, errors.Is(err, os.ErrNotExist), "file must not be created")

	_, err = OpenWriter(path, WithoutEncoding())
	require.ErrorIs(t, err, ErrNeedEncoding)
	_, err = OpenWriter(path, WithEncoding("nope"))
	require.ErrorIs(t, err, charset.ErrUnknownEncoding)
	_, err = OpenWriter(path, WithDialectName("nope"))
	require.ErrorIs(t, err, ErrUnknownDialect)
	_, err = OpenWriter(path, WithShape(Shape(5)))
	require.ErrorIs(t, err, ErrUnsupportedShape)
	_, err = os.Stat(path)
	require.True(t, errors.Is(err, os.ErrNotExist))

	_, err = OpenReader(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	f, err := Open(path, "w")
	require.NoError(t, err)
	require.IsType(t, &FileWriter{}, f)
	require.NoError(t, f.Close())
	f, err = Open(path, "r")
	require.NoError(t, err)
	require.IsType(t, &FileReader{}, f)
	assert.Equal(t, Excel, f.Dialect())
	require.NoError(t, f.Close())
}

func TestWithReaderCombinesErrors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "x.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\r\n"), 0o600))

	errBody := errors.New("body failed")
	err := WithReader(path, func(r *FileReader) error { return errBody }, WithEncoding("latin-1"))
	require.ErrorIs(t, err, errBody)

	var captured *FileReader
	err = WithReader(path, func(r *FileReader) error {
		captured = r
		_, err := r.ReadRow()
		return err
	})
	require.NoError(t, err)
	require.True(t, captured.closed)

	// A failing close is reported next to the body error.
	err = WithReader(path, func(r *FileReader) error {
		_ = r.closers[0].Close()
		return errBody
	})
	require.ErrorIs(t, err, errBody)
	require.ErrorIs(t, err, os.ErrClosed)

	err = combine(errBody, io.ErrClosedPipe)
	require.ErrorIs(t, err, errBody)
	require.ErrorIs(t, err, io.ErrClosedPipe)
	require.NoError(t, combine(nil, nil))
	require.ErrorIs(t, combine(nil, io.ErrClosedPipe), io.ErrClosedPipe)
}

func TestIterRowsBreakCloses(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "x.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\r\nb\r\nc\r\n"), 0o600))

	var first Row
	for row, err := range IterRows(path) {
		require.NoError(t, err)
		first = row
		break
	}
	assert.Equal(t, List{"a"}, first)

	require.NoError(t, os.Remove(path))

	var errs int
	for _, err := range IterRows(path) {
		require.ErrorIs(t, err, os.ErrNotExist)
		errs++
	}
	assert.Equal(t, 1, errs)
}

func TestAutoCompress(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"rows.csv.gz", "rows.csv.zst", "rows.csv.bz2", "rows.csv.xz", "rows.csv.lz4", "rows.csv.sz"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), name)
			err := WithWriter(path, func(w *FileWriter) error {
				return w.WriteAll([]Row{List{"späm", "eggs"}})
			}, WithAutoCompress(), WithEncoding("utf-16"))
			require.NoError(t, err)

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.NotEqual(t, "\xff\xfes\x00p\x00\xe4\x00m\x00,\x00e\x00g\x00g\x00s\x00\r\x00\n\x00", string(raw))

			var rows []Row
			for row, err := range IterRows(path, WithAutoCompress(), WithEncoding("utf-16")) {
				require.NoError(t, err)
				rows = append(rows, row)
			}
			assert.Equal(t, []Row{List{"späm", "eggs"}}, rows)
		})
	}
}

func TestSuffixWithoutAutoCompressWarns(t *testing.T) {
	t.Parallel()

	logger, logs := testLogger()
	path := filepath.Join(t.TempDir(), "rows.csv.gz")
	err := WithWriter(path, func(w *FileWriter) error {
		_, err := w.WriteRow(List{"a"})
		return err
	}, WithLogger(logger))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\r\n", string(raw))
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "suffix=.gz")
}
