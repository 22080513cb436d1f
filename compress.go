package csvcodec

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Compression is a stream compression format selected by file suffix.
// Snappy uses the framing format.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionBzip2
	CompressionXZ
	CompressionLZ4
	CompressionSnappy
)

var compressionSuffixes = map[string]Compression{
	".gz":  CompressionGzip,
	".zst": CompressionZstd,
	".bz2": CompressionBzip2,
	".xz":  CompressionXZ,
	".lz4": CompressionLZ4,
	".sz":  CompressionSnappy,
}

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionBzip2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	case CompressionLZ4:
		return "lz4"
	case CompressionSnappy:
		return "snappy"
	}
	return "none"
}

// CompressionFor returns the compression implied by the suffix of path.
func CompressionFor(path string) Compression {
	return compressionSuffixes[strings.ToLower(filepath.Ext(path))]
}

// decompress wraps r in a decompressor for c.
func decompress(c Compression, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case CompressionBzip2:
		return bzip2.NewReader(r, nil)
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompressionSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	}
	return io.NopCloser(r), nil
}

// compress wraps w in a compressor for c. Closing the result flushes the
// compressed stream but does not close w.
func compress(c Compression, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		return zstd.NewWriter(w)
	case CompressionBzip2:
		return bzip2.NewWriter(w, nil)
	case CompressionXZ:
		return xz.NewWriter(w)
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionSnappy:
		return snappy.NewBufferedWriter(w), nil
	}
	return nopWriteCloser{w}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
