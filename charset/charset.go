// Package charset resolves text encoding names and classifies encodings as
// transparent (8-bit clean) for CSV tokenizing.
//
// An encoding is transparent when every ASCII character encodes to the byte
// of the same value and no ASCII byte ever takes part in the encoding of a
// non-ASCII character. Delimiters, quotes and line terminators can then be
// found in the encoded bytes without decoding them first.
package charset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// UTF8 is the canonical name of the UTF-8 encoding.
const UTF8 = "utf-8"

var (
	// ErrUnknownEncoding is wrapped by every UnknownEncodingError.
	ErrUnknownEncoding = errors.New("charset: unknown encoding")
	// ErrInvalidBytes is returned when input is not valid in the encoding.
	ErrInvalidBytes = errors.New("charset: invalid byte sequence")
)

// UnknownEncodingError reports a name that resolves to no supported encoding.
type UnknownEncodingError struct {
	Name string
	Err  error
}

func (e *UnknownEncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("charset: unknown encoding %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("charset: unknown encoding %q", e.Name)
}

// Is makes errors.Is(err, ErrUnknownEncoding) hold.
func (e *UnknownEncodingError) Is(target error) bool { return target == ErrUnknownEncoding }

func (e *UnknownEncodingError) Unwrap() error { return e.Err }

// Charset is a resolved encoding.
type Charset struct {
	// Name is the canonical, lower-case name. Aliases of one encoding share it.
	Name string
	// Encoding converts between the encoded bytes and UTF-8.
	Encoding encoding.Encoding
	// EightBitClean reports whether the encoding is transparent for the grammar.
	EightBitClean bool
}

// IsUTF8 reports whether c is plain UTF-8, for which transcoding is a no-op.
func (c Charset) IsUTF8() bool { return c.Name == UTF8 }

// Decode converts s from the encoding to UTF-8.
func (c Charset) Decode(s string) (string, error) {
	return c.NewCodec().Decode(s)
}

// Encode converts the UTF-8 string s to the encoding.
func (c Charset) Encode(s string) (string, error) {
	return c.NewCodec().Encode(s)
}

// NewCodec returns a Codec with its own transformer state.
func (c Charset) NewCodec() *Codec {
	cd := &Codec{cs: c}
	if !c.IsUTF8() {
		cd.dec = c.Encoding.NewDecoder()
		cd.enc = c.Encoding.NewEncoder()
	}
	return cd
}

// NewReader wraps r so that reads return UTF-8.
func (c Charset) NewReader(r io.Reader) io.Reader {
	if c.IsUTF8() {
		return r
	}
	return transform.NewReader(r, c.Encoding.NewDecoder())
}

// NewWriter wraps w so that UTF-8 written to it reaches w encoded. Close
// flushes pending state but does not close w.
func (c Charset) NewWriter(w io.Writer) io.WriteCloser {
	if c.IsUTF8() {
		return nopCloser{w}
	}
	return transform.NewWriter(w, c.Encoding.NewEncoder())
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Codec transcodes individual strings, reusing transformer state between
// calls. It is not safe for concurrent use.
type Codec struct {
	cs  Charset
	dec *encoding.Decoder
	enc *encoding.Encoder
}

// Charset returns the encoding the codec converts.
func (cd *Codec) Charset() Charset { return cd.cs }

// Decode converts s from the encoding to UTF-8.
func (cd *Codec) Decode(s string) (string, error) {
	if cd.dec == nil {
		if !utf8.ValidString(s) {
			return "", fmt.Errorf("%w for %s: %q", ErrInvalidBytes, cd.cs.Name, s)
		}
		return s, nil
	}
	out, err := cd.dec.String(s)
	if err != nil {
		return "", fmt.Errorf("charset: decode %s: %w", cd.cs.Name, err)
	}
	return out, nil
}

// Encode converts the UTF-8 string s to the encoding.
func (cd *Codec) Encode(s string) (string, error) {
	if cd.enc == nil {
		return s, nil
	}
	out, err := cd.enc.String(s)
	if err != nil {
		return "", fmt.Errorf("charset: encode %s: %w", cd.cs.Name, err)
	}
	return out, nil
}

// EncodeRune returns the bytes of r in the encoding.
func (cd *Codec) EncodeRune(r rune) (string, error) {
	return cd.Encode(string(r))
}

var known = map[string]encoding.Encoding{
	UTF8:           unicode.UTF8,
	"utf-8-sig":    unicode.UTF8BOM,
	"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16-le":    unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16-be":    unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf-32":       utf32.UTF32(utf32.LittleEndian, utf32.UseBOM),
	"utf-32-le":    utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
	"utf-32-be":    utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	"cp037":        charmap.CodePage037,
	"cp437":        charmap.CodePage437,
	"cp850":        charmap.CodePage850,
	"cp852":        charmap.CodePage852,
	"cp855":        charmap.CodePage855,
	"cp858":        charmap.CodePage858,
	"cp860":        charmap.CodePage860,
	"cp862":        charmap.CodePage862,
	"cp863":        charmap.CodePage863,
	"cp865":        charmap.CodePage865,
	"cp866":        charmap.CodePage866,
	"cp874":        charmap.Windows874,
	"cp1047":       charmap.CodePage1047,
	"cp1140":       charmap.CodePage1140,
	"cp1250":       charmap.Windows1250,
	"cp1251":       charmap.Windows1251,
	"cp1252":       charmap.Windows1252,
	"cp1253":       charmap.Windows1253,
	"cp1254":       charmap.Windows1254,
	"cp1255":       charmap.Windows1255,
	"cp1256":       charmap.Windows1256,
	"cp1257":       charmap.Windows1257,
	"cp1258":       charmap.Windows1258,
	"iso8859-1":    charmap.ISO8859_1,
	"iso8859-2":    charmap.ISO8859_2,
	"iso8859-3":    charmap.ISO8859_3,
	"iso8859-4":    charmap.ISO8859_4,
	"iso8859-5":    charmap.ISO8859_5,
	"iso8859-6":    charmap.ISO8859_6,
	"iso8859-7":    charmap.ISO8859_7,
	"iso8859-8":    charmap.ISO8859_8,
	"iso8859-9":    charmap.ISO8859_9,
	"iso8859-10":   charmap.ISO8859_10,
	"iso8859-13":   charmap.ISO8859_13,
	"iso8859-14":   charmap.ISO8859_14,
	"iso8859-15":   charmap.ISO8859_15,
	"iso8859-16":   charmap.ISO8859_16,
	"koi8-r":       charmap.KOI8R,
	"koi8-u":       charmap.KOI8U,
	"mac-roman":    charmap.Macintosh,
	"mac-cyrillic": charmap.MacintoshCyrillic,
}

var aliases = map[string]string{
	"u8":           UTF8,
	"utf":          UTF8,
	"utf8":         UTF8,
	"utf-8":        UTF8,
	"cp65001":      UTF8,
	"utf8-sig":     "utf-8-sig",
	"u16":          "utf-16",
	"utf16":        "utf-16",
	"utf-16le":     "utf-16-le",
	"utf-16be":     "utf-16-be",
	"u32":          "utf-32",
	"utf32":        "utf-32",
	"utf-32le":     "utf-32-le",
	"utf-32be":     "utf-32-be",
	"ascii":        "ascii",
	"us-ascii":     "ascii",
	"us":           "ascii",
	"646":          "ascii",
	"latin":        "iso8859-1",
	"latin1":       "iso8859-1",
	"latin-1":      "iso8859-1",
	"l1":           "iso8859-1",
	"cp819":        "iso8859-1",
	"8859":         "iso8859-1",
	"latin2":       "iso8859-2",
	"l2":           "iso8859-2",
	"latin3":       "iso8859-3",
	"l3":           "iso8859-3",
	"latin4":       "iso8859-4",
	"l4":           "iso8859-4",
	"cyrillic":     "iso8859-5",
	"arabic":       "iso8859-6",
	"greek":        "iso8859-7",
	"hebrew":       "iso8859-8",
	"latin5":       "iso8859-9",
	"l5":           "iso8859-9",
	"latin6":       "iso8859-10",
	"l6":           "iso8859-10",
	"latin7":       "iso8859-13",
	"l7":           "iso8859-13",
	"latin8":       "iso8859-14",
	"l8":           "iso8859-14",
	"latin9":       "iso8859-15",
	"l9":           "iso8859-15",
	"latin10":      "iso8859-16",
	"l10":          "iso8859-16",
	"koi8r":        "koi8-r",
	"koi8u":        "koi8-u",
	"macroman":     "mac-roman",
	"macintosh":    "mac-roman",
	"maccyrillic":  "mac-cyrillic",
	"ebcdic-cp-us": "cp037",
}

// canonical folds name to the form used as a cache key: lower case, with
// underscores and spaces turned into hyphens and numbered families
// (windows-N, ibmN, iso-8859-N) collapsed onto one spelling.
func canonical(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("_", "-", " ", "-").Replace(n)
	if a, ok := aliases[n]; ok {
		return a
	}
	switch {
	case strings.HasPrefix(n, "windows-"):
		n = "cp" + strings.TrimPrefix(n, "windows-")
	case strings.HasPrefix(n, "ibm"):
		n = "cp" + strings.TrimPrefix(strings.TrimPrefix(n, "ibm"), "-")
	case strings.HasPrefix(n, "iso-8859-"):
		n = "iso8859-" + strings.TrimPrefix(n, "iso-8859-")
	case strings.HasPrefix(n, "iso8859") && !strings.HasPrefix(n, "iso8859-"):
		n = "iso8859-" + strings.TrimPrefix(n, "iso8859")
	case isDigits(n):
		n = "cp" + n
	}
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

var cache sync.Map // canonical name -> Charset

// Lookup resolves name, including its aliases, to a Charset. Names not in
// the built-in table are resolved through the IANA index. Unknown names
// yield an *UnknownEncodingError.
func Lookup(name string) (Charset, error) {
	key := canonical(name)
	if key == "" {
		return Charset{}, &UnknownEncodingError{Name: name}
	}
	if cs, ok := cache.Load(key); ok {
		return cs.(Charset), nil
	}

	cs := Charset{Name: key}
	switch enc, ok := known[key]; {
	case ok:
		cs.Encoding = enc
	case key == "ascii":
		enc, err := ianaindex.IANA.Encoding("US-ASCII")
		if err != nil || enc == nil {
			return Charset{}, &UnknownEncodingError{Name: name, Err: err}
		}
		cs.Encoding = enc
	default:
		enc, err := ianaindex.IANA.Encoding(strings.TrimSpace(name))
		if err != nil || enc == nil {
			return Charset{}, &UnknownEncodingError{Name: name, Err: err}
		}
		cs.Encoding = enc
		if k, ok := knownName(enc); ok {
			cs.Name = k
		} else if iana, err := ianaindex.IANA.Name(enc); err == nil {
			cs.Name = strings.ToLower(iana)
		}
		if cached, ok := cache.Load(cs.Name); ok {
			cache.Store(key, cached)
			return cached.(Charset), nil
		}
	}
	cs.EightBitClean = cs.Name == UTF8 || transparent(cs.Encoding)

	actual, _ := cache.LoadOrStore(key, cs)
	if cs.Name != key {
		cache.LoadOrStore(cs.Name, cs)
	}
	return actual.(Charset), nil
}

// knownName maps a code page found through the IANA index back to its
// built-in name, so every alias of it shares one cache entry.
func knownName(enc encoding.Encoding) (string, bool) {
	cm, ok := enc.(*charmap.Charmap)
	if !ok {
		return "", false
	}
	for k, v := range known {
		if v == encoding.Encoding(cm) {
			return k, true
		}
	}
	return "", false
}

// MustLookup is like Lookup but panics if name is unknown.
func MustLookup(name string) Charset {
	cs, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return cs
}

// IsTransparent reports whether the named encoding is 8-bit clean.
func IsTransparent(name string) (bool, error) {
	cs, err := Lookup(name)
	if err != nil {
		return false, err
	}
	return cs.EightBitClean, nil
}

// probeRunes are non-ASCII characters from several scripts. A transparent
// encoding never uses ASCII bytes to encode them.
var probeRunes = []rune{'é', 'ß', 'ж', 'λ', 'א', 'ع', 'あ', '中', '한', '€'}

// transparent probes enc: ASCII must map to itself in both directions, no
// ASCII byte may be consumed as the trail of a multibyte sequence and no
// non-ASCII character may encode to ASCII bytes.
func transparent(enc encoding.Encoding) bool {
	if cm, ok := enc.(*charmap.Charmap); ok {
		for b := 0; b < utf8.RuneSelf; b++ {
			if cm.DecodeByte(byte(b)) != rune(b) {
				return false
			}
			if e, ok := cm.EncodeRune(rune(b)); !ok || e != byte(b) {
				return false
			}
		}
		return true
	}

	dec := enc.NewDecoder()
	for b := 0; b < utf8.RuneSelf; b++ {
		s := string(rune(b))
		if out, err := enc.NewEncoder().String(s); err != nil || out != s {
			return false
		}
		if out, err := dec.String(s); err != nil || out != s {
			return false
		}
	}
	pair := make([]byte, 2)
	for lead := utf8.RuneSelf; lead <= 0xff; lead++ {
		pair[0] = byte(lead)
		for trail := 0; trail < utf8.RuneSelf; trail++ {
			pair[1] = byte(trail)
			out, err := dec.Bytes(pair)
			if err != nil {
				continue
			}
			if len(out) == 0 || out[len(out)-1] != byte(trail) {
				return false
			}
		}
	}
	for _, r := range probeRunes {
		out, err := enc.NewEncoder().String(string(r))
		if err != nil {
			continue
		}
		for i := 0; i < len(out); i++ {
			if out[i] < utf8.RuneSelf {
				return false
			}
		}
	}
	return true
}

// Preferred returns the name of the encoding selected by the locale
// environment (LC_ALL, LC_CTYPE, LANG, first set wins). It falls back to
// UTF-8 when the locale names no codeset or an unknown one.
func Preferred() string {
	for _, v := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		loc := os.Getenv(v)
		if loc == "" {
			continue
		}
		return codesetOf(loc)
	}
	return UTF8
}

func codesetOf(locale string) string {
	_, codeset, ok := strings.Cut(locale, ".")
	if !ok {
		return UTF8
	}
	codeset, _, _ = strings.Cut(codeset, "@")
	cs, err := Lookup(codeset)
	if err != nil {
		return UTF8
	}
	return cs.Name
}
