package csvcodec

import (
	"bytes"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/oleg578/csvcodec/grammar"
)

// quirks records known defects of a grammar engine.
type quirks struct {
	// escapeDoubling: the writer does not escape an escape character that
	// appears inside a field.
	escapeDoubling bool
	// embeddedNewline: the reader splits a field at an escaped newline when
	// quoting is off.
	embeddedNewline bool
}

var quirkCache sync.Map // grammar.Engine -> quirks

// probeQuirks runs the defect probes against e once. Results are cached for
// engines usable as map keys.
func probeQuirks(e grammar.Engine) quirks {
	cacheable := reflect.TypeOf(e).Comparable()
	if cacheable {
		if q, ok := quirkCache.Load(e); ok {
			return q.(quirks)
		}
	}
	q := quirks{
		escapeDoubling:  probeEscapeDoubling(e),
		embeddedNewline: probeEmbeddedNewline(e),
	}
	if cacheable {
		quirkCache.Store(e, q)
	}
	return q
}

func probeEscapeDoubling(e grammar.Engine) bool {
	var buf bytes.Buffer
	w, err := e.NewWriter(&buf, withEscape(Excel, QuoteMinimal), grammar.Text)
	if err != nil {
		return false
	}
	if _, err := w.Write([]string{`\`}); err != nil {
		return false
	}
	return !strings.Contains(buf.String(), `\\`)
}

func probeEmbeddedNewline(e grammar.Engine) bool {
	src := grammar.LineSlice{"spam\\\n", "eggs\r\n"}
	r, err := e.NewReader(&src, withEscape(Excel, QuoteNone), grammar.Text)
	if err != nil {
		return false
	}
	rec, err := r.Read()
	return err != nil || !slices.Equal(rec, []string{"spam\neggs"})
}

func withEscape(d Dialect, q Quoting) Dialect {
	d.EscapeChar = '\\'
	d.Quoting = q
	return d
}

// needsEscapeDoubling reports whether writing with d on an engine with q
// requires doubling escape characters up front.
func (q quirks) needsEscapeDoubling(d Dialect) bool {
	return q.escapeDoubling && d.EscapeChar != 0 && d.Quoting != QuoteNone
}

// misreadsEmbeddedNewlines reports whether reading with d on an engine with
// q may split fields at escaped newlines.
func (q quirks) misreadsEmbeddedNewlines(d Dialect) bool {
	return q.embeddedNewline && d.EscapeChar != 0 && d.Quoting == QuoteNone
}

func keepFields(fields []string) []string { return fields }

// doubleEscapes returns a field rewrite replacing every esc with two.
func doubleEscapes(esc rune) func([]string) []string {
	old := string(esc)
	doubled := old + old
	return func(fields []string) []string {
		out, cloned := fields, false
		for i, f := range fields {
			if !strings.Contains(f, old) {
				continue
			}
			if !cloned {
				out, cloned = slices.Clone(fields), true
			}
			out[i] = strings.ReplaceAll(f, old, doubled)
		}
		return out
	}
}
