package csvcodec

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/oleg578/csvcodec/charset"
	"github.com/oleg578/csvcodec/grammar"
)

// Dialect is the bundle of grammar parameters a codec reads and writes with.
type Dialect = grammar.Dialect

// Quoting is the quoting mode of a Dialect.
type Quoting = grammar.Quoting

const (
	QuoteMinimal    = grammar.QuoteMinimal
	QuoteAll        = grammar.QuoteAll
	QuoteNonNumeric = grammar.QuoteNonNumeric
	QuoteNone       = grammar.QuoteNone
)

// DefaultDialect is the name of the dialect used when none is given.
const DefaultDialect = "excel"

var (
	// Excel is the usual properties of an Excel-generated CSV file.
	Excel = Dialect{
		Delimiter:      ',',
		QuoteChar:      '"',
		DoubleQuote:    true,
		LineTerminator: "\r\n",
		Quoting:        QuoteMinimal,
	}
	// ExcelTab is Excel with tab delimiters.
	ExcelTab = Dialect{
		Delimiter:      '\t',
		QuoteChar:      '"',
		DoubleQuote:    true,
		LineTerminator: "\r\n",
		Quoting:        QuoteMinimal,
	}
	// Unix is the usual properties of Unix-generated CSV files.
	Unix = Dialect{
		Delimiter:      ',',
		QuoteChar:      '"',
		DoubleQuote:    true,
		LineTerminator: "\n",
		Quoting:        QuoteAll,
	}
	// ASCII is ASCII delimited text: unit separators between fields and
	// record separators after records, no quoting.
	ASCII = Dialect{
		Delimiter:      '\x1f',
		LineTerminator: "\x1e",
		Quoting:        QuoteNone,
		Strict:         true,
	}
)

// Registry maps dialect names to dialects. The zero value is not usable;
// create one with NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	dialects map[string]Dialect
}

// NewRegistry returns a registry holding the built-in dialects.
func NewRegistry() *Registry {
	return &Registry{dialects: map[string]Dialect{
		"excel":     Excel,
		"excel-tab": ExcelTab,
		"unix":      Unix,
		"ascii":     ASCII,
	}}
}

// Register validates d and stores it under name, replacing any previous
// dialect of that name.
func (r *Registry) Register(name string, d Dialect) error {
	if name == "" {
		return fmt.Errorf("%w: empty dialect name", grammar.ErrDialect)
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("register dialect %q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialects[name] = d
	return nil
}

// Get returns the dialect registered under name.
func (r *Registry) Get(name string) (Dialect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return d, nil
}

// Unregister removes the dialect registered under name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dialects[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	delete(r.dialects, name)
	return nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.dialects))
	for name := range r.dialects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry returns the process-wide registry, creating it on first use.
var DefaultRegistry = sync.OnceValue(NewRegistry)

// RegisterDialect registers d in the default registry.
func RegisterDialect(name string, d Dialect) error { return DefaultRegistry().Register(name, d) }

// GetDialect looks name up in the default registry.
func GetDialect(name string) (Dialect, error) { return DefaultRegistry().Get(name) }

// UnregisterDialect removes name from the default registry.
func UnregisterDialect(name string) error { return DefaultRegistry().Unregister(name) }

// ListDialects lists the default registry.
func ListDialects() []string { return DefaultRegistry().List() }

// DialectOption overrides a single parameter of a base dialect.
type DialectOption func(*Dialect)

// Delimiter sets the field delimiter.
func Delimiter(r rune) DialectOption { return func(d *Dialect) { d.Delimiter = r } }

// QuoteChar sets the quote character.
func QuoteChar(r rune) DialectOption { return func(d *Dialect) { d.QuoteChar = r } }

// NoQuoteChar unsets the quote character.
func NoQuoteChar() DialectOption { return func(d *Dialect) { d.QuoteChar = 0 } }

// EscapeChar sets the escape character.
func EscapeChar(r rune) DialectOption { return func(d *Dialect) { d.EscapeChar = r } }

// NoEscapeChar unsets the escape character.
func NoEscapeChar() DialectOption { return func(d *Dialect) { d.EscapeChar = 0 } }

// LineTerminator sets the record terminator.
func LineTerminator(s string) DialectOption { return func(d *Dialect) { d.LineTerminator = s } }

// QuotingMode sets the quoting mode.
func QuotingMode(q Quoting) DialectOption { return func(d *Dialect) { d.Quoting = q } }

// DoubleQuote sets whether quote characters are doubled inside quoted fields.
func DoubleQuote(b bool) DialectOption { return func(d *Dialect) { d.DoubleQuote = b } }

// SkipInitialSpace sets whether spaces after a delimiter are ignored.
func SkipInitialSpace(b bool) DialectOption { return func(d *Dialect) { d.SkipInitialSpace = b } }

// Strict sets whether malformed input is an error.
func Strict(b bool) DialectOption { return func(d *Dialect) { d.Strict = b } }

// ResolveDialect applies overrides to base and validates the result.
func ResolveDialect(base Dialect, overrides ...DialectOption) (Dialect, error) {
	d := base
	for _, o := range overrides {
		o(&d)
	}
	if err := d.Validate(); err != nil {
		return Dialect{}, err
	}
	return d, nil
}

// DialectName returns the name under which d is registered in r, or a
// description of its parameters when it is not registered.
func (r *Registry) DialectName(d Dialect) string {
	for _, name := range r.List() {
		if got, err := r.Get(name); err == nil && got == d {
			return name
		}
	}
	return fmt.Sprintf("delimiter=%q quoting=%s", d.Delimiter, d.Quoting)
}

// normalizeDialect converts the control characters of d into the byte units
// of cs, as required by the grammar in bytes mode. Each resulting rune stands
// for the byte of the same value. ASCII characters are passed through since
// cs is 8-bit clean.
func normalizeDialect(d Dialect, cs charset.Charset) (Dialect, error) {
	codec := cs.NewCodec()
	unit := func(what string, r rune) (rune, error) {
		if r < 0x80 {
			return r, nil
		}
		b, err := codec.EncodeRune(r)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q: %w", grammar.ErrDialect, what, r, err)
		}
		if len(b) != 1 {
			return 0, fmt.Errorf("%w: %s %q is not a single byte in %s", grammar.ErrDialect, what, r, cs.Name)
		}
		return rune(b[0]), nil
	}

	var err error
	nd := d
	if nd.Delimiter, err = unit("delimiter", d.Delimiter); err != nil {
		return Dialect{}, err
	}
	if nd.QuoteChar, err = unit("quotechar", d.QuoteChar); err != nil {
		return Dialect{}, err
	}
	if nd.EscapeChar, err = unit("escapechar", d.EscapeChar); err != nil {
		return Dialect{}, err
	}
	if isASCII(d.LineTerminator) {
		return nd, nil
	}
	term, err := codec.Encode(d.LineTerminator)
	if err != nil {
		return Dialect{}, fmt.Errorf("%w: lineterminator %q: %w", grammar.ErrDialect, d.LineTerminator, err)
	}
	var sb strings.Builder
	for i := 0; i < len(term); i++ {
		sb.WriteRune(rune(term[i]))
	}
	nd.LineTerminator = sb.String()
	return nd, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
