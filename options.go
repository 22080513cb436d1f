package csvcodec

import (
	"log/slog"

	"github.com/oleg578/csvcodec/charset"
	"github.com/oleg578/csvcodec/grammar"
)

// Strategy selects how a reader or writer with an encoding meets the grammar.
type Strategy int

const (
	// StrategyNative tokenizes and formats the encoded bytes directly and
	// transcodes individual fields.
	StrategyNative Strategy = iota
	// StrategyTranscode transcodes whole lines and tokenizes and formats text.
	StrategyTranscode
)

func (s Strategy) String() string {
	if s == StrategyTranscode {
		return "transcode"
	}
	return "native"
}

// ExtrasAction tells a DictWriter what to do with keys not in its field names.
type ExtrasAction int

const (
	// ExtrasRaise makes Write fail with ErrExtraFields.
	ExtrasRaise ExtrasAction = iota
	// ExtrasIgnore drops the extra keys.
	ExtrasIgnore
)

// charsetDefault is the encoding of scoped files, shortcuts and bytes mode
// factories unless configured otherwise.
const charsetDefault = charset.UTF8

// DefaultRowName is the record type name used by RecordReader.
const DefaultRowName = "Row"

// Option configures codecs, scoped files and shortcuts. Options that do not
// apply to a constructor are ignored by it.
type Option func(*options)

type options struct {
	registry    *Registry
	dialectName string
	dialect     *Dialect
	overrides   []DialectOption

	encoding    string
	encodingSet bool

	engine   grammar.Engine
	logger   *slog.Logger
	strategy Strategy

	fieldSizeLimit int

	fieldNames   []string
	restValue    string
	extrasAction ExtrasAction

	rename     bool
	renameFunc func(string) string
	rowName    string

	shape        Shape
	table        *Table
	autoCompress bool
	header       []string
}

// newOptions applies opts over the defaults. encoding is the default
// encoding of the entry point; empty means none.
func newOptions(encoding string, opts []Option) *options {
	o := &options{
		encoding: encoding,
		rowName:  DefaultRowName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	if o.engine == nil {
		o.engine = grammar.Standard
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

func (o *options) dispatch() *Table {
	if o.table == nil {
		return DefaultTable()
	}
	return o.table
}

// resolveDialect returns the dialect selected by the options.
func (o *options) resolveDialect() (Dialect, error) {
	var base Dialect
	switch {
	case o.dialect != nil:
		base = *o.dialect
	default:
		name := o.dialectName
		if name == "" {
			name = DefaultDialect
		}
		d, err := o.registry.Get(name)
		if err != nil {
			return Dialect{}, err
		}
		base = d
	}
	return ResolveDialect(base, o.overrides...)
}

// WithDialect uses d as the base dialect.
func WithDialect(d Dialect) Option {
	return func(o *options) {
		o.dialect = &d
		o.dialectName = ""
	}
}

// WithDialectName looks the base dialect up by name.
func WithDialectName(name string) Option {
	return func(o *options) {
		o.dialectName = name
		o.dialect = nil
	}
}

// WithFormat overrides individual parameters of the base dialect.
func WithFormat(overrides ...DialectOption) Option {
	return func(o *options) { o.overrides = append(o.overrides, overrides...) }
}

// WithRegistry resolves dialect names in r instead of the default registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithEncoding sets the encoding of the underlying byte stream.
func WithEncoding(name string) Option {
	return func(o *options) { o.encoding, o.encodingSet = name, true }
}

// WithoutEncoding declares the underlying stream to carry UTF-8 text.
func WithoutEncoding() Option {
	return func(o *options) { o.encoding, o.encodingSet = "", true }
}

// WithPreferredEncoding uses the encoding preferred by the locale.
func WithPreferredEncoding() Option {
	return func(o *options) { o.encoding, o.encodingSet = charset.Preferred(), true }
}

// WithEngine replaces the grammar engine.
func WithEngine(e grammar.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithLogger sets the logger receiving warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStrategy selects the transcoding strategy for streams with an encoding.
func WithStrategy(s Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithFieldSizeLimit caps the size of a single field when reading.
func WithFieldSizeLimit(n int) Option {
	return func(o *options) { o.fieldSizeLimit = n }
}

// WithFieldNames sets the field names of mapping codecs. A DictReader given
// field names treats the first row as data.
func WithFieldNames(names ...string) Option {
	return func(o *options) { o.fieldNames = append([]string(nil), names...) }
}

// WithRestValue sets the value of fields missing from a row or mapping.
func WithRestValue(v string) Option {
	return func(o *options) { o.restValue = v }
}

// WithExtrasAction sets how a DictWriter treats keys not in its field names.
func WithExtrasAction(a ExtrasAction) Option {
	return func(o *options) { o.extrasAction = a }
}

// WithRename makes RecordReader replace invalid header names with positional
// names (_0, _1, ...).
func WithRename(rename bool) Option {
	return func(o *options) { o.rename = rename }
}

// WithRenameFunc makes RecordReader map every header name through fn.
func WithRenameFunc(fn func(string) string) Option {
	return func(o *options) { o.renameFunc = fn }
}

// WithRowName sets the record type name used by RecordReader.
func WithRowName(name string) Option {
	return func(o *options) { o.rowName = name }
}

// WithShape selects the row shape of scoped files.
func WithShape(s Shape) Option {
	return func(o *options) { o.shape = s }
}

// WithTable replaces the dispatch table used by scoped files and shortcuts.
func WithTable(t *Table) Option {
	return func(o *options) { o.table = t }
}

// WithAutoCompress enables compression by path suffix (.gz, .zst, .bz2, .xz).
func WithAutoCompress() Option {
	return func(o *options) { o.autoCompress = true }
}

// WithHeader makes WriteCSV write fields before the rows.
func WithHeader(fields ...string) Option {
	return func(o *options) { o.header = append([]string(nil), fields...) }
}
