package config

import (
	"fmt"
	"os"
	"slices"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/oleg578/csvcodec"
	"github.com/oleg578/csvcodec/grammar"
)

// DialectSpec is a dialect definition in a dialects file. Unset keys keep
// the value of the base dialect.
type DialectSpec struct {
	Base             string  `yaml:"base"`
	Delimiter        *string `yaml:"delimiter"`
	QuoteChar        *string `yaml:"quotechar"`
	EscapeChar       *string `yaml:"escapechar"`
	DoubleQuote      *bool   `yaml:"doublequote"`
	LineTerminator   *string `yaml:"lineterminator"`
	Quoting          *string `yaml:"quoting"`
	SkipInitialSpace *bool   `yaml:"skipinitialspace"`
	Strict           *bool   `yaml:"strict"`
}

// DialectsFile is the layout of a dialects file:
//
//	dialects:
//	  semicolon:
//	    base: excel
//	    delimiter: ";"
type DialectsFile struct {
	Dialects map[string]DialectSpec `yaml:"dialects"`
}

// LoadDialects reads the dialects file at path and registers its dialects
// in reg. Dialects are registered in name order; the base of a dialect may
// be any dialect registered before it.
func LoadDialects(path string, reg *csvcodec.Registry) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDialects(data, reg)
}

// ParseDialects registers the dialects defined in data in reg and returns
// their names.
func ParseDialects(data []byte, reg *csvcodec.Registry) ([]string, error) {
	var f DialectsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dialects: %w", err)
	}
	names := make([]string, 0, len(f.Dialects))
	for name := range f.Dialects {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		d, err := f.Dialects[name].resolve(reg)
		if err != nil {
			return nil, fmt.Errorf("dialect %q: %w", name, err)
		}
		if err := reg.Register(name, d); err != nil {
			return nil, fmt.Errorf("dialect %q: %w", name, err)
		}
	}
	return names, nil
}

func (s DialectSpec) resolve(reg *csvcodec.Registry) (csvcodec.Dialect, error) {
	base := s.Base
	if base == "" {
		base = csvcodec.DefaultDialect
	}
	d, err := reg.Get(base)
	if err != nil {
		return csvcodec.Dialect{}, err
	}

	var opts []csvcodec.DialectOption
	if s.Delimiter != nil {
		r, err := char("delimiter", *s.Delimiter)
		if err != nil {
			return csvcodec.Dialect{}, err
		}
		opts = append(opts, csvcodec.Delimiter(r))
	}
	if s.QuoteChar != nil {
		r, err := char("quotechar", *s.QuoteChar)
		if err != nil {
			return csvcodec.Dialect{}, err
		}
		opts = append(opts, csvcodec.QuoteChar(r))
	}
	if s.EscapeChar != nil {
		r, err := char("escapechar", *s.EscapeChar)
		if err != nil {
			return csvcodec.Dialect{}, err
		}
		opts = append(opts, csvcodec.EscapeChar(r))
	}
	if s.DoubleQuote != nil {
		opts = append(opts, csvcodec.DoubleQuote(*s.DoubleQuote))
	}
	if s.LineTerminator != nil {
		opts = append(opts, csvcodec.LineTerminator(*s.LineTerminator))
	}
	if s.Quoting != nil {
		q, err := grammar.ParseQuoting(*s.Quoting)
		if err != nil {
			return csvcodec.Dialect{}, err
		}
		opts = append(opts, csvcodec.QuotingMode(q))
	}
	if s.SkipInitialSpace != nil {
		opts = append(opts, csvcodec.SkipInitialSpace(*s.SkipInitialSpace))
	}
	if s.Strict != nil {
		opts = append(opts, csvcodec.Strict(*s.Strict))
	}
	return csvcodec.ResolveDialect(d, opts...)
}

// char parses a one-character setting. An empty string unsets it.
func char(key, s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: %s must be a single character, got %q", grammar.ErrDialect, key, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
