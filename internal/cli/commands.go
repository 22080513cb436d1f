package cli

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/oleg578/csvcodec"
	"github.com/oleg578/csvcodec/charset"
)

func newCatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat FILE",
		Short: "Re-emit a CSV file in the output dialect and encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cat(cmd.OutOrStdout(), args[0])
		},
	}
}

func (a *app) cat(out io.Writer, path string) error {
	opts, err := a.readOptions()
	if err != nil {
		return err
	}
	return csvcodec.WithReader(path, func(r *csvcodec.FileReader) error {
		wopts := append(a.writeOptions(), csvcodec.WithShape(a.shape()))
		if dr, ok := r.Codec().(*csvcodec.DictReader); ok {
			names, err := dr.FieldNames()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			wopts = append(wopts, csvcodec.WithFieldNames(names...))
		}

		w, finish, err := a.newRowWriter(out, wopts)
		if err != nil {
			return err
		}
		if dw, ok := w.(*csvcodec.DictWriter); ok {
			if _, err := dw.WriteHeader(); err != nil {
				return err
			}
		}
		rows := 0
		for row, err := range r.All() {
			if err != nil {
				return fmt.Errorf("%s:%d: %w", path, r.LineNum(), err)
			}
			if _, err := w.WriteRow(row); err != nil {
				return err
			}
			rows++
		}
		a.logger.Debug("copied rows", slog.String("path", path), slog.Int("rows", rows))
		return finish()
	}, opts...)
}

// newRowWriter returns a writer onto out in the output encoding. finish
// flushes the encoder without closing out.
func (a *app) newRowWriter(out io.Writer, opts []csvcodec.Option) (csvcodec.RowWriter, func() error, error) {
	cs, err := charset.Lookup(a.cfg.Output.Encoding)
	if err != nil {
		return nil, nil, err
	}
	mode := csvcodec.ModeBytes
	finish := func() error { return nil }
	if !cs.EightBitClean {
		mode = csvcodec.ModeText
		tw := cs.NewWriter(out)
		out, finish = tw, tw.Close
	}
	factory, err := csvcodec.DefaultTable().Writer(a.shape(), mode)
	if err != nil {
		return nil, nil, err
	}
	w, err := factory(out, opts...)
	if err != nil {
		return nil, nil, err
	}
	return w, finish, nil
}

func (a *app) shape() csvcodec.Shape {
	s, _ := csvcodec.ParseShape(a.cfg.Shape)
	return s
}

var hashes = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"sha1":   sha1.New,
	"md5":    md5.New,
	"xxhash": func() hash.Hash { return xxhash.New() },
}

func newHashCommand(a *app) *cobra.Command {
	var algo string
	cmd := &cobra.Command{
		Use:   "hash FILE...",
		Short: "Print the digest of the canonical re-encoding of CSV files",
		Long: `Read each file and write its rows, in the output dialect and encoding, into a hash.
Files with the same rows hash equal regardless of their source dialect, encoding or compression.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newHash, ok := hashes[strings.ToLower(algo)]
			if !ok {
				return fmt.Errorf("unknown hash algorithm %q", algo)
			}
			for _, path := range args {
				sum, err := a.hash(path, newHash())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%x  %s\n", sum, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&algo, "algo", "sha256", "hash algorithm: sha256, sha1, md5 or xxhash")
	return cmd
}

func (a *app) hash(path string, h hash.Hash) ([]byte, error) {
	opts, err := a.readOptions()
	if err != nil {
		return nil, err
	}
	seq, err := csvcodec.ReadCSV(csvcodec.Path(path), opts...)
	if err != nil {
		return nil, err
	}
	var readErr error
	rows := iter.Seq[[]string](func(yield func([]string) bool) {
		for row, err := range seq {
			if err != nil {
				readErr = err
				return
			}
			if !yield(row) {
				return
			}
		}
	})
	res, err := csvcodec.WriteCSV(csvcodec.HashSink{Hash: h}, rows, a.writeOptions()...)
	if err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, fmt.Errorf("%s: %w", path, readErr)
	}
	a.logger.Debug("hashed rows", slog.String("path", path), slog.Int("rows", res.Rows), slog.Int64("bytes", res.Bytes))
	return h.Sum(nil), nil
}

func newDialectsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the registered dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range a.registry.List() {
				d, err := a.registry.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", name, describe(d))
			}
			return nil
		},
	}
}

func describe(d csvcodec.Dialect) string {
	char := func(r rune) string {
		if r == 0 {
			return "none"
		}
		return fmt.Sprintf("%q", r)
	}
	return fmt.Sprintf("delimiter=%s quotechar=%s escapechar=%s doublequote=%t lineterminator=%q quoting=%s skipinitialspace=%t strict=%t",
		char(d.Delimiter), char(d.QuoteChar), char(d.EscapeChar), d.DoubleQuote,
		d.LineTerminator, d.Quoting, d.SkipInitialSpace, d.Strict)
}

func newClassifyCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify ENCODING...",
		Short: "Tell whether encodings are 8-bit clean",
		Long:  `Print the canonical name of each encoding and whether it is 8-bit clean. Unknown encodings are reported and make the command fail.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var errs *multierror.Error
			for _, name := range args {
				cs, err := charset.Lookup(name)
				if err != nil {
					fmt.Fprintf(out, "%s\tunknown\n", name)
					errs = multierror.Append(errs, err)
					continue
				}
				verdict := "not 8-bit clean"
				if cs.EightBitClean {
					verdict = "8-bit clean"
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", name, cs.Name, verdict)
			}
			return errs.ErrorOrNil()
		},
	}
}
