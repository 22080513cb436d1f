package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"

	"github.com/oleg578/csvcodec"
	"github.com/oleg578/csvcodec/internal/config"
)

// app is the state shared by the subcommands.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
	logFile    io.Closer
	registry   *csvcodec.Registry
}

// NewRootCommand returns the csvcodec command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "csvcodec",
		Short:         "Read, re-encode and fingerprint CSV files",
		Long:          `Read CSV files in any 8-bit clean or UTF encoding, re-emit them in another dialect or encoding, and hash their canonical form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logFile != nil {
				return a.logFile.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./csvcodec.yaml)")
	flags.String("encoding", "", "input encoding")
	flags.String("dialect", "", "input dialect")
	flags.String("shape", "", "row shape: list, mapping or record")
	flags.String("dialects", "", "YAML file with additional dialects")
	flags.Bool("autocompress", false, "compress and decompress by file suffix")
	flags.String("out-encoding", "", "output encoding")
	flags.String("out-dialect", "", "output dialect")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("log-file", "", "also write log records to this file")

	root.AddCommand(newCatCommand(a), newHashCommand(a), newDialectsCommand(a), newClassifyCommand(a))
	return root
}

// Execute runs the command tree with the process arguments.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "csvcodec: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	overrideString(cmd, "encoding", &cfg.Encoding)
	overrideString(cmd, "dialect", &cfg.Dialect)
	overrideString(cmd, "shape", &cfg.Shape)
	overrideString(cmd, "dialects", &cfg.Dialects)
	overrideString(cmd, "out-encoding", &cfg.Output.Encoding)
	overrideString(cmd, "out-dialect", &cfg.Output.Dialect)
	overrideString(cmd, "log-level", &cfg.Log.Level)
	overrideString(cmd, "log-format", &cfg.Log.Format)
	overrideString(cmd, "log-file", &cfg.Log.File)
	if f := cmd.Flags().Lookup("autocompress"); f != nil && f.Changed {
		cfg.AutoCompress, _ = cmd.Flags().GetBool("autocompress")
	}
	a.cfg = cfg

	logger, closer, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger, a.logFile = logger, closer

	a.registry = csvcodec.NewRegistry()
	if cfg.Dialects != "" {
		names, err := config.LoadDialects(cfg.Dialects, a.registry)
		if err != nil {
			return err
		}
		a.logger.Debug("loaded dialects", slog.String("file", cfg.Dialects), slog.Any("names", names))
	}
	return nil
}

func overrideString(cmd *cobra.Command, name string, dst *string) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst = f.Value.String()
	}
}

// newLogger builds the logger described by cfg on w, fanned out to
// cfg.File when set.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	newHandler := func(w io.Writer) (slog.Handler, error) {
		switch strings.ToLower(cfg.Format) {
		case "", "text":
			return slog.NewTextHandler(w, opts), nil
		case "json":
			return slog.NewJSONHandler(w, opts), nil
		}
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	h, err := newHandler(w)
	if err != nil {
		return nil, nil, err
	}
	if cfg.File == "" {
		return slog.New(h), nil, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	fh, err := newHandler(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return slog.New(slogmulti.Fanout(h, fh)), f, nil
}

// readOptions returns the codec options for the input side.
func (a *app) readOptions() ([]csvcodec.Option, error) {
	shape, err := csvcodec.ParseShape(a.cfg.Shape)
	if err != nil {
		return nil, err
	}
	opts := []csvcodec.Option{
		csvcodec.WithRegistry(a.registry),
		csvcodec.WithLogger(a.logger),
		csvcodec.WithEncoding(a.cfg.Encoding),
		csvcodec.WithDialectName(a.cfg.Dialect),
		csvcodec.WithShape(shape),
	}
	if a.cfg.AutoCompress {
		opts = append(opts, csvcodec.WithAutoCompress())
	}
	return opts, nil
}

// writeOptions returns the codec options for the output side.
func (a *app) writeOptions() []csvcodec.Option {
	return []csvcodec.Option{
		csvcodec.WithRegistry(a.registry),
		csvcodec.WithLogger(a.logger),
		csvcodec.WithEncoding(a.cfg.Output.Encoding),
		csvcodec.WithDialectName(a.cfg.Output.Dialect),
	}
}
