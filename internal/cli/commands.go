package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
)

const stdinName = "-"

func runClassify(cmd *cobra.Command, args []string, opts *rootOptions) error {
	s, err := opts.resolve(cmd)
	if err != nil {
		return err
	}
	size := min(s.jobs, len(args))
	pool, err := magic.NewPool(size, s.cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	results := make([]result, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(size)
	for i, name := range args {
		g.Go(func() error {
			desc, err := classifyOne(ctx, pool, cmd.InOrStdin(), name)
			results[i] = newResult(name, desc, err)
			return nil
		})
	}
	_ = g.Wait()

	if err := writeResults(cmd, s.output, opts.brief, results); err != nil {
		return err
	}
	for _, r := range results {
		if r.Error != "" {
			return errClassify
		}
	}
	return nil
}

func classifyOne(ctx context.Context, pool *magic.Pool, stdin io.Reader, name string) (string, error) {
	if name != stdinName {
		return pool.File(ctx, name)
	}
	var out string
	err := pool.Do(ctx, func(m *magic.Magic) error {
		var err error
		out, err = m.Reader(stdin)
		return err
	})
	return out, err
}

func databaseTarget(args []string) magic.LoadTarget {
	if len(args) == 0 {
		return magic.DefaultDatabase()
	}
	return magic.DatabasePaths(args...)
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [SOURCE...]",
		Short: "Validate magic source files",
		Long:  "Validate magic source files. Without arguments the default database is checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer m.Close()

			target := databaseTarget(args)
			if _, err := m.Check(target); err != nil {
				return fmt.Errorf("check %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", target)
			return nil
		},
	}
}

func newCompileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compile SOURCE...",
		Short: "Compile magic source files to .mgc",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer m.Close()

			target := databaseTarget(args)
			if err := m.Compile(target); err != nil {
				return fmt.Errorf("compile %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: compiled\n", target)
			return nil
		},
	}
}

// pathsReport is the structured form of the paths command.
type pathsReport struct {
	Paths   []string `json:"paths" yaml:"paths"`
	Default bool     `json:"default" yaml:"default"`
}

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show the database files in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			// Only load when a database was named; the default list is
			// reported by the engine without loading it.
			s.cfg.AutoLoad = len(s.cfg.Database) > 0
			m, err := magic.Open(s.cfg)
			if err != nil {
				return err
			}
			defer m.Close()

			paths, err := m.Paths()
			if err != nil {
				return err
			}
			report := pathsReport{Paths: paths, Default: !s.cfg.AutoLoad}
			return writeValue(cmd, s.output, report, func(w io.Writer) {
				for _, p := range paths {
					fmt.Fprintln(w, p)
				}
			})
		},
	}
}

// versionReport is the structured form of the version command.
type versionReport struct {
	Wrapper string `json:"wrapper" yaml:"wrapper"`
	CLI     string `json:"cli" yaml:"cli"`
	Library string `json:"library" yaml:"library"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newVersionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print wrapper and library versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			report := versionReport{
				Wrapper: magic.WrapperVersion(),
				CLI:     cmd.Root().Version,
			}
			if opts.engine != nil {
				report.Library = magic.FormatVersion(opts.engine.Version())
			} else if v, err := magic.LibraryVersion(); err != nil {
				report.Library = magic.FormatVersion(0)
				report.Error = err.Error()
			} else {
				report.Library = magic.FormatVersion(v)
			}
			return writeValue(cmd, s.output, report, func(w io.Writer) {
				fmt.Fprintf(w, "gomagic %s\n", report.CLI)
				fmt.Fprintf(w, "wrapper %s\n", report.Wrapper)
				fmt.Fprintf(w, "libmagic %s\n", report.Library)
				if report.Error != "" {
					fmt.Fprintf(w, "(%s)\n", report.Error)
				}
			})
		},
	}
}

func newFlagsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flags",
		Short: "List the flag names accepted by --flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, name := range magic.KnownFlags.Names() {
				f, _ := magic.ParseFlags(name)
				fmt.Fprintf(w, "%-18s 0x%07x\n", name, int(f))
			}
			return nil
		},
	}
}

// paramValue is one row of the params command.
type paramValue struct {
	Name  string `json:"name" yaml:"name"`
	Value uint64 `json:"value" yaml:"value"`
}

func newParamsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Show engine parameter values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, s, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer m.Close()

			values, err := m.Parameters()
			if err != nil {
				return err
			}
			var rows []paramValue
			for _, p := range magic.Params() {
				if v, ok := values[p]; ok {
					rows = append(rows, paramValue{Name: p.String(), Value: v})
				}
			}
			return writeValue(cmd, s.output, rows, func(w io.Writer) {
				for _, r := range rows {
					fmt.Fprintf(w, "%-15s %d\n", r.Name, r.Value)
				}
			})
		},
	}
}
