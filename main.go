// Package main provides the kmlgraph binary entry point.
// kmlgraph loads KSP-style save and craft files, rebuilds the part
// attachment graph of every vessel and reports broken docking links.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chazu/kmlgraph/pkg/config"
	"github.com/chazu/kmlgraph/pkg/discover"
	"github.com/chazu/kmlgraph/pkg/engine"
	"github.com/chazu/kmlgraph/pkg/watch"
)

const (
	Version = "0.1.0"
	appName = "kmlgraph"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	logLevel   string
	noColor    bool
	jsonOut    bool

	cfg *config.Config
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Inspect and check KSP save files",
		Long: `kmlgraph parses KSP-style save (.sfs) and craft files, rebuilds the
attachment graph of every vessel (parent links, node and surface
attachments, docking and grappling) and reports contradictions.

Directories given as arguments are searched for files matching the
configured include patterns, minus those listed in the ignore file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable coloured log output")
	pf.BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")

	cmd.AddCommand(
		checkCmd(opts),
		treeCmd(opts),
		fmtCmd(opts),
		queryCmd(opts),
		watchCmd(opts),
		configCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

// newLogger builds the coloured stderr logger.
func newLogger(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}

// setup loads the configuration, applies flag overrides and installs the
// logger. It returns the App every command runs on.
func (o *options) setup(cmd *cobra.Command) (*App, error) {
	boot := newLogger(cmd.ErrOrStderr(), slog.LevelWarn, o.noColor)

	cfg, err := config.NewLoader(boot).Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Merge(&config.Config{Log: config.LogConfig{Level: o.logLevel, NoColor: o.noColor}})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := newLogger(cmd.ErrOrStderr(), level, cfg.Log.NoColor)
	slog.SetDefault(logger)

	o.cfg = cfg
	return NewApp(cfg, logger), nil
}

func (o *options) expand(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	files, err := discover.Expand(args, o.cfg.Scan)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files matching %s", strings.Join(o.cfg.Scan.Include, ", "))
	}
	return files, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ---------------------------------------------------------------------------
// check
// ---------------------------------------------------------------------------

func checkCmd(opts *options) *cobra.Command {
	var (
		repairOnly bool
		noValidate bool
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Rebuild every vessel and report inconsistencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if repairOnly {
				opts.cfg.Check.RepairOnly = true
			}
			if noValidate {
				opts.cfg.Check.Validate = false
			}

			files, err := opts.expand(args)
			if err != nil {
				return err
			}

			reports, loadErr := app.CheckAll(files)
			if err := renderReports(cmd.OutOrStdout(), reports, opts.jsonOut); err != nil {
				return err
			}
			if loadErr != nil {
				return loadErr
			}
			if strict {
				problems := 0
				for _, r := range reports {
					problems += r.Problems()
				}
				if problems > 0 {
					return fmt.Errorf("%d problem(s) found", problems)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&repairOnly, "repair-only", false, "Only report vessels with docks that need repair")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip structural validation")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any problem is found")
	return cmd
}

func renderReports(w io.Writer, reports []*FileReport, asJSON bool) error {
	if asJSON {
		if reports == nil {
			reports = []*FileReport{}
		}
		return writeJSON(w, reports)
	}

	for _, r := range reports {
		fmt.Fprintf(w, "%s (%s): %d vessel(s), %d problem(s)\n", r.Path, r.Size, len(r.Vessels), r.Problems())
		for _, d := range r.Diagnostics {
			if d.Item != "" {
				fmt.Fprintf(w, "  line %d: %s [%s]\n", d.Line, d.Message, d.Item)
			} else {
				fmt.Fprintf(w, "  line %d: %s\n", d.Line, d.Message)
			}
		}
		for _, v := range r.Vessels {
			fmt.Fprintf(w, "  vessel %q (line %d): %d part(s), %d root(s), %d docked\n",
				v.Name, v.Line, v.Parts, v.Roots, v.Docked)
			for _, p := range v.Repair {
				fmt.Fprintf(w, "    needs repair: part %d %s uid %s state %q\n", p.Index, p.Name, p.UID, p.State)
			}
			for _, f := range v.Findings {
				fmt.Fprintf(w, "    %s\n", f)
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// tree
// ---------------------------------------------------------------------------

func treeCmd(opts *options) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "tree <file>",
		Short: "Print the node tree with resolved part hierarchies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			return app.Tree(args[0], cmd.OutOrStdout(), depth)
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum node depth to print (0 = unlimited)")
	return cmd
}

// ---------------------------------------------------------------------------
// fmt
// ---------------------------------------------------------------------------

func fmtCmd(opts *options) *cobra.Command {
	var (
		write bool
		list  bool
	)

	cmd := &cobra.Command{
		Use:   "fmt <file...>",
		Short: "Rewrite files in canonical layout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			var errs *multierror.Error
			for _, path := range args {
				switch {
				case list:
					differs, err := app.NeedsFormat(path)
					if err != nil {
						errs = multierror.Append(errs, err)
					} else if differs {
						fmt.Fprintln(cmd.OutOrStdout(), path)
					}
				case write:
					if err := app.Format(path, nil, true); err != nil {
						errs = multierror.Append(errs, err)
					}
				default:
					if err := app.Format(path, cmd.OutOrStdout(), false); err != nil {
						errs = multierror.Append(errs, err)
					}
				}
			}
			return errs.ErrorOrNil()
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write result to the source file instead of stdout")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List files whose layout differs from canonical")
	return cmd
}

// ---------------------------------------------------------------------------
// query
// ---------------------------------------------------------------------------

func queryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <expr> [path...]",
		Short: "Select parts with a Lisp predicate",
		Long: `Evaluates a Lisp predicate once per part and prints the parts for which
it is true. An empty expression selects every part.

Available functions: ` + strings.Join(engine.Builtins(), ", ") + `

Example:
  kmlgraph query '(and (is-dock) (needs-repair))' saves/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			files, err := opts.expand(args[1:])
			if err != nil {
				return err
			}

			combined := &QueryResult{Matches: []QueryMatch{}, Errors: []engine.EvalError{}}
			var errs *multierror.Error
			for _, f := range files {
				res, err := app.Query(f, args[0])
				if err != nil {
					errs = multierror.Append(errs, err)
					continue
				}
				combined.Matches = append(combined.Matches, res.Matches...)
				combined.Errors = append(combined.Errors, res.Errors...)
				if len(res.Errors) > 0 {
					break
				}
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				if err := writeJSON(out, combined); err != nil {
					return err
				}
			} else {
				for _, m := range combined.Matches {
					fmt.Fprintf(out, "%s\t%s\t[%d] %s (uid %s)\n", m.Path, m.Vessel, m.Index, m.Name, m.UID)
				}
				for _, e := range combined.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "query error: %s\n", e.Error())
				}
			}

			if len(combined.Errors) > 0 {
				errs = multierror.Append(errs, errors.New("query failed"))
			}
			return errs.ErrorOrNil()
		},
	}
	return cmd
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

func watchCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [path...]",
		Short: "Re-check files whenever they change on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			files, err := opts.expand(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			check := func(paths []string) {
				reports, err := app.CheckAll(paths)
				if err := renderReports(out, reports, opts.jsonOut); err != nil {
					slog.Error("Failed to render report", "error", err)
				}
				if err != nil {
					slog.Error("Check failed", "error", err)
				}
			}
			check(files)

			w, err := watch.New(files, opts.cfg.Watch.Debounce, slog.Default())
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("Watching for changes", "files", len(files), "debounce", opts.cfg.Watch.Debounce)
			if err := w.Run(ctx, check); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	return cmd
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func configCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialise configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := opts.setup(cmd); err != nil {
					return err
				}
				if opts.jsonOut {
					return writeJSON(cmd.OutOrStdout(), opts.cfg)
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(opts.cfg)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create the user config file with defaults",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := opts.setup(cmd); err != nil {
					return err
				}
				path, err := config.NewLoader(slog.Default()).EnsureUserConfig()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)
	return cmd
}
