package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"explore/internal/aggregate"
	_ "explore/internal/aggregate/all"
	"explore/internal/config"
	"explore/internal/logging"
	"explore/internal/metrics"
	"explore/internal/metrics/datadog"
	"explore/internal/probe"
	"explore/internal/report"
	"explore/internal/survey"
)

// app carries what PersistentPreRunE sets up for the subcommands.
type app struct {
	stdout, stderr io.Writer

	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
	loader  *survey.Loader

	closers []func() error
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "explore",
		Short: "Explore software engineer salaries from the developer survey",
		Long: `explore reads the Stack Overflow developer survey export, keeps full-time
respondents from well-represented countries with plausible salaries, and
summarizes salary by country and years of professional experience.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./"+config.DefaultConfigFile+" when present)")
	pf.String("source", "", "survey CSV path (default: "+config.DefaultSourcePath+")")
	pf.String("comma", "", "field delimiter (default: ',')")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (console|json)")
	pf.StringP("output", "o", "", "output format (text|json)")
	pf.String("backend", "", "aggregate backend ("+strings.Join(aggregate.Kinds(), "|")+")")
	pf.String("metrics-backend", "", "metrics backend (none|datadog)")

	root.AddCommand(newReportCmd(a), newSummaryCmd(a), newProbeCmd(a), newValidateCmd(a))
	return root
}

// setup loads and validates configuration, then builds the logger, metrics
// backend, and loader. validate stops after printing the issues.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	issues := config.Validate(*cfg)
	if cmd.Name() == "validate" {
		return nil
	}
	for _, iss := range issues {
		fmt.Fprintln(a.stderr, iss)
	}
	if config.HasErrors(issues) {
		return errors.New("configuration is invalid")
	}

	log, err := logging.New(a.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	log, _ = logging.WithRun(log)
	a.log = log
	a.closers = append(a.closers, func() error {
		_ = log.Sync()
		return nil
	})

	if err := a.setupMetrics(cmd.Context()); err != nil {
		return err
	}

	a.loader = survey.NewLoader(cfg.Source.Path,
		survey.WithLogger(log),
		survey.WithComma(cfg.Source.Comma),
		survey.WithLazyQuotes(cfg.Source.LazyQuotes),
	)
	return nil
}

func (a *app) setupMetrics(ctx context.Context) error {
	m := a.cfg.Metrics
	switch m.Backend {
	case "datadog":
		var tags []string
		for _, t := range m.Tags {
			tags = append(tags, datadog.ParseTagsCSV(t)...)
		}
		b, err := datadog.NewBackend(context.WithoutCancel(ctx), datadog.Options{
			JobName:    m.JobName,
			Tags:       tags,
			FlushEvery: m.FlushEvery,
		})
		if err != nil {
			a.log.Warn("metrics: datadog backend unavailable, using nop", zap.Error(err))
			return nil
		}
		a.log.Debug("metrics: datadog enabled", zap.String("job_name", m.JobName), zap.Strings("tags", tags))
		metrics.SetBackend(b)
		a.closers = append(a.closers, func() error {
			defer metrics.SetBackend(nil)
			if err := b.Close(); err != nil {
				a.log.Warn("metrics: datadog close/flush error", zap.Error(err))
			}
			return nil
		})
	default:
		a.log.Debug("metrics: disabled", zap.String("backend", m.Backend))
	}
	return nil
}

// loadTable runs the cleaning pipeline once and logs typed failures with their
// location before handing them back.
func (a *app) loadTable(ctx context.Context) (*survey.Table, error) {
	tbl, err := a.loader.Load(ctx)
	if err == nil {
		return tbl, nil
	}

	var le *survey.LoadError
	var pe *survey.ParseError
	switch {
	case errors.As(err, &pe):
		a.log.Error("survey value could not be parsed",
			zap.Int("line", pe.Line), zap.String("field", pe.Field), zap.String("value", pe.Value))
	case errors.As(err, &le):
		a.log.Error("survey source unusable", zap.String("path", le.Path), zap.String("op", le.Op))
	}
	return nil, err
}

// noArgs is cobra.NoArgs reported as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the salary dashboard",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tbl, err := a.loadTable(ctx)
			if err != nil {
				return err
			}

			eng, err := aggregate.New(ctx, a.cfg.Aggregate.Backend, tbl)
			if err != nil {
				return err
			}
			defer eng.Close()

			d, err := report.Build(ctx, tbl, eng)
			if err != nil {
				return err
			}
			return report.Write(a.stdout, a.cfg.Output, d)
		},
	}
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print how many rows each cleaning stage dropped",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tbl, err := a.loadTable(cmd.Context())
			if err != nil {
				return err
			}
			return report.WriteSummary(a.stdout, a.cfg.Output, report.NewSummary(a.loader.Path(), tbl, a.loader.Stats()))
		},
	}
}

func newProbeCmd(a *app) *cobra.Command {
	var maxBytes int
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Sample the source and check it has the survey columns",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := probe.Probe(cmd.Context(), probe.Options{
				Path:     a.cfg.Source.Path,
				MaxBytes: maxBytes,
				Comma:    a.cfg.Source.ParserOptions().Rune("comma", ','),
			})
			if err != nil {
				return err
			}

			if a.cfg.Output == "json" {
				err = report.WriteJSON(a.stdout, res)
			} else {
				err = res.Render(a.stdout)
			}
			if err != nil {
				return err
			}
			if !res.OK() {
				return fmt.Errorf("source %s lacks required fields: %s", res.Path, strings.Join(res.MissingFields, ", "))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxBytes, "max-bytes", probe.DefaultMaxBytes, "bytes to sample from the start of the source")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := config.Validate(*a.cfg)
			for _, iss := range issues {
				fmt.Fprintln(a.stdout, iss)
			}
			if config.HasErrors(issues) {
				return errors.New("configuration is invalid")
			}
			fmt.Fprintln(a.stdout, "configuration is valid")
			return nil
		},
	}
}
