package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/bayesrate/internal/adapters/report"
	"github.com/okian/bayesrate/internal/adapters/repository"
	"github.com/okian/bayesrate/internal/app"
	"github.com/okian/bayesrate/internal/config"
	"github.com/okian/bayesrate/pkg/logger"
	"github.com/okian/bayesrate/pkg/metrics"
)

const defaultHistoryLimit = 20

func main() {
	if err := logger.Init(); err != nil {
		// Logger isn't available yet.
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newCommand(os.Stdout).Run(ctx, os.Args)
	stop()
	_ = logger.Sync()
	if err != nil {
		logger.Get().Error(context.Background(), "bayesrate failed", logger.Error(err))
		os.Exit(1)
	}
}

// cliApp carries state between the root Before hook and subcommands.
type cliApp struct {
	cfg *config.Config
	out io.Writer
}

func newCommand(out io.Writer) *cli.Command {
	a := &cliApp{out: out}
	return &cli.Command{
		Name:   "bayesrate",
		Usage:  "Hierarchical Bayesian estimates of professor ratings",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				Sources: cli.EnvVars(config.ConfigPathEnv),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Overrides log_level [debug, info, warn, error]",
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run model variants and write plots and summaries",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "variant",
						Aliases: []string{"v"},
						Usage:   "Variant to run; repeatable (default: every configured variant)",
					},
				},
				Action: a.run,
			},
			{
				Name:   "variants",
				Usage:  "List configured variants",
				Action: a.variants,
			},
			{
				Name:  "history",
				Usage: "List archived runs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "variant", Usage: "Only runs of this variant"},
					&cli.IntFlag{Name: "limit", Value: defaultHistoryLimit, Usage: "Maximum runs to list"},
				},
				Action: a.history,
			},
		},
	}
}

func (a *cliApp) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.LoadFile(ctx, cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	// Fall back to info on invalid input.
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	a.cfg = cfg
	return ctx, nil
}

func (a *cliApp) run(ctx context.Context, cmd *cli.Command) error {
	names := cmd.StringSlice("variant")
	if len(names) == 0 {
		names = a.cfg.VariantNames()
	}

	opts := []app.Option{
		app.WithLogger(logger.Get().Named("pipeline")),
		app.WithReporter(report.New(
			report.WithOutput(a.out),
			report.WithDir(a.cfg.ReportDir),
			report.WithFormat(a.cfg.ReportFormat),
			report.WithRHatWarn(a.cfg.RHatWarn),
		)),
	}
	if a.cfg.ArchivePath != "" {
		store, err := repository.Open(ctx, a.cfg.ArchivePath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, app.WithStore(store))
	}

	started := time.Now()
	_, err := app.New(a.cfg, opts...).RunAll(ctx, names)
	logger.Get().Info(ctx, "run finished",
		logger.Strings("variants", names),
		logger.Duration("elapsed", time.Since(started)),
		logger.Bool("ok", err == nil),
	)

	if a.cfg.MetricsFile != "" {
		updateSystemMetrics()
		if werr := metrics.WriteTextfile(a.cfg.MetricsFile); werr != nil {
			logger.Get().Warn(ctx, "metrics textfile not written", logger.String("path", a.cfg.MetricsFile), logger.Error(werr))
		}
	}
	return err
}

func (a *cliApp) variants(_ context.Context, _ *cli.Command) error {
	for _, v := range a.cfg.Variants {
		if _, err := fmt.Fprintf(a.out, "%s\t%s\tchains=%d adapt=%d iterations=%d\n",
			v.Name, v.Topology, v.Chains, v.Adapt, v.Iterations); err != nil {
			return err
		}
	}
	return nil
}

func (a *cliApp) history(ctx context.Context, cmd *cli.Command) error {
	if a.cfg.ArchivePath == "" {
		return errors.New("archive_path is not configured")
	}
	store, err := repository.Open(ctx, a.cfg.ArchivePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(ctx, cmd.String("variant"), cmd.Int("limit"))
	if err != nil {
		return err
	}
	for _, r := range runs {
		if _, err := fmt.Fprintf(a.out, "%s\t%s\t%s\t%d records\t%s\t%s\n",
			r.StartedAt.Format(time.RFC3339), r.ID, r.Variant, r.Records, r.Duration.Round(time.Millisecond), r.Image); err != nil {
			return err
		}
	}
	return nil
}

// updateSystemMetrics refreshes process gauges before the textfile is written.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
