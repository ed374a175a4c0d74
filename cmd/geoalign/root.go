package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/geoalign/internal/core/config"
	"github.com/mohammed-shakir/geoalign/internal/core/geoerr"
	"github.com/mohammed-shakir/geoalign/internal/core/health"
	"github.com/mohammed-shakir/geoalign/internal/core/server"
	"github.com/mohammed-shakir/geoalign/internal/engine"
	"github.com/mohammed-shakir/geoalign/internal/logger"
	"github.com/mohammed-shakir/geoalign/internal/metrics"
	"github.com/mohammed-shakir/geoalign/internal/quality"
)

type rootOptions struct {
	envFile  string
	logLevel string
	console  bool
	metrics  bool
	strict   bool
}

// app carries what every subcommand needs once flags and env are resolved.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	progress *health.Tracker
	stderr   io.Writer
}

type appKey struct{}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "geoalign",
		Short:         "Crosswalks between geographies and district compactness scores",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			if a.cfg.Metrics.Enabled && cmd.Name() != "serve-metrics" {
				startMetrics(cmd.Context(), a)
			}
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	pf.BoolVar(&opts.console, "log-console", false, "human-readable console logs")
	pf.BoolVar(&opts.metrics, "metrics", false, "serve /metrics, /healthz and /progress while the command runs; overrides METRICS_ENABLED")
	pf.BoolVar(&opts.strict, "strict-topology", false, "reject self-intersecting geometry")

	root.AddCommand(
		newCrosswalkCommand(),
		newCompactnessCommand(),
		newPlanCommand(),
		newServeMetricsCommand(),
	)
	return root
}

func setup(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}
	cfg := config.FromEnv()
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.console {
		cfg.LogConsole = true
	}
	if opts.strict {
		cfg.StrictTopology = true
	}
	if opts.metrics {
		cfg.Metrics.Enabled = true
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Job:       cmd.Name(),
		Component: "cli",
	}, cmd.ErrOrStderr())

	return &app{
		cfg:      cfg,
		log:      logger.NewSlog(&zl),
		progress: health.NewTracker(),
		stderr:   cmd.ErrOrStderr(),
	}, nil
}

func (a *app) engine(sink engine.ResultSink) *engine.Engine {
	return engine.New(a.log, engine.Options{
		Workers:        a.cfg.Workers,
		MemoSize:       a.cfg.MemoSize,
		Resolutions:    &engine.ResolutionRange{Min: a.cfg.H3ResMin, Max: a.cfg.H3ResMax},
		StrictTopology: a.cfg.StrictTopology,
		Thresholds: quality.Thresholds{
			Coverage: a.cfg.CoverageWarn,
			Accuracy: a.cfg.AccuracyWarn,
		},
		Sink:     sink,
		Progress: a.progress,
	})
}

func (a *app) metricsProvider() *metrics.Provider {
	return metrics.Init(metrics.Config{
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
}

// startMetrics serves the metrics router in the background for the
// lifetime of ctx.
func startMetrics(ctx context.Context, a *app) {
	h := server.Router(a.log, a.metricsProvider().Handler(), a.progress)
	go func() {
		if err := server.Run(ctx, a.cfg.Metrics.Addr, a.log, h); err != nil {
			a.log.Error("metrics server stopped", "err", err)
		}
	}()
}

// exitCode maps client mistakes to 2 and everything else to 1.
func exitCode(err error) int {
	fmt.Fprintf(os.Stderr, "geoalign: %s [%s]\n", err, geoerr.CodeOf(err))
	if geoerr.IsClientError(err) || strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}
