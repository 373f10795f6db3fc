package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/middleware"
	"github.com/Antonio-Ardigo/Remote-Project/internal/application"
	"github.com/Antonio-Ardigo/Remote-Project/internal/observability"
	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
	"github.com/Antonio-Ardigo/Remote-Project/internal/report"
)

// Version is set with -ldflags at build time.
var Version = "dev"

// app holds the flags and the resources shared by every subcommand.
type app struct {
	cfgFile    string
	outputFmt  string
	outputPath string
	timeout    time.Duration

	cfg     application.Config
	logger  zerolog.Logger
	metrics ports.MetricsCollector

	cleanup []func(context.Context) error
}

// overrides maps config keys to the flags that override them.
var overrides = map[string]string{
	"policy":      "policy",
	"force_multi": "force-multi",
	"mode":        "mode",
	"log.level":   "log-level",
}

// execute runs the command line and releases every resource, whether or not
// the command succeeded.
func execute(ctx context.Context, args []string) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.shutdown(ctx))
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "transensemble",
		Short: "Ensemble Arabic to English translation with quality-based selection",
		Long: `transensemble sends text to several translation methods, scores every
candidate with heuristics, cross-method agreement and an optional LLM judge,
and selects the best translation.

A confident primary translation is accepted without running the ensemble;
the threshold policy decides how confident it must be.

Configuration is read from transensemble.yaml in the working directory or
$HOME/.config/transensemble, and from TRANSENSEMBLE_* environment variables.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./transensemble.yaml)")
	flags.StringVarP(&a.outputFmt, "format", "f", "table", "output format: table, json, yaml")
	flags.StringVarP(&a.outputPath, "output", "o", "", "write the result to a file instead of stdout")
	flags.DurationVar(&a.timeout, "timeout", 0, "abort the command after this long (0 disables)")
	flags.String("policy", "", "threshold policy: strict, moderate, relaxed, always")
	flags.Bool("force-multi", false, "run every method even when the primary is confident")
	flags.String("mode", "", "invocation mode: parallel or escalate")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newTranslateCmd(a), newEvaluateCmd(a), newMethodsCmd(a))
	return root
}

// setup loads the configuration and starts logging, tracing and metrics.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	v := application.NewViper(a.cfgFile)
	for key, name := range overrides {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}
	cfg, err := application.LoadConfigFrom(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	closer, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.cleanup = append(a.cleanup, func(context.Context) error { return closer.Close() })
	a.logger = observability.WithComponent("cli")

	shutdownTracing, err := observability.SetupTracing(cmd.Context(), cfg.Tracing)
	if err != nil {
		return err
	}
	a.cleanup = append(a.cleanup, shutdownTracing)

	if cfg.Metrics.Enabled {
		a.metrics = middleware.NewPrometheusMetrics(nil)
		a.serveMetrics(cfg.Metrics.Address)
	}

	if a.timeout > 0 {
		ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
		cmd.SetContext(ctx)
		a.cleanup = append(a.cleanup, func(context.Context) error { cancel(); return nil })
	}
	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info().Str("address", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	a.cleanup = append(a.cleanup, srv.Shutdown)
}

// shutdown releases resources in reverse order of acquisition.
func (a *app) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		errs = append(errs, a.cleanup[i](ctx))
	}
	a.cleanup = nil
	return errors.Join(errs...)
}

// runtime assembles the engine from the loaded configuration.
func (a *app) runtime(ctx context.Context) (*application.Runtime, error) {
	rt, err := application.Bootstrap(ctx, a.cfg, a.metrics, log.Logger)
	if err != nil {
		return nil, err
	}
	for m, reason := range rt.Unavailable {
		a.logger.Debug().Str("method", m.String()).Err(reason).Msg("method unavailable")
	}
	return rt, nil
}

// renderer opens the output destination. The returned closer must be
// called once rendering is done.
func (a *app) renderer(stdout io.Writer) (*report.Renderer, io.Closer, error) {
	format, err := report.ParseFormat(a.outputFmt)
	if err != nil {
		return nil, nil, err
	}
	if a.outputPath == "" {
		return report.NewRenderer(format, stdout), nopCloser{}, nil
	}
	f, err := os.Create(a.outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return report.NewRenderer(format, f), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
