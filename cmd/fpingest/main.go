package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/fpingest/pkg/config"
	"github.com/your-org/fpingest/pkg/logger"
	"github.com/your-org/fpingest/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags ingestFlags

	root := &cobra.Command{
		Use:           "fpingest",
		Short:         "Replay an echoprint data dump against an ingest endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			flags.apply(cmd, &a.cfg.Ingest)
			return runIngest(cmd.Context(), a)
		},
	}
	flags.register(root)

	root.AddCommand(newServeCmd())
	return root
}

// app bundles what every subcommand needs after startup.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	shutdown tracing.ShutdownFunc
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(logger.Config{
		Level:      cfg.App.LogLevel,
		File:       cfg.App.LogFile,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
		MaxAgeDays: cfg.App.LogMaxAgeDays,
		Compress:   cfg.App.LogCompress,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdown, err := tracing.Init(ctx, tracingConfig(cfg))
	if err != nil {
		_ = logr.Sync()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	return &app{cfg: cfg, logger: logr, shutdown: shutdown}, nil
}

func tracingConfig(cfg *config.Config) tracing.Config {
	return tracing.Config{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Attributes:  tracing.ParseResourceAttributes(cfg.Tracing.ResourceAttr),
	}
}

func (a *app) close() {
	if err := a.shutdown(context.Background()); err != nil {
		a.logger.Warn("tracing shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
