package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lendingScope/internal/config"
	"lendingScope/internal/indexer"
	"lendingScope/internal/storage"
)

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var archive storage.Storage
	if cfg.Archive != "" {
		archive = storage.NewJsonlStorage(cfg.Archive)
	}
	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, a.chain, a.engine, archive, logger.Named("runner"))

	logger.Info("sync start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("factory", cfg.Factory),
		zap.Bool("pin_block", cfg.PinBlock),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.String("archive", cfg.Archive),
	)

	return runWithMetrics(ctx, a, cfg.MetricsAddr, logger, runner.Run)
}

// runWithMetrics runs fn next to the metrics server, if one is configured.
// The server stops once fn returns.
func runWithMetrics(ctx context.Context, a *app, addr string, logger *zap.Logger, fn func(context.Context) error) error {
	if addr == "" {
		return fn(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(gctx)
	g.Go(func() error {
		return a.metrics.Serve(serveCtx, addr, logger.Named("metrics"))
	})
	g.Go(func() error {
		defer stopServe()
		return fn(gctx)
	})
	return g.Wait()
}
