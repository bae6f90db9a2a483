package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lendingScope/internal/config"
	"lendingScope/internal/indexer"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.In == "" {
		return fmt.Errorf("input path is required")
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

	logger.Info("replay start",
		zap.String("in", cfg.In),
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
	)

	return runWithMetrics(ctx, a, cfg.MetricsAddr, logger, func(ctx context.Context) error {
		return indexer.Replay(ctx, indexer.ReplayConfig{
			Input:     cfg.In,
			FromBlock: cfg.FromBlock,
			ToBlock:   cfg.ToBlock,
			BatchSize: cfg.BatchSize,
		}, a.engine, logger.Named("replay"))
	})
}
