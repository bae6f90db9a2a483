package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"lendingScope/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Lending protocol valuation indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Index lending pools from RPC logs",
		RunE:  runSync,
	}
	addEngineFlags(syncCmd.Flags())
	syncCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	syncCmd.Flags().Int("max-retries", 5, "maximum retry attempts for log and header fetches")
	syncCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	syncCmd.Flags().String("archive", "", "optional JSONL path to archive fetched logs")
	root.AddCommand(syncCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild entities from a log archive",
		RunE:  runReplay,
	}
	addEngineFlags(replayCmd.Flags())
	replayCmd.Flags().Uint64("to", 0, "last block to replay (inclusive), 0 means end of archive")
	replayCmd.Flags().String("in", "", "input log archive JSONL")
	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "RPC URL used for contract reads")
	flags.Uint64("from", 0, "start block (inclusive)")
	flags.Uint64("batch-size", 2000, "blocks per commit")
	flags.String("checkpoint", "./data/checkpoint.json", "checkpoint file holding the block cursor and entity snapshot, used without --pg-dsn")
	flags.Bool("checkpoint-enabled", true, "enable checkpointing")
	flags.String("pg-dsn", "", "Postgres DSN for entity snapshots and checkpoint")
	flags.String("state-name", "lending", "checkpoint name in indexer_state")
	flags.String("factory", "", "lending factory address")
	flags.String("reference-token", "", "reference asset address (wrapped native token)")
	flags.String("anchor-token", "", "USD stablecoin address")
	flags.Uint64("pair-sync-min-block", 0, "ignore pair syncs below this block")
	flags.Bool("pin-block", true, "read contract state at the event block")
	flags.String("metrics-addr", "", "listen address for /metrics and /healthz, empty disables")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "optional log file, rotated")
	flags.Int("log-max-size-mb", 100, "log file size before rotation")
	flags.Int("log-max-backups", 5, "rotated log files to keep")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevel()
	if err := zcfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, err
	}

	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	if cfg.LogFile == "" {
		return logger, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   true,
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zcfg.EncoderConfig), zapcore.AddSync(rotator), zcfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
