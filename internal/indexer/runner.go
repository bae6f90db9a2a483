package indexer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"lendingScope/internal/model"
	"lendingScope/internal/storage"
)

// LogSource is the chain access the live runner needs.
type LogSource interface {
	ChainID(ctx context.Context) (uint64, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// RunConfig holds runtime settings for the live runner.
type RunConfig struct {
	FromBlock    uint64
	ToBlock      uint64
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner walks block ranges over RPC and feeds every watched log to the
// engine in (block, log index) order.
type Runner struct {
	cfg     RunConfig
	source  LogSource
	engine  *Engine
	archive storage.Storage
	logger  *zap.Logger
}

// NewRunner builds a Runner. archive may be nil.
func NewRunner(cfg RunConfig, source LogSource, engine *Engine, archive storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		source:  source,
		engine:  engine,
		archive: archive,
		logger:  logger,
	}
}

// Run processes [FromBlock, ToBlock], resuming after the last committed
// block. A ToBlock of zero means the current head.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("log source is nil")
	}
	if r.engine == nil {
		return fmt.Errorf("engine is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	chainID, err := r.source.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.source.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	last, ok, err := r.engine.Resume(ctx)
	if err != nil {
		return err
	}
	if ok && last >= from {
		from = last + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
	}
	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		records, err := r.syncRange(ctx, chainID, blockRange)
		if err != nil {
			return fmt.Errorf("range %d-%d: %w", blockRange.From, blockRange.To, err)
		}
		if r.archive != nil {
			if err := r.archive.PutLogBatch(records); err != nil {
				return fmt.Errorf("archive logs: %w", err)
			}
		}
		if err := r.engine.Commit(ctx, blockRange.To); err != nil {
			return err
		}

		r.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}
	return nil
}

// syncRange applies every log of the range. When a handler registers a new
// contract the range is fetched again with the grown address set, and
// processing continues after the last applied log.
func (r *Runner) syncRange(ctx context.Context, chainID uint64, blockRange BlockRange) ([]model.LogRecord, error) {
	watch := r.engine.deps.Watch
	var (
		records []model.LogRecord
		cursor  *model.LogPosition
	)
	for {
		version := watch.Version()
		addresses, err := ParseAddresses(watch.Addresses())
		if err != nil {
			return nil, err
		}
		if len(addresses) == 0 {
			return records, nil
		}

		r.logger.Info("fetch logs",
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
			zap.Int("addresses", len(addresses)),
		)
		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To, addresses)
		if err != nil {
			return nil, fmt.Errorf("filter logs: %w", err)
		}
		sortLogs(logs)

		ingestedAt := time.Now().UTC()
		grown := false
		for _, log := range logs {
			pos := positionOf(log)
			if cursor != nil && !cursor.Before(pos) {
				continue
			}
			if log.Removed || !blockRange.Contains(log.BlockNumber) {
				continue
			}

			ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return nil, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			record := buildLogRecord(chainID, log, ts, ingestedAt)
			if err := r.engine.Apply(ctx, record); err != nil {
				return nil, err
			}
			records = append(records, record)
			cursor = &pos

			if watch.Version() != version {
				grown = true
				break
			}
		}
		if !grown {
			return records, nil
		}
		r.logger.Info("watch list grew, refetching range",
			zap.Uint64("block", cursor.Block),
			zap.Uint64("log_index", cursor.Index),
		)
	}
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, fromBlock, toBlock, addresses, r.engine.Topics())
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.source.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func positionOf(log types.Log) model.LogPosition {
	return model.LogPosition{Block: log.BlockNumber, Index: uint64(log.Index)}
}

func sortLogs(logs []types.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		return positionOf(logs[i]).Before(positionOf(logs[j]))
	})
}
