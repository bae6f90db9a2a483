package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lendingScope/internal/model"
	"lendingScope/internal/storage"
)

// ReplayConfig holds settings for an offline replay of a log archive.
type ReplayConfig struct {
	Input     string
	FromBlock uint64
	// ToBlock of zero replays to the end of the archive.
	ToBlock   uint64
	BatchSize uint64
}

// Replay runs the engine over an archive written by the live runner. Records
// must be in (block, log index) order. The store is committed every
// BatchSize blocks and at the end of the input.
func Replay(ctx context.Context, cfg ReplayConfig, engine *Engine, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		return fmt.Errorf("engine is nil")
	}
	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	from := cfg.FromBlock
	last, ok, err := engine.Resume(ctx)
	if err != nil {
		return err
	}
	if ok && last >= from {
		from = last + 1
		logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
	}

	var (
		cursor      *model.LogPosition
		windowStart uint64
		applied     int
		pending     bool
	)
	err = storage.ReadLogs(ctx, cfg.Input, func(rec model.LogRecord) error {
		if rec.BlockNumber < from || (cfg.ToBlock != 0 && rec.BlockNumber > cfg.ToBlock) {
			return nil
		}
		pos := rec.Position()
		if cursor != nil {
			if !cursor.Before(pos) {
				return fmt.Errorf("archive out of order at %d/%d", rec.BlockNumber, rec.LogIndex)
			}
			if pos.Block != cursor.Block && pos.Block-windowStart >= cfg.BatchSize {
				if err := engine.Commit(ctx, cursor.Block); err != nil {
					return err
				}
				pending = false
				windowStart = pos.Block
			}
		} else {
			windowStart = pos.Block
		}

		if err := engine.Apply(ctx, rec); err != nil {
			return err
		}
		cursor = &pos
		applied++
		pending = true
		return nil
	})
	if err != nil {
		return err
	}

	if pending {
		if err := engine.Commit(ctx, cursor.Block); err != nil {
			return err
		}
	}
	logger.Info("replay complete", zap.Int("logs", applied), zap.String("in", cfg.Input))
	return nil
}
