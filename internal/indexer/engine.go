package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lendingScope/internal/contracts"
	"lendingScope/internal/model"
	"lendingScope/internal/store"
)

// Dispatcher applies decoded events to the entity store.
type Dispatcher interface {
	Handles(role model.Role, name string) bool
	Handle(ctx context.Context, ev model.Event) error
}

// Watchlist is the set of contracts whose logs are ingested. Version grows
// whenever a binding is added.
type Watchlist interface {
	Roles(address string) []model.Role
	Addresses() []string
	Version() uint64
}

// Observer receives progress signals.
type Observer interface {
	ObserveEvent(role model.Role, name string, took time.Duration)
	ObserveCommit(block uint64, counts map[model.Kind]int)
}

// EngineDeps wires an Engine. State and Observer are optional; without a
// State nothing survives the process.
type EngineDeps struct {
	Decoder  *contracts.Decoder
	Watch    Watchlist
	Dispatch Dispatcher
	Store    *store.Store
	State    StateStore
	Observer Observer
}

// Engine turns raw log records into entity updates, one record at a time,
// and commits the store together with the checkpoint.
type Engine struct {
	deps   EngineDeps
	topics []common.Hash
	logger *zap.Logger
}

func NewEngine(deps EngineDeps, logger *zap.Logger) (*Engine, error) {
	if deps.Decoder == nil {
		return nil, fmt.Errorf("decoder is nil")
	}
	if deps.Watch == nil {
		return nil, fmt.Errorf("watch list is nil")
	}
	if deps.Dispatch == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[common.Hash]struct{})
	var topics []common.Hash
	for _, role := range model.AllRoles() {
		for _, topic := range deps.Decoder.Topics(role) {
			if _, ok := seen[topic]; ok {
				continue
			}
			seen[topic] = struct{}{}
			topics = append(topics, topic)
		}
	}
	return &Engine{deps: deps, topics: topics, logger: logger}, nil
}

// Topics returns every topic0 the engine can decode.
func (e *Engine) Topics() []common.Hash {
	return e.topics
}

// Apply decodes rec under every role its address is watched as and
// dispatches the resulting events. Unknown topics and unwatched addresses
// are skipped; a decode or handler failure is returned.
func (e *Engine) Apply(ctx context.Context, rec model.LogRecord) error {
	if rec.Removed {
		return nil
	}
	address := strings.ToLower(rec.Address)
	for _, role := range e.deps.Watch.Roles(address) {
		ev, ok, err := e.deps.Decoder.Decode(rec, role)
		if err != nil {
			return fmt.Errorf("decode log %d/%d: %w", rec.BlockNumber, rec.LogIndex, err)
		}
		if !ok || !e.deps.Dispatch.Handles(role, ev.Name) {
			continue
		}

		start := time.Now()
		if err := e.deps.Dispatch.Handle(ctx, ev); err != nil {
			return err
		}
		if e.deps.Observer != nil {
			e.deps.Observer.ObserveEvent(role, ev.Name, time.Since(start))
		}
	}
	return nil
}

// Resume returns the last committed block and restores the entity snapshot
// that was committed with it.
func (e *Engine) Resume(ctx context.Context) (uint64, bool, error) {
	if e.deps.State == nil {
		return 0, false, nil
	}
	block, ok, err := e.deps.State.Load(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	restored, err := e.deps.Store.Restore(ctx, e.deps.State)
	if err != nil {
		return 0, false, fmt.Errorf("restore entities: %w", err)
	}
	e.logger.Info("resumed",
		zap.Uint64("block", block),
		zap.Int("entities_restored", restored),
	)
	return block, true, nil
}

// Commit writes dirty entities and records block as processed in one
// state store commit. On failure the entities stay dirty and the checkpoint
// does not move.
func (e *Engine) Commit(ctx context.Context, block uint64) error {
	var write store.CommitFunc
	if e.deps.State != nil {
		write = func(ctx context.Context, rows []store.Row) error {
			return e.deps.State.Commit(ctx, rows, block)
		}
	}
	n, err := e.deps.Store.Commit(ctx, write)
	if err != nil {
		return fmt.Errorf("commit block %d: %w", block, err)
	}
	counts := e.deps.Store.Counts()
	if e.deps.Observer != nil {
		e.deps.Observer.ObserveCommit(block, counts)
	}
	e.logger.Info("committed",
		zap.Uint64("block", block),
		zap.Int("entities_written", n),
		zap.Int("watched", counts[model.KindWatchedContract]),
	)
	return nil
}
