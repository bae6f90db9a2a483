package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lendingScope/internal/chain"
	"lendingScope/internal/config"
	"lendingScope/internal/contracts"
	"lendingScope/internal/handler"
	"lendingScope/internal/indexer"
	"lendingScope/internal/metrics"
	"lendingScope/internal/model"
	"lendingScope/internal/pricing"
	"lendingScope/internal/storage/postgres"
	"lendingScope/internal/store"
	"lendingScope/internal/watch"
)

type engineIDs struct {
	factory   string
	reference string
	anchor    string
}

func parseEngineIDs(cfg config.Config) (engineIDs, error) {
	var ids engineIDs
	var err error
	if ids.factory, err = indexer.ParseEntityID("factory", cfg.Factory); err != nil {
		return ids, err
	}
	if ids.reference, err = indexer.ParseEntityID("reference token", cfg.ReferenceToken); err != nil {
		return ids, err
	}
	if ids.anchor, err = indexer.ParseEntityID("anchor token", cfg.AnchorToken); err != nil {
		return ids, err
	}
	return ids, nil
}

// app is everything a command needs to run the engine.
type app struct {
	chain   *chain.Client
	db      *postgres.Store
	metrics *metrics.Metrics
	engine  *indexer.Engine
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.chain != nil {
		a.chain.Close()
	}
}

// newApp connects to RPC and Postgres, picks the state store the engine
// resumes from and seeds the watch list with the factory.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	ids, err := parseEngineIDs(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{metrics: metrics.New()}
	a.chain, err = chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	var state indexer.StateStore
	if cfg.PGDSN != "" {
		a.db, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := a.db.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		state = &indexer.DBStateStore{Store: a.db, Name: cfg.StateName}
	} else if cfg.CheckpointEnabled {
		state = &indexer.FileStateStore{Path: cfg.Checkpoint}
	}

	st := store.New()
	registry := watch.New(st, logger.Named("watch"))
	registry.Register(ids.factory, model.RoleFactory, cfg.FromBlock)

	reader := contracts.NewReader(a.chain,
		contracts.WithPinnedBlock(cfg.PinBlock),
		contracts.WithRevertHook(a.metrics.ObserveRevert),
	)
	prices := pricing.NewEngine(ids.reference, ids.anchor, logger.Named("pricing"))
	processor := handler.New(handler.Config{
		ProtocolID:       ids.factory,
		PairSyncMinBlock: cfg.PairSyncMinBlock,
	}, st, handler.ReaderSource(reader), registry, prices, logger.Named("handler"))

	decoder, err := contracts.NewDecoder()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine, err = indexer.NewEngine(indexer.EngineDeps{
		Decoder:  decoder,
		Watch:    registry,
		Dispatch: processor,
		Store:    st,
		State:    state,
		Observer: a.metrics,
	}, logger.Named("engine"))
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
