package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lendingScope/internal/model"
	"lendingScope/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	kind       TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
);
CREATE TABLE IF NOT EXISTS indexer_state (
	name                 TEXT        PRIMARY KEY,
	last_processed_block BIGINT      NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store persists entity snapshots and indexer progress in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Source = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const upsertEntitySQL = `
	INSERT INTO entities (kind, id, data, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (kind, id)
	DO UPDATE SET
		data = EXCLUDED.data,
		updated_at = now()
`

const upsertStateSQL = `
	INSERT INTO indexer_state (name, last_processed_block, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (name) DO UPDATE
	SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
`

// Commit writes entity rows and records block as the last processed block
// for name in a single transaction. Either every row and the new block are
// visible afterwards or nothing changed.
func (s *Store) Commit(ctx context.Context, rows []store.Row, name string, block uint64) (err error) {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	if block > math.MaxInt64 {
		return fmt.Errorf("block %d out of range", block)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(upsertEntitySQL, string(row.Kind), row.ID, row.Data)
	}
	batch.Queue(upsertStateSQL, name, int64(block))

	br := tx.SendBatch(ctx, batch)
	for _, row := range rows {
		if _, err = br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert %s %s: %w", row.Kind, row.ID, err)
		}
	}
	if _, err = br.Exec(); err != nil {
		_ = br.Close()
		return fmt.Errorf("save state %s: %w", name, err)
	}
	if err = br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit block %d: %w", block, err)
	}
	return nil
}

// LoadEntities streams every stored snapshot to fn.
func (s *Store) LoadEntities(ctx context.Context, fn func(store.Row) error) error {
	rows, err := s.pool.Query(ctx, `SELECT kind, id, data FROM entities ORDER BY kind, id`)
	if err != nil {
		return fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind string
			row  store.Row
		)
		if err := rows.Scan(&kind, &row.ID, &row.Data); err != nil {
			return fmt.Errorf("scan entity: %w", err)
		}
		row.Kind = model.Kind(kind)
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadState returns the last processed block recorded under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}
