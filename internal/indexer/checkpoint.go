package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"lendingScope/internal/model"
	"lendingScope/internal/storage/postgres"
	"lendingScope/internal/store"
)

// StateStore persists the entity snapshot together with the last committed
// block. Commit must be all-or-nothing: a resumed run restores exactly the
// entities that were current at the block it resumes from.
type StateStore interface {
	store.Source
	Load(ctx context.Context) (uint64, bool, error)
	Commit(ctx context.Context, rows []store.Row, block uint64) error
}

// Checkpoint is the on-disk form of the file state store.
type Checkpoint struct {
	LastProcessedBlock uint64          `json:"last_processed_block"`
	UpdatedAt          string          `json:"updated_at"`
	Entities           []CheckpointRow `json:"entities,omitempty"`
}

// CheckpointRow is one entity snapshot inside a Checkpoint.
type CheckpointRow struct {
	Kind string          `json:"kind"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// FileStateStore keeps the checkpoint and the entity snapshot in one local
// JSON file, replaced atomically on every commit. An empty path disables it.
type FileStateStore struct {
	Path string
}

func (c *FileStateStore) Load(_ context.Context) (uint64, bool, error) {
	cp, ok, err := c.read()
	if err != nil || !ok {
		return 0, false, err
	}
	return cp.LastProcessedBlock, true, nil
}

func (c *FileStateStore) LoadEntities(_ context.Context, fn func(store.Row) error) error {
	cp, ok, err := c.read()
	if err != nil || !ok {
		return err
	}
	for _, row := range cp.Entities {
		if err := fn(store.Row{Kind: model.Kind(row.Kind), ID: row.ID, Data: row.Data}); err != nil {
			return err
		}
	}
	return nil
}

// Commit merges rows into the stored snapshot and advances the block.
func (c *FileStateStore) Commit(_ context.Context, rows []store.Row, block uint64) error {
	if c == nil || c.Path == "" {
		return nil
	}

	cp, _, err := c.read()
	if err != nil {
		return err
	}
	merged := make(map[[2]string]CheckpointRow, len(cp.Entities)+len(rows))
	for _, row := range cp.Entities {
		merged[[2]string{row.Kind, row.ID}] = row
	}
	for _, row := range rows {
		merged[[2]string{string(row.Kind), row.ID}] = CheckpointRow{Kind: string(row.Kind), ID: row.ID, Data: row.Data}
	}
	entities := make([]CheckpointRow, 0, len(merged))
	for _, row := range merged {
		entities = append(entities, row)
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Kind != entities[j].Kind {
			return entities[i].Kind < entities[j].Kind
		}
		return entities[i].ID < entities[j].ID
	})

	dir := filepath.Dir(c.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(Checkpoint{
		LastProcessedBlock: block,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
		Entities:           entities,
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.Path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.Path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

func (c *FileStateStore) read() (Checkpoint, bool, error) {
	if c == nil || c.Path == "" {
		return Checkpoint{}, false, nil
	}

	stat, err := os.Stat(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, true, nil
}

// DBStateStore keeps the checkpoint in the indexer_state table and commits
// it in the same transaction as the entity snapshots it describes.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	return s.Store.LoadState(ctx, s.Name)
}

func (s *DBStateStore) LoadEntities(ctx context.Context, fn func(store.Row) error) error {
	return s.Store.LoadEntities(ctx, fn)
}

func (s *DBStateStore) Commit(ctx context.Context, rows []store.Row, block uint64) error {
	return s.Store.Commit(ctx, rows, s.Name, block)
}
