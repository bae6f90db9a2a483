// Package store is the entity cache every handler reads and writes through.
//
// Processing is single-writer: one event is fully applied before the next
// starts, so a Save is visible to every later Load of the same event and of
// all following events. Dirty entities are committed at range boundaries in
// the same write as the checkpoint.
package store

import (
	"context"
	"fmt"

	"lendingScope/internal/model"
)

// Row is the serialized form of one entity.
type Row struct {
	Kind model.Kind
	ID   string
	Data []byte
}

// CommitFunc durably writes rows. It must either persist all of them or
// none.
type CommitFunc func(ctx context.Context, rows []Row) error

// Source replays persisted rows into a fresh store.
type Source interface {
	LoadEntities(ctx context.Context, fn func(Row) error) error
}

type table interface {
	Kind() model.Kind
	Len() int
	dirtyRows() ([]Row, error)
	clearDirty()
	restore(data []byte) error
}

// Store owns one table per entity kind.
type Store struct {
	Tokens              *Table[model.Token]
	Pairs               *Table[model.Pair]
	LendingPools        *Table[model.LendingPool]
	Collaterals         *Table[model.Collateral]
	Borrowables         *Table[model.Borrowable]
	SupplyPositions     *Table[model.SupplyPosition]
	BorrowPositions     *Table[model.BorrowPosition]
	CollateralPositions *Table[model.CollateralPosition]
	Users               *Table[model.User]
	RewardPools         *Table[model.RewardPool]
	Distributors        *Table[model.Distributor]
	Protocols           *Table[model.Protocol]
	Watched             *Table[model.WatchedContract]

	tables map[model.Kind]table
}

// New returns an empty store.
func New() *Store {
	s := &Store{
		Tokens:              newTable[model.Token](model.KindToken),
		Pairs:               newTable[model.Pair](model.KindPair),
		LendingPools:        newTable[model.LendingPool](model.KindLendingPool),
		Collaterals:         newTable[model.Collateral](model.KindCollateral),
		Borrowables:         newTable[model.Borrowable](model.KindBorrowable),
		SupplyPositions:     newTable[model.SupplyPosition](model.KindSupplyPosition),
		BorrowPositions:     newTable[model.BorrowPosition](model.KindBorrowPosition),
		CollateralPositions: newTable[model.CollateralPosition](model.KindCollateralPosition),
		Users:               newTable[model.User](model.KindUser),
		RewardPools:         newTable[model.RewardPool](model.KindRewardPool),
		Distributors:        newTable[model.Distributor](model.KindDistributor),
		Protocols:           newTable[model.Protocol](model.KindProtocol),
		Watched:             newTable[model.WatchedContract](model.KindWatchedContract),
	}
	s.tables = make(map[model.Kind]table)
	for _, t := range []table{
		s.Tokens, s.Pairs, s.LendingPools, s.Collaterals, s.Borrowables,
		s.SupplyPositions, s.BorrowPositions, s.CollateralPositions,
		s.Users, s.RewardPools, s.Distributors, s.Protocols, s.Watched,
	} {
		s.tables[t.Kind()] = t
	}
	return s
}

// Counts returns the number of entities per kind.
func (s *Store) Counts() map[model.Kind]int {
	out := make(map[model.Kind]int, len(s.tables))
	for kind, t := range s.tables {
		out[kind] = t.Len()
	}
	return out
}

// DirtyRows returns every entity saved since the last flush.
func (s *Store) DirtyRows() ([]Row, error) {
	var rows []Row
	for _, t := range s.tables {
		tableRows, err := t.dirtyRows()
		if err != nil {
			return nil, err
		}
		rows = append(rows, tableRows...)
	}
	return rows, nil
}

// Commit passes every dirty entity to write, possibly none, and clears the
// dirty set only when write succeeds. After a failed write the same rows are
// offered again on the next Commit.
func (s *Store) Commit(ctx context.Context, write CommitFunc) (int, error) {
	rows, err := s.DirtyRows()
	if err != nil {
		return 0, err
	}
	if write != nil {
		if err := write(ctx, rows); err != nil {
			return 0, err
		}
	}
	for _, t := range s.tables {
		t.clearDirty()
	}
	return len(rows), nil
}

// Restore loads every row from src. Restored rows are not dirty.
func (s *Store) Restore(ctx context.Context, src Source) (int, error) {
	var n int
	err := src.LoadEntities(ctx, func(row Row) error {
		t, ok := s.tables[row.Kind]
		if !ok {
			return fmt.Errorf("unknown entity kind %q", row.Kind)
		}
		if err := t.restore(row.Data); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}
