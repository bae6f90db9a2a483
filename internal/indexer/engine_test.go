package indexer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lendingScope/internal/contracts"
	"lendingScope/internal/model"
	"lendingScope/internal/storage"
	"lendingScope/internal/store"
	"lendingScope/internal/watch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	factoryAddr    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	pairAddr       = common.HexToAddress("0x1000000000000000000000000000000000000002")
	collateralAddr = common.HexToAddress("0x1000000000000000000000000000000000000003")
	borrowableAddr = common.HexToAddress("0x1000000000000000000000000000000000000004")
	otherAddr      = common.HexToAddress("0x1000000000000000000000000000000000000005")
)

type fakeLogSource struct {
	logs    []types.Log
	filters int
}

func (f *fakeLogSource) ChainID(context.Context) (uint64, error)           { return 250, nil }
func (f *fakeLogSource) LatestBlockNumber(context.Context) (uint64, error) { return 200, nil }

func (f *fakeLogSource) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1_700_000_000 + number, nil
}

func (f *fakeLogSource) FilterLogs(_ context.Context, from, to uint64, addresses []common.Address, _ []common.Hash) ([]types.Log, error) {
	f.filters++
	watched := make(map[common.Address]bool, len(addresses))
	for _, a := range addresses {
		watched[a] = true
	}
	var out []types.Log
	// newest first, the runner must sort
	for i := len(f.logs) - 1; i >= 0; i-- {
		log := f.logs[i]
		if log.BlockNumber >= from && log.BlockNumber <= to && watched[log.Address] {
			out = append(out, log)
		}
	}
	return out, nil
}

type handled struct {
	role  model.Role
	name  string
	block uint64
	index uint64
}

// poolDispatcher registers the borrowable of every initialized pool, the way
// the real processor does.
type poolDispatcher struct {
	registry *watch.Registry
	events   []handled
}

func (d *poolDispatcher) Handles(model.Role, string) bool { return true }

func (d *poolDispatcher) Handle(_ context.Context, ev model.Event) error {
	d.events = append(d.events, handled{ev.Role, ev.Name, ev.BlockNumber, ev.LogIndex})
	if data, ok := ev.Payload.(model.LendingPoolInitializedData); ok {
		d.registry.Register(data.Borrowable0, model.RoleBorrowable, ev.BlockNumber)
	}
	return nil
}

// memoryState commits rows and the block together, or neither when fail is
// set.
type memoryState struct {
	block uint64
	ok    bool
	saves []uint64
	rows  map[string]store.Row
	fail  error
}

func (m *memoryState) Load(context.Context) (uint64, bool, error) { return m.block, m.ok, nil }

func (m *memoryState) LoadEntities(_ context.Context, fn func(store.Row) error) error {
	for _, row := range m.rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryState) Commit(_ context.Context, rows []store.Row, block uint64) error {
	if m.fail != nil {
		return m.fail
	}
	if m.rows == nil {
		m.rows = make(map[string]store.Row)
	}
	for _, row := range rows {
		m.rows[string(row.Kind)+"/"+row.ID] = row
	}
	m.block, m.ok = block, true
	m.saves = append(m.saves, block)
	return nil
}

type memoryArchive struct {
	mu      sync.Mutex
	records []model.LogRecord
}

func (a *memoryArchive) PutLogBatch(logs []model.LogRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, logs...)
	return nil
}

type countingObserver struct {
	events  int
	commits []uint64
}

func (o *countingObserver) ObserveEvent(model.Role, string, time.Duration) { o.events++ }
func (o *countingObserver) ObserveCommit(block uint64, _ map[model.Kind]int) {
	o.commits = append(o.commits, block)
}

type fixture struct {
	store    *store.Store
	registry *watch.Registry
	dispatch *poolDispatcher
	state    *memoryState
	observer *countingObserver
	engine   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	state := &memoryState{}
	f := newFixtureWithState(t, state)
	f.state = state
	return f
}

func newFixtureWithState(t *testing.T, state StateStore) *fixture {
	t.Helper()
	decoder, err := contracts.NewDecoder()
	require.NoError(t, err)

	st := store.New()
	registry := watch.New(st, nil)
	registry.Register(contracts.AddressID(factoryAddr), model.RoleFactory, 0)

	f := &fixture{
		store:    st,
		registry: registry,
		dispatch: &poolDispatcher{registry: registry},
		observer: &countingObserver{},
	}
	f.engine, err = NewEngine(EngineDeps{
		Decoder:  decoder,
		Watch:    registry,
		Dispatch: f.dispatch,
		Store:    st,
		State:    state,
		Observer: f.observer,
	}, nil)
	require.NoError(t, err)
	return f
}

func initLog(t *testing.T, block uint64, index uint) types.Log {
	t.Helper()
	events, err := contracts.FactoryEventsABI()
	require.NoError(t, err)
	event := events.Events[model.EventLendingPoolInitialized]
	data, err := event.Inputs.NonIndexed().Pack(collateralAddr, borrowableAddr, otherAddr, big.NewInt(1))
	require.NoError(t, err)
	return types.Log{
		Address: factoryAddr,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(pairAddr.Bytes()),
			common.BytesToHash(otherAddr.Bytes()),
			common.BytesToHash(otherAddr.Bytes()),
		},
		Data:        data,
		BlockNumber: block,
		Index:       index,
	}
}

func syncLog(t *testing.T, address common.Address, block uint64, index uint, balance int64) types.Log {
	t.Helper()
	events, err := contracts.BorrowableEventsABI()
	require.NoError(t, err)
	event := events.Events[model.EventSync]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(balance))
	require.NoError(t, err)
	return types.Log{
		Address:     address,
		Topics:      []common.Hash{event.ID},
		Data:        data,
		BlockNumber: block,
		Index:       index,
	}
}

func TestRunnerPicksUpContractsRegisteredMidRange(t *testing.T) {
	f := newFixture(t)
	source := &fakeLogSource{logs: []types.Log{
		syncLog(t, borrowableAddr, 10, 1, 7),
		initLog(t, 10, 2),
		syncLog(t, borrowableAddr, 10, 5, 8),
		syncLog(t, borrowableAddr, 12, 0, 9),
		syncLog(t, otherAddr, 13, 0, 1),
	}}
	archive := &memoryArchive{}

	runner := NewRunner(RunConfig{FromBlock: 5, ToBlock: 20, BatchSize: 100}, source, f.engine, archive, nil)
	require.NoError(t, runner.Run(context.Background()))

	require.Equal(t, []handled{
		{model.RoleFactory, model.EventLendingPoolInitialized, 10, 2},
		{model.RoleBorrowable, model.EventSync, 10, 5},
		{model.RoleBorrowable, model.EventSync, 12, 0},
	}, f.dispatch.events)
	require.Equal(t, 2, source.filters)
	require.Equal(t, []uint64{20}, f.state.saves)
	require.Equal(t, []uint64{20}, f.observer.commits)
	require.Equal(t, 3, f.observer.events)

	require.Len(t, archive.records, 3)
	require.Equal(t, contracts.AddressID(borrowableAddr), archive.records[2].Address)
	require.Equal(t, uint64(1_700_000_012), archive.records[2].Timestamp)
	require.Equal(t, uint64(250), archive.records[2].ChainID)
}

func TestRunnerCommitsEveryRange(t *testing.T) {
	f := newFixture(t)
	source := &fakeLogSource{logs: []types.Log{initLog(t, 3, 0), syncLog(t, borrowableAddr, 8, 0, 1)}}

	runner := NewRunner(RunConfig{FromBlock: 1, ToBlock: 9, BatchSize: 4}, source, f.engine, nil, nil)
	require.NoError(t, runner.Run(context.Background()))

	require.Equal(t, []uint64{4, 8, 9}, f.state.saves)
	require.Len(t, f.dispatch.events, 2)
	require.True(t, f.store.Watched.Exists(contracts.AddressID(borrowableAddr)))
	rows, err := f.store.DirtyRows()
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRunnerResumesAfterCheckpoint(t *testing.T) {
	f := newFixture(t)
	f.state.block, f.state.ok = 15, true
	f.registry.Register(contracts.AddressID(borrowableAddr), model.RoleBorrowable, 10)
	source := &fakeLogSource{logs: []types.Log{
		syncLog(t, borrowableAddr, 12, 0, 1),
		syncLog(t, borrowableAddr, 18, 0, 2),
	}}

	runner := NewRunner(RunConfig{FromBlock: 1, BatchSize: 1000}, source, f.engine, nil, nil)
	require.NoError(t, runner.Run(context.Background()))

	require.Equal(t, []handled{{model.RoleBorrowable, model.EventSync, 18, 0}}, f.dispatch.events)
	require.Equal(t, []uint64{200}, f.state.saves)
}

func TestFailedCommitWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.state.fail = errors.New("state write failed")
	source := &fakeLogSource{logs: []types.Log{initLog(t, 10, 0)}}

	runner := NewRunner(RunConfig{FromBlock: 1, ToBlock: 20, BatchSize: 100}, source, f.engine, nil, nil)
	err := runner.Run(context.Background())
	require.ErrorContains(t, err, "commit block 20")
	require.ErrorContains(t, err, "state write failed")

	require.False(t, f.state.ok)
	require.Empty(t, f.state.rows)
	require.Empty(t, f.observer.commits)
	dirty, err := f.store.DirtyRows()
	require.NoError(t, err)
	require.NotEmpty(t, dirty)

	f.state.fail = nil
	require.NoError(t, f.engine.Commit(context.Background(), 20))
	require.Len(t, f.state.rows, len(dirty))
	require.Equal(t, []uint64{20}, f.state.saves)
}

func TestResumeRestoresWatchedContracts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	source := &fakeLogSource{logs: []types.Log{
		initLog(t, 10, 0),
		syncLog(t, borrowableAddr, 12, 0, 1),
		syncLog(t, borrowableAddr, 30, 0, 2),
	}}

	first := newFixtureWithState(t, &FileStateStore{Path: path})
	runner := NewRunner(RunConfig{FromBlock: 1, ToBlock: 20, BatchSize: 100}, source, first.engine, nil, nil)
	require.NoError(t, runner.Run(context.Background()))
	require.Len(t, first.dispatch.events, 2)

	second := newFixtureWithState(t, &FileStateStore{Path: path})
	require.False(t, second.store.Watched.Exists(contracts.AddressID(borrowableAddr)))
	runner = NewRunner(RunConfig{FromBlock: 1, ToBlock: 40, BatchSize: 100}, source, second.engine, nil, nil)
	require.NoError(t, runner.Run(context.Background()))

	require.Equal(t, []model.Role{model.RoleBorrowable}, second.registry.Roles(contracts.AddressID(borrowableAddr)))
	require.Equal(t, []handled{{model.RoleBorrowable, model.EventSync, 30, 0}}, second.dispatch.events)

	block, ok, err := (&FileStateStore{Path: path}).Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(40), block)
}

func TestApplyRejectsMalformedLog(t *testing.T) {
	f := newFixture(t)
	log := initLog(t, 10, 0)
	log.Data = log.Data[:40]

	err := f.engine.Apply(context.Background(), buildLogRecord(250, log, 1, time.Now()))
	require.ErrorContains(t, err, "decode log 10/0")
	require.Empty(t, f.dispatch.events)
}

func TestApplySkipsUnwatchedAndRemoved(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.Apply(context.Background(), buildLogRecord(250, syncLog(t, otherAddr, 1, 0, 1), 1, time.Now())))
	removed := initLog(t, 2, 0)
	removed.Removed = true
	require.NoError(t, f.engine.Apply(context.Background(), buildLogRecord(250, removed, 1, time.Now())))
	require.Empty(t, f.dispatch.events)
}

func TestReplayMatchesLiveOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	archive := storage.NewJsonlStorage(path)
	now := time.Now()
	require.NoError(t, archive.PutLogBatch([]model.LogRecord{
		buildLogRecord(250, syncLog(t, borrowableAddr, 10, 1, 7), 1, now),
		buildLogRecord(250, initLog(t, 10, 2), 1, now),
		buildLogRecord(250, syncLog(t, borrowableAddr, 10, 5, 8), 1, now),
		buildLogRecord(250, syncLog(t, borrowableAddr, 12, 0, 9), 1, now),
		buildLogRecord(250, syncLog(t, borrowableAddr, 13, 0, 9), 1, now),
	}))

	f := newFixture(t)
	require.NoError(t, Replay(context.Background(), ReplayConfig{Input: path, BatchSize: 2}, f.engine, nil))

	require.Equal(t, []handled{
		{model.RoleFactory, model.EventLendingPoolInitialized, 10, 2},
		{model.RoleBorrowable, model.EventSync, 10, 5},
		{model.RoleBorrowable, model.EventSync, 12, 0},
		{model.RoleBorrowable, model.EventSync, 13, 0},
	}, f.dispatch.events)
	require.Equal(t, []uint64{10, 13}, f.state.saves)
}

func TestReplayRejectsOutOfOrderArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	now := time.Now()
	require.NoError(t, storage.NewJsonlStorage(path).PutLogBatch([]model.LogRecord{
		buildLogRecord(250, syncLog(t, otherAddr, 12, 0, 1), 1, now),
		buildLogRecord(250, syncLog(t, otherAddr, 11, 0, 1), 1, now),
	}))

	f := newFixture(t)
	err := Replay(context.Background(), ReplayConfig{Input: path, BatchSize: 10}, f.engine, nil)
	require.ErrorContains(t, err, "out of order at 11/0")
	require.Empty(t, f.state.saves)
}
