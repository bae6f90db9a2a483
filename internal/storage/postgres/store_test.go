package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lendingScope/internal/model"
	"lendingScope/internal/store"
)

// Set LENDINGSCOPE_TEST_PG_DSN to run these against a scratch database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LENDINGSCOPE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("LENDINGSCOPE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func loadIDs(t *testing.T, s *Store, prefix string) []string {
	t.Helper()
	var ids []string
	require.NoError(t, s.LoadEntities(context.Background(), func(row store.Row) error {
		if len(row.ID) >= len(prefix) && row.ID[:len(prefix)] == prefix {
			ids = append(ids, row.ID)
		}
		return nil
	}))
	return ids
}

func TestCommitIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	prefix := fmt.Sprintf("0xtest%d", time.Now().UnixNano())
	name := prefix + "-state"
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM entities WHERE id LIKE $1`, prefix+"%")
		_, _ = s.pool.Exec(ctx, `DELETE FROM indexer_state WHERE name = $1`, name)
	})

	good := store.Row{Kind: model.KindUser, ID: prefix + "a", Data: []byte(`{"id":"` + prefix + `a"}`)}
	bad := store.Row{Kind: model.KindUser, ID: prefix + "b", Data: []byte(`{not json`)}

	err := s.Commit(ctx, []store.Row{good, bad}, name, 10)
	require.ErrorContains(t, err, "upsert user "+prefix+"b")
	require.Empty(t, loadIDs(t, s, prefix))
	_, ok, err := s.LoadState(ctx, name)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Commit(ctx, []store.Row{good}, name, 10))
	require.Equal(t, []string{prefix + "a"}, loadIDs(t, s, prefix))
	block, ok, err := s.LoadState(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), block)
}

func TestCommitAdvancesStateWithoutRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	name := fmt.Sprintf("empty-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM indexer_state WHERE name = $1`, name)
	})

	require.NoError(t, s.Commit(ctx, nil, name, 5))
	require.NoError(t, s.Commit(ctx, nil, name, 9))
	block, ok, err := s.LoadState(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(9), block)
}

func TestCommitRequiresName(t *testing.T) {
	s := &Store{}
	require.ErrorContains(t, s.Commit(context.Background(), nil, "", 1), "state name required")
}
