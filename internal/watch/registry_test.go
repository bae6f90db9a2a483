package watch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lendingScope/internal/model"
	"lendingScope/internal/store"
)

func TestRegisterIsIdempotent(t *testing.T) {
	st := store.New()
	r := New(st, nil)

	require.True(t, r.Register("0xb", model.RolePair, 10))
	require.False(t, r.Register("0xb", model.RolePair, 11))
	require.Equal(t, uint64(1), r.Version())

	require.True(t, r.Register("0xb", model.RoleWrappedPair, 12))
	require.True(t, r.Register("0xa", model.RoleFactory, 0))
	require.Equal(t, uint64(3), r.Version())

	require.Equal(t, []model.Role{model.RolePair, model.RoleWrappedPair}, r.Roles("0xb"))
	require.Equal(t, []string{"0xa", "0xb"}, r.Addresses())

	contract, ok := st.Watched.Load("0xb")
	require.True(t, ok)
	require.Equal(t, uint64(10), contract.RegisteredBlock)
}

func TestRegistryRestoredFromStore(t *testing.T) {
	st := store.New()
	st.Watched.Save(model.WatchedContract{ID: "0xc", Roles: []model.Role{model.RoleCollateral}})

	r := New(st, nil)
	require.Equal(t, []model.Role{model.RoleCollateral}, r.Roles("0xc"))
	require.False(t, r.Register("0xc", model.RoleCollateral, 5))
	require.Nil(t, r.Roles("0xd"))
}
