// Package watch keeps the set of contracts whose logs are ingested, and the
// role each one is decoded under.
package watch

import (
	"slices"
	"sort"

	"go.uber.org/zap"

	"lendingScope/internal/model"
	"lendingScope/internal/store"
)

// Registry is backed by the store's watched-contract table, so it is
// persisted and restored with the rest of the entities.
type Registry struct {
	store   *store.Store
	logger  *zap.Logger
	version uint64
}

// New creates a registry over st.
func New(st *store.Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: st, logger: logger}
}

// Register starts watching address as role from block on. It reports whether
// the (address, role) binding is new; repeated calls are no-ops.
func (r *Registry) Register(address string, role model.Role, block uint64) bool {
	contract, ok := r.store.Watched.Load(address)
	if !ok {
		contract = model.WatchedContract{ID: address, RegisteredBlock: block}
	}
	if contract.HasRole(role) {
		return false
	}
	contract.Roles = append(slices.Clone(contract.Roles), role)
	r.store.Watched.Save(contract)
	r.version++
	r.logger.Info("watching contract",
		zap.String("address", address),
		zap.String("role", string(role)),
		zap.Uint64("block", block),
	)
	return true
}

// Roles returns the roles address is watched as.
func (r *Registry) Roles(address string) []model.Role {
	contract, ok := r.store.Watched.Load(address)
	if !ok {
		return nil
	}
	return contract.Roles
}

// Addresses returns every watched address in a stable order.
func (r *Registry) Addresses() []string {
	out := make([]string, 0, r.store.Watched.Len())
	r.store.Watched.Range(func(c model.WatchedContract) bool {
		out = append(out, c.ID)
		return true
	})
	sort.Strings(out)
	return out
}

// Version increases every time a binding is added. Callers compare versions
// to notice that the watched set grew.
func (r *Registry) Version() uint64 {
	return r.version
}

// Len returns the number of watched addresses.
func (r *Registry) Len() int {
	return r.store.Watched.Len()
}
