package model

import "slices"

// Role is the part a watched contract plays; it selects the ABI used to
// decode its logs.
type Role string

const (
	RoleFactory     Role = "factory"
	RoleBorrowable  Role = "borrowable"
	RoleCollateral  Role = "collateral"
	RolePair        Role = "pair"
	RoleWrappedPair Role = "wrapped_pair"
	RoleRewardPool  Role = "reward_pool"
)

// AllRoles lists every role in decoding order.
func AllRoles() []Role {
	return []Role{RoleFactory, RoleBorrowable, RoleCollateral, RolePair, RoleWrappedPair, RoleRewardPool}
}

// WatchedContract records which roles an address has been registered under.
type WatchedContract struct {
	ID              string `json:"id"`
	Roles           []Role `json:"roles"`
	RegisteredBlock uint64 `json:"registered_block"`
}

func (w WatchedContract) Key() string { return w.ID }

// HasRole reports whether the contract is watched as role.
func (w WatchedContract) HasRole(role Role) bool {
	return slices.Contains(w.Roles, role)
}
