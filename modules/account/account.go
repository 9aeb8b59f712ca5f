// Package account implements the multisig account state machine (spec
// §4.12): an account is a set of addresses with roles (who may submit,
// approve, or own a pending transaction) plus multisig defaults
// (threshold, timeout, execute_automatically), and a transition table
// driving pending transactions from submission through to execution,
// withdrawal, or expiry.
//
// Grounded on `many-modules/src/_9_account/features/multisig.rs`
// (original_source) for the transition table and error taxonomy (attribute
// 9), and on the teacher's `core/access_control.go` role-map style
// (address -> role set, backed by persistent storage) for how account
// permissions are represented.
package account

import (
	"bytes"
	"sort"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

// Role is a permission an address holds over an account (§4.12).
type Role string

const (
	RoleOwner   Role = "owner"
	RoleSubmit  Role = "submit"
	RoleApprove Role = "approve"
)

// MultisigConfig is an account's current multisig defaults. Changes made
// via SetDefaults apply only to transactions submitted after the change,
// never to ones already pending (Open Question (b), resolved in
// DESIGN.md): each PendingTransaction snapshots its own threshold, timeout,
// and ExecuteAutomatically at submit time instead of reading this struct.
type MultisigConfig struct {
	Threshold            uint64
	TimeoutSecs          uint64
	ExecuteAutomatically bool
}

// Account is the persisted record at /accounts/<address>.
type Account struct {
	Address  address.Address
	Roles    map[address.Address][]Role
	Multisig MultisigConfig
}

// HasRole reports whether addr holds role on the account.
func (a Account) HasRole(addr address.Address, role Role) bool {
	for _, r := range a.Roles[addr] {
		if r == role {
			return true
		}
	}
	return false
}

// defaultThreshold computes the §4.12 "Defaults" threshold for an account
// created without an explicit override: the number of addresses holding
// submit or approve roles, minus one. An account with no such approvers
// defaults to a threshold of 0 rather than underflowing.
func defaultThreshold(roles map[address.Address][]Role) uint64 {
	var approvers uint64
	for _, rs := range roles {
		for _, r := range rs {
			if r == RoleSubmit || r == RoleApprove {
				approvers++
				break
			}
		}
	}
	if approvers == 0 {
		return 0
	}
	return approvers - 1
}

// DefaultTimeoutSecs is used when a submission doesn't override it and the
// account carries no multisig config of its own (24 hours).
const DefaultTimeoutSecs = 24 * 60 * 60

// MaximumTimeoutSecs caps any configured or submitted timeout (30 days,
// MULTISIG_MAXIMUM_TIMEOUT_IN_SECS per §4.12).
const MaximumTimeoutSecs = 30 * 24 * 60 * 60

func accountKey(addr address.Address) []byte {
	return append([]byte("/accounts/"), addr.ToVec()...)
}

type wireAccount struct {
	Address  []byte              `cbor:"0,keyasint"`
	Owners   [][]byte            `cbor:"1,keyasint"`
	Roles    [][]string          `cbor:"2,keyasint"`
	Threshold uint64             `cbor:"3,keyasint"`
	Timeout   uint64             `cbor:"4,keyasint"`
	Auto      bool               `cbor:"5,keyasint"`
}

func (a Account) marshal() ([]byte, error) {
	addrs := make([]address.Address, 0, len(a.Roles))
	for addr := range a.Roles {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })

	owners := make([][]byte, 0, len(addrs))
	roles := make([][]string, 0, len(addrs))
	for _, addr := range addrs {
		owners = append(owners, addr.ToVec())
		rs := a.Roles[addr]
		strs := make([]string, len(rs))
		for i, r := range rs {
			strs[i] = string(r)
		}
		roles = append(roles, strs)
	}
	return mcbor.Marshal(wireAccount{
		Address:   a.Address.ToVec(),
		Owners:    owners,
		Roles:     roles,
		Threshold: a.Multisig.Threshold,
		Timeout:   a.Multisig.TimeoutSecs,
		Auto:      a.Multisig.ExecuteAutomatically,
	})
}

func unmarshalAccount(data []byte) (Account, error) {
	var w wireAccount
	if err := mcbor.Unmarshal(data, &w); err != nil {
		return Account{}, err
	}
	addr, err := address.FromBytes(w.Address)
	if err != nil {
		return Account{}, err
	}
	roles := make(map[address.Address][]Role, len(w.Owners))
	for i, ownerBytes := range w.Owners {
		owner, err := address.FromBytes(ownerBytes)
		if err != nil {
			return Account{}, err
		}
		rs := make([]Role, len(w.Roles[i]))
		for j, r := range w.Roles[i] {
			rs[j] = Role(r)
		}
		roles[owner] = rs
	}
	return Account{
		Address: addr,
		Roles:   roles,
		Multisig: MultisigConfig{
			Threshold:             w.Threshold,
			TimeoutSecs:           w.Timeout,
			ExecuteAutomatically:  w.Auto,
		},
	}, nil
}

// getAccount loads the account at addr, if any.
func getAccount(store *merkle.Store, addr address.Address) (Account, bool, error) {
	raw, found, err := store.Get(accountKey(addr))
	if err != nil || !found {
		return Account{}, found, err
	}
	acc, err := unmarshalAccount(raw)
	return acc, true, err
}

// putAccount stages (but does not commit) acc at its own address.
func putAccount(store *merkle.Store, acc Account) error {
	data, err := acc.marshal()
	if err != nil {
		return err
	}
	store.Apply([]merkle.Op{{Key: accountKey(acc.Address), Value: data}})
	return nil
}

// PutGenesisAccount stages acc directly, bypassing the account.create
// transition. many-rs's genesis-from-db bootstrap writes /accounts/<address>
// rows the same way, ahead of any transaction that would normally produce
// them.
func PutGenesisAccount(store *merkle.Store, acc Account) error {
	return putAccount(store, acc)
}
