// Command manygenesis seeds a fresh Merkle store's /config/symbols,
// /balances and /accounts keys from a JSON snapshot file before a chain's
// first init_chain ever runs, matching what the teacher's many-rs ecosystem
// uses genesis-from-db for: turning an out-of-band bootstrap description
// into the exact key layout the running modules read.
//
// Grounded on `original_source/src/genesis-from-db/src/main.rs`'s
// CombinedJson shape, inverted: that tool walks an existing store and
// prints JSON, this one walks JSON and writes a store.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/synnergy-chain/manynet/modules/account"
	"github.com/synnergy-chain/manynet/pkg/address"
)

// symbolSnapshot is one /config/symbols/<symbol> row.
type symbolSnapshot struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Ticker   string  `json:"ticker"`
	Decimals uint64  `json:"decimals"`
	Owner    string  `json:"owner"`
	Supply   uint64  `json:"supply"`
	Maximum  *uint64 `json:"maximum,omitempty"`
}

// balanceSnapshot is one /balances/<address>/<symbol> row.
type balanceSnapshot struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Amount  uint64 `json:"amount"`
}

// accountSnapshot is one /accounts/<address> row. Roles maps an owning
// address to the role names it holds, mirroring account.Account.Roles.
type accountSnapshot struct {
	Address              string              `json:"address"`
	Roles                map[string][]string `json:"roles"`
	Threshold            uint64              `json:"threshold"`
	TimeoutSecs          uint64              `json:"timeout_secs"`
	ExecuteAutomatically bool                `json:"execute_automatically"`
}

// snapshot is the top-level JSON document a genesis file carries.
type snapshot struct {
	IDStoreSeed uint64            `json:"id_store_seed,omitempty"`
	Symbols     []symbolSnapshot  `json:"symbols,omitempty"`
	Balances    []balanceSnapshot `json:"balances,omitempty"`
	Accounts    []accountSnapshot `json:"accounts,omitempty"`
}

func loadSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manygenesis: read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("manygenesis: parse snapshot: %w", err)
	}
	return &snap, nil
}

func (s symbolSnapshot) toAddress() (address.Address, error) {
	return address.Parse(s.Owner)
}

func (a accountSnapshot) toAccount() (account.Account, error) {
	addr, err := address.Parse(a.Address)
	if err != nil {
		return account.Account{}, fmt.Errorf("manygenesis: account address %q: %w", a.Address, err)
	}
	roles := make(map[address.Address][]account.Role, len(a.Roles))
	for ownerStr, roleNames := range a.Roles {
		owner, err := address.Parse(ownerStr)
		if err != nil {
			return account.Account{}, fmt.Errorf("manygenesis: role address %q: %w", ownerStr, err)
		}
		rs := make([]account.Role, len(roleNames))
		for i, r := range roleNames {
			rs[i] = account.Role(r)
		}
		roles[owner] = rs
	}
	return account.Account{
		Address: addr,
		Roles:   roles,
		Multisig: account.MultisigConfig{
			Threshold:            a.Threshold,
			TimeoutSecs:          a.TimeoutSecs,
			ExecuteAutomatically: a.ExecuteAutomatically,
		},
	}, nil
}
