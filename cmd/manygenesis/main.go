package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synnergy-chain/manynet/modules/account"
	"github.com/synnergy-chain/manynet/modules/idstore"
	"github.com/synnergy-chain/manynet/modules/ledger"
	"github.com/synnergy-chain/manynet/modules/tokens"
	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

func main() {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "manygenesis <snapshot.json>",
		Short: "seed a fresh store from a genesis snapshot before init-chain runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(dbPath, args[0])
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "genesis.db", "path of the store to create or seed")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(dbPath, snapshotPath string) error {
	snap, err := loadSnapshot(snapshotPath)
	if err != nil {
		return err
	}

	store, err := merkle.Open(dbPath)
	if err != nil {
		return fmt.Errorf("manygenesis: open store: %w", err)
	}
	defer store.Close()

	if err := applySnapshot(store, snap); err != nil {
		return err
	}

	root, err := store.Commit()
	if err != nil {
		return fmt.Errorf("manygenesis: commit: %w", err)
	}
	logrus.Infof("manygenesis: seeded %s, root=%s", dbPath, hex.EncodeToString(root[:]))
	return nil
}

// applySnapshot stages every row of snap onto store, in the same order the
// modules themselves would have produced it: symbols before balances (a
// balance names a symbol, though nothing here enforces that it already
// exists, since genesis predates any module's own validation), then
// accounts, then the idstore seed counter.
func applySnapshot(store *merkle.Store, snap *snapshot) error {
	for _, s := range snap.Symbols {
		owner, err := s.toAddress()
		if err != nil {
			return fmt.Errorf("manygenesis: symbol %q owner: %w", s.Symbol, err)
		}
		if _, err := tokens.Create(store, s.Symbol, s.Name, s.Ticker, s.Decimals, owner, s.Maximum); err != nil {
			return fmt.Errorf("manygenesis: create symbol %q: %w", s.Symbol, err)
		}
		if s.Supply > 0 {
			if _, err := tokens.Mint(store, s.Symbol, s.Supply, owner); err != nil {
				return fmt.Errorf("manygenesis: mint symbol %q: %w", s.Symbol, err)
			}
		}
	}

	for _, b := range snap.Balances {
		addr, err := address.Parse(b.Address)
		if err != nil {
			return fmt.Errorf("manygenesis: balance address %q: %w", b.Address, err)
		}
		ledger.SetGenesisBalance(store, addr, b.Symbol, b.Amount)
	}

	for _, a := range snap.Accounts {
		acc, err := a.toAccount()
		if err != nil {
			return err
		}
		if err := account.PutGenesisAccount(store, acc); err != nil {
			return fmt.Errorf("manygenesis: account %q: %w", a.Address, err)
		}
	}

	if snap.IDStoreSeed > 0 {
		idstore.SetGenesisSeedCounter(store, snap.IDStoreSeed)
	}

	return nil
}
