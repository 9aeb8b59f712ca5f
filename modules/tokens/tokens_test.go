package tokens

import (
	"path/filepath"
	"testing"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/identity"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

func testAddress(t *testing.T) address.Address {
	t.Helper()
	id, err := identity.GenerateEd25519Identity()
	if err != nil {
		t.Fatalf("GenerateEd25519Identity: %v", err)
	}
	return id.Address()
}

func openTestStore(t *testing.T) *merkle.Store {
	t.Helper()
	store, err := merkle.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("merkle.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	owner := testAddress(t)

	created, err := Create(store, "MFX", "ManyFix", "MFX", 9, owner, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, found, err := Get(store, "MFX")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got.Name != created.Name || got.Owner != owner {
		t.Fatalf("got %+v want matching %+v", got, created)
	}
}

func TestCreateRejectsDuplicateSymbol(t *testing.T) {
	store := openTestStore(t)
	owner := testAddress(t)
	if _, err := Create(store, "MFX", "ManyFix", "MFX", 9, owner, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := Create(store, "MFX", "Duplicate", "DUP", 2, owner, nil); err == nil {
		t.Fatalf("expected symbol_exists error")
	}
}

func TestMintEnforcesOwnerAndMaximum(t *testing.T) {
	store := openTestStore(t)
	owner, stranger := testAddress(t), testAddress(t)
	max := uint64(100)
	if _, err := Create(store, "MFX", "ManyFix", "MFX", 9, owner, &max); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := Mint(store, "MFX", 10, stranger); err == nil {
		t.Fatalf("expected not_owner error for stranger mint")
	}

	if _, err := Mint(store, "MFX", 101, owner); err == nil {
		t.Fatalf("expected maximum_exceeded error")
	}

	info, err := Mint(store, "MFX", 100, owner)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if info.Supply != 100 {
		t.Fatalf("got supply %d want 100", info.Supply)
	}
}

func TestListOrdersBySymbol(t *testing.T) {
	store := openTestStore(t)
	owner := testAddress(t)
	for _, sym := range []string{"ZZZ", "AAA", "MMM"} {
		if _, err := Create(store, sym, sym, sym, 0, owner, nil); err != nil {
			t.Fatalf("Create(%s): %v", sym, err)
		}
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	all, err := List(store)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].Symbol != "AAA" || all[1].Symbol != "MMM" || all[2].Symbol != "ZZZ" {
		t.Fatalf("unexpected order: %+v", all)
	}
}
