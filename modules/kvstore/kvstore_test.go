package kvstore

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

func TestPutThenGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	owner := testAddress(t)

	if err := Put(store, owner, owner, []byte("k"), []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	value, found, err := Get(store, owner, []byte("k"))
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if string(value) != "v1" {
		t.Fatalf("got %q want v1", value)
	}
}

func TestPutByNonOwnerIsRejected(t *testing.T) {
	store := openTestStore(t)
	owner, stranger := testAddress(t), testAddress(t)
	if err := Put(store, owner, owner, []byte("k"), []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := Put(store, stranger, owner, []byte("k"), []byte("v2")); err == nil {
		t.Fatalf("expected permission_denied for non-owner overwrite")
	}
}

func TestGetRejectsDisabledKey(t *testing.T) {
	store := openTestStore(t)
	owner := testAddress(t)
	if err := Put(store, owner, owner, []byte("k"), []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := Disable(store, owner, owner, []byte("k"), "compromised"); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if _, _, err := Get(store, owner, []byte("k")); err == nil {
		t.Fatalf("expected key_disabled error")
	}
	entry, found, err := Query(store, owner, []byte("k"))
	if err != nil || !found {
		t.Fatalf("Query: found=%v err=%v", found, err)
	}
	if !entry.Disabled || entry.Reason != "compromised" {
		t.Fatalf("got %+v want disabled with reason", entry)
	}
}

func TestTransferMovesOwnership(t *testing.T) {
	store := openTestStore(t)
	owner, newOwner := testAddress(t), testAddress(t)
	if err := Put(store, owner, owner, []byte("k"), []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := Transfer(store, owner, owner, []byte("k"), newOwner); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if _, _, err := Get(store, owner, []byte("k")); err != nil {
		t.Fatalf("expected the old namespace entry gone without error, got %v", err)
	}
	value, found, err := Get(store, newOwner, []byte("k"))
	if err != nil || !found {
		t.Fatalf("Get(newOwner): found=%v err=%v", found, err)
	}
	if string(value) != "v1" {
		t.Fatalf("got %q want v1", value)
	}
}

func TestListOrdersByKey(t *testing.T) {
	store := openTestStore(t)
	owner := testAddress(t)
	for _, k := range []string{"zz", "aa", "mm"} {
		if err := Put(store, owner, owner, []byte(k), []byte(k)); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	_, keys, err := List(store, owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 3 || string(keys[0]) != "aa" || string(keys[1]) != "mm" || string(keys[2]) != "zz" {
		t.Fatalf("unexpected order: %v", keys)
	}
}
