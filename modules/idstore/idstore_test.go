package idstore

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

func TestStoreThenGetFromRecallPhraseRoundTrip(t *testing.T) {
	store := openTestStore(t)
	sender, addr := testAddress(t), testAddress(t)

	phrase, err := Store(store, sender, addr, []byte("0123456789abcdef"), []byte("pubkey"))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if len(phrase) != 12 {
		t.Fatalf("got %d words want 12", len(phrase))
	}

	record, err := GetFromRecallPhrase(store, phrase)
	if err != nil {
		t.Fatalf("GetFromRecallPhrase: %v", err)
	}
	if record.Address != addr {
		t.Fatalf("got address %v want %v", record.Address, addr)
	}
	if string(record.CredentialID) != "0123456789abcdef" {
		t.Fatalf("unexpected credential id: %q", record.CredentialID)
	}
}

func TestStoreThenGetFromAddressRoundTrip(t *testing.T) {
	store := openTestStore(t)
	sender, addr := testAddress(t), testAddress(t)

	if _, err := Store(store, sender, addr, []byte("0123456789abcdef"), []byte("pubkey")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	record, err := GetFromAddress(store, addr)
	if err != nil {
		t.Fatalf("GetFromAddress: %v", err)
	}
	if record.Address != addr {
		t.Fatalf("got address %v want %v", record.Address, addr)
	}
}

func TestStoreRejectsAnonymousSender(t *testing.T) {
	store := openTestStore(t)
	addr := testAddress(t)
	if _, err := Store(store, address.Anonymous, addr, []byte("0123456789abcdef"), []byte("pubkey")); err == nil {
		t.Fatalf("expected anonymous sender to be rejected")
	}
}

func TestStoreRejectsNonPublicKeyAddress(t *testing.T) {
	store := openTestStore(t)
	sender := testAddress(t)
	if _, err := Store(store, sender, address.Anonymous, []byte("0123456789abcdef"), []byte("pubkey")); err == nil {
		t.Fatalf("expected non-public-key address to be rejected")
	}
}

func TestStoreRejectsCredentialIDOutOfBounds(t *testing.T) {
	store := openTestStore(t)
	sender, addr := testAddress(t), testAddress(t)
	if _, err := Store(store, sender, addr, []byte("short"), []byte("pubkey")); err == nil {
		t.Fatalf("expected credential id too short to be rejected")
	}
	if _, err := Store(store, sender, addr, make([]byte, maxCredentialIDLen+1), []byte("pubkey")); err == nil {
		t.Fatalf("expected credential id too long to be rejected")
	}
}

func TestStoreGeneratesDistinctPhrasesForDifferentSeeds(t *testing.T) {
	store := openTestStore(t)
	sender := testAddress(t)

	addrA, addrB := testAddress(t), testAddress(t)
	phraseA, err := Store(store, sender, addrA, []byte("0123456789abcdef"), []byte("pubkeyA"))
	if err != nil {
		t.Fatalf("Store(A): %v", err)
	}
	phraseB, err := Store(store, sender, addrB, []byte("0123456789abcdef"), []byte("pubkeyB"))
	if err != nil {
		t.Fatalf("Store(B): %v", err)
	}
	if strJoin(phraseA) == strJoin(phraseB) {
		t.Fatalf("expected distinct recall phrases, got the same phrase twice")
	}
}

func TestGetFromRecallPhraseNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := GetFromRecallPhrase(store, []string{"not", "a", "real", "phrase"}); err == nil {
		t.Fatalf("expected not-found error")
	}
}

func strJoin(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}
