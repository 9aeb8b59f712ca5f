package event

import (
	"path/filepath"
	"testing"

	"github.com/synnergy-chain/manynet/pkg/merkle"
)

func openTestLog(t *testing.T) (*Log, *merkle.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := merkle.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("merkle.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewLog(store), store
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	log, store := openTestLog(t)

	id1, err := log.Append([]byte("first"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	id2, err := log.Append([]byte("second"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if id1.String() != "1" || id2.String() != "2" {
		t.Fatalf("got ids %s, %s want 1, 2", id1, id2)
	}
}

func TestGetAndListRoundTrip(t *testing.T) {
	log, store := openTestLog(t)

	id, err := log.Append([]byte("payload"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rec, found, err := log.Get(id)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if string(rec.Info) != "payload" {
		t.Fatalf("got %q", rec.Info)
	}

	all, err := log.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].ID.String() != id.String() {
		t.Fatalf("unexpected list: %+v", all)
	}
}

func TestListOrdersAscendingAcrossManyEvents(t *testing.T) {
	log, store := openTestLog(t)
	for i := 0; i < 15; i++ {
		if _, err := log.Append([]byte{byte(i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if _, err := store.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}
	all, err := log.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 15 {
		t.Fatalf("got %d events want 15", len(all))
	}
	for i, rec := range all {
		if rec.ID.String() != itoa(i+1) {
			t.Fatalf("event %d has id %s, want %d", i, rec.ID, i+1)
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
