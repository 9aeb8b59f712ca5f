package migration

import (
	"path/filepath"
	"testing"

	"github.com/synnergy-chain/manynet/pkg/merkle"
)

func openTestStore(t *testing.T) *merkle.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := merkle.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("merkle.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Mirrors many-migration/tests/migrations.rs's "initialize" scenario: a
// migration with block_height 1 runs exactly once, at height 1.
func TestInitializeRunsExactlyAtConfiguredHeight(t *testing.T) {
	store := openTestStore(t)
	ran := 0
	m := NewInitializeOnly("A", "A desc", func(s *merkle.Store) error {
		ran++
		s.Apply([]merkle.Op{{Key: []byte("/init"), Value: []byte("ok")}})
		return nil
	})
	m.Enabled = true
	m.Metadata.BlockHeight = 1

	if err := m.RunInitialize(store, 0); err != nil {
		t.Fatalf("RunInitialize(0): %v", err)
	}
	if ran != 0 {
		t.Fatalf("should not run before its configured height")
	}

	if err := m.RunInitialize(store, 1); err != nil {
		t.Fatalf("RunInitialize(1): %v", err)
	}
	if ran != 1 {
		t.Fatalf("should run exactly once at its configured height")
	}

	if err := m.RunInitialize(store, 2); err != nil {
		t.Fatalf("RunInitialize(2): %v", err)
	}
	if ran != 1 {
		t.Fatalf("should not run again after it already ran")
	}
}

// Mirrors the "update" scenario: runs on every height after block_height.
func TestUpdateRunsOnEveryHeightAfterConfigured(t *testing.T) {
	store := openTestStore(t)
	counter := 0
	m := NewUpdateOnly("B", "B desc", func(s *merkle.Store) error {
		counter++
		return nil
	})
	m.Enabled = true
	m.Metadata.BlockHeight = 1

	for _, height := range []uint64{0, 1} {
		if err := m.RunUpdate(store, height); err != nil {
			t.Fatalf("RunUpdate(%d): %v", height, err)
		}
	}
	if counter != 0 {
		t.Fatalf("should not run at or before its configured height, ran %d times", counter)
	}

	for i := 0; i < 5; i++ {
		if err := m.RunUpdate(store, 2); err != nil {
			t.Fatalf("RunUpdate(2): %v", err)
		}
	}
	if counter != 5 {
		t.Fatalf("got %d runs want 5", counter)
	}
}

// Mirrors the "hotfix" scenario: transforms data only at the exact height.
func TestHotfixRunsOnlyAtExactHeight(t *testing.T) {
	m := NewHotfix("D", "D desc", func(data []byte, height uint64) ([]byte, bool) {
		if len(data) == 8 {
			return data[:4], true
		}
		return nil, false
	})
	m.Enabled = true
	m.Metadata.BlockHeight = 2

	data := []byte{1, 1, 1, 1, 1, 1, 1, 1}
	for height := uint64(0); height < 4; height++ {
		out, changed := m.RunHotfix(data, height)
		if height == 2 {
			if !changed || len(out) != 4 {
				t.Fatalf("expected a transform at height 2, got changed=%v out=%v", changed, out)
			}
		} else if changed {
			t.Fatalf("unexpected transform at height %d", height)
		}
	}
}

func TestRegistryConfigureNonStrictDefaultsHotfixDisabled(t *testing.T) {
	r := NewRegistry(false)
	r.Register(NewInitializeOnly("A", "", func(*merkle.Store) error { return nil }))
	r.Register(NewHotfix("D", "", func(d []byte, h uint64) ([]byte, bool) { return d, false }))

	if err := r.Configure(nil); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	a, _ := r.Get("A")
	d, _ := r.Get("D")
	if !a.Enabled {
		t.Fatalf("non-hotfix migrations should default to enabled")
	}
	if d.Enabled {
		t.Fatalf("hotfix migrations should default to disabled")
	}
}

func TestRegistryStrictModeRequiresExplicitConfig(t *testing.T) {
	r := NewRegistry(true)
	r.Register(NewInitializeOnly("A", "", func(*merkle.Store) error { return nil }))

	if err := r.Configure(nil); err == nil {
		t.Fatalf("strict mode should reject a missing config entry")
	}
	if err := r.Configure([]ConfigEntry{{Name: "A", BlockHeight: 1}}); err != nil {
		t.Fatalf("Configure with explicit entry: %v", err)
	}
}
