package main

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/synnergy-chain/manynet/pkg/config"
	"github.com/synnergy-chain/manynet/pkg/event"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/module"
)

func openTestStore(t *testing.T) *merkle.Store {
	t.Helper()
	store, err := merkle.Open(filepath.Join(t.TempDir(), "node.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadOrCreateNodeKeyGeneratesThenReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")

	priv1, err := loadOrCreateNodeKey(path)
	if err != nil {
		t.Fatalf("loadOrCreateNodeKey (generate): %v", err)
	}
	if len(priv1) != ed25519.PrivateKeySize {
		t.Fatalf("got key of size %d", len(priv1))
	}

	priv2, err := loadOrCreateNodeKey(path)
	if err != nil {
		t.Fatalf("loadOrCreateNodeKey (reload): %v", err)
	}
	if !priv1.Equal(priv2) {
		t.Fatalf("reloaded key does not match the generated one")
	}
}

func TestBuildDispatcherRegistersEnabledModulesOnly(t *testing.T) {
	store := openTestStore(t)
	events := event.NewLog(store)

	cfg := &config.Config{}
	cfg.Modules = map[string]config.ModuleConfig{
		"web": {Enabled: false},
	}

	d := buildDispatcher(cfg, store, events, module.NewMetrics())

	if _, ok := d.Lookup("ledger.send"); !ok {
		t.Fatalf("expected ledger module to be registered by default")
	}
	if _, ok := d.Lookup("web.deploy"); ok {
		t.Fatalf("expected web module to be disabled")
	}
}

func TestBuildMigrationsConfiguresLegacyErrorCodeFallback(t *testing.T) {
	cfg := &config.Config{
		Migrations: []config.MigrationEntry{
			{Name: "LegacyErrorCodeFallback", BlockHeight: 0},
		},
	}

	reg, err := buildMigrations(cfg)
	if err != nil {
		t.Fatalf("buildMigrations: %v", err)
	}
	if reg == nil {
		t.Fatalf("expected a non-nil registry")
	}
}
