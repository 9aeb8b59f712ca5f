// Command manyd runs a single many-node process: the Merkle-backed state
// store, the module dispatcher, the signed-request pipeline, and the HTTP
// transport gateway, wired together the way the teacher's cmd/synnergy and
// walletserver binaries wire their own subsystems with cobra + viper +
// logrus.
package main

import (
	"crypto/ed25519"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-chain/manynet/modules/account"
	"github.com/synnergy-chain/manynet/modules/idstore"
	"github.com/synnergy-chain/manynet/modules/kvstore"
	"github.com/synnergy-chain/manynet/modules/ledger"
	"github.com/synnergy-chain/manynet/modules/tokens"
	"github.com/synnergy-chain/manynet/modules/web"
	"github.com/synnergy-chain/manynet/pkg/config"
	"github.com/synnergy-chain/manynet/pkg/event"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/migration"
	"github.com/synnergy-chain/manynet/pkg/module"
)

// node bundles every long-lived subsystem a command needs, assembled once
// at startup and handed to whichever subcommand runs.
type node struct {
	cfg        *config.Config
	store      *merkle.Store
	events     *event.Log
	dispatcher *module.Dispatcher
	migrations *migration.Registry
	metrics    *module.Metrics
}

// loadConfig reads the node's configuration and sets up logging, mirroring
// bootInit's godotenv+viper+logrus sequence in the teacher's CLI.
func loadConfig(env string) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("manyd: load config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("manyd: open log file: %w", err)
		}
		logrus.SetOutput(f)
	}
	return cfg, nil
}

// loadOrCreateNodeKey reads a 32-byte Ed25519 seed from path, generating and
// persisting a fresh one on first run. No pack example persists a node
// signing key to disk (the teacher's wallet.go only ever derives keys in
// memory from a BIP-39 mnemonic), so this is a direct os/crypto-ed25519 use
// with no better-grounded substitute in the corpus.
func loadOrCreateNodeKey(path string) (ed25519.PrivateKey, error) {
	seed, err := os.ReadFile(path)
	if err == nil {
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("manyd: node key %s is not a %d-byte seed", path, ed25519.SeedSize)
		}
		return ed25519.NewKeyFromSeed(seed), nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("manyd: read node key: %w", err)
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("manyd: generate node key: %w", err)
	}
	_ = pub
	if err := os.WriteFile(path, priv.Seed(), 0o600); err != nil {
		return nil, fmt.Errorf("manyd: write node key: %w", err)
	}
	logrus.Infof("manyd: generated a new node key at %s", path)
	return priv, nil
}

// buildDispatcher registers every module enabled in cfg onto a fresh
// dispatcher, wiring modules/ledger as modules/account's send executor and
// modules/tokens as modules/ledger's symbol registry (§ DESIGN.md module
// dependency direction).
func buildDispatcher(cfg *config.Config, store *merkle.Store, events *event.Log, metrics *module.Metrics) *module.Dispatcher {
	d := module.NewDispatcher().WithMetrics(metrics)

	tokensModule := tokens.New(store)
	registry := tokens.NewSymbolRegistry(store)
	ledgerModule := ledger.New(store, events, registry)
	accountModule := account.New(store, ledgerModule)

	if cfg.ModuleEnabled("account") {
		d.Register("account", accountModule)
	}
	if cfg.ModuleEnabled("ledger") {
		d.Register("ledger", ledgerModule)
	}
	if cfg.ModuleEnabled("tokens") {
		d.Register("tokens", tokensModule)
	}
	if cfg.ModuleEnabled("kvstore") {
		d.Register("kvstore", kvstore.New(store))
	}
	if cfg.ModuleEnabled("idstore") {
		d.Register("idstore", idstore.New(store))
	}
	if cfg.ModuleEnabled("web") {
		d.Register("web", web.New(store))
	}
	return d
}

// buildMigrations registers every migration known to this binary and
// configures it from cfg (§4.11).
func buildMigrations(cfg *config.Config) (*migration.Registry, error) {
	reg := migration.NewRegistry(false)
	reg.Register(migration.NewLegacyErrorCodeFallback())

	entries := make([]migration.ConfigEntry, len(cfg.Migrations))
	legacyListed := false
	for i, m := range cfg.Migrations {
		entries[i] = migration.ConfigEntry{
			Name:        m.Name,
			BlockHeight: m.BlockHeight,
			Issue:       m.Issue,
			Extra:       m.Extra,
			Disabled:    m.Disabled,
		}
		if m.Name == "LegacyErrorCodeFallback" {
			legacyListed = true
		}
	}
	// LegacyErrorCodeFallback runs only on chains whose config lists it.
	if !legacyListed {
		entries = append(entries, migration.ConfigEntry{Name: "LegacyErrorCodeFallback", Disabled: true})
	}
	if err := reg.Configure(entries); err != nil {
		return nil, fmt.Errorf("manyd: configure migrations: %w", err)
	}
	return reg, nil
}

// setupNode loads configuration and opens every subsystem a command needs,
// short of the identity/server/gateway layer each subcommand builds for
// itself.
func setupNode(env string) (*node, error) {
	cfg, err := loadConfig(env)
	if err != nil {
		return nil, err
	}

	store, err := merkle.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("manyd: open store: %w", err)
	}

	events := event.NewLog(store)
	metrics := module.NewMetrics()
	dispatcher := buildDispatcher(cfg, store, events, metrics)
	migrations, err := buildMigrations(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &node{cfg: cfg, store: store, events: events, dispatcher: dispatcher, migrations: migrations, metrics: metrics}, nil
}
