// Package migration implements the height-gated registry of schema and
// behavior changes (spec §4.11, §3): a named migration runs its
// initialize/update/hotfix callback against a backing store as the chain
// advances past its configured block height.
//
// Grounded on many-migration/tests/migrations.rs (original_source) for the
// exact height semantics, and on the teacher's viper+YAML config
// convention (pkg/config/config.go) for how a migration's block_height and
// metadata get loaded and enabled.
package migration

import "github.com/synnergy-chain/manynet/pkg/merkle"

// Kind determines which callbacks a migration runs.
type Kind int

const (
	KindInitializeOnly Kind = iota
	KindUpdateOnly
	KindInitializeAndUpdate
	KindHotfix
)

// InitializeFunc runs exactly once, the block at which height == BlockHeight.
type InitializeFunc func(store *merkle.Store) error

// UpdateFunc runs on every block from BlockHeight+1 onward.
type UpdateFunc func(store *merkle.Store) error

// HotfixFunc runs exactly once, only at height == BlockHeight, transforming
// a single piece of raw data in place; returning false leaves data untouched.
type HotfixFunc func(data []byte, height uint64) ([]byte, bool)

// Metadata is the height/provenance information attached to a migration.
type Metadata struct {
	BlockHeight uint64
	Issue       string
	Extra       map[string]any
}

// Migration is a named, height-gated schema or behavior change.
type Migration struct {
	Name        string
	Description string
	Kind        Kind
	Metadata    Metadata
	Enabled     bool

	initialize InitializeFunc
	update     UpdateFunc
	hotfix     HotfixFunc

	ranInitialize bool
}

// NewInitializeOnly builds a migration that runs fn exactly once at height
// == metadata.BlockHeight.
func NewInitializeOnly(name, description string, fn InitializeFunc) *Migration {
	return &Migration{Name: name, Description: description, Kind: KindInitializeOnly, initialize: fn}
}

// NewUpdateOnly builds a migration that runs fn on every block strictly
// after metadata.BlockHeight.
func NewUpdateOnly(name, description string, fn UpdateFunc) *Migration {
	return &Migration{Name: name, Description: description, Kind: KindUpdateOnly, update: fn}
}

// NewInitializeAndUpdate builds a migration combining both callbacks.
func NewInitializeAndUpdate(name, description string, init InitializeFunc, update UpdateFunc) *Migration {
	return &Migration{Name: name, Description: description, Kind: KindInitializeAndUpdate, initialize: init, update: update}
}

// NewHotfix builds a one-shot data-transform migration, disabled by
// default (§ "load_enable_all_regular_hotfix_disabled": hotfixes opt in
// explicitly via config, unlike regular migrations).
func NewHotfix(name, description string, fn HotfixFunc) *Migration {
	return &Migration{Name: name, Description: description, Kind: KindHotfix, hotfix: fn}
}

// RunInitialize runs the initialize callback exactly when height equals the
// migration's configured block height (§3, many-migration test "initialize").
func (m *Migration) RunInitialize(store *merkle.Store, height uint64) error {
	if !m.Enabled || m.initialize == nil {
		return nil
	}
	if height != m.Metadata.BlockHeight || m.ranInitialize {
		return nil
	}
	if err := m.initialize(store); err != nil {
		return err
	}
	m.ranInitialize = true
	return nil
}

// RunUpdate runs the update callback on every height strictly greater than
// the migration's configured block height (many-migration test "update").
func (m *Migration) RunUpdate(store *merkle.Store, height uint64) error {
	if !m.Enabled || m.update == nil {
		return nil
	}
	if height <= m.Metadata.BlockHeight {
		return nil
	}
	return m.update(store)
}

// RunHotfix applies the hotfix callback only at the exact configured
// height, returning the possibly-transformed data (many-migration test
// "hotfix").
func (m *Migration) RunHotfix(data []byte, height uint64) ([]byte, bool) {
	if !m.Enabled || m.hotfix == nil || height != m.Metadata.BlockHeight {
		return data, false
	}
	if out, ok := m.hotfix(data, height); ok {
		return out, true
	}
	return data, false
}
