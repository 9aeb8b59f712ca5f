package migration

import (
	"fmt"
	"sort"

	"github.com/synnergy-chain/manynet/pkg/merkle"
)

// Registry holds every migration known to the binary and drives them
// against the chain's height.
type Registry struct {
	byName map[string]*Migration
	strict bool
}

// NewRegistry builds an empty registry. In strict mode, Configure rejects
// any migration that lacks an explicit config entry, forcing every
// behavior change onto a chain's migration config before it can run.
func NewRegistry(strict bool) *Registry {
	return &Registry{byName: make(map[string]*Migration), strict: strict}
}

// Register adds a migration in its disabled state; Configure enables it.
func (r *Registry) Register(m *Migration) {
	r.byName[m.Name] = m
}

// ConfigEntry is one chain's override of a migration's height/metadata and
// enabled flag, as loaded from the server's YAML config.
type ConfigEntry struct {
	Name        string
	BlockHeight uint64
	Issue       string
	Extra       map[string]any
	Disabled    bool
}

// Configure applies entries to the registered migrations, enabling
// non-hotfix migrations by default (matching
// load_enable_all_regular_migrations) and hotfixes only when explicitly
// listed. In strict mode, every registered migration must appear in
// entries.
func (r *Registry) Configure(entries []ConfigEntry) error {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		m, ok := r.byName[e.Name]
		if !ok {
			return fmt.Errorf("migration: config references unknown migration %q", e.Name)
		}
		m.Metadata = Metadata{BlockHeight: e.BlockHeight, Issue: e.Issue, Extra: e.Extra}
		m.Enabled = !e.Disabled
		seen[e.Name] = true
	}
	for name, m := range r.byName {
		if seen[name] {
			continue
		}
		if r.strict {
			return fmt.Errorf("migration: strict mode requires a config entry for %q", name)
		}
		if m.Kind == KindHotfix {
			m.Enabled = false
			continue
		}
		if m.Metadata.BlockHeight == 0 {
			m.Metadata.BlockHeight = 1
		}
		m.Enabled = true
	}
	return nil
}

// Get returns a registered migration by name.
func (r *Registry) Get(name string) (*Migration, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// RunInitializers runs every enabled migration's initialize callback for
// height, in a deterministic name-sorted order.
func (r *Registry) RunInitializers(store *merkle.Store, height uint64) error {
	for _, name := range r.sortedNames() {
		if err := r.byName[name].RunInitialize(store, height); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

// RunUpdates runs every enabled migration's update callback for height.
func (r *Registry) RunUpdates(store *merkle.Store, height uint64) error {
	for _, name := range r.sortedNames() {
		if err := r.byName[name].RunUpdate(store, height); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

// RunHotfixes applies every enabled hotfix to data at height, folding
// transformations in name-sorted order.
func (r *Registry) RunHotfixes(data []byte, height uint64) []byte {
	for _, name := range r.sortedNames() {
		data, _ = r.byName[name].RunHotfix(data, height)
	}
	return data
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
