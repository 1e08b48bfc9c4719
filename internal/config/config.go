package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Well-known keys the core itself consumes. Everything else is
// pass-through for plugins.
const (
	// KeyMaxDeltaBytes caps the inserted-text volume of a delta sent
	// to plugins; above it the update carries no delta.
	KeyMaxDeltaBytes = "max_delta_bytes"
	// KeyMaxRevisions is the revision log retention depth.
	KeyMaxRevisions = "max_revisions"
	// KeyTabSize is passed to plugins as editing metadata.
	KeyTabSize = "tab_size"
	// KeyTranslateTabs is passed to plugins as editing metadata.
	KeyTranslateTabs = "translate_tabs_to_spaces"
)

// Built-in fallbacks for the core's own keys.
const (
	DefaultMaxDeltaBytes = 8192
	DefaultMaxRevisions  = 32
	DefaultTabSize       = 4
)

// UserFileName is the file loaded from the client's config directory.
const UserFileName = "preferences.toml"

// Defaults returns the built-in base layer.
func Defaults() *Table {
	t := NewTable()
	t.Set(KeyTabSize, int64(DefaultTabSize))
	t.Set(KeyTranslateTabs, false)
	t.Set(KeyMaxDeltaBytes, int64(DefaultMaxDeltaBytes))
	t.Set(KeyMaxRevisions, int64(DefaultMaxRevisions))
	return t
}

// Manager collates configuration layers: built-in defaults, the
// user's config file, and runtime overrides set per view. Collation
// order is defaults < user < override.
type Manager struct {
	mu        sync.RWMutex
	defaults  *Table
	user      *Table
	userPath  string
	overrides map[string]*Table // keyed by view id
}

// NewManager returns a manager holding only the built-in defaults.
func NewManager() *Manager {
	return &Manager{
		defaults:  Defaults(),
		user:      NewTable(),
		overrides: make(map[string]*Table),
	}
}

// LoadUser reads the user layer from configDir/preferences.toml. A
// missing file leaves the layer empty and is not an error. It returns
// the path it will watch for changes.
func (m *Manager) LoadUser(configDir string) (string, error) {
	path := filepath.Join(configDir, UserFileName)
	t, err := LoadTOML(path)
	if err != nil {
		return path, err
	}
	m.mu.Lock()
	m.user = t
	m.userPath = path
	m.mu.Unlock()
	return path, nil
}

// ReloadUser re-reads the user layer and returns the keys whose
// collated values changed, with their new values. Removed keys are
// reported with a nil value.
func (m *Manager) ReloadUser() (*Table, error) {
	m.mu.Lock()
	path := m.userPath
	m.mu.Unlock()
	if path == "" {
		return NewTable(), nil
	}
	fresh, err := LoadTOML(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	old := m.collateLocked("")
	m.user = fresh
	updated := m.collateLocked("")
	m.mu.Unlock()

	return diff(old, updated), nil
}

// SetOverride stores a runtime override for a view, such as a user
// manually changing whitespace settings. A nil value clears the key.
func (m *Manager) SetOverride(viewID, key string, val any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ovr, ok := m.overrides[viewID]
	if !ok {
		ovr = NewTable()
		m.overrides[viewID] = ovr
	}
	if val == nil {
		ovr.Delete(key)
	} else {
		ovr.Set(key, val)
	}
}

// DropView discards a view's override layer.
func (m *Manager) DropView(viewID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, viewID)
}

// Collate returns the merged table for a view. An empty view id
// collates only the global layers.
func (m *Manager) Collate(viewID string) *Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collateLocked(viewID)
}

func (m *Manager) collateLocked(viewID string) *Table {
	out := m.defaults.Clone()
	out.Merge(m.user)
	if viewID != "" {
		out.Merge(m.overrides[viewID])
	}
	return out
}

// diff returns the keys whose values differ between old and updated,
// carrying the updated value, or nil for keys that disappeared.
func diff(old, updated *Table) *Table {
	changes := NewTable()
	for _, k := range updated.Keys() {
		nv, _ := updated.Get(k)
		ov, had := old.Get(k)
		if !had || !reflect.DeepEqual(ov, nv) {
			changes.Set(k, nv)
		}
	}
	for _, k := range old.Keys() {
		if _, still := updated.Get(k); !still {
			changes.Set(k, nil)
		}
	}
	return changes
}

// LoadTOML reads a TOML file into a Table. Keys are inserted in
// sorted order so repeated loads collate identically. A missing file
// yields an empty table.
func LoadTOML(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewTable(), nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	t := NewTable()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Set(k, raw[k])
	}
	return t, nil
}
