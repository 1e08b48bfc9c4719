// Package config provides the configuration tables attached to
// buffers and the layered loading that produces them.
//
// The core treats configuration values as opaque beyond a handful of
// its own keys; tables are collated from layers (built-in defaults,
// the user's config file, runtime overrides) and passed through to
// plugins on attach and on change.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Table is an ordered mapping from string keys to arbitrary values.
// Key order is insertion order and survives JSON round-trips, so a
// collated table serializes the same way every time.
type Table struct {
	keys []string
	vals map[string]any
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{vals: make(map[string]any)}
}

// Set stores a value, appending the key if it is new.
func (t *Table) Set(key string, val any) {
	if t.vals == nil {
		t.vals = make(map[string]any)
	}
	if _, ok := t.vals[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = val
}

// Get returns the value for key.
func (t *Table) Get(key string) (any, bool) {
	if t == nil || t.vals == nil {
		return nil, false
	}
	v, ok := t.vals[key]
	return v, ok
}

// Delete removes a key. Deleting an absent key is a no-op.
func (t *Table) Delete(key string) {
	if t == nil || t.vals == nil {
		return
	}
	if _, ok := t.vals[key]; !ok {
		return
	}
	delete(t.vals, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Clone returns a shallow copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable()
	if t == nil {
		return out
	}
	for _, k := range t.keys {
		out.Set(k, t.vals[k])
	}
	return out
}

// Merge overlays other onto t: other's values win, new keys append in
// other's order.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		t.Set(k, other.vals[k])
	}
}

// Int returns the key's value as an int, or fallback when absent or
// not numeric. TOML and JSON decoding produce int64 and float64; both
// are accepted.
func (t *Table) Int(key string, fallback int) int {
	v, ok := t.Get(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// Bool returns the key's value as a bool, or fallback.
func (t *Table) Bool(key string, fallback bool) bool {
	v, ok := t.Get(key)
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}

// String returns the key's value as a string, or fallback.
func (t *Table) String(key, fallback string) string {
	v, ok := t.Get(key)
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

// MarshalJSON implements json.Marshaler, writing keys in insertion
// order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(t.vals[k])
		if err != nil {
			return nil, fmt.Errorf("config key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving the document's
// key order.
func (t *Table) UnmarshalJSON(data []byte) error {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return fmt.Errorf("config table: expected object, got %s", parsed.Type)
	}
	*t = *NewTable()
	var err error
	parsed.ForEach(func(key, value gjson.Result) bool {
		var v any
		if uerr := json.Unmarshal([]byte(value.Raw), &v); uerr != nil {
			err = fmt.Errorf("config key %q: %w", key.String(), uerr)
			return false
		}
		t.Set(key.String(), v)
		return true
	})
	return err
}
