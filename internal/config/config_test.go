package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/textcore/internal/config"
)

func TestTableOrderPreserved(t *testing.T) {
	tbl := config.NewTable()
	tbl.Set("zebra", 1)
	tbl.Set("apple", 2)
	tbl.Set("mango", 3)

	want := []string{"zebra", "apple", "mango"}
	got := tbl.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Re-setting an existing key keeps its position.
	tbl.Set("zebra", 9)
	if tbl.Keys()[0] != "zebra" {
		t.Error("re-set key moved position")
	}
}

func TestTableJSONRoundTripKeepsOrder(t *testing.T) {
	raw := `{"z_last_alphabetically":1,"a_first":true,"m_mid":"v"}`
	var tbl config.Table
	if err := json.Unmarshal([]byte(raw), &tbl); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(&tbl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != raw {
		t.Errorf("round trip = %s, want %s", out, raw)
	}
}

func TestManagerCollationPrecedence(t *testing.T) {
	dir := t.TempDir()
	userFile := filepath.Join(dir, config.UserFileName)
	content := "tab_size = 8\ntheme = \"dusk\"\n"
	if err := os.WriteFile(userFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := config.NewManager()
	if _, err := mgr.LoadUser(dir); err != nil {
		t.Fatalf("LoadUser: %v", err)
	}
	mgr.SetOverride("view-id-1", "tab_size", int64(2))

	// Defaults.
	global := mgr.Collate("")
	if got := global.Int(config.KeyMaxDeltaBytes, -1); got != config.DefaultMaxDeltaBytes {
		t.Errorf("max_delta_bytes = %d, want default %d", got, config.DefaultMaxDeltaBytes)
	}
	// User file beats defaults.
	if got := global.Int(config.KeyTabSize, -1); got != 8 {
		t.Errorf("tab_size = %d, want 8 from user file", got)
	}
	// Override beats user file, only for its view.
	if got := mgr.Collate("view-id-1").Int(config.KeyTabSize, -1); got != 2 {
		t.Errorf("view override tab_size = %d, want 2", got)
	}
	if got := mgr.Collate("view-id-2").Int(config.KeyTabSize, -1); got != 8 {
		t.Errorf("other view tab_size = %d, want 8", got)
	}
}

func TestReloadUserReportsChanges(t *testing.T) {
	dir := t.TempDir()
	userFile := filepath.Join(dir, config.UserFileName)
	if err := os.WriteFile(userFile, []byte("tab_size = 8\nword_wrap = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := config.NewManager()
	if _, err := mgr.LoadUser(dir); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(userFile, []byte("tab_size = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	changes, err := mgr.ReloadUser()
	if err != nil {
		t.Fatalf("ReloadUser: %v", err)
	}

	if v, ok := changes.Get(config.KeyTabSize); !ok || v.(int64) != 3 {
		t.Errorf("changes[tab_size] = %v, want 3", v)
	}
	// word_wrap disappeared; reported as nil.
	if v, ok := changes.Get("word_wrap"); !ok || v != nil {
		t.Errorf("changes[word_wrap] = %v (present %v), want explicit nil", v, ok)
	}
	// Unchanged collated keys are not reported.
	if _, ok := changes.Get(config.KeyMaxRevisions); ok {
		t.Error("unchanged key reported as a change")
	}
}

func TestLoadTOMLMissingFile(t *testing.T) {
	tbl, err := config.LoadTOML(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if tbl.Len() != 0 {
		t.Errorf("missing file table has %d keys, want 0", tbl.Len())
	}
}
