package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Providers.Roots) != 3 {
		t.Errorf("got %d provider roots, want 3 defaults", len(cfg.Providers.Roots))
	}
	if cfg.Assembly.ContextWindow != 200000 {
		t.Errorf("ContextWindow = %d, want 200000", cfg.Assembly.ContextWindow)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.DataDir = "/custom/data"
	cfg.Providers.Roots = []ProviderRoot{{Name: "claude", LogRoot: "/custom/claude", Enabled: true}}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DataDir != "/custom/data" {
		t.Errorf("DataDir = %q, want %q", loaded.DataDir, "/custom/data")
	}
	if len(loaded.Providers.Roots) != 1 || loaded.Providers.Roots[0].LogRoot != "/custom/claude" {
		t.Errorf("Providers.Roots = %+v, want one root at /custom/claude", loaded.Providers.Roots)
	}
}

func TestEnabledRoots_FiltersDisabled(t *testing.T) {
	cfg := Default()
	cfg.Providers.Roots = []ProviderRoot{
		{Name: "claude", LogRoot: "/a", Enabled: true},
		{Name: "codex", LogRoot: "/b", Enabled: false},
	}
	enabled := cfg.EnabledRoots()
	if len(enabled) != 1 || enabled[0].Name != "claude" {
		t.Errorf("EnabledRoots = %+v, want only claude", enabled)
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := []struct {
		in   string
		want string
	}{
		{"~/data", home + "/data"},
		{"/abs/path", "/abs/path"},
		{"", ""},
		{"~", home},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandHome(tt.in); got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIndexPath_JoinsDataDirAndExpandsHome(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "~/agtrace-data"
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, "agtrace-data", "index.db")
	if got := cfg.IndexPath(); got != want {
		t.Errorf("IndexPath() = %q, want %q", got, want)
	}
}

func TestHash_ChangesWhenConfigChanges(t *testing.T) {
	a := Default()
	b := Default()
	b.DataDir = "/something/else"

	if a.Hash() == b.Hash() {
		t.Errorf("Hash() did not change after DataDir changed")
	}
}

func TestApplyEnvOverrides_TakesPrecedenceOverFile(t *testing.T) {
	t.Setenv("AGTRACE_DATA_DIR", "/env/override")
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.DataDir = "/file/value"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DataDir != "/env/override" {
		t.Errorf("DataDir = %q, want env override %q", loaded.DataDir, "/env/override")
	}
}

func TestFlexibleStringSlice_AcceptsStringsAndNumbers(t *testing.T) {
	var f FlexibleStringSlice
	if err := f.UnmarshalJSON([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("UnmarshalJSON(strings): %v", err)
	}
	if len(f) != 2 || f[0] != "a" {
		t.Errorf("got %v, want [a b]", f)
	}

	var g FlexibleStringSlice
	if err := g.UnmarshalJSON([]byte(`[1, 2]`)); err != nil {
		t.Fatalf("UnmarshalJSON(numbers): %v", err)
	}
	if len(g) != 2 || g[0] != "1" {
		t.Errorf("got %v, want [1 2]", g)
	}
}
