package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "composer.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.toml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if cfg.Store.Backend != BackendMemory || cfg.Editor.HistoryLimit != 100 || cfg.Editor.AutosaveInterval != 2*time.Second {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[logger]
level = "debug"

[editor]
autosave_interval = "500ms"

[store]
backend = "sqlite"
sqlite_dsn = ":memory:"
cached = true
flush_interval = "1s"
colour = "blue"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logger.Level != "debug" || cfg.Logger.Format != "console" {
		t.Errorf("logger = %+v", cfg.Logger)
	}
	if cfg.Editor.AutosaveInterval != 500*time.Millisecond || cfg.Editor.HistoryLimit != 100 {
		t.Errorf("editor = %+v", cfg.Editor)
	}
	if cfg.Store.Backend != BackendSQLite || !cfg.Store.Cached || cfg.Store.FlushInterval != time.Second {
		t.Errorf("store = %+v", cfg.Store)
	}
	if len(cfg.Unrecognized) != 1 || cfg.Unrecognized[0] != "store.colour" {
		t.Errorf("unrecognized = %v", cfg.Unrecognized)
	}
	if p := cfg.Logger.Provider(); p.Level != "debug" || p.Format != "console" {
		t.Errorf("provider config = %+v", p)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		category goerrors.Category
	}{
		{"syntax", "[store\nbackend = 1", goerrors.CategoryBadInput},
		{"unknown backend", "[store]\nbackend = \"redis\"", goerrors.CategoryValidation},
		{"firestore needs project", "[store]\nbackend = \"firestore\"", goerrors.CategoryValidation},
		{"bad log format", "[logger]\nformat = \"xml\"", goerrors.CategoryValidation},
		{"negative history", "[editor]\nhistory_limit = -1", goerrors.CategoryValidation},
		{"tiny flush interval", "[store]\ncached = true\nflush_interval = \"1ms\"", goerrors.CategoryValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !goerrors.IsCategory(err, tt.category) {
				t.Errorf("err = %v, want category %v", err, tt.category)
			}
		})
	}
}
