// Package config loads the composer configuration from a TOML file.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"github.com/alimasry/go-composer/editor"
	"github.com/alimasry/go-composer/history"
	"github.com/alimasry/go-composer/logging/gologger"
)

const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// DefaultFlushInterval is how often a cached store flushes by default.
const DefaultFlushInterval = 5 * time.Second

// Config holds the combined configuration.
type Config struct {
	Logger LoggerConfig `toml:"logger"`
	Editor EditorConfig `toml:"editor"`
	Store  StoreConfig  `toml:"store"`

	// Unrecognized lists keys of the loaded file that matched no setting.
	Unrecognized []string `toml:"-"`
}

type LoggerConfig struct {
	Level     string   `toml:"level"`
	Format    string   `toml:"format"`
	AddSource bool     `toml:"add_source"`
	Focus     []string `toml:"focus"`
}

// EditorConfig holds session settings. A negative autosave interval turns
// periodic saving off.
type EditorConfig struct {
	HistoryLimit     int           `toml:"history_limit"`
	AutosaveInterval time.Duration `toml:"autosave_interval"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Backend          string        `toml:"backend"`
	Cached           bool          `toml:"cached"`
	FlushInterval    time.Duration `toml:"flush_interval"`
	SQLiteDSN        string        `toml:"sqlite_dsn"`
	FirestoreProject string        `toml:"firestore_project"`
	Collection       string        `toml:"collection"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "console",
		},
		Editor: EditorConfig{
			HistoryLimit:     history.DefaultLimit,
			AutosaveInterval: editor.DefaultAutosaveInterval,
		},
		Store: StoreConfig{
			Backend:       BackendMemory,
			FlushInterval: DefaultFlushInterval,
			SQLiteDSN:     "file:composer.db?cache=shared",
			Collection:    "documents",
		},
	}
}

// Load applies the file at path over the defaults and validates the
// result. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	} else if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "config: stat "+path)
	}

	// Keys absent from the file keep their default values.
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "config: parse "+path)
	}
	for _, key := range meta.Undecoded() {
		cfg.Unrecognized = append(cfg.Unrecognized, key.String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Logger),
		validation.Field(&c.Editor),
		validation.Field(&c.Store),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "config: invalid configuration")
	}
	return nil
}

func (c LoggerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("trace", "debug", "info", "warn", "error", "fatal")),
		validation.Field(&c.Format, validation.In("json", "console", "pretty")),
	)
}

func (c EditorConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.HistoryLimit, validation.Min(1)),
	)
}

func (c StoreConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendSQLite, BackendFirestore)),
		validation.Field(&c.FlushInterval, validation.When(c.Cached, validation.Required, validation.Min(10*time.Millisecond))),
		validation.Field(&c.SQLiteDSN, validation.When(c.Backend == BackendSQLite, validation.Required)),
		validation.Field(&c.FirestoreProject, validation.When(c.Backend == BackendFirestore, validation.Required)),
	)
}

// Provider returns the go-logger settings for this section.
func (c LoggerConfig) Provider() gologger.Config {
	return gologger.Config{
		Level:     c.Level,
		Format:    c.Format,
		AddSource: c.AddSource,
		Focus:     c.Focus,
	}
}
