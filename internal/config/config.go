package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file at the project root.
const FileName = "tally.yaml"

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger"`
	Storage StorageConfig `yaml:"storage"`
	Fees    FeesConfig    `yaml:"fees"`
	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
	Git     GitConfig     `yaml:"git"`
}

// LedgerConfig identifies the ledger and the clock its messages use.
type LedgerConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
	Timezone string `yaml:"timezone"` // IANA name, e.g. "Africa/Nairobi"
}

// StorageConfig locates the database.
type StorageConfig struct {
	Path string `yaml:"path"` // relative paths are resolved against the project root
}

// FeesConfig controls the synthetic monthly overdraft fee rows.
type FeesConfig struct {
	Category string `yaml:"category"`
}

// SyncConfig controls `tally watch`.
type SyncConfig struct {
	Schedule string `yaml:"schedule"` // cron expression
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a tally.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(name string) *Config {
	return &Config{
		Ledger: LedgerConfig{
			Name:     name,
			Currency: "KES",
			Timezone: "Africa/Nairobi",
		},
		Storage: StorageConfig{
			Path: filepath.Join("data", "tally.db"),
		},
		Fees: FeesConfig{
			Category: "fees",
		},
		Sync: SyncConfig{
			Schedule: "*/15 * * * *",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Tally",
			AuthorEmail: "tally@cleared.dev",
		},
	}
}

// LoadProject reads <root>/tally.yaml, loads <root>/.env if present and
// applies TALLY_* overrides from the environment. Variables already set in
// the environment win over .env values.
func LoadProject(root string) (*Config, error) {
	cfg, err := Load(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}

	envPath := filepath.Join(root, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envPath, err)
	}
	cfg.ApplyEnv(os.LookupEnv)

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TALLY_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for _, o := range []struct {
		key string
		dst *string
	}{
		{"TALLY_TIMEZONE", &c.Ledger.Timezone},
		{"TALLY_CURRENCY", &c.Ledger.Currency},
		{"TALLY_DB_PATH", &c.Storage.Path},
		{"TALLY_FEES_CATEGORY", &c.Fees.Category},
		{"TALLY_SYNC_SCHEDULE", &c.Sync.Schedule},
		{"TALLY_LOG_LEVEL", &c.Log.Level},
		{"TALLY_LOG_FORMAT", &c.Log.Format},
	} {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// Location returns the ledger time zone. An empty timezone is time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Ledger.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Ledger.Timezone, err)
	}
	return loc, nil
}

// DBPath resolves the storage path against root.
func (c *Config) DBPath(root string) string {
	if c.Storage.Path == ":memory:" || filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(root, c.Storage.Path)
}
