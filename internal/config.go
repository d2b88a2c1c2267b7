package internal

import (
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dagaz/internal/hasher"
)

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	State StateConfig       `yaml:"state"`
	Scan  ScanConfig        `yaml:"scan"`
	Sync  SyncConfig        `yaml:"sync"`
	Watch WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.State.Validate(); err != nil {
		return err
	}
	if err := c.Scan.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// StateConfig holds the snapshot state file settings.
type StateConfig struct {
	File string `yaml:"file"`
	// NoWrite computes and prints changes without persisting the new state.
	NoWrite bool `yaml:"no_write"`
}

// Validate validates the state configuration.
func (c *StateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.File, validation.Required),
	)
}

// ScanConfig holds the directory scan settings.
type ScanConfig struct {
	Root           string   `yaml:"root"`
	Excludes       []string `yaml:"excludes"`
	Algorithm      string   `yaml:"algorithm"`
	FollowSymlinks bool     `yaml:"follow_symlinks"`
	// Workers bounds the hashing and sync pools; 0 means all CPU cores.
	Workers int `yaml:"workers"`
}

// Validate validates the scan configuration.
func (c *ScanConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Algorithm, validation.Required,
			validation.In(string(hasher.Blake3), string(hasher.XXH3))),
		validation.Field(&c.Workers, validation.Min(0)),
	)
}

// SyncConfig holds the mirror target settings. An empty Target disables
// synchronization.
type SyncConfig struct {
	Target string `yaml:"target"`
}

// WatchConfig holds the watch mode settings.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Scan: ScanConfig{
			Algorithm: string(hasher.Blake3),
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}
