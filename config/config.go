// Package config loads the scraper's YAML configuration and turns it
// into the settings the binaries assemble their components from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pevans/regsnap/record"
	"github.com/pevans/regsnap/sources"
)

// Storage backends selectable via storage.type.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// DefaultRunTimeoutSeconds bounds a whole pass when run.timeout_seconds
// is unset.
const DefaultRunTimeoutSeconds = 300

var (
	// ErrUnknownStorageType indicates a storage.type outside the
	// supported set.
	ErrUnknownStorageType = errors.New("unknown storage type")

	// ErrUnknownStrategy indicates a source whose strategy has no
	// registered extractor.
	ErrUnknownStrategy = errors.New("unknown source strategy")

	// ErrInvalidAttempts indicates a negative run.attempts value.
	ErrInvalidAttempts = errors.New("run attempts must not be negative")

	// ErrMissingSourceURL indicates a configured source without a
	// listing URL.
	ErrMissingSourceURL = errors.New("source url is required")
)

// Config is the top-level file configuration.
type Config struct {
	HTTP    HTTPConfig     `yaml:"http"`
	Run     RunConfig      `yaml:"run"`
	Storage StorageConfig  `yaml:"storage"`
	Logging LoggingConfig  `yaml:"logging"`
	Sources []SourceConfig `yaml:"sources"`
}

// HTTPConfig controls the outbound HTTP client.
type HTTPConfig struct {
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout. Zero means unset and lets
// the fetch package apply its own default.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// RunConfig controls retry and concurrency limits for a pass.
type RunConfig struct {
	Attempts          int `yaml:"attempts"`
	SourceConcurrency int `yaml:"source_concurrency"`
	EnrichConcurrency int `yaml:"enrich_concurrency"`
	TimeoutSeconds    int `yaml:"timeout_seconds"`
}

// Timeout returns the deadline for a whole pass.
func (r RunConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// StorageConfig selects where artifacts are written.
type StorageConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// LoggingConfig controls log level and optional rotating file output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// SourceConfig is one scrape target from the config file.
type SourceConfig struct {
	Name     string      `yaml:"name"`
	URL      string      `yaml:"url"`
	Strategy string      `yaml:"strategy"`
	Tags     []TagConfig `yaml:"tags"`
}

// TagConfig is one key/value pair attached to a source's artifacts.
type TagConfig struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Load reads and parses the configuration file at path. The file must
// exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration from ~/.regsnap/config.yaml. Returns
// nil without error if the file doesn't exist.
func LoadDefault() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	path := filepath.Join(homeDir, ".regsnap", "config.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	return Load(path)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with working values. HTTP and retry
// limits stay zero here because the fetch and scrape packages supply
// their own defaults.
func (c *Config) ApplyDefaults() {
	if c.Run.TimeoutSeconds == 0 {
		c.Run.TimeoutSeconds = DefaultRunTimeoutSeconds
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageFile
	}
	if c.Storage.Path == "" {
		switch c.Storage.Type {
		case StorageSQLite:
			c.Storage.Path = "regsnap.db"
		default:
			c.Storage.Path = "data"
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
}

// Validate reports configuration mistakes that would otherwise surface
// mid-run. Call it after ApplyDefaults.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageFile, StorageSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageType, c.Storage.Type)
	}

	if c.Run.Attempts < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAttempts, c.Run.Attempts)
	}

	for _, src := range c.Sources {
		if src.URL == "" {
			return fmt.Errorf("%w (source %q)", ErrMissingSourceURL, src.Name)
		}
		if !sources.Known(sources.Strategy(src.Strategy)) {
			return fmt.Errorf("%w: %q (source %q)", ErrUnknownStrategy, src.Strategy, src.Name)
		}
	}

	return nil
}

// SourceList converts the configured sources into registry entries,
// falling back to the built-in registry when the file names none.
func (c *Config) SourceList() []sources.Source {
	if len(c.Sources) == 0 {
		return sources.Default()
	}

	list := make([]sources.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		s := sources.Source{
			Name:       src.Name,
			ListingURL: src.URL,
			Strategy:   sources.Strategy(src.Strategy),
		}
		for _, t := range src.Tags {
			s.Tags = append(s.Tags, record.Tag{Key: t.Key, Value: t.Value})
		}
		list = append(list, s)
	}

	return list
}
