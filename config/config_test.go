package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/regsnap/record"
	"github.com/pevans/regsnap/sources"
)

// Test helper: write a config file into a temp dir and return its path
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad_FullFile verifies every section of the file is parsed
func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `http:
  user_agent: "test-agent/1.0"
  timeout_seconds: 5
run:
  attempts: 2
  source_concurrency: 3
  enrich_concurrency: 6
  timeout_seconds: 60
storage:
  type: "sqlite"
  path: "artifacts.db"
logging:
  level: "debug"
  file: "scraper.log"
  max_size_mb: 5
  max_backups: 2
sources:
  - name: "CSA"
    url: "https://www.securities-administrators.ca/news/"
    strategy: "csa"
    tags:
      - key: "CSASite"
        value: "CSA"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "test-agent/1.0", cfg.HTTP.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout())
	assert.Equal(t, 2, cfg.Run.Attempts)
	assert.Equal(t, time.Minute, cfg.Run.Timeout())
	assert.Equal(t, 3, cfg.Run.SourceConcurrency)
	assert.Equal(t, 6, cfg.Run.EnrichConcurrency)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "artifacts.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "scraper.log", cfg.Logging.File)
	assert.Equal(t, 5, cfg.Logging.MaxSizeMB)
	assert.Equal(t, 2, cfg.Logging.MaxBackups)

	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "CSA", cfg.Sources[0].Name)
	assert.Equal(t, "csa", cfg.Sources[0].Strategy)
	require.Len(t, cfg.Sources[0].Tags, 1)
	assert.Equal(t, "CSASite", cfg.Sources[0].Tags[0].Key)
}

// TestLoad_MissingFile verifies an explicit path must exist
func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// TestLoad_InvalidYAML verifies malformed files are rejected
func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `storage:
  - this is invalid because storage should be an object not a list
`)

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// TestLoadDefault_NoFile verifies a missing home config is not an error
func TestLoadDefault_NoFile(t *testing.T) {
	tmpDir := t.TempDir()

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", oldHome)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Nil(t, cfg, "should return nil when config file doesn't exist")
}

// TestLoadDefault_ReadsHomeFile verifies ~/.regsnap/config.yaml is used
func TestLoadDefault_ReadsHomeFile(t *testing.T) {
	tmpDir := t.TempDir()
	regsnapDir := filepath.Join(tmpDir, ".regsnap")
	require.NoError(t, os.MkdirAll(regsnapDir, 0o700))

	content := `storage:
  type: "file"
  path: "/var/lib/regsnap"
`
	require.NoError(t, os.WriteFile(filepath.Join(regsnapDir, "config.yaml"), []byte(content), 0o600))

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", oldHome)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "/var/lib/regsnap", cfg.Storage.Path)
}

// TestApplyDefaults_EmptyConfig verifies the zero config becomes runnable
func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, StorageFile, cfg.Storage.Type)
	assert.Equal(t, "data", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
	assert.Equal(t, 3, cfg.Logging.MaxBackups)
	assert.Equal(t, DefaultRunTimeoutSeconds, cfg.Run.TimeoutSeconds)
	assert.Zero(t, cfg.HTTP.TimeoutSeconds, "HTTP timeout default belongs to the fetch package")
	assert.Zero(t, cfg.Run.Attempts, "attempt default belongs to the scrape package")
}

// TestApplyDefaults_SQLitePath verifies the sqlite backend gets a db path
func TestApplyDefaults_SQLitePath(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Type: StorageSQLite}}
	cfg.ApplyDefaults()

	assert.Equal(t, "regsnap.db", cfg.Storage.Path)
}

// TestApplyDefaults_PreservesExplicit verifies set values are untouched
func TestApplyDefaults_PreservesExplicit(t *testing.T) {
	cfg := &Config{
		Run:     RunConfig{TimeoutSeconds: 30},
		Storage: StorageConfig{Type: StorageSQLite, Path: "custom.db"},
		Logging: LoggingConfig{Level: "warn", MaxSizeMB: 1, MaxBackups: 9},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, 30, cfg.Run.TimeoutSeconds)
	assert.Equal(t, "custom.db", cfg.Storage.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 1, cfg.Logging.MaxSizeMB)
	assert.Equal(t, 9, cfg.Logging.MaxBackups)
}

// TestValidate_UnknownStorageType verifies the storage backend is checked
func TestValidate_UnknownStorageType(t *testing.T) {
	cfg := Default()
	cfg.Storage.Type = "s3"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStorageType)
	assert.Contains(t, err.Error(), "s3")
}

// TestValidate_UnknownStrategy verifies source strategies are checked
func TestValidate_UnknownStrategy(t *testing.T) {
	cfg := Default()
	cfg.Sources = []SourceConfig{{
		Name:     "ESMA",
		URL:      "https://www.esma.europa.eu/press-news",
		Strategy: "esma",
	}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Contains(t, err.Error(), "esma")
}

// TestValidate_MissingSourceURL verifies sources need a listing URL
func TestValidate_MissingSourceURL(t *testing.T) {
	cfg := Default()
	cfg.Sources = []SourceConfig{{Name: "CSA", Strategy: "csa"}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSourceURL)
}

// TestValidate_NegativeAttempts verifies retry counts can't go negative
func TestValidate_NegativeAttempts(t *testing.T) {
	cfg := Default()
	cfg.Run.Attempts = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAttempts)
}

// TestValidate_Defaults verifies the default config passes validation
func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

// TestSourceList_FallsBackToRegistry verifies the built-in registry is
// used when the file names no sources
func TestSourceList_FallsBackToRegistry(t *testing.T) {
	cfg := Default()

	list := cfg.SourceList()
	assert.Equal(t, sources.Default(), list)
}

// TestSourceList_ConvertsConfiguredSources verifies file entries map onto
// registry entries
func TestSourceList_ConvertsConfiguredSources(t *testing.T) {
	cfg := Default()
	cfg.Sources = []SourceConfig{{
		Name:     "FCA",
		URL:      "https://www.fca.org.uk/news",
		Strategy: "fca",
		Tags:     []TagConfig{{Key: "FCASite", Value: "FCA"}},
	}}

	list := cfg.SourceList()
	require.Len(t, list, 1)
	assert.Equal(t, sources.Source{
		Name:       "FCA",
		ListingURL: "https://www.fca.org.uk/news",
		Strategy:   sources.StrategyFCA,
		Tags:       []record.Tag{{Key: "FCASite", Value: "FCA"}},
	}, list[0])
}
