// Package config provides configuration management for flowstate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"
)

const (
	// DefaultPort is the HTTP port the worker listens on.
	DefaultPort = 8077

	// DefaultMaxConns is the SQLite connection pool size.
	DefaultMaxConns = 4

	// DefaultInsightTimeframeDays is the default lookback window for
	// insights and tag analytics.
	DefaultInsightTimeframeDays = 30

	// DefaultLogLevel is the zerolog level used when none is configured.
	DefaultLogLevel = "info"

	dataDirName  = ".flowstate"
	dbFileName   = "flowstate.db"
	settingsFile = "settings.json"
)

// Config holds runtime settings. Fields map to the same-named keys in
// settings.json; environment variables win over the file.
type Config struct {
	Port                 int    `json:"FLOWSTATE_PORT"`
	MaxConns             int    `json:"FLOWSTATE_MAX_CONNS"`
	InsightTimeframeDays int    `json:"FLOWSTATE_INSIGHT_TIMEFRAME_DAYS"`
	LogLevel             string `json:"FLOWSTATE_LOG_LEVEL"`
}

// Default returns the configuration used when no settings file exists.
func Default() *Config {
	return &Config{
		Port:                 DefaultPort,
		MaxConns:             DefaultMaxConns,
		InsightTimeframeDays: DefaultInsightTimeframeDays,
		LogLevel:             DefaultLogLevel,
	}
}

// DataDir returns the flowstate data directory. FLOWSTATE_DATA_DIR overrides
// the default ~/.flowstate.
func DataDir() string {
	if dir := os.Getenv("FLOWSTATE_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dataDirName
	}
	return filepath.Join(home, dataDirName)
}

// DBPath returns the SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), dbFileName)
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsFile)
}

// Load reads settings.json, falling back to defaults for missing keys.
// A missing or unparseable file yields the defaults without error; env
// variables are applied last.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err == nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			cfg = Default()
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultMaxConns
	}
	if cfg.InsightTimeframeDays <= 0 {
		cfg.InsightTimeframeDays = DefaultInsightTimeframeDays
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FLOWSTATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Port = port
		}
	}
	if v := os.Getenv("FLOWSTATE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Save writes the configuration to settings.json.
func Save(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(SettingsPath(), data, 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	if _, err := os.Stat(SettingsPath()); err == nil {
		return nil
	}
	return Save(Default())
}

// EnsureAll creates the data directory and a default settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

var (
	cached   *Config
	cachedMu sync.Mutex
)

// Get returns the cached configuration, loading it on first use.
func Get() *Config {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	if cached == nil {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		cached = cfg
	}
	return cached
}

// GetPort returns the worker port, preferring the FLOWSTATE_PORT env
// variable over the settings file.
func GetPort() int {
	if v := os.Getenv("FLOWSTATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			return port
		}
	}
	return Get().Port
}
