package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Upstream contains connection settings for the meal-ordering API.
type Upstream struct {
	BaseURL                string `toml:"base_url"`
	Login                  string `toml:"login"`
	Password               string `toml:"password"`
	DeliveryPlaceID        int    `toml:"delivery_place_id"`
	RequestIntervalSeconds int    `toml:"request_interval_seconds"`
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`
	UserAgent              string `toml:"user_agent"`
}

// Schedule contains the target date and time slot settings.
type Schedule struct {
	Slots     []string `toml:"slots"`
	Timezone  string   `toml:"timezone"`
	DaysAhead int      `toml:"days_ahead"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyURL        string `toml:"ntfy_url"`
	Topic          string `toml:"topic"`
	Token          string `toml:"token"`
	RequestTimeout int    `toml:"request_timeout"`
	Errors         bool   `toml:"errors"`
}

// Scraper contains slot chain behaviour switches.
type Scraper struct {
	// ContinueOnError isolates slot failures: a failed slot is recorded and the
	// remaining slots still run. Off by default, so the first failure aborts the run.
	ContinueOnError bool `toml:"continue_on_error"`
}

// History contains configuration for the run ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the scraper.
//
// Configuration sections by subsystem:
//   - Paths: scraped data, state, and log directories
//   - Upstream: meal-ordering API endpoint, credentials, pacing
//   - Schedule: time slots, time zone, and target date offset
//   - Notifications: ntfy completion notification settings
//   - Scraper: failure isolation between slots
//   - History: SQLite run ledger
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Upstream      Upstream      `toml:"upstream"`
	Schedule      Schedule      `toml:"schedule"`
	Notifications Notifications `toml:"notifications"`
	Scraper       Scraper       `toml:"scraper"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lunchscraper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestInterval is the minimum spacing between upstream calls.
func (c *Config) RequestInterval() time.Duration {
	return time.Duration(c.Upstream.RequestIntervalSeconds) * time.Second
}

// RequestTimeout is the per-request upstream timeout; zero means none.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Upstream.RequestTimeoutSeconds) * time.Second
}

// Location resolves the configured time zone used to compute the target date.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Schedule.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}

// LockPath is the file used to keep a single scraper run active at a time.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "lunchscraper.lock")
}

// LockDir holds per-date lock files kept out of the data tree.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
