package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen        = "127.0.0.1:8080"
	DefaultLanguage      = "en"
	DefaultDBPath        = "arcsched.db"
	DefaultNotifyCron    = "@every 1m"
	DefaultFeedSize      = 50
	DefaultTestAlertRate = 6
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LogConfig controls the log threshold and optional file rotation.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	// File, if set, sends logs to a size-rotated file instead of stderr.
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// CaptureConfig describes the schedule page screenshot.
type CaptureConfig struct {
	// URL defaults to the local server root when empty.
	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for the local-hour column. Empty means
	// the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Language selects the label catalog ("en", "es").
	Language string `yaml:"language" json:"language"`

	// DBPath is the SQLite file holding user preferences.
	DBPath string `yaml:"db_path" json:"db_path"`

	// NotifyCron schedules automatic notification checks. Standard 5-field
	// expressions and descriptors such as "@every 1m" are accepted.
	NotifyCron string `yaml:"notify_cron" json:"notify_cron"`

	// FeedSize bounds the recent-notification feed the web UI polls.
	FeedSize int `yaml:"feed_size" json:"feed_size"`

	// TestAlertRate is the number of forced test notifications allowed per
	// minute.
	TestAlertRate int `yaml:"test_alert_rate" json:"test_alert_rate"`

	Log     LogConfig     `yaml:"log" json:"log"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// envOverrides lists the settings that may come from the environment.
type envOverrides struct {
	Listen   string `env:"ARCSCHED_LISTEN"`
	Timezone string `env:"ARCSCHED_TIMEZONE"`
	Language string `env:"ARCSCHED_LANGUAGE"`
	DBPath   string `env:"ARCSCHED_DB"`
	LogLevel string `env:"ARCSCHED_LOG_LEVEL"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if strings.TrimSpace(c.NotifyCron) == "" {
		c.NotifyCron = DefaultNotifyCron
	}
	if c.FeedSize <= 0 {
		c.FeedSize = DefaultFeedSize
	}
	if c.TestAlertRate <= 0 {
		c.TestAlertRate = DefaultTestAlertRate
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}

	if c.Capture.Output == "" {
		c.Capture.Output = "schedule.png"
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1280
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 900
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.NotifyCron); err != nil {
		return fmt.Errorf("config: notify_cron %q: %w", c.NotifyCron, err)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
		}
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		return errors.New("config: basic_auth needs both username and password")
	}
	return nil
}

// Location resolves Timezone, falling back to the host's local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ApplyEnv overrides fields from ARCSCHED_* environment variables. Unset or
// empty variables leave the file value alone.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.Timezone != "" {
		c.Timezone = o.Timezone
	}
	if o.Language != "" {
		c.Language = o.Language
	}
	if o.DBPath != "" {
		c.DBPath = o.DBPath
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path and applies environment
// overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600 perms.
//   - If the file exists, it is unmarshalled and normalized.
//
// Environment overrides are never written back to disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.Normalize()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename, with 0600
// permissions on the final file.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".arcsched-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
