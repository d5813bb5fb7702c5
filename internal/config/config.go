// Package config loads the caldate command configuration from a YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cyp0633/caldate/recurrence"
	"github.com/cyp0633/caldate/timezone"
	"github.com/cyp0633/caldate/week"
)

// Environment variables that override file values.
const (
	EnvTimezone      = "CALDATE_TIMEZONE"
	EnvWeekStart     = "CALDATE_WEEK_START"
	EnvMaxIterations = "CALDATE_MAX_ITERATIONS"
	EnvLogLevel      = "CALDATE_LOG_LEVEL"
)

// Supported WeekStart values.
const (
	WeekStartSunday = "sunday"
	WeekStartMonday = "monday"
	WeekStartISO    = "iso"
)

const defaultProductID = "-//Caldate//Go Calendar//EN"

// CacheConfig sizes the instance cache.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// Config is the top-level configuration.
type Config struct {
	// Timezone is the IANA zone recurrences and weeks are computed in when a
	// command does not name one. It replaces the process-local zone.
	Timezone string `yaml:"timezone"`

	// WeekStart selects week numbering:
	//   - "sunday" (default): weeks start Sunday, week 1 contains January 1
	//   - "monday": weeks start Monday, week 1 contains January 1
	//   - "iso": ISO 8601 weeks
	WeekStart string `yaml:"week_start"`

	// MaxIterations caps bounded recurrence searches.
	MaxIterations int `yaml:"max_iterations"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// ProductID is written as PRODID on exported calendars.
	ProductID string `yaml:"product_id"`

	Cache CacheConfig `yaml:"cache"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:      "UTC",
		WeekStart:     WeekStartSunday,
		MaxIterations: recurrence.DefaultMaxIterations,
		LogLevel:      "info",
		ProductID:     defaultProductID,
		Cache: CacheConfig{
			TTL:        recurrence.DefaultCacheConfig.TTL,
			MaxEntries: recurrence.DefaultCacheConfig.MaxEntries,
		},
	}
}

// Normalize fills in missing values with defaults and canonicalizes case.
// Unknown values are left for Validate to reject.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart == "" {
		c.WeekStart = WeekStartSunday
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = recurrence.DefaultMaxIterations
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ProductID == "" {
		c.ProductID = defaultProductID
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = recurrence.DefaultCacheConfig.TTL
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = recurrence.DefaultCacheConfig.MaxEntries
	}
}

// Validate reports values Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := timezone.Load(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	switch c.WeekStart {
	case WeekStartSunday, WeekStartMonday, WeekStartISO:
	default:
		return fmt.Errorf("invalid week_start '%s': use sunday, monday or iso", c.WeekStart)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level '%s': use debug, info, warn or error", c.LogLevel)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables read through lookup,
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvTimezone); ok && v != "" {
		c.Timezone = v
	}
	if v, ok := lookup(EnvWeekStart); ok && v != "" {
		c.WeekStart = v
	}
	if v, ok := lookup(EnvMaxIterations); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxIterations, err)
		}
		c.MaxIterations = n
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	c.Normalize()
	return nil
}

// WeekConfig returns the week numbering selected by WeekStart, computed in
// the configured timezone.
func (c *Config) WeekConfig() (week.Config, error) {
	var cfg week.Config
	switch c.WeekStart {
	case WeekStartISO:
		cfg = week.ISOConfig()
	case WeekStartMonday:
		cfg = week.DefaultConfig()
		cfg.WeekStartsOn = time.Monday
	default:
		cfg = week.DefaultConfig()
	}
	z, err := timezone.Load(c.Timezone)
	if err != nil {
		return cfg, err
	}
	return cfg.InZone(z.OrElse(nil)), nil
}

// Load loads configuration from the given YAML path.
//
// A missing file is created with the defaults (0600) and the defaults are
// returned. An empty path returns the defaults without touching disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file and rename.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".caldate-config-*.tmp")
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
