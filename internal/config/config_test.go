package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "caldate.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caldate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: Europe/Berlin\nweek_start: ISO\ncache:\n  ttl: 2m\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, WeekStartISO, cfg.WeekStart)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 10000, cfg.MaxIterations)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caldate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caldate.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "America/Chicago"
	cfg.MaxIterations = 500
	cfg.Cache.TTL = 90 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	assert.Error(t, Save("", cfg))
	assert.Error(t, Save(path, nil))
}

func TestNormalize(t *testing.T) {
	cfg := &Config{WeekStart: " ISO ", LogLevel: "WARN", MaxIterations: -1}
	cfg.Normalize()

	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, WeekStartISO, cfg.WeekStart)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 10000, cfg.MaxIterations)
	assert.NotEmpty(t, cfg.ProductID)
	assert.NoError(t, cfg.Validate())

	empty := &Config{}
	empty.Normalize()
	assert.Equal(t, WeekStartSunday, empty.WeekStart)
	assert.Equal(t, "info", empty.LogLevel)
	assert.NoError(t, empty.Validate())
}

func TestValidate_RejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "week start", mutate: func(c *Config) { c.WeekStart = "isoo" }},
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "LOUD" }},
		{name: "timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			cfg.Normalize()
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvTimezone:      "Asia/Tokyo",
		EnvWeekStart:     "Monday",
		EnvMaxIterations: "250",
		EnvLogLevel:      "DEBUG",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
	assert.Equal(t, WeekStartMonday, cfg.WeekStart)
	assert.Equal(t, 250, cfg.MaxIterations)
	assert.Equal(t, "debug", cfg.LogLevel)

	env[EnvMaxIterations] = "many"
	assert.Error(t, DefaultConfig().ApplyEnv(lookup))
}

func TestWeekConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Europe/Berlin"

	cfg.WeekStart = WeekStartISO
	wc, err := cfg.WeekConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, wc.WeekStartsOn)
	assert.Equal(t, 4, wc.FirstWeekContainsDate)
	require.NotNil(t, wc.Timezone)
	assert.Equal(t, "Europe/Berlin", wc.Timezone.Name())

	cfg.WeekStart = WeekStartMonday
	wc, err = cfg.WeekConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, wc.WeekStartsOn)
	assert.Equal(t, 1, wc.FirstWeekContainsDate)

	cfg.Timezone = "Nowhere/Land"
	_, err = cfg.WeekConfig()
	assert.Error(t, err)
	assert.Error(t, cfg.Validate())
}
