// Package config loads server configuration from an optional YAML file and
// SIZES_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "SIZES_"
	maxConfigFileSize = 1024 * 1024
)

// Config is the complete runtime configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Limits  LimitsConfig  `koanf:"limits"`
	Reading ReadingConfig `koanf:"reading"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Prefs   PrefsConfig   `koanf:"prefs"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
	MaxMemoryBytes  int64         `koanf:"max_memory_bytes"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LimitsConfig struct {
	MaxFiles int `koanf:"max_files"`
}

type ReadingConfig struct {
	WordsPerMinute int `koanf:"words_per_minute"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type PrefsConfig struct {
	CookieName   string `koanf:"cookie_name"`
	SecureCookie bool   `koanf:"secure_cookie"`
	DefaultTheme string `koanf:"default_theme"`
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func defaults() map[string]any {
	return map[string]any{
		"server.host":              "",
		"server.port":              8080,
		"server.max_upload_bytes":  int64(100 * 1024 * 1024),
		"server.max_memory_bytes":  int64(10 * 1024 * 1024),
		"server.shutdown_timeout":  "10s",
		"limits.max_files":         100,
		"reading.words_per_minute": 200,
		"log.level":                "info",
		"log.format":               "text",
		"metrics.enabled":          true,
		"metrics.path":             "/metrics",
		"prefs.cookie_name":        "sizes_prefs",
		"prefs.secure_cookie":      false,
		"prefs.default_theme":      "dracula",
	}
}

// Load reads configuration in order of increasing precedence: defaults, the
// YAML file at path (skipped when path is empty or the file is missing),
// then environment variables such as SIZES_SERVER_PORT -> server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}

		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps SIZES_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))

	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}

	return section + "." + field
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return content, nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}

	if c.Server.MaxMemoryBytes <= 0 {
		errs = append(errs, errors.New("server.max_memory_bytes must be positive"))
	}

	if c.Limits.MaxFiles <= 0 {
		errs = append(errs, errors.New("limits.max_files must be positive"))
	}

	if c.Reading.WordsPerMinute <= 0 {
		errs = append(errs, errors.New("reading.words_per_minute must be positive"))
	}

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path))
	}

	if c.Prefs.CookieName == "" {
		errs = append(errs, errors.New("prefs.cookie_name is required"))
	}

	return errors.Join(errs...)
}

// SlogLevel parses the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", c.Log.Level, err)
	}

	return level, nil
}

// NewLogger builds the slog logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
