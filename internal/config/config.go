// Package config loads exporter settings from defaults, an optional YAML file and the
// environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"go-extension-exporter/internal/browsers"
	"go-extension-exporter/internal/export"
	"go-extension-exporter/internal/logging"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "EXTEXPORT"

// FormatHTML selects the HTML report; any other format names a policy target OS
const FormatHTML = "html"

// Config holds all exporter configuration.
type Config struct {
	Export  ExportConfig `yaml:"export"`
	Source  SourceConfig `yaml:"source"`
	Icons   IconConfig   `yaml:"icons"`
	Cache   CacheConfig  `yaml:"cache"`
	Logging LogConfig    `yaml:"logging"`
}

// ExportConfig controls the generated artifact.
type ExportConfig struct {
	Browser        string `yaml:"browser"`
	// Format is used when -format is not given: html or a policy target OS
	Format         string `yaml:"format"`
	AllowUninstall bool   `yaml:"allow_uninstall" split_words:"true"`
	Locale         string `yaml:"locale"`
	OutputDir      string `yaml:"output_dir" split_words:"true"`
	RegUTF16       bool   `yaml:"reg_utf16" envconfig:"REG_UTF16"`
}

// SourceConfig selects where the inventory comes from.
type SourceConfig struct {
	// Browsers to scan; empty scans all supported browsers
	Browsers []string `yaml:"browsers"`
	// Input is a chrome.management.getAll JSON dump used instead of scanning profiles
	Input      string   `yaml:"input"`
	ExcludeIDs []string `yaml:"exclude_ids" envconfig:"EXCLUDE_IDS"`
}

// IconConfig controls icon inlining for HTML reports.
type IconConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// CacheConfig holds the inventory cache settings. An empty path disables the cache.
type CacheConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Browser:   string(browsers.Chrome),
			Format:    FormatHTML,
			Locale:    "en",
			OutputDir: ".",
		},
		Icons: IconConfig{
			Timeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 30 * time.Minute,
		},
		Logging: LogConfig{
			Level: "warn",
		},
	}
}

// Load applies the YAML file at path (if not empty) and then the environment on top of
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Each section gets its own prefix, e.g. EXTEXPORT_FORMAT and EXTEXPORT_ICON_TIMEOUT
	sections := []struct {
		prefix string
		target any
	}{
		{EnvPrefix, &cfg.Export},
		{EnvPrefix, &cfg.Source},
		{EnvPrefix + "_ICON", &cfg.Icons},
		{EnvPrefix + "_CACHE", &cfg.Cache},
		{EnvPrefix + "_LOG", &cfg.Logging},
	}
	for _, s := range sections {
		if err := envconfig.Process(s.prefix, s.target); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can act on.
func (c *Config) Validate() error {
	var errs []error
	if _, err := browsers.ParseBrowser(c.Export.Browser); err != nil {
		errs = append(errs, err)
	}
	for _, b := range c.Source.Browsers {
		if _, err := browsers.ParseBrowser(b); err != nil {
			errs = append(errs, err)
		}
	}
	if !strings.EqualFold(strings.TrimSpace(c.Export.Format), FormatHTML) {
		if _, err := export.ParseTargetOS(c.Export.Format); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}
	if c.Icons.Timeout <= 0 {
		errs = append(errs, errors.New("icon timeout must be positive"))
	}
	if c.Icons.Concurrency < 0 {
		errs = append(errs, errors.New("icon concurrency must not be negative"))
	}
	return errors.Join(errs...)
}

// SourceBrowsers returns the parsed browsers to scan. Call after Validate.
func (c *Config) SourceBrowsers() []browsers.Browser {
	var out []browsers.Browser
	for _, name := range c.Source.Browsers {
		if b, err := browsers.ParseBrowser(name); err == nil {
			out = append(out, b)
		}
	}
	return out
}

// LoggerConfig converts the logging section for the logging package.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Development = c.Logging.Development
	return cfg
}
