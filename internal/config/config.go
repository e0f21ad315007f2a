package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/mlsorensen/gobodyscale"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Profile   ProfileConfig   `yaml:"profile"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	LogLevel  string          `yaml:"log_level" default:"info"`
}

// DeviceConfig selects the scale to connect to.
type DeviceConfig struct {
	NamePrefix  string        `yaml:"name_prefix" default:"1byone"`
	ScanTimeout time.Duration `yaml:"scan_timeout" default:"15s"`
}

// ProfileConfig selects the user. File takes precedence over User.
type ProfileConfig struct {
	File string                  `yaml:"file"`
	User gobodyscale.UserProfile `yaml:"user"`
}

// ReconcileConfig tunes how readings collapse into weigh-ins.
type ReconcileConfig struct {
	Window time.Duration `yaml:"window" default:"60s"`
	Quiet  time.Duration `yaml:"quiet" default:"5s"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" default:"localhost:9105"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gobodyscale")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)

	cfg.Profile.User = gobodyscale.UserProfile{
		Name:     "default",
		Sex:      gobodyscale.SexMale,
		Age:      30,
		HeightCm: 175,
		Activity: gobodyscale.ActivityModerate,
		Unit:     gobodyscale.UnitKG,
	}
	return cfg
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in profile.file is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Profile.File = expandTilde(cfg.Profile.File)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Device.NamePrefix == "" {
		return fmt.Errorf("device.name_prefix must not be empty")
	}

	if c.Device.ScanTimeout <= 0 {
		return fmt.Errorf("device.scan_timeout must be > 0")
	}

	if c.Reconcile.Window <= 0 {
		return fmt.Errorf("reconcile.window must be > 0")
	}

	if c.Reconcile.Quiet <= 0 {
		return fmt.Errorf("reconcile.quiet must be > 0")
	}

	if c.Profile.File == "" {
		if err := c.Profile.User.Validate(); err != nil {
			return fmt.Errorf("profile.user: %w", err)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
