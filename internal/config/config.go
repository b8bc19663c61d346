package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/monitoring"
)

// DefaultPath is used when no config path is given.
const DefaultPath = "configs/netsync.yaml"

// Config is the whole tool configuration.
type Config struct {
	DNS        DNSConfig        `yaml:"dns"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Inventory  InventoryConfig  `yaml:"inventory"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DNSConfig selects the DNS backend and maps domains to registrar names.
type DNSConfig struct {
	ProviderConfig `yaml:",inline"`
	Registrars     RegistrarMap `yaml:"registrars"`
}

// MonitoringConfig selects the monitoring backend.
type MonitoringConfig struct {
	ProviderConfig `yaml:",inline"`
	DefaultGroup   int `yaml:"default_group"`
}

// InventoryConfig locates the local inventory database.
type InventoryConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	Format      string `yaml:"format"`
}

// Default returns a configuration with every default applied and no
// backends selected.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration from path. An empty path means DefaultPath,
// which may be absent; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg, err := LoadFromPath(DefaultPath)
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return cfg, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from the given file path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.DNS.expandEnv()
	cfg.Monitoring.expandEnv()
	cfg.applyDefaults()

	if cfg.Monitoring.DefaultGroup < 0 {
		return nil, fmt.Errorf("config: monitoring.default_group must be positive, got %d", cfg.Monitoring.DefaultGroup)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Monitoring.DefaultGroup == 0 {
		c.Monitoring.DefaultGroup = monitoring.DefaultGroup
	}
	if c.Inventory.Path == "" {
		c.Inventory.Path = "netsync.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.DNS.Settings == nil {
		c.DNS.Settings = map[string]string{}
	}
	if c.Monitoring.Settings == nil {
		c.Monitoring.Settings = map[string]string{}
	}
}
