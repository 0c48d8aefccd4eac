package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yiblet/rewind/internal/store"
)

const (
	DefaultLimit           = 1000
	MaxLimit               = 100000
	DefaultChannelCapacity = 256
	MaxChannelCapacity     = 65536
)

// Config represents the rewind configuration
type Config struct {
	DBPath          string `yaml:"db_path,omitempty"`
	DefaultLimit    int    `yaml:"default_limit"`
	DefaultMode     string `yaml:"default_mode"`
	ChannelCapacity int    `yaml:"channel_capacity"`
	LogLevel        string `yaml:"log_level"`
	LogFile         string `yaml:"log_file,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultLimit:    DefaultLimit,
		DefaultMode:     store.ModeGlobal.String(),
		ChannelCapacity: DefaultChannelCapacity,
		LogLevel:        "warn",
	}
}

// Mode returns the parsed default mode
func (c *Config) Mode() (store.Mode, error) {
	return store.ParseMode(c.DefaultMode)
}

// Level returns the parsed log level
func (c *Config) Level() (slog.Level, error) {
	return ParseLevel(c.LogLevel)
}

// ParseLevel parses debug, info, warn or error, ignoring case
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", s)
	}
	return level, nil
}

// ConfigManager manages configuration persistence
type ConfigManager struct {
	configPath string
}

// NewConfigManager creates a manager for .config/rewind/config.yaml under home
func NewConfigManager(home string) (*ConfigManager, error) {
	if home == "" {
		return nil, errors.New("cannot resolve config path: home directory unknown")
	}

	configPath := filepath.Join(home, ".config", "rewind", "config.yaml")
	return &ConfigManager{
		configPath: configPath,
	}, nil
}

// NewConfigManagerWithPath creates a config manager with custom config path
func NewConfigManagerWithPath(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// Load reads the configuration from file, or returns default if file doesn't exist.
// Keys missing from the file keep their defaults.
func (cm *ConfigManager) Load() (*Config, error) {
	config, err := cm.read()
	if err != nil {
		return nil, err
	}

	if err := cm.validateAndSetDefaults(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// read parses the file over the defaults without validating it
func (cm *ConfigManager) read() (*Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(cm.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// Save writes the configuration to file
func (cm *ConfigManager) Save(config *Config) error {
	// Validate configuration before saving
	if err := cm.validateAndSetDefaults(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Ensure config directory exists
	configDir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validateAndSetDefaults validates configuration and normalizes values
func (cm *ConfigManager) validateAndSetDefaults(config *Config) error {
	if config.DefaultLimit <= 0 || config.DefaultLimit > MaxLimit {
		return fmt.Errorf("default_limit must be between 1 and %d", MaxLimit)
	}

	if config.ChannelCapacity <= 0 || config.ChannelCapacity > MaxChannelCapacity {
		return fmt.Errorf("channel_capacity must be between 1 and %d", MaxChannelCapacity)
	}

	mode, err := config.Mode()
	if err != nil {
		return fmt.Errorf("default_mode: %w", err)
	}
	config.DefaultMode = mode.String()

	level, err := config.Level()
	if err != nil {
		return err
	}
	config.LogLevel = strings.ToLower(level.String())

	return nil
}

// GetConfigPath returns the path to the config file
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

// Keys lists the configuration keys accepted by Get and Update
func Keys() []string {
	return []string{"db-path", "default-limit", "default-mode", "channel-capacity", "log-level", "log-file"}
}

// Update modifies a specific configuration value
// The file is read unvalidated so a bad value can be corrected; the
// result is validated on save.
func (cm *ConfigManager) Update(key, value string) error {
	config, err := cm.read()
	if err != nil {
		return err
	}

	switch key {
	case "db-path":
		config.DBPath = value
	case "default-limit":
		limit, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for default-limit: %s", value)
		}
		config.DefaultLimit = limit
	case "default-mode":
		config.DefaultMode = value
	case "channel-capacity":
		capacity, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for channel-capacity: %s", value)
		}
		config.ChannelCapacity = capacity
	case "log-level":
		config.LogLevel = value
	case "log-file":
		config.LogFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	return cm.Save(config)
}

// Get returns the value for a specific configuration key
func (cm *ConfigManager) Get(key string) (string, error) {
	values, err := cm.List()
	if err != nil {
		return "", err
	}

	value, ok := values[key]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return value, nil
}

// List returns all configuration keys and values
func (cm *ConfigManager) List() (map[string]string, error) {
	config, err := cm.Load()
	if err != nil {
		return nil, err
	}

	result := map[string]string{
		"db-path":          config.DBPath,
		"default-limit":    strconv.Itoa(config.DefaultLimit),
		"default-mode":     config.DefaultMode,
		"channel-capacity": strconv.Itoa(config.ChannelCapacity),
		"log-level":        config.LogLevel,
		"log-file":         config.LogFile,
	}

	for _, key := range []string{"db-path", "log-file"} {
		if result[key] == "" {
			result[key] = "[default]"
		}
	}

	return result, nil
}

// SortedKeys returns the keys of values in order, for stable listing
func SortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
