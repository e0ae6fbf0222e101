package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultDataDir = ".mcphub"
	ConfigFileName = "mcphub.json"
)

// LoadFromFile loads configuration from a specific file. An empty path falls
// back to $HOME/.mcphub/mcphub.json when that file exists, otherwise the
// defaults are returned unchanged.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		if found, err := defaultConfigPath(); err == nil {
			if _, statErr := os.Stat(found); statErr == nil {
				configPath = found
			}
		}
	}

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if cfg.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(homeDir, DefaultDataDir)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	if cfg.Logging == nil {
		cfg.Logging = DefaultLogConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func defaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, DefaultDataDir, ConfigFileName), nil
}

// loadConfigFile reads a single config file through viper so JSON and YAML
// both work, then unmarshals onto the defaults already present in cfg.
func loadConfigFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".yaml", ".yml":
	case "":
		v.SetConfigType("json")
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// viper lowercases keys, so the camelCase mcpServers key misses the
	// struct tag on Unmarshal and needs an explicit second pass.
	if len(cfg.Servers) == 0 {
		if raw := v.Get("mcpservers"); raw != nil {
			if err := v.UnmarshalKey("mcpservers", &cfg.Servers); err != nil {
				return fmt.Errorf("failed to unmarshal mcpServers: %w", err)
			}
		}
	}

	return nil
}
