package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".config/windowstate"
	DefaultConfigFile = "config.yaml"
)

// Default returns a Config populated with this package's defaults, the same
// values LoadConfig falls back to when a file is absent.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", JSON: false},
		Transport: TransportConfig{
			SocketPath:     "/tmp/windowstate.sock",
			RequestTimeout: 5 * time.Second,
			WorkerPoolSize: 4,
		},
		Lifecycle: LifecycleConfig{ApplicationInitRetries: 3},
		Persist:   PersistConfig{Enabled: false, Path: ""},
	}
}

// LoadConfig loads configuration from the specified path or default location.
// If path is empty, uses ~/.config/windowstate/config.yaml. Missing optional
// fields are filled from Default(). A missing file at the default location is
// not an error; Default() is returned unmodified.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		yamlPath := filepath.Join(home, DefaultConfigDir, "config.yaml")
		jsonPath := filepath.Join(home, DefaultConfigDir, "config.json")

		if _, err := os.Stat(yamlPath); err == nil {
			path = yamlPath
		} else if _, err := os.Stat(jsonPath); err == nil {
			path = jsonPath
		} else {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	format := "yaml"
	if ext == ".json" {
		format = "json"
	}
	return LoadConfigFromBytes(data, format)
}

// LoadConfigFromBytes loads configuration from raw bytes layered on top of
// Default(). format should be "yaml" or "json".
func LoadConfigFromBytes(data []byte, format string) (*Config, error) {
	cfg := Default()

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the default config file path.
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
}
