package config

import "time"

// Config is the root configuration structure for a windowstate process.
type Config struct {
	Log       LogConfig       `yaml:"log" json:"log"`
	Transport TransportConfig `yaml:"transport" json:"transport"`
	Lifecycle LifecycleConfig `yaml:"lifecycle" json:"lifecycle"`
	Persist   PersistConfig   `yaml:"persist" json:"persist"`
}

// LogConfig controls the structured logging backend.
type LogConfig struct {
	Level string `yaml:"level" json:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json" json:"json"`
}

// TransportConfig controls the accessibility facade's transport.
type TransportConfig struct {
	SocketPath     string        `yaml:"socketPath" json:"socketPath"`
	RequestTimeout time.Duration `yaml:"requestTimeout" json:"requestTimeout"`
	WorkerPoolSize int           `yaml:"workerPoolSize" json:"workerPoolSize"`
}

// LifecycleConfig controls application/window lifecycle retry behavior.
type LifecycleConfig struct {
	ApplicationInitRetries int `yaml:"applicationInitRetries" json:"applicationInitRetries"`
}

// PersistConfig controls the optional space-probe recovery blob.
type PersistConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}
