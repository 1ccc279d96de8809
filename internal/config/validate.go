package config

import "fmt"

// Validate checks the configuration for errors, field by field.
func (c *Config) Validate() error {
	if err := validateLog(&c.Log); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := validateTransport(&c.Transport); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	if err := validateLifecycle(&c.Lifecycle); err != nil {
		return fmt.Errorf("lifecycle: %w", err)
	}
	if err := validatePersist(&c.Persist); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

func validateLog(l *LogConfig) error {
	switch l.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid level: %s", l.Level)
	}
}

func validateTransport(t *TransportConfig) error {
	if t.SocketPath == "" {
		return fmt.Errorf("socketPath must not be empty")
	}
	if t.RequestTimeout <= 0 {
		return fmt.Errorf("requestTimeout must be positive")
	}
	if t.WorkerPoolSize <= 0 {
		return fmt.Errorf("workerPoolSize must be positive")
	}
	return nil
}

func validateLifecycle(l *LifecycleConfig) error {
	if l.ApplicationInitRetries < 0 {
		return fmt.Errorf("applicationInitRetries cannot be negative")
	}
	return nil
}

func validatePersist(p *PersistConfig) error {
	if p.Enabled && p.Path == "" {
		return fmt.Errorf("path must be set when persist is enabled")
	}
	return nil
}
