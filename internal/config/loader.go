package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "ERRORLOG_"

// Loader reads configuration from defaults, YAML files and the environment.
type Loader struct {
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that reads the process environment.
func NewLoader() *Loader {
	return &Loader{lookupEnv: os.LookupEnv}
}

// LoadDefault returns the default configuration with environment overrides
// applied and validated.
func (l *Loader) LoadDefault() (*Config, error) {
	cfg := DefaultConfig()

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file and merges it with
// defaults.
//
// This function:
//  1. Starts with default configuration values
//  2. Reads the specified YAML file
//  3. Unmarshals YAML data over the defaults
//  4. Applies environment overrides
//  5. Validates the result
//
// Example:
//
//	cfg, err := NewLoader().LoadFromFile("errorlog.yaml")
//	if err != nil {
//	    log.Fatalf("Failed to load config: %v", err)
//	}
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	cfg, err := l.parseFile(filename)
	if err != nil {
		return nil, err
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateFile parses and validates a file without environment overrides.
func (l *Loader) ValidateFile(filename string) error {
	cfg, err := l.parseFile(filename)
	if err != nil {
		return err
	}

	return cfg.Validate()
}

// SaveToFile writes cfg as YAML.
func (l *Loader) SaveToFile(cfg *Config, filename string) error {
	data, err := cfg.YAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// GenerateExample returns an annotated example configuration.
func (l *Loader) GenerateExample() string {
	return `# Error Log Configuration Example

server:
  host: "0.0.0.0"
  port: 8080
  read_timeout: 30s
  write_timeout: 30s
  idle_timeout: 120s
  graceful_timeout: 30s

error_log:
  # Request path that serves the recent-errors view
  path: "/__error_log__"
  # Number of faults to keep
  keep: 20
  # Log channel for captured faults. Leave unset to write to stderr,
  # set to "" for the root channel.
  # channel: "errorlog"
  # Fault categories passed through without being recorded
  ignore:
    - "http.ErrAbortHandler"

targets:
  - url: "http://localhost:3000"
    enabled: true
    name: "default"

logging:
  level: "info"
  format: "text"

metrics:
  enabled: true
  path: "/metrics"
`
}

func (l *Loader) parseFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays ERRORLOG_* variables onto cfg.
func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.env("SERVER_HOST"); ok {
		cfg.Server.Host = v
	}

	if v, ok := l.env("SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT '%s': %w", v, err)
		}
		cfg.Server.Port = port
	}

	if v, ok := l.env("LOGGING_LEVEL"); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v, ok := l.env("LOGGING_FORMAT"); ok {
		cfg.Logging.Format = strings.ToLower(v)
	}

	if v, ok := l.env("CHANNEL"); ok {
		channel := v
		cfg.ErrorLog.Channel = &channel
	}

	if v, ok := l.env("KEEP"); ok {
		keep, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid KEEP '%s': %w", v, err)
		}
		cfg.ErrorLog.Keep = keep
	}

	if v, ok := l.env("PATH"); ok {
		cfg.ErrorLog.Path = v
	}

	if v, ok := l.env("IGNORE"); ok {
		cfg.ErrorLog.Ignore = strings.Fields(v)
	}

	if v, ok := l.env("METRICS_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED '%s': %w", v, err)
		}
		cfg.Metrics.Enabled = enabled
	}

	return nil
}

func (l *Loader) env(key string) (string, bool) {
	return l.lookupEnv(EnvPrefix + key)
}
