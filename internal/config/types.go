package config

import (
	"fmt"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for the error log service.
type Config struct {
	// Server contains HTTP server configuration including port and timeouts
	Server ServerConfig `yaml:"server" json:"server"`

	// ErrorLog configures fault capture and the diagnostic view
	ErrorLog ErrorLogConfig `yaml:"error_log" json:"error_log"`

	// Targets defines the backend services the wrapped proxy forwards to
	Targets []TargetConfig `yaml:"targets" json:"targets"`

	// Logging configures log output format and verbosity
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Version tracks the configuration file version for compatibility
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
}

// ServerConfig defines HTTP server configuration parameters.
type ServerConfig struct {
	// Host specifies the network interface to bind to (default: "0.0.0.0")
	Host string `yaml:"host" json:"host"`

	// Port specifies the TCP port to listen on (default: 8080)
	Port int `yaml:"port" json:"port"`

	// ReadTimeout limits the time spent reading the request headers and body
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`

	// WriteTimeout limits the time spent writing the response
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`

	// IdleTimeout limits the time connections remain idle before closure
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout"`

	// GracefulTimeout specifies how long to wait during graceful shutdown
	GracefulTimeout time.Duration `yaml:"graceful_timeout" json:"graceful_timeout"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TargetConfig defines a single backend target.
type TargetConfig struct {
	// URL is the complete backend service URL including scheme, host, and port
	URL string `yaml:"url" json:"url"`

	// Enabled determines if this target receives requests
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Name is an optional human-readable identifier for this target
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// LoggingConfig defines logging output format and verbosity settings.
type LoggingConfig struct {
	// Level specifies the minimum log level to output
	Level string `yaml:"level" json:"level"`

	// Format specifies the log output format
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig defines the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// DefaultConfig returns a configuration with sensible default values.
//
// Default configuration includes:
//   - Server listening on 0.0.0.0:8080
//   - Error log at /__error_log__ keeping 20 faults, no log channel
//   - Single target pointing to localhost:3000
//   - Info-level text logging
//   - Metrics on /metrics
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			GracefulTimeout: 30 * time.Second,
		},
		ErrorLog: ErrorLogConfig{
			Keep: DefaultKeep,
			Path: DefaultPath,
		},
		Targets: []TargetConfig{
			{
				URL:     "http://localhost:3000",
				Enabled: true,
				Name:    "default",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Version: "0.1.0",
	}
}

// Validate performs validation of the whole configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration invalid: %w", err)
	}

	if err := c.ErrorLog.Validate(); err != nil {
		return fmt.Errorf("error_log configuration invalid: %w", err)
	}

	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target must be configured")
	}

	enabledTargets := 0
	for i, target := range c.Targets {
		if err := target.Validate(); err != nil {
			return fmt.Errorf("target %d invalid: %w", i, err)
		}
		if target.Enabled {
			enabledTargets++
		}
	}

	if enabledTargets == 0 {
		return fmt.Errorf("at least one target must be enabled")
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration invalid: %w", err)
	}

	if c.Metrics.Enabled && c.Metrics.Path == c.ErrorLog.Path {
		return fmt.Errorf("metrics path and error_log path must differ, both are '%s'", c.Metrics.Path)
	}

	return nil
}

// Validate validates the server configuration parameters.
func (s *ServerConfig) Validate() error {
	if s.Host == "" {
		return fmt.Errorf("host is required")
	}

	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must be positive, got %v", s.ReadTimeout)
	}

	if s.WriteTimeout < 0 {
		return fmt.Errorf("write_timeout must be positive, got %v", s.WriteTimeout)
	}

	return nil
}

// Validate validates the target URL.
func (t *TargetConfig) Validate() error {
	if t.URL == "" {
		return fmt.Errorf("URL is required")
	}

	parsedURL, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %w", t.URL, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got '%s'", parsedURL.Scheme)
	}

	return nil
}

// Validate validates the logging level and format.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level '%s'", l.Level)
	}

	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format '%s'", l.Format)
	}

	return nil
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}

	return string(data), nil
}
