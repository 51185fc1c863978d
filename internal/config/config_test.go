package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"errorlog/pkg/errors"
)

// TestDefaultConfig verifies that the default configuration is valid
// and contains expected values.
func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)

	assert.Equal(t, "/__error_log__", config.ErrorLog.Path)
	assert.Equal(t, 20, config.ErrorLog.Keep)
	assert.Nil(t, config.ErrorLog.Channel)
	assert.Empty(t, config.ErrorLog.Ignore)

	require.Len(t, config.Targets, 1)
	assert.Equal(t, "http://localhost:3000", config.Targets[0].URL)
	assert.True(t, config.Targets[0].Enabled)

	assert.NoError(t, config.Validate(), "Default configuration should be valid")
}

// TestConfigValidation tests the configuration validation logic.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		configFunc  func() *Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			configFunc:  DefaultConfig,
			expectError: false,
		},
		{
			name: "invalid server port - too high",
			configFunc: func() *Config {
				config := DefaultConfig()
				config.Server.Port = 70000
				return config
			},
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name: "empty host",
			configFunc: func() *Config {
				config := DefaultConfig()
				config.Server.Host = ""
				return config
			},
			expectError: true,
			errorMsg:    "host is required",
		},
		{
			name: "zero keep",
			configFunc: func() *Config {
				config := DefaultConfig()
				config.ErrorLog.Keep = 0
				return config
			},
			expectError: true,
			errorMsg:    "keep must be at least 1",
		},
		{
			name: "relative path",
			configFunc: func() *Config {
				config := DefaultConfig()
				config.ErrorLog.Path = "__error_log__"
				return config
			},
			expectError: true,
			errorMsg:    "path must start with '/'",
		},
		{
			name: "prefix with trailing slash",
			configFunc: func() *Config {
				config := DefaultConfig()
				config.ErrorLog.Prefix = "/app/"
				return config
			},
			expectError: true,
			errorMsg:    "prefix must start and not end with '/'",
		},
		{
			name: "no targets",
			configFunc: func() *Config {
				config := DefaultConfig()
				config.Targets = []TargetConfig{}
				return config
			},
			expectError: true,
			errorMsg:    "at least one target must be configured",
		},
		{
			name: "all targets disabled",
			configFunc: func() *Config {
				config := DefaultConfig()
				config.Targets[0].Enabled = false
				return config
			},
			expectError: true,
			errorMsg:    "at least one target must be enabled",
		},
		{
			name: "invalid target URL",
			configFunc: func() *Config {
				config := DefaultConfig()
				config.Targets[0].URL = "ftp://example.com"
				return config
			},
			expectError: true,
			errorMsg:    "URL scheme must be http or https",
		},
		{
			name: "unsupported log format",
			configFunc: func() *Config {
				config := DefaultConfig()
				config.Logging.Format = "xml"
				return config
			},
			expectError: true,
			errorMsg:    "unsupported log format",
		},
		{
			name: "metrics path collides with view path",
			configFunc: func() *Config {
				config := DefaultConfig()
				config.Metrics.Path = config.ErrorLog.Path
				return config
			},
			expectError: true,
			errorMsg:    "must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.configFunc().Validate()

			if tt.expectError {
				require.Error(t, err)
				if tt.errorMsg != "" {
					assert.Contains(t, err.Error(), tt.errorMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestCategoryListYAML checks both accepted shapes of the ignore list.
func TestCategoryListYAML(t *testing.T) {
	t.Run("whitespace separated string", func(t *testing.T) {
		var cfg ErrorLogConfig
		require.NoError(t, yaml.Unmarshal([]byte(`ignore: "KeyError  AttributeError"`), &cfg))
		assert.Equal(t, CategoryList{"KeyError", "AttributeError"}, cfg.Ignore)
	})

	t.Run("sequence", func(t *testing.T) {
		var cfg ErrorLogConfig
		require.NoError(t, yaml.Unmarshal([]byte("ignore:\n  - KeyError\n  - ' '\n  - context.Canceled\n"), &cfg))
		assert.Equal(t, CategoryList{"KeyError", "context.Canceled"}, cfg.Ignore)
	})

	t.Run("mapping is rejected", func(t *testing.T) {
		var cfg ErrorLogConfig
		err := yaml.Unmarshal([]byte("ignore:\n  a: b\n"), &cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ignore must be a string or a list")
	})

	t.Run("set", func(t *testing.T) {
		set := CategoryList{"KeyError", "AttributeError"}.Set()
		assert.True(t, set.Contains(errors.CategoryKey))
		assert.False(t, set.Contains(errors.CategoryValue))
	})
}

// TestChannelYAML distinguishes an absent channel from the root channel.
func TestChannelYAML(t *testing.T) {
	var absent ErrorLogConfig
	require.NoError(t, yaml.Unmarshal([]byte(`keep: 5`), &absent))
	_, ok := absent.ChannelName()
	assert.False(t, ok)

	var root ErrorLogConfig
	require.NoError(t, yaml.Unmarshal([]byte(`channel: ""`), &root))
	name, ok := root.ChannelName()
	assert.True(t, ok)
	assert.Equal(t, "", name)

	var named ErrorLogConfig
	require.NoError(t, yaml.Unmarshal([]byte(`channel: foo`), &named))
	name, ok = named.ChannelName()
	assert.True(t, ok)
	assert.Equal(t, "foo", name)
}

// TestConfigLoader tests the configuration loading functionality.
func TestConfigLoader(t *testing.T) {
	loader := newTestLoader(nil)

	t.Run("load default config", func(t *testing.T) {
		config, err := loader.LoadDefault()
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", config.Server.Host)
		assert.Equal(t, 8080, config.Server.Port)
	})

	t.Run("load from valid YAML file", func(t *testing.T) {
		configYAML := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 5s
error_log:
  path: "/errors"
  keep: 10
  channel: "foo"
  ignore: "KeyError AttributeError"
targets:
  - url: "http://backend1.com:8080"
    enabled: true
  - url: "http://backend2.com:8080"
    enabled: true
`
		tmpFile := createTempFile(t, "config.yaml", configYAML)

		config, err := loader.LoadFromFile(tmpFile)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", config.Server.Host)
		assert.Equal(t, 9090, config.Server.Port)
		assert.Equal(t, 5*time.Second, config.Server.ReadTimeout)
		assert.Equal(t, "/errors", config.ErrorLog.Path)
		assert.Equal(t, 10, config.ErrorLog.Keep)
		require.NotNil(t, config.ErrorLog.Channel)
		assert.Equal(t, "foo", *config.ErrorLog.Channel)
		assert.Equal(t, CategoryList{"KeyError", "AttributeError"}, config.ErrorLog.Ignore)
		assert.Len(t, config.Targets, 2)
	})

	t.Run("load from non-existent file", func(t *testing.T) {
		_, err := loader.LoadFromFile(filepath.Join(t.TempDir(), "non-existent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("load from invalid YAML", func(t *testing.T) {
		invalidYAML := `
server:
  host: "127.0.0.1"
  port: [this, is, invalid, yaml, syntax
`
		tmpFile := createTempFile(t, "invalid.yaml", invalidYAML)

		_, err := loader.LoadFromFile(tmpFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse YAML")
	})
}

// TestEnvironmentOverrides tests environment variable override functionality.
func TestEnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		check  func(t *testing.T, cfg *Config)
		errMsg string
	}{
		{
			name: "server host and port",
			env:  map[string]string{"ERRORLOG_SERVER_HOST": "192.168.1.100", "ERRORLOG_SERVER_PORT": "9999"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "192.168.1.100", cfg.Server.Host)
				assert.Equal(t, 9999, cfg.Server.Port)
			},
		},
		{
			name: "logging level",
			env:  map[string]string{"ERRORLOG_LOGGING_LEVEL": "DEBUG"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name: "error log settings",
			env: map[string]string{
				"ERRORLOG_CHANNEL": "",
				"ERRORLOG_KEEP":    "3",
				"ERRORLOG_PATH":    "/errs",
				"ERRORLOG_IGNORE":  "KeyError context.Canceled",
			},
			check: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.ErrorLog.Channel)
				assert.Equal(t, "", *cfg.ErrorLog.Channel)
				assert.Equal(t, 3, cfg.ErrorLog.Keep)
				assert.Equal(t, "/errs", cfg.ErrorLog.Path)
				assert.Equal(t, CategoryList{"KeyError", "context.Canceled"}, cfg.ErrorLog.Ignore)
			},
		},
		{
			name: "metrics disabled",
			env:  map[string]string{"ERRORLOG_METRICS_ENABLED": "false"},
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Metrics.Enabled)
			},
		},
		{
			name:   "invalid port",
			env:    map[string]string{"ERRORLOG_SERVER_PORT": "invalid"},
			errMsg: "invalid SERVER_PORT",
		},
		{
			name:   "invalid keep",
			env:    map[string]string{"ERRORLOG_KEEP": "many"},
			errMsg: "invalid KEEP",
		},
		{
			name:   "keep out of range",
			env:    map[string]string{"ERRORLOG_KEEP": "0"},
			errMsg: "keep must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := newTestLoader(tt.env).LoadDefault()

			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

// TestSaveToFile tests configuration saving functionality.
func TestSaveToFile(t *testing.T) {
	loader := newTestLoader(nil)
	config := DefaultConfig()
	channel := "errors"
	config.ErrorLog.Channel = &channel
	config.ErrorLog.Ignore = CategoryList{"KeyError"}

	configFile := filepath.Join(t.TempDir(), "test_config.yaml")
	require.NoError(t, loader.SaveToFile(config, configFile))

	loadedConfig, err := loader.LoadFromFile(configFile)
	require.NoError(t, err)

	assert.Equal(t, config.Server, loadedConfig.Server)
	assert.Equal(t, config.ErrorLog, loadedConfig.ErrorLog)
	assert.Equal(t, config.Targets, loadedConfig.Targets)
}

// TestGenerateExample tests the example configuration generation.
func TestGenerateExample(t *testing.T) {
	loader := newTestLoader(nil)
	example := loader.GenerateExample()

	assert.Contains(t, example, "# Error Log Configuration Example")
	assert.Contains(t, example, "error_log:")
	assert.Contains(t, example, "targets:")

	tmpFile := createTempFile(t, "example.yaml", example)
	assert.NoError(t, loader.ValidateFile(tmpFile))
}

// TestValidateFile tests file validation without loading.
func TestValidateFile(t *testing.T) {
	loader := newTestLoader(nil)

	t.Run("valid configuration file", func(t *testing.T) {
		validYAML := `
server:
  host: "0.0.0.0"
  port: 8080
targets:
  - url: "http://example.com"
    enabled: true
`
		assert.NoError(t, loader.ValidateFile(createTempFile(t, "valid.yaml", validYAML)))
	})

	t.Run("invalid configuration file", func(t *testing.T) {
		invalidYAML := `
server:
  host: ""
  port: 8080
targets: []
`
		assert.Error(t, loader.ValidateFile(createTempFile(t, "invalid.yaml", invalidYAML)))
	})
}

func newTestLoader(env map[string]string) *Loader {
	return &Loader{lookupEnv: func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}}
}

// Helper function to create temporary files for testing.
func createTempFile(t *testing.T, name, content string) string {
	tmpFile := filepath.Join(t.TempDir(), name)

	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	return tmpFile
}
