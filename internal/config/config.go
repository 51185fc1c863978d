// Package config provides configuration management for the error log
// service. It defines the configuration structures, defaults, validation and
// YAML/environment loading for the HTTP server, the error log middleware,
// the upstream targets it wraps, logging and metrics.
//
// Configuration Loading Priority (highest to lowest):
//  1. Environment variables (ERRORLOG_*)
//  2. Configuration file (--config)
//  3. Default values
//
// Example configuration file:
//
//	server:
//	  host: "0.0.0.0"
//	  port: 8080
//	error_log:
//	  path: "/__error_log__"
//	  keep: 20
//	  channel: "errorlog"
//	  ignore: "http.ErrAbortHandler context.Canceled"
//	targets:
//	  - url: "http://localhost:3000"
//	    enabled: true
package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"errorlog/pkg/errors"
)

// Defaults for the error log middleware.
const (
	DefaultPath = "/__error_log__"
	DefaultKeep = 20
)

// ErrorLogConfig configures the fault-capturing middleware.
type ErrorLogConfig struct {
	// Channel names the log channel captured faults are written to. Nil
	// means no channel: faults go to the request's diagnostics stream.
	// The empty string selects the root channel.
	Channel *string `yaml:"channel,omitempty" json:"channel,omitempty"`

	// Keep is the number of faults retained for the view (default: 20)
	Keep int `yaml:"keep" json:"keep"`

	// Path is the request path that serves the view (default: /__error_log__)
	Path string `yaml:"path" json:"path"`

	// Ignore lists fault categories that are passed through unrecorded
	Ignore CategoryList `yaml:"ignore,omitempty" json:"ignore,omitempty"`

	// Prefix is the mount point of the service, used when building the
	// canonical URL of the view
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
}

// Validate checks the error log settings.
func (e *ErrorLogConfig) Validate() error {
	if e.Keep < 1 {
		return fmt.Errorf("keep must be at least 1, got %d", e.Keep)
	}

	if !strings.HasPrefix(e.Path, "/") {
		return fmt.Errorf("path must start with '/', got '%s'", e.Path)
	}

	if e.Prefix != "" && (!strings.HasPrefix(e.Prefix, "/") || strings.HasSuffix(e.Prefix, "/")) {
		return fmt.Errorf("prefix must start and not end with '/', got '%s'", e.Prefix)
	}

	return nil
}

// ChannelName returns the configured channel and whether one is set.
func (e *ErrorLogConfig) ChannelName() (string, bool) {
	if e.Channel == nil {
		return "", false
	}

	return *e.Channel, true
}

// CategoryList is a list of fault category names. In YAML it may be given
// either as a sequence or as a single whitespace separated string.
type CategoryList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *CategoryList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*c = strings.Fields(value.Value)
		return nil

	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}

		out := make([]string, 0, len(names))
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				out = append(out, n)
			}
		}
		*c = out
		return nil

	default:
		return fmt.Errorf("line %d: ignore must be a string or a list", value.Line)
	}
}

// Set builds the category set used by the middleware.
func (c CategoryList) Set() errors.CategorySet {
	categories := make([]errors.Category, len(c))
	for i, name := range c {
		categories[i] = errors.Category(name)
	}

	return errors.NewCategorySet(categories...)
}
