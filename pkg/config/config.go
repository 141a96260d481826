package config

import (
	"fmt"
	"time"

	"github.com/sdejongh/syncwarden/pkg/compare"
	"github.com/sdejongh/syncwarden/pkg/logging"
	"github.com/sdejongh/syncwarden/pkg/models"
	"github.com/sdejongh/syncwarden/pkg/ratelimit"
)

// Config represents the application configuration
type Config struct {
	Source      EndpointConfig `yaml:"source"`
	Destination EndpointConfig `yaml:"destination"`
	Retry       RetryConfig    `yaml:"retry"`
	Checksum    ChecksumConfig `yaml:"checksum"`
	Transfer    TransferConfig `yaml:"transfer"`
	SSH         SSHConfig      `yaml:"ssh"`
	Notify      NotifyConfig   `yaml:"notify"`
	Output      OutputConfig   `yaml:"output"`
	Logging     LoggingConfig  `yaml:"logging"`
}

// EndpointConfig describes one remote side. Passwords are never stored here.
type EndpointConfig struct {
	User string `yaml:"user,omitempty"`
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
	Path string `yaml:"path,omitempty"`
}

// Endpoint converts the section to an endpoint without a password
func (e EndpointConfig) Endpoint() models.Endpoint {
	return models.Endpoint{User: e.User, Host: e.Host, Port: e.Port, Path: e.Path}
}

// RetryConfig holds the transfer retry policy
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

// ChecksumConfig selects how remote digests are computed
type ChecksumConfig struct {
	Algorithm string `yaml:"algorithm"` // "md5" or "sha256"
	Mode      string `yaml:"mode"`      // "file" or "tree"
}

// TransferConfig holds transfer tool settings
type TransferConfig struct {
	Binary         string   `yaml:"binary"`
	Flags          []string `yaml:"flags"`
	BandwidthLimit string   `yaml:"bandwidth_limit,omitempty"` // e.g. "10M", empty = unlimited
	Exclude        []string `yaml:"exclude,omitempty"`
	Delete         bool     `yaml:"delete"`
	ExtraArgs      []string `yaml:"extra_args,omitempty"`
}

// SSHConfig holds settings for the checksum sessions
type SSHConfig struct {
	KnownHosts     string        `yaml:"known_hosts,omitempty"` // empty = accept any host key
	KeyFile        string        `yaml:"key_file,omitempty"`
	UseAgent       bool          `yaml:"use_agent"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// NotifyConfig holds webhook settings
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url,omitempty"`
	OnAbort    bool          `yaml:"on_abort"`
	Timeout    time.Duration `yaml:"timeout"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show backoff countdown
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`
	MaxSize    int64  `yaml:"max_size"` // bytes, 0 = no rotation
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxAttempts: models.DefaultMaxAttempts,
			Backoff:     models.DefaultBackoff,
		},
		Checksum: ChecksumConfig{
			Algorithm: string(compare.MD5),
			Mode:      string(compare.ModeFile),
		},
		Transfer: TransferConfig{
			Binary: "rsync",
			Flags:  []string{"-avz"},
		},
		SSH: SSHConfig{
			UseAgent:       true,
			ConnectTimeout: 30 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Format:     "text",
			Level:      "info",
			File:       logging.DefaultPath,
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return &models.ValidationError{
			Field:   "retry.max_attempts",
			Message: "must be at least 1",
		}
	}

	if c.Retry.Backoff < 0 {
		return &models.ValidationError{
			Field:   "retry.backoff",
			Message: "cannot be negative",
		}
	}

	if _, err := compare.ParseAlgorithm(c.Checksum.Algorithm); err != nil {
		return &models.ValidationError{Field: "checksum.algorithm", Message: err.Error()}
	}

	if _, err := compare.ParseMode(c.Checksum.Mode); err != nil {
		return &models.ValidationError{Field: "checksum.mode", Message: err.Error()}
	}

	if c.Transfer.Binary == "" {
		return &models.ValidationError{
			Field:   "transfer.binary",
			Message: "must not be empty",
		}
	}

	if _, err := ratelimit.Parse(c.Transfer.BandwidthLimit); err != nil {
		return &models.ValidationError{Field: "transfer.bandwidth_limit", Message: err.Error()}
	}

	for name, port := range map[string]int{"source.port": c.Source.Port, "destination.port": c.Destination.Port} {
		if port < 0 || port > 65535 {
			return &models.ValidationError{Field: name, Message: "must be between 0 and 65535"}
		}
	}

	// One remote shell option is shared by both endpoints
	if c.Source.Endpoint().SSHPort() != c.Destination.Endpoint().SSHPort() {
		return &models.ValidationError{
			Field:   "destination.port",
			Message: fmt.Sprintf("must match source port %d", c.Source.Endpoint().SSHPort()),
		}
	}

	if c.Notify.Timeout < 0 {
		return &models.ValidationError{
			Field:   "notify.timeout",
			Message: "cannot be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}
