// Package config provides configuration types for the MCP core engine host.
//
// The engine itself never loads configuration; that is a host concern.
// This package is the reference host's config surface: YAML files merged
// with environment variable overrides via viper.
package config

import (
	"github.com/spf13/viper"
)

// Config is the top-level configuration for the demo mcpcore-server host.
type Config struct {
	// Server configures connection-plane limits enforced by ConnectionManager.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// RateLimit configures the sliding/fixed window rate limiter.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// Session configures session lifecycle defaults.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Logging configures the minimum log level and sink.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// DevMode enables permissive defaults and verbose logging.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures connection-plane limits.
type ServerConfig struct {
	// MaxConnections is the maximum number of concurrently accepted
	// connections. Defaults to 1000 if zero.
	MaxConnections int `yaml:"max_connections" mapstructure:"max_connections" validate:"omitempty,min=1"`

	// IdleTimeout is how long a connection may sit with no activity before
	// the idle reaper closes it (e.g. "30m"). Empty disables the reaper.
	IdleTimeout string `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"omitempty"`

	// SendBufferSize is the bounded outbound channel depth per connection.
	// Defaults to 64 if zero.
	SendBufferSize int `yaml:"send_buffer_size" mapstructure:"send_buffer_size" validate:"omitempty,min=1"`

	// SamplingTimeout is how long a server-initiated sampling/createMessage
	// call waits for a client response (e.g. "5m"). Defaults to "5m".
	SamplingTimeout string `yaml:"sampling_timeout" mapstructure:"sampling_timeout" validate:"omitempty"`

	// BackwardCompatibleVersioning enables the negotiator's same-major
	// compatibility rules. When false only an exact version match succeeds.
	BackwardCompatibleVersioning bool `yaml:"backward_compatible_versioning" mapstructure:"backward_compatible_versioning"`

	// SupportedVersions lists the protocol versions this server accepts,
	// in no particular order (the negotiator sorts them). Defaults to
	// ["0.1.0"] if empty.
	SupportedVersions []string `yaml:"supported_versions" mapstructure:"supported_versions" validate:"omitempty,min=1"`
}

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	// Enabled turns rate limiting on or off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Mode selects the windowing algorithm: "sliding" (default) or "fixed".
	Mode string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=sliding fixed"`

	// GlobalLimit is the per-identity request budget evaluated before any
	// resource-specific limit.
	GlobalLimit int `yaml:"global_limit" mapstructure:"global_limit" validate:"omitempty,min=1"`

	// DefaultLimit is the per (identity, resource) budget used when an
	// operation doesn't declare its own cost/limit override.
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit" validate:"omitempty,min=1"`

	// Duration is the window length (e.g. "1m").
	Duration string `yaml:"duration" mapstructure:"duration" validate:"omitempty"`

	// Allowlist holds identities that bypass all rate limit checks.
	Allowlist []string `yaml:"allowlist" mapstructure:"allowlist"`

	// SweepInterval is how often idle windows are swept. Defaults to "5m".
	SweepInterval string `yaml:"sweep_interval" mapstructure:"sweep_interval" validate:"omitempty"`

	// MaxIdle is how long a window may go untouched before the sweep
	// removes it. Defaults to "1h".
	MaxIdle string `yaml:"max_idle" mapstructure:"max_idle" validate:"omitempty"`
}

// SessionConfig configures session lifecycle defaults.
type SessionConfig struct {
	// Timeout is the session expiration duration (e.g. "30m"). Defaults to "30m".
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty"`

	// RefreshTimeout is how long after session creation the session may
	// still be refreshed (e.g. "24h"). Defaults to "24h".
	RefreshTimeout string `yaml:"refresh_timeout" mapstructure:"refresh_timeout" validate:"omitempty"`

	// SlidingExpiration, when > 0, extends ExpiresAt to now+duration on
	// every successful validation that is closer to expiry than this.
	// Empty/zero disables sliding expiration.
	SlidingExpiration string `yaml:"sliding_expiration" mapstructure:"sliding_expiration" validate:"omitempty"`

	// MaxSessionsPerUser caps concurrent sessions per user; oldest
	// sessions (by last activity) are revoked past this count. 0 = unlimited.
	MaxSessionsPerUser int `yaml:"max_sessions_per_user" mapstructure:"max_sessions_per_user" validate:"omitempty,min=0"`
}

// LoggingConfig configures the slog-based logging backend.
type LoggingConfig struct {
	// Level sets the minimum log level. Valid values: "debug", "info",
	// "warn" (or "warning"), "error". Defaults to "info". DevMode=true overrides to "debug".
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`

	// Format selects "text" or "json" output. Defaults to "text".
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=text json"`
}

// SetDevDefaults applies permissive defaults for development mode, before
// validation.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = 1000
	}
	if c.Server.SendBufferSize == 0 {
		c.Server.SendBufferSize = 64
	}
	if c.Server.SamplingTimeout == "" {
		c.Server.SamplingTimeout = "5m"
	}
	if len(c.Server.SupportedVersions) == 0 {
		c.Server.SupportedVersions = []string{"0.1.0"}
	}

	if !viper.IsSet("rate_limit.enabled") {
		c.RateLimit.Enabled = true
	}
	if c.RateLimit.Mode == "" {
		c.RateLimit.Mode = "sliding"
	}
	if c.RateLimit.GlobalLimit == 0 {
		c.RateLimit.GlobalLimit = 600
	}
	if c.RateLimit.DefaultLimit == 0 {
		c.RateLimit.DefaultLimit = 60
	}
	if c.RateLimit.Duration == "" {
		c.RateLimit.Duration = "1m"
	}
	if c.RateLimit.SweepInterval == "" {
		c.RateLimit.SweepInterval = "5m"
	}
	if c.RateLimit.MaxIdle == "" {
		c.RateLimit.MaxIdle = "1h"
	}

	if c.Session.Timeout == "" {
		c.Session.Timeout = "30m"
	}
	if c.Session.RefreshTimeout == "" {
		c.Session.RefreshTimeout = "24h"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}
