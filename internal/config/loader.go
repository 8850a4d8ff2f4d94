// Package config provides configuration loading for the mcpcore-server demo host.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for mcpcore.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself,
// which Viper's built-in SetConfigName would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("mcpcore")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: MCP_CORE_SERVER_MAX_CONNECTIONS
	viper.SetEnvPrefix("MCP_CORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for an mcpcore config file with
// an explicit YAML extension (.yaml or .yml). This prevents Viper from
// matching the binary "mcpcore-server" (no extension) in the current directory.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".mcpcore"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "mcpcore"))
		}
	} else {
		paths = append(paths, "/etc/mcpcore")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for mcpcore.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "mcpcore"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable support.
// Example: MCP_CORE_SERVER_MAX_CONNECTIONS overrides server.max_connections.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.max_connections")
	_ = viper.BindEnv("server.idle_timeout")
	_ = viper.BindEnv("server.send_buffer_size")
	_ = viper.BindEnv("server.sampling_timeout")
	_ = viper.BindEnv("server.backward_compatible_versioning")
	_ = viper.BindEnv("server.supported_versions")

	_ = viper.BindEnv("rate_limit.enabled")
	_ = viper.BindEnv("rate_limit.mode")
	_ = viper.BindEnv("rate_limit.global_limit")
	_ = viper.BindEnv("rate_limit.default_limit")
	_ = viper.BindEnv("rate_limit.duration")
	_ = viper.BindEnv("rate_limit.sweep_interval")
	_ = viper.BindEnv("rate_limit.max_idle")
	// Note: rate_limit.allowlist is an array, handled by Viper's env parsing

	_ = viper.BindEnv("session.timeout")
	_ = viper.BindEnv("session.refresh_timeout")
	_ = viper.BindEnv("session.sliding_expiration")
	_ = viper.BindEnv("session.max_sessions_per_user")

	_ = viper.BindEnv("logging.level")
	_ = viper.BindEnv("logging.format")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults and dev-mode defaults, validates, and returns the Config.
// Use LoadConfigRaw when CLI flag overrides (e.g. --dev) must be applied
// before dev defaults and validation.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults, but does
// NOT apply dev defaults or validate. Use this when CLI flags may override
// DevMode before validation.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
