package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/leslieo2/go-hot-content/internal/constants"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration with precedence:
// 1. Explicit CLI flags (highest priority)
// 2. Environment variables
// 3. Configuration file values
// 4. Default configuration values (lowest priority)
func LoadConfig(configFile string, cliFlags *CLIFlags) (*Config, error) {
	config := DefaultConfig()

	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		mergeConfig(config, fileConfig)
	}

	loadFromEnv(config)

	if cliFlags != nil {
		overrideWithCLI(config, cliFlags)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// CLIFlags contains CLI flag values that can override configuration
type CLIFlags struct {
	ContentRoot       *string
	HotReload         *bool
	HotReloadMode     *string
	HotReloadInterval *time.Duration
	HotReloadDebounce *time.Duration
	AdminEnabled      *bool
	AdminHost         *string
	AdminPort         *string
	AuthEnabled       *bool
	RateLimitEnabled  *bool
	RateLimitRPS      *int
	LogLevel          *string
	LogFormat         *string
	TickRate          *int
}

// loadFromFile loads configuration from a YAML or JSON file
func loadFromFile(filePath string) (*Config, error) {
	if !filepath.IsAbs(filePath) {
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", filePath, err)
		}
		filePath = absPath
	}

	if err := validateFilePath(filePath); err != nil {
		return nil, fmt.Errorf("invalid config file path %s: %w", filePath, err)
	}

	data, err := os.ReadFile(filePath) // #nosec G304 - file path validated by validateFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	// Start from defaults so booleans absent from the file keep their default
	config := DefaultConfig()
	ext := filepath.Ext(filePath)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) {
	if val := os.Getenv(constants.EnvContentRoot); val != "" {
		config.Content.Root = val
	}

	if val := os.Getenv(constants.EnvHotReload); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.HotReload.Enabled = enabled
		}
	}
	if val := os.Getenv(constants.EnvHotReloadMode); val != "" {
		config.HotReload.Mode = strings.ToLower(val)
	}
	if val := os.Getenv(constants.EnvHotReloadInterval); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.HotReload.Interval = duration
		}
	}
	if val := os.Getenv(constants.EnvHotReloadDebounce); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.HotReload.Debounce = duration
		}
	}

	if val := os.Getenv(constants.EnvAdminEnabled); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Admin.Enabled = enabled
		}
	}
	if val := os.Getenv(constants.EnvAdminHost); val != "" {
		config.Admin.Host = val
	}
	if val := os.Getenv(constants.EnvAdminPort); val != "" {
		config.Admin.Port = val
	}

	if val := os.Getenv(constants.EnvLogLevel); val != "" {
		config.Observability.Logging.Level = val
	}
	if val := os.Getenv(constants.EnvLogFormat); val != "" {
		config.Observability.Logging.Format = val
	}

	if val := os.Getenv(constants.EnvTickRate); val != "" {
		if rate, err := strconv.Atoi(val); err == nil {
			config.Loop.TickRate = rate
		}
	}
}

// flagChanged reports whether the named flag was explicitly set on the command line
func flagChanged(name string) bool {
	f := pflag.Lookup(name)
	return f != nil && f.Changed
}

// overrideWithCLI overrides configuration with CLI flag values
// Only explicitly set CLI flags override other configuration sources
func overrideWithCLI(config *Config, flags *CLIFlags) {
	if flags == nil {
		return
	}

	if flags.ContentRoot != nil && flagChanged("content-root") {
		config.Content.Root = *flags.ContentRoot
	}

	// Hot reload
	if flags.HotReload != nil && flagChanged("hot-reload") {
		config.HotReload.Enabled = *flags.HotReload
	}
	if flags.HotReloadMode != nil && flagChanged("hot-reload-mode") {
		config.HotReload.Mode = *flags.HotReloadMode
	}
	if flags.HotReloadInterval != nil && flagChanged("hot-reload-interval") {
		config.HotReload.Interval = *flags.HotReloadInterval
	}
	if flags.HotReloadDebounce != nil && flagChanged("hot-reload-debounce") {
		config.HotReload.Debounce = *flags.HotReloadDebounce
	}

	// Admin surface
	if flags.AdminEnabled != nil && flagChanged("admin-enabled") {
		config.Admin.Enabled = *flags.AdminEnabled
	}
	if flags.AdminHost != nil && flagChanged("admin-host") {
		config.Admin.Host = *flags.AdminHost
	}
	if flags.AdminPort != nil && flagChanged("admin-port") {
		config.Admin.Port = *flags.AdminPort
	}

	// Security flags
	if flags.AuthEnabled != nil && flagChanged("auth-enabled") {
		config.Security.Auth.Enabled = *flags.AuthEnabled
	}
	if flags.RateLimitEnabled != nil && flagChanged("rate-limit-enabled") {
		config.Security.RateLimit.Enabled = *flags.RateLimitEnabled
	}
	if flags.RateLimitRPS != nil && flagChanged("rate-limit-rps") {
		config.Security.RateLimit.RequestsPerSecond = *flags.RateLimitRPS
	}

	// Logging
	if flags.LogLevel != nil && flagChanged("log-level") {
		config.Observability.Logging.Level = *flags.LogLevel
	}
	if flags.LogFormat != nil && flagChanged("log-format") {
		config.Observability.Logging.Format = *flags.LogFormat
	}

	if flags.TickRate != nil && flagChanged("tick-rate") {
		config.Loop.TickRate = *flags.TickRate
	}
}

// mergeConfig merges file configuration into the base configuration
func mergeConfig(base *Config, file *Config) {
	// Content
	if file.Content.Root != "" {
		base.Content.Root = file.Content.Root
	}
	if len(file.Content.IgnoreSuffixes) > 0 {
		base.Content.IgnoreSuffixes = file.Content.IgnoreSuffixes
	}
	if len(file.Content.Preload) > 0 {
		base.Content.Preload = file.Content.Preload
	}

	// Hot reload
	base.HotReload.Enabled = file.HotReload.Enabled
	if file.HotReload.Mode != "" {
		base.HotReload.Mode = file.HotReload.Mode
	}
	if file.HotReload.Interval > 0 {
		base.HotReload.Interval = file.HotReload.Interval
	}
	if file.HotReload.Debounce > 0 {
		base.HotReload.Debounce = file.HotReload.Debounce
	}

	// Admin
	base.Admin.Enabled = file.Admin.Enabled
	if file.Admin.Host != "" {
		base.Admin.Host = file.Admin.Host
	}
	if file.Admin.Port != "" {
		base.Admin.Port = file.Admin.Port
	}

	// Security
	base.Security.Auth.Enabled = file.Security.Auth.Enabled
	if file.Security.Auth.HeaderName != "" {
		base.Security.Auth.HeaderName = file.Security.Auth.HeaderName
	}
	if len(file.Security.Auth.Keys) > 0 {
		base.Security.Auth.Keys = file.Security.Auth.Keys
	}
	base.Security.RateLimit.Enabled = file.Security.RateLimit.Enabled
	if file.Security.RateLimit.RequestsPerSecond > 0 {
		base.Security.RateLimit.RequestsPerSecond = file.Security.RateLimit.RequestsPerSecond
	}
	if file.Security.RateLimit.BurstSize > 0 {
		base.Security.RateLimit.BurstSize = file.Security.RateLimit.BurstSize
	}

	// Observability
	if file.Observability.Logging.Level != "" {
		base.Observability.Logging.Level = file.Observability.Logging.Level
	}
	if file.Observability.Logging.Format != "" {
		base.Observability.Logging.Format = file.Observability.Logging.Format
	}
	if file.Observability.Logging.Output != "" {
		base.Observability.Logging.Output = file.Observability.Logging.Output
	}
	base.Observability.Logging.Development = file.Observability.Logging.Development
	base.Observability.Metrics.Enabled = file.Observability.Metrics.Enabled
	if file.Observability.Metrics.Path != "" {
		base.Observability.Metrics.Path = file.Observability.Metrics.Path
	}
	base.Observability.Tracing.Enabled = file.Observability.Tracing.Enabled
	if file.Observability.Tracing.ServiceName != "" {
		base.Observability.Tracing.ServiceName = file.Observability.Tracing.ServiceName
	}

	if file.Loop.TickRate > 0 {
		base.Loop.TickRate = file.Loop.TickRate
	}
}

// validateFilePath checks if the file path is safe to read
func validateFilePath(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	cleanPath := filepath.Clean(absPath)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal attempts")
	}

	return nil
}
