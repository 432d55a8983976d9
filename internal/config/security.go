package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/leslieo2/go-hot-content/internal/constants"
)

// SecurityConfig guards the admin surface
type SecurityConfig struct {
	Auth      AuthConfig      `json:"auth" yaml:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
}

// AuthConfig contains API key authentication for mutating admin endpoints
type AuthConfig struct {
	Enabled    bool           `json:"enabled" yaml:"enabled"`
	HeaderName string         `json:"header_name" yaml:"header_name"`
	Keys       []APIKeyConfig `json:"keys" yaml:"keys"`
}

// APIKeyConfig represents an API key configuration
type APIKeyConfig struct {
	Key       string     `json:"key" yaml:"key"`
	Name      string     `json:"name" yaml:"name"`
	Enabled   bool       `json:"enabled" yaml:"enabled"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// RateLimitConfig contains per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool          `json:"enabled" yaml:"enabled"`
	RequestsPerSecond int           `json:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int           `json:"burst_size" yaml:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
	MaxCacheSize      int           `json:"max_cache_size" yaml:"max_cache_size"`
}

// DefaultSecurityConfig returns default security configuration
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		Auth: AuthConfig{
			Enabled:    false,
			HeaderName: constants.HeaderAPIKey,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			BurstSize:         20,
			CleanupInterval:   constants.RateLimitCleanupInterval,
			MaxCacheSize:      constants.RateLimitMaxCacheSize,
		},
	}
}

// Validate validates the security configuration
func (s SecurityConfig) Validate() error {
	var errs []error

	if s.Auth.Enabled {
		if s.Auth.HeaderName == "" {
			errs = append(errs, errors.New("auth.header_name must be set when auth is enabled"))
		}
		if len(s.Auth.Keys) == 0 {
			errs = append(errs, errors.New("auth.keys must not be empty when auth is enabled"))
		}
		for i, key := range s.Auth.Keys {
			if key.Key == "" {
				errs = append(errs, fmt.Errorf("auth.keys[%d].key cannot be empty", i))
			}
		}
	}

	if s.RateLimit.Enabled {
		if s.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, errors.New("rate_limit.requests_per_second must be positive"))
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, errors.New("rate_limit.burst_size must be positive"))
		}
		if s.RateLimit.CleanupInterval < 0 {
			errs = append(errs, errors.New("rate_limit.cleanup_interval must be non-negative"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
