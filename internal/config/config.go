package config

import (
	"errors"
	"fmt"
)

// Config represents the unified configuration structure
type Config struct {
	Content       ContentConfig       `json:"content" yaml:"content"`
	HotReload     HotReloadConfig     `json:"hot_reload" yaml:"hot_reload"`
	Admin         AdminConfig         `json:"admin" yaml:"admin"`
	Security      SecurityConfig      `json:"security" yaml:"security"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
	Loop          LoopConfig          `json:"loop" yaml:"loop"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Content:       DefaultContentConfig(),
		HotReload:     DefaultHotReloadConfig(),
		Admin:         DefaultAdminConfig(),
		Security:      DefaultSecurityConfig(),
		Observability: DefaultObservabilityConfig(),
		Loop:          DefaultLoopConfig(),
	}
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errs []error

	if err := c.Content.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("content config validation failed: %w", err))
	}
	if err := c.HotReload.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("hot reload config validation failed: %w", err))
	}
	if err := c.Admin.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("admin config validation failed: %w", err))
	}
	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("security config validation failed: %w", err))
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability config validation failed: %w", err))
	}
	if err := c.Loop.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("loop config validation failed: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LoopConfig drives the host tick loop that pumps hot reloads
type LoopConfig struct {
	TickRate int `json:"tick_rate" yaml:"tick_rate"`
}

// DefaultLoopConfig returns the default loop configuration
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{TickRate: 60}
}

// Validate validates the loop configuration
func (l LoopConfig) Validate() error {
	if l.TickRate <= 0 || l.TickRate > 1000 {
		return fmt.Errorf("tick_rate must be between 1 and 1000, got %d", l.TickRate)
	}
	return nil
}
