package config

import (
	"fmt"
	"time"

	"github.com/leslieo2/go-hot-content/internal/constants"
)

// HotReloadConfig represents hot reload configuration
type HotReloadConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Mode     string        `json:"mode" yaml:"mode"`
	Interval time.Duration `json:"interval" yaml:"interval"`
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// DefaultHotReloadConfig returns default hot reload configuration
func DefaultHotReloadConfig() HotReloadConfig {
	return HotReloadConfig{
		Enabled:  true,
		Mode:     constants.HotReloadModePoll,
		Interval: constants.DefaultPollInterval,
		Debounce: constants.DefaultDebounce,
	}
}

// Validate validates hot reload configuration
func (h HotReloadConfig) Validate() error {
	if h.Debounce < 0 {
		return fmt.Errorf("hot reload debounce time must be non-negative")
	}
	switch h.Mode {
	case constants.HotReloadModePoll:
		if h.Interval <= 0 {
			return fmt.Errorf("hot reload interval must be positive in poll mode")
		}
	case constants.HotReloadModeNotify:
	default:
		return fmt.Errorf("hot reload mode must be one of: %s, %s", constants.HotReloadModePoll, constants.HotReloadModeNotify)
	}
	return nil
}
