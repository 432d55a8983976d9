package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Asset kinds accepted in the preload manifest
const (
	KindText     = "text"
	KindDocument = "document"
	KindImage    = "image"
	KindShader   = "shader"
)

// ContentConfig describes the content root and what the host loads at startup
type ContentConfig struct {
	Root           string         `json:"root" yaml:"root"`
	IgnoreSuffixes []string       `json:"ignore_suffixes" yaml:"ignore_suffixes"`
	Preload        []PreloadEntry `json:"preload" yaml:"preload"`
}

// PreloadEntry is one asset the host loads before entering its tick loop.
// An empty Kind is inferred from the file extension.
type PreloadEntry struct {
	Path string `json:"path" yaml:"path"`
	Kind string `json:"kind" yaml:"kind"`
}

// DefaultContentConfig returns default content configuration
func DefaultContentConfig() ContentConfig {
	return ContentConfig{
		Root:           "./assets",
		IgnoreSuffixes: []string{".bak", ".orig"},
	}
}

// Validate validates the content configuration
func (c ContentConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root cannot be empty"))
	}

	validKinds := map[string]bool{
		KindText: true, KindDocument: true, KindImage: true, KindShader: true,
	}
	for i, entry := range c.Preload {
		if entry.Path == "" {
			errs = append(errs, fmt.Errorf("preload[%d].path cannot be empty", i))
		}
		if entry.Kind != "" && !validKinds[strings.ToLower(entry.Kind)] {
			errs = append(errs, fmt.Errorf("preload[%d].kind %q must be one of: text, document, image, shader, or empty to infer from the extension", i, entry.Kind))
		}
	}

	for _, suffix := range c.IgnoreSuffixes {
		if !strings.HasPrefix(suffix, ".") {
			errs = append(errs, fmt.Errorf("ignore suffix %q must start with a dot", suffix))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ResolveRoot expands a leading ~ and returns the absolute content root
func (c ContentConfig) ResolveRoot() (string, error) {
	expanded, err := homedir.Expand(c.Root)
	if err != nil {
		return "", fmt.Errorf("failed to expand content root %s: %w", c.Root, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", expanded, err)
	}
	return filepath.Clean(abs), nil
}
