package assets

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leslieo2/go-hot-content/internal/config"
	"github.com/leslieo2/go-hot-content/internal/content"
)

// ForKind returns the factory and default params for a manifest kind.
// An empty kind is guessed from the file extension.
func ForKind(kind, path string, device Device) (content.Factory, any, error) {
	if kind == "" {
		kind = KindFromExt(path)
	}
	switch strings.ToLower(kind) {
	case config.KindText:
		return func() content.Resource { return &Text{} }, TextParams{}, nil
	case config.KindDocument:
		return func() content.Resource { return &Document{} }, DocumentParams{}, nil
	case config.KindImage:
		return func() content.Resource { return &Image{} }, ImageParams{Device: device}, nil
	case config.KindShader:
		return func() content.Resource { return &Shader{} }, ShaderParams{Device: device}, nil
	}
	return nil, nil, fmt.Errorf("unknown content kind %q for %s", kind, path)
}

// KindFromExt guesses a manifest kind from a file name.
func KindFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
		return config.KindDocument
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return config.KindImage
	case ".glsl", ".vert", ".frag", ".comp", ".vs", ".fs", ".cs":
		return config.KindShader
	}
	return config.KindText
}
