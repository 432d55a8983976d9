package assets

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/leslieo2/go-hot-content/internal/content"
)

// TextParams configure a Text.
type TextParams struct {
	// MaxBytes rejects larger files. Zero means no limit.
	MaxBytes int64
	// Placeholder is installed when the file cannot be loaded. Empty means
	// a missing file is an error.
	Placeholder string
}

// Text is a UTF-8 text file.
type Text struct {
	params TextParams
	body   string
	staged *string
}

var _ content.Resource = (*Text)(nil)

// String returns the current contents.
func (t *Text) String() string {
	return t.body
}

func (t *Text) Load(path string, params any) error {
	p, err := textParams(path, params)
	if err != nil {
		return err
	}
	t.params = p
	body, err := t.read(path)
	if err != nil {
		return err
	}
	t.body = body
	return nil
}

func (t *Text) read(path string) (string, error) {
	if t.params.MaxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		if info.Size() > t.params.MaxBytes {
			return "", content.NewLoadError(content.ConstructionFailed, path,
				fmt.Errorf("file is %d bytes, limit %d", info.Size(), t.params.MaxBytes))
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", content.NewLoadError(content.ConstructionFailed, path, fmt.Errorf("not valid UTF-8"))
	}
	return string(data), nil
}

func (t *Text) Unload() {
	t.body = ""
	t.staged = nil
}

func (t *Text) CreateDefaultContent(path string) bool {
	if t.params.Placeholder == "" {
		return false
	}
	t.body = t.params.Placeholder
	return true
}

func (t *Text) BeginHotReload(path string) error {
	body, err := t.read(path)
	if err != nil {
		return err
	}
	t.staged = &body
	return nil
}

func (t *Text) ApplyHotReload() bool {
	return t.staged != nil
}

func (t *Text) Apply(other content.Resource) bool {
	o, ok := other.(*Text)
	if !ok {
		return false
	}
	t.params = o.params
	if o.staged != nil {
		t.body = *o.staged
	} else {
		t.body = o.body
	}
	o.body = ""
	o.staged = nil
	return true
}

func (t *Text) CreateInstance() content.Resource {
	return &Text{params: t.params}
}

func textParams(path string, params any) (TextParams, error) {
	switch p := params.(type) {
	case nil:
		return TextParams{}, nil
	case TextParams:
		return p, nil
	case *TextParams:
		if p == nil {
			return TextParams{}, nil
		}
		return *p, nil
	}
	return TextParams{}, mismatch(path, TextParams{}, params)
}

func mismatch(path string, want, got any) error {
	return content.NewLoadError(content.ParameterMismatch, path, fmt.Errorf("params must be %T, got %T", want, got))
}
