package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/leslieo2/go-hot-content/internal/content"
)

// Document formats
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatTOML = "toml"
)

// DocumentParams configure a Document.
type DocumentParams struct {
	// Format overrides detection from the file extension.
	Format string
	// Required lists dotted key paths that must be present. A reload that
	// drops one is rejected.
	Required []string
	// Defaults are installed when the file cannot be loaded.
	Defaults map[string]any
}

// documentState is what a reload replaces.
type documentState struct {
	Format string
	Values map[string]any
}

// Document is a structured data file (YAML, JSON or TOML) decoded into a
// tree of maps, slices and scalars.
type Document struct {
	params DocumentParams
	state  documentState
	staged *documentState
}

var _ content.Resource = (*Document)(nil)

// Format returns the format the document was decoded from.
func (d *Document) Format() string {
	return d.state.Format
}

// Values returns the decoded top-level table.
func (d *Document) Values() map[string]any {
	return d.state.Values
}

// Get looks up a dotted key path such as "window.width".
func (d *Document) Get(path string) (any, bool) {
	return lookup(d.state.Values, path)
}

// String returns the value at path formatted with %v, or "" when absent.
func (d *Document) String(path string) string {
	v, ok := d.Get(path)
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

func (d *Document) Load(path string, params any) error {
	p, err := documentParams(path, params)
	if err != nil {
		return err
	}
	d.params = p
	st, err := d.decode(path)
	if err != nil {
		return err
	}
	if missing := st.missing(p.Required); len(missing) > 0 {
		return content.NewLoadError(content.ConstructionFailed, path,
			fmt.Errorf("missing required keys: %s", strings.Join(missing, ", ")))
	}
	d.state = st
	return nil
}

func (d *Document) decode(path string) (documentState, error) {
	format := d.params.Format
	if format == "" {
		format = formatFromExt(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return documentState{}, err
	}

	values := make(map[string]any)
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &values)
	case FormatJSON:
		err = json.Unmarshal(data, &values)
	case FormatTOML:
		err = toml.Unmarshal(data, &values)
	default:
		return documentState{}, content.NewLoadError(content.ConstructionFailed, path,
			fmt.Errorf("unsupported document format %q", format))
	}
	if err != nil {
		return documentState{}, fmt.Errorf("failed to parse %s document: %w", format, err)
	}
	return documentState{Format: format, Values: values}, nil
}

func (d *Document) Unload() {
	d.state = documentState{}
	d.staged = nil
}

func (d *Document) CreateDefaultContent(path string) bool {
	if d.params.Defaults == nil {
		return false
	}
	var values map[string]any
	if err := copier.CopyWithOption(&values, d.params.Defaults, copier.Option{DeepCopy: true}); err != nil {
		return false
	}
	d.state = documentState{Format: formatFromExt(path), Values: values}
	return true
}

// BeginHotReload decodes the file into a staged tree.
func (d *Document) BeginHotReload(path string) error {
	st, err := d.decode(path)
	if err != nil {
		return err
	}
	d.staged = &st
	return nil
}

// ApplyHotReload rejects a staged tree that lost a required key.
func (d *Document) ApplyHotReload() bool {
	return d.staged != nil && len(d.staged.missing(d.params.Required)) == 0
}

func (d *Document) Apply(other content.Resource) bool {
	o, ok := other.(*Document)
	if !ok {
		return false
	}
	if o.staged != nil {
		d.state = *o.staged
	} else {
		d.state = o.state
	}
	d.params = o.params
	o.Unload()
	return true
}

func (d *Document) CreateInstance() content.Resource {
	return &Document{params: d.params}
}

func (s documentState) missing(required []string) []string {
	var out []string
	for _, key := range required {
		if _, ok := lookup(s.Values, key); !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func lookup(values map[string]any, path string) (any, bool) {
	var cur any = values
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	}
	return ""
}

func documentParams(path string, params any) (DocumentParams, error) {
	switch p := params.(type) {
	case nil:
		return DocumentParams{}, nil
	case DocumentParams:
		return p, nil
	case *DocumentParams:
		if p == nil {
			return DocumentParams{}, nil
		}
		return *p, nil
	}
	return DocumentParams{}, mismatch(path, DocumentParams{}, params)
}
