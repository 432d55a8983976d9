package assets

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leslieo2/go-hot-content/internal/content"
)

const includeDirective = "#include"

// ShaderParams configure a Shader.
type ShaderParams struct {
	// Device compiles the expanded source. Nil compiles nothing.
	Device Device
	// Stage defaults to one derived from the file extension.
	Stage ShaderStage
	// Defines are emitted as #define lines ahead of the source.
	Defines map[string]string
	// NoFallback disables the built-in error shader.
	NoFallback bool
}

// shaderState is what a reload replaces.
type shaderState struct {
	Stage    ShaderStage
	Source   string
	Includes []string
}

// Shader is a text shader source with #include expansion, compiled by a
// Device. A reload whose source fails to compile is rejected and the
// running program stays bound.
type Shader struct {
	params ShaderParams
	state  shaderState
	handle Handle
	staged *shaderState
}

var _ content.Resource = (*Shader)(nil)

// Source returns the expanded source.
func (s *Shader) Source() string {
	return s.state.Source
}

// Stage returns the pipeline stage.
func (s *Shader) Stage() ShaderStage {
	return s.state.Stage
}

// Includes lists the files pulled in by #include, in expansion order.
func (s *Shader) Includes() []string {
	return s.state.Includes
}

// Handle returns the compiled program.
func (s *Shader) Handle() Handle {
	return s.handle
}

func (s *Shader) Load(path string, params any) error {
	p, err := shaderParams(path, params)
	if err != nil {
		return err
	}
	s.params = p
	st, err := s.preprocess(path)
	if err != nil {
		return err
	}
	h, err := deviceOr(p.Device).CompileShader(st.Stage, st.Source)
	if err != nil {
		return content.NewLoadError(content.ConstructionFailed, path, err)
	}
	s.state = st
	s.handle = h
	return nil
}

// preprocess reads path and expands includes and defines.
func (s *Shader) preprocess(path string) (shaderState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return shaderState{}, err
	}

	stage := s.params.Stage
	if stage == "" {
		stage = stageFromExt(path)
	}

	var (
		out      strings.Builder
		includes []string
	)
	names := make([]string, 0, len(s.params.Defines))
	for name := range s.params.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&out, "#define %s %s\n", name, s.params.Defines[name])
	}

	visiting := map[string]bool{path: true}
	if err := expand(&out, string(data), filepath.Dir(path), visiting, &includes); err != nil {
		return shaderState{}, content.NewLoadError(content.DependencyFailed, path, err)
	}
	return shaderState{Stage: stage, Source: out.String(), Includes: includes}, nil
}

func expand(out *strings.Builder, src, dir string, visiting map[string]bool, includes *[]string) error {
	sc := bufio.NewScanner(strings.NewReader(src))
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		rest, ok := strings.CutPrefix(strings.TrimSpace(text), includeDirective)
		if !ok {
			out.WriteString(text)
			out.WriteByte('\n')
			continue
		}

		name := strings.Trim(strings.TrimSpace(rest), `"<>`)
		if name == "" {
			return fmt.Errorf("line %d: empty include", line)
		}
		inc := filepath.Join(dir, filepath.FromSlash(name))
		if visiting[inc] {
			return fmt.Errorf("line %d: include cycle through %s", line, name)
		}
		data, err := os.ReadFile(inc)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		*includes = append(*includes, inc)
		visiting[inc] = true
		if err := expand(out, string(data), filepath.Dir(inc), visiting, includes); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		delete(visiting, inc)
	}
	return sc.Err()
}

func (s *Shader) Unload() {
	if s.handle != 0 {
		deviceOr(s.params.Device).Release(s.handle)
	}
	s.handle = 0
	s.state = shaderState{}
	s.staged = nil
}

// CreateDefaultContent binds a shader that paints everything magenta.
func (s *Shader) CreateDefaultContent(path string) bool {
	if s.params.NoFallback {
		return false
	}
	stage := s.params.Stage
	if stage == "" {
		stage = stageFromExt(path)
	}
	src := fallbackSource(stage)
	h, err := deviceOr(s.params.Device).CompileShader(stage, src)
	if err != nil {
		return false
	}
	s.state = shaderState{Stage: stage, Source: src}
	s.handle = h
	return true
}

// BeginHotReload reads and expands the source. Compilation waits for
// ApplyHotReload.
func (s *Shader) BeginHotReload(path string) error {
	st, err := s.preprocess(path)
	if err != nil {
		return err
	}
	s.staged = &st
	return nil
}

// ApplyHotReload compiles the staged source and rejects it on error.
func (s *Shader) ApplyHotReload() bool {
	if s.staged == nil {
		return false
	}
	h, err := deviceOr(s.params.Device).CompileShader(s.staged.Stage, s.staged.Source)
	if err != nil {
		return false
	}
	s.handle = h
	return true
}

func (s *Shader) Apply(other content.Resource) bool {
	o, ok := other.(*Shader)
	if !ok {
		return false
	}
	if o.staged != nil {
		s.state = *o.staged
	} else {
		s.state = o.state
	}
	s.params = o.params
	s.handle = o.handle
	o.handle = 0
	o.state = shaderState{}
	o.staged = nil
	return true
}

func (s *Shader) CreateInstance() content.Resource {
	return &Shader{params: s.params}
}

func stageFromExt(path string) ShaderStage {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vert", ".vs":
		return StageVertex
	case ".comp", ".cs":
		return StageCompute
	}
	return StageFragment
}

func fallbackSource(stage ShaderStage) string {
	switch stage {
	case StageVertex:
		return "void main() {\n\tgl_Position = vec4(0.0);\n}\n"
	case StageCompute:
		return "layout(local_size_x = 1) in;\nvoid main() {\n}\n"
	}
	return "out vec4 color;\nvoid main() {\n\tcolor = vec4(1.0, 0.0, 1.0, 1.0);\n}\n"
}

func shaderParams(path string, params any) (ShaderParams, error) {
	switch p := params.(type) {
	case nil:
		return ShaderParams{}, nil
	case ShaderParams:
		return p, nil
	case *ShaderParams:
		if p == nil {
			return ShaderParams{}, nil
		}
		return *p, nil
	}
	return ShaderParams{}, mismatch(path, ShaderParams{}, params)
}
