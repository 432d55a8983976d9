// Package assets provides the asset kinds the content manager loads: plain
// text, structured documents, images and shader sources. GPU work goes
// through Device, which in this repository is an in-process stand-in.
package assets

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Handle names an object owned by a Device. Zero is never a valid handle.
type Handle uint64

// ShaderStage selects the pipeline stage a shader source targets.
type ShaderStage string

const (
	StageVertex   ShaderStage = "vertex"
	StageFragment ShaderStage = "fragment"
	StageCompute  ShaderStage = "compute"
)

// Device is the graphics context resources upload into. Methods are only
// called on the owning goroutine, from Load, ApplyHotReload and Unload.
type Device interface {
	CreateTexture(width, height int, pixels []byte) (Handle, error)
	CompileShader(stage ShaderStage, source string) (Handle, error)
	Release(h Handle)
}

// Discard accepts every upload and keeps nothing.
var Discard Device = discardDevice{}

type discardDevice struct{}

func (discardDevice) CreateTexture(int, int, []byte) (Handle, error)   { return 0, nil }
func (discardDevice) CompileShader(ShaderStage, string) (Handle, error) { return 0, nil }
func (discardDevice) Release(Handle)                                    {}

// Upload errors
var (
	ErrTextureSize   = errors.New("texture size out of range")
	ErrShaderInvalid = errors.New("shader source invalid")
)

// NullDevice validates uploads the way a driver would reject them and
// tracks live handles, without touching any GPU.
type NullDevice struct {
	// MaxTextureSize bounds both texture dimensions. Zero means 8192.
	MaxTextureSize int

	mu   sync.Mutex
	next Handle
	live map[Handle]string
}

// NewNullDevice creates a device with no live handles.
func NewNullDevice() *NullDevice {
	return &NullDevice{live: make(map[Handle]string)}
}

func (d *NullDevice) CreateTexture(width, height int, pixels []byte) (Handle, error) {
	limit := d.MaxTextureSize
	if limit <= 0 {
		limit = 8192
	}
	if width <= 0 || height <= 0 || width > limit || height > limit {
		return 0, fmt.Errorf("%w: %dx%d, limit %d", ErrTextureSize, width, height, limit)
	}
	if len(pixels) != width*height*4 {
		return 0, fmt.Errorf("texture data is %d bytes, want %d", len(pixels), width*height*4)
	}
	return d.alloc(fmt.Sprintf("texture %dx%d", width, height)), nil
}

// CompileShader accepts sources with an entry point and balanced braces.
func (d *NullDevice) CompileShader(stage ShaderStage, source string) (Handle, error) {
	if !strings.Contains(source, "main(") {
		return 0, fmt.Errorf("%w: %s shader has no main entry point", ErrShaderInvalid, stage)
	}
	depth := 0
	for i, line := range strings.Split(source, "\n") {
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			return 0, fmt.Errorf("%w: %s shader line %d: unexpected '}'", ErrShaderInvalid, stage, i+1)
		}
	}
	if depth != 0 {
		return 0, fmt.Errorf("%w: %s shader: unbalanced braces", ErrShaderInvalid, stage)
	}
	return d.alloc(string(stage) + " shader"), nil
}

func (d *NullDevice) Release(h Handle) {
	if h == 0 {
		return
	}
	d.mu.Lock()
	delete(d.live, h)
	d.mu.Unlock()
}

// Live returns the number of handles created and not yet released.
func (d *NullDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

func (d *NullDevice) alloc(desc string) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.live == nil {
		d.live = make(map[Handle]string)
	}
	d.next++
	d.live[d.next] = desc
	return d.next
}

func deviceOr(d Device) Device {
	if d == nil {
		return Discard
	}
	return d
}
