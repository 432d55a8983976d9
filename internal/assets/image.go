package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/leslieo2/go-hot-content/internal/content"
)

// ImageParams configure an Image.
type ImageParams struct {
	// Device receives the decoded pixels. Nil uploads to Discard.
	Device Device
	// MaxPixels rejects larger images before decoding. Zero means no limit.
	MaxPixels int
	// NoFallback disables the checkerboard installed for missing images.
	NoFallback bool
}

// imageData is decoded RGBA pixels waiting for upload.
type imageData struct {
	mime   string
	width  int
	height int
	pixels []byte
}

// Image is a texture decoded from PNG, JPEG, GIF, BMP, TIFF or WebP and
// uploaded to a Device.
type Image struct {
	params ImageParams
	data   imageData
	handle Handle
	staged *imageData
}

var _ content.Resource = (*Image)(nil)

// NewChecker builds a procedural checkerboard texture, for registering
// under a synthetic key with Manager.Add.
func NewChecker(device Device, size, cell int, a, b color.RGBA) (*Image, error) {
	img := &Image{params: ImageParams{Device: device}}
	img.data = checker(size, cell, a, b)
	h, err := deviceOr(device).CreateTexture(img.data.width, img.data.height, img.data.pixels)
	if err != nil {
		return nil, err
	}
	img.handle = h
	return img, nil
}

// Size returns the image dimensions.
func (i *Image) Size() (width, height int) {
	return i.data.width, i.data.height
}

// MIME returns the sniffed content type, empty for procedural images.
func (i *Image) MIME() string {
	return i.data.mime
}

// Handle returns the device texture.
func (i *Image) Handle() Handle {
	return i.handle
}

// Pixels returns the RGBA8 pixel data.
func (i *Image) Pixels() []byte {
	return i.data.pixels
}

func (i *Image) Load(path string, params any) error {
	p, err := imageParams(path, params)
	if err != nil {
		return err
	}
	i.params = p
	data, err := i.decode(path)
	if err != nil {
		return err
	}
	h, err := deviceOr(p.Device).CreateTexture(data.width, data.height, data.pixels)
	if err != nil {
		return content.NewLoadError(content.ConstructionFailed, path, fmt.Errorf("texture upload failed: %w", err))
	}
	i.data = data
	i.handle = h
	return nil
}

func (i *Image) decode(path string) (imageData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return imageData{}, err
	}
	kind, err := filetype.Image(raw)
	if err != nil || kind == filetype.Unknown {
		return imageData{}, content.NewLoadError(content.ConstructionFailed, path, fmt.Errorf("not a recognized image format"))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return imageData{}, fmt.Errorf("failed to read %s header: %w", kind.MIME.Value, err)
	}
	if i.params.MaxPixels > 0 && cfg.Width*cfg.Height > i.params.MaxPixels {
		return imageData{}, content.NewLoadError(content.ConstructionFailed, path,
			fmt.Errorf("image is %dx%d, limit %d pixels", cfg.Width, cfg.Height, i.params.MaxPixels))
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return imageData{}, fmt.Errorf("failed to decode %s: %w", kind.MIME.Value, err)
	}
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)

	return imageData{mime: kind.MIME.Value, width: b.Dx(), height: b.Dy(), pixels: rgba.Pix}, nil
}

func (i *Image) Unload() {
	if i.handle != 0 {
		deviceOr(i.params.Device).Release(i.handle)
	}
	i.handle = 0
	i.data = imageData{}
	i.staged = nil
}

// CreateDefaultContent installs a magenta checkerboard.
func (i *Image) CreateDefaultContent(path string) bool {
	if i.params.NoFallback {
		return false
	}
	data := checker(64, 8, color.RGBA{R: 255, B: 255, A: 255}, color.RGBA{A: 255})
	h, err := deviceOr(i.params.Device).CreateTexture(data.width, data.height, data.pixels)
	if err != nil {
		return false
	}
	i.data = data
	i.handle = h
	return true
}

// BeginHotReload decodes pixels; the upload waits for ApplyHotReload.
func (i *Image) BeginHotReload(path string) error {
	data, err := i.decode(path)
	if err != nil {
		return err
	}
	i.staged = &data
	return nil
}

// ApplyHotReload uploads the staged pixels, rejecting what the device refuses.
func (i *Image) ApplyHotReload() bool {
	if i.staged == nil {
		return false
	}
	h, err := deviceOr(i.params.Device).CreateTexture(i.staged.width, i.staged.height, i.staged.pixels)
	if err != nil {
		return false
	}
	i.data = *i.staged
	i.handle = h
	i.staged = nil
	return true
}

func (i *Image) Apply(other content.Resource) bool {
	o, ok := other.(*Image)
	if !ok {
		return false
	}
	i.params = o.params
	i.data = o.data
	i.handle = o.handle
	if o.staged != nil {
		i.data = *o.staged
	}
	o.handle = 0
	o.data = imageData{}
	o.staged = nil
	return true
}

func (i *Image) CreateInstance() content.Resource {
	return &Image{params: i.params}
}

func checker(size, cell int, a, b color.RGBA) imageData {
	if cell <= 0 {
		cell = 1
	}
	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			rgba.SetRGBA(x, y, c)
		}
	}
	return imageData{width: size, height: size, pixels: rgba.Pix}
}

func imageParams(path string, params any) (ImageParams, error) {
	switch p := params.(type) {
	case nil:
		return ImageParams{}, nil
	case ImageParams:
		return p, nil
	case *ImageParams:
		if p == nil {
			return ImageParams{}, nil
		}
		return *p, nil
	}
	return ImageParams{}, mismatch(path, ImageParams{}, params)
}
