package assets

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leslieo2/go-hot-content/internal/content"
)

var red = color.RGBA{R: 255, A: 255}

func TestImage_LoadPNGAndBMP(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		mime string
	}{
		{"png", writePNG(t, dir, "wall.png", 4, 2, red), "image/png"},
		{"bmp", writeBMP(t, dir, "wall.bmp", 4, 2, red), "image/bmp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := NewNullDevice()
			var img Image
			require.NoError(t, img.Load(tt.path, ImageParams{Device: dev}))

			w, h := img.Size()
			assert.Equal(t, 4, w)
			assert.Equal(t, 2, h)
			assert.Equal(t, tt.mime, img.MIME())
			assert.Len(t, img.Pixels(), 4*2*4)
			assert.Equal(t, []byte{255, 0, 0, 255}, img.Pixels()[:4])
			assert.NotZero(t, img.Handle())
			assert.Equal(t, 1, dev.Live())

			img.Unload()
			assert.Equal(t, 0, dev.Live())
			assert.Zero(t, img.Handle())
		})
	}
}

func TestImage_LoadFailures(t *testing.T) {
	dir := t.TempDir()
	notImage := writeFile(t, dir, "fake.png", "definitely not pixels")
	big := writePNG(t, dir, "big.png", 16, 16, red)

	var img Image
	assert.ErrorIs(t, img.Load(notImage, nil), content.ErrConstructionFailed)
	assert.ErrorIs(t, img.Load(big, ImageParams{MaxPixels: 64}), content.ErrConstructionFailed)
	assert.ErrorIs(t, img.Load(big, ShaderParams{}), content.ErrParameterMismatch)

	small := NewNullDevice()
	small.MaxTextureSize = 8
	assert.ErrorIs(t, img.Load(big, ImageParams{Device: small}), content.ErrConstructionFailed)
	assert.Equal(t, 0, small.Live())
}

func TestImage_CheckerFallback(t *testing.T) {
	dev := NewNullDevice()
	var img Image
	require.Error(t, img.Load("/nonexistent/wall.png", ImageParams{Device: dev}))

	require.True(t, img.CreateDefaultContent("/nonexistent/wall.png"))
	w, h := img.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 64, h)
	assert.Equal(t, 1, dev.Live())

	var strict Image
	require.Error(t, strict.Load("/nonexistent/wall.png", ImageParams{NoFallback: true}))
	assert.False(t, strict.CreateDefaultContent("/nonexistent/wall.png"))
}

func TestNewChecker(t *testing.T) {
	dev := NewNullDevice()
	img, err := NewChecker(dev, 4, 2, red, color.RGBA{A: 255})
	require.NoError(t, err)

	assert.Equal(t, []byte{255, 0, 0, 255}, img.Pixels()[:4])
	assert.Equal(t, []byte{0, 0, 0, 255}, img.Pixels()[8:12])
	assert.Equal(t, 1, dev.Live())
	assert.Empty(t, img.MIME())

	_, err = NewChecker(dev, 0, 1, red, red)
	assert.ErrorIs(t, err, ErrTextureSize)
}

func TestImage_HotReloadUploadsInPhaseTwo(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "wall.png", 2, 2, red)
	dev := NewNullDevice()

	live := &Image{}
	require.NoError(t, live.Load(path, ImageParams{Device: dev}))
	oldHandle := live.Handle()

	writePNG(t, dir, "wall.png", 4, 4, color.RGBA{G: 255, A: 255})
	shadow := live.CreateInstance().(*Image)
	require.NoError(t, shadow.BeginHotReload(path))
	assert.Equal(t, 1, dev.Live(), "phase one never touches the device")

	require.True(t, shadow.ApplyHotReload())
	assert.Equal(t, 2, dev.Live())

	live.Unload()
	require.True(t, live.Apply(shadow))
	assert.Equal(t, 1, dev.Live())
	assert.NotEqual(t, oldHandle, live.Handle())
	w, _ := live.Size()
	assert.Equal(t, 4, w)

	shadow.Unload()
	assert.Equal(t, 1, dev.Live(), "an absorbed shadow owns nothing")
}

func TestImage_HotReloadRejectedByDevice(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "wall.png", 2, 2, red)
	dev := NewNullDevice()
	dev.MaxTextureSize = 4

	live := &Image{}
	require.NoError(t, live.Load(path, ImageParams{Device: dev}))

	writePNG(t, dir, "wall.png", 8, 8, red)
	shadow := live.CreateInstance().(*Image)
	require.NoError(t, shadow.BeginHotReload(path))
	assert.False(t, shadow.ApplyHotReload())

	shadow.Unload()
	assert.Equal(t, 1, dev.Live())
	w, _ := live.Size()
	assert.Equal(t, 2, w)
}
