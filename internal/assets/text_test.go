package assets

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leslieo2/go-hot-content/internal/content"
)

func TestText_Load(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "readme.txt", "hello")

	var txt Text
	require.NoError(t, txt.Load(path, nil))
	assert.Equal(t, "hello", txt.String())
}

func TestText_LoadFailures(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, dir, "big.txt", "0123456789")
	binary := writeFile(t, dir, "bin.txt", "\xff\xfe\xfd")

	tests := []struct {
		name   string
		path   string
		params any
		want   error
	}{
		{"missing", filepath.Join(dir, "missing.txt"), nil, fs.ErrNotExist},
		{"too large", big, TextParams{MaxBytes: 4}, content.ErrConstructionFailed},
		{"invalid utf8", binary, nil, content.ErrConstructionFailed},
		{"wrong params", big, ImageParams{}, content.ErrParameterMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var txt Text
			assert.ErrorIs(t, txt.Load(tt.path, tt.params), tt.want)
		})
	}
}

func TestText_Placeholder(t *testing.T) {
	var txt Text
	assert.Error(t, txt.Load("/nonexistent/x.txt", TextParams{Placeholder: "???"}))
	assert.True(t, txt.CreateDefaultContent("/nonexistent/x.txt"))
	assert.Equal(t, "???", txt.String())

	var bare Text
	assert.False(t, bare.CreateDefaultContent("x.txt"))
}

func TestText_HotReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "v1")

	live := &Text{}
	require.NoError(t, live.Load(path, TextParams{MaxBytes: 100}))

	writeFile(t, dir, "a.txt", "v2")
	shadow := live.CreateInstance().(*Text)
	require.NoError(t, shadow.BeginHotReload(path))
	require.True(t, shadow.ApplyHotReload())

	live.Unload()
	require.True(t, live.Apply(shadow))
	assert.Equal(t, "v2", live.String())
	assert.Equal(t, int64(100), live.params.MaxBytes)
	assert.Empty(t, shadow.String())

	assert.False(t, live.Apply(&Document{}))
	assert.False(t, (&Text{}).ApplyHotReload(), "nothing staged")
}
