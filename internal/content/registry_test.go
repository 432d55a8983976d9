package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRegistry_Load_ReturnsCachedInstance(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "hello")
	stats := &mockStats{}

	first, err := r.Load(PathKey("a.txt"), nil, mockFactory(stats))
	require.NoError(t, err)
	second, err := r.Load(PathKey("a.txt"), nil, mockFactory(stats))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), stats.loads.Load(), "a cache hit must not reload")
	assert.Equal(t, 2, r.RefCount(PathKey("a.txt")))
	assert.Equal(t, "hello", first.(*mockResource).content)
}

func TestRegistry_Unload_EvictsAtZero(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "hello")
	stats := &mockStats{}
	key := PathKey("a.txt")

	_, err := r.Load(key, nil, mockFactory(stats))
	require.NoError(t, err)
	_, err = r.Load(key, nil, mockFactory(stats))
	require.NoError(t, err)

	assert.True(t, r.Unload(key))
	assert.True(t, r.Contains(key))
	assert.Equal(t, int32(0), stats.unloads.Load())

	assert.True(t, r.Unload(key))
	assert.False(t, r.Contains(key))
	assert.Equal(t, int32(1), stats.unloads.Load())

	_, ok := r.catalog.get(key)
	assert.False(t, ok, "evicted keys leave the catalog")
}

func TestRegistry_RefCountTracksLoadsMinusUnloads(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "hello")
	stats := &mockStats{}
	key := PathKey("a.txt")

	for n := 1; n <= 5; n++ {
		_, err := r.Load(key, nil, mockFactory(stats))
		require.NoError(t, err)
		assert.Equal(t, n, r.RefCount(key))
	}
	for n := 4; n >= 0; n-- {
		r.Unload(key)
		assert.Equal(t, n, r.RefCount(key))
	}
	assert.Equal(t, int32(1), stats.unloads.Load())
}

func TestRegistry_Unload_UnknownKeyIsNoop(t *testing.T) {
	r, root, logs := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "hello")
	stats := &mockStats{}
	key := PathKey("a.txt")

	assert.False(t, r.Unload(PathKey("never.txt")))

	_, err := r.Load(key, nil, mockFactory(stats))
	require.NoError(t, err)
	assert.True(t, r.Unload(key))
	assert.False(t, r.Unload(key))
	assert.False(t, r.Unload(key))

	assert.Equal(t, int32(1), stats.unloads.Load())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 3, logs.FilterMessage("Unload of unknown content ignored").Len())
}

func TestRegistry_UnloadResource(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "hello")

	res, err := r.Load(PathKey("a.txt"), nil, mockFactory(&mockStats{}))
	require.NoError(t, err)

	assert.False(t, r.UnloadResource(nil))
	assert.False(t, r.UnloadResource(&mockResource{stats: &mockStats{}}))
	assert.True(t, r.UnloadResource(res))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, int32(1), res.(*mockResource).unloaded.Load())
}

func TestRegistry_Load_MissingFileFails(t *testing.T) {
	r, _, logs := newTestRegistry(t)
	stats := &mockStats{}

	res, err := r.Load(PathKey("missing.txt"), nil, mockFactory(stats))

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrOpenFailed)
	assert.False(t, r.Contains(PathKey("missing.txt")))
	assert.Equal(t, int32(1), stats.defaults.Load(), "fallback gets one chance")
	assert.Equal(t, 1, logs.FilterMessage("Content load failed").FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestRegistry_Load_CorruptFileIsConstructionFailed(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "bad.txt", "corrupt data")

	_, err := r.Load(PathKey("bad.txt"), nil, mockFactory(&mockStats{}))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ConstructionFailed, kind)
}

func TestRegistry_Load_FallbackInsertsDefault(t *testing.T) {
	r, _, logs := newTestRegistry(t)
	stats := &mockStats{allowDefault: true}
	key := PathKey("missing.txt")

	res, err := r.Load(key, nil, mockFactory(stats))

	require.NoError(t, err)
	assert.Equal(t, "default", res.(*mockResource).content)
	assert.Equal(t, 1, r.RefCount(key))
	records := r.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Fallback)
	assert.Equal(t, 1, logs.FilterMessage("Content load failed, using default content").Len())
}

func TestRegistry_Load_ParameterMismatchSkipsFallback(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "hello")
	stats := &mockStats{allowDefault: true}

	_, err := r.Load(PathKey("a.txt"), 42, mockFactory(stats))

	assert.ErrorIs(t, err, ErrParameterMismatch)
	assert.Equal(t, int32(0), stats.defaults.Load())
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Load_KeyEscapingRootFails(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	stats := &mockStats{allowDefault: true}

	_, err := r.Load(PathKey("../outside.txt"), nil, mockFactory(stats))

	assert.ErrorIs(t, err, ErrOpenFailed)
	assert.Equal(t, int32(0), stats.loads.Load(), "nothing outside the root is opened")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Load_PassesParams(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "hello")

	res, err := r.Load(PathKey("a.txt"), mockParams{Tag: "x"}, mockFactory(&mockStats{}))

	require.NoError(t, err)
	assert.Equal(t, mockParams{Tag: "x"}, res.(*mockResource).params)
}

func TestRegistry_Add(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "checker", "file")
	stats := &mockStats{}

	mem := &mockResource{stats: stats, content: "generated"}
	require.NoError(t, r.Add("checker", mem))

	err := r.Add("checker", &mockResource{stats: stats})
	var dup DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, IDKey("checker"), dup.Key)

	fromFile, err := r.Load(PathKey("checker"), nil, mockFactory(stats))
	require.NoError(t, err)
	assert.NotSame(t, mem, fromFile, "ids and paths live in separate key spaces")

	got, ok := r.GetLoaded(IDKey("checker"))
	require.True(t, ok)
	assert.Same(t, mem, got)
	assert.Equal(t, 2, r.RefCount(IDKey("checker")))
}

func TestRegistry_GetLoaded(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "hello")

	_, ok := r.GetLoaded(PathKey("a.txt"))
	assert.False(t, ok)

	_, err := r.Load(PathKey("a.txt"), nil, mockFactory(&mockStats{}))
	require.NoError(t, err)
	_, ok = r.GetLoaded(PathKey("a.txt"))
	assert.True(t, ok)
	assert.Equal(t, 2, r.RefCount(PathKey("a.txt")))
}

func TestRegistry_ForceReload_InPlace(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "v1")
	stats := &mockStats{}
	key := PathKey("a.txt")

	handle, err := r.Load(key, nil, mockFactory(stats))
	require.NoError(t, err)
	_, err = r.Load(key, nil, mockFactory(stats))
	require.NoError(t, err)

	writeAsset(t, root, "a.txt", "v2 with params")
	got, err := r.ForceReload(key, mockParams{Tag: "new"}, mockFactory(stats))

	require.NoError(t, err)
	assert.Same(t, handle, got)
	assert.Equal(t, "v2 with params", handle.(*mockResource).content)
	assert.Equal(t, mockParams{Tag: "new"}, handle.(*mockResource).params)
	assert.Equal(t, 2, r.RefCount(key))
	assert.Equal(t, int32(1), handle.(*mockResource).unloaded.Load())
}

func TestRegistry_ForceReload_FailureKeepsLive(t *testing.T) {
	r, root, logs := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "v1")
	key := PathKey("a.txt")

	handle, err := r.Load(key, nil, mockFactory(&mockStats{}))
	require.NoError(t, err)

	writeAsset(t, root, "a.txt", "corrupt now")
	_, err = r.ForceReload(key, nil, mockFactory(&mockStats{}))

	assert.ErrorIs(t, err, ErrConstructionFailed)
	assert.Equal(t, "v1", handle.(*mockResource).content)
	assert.Equal(t, int32(0), handle.(*mockResource).unloaded.Load())
	assert.Equal(t, 1, logs.FilterMessage("Forced reload failed, keeping live content").Len())
}

func TestRegistry_ForceReload_AbsentKeyLoads(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "v1")

	res, err := r.ForceReload(PathKey("a.txt"), nil, mockFactory(&mockStats{}))

	require.NoError(t, err)
	assert.Equal(t, "v1", res.(*mockResource).content)
	assert.Equal(t, 1, r.RefCount(PathKey("a.txt")))
}

func TestRegistry_UnloadAll(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "a")
	writeAsset(t, root, "b.txt", "b")
	stats := &mockStats{}

	for _, name := range []string{"a.txt", "a.txt", "b.txt"} {
		_, err := r.Load(PathKey(name), nil, mockFactory(stats))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, r.UnloadAll())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, int32(2), stats.unloads.Load())
	assert.Equal(t, 0, r.catalog.len())
}

func TestRegistry_Records(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "b.txt", "b")
	writeAsset(t, root, "a.txt", "a")
	stats := &mockStats{}

	_, err := r.Load(PathKey("b.txt"), nil, mockFactory(stats))
	require.NoError(t, err)
	_, err = r.Load(PathKey("a.txt"), nil, mockFactory(stats))
	require.NoError(t, err)
	require.NoError(t, r.Add("gen", &mockResource{stats: stats}))

	records := r.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "a.txt", records[0].Key)
	assert.Equal(t, "b.txt", records[1].Key)
	assert.Equal(t, "id:gen", records[2].Key)
	assert.NotEmpty(t, records[0].Path)
	assert.Empty(t, records[2].Path)
	assert.Equal(t, "*content.mockResource", records[0].Kind)
}

func TestRegistry_CatalogMirrorsRecords(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "a")
	key := PathKey("a.txt")

	live, err := r.Load(key, nil, mockFactory(&mockStats{}))
	require.NoError(t, err)

	entry, ok := r.catalog.get(key)
	require.True(t, ok)
	assert.NotSame(t, live, entry.prototype, "the watcher gets its own blank instance")
	assert.Equal(t, r.recordPath(key), entry.path)
}

func TestRegistry_GenerationTracksReplacement(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "a")
	key := PathKey("a.txt")
	stats := &mockStats{}

	_, err := r.Load(key, nil, mockFactory(stats))
	require.NoError(t, err)
	first, _ := r.catalog.get(key)

	_, err = r.Load(key, nil, mockFactory(stats))
	require.NoError(t, err)
	hit, _ := r.catalog.get(key)
	assert.Equal(t, first.gen, hit.gen, "a cache hit keeps the generation")

	_, err = r.ForceReload(key, mockParams{Tag: "new"}, mockFactory(stats))
	require.NoError(t, err)
	forced, _ := r.catalog.get(key)
	assert.Greater(t, forced.gen, first.gen)
	assert.Equal(t, mockParams{Tag: "new"}, forced.prototype.(*mockResource).params)

	r.Unload(key)
	r.Unload(key)
	require.False(t, r.Contains(key))
	_, err = r.Load(key, nil, mockFactory(stats))
	require.NoError(t, err)
	reloaded, _ := r.catalog.get(key)
	assert.Greater(t, reloaded.gen, forced.gen)
}

func TestRegistry_ForceReload_KindMismatchKeepsLive(t *testing.T) {
	r, root, _ := newTestRegistry(t)
	writeAsset(t, root, "a.txt", "v1")
	key := PathKey("a.txt")

	handle, err := r.Load(key, nil, func() Resource { return &driftingResource{} })
	require.NoError(t, err)
	_, err = r.ForceReload(key, nil, nil)

	assert.ErrorIs(t, err, ErrParameterMismatch)
	assert.Equal(t, "v1", handle.(*driftingResource).content)
	assert.Equal(t, int32(0), handle.(*driftingResource).unloaded.Load())
}

// driftingResource spawns instances of another kind.
type driftingResource struct {
	mockResource
}

func (d *driftingResource) CreateInstance() Resource {
	return &mockResource{stats: d.st()}
}
