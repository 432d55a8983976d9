package content

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/observability"
)

// record is one live, reference-counted resource.
type record struct {
	key      Key
	path     string
	res      Resource
	refs     int
	fallback bool
	// gen changes whenever the record is replaced or reloaded with new
	// params; shadows prepared for an older gen are stale.
	gen uint64
}

// RecordInfo is a read-only view of a record.
type RecordInfo struct {
	Key      string `json:"key"`
	Path     string `json:"path,omitempty"`
	Kind     string `json:"kind"`
	RefCount int    `json:"ref_count"`
	Fallback bool   `json:"fallback"`
}

// Registry maps keys to live resources and counts their consumers.
//
// A Registry belongs to one goroutine. None of its methods lock; the only
// state shared with the watcher is the catalog.
type Registry struct {
	root    string
	records map[Key]*record
	catalog *catalog
	version uint64
	lastGen uint64

	logger  *zap.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// NewRegistry creates an empty registry resolving path keys under root.
func NewRegistry(root string, logger *zap.Logger, metrics *observability.Metrics, tracer *observability.Tracer) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	if tracer == nil {
		tracer = observability.NewNoopTracer()
	}
	return &Registry{
		root:    root,
		records: make(map[Key]*record),
		catalog: newCatalog(),
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Root returns the content root path keys resolve under.
func (r *Registry) Root() string {
	return r.root
}

// resolve maps a key to the path handed to the resource. Synthetic keys
// pass their id through unchanged.
func (r *Registry) resolve(key Key) (string, error) {
	if key.Synthetic {
		return key.Name, nil
	}
	if key.escapesRoot() {
		return "", &LoadError{Kind: OpenFailed, Key: key, Err: fmt.Errorf("path is outside content root %s", r.root)}
	}
	return filepath.Join(r.root, filepath.FromSlash(key.Name)), nil
}

// Load returns the live resource for key, constructing it with factory on a
// miss. A hit only increments the reference count.
//
// When the resource's Load fails, CreateDefaultContent gets one chance to
// install stand-in content. Nothing is inserted unless one of them succeeds.
func (r *Registry) Load(key Key, params any, factory Factory) (Resource, error) {
	if rec, ok := r.records[key]; ok {
		rec.refs++
		r.version++
		r.metrics.RecordLoad(observability.LoadResultCached)
		return rec.res, nil
	}

	path, err := r.resolve(key)
	if err != nil {
		r.metrics.RecordLoad(observability.LoadResultFailed)
		r.logger.Error("Content load failed", zap.Stringer("key", key), zap.Error(err))
		return nil, err
	}

	res := factory()
	if err := res.Load(path, params); err != nil {
		le := classify(err, key, path)

		if le.Kind != ParameterMismatch && res.CreateDefaultContent(path) {
			r.insert(key, path, res, true)
			r.metrics.RecordLoad(observability.LoadResultFallback)
			r.logger.Warn("Content load failed, using default content",
				zap.Stringer("key", key),
				zap.String("kind", le.Kind.String()),
				zap.Error(le.Err),
			)
			return res, nil
		}

		r.metrics.RecordLoad(observability.LoadResultFailed)
		r.logger.Error("Content load failed",
			zap.Stringer("key", key),
			zap.String("kind", le.Kind.String()),
			zap.Error(le.Err),
		)
		return nil, le
	}

	r.insert(key, path, res, false)
	r.metrics.RecordLoad(observability.LoadResultLoaded)
	r.logger.Debug("Content loaded", zap.Stringer("key", key), zap.String("path", path))
	return res, nil
}

// GetLoaded returns an existing record's resource and increments its count.
func (r *Registry) GetLoaded(key Key) (Resource, bool) {
	rec, ok := r.records[key]
	if !ok {
		return nil, false
	}
	rec.refs++
	r.version++
	r.metrics.RecordLoad(observability.LoadResultCached)
	return rec.res, true
}

// peek returns the live resource without touching the count.
func (r *Registry) peek(key Key) (Resource, bool) {
	rec, ok := r.records[key]
	if !ok {
		return nil, false
	}
	return rec.res, true
}

// Add registers an in-memory resource under a synthetic id with count 1.
func (r *Registry) Add(id string, res Resource) error {
	key := IDKey(id)
	if _, ok := r.records[key]; ok {
		err := DuplicateKeyError{Key: key}
		r.logger.Warn("Content add rejected", zap.Error(err))
		return err
	}
	r.insert(key, key.Name, res, false)
	r.metrics.RecordLoad(observability.LoadResultLoaded)
	return nil
}

// Unload drops one reference. At zero the resource is unloaded exactly once
// and its record removed. Unknown keys are a logged no-op.
func (r *Registry) Unload(key Key) bool {
	rec, ok := r.records[key]
	if !ok {
		r.metrics.RecordUnload(observability.UnloadResultUnknown)
		r.logger.Debug("Unload of unknown content ignored", zap.Stringer("key", key))
		return false
	}
	r.release(rec)
	return true
}

// UnloadResource is Unload addressed by the resource instead of its key.
func (r *Registry) UnloadResource(res Resource) bool {
	if res == nil {
		r.metrics.RecordUnload(observability.UnloadResultUnknown)
		r.logger.Debug("Unload of nil content ignored")
		return false
	}
	for _, rec := range r.records {
		if rec.res == res {
			r.release(rec)
			return true
		}
	}
	r.metrics.RecordUnload(observability.UnloadResultUnknown)
	r.logger.Debug("Unload of unregistered content ignored", zap.String("type", fmt.Sprintf("%T", res)))
	return false
}

func (r *Registry) release(rec *record) {
	r.version++
	rec.refs--
	if rec.refs > 0 {
		r.metrics.RecordUnload(observability.UnloadResultReleased)
		return
	}
	delete(r.records, rec.key)
	r.catalog.remove(rec.key)
	rec.res.Unload()
	r.metrics.RecordUnload(observability.UnloadResultEvicted)
	r.metrics.SetLiveResources(len(r.records))
	r.logger.Debug("Content evicted", zap.Stringer("key", rec.key))
}

// ForceReload reloads key in place with new params. A fresh instance is
// loaded synchronously; on success the live instance is unloaded and absorbs
// it, keeping its identity and reference count. On failure the live instance
// is untouched. An absent key is loaded through factory.
func (r *Registry) ForceReload(key Key, params any, factory Factory) (Resource, error) {
	rec, ok := r.records[key]
	if !ok {
		return r.Load(key, params, factory)
	}

	_, span := r.tracer.StartSpan(context.Background(), "content.force_reload",
		attribute.String("content.key", key.String()),
	)
	defer span.End()

	fresh := rec.res.CreateInstance()
	if err := fresh.Load(rec.path, params); err != nil {
		le := classify(err, key, rec.path)
		fresh.Unload()
		span.RecordError(le)
		r.metrics.RecordHotReload(observability.ReloadStageApplyFailed)
		r.logger.Warn("Forced reload failed, keeping live content",
			zap.Stringer("key", key),
			zap.String("kind", le.Kind.String()),
			zap.Error(le.Err),
		)
		return nil, le
	}

	if !sameKind(rec.res, fresh) {
		le := &LoadError{Kind: ParameterMismatch, Key: key, Path: rec.path, Err: fmt.Errorf("instance of %T cannot absorb %T", rec.res, fresh)}
		fresh.Unload()
		r.metrics.RecordHotReload(observability.ReloadStageApplyFailed)
		r.logger.Error("Forced reload could not apply fresh instance", zap.Stringer("key", key), zap.Error(le))
		return nil, le
	}

	rec.res.Unload()
	if !rec.res.Apply(fresh) {
		le := &LoadError{Kind: ConstructionFailed, Key: key, Path: rec.path, Err: fmt.Errorf("instance of %T refused to absorb its fresh copy", rec.res)}
		fresh.Unload()
		r.metrics.RecordHotReload(observability.ReloadStageApplyFailed)
		r.logger.Error("Forced reload could not apply fresh instance", zap.Stringer("key", key), zap.Error(le))
		return nil, le
	}

	rec.fallback = false
	rec.gen = r.nextGen()
	r.version++
	r.catalog.put(key, rec.res.CreateInstance(), rec.path, rec.gen)
	r.metrics.RecordHotReload(observability.ReloadStageForced)
	r.logger.Info("Content force reloaded", zap.Stringer("key", key))
	return rec.res, nil
}

// UnloadAll unloads every record regardless of count and returns how many
// there were.
func (r *Registry) UnloadAll() int {
	n := len(r.records)
	for key, rec := range r.records {
		rec.res.Unload()
		delete(r.records, key)
	}
	r.catalog.clear()
	r.version++
	r.metrics.SetLiveResources(0)
	return n
}

// RefCount returns the consumer count of key, or 0 when absent.
func (r *Registry) RefCount(key Key) int {
	if rec, ok := r.records[key]; ok {
		return rec.refs
	}
	return 0
}

// Contains reports whether key has a live record.
func (r *Registry) Contains(key Key) bool {
	_, ok := r.records[key]
	return ok
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	return len(r.records)
}

// Records lists every live record sorted by key.
func (r *Registry) Records() []RecordInfo {
	out := make([]RecordInfo, 0, len(r.records))
	for _, rec := range r.records {
		path := rec.path
		if rec.key.Synthetic {
			path = ""
		}
		out = append(out, RecordInfo{
			Key:      rec.key.String(),
			Path:     path,
			Kind:     fmt.Sprintf("%T", rec.res),
			RefCount: rec.refs,
			Fallback: rec.fallback,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r *Registry) insert(key Key, path string, res Resource, fallback bool) {
	rec := &record{key: key, path: path, res: res, refs: 1, fallback: fallback, gen: r.nextGen()}
	r.records[key] = rec
	r.catalog.put(key, res.CreateInstance(), path, rec.gen)
	r.version++
	r.metrics.SetLiveResources(len(r.records))
}

func (r *Registry) nextGen() uint64 {
	r.lastGen++
	return r.lastGen
}

// sameKind reports whether live can absorb other: both must be the same
// concrete type.
func sameKind(live, other Resource) bool {
	return reflect.TypeOf(live) == reflect.TypeOf(other)
}

// lookup is the pump's access to a live record.
func (r *Registry) lookup(key Key) (*record, bool) {
	rec, ok := r.records[key]
	return rec, ok
}

func (r *Registry) recordPath(key Key) string {
	if rec, ok := r.records[key]; ok {
		return rec.path
	}
	return ""
}
