package content

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/constants"
	"github.com/leslieo2/go-hot-content/internal/hotreload"
	"github.com/leslieo2/go-hot-content/internal/observability"
	"github.com/leslieo2/go-hot-content/internal/snapshot"
)

// Options configure a Manager.
type Options struct {
	// Root is the directory path keys resolve under.
	Root string

	// HotReload enables the background watcher.
	HotReload bool
	// Mode selects the change trigger: poll or notify.
	Mode string
	// PollInterval is the snapshot interval in poll mode.
	PollInterval time.Duration
	// Debounce is the settle delay before re-diffing a detected change.
	Debounce time.Duration
	// IgnoreSuffixes are extra file suffixes the watcher never reports.
	IgnoreSuffixes []string
	// Trigger overrides the trigger built from Mode.
	Trigger hotreload.Trigger

	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Stats is a summary of the registry published by the owning goroutine.
type Stats struct {
	Resources []RecordInfo `json:"resources"`
	Pending   int          `json:"pending"`
	HotReload bool         `json:"hot_reload"`
	Totals    PumpResult   `json:"totals"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type pumpTotals struct {
	PumpResult
}

func (t *pumpTotals) add(r PumpResult) {
	t.Applied += r.Applied
	t.Rejected += r.Rejected
	t.Dropped += r.Dropped
	t.Failed += r.Failed
}

// Manager is the content context object: registry, queues, watcher and
// diagnostics, with no global state.
//
// Load, Unload, ForceReload, HotReloadPump, Stop and Close belong to the
// owning goroutine. RequestHotReload, Stats and HotReloadEnabled are safe
// from any goroutine.
type Manager struct {
	opts     Options
	root     string
	registry *Registry
	pending  *PendingQueue
	forced   *ForcedQueue

	broadcaster *hotreload.Broadcaster
	logger      *zap.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer

	mu      sync.Mutex
	watcher *watcher
	active  atomic.Bool

	totals           pumpTotals
	stats            atomic.Pointer[Stats]
	publishedVersion uint64
	publishedPending int
}

// New creates a Manager. The watcher does not run until Start.
func New(opts Options) (*Manager, error) {
	if opts.Root == "" {
		return nil, errors.New("content root is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", opts.Root, err)
	}

	logger := zap.NewNop()
	if opts.Logger != nil {
		logger = opts.Logger.Logger
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NewNoopTracer()
	}
	if opts.Mode == "" {
		opts.Mode = constants.HotReloadModePoll
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = constants.DefaultPollInterval
	}

	m := &Manager{
		opts:        opts,
		root:        root,
		registry:    NewRegistry(root, logger.Named("registry"), metrics, tracer),
		pending:     NewPendingQueue(),
		forced:      NewForcedQueue(),
		broadcaster: hotreload.NewBroadcaster(logger.Named("broadcaster")),
		logger:      logger,
		metrics:     metrics,
		tracer:      tracer,
	}
	m.publishStats(true)
	return m, nil
}

// Root returns the absolute content root.
func (m *Manager) Root() string {
	return m.root
}

// Registry exposes the underlying registry to the owning goroutine.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Start establishes the change trigger and the baseline snapshot and
// launches the watcher. Any failure is reported once and leaves the manager
// running with hot reload disabled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watcher != nil {
		return
	}
	if !m.opts.HotReload {
		m.logger.Info("Hot reload disabled by configuration")
		m.metrics.SetHotReloadDisabled(true)
		return
	}

	trigger := m.opts.Trigger
	if trigger == nil {
		t, err := hotreload.NewTrigger(m.opts.Mode, m.root, m.opts.PollInterval, m.logger.Named("trigger"))
		if err != nil {
			m.disable(err)
			return
		}
		trigger = t
	}

	w := &watcher{
		root:     m.root,
		opts:     snapshot.Options{IgnoreSuffixes: m.opts.IgnoreSuffixes},
		debounce: m.opts.Debounce,
		trigger:  trigger,
		catalog:  m.registry.catalog,
		pending:  m.pending,
		forced:   m.forced,
		logger:   m.logger.Named("watcher"),
		metrics:  m.metrics,
		tracer:   m.tracer,
	}
	if err := w.start(ctx); err != nil {
		m.disable(err)
		return
	}

	m.watcher = w
	m.active.Store(true)
	m.metrics.SetHotReloadDisabled(false)
	m.logger.Info("Hot reload started",
		zap.String("root", m.root),
		zap.String("mode", m.opts.Mode),
		zap.Duration("debounce", m.opts.Debounce),
	)
	m.publishStats(true)
}

func (m *Manager) disable(err error) {
	m.metrics.SetHotReloadDisabled(true)
	m.logger.Error("Hot reload unavailable, continuing without it", zap.String("root", m.root), zap.Error(err))
}

// Stop cancels and joins the watcher and discards shadows nobody will pump.
func (m *Manager) Stop() {
	m.mu.Lock()
	w := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	if w == nil {
		return
	}
	m.active.Store(false)
	w.stop()

	for _, p := range m.pending.Drain() {
		p.Shadow.Unload()
	}
	m.forced.Drain()
	m.metrics.SetPendingReloads(0)
	m.logger.Info("Hot reload stopped")
	m.publishStats(true)
}

// Close stops the watcher and unloads every record.
func (m *Manager) Close() error {
	m.Stop()
	n := m.registry.UnloadAll()
	m.broadcaster.Close()
	m.logger.Info("Content manager closed", zap.Int("unloaded", n))
	m.publishStats(true)
	return nil
}

// HotReloadEnabled reports whether the watcher is running.
func (m *Manager) HotReloadEnabled() bool {
	return m.active.Load()
}

// RequestHotReload asks the watcher to reload keys even though their files
// did not change. Safe from any goroutine.
func (m *Manager) RequestHotReload(keys ...Key) error {
	if !m.active.Load() {
		return ErrHotReloadDisabled
	}
	m.forced.Request(keys...)
	return nil
}

// AddListener registers a callback for reload outcomes. Listeners run on
// the goroutine calling HotReloadPump.
func (m *Manager) AddListener(name string, listener hotreload.Listener) error {
	return m.broadcaster.AddListener(name, listener)
}

// RemoveListener unregisters a reload listener.
func (m *Manager) RemoveListener(name string) {
	m.broadcaster.RemoveListener(name)
}

// LoadResource is the untyped load used by Load and by callers that pick
// the factory at run time.
func (m *Manager) LoadResource(key Key, params any, factory Factory) (Resource, error) {
	return m.registry.Load(key, params, factory)
}

// Add registers an in-memory resource under a synthetic id.
func (m *Manager) Add(id string, res Resource) error {
	return m.registry.Add(id, res)
}

// Unload drops one reference to key.
func (m *Manager) Unload(key Key) bool {
	return m.registry.Unload(key)
}

// UnloadResource drops one reference to res.
func (m *Manager) UnloadResource(res Resource) bool {
	return m.registry.UnloadResource(res)
}

// Stats returns the last summary published by the owning goroutine.
func (m *Manager) Stats() Stats {
	if s := m.stats.Load(); s != nil {
		return *s
	}
	return Stats{}
}

// publishStats snapshots the registry for other goroutines when it changed.
func (m *Manager) publishStats(force bool) {
	pending := m.pending.Len()
	if !force && m.registry.version == m.publishedVersion && pending == m.publishedPending {
		return
	}
	m.publishedVersion = m.registry.version
	m.publishedPending = pending
	m.stats.Store(&Stats{
		Resources: m.registry.Records(),
		Pending:   pending,
		HotReload: m.active.Load(),
		Totals:    m.totals.PumpResult,
		UpdatedAt: time.Now(),
	})
}
