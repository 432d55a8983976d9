package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leslieo2/go-hot-content/internal/observability"
)

// mockStats is shared by every instance spawned from one factory.
type mockStats struct {
	loads        atomic.Int32
	begins       atomic.Int32
	unloads      atomic.Int32
	defaults     atomic.Int32
	allowDefault bool
}

// mockResource reads a text file. Files starting with "corrupt" fail to
// parse; staged content starting with "reject" fails phase 2.
type mockResource struct {
	stats    *mockStats
	params   any
	content  string
	staged   string
	unloaded atomic.Int32
}

type mockParams struct {
	Tag string
}

// st lazily gives zero-value instances built by the typed helpers their
// own counters.
func (m *mockResource) st() *mockStats {
	if m.stats == nil {
		m.stats = &mockStats{}
	}
	return m.stats
}

func (m *mockResource) Load(path string, params any) error {
	m.st().loads.Add(1)
	if params != nil {
		if _, ok := params.(mockParams); !ok {
			return NewLoadError(ParameterMismatch, path, errors.New("want mockParams"))
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.HasPrefix(string(data), "corrupt") {
		return errors.New("bad format")
	}
	m.content = string(data)
	m.params = params
	return nil
}

func (m *mockResource) Unload() {
	m.unloaded.Add(1)
	m.st().unloads.Add(1)
	m.content = ""
	m.staged = ""
}

func (m *mockResource) CreateDefaultContent(path string) bool {
	m.st().defaults.Add(1)
	if !m.st().allowDefault {
		return false
	}
	m.content = "default"
	return true
}

func (m *mockResource) BeginHotReload(path string) error {
	m.st().begins.Add(1)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.HasPrefix(string(data), "corrupt") {
		return errors.New("bad format")
	}
	m.staged = string(data)
	return nil
}

func (m *mockResource) ApplyHotReload() bool {
	return !strings.HasPrefix(m.staged, "reject")
}

func (m *mockResource) Apply(other Resource) bool {
	o, ok := other.(*mockResource)
	if !ok {
		return false
	}
	if o.staged != "" {
		m.content = o.staged
	} else {
		m.content = o.content
	}
	m.params = o.params
	o.staged = ""
	o.content = ""
	return true
}

func (m *mockResource) CreateInstance() Resource {
	return &mockResource{stats: m.st(), params: m.params}
}

// otherResource is a second kind for type mismatch tests.
type otherResource struct {
	mockResource
}

func (o *otherResource) CreateInstance() Resource {
	return &otherResource{mockResource{stats: o.st()}}
}

func (o *otherResource) Apply(other Resource) bool {
	x, ok := other.(*otherResource)
	if !ok {
		return false
	}
	return o.mockResource.Apply(&x.mockResource)
}

func mockFactory(stats *mockStats) Factory {
	return func() Resource { return &mockResource{stats: stats} }
}

// manualTrigger wakes the watcher only when the test says so.
type manualTrigger struct {
	wake     chan struct{}
	startErr error
	closed   atomic.Bool
}

func newManualTrigger() *manualTrigger {
	return &manualTrigger{wake: make(chan struct{}, 1)}
}

func (m *manualTrigger) Start(ctx context.Context) error { return m.startErr }
func (m *manualTrigger) Wake() <-chan struct{}           { return m.wake }
func (m *manualTrigger) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *manualTrigger) Fire() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// writeAsset writes content under root and moves the mtime past any
// previous write so successive edits always differ.
func writeAsset(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	mtime := time.Now()
	if prev, err := os.Stat(path); err == nil && !prev.ModTime().Before(mtime) {
		mtime = prev.ModTime().Add(time.Second)
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

// observedLogger captures diagnostics for assertions.
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func newTestRegistry(t *testing.T) (*Registry, string, *observer.ObservedLogs) {
	t.Helper()
	root := t.TempDir()
	logger, logs := observedLogger()
	return NewRegistry(root, logger, observability.NewMetrics(), nil), root, logs
}

type testManager struct {
	*Manager
	root    string
	trigger *manualTrigger
	logs    *observer.ObservedLogs
}

func newTestManager(t *testing.T, hotReload bool) *testManager {
	t.Helper()
	root := t.TempDir()
	logger, logs := observedLogger()
	trig := newManualTrigger()
	m, err := New(Options{
		Root:      root,
		HotReload: hotReload,
		Trigger:   trig,
		Logger:    &observability.Logger{Logger: logger},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return &testManager{Manager: m, root: root, trigger: trig, logs: logs}
}

// waitPending blocks until the pending queue holds n shadows.
func (tm *testManager) waitPending(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return tm.pending.Len() == n }, 2*time.Second, 5*time.Millisecond,
		"expected %d pending shadows", n)
}
