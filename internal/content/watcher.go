package content

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/hotreload"
	"github.com/leslieo2/go-hot-content/internal/observability"
	"github.com/leslieo2/go-hot-content/internal/snapshot"
)

// watcher is the background loop that turns file changes and forced
// requests into prepared shadows.
type watcher struct {
	root     string
	opts     snapshot.Options
	debounce time.Duration
	trigger  hotreload.Trigger

	catalog *catalog
	pending *PendingQueue
	forced  *ForcedQueue

	logger  *zap.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	baseline snapshot.Tree
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// start records the baseline silently and launches the loop.
func (w *watcher) start(ctx context.Context) error {
	baseline, err := snapshot.Take(w.root, w.opts)
	if err != nil {
		return err
	}
	w.baseline = baseline

	ctx, cancel := context.WithCancel(ctx)
	if err := w.trigger.Start(ctx); err != nil {
		cancel()
		return err
	}
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// stop cancels the loop and waits for it. An in-flight BeginHotReload
// finishes before stop returns.
func (w *watcher) stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	if err := w.trigger.Close(); err != nil {
		w.logger.Warn("Failed to close change trigger", zap.Error(err))
	}
}

func (w *watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.trigger.Wake():
			w.scan(ctx)
		case <-w.forced.Wake():
		}
		if ctx.Err() != nil {
			return
		}
		w.drainForced(ctx)
	}
}

// scan diffs the tree against the baseline. When something changed it waits
// for the debounce interval and diffs again so one editor save is one pass.
func (w *watcher) scan(ctx context.Context) {
	ctx, span := w.tracer.StartSpan(ctx, "content.watcher.scan", attribute.String("content.root", w.root))
	defer span.End()

	start := time.Now()
	tree, err := snapshot.Take(w.root, w.opts)
	if err != nil {
		span.RecordError(err)
		w.logger.Warn("Content snapshot failed", zap.String("root", w.root), zap.Error(err))
		return
	}
	changes := snapshot.Diff(w.baseline, tree)

	if !changes.Empty() && w.debounce > 0 {
		timer := time.NewTimer(w.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		settled, err := snapshot.Take(w.root, w.opts)
		if err != nil {
			span.RecordError(err)
			w.logger.Warn("Content snapshot failed", zap.String("root", w.root), zap.Error(err))
			return
		}
		tree = settled
		changes = snapshot.Diff(w.baseline, tree)
	}

	w.baseline = tree
	w.metrics.RecordScan(time.Since(start), len(changes.Added), len(changes.Modified), len(changes.Removed))
	span.SetAttributes(
		attribute.Int("content.added", len(changes.Added)),
		attribute.Int("content.modified", len(changes.Modified)),
		attribute.Int("content.removed", len(changes.Removed)),
	)

	for _, p := range changes.Added {
		w.logger.Info("Content file added", zap.String("path", p))
	}
	for _, p := range changes.Removed {
		w.logger.Info("Content file removed", zap.String("path", p))
	}
	for _, p := range changes.Modified {
		key := PathKey(p)
		if _, ok := w.catalog.get(key); !ok {
			w.logger.Debug("Modified file is not loaded", zap.String("path", p))
			continue
		}
		w.prepare(ctx, key)
	}
}

func (w *watcher) drainForced(ctx context.Context) {
	for _, key := range w.forced.Drain() {
		if _, ok := w.catalog.get(key); !ok {
			w.metrics.RecordHotReload(observability.ReloadStageDropped)
			w.logger.Warn("Forced reload of content that is not loaded", zap.Stringer("key", key))
			continue
		}
		w.prepare(ctx, key)
	}
}

// prepare runs reload phase 1 on a fresh shadow and queues it.
func (w *watcher) prepare(ctx context.Context, key Key) {
	entry, ok := w.catalog.get(key)
	if !ok {
		return
	}

	_, span := w.tracer.StartSpan(ctx, "content.watcher.prepare", attribute.String("content.key", key.String()))
	defer span.End()

	shadow := entry.prototype.CreateInstance()
	if err := shadow.BeginHotReload(entry.path); err != nil {
		le := classify(err, key, entry.path)
		shadow.Unload()
		span.RecordError(le)
		w.metrics.RecordHotReload(observability.ReloadStagePrepareFailed)
		w.logger.Warn("Hot reload preparation failed, keeping live content",
			zap.Stringer("key", key),
			zap.String("kind", le.Kind.String()),
			zap.Error(le.Err),
		)
		return
	}

	if replaced := w.pending.Put(key, shadow, entry.gen); replaced != nil {
		replaced.Unload()
		w.metrics.RecordHotReload(observability.ReloadStageSuperseded)
		w.logger.Debug("Pending hot reload superseded", zap.Stringer("key", key))
	}
	w.metrics.RecordHotReload(observability.ReloadStagePrepared)
	w.metrics.SetPendingReloads(w.pending.Len())
	w.logger.Debug("Hot reload prepared", zap.Stringer("key", key))
}
