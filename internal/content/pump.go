package content

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/hotreload"
	"github.com/leslieo2/go-hot-content/internal/observability"
)

// PumpResult counts what one HotReloadPump call did.
type PumpResult struct {
	Applied  int `json:"applied"`
	Rejected int `json:"rejected"`
	Dropped  int `json:"dropped"`
	Failed   int `json:"failed"`
}

// Total returns the number of shadows consumed.
func (p PumpResult) Total() int {
	return p.Applied + p.Rejected + p.Dropped + p.Failed
}

// HotReloadPump promotes prepared shadows into the registry. Call it once
// per tick on the owning goroutine.
//
// The pending queue is taken whole under its lock; phase 2 and the swap run
// with no lock held. For each shadow:
//   - no live record, or the record was replaced or force reloaded after the
//     shadow was prepared: the shadow is unloaded and dropped silently
//   - shadow of another concrete type: the shadow is unloaded, the live
//     resource is untouched
//   - ApplyHotReload rejects: the shadow is unloaded, the live resource is untouched
//   - accepted: the live resource is unloaded and absorbs the shadow in place
func (m *Manager) HotReloadPump() PumpResult {
	var result PumpResult

	batch := m.pending.Drain()
	if len(batch) == 0 {
		m.publishStats(false)
		return result
	}

	start := time.Now()
	ctx, span := m.tracer.StartSpan(context.Background(), "content.pump", attribute.Int("content.pending", len(batch)))
	defer span.End()

	keys := make([]Key, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, key := range keys {
		outcome := m.promote(key, batch[key])
		switch outcome {
		case hotreload.OutcomeApplied:
			result.Applied++
		case hotreload.OutcomeRejected:
			result.Rejected++
		case hotreload.OutcomeDropped:
			result.Dropped++
		case hotreload.OutcomeFailed:
			result.Failed++
		}
		m.notify(ctx, key, outcome)
	}

	m.metrics.SetPendingReloads(m.pending.Len())
	m.metrics.ObservePump(time.Since(start))
	span.SetAttributes(
		attribute.Int("content.applied", result.Applied),
		attribute.Int("content.rejected", result.Rejected),
		attribute.Int("content.dropped", result.Dropped),
		attribute.Int("content.failed", result.Failed),
	)
	m.totals.add(result)
	m.publishStats(true)
	return result
}

func (m *Manager) promote(key Key, pending PendingReload) hotreload.Outcome {
	shadow := pending.Shadow
	rec, ok := m.registry.lookup(key)
	if !ok {
		shadow.Unload()
		m.metrics.RecordHotReload(observability.ReloadStageDropped)
		m.logger.Debug("Hot reload dropped, content no longer loaded", zap.Stringer("key", key))
		return hotreload.OutcomeDropped
	}
	if rec.gen != pending.Generation {
		shadow.Unload()
		m.metrics.RecordHotReload(observability.ReloadStageDropped)
		m.logger.Debug("Hot reload dropped, content changed since it was prepared",
			zap.Stringer("key", key),
			zap.Uint64("prepared_gen", pending.Generation),
			zap.Uint64("live_gen", rec.gen),
		)
		return hotreload.OutcomeDropped
	}
	if !sameKind(rec.res, shadow) {
		shadow.Unload()
		m.metrics.RecordHotReload(observability.ReloadStageApplyFailed)
		m.logger.Error("Hot reload could not be applied",
			zap.Stringer("key", key),
			zap.Error(fmt.Errorf("instance of %T cannot absorb %T", rec.res, shadow)),
		)
		return hotreload.OutcomeFailed
	}

	if !shadow.ApplyHotReload() {
		shadow.Unload()
		m.metrics.RecordHotReload(observability.ReloadStageRejected)
		m.logger.Warn("Hot reload rejected, keeping live content", zap.Stringer("key", key))
		return hotreload.OutcomeRejected
	}

	rec.res.Unload()
	if !rec.res.Apply(shadow) {
		shadow.Unload()
		m.metrics.RecordHotReload(observability.ReloadStageApplyFailed)
		m.logger.Error("Hot reload could not be applied",
			zap.Stringer("key", key),
			zap.Error(fmt.Errorf("instance of %T refused its prepared shadow", rec.res)),
		)
		return hotreload.OutcomeFailed
	}

	rec.fallback = false
	m.registry.version++
	m.metrics.RecordHotReload(observability.ReloadStageApplied)
	m.logger.Info("Content hot reloaded", zap.Stringer("key", key))
	return hotreload.OutcomeApplied
}

// notify runs reload listeners synchronously on the owning goroutine.
func (m *Manager) notify(ctx context.Context, key Key, outcome hotreload.Outcome) {
	if m.broadcaster.ListenerCount() == 0 {
		return
	}
	event := hotreload.ReloadEvent{Key: key.String(), Outcome: outcome, At: time.Now()}
	if rec, ok := m.registry.lookup(key); ok {
		event.Path = rec.path
	}
	if err := m.broadcaster.Broadcast(ctx, event); err != nil {
		m.logger.Warn("Reload listener failed", zap.Stringer("key", key), zap.Error(err))
	}
}
