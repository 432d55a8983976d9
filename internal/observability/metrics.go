package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load results
const (
	LoadResultLoaded   = "loaded"
	LoadResultCached   = "cached"
	LoadResultFallback = "fallback"
	LoadResultFailed   = "failed"
	LoadResultMismatch = "mismatch"
)

// Unload results
const (
	UnloadResultReleased = "released"
	UnloadResultEvicted  = "evicted"
	UnloadResultUnknown  = "unknown"
)

// Hot reload stages
const (
	ReloadStagePrepared      = "prepared"
	ReloadStagePrepareFailed = "prepare_failed"
	ReloadStageSuperseded    = "superseded"
	ReloadStageApplied       = "applied"
	ReloadStageRejected      = "rejected"
	ReloadStageDropped       = "dropped"
	ReloadStageApplyFailed   = "apply_failed"
	ReloadStageForced        = "forced"
)

type Metrics struct {
	ContentLoads      *prometheus.CounterVec
	ContentUnloads    *prometheus.CounterVec
	LiveResources     prometheus.Gauge
	HotReloads        *prometheus.CounterVec
	PendingReloads    prometheus.Gauge
	WatcherScans      prometheus.Counter
	ScanDuration      prometheus.Histogram
	PumpDuration      prometheus.Histogram
	FileChanges       *prometheus.CounterVec
	RequestCount      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	HealthStatus      prometheus.Gauge
	HotReloadDisabled prometheus.Gauge

	registry *prometheus.Registry
	handler  http.Handler
}

func NewMetrics() *Metrics {
	return &Metrics{
		ContentLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_loads_total",
				Help: "Total number of content load calls by result",
			},
			[]string{"result"},
		),
		ContentUnloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_unloads_total",
				Help: "Total number of content unload calls by result",
			},
			[]string{"result"},
		),
		LiveResources: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "content_live_resources",
				Help: "Number of records currently held by the registry",
			},
		),
		HotReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_hot_reloads_total",
				Help: "Hot reload events by stage",
			},
			[]string{"stage"},
		),
		PendingReloads: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "content_pending_reloads",
				Help: "Shadow instances waiting for the next pump",
			},
		),
		WatcherScans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "content_watcher_scans_total",
				Help: "Directory snapshots taken by the watcher",
			},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "content_watcher_scan_duration_seconds",
				Help:    "Time spent snapshotting and diffing the content root",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
		),
		PumpDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "content_pump_duration_seconds",
				Help:    "Time spent in one hot reload pump call",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
		FileChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_file_changes_total",
				Help: "Files classified by the snapshot diff",
			},
			[]string{"kind"},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_http_requests_total",
				Help: "Total number of admin HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admin_http_request_duration_seconds",
				Help:    "Admin HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HealthStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "app_health_status",
				Help: "Application health status (1 = healthy, 0 = unhealthy)",
			},
		),
		HotReloadDisabled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "content_hot_reload_disabled",
				Help: "1 when the watcher could not be established and hot reload is off",
			},
		),
	}
}

func (m *Metrics) RecordLoad(result string) {
	m.ContentLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordUnload(result string) {
	m.ContentUnloads.WithLabelValues(result).Inc()
}

func (m *Metrics) SetLiveResources(n int) {
	m.LiveResources.Set(float64(n))
}

func (m *Metrics) RecordHotReload(stage string) {
	m.HotReloads.WithLabelValues(stage).Inc()
}

func (m *Metrics) SetPendingReloads(n int) {
	m.PendingReloads.Set(float64(n))
}

// RecordScan records one watcher pass and the size of its diff
func (m *Metrics) RecordScan(duration time.Duration, added, modified, removed int) {
	m.WatcherScans.Inc()
	m.ScanDuration.Observe(duration.Seconds())
	if added > 0 {
		m.FileChanges.WithLabelValues("added").Add(float64(added))
	}
	if modified > 0 {
		m.FileChanges.WithLabelValues("modified").Add(float64(modified))
	}
	if removed > 0 {
		m.FileChanges.WithLabelValues("removed").Add(float64(removed))
	}
}

func (m *Metrics) ObservePump(duration time.Duration) {
	m.PumpDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)

	m.RequestCount.WithLabelValues(method, endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func (m *Metrics) SetHealthStatus(healthy bool) {
	if healthy {
		m.HealthStatus.Set(1)
	} else {
		m.HealthStatus.Set(0)
	}
}

func (m *Metrics) SetHotReloadDisabled(disabled bool) {
	if disabled {
		m.HotReloadDisabled.Set(1)
	} else {
		m.HotReloadDisabled.Set(0)
	}
}

func (m *Metrics) Handler() http.Handler {
	if m.handler != nil {
		return m.handler
	}
	return promhttp.Handler()
}

func (m *Metrics) Register() error {
	m.registry = prometheus.NewRegistry()

	collectors := []prometheus.Collector{
		m.ContentLoads,
		m.ContentUnloads,
		m.LiveResources,
		m.HotReloads,
		m.PendingReloads,
		m.WatcherScans,
		m.ScanDuration,
		m.PumpDuration,
		m.FileChanges,
		m.RequestCount,
		m.RequestDuration,
		m.HealthStatus,
		m.HotReloadDisabled,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}

	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})

	return nil
}
