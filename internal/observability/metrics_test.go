package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", w.Code)
	}
	body, err := io.ReadAll(w.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics body: %v", err)
	}
	return string(body)
}

func TestNewMetrics(t *testing.T) {
	metrics := NewMetrics()

	if metrics == nil {
		t.Fatal("NewMetrics() returned nil")
	}
	if metrics.ContentLoads == nil || metrics.HotReloads == nil || metrics.PumpDuration == nil {
		t.Error("content metrics are not initialized")
	}
	if metrics.RequestCount == nil || metrics.RequestDuration == nil {
		t.Error("admin HTTP metrics are not initialized")
	}
}

func TestMetrics_RegisterTwiceOnFreshRegistry(t *testing.T) {
	metrics := NewMetrics()
	if err := metrics.Register(); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	// A second Metrics instance gets its own registry
	other := NewMetrics()
	if err := other.Register(); err != nil {
		t.Fatalf("Register() on a second instance returned error: %v", err)
	}
}

func TestMetrics_Exposition(t *testing.T) {
	metrics := NewMetrics()
	if err := metrics.Register(); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	metrics.RecordLoad(LoadResultLoaded)
	metrics.RecordLoad(LoadResultCached)
	metrics.RecordLoad(LoadResultCached)
	metrics.RecordUnload(UnloadResultEvicted)
	metrics.SetLiveResources(3)
	metrics.RecordHotReload(ReloadStageApplied)
	metrics.SetPendingReloads(2)
	metrics.RecordScan(2*time.Millisecond, 1, 2, 0)
	metrics.ObservePump(50 * time.Microsecond)
	metrics.RecordRequest(http.MethodGet, "/content", 200, 10*time.Millisecond)
	metrics.SetHealthStatus(true)
	metrics.SetHotReloadDisabled(false)

	body := scrape(t, metrics)

	want := []string{
		`content_loads_total{result="loaded"} 1`,
		`content_loads_total{result="cached"} 2`,
		`content_unloads_total{result="evicted"} 1`,
		`content_live_resources 3`,
		`content_hot_reloads_total{stage="applied"} 1`,
		`content_pending_reloads 2`,
		`content_watcher_scans_total 1`,
		`content_file_changes_total{kind="added"} 1`,
		`content_file_changes_total{kind="modified"} 2`,
		`content_pump_duration_seconds_count 1`,
		`admin_http_requests_total{endpoint="/content",method="GET",status_code="200"} 1`,
		`app_health_status 1`,
		`content_hot_reload_disabled 0`,
	}
	for _, line := range want {
		if !strings.Contains(body, line) {
			t.Errorf("metrics output missing %q", line)
		}
	}
	if strings.Contains(body, `kind="removed"`) {
		t.Error("removed series should not exist when no file was removed")
	}
}

func TestMetrics_HandlerWithoutRegister(t *testing.T) {
	metrics := NewMetrics()
	if metrics.Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}

func TestMetrics_ConcurrentAccess(t *testing.T) {
	metrics := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				metrics.RecordLoad(LoadResultCached)
				metrics.RecordHotReload(ReloadStagePrepared)
			}
		}()
	}
	wg.Wait()

	if err := metrics.Register(); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}
	body := scrape(t, metrics)
	if !strings.Contains(body, `content_loads_total{result="cached"} 1000`) {
		t.Error("expected 1000 cached loads after concurrent updates")
	}
}
