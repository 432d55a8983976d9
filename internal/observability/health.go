package observability

import "time"

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
	Checks    map[string]bool        `json:"checks"`
}

// NewHealthStatus reports healthy only when every check passes
func NewHealthStatus(version string, startedAt time.Time, checks map[string]bool) HealthStatus {
	status := StatusHealthy
	for _, ok := range checks {
		if !ok {
			status = StatusDegraded
			break
		}
	}
	if checks == nil {
		checks = map[string]bool{}
	}
	now := time.Now()
	return HealthStatus{
		Status:    status,
		Timestamp: now,
		Version:   version,
		Uptime:    now.Sub(startedAt).Truncate(time.Second).String(),
		Checks:    checks,
	}
}

func (h HealthStatus) Healthy() bool {
	return h.Status == StatusHealthy
}
