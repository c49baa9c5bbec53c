package model

import "time"

type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

type ServiceHealth struct {
	Status    string `json:"status"` // up|down
	LatencyMs int64  `json:"latency"`
}

// HealthStatus is the answer of the assistant backend health endpoint.
type HealthStatus struct {
	Status    HealthState              `json:"status"`
	Version   string                   `json:"version,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
	Endpoint  string                   `json:"endpoint"`
	LatencyMs int64                    `json:"latency_ms"`
	CheckedAt time.Time                `json:"checked_at"`
}

func (h *HealthStatus) Healthy() bool { return h != nil && h.Status == HealthHealthy }
