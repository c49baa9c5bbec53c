package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(backendUp, backendLatency) }

var (
	backendUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "assistant_backend_up",
		Help: "1 when the last health probe of the assistant backend was healthy.",
	})

	backendLatency = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "assistant_backend_latency_ms",
		Help: "Latency reported by the last health probe.",
	})
)

func SetBackendHealth(up bool, latencyMs int64) {
	v := 0.0
	if up {
		v = 1
	}
	backendUp.Set(v)
	backendLatency.Set(float64(latencyMs))
}
