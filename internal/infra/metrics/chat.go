package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		chatRequestsTotal,
		chatErrorsTotal,
		chatLatencyMs,
		chatInFlight,
		chatDiscardedTotal,
		chatClearsTotal,
	)
}

var (
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Exchanges with the assistant by outcome (issued/succeeded/failed).",
		},
		[]string{"outcome"},
	)

	chatErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_errors_total",
			Help: "Classified chat failures by kind.",
		},
		[]string{"kind"},
	)

	chatLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_exchange_latency_ms",
			Help:    "Exchange latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"success"},
	)

	chatInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_in_flight",
			Help: "1 while an exchange is outstanding.",
		},
	)

	chatDiscardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_stale_results_discarded_total",
			Help: "Exchange results dropped because the history was cleared meanwhile.",
		},
	)

	chatClearsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_history_cleared_total",
			Help: "Number of history clears.",
		},
	)
)

func ChatIssued() {
	chatRequestsTotal.WithLabelValues("issued").Inc()
	chatInFlight.Set(1)
}

func ChatSucceeded(latencyMs float64) {
	chatRequestsTotal.WithLabelValues("succeeded").Inc()
	chatLatencyMs.WithLabelValues(strconv.FormatBool(true)).Observe(latencyMs)
	chatInFlight.Set(0)
}

func ChatFailed(kind string, latencyMs float64) {
	chatRequestsTotal.WithLabelValues("failed").Inc()
	chatErrorsTotal.WithLabelValues(norm(kind)).Inc()
	chatLatencyMs.WithLabelValues(strconv.FormatBool(false)).Observe(latencyMs)
	chatInFlight.Set(0)
}

// ChatRejected counts failures raised before an exchange was issued.
func ChatRejected(kind string) {
	chatErrorsTotal.WithLabelValues(norm(kind)).Inc()
}

func ChatDiscarded() { chatDiscardedTotal.Inc() }

func HistoryCleared() {
	chatClearsTotal.Inc()
	chatInFlight.Set(0)
}
