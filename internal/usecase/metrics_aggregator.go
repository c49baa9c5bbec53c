package usecase

import (
	"time"

	"assistant-chat/internal/domain/model"
	derror "assistant-chat/internal/error"
	"assistant-chat/internal/infra/metrics"
)

// MetricsAggregator keeps the running counters of a conversation and mirrors
// them to Prometheus. It is not safe for concurrent use; ConversationStore
// serialises access under its own lock.
type MetricsAggregator struct {
	m model.Metrics
}

func NewMetricsAggregator() *MetricsAggregator {
	return &MetricsAggregator{}
}

func (a *MetricsAggregator) RecordIssued() {
	a.m.TotalRequests++
	metrics.ChatIssued()
}

// RecordSuccess folds d into the streaming mean of successful latencies.
func (a *MetricsAggregator) RecordSuccess(d time.Duration) {
	ms := toMillis(d)
	a.m.SuccessfulRequests++
	a.m.AverageResponseTimeMs += (ms - a.m.AverageResponseTimeMs) / float64(a.m.SuccessfulRequests)
	metrics.ChatSucceeded(ms)
}

// RecordFailure leaves the average untouched.
func (a *MetricsAggregator) RecordFailure(kind derror.Kind, d time.Duration) {
	a.m.FailedRequests++
	metrics.ChatFailed(string(kind), toMillis(d))
}

func (a *MetricsAggregator) Reset() {
	a.m = model.Metrics{}
}

// Load seeds the counters from a restored snapshot.
func (a *MetricsAggregator) Load(m model.Metrics) {
	a.m = m
}

func (a *MetricsAggregator) Snapshot() model.Metrics {
	return a.m
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
