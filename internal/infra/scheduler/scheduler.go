package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/adapter"
	"assistant-chat/internal/infra/metrics"
)

// HealthMonitor probes the assistant backend every interval, keeps the last
// answer and exports it as metrics. State changes are logged.
type HealthMonitor struct {
	interval time.Duration
	checker  adapter.HealthChecker
	log      *zerolog.Logger

	mu     sync.RWMutex
	latest *model.HealthStatus
	lastOK *bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthMonitor runs checker every interval. If interval <= 0 it defaults
// to 30 seconds.
func NewHealthMonitor(interval time.Duration, checker adapter.HealthChecker, logger *zerolog.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	l := logger.With().Str("component", "health-monitor").Logger()
	return &HealthMonitor{
		interval: interval,
		checker:  checker,
		log:      &l,
		done:     make(chan struct{}),
	}
}

// Start probes once right away, then on every tick. Calling Start multiple
// times has no effect.
func (s *HealthMonitor) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancel = cancel

	go s.loop()
}

func (s *HealthMonitor) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Debug().Dur("interval", s.interval).Msg("started")
	s.CheckNow(s.ctx)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.CheckNow(s.ctx)
		}
	}
}

// CheckNow runs one probe with a bounded timeout and records the result.
func (s *HealthMonitor) CheckNow(ctx context.Context) *model.HealthStatus {
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := s.checker.CheckHealth(runCtx)
	if err != nil {
		if ctx.Err() != nil {
			return s.Latest()
		}
		if st == nil {
			st = &model.HealthStatus{Status: model.HealthUnhealthy, CheckedAt: time.Now()}
		}
		s.log.Debug().Err(err).Msg("health probe failed")
	}
	ok := st.Healthy()
	metrics.SetBackendHealth(ok, st.LatencyMs)

	s.mu.Lock()
	changed := s.lastOK == nil || *s.lastOK != ok
	s.latest = st
	s.lastOK = &ok
	s.mu.Unlock()

	if changed {
		if ok {
			s.log.Info().Int64("latency_ms", st.LatencyMs).Msg("assistant backend healthy")
		} else {
			s.log.Warn().Str("status", string(st.Status)).Msg("assistant backend unhealthy")
		}
	}
	return st
}

// Latest returns the most recent probe result, or nil before the first one.
func (s *HealthMonitor) Latest() *model.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Stop cancels the loop and waits for it to finish. It is idempotent.
func (s *HealthMonitor) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
	s.log.Debug().Msg("stopped")
}
