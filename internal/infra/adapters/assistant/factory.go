package assistant

import (
	"github.com/rs/zerolog"

	"assistant-chat/internal/config"
	"assistant-chat/internal/domain/ports/adapter"
)

// New selects the transport once from configuration and returns it together
// with the matching health checker.
func New(cfg *config.Config, logger *zerolog.Logger) (adapter.Transport, adapter.HealthChecker) {
	a := cfg.Assistant
	if a.UseMock {
		m := NewMockTransport(a.MockDelay, logger)
		return NewTimeoutTransport(m, a.Timeout), m
	}
	h := NewHTTPTransport(a.ChatURL, a.ChatPath, a.HealthPath, a.RequiredKeys, cfg.Values(), a.MaxBodyBytes, logger)
	return NewTimeoutTransport(h, a.Timeout), h
}
