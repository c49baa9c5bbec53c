package assistant

import (
	"context"
	"time"

	"assistant-chat/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Transport = (*timeoutTransport)(nil)

type timeoutTransport struct {
	inner adapter.Transport
	d     time.Duration
}

// NewTimeoutTransport bounds every exchange by d. A non-positive d returns
// inner unchanged.
func NewTimeoutTransport(inner adapter.Transport, d time.Duration) adapter.Transport {
	if d <= 0 {
		return inner
	}
	return &timeoutTransport{inner: inner, d: d}
}

func (t *timeoutTransport) Endpoint() string { return t.inner.Endpoint() }

func (t *timeoutTransport) Exchange(ctx context.Context, req adapter.ExchangeRequest, token string) (*adapter.RawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Exchange(ctx, req, token)
}
