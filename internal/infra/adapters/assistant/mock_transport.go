package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/adapter"
)

var (
	_ adapter.Transport     = (*MockTransport)(nil)
	_ adapter.HealthChecker = (*MockTransport)(nil)
)

const MockEndpoint = "mock://assistant/consultar"

// MockTransport answers every exchange with the same canned reply after a
// fixed delay. It never checks the token and never fails on its own.
type MockTransport struct {
	delay time.Duration
	body  []byte
	log   *zerolog.Logger
}

func NewMockTransport(delay time.Duration, logger *zerolog.Logger) *MockTransport {
	l := logger.With().Str("component", "assistant-mock").Logger()
	body, _ := json.Marshal(map[string]string{"reply": MockReply})
	return &MockTransport{delay: delay, body: body, log: &l}
}

func (m *MockTransport) Endpoint() string { return MockEndpoint }

func (m *MockTransport) Exchange(ctx context.Context, req adapter.ExchangeRequest, token string) (*adapter.RawResponse, error) {
	start := time.Now()
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	end := time.Now()
	m.log.Debug().Str("request_id", req.RequestID).Int("history", len(req.History)).Msg("mock exchange")

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(m.body)))
	h.Set("X-Mock", "true")
	return &adapter.RawResponse{
		StatusCode: http.StatusOK,
		StatusText: http.StatusText(http.StatusOK),
		Header:     h,
		Body:       append([]byte(nil), m.body...),
		Endpoint:   MockEndpoint,
		Method:     http.MethodPost,
		RequestID:  req.RequestID,
		Metrics: model.RequestMetrics{
			StartTime:        start,
			EndTime:          end,
			DurationMs:       end.Sub(start).Milliseconds(),
			HTTPStatus:       http.StatusOK,
			BytesTransferred: int64(len(m.body)),
		},
	}, nil
}

func (m *MockTransport) CheckHealth(ctx context.Context) (*model.HealthStatus, error) {
	return &model.HealthStatus{
		Status:  model.HealthHealthy,
		Version: "1.0.0",
		Services: map[string]model.ServiceHealth{
			"database": {Status: "up", LatencyMs: 45},
			"cache":    {Status: "up", LatencyMs: 12},
		},
		Endpoint:  "mock://assistant/health",
		CheckedAt: time.Now(),
	}, nil
}

func (m *MockTransport) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MockReply is the canned markdown answer of the offline transport.
const MockReply = `# Leave Policy Summary

Employees are entitled to several kinds of paid leave. The most common ones are listed below.

1. **Special leave:**
   - **Birth or adoption:** 20 calendar days
   - **Marriage:** 10 working days
   - **Bereavement, first degree relative:** 10 working days
   - **Blood donation:** 1 day

2. **Annual leave** grows with seniority:
   - Up to 5 years: 20 calendar days
   - 5 to 10 years: 25 calendar days
   - 10 years or more: 30 calendar days

3. **Personal days:** up to 6 per year, one day each.

### Leave at a glance

| Leave type | Days |
|------------|------|
| Birth or adoption | 20 calendar days |
| Marriage | 10 working days |
| Bereavement (first degree) | 10 working days |
| Blood donation | 1 day |
| Annual leave (up to 5 years) | 20 calendar days |
| Personal days | 6 per year |`
