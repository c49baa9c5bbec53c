package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"assistant-chat/internal/domain"
	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the ports
var (
	_ adapter.Transport     = (*HTTPTransport)(nil)
	_ adapter.HealthChecker = (*HTTPTransport)(nil)
)

// HTTPTransport talks to the assistant backend over plain JSON/HTTP.
// The client carries no timeout; deadlines come from the caller's context.
type HTTPTransport struct {
	endpoint  string
	healthURL string
	required  []string
	values    map[string]string
	maxBody   int64
	client    *http.Client
	log       *zerolog.Logger
}

func NewHTTPTransport(chatURL, chatPath, healthPath string, required []string, values map[string]string, maxBody int64, logger *zerolog.Logger) *HTTPTransport {
	l := logger.With().Str("component", "assistant-http").Logger()
	if maxBody <= 0 {
		maxBody = 4 << 20
	}
	return &HTTPTransport{
		endpoint:  ResolveURL(chatURL, chatPath),
		healthURL: ResolveURL(chatURL, healthPath),
		required:  append([]string(nil), required...),
		values:    values,
		maxBody:   maxBody,
		client:    &http.Client{},
		log:       &l,
	}
}

// WithHTTPClient swaps the underlying client.
func (t *HTTPTransport) WithHTTPClient(c *http.Client) *HTTPTransport {
	t.client = c
	return t
}

func (t *HTTPTransport) Endpoint() string { return t.endpoint }

func (t *HTTPTransport) missing() []string {
	var out []string
	for _, k := range t.required {
		if strings.TrimSpace(t.values[k]) == "" {
			out = append(out, k)
		}
	}
	return out
}

func (t *HTTPTransport) Exchange(ctx context.Context, req adapter.ExchangeRequest, token string) (*adapter.RawResponse, error) {
	if missing := t.missing(); len(missing) > 0 {
		return nil, &adapter.MissingConfigError{Missing: missing}
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.History == nil {
		req.History = []model.HistoryEntry{}
	}

	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode exchange: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Request-ID", req.RequestID)

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.log.Debug().Err(err).Str("request_id", req.RequestID).Msg("exchange failed before a response")
		return nil, &adapter.NetworkFailure{URL: t.endpoint, Method: http.MethodPost, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody))
	end := time.Now()
	if err != nil {
		return nil, &adapter.NetworkFailure{URL: t.endpoint, Method: http.MethodPost, Err: fmt.Errorf("read body: %w", err)}
	}

	t.log.Debug().
		Str("request_id", req.RequestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", end.Sub(start)).
		Msg("exchange answered")

	return &adapter.RawResponse{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Header:     resp.Header,
		Body:       data,
		Endpoint:   t.endpoint,
		Method:     http.MethodPost,
		RequestID:  req.RequestID,
		Metrics:    responseMetrics(resp, len(data), start, end),
	}, nil
}

// CheckHealth calls GET <chat base>/health.
func (t *HTTPTransport) CheckHealth(ctx context.Context) (*model.HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.healthURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health %s: %w", t.healthURL, err)
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s answered %d", domain.ErrUnhealthy, t.healthURL, resp.StatusCode)
	}
	var hs model.HealthStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, t.maxBody)).Decode(&hs); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	if hs.Status == "" {
		hs.Status = model.HealthHealthy
	}
	hs.Endpoint = t.healthURL
	hs.LatencyMs = latency.Milliseconds()
	hs.CheckedAt = time.Now()
	return &hs, nil
}

// ResolveURL resolves path against base the way a browser does; an absolute
// path replaces the base path. An unparsable base yields path unchanged.
func ResolveURL(base, path string) string {
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" {
		return path
	}
	p, err := url.Parse(path)
	if err != nil {
		return path
	}
	return b.ResolveReference(p).String()
}

func statusText(resp *http.Response) string {
	if txt := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); txt != "" && txt != resp.Status {
		return txt
	}
	return http.StatusText(resp.StatusCode)
}

func responseMetrics(resp *http.Response, bodyLen int, start, end time.Time) model.RequestMetrics {
	m := model.RequestMetrics{
		StartTime:        start,
		EndTime:          end,
		DurationMs:       end.Sub(start).Milliseconds(),
		HTTPStatus:       resp.StatusCode,
		BytesTransferred: int64(bodyLen),
		CacheHit:         strings.Contains(strings.ToUpper(resp.Header.Get("X-Cache")), "HIT"),
	}
	if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil {
		m.BytesTransferred = n
	}
	if n, err := strconv.Atoi(resp.Header.Get("Age")); err == nil {
		m.CacheAgeSeconds = n
	}
	return m
}
