package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"assistant-chat/internal/domain/model"
)

// ExchangeRequest is the payload of one exchange with the assistant.
type ExchangeRequest struct {
	RequestID string               `json:"-"`
	Question  string               `json:"question"`
	History   []model.HistoryEntry `json:"history"`
}

// RawResponse is any HTTP answer, successful or not. Interpreting it is the
// caller's job.
type RawResponse struct {
	StatusCode int
	StatusText string
	Header     http.Header
	Body       []byte
	Endpoint   string
	Method     string
	RequestID  string
	Metrics    model.RequestMetrics
}

func (r *RawResponse) OK() bool { return r != nil && r.StatusCode >= 200 && r.StatusCode < 300 }

// Transport is the port for a single exchange with the assistant backend.
type Transport interface {
	// Exchange sends req with the bearer token. It returns a non-nil response
	// for every HTTP answer and an error only when no answer was obtained.
	Exchange(ctx context.Context, req ExchangeRequest, token string) (*RawResponse, error)
	// Endpoint is the URL exchanges are sent to.
	Endpoint() string
}

// HealthChecker probes the assistant backend.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (*model.HealthStatus, error)
}

// MissingConfigError is returned before any network activity when required
// configuration keys are absent.
type MissingConfigError struct {
	Missing []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// NetworkFailure wraps a transport-level error where no response was received.
type NetworkFailure struct {
	URL    string
	Method string
	Err    error
}

func (e *NetworkFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkFailure) Unwrap() error { return e.Err }
