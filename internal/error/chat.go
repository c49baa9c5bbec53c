// Package derror holds the closed taxonomy of failures a conversation can end in.
//
// Every failed exchange is reported as exactly one ChatError. The interface is
// sealed: only the six concrete types in this package implement it, and
// consumers that need per-kind behaviour implement Visitor so that adding a
// kind breaks their build instead of falling through a default branch.
package derror

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindConfig    Kind = "config_error"
	KindAuth      Kind = "auth_error"
	KindRateLimit Kind = "rate_limit_error"
	KindAPI       Kind = "api_error"
	KindNetwork   Kind = "network_error"
	KindUnknown   Kind = "unknown_error"
)

// Kinds lists every member of the taxonomy in classification order.
var Kinds = []Kind{KindConfig, KindNetwork, KindAuth, KindRateLimit, KindAPI, KindUnknown}

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Base carries the fields shared by every kind.
type Base struct {
	Message     string    `json:"message"`
	Detail      string    `json:"detail,omitempty"`
	Severity    Severity  `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}

func (b Base) Common() Base { return b }

// ChatError is the sum type of classified failures.
type ChatError interface {
	error
	Kind() Kind
	Common() Base
	Accept(v Visitor)
	sealed()
}

// Visitor must handle every kind.
type Visitor interface {
	VisitConfig(e *ConfigError)
	VisitAuth(e *AuthError)
	VisitRateLimit(e *RateLimitError)
	VisitAPI(e *APIError)
	VisitNetwork(e *NetworkError)
	VisitUnknown(e *UnknownError)
}

// ---------- config_error ----------

type ConfigError struct {
	Base
	MissingVars []string `json:"missing_vars"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (e *ConfigError) Kind() Kind       { return KindConfig }
func (e *ConfigError) Accept(v Visitor) { v.VisitConfig(e) }
func (*ConfigError) sealed()            {}
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: missing %s", KindConfig, strings.Join(e.MissingVars, ", "))
}

// ---------- auth_error ----------

type AuthError struct {
	Base
	HTTPStatus     int       `json:"http_status"`
	TokenExpired   bool      `json:"token_expired"`
	TokenExpiresAt time.Time `json:"token_expires_at,omitempty"`
}

func (e *AuthError) Kind() Kind       { return KindAuth }
func (e *AuthError) Accept(v Visitor) { v.VisitAuth(e) }
func (*AuthError) sealed()            {}
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s (HTTP %d): %s", KindAuth, e.HTTPStatus, e.Message)
}

// ---------- rate_limit_error ----------

type RateLimitError struct {
	Base
	Limit             int `json:"limit"`
	Remaining         int `json:"remaining"`
	ResetAt           int `json:"reset_at"`
	RetryAfterSeconds int `json:"retry_after_seconds"`
}

func (e *RateLimitError) Kind() Kind       { return KindRateLimit }
func (e *RateLimitError) Accept(v Visitor) { v.VisitRateLimit(e) }
func (*RateLimitError) sealed()            {}
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: limit=%d remaining=%d retry_after=%ds", KindRateLimit, e.Limit, e.Remaining, e.RetryAfterSeconds)
}

// ---------- api_error ----------

type APIError struct {
	Base
	HTTPStatus     int    `json:"http_status"`
	StatusText     string `json:"status_text"`
	Endpoint       string `json:"endpoint"`
	RequestID      string `json:"request_id,omitempty"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Retryable      bool   `json:"retryable"`
}

func (e *APIError) Kind() Kind       { return KindAPI }
func (e *APIError) Accept(v Visitor) { v.VisitAPI(e) }
func (*APIError) sealed()            {}
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d %s): %s", KindAPI, e.HTTPStatus, e.StatusText, e.Message)
}

// IsRetryable reports whether a status is worth retrying by hand.
func IsRetryable(status int) bool {
	return status >= 500 || status == 429
}

// ---------- network_error ----------

type ConnectionInfo struct {
	Online bool   `json:"online"`
	Type   string `json:"type,omitempty"`
}

type RequestDescriptor struct {
	URL     string        `json:"url"`
	Method  string        `json:"method"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

type NetworkError struct {
	Base
	Connection ConnectionInfo    `json:"connection"`
	Request    RequestDescriptor `json:"request"`
}

func (e *NetworkError) Kind() Kind       { return KindNetwork }
func (e *NetworkError) Accept(v Visitor) { v.VisitNetwork(e) }
func (*NetworkError) sealed()            {}
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", KindNetwork, e.Request.Method, e.Request.URL, e.Detail)
}

// ---------- unknown_error ----------

type UnknownContext struct {
	URL       string    `json:"url,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	At        time.Time `json:"at"`
}

type UnknownError struct {
	Base
	OriginalDescription string         `json:"original_description"`
	Context             UnknownContext `json:"context"`
}

func (e *UnknownError) Kind() Kind       { return KindUnknown }
func (e *UnknownError) Accept(v Visitor) { v.VisitUnknown(e) }
func (*UnknownError) sealed()            {}
func (e *UnknownError) Error() string {
	return fmt.Sprintf("%s: %s", KindUnknown, e.OriginalDescription)
}

// Compile-time checks
var (
	_ ChatError = (*ConfigError)(nil)
	_ ChatError = (*AuthError)(nil)
	_ ChatError = (*RateLimitError)(nil)
	_ ChatError = (*APIError)(nil)
	_ ChatError = (*NetworkError)(nil)
	_ ChatError = (*UnknownError)(nil)
)
