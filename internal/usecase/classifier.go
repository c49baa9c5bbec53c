package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"assistant-chat/internal/domain/ports/adapter"
	derror "assistant-chat/internal/error"
)

// Outcome is everything known about a failed or suspicious exchange.
type Outcome struct {
	Err      error
	Response *adapter.RawResponse
	Endpoint string
	Method   string
	Timeout  time.Duration
	Duration time.Duration
}

// ConnectivityProbe reports whether the host looks online.
type ConnectivityProbe func() derror.ConnectionInfo

var configSuggestions = []string{
	"Check that the .env file exists in the project root",
	"Copy .env.example to .env and fill in the values",
	"Ask the development team for the correct values",
}

// ErrorClassifier is the single place where failures become ChatErrors.
type ErrorClassifier struct {
	environment string
	dev         bool
	userAgent   string
	probe       ConnectivityProbe
	now         func() time.Time
}

func NewErrorClassifier(environment string, dev bool, userAgent string, probe ConnectivityProbe) *ErrorClassifier {
	if probe == nil {
		probe = SystemConnectivity
	}
	return &ErrorClassifier{
		environment: environment,
		dev:         dev,
		userAgent:   userAgent,
		probe:       probe,
		now:         time.Now,
	}
}

func (c *ErrorClassifier) base(msg, detail string, sev derror.Severity) derror.Base {
	return derror.Base{
		Message:     msg,
		Detail:      detail,
		Severity:    sev,
		Timestamp:   c.now(),
		Environment: c.environment,
	}
}

// NotAuthenticated is raised locally when no credential is present.
func (c *ErrorClassifier) NotAuthenticated() *derror.AuthError {
	return &derror.AuthError{
		Base:       c.base("Not authenticated", "Sign in before sending messages", derror.SeverityError),
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Classify maps o to exactly one ChatError. First match wins.
func (c *ErrorClassifier) Classify(o Outcome) derror.ChatError {
	var missing *adapter.MissingConfigError
	if errors.As(o.Err, &missing) {
		return &derror.ConfigError{
			Base: c.base(
				"The application is missing required configuration",
				"Missing variables: "+strings.Join(missing.Missing, ", "),
				derror.SeverityError,
			),
			MissingVars: append([]string(nil), missing.Missing...),
			Suggestions: configSuggestions,
		}
	}

	if o.Response == nil && o.Err != nil && !errors.Is(o.Err, context.Canceled) && isNetworkError(o.Err) {
		return c.network(o)
	}

	if r := o.Response; r != nil && !r.OK() {
		switch r.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return c.auth(r)
		case http.StatusTooManyRequests:
			return c.rateLimit(r)
		default:
			return c.api(o, r)
		}
	}

	return c.unknown(o)
}

func (c *ErrorClassifier) network(o Outcome) *derror.NetworkError {
	req := derror.RequestDescriptor{URL: o.Endpoint, Method: o.Method, Timeout: o.Timeout}
	var nf *adapter.NetworkFailure
	if errors.As(o.Err, &nf) {
		if nf.URL != "" {
			req.URL = nf.URL
		}
		if nf.Method != "" {
			req.Method = nf.Method
		}
	}
	conn := c.probe()
	msg := "Unable to reach the assistant service"
	if !conn.Online {
		msg = "No network connection"
	}
	if errors.Is(o.Err, context.DeadlineExceeded) {
		msg = "The assistant service did not answer in time"
	}
	return &derror.NetworkError{
		Base:       c.base(msg, o.Err.Error(), derror.SeverityError),
		Connection: conn,
		Request:    req,
	}
}

func (c *ErrorClassifier) auth(r *adapter.RawResponse) *derror.AuthError {
	e := &derror.AuthError{HTTPStatus: r.StatusCode, TokenExpired: r.StatusCode == http.StatusUnauthorized}
	if e.TokenExpired {
		e.Base = c.base("Your session has expired", bodyMessage(r, "Sign in again to continue"), derror.SeverityError)
	} else {
		e.Base = c.base("Access denied", bodyMessage(r, "Your account is not allowed to use the assistant"), derror.SeverityError)
	}
	if r.Header != nil {
		e.TokenExpiresAt = parseInstant(r.Header.Get("X-Token-Expires"))
	}
	return e
}

func (c *ErrorClassifier) rateLimit(r *adapter.RawResponse) *derror.RateLimitError {
	h := r.Header
	if h == nil {
		h = http.Header{}
	}
	e := &derror.RateLimitError{
		Limit:             headerInt(h, "X-RateLimit-Limit"),
		Remaining:         headerInt(h, "X-RateLimit-Remaining"),
		ResetAt:           headerInt(h, "X-RateLimit-Reset"),
		RetryAfterSeconds: headerInt(h, "Retry-After"),
	}
	fallback := "Too many requests"
	if e.RetryAfterSeconds > 0 {
		fallback = fmt.Sprintf("Try again in %d seconds", e.RetryAfterSeconds)
	}
	detail := bodyMessage(r, fallback)
	e.Base = c.base("Request limit reached", detail, derror.SeverityWarning)
	return e
}

type apiErrorBody struct {
	Message string `json:"message"`
	Details string `json:"details"`
	Code    string `json:"code"`
}

// bodyMessage returns the message of a JSON failure body, or fallback.
func bodyMessage(r *adapter.RawResponse, fallback string) string {
	var body apiErrorBody
	if len(r.Body) > 0 && json.Unmarshal(r.Body, &body) == nil && body.Message != "" {
		return body.Message
	}
	return fallback
}

func (c *ErrorClassifier) api(o Outcome, r *adapter.RawResponse) *derror.APIError {
	msg := fmt.Sprintf("The assistant service answered with status %d", r.StatusCode)
	detail := r.StatusText
	var body apiErrorBody
	if len(r.Body) > 0 && json.Unmarshal(r.Body, &body) == nil {
		if body.Message != "" {
			msg = body.Message
		}
		if body.Details != "" {
			detail = body.Details
		}
		if body.Code != "" && c.dev {
			detail = fmt.Sprintf("%s (code %s)", detail, body.Code)
		}
	}
	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = o.Endpoint
	}
	durMs := r.Metrics.DurationMs
	if durMs == 0 {
		durMs = o.Duration.Milliseconds()
	}
	return &derror.APIError{
		Base:           c.base(msg, detail, derror.SeverityError),
		HTTPStatus:     r.StatusCode,
		StatusText:     r.StatusText,
		Endpoint:       endpoint,
		RequestID:      r.RequestID,
		ResponseTimeMs: durMs,
		Retryable:      derror.IsRetryable(r.StatusCode),
	}
}

func (c *ErrorClassifier) unknown(o Outcome) *derror.UnknownError {
	desc := "unexpected response from the assistant service"
	if o.Err != nil {
		desc = o.Err.Error()
	}
	at := c.now()
	return &derror.UnknownError{
		Base:                c.base("Something went wrong", desc, derror.SeverityError),
		OriginalDescription: desc,
		Context:             derror.UnknownContext{URL: o.Endpoint, UserAgent: c.userAgent, At: at},
	}
}

func isNetworkError(err error) bool {
	var nf *adapter.NetworkFailure
	var ne net.Error
	var ue *url.Error
	var oe *net.OpError
	var de *net.DNSError
	switch {
	case errors.As(err, &nf), errors.As(err, &ne), errors.As(err, &ue),
		errors.As(err, &oe), errors.As(err, &de):
		return true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return true
	}
	return false
}

func headerInt(h http.Header, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(h.Get(key)))
	if err != nil {
		return 0
	}
	return n
}

// parseInstant accepts RFC 3339 or unix seconds.
func parseInstant(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(n, 0).UTC()
	}
	return time.Time{}
}

// SystemConnectivity treats the host as online when any non-loopback
// interface is up.
func SystemConnectivity() derror.ConnectionInfo {
	ifaces, err := net.Interfaces()
	if err != nil {
		return derror.ConnectionInfo{Online: false}
	}
	for _, i := range ifaces {
		if i.Flags&net.FlagUp == 0 || i.Flags&net.FlagLoopback != 0 {
			continue
		}
		kind := "ethernet"
		if strings.HasPrefix(i.Name, "wl") {
			kind = "wifi"
		}
		return derror.ConnectionInfo{Online: true, Type: kind}
	}
	return derror.ConnectionInfo{Online: false}
}
