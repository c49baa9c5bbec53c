package console

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	derror "assistant-chat/internal/error"
	"assistant-chat/internal/infra/i18n"
)

var _ derror.Visitor = (*errorRenderer)(nil)

// errorRenderer prints the kind-specific part of a ChatError below the
// common message line.
type errorRenderer struct {
	w  io.Writer
	tr *i18n.Translator
}

func (r *errorRenderer) line(key string, args ...interface{}) {
	fmt.Fprintf(r.w, "  %s\n", r.tr.T(key, args...))
}

// RenderError writes a human readable block for ce. A nil error writes nothing.
func RenderError(w io.Writer, tr *i18n.Translator, ce derror.ChatError) {
	if ce == nil {
		return
	}
	if tr == nil {
		tr = i18n.Default()
	}
	b := ce.Common()
	label := tr.T("severity_error")
	if b.Severity == derror.SeverityWarning {
		label = tr.T("severity_warning")
	}
	fmt.Fprintf(w, "! %s: %s\n", label, b.Message)
	if b.Detail != "" {
		fmt.Fprintf(w, "  %s\n", b.Detail)
	}
	ce.Accept(&errorRenderer{w: w, tr: tr})
}

func (r *errorRenderer) VisitConfig(e *derror.ConfigError) {
	if len(e.MissingVars) > 0 {
		r.line("err_missing", strings.Join(e.MissingVars, ", "))
	}
	for _, s := range e.Suggestions {
		fmt.Fprintf(r.w, "  - %s\n", s)
	}
}

func (r *errorRenderer) VisitAuth(e *derror.AuthError) {
	switch {
	case e.TokenExpired:
		r.line("err_auth_expired")
	case e.HTTPStatus == http.StatusForbidden:
		r.line("err_auth_denied")
	default:
		r.line("err_auth_missing")
	}
}

func (r *errorRenderer) VisitRateLimit(e *derror.RateLimitError) {
	if e.Limit > 0 {
		r.line("err_quota", e.Remaining, e.Limit)
	}
	if e.RetryAfterSeconds > 0 {
		r.line("err_retry_in", e.RetryAfterSeconds)
	} else if e.ResetAt > 0 {
		r.line("err_resets_at", time.Unix(int64(e.ResetAt), 0).Format(time.Kitchen))
	}
}

func (r *errorRenderer) VisitAPI(e *derror.APIError) {
	r.line("err_status", e.HTTPStatus, e.StatusText)
	r.line("err_endpoint", e.Endpoint)
	if e.Retryable {
		r.line("err_retryable")
	}
}

func (r *errorRenderer) VisitNetwork(e *derror.NetworkError) {
	state := r.tr.T("conn_offline")
	if e.Connection.Online {
		state = r.tr.T("conn_online")
	}
	if e.Connection.Type != "" {
		state += " (" + e.Connection.Type + ")"
	}
	r.line("err_connection", state)
}

func (r *errorRenderer) VisitUnknown(e *derror.UnknownError) {}
