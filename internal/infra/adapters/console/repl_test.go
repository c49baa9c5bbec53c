//go:build !integration

package console

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"assistant-chat/internal/domain/model"
	derror "assistant-chat/internal/error"
	"assistant-chat/internal/infra/adapters/assistant"
	"assistant-chat/internal/infra/auth"
	"assistant-chat/internal/infra/i18n"
	"assistant-chat/internal/usecase"
)

func online() derror.ConnectionInfo { return derror.ConnectionInfo{Online: true} }

func newREPL(t *testing.T, input string, maxHistory int) (*REPL, *bytes.Buffer, *usecase.ConversationStore) {
	t.Helper()
	l := zerolog.Nop()
	session := auth.NewSession(&l)
	client := auth.NewClient("", "/login", "/login/google", "chatbot1", true, session, &l)
	mock := assistant.NewMockTransport(0, &l)
	classifier := usecase.NewErrorClassifier("test", false, "assistant-chat/test", online)
	store := usecase.NewConversationStore(mock, session, nil, classifier, nil, maxHistory, 0, &l)
	session.OnLogout(store.ClearHistory)

	out := &bytes.Buffer{}
	r := NewREPL(store, client, session, mock, maxHistory, "Helper", nil, NewLines(strings.NewReader(input), out), out, &l)
	return r, out, store
}

func TestREPL_ConversationFlow(t *testing.T) {
	input := strings.Join([]string{
		"hello before login",
		"/login " + auth.DevEmail,
		"",
		"/whoami",
		"what is the leave policy?",
		"/metrics",
		"/logout",
		"/quit",
		"never read",
	}, "\n")
	r, out, store := newREPL(t, input, 5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Helper is ready",
		"! error: Not authenticated",
		"password: ",
		"signed in as Developer",
		"Developer <dev@local>",
		"Helper (",
		"Leave Policy Summary",
		"requests: 1 total, 1 ok, 0 failed",
		"signed out",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
	if n := len(store.State().Messages); n != 0 {
		t.Errorf("logout should clear the conversation, %d messages left", n)
	}
}

func TestREPL_QuestionCap(t *testing.T) {
	r, out, store := newREPL(t, "\n", 1)
	ctx := context.Background()
	_ = r.Handle(ctx, "/login "+auth.DevEmail)
	_ = r.Handle(ctx, "first question")
	_ = r.Handle(ctx, "second question")

	if !strings.Contains(out.String(), "limit of 1 questions") {
		t.Errorf("expected cap notice, got:\n%s", out.String())
	}
	if turns := store.State().UserTurns(); turns != 1 {
		t.Errorf("user turns = %d, want 1", turns)
	}

	_ = r.Handle(ctx, "/clear")
	_ = r.Handle(ctx, "third question")
	if turns := store.State().UserTurns(); turns != 1 {
		t.Errorf("after clear: user turns = %d, want 1", turns)
	}
}

func TestREPL_LoginPromptsForPassword(t *testing.T) {
	r, out, _ := newREPL(t, "", 0)
	ctx := context.Background()

	_ = r.Handle(ctx, "/login "+auth.DevEmail+" secret")
	if !strings.Contains(out.String(), "usage: /login <email>") {
		t.Errorf("inline password must be refused:\n%s", out.String())
	}

	_ = r.Handle(ctx, "/login "+auth.DevEmail)
	if !strings.Contains(out.String(), "login cancelled") {
		t.Errorf("closed input must cancel the login:\n%s", out.String())
	}
	if _, ok := r.creds.Token(); ok {
		t.Error("cancelled login must not sign in")
	}
}

func googleCredential(t *testing.T, email string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "google-123",
		"email": email,
		"name":  "Ana",
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign credential: %v", err)
	}
	return tok
}

func TestREPL_GoogleLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/login/google" {
			http.NotFound(w, req)
			return
		}
		var body struct {
			Email string `json:"email"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Email != "ana@example.com" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"User not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-ana","user":{"id":7,"email":"ana@example.com","name":"Ana","applications":{"chatbot1":"user"}}}`))
	}))
	defer srv.Close()

	l := zerolog.Nop()
	session := auth.NewSession(&l)
	client := auth.NewClient(srv.URL, "/login", "/login/google", "chatbot1", false, session, &l)
	mock := assistant.NewMockTransport(0, &l)
	classifier := usecase.NewErrorClassifier("test", false, "assistant-chat/test", online)
	store := usecase.NewConversationStore(mock, session, nil, classifier, nil, 0, 0, &l)
	out := &bytes.Buffer{}
	r := NewREPL(store, client, session, mock, 0, "Helper", nil, NewLines(strings.NewReader(""), out), out, &l)

	ctx := context.Background()
	_ = r.Handle(ctx, "/google")
	_ = r.Handle(ctx, "/google not-a-token")
	_ = r.Handle(ctx, "/google "+googleCredential(t, "ghost@example.com"))
	if _, ok := session.Token(); ok {
		t.Fatal("unregistered Google account must not sign in")
	}
	_ = r.Handle(ctx, "/google "+googleCredential(t, "ana@example.com"))
	_ = r.Handle(ctx, "/whoami")

	got := out.String()
	for _, want := range []string{
		"usage: /google <credential>",
		"Google credential could not be read",
		"no access to the assistant",
		"signed in as Ana",
		"Ana <ana@example.com>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
	if tok, _ := session.Token(); tok != "tok-ana" {
		t.Errorf("token = %q", tok)
	}
}

func TestKeepInHistory(t *testing.T) {
	for line, want := range map[string]bool{
		"what is the leave policy?": true,
		"/login dev@local":          true,
		"/google eyJhbGciOi":        false,
		"/GOOGLE eyJhbGciOi":        false,
		"   ":                       false,
	} {
		if got := keepInHistory(line); got != want {
			t.Errorf("keepInHistory(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestREPL_UnknownCommandAndHealth(t *testing.T) {
	r, out, _ := newREPL(t, "", 0)
	ctx := context.Background()
	_ = r.Handle(ctx, "/bogus")
	_ = r.Handle(ctx, "/health")

	got := out.String()
	if !strings.Contains(got, "unknown command /bogus") {
		t.Errorf("missing unknown command notice:\n%s", got)
	}
	if !strings.Contains(got, string(model.HealthHealthy)) || !strings.Contains(got, "database: up") {
		t.Errorf("missing health report:\n%s", got)
	}
}

func TestREPL_SpanishCatalogue(t *testing.T) {
	r, out, _ := newREPL(t, "", 0)
	tr, err := i18n.New("es")
	if err != nil {
		t.Fatalf("i18n.New: %v", err)
	}
	r.tr = tr

	_ = r.Handle(context.Background(), "sin sesión")
	_ = r.Handle(context.Background(), "/clear")

	got := out.String()
	for _, want := range []string{"inicia sesión con /login", "conversación borrada"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestRenderError_PerKind(t *testing.T) {
	cases := []struct {
		name string
		err  derror.ChatError
		want []string
	}{
		{
			name: "config",
			err: &derror.ConfigError{
				Base:        derror.Base{Message: "missing configuration", Severity: derror.SeverityError},
				MissingVars: []string{"API_URL", "CHAT_API_URL"},
				Suggestions: []string{"check the .env file"},
			},
			want: []string{"! error: missing configuration", "missing: API_URL, CHAT_API_URL", "- check the .env file"},
		},
		{
			name: "expired session",
			err:  &derror.AuthError{Base: derror.Base{Message: "session expired", Severity: derror.SeverityWarning}, HTTPStatus: 401, TokenExpired: true},
			want: []string{"! warning: session expired", "sign in again"},
		},
		{
			name: "forbidden",
			err:  &derror.AuthError{Base: derror.Base{Message: "Access denied"}, HTTPStatus: 403},
			want: []string{"! error: Access denied", "may not use the assistant"},
		},
		{
			name: "signed out",
			err:  &derror.AuthError{Base: derror.Base{Message: "Not authenticated"}, HTTPStatus: 401},
			want: []string{"sign in with /login"},
		},
		{
			name: "rate limit",
			err:  &derror.RateLimitError{Base: derror.Base{Message: "too many requests", Severity: derror.SeverityWarning}, Limit: 10, RetryAfterSeconds: 30},
			want: []string{"quota: 0 of 10 remaining", "retry in 30s"},
		},
		{
			name: "api",
			err:  &derror.APIError{Base: derror.Base{Message: "server error"}, HTTPStatus: 503, StatusText: "Service Unavailable", Endpoint: "http://x/consultar", Retryable: true},
			want: []string{"status: 503 Service Unavailable", "endpoint: http://x/consultar", "can be retried"},
		},
		{
			name: "network",
			err:  &derror.NetworkError{Base: derror.Base{Message: "network"}, Connection: derror.ConnectionInfo{Online: false, Type: "wifi"}},
			want: []string{"connection: offline (wifi)"},
		},
		{
			name: "unknown",
			err:  &derror.UnknownError{Base: derror.Base{Message: "unexpected", Detail: "boom"}},
			want: []string{"! error: unexpected", "  boom"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			RenderError(&buf, nil, tc.err)
			for _, w := range tc.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("missing %q in:\n%s", w, buf.String())
				}
			}
		})
	}

	var buf bytes.Buffer
	RenderError(&buf, nil, nil)
	if buf.Len() != 0 {
		t.Error("nil error must render nothing")
	}
}
