//go:build !integration

package derror

import (
	"errors"
	"testing"
	"time"
)

type kindCollector struct{ seen []Kind }

func (c *kindCollector) VisitConfig(e *ConfigError)       { c.seen = append(c.seen, e.Kind()) }
func (c *kindCollector) VisitAuth(e *AuthError)           { c.seen = append(c.seen, e.Kind()) }
func (c *kindCollector) VisitRateLimit(e *RateLimitError) { c.seen = append(c.seen, e.Kind()) }
func (c *kindCollector) VisitAPI(e *APIError)             { c.seen = append(c.seen, e.Kind()) }
func (c *kindCollector) VisitNetwork(e *NetworkError)     { c.seen = append(c.seen, e.Kind()) }
func (c *kindCollector) VisitUnknown(e *UnknownError)     { c.seen = append(c.seen, e.Kind()) }

func TestVisitorDispatch(t *testing.T) {
	all := []ChatError{
		&ConfigError{}, &NetworkError{}, &AuthError{}, &RateLimitError{}, &APIError{}, &UnknownError{},
	}
	c := &kindCollector{}
	for _, e := range all {
		e.Accept(c)
	}
	if len(c.seen) != len(Kinds) {
		t.Fatalf("want %d visits, got %d", len(Kinds), len(c.seen))
	}
	for i, k := range Kinds {
		if c.seen[i] != k {
			t.Errorf("visit %d: want %s, got %s", i, k, c.seen[i])
		}
	}
}

func TestIsRetryable(t *testing.T) {
	cases := map[int]bool{400: false, 404: false, 429: true, 499: false, 500: true, 503: true}
	for status, want := range cases {
		if got := IsRetryable(status); got != want {
			t.Errorf("status %d: want %v, got %v", status, want, got)
		}
	}
}

func TestEnvelopePreservesKindAndFields(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := &RateLimitError{
		Base:              Base{Message: "slow down", Severity: SeverityWarning, Timestamp: ts, Environment: "development"},
		Limit:             100,
		Remaining:         0,
		ResetAt:           1700000000,
		RetryAfterSeconds: 30,
	}
	raw, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rl, ok := out.(*RateLimitError)
	if !ok {
		t.Fatalf("want *RateLimitError, got %T", out)
	}
	if rl.Limit != 100 || rl.RetryAfterSeconds != 30 || rl.Severity != SeverityWarning {
		t.Errorf("fields lost: %+v", rl)
	}
	if !rl.Timestamp.Equal(ts) {
		t.Errorf("want timestamp %v, got %v", ts, rl.Timestamp)
	}
}

func TestDecodeNullAndUnknownKind(t *testing.T) {
	e, err := Decode([]byte("null"))
	if err != nil || e != nil {
		t.Fatalf("want nil,nil for null, got %v,%v", e, err)
	}
	if _, err := Decode([]byte(`{"kind":"bogus","data":{}}`)); err == nil {
		t.Fatal("want error for unknown kind")
	}
}

func TestChatErrorIsAnError(t *testing.T) {
	var err error = &APIError{HTTPStatus: 502, StatusText: "Bad Gateway", Base: Base{Message: "upstream"}}
	var ce ChatError
	if !errors.As(err, &ce) {
		t.Fatal("want errors.As to find ChatError")
	}
	if ce.Kind() != KindAPI {
		t.Errorf("want %s, got %s", KindAPI, ce.Kind())
	}
}
