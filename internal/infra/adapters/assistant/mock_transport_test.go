//go:build !integration

package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"assistant-chat/internal/config"
	"assistant-chat/internal/domain/ports/adapter"
)

func TestMockTransport_CannedReply(t *testing.T) {
	log := zerolog.Nop()
	m := NewMockTransport(20*time.Millisecond, &log)

	start := time.Now()
	resp, err := m.Exchange(context.Background(), adapter.ExchangeRequest{RequestID: "r", Question: "anything"}, "")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("want the configured delay honoured")
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	var body struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Reply != MockReply || !strings.Contains(body.Reply, "|") {
		t.Errorf("want the canned markdown reply, got %q", body.Reply)
	}

	again, _ := m.Exchange(context.Background(), adapter.ExchangeRequest{Question: "other"}, "tok")
	if string(again.Body) != string(resp.Body) {
		t.Error("mock reply must be deterministic")
	}
}

func TestMockTransport_Cancellation(t *testing.T) {
	log := zerolog.Nop()
	m := NewMockTransport(time.Hour, &log)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Exchange(ctx, adapter.ExchangeRequest{Question: "q"}, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestMockTransport_Healthy(t *testing.T) {
	log := zerolog.Nop()
	hs, err := NewMockTransport(0, &log).CheckHealth(context.Background())
	if err != nil || !hs.Healthy() {
		t.Fatalf("want healthy mock, got %+v %v", hs, err)
	}
}

func TestNew_SelectsTransport(t *testing.T) {
	log := zerolog.Nop()
	cfg, err := config.LoadConfig("", true)
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	cfg.Assistant.UseMock = true
	tr, hc := New(cfg, &log)
	if tr.Endpoint() != MockEndpoint {
		t.Errorf("want mock endpoint, got %s", tr.Endpoint())
	}
	if _, ok := hc.(*MockTransport); !ok {
		t.Errorf("want mock health checker, got %T", hc)
	}

	cfg.Assistant.UseMock = false
	cfg.Assistant.ChatURL = "https://chat.example.com"
	tr, _ = New(cfg, &log)
	if tr.Endpoint() != "https://chat.example.com/consultar" {
		t.Errorf("want resolved chat endpoint, got %s", tr.Endpoint())
	}
}
