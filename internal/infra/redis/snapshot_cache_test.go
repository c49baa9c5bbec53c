//go:build !integration

package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"assistant-chat/internal/domain"
	"assistant-chat/internal/domain/model"
	derror "assistant-chat/internal/error"
	"assistant-chat/internal/infra/security"
)

func newCache(t *testing.T, client RedisClient, cipher Cipher) *SnapshotCache {
	t.Helper()
	log := zerolog.Nop()
	return NewSnapshotCache(client, "chat-storage", time.Hour, cipher, &log)
}

func sampleState() *model.ConversationState {
	st := model.NewConversationState()
	st.Messages = append(st.Messages,
		model.NewMessage(model.RoleUser, "hello", time.Now(), &model.Author{Name: "Ana"}),
		model.NewMessage(model.RoleAssistant, "hi", time.Now(), nil),
	)
	st.Metrics = model.Metrics{TotalRequests: 2, SuccessfulRequests: 1, FailedRequests: 1, AverageResponseTimeMs: 120}
	st.LastError = &derror.NetworkError{Request: derror.RequestDescriptor{URL: "https://x", Method: "POST"}}
	return st
}

func TestSnapshotCache_SaveLoad(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, NewMemoryClient(), nil)

	if err := c.Save(ctx, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Author.Name != "Ana" {
		t.Errorf("messages lost: %+v", got.Messages)
	}
	if got.Metrics.AverageResponseTimeMs != 120 {
		t.Errorf("metrics lost: %+v", got.Metrics)
	}
	if _, ok := got.LastError.(*derror.NetworkError); !ok {
		t.Errorf("want *NetworkError restored, got %T", got.LastError)
	}
}

func TestSnapshotCache_Absent(t *testing.T) {
	_, err := newCache(t, NewMemoryClient(), nil).Load(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSnapshotCache_Corrupt(t *testing.T) {
	ctx := context.Background()
	client := NewMemoryClient()
	_ = client.Set(ctx, "chat-storage", "{not json", 0)

	_, err := newCache(t, client, nil).Load(ctx)
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want decode error, got %v", err)
	}
}

func TestSnapshotCache_Encrypted(t *testing.T) {
	ctx := context.Background()
	client := NewMemoryClient()
	svc, err := security.NewEncryptionService("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	c := newCache(t, client, svc)
	if err := c.Save(ctx, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, _ := client.Get(ctx, "chat-storage")
	if strings.Contains(raw, "hello") {
		t.Error("payload must not be stored in clear text")
	}
	got, err := c.Load(ctx)
	if err != nil || len(got.Messages) != 2 {
		t.Fatalf("want decrypted snapshot, got %v %v", got, err)
	}

	other, _ := security.NewEncryptionService("another key entirely")
	if _, err := newCache(t, client, other).Load(ctx); err == nil {
		t.Error("want error opening with the wrong key")
	}
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryClient()
	now := time.Now()
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "k", "v", time.Minute)
	if v, err := m.Get(ctx, "k"); err != nil || v != "v" {
		t.Fatalf("want v, got %q %v", v, err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := m.Get(ctx, "k"); err == nil {
		t.Error("want expired key to be missing")
	}
}

func TestSnapshotCache_Clear(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, NewMemoryClient(), nil)
	_ = c.Save(ctx, sampleState())
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := c.Load(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("want ErrNotFound after clear, got %v", err)
	}
}
