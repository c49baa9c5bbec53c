package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"assistant-chat/internal/domain"
	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/repository"
	"assistant-chat/internal/infra/metrics"
)

var _ repository.SnapshotStore = (*SnapshotCache)(nil)

// Cipher seals snapshot payloads at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SnapshotCache stores the conversation as one JSON value under a fixed key.
type SnapshotCache struct {
	client RedisClient
	key    string
	ttl    time.Duration
	cipher Cipher
	log    *zerolog.Logger
}

// NewSnapshotCache builds the cache; cipher may be nil.
func NewSnapshotCache(client RedisClient, key string, ttl time.Duration, cipher Cipher, logger *zerolog.Logger) *SnapshotCache {
	l := logger.With().Str("component", "snapshot-cache").Str("key", key).Logger()
	return &SnapshotCache{client: client, key: key, ttl: ttl, cipher: cipher, log: &l}
}

func (c *SnapshotCache) Save(ctx context.Context, state *model.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		metrics.IncSnapshotOp("save", "error")
		return fmt.Errorf("encode snapshot: %w", err)
	}
	payload := string(data)
	if c.cipher != nil {
		if payload, err = c.cipher.Encrypt(payload); err != nil {
			metrics.IncSnapshotOp("save", "error")
			return fmt.Errorf("seal snapshot: %w", err)
		}
	}
	if err := c.client.Set(ctx, c.key, payload, c.ttl); err != nil {
		metrics.IncSnapshotOp("save", "error")
		return fmt.Errorf("store snapshot: %w", err)
	}
	metrics.IncSnapshotOp("save", "ok")
	c.log.Trace().Int("bytes", len(payload)).Msg("snapshot saved")
	return nil
}

// Load returns domain.ErrNotFound when nothing is stored.
func (c *SnapshotCache) Load(ctx context.Context) (*model.ConversationState, error) {
	payload, err := c.client.Get(ctx, c.key)
	if errors.Is(err, redis.Nil) {
		metrics.IncSnapshotOp("load", "miss")
		return nil, domain.ErrNotFound
	}
	if err != nil {
		metrics.IncSnapshotOp("load", "error")
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	if c.cipher != nil {
		if payload, err = c.cipher.Decrypt(payload); err != nil {
			metrics.IncSnapshotOp("load", "corrupt")
			return nil, fmt.Errorf("open snapshot: %w", err)
		}
	}
	var st model.ConversationState
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		metrics.IncSnapshotOp("load", "corrupt")
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	metrics.IncSnapshotOp("load", "hit")
	return &st, nil
}

// Clear drops the stored snapshot.
func (c *SnapshotCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key)
}
