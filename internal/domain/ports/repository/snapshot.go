package repository

import (
	"context"

	"assistant-chat/internal/domain/model"
)

// SnapshotStore persists the conversation between runs. It is a cache, not a
// source of truth: Load returns domain.ErrNotFound when nothing is stored.
type SnapshotStore interface {
	Save(ctx context.Context, state *model.ConversationState) error
	Load(ctx context.Context) (*model.ConversationState, error)
}
