package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/repository"
)

var _ repository.SnapshotStore = (*AsyncSnapshotStore)(nil)

// AsyncSnapshotStore moves snapshot writes off the caller's path. Writes are
// coalesced: only the most recent state waiting in the queue is written.
type AsyncSnapshotStore struct {
	inner repository.SnapshotStore
	pool  *Pool

	mu      sync.Mutex
	pending *model.ConversationState
	queued  bool

	log *zerolog.Logger
}

func NewAsyncSnapshotStore(inner repository.SnapshotStore, logger *zerolog.Logger) *AsyncSnapshotStore {
	l := logger.With().Str("component", "async-snapshot").Logger()
	return &AsyncSnapshotStore{
		inner: inner,
		pool:  NewPool(1, 4, logger),
		log:   &l,
	}
}

func (a *AsyncSnapshotStore) Start(ctx context.Context) { a.pool.Start(ctx) }

// Stop flushes the last pending snapshot and stops the writer.
func (a *AsyncSnapshotStore) Stop() { a.pool.Stop() }

func (a *AsyncSnapshotStore) Save(ctx context.Context, st *model.ConversationState) error {
	a.mu.Lock()
	a.pending = st
	if a.queued {
		a.mu.Unlock()
		return nil
	}
	a.queued = true
	a.mu.Unlock()

	if err := a.pool.Submit(a.flush); err != nil {
		a.log.Debug().Err(err).Msg("writer unavailable; saving inline")
		return a.flush(ctx)
	}
	return nil
}

func (a *AsyncSnapshotStore) flush(ctx context.Context) error {
	a.mu.Lock()
	st := a.pending
	a.pending = nil
	a.queued = false
	a.mu.Unlock()
	if st == nil {
		return nil
	}
	return a.inner.Save(ctx, st)
}

// Load reads through to the inner store.
func (a *AsyncSnapshotStore) Load(ctx context.Context) (*model.ConversationState, error) {
	return a.inner.Load(ctx)
}
