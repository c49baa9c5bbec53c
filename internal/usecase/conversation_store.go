// File: internal/usecase/conversation_store.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"assistant-chat/internal/domain"
	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/adapter"
	"assistant-chat/internal/domain/ports/repository"
	derror "assistant-chat/internal/error"
	"assistant-chat/internal/infra/logging"
	"assistant-chat/internal/infra/metrics"
)

// Compile-time check
var _ ConversationUseCase = (*ConversationStore)(nil)

type ConversationUseCase interface {
	SendMessage(ctx context.Context, content string, attachments ...model.Attachment)
	ClearHistory(ctx context.Context)
	State() *model.ConversationState
	Restore(ctx context.Context)
}

// TokenEstimator approximates the prompt size of a request body.
type TokenEstimator interface {
	Count(text string) int
}

// ConversationStore owns one conversation. All mutation goes through
// SendMessage and ClearHistory. Neither the transport nor the snapshot store
// is called with the state lock held.
type ConversationStore struct {
	mu    sync.Mutex
	state *model.ConversationState
	agg   *MetricsAggregator
	seq   uint64 // last snapshot taken, guarded by mu

	saveMu   sync.Mutex
	savedSeq uint64 // last snapshot written, guarded by saveMu

	transport  adapter.Transport
	creds      adapter.CredentialSource
	snapshots  repository.SnapshotStore
	classifier *ErrorClassifier
	tokens     TokenEstimator
	maxHistory int
	timeout    time.Duration

	log *zerolog.Logger
	now func() time.Time
}

func NewConversationStore(
	transport adapter.Transport,
	creds adapter.CredentialSource,
	snapshots repository.SnapshotStore,
	classifier *ErrorClassifier,
	tokens TokenEstimator,
	maxHistory int,
	timeout time.Duration,
	logger *zerolog.Logger,
) *ConversationStore {
	l := logger.With().Str("component", "conversation").Logger()
	return &ConversationStore{
		state:      model.NewConversationState(),
		agg:        NewMetricsAggregator(),
		transport:  transport,
		creds:      creds,
		snapshots:  snapshots,
		classifier: classifier,
		tokens:     tokens,
		maxHistory: maxHistory,
		timeout:    timeout,
		log:        &l,
		now:        time.Now,
	}
}

type replyBody struct {
	Reply *string `json:"reply"`
}

// inflight is what SendMessage carries across the unlocked exchange.
type inflight struct {
	gen     uint64
	req     adapter.ExchangeRequest
	token   string
	started time.Time
}

// SendMessage appends the user turn, performs one exchange and reconciles the
// result. It never returns an error; failures land in State().LastError.
func (s *ConversationStore) SendMessage(ctx context.Context, content string, attachments ...model.Attachment) {
	defer logging.TraceDuration(s.log, "ConversationStore.SendMessage")()

	f, snap, ok := s.begin(content, attachments)
	s.persist(ctx, snap)
	if !ok {
		return
	}

	log := logging.With(logging.WithRequestID(ctx, f.req.RequestID), s.log)
	log.Debug().Int("history", len(f.req.History)).Msg("exchange started")

	raw, err := s.transport.Exchange(ctx, f.req, f.token)
	elapsed := s.now().Sub(f.started)
	reply, ce := s.interpret(raw, err, elapsed)

	s.persist(ctx, s.finish(log, f, raw, reply, ce, elapsed))
}

// finish reconciles the exchange result under the lock. A result whose
// generation no longer matches is dropped.
func (s *ConversationStore) finish(log *zerolog.Logger, f inflight, raw *adapter.RawResponse, reply string, ce derror.ChatError, elapsed time.Duration) *pendingSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Generation != f.gen {
		metrics.ChatDiscarded()
		log.Debug().Uint64("generation", f.gen).Msg("history cleared during exchange; result discarded")
		return nil
	}

	s.state.IsSending = false
	s.state.LastRequestDurationMs = elapsed.Milliseconds()
	s.finishRequestSnapshot(raw, f.started, elapsed)

	if ce != nil {
		s.state.LastError = ce
		s.agg.RecordFailure(ce.Kind(), elapsed)
		s.state.Metrics = s.agg.Snapshot()
		ev := log.Error()
		if ce.Common().Severity == derror.SeverityWarning {
			ev = log.Warn()
		}
		ev.Str("kind", string(ce.Kind())).Dur("elapsed", elapsed).Msg(ce.Common().Message)
		return s.snapshotLocked()
	}

	s.state.Messages = append(s.state.Messages, model.NewMessage(model.RoleAssistant, reply, s.stampLocked(), nil))
	s.state.LastResponse = s.responseSnapshot(raw, reply, elapsed)
	s.agg.RecordSuccess(elapsed)
	s.state.Metrics = s.agg.Snapshot()
	log.Debug().Dur("elapsed", elapsed).Int("messages", len(s.state.Messages)).Msg("exchange finished")
	return s.snapshotLocked()
}

// begin runs the guards and the optimistic append under the lock.
func (s *ConversationStore) begin(content string, attachments []model.Attachment) (inflight, *pendingSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsSending {
		s.log.Debug().Msg("send ignored: exchange already in flight")
		return inflight{}, nil, false
	}

	token, ok := s.creds.Token()
	if !ok || token == "" {
		ce := s.classifier.NotAuthenticated()
		s.state.LastError = ce
		metrics.ChatRejected(string(ce.Kind()))
		s.log.Warn().Str("kind", string(ce.Kind())).Msg("send rejected: not authenticated")
		return inflight{}, s.snapshotLocked(), false
	}

	if strings.TrimSpace(content) == "" && len(attachments) == 0 {
		return inflight{}, nil, false
	}

	history := model.TrailingHistory(s.state.Messages, s.maxHistory)
	author := s.creds.CurrentUser()
	started := s.now()
	s.state.Messages = append(s.state.Messages, model.NewMessage(model.RoleUser, content, s.stampLocked(), &author, attachments...))

	req := adapter.ExchangeRequest{
		RequestID: uuid.NewString(),
		Question:  content,
		History:   history,
	}
	s.state.IsSending = true
	s.state.LastError = nil
	s.state.LastRequest = s.requestSnapshot(req, started)
	s.agg.RecordIssued()
	s.state.Metrics = s.agg.Snapshot()

	return inflight{gen: s.state.Generation, req: req, token: token, started: started}, s.snapshotLocked(), true
}

// interpret turns the transport result into a reply or a classified error.
func (s *ConversationStore) interpret(raw *adapter.RawResponse, err error, elapsed time.Duration) (string, derror.ChatError) {
	outcome := Outcome{
		Err:      err,
		Response: raw,
		Endpoint: s.transport.Endpoint(),
		Method:   http.MethodPost,
		Timeout:  s.timeout,
		Duration: elapsed,
	}
	if err != nil || raw == nil || !raw.OK() {
		if err == nil && raw == nil {
			outcome.Err = errors.New("transport returned neither a response nor an error")
		}
		return "", s.classifier.Classify(outcome)
	}

	var body replyBody
	if err := json.Unmarshal(raw.Body, &body); err != nil {
		outcome.Err = errors.Join(errors.New("malformed assistant response"), err)
		return "", s.classifier.Classify(outcome)
	}
	if body.Reply == nil {
		outcome.Err = errors.New("assistant response has no reply field")
		return "", s.classifier.Classify(outcome)
	}
	return *body.Reply, nil
}

// ClearHistory resets the conversation and invalidates any in-flight exchange.
func (s *ConversationStore) ClearHistory(ctx context.Context) {
	s.mu.Lock()
	gen := s.state.Generation + 1
	s.state = model.NewConversationState()
	s.state.Generation = gen
	s.agg.Reset()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	metrics.HistoryCleared()
	s.log.Info().Uint64("generation", gen).Msg("history cleared")
	s.persist(ctx, snap)
}

// State returns a deep copy safe to read without synchronisation.
func (s *ConversationStore) State() *model.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Restore loads the last snapshot. Absent or unreadable snapshots leave an
// empty conversation; a restored conversation is never in flight.
func (s *ConversationStore) Restore(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	st, err := s.snapshots.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.log.Debug().Msg("no conversation snapshot")
		return
	case err != nil:
		s.log.Warn().Err(err).Msg("conversation snapshot unreadable; starting empty")
		return
	case st == nil:
		return
	}
	st.IsSending = false
	st.Generation = s.state.Generation + 1
	if st.Messages == nil {
		st.Messages = make([]model.Message, 0, 16)
	}
	s.state = st
	s.agg.Load(st.Metrics)
	s.log.Info().Int("messages", len(st.Messages)).Msg("conversation restored")
}

// pendingSnapshot is a copy of the state taken under the lock, written later.
type pendingSnapshot struct {
	seq   uint64
	state *model.ConversationState
}

func (s *ConversationStore) snapshotLocked() *pendingSnapshot {
	if s.snapshots == nil {
		return nil
	}
	s.seq++
	return &pendingSnapshot{seq: s.seq, state: s.state.Clone()}
}

// persist writes p unless a newer snapshot was already written. A slow store
// delays other writers only, never readers of the state.
func (s *ConversationStore) persist(ctx context.Context, p *pendingSnapshot) {
	if p == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if p.seq <= s.savedSeq {
		return
	}
	s.savedSeq = p.seq
	if err := s.snapshots.Save(context.WithoutCancel(ctx), p.state); err != nil {
		s.log.Warn().Err(err).Msg("conversation snapshot not saved")
	}
}

// stampLocked keeps message timestamps non-decreasing even if the wall clock
// steps back.
func (s *ConversationStore) stampLocked() time.Time {
	at := s.now()
	if n := len(s.state.Messages); n > 0 {
		if last := s.state.Messages[n-1].Timestamp; at.Before(last) {
			at = last
		}
	}
	return at
}

func (s *ConversationStore) requestSnapshot(req adapter.ExchangeRequest, started time.Time) *model.RequestSnapshot {
	body, _ := json.Marshal(req)
	snap := &model.RequestSnapshot{
		Method: http.MethodPost,
		URL:    s.transport.Endpoint(),
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer [redacted]",
			"X-Request-ID":  req.RequestID,
		},
		Body:      string(body),
		RequestID: req.RequestID,
		IssuedAt:  started,
		Metrics:   &model.RequestMetrics{StartTime: started},
	}
	if s.tokens != nil {
		snap.EstimatedTokens = s.tokens.Count(string(body))
	}
	return snap
}

func (s *ConversationStore) finishRequestSnapshot(raw *adapter.RawResponse, started time.Time, elapsed time.Duration) {
	if s.state.LastRequest == nil {
		return
	}
	m := model.RequestMetrics{}
	if raw != nil {
		m = raw.Metrics
		m.HTTPStatus = raw.StatusCode
	}
	m.StartTime = started
	m.EndTime = started.Add(elapsed)
	m.DurationMs = elapsed.Milliseconds()
	s.state.LastRequest.Metrics = &m
}

func (s *ConversationStore) responseSnapshot(raw *adapter.RawResponse, reply string, elapsed time.Duration) *model.ResponseSnapshot {
	headers := make(map[string]string, len(raw.Header)+1)
	for k, v := range raw.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	headers["X-Response-Time"] = strconv.FormatInt(elapsed.Milliseconds(), 10) + "ms"
	return &model.ResponseSnapshot{
		Status:     raw.StatusCode,
		StatusText: raw.StatusText,
		Headers:    headers,
		Reply:      reply,
		DurationMs: elapsed.Milliseconds(),
		CacheHit:   raw.Metrics.CacheHit,
		ReceivedAt: s.now(),
	}
}
