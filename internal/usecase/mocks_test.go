// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"net/http"
	"sync"
	"time"

	"assistant-chat/internal/domain"
	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/adapter"
	"assistant-chat/internal/domain/ports/repository"
	derror "assistant-chat/internal/error"
)

// fakeClock is advanced by hand or by fakeTransport.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type exchangeResult struct {
	resp  *adapter.RawResponse
	err   error
	delay time.Duration // added to the fake clock, may be negative
}

// fakeTransport replays scripted results and records every request.
type fakeTransport struct {
	mu       sync.Mutex
	clock    *fakeClock
	script   []exchangeResult
	requests []adapter.ExchangeRequest
	tokens   []string

	// When set, Exchange signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

var _ adapter.Transport = (*fakeTransport)(nil)

func (f *fakeTransport) Endpoint() string { return "https://assistant.test/consultar" }

func (f *fakeTransport) Exchange(ctx context.Context, req adapter.ExchangeRequest, token string) (*adapter.RawResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.tokens = append(f.tokens, token)
	var r exchangeResult
	if len(f.script) > 0 {
		r, f.script = f.script[0], f.script[1:]
	} else {
		r = exchangeResult{resp: okReply("ok")}
	}
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if f.clock != nil && r.delay != 0 {
		f.clock.Advance(r.delay)
	}
	return r.resp, r.err
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) lastRequest() adapter.ExchangeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func okReply(text string) *adapter.RawResponse {
	return rawResponse(http.StatusOK, `{"reply":"`+text+`"}`, nil)
}

func rawResponse(status int, body string, header http.Header) *adapter.RawResponse {
	if header == nil {
		header = http.Header{}
	}
	return &adapter.RawResponse{
		StatusCode: status,
		StatusText: http.StatusText(status),
		Header:     header,
		Body:       []byte(body),
		Endpoint:   "https://assistant.test/consultar",
		Method:     http.MethodPost,
		RequestID:  "req-1",
	}
}

type fakeCreds struct {
	token string
	user  model.Author
}

var _ adapter.CredentialSource = (*fakeCreds)(nil)

func (c *fakeCreds) Token() (string, bool)     { return c.token, c.token != "" }
func (c *fakeCreds) CurrentUser() model.Author { return c.user }

// memSnapshots is a synchronous in-memory SnapshotStore.
type memSnapshots struct {
	mu      sync.Mutex
	last    *model.ConversationState
	saves   int
	loadErr error
}

var _ repository.SnapshotStore = (*memSnapshots)(nil)

func (m *memSnapshots) Save(ctx context.Context, st *model.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = st.Clone()
	m.saves++
	return nil
}

func (m *memSnapshots) Load(ctx context.Context) (*model.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.last == nil {
		return nil, domain.ErrNotFound
	}
	return m.last.Clone(), nil
}

type lenEstimator struct{}

func (lenEstimator) Count(text string) int { return len(text) }

func onlineProbe() derror.ConnectionInfo { return derror.ConnectionInfo{Online: true, Type: "ethernet"} }
