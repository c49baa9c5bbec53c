package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/adapter"
)

var _ adapter.CredentialSource = (*Session)(nil)

// Session holds the bearer token and the signed-in user for the process.
type Session struct {
	mu       sync.RWMutex
	token    string
	user     *model.User
	onLogout []func(context.Context)

	log *zerolog.Logger
	now func() time.Time
}

func NewSession(logger *zerolog.Logger) *Session {
	l := logger.With().Str("component", "auth_session").Logger()
	return &Session{log: &l, now: time.Now}
}

// Token returns the bearer token. An expired token counts as absent.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false
	}
	if s.user != nil && !s.user.TokenExpiry.IsZero() && !s.now().Before(s.user.TokenExpiry) {
		return "", false
	}
	return s.token, true
}

func (s *Session) CurrentUser() model.Author {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Author()
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	if s.user.Applications != nil {
		u.Applications = make(map[string]string, len(s.user.Applications))
		for k, v := range s.user.Applications {
			u.Applications[k] = v
		}
	}
	return &u
}

func (s *Session) IsAuthenticated() bool {
	_, ok := s.Token()
	return ok
}

func (s *Session) set(token string, user *model.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()
	s.log.Info().Str("user", user.Email).Msg("signed in")
}

// OnLogout registers fn to run after the session is cleared.
func (s *Session) OnLogout(fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Clear drops the token and user, then runs the logout hooks outside the lock.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	hadUser := s.user != nil
	s.token = ""
	s.user = nil
	hooks := append([]func(context.Context){}, s.onLogout...)
	s.mu.Unlock()

	if hadUser {
		s.log.Info().Msg("signed out")
	}
	for _, fn := range hooks {
		fn(ctx)
	}
}
