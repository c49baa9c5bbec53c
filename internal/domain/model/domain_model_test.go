//go:build !integration

package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"assistant-chat/internal/domain"
	derror "assistant-chat/internal/error"
)

// --- User Model Tests ---

func TestNewUser(t *testing.T) {
	t.Run("should create a new user and default the name", func(t *testing.T) {
		user, err := NewUser("u-1", "ana@example.com", "")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if user.Name != "ana@example.com" {
			t.Errorf("expected name to default to email, but got %s", user.Name)
		}
		if got := user.Author(); got.Email != "ana@example.com" {
			t.Errorf("expected author email ana@example.com, but got %s", got.Email)
		}
	})

	t.Run("should fail without id and email", func(t *testing.T) {
		user, err := NewUser("", "", "nobody")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, but got %v", err)
		}
		if user != nil {
			t.Error("expected user to be nil on error")
		}
	})
}

func TestHasRequiredPermissions(t *testing.T) {
	u := &User{ID: "u-1", Applications: map[string]string{
		"chatbot1": "user",
		"billing":  "admin",
		"reports":  "viewer",
	}}
	if !u.HasRequiredPermissions("chatbot1") {
		t.Error("expected user role on chatbot1 to grant access")
	}
	if !u.HasRequiredPermissions("billing") {
		t.Error("expected admin role on billing to grant access")
	}
	if u.HasRequiredPermissions("reports") || u.HasRequiredPermissions("other") {
		t.Error("expected no access without user or admin role")
	}
	var nilUser *User
	if nilUser.HasRequiredPermissions("chatbot1") {
		t.Error("expected nil user to have no permissions")
	}
}

// --- Message Model Tests ---

func TestNewMessage(t *testing.T) {
	at := time.Now()
	author := &Author{Name: "Ana", Email: "ana@example.com"}
	att := Attachment{Type: AttachmentFile, Name: "a.pdf", Size: 12}

	m1 := NewMessage(RoleUser, "hello", at, author, att)
	m2 := NewMessage(RoleAssistant, "hi", at, nil)

	if m1.ID == "" || m1.ID == m2.ID {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", m1.ID, m2.ID)
	}
	if m1.ID >= m2.ID {
		t.Errorf("expected ids to sort by creation order, got %q then %q", m1.ID, m2.ID)
	}
	if m1.Author == author {
		t.Error("expected author to be copied, not aliased")
	}
	if m2.Author != nil {
		t.Error("expected assistant message without author")
	}
	if len(m1.Attachments) != 1 || m1.Attachments[0].Name != "a.pdf" {
		t.Errorf("unexpected attachments: %+v", m1.Attachments)
	}
}

func TestTrailingHistory(t *testing.T) {
	msgs := make([]Message, 0, 5)
	for i := 0; i < 5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		msgs = append(msgs, NewMessage(role, string(rune('a'+i)), time.Now(), nil))
	}

	t.Run("caps to the newest n", func(t *testing.T) {
		h := TrailingHistory(msgs, 2)
		if len(h) != 2 || h[0].Content != "d" || h[1].Content != "e" {
			t.Errorf("unexpected window: %+v", h)
		}
	})
	t.Run("non positive means unlimited", func(t *testing.T) {
		if h := TrailingHistory(msgs, 0); len(h) != 5 {
			t.Errorf("expected 5 entries, got %d", len(h))
		}
	})
	t.Run("empty input is an empty non-nil slice", func(t *testing.T) {
		h := TrailingHistory(nil, 3)
		if h == nil || len(h) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", h)
		}
	})
}

// --- ConversationState Tests ---

func TestConversationStateCloneIsDeep(t *testing.T) {
	s := NewConversationState()
	s.Messages = append(s.Messages, NewMessage(RoleUser, "q", time.Now(), &Author{Name: "A"}))
	s.LastRequest = &RequestSnapshot{Headers: map[string]string{"X-Request-ID": "r1"}}

	c := s.Clone()
	c.Messages[0].Author.Name = "changed"
	c.LastRequest.Headers["X-Request-ID"] = "changed"
	c.Messages = append(c.Messages, Message{})

	if s.Messages[0].Author.Name != "A" {
		t.Error("clone shares author with original")
	}
	if s.LastRequest.Headers["X-Request-ID"] != "r1" {
		t.Error("clone shares request headers with original")
	}
	if len(s.Messages) != 1 {
		t.Error("clone shares message slice with original")
	}
}

func TestConversationStateJSONKeepsTypedError(t *testing.T) {
	s := NewConversationState()
	s.Messages = append(s.Messages, NewMessage(RoleUser, "q", time.Now(), nil))
	s.Metrics = Metrics{TotalRequests: 1, FailedRequests: 1}
	s.LastError = &derror.AuthError{HTTPStatus: 401, TokenExpired: true}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ConversationState
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ae, ok := back.LastError.(*derror.AuthError)
	if !ok {
		t.Fatalf("expected *AuthError, got %T", back.LastError)
	}
	if !ae.TokenExpired || ae.HTTPStatus != 401 {
		t.Errorf("auth error fields lost: %+v", ae)
	}
	if len(back.Messages) != 1 || back.Metrics.FailedRequests != 1 {
		t.Errorf("state fields lost: %+v", back)
	}
}

func TestUserTurns(t *testing.T) {
	s := NewConversationState()
	s.Messages = append(s.Messages,
		NewMessage(RoleUser, "1", time.Now(), nil),
		NewMessage(RoleAssistant, "2", time.Now(), nil),
		NewMessage(RoleUser, "3", time.Now(), nil),
	)
	if got := s.UserTurns(); got != 2 {
		t.Errorf("expected 2 user turns, got %d", got)
	}
}

func TestQuestionLimitReached(t *testing.T) {
	s := NewConversationState()
	s.Messages = append(s.Messages,
		NewMessage(RoleUser, "1", time.Now(), nil),
		NewMessage(RoleAssistant, "2", time.Now(), nil),
	)
	cases := []struct {
		max  int
		want bool
	}{
		{max: 1, want: true},
		{max: 2, want: false},
		{max: 0, want: false},
		{max: -1, want: false},
	}
	for _, tc := range cases {
		if got := s.QuestionLimitReached(tc.max); got != tc.want {
			t.Errorf("QuestionLimitReached(%d) = %v, want %v", tc.max, got, tc.want)
		}
	}
}
