package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type AttachmentType string

const (
	AttachmentFile  AttachmentType = "file"
	AttachmentAudio AttachmentType = "audio"
)

// Attachment is metadata only; the payload lives behind URL.
type Attachment struct {
	Type            AttachmentType `json:"type"`
	URL             string         `json:"url"`
	Name            string         `json:"name"`
	Size            int64          `json:"size"`
	MimeType        string         `json:"mime_type"`
	DurationSeconds float64        `json:"duration_seconds,omitempty"`
}

// Author identifies who wrote a user message.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a Author) IsZero() bool { return a.Name == "" && a.Email == "" }

// Message is one entry of the conversation log. Messages are never mutated after
// they have been appended.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Author      *Author      `json:"author,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// NewMessage stamps a fresh, lexically sortable id.
func NewMessage(role Role, content string, at time.Time, author *Author, attachments ...Attachment) Message {
	m := Message{
		ID:        ulid.Make().String(),
		Role:      role,
		Content:   content,
		Timestamp: at,
	}
	if author != nil && !author.IsZero() {
		a := *author
		m.Author = &a
	}
	if len(attachments) > 0 {
		m.Attachments = append([]Attachment(nil), attachments...)
	}
	return m
}

func (m Message) clone() Message {
	out := m
	if m.Author != nil {
		a := *m.Author
		out.Author = &a
	}
	if m.Attachments != nil {
		out.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return out
}

// HistoryEntry is the wire shape of a prior turn sent to the assistant.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TrailingHistory returns the last n messages as history entries, oldest first.
// n <= 0 means no limit. The result is never nil.
func TrailingHistory(msgs []Message, n int) []HistoryEntry {
	start := 0
	if n > 0 && len(msgs) > n {
		start = len(msgs) - n
	}
	out := make([]HistoryEntry, 0, len(msgs)-start)
	for _, m := range msgs[start:] {
		out = append(out, HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return out
}
