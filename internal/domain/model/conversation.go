package model

import (
	"encoding/json"
	"maps"
	"time"

	derror "assistant-chat/internal/error"
)

// RequestMetrics describes a single exchange as observed on the wire.
type RequestMetrics struct {
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	DurationMs       int64     `json:"duration_ms"`
	HTTPStatus       int       `json:"http_status"`
	BytesTransferred int64     `json:"bytes_transferred"`
	CacheHit         bool      `json:"cache_hit"`
	CacheAgeSeconds  int       `json:"cache_age_seconds"`
}

// Metrics are the running counters of a conversation.
type Metrics struct {
	TotalRequests         int     `json:"total_requests"`
	SuccessfulRequests    int     `json:"successful_requests"`
	FailedRequests        int     `json:"failed_requests"`
	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
}

// RequestSnapshot is what was sent on the last exchange. The Authorization
// header is stored redacted.
type RequestSnapshot struct {
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
	RequestID       string            `json:"request_id"`
	EstimatedTokens int               `json:"estimated_tokens"`
	IssuedAt        time.Time         `json:"issued_at"`
	Metrics         *RequestMetrics   `json:"metrics,omitempty"`
}

// ResponseSnapshot is what came back on the last successful exchange.
type ResponseSnapshot struct {
	Status     int               `json:"status"`
	StatusText string            `json:"status_text"`
	Headers    map[string]string `json:"headers"`
	Reply      string            `json:"reply"`
	DurationMs int64             `json:"duration_ms"`
	CacheHit   bool              `json:"cache_hit"`
	ReceivedAt time.Time         `json:"received_at"`
}

// ConversationState is the full observable state of one conversation.
type ConversationState struct {
	Messages              []Message         `json:"messages"`
	IsSending             bool              `json:"is_sending"`
	LastError             derror.ChatError  `json:"-"`
	LastRequest           *RequestSnapshot  `json:"last_request,omitempty"`
	LastResponse          *ResponseSnapshot `json:"last_response,omitempty"`
	LastRequestDurationMs int64             `json:"last_request_duration_ms"`
	Metrics               Metrics           `json:"metrics"`
	Generation            uint64            `json:"generation"`
}

func NewConversationState() *ConversationState {
	return &ConversationState{Messages: make([]Message, 0, 16)}
}

// UserTurns counts messages authored by the user.
func (s *ConversationState) UserTurns() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// QuestionLimitReached reports whether max user turns have been asked.
// A non-positive max never limits.
func (s *ConversationState) QuestionLimitReached(max int) bool {
	return max > 0 && s.UserTurns() >= max
}

// Clone returns a deep copy. ChatError values are immutable once built and are shared.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m.clone()
	}
	if s.LastRequest != nil {
		r := *s.LastRequest
		r.Headers = maps.Clone(s.LastRequest.Headers)
		if s.LastRequest.Metrics != nil {
			m := *s.LastRequest.Metrics
			r.Metrics = &m
		}
		out.LastRequest = &r
	}
	if s.LastResponse != nil {
		r := *s.LastResponse
		r.Headers = maps.Clone(s.LastResponse.Headers)
		out.LastResponse = &r
	}
	return &out
}

type conversationStateJSON ConversationState

type conversationStateWire struct {
	*conversationStateJSON
	LastError json.RawMessage `json:"last_error"`
}

func (s ConversationState) MarshalJSON() ([]byte, error) {
	errRaw, err := derror.Encode(s.LastError)
	if err != nil {
		return nil, err
	}
	alias := conversationStateJSON(s)
	return json.Marshal(conversationStateWire{conversationStateJSON: &alias, LastError: errRaw})
}

func (s *ConversationState) UnmarshalJSON(b []byte) error {
	wire := conversationStateWire{conversationStateJSON: (*conversationStateJSON)(s)}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	lastErr, err := derror.Decode(wire.LastError)
	if err != nil {
		return err
	}
	s.LastError = lastErr
	if s.Messages == nil {
		s.Messages = make([]Message, 0, 16)
	}
	return nil
}
