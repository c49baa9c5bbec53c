package apiv1

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/usecase"
)

// Server exposes the conversation of this process over HTTP. It reads and
// drives the same ConversationStore the console uses.
type Server struct {
	conv         usecase.ConversationUseCase
	policy       *usecase.AttachmentPolicy
	maxQuestions int
	log          *zerolog.Logger
}

// NewServer builds the handlers. maxQuestions caps user turns per
// conversation; a non-positive value disables the cap.
func NewServer(conv usecase.ConversationUseCase, policy *usecase.AttachmentPolicy, maxQuestions int, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{conv: conv, policy: policy, maxQuestions: maxQuestions, log: &l}
}

// RegisterAPIV1 mounts the routes at absolute /api/v1 paths.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1/conversation", func(r chi.Router) {
		r.Get("/", s.getConversation)
		r.Delete("/", s.clearConversation)
		r.Get("/metrics", s.getMetrics)
		r.Get("/messages", s.listMessages)
		r.Post("/messages", s.postMessage)
	})
}

type sendRequest struct {
	Content     string             `json:"content"`
	Attachments []model.Attachment `json:"attachments,omitempty"`
	// Async returns 202 immediately and lets the exchange finish in the background.
	Async bool `json:"async,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.conv.State())
}

func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.conv.State().Metrics)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.conv.State().Messages})
}

func (s *Server) clearConversation(w http.ResponseWriter, r *http.Request) {
	s.conv.ClearHistory(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	if s.conv == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "conversation not wired"})
		return
	}
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Debug().Err(err).Msg("invalid send body")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" && len(req.Attachments) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "content or attachments required"})
		return
	}
	if s.policy != nil {
		if err := s.policy.Check(req.Attachments...); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
	}
	st := s.conv.State()
	if st.IsSending {
		writeJSON(w, http.StatusConflict, errorBody{Error: "a message is already being sent"})
		return
	}
	if st.QuestionLimitReached(s.maxQuestions) {
		writeJSON(w, http.StatusConflict, errorBody{Error: "question limit reached; clear the conversation to continue"})
		return
	}

	// The exchange outlives the HTTP request so the conversation always
	// reaches a settled state.
	ctx := context.WithoutCancel(r.Context())
	if req.Async {
		go s.conv.SendMessage(ctx, req.Content, req.Attachments...)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sending"})
		return
	}
	s.conv.SendMessage(ctx, req.Content, req.Attachments...)
	writeJSON(w, http.StatusOK, s.conv.State())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
