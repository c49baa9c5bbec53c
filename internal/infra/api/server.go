package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/adapter"
	"assistant-chat/internal/infra/api/apiv1"
	"assistant-chat/internal/usecase"
)

// Server is the local admin and diagnostics listener.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

// NewRouter builds the admin routes. /health and /metrics are public; the
// conversation routes sit behind the admin API key.
func NewRouter(
	conv usecase.ConversationUseCase,
	policy *usecase.AttachmentPolicy,
	maxQuestions int,
	health adapter.HealthChecker,
	gatherer prometheus.Gatherer,
	apiKey string,
	logger *zerolog.Logger,
) chi.Router {
	l := logger.With().Str("component", "admin_api").Logger()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(&l), Recover(&l))

	r.Get("/health", healthHandler(health, &l))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(APIKey(apiKey, &l), Timeout(2*time.Minute))
		apiv1.RegisterAPIV1(r, apiv1.NewServer(conv, policy, maxQuestions, &l))
	})
	return r
}

// healthHandler reports the assistant backend status. A probe error is still
// answered with a body so the caller sees what was checked.
func healthHandler(hc adapter.HealthChecker, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hc == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		st, err := hc.CheckHealth(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("assistant health check failed")
			if st == nil {
				st = &model.HealthStatus{Status: model.HealthUnhealthy, CheckedAt: time.Now()}
			}
		}
		code := http.StatusOK
		if !st.Healthy() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, st)
	}
}

func NewServer(port int, handler http.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger,
	}
}

func (s *Server) Addr() string { return s.srv.Addr }

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("admin API listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
