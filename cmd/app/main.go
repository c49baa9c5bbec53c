// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"assistant-chat/internal/config"
	"assistant-chat/internal/domain/ports/repository"
	"assistant-chat/internal/infra/adapters/assistant"
	"assistant-chat/internal/infra/adapters/console"
	"assistant-chat/internal/infra/api"
	"assistant-chat/internal/infra/auth"
	"assistant-chat/internal/infra/i18n"
	"assistant-chat/internal/infra/logging"
	"assistant-chat/internal/infra/metrics"
	red "assistant-chat/internal/infra/redis"
	"assistant-chat/internal/infra/scheduler"
	"assistant-chat/internal/infra/security"
	"assistant-chat/internal/infra/tokens"
	"assistant-chat/internal/infra/worker"
	"assistant-chat/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	headless := flag.Bool("headless", false, "serve the admin API only, without the console")
	reset := flag.Bool("reset", false, "discard the saved conversation before starting")
	cfg, err := config.FromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	transportName := "http"
	if cfg.Assistant.UseMock {
		transportName = "mock"
	}
	metrics.SetBuildInfo(version, commit, transportName)

	// ---- Snapshot persistence ----
	snapshots, closeSnapshots := buildSnapshots(ctx, cfg, *reset, logger)
	defer closeSnapshots()

	// ---- Assistant transport ----
	transport, health := assistant.New(cfg, logger)
	logger.Info().Str("transport", transportName).Str("endpoint", transport.Endpoint()).Msg("assistant transport ready")
	if cfg.Assistant.HealthInterval >= 0 {
		monitor := scheduler.NewHealthMonitor(cfg.Assistant.HealthInterval, health, logger)
		monitor.Start(ctx)
		defer monitor.Stop()
	}

	// ---- Auth ----
	session := auth.NewSession(logger)
	authClient := auth.NewClient(
		cfg.Assistant.APIURL,
		cfg.Auth.LoginPath,
		cfg.Auth.GoogleLoginPath,
		cfg.Auth.AppID,
		cfg.Auth.DevLogin || cfg.Runtime.Dev,
		session,
		logger,
	)

	// ---- Conversation ----
	classifier := usecase.NewErrorClassifier(cfg.App.Environment, cfg.IsDevelopment(), "assistant-chat/"+version, nil)
	estimator := tokens.NewEstimator(cfg.Tokens.Estimate, cfg.Tokens.Encoding, logger)
	store := usecase.NewConversationStore(
		transport,
		session,
		snapshots,
		classifier,
		estimator,
		cfg.Assistant.MaxChatHistory,
		cfg.Assistant.Timeout,
		logger,
	)
	store.Restore(ctx)
	session.OnLogout(store.ClearHistory)
	policy := usecase.NewAttachmentPolicy(cfg.Assistant.Uploads)

	// ---- Admin API ----
	var adminSrv *api.Server
	if cfg.Admin.Port > 0 {
		router := api.NewRouter(store, policy, cfg.Assistant.MaxChatHistory, health, nil, cfg.Admin.APIKey, logger)
		adminSrv = api.NewServer(cfg.Admin.Port, router, logger)
		go func() {
			if err := adminSrv.Start(); err != nil {
				logger.Error().Err(err).Msg("admin API stopped")
			}
		}()
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigc:
			logger.Info().Msg("shutdown requested")
			cancel()
		case <-ctx.Done():
		}
	}()

	if *headless {
		<-ctx.Done()
	} else {
		tr, err := i18n.New(cfg.App.Language)
		if err != nil {
			logger.Warn().Err(err).Str("language", cfg.App.Language).Msg("unknown language; using English")
			tr = i18n.Default()
		}
		input := console.NewInput(os.Stdin, os.Stdout, cfg.App.HistoryFile, logger)
		repl := console.NewREPL(store, authClient, session, health, cfg.Assistant.MaxChatHistory,
			cfg.App.AssistantName, tr, input, os.Stdout, logger)
		if err := repl.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("console stopped")
		}
		cancel()
	}

	if adminSrv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("admin API shutdown")
		}
	}
}

// buildSnapshots returns the asynchronous snapshot store backed by Redis, or
// by process memory when no Redis URL is configured or Redis is unreachable.
// With reset the stored conversation is dropped first.
func buildSnapshots(ctx context.Context, cfg *config.Config, reset bool, logger *zerolog.Logger) (repository.SnapshotStore, func()) {
	var client red.RedisClient
	if cfg.Redis.URL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		rc, err := red.NewClient(pingCtx, &cfg.Redis)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("redis unreachable; conversation will not survive restarts")
		} else {
			client = rc
		}
	}
	if client == nil {
		client = red.NewMemoryClient()
	}

	var cipher red.Cipher
	if cfg.Security.EncryptionKey != "" {
		enc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption")
		}
		cipher = enc
	}

	cache := red.NewSnapshotCache(client, cfg.Redis.Key, cfg.Redis.TTL, cipher, logger)
	if reset {
		if err := cache.Clear(ctx); err != nil {
			logger.Warn().Err(err).Msg("saved conversation not cleared")
		} else {
			logger.Info().Msg("saved conversation cleared")
		}
	}
	async := worker.NewAsyncSnapshotStore(cache, logger)
	async.Start(ctx)
	return async, func() {
		async.Stop()
		_ = client.Close()
	}
}
