package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/comigor/chatsession-go/internal/chat"
	"github.com/comigor/chatsession-go/internal/config"
	"github.com/comigor/chatsession-go/internal/history"
	"github.com/comigor/chatsession-go/internal/interview"
	"github.com/comigor/chatsession-go/internal/llm"
	"github.com/comigor/chatsession-go/internal/logger"
	"github.com/comigor/chatsession-go/internal/metrics"
	"github.com/comigor/chatsession-go/internal/server"
	"github.com/comigor/chatsession-go/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.L.Warn("failed to load .env file", "error", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	m := metrics.New()

	store := history.Open(cfg.History.DBPath)
	defer store.Close()

	// Remote assistant; without a key every call would fall back, so only
	// interviews are offered.
	var assistant session.Responder
	if cfg.LLM.APIKey != "" {
		assistant = chat.New(llm.NewClient(cfg.LLM, nil), cfg.LLM, chat.WithObserver(m))
	} else {
		logger.L.Warn("llm.api_key not set; assistant sessions disabled")
	}

	manager := session.NewManager(assistant,
		session.WithStore(store),
		session.WithRecorder(m),
		session.WithInterviewOptions(interview.WithMaxQuestions(cfg.Interview.MaxQuestions)),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.NewRouter(server.New(manager, store), m.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("graceful shutdown failed", "error", err)
		}
	}()

	// Start server
	logger.L.Info("starting server", "address", srv.Addr, "provider", cfg.LLM.Provider, "base_url", cfg.LLM.BaseURL, "model", cfg.LLM.Model, "persistent_history", store.Persistent())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	logger.L.Info("server stopped")
}
