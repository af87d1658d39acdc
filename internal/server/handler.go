// Package server exposes session commands over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comigor/chatsession-go/internal/chat"
	"github.com/comigor/chatsession-go/internal/history"
	"github.com/comigor/chatsession-go/internal/logger"
	"github.com/comigor/chatsession-go/internal/session"
)

// Transcripts reads persisted conversations. *history.Store implements it.
type Transcripts interface {
	Sessions(ctx context.Context) ([]history.Session, error)
	Session(ctx context.Context, id string) (history.Session, error)
	List(ctx context.Context, sessionID string) (chat.History, error)
}

// Handler serves the session API.
type Handler struct {
	sessions    *session.Manager
	transcripts Transcripts
}

// New creates a handler. transcripts may be nil, which disables the
// /history routes.
func New(sessions *session.Manager, transcripts Transcripts) *Handler {
	return &Handler{sessions: sessions, transcripts: transcripts}
}

// RegisterRoutes mounts the session routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleStart)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Delete("/", h.handleEnd)
		r.Get("/messages", h.handleTranscript)
		r.Post("/messages", h.handleSubmit)
	})
	if h.transcripts != nil {
		r.Get("/history", h.handleHistoryList)
		r.Get("/history/{sessionID}", h.handleHistory)
	}
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req session.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.sessions.Start(r.Context(), req)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap.Messages)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.sessions.Submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Content)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	sum, err := h.sessions.End(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.transcripts.Sessions(r.Context())
	if err != nil {
		logger.L.Error("history listing failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

// handleHistory returns a stored transcript. A known session with no
// messages yet gets an empty list, not a 404.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, err := h.transcripts.Session(r.Context(), id); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			respondError(w, http.StatusNotFound, session.ErrSessionNotFound.Error())
			return
		}
		logger.L.Error("history lookup failed", "session_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	msgs, err := h.transcripts.List(r.Context(), id)
	if err != nil {
		logger.L.Error("history lookup failed", "session_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if msgs == nil {
		msgs = chat.History{}
	}
	respondJSON(w, http.StatusOK, msgs)
}

func respondSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch session.ErrorClass(err) {
	case "not_found":
		status = http.StatusNotFound
	case "invalid":
		status = http.StatusBadRequest
	case "conflict":
		status = http.StatusConflict
	case "unavailable":
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		logger.L.Error("session command failed", "error", err)
	}
	respondError(w, status, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
