// Package chat turns a user utterance plus prior history into an assistant
// reply via a remote completion endpoint. Network outcomes never reach the
// caller as errors: failures become fixed fallback replies so the history
// keeps alternating user, assistant, user, assistant.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/comigor/chatsession-go/internal/config"
	"github.com/comigor/chatsession-go/internal/llm"
	"github.com/comigor/chatsession-go/internal/logger"
)

// Fallback replies appended in place of a real completion.
const (
	FallbackNoAnswer     = "Sorry, no answer could be produced."
	FallbackRequestError = "Sorry, a request error occurred while processing your message."
)

// Completion outcomes reported to an Observer.
const (
	OutcomeOK           = "ok"
	OutcomeNoAnswer     = "no_answer"
	OutcomeRequestError = "request_error"
)

// Observer receives one call per completion round-trip.
type Observer interface {
	ObserveCompletion(outcome string, elapsed time.Duration)
}

// Option customises a Session.
type Option func(*Session)

// WithObserver reports every round-trip outcome to o.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// Session holds immutable endpoint configuration only; all conversation
// state lives in the History values passed through Send. It is safe for
// concurrent use.
type Session struct {
	client   llm.Client
	cfg      config.LLMConfig
	observer Observer
}

// New creates a chat session bound to client and the model parameters in cfg.
func New(client llm.Client, cfg config.LLMConfig, opts ...Option) *Session {
	s := &Session{client: client, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send appends a user turn for userText and an assistant turn for the
// endpoint's reply, returning the new history and the reply text.
//
// Blank input is a no-op: h is returned as-is with an empty reply and no
// request is made. Concurrent calls on the same history are not ordered
// against each other.
func (s *Session) Send(ctx context.Context, h History, userText string) (History, string) {
	text := strings.TrimSpace(userText)
	if text == "" {
		logger.L.Debug("ignoring blank utterance")
		return h, ""
	}

	h = h.Append(NewMessage(RoleUser, text))
	reply := s.complete(ctx, h)
	h = h.Append(NewMessage(RoleAssistant, reply))

	return h, reply
}

func (s *Session) complete(ctx context.Context, h History) string {
	start := time.Now()

	resp, err := s.client.CreateChatCompletion(ctx, llm.NewRequest(s.cfg, h.Wire()))
	if err != nil {
		logger.L.Error("completion request failed", "error", err, "model", s.cfg.Model, "turns", len(h))
		s.observe(OutcomeRequestError, start)
		return FallbackRequestError
	}

	content, ok := llm.FirstContent(resp)
	if !ok {
		logger.L.Warn("completion returned no content", "model", s.cfg.Model, "choices", len(resp.Choices))
		s.observe(OutcomeNoAnswer, start)
		return FallbackNoAnswer
	}

	logger.L.Debug("completion received", "model", s.cfg.Model, "chars", len(content))
	s.observe(OutcomeOK, start)
	return content
}

func (s *Session) observe(outcome string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveCompletion(outcome, time.Since(start))
	}
}
