package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/comigor/chatsession-go/internal/chat"
	"github.com/comigor/chatsession-go/internal/interview"
)

// Kind selects what answers the user.
type Kind string

const (
	// KindAssistant forwards every utterance to the remote completion endpoint.
	KindAssistant Kind = "assistant"
	// KindInterview runs the scripted interviewer locally.
	KindInterview Kind = "interview"
)

// Lifecycle states.
const (
	StatusActive        = "active"
	StatusAwaitingReply = "awaiting_reply"
	StatusClosed        = "closed"
)

// Lifecycle triggers.
const (
	triggerSubmit  = "Submit"
	triggerReplied = "Replied"
	triggerFinish  = "Finish"
	triggerEnd     = "End"
)

// Responder produces the assistant turn for a user utterance. Both
// *chat.Session and *interview.Interviewer satisfy it.
type Responder interface {
	Send(ctx context.Context, h chat.History, userText string) (chat.History, string)
}

// newLifecycle builds the per-session state machine:
//
//	active --Submit--> awaiting_reply --Replied--> active
//	active --End--> closed
//	awaiting_reply --Finish--> closed
func newLifecycle() *stateless.StateMachine {
	sm := stateless.NewStateMachine(StatusActive)

	sm.Configure(StatusActive).
		Permit(triggerSubmit, StatusAwaitingReply).
		Permit(triggerEnd, StatusClosed)

	sm.Configure(StatusAwaitingReply).
		Permit(triggerReplied, StatusActive).
		Permit(triggerFinish, StatusClosed)

	sm.Configure(StatusClosed)

	return sm
}

// State is the explicit per-session state that the UI layer holds a handle
// to. mu guards history, endedAt and every lifecycle transition; it is not
// held while a responder is working.
type State struct {
	ID        string
	Kind      Kind
	StartedAt time.Time

	responder Responder
	interview *interview.Interviewer

	mu        sync.Mutex
	history   chat.History
	endedAt   time.Time
	lifecycle *stateless.StateMachine
}

// fire must be called with mu held. Triggers that the current state does
// not permit are reported as ErrBusy or ErrClosed.
func (s *State) fire(trigger string) error {
	if err := s.lifecycle.Fire(trigger); err != nil {
		switch s.lifecycle.MustState() {
		case StatusAwaitingReply:
			return ErrBusy
		case StatusClosed:
			return ErrClosed
		}
		return fmt.Errorf("session %s: %w", s.ID, err)
	}
	return nil
}

// status must be called with mu held.
func (s *State) status() string {
	return fmt.Sprint(s.lifecycle.MustState())
}

// Snapshot is a point-in-time copy of a session, safe to serialize.
type Snapshot struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	Status    string           `json:"status"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
	Setup     *interview.Setup `json:"setup,omitempty"`
	Messages  chat.History     `json:"messages"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot must be called with mu held.
func (s *State) snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.ID,
		Kind:      s.Kind,
		Status:    s.status(),
		StartedAt: s.StartedAt,
		Messages:  chat.History(nil).Append(s.history...),
	}
	if !s.endedAt.IsZero() {
		ended := s.endedAt
		snap.EndedAt = &ended
	}
	if s.interview != nil {
		setup := s.interview.Setup()
		snap.Setup = &setup
	}
	return snap
}
