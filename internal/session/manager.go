// Package session consumes the three UI commands (start, submit, end)
// against explicit per-session state. Each session owns its history;
// nothing is shared between sessions.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comigor/chatsession-go/internal/chat"
	"github.com/comigor/chatsession-go/internal/history"
	"github.com/comigor/chatsession-go/internal/interview"
	"github.com/comigor/chatsession-go/internal/logger"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrBlankInput           = errors.New("message is blank")
	ErrBusy                 = errors.New("a reply is still pending")
	ErrClosed               = errors.New("session is closed")
	ErrUnknownKind          = errors.New("unknown session kind")
	ErrAssistantUnavailable = errors.New("assistant is not configured")
)

// Store persists transcripts. *history.Store implements it.
type Store interface {
	SaveSession(ctx context.Context, s history.Session) error
	SaveMessage(ctx context.Context, sessionID string, msg chat.Message) error
}

// Recorder receives command and session-count metrics.
type Recorder interface {
	RecordCommand(command, status string)
	SessionOpened()
	SessionClosed()
}

type nopRecorder struct{}

func (nopRecorder) RecordCommand(string, string) {}
func (nopRecorder) SessionOpened()               {}
func (nopRecorder) SessionClosed()               {}

type Option func(*Manager)

// WithStore persists every session and message to st.
func WithStore(st Store) Option {
	return func(m *Manager) { m.store = st }
}

// WithRecorder reports command outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithInterviewOptions applies opts to every interviewer the manager creates.
func WithInterviewOptions(opts ...interview.Option) Option {
	return func(m *Manager) { m.interviewOpts = append(m.interviewOpts, opts...) }
}

// Manager holds the live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State

	assistant     Responder
	store         Store
	recorder      Recorder
	interviewOpts []interview.Option
}

// NewManager creates a manager whose assistant sessions are answered by
// assistant. assistant may be nil, in which case only interviews can start.
func NewManager(assistant Responder, opts ...Option) *Manager {
	m := &Manager{
		sessions:  make(map[string]*State),
		assistant: assistant,
		store:     history.NewMemory(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartRequest is the startSession command.
type StartRequest struct {
	Kind        Kind               `json:"kind"`
	Position    interview.Position `json:"position,omitempty"`
	Level       interview.Level    `json:"level,omitempty"`
	CompanyType string             `json:"company_type,omitempty"`
}

// Start opens a new session. Interviews begin with the interviewer's
// opening turn already in the history; assistant sessions start empty.
func (m *Manager) Start(ctx context.Context, req StartRequest) (snap Snapshot, err error) {
	defer func() { m.record("start", err) }()

	st := &State{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		StartedAt: time.Now(),
		lifecycle: newLifecycle(),
	}

	switch req.Kind {
	case KindAssistant, "":
		if m.assistant == nil {
			return Snapshot{}, ErrAssistantUnavailable
		}
		st.Kind = KindAssistant
		st.responder = m.assistant
	case KindInterview:
		iv, err := interview.New(interview.Setup{Position: req.Position, Level: req.Level, CompanyType: req.CompanyType}, m.interviewOpts...)
		if err != nil {
			return Snapshot{}, err
		}
		st.interview = iv
		st.responder = iv
		st.history, _ = iv.Open(nil)
	default:
		return Snapshot{}, ErrUnknownKind
	}

	m.mu.Lock()
	m.sessions[st.ID] = st
	m.mu.Unlock()
	m.recorder.SessionOpened()

	m.persistSession(ctx, st, StatusActive, nil)
	m.persistMessages(ctx, st.ID, st.history)

	logger.L.Info("session started", "id", st.ID, "kind", st.Kind)
	return st.Snapshot(), nil
}

// Reply is the result of a submitUtterance command.
type Reply struct {
	Text     string            `json:"reply"`
	Messages chat.History      `json:"messages"`
	Closed   bool              `json:"closed"`
	Report   *interview.Report `json:"report,omitempty"`
}

// Submit sends text to the session's responder and appends both turns.
// Only one submit per session may be in flight; a second one gets ErrBusy
// instead of racing the first. An interview that delivers its closing line
// is closed and forgotten here; the reply carries its report.
func (m *Manager) Submit(ctx context.Context, id, text string) (r Reply, err error) {
	defer func() { m.record("submit", err) }()

	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrBlankInput
	}

	st, err := m.lookup(id)
	if err != nil {
		return Reply{}, err
	}

	st.mu.Lock()
	if err := st.fire(triggerSubmit); err != nil {
		st.mu.Unlock()
		return Reply{}, err
	}
	before := st.history
	st.mu.Unlock()

	updated, reply := st.responder.Send(ctx, before, text)
	added := chat.History(nil).Append(updated[len(before):]...)

	st.mu.Lock()
	st.history = updated
	closed := st.interview != nil && st.interview.Done()
	if closed {
		err = st.fire(triggerFinish)
		st.endedAt = time.Now()
	} else {
		err = st.fire(triggerReplied)
	}
	endedAt := st.endedAt
	st.mu.Unlock()
	if err != nil {
		return Reply{}, err
	}

	m.persistMessages(ctx, st.ID, added)

	r = Reply{Text: reply, Messages: added, Closed: closed}
	if closed {
		m.evict(st.ID)
		m.persistSession(ctx, st, StatusClosed, &endedAt)
		report := st.interview.Report(updated)
		r.Report = &report
		logger.L.Info("interview finished", "id", st.ID, "answers", report.Answers)
	}
	return r, nil
}

// Summary is the result of an endSession command.
type Summary struct {
	Snapshot
	Report *interview.Report `json:"report,omitempty"`
}

// End closes the session and forgets it.
func (m *Manager) End(ctx context.Context, id string) (sum Summary, err error) {
	defer func() { m.record("end", err) }()

	st, err := m.lookup(id)
	if err != nil {
		return Summary{}, err
	}

	st.mu.Lock()
	if st.status() != StatusClosed {
		if err := st.fire(triggerEnd); err != nil {
			st.mu.Unlock()
			return Summary{}, err
		}
		st.endedAt = time.Now()
	}
	sum = Summary{Snapshot: st.snapshot()}
	st.mu.Unlock()

	if st.interview != nil {
		report := st.interview.Report(sum.Messages)
		sum.Report = &report
	}

	m.evict(id)
	m.persistSession(ctx, st, StatusClosed, sum.EndedAt)
	logger.L.Info("session ended", "id", st.ID, "kind", st.Kind, "messages", len(sum.Messages))
	return sum, nil
}

// Get returns a snapshot of a live session.
func (m *Manager) Get(id string) (Snapshot, error) {
	st, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return st.Snapshot(), nil
}

// Active returns how many sessions are live.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

// evict drops a session from the live map. Only the first call for an id
// counts against the active gauge.
func (m *Manager) evict(id string) {
	m.mu.Lock()
	_, live := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if live {
		m.recorder.SessionClosed()
	}
}

// Persistence failures are logged and otherwise ignored: the live session
// stays authoritative.
func (m *Manager) persistSession(ctx context.Context, st *State, status string, ended *time.Time) {
	rec := history.Session{ID: st.ID, Kind: string(st.Kind), Status: status, StartedAt: st.StartedAt, EndedAt: ended}
	if st.interview != nil {
		setup := st.interview.Setup()
		rec.Position = string(setup.Position)
		rec.Level = string(setup.Level)
		rec.CompanyType = setup.CompanyType
	}
	if err := m.store.SaveSession(ctx, rec); err != nil {
		logger.L.Error("failed to persist session", "id", st.ID, "error", err)
	}
}

func (m *Manager) persistMessages(ctx context.Context, id string, msgs chat.History) {
	for _, msg := range msgs {
		if err := m.store.SaveMessage(ctx, id, msg); err != nil {
			logger.L.Error("failed to persist message", "session_id", id, "message_id", msg.ID, "error", err)
		}
	}
}

func (m *Manager) record(command string, err error) {
	m.recorder.RecordCommand(command, ErrorClass(err))
}

// ErrorClass maps a command error onto a short label for metrics and
// transport status codes.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrBlankInput),
		errors.Is(err, ErrUnknownKind),
		errors.Is(err, interview.ErrUnknownPosition),
		errors.Is(err, interview.ErrUnknownLevel):
		return "invalid"
	case errors.Is(err, ErrBusy), errors.Is(err, ErrClosed):
		return "conflict"
	case errors.Is(err, ErrAssistantUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
