// Package interview implements a scripted mock interviewer: a welcome, a
// fixed question table asked in random order without repeats, a canned
// acknowledgement for each answer, and a closing line once enough
// questions were asked.
package interview

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/comigor/chatsession-go/internal/chat"
	"github.com/comigor/chatsession-go/internal/logger"
)

// DefaultMaxQuestions is how many table questions are asked before closing.
const DefaultMaxQuestions = 8

var (
	ErrUnknownPosition = errors.New("unknown position")
	ErrUnknownLevel    = errors.New("unknown level")
)

// Setup selects what the interview is for. CompanyType is free text
// ("startup", "enterprise", ...) kept with the transcript.
type Setup struct {
	Position    Position `json:"position"`
	Level       Level    `json:"level"`
	CompanyType string   `json:"company_type,omitempty"`
}

// Validate rejects positions and levels outside the catalog.
func (s Setup) Validate() error {
	if _, ok := positionNames[s.Position]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPosition, s.Position)
	}
	if _, ok := levelNames[s.Level]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, s.Level)
	}
	return nil
}

// Title is the human readable position, e.g. "Senior Backend Developer".
func (s Setup) Title() string {
	return levelNames[s.Level] + " " + positionNames[s.Position]
}

type Option func(*Interviewer)

// WithRand fixes the randomness source, for reproducible runs.
func WithRand(r *rand.Rand) Option {
	return func(iv *Interviewer) { iv.rnd = r }
}

// WithMaxQuestions overrides DefaultMaxQuestions. Values below 1 are ignored.
func WithMaxQuestions(n int) Option {
	return func(iv *Interviewer) {
		if n > 0 {
			iv.maxQuestions = n
		}
	}
}

// WithClock overrides time.Now for the report.
func WithClock(now func() time.Time) Option {
	return func(iv *Interviewer) { iv.now = now }
}

// Interviewer is the per-session script state. Its Send method has the
// same shape as chat.Session.Send so callers can drive either.
type Interviewer struct {
	mu           sync.Mutex
	setup        Setup
	rnd          *rand.Rand
	deck         *Deck
	maxQuestions int
	asked        int
	done         bool
	startedAt    time.Time
	now          func() time.Time
}

// New validates setup and shuffles a fresh question deck.
func New(setup Setup, opts ...Option) (*Interviewer, error) {
	if err := setup.Validate(); err != nil {
		return nil, err
	}
	setup.CompanyType = strings.TrimSpace(setup.CompanyType)

	iv := &Interviewer{
		setup:        setup,
		maxQuestions: DefaultMaxQuestions,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(iv)
	}
	if iv.rnd == nil {
		iv.rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	iv.deck = NewDeck(questions[:], iv.rnd)
	iv.startedAt = iv.now()
	return iv, nil
}

// Setup returns what the interview was created for.
func (iv *Interviewer) Setup() Setup { return iv.setup }

// Welcome is the greeting that opens every interview.
func (iv *Interviewer) Welcome() string {
	return fmt.Sprintf("Welcome! My name is %s, I am a Senior HR Manager. Today we are interviewing for the %s position. "+
		"Let's start by getting to know each other. Tell me a little about yourself and your work experience.",
		interviewerName, iv.setup.Title())
}

// Open appends the opening assistant turn: the welcome followed by the
// first question.
func (iv *Interviewer) Open(h chat.History) (chat.History, string) {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	text := iv.Welcome()
	if q, ok := iv.nextQuestion(); ok {
		text += "\n\n" + q.Text
	}
	return h.Append(chat.NewMessage(chat.RoleAssistant, text)), text
}

// Send records the candidate's answer and replies with an acknowledgement
// plus either the next question or the closing line. Blank input is a
// no-op. The context is unused; the script never blocks.
func (iv *Interviewer) Send(_ context.Context, h chat.History, userText string) (chat.History, string) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return h, ""
	}

	iv.mu.Lock()
	defer iv.mu.Unlock()

	h = h.Append(chat.NewMessage(chat.RoleUser, text))

	var reply string
	if iv.done {
		reply = closingText
	} else {
		reply = acknowledgements[iv.rnd.IntN(len(acknowledgements))]
		if q, ok := iv.nextQuestion(); ok {
			reply += "\n\n" + q.Text
		} else {
			reply += "\n\n" + closingText
			iv.done = true
			logger.L.Debug("interview script finished", "asked", iv.asked)
		}
	}

	h = h.Append(chat.NewMessage(chat.RoleAssistant, reply))
	return h, reply
}

// nextQuestion must be called with mu held.
func (iv *Interviewer) nextQuestion() (Question, bool) {
	if iv.asked >= iv.maxQuestions {
		return Question{}, false
	}
	q, ok := iv.deck.Next()
	if ok {
		iv.asked++
	}
	return q, ok
}

// Done reports whether the closing line has been delivered.
func (iv *Interviewer) Done() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.done
}

// Asked returns how many table questions were asked so far.
func (iv *Interviewer) Asked() int {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.asked
}

// Scores shown on every report. The script does not grade answers.
const (
	OverallScore       = "7.5/10"
	CommunicationScore = "8/10"
)

// Report is the end-of-interview summary.
type Report struct {
	Position           Position  `json:"position"`
	Level              Level     `json:"level"`
	CompanyType        string    `json:"company_type,omitempty"`
	Title              string    `json:"title"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at"`
	DurationMinutes    int       `json:"duration_minutes"`
	Answers            int       `json:"answers"`
	QuestionsAsked     int       `json:"questions_asked"`
	OverallScore       string    `json:"overall_score"`
	CommunicationScore string    `json:"communication_score"`
	Recommendations    []string  `json:"recommendations"`
}

// Report summarises the interview as of now.
func (iv *Interviewer) Report(h chat.History) Report {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	ended := iv.now()
	recs := make([]string, len(recommendations))
	copy(recs, recommendations)

	return Report{
		Position:           iv.setup.Position,
		Level:              iv.setup.Level,
		CompanyType:        iv.setup.CompanyType,
		Title:              iv.setup.Title(),
		StartedAt:          iv.startedAt,
		EndedAt:            ended,
		DurationMinutes:    int(math.Round(ended.Sub(iv.startedAt).Minutes())),
		Answers:            h.Count(chat.RoleUser),
		QuestionsAsked:     iv.asked,
		OverallScore:       OverallScore,
		CommunicationScore: CommunicationScore,
		Recommendations:    recs,
	}
}
