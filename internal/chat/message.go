package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

// Role tags who authored a turn.
type Role string

const (
	RoleUser      Role = openai.ChatMessageRoleUser
	RoleAssistant Role = openai.ChatMessageRoleAssistant
)

// Message is one conversational turn. All fields are fixed at creation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a turn with a fresh id and creation time.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: now(),
	}
}

var (
	clockMu sync.Mutex
	lastTS  time.Time
)

// now returns strictly increasing wall-clock times so that two messages
// created back to back never share a timestamp.
func now() time.Time {
	clockMu.Lock()
	defer clockMu.Unlock()

	t := time.Now().Round(0)
	if !t.After(lastTS) {
		t = lastTS.Add(time.Nanosecond)
	}
	lastTS = t
	return t
}

// History is an append-only, chronologically ordered list of turns.
type History []Message

// Append returns a new History with msgs added. The receiver's backing
// array is never written, so histories handed out earlier stay intact.
func (h History) Append(msgs ...Message) History {
	out := make(History, len(h), len(h)+len(msgs))
	copy(out, h)
	return append(out, msgs...)
}

// Last returns the most recent turn.
func (h History) Last() (Message, bool) {
	if len(h) == 0 {
		return Message{}, false
	}
	return h[len(h)-1], true
}

// Wire projects the history onto the completion request format, dropping
// the local-only id and timestamp.
func (h History) Wire() []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(h))
	for i, m := range h {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// Count returns how many turns have the given role.
func (h History) Count(role Role) int {
	n := 0
	for _, m := range h {
		if m.Role == role {
			n++
		}
	}
	return n
}
