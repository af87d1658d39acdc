package history

import (
	"time"

	"github.com/comigor/chatsession-go/internal/chat"
)

// Session status values stored in the sessions table.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// Session is the persisted header of a conversation. Position, Level and
// CompanyType are empty for assistant sessions.
type Session struct {
	ID          string     `db:"id" json:"id"`
	Kind        string     `db:"kind" json:"kind"`
	Status      string     `db:"status" json:"status"`
	Position    string     `db:"position" json:"position,omitempty"`
	Level       string     `db:"level" json:"level,omitempty"`
	CompanyType string     `db:"company_type" json:"company_type,omitempty"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	EndedAt     *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}

// record is one row of the messages table.
type record struct {
	Seq       int64     `db:"seq"`
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

func (r record) message() chat.Message {
	return chat.Message{
		ID:        r.ID,
		Role:      chat.Role(r.Role),
		Content:   r.Content,
		Timestamp: r.CreatedAt,
	}
}
