package message

import (
	"time"

	"github.com/google/uuid"
)

const MaxContentLength = 4000

// Message is immutable once appended except for growth of ReadBy.
// Within a thread, (CreatedAt, Sequence) is strictly increasing.
type Message struct {
	ID        uuid.UUID
	ThreadID  uuid.UUID
	SenderID  uuid.UUID
	Content   string
	Sequence  int64
	CreatedAt time.Time
	ReadBy    []uuid.UUID
}

func (m Message) IsReadBy(userID uuid.UUID) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// IsUnreadFor reports whether the message counts toward userID's unread total.
func (m Message) IsUnreadFor(userID uuid.UUID) bool {
	return m.SenderID != userID && !m.IsReadBy(userID)
}

// Before orders messages by (CreatedAt, Sequence).
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.Sequence < other.Sequence
}

// Preview returns content truncated to n runes.
func (m Message) Preview(n int) string {
	runes := []rune(m.Content)
	if len(runes) <= n {
		return m.Content
	}
	return string(runes[:n]) + "…"
}
