package thread

import (
	"database/sql"
	"time"

	"sentinal-social/internal/domain"

	"github.com/google/uuid"
)

// Thread is a chat container with a participant set fixed at creation.
type Thread struct {
	ID             uuid.UUID
	Name           string
	IsGroup        bool
	ParticipantIDs []uuid.UUID
	CreatedAt      time.Time
	LastMessageAt  sql.NullTime
}

func (t Thread) HasParticipant(userID uuid.UUID) bool {
	for _, id := range t.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// LastActivityAt is the latest message time, or CreatedAt for an empty thread.
func (t Thread) LastActivityAt() time.Time {
	if t.LastMessageAt.Valid {
		return t.LastMessageAt.Time
	}
	return t.CreatedAt
}

// DirectPair returns the canonical pair for a direct thread.
func (t Thread) DirectPair() (domain.Pair, bool) {
	if t.IsGroup || len(t.ParticipantIDs) != 2 {
		return domain.Pair{}, false
	}
	return domain.NewPair(t.ParticipantIDs[0], t.ParticipantIDs[1]), true
}

func (t Thread) Clone() Thread {
	c := t
	c.ParticipantIDs = append([]uuid.UUID(nil), t.ParticipantIDs...)
	return c
}

// PendingDirect records a connected pair whose direct thread could not be
// provisioned on accept and must be retried.
type PendingDirect struct {
	Pair          domain.Pair
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
}
