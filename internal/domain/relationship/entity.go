package relationship

import (
	"time"

	"sentinal-social/internal/domain"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNone      Status = "NONE"
	StatusPending   Status = "PENDING"
	StatusConnected Status = "CONNECTED"
	StatusBlocked   Status = "BLOCKED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusPending, StatusConnected, StatusBlocked:
		return true
	}
	return false
}

// Relationship is the single canonical record for a pair. A missing record
// means StatusNone.
type Relationship struct {
	Pair      domain.Pair
	Status    Status
	BlockedBy uuid.NullUUID
	UpdatedAt time.Time
}

func (r Relationship) Other(userID uuid.UUID) uuid.UUID {
	return r.Pair.Other(userID)
}
