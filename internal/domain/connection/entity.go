package connection

import (
	"database/sql"
	"time"

	"sentinal-social/internal/domain"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusAccepted RequestStatus = "ACCEPTED"
	RequestStatusDeclined RequestStatus = "DECLINED"
)

const MaxRequestMessageLength = 500

// Request is a proposal from one user to another to become connected.
// Resolved requests are kept as history and never mutated again.
type Request struct {
	ID         uuid.UUID
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	Message    string
	Status     RequestStatus
	CreatedAt  time.Time
	ResolvedAt sql.NullTime
}

func (r Request) Pair() domain.Pair {
	return domain.NewPair(r.FromUserID, r.ToUserID)
}

func (r Request) IsPending() bool {
	return r.Status == RequestStatusPending
}

func (r Request) Involves(userID uuid.UUID) bool {
	return r.FromUserID == userID || r.ToUserID == userID
}

// Connection is the result of an accepted request. ThreadID is invalid while
// direct thread provisioning is pending retry.
type Connection struct {
	RequestID   uuid.UUID
	FromUserID  uuid.UUID
	ToUserID    uuid.UUID
	ConnectedAt time.Time
	ThreadID    uuid.NullUUID
}
