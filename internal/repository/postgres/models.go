package postgres

import (
	"database/sql"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/connection"
	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/domain/thread"

	"github.com/google/uuid"
)

type relationshipRow struct {
	UserLow   uuid.UUID     `gorm:"type:uuid;primaryKey"`
	UserHigh  uuid.UUID     `gorm:"type:uuid;primaryKey;index"`
	Status    string        `gorm:"type:varchar(16);not null"`
	BlockedBy uuid.NullUUID `gorm:"type:uuid"`
	UpdatedAt time.Time     `gorm:"not null"`
}

func (relationshipRow) TableName() string { return "relationships" }

func newRelationshipRow(r relationship.Relationship) relationshipRow {
	return relationshipRow{
		UserLow:   r.Pair.Low,
		UserHigh:  r.Pair.High,
		Status:    string(r.Status),
		BlockedBy: r.BlockedBy,
		UpdatedAt: r.UpdatedAt,
	}
}

func (row relationshipRow) toDomain() relationship.Relationship {
	return relationship.Relationship{
		Pair:      domain.Pair{Low: row.UserLow, High: row.UserHigh},
		Status:    relationship.Status(row.Status),
		BlockedBy: row.BlockedBy,
		UpdatedAt: row.UpdatedAt,
	}
}

const pendingPairIndex = "idx_connection_requests_pending_pair"

type requestRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	FromUserID uuid.UUID `gorm:"type:uuid;not null;index"`
	ToUserID   uuid.UUID `gorm:"type:uuid;not null;index"`
	PairKey    string    `gorm:"type:varchar(80);not null;index:idx_connection_requests_pending_pair,unique,where:status = 'PENDING'"`
	Message    string    `gorm:"type:text"`
	Status     string    `gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time `gorm:"not null"`
	ResolvedAt sql.NullTime
}

func (requestRow) TableName() string { return "connection_requests" }

func newRequestRow(r connection.Request) requestRow {
	return requestRow{
		ID:         r.ID,
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		PairKey:    r.Pair().Key(),
		Message:    r.Message,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		ResolvedAt: r.ResolvedAt,
	}
}

func (row requestRow) toDomain() connection.Request {
	return connection.Request{
		ID:         row.ID,
		FromUserID: row.FromUserID,
		ToUserID:   row.ToUserID,
		Message:    row.Message,
		Status:     connection.RequestStatus(row.Status),
		CreatedAt:  row.CreatedAt,
		ResolvedAt: row.ResolvedAt,
	}
}

type threadRow struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"type:varchar(255)"`
	IsGroup       bool      `gorm:"not null"`
	DirectKey     *string   `gorm:"type:varchar(80);uniqueIndex"`
	LastSequence  int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null"`
	LastMessageAt sql.NullTime
}

func (threadRow) TableName() string { return "threads" }

type participantRow struct {
	ThreadID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Position int       `gorm:"not null"`
}

func (participantRow) TableName() string { return "thread_participants" }

func newThreadRow(t thread.Thread) threadRow {
	row := threadRow{
		ID:            t.ID,
		Name:          t.Name,
		IsGroup:       t.IsGroup,
		CreatedAt:     t.CreatedAt,
		LastMessageAt: t.LastMessageAt,
	}
	if pair, ok := t.DirectPair(); ok {
		key := pair.Key()
		row.DirectKey = &key
	}
	return row
}

func (row threadRow) toDomain(participants []uuid.UUID) thread.Thread {
	return thread.Thread{
		ID:             row.ID,
		Name:           row.Name,
		IsGroup:        row.IsGroup,
		ParticipantIDs: participants,
		CreatedAt:      row.CreatedAt,
		LastMessageAt:  row.LastMessageAt,
	}
}

type messageRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_messages_thread_sequence,priority:1"`
	Sequence  int64     `gorm:"not null;uniqueIndex:idx_messages_thread_sequence,priority:2"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (messageRow) TableName() string { return "messages" }

// receiptRow marks a message as read by a user. Thread and sequence are
// copied from the message so range updates and unread counts stay on one table.
type receiptRow struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadID  uuid.UUID `gorm:"type:uuid;not null;index:idx_message_receipts_thread_user,priority:1"`
	Sequence  int64     `gorm:"not null"`
	ReadAt    time.Time `gorm:"not null"`
}

func (receiptRow) TableName() string { return "message_receipts" }

type provisionRow struct {
	PairKey       string    `gorm:"type:varchar(80);primaryKey"`
	UserLow       uuid.UUID `gorm:"type:uuid;not null"`
	UserHigh      uuid.UUID `gorm:"type:uuid;not null"`
	Attempts      int       `gorm:"not null;default:0"`
	LastError     string    `gorm:"type:text"`
	NextAttemptAt time.Time `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (provisionRow) TableName() string { return "direct_thread_provisioning" }

func newProvisionRow(p thread.PendingDirect) provisionRow {
	return provisionRow{
		PairKey:       p.Pair.Key(),
		UserLow:       p.Pair.Low,
		UserHigh:      p.Pair.High,
		Attempts:      p.Attempts,
		LastError:     p.LastError,
		NextAttemptAt: p.NextAttemptAt,
		CreatedAt:     p.CreatedAt,
	}
}

func (row provisionRow) toDomain() thread.PendingDirect {
	return thread.PendingDirect{
		Pair:          domain.Pair{Low: row.UserLow, High: row.UserHigh},
		Attempts:      row.Attempts,
		LastError:     row.LastError,
		NextAttemptAt: row.NextAttemptAt,
		CreatedAt:     row.CreatedAt,
	}
}
