package repository

import (
	"context"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/connection"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/domain/thread"

	"github.com/google/uuid"
)

// RelationshipRepository stores at most one record per canonical pair.
// Get returns ErrNotFound when no record exists.
type RelationshipRepository interface {
	Get(ctx context.Context, pair domain.Pair) (relationship.Relationship, error)
	Upsert(ctx context.Context, r relationship.Relationship) error
	Delete(ctx context.Context, pair domain.Pair) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]relationship.Relationship, error)
}

// ConnectionRequestRepository enforces one pending request per unordered pair:
// Create fails with ErrDuplicateRequest when one already exists.
type ConnectionRequestRepository interface {
	Create(ctx context.Context, r *connection.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (connection.Request, error)
	FindPending(ctx context.Context, pair domain.Pair) (connection.Request, error)
	// Resolve moves a pending request to status. It fails with
	// ErrAlreadyResolved when the request is no longer pending.
	Resolve(ctx context.Context, id uuid.UUID, status connection.RequestStatus, at time.Time) (connection.Request, error)
	ListPendingTo(ctx context.Context, userID uuid.UUID) ([]connection.Request, error)
	ListPendingFrom(ctx context.Context, userID uuid.UUID) ([]connection.Request, error)
}

type ThreadRepository interface {
	Create(ctx context.Context, t *thread.Thread) error
	// GetOrCreateDirect returns the direct thread for the candidate's pair,
	// storing the candidate only if none exists. created reports which happened.
	GetOrCreateDirect(ctx context.Context, candidate thread.Thread) (t thread.Thread, created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (thread.Thread, error)
	GetDirect(ctx context.Context, pair domain.Pair) (thread.Thread, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]thread.Thread, error)
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error
}

type MessageRepository interface {
	// Append assigns the next thread sequence, clamps CreatedAt so it never
	// goes backwards, and records the sender as having read the message.
	Append(ctx context.Context, m *message.Message) error
	ListByThread(ctx context.Context, threadID uuid.UUID) ([]message.Message, error)
	GetLatest(ctx context.Context, threadID uuid.UUID) (message.Message, error)
	LatestSequence(ctx context.Context, threadID uuid.UUID) (int64, error)
	// MarkRead adds userID to ReadBy for messages with Sequence <= upTo and
	// returns how many messages changed.
	MarkRead(ctx context.Context, threadID, userID uuid.UUID, upTo int64, at time.Time) (int, error)
	CountUnread(ctx context.Context, threadID, userID uuid.UUID) (int, error)
}

type ProvisioningRepository interface {
	Enqueue(ctx context.Context, p thread.PendingDirect) error
	GetDue(ctx context.Context, now time.Time, limit int) ([]thread.PendingDirect, error)
	Get(ctx context.Context, pair domain.Pair) (thread.PendingDirect, error)
	Complete(ctx context.Context, pair domain.Pair) error
	MarkFailed(ctx context.Context, pair domain.Pair, nextAttemptAt time.Time, errMsg string) error
}

// Store groups the repositories behind one unit of work. Atomic runs fn with
// a Store whose writes commit together or not at all; calling Atomic on that
// Store again runs fn inline.
type Store interface {
	Relationships() RelationshipRepository
	Requests() ConnectionRequestRepository
	Threads() ThreadRepository
	Messages() MessageRepository
	Provisioning() ProvisioningRepository
	Atomic(ctx context.Context, fn func(Store) error) error
}
