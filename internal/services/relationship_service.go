package services

import (
	"context"
	"errors"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/repository"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

// RelationshipService is the single canonical source of pairwise status.
// It knows nothing about requests or threads.
type RelationshipService struct {
	store repository.Store
	clock func() time.Time
}

func NewRelationshipService(store repository.Store) *RelationshipService {
	return &RelationshipService{store: store, clock: time.Now}
}

// WithStore returns a copy bound to st, typically the Store handed to an
// Atomic callback.
func (s *RelationshipService) WithStore(st repository.Store) *RelationshipService {
	cp := *s
	cp.store = st
	return &cp
}

// Get returns the status for the pair, StatusNone when no record exists.
func (s *RelationshipService) Get(ctx context.Context, a, b uuid.UUID) (relationship.Status, error) {
	rel, err := s.GetRecord(ctx, a, b)
	if err != nil {
		return "", err
	}
	return rel.Status, nil
}

// GetRecord returns the stored record, or a StatusNone record for the pair.
func (s *RelationshipService) GetRecord(ctx context.Context, a, b uuid.UUID) (relationship.Relationship, error) {
	pair := domain.NewPair(a, b)
	rel, err := s.store.Relationships().Get(ctx, pair)
	if errors.Is(err, sentinal_errors.ErrNotFound) {
		return relationship.Relationship{Pair: pair, Status: relationship.StatusNone}, nil
	}
	if err != nil {
		return relationship.Relationship{}, err
	}
	return rel, nil
}

// Set upserts the pair record. StatusNone removes it. StatusBlocked is
// rejected: blocking goes through ConnectionRequestService.Block, which also
// declines the pending request.
func (s *RelationshipService) Set(ctx context.Context, a, b uuid.UUID, status relationship.Status) error {
	if status == relationship.StatusBlocked {
		return sentinal_errors.Validation("use Block to block a user")
	}
	return s.set(ctx, a, b, status)
}

// block records blocker as the blocking user of the pair.
func (s *RelationshipService) block(ctx context.Context, blocker, blocked uuid.UUID) error {
	return s.set(ctx, blocker, blocked, relationship.StatusBlocked)
}

func (s *RelationshipService) set(ctx context.Context, a, b uuid.UUID, status relationship.Status) error {
	if a == uuid.Nil || b == uuid.Nil {
		return sentinal_errors.Validation("user ids are required")
	}
	if a == b {
		return sentinal_errors.Validation("relationship needs two distinct users")
	}
	if !status.Valid() {
		return sentinal_errors.Validation("unknown relationship status %q", status)
	}

	pair := domain.NewPair(a, b)
	if status == relationship.StatusNone {
		return s.store.Relationships().Delete(ctx, pair)
	}
	rel := relationship.Relationship{
		Pair:      pair,
		Status:    status,
		UpdatedAt: s.clock(),
	}
	if status == relationship.StatusBlocked {
		rel.BlockedBy = uuid.NullUUID{UUID: a, Valid: true}
	}
	return s.store.Relationships().Upsert(ctx, rel)
}

// ListForUser returns every stored record involving userID.
func (s *RelationshipService) ListForUser(ctx context.Context, userID uuid.UUID) ([]relationship.Relationship, error) {
	return s.store.Relationships().ListForUser(ctx, userID)
}
