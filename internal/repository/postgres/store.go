// Package postgres implements repository.Store on gorm. Atomic maps onto a
// database transaction and uniqueness rules are enforced by indexes.
package postgres

import (
	"context"
	"fmt"

	"sentinal-social/internal/repository"

	"gorm.io/gorm"
)

type Store struct {
	db   *gorm.DB
	inTx bool
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Relationships() repository.RelationshipRepository {
	return &relationshipRepository{s: s}
}

func (s *Store) Requests() repository.ConnectionRequestRepository {
	return &requestRepository{s: s}
}

func (s *Store) Threads() repository.ThreadRepository {
	return &threadRepository{s: s}
}

func (s *Store) Messages() repository.MessageRepository {
	return &messageRepository{s: s}
}

func (s *Store) Provisioning() repository.ProvisioningRepository {
	return &provisioningRepository{s: s}
}

func (s *Store) Atomic(ctx context.Context, fn func(repository.Store) error) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

// transaction runs fn on the current transaction, or opens one.
func (s *Store) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.inTx {
		return fn(s.db.WithContext(ctx))
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// Migrate creates or updates every table the store uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&relationshipRow{},
		&requestRow{},
		&threadRow{},
		&participantRow{},
		&messageRow{},
		&receiptRow{},
		&provisionRow{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

// Tables lists the store's tables, dependents first.
var Tables = []string{
	"message_receipts",
	"messages",
	"thread_participants",
	"threads",
	"direct_thread_provisioning",
	"connection_requests",
	"relationships",
}
