// Package memory is an in-process repository.Store. A single mutex guards all
// collections; Atomic holds it for the whole unit of work and undoes recorded
// writes when fn fails.
package memory

import (
	"context"
	"sync"

	"sentinal-social/internal/domain/connection"
	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/domain/thread"
	"sentinal-social/internal/repository"

	"github.com/google/uuid"
)

type database struct {
	mu sync.Mutex

	relationships map[string]relationship.Relationship

	requests      map[uuid.UUID]connection.Request
	pendingByPair map[string]uuid.UUID

	threads       map[uuid.UUID]thread.Thread
	directByPair  map[string]uuid.UUID
	threadsByUser map[uuid.UUID]map[uuid.UUID]struct{}

	messages map[uuid.UUID][]*messageRecord

	provisioning map[string]thread.PendingDirect
}

type journal struct {
	undo []func()
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

type Store struct {
	db *database
	tx *journal
}

func NewStore() *Store {
	return &Store{db: &database{
		relationships: make(map[string]relationship.Relationship),
		requests:      make(map[uuid.UUID]connection.Request),
		pendingByPair: make(map[string]uuid.UUID),
		threads:       make(map[uuid.UUID]thread.Thread),
		directByPair:  make(map[string]uuid.UUID),
		threadsByUser: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		messages:      make(map[uuid.UUID][]*messageRecord),
		provisioning:  make(map[string]thread.PendingDirect),
	}}
}

func (s *Store) Relationships() repository.RelationshipRepository {
	return relationshipRepository{s: s}
}

func (s *Store) Requests() repository.ConnectionRequestRepository {
	return requestRepository{s: s}
}

func (s *Store) Threads() repository.ThreadRepository {
	return threadRepository{s: s}
}

func (s *Store) Messages() repository.MessageRepository {
	return messageRepository{s: s}
}

func (s *Store) Provisioning() repository.ProvisioningRepository {
	return provisioningRepository{s: s}
}

func (s *Store) Atomic(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	tx := &Store{db: s.db, tx: &journal{}}
	if err := fn(tx); err != nil {
		tx.tx.rollback()
		return err
	}
	return nil
}

// lock takes the store mutex unless the caller already holds it through Atomic.
func (s *Store) lock() func() {
	if s.tx != nil {
		return func() {}
	}
	s.db.mu.Lock()
	return s.db.mu.Unlock
}

// onRollback registers an undo step; outside Atomic writes are final.
func (s *Store) onRollback(undo func()) {
	if s.tx != nil {
		s.tx.undo = append(s.tx.undo, undo)
	}
}
