package memory

import (
	"context"
	"database/sql"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/thread"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type threadRepository struct {
	s *Store
}

func (r threadRepository) Create(ctx context.Context, t *thread.Thread) error {
	defer r.s.lock()()
	return r.insert(*t)
}

func (r threadRepository) GetOrCreateDirect(ctx context.Context, candidate thread.Thread) (thread.Thread, bool, error) {
	defer r.s.lock()()
	pair, ok := candidate.DirectPair()
	if !ok {
		return thread.Thread{}, false, sentinal_errors.Validation("direct thread needs exactly two participants")
	}
	if id, exists := r.s.db.directByPair[pair.Key()]; exists {
		return r.s.db.threads[id].Clone(), false, nil
	}
	if err := r.insert(candidate); err != nil {
		return thread.Thread{}, false, err
	}
	return candidate.Clone(), true, nil
}

// insert expects the store lock to be held.
func (r threadRepository) insert(t thread.Thread) error {
	if _, exists := r.s.db.threads[t.ID]; exists {
		return &sentinal_errors.Error{Kind: sentinal_errors.KindConflict, Message: "thread id already exists"}
	}
	var directKey string
	if pair, ok := t.DirectPair(); ok {
		directKey = pair.Key()
		if _, exists := r.s.db.directByPair[directKey]; exists {
			return &sentinal_errors.Error{Kind: sentinal_errors.KindConflict, Message: "direct thread already exists"}
		}
		r.s.db.directByPair[directKey] = t.ID
	}
	r.s.db.threads[t.ID] = t.Clone()
	var added []uuid.UUID
	for _, userID := range t.ParticipantIDs {
		set, ok := r.s.db.threadsByUser[userID]
		if !ok {
			set = make(map[uuid.UUID]struct{})
			r.s.db.threadsByUser[userID] = set
		}
		set[t.ID] = struct{}{}
		added = append(added, userID)
	}
	id := t.ID
	r.s.onRollback(func() {
		delete(r.s.db.threads, id)
		if directKey != "" {
			delete(r.s.db.directByPair, directKey)
		}
		for _, userID := range added {
			delete(r.s.db.threadsByUser[userID], id)
		}
	})
	return nil
}

func (r threadRepository) GetByID(ctx context.Context, id uuid.UUID) (thread.Thread, error) {
	defer r.s.lock()()
	t, ok := r.s.db.threads[id]
	if !ok {
		return thread.Thread{}, sentinal_errors.NotFound("thread")
	}
	return t.Clone(), nil
}

func (r threadRepository) GetDirect(ctx context.Context, pair domain.Pair) (thread.Thread, error) {
	defer r.s.lock()()
	id, ok := r.s.db.directByPair[pair.Key()]
	if !ok {
		return thread.Thread{}, sentinal_errors.NotFound("direct thread")
	}
	return r.s.db.threads[id].Clone(), nil
}

func (r threadRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]thread.Thread, error) {
	defer r.s.lock()()
	ids := r.s.db.threadsByUser[userID]
	out := make([]thread.Thread, 0, len(ids))
	for id := range ids {
		out = append(out, r.s.db.threads[id].Clone())
	}
	return out, nil
}

func (r threadRepository) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer r.s.lock()()
	t, ok := r.s.db.threads[id]
	if !ok {
		return sentinal_errors.NotFound("thread")
	}
	if t.LastMessageAt.Valid && !at.After(t.LastMessageAt.Time) {
		return nil
	}
	prev := t.LastMessageAt
	t.LastMessageAt = sql.NullTime{Time: at, Valid: true}
	r.s.db.threads[id] = t
	r.s.onRollback(func() {
		restored := r.s.db.threads[id]
		restored.LastMessageAt = prev
		r.s.db.threads[id] = restored
	})
	return nil
}
