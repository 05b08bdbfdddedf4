package memory

import (
	"context"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/relationship"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type relationshipRepository struct {
	s *Store
}

func (r relationshipRepository) Get(ctx context.Context, pair domain.Pair) (relationship.Relationship, error) {
	defer r.s.lock()()
	rel, ok := r.s.db.relationships[pair.Key()]
	if !ok {
		return relationship.Relationship{}, sentinal_errors.NotFound("relationship")
	}
	return rel, nil
}

func (r relationshipRepository) Upsert(ctx context.Context, rel relationship.Relationship) error {
	defer r.s.lock()()
	key := rel.Pair.Key()
	prev, existed := r.s.db.relationships[key]
	r.s.db.relationships[key] = rel
	r.s.onRollback(func() {
		if existed {
			r.s.db.relationships[key] = prev
		} else {
			delete(r.s.db.relationships, key)
		}
	})
	return nil
}

func (r relationshipRepository) Delete(ctx context.Context, pair domain.Pair) error {
	defer r.s.lock()()
	key := pair.Key()
	prev, existed := r.s.db.relationships[key]
	if !existed {
		return nil
	}
	delete(r.s.db.relationships, key)
	r.s.onRollback(func() {
		r.s.db.relationships[key] = prev
	})
	return nil
}

func (r relationshipRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]relationship.Relationship, error) {
	defer r.s.lock()()
	var out []relationship.Relationship
	for _, rel := range r.s.db.relationships {
		if rel.Pair.Contains(userID) {
			out = append(out, rel)
		}
	}
	return out, nil
}
