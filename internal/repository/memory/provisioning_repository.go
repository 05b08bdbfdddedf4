package memory

import (
	"context"
	"sort"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/thread"
	sentinal_errors "sentinal-social/pkg/errors"
)

type provisioningRepository struct {
	s *Store
}

func (r provisioningRepository) Enqueue(ctx context.Context, p thread.PendingDirect) error {
	defer r.s.lock()()
	key := p.Pair.Key()
	prev, existed := r.s.db.provisioning[key]
	if existed {
		// keep attempt history for a pair that is already queued
		p.Attempts = prev.Attempts
		p.CreatedAt = prev.CreatedAt
	}
	r.s.db.provisioning[key] = p
	r.s.onRollback(func() {
		if existed {
			r.s.db.provisioning[key] = prev
		} else {
			delete(r.s.db.provisioning, key)
		}
	})
	return nil
}

func (r provisioningRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]thread.PendingDirect, error) {
	defer r.s.lock()()
	var out []thread.PendingDirect
	for _, p := range r.s.db.provisioning {
		if !p.NextAttemptAt.After(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextAttemptAt.Before(out[j].NextAttemptAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r provisioningRepository) Get(ctx context.Context, pair domain.Pair) (thread.PendingDirect, error) {
	defer r.s.lock()()
	p, ok := r.s.db.provisioning[pair.Key()]
	if !ok {
		return thread.PendingDirect{}, sentinal_errors.NotFound("pending provisioning")
	}
	return p, nil
}

func (r provisioningRepository) Complete(ctx context.Context, pair domain.Pair) error {
	defer r.s.lock()()
	key := pair.Key()
	prev, existed := r.s.db.provisioning[key]
	if !existed {
		return nil
	}
	delete(r.s.db.provisioning, key)
	r.s.onRollback(func() {
		r.s.db.provisioning[key] = prev
	})
	return nil
}

func (r provisioningRepository) MarkFailed(ctx context.Context, pair domain.Pair, nextAttemptAt time.Time, errMsg string) error {
	defer r.s.lock()()
	key := pair.Key()
	p, ok := r.s.db.provisioning[key]
	if !ok {
		return sentinal_errors.NotFound("pending provisioning")
	}
	prev := p
	p.Attempts++
	p.LastError = errMsg
	p.NextAttemptAt = nextAttemptAt
	r.s.db.provisioning[key] = p
	r.s.onRollback(func() {
		r.s.db.provisioning[key] = prev
	})
	return nil
}
