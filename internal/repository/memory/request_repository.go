package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/connection"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type requestRepository struct {
	s *Store
}

func (r requestRepository) Create(ctx context.Context, req *connection.Request) error {
	defer r.s.lock()()
	key := req.Pair().Key()
	if req.IsPending() {
		if _, exists := r.s.db.pendingByPair[key]; exists {
			return sentinal_errors.ErrDuplicateRequest
		}
	}
	if _, exists := r.s.db.requests[req.ID]; exists {
		return &sentinal_errors.Error{Kind: sentinal_errors.KindConflict, Message: "request id already exists"}
	}
	r.s.db.requests[req.ID] = *req
	if req.IsPending() {
		r.s.db.pendingByPair[key] = req.ID
	}
	id := req.ID
	pending := req.IsPending()
	r.s.onRollback(func() {
		delete(r.s.db.requests, id)
		if pending {
			delete(r.s.db.pendingByPair, key)
		}
	})
	return nil
}

func (r requestRepository) GetByID(ctx context.Context, id uuid.UUID) (connection.Request, error) {
	defer r.s.lock()()
	req, ok := r.s.db.requests[id]
	if !ok {
		return connection.Request{}, sentinal_errors.NotFound("connection request")
	}
	return req, nil
}

func (r requestRepository) FindPending(ctx context.Context, pair domain.Pair) (connection.Request, error) {
	defer r.s.lock()()
	id, ok := r.s.db.pendingByPair[pair.Key()]
	if !ok {
		return connection.Request{}, sentinal_errors.NotFound("pending connection request")
	}
	return r.s.db.requests[id], nil
}

func (r requestRepository) Resolve(ctx context.Context, id uuid.UUID, status connection.RequestStatus, at time.Time) (connection.Request, error) {
	defer r.s.lock()()
	req, ok := r.s.db.requests[id]
	if !ok {
		return connection.Request{}, sentinal_errors.NotFound("connection request")
	}
	if !req.IsPending() {
		return connection.Request{}, sentinal_errors.ErrAlreadyResolved
	}
	prev := req
	key := req.Pair().Key()
	req.Status = status
	req.ResolvedAt = sql.NullTime{Time: at, Valid: true}
	r.s.db.requests[id] = req
	delete(r.s.db.pendingByPair, key)
	r.s.onRollback(func() {
		r.s.db.requests[id] = prev
		r.s.db.pendingByPair[key] = id
	})
	return req, nil
}

func (r requestRepository) ListPendingTo(ctx context.Context, userID uuid.UUID) ([]connection.Request, error) {
	return r.listPending(func(req connection.Request) bool { return req.ToUserID == userID }), nil
}

func (r requestRepository) ListPendingFrom(ctx context.Context, userID uuid.UUID) ([]connection.Request, error) {
	return r.listPending(func(req connection.Request) bool { return req.FromUserID == userID }), nil
}

func (r requestRepository) listPending(match func(connection.Request) bool) []connection.Request {
	defer r.s.lock()()
	var out []connection.Request
	for _, id := range r.s.db.pendingByPair {
		req := r.s.db.requests[id]
		if match(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
