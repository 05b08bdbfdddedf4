package proxy

import (
	"context"

	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/domain/thread"
	"sentinal-social/internal/repository"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

// AccessControl answers whether a user may act on a thread.
type AccessControl struct {
	store repository.Store
}

func NewAccessControl(store repository.Store) *AccessControl {
	return &AccessControl{store: store}
}

// CanSendMessage requires participation and, for a direct thread, that the
// pair is not blocked. Blocked threads keep their history but take no new
// messages.
func (a *AccessControl) CanSendMessage(ctx context.Context, userID, threadID uuid.UUID) (thread.Thread, error) {
	t, err := a.ensureParticipant(ctx, threadID, userID)
	if err != nil {
		return thread.Thread{}, err
	}
	pair, ok := t.DirectPair()
	if !ok {
		return t, nil
	}
	rel, err := a.store.Relationships().Get(ctx, pair)
	if err != nil {
		if sentinal_errors.IsNotFound(err) {
			return t, nil
		}
		return thread.Thread{}, err
	}
	if rel.Status == relationship.StatusBlocked {
		return thread.Thread{}, sentinal_errors.ErrBlocked
	}
	return t, nil
}

func (a *AccessControl) CanViewThread(ctx context.Context, userID, threadID uuid.UUID) (thread.Thread, error) {
	return a.ensureParticipant(ctx, threadID, userID)
}

func (a *AccessControl) ensureParticipant(ctx context.Context, threadID, userID uuid.UUID) (thread.Thread, error) {
	if a.store == nil {
		return thread.Thread{}, sentinal_errors.ErrForbidden
	}
	t, err := a.store.Threads().GetByID(ctx, threadID)
	if err != nil {
		return thread.Thread{}, err
	}
	if !t.HasParticipant(userID) {
		return thread.Thread{}, sentinal_errors.ErrNotParticipant
	}
	return t, nil
}
