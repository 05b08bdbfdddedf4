package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/connection"
	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/events"
	"sentinal-social/internal/repository"
	sentinal_errors "sentinal-social/pkg/errors"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AcceptedHook runs after an accept commits and returns the provisioned
// direct thread. A non-nil error leaves the connection in place.
type AcceptedHook func(ctx context.Context, conn connection.Connection) (uuid.UUID, error)

// RequestLimiter caps how many requests a user may submit.
type RequestLimiter interface {
	AllowConnectionRequest(ctx context.Context, userID uuid.UUID) (bool, error)
}

type ConnectionRequestService struct {
	store         repository.Store
	relationships *RelationshipService
	notifier      *events.Notifier
	limiter       RequestLimiter
	onAccepted    AcceptedHook
	log           *logger.Logger
	clock         func() time.Time
}

func NewConnectionRequestService(store repository.Store, relationships *RelationshipService, notifier *events.Notifier, log *logger.Logger) *ConnectionRequestService {
	if log == nil {
		log = logger.Nop()
	}
	return &ConnectionRequestService{
		store:         store,
		relationships: relationships,
		notifier:      notifier,
		log:           log,
		clock:         time.Now,
	}
}

// OnAccepted registers the hook invoked after every successful accept.
func (s *ConnectionRequestService) OnAccepted(hook AcceptedHook) {
	s.onAccepted = hook
}

func (s *ConnectionRequestService) SetLimiter(limiter RequestLimiter) {
	s.limiter = limiter
}

// Submit records a pending request from -> to. It is not idempotent: a
// caller retrying after a transport failure should check ListOutgoing first.
func (s *ConnectionRequestService) Submit(ctx context.Context, from, to uuid.UUID, message string) (connection.Request, error) {
	if from == uuid.Nil || to == uuid.Nil {
		return connection.Request{}, sentinal_errors.Validation("from and to user ids are required")
	}
	if from == to {
		return connection.Request{}, sentinal_errors.ErrSelfRequest
	}
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > connection.MaxRequestMessageLength {
		return connection.Request{}, sentinal_errors.Validation("message exceeds %d characters", connection.MaxRequestMessageLength)
	}
	if s.limiter != nil {
		ok, err := s.limiter.AllowConnectionRequest(ctx, from)
		if err != nil {
			s.log.WithContext(ctx).Warn("connection request rate limit check failed", zap.Error(err))
		} else if !ok {
			return connection.Request{}, sentinal_errors.ErrRateLimited
		}
	}

	req := connection.Request{
		ID:         uuid.New(),
		FromUserID: from,
		ToUserID:   to,
		Message:    message,
		Status:     connection.RequestStatusPending,
		CreatedAt:  s.clock(),
	}
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		status, err := s.relationships.WithStore(tx).Get(ctx, from, to)
		if err != nil {
			return err
		}
		switch status {
		case relationship.StatusConnected:
			return sentinal_errors.ErrAlreadyConnected
		case relationship.StatusBlocked:
			return sentinal_errors.ErrBlocked
		}
		if _, err := tx.Requests().FindPending(ctx, req.Pair()); err == nil {
			return sentinal_errors.ErrDuplicateRequest
		} else if !errors.Is(err, sentinal_errors.ErrNotFound) {
			return err
		}
		return tx.Requests().Create(ctx, &req)
	})
	if err != nil {
		return connection.Request{}, err
	}

	s.notifier.Notify(ctx, events.NewRequestReceived(req.ID, req.FromUserID, req.ToUserID, req.Message, req.CreatedAt))
	return req, nil
}

func (s *ConnectionRequestService) Get(ctx context.Context, requestID uuid.UUID) (connection.Request, error) {
	return s.store.Requests().GetByID(ctx, requestID)
}

// PendingBetween returns the pending request between a and b in either
// direction, if any.
func (s *ConnectionRequestService) PendingBetween(ctx context.Context, a, b uuid.UUID) (connection.Request, bool, error) {
	req, err := s.store.Requests().FindPending(ctx, domain.NewPair(a, b))
	if sentinal_errors.IsNotFound(err) {
		return connection.Request{}, false, nil
	}
	if err != nil {
		return connection.Request{}, false, err
	}
	return req, true, nil
}

func (s *ConnectionRequestService) ListIncoming(ctx context.Context, userID uuid.UUID) ([]connection.Request, error) {
	return s.store.Requests().ListPendingTo(ctx, userID)
}

func (s *ConnectionRequestService) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]connection.Request, error) {
	return s.store.Requests().ListPendingFrom(ctx, userID)
}

// Accept resolves the request without checking who is acting.
func (s *ConnectionRequestService) Accept(ctx context.Context, requestID uuid.UUID) (connection.Connection, error) {
	return s.accept(ctx, requestID, uuid.Nil)
}

// AcceptAs resolves the request on behalf of actorID, who must be its recipient.
func (s *ConnectionRequestService) AcceptAs(ctx context.Context, requestID, actorID uuid.UUID) (connection.Connection, error) {
	if actorID == uuid.Nil {
		return connection.Connection{}, sentinal_errors.Validation("acting user id is required")
	}
	return s.accept(ctx, requestID, actorID)
}

// accept moves the request to ACCEPTED and the pair to connected in one
// unit, then runs the accepted hook outside it.
func (s *ConnectionRequestService) accept(ctx context.Context, requestID, actorID uuid.UUID) (connection.Connection, error) {
	now := s.clock()
	var req connection.Request
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		current, err := tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !current.IsPending() {
			return sentinal_errors.ErrAlreadyResolved
		}
		if actorID != uuid.Nil && actorID != current.ToUserID {
			return sentinal_errors.ErrNotRecipient
		}
		resolved, err := tx.Requests().Resolve(ctx, requestID, connection.RequestStatusAccepted, now)
		if err != nil {
			return err
		}
		if err := s.relationships.WithStore(tx).Set(ctx, resolved.FromUserID, resolved.ToUserID, relationship.StatusConnected); err != nil {
			return err
		}
		req = resolved
		return nil
	})
	if err != nil {
		return connection.Connection{}, err
	}

	conn := connection.Connection{
		RequestID:   req.ID,
		FromUserID:  req.FromUserID,
		ToUserID:    req.ToUserID,
		ConnectedAt: now,
	}
	var hookErr error
	if s.onAccepted != nil {
		threadID, err := s.onAccepted(ctx, conn)
		if err != nil {
			hookErr = err
		} else {
			conn.ThreadID = uuid.NullUUID{UUID: threadID, Valid: true}
		}
	}

	s.notifier.Notify(ctx, events.NewRequestAccepted(req.ID, req.FromUserID, req.ToUserID, conn.ThreadID, now))
	return conn, hookErr
}

// Decline resolves the request as declined without checking who is acting.
func (s *ConnectionRequestService) Decline(ctx context.Context, requestID uuid.UUID) error {
	return s.decline(ctx, requestID, uuid.Nil)
}

// DeclineAs lets either party resolve the request; a sender declining its
// own request withdraws it.
func (s *ConnectionRequestService) DeclineAs(ctx context.Context, requestID, actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return sentinal_errors.Validation("acting user id is required")
	}
	return s.decline(ctx, requestID, actorID)
}

func (s *ConnectionRequestService) decline(ctx context.Context, requestID, actorID uuid.UUID) error {
	return s.store.Atomic(ctx, func(tx repository.Store) error {
		current, err := tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !current.IsPending() {
			return sentinal_errors.ErrAlreadyResolved
		}
		if actorID != uuid.Nil && !current.Involves(actorID) {
			return &sentinal_errors.Error{Kind: sentinal_errors.KindForbidden, Message: "user is not a party to this request"}
		}
		_, err = tx.Requests().Resolve(ctx, requestID, connection.RequestStatusDeclined, s.clock())
		return err
	})
}

// Block marks the pair blocked by blocker and declines any pending request
// between them in the same unit of work. Blocking an already blocked pair
// keeps the existing record.
func (s *ConnectionRequestService) Block(ctx context.Context, blocker, blocked uuid.UUID) (relationship.Relationship, error) {
	if blocker == uuid.Nil || blocked == uuid.Nil {
		return relationship.Relationship{}, sentinal_errors.Validation("user ids are required")
	}
	if blocker == blocked {
		return relationship.Relationship{}, sentinal_errors.Validation("cannot block yourself")
	}
	var out relationship.Relationship
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		rels := s.relationships.WithStore(tx)
		current, err := rels.GetRecord(ctx, blocker, blocked)
		if err != nil {
			return err
		}
		if current.Status == relationship.StatusBlocked {
			out = current
			return nil
		}
		pending, err := tx.Requests().FindPending(ctx, domain.NewPair(blocker, blocked))
		switch {
		case err == nil:
			if _, err := tx.Requests().Resolve(ctx, pending.ID, connection.RequestStatusDeclined, s.clock()); err != nil {
				return err
			}
		case !errors.Is(err, sentinal_errors.ErrNotFound):
			return err
		}
		if err := rels.block(ctx, blocker, blocked); err != nil {
			return err
		}
		out, err = rels.GetRecord(ctx, blocker, blocked)
		return err
	})
	if err != nil {
		return relationship.Relationship{}, err
	}
	return out, nil
}

// Unblock clears a block placed by actor. The pair returns to none and has
// to reconnect through a new request.
func (s *ConnectionRequestService) Unblock(ctx context.Context, actor, other uuid.UUID) error {
	if actor == other {
		return sentinal_errors.Validation("cannot unblock yourself")
	}
	return s.store.Atomic(ctx, func(tx repository.Store) error {
		rels := s.relationships.WithStore(tx)
		current, err := rels.GetRecord(ctx, actor, other)
		if err != nil {
			return err
		}
		if current.Status != relationship.StatusBlocked {
			return nil
		}
		if !current.BlockedBy.Valid || current.BlockedBy.UUID != actor {
			return &sentinal_errors.Error{Kind: sentinal_errors.KindForbidden, Reason: sentinal_errors.ReasonBlocked, Message: "only the blocking user can unblock"}
		}
		return rels.Set(ctx, actor, other, relationship.StatusNone)
	})
}
