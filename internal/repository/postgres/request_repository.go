package postgres

import (
	"context"
	"errors"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/connection"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type requestRepository struct {
	s *Store
}

func (r *requestRepository) Create(ctx context.Context, req *connection.Request) error {
	row := newRequestRow(*req)
	err := r.s.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		if violatesConstraint(err, pendingPairIndex) {
			return sentinal_errors.ErrDuplicateRequest
		}
		if isUniqueViolation(err) {
			return &sentinal_errors.Error{Kind: sentinal_errors.KindConflict, Message: "request id already exists", Err: err}
		}
		return err
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (connection.Request, error) {
	var row requestRow
	err := r.s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return connection.Request{}, sentinal_errors.NotFound("connection request")
		}
		return connection.Request{}, err
	}
	return row.toDomain(), nil
}

func (r *requestRepository) FindPending(ctx context.Context, pair domain.Pair) (connection.Request, error) {
	var row requestRow
	err := r.s.db.WithContext(ctx).
		Where("pair_key = ? AND status = ?", pair.Key(), string(connection.RequestStatusPending)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return connection.Request{}, sentinal_errors.NotFound("pending connection request")
		}
		return connection.Request{}, err
	}
	return row.toDomain(), nil
}

// Resolve is a compare-and-set on status: only one caller can move a request
// out of PENDING.
func (r *requestRepository) Resolve(ctx context.Context, id uuid.UUID, status connection.RequestStatus, at time.Time) (connection.Request, error) {
	res := r.s.db.WithContext(ctx).
		Model(&requestRow{}).
		Where("id = ? AND status = ?", id, string(connection.RequestStatusPending)).
		Updates(map[string]interface{}{
			"status":      string(status),
			"resolved_at": at,
		})
	if res.Error != nil {
		return connection.Request{}, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return connection.Request{}, err
		}
		return connection.Request{}, sentinal_errors.ErrAlreadyResolved
	}
	return r.GetByID(ctx, id)
}

func (r *requestRepository) ListPendingTo(ctx context.Context, userID uuid.UUID) ([]connection.Request, error) {
	return r.listPending(ctx, "to_user_id = ?", userID)
}

func (r *requestRepository) ListPendingFrom(ctx context.Context, userID uuid.UUID) ([]connection.Request, error) {
	return r.listPending(ctx, "from_user_id = ?", userID)
}

func (r *requestRepository) listPending(ctx context.Context, cond string, userID uuid.UUID) ([]connection.Request, error) {
	var rows []requestRow
	err := r.s.db.WithContext(ctx).
		Where(cond, userID).
		Where("status = ?", string(connection.RequestStatusPending)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]connection.Request, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
