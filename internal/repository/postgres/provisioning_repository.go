package postgres

import (
	"context"
	"errors"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/thread"
	sentinal_errors "sentinal-social/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type provisioningRepository struct {
	s *Store
}

func (r *provisioningRepository) Enqueue(ctx context.Context, p thread.PendingDirect) error {
	row := newProvisionRow(p)
	return r.s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_error", "next_attempt_at"}),
		}).
		Create(&row).Error
}

func (r *provisioningRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]thread.PendingDirect, error) {
	var rows []provisionRow
	q := r.s.db.WithContext(ctx).
		Where("next_attempt_at <= ?", now).
		Order("next_attempt_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]thread.PendingDirect, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *provisioningRepository) Get(ctx context.Context, pair domain.Pair) (thread.PendingDirect, error) {
	var row provisionRow
	err := r.s.db.WithContext(ctx).Where("pair_key = ?", pair.Key()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.PendingDirect{}, sentinal_errors.NotFound("pending provisioning")
		}
		return thread.PendingDirect{}, err
	}
	return row.toDomain(), nil
}

func (r *provisioningRepository) Complete(ctx context.Context, pair domain.Pair) error {
	return r.s.db.WithContext(ctx).
		Where("pair_key = ?", pair.Key()).
		Delete(&provisionRow{}).Error
}

func (r *provisioningRepository) MarkFailed(ctx context.Context, pair domain.Pair, nextAttemptAt time.Time, errMsg string) error {
	res := r.s.db.WithContext(ctx).
		Model(&provisionRow{}).
		Where("pair_key = ?", pair.Key()).
		Updates(map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      errMsg,
			"next_attempt_at": nextAttemptAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sentinal_errors.NotFound("pending provisioning")
	}
	return nil
}
