package postgres

import (
	"context"
	"errors"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/relationship"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type relationshipRepository struct {
	s *Store
}

func (r *relationshipRepository) Get(ctx context.Context, pair domain.Pair) (relationship.Relationship, error) {
	var row relationshipRow
	err := r.s.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", pair.Low, pair.High).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return relationship.Relationship{}, sentinal_errors.NotFound("relationship")
		}
		return relationship.Relationship{}, err
	}
	return row.toDomain(), nil
}

func (r *relationshipRepository) Upsert(ctx context.Context, rel relationship.Relationship) error {
	row := newRelationshipRow(rel)
	return r.s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_low"}, {Name: "user_high"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "blocked_by", "updated_at"}),
		}).
		Create(&row).Error
}

func (r *relationshipRepository) Delete(ctx context.Context, pair domain.Pair) error {
	return r.s.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", pair.Low, pair.High).
		Delete(&relationshipRow{}).Error
}

func (r *relationshipRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]relationship.Relationship, error) {
	var rows []relationshipRow
	err := r.s.db.WithContext(ctx).
		Where("user_low = ? OR user_high = ?", userID, userID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]relationship.Relationship, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
