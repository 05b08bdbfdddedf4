package postgres

import (
	"context"
	"errors"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/thread"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type threadRepository struct {
	s *Store
}

func (r *threadRepository) Create(ctx context.Context, t *thread.Thread) error {
	return r.s.transaction(ctx, func(tx *gorm.DB) error {
		row := newThreadRow(*t)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return &sentinal_errors.Error{Kind: sentinal_errors.KindConflict, Message: "thread already exists", Err: err}
			}
			return err
		}
		return insertParticipants(tx, t.ID, t.ParticipantIDs)
	})
}

// GetOrCreateDirect relies on the unique direct_key index: a losing
// concurrent insert becomes a no-op and reads the winner's row.
func (r *threadRepository) GetOrCreateDirect(ctx context.Context, candidate thread.Thread) (thread.Thread, bool, error) {
	pair, ok := candidate.DirectPair()
	if !ok {
		return thread.Thread{}, false, sentinal_errors.Validation("direct thread needs exactly two participants")
	}
	var (
		out     thread.Thread
		created bool
	)
	err := r.s.transaction(ctx, func(tx *gorm.DB) error {
		row := newThreadRow(candidate)
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "direct_key"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			if err := insertParticipants(tx, candidate.ID, candidate.ParticipantIDs); err != nil {
				return err
			}
			out, created = candidate.Clone(), true
			return nil
		}
		existing, err := loadDirect(tx, pair)
		if err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return thread.Thread{}, false, err
	}
	return out, created, nil
}

func (r *threadRepository) GetByID(ctx context.Context, id uuid.UUID) (thread.Thread, error) {
	db := r.s.db.WithContext(ctx)
	var row threadRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.Thread{}, sentinal_errors.NotFound("thread")
		}
		return thread.Thread{}, err
	}
	threads, err := withParticipants(db, []threadRow{row})
	if err != nil {
		return thread.Thread{}, err
	}
	return threads[0], nil
}

func (r *threadRepository) GetDirect(ctx context.Context, pair domain.Pair) (thread.Thread, error) {
	return loadDirect(r.s.db.WithContext(ctx), pair)
}

func (r *threadRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]thread.Thread, error) {
	db := r.s.db.WithContext(ctx)
	var rows []threadRow
	err := db.
		Select("threads.*").
		Joins("JOIN thread_participants tp ON tp.thread_id = threads.id").
		Where("tp.user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return withParticipants(db, rows)
}

func (r *threadRepository) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.s.db.WithContext(ctx).
		Model(&threadRow{}).
		Where("id = ?", id).
		Update("last_message_at", gorm.Expr("GREATEST(COALESCE(last_message_at, ?), ?)", at, at))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sentinal_errors.NotFound("thread")
	}
	return nil
}

func loadDirect(db *gorm.DB, pair domain.Pair) (thread.Thread, error) {
	var row threadRow
	if err := db.Where("direct_key = ?", pair.Key()).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.Thread{}, sentinal_errors.NotFound("direct thread")
		}
		return thread.Thread{}, err
	}
	threads, err := withParticipants(db, []threadRow{row})
	if err != nil {
		return thread.Thread{}, err
	}
	return threads[0], nil
}

func insertParticipants(tx *gorm.DB, threadID uuid.UUID, userIDs []uuid.UUID) error {
	rows := make([]participantRow, 0, len(userIDs))
	for i, userID := range userIDs {
		rows = append(rows, participantRow{ThreadID: threadID, UserID: userID, Position: i})
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func withParticipants(db *gorm.DB, rows []threadRow) ([]thread.Thread, error) {
	if len(rows) == 0 {
		return []thread.Thread{}, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var parts []participantRow
	err := db.Where("thread_id IN ?", ids).Order("thread_id, position").Find(&parts).Error
	if err != nil {
		return nil, err
	}
	byThread := make(map[uuid.UUID][]uuid.UUID, len(rows))
	for _, p := range parts {
		byThread[p.ThreadID] = append(byThread[p.ThreadID], p.UserID)
	}
	out := make([]thread.Thread, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain(byThread[row.ID]))
	}
	return out, nil
}
