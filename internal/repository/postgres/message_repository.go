package postgres

import (
	"context"
	"errors"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/message"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type messageRepository struct {
	s *Store
}

// Append bumps the thread counter under its row lock, so sequences are dense
// and CreatedAt never precedes the previous message.
func (r *messageRepository) Append(ctx context.Context, m *message.Message) error {
	return r.s.transaction(ctx, func(tx *gorm.DB) error {
		var bump struct {
			LastSequence  int64
			LastMessageAt time.Time
		}
		res := tx.Raw(`
			UPDATE threads
			SET last_sequence = last_sequence + 1,
				last_message_at = GREATEST(COALESCE(last_message_at, ?), ?)
			WHERE id = ?
			RETURNING last_sequence, last_message_at`,
			m.CreatedAt, m.CreatedAt, m.ThreadID).Scan(&bump)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return sentinal_errors.NotFound("thread")
		}
		m.Sequence = bump.LastSequence
		m.CreatedAt = bump.LastMessageAt

		row := messageRow{
			ID:        m.ID,
			ThreadID:  m.ThreadID,
			Sequence:  m.Sequence,
			SenderID:  m.SenderID,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		receipt := receiptRow{
			MessageID: m.ID,
			UserID:    m.SenderID,
			ThreadID:  m.ThreadID,
			Sequence:  m.Sequence,
			ReadAt:    m.CreatedAt,
		}
		if err := tx.Create(&receipt).Error; err != nil {
			return err
		}
		m.ReadBy = []uuid.UUID{m.SenderID}
		return nil
	})
}

func (r *messageRepository) ListByThread(ctx context.Context, threadID uuid.UUID) ([]message.Message, error) {
	db := r.s.db.WithContext(ctx)
	var rows []messageRow
	if err := db.Where("thread_id = ?", threadID).Order("sequence ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	var receipts []receiptRow
	if err := db.Where("thread_id = ?", threadID).Find(&receipts).Error; err != nil {
		return nil, err
	}
	readers := make(map[uuid.UUID][]uuid.UUID)
	for _, rc := range receipts {
		readers[rc.MessageID] = append(readers[rc.MessageID], rc.UserID)
	}
	out := make([]message.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain(readers[row.ID]))
	}
	return out, nil
}

func (r *messageRepository) GetLatest(ctx context.Context, threadID uuid.UUID) (message.Message, error) {
	db := r.s.db.WithContext(ctx)
	var row messageRow
	err := db.Where("thread_id = ?", threadID).Order("sequence DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, sentinal_errors.NotFound("message")
		}
		return message.Message{}, err
	}
	var readers []uuid.UUID
	if err := db.Model(&receiptRow{}).Where("message_id = ?", row.ID).Pluck("user_id", &readers).Error; err != nil {
		return message.Message{}, err
	}
	return row.toDomain(readers), nil
}

func (r *messageRepository) LatestSequence(ctx context.Context, threadID uuid.UUID) (int64, error) {
	var seq int64
	err := r.s.db.WithContext(ctx).
		Raw("SELECT COALESCE(MAX(sequence), 0) FROM messages WHERE thread_id = ?", threadID).
		Scan(&seq).Error
	return seq, err
}

func (r *messageRepository) MarkRead(ctx context.Context, threadID, userID uuid.UUID, upTo int64, at time.Time) (int, error) {
	res := r.s.db.WithContext(ctx).Exec(`
		INSERT INTO message_receipts (message_id, user_id, thread_id, sequence, read_at)
		SELECT id, ?, thread_id, sequence, ?
		FROM messages
		WHERE thread_id = ? AND sequence <= ?
		ON CONFLICT DO NOTHING`,
		userID, at, threadID, upTo)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *messageRepository) CountUnread(ctx context.Context, threadID, userID uuid.UUID) (int, error) {
	var count int64
	err := r.s.db.WithContext(ctx).
		Model(&messageRow{}).
		Where("thread_id = ? AND sender_id <> ?", threadID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_receipts r WHERE r.message_id = messages.id AND r.user_id = ?)", userID).
		Count(&count).Error
	return int(count), err
}

func (row messageRow) toDomain(readers []uuid.UUID) message.Message {
	return message.Message{
		ID:        row.ID,
		ThreadID:  row.ThreadID,
		SenderID:  row.SenderID,
		Content:   row.Content,
		Sequence:  row.Sequence,
		CreatedAt: row.CreatedAt,
		ReadBy:    domain.SortIDs(readers),
	}
}
