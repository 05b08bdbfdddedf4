package memory

import (
	"context"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/message"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type messageRecord struct {
	msg    message.Message
	readBy map[uuid.UUID]time.Time
}

func (rec *messageRecord) snapshot() message.Message {
	m := rec.msg
	ids := make([]uuid.UUID, 0, len(rec.readBy))
	for id := range rec.readBy {
		ids = append(ids, id)
	}
	m.ReadBy = domain.SortIDs(ids)
	return m
}

type messageRepository struct {
	s *Store
}

func (r messageRepository) Append(ctx context.Context, m *message.Message) error {
	defer r.s.lock()()
	if _, ok := r.s.db.threads[m.ThreadID]; !ok {
		return sentinal_errors.NotFound("thread")
	}
	list := r.s.db.messages[m.ThreadID]
	m.Sequence = 1
	if n := len(list); n > 0 {
		last := list[n-1].msg
		m.Sequence = last.Sequence + 1
		if m.CreatedAt.Before(last.CreatedAt) {
			m.CreatedAt = last.CreatedAt
		}
	}
	rec := &messageRecord{
		msg:    *m,
		readBy: map[uuid.UUID]time.Time{m.SenderID: m.CreatedAt},
	}
	rec.msg.ReadBy = nil
	r.s.db.messages[m.ThreadID] = append(list, rec)
	m.ReadBy = []uuid.UUID{m.SenderID}

	threadID := m.ThreadID
	r.s.onRollback(func() {
		cur := r.s.db.messages[threadID]
		r.s.db.messages[threadID] = cur[:len(cur)-1]
	})
	return nil
}

func (r messageRepository) ListByThread(ctx context.Context, threadID uuid.UUID) ([]message.Message, error) {
	defer r.s.lock()()
	list := r.s.db.messages[threadID]
	out := make([]message.Message, 0, len(list))
	for _, rec := range list {
		out = append(out, rec.snapshot())
	}
	return out, nil
}

func (r messageRepository) GetLatest(ctx context.Context, threadID uuid.UUID) (message.Message, error) {
	defer r.s.lock()()
	list := r.s.db.messages[threadID]
	if len(list) == 0 {
		return message.Message{}, sentinal_errors.NotFound("message")
	}
	return list[len(list)-1].snapshot(), nil
}

func (r messageRepository) LatestSequence(ctx context.Context, threadID uuid.UUID) (int64, error) {
	defer r.s.lock()()
	list := r.s.db.messages[threadID]
	if len(list) == 0 {
		return 0, nil
	}
	return list[len(list)-1].msg.Sequence, nil
}

func (r messageRepository) MarkRead(ctx context.Context, threadID, userID uuid.UUID, upTo int64, at time.Time) (int, error) {
	defer r.s.lock()()
	var changed []*messageRecord
	for _, rec := range r.s.db.messages[threadID] {
		if rec.msg.Sequence > upTo {
			break
		}
		if _, ok := rec.readBy[userID]; ok {
			continue
		}
		rec.readBy[userID] = at
		changed = append(changed, rec)
	}
	r.s.onRollback(func() {
		for _, rec := range changed {
			delete(rec.readBy, userID)
		}
	})
	return len(changed), nil
}

func (r messageRepository) CountUnread(ctx context.Context, threadID, userID uuid.UUID) (int, error) {
	defer r.s.lock()()
	count := 0
	for _, rec := range r.s.db.messages[threadID] {
		if rec.msg.SenderID == userID {
			continue
		}
		if _, ok := rec.readBy[userID]; !ok {
			count++
		}
	}
	return count, nil
}
