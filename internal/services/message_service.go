package services

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/thread"
	"sentinal-social/internal/repository"
	sentinal_errors "sentinal-social/pkg/errors"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UnreadCache holds derived unread counts. Every Invalidate advances the
// key's generation, and Set only stores a count computed under the current
// generation.
type UnreadCache interface {
	Get(ctx context.Context, userID, threadID uuid.UUID) (int, bool, error)
	Generation(ctx context.Context, userID, threadID uuid.UUID) (int64, error)
	// Set stores count if the generation is still gen and reports whether it did.
	Set(ctx context.Context, userID, threadID uuid.UUID, gen int64, count int) (bool, error)
	Invalidate(ctx context.Context, threadID uuid.UUID, userIDs ...uuid.UUID) error
}

// MessageService is the append-only per-thread log with read receipts.
type MessageService struct {
	store repository.Store
	cache UnreadCache
	log   *logger.Logger
	clock func() time.Time
}

func NewMessageService(store repository.Store, cache UnreadCache, log *logger.Logger) *MessageService {
	if log == nil {
		log = logger.Nop()
	}
	return &MessageService{store: store, cache: cache, log: log, clock: time.Now}
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return sentinal_errors.Validation("message content is required")
	}
	if utf8.RuneCountInString(content) > message.MaxContentLength {
		return sentinal_errors.Validation("message content exceeds %d characters", message.MaxContentLength)
	}
	return nil
}

func loadParticipantThread(ctx context.Context, st repository.Store, threadID, userID uuid.UUID) (thread.Thread, error) {
	t, err := st.Threads().GetByID(ctx, threadID)
	if err != nil {
		return thread.Thread{}, err
	}
	if !t.HasParticipant(userID) {
		return thread.Thread{}, sentinal_errors.ErrNotParticipant
	}
	return t, nil
}

// Append stores a message from senderID. Sequence and timestamp are assigned
// under the thread's write lock and readBy starts as {senderID}.
func (s *MessageService) Append(ctx context.Context, threadID, senderID uuid.UUID, content string) (message.Message, error) {
	if err := validateContent(content); err != nil {
		return message.Message{}, err
	}
	var (
		m       message.Message
		members []uuid.UUID
	)
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		t, err := loadParticipantThread(ctx, tx, threadID, senderID)
		if err != nil {
			return err
		}
		m = message.Message{
			ID:        uuid.New(),
			ThreadID:  threadID,
			SenderID:  senderID,
			Content:   content,
			CreatedAt: s.clock(),
		}
		if err := tx.Messages().Append(ctx, &m); err != nil {
			return err
		}
		members = t.ParticipantIDs
		return tx.Threads().TouchActivity(ctx, threadID, m.CreatedAt)
	})
	if err != nil {
		return message.Message{}, err
	}

	others := make([]uuid.UUID, 0, len(members))
	for _, id := range members {
		if id != senderID {
			others = append(others, id)
		}
	}
	s.invalidate(ctx, threadID, others...)
	return m, nil
}

// MarkRead marks every message with Sequence <= upTo as read by userID. An
// upTo of zero means the latest sequence at call time; messages appended
// afterwards stay unread. It returns how many messages changed.
func (s *MessageService) MarkRead(ctx context.Context, threadID, userID uuid.UUID, upTo int64) (int, error) {
	if upTo < 0 {
		return 0, sentinal_errors.Validation("upTo must not be negative")
	}
	var changed int
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := loadParticipantThread(ctx, tx, threadID, userID); err != nil {
			return err
		}
		latest, err := tx.Messages().LatestSequence(ctx, threadID)
		if err != nil {
			return err
		}
		if upTo == 0 || upTo > latest {
			upTo = latest
		}
		if upTo == 0 {
			return nil
		}
		changed, err = tx.Messages().MarkRead(ctx, threadID, userID, upTo, s.clock())
		return err
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.invalidate(ctx, threadID, userID)
	}
	return changed, nil
}

// GetMessages returns the thread log ordered by (timestamp, sequence).
func (s *MessageService) GetMessages(ctx context.Context, threadID uuid.UUID) ([]message.Message, error) {
	if _, err := s.store.Threads().GetByID(ctx, threadID); err != nil {
		return nil, err
	}
	msgs, err := s.store.Messages().ListByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Before(msgs[j]) })
	return msgs, nil
}

// Latest returns the newest message; ok is false for an empty thread.
func (s *MessageService) Latest(ctx context.Context, threadID uuid.UUID) (message.Message, bool, error) {
	m, err := s.store.Messages().GetLatest(ctx, threadID)
	if sentinal_errors.IsNotFound(err) {
		return message.Message{}, false, nil
	}
	if err != nil {
		return message.Message{}, false, err
	}
	return m, true, nil
}

// UnreadCount counts messages in threadID not read by userID, excluding
// userID's own messages.
func (s *MessageService) UnreadCount(ctx context.Context, userID, threadID uuid.UUID) (int, error) {
	if _, err := loadParticipantThread(ctx, s.store, threadID, userID); err != nil {
		return 0, err
	}
	var (
		gen       int64
		cacheable bool
	)
	if s.cache != nil {
		n, ok, err := s.cache.Get(ctx, userID, threadID)
		if err != nil {
			s.log.WithContext(ctx).Warn("unread cache read failed", zap.Error(err))
		} else if ok {
			return n, nil
		}
		// the generation is read before counting so a concurrent invalidation
		// makes the write below a no-op
		gen, err = s.cache.Generation(ctx, userID, threadID)
		if err != nil {
			s.log.WithContext(ctx).Warn("unread cache generation read failed", zap.Error(err))
		} else {
			cacheable = true
		}
	}
	n, err := s.store.Messages().CountUnread(ctx, threadID, userID)
	if err != nil {
		return 0, err
	}
	if cacheable {
		if _, err := s.cache.Set(ctx, userID, threadID, gen, n); err != nil {
			s.log.WithContext(ctx).Warn("unread cache write failed", zap.Error(err))
		}
	}
	return n, nil
}

func (s *MessageService) invalidate(ctx context.Context, threadID uuid.UUID, userIDs ...uuid.UUID) {
	if s.cache == nil || len(userIDs) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, threadID, userIDs...); err != nil {
		s.log.WithContext(ctx).Warn("unread cache invalidation failed",
			zap.String("thread_id", threadID.String()),
			zap.Error(err),
		)
	}
}
