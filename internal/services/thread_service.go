package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/thread"
	"sentinal-social/internal/repository"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

const maxThreadNameLength = 255

// ThreadService is the registry of direct and group threads.
type ThreadService struct {
	store repository.Store
	clock func() time.Time
}

func NewThreadService(store repository.Store) *ThreadService {
	return &ThreadService{store: store, clock: time.Now}
}

func (s *ThreadService) WithStore(st repository.Store) *ThreadService {
	cp := *s
	cp.store = st
	return &cp
}

// GetOrCreateDirect returns the single direct thread for {a, b}, creating it
// on first use. Concurrent calls for the same pair yield the same thread.
func (s *ThreadService) GetOrCreateDirect(ctx context.Context, a, b uuid.UUID) (thread.Thread, error) {
	if a == uuid.Nil || b == uuid.Nil {
		return thread.Thread{}, sentinal_errors.Validation("participant ids are required")
	}
	pair := domain.NewPair(a, b)
	if pair.IsDegenerate() {
		return thread.Thread{}, sentinal_errors.Validation("direct thread needs two distinct participants")
	}

	existing, err := s.store.Threads().GetDirect(ctx, pair)
	if err == nil {
		return existing, nil
	}
	if !sentinal_errors.IsNotFound(err) {
		return thread.Thread{}, err
	}

	candidate := thread.Thread{
		ID:             uuid.New(),
		ParticipantIDs: []uuid.UUID{pair.Low, pair.High},
		CreatedAt:      s.clock(),
	}
	t, _, err := s.store.Threads().GetOrCreateDirect(ctx, candidate)
	if err != nil {
		return thread.Thread{}, err
	}
	return t, nil
}

// CreateGroup creates a named thread over a de-duplicated participant set of
// at least two users.
func (s *ThreadService) CreateGroup(ctx context.Context, name string, participantIDs []uuid.UUID) (thread.Thread, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return thread.Thread{}, sentinal_errors.Validation("group name is required")
	}
	if len(name) > maxThreadNameLength {
		return thread.Thread{}, sentinal_errors.Validation("group name exceeds %d characters", maxThreadNameLength)
	}
	for _, id := range participantIDs {
		if id == uuid.Nil {
			return thread.Thread{}, sentinal_errors.Validation("participant ids must be valid")
		}
	}
	members := domain.SortIDs(participantIDs)
	if len(members) < 2 {
		return thread.Thread{}, sentinal_errors.Validation("group needs at least 2 distinct participants")
	}

	t := thread.Thread{
		ID:             uuid.New(),
		Name:           name,
		IsGroup:        true,
		ParticipantIDs: members,
		CreatedAt:      s.clock(),
	}
	if err := s.store.Threads().Create(ctx, &t); err != nil {
		return thread.Thread{}, err
	}
	return t, nil
}

func (s *ThreadService) Get(ctx context.Context, threadID uuid.UUID) (thread.Thread, error) {
	return s.store.Threads().GetByID(ctx, threadID)
}

func (s *ThreadService) GetDirect(ctx context.Context, a, b uuid.UUID) (thread.Thread, error) {
	return s.store.Threads().GetDirect(ctx, domain.NewPair(a, b))
}

// GetThreadsForUser lists userID's threads, most recent activity first, ties
// broken by thread id. It never creates anything.
func (s *ThreadService) GetThreadsForUser(ctx context.Context, userID uuid.UUID) ([]thread.Thread, error) {
	threads, err := s.store.Threads().ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortByActivity(threads)
	return threads, nil
}

func sortByActivity(threads []thread.Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		ai, aj := threads[i].LastActivityAt(), threads[j].LastActivityAt()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return threads[i].ID.String() < threads[j].ID.String()
	})
}
