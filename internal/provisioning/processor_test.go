package provisioning

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/domain/thread"
	"sentinal-social/internal/repository"
	"sentinal-social/internal/repository/memory"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

type stubThreads struct {
	err   error
	calls int
}

func (s *stubThreads) GetOrCreateDirect(ctx context.Context, a, b uuid.UUID) (thread.Thread, error) {
	s.calls++
	if s.err != nil {
		return thread.Thread{}, s.err
	}
	return thread.Thread{ID: uuid.New(), ParticipantIDs: []uuid.UUID{a, b}}, nil
}

func setup(t *testing.T, threads ThreadProvisioner) (*Processor, *memory.Store, domain.Pair, *time.Time) {
	t.Helper()
	store := memory.NewStore()
	pair := domain.NewPair(uuid.New(), uuid.New())
	if err := store.Relationships().Upsert(context.Background(), relationship.Relationship{Pair: pair, Status: relationship.StatusConnected}); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p := NewProcessor(store, threads, logger.FromZap(zaptest.NewLogger(t)), 10, time.Second, 3)
	p.clock = func() time.Time { return now }
	return p, store, pair, &now
}

func TestProcessDueProvisionsAndCompletes(t *testing.T) {
	ctx := context.Background()
	threads := &stubThreads{}
	p, _, pair, now := setup(t, threads)

	if err := p.Enqueue(ctx, pair, errors.New("down")); err != nil {
		t.Fatal(err)
	}
	if n, _ := p.ProcessDue(ctx); n != 0 {
		t.Fatal("entry processed before its retry time")
	}

	*now = now.Add(time.Second)
	n, err := p.ProcessDue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ProcessDue = %d, %v", n, err)
	}
	if pending, _ := p.Pending(ctx, pair); pending {
		t.Fatal("entry not completed")
	}
}

func TestProcessDueBacksOffAndGivesUp(t *testing.T) {
	ctx := context.Background()
	threads := &stubThreads{err: errors.New("still down")}
	p, store, pair, now := setup(t, threads)
	_ = p.Enqueue(ctx, pair, nil)

	wantDelays := []time.Duration{time.Second, 2 * time.Second}
	for i, delay := range wantDelays {
		*now = now.Add(time.Hour)
		if _, err := p.ProcessDue(ctx); err != nil {
			t.Fatal(err)
		}
		entry, _ := store.Provisioning().Get(ctx, pair)
		if entry.Attempts != i+1 {
			t.Fatalf("attempts = %d, want %d", entry.Attempts, i+1)
		}
		if got := entry.NextAttemptAt.Sub(*now); got != delay {
			t.Fatalf("attempt %d delay = %s, want %s", i+1, got, delay)
		}
	}

	// the third failure is the last allowed attempt
	*now = now.Add(time.Hour)
	if _, err := p.ProcessDue(ctx); err != nil {
		t.Fatal(err)
	}
	if pending, err := p.Pending(ctx, pair); err != nil || pending {
		t.Fatalf("pending after giving up = %v, %v", pending, err)
	}

	*now = now.Add(time.Hour)
	if _, err := p.ProcessDue(ctx); err != nil {
		t.Fatal(err)
	}
	if threads.calls != 3 {
		t.Fatalf("threads called %d times, want 3", threads.calls)
	}
}

func TestProcessDueDropsEntryAlreadyOverCap(t *testing.T) {
	ctx := context.Background()
	threads := &stubThreads{}
	p, store, pair, now := setup(t, threads)
	_ = store.Provisioning().Enqueue(ctx, thread.PendingDirect{Pair: pair, Attempts: 5, NextAttemptAt: *now})

	if _, err := p.ProcessDue(ctx); err != nil {
		t.Fatal(err)
	}
	if threads.calls != 0 {
		t.Fatal("entry over the attempt cap was retried")
	}
	if pending, _ := p.Pending(ctx, pair); pending {
		t.Fatal("entry over the attempt cap was kept")
	}
}

type brokenProvisioning struct {
	repository.ProvisioningRepository
	err error
}

func (b brokenProvisioning) MarkFailed(ctx context.Context, pair domain.Pair, next time.Time, msg string) error {
	return b.err
}

type brokenStore struct {
	*memory.Store
	err error
}

func (s brokenStore) Provisioning() repository.ProvisioningRepository {
	return brokenProvisioning{ProvisioningRepository: s.Store.Provisioning(), err: s.err}
}

func TestProcessDueReportsBookkeepingFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	pair := domain.NewPair(uuid.New(), uuid.New())
	_ = mem.Relationships().Upsert(ctx, relationship.Relationship{Pair: pair, Status: relationship.StatusConnected})
	storeErr := errors.New("provisioning table unavailable")
	store := brokenStore{Store: mem, err: storeErr}

	p := NewProcessor(store, &stubThreads{err: errors.New("down")}, logger.FromZap(zaptest.NewLogger(t)), 10, time.Second, 3)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p.clock = func() time.Time { return now }
	if err := p.Enqueue(ctx, pair, nil); err != nil {
		t.Fatal(err)
	}

	now = now.Add(time.Minute)
	_, err := p.ProcessDue(ctx)
	if !errors.Is(err, storeErr) {
		t.Fatalf("ProcessDue error = %v, want %v", err, storeErr)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	p := NewProcessor(nil, nil, nil, 1, time.Minute, 100)
	if got := p.backoff(30); got != maxBackoff {
		t.Fatalf("backoff(30) = %s, want %s", got, maxBackoff)
	}
	if got := p.backoff(1); got != time.Minute {
		t.Fatalf("backoff(1) = %s", got)
	}
}
