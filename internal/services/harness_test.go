package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/thread"
	"sentinal-social/internal/events"
	"sentinal-social/internal/provisioning"
	"sentinal-social/internal/proxy"
	"sentinal-social/internal/repository"
	"sentinal-social/internal/repository/memory"
	sentinal_errors "sentinal-social/pkg/errors"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	store     repository.Store
	rels      *RelationshipService
	requests  *ConnectionRequestService
	threads   *ThreadService
	messages  *MessageService
	processor *provisioning.Processor
	messaging *MessagingService
	published *recordingPublisher
	cache     *fakeCache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, memory.NewStore())
}

func newHarnessWithStore(t *testing.T, store repository.Store) *harness {
	t.Helper()
	log := logger.FromZap(zaptest.NewLogger(t))
	published := &recordingPublisher{}
	notifier := events.NewNotifier(published, log)
	cache := newFakeCache()

	rels := NewRelationshipService(store)
	requests := NewConnectionRequestService(store, rels, notifier, log)
	threads := NewThreadService(store)
	messages := NewMessageService(store, cache, log)
	processor := provisioning.NewProcessor(store, threads, log, 10, 0, 3)
	messaging := NewMessagingService(rels, requests, threads, messages, proxy.NewAccessControl(store), processor, notifier, log)

	return &harness{
		store:     store,
		rels:      rels,
		requests:  requests,
		threads:   threads,
		messages:  messages,
		processor: processor,
		messaging: messaging,
		published: published,
		cache:     cache,
	}
}

// connect runs submit and accept for a and b and returns the direct thread.
func (h *harness) connect(t *testing.T, a, b uuid.UUID) thread.Thread {
	t.Helper()
	ctx := context.Background()
	req, err := h.messaging.SubmitConnectionRequest(ctx, a, b, "hi")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	conn, err := h.messaging.AcceptConnectionRequest(ctx, req.ID, b)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !conn.ThreadID.Valid {
		t.Fatal("accept returned no thread id")
	}
	th, err := h.threads.Get(ctx, conn.ThreadID.UUID)
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	return th
}

func (h *harness) unread(t *testing.T, userID, threadID uuid.UUID) int {
	t.Helper()
	n, err := h.messaging.UnreadCount(context.Background(), userID, threadID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) ofType(eventType events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type cacheKey struct {
	user, thread uuid.UUID
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[cacheKey]int
	gens        map[cacheKey]int64
	hits        int
	invalidated int
	// beforeSet runs between counting and storing, outside the lock.
	beforeSet func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[cacheKey]int), gens: make(map[cacheKey]int64)}
}

func (c *fakeCache) Get(ctx context.Context, userID, threadID uuid.UUID) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.entries[cacheKey{userID, threadID}]
	if ok {
		c.hits++
	}
	return n, ok, nil
}

func (c *fakeCache) Generation(ctx context.Context, userID, threadID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[cacheKey{userID, threadID}], nil
}

func (c *fakeCache) Set(ctx context.Context, userID, threadID uuid.UUID, gen int64, count int) (bool, error) {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{userID, threadID}
	if c.gens[key] != gen {
		return false, nil
	}
	c.entries[key] = count
	return true, nil
}

func (c *fakeCache) Invalidate(ctx context.Context, threadID uuid.UUID, userIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		key := cacheKey{id, threadID}
		delete(c.entries, key)
		c.gens[key]++
		c.invalidated++
	}
	return nil
}

type fakeLimiter struct {
	allow bool
	err   error
	calls int
}

func (l *fakeLimiter) AllowConnectionRequest(ctx context.Context, userID uuid.UUID) (bool, error) {
	l.calls++
	return l.allow, l.err
}

var errThreadsDown = &sentinal_errors.Error{Kind: sentinal_errors.KindUnavailable, Message: "thread store unavailable"}

// flakyStore fails direct-thread lookups and creation while down is set.
type flakyStore struct {
	*memory.Store
	down *atomic.Bool
}

func newFlakyStore() flakyStore {
	return flakyStore{Store: memory.NewStore(), down: &atomic.Bool{}}
}

func (s flakyStore) Threads() repository.ThreadRepository {
	return flakyThreads{ThreadRepository: s.Store.Threads(), down: s.down}
}

type flakyThreads struct {
	repository.ThreadRepository
	down *atomic.Bool
}

func (f flakyThreads) GetDirect(ctx context.Context, pair domain.Pair) (thread.Thread, error) {
	if f.down.Load() {
		return thread.Thread{}, errThreadsDown
	}
	return f.ThreadRepository.GetDirect(ctx, pair)
}

func (f flakyThreads) GetOrCreateDirect(ctx context.Context, candidate thread.Thread) (thread.Thread, bool, error) {
	if f.down.Load() {
		return thread.Thread{}, false, errThreadsDown
	}
	return f.ThreadRepository.GetOrCreateDirect(ctx, candidate)
}

func mustKind(t *testing.T, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
