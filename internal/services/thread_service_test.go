package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

func TestGetOrCreateDirectReturnsSameThread(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()

	viaAccept := h.connect(t, a, b)
	direct, err := h.threads.GetOrCreateDirect(ctx, b, a)
	if err != nil {
		t.Fatal(err)
	}
	if direct.ID != viaAccept.ID {
		t.Fatalf("direct = %s, via accept = %s", direct.ID, viaAccept.ID)
	}
	if direct.IsGroup || len(direct.ParticipantIDs) != 2 {
		t.Fatalf("direct thread = %+v", direct)
	}
}

func TestGetOrCreateDirectConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()

	const workers = 24
	ids := make(chan uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := a, b
			if i%2 == 0 {
				x, y = b, a
			}
			th, err := h.threads.GetOrCreateDirect(ctx, x, y)
			if err != nil {
				t.Errorf("GetOrCreateDirect: %v", err)
				return
			}
			ids <- th.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[uuid.UUID]struct{})
	for id := range ids {
		seen[id] = struct{}{}
	}
	if len(seen) != 1 {
		t.Fatalf("distinct direct threads = %d, want 1", len(seen))
	}
	threads, _ := h.threads.GetThreadsForUser(ctx, a)
	if len(threads) != 1 {
		t.Fatalf("threads for a = %d, want 1", len(threads))
	}
}

func TestGetOrCreateDirectRejectsSameUser(t *testing.T) {
	h := newHarness(t)
	a := uuid.New()
	_, err := h.threads.GetOrCreateDirect(context.Background(), a, a)
	mustKind(t, err, sentinal_errors.ErrValidation)
}

func TestCreateGroupValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		group   string
		members []uuid.UUID
	}{
		{"empty name", "  ", []uuid.UUID{a, b}},
		{"name too long", strings.Repeat("n", 256), []uuid.UUID{a, b}},
		{"single member", "solo", []uuid.UUID{a}},
		{"duplicates collapse", "dupes", []uuid.UUID{a, a}},
		{"nil member", "nil", []uuid.UUID{a, uuid.Nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.threads.CreateGroup(ctx, tt.group, tt.members)
			mustKind(t, err, sentinal_errors.ErrValidation)
		})
	}

	g, err := h.threads.CreateGroup(ctx, " book club ", []uuid.UUID{b, a, b})
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "book club" || !g.IsGroup || len(g.ParticipantIDs) != 2 {
		t.Fatalf("group = %+v", g)
	}
}

func TestGroupOfTwoIsNotDirect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()

	g, err := h.threads.CreateGroup(ctx, "pair group", []uuid.UUID{a, b})
	if err != nil {
		t.Fatal(err)
	}
	direct, err := h.threads.GetOrCreateDirect(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if direct.ID == g.ID {
		t.Fatal("direct lookup returned the group thread")
	}
}

func TestGetThreadsForUserOrdersByActivity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h.threads.clock = func() time.Time { return base }
	older, _ := h.threads.GetOrCreateDirect(ctx, a, b)
	h.threads.clock = func() time.Time { return base.Add(time.Minute) }
	newer, _ := h.threads.GetOrCreateDirect(ctx, a, c)
	h.threads.clock = func() time.Time { return base.Add(time.Minute) }
	tied, _ := h.threads.GetOrCreateDirect(ctx, a, d)

	threads, err := h.threads.GetThreadsForUser(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(threads) != 3 || threads[2].ID != older.ID {
		t.Fatalf("oldest thread should be last: %+v", threads)
	}
	first, second := newer.ID, tied.ID
	if second.String() < first.String() {
		first, second = second, first
	}
	if threads[0].ID != first || threads[1].ID != second {
		t.Fatal("tie not broken by thread id")
	}

	// a message moves the oldest thread to the front
	h.messages.clock = func() time.Time { return base.Add(time.Hour) }
	if _, err := h.messages.Append(ctx, older.ID, b, "ping"); err != nil {
		t.Fatal(err)
	}
	threads, _ = h.threads.GetThreadsForUser(ctx, a)
	if threads[0].ID != older.ID {
		t.Fatalf("thread with latest message not first: %s", threads[0].ID)
	}
}

func TestGetThreadsForUserDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()

	// connected but thread never provisioned
	if err := h.rels.Set(ctx, a, b, "CONNECTED"); err != nil {
		t.Fatal(err)
	}
	if threads, _ := h.messaging.GetThreadsForUser(ctx, a); len(threads) != 0 {
		t.Fatalf("threads = %d, want 0", len(threads))
	}
	conns, err := h.messaging.GetConnections(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(conns) != 1 || conns[0].ThreadID.Valid {
		t.Fatalf("connections = %+v", conns)
	}
	if _, err := h.threads.GetDirect(ctx, a, b); !sentinal_errors.IsNotFound(err) {
		t.Fatalf("GetConnections created a thread: %v", err)
	}
}
