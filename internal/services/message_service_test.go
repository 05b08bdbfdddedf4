package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"sentinal-social/internal/domain/message"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

func TestAppendRejectsNonParticipant(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b, outsider := uuid.New(), uuid.New(), uuid.New()
	th := h.connect(t, a, b)

	_, err := h.messaging.SendMessage(ctx, th.ID, outsider, "let me in")
	mustKind(t, err, sentinal_errors.ErrNotParticipant)

	msgs, _ := h.messages.GetMessages(ctx, th.ID)
	if len(msgs) != 0 {
		t.Fatalf("messages = %d, want 0", len(msgs))
	}
}

func TestAppendUnknownThread(t *testing.T) {
	h := newHarness(t)
	_, err := h.messages.Append(context.Background(), uuid.New(), uuid.New(), "hello")
	mustKind(t, err, sentinal_errors.ErrNotFound)
}

func TestAppendValidatesContent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	th := h.connect(t, a, b)

	for _, content := range []string{"", "   \n", strings.Repeat("é", message.MaxContentLength+1)} {
		_, err := h.messages.Append(ctx, th.ID, a, content)
		mustKind(t, err, sentinal_errors.ErrValidation)
	}
	if _, err := h.messages.Append(ctx, th.ID, a, strings.Repeat("é", message.MaxContentLength)); err != nil {
		t.Fatalf("max length content: %v", err)
	}
}

func TestSenderHasReadOwnMessage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	th := h.connect(t, a, b)

	m, err := h.messaging.SendMessage(ctx, th.ID, a, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsReadBy(a) || m.IsReadBy(b) {
		t.Fatalf("readBy = %v", m.ReadBy)
	}
	if h.unread(t, a, th.ID) != 0 {
		t.Fatal("own message counted as unread")
	}
	if h.unread(t, b, th.ID) != 1 {
		t.Fatal("recipient should have one unread")
	}
}

func TestGetMessagesOrderedUnderConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	th := h.connect(t, a, b)

	const perSender = 20
	var wg sync.WaitGroup
	for _, sender := range []uuid.UUID{a, b} {
		wg.Add(1)
		go func(sender uuid.UUID) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				if _, err := h.messages.Append(ctx, th.ID, sender, fmt.Sprintf("msg %d", i)); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}(sender)
	}
	wg.Wait()

	msgs, err := h.messages.GetMessages(ctx, th.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2*perSender {
		t.Fatalf("messages = %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if !msgs[i-1].Before(msgs[i]) {
			t.Fatalf("message %d not after %d", i, i-1)
		}
		if msgs[i].Sequence != msgs[i-1].Sequence+1 {
			t.Fatalf("sequence gap at %d: %d -> %d", i, msgs[i-1].Sequence, msgs[i].Sequence)
		}
	}
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	th := h.connect(t, a, b)

	now := time.Now()
	h.messages.clock = func() time.Time { return now }
	first, _ := h.messages.Append(ctx, th.ID, a, "one")
	h.messages.clock = func() time.Time { return now.Add(-time.Hour) }
	second, _ := h.messages.Append(ctx, th.ID, b, "two")

	if second.CreatedAt.Before(first.CreatedAt) || second.Sequence <= first.Sequence {
		t.Fatalf("order broken: %v/%d then %v/%d", first.CreatedAt, first.Sequence, second.CreatedAt, second.Sequence)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	th := h.connect(t, a, b)
	for i := 0; i < 3; i++ {
		_, _ = h.messages.Append(ctx, th.ID, a, "x")
	}

	n, err := h.messages.MarkRead(ctx, th.ID, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("first mark = %d, want 3", n)
	}
	n, _ = h.messages.MarkRead(ctx, th.ID, b, 0)
	if n != 0 {
		t.Fatalf("second mark = %d, want 0", n)
	}
}

func TestMarkReadUpToLeavesLaterUnread(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	th := h.connect(t, a, b)
	first, _ := h.messages.Append(ctx, th.ID, a, "one")
	_, _ = h.messages.Append(ctx, th.ID, a, "two")

	if _, err := h.messages.MarkRead(ctx, th.ID, b, first.Sequence); err != nil {
		t.Fatal(err)
	}
	if got := h.unread(t, b, th.ID); got != 1 {
		t.Fatalf("unread = %d, want 1", got)
	}

	_, err := h.messages.MarkRead(ctx, th.ID, b, -1)
	mustKind(t, err, sentinal_errors.ErrValidation)
}

func TestMarkReadRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	th := h.connect(t, a, b)

	_, err := h.messaging.MarkRead(ctx, th.ID, uuid.New(), 0)
	mustKind(t, err, sentinal_errors.ErrNotParticipant)
}

func TestUnreadCacheIsInvalidated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	th := h.connect(t, a, b)

	if got := h.unread(t, b, th.ID); got != 0 {
		t.Fatalf("unread = %d", got)
	}
	if got := h.unread(t, b, th.ID); got != 0 || h.cache.hits != 1 {
		t.Fatalf("second read should hit the cache, hits = %d", h.cache.hits)
	}

	_, _ = h.messaging.SendMessage(ctx, th.ID, a, "new")
	if got := h.unread(t, b, th.ID); got != 1 {
		t.Fatalf("unread after append = %d, want 1", got)
	}
	if _, err := h.messaging.OpenThread(ctx, th.ID, b); err != nil {
		t.Fatal(err)
	}
	if got := h.unread(t, b, th.ID); got != 0 {
		t.Fatalf("unread after open = %d, want 0", got)
	}
}

func TestUnreadCountIgnoresCountRacedByAppend(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	th := h.connect(t, a, b)

	h.cache.beforeSet = func() {
		if _, err := h.messaging.SendMessage(ctx, th.ID, a, "hello"); err != nil {
			t.Errorf("send: %v", err)
		}
	}
	if got := h.unread(t, b, th.ID); got != 0 {
		t.Fatalf("unread computed before the append = %d, want 0", got)
	}
	if got := h.unread(t, b, th.ID); got != 1 {
		t.Fatalf("unread after the append committed = %d, want 1", got)
	}
	if got := h.unread(t, b, th.ID); got != 1 || h.cache.hits != 1 {
		t.Fatalf("unread = %d hits = %d, want 1 from cache", got, h.cache.hits)
	}
}
