package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"sentinal-social/internal/domain/connection"
	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/events"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

func TestSubmitRejectsSecondPendingEitherDirection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()

	if _, err := h.requests.Submit(ctx, a, b, "hi"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := h.requests.Submit(ctx, a, b, "again")
	mustKind(t, err, sentinal_errors.ErrDuplicateRequest)
	_, err = h.requests.Submit(ctx, b, a, "hello back")
	mustKind(t, err, sentinal_errors.ErrDuplicateRequest)
	if !errors.Is(err, sentinal_errors.ErrConflict) {
		t.Fatal("duplicate request should be a conflict")
	}
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		from    uuid.UUID
		to      uuid.UUID
		message string
		want    error
	}{
		{"self request", a, a, "", sentinal_errors.ErrSelfRequest},
		{"missing recipient", a, uuid.Nil, "", sentinal_errors.ErrValidation},
		{"message too long", a, b, strings.Repeat("x", connection.MaxRequestMessageLength+1), sentinal_errors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.requests.Submit(ctx, tt.from, tt.to, tt.message)
			mustKind(t, err, tt.want)
		})
	}
}

func TestSubmitRespectsRelationship(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	h.connect(t, a, b)
	_, err := h.requests.Submit(ctx, b, a, "")
	mustKind(t, err, sentinal_errors.ErrAlreadyConnected)

	if _, err := h.requests.Block(ctx, c, a); err != nil {
		t.Fatal(err)
	}
	_, err = h.requests.Submit(ctx, a, c, "")
	mustKind(t, err, sentinal_errors.ErrBlocked)
}

func TestSubmitRateLimited(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	limiter := &fakeLimiter{allow: false}
	h.requests.SetLimiter(limiter)

	_, err := h.requests.Submit(ctx, uuid.New(), uuid.New(), "")
	mustKind(t, err, sentinal_errors.ErrRateLimited)

	// limiter outage lets the request through
	limiter.err = errors.New("redis down")
	if _, err := h.requests.Submit(ctx, uuid.New(), uuid.New(), ""); err != nil {
		t.Fatalf("submit with failing limiter: %v", err)
	}
	if limiter.calls != 2 {
		t.Fatalf("limiter calls = %d, want 2", limiter.calls)
	}
}

func TestAcceptTwiceIsAlreadyResolved(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()

	req, err := h.requests.Submit(ctx, a, b, "hi")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.requests.Accept(ctx, req.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, err = h.requests.Accept(ctx, req.ID)
	mustKind(t, err, sentinal_errors.ErrAlreadyResolved)

	for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
		status, err := h.rels.Get(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if status != relationship.StatusConnected {
			t.Fatalf("status(%s, %s) = %s, want CONNECTED", pair[0], pair[1], status)
		}
	}

	stored, err := h.requests.Get(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != connection.RequestStatusAccepted || !stored.ResolvedAt.Valid {
		t.Fatalf("stored request = %+v, want accepted with resolvedAt", stored)
	}
}

func TestConcurrentAcceptSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	req, err := h.requests.Submit(ctx, a, b, "")
	if err != nil {
		t.Fatal(err)
	}

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		resolved int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.requests.Accept(ctx, req.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, sentinal_errors.ErrAlreadyResolved):
				resolved++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || resolved != workers-1 {
		t.Fatalf("ok = %d, already resolved = %d", ok, resolved)
	}
}

func TestAcceptUnknownRequest(t *testing.T) {
	h := newHarness(t)
	_, err := h.requests.Accept(context.Background(), uuid.New())
	mustKind(t, err, sentinal_errors.ErrNotFound)
	err = h.requests.Decline(context.Background(), uuid.New())
	mustKind(t, err, sentinal_errors.ErrNotFound)
}

func TestAcceptAsRequiresRecipient(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	req, _ := h.requests.Submit(ctx, a, b, "")

	_, err := h.requests.AcceptAs(ctx, req.ID, a)
	mustKind(t, err, sentinal_errors.ErrNotRecipient)

	stored, _ := h.requests.Get(ctx, req.ID)
	if !stored.IsPending() {
		t.Fatal("rejected accept changed the request")
	}
}

func TestDeclineScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()

	req, err := h.messaging.SubmitConnectionRequest(ctx, a, b, "hi")
	if err != nil {
		t.Fatal(err)
	}
	incoming, _ := h.messaging.ListIncomingRequests(ctx, b)
	if len(incoming) != 1 || incoming[0].ID != req.ID || incoming[0].Message != "hi" {
		t.Fatalf("incoming = %+v", incoming)
	}
	if status, _ := h.messaging.GetRelationship(ctx, a, b); status != relationship.StatusPending {
		t.Fatalf("status while pending = %s", status)
	}

	if err := h.messaging.DeclineConnectionRequest(ctx, req.ID, b); err != nil {
		t.Fatal(err)
	}
	outgoing, _ := h.messaging.ListOutgoingRequests(ctx, a)
	if len(outgoing) != 0 {
		t.Fatalf("outgoing after decline = %+v", outgoing)
	}
	if status, _ := h.messaging.GetRelationship(ctx, a, b); status != relationship.StatusNone {
		t.Fatalf("status after decline = %s, want NONE", status)
	}
	err = h.messaging.DeclineConnectionRequest(ctx, req.ID, b)
	mustKind(t, err, sentinal_errors.ErrAlreadyResolved)

	if _, err := h.messaging.SubmitConnectionRequest(ctx, a, b, "try again"); err != nil {
		t.Fatalf("resubmit after decline: %v", err)
	}
}

func TestSenderCanWithdraw(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	req, _ := h.requests.Submit(ctx, a, b, "")

	err := h.requests.DeclineAs(ctx, req.ID, c)
	mustKind(t, err, sentinal_errors.ErrForbidden)

	if err := h.requests.DeclineAs(ctx, req.ID, a); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
}

func TestBlockDeclinesPendingRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	req, _ := h.requests.Submit(ctx, a, b, "")

	rel, err := h.requests.Block(ctx, b, a)
	if err != nil {
		t.Fatal(err)
	}
	if rel.Status != relationship.StatusBlocked || !rel.BlockedBy.Valid || rel.BlockedBy.UUID != b {
		t.Fatalf("relationship = %+v", rel)
	}
	stored, _ := h.requests.Get(ctx, req.ID)
	if stored.Status != connection.RequestStatusDeclined {
		t.Fatalf("request status = %s, want DECLINED", stored.Status)
	}
	if incoming, _ := h.requests.ListIncoming(ctx, b); len(incoming) != 0 {
		t.Fatal("blocked pair still has an incoming request")
	}

	// blocking again keeps the original blocker
	again, err := h.requests.Block(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if again.BlockedBy.UUID != b {
		t.Fatalf("blocker changed to %s", again.BlockedBy.UUID)
	}
}

func TestSetCannotBlockAroundPendingRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	req, _ := h.requests.Submit(ctx, a, b, "")

	err := h.rels.Set(ctx, b, a, relationship.StatusBlocked)
	mustKind(t, err, sentinal_errors.ErrValidation)

	if status, _ := h.rels.Get(ctx, a, b); status != relationship.StatusNone {
		t.Fatalf("status = %s, want NONE", status)
	}
	stored, _ := h.requests.Get(ctx, req.ID)
	if stored.Status != connection.RequestStatusPending {
		t.Fatalf("request status = %s, want PENDING", stored.Status)
	}
}

func TestUnblockOnlyByBlocker(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	if _, err := h.requests.Block(ctx, a, b); err != nil {
		t.Fatal(err)
	}

	err := h.requests.Unblock(ctx, b, a)
	mustKind(t, err, sentinal_errors.ErrForbidden)

	if err := h.requests.Unblock(ctx, a, b); err != nil {
		t.Fatal(err)
	}
	if status, _ := h.rels.Get(ctx, a, b); status != relationship.StatusNone {
		t.Fatalf("status after unblock = %s", status)
	}
	if _, err := h.requests.Submit(ctx, b, a, ""); err != nil {
		t.Fatalf("submit after unblock: %v", err)
	}
}

func TestSubmitAndAcceptNotify(t *testing.T) {
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	th := h.connect(t, a, b)

	received := h.published.ofType(events.EventRequestReceived)
	if len(received) != 1 || received[0].Recipients()[0] != b {
		t.Fatalf("request received events = %+v", received)
	}
	accepted := h.published.ofType(events.EventRequestAccepted)
	if len(accepted) != 1 {
		t.Fatalf("request accepted events = %d", len(accepted))
	}
	ev := accepted[0].(*events.RequestAcceptedEvent)
	if ev.Recipients()[0] != a || ev.ThreadID == nil || *ev.ThreadID != th.ID {
		t.Fatalf("accepted event = %+v", ev)
	}
}

func TestPublishFailureDoesNotFailSubmit(t *testing.T) {
	h := newHarness(t)
	h.published.err = errors.New("broker down")
	if _, err := h.requests.Submit(context.Background(), uuid.New(), uuid.New(), ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
}
