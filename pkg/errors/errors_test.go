package sentinal_errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestReasonSentinelsMatchKind(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrDuplicateRequest, ErrConflict},
		{ErrAlreadyConnected, ErrConflict},
		{ErrAlreadyResolved, ErrConflict},
		{ErrBlocked, ErrForbidden},
		{ErrNotParticipant, ErrForbidden},
		{ErrNotRecipient, ErrForbidden},
		{ErrSelfRequest, ErrValidation},
		{ErrProvisioningDegraded, ErrUnavailable},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.kind) {
			t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.kind)
		}
	}
}

func TestReasonsAreDistinct(t *testing.T) {
	if errors.Is(ErrDuplicateRequest, ErrAlreadyConnected) {
		t.Fatal("duplicate request must not match already connected")
	}
	if errors.Is(ErrBlocked, ErrNotParticipant) {
		t.Fatal("blocked must not match not participant")
	}
}

func TestWrapKeepsMatching(t *testing.T) {
	cause := errors.New("thread store down")
	err := fmt.Errorf("accept: %w", Wrap(ErrProvisioningDegraded, cause))

	if !errors.Is(err, ErrProvisioningDegraded) {
		t.Fatal("wrapped error lost its reason")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatal("wrapped error lost its kind")
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error lost its cause")
	}
	if got := ReasonOf(err); got != ReasonProvisioningPending {
		t.Fatalf("ReasonOf = %q, want %q", got, ReasonProvisioningPending)
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(NotFound("thread")); got != KindNotFound {
		t.Fatalf("KindOf(NotFound) = %q", got)
	}
	if got := KindOf(fmt.Errorf("x: %w", ErrConflict)); got != KindConflict {
		t.Fatalf("KindOf(wrapped ErrConflict) = %q", got)
	}
	if got := KindOf(errors.New("boom")); got != "" {
		t.Fatalf("KindOf(plain) = %q, want empty", got)
	}
	if !IsNotFound(NotFound("request")) {
		t.Fatal("IsNotFound(NotFound) = false")
	}
}

func TestValidationMessage(t *testing.T) {
	err := Validation("message exceeds %d characters", 500)
	if err.Error() != "message exceeds 500 characters" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if ReasonOf(err) != ReasonNone {
		t.Fatal("plain validation error should carry no reason")
	}
}
