package services

import (
	"context"
	"errors"
	"testing"
	"time"

	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

func TestIdentityTokenRoundTrip(t *testing.T) {
	identity := NewIdentityService("secret")
	userID := uuid.New()

	token, err := identity.IssueToken(userID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	got, err := identity.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != userID {
		t.Fatalf("user id = %s, want %s", got, userID)
	}
}

func TestIdentityRejectsBadTokens(t *testing.T) {
	identity := NewIdentityService("secret")
	other := NewIdentityService("other-secret")
	userID := uuid.New()

	foreign, _ := other.IssueToken(userID, time.Hour)
	expired, _ := identity.IssueToken(userID, -time.Minute)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong secret": foreign,
		"expired":      expired,
	} {
		if _, err := identity.ParseAccessToken(token); !errors.Is(err, sentinal_errors.ErrUnauthorized) {
			t.Errorf("%s: error = %v, want ErrUnauthorized", name, err)
		}
	}
}

func TestUserIDContext(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("empty context should carry no user")
	}
	userID := uuid.New()
	got, ok := UserIDFromContext(WithUserID(context.Background(), userID))
	if !ok || got != userID {
		t.Fatalf("got %s, %v", got, ok)
	}
}
