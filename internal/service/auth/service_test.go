package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Jose-cardos0/ONLYNEX/internal/service/subscription"
)

func seededStore(t *testing.T, disabled bool) *subscription.MemoryStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("onlynex"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store := subscription.NewMemoryStore()
	if err := store.CreateAccount(context.Background(), subscription.Account{
		Email: "ana@mail.com", DisplayName: "Ana", PasswordHash: string(hash), Disabled: disabled,
	}); err != nil {
		t.Fatalf("CreateAccount err: %v", err)
	}
	return store
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := NewService(seededStore(t, false), "secret", time.Hour)

	resp, err := svc.Login(context.Background(), " ANA@mail.com", "onlynex")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if resp.Name != "Ana" || resp.AccessToken == "" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	email, name, err := svc.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken err: %v", err)
	}
	if email != "ana@mail.com" || name != "Ana" {
		t.Fatalf("unexpected identity %q %q", email, name)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := NewService(seededStore(t, false), "secret", time.Hour)

	if _, err := svc.Login(context.Background(), "ana@mail.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "ghost@mail.com", "onlynex"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	svc := NewService(seededStore(t, true), "secret", time.Hour)
	if _, err := svc.Login(context.Background(), "ana@mail.com", "onlynex"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	current := issuedAt
	svc := NewService(nil, "secret", time.Hour).WithClock(func() time.Time { return current })

	token, _, err := svc.Issue("ana@mail.com", "Ana")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}

	current = issuedAt.Add(2 * time.Hour)
	if _, _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	current = issuedAt
	other := NewService(nil, "other-secret", time.Hour).WithClock(func() time.Time { return current })
	if _, _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature to fail, got %v", err)
	}
}
