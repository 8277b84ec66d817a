package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/internal/domain"
)

func TestSessionLifecycle(t *testing.T) {
	repo := newMockSessionRepo()
	uc := NewSessionUsecase(repo)
	ctx := context.Background()

	session, err := uc.Current(ctx, "sid")
	if err != nil {
		t.Fatalf("current failed: %v", err)
	}
	if session.HasCredential() {
		t.Fatalf("fresh session must not hold a credential")
	}

	entity := &concrnt.Entity{ID: testCCID, Tag: "_admin"}
	if _, err := uc.Replace(ctx, "sid", "token-a", entity); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if repo.puts != 1 {
		t.Fatalf("expected a single write, got %d", repo.puts)
	}

	// simulated reload: read back from storage
	reloaded, err := NewSessionUsecase(repo).Current(ctx, "sid")
	if err != nil {
		t.Fatalf("current failed: %v", err)
	}
	if !reloaded.HasCredential() || reloaded.Credential != "token-a" {
		t.Fatalf("credential lost across reload: %+v", reloaded)
	}
	if reloaded.Subject == nil || reloaded.Subject.CCID() != testCCID {
		t.Fatalf("subject lost across reload: %+v", reloaded.Subject)
	}
	if !reloaded.IsAdmin("_admin") {
		t.Fatalf("expected admin session")
	}

	if err := uc.Clear(ctx, "sid"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	cleared, _ := uc.Current(ctx, "sid")
	if cleared.HasCredential() {
		t.Fatalf("session must be empty after clear")
	}
}

func TestSessionReplaceRejectsEmpty(t *testing.T) {
	uc := NewSessionUsecase(newMockSessionRepo())
	ctx := context.Background()

	if _, err := uc.Replace(ctx, "sid", "", nil); !errors.Is(err, domain.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if _, err := uc.Replace(ctx, "", "token", nil); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestSessionCurrentWithoutID(t *testing.T) {
	uc := NewSessionUsecase(newMockSessionRepo())
	session, err := uc.Current(context.Background(), "")
	if err != nil || session.HasCredential() {
		t.Fatalf("expected empty session, got %+v %v", session, err)
	}
}
