package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/internal/domain"
)

func TestSessionKey(t *testing.T) {
	a := sessionKey("2b1f5a4e-0f6c-4e8a-9d55-2f6f8d1f7a10")
	b := sessionKey("2b1f5a4e-0f6c-4e8a-9d55-2f6f8d1f7a11")
	if !strings.HasPrefix(a, "session:") || a == b {
		t.Fatalf("unexpected keys %s %s", a, b)
	}
	if sessionKey("same") != sessionKey("same") {
		t.Fatalf("key derivation must be stable")
	}
}

func TestMemorySessionRepository(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "sid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	session := domain.Session{
		ID:         "sid",
		Credential: "token",
		Subject:    &concrnt.Entity{ID: "con1a", Tag: "_admin"},
	}
	if err := repo.Put(ctx, session); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := repo.Get(ctx, "sid")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ID != "sid" || got.Credential != "token" || got.Subject == nil || got.Subject.Tag != "_admin" {
		t.Fatalf("unexpected session %+v", got)
	}

	// stored copies must not alias the caller's entity
	session.Subject.Tag = "changed"
	got, _ = repo.Get(ctx, "sid")
	if got.Subject.Tag != "_admin" {
		t.Fatalf("stored session was mutated through the caller")
	}

	if err := repo.Delete(ctx, "sid"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, "sid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemorySessionRepositoryWithoutSubject(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	if err := repo.Put(ctx, domain.Session{ID: "sid", Credential: "token"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := repo.Get(ctx, "sid")
	if err != nil || got.Subject != nil || !got.HasCredential() {
		t.Fatalf("unexpected session %+v %v", got, err)
	}
}

func TestMemcachedExpiration(t *testing.T) {
	short := &MemcachedSessionRepository{ttl: time.Hour}
	if short.expiration() != 3600 {
		t.Fatalf("expected relative expiration, got %d", short.expiration())
	}

	long := &MemcachedSessionRepository{ttl: 60 * 24 * time.Hour}
	if int64(long.expiration()) < time.Now().Unix() {
		t.Fatalf("expected absolute expiration, got %d", long.expiration())
	}
}
