package memory

import (
	"context"
	"errors"
	"testing"

	"competiquest/internal/domain"
)

func TestUserStoreUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	if err := store.CreateUser(ctx, domain.User{ID: "u1", Username: "alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u2", Username: "alice", Email: "other@example.com"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u3", Username: "al", Email: "ALICE@example.com"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	if _, err := store.FindByUsername(ctx, "bob"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestUserStoreHistory(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	_ = store.CreateUser(ctx, domain.User{ID: "u1", Username: "alice", Email: "a@example.com"})

	_ = store.AppendHistory(ctx, "u1", "a1")
	_ = store.AppendHistory(ctx, "u1", "a2")
	_ = store.AppendHistory(ctx, "u1", "a1")
	if got := store.History("u1"); len(got) != 2 || got[0] != "a1" || got[1] != "a2" {
		t.Fatalf("unexpected history %v", got)
	}
	_ = store.RemoveHistory(ctx, "u1", "a1")
	if got := store.History("u1"); len(got) != 1 || got[0] != "a2" {
		t.Fatalf("unexpected history after remove %v", got)
	}
	if err := store.AppendHistory(ctx, "ghost", "a3"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
