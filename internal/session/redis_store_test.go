package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"discograph/api/internal/store"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreWithClient(client), mr
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	user := store.User{ID: 7, Username: "kim", Role: "moderator"}
	if err := s.SaveRefreshSession(ctx, "hash-1", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := s.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 7 || got.Username != "kim" || got.Role != "moderator" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestLookupUnknownSession(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.LookupRefreshSession(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	user := store.User{ID: 7, Username: "kim", Role: "editor"}
	if err := s.SaveRefreshSession(ctx, "hash-1", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.RevokeRefreshSession(ctx, "hash-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LookupRefreshSession(ctx, "hash-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after revoke, got %v", err)
	}
}

func TestSessionExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	user := store.User{ID: 7, Username: "kim", Role: "editor"}
	if err := s.SaveRefreshSession(ctx, "hash-1", user, time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := s.LookupRefreshSession(ctx, "hash-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}
