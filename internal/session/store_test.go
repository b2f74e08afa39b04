package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/seatrips/internal/domain"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	id := uuid.NewString()

	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for new id, got %v", err)
	}

	st := &State{Token: "tok", User: &domain.User{ID: 4, Email: "a@b.ru", Role: domain.RoleBoatOwner}}
	if err := store.Set(ctx, id, st); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Token != "tok" || got.User == nil || got.User.Role != domain.RoleBoatOwner {
		t.Fatalf("Unexpected state %+v", got)
	}

	n, err := store.IncrLoginAttempts(ctx, id, "a@b.ru")
	if err != nil || n != 1 {
		t.Fatalf("Expected 1 attempt, got %d (%v)", n, err)
	}
	n, _ = store.IncrLoginAttempts(ctx, id, "a@b.ru")
	if n != 2 {
		t.Fatalf("Expected 2 attempts, got %d", n)
	}
	n, _ = store.IncrLoginAttempts(ctx, id, "other@b.ru")
	if n != 1 {
		t.Fatalf("Email change must restart the count, got %d", n)
	}

	until := time.Now().Add(5 * time.Minute).Truncate(time.Millisecond)
	if err := store.SetLoginBlock(ctx, id, until); err != nil {
		t.Fatalf("SetLoginBlock: %v", err)
	}
	got, _ = store.Get(ctx, id)
	if !got.LoginBlockUntil.Equal(until) || !got.Blocked(time.Now()) {
		t.Fatalf("Expected block until %s, got %s", until, got.LoginBlockUntil)
	}

	if err := store.Clear(ctx, id); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ = store.Get(ctx, id)
	if got.Authenticated() || got.User != nil {
		t.Fatalf("Clear must drop credentials, got %+v", got)
	}
	if got.LoginFailedAttempts != 1 || got.LoginEmail != "other@b.ru" {
		t.Fatalf("Clear must keep lockout counters, got %+v", got)
	}

	if err := store.ResetLogin(ctx, id); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	got, _ = store.Get(ctx, id)
	if got.LoginFailedAttempts != 0 || !got.LoginBlockUntil.IsZero() {
		t.Fatalf("ResetLogin left %+v", got)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after Delete, got %v", err)
	}
}

func exerciseConcurrentIncr(t *testing.T, store Store) {
	ctx := context.Background()
	id := uuid.NewString()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrLoginAttempts(ctx, id, "tabs@b.ru"); err != nil {
				t.Errorf("IncrLoginAttempts: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LoginFailedAttempts != 20 {
		t.Fatalf("Lost increments: expected 20, got %d", got.LoginFailedAttempts)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
	exerciseConcurrentIncr(t, NewMemoryStore(time.Hour))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	ctx := context.Background()
	if err := store.Set(ctx, "s", &State{Token: "t"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "s"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected expired session, got %v", err)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	store.Set(ctx, "s", &State{User: &domain.User{FirstName: "A"}})

	got, _ := store.Get(ctx, "s")
	got.User.FirstName = "B"

	again, _ := store.Get(ctx, "s")
	if again.User.FirstName != "A" {
		t.Fatal("Get must not expose stored state")
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	exerciseStore(t, NewRedisStore(client, time.Hour))
	exerciseConcurrentIncr(t, NewRedisStore(client, time.Hour))
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool, time.Hour)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	exerciseStore(t, store)
	exerciseConcurrentIncr(t, store)
}

func TestPostgresStore_ExpiredRowStartsOver(t *testing.T) {
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool, 200*time.Millisecond)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	id := uuid.NewString()
	if err := store.Set(ctx, id, &State{Token: "old-token"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	store.IncrLoginAttempts(ctx, id, "a@b.ru")
	if n, _ := store.IncrLoginAttempts(ctx, id, "a@b.ru"); n != 2 {
		t.Fatalf("Expected 2 attempts, got %d", n)
	}

	time.Sleep(400 * time.Millisecond)

	n, err := store.IncrLoginAttempts(ctx, id, "a@b.ru")
	if err != nil {
		t.Fatalf("IncrLoginAttempts: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expired session must restart the count, got %d", n)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Token != "" {
		t.Fatalf("Expired credentials must not come back, got token %q", got.Token)
	}
}
