package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/seatrips/pkg/logger"
)

var ErrIdempotencyMiss = errors.New("idempotency key not found")

// IdempotencyStore keeps replayable responses keyed by a hashed
// Idempotency-Key header. Reserve claims a key while its first request is
// running and reports false when another request holds it.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrIdempotencyMiss
	}
	return val, err
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key+":lock", "1", ttl).Result()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key+":lock").Err()
}

type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// lockTTL bounds how long a crashed request can hold a key.
const lockTTL = time.Minute

// Idempotency replays the first successful response for a repeated
// Idempotency-Key on POST requests. Scope narrows keys, e.g. to a session.
// A repeat that arrives while the first request is still running gets 409.
func Idempotency(store IdempotencyStore, ttl time.Duration, scope func(r *http.Request) string) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if scope != nil {
				key = scope(r) + ":" + key
			}

			hasher := sha256.New()
			hasher.Write([]byte(r.URL.Path + "|" + key))
			hashedKey := fmt.Sprintf("idempotency:%x", hasher.Sum(nil))

			if replay(w, r, store, hashedKey) {
				return
			}

			reserved, err := store.Reserve(r.Context(), hashedKey, lockTTL)
			if err != nil {
				logger.WarnContext(r.Context(), "Failed to reserve idempotency key", "error", err)
				writeJSONError(w, http.StatusServiceUnavailable, "Idempotency store unavailable", "IDEMPOTENCY_UNAVAILABLE")
				return
			}
			if !reserved {
				// The holder may have finished between Get and Reserve.
				if replay(w, r, store, hashedKey) {
					return
				}
				writeJSONError(w, http.StatusConflict, "Request with this Idempotency-Key is already in progress", "IDEMPOTENCY_IN_FLIGHT")
				return
			}
			defer func() {
				if err := store.Release(context.WithoutCancel(r.Context()), hashedKey); err != nil {
					logger.WarnContext(r.Context(), "Failed to release idempotency key", "error", err)
				}
			}()

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode >= 200 && recorder.statusCode < 300 {
				payload, _ := json.Marshal(cachedResponse{Status: recorder.statusCode, Body: string(recorder.body)})
				if err := store.Set(context.WithoutCancel(r.Context()), hashedKey, string(payload), ttl); err != nil {
					logger.WarnContext(r.Context(), "Failed to store idempotent response", "error", err)
				}
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, store IdempotencyStore, key string) bool {
	existing, err := store.Get(r.Context(), key)
	if err != nil || existing == "" {
		return false
	}
	var cached cachedResponse
	if json.Unmarshal([]byte(existing), &cached) != nil || cached.Status == 0 {
		return false
	}
	logger.InfoContext(r.Context(), "Replaying idempotent response", "path", r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.Status)
	w.Write([]byte(cached.Body))
	return true
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(body []byte) (int, error) {
	r.body = append(r.body, body...)
	return r.ResponseWriter.Write(body)
}
