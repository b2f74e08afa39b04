package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diagnosis/seatrips/pkg/logger"
)

type memIdempotency struct {
	mu    sync.Mutex
	data  map[string]string
	locks map[string]bool
}

func (m *memIdempotency) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrIdempotencyMiss
	}
	return v, nil
}

func (m *memIdempotency) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memIdempotency) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks == nil {
		m.locks = make(map[string]bool)
	}
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *memIdempotency) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(logger.RequestIDKey).(string)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen != "abc" || rr.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("Expected request id to propagate, got %q", seen)
	}
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	calls := 0
	h := Idempotency(&memIdempotency{data: map[string]string{}}, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "k1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated || rr.Body.String() != `{"id":1}` {
			t.Fatalf("Attempt %d: unexpected response %d %s", i, rr.Code, rr.Body.String())
		}
	}
	if calls != 1 {
		t.Fatalf("Expected handler to run once, ran %d times", calls)
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	calls := 0
	h := Idempotency(&memIdempotency{data: map[string]string{}}, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
		req.Header.Set("Idempotency-Key", "k1")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("Expected failures to be retried, ran %d times", calls)
	}
}

func TestIdempotency_ConcurrentRepeatRunsOnce(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	store := &memIdempotency{data: map[string]string{}}
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "k1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- send() }()
	<-started

	second := send()
	if second.Code != http.StatusConflict {
		t.Fatalf("Expected 409 while the first request runs, got %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), "IDEMPOTENCY_IN_FLIGHT") {
		t.Fatalf("Unexpected conflict body: %s", second.Body.String())
	}

	close(release)
	if rr := <-first; rr.Code != http.StatusCreated {
		t.Fatalf("Expected first request to succeed, got %d", rr.Code)
	}

	third := send()
	if third.Code != http.StatusCreated || third.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("Expected replay after completion, got %d %v", third.Code, third.Header())
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("Expected handler to run once, ran %d times", n)
	}
	if len(store.locks) != 0 {
		t.Fatalf("Expected key to be released, got %v", store.locks)
	}
}

func TestIdempotency_FailureReleasesKey(t *testing.T) {
	store := &memIdempotency{data: map[string]string{}}
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
		req.Header.Set("Idempotency-Key", "k1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadGateway {
			t.Fatalf("Attempt %d: expected the retry to reach the handler, got %d", i, rr.Code)
		}
	}
	if len(store.locks) != 0 {
		t.Fatalf("Expected no lock left behind, got %v", store.locks)
	}
}

func TestIdempotency_ScopedKeys(t *testing.T) {
	calls := 0
	scope := func(r *http.Request) string { return r.Header.Get("X-Scope") }
	h := Idempotency(&memIdempotency{data: map[string]string{}}, time.Hour, scope)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{}`))
	}))

	for _, s := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
		req.Header.Set("Idempotency-Key", "same")
		req.Header.Set("X-Scope", s)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("Keys must not collide across scopes, ran %d times", calls)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Limit(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("Unexpected codes %v", codes)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("Other clients must have their own bucket, got %d", rr.Code)
	}

	rl.Sweep(-time.Second)
	if len(rl.visitors) != 0 {
		t.Fatalf("Expected sweep to drop idle visitors, %d left", len(rl.visitors))
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}
}
