package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/diagnosis/seatrips/internal/apiclient"
	"github.com/diagnosis/seatrips/internal/booking"
	"github.com/diagnosis/seatrips/internal/http/response"
	"github.com/diagnosis/seatrips/internal/loginguard"
	"github.com/diagnosis/seatrips/internal/pricing"
	"github.com/diagnosis/seatrips/internal/promo"
	"github.com/diagnosis/seatrips/internal/session"
	"github.com/diagnosis/seatrips/pkg/auth"
	"github.com/diagnosis/seatrips/pkg/events"
	"github.com/diagnosis/seatrips/pkg/logger"
	"github.com/diagnosis/seatrips/services/gateway/internal/proxy"
)

type ctxKey string

const (
	sessionIDKey    ctxKey = "session_id"
	sessionStateKey ctxKey = "session_state"
)

type Options struct {
	SessionSecret string
	SessionTTL    time.Duration
	Limits        booking.Limits
}

type Handlers struct {
	api      *apiclient.Client
	sessions session.Store
	guard    *loginguard.Guard
	previews *promo.Previewer
	pricing  *pricing.Calculator
	proxy    *proxy.ServiceProxy
	bus      events.Publisher
	validate *validator.Validate
	opts     Options
	now      func() time.Time
}

func New(api *apiclient.Client, sessions session.Store, guard *loginguard.Guard, previews *promo.Previewer,
	calc *pricing.Calculator, serviceProxy *proxy.ServiceProxy, bus events.Publisher, opts Options) *Handlers {
	if bus == nil {
		bus = events.NoopBus{}
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	return &Handlers{
		api:      api,
		sessions: sessions,
		guard:    guard,
		previews: previews,
		pricing:  calc,
		proxy:    serviceProxy,
		bus:      bus,
		validate: newValidator(),
		opts:     opts,
		now:      time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(v)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil {
		return 0
	}
	return n
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func sessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

func sessionState(ctx context.Context) *session.State {
	st, _ := ctx.Value(sessionStateKey).(*session.State)
	return st
}

// client returns an API client carrying the caller's upstream token, or an
// anonymous one when there is no signed-in session.
func (h *Handlers) client(ctx context.Context) *apiclient.Client {
	if st := sessionState(ctx); st.Authenticated() {
		return h.api.WithToken(st.Token)
	}
	return h.api.WithToken("")
}

func (h *Handlers) loadSession(r *http.Request) (string, *session.State, error) {
	token := bearerToken(r)
	if token == "" {
		return "", nil, auth.ErrInvalidToken
	}
	claims, err := auth.Parse(token, h.opts.SessionSecret)
	if err != nil {
		return "", nil, err
	}
	st, err := h.sessions.Get(r.Context(), claims.Sid)
	if err != nil {
		return claims.Sid, nil, err
	}
	return claims.Sid, st, nil
}

func (h *Handlers) withSession(r *http.Request, sid string, st *session.State) *http.Request {
	ctx := context.WithValue(r.Context(), sessionIDKey, sid)
	ctx = context.WithValue(ctx, sessionStateKey, st)
	ctx = context.WithValue(ctx, logger.SessionIDKey, sid)
	if st.User != nil {
		ctx = context.WithValue(ctx, logger.UserIDKey, st.User.ID)
	}
	return r.WithContext(ctx)
}

// RequireSession rejects requests without a valid gateway session token.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, st, err := h.loadSession(r)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) && !errors.Is(err, auth.ErrInvalidToken) {
				logger.DebugContext(r.Context(), "Session rejected", "error", err)
			}
			response.Unauthorized(w, "Session required")
			return
		}
		next.ServeHTTP(w, h.withSession(r, sid, st))
	})
}

// OptionalSession attaches the session when one is presented and valid.
func (h *Handlers) OptionalSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r) == "" {
			next.ServeHTTP(w, r)
			return
		}
		sid, st, err := h.loadSession(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, h.withSession(r, sid, st))
	})
}

// RequireAuth must run after RequireSession; it demands a signed-in user.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessionState(r.Context()).Authenticated() {
			response.Unauthorized(w, "Login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// teardown is the one place a session loses its credentials after the
// upstream API rejected its token.
func (h *Handlers) teardown(ctx context.Context, reason string) {
	sid := sessionID(ctx)
	if sid == "" {
		return
	}
	if err := h.sessions.Clear(ctx, sid); err != nil {
		logger.ErrorContext(ctx, "Failed to clear session", "error", err)
	}
	h.previews.Forget(sid)
	events.PublishAsync(ctx, h.bus, events.SessionCleared, events.SessionClearedEvent{
		SessionID: sid,
		Reason:    reason,
		ClearedAt: h.now(),
	})
	logger.InfoContext(ctx, "Session cleared", "reason", reason)
}

// apiError answers with the gateway error for an upstream failure. A
// rejected token tears the session down first.
func (h *Handlers) apiError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if apiclient.IsUnauthorized(err) {
		h.teardown(r.Context(), "upstream_unauthorized")
		response.Unauthorized(w, apiclient.MessageOf(err, "Session expired"))
		return
	}
	if apiclient.KindOf(err) == apiclient.KindTransport || apiclient.KindOf(err) == apiclient.KindUnexpected {
		logger.ErrorContext(r.Context(), "Upstream request failed", "error", err)
	}
	response.FromAPIError(w, err, fallback)
}
