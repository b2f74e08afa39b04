package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/diagnosis/seatrips/internal/apiclient"
	"github.com/diagnosis/seatrips/internal/domain"
	"github.com/diagnosis/seatrips/internal/http/response"
	"github.com/diagnosis/seatrips/internal/loginguard"
	"github.com/diagnosis/seatrips/internal/session"
	"github.com/diagnosis/seatrips/internal/utils"
	"github.com/diagnosis/seatrips/pkg/auth"
	"github.com/diagnosis/seatrips/pkg/events"
	"github.com/diagnosis/seatrips/pkg/logger"
)

type sessionResponse struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type bookingDefaults struct {
	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`
}

type sessionInfo struct {
	Authenticated       bool             `json:"authenticated"`
	User                *domain.User     `json:"user,omitempty"`
	NeedsVerification   bool             `json:"needs_verification"`
	LoginFailedAttempts int              `json:"login_failed_attempts"`
	LoginBlockedUntil   *time.Time       `json:"login_blocked_until,omitempty"`
	BookingDefaults     *bookingDefaults `json:"booking_defaults,omitempty"`
}

// OpenSession issues a fresh anonymous session.
func (h *Handlers) OpenSession(w http.ResponseWriter, r *http.Request) {
	sid, token, err := auth.NewSessionToken(h.opts.SessionSecret, h.opts.SessionTTL)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to sign session token", "error", err)
		response.InternalError(w, "Failed to open session")
		return
	}
	if err := h.sessions.Set(r.Context(), sid, &session.State{}); err != nil {
		logger.ErrorContext(r.Context(), "Failed to store session", "error", err)
		response.InternalError(w, "Failed to open session")
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionToken: token,
		ExpiresAt:    h.now().Add(h.opts.SessionTTL),
	})
}

// GetSession reports what the browser needs on start-up. The profile is
// refreshed for booking pre-fill; if that fails the cached user is used.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := sessionState(ctx)

	info := sessionInfo{
		Authenticated:       st.Authenticated(),
		LoginFailedAttempts: st.LoginFailedAttempts,
	}
	if st.Blocked(h.now()) {
		until := st.LoginBlockUntil
		info.LoginBlockedUntil = &until
	}

	if st.Authenticated() {
		user := st.User
		fresh, err := h.client(ctx).Profile(ctx)
		switch {
		case err == nil:
			user = fresh
			st.User = fresh
			if err := h.sessions.Set(ctx, sessionID(ctx), st); err != nil {
				logger.WarnContext(ctx, "Failed to cache refreshed profile", "error", err)
			}
		case apiclient.IsUnauthorized(err):
			h.teardown(ctx, "upstream_unauthorized")
			info.Authenticated = false
			user = nil
		default:
			logger.WarnContext(ctx, "Profile pre-fill failed", "error", err)
		}
		if user != nil {
			info.User = user
			info.NeedsVerification = user.NeedsVerification()
			info.BookingDefaults = &bookingDefaults{
				GuestName:  user.DisplayName(),
				GuestPhone: user.Phone,
			}
		}
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON")
		return
	}
	req.Email = utils.NormalizeEmail(req.Email)
	if err := h.validate.Struct(req); err != nil {
		fields := validationFields(err)
		response.ValidationFailed(w, firstMessage(fields, "email", "password"), fields)
		return
	}

	if err := h.guard.Check(ctx, sid); err != nil {
		h.loginRejected(w, r, req.Email, err)
		return
	}

	resp, err := h.api.Login(ctx, req)
	if err != nil {
		kind := apiclient.KindOf(err)
		if kind == apiclient.KindValidation || kind == apiclient.KindUnauthorized {
			h.loginRejected(w, r, req.Email, h.guard.Failure(ctx, sid, req.Email))
			return
		}
		h.apiError(w, r, err, "Не удалось выполнить вход")
		return
	}

	if err := h.guard.Success(ctx, sid); err != nil {
		logger.WarnContext(ctx, "Failed to reset login counters", "error", err)
	}
	st := &session.State{Token: resp.Token, User: resp.User}
	if err := h.sessions.Set(ctx, sid, st); err != nil {
		logger.ErrorContext(ctx, "Failed to store login", "error", err)
		response.InternalError(w, "Failed to store session")
		return
	}
	h.previews.Forget(sid)

	events.PublishAsync(ctx, h.bus, events.LoginSucceeded, events.LoginEvent{SessionID: sid, Email: req.Email})
	logger.InfoContext(ctx, "Login succeeded", "email", req.Email)

	writeJSON(w, http.StatusOK, map[string]any{"user": resp.User})
}

func (h *Handlers) loginRejected(w http.ResponseWriter, r *http.Request, email string, err error) {
	ctx := r.Context()
	sid := sessionID(ctx)

	var blocked *loginguard.BlockedError
	var failure *loginguard.FailureError
	switch {
	case errors.As(err, &blocked):
		events.PublishAsync(ctx, h.bus, events.LoginLocked, events.LoginEvent{SessionID: sid, Email: email, BlockedAt: h.now()})
		logger.WarnContext(ctx, "Login blocked", "email", email, "until", blocked.Until)
		w.Header().Set("Retry-After", retryAfter(blocked.Until, h.now()))
		response.Write(w, http.StatusTooManyRequests, response.ErrorResponse{
			Error:   blocked.Error(),
			Code:    response.CodeLoginBlocked,
			Details: blocked.Until.UTC().Format(time.RFC3339),
		})
	case errors.As(err, &failure):
		events.PublishAsync(ctx, h.bus, events.LoginFailed, events.LoginEvent{SessionID: sid, Email: email, Remaining: failure.Remaining})
		response.WriteError(w, http.StatusBadRequest, failure.Error(), response.CodeLoginFailed)
	default:
		logger.ErrorContext(ctx, "Login guard failed", "error", err)
		response.InternalError(w, "Не удалось выполнить вход")
	}
}

func retryAfter(until, now time.Time) string {
	secs := int(until.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON")
		return
	}
	req.Email = utils.NormalizeEmail(req.Email)
	req.Phone = utils.NormalizePhone(req.Phone)
	if req.Role == "" {
		req.Role = domain.RoleCustomer
	}
	if err := h.validate.Struct(req); err != nil {
		fields := validationFields(err)
		response.ValidationFailed(w, firstMessage(fields, "email", "password", "password2", "role"), fields)
		return
	}

	resp, err := h.api.Register(ctx, req)
	if err != nil {
		h.apiError(w, r, err, "Ошибка при регистрации")
		return
	}

	if resp.Token != "" {
		if err := h.sessions.Set(ctx, sessionID(ctx), &session.State{Token: resp.Token, User: resp.User}); err != nil {
			logger.WarnContext(ctx, "Failed to store registration login", "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": resp.User, "authenticated": resp.Token != ""})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.sessions.Clear(ctx, sessionID(ctx)); err != nil {
		logger.ErrorContext(ctx, "Failed to clear session", "error", err)
		response.InternalError(w, "Failed to log out")
		return
	}
	h.previews.Forget(sessionID(ctx))
	w.WriteHeader(http.StatusNoContent)
}
