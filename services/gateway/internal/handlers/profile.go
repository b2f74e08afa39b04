package handlers

import (
	"net/http"

	"github.com/diagnosis/seatrips/internal/calendar"
	"github.com/diagnosis/seatrips/internal/domain"
	"github.com/diagnosis/seatrips/internal/http/response"
	"github.com/diagnosis/seatrips/internal/utils"
	"github.com/diagnosis/seatrips/pkg/logger"
)

func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.client(ctx).Profile(ctx)
	if err != nil {
		h.apiError(w, r, err, "Не удалось загрузить профиль")
		return
	}
	h.cacheUser(r, user)
	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		response.BadRequest(w, "Invalid JSON")
		return
	}
	if patch.Phone != nil {
		phone := utils.NormalizePhone(*patch.Phone)
		if phone != "" && !utils.IsValidPhone(phone) {
			response.ValidationFailed(w, "Введите корректный телефон", map[string]string{"phone": "Введите корректный телефон"})
			return
		}
		patch.Phone = &phone
	}

	ctx := r.Context()
	user, err := h.client(ctx).UpdateProfile(ctx, patch)
	if err != nil {
		h.apiError(w, r, err, "Не удалось сохранить профиль")
		return
	}
	h.cacheUser(r, user)
	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) cacheUser(r *http.Request, user *domain.User) {
	ctx := r.Context()
	st := sessionState(ctx)
	if st == nil || user == nil {
		return
	}
	st.User = user
	if err := h.sessions.Set(ctx, sessionID(ctx), st); err != nil {
		logger.WarnContext(ctx, "Failed to cache profile", "error", err)
	}
}

func (h *Handlers) Finances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fin, err := h.client(ctx).Finances(ctx)
	if err != nil {
		h.apiError(w, r, err, "Не удалось загрузить финансы")
		return
	}
	writeJSON(w, http.StatusOK, fin)
}

func (h *Handlers) Verification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := h.client(ctx).VerificationStatus(ctx)
	if err != nil {
		h.apiError(w, r, err, "Не удалось загрузить статус верификации")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Calendar returns the month grid for ?month=YYYY-MM, defaulting to the
// current month.
func (h *Handlers) Calendar(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	month := calendar.CurrentMonth(now)
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := calendar.MonthOf(raw)
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}
		month = m
	}

	ctx := r.Context()
	data, err := h.client(ctx).Calendar(ctx, month.String())
	if err != nil {
		h.apiError(w, r, err, "Не удалось загрузить календарь")
		return
	}
	writeJSON(w, http.StatusOK, calendar.Build(month, data, domain.DateOf(now)))
}
