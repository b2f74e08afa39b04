package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/seatrips/internal/http/response"
)

func (h *Handlers) Articles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.api.Articles(ctx, queryInt(r, "page"))
	if err != nil {
		h.apiError(w, r, err, "Не удалось загрузить статьи")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) Article(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		response.BadRequest(w, "Invalid slug")
		return
	}
	ctx := r.Context()
	article, err := h.api.Article(ctx, slug)
	if err != nil {
		h.apiError(w, r, err, "Статья не найдена")
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *Handlers) FAQs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.api.FAQs(ctx, queryInt(r, "page"))
	if err != nil {
		h.apiError(w, r, err, "Не удалось загрузить вопросы")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) FAQ(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		response.BadRequest(w, "Invalid slug")
		return
	}
	ctx := r.Context()
	page, err := h.api.FAQ(ctx, slug)
	if err != nil {
		h.apiError(w, r, err, "Страница не найдена")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "bookingID")
	if !ok {
		response.BadRequest(w, "Invalid booking ID")
		return
	}
	ctx := r.Context()
	status, err := h.client(ctx).PaymentStatus(ctx, id)
	if err != nil {
		h.apiError(w, r, err, "Не удалось проверить оплату")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Boats forwards /v1/boats/* to the upstream boats endpoints.
func (h *Handlers) Boats(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	path := "/boats/"
	if rest != "" {
		path += rest
		if !strings.HasSuffix(path, "/") {
			path += "/"
		}
	}

	ctx := r.Context()
	token := ""
	if st := sessionState(ctx); st.Authenticated() {
		token = st.Token
	}

	status, err := h.proxy.Forward(w, r, path, token)
	if err != nil {
		h.apiError(w, r, err, "Service unavailable")
		return
	}
	if status == http.StatusUnauthorized {
		h.teardown(ctx, "upstream_unauthorized")
		response.Unauthorized(w, "Session expired")
	}
}
