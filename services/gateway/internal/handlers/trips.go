package handlers

import (
	"errors"
	"net/http"

	"github.com/diagnosis/seatrips/internal/domain"
	"github.com/diagnosis/seatrips/internal/http/response"
	"github.com/diagnosis/seatrips/internal/pricing"
	"github.com/diagnosis/seatrips/internal/promo"
	"github.com/diagnosis/seatrips/pkg/events"
	"github.com/diagnosis/seatrips/pkg/logger"
	mw "github.com/diagnosis/seatrips/pkg/middleware"
)

func (h *Handlers) SearchTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := domain.TripSearch{
		Date:           q.Get("date"),
		DateFrom:       q.Get("date_from"),
		DateTo:         q.Get("date_to"),
		NumberOfPeople: queryInt(r, "number_of_people"),
		Duration:       queryInt(r, "duration"),
		BoatType:       q.Get("boat_type"),
		Features:       q["features"],
	}
	if err := search.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	ctx := r.Context()
	page, err := h.client(ctx).SearchTrips(ctx, search)
	if err != nil {
		h.apiError(w, r, err, "Не удалось загрузить рейсы")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	ctx := r.Context()
	trip, err := h.client(ctx).GetTrip(ctx, id)
	if err != nil {
		h.apiError(w, r, err, "Не удалось загрузить рейс")
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// Quote prices the trip for number_of_people. A cached promo preview is used
// only when it matches the trip, party size and promo_code exactly. An
// unparsable party size prices as zero.
func (h *Handlers) Quote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	ctx := r.Context()
	trip, err := h.client(ctx).GetTrip(ctx, id)
	if err != nil {
		h.apiError(w, r, err, "Не удалось загрузить рейс")
		return
	}

	n := queryInt(r, "number_of_people")
	var preview *domain.PromoPreview
	if sid := sessionID(ctx); sid != "" {
		preview, _ = h.previews.Lookup(sid, promo.Query{
			TripID:         id,
			NumberOfPeople: n,
			Code:           r.URL.Query().Get("promo_code"),
		})
	}

	writeJSON(w, http.StatusOK, h.pricing.Calculate(trip, n, preview))
}

type previewRequest struct {
	NumberOfPeople int    `json:"number_of_people" validate:"gte=1"`
	PromoCode      string `json:"promo_code" validate:"max=64"`
}

type previewResponse struct {
	Preview *domain.PromoPreview `json:"preview"`
	Quote   pricing.Quote        `json:"quote"`
}

func (h *Handlers) PromoPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		fields := validationFields(err)
		response.ValidationFailed(w, firstMessage(fields, "number_of_people", "promo_code"), fields)
		return
	}

	ctx := r.Context()
	sid := sessionID(ctx)
	preview, err := h.previews.Preview(ctx, h.client(ctx), sid, promo.Query{
		TripID:         id,
		NumberOfPeople: req.NumberOfPeople,
		Code:           req.PromoCode,
	})
	switch {
	case errors.Is(err, promo.ErrStale):
		response.Conflict(w, "Preview superseded by a newer request", response.CodeStalePreview)
		return
	case errors.Is(err, promo.ErrInvalidRequest):
		response.BadRequest(w, err.Error())
		return
	case err != nil:
		if ctx.Err() != nil {
			logger.DebugContext(ctx, "Preview abandoned by client")
			return
		}
		h.apiError(w, r, err, "Не удалось применить промокод")
		return
	}

	events.PublishAsync(ctx, h.bus, events.PromoPreviewed, events.PromoPreviewedEvent{
		TripID:         id,
		NumberOfPeople: preview.NumberOfPeople,
		Code:           preview.Code,
		TotalPrice:     preview.TotalPrice.StringFixed(2),
	})

	quote := h.pricing.Calculate(&domain.Trip{ID: id}, preview.NumberOfPeople, preview)
	writeJSON(w, http.StatusOK, previewResponse{Preview: preview, Quote: quote})
}

// ClearPromoPreview is called when the user edits the code or party size.
func (h *Handlers) ClearPromoPreview(w http.ResponseWriter, r *http.Request) {
	h.previews.Invalidate(sessionID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// PreviewScope keys the preview rate limit by session, falling back to the
// client address.
func (h *Handlers) PreviewScope(r *http.Request) string {
	if sid := sessionID(r.Context()); sid != "" {
		return "session:" + sid
	}
	return "ip:" + mw.ClientIP(r)
}
