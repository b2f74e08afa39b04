package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diagnosis/seatrips/internal/apiclient"
	"github.com/diagnosis/seatrips/internal/booking"
	"github.com/diagnosis/seatrips/internal/domain"
	"github.com/diagnosis/seatrips/internal/http/response"
	"github.com/diagnosis/seatrips/pkg/events"
	"github.com/diagnosis/seatrips/pkg/logger"
)

type createBookingRequest struct {
	TripID int64 `json:"trip_id"`
	booking.Form
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := sessionState(ctx)

	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON")
		return
	}
	if req.TripID <= 0 {
		response.BadRequest(w, "trip_id is required")
		return
	}
	if fields := booking.ValidateForm(req.Form, h.opts.Limits); len(fields) > 0 {
		h.bookingFailed(w, r, req.TripID, &booking.ValidationError{Fields: fields})
		return
	}

	api := h.client(ctx)
	trip, err := api.GetTrip(ctx, req.TripID)
	if err != nil {
		h.apiError(w, r, err, booking.MsgCreateFailed)
		return
	}

	var role domain.Role
	if st.User != nil {
		role = st.User.Role
	}
	flow := booking.NewFlow(api, trip, role, h.opts.Limits)

	outcome, err := flow.Submit(ctx, req.Form)
	if err != nil {
		h.bookingFailed(w, r, trip.ID, err)
		return
	}

	h.previews.Invalidate(sessionID(ctx))

	evt := events.BookingSubmittedEvent{
		TripID:         trip.ID,
		Outcome:        string(outcome.Kind),
		NumberOfPeople: req.NumberOfPeople,
		SubmittedAt:    h.now(),
	}
	if outcome.Booking != nil {
		evt.BookingID = outcome.Booking.ID
	}
	if st.User != nil {
		evt.UserID = st.User.ID
	}
	subject := events.BookingSubmitted
	if outcome.Kind == booking.OutcomeRedirect {
		subject = events.BookingRedirected
	}
	events.PublishAsync(ctx, h.bus, subject, evt)
	logger.InfoContext(ctx, "Booking submitted", "trip_id", trip.ID, "outcome", outcome.Kind, "booking_id", evt.BookingID)

	writeJSON(w, http.StatusCreated, outcome)
}

func (h *Handlers) bookingFailed(w http.ResponseWriter, r *http.Request, tripID int64, err error) {
	ctx := r.Context()

	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		msg := firstMessage(verr.Fields, booking.FieldGuestName, booking.FieldGuestPhone, booking.FieldNumberOfPeople)
		response.ValidationFailed(w, msg, verr.Fields)
		return
	}
	if apiclient.IsUnauthorized(err) {
		h.apiError(w, r, err, booking.MsgCreateFailed)
		return
	}

	events.PublishAsync(ctx, h.bus, events.BookingFailed, events.BookingFailedEvent{
		TripID:   tripID,
		Reason:   err.Error(),
		FailedAt: h.now(),
	})

	var serr *booking.SubmitError
	if errors.As(err, &serr) {
		status := http.StatusBadRequest
		switch apiclient.KindOf(err) {
		case apiclient.KindForbidden:
			status = http.StatusForbidden
		case apiclient.KindNotFound:
			status = http.StatusNotFound
		case apiclient.KindTransport, apiclient.KindUnexpected:
			status = http.StatusBadGateway
			logger.ErrorContext(ctx, "Booking creation failed upstream", "error", serr.Err)
		}
		var fields map[string]string
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) {
			fields = apiErr.FieldMessages()
		}
		response.Write(w, status, response.ErrorResponse{Error: serr.Message, Code: response.CodeBookingFailed, Fields: fields})
		return
	}

	logger.ErrorContext(ctx, "Booking flow error", "error", err)
	response.InternalError(w, booking.MsgCreateFailed)
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.BookingFilter{
		Status:   q.Get("status"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
		Page:     queryInt(r, "page"),
	}
	if filter.Status != "" {
		if _, ok := domain.ParseBookingStatus(strings.ToLower(filter.Status)); !ok {
			response.BadRequest(w, "Unknown booking status")
			return
		}
		filter.Status = strings.ToLower(filter.Status)
	}
	if id := queryInt(r, "boat_id"); id > 0 {
		filter.BoatID = int64(id)
	}

	ctx := r.Context()
	page, err := h.client(ctx).ListBookings(ctx, filter)
	if err != nil {
		h.apiError(w, r, err, "Не удалось загрузить бронирования")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) PayRemaining(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid booking ID")
		return
	}
	ctx := r.Context()
	resp, err := h.client(ctx).PayRemaining(ctx, id)
	if err != nil {
		h.apiError(w, r, err, "Не удалось оформить оплату")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type checkInRequest struct {
	VerificationCode string `json:"verification_code" validate:"required"`
}

func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid booking ID")
		return
	}
	var req checkInRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON")
		return
	}
	req.VerificationCode = strings.TrimSpace(req.VerificationCode)
	if err := h.validate.Struct(req); err != nil {
		fields := validationFields(err)
		response.ValidationFailed(w, firstMessage(fields, "verification_code"), fields)
		return
	}

	ctx := r.Context()
	resp, err := h.client(ctx).CheckIn(ctx, id, req.VerificationCode)
	if err != nil {
		h.apiError(w, r, err, "Не удалось отметить посадку")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid booking ID")
		return
	}
	ctx := r.Context()
	resp, err := h.client(ctx).CancelBooking(ctx, id)
	if err != nil {
		h.apiError(w, r, err, "Не удалось отменить бронирование")
		return
	}
	logger.InfoContext(ctx, "Booking cancelled", "booking_id", id)
	writeJSON(w, http.StatusOK, resp)
}
