package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-querystring/query"

	"github.com/diagnosis/seatrips/internal/domain"
)

func (c *Client) ListBookings(ctx context.Context, filter domain.BookingFilter) (*Page[domain.Booking], error) {
	q, err := query.Values(filter)
	if err != nil {
		return nil, fmt.Errorf("encode booking filter: %w", err)
	}
	return listPage[domain.Booking](c.send(ctx, http.MethodGet, "/bookings/", q, nil))
}

// CreateBooking places a booking. The preview marker is always cleared so a
// stray flag can never turn a real submission into a quote.
func (c *Client) CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.CreateBookingResponse, error) {
	req.Preview = false
	var out domain.CreateBookingResponse
	if err := c.call(ctx, http.MethodPost, "/bookings/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateHotelBooking books on behalf of a hotel guest; the API answers with a
// payment link the hotel forwards instead of a redirect.
func (c *Client) CreateHotelBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.HotelBookingResponse, error) {
	req.Preview = false
	var out domain.HotelBookingResponse
	if err := c.call(ctx, http.MethodPost, "/bookings/hotel/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PreviewBooking asks the API to price a booking without creating it.
func (c *Client) PreviewBooking(ctx context.Context, tripID int64, numberOfPeople int, promoCode string) (*domain.PromoPreview, error) {
	req := domain.CreateBookingRequest{
		TripID:         tripID,
		NumberOfPeople: numberOfPeople,
		PromoCode:      promoCode,
		Preview:        true,
	}
	var out domain.PromoPreview
	if err := c.call(ctx, http.MethodPost, "/bookings/", nil, req, &out); err != nil {
		return nil, err
	}
	out.TripID = tripID
	out.NumberOfPeople = numberOfPeople
	out.Code = promoCode
	return &out, nil
}

func (c *Client) PayRemaining(ctx context.Context, bookingID int64) (*domain.PayRemainingResponse, error) {
	var out domain.PayRemainingResponse
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/bookings/%d/pay_remaining/", bookingID), nil, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckIn(ctx context.Context, bookingID int64, verificationCode string) (*domain.CheckInResponse, error) {
	body := map[string]string{"verification_code": verificationCode}
	var out domain.CheckInResponse
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/bookings/%d/check_in/", bookingID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID int64) (*domain.CancelResponse, error) {
	var out domain.CancelResponse
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/bookings/%d/cancel/", bookingID), nil, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BlockedSeats(ctx context.Context, tripID int64) ([]domain.BlockedSeats, error) {
	q, _ := query.Values(struct {
		TripID int64 `url:"trip_id,omitempty"`
	}{tripID})
	page, err := listPage[domain.BlockedSeats](c.send(ctx, http.MethodGet, "/bookings/blocked-seats/", q, nil))
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) BlockSeats(ctx context.Context, tripID int64, seats int, reason string) (*domain.BlockedSeats, error) {
	in := domain.BlockedSeats{TripID: tripID, Seats: seats, Reason: reason}
	var out domain.BlockedSeats
	if err := c.call(ctx, http.MethodPost, "/bookings/blocked-seats/", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UnblockSeats(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/bookings/blocked-seats/%d/", id), nil, nil, nil)
}
