package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingReserved  BookingStatus = "reserved"
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingReserved, BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

type Booking struct {
	ID              int64           `json:"id"`
	TripID          int64           `json:"trip_id,omitempty"`
	Boat            *Boat           `json:"boat,omitempty"`
	StartDatetime   time.Time       `json:"start_datetime"`
	EndDatetime     time.Time       `json:"end_datetime"`
	DurationHours   int             `json:"duration_hours"`
	NumberOfPeople  int             `json:"number_of_people"`
	GuestName       string          `json:"guest_name"`
	GuestPhone      string          `json:"guest_phone"`
	PromoCode       string          `json:"promo_code,omitempty"`
	Status          BookingStatus   `json:"status"`
	StatusDisplay   string          `json:"status_display,omitempty"`
	PricePerPerson  decimal.Decimal `json:"price_per_person"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Deposit         decimal.Decimal `json:"deposit"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Payments        []Payment       `json:"payments,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Days returns the first and last calendar day the booking occupies.
func (b *Booking) Days() (Date, Date) {
	from := DateOf(b.StartDatetime)
	to := from
	if !b.EndDatetime.IsZero() {
		to = DateOf(b.EndDatetime)
	}
	return from, to
}

type PaymentType string

const (
	PaymentDeposit   PaymentType = "deposit"
	PaymentRemaining PaymentType = "remaining"
)

type Payment struct {
	ID          int64           `json:"id"`
	PaymentType PaymentType     `json:"payment_type"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type PaymentStatus struct {
	BookingID     int64         `json:"booking_id"`
	PaymentType   PaymentType   `json:"payment_type"`
	Status        string        `json:"status"`
	IsPaid        bool          `json:"is_paid"`
	BookingStatus BookingStatus `json:"booking_status"`
}

// CreateBookingRequest is the body of both booking creation and preview. The
// preview marker is the only difference between the two calls.
type CreateBookingRequest struct {
	TripID         int64  `json:"trip_id"`
	NumberOfPeople int    `json:"number_of_people"`
	GuestName      string `json:"guest_name,omitempty"`
	GuestPhone     string `json:"guest_phone,omitempty"`
	PromoCode      string `json:"promo_code,omitempty"`
	Preview        bool   `json:"preview,omitempty"`
}

type CreateBookingResponse struct {
	Booking
	PaymentURL string `json:"payment_url,omitempty"`
}

type HotelBookingResponse struct {
	Booking
	PaymentLink string `json:"payment_link"`
}

type PromoDiscount struct {
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// PromoPreview is a server-computed quote that is valid only for the exact
// trip, party size and promo code it was requested with.
type PromoPreview struct {
	TripID              int64           `json:"trip_id"`
	NumberOfPeople      int             `json:"number_of_people"`
	Code                string          `json:"code"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	Deposit             decimal.Decimal `json:"deposit"`
	RemainingAmount     decimal.Decimal `json:"remaining_amount"`
	OriginalPrice       decimal.Decimal `json:"original_price"`
	GuideDiscountAmount decimal.Decimal `json:"guide_discount_amount"`
	PromoCode           *PromoDiscount  `json:"promo_code,omitempty"`
}

// Matches reports whether the preview was computed for this exact tuple.
func (p *PromoPreview) Matches(tripID int64, numberOfPeople int, code string) bool {
	return p != nil && p.TripID == tripID && p.NumberOfPeople == numberOfPeople && p.Code == code
}

type BookingFilter struct {
	Status   string `url:"status,omitempty"`
	BoatID   int64  `url:"boat_id,omitempty"`
	DateFrom string `url:"date_from,omitempty"`
	DateTo   string `url:"date_to,omitempty"`
	Page     int    `url:"page,omitempty"`
}

type PayRemainingResponse struct {
	Message          string        `json:"message"`
	BookingID        int64         `json:"booking_id"`
	VerificationCode string        `json:"verification_code"`
	Status           BookingStatus `json:"status"`
	PaymentURL       string        `json:"payment_url,omitempty"`
}

type CheckInResponse struct {
	Message        string `json:"message"`
	Verified       bool   `json:"verified"`
	NumberOfPeople int    `json:"number_of_people"`
	Status         string `json:"status"`
}

type CancelResponse struct {
	Message       string          `json:"message"`
	RefundDeposit bool            `json:"refund_deposit"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
}

// BlockedSeats is an owner-declared reservation of part of a trip's capacity.
type BlockedSeats struct {
	ID     int64  `json:"id"`
	TripID int64  `json:"trip_id"`
	Seats  int    `json:"seats"`
	Reason string `json:"reason,omitempty"`
}
