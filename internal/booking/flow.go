// Package booking runs the booking form submission: local validation, the
// create call for the user's role and the interpretation of its result.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/diagnosis/seatrips/internal/apiclient"
	"github.com/diagnosis/seatrips/internal/domain"
	"github.com/diagnosis/seatrips/internal/utils"
	"github.com/diagnosis/seatrips/pkg/logger"
)

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

type OutcomeKind string

const (
	OutcomeRedirect    OutcomeKind = "redirect"
	OutcomeConfirmed   OutcomeKind = "confirmed"
	OutcomePayableLink OutcomeKind = "payable_link"
)

// BookingsPath is where a confirmed booking without payment sends the user.
const BookingsPath = "/profile/bookings"

const (
	MsgNameRequired   = "Введите имя"
	MsgPhoneRequired  = "Введите телефон"
	MsgPeopleRange    = "Количество людей должно быть от %d до %d"
	MsgNotEnoughSpots = "Недостаточно свободных мест. Доступно: %d"
	MsgCreateFailed   = "Ошибка при создании бронирования"
)

const (
	FieldGuestName      = "guest_name"
	FieldGuestPhone     = "guest_phone"
	FieldNumberOfPeople = "number_of_people"
)

var (
	ErrInFlight = errors.New("booking submission already in progress")
	ErrFinished = errors.New("booking already submitted")
	ErrNoTrip   = errors.New("booking flow has no trip")
)

type Form struct {
	GuestName      string `json:"guest_name"`
	GuestPhone     string `json:"guest_phone"`
	NumberOfPeople int    `json:"number_of_people"`
	PromoCode      string `json:"promo_code,omitempty"`
}

type Outcome struct {
	Kind        OutcomeKind     `json:"kind"`
	PaymentURL  string          `json:"payment_url,omitempty"`
	PaymentLink string          `json:"payment_link,omitempty"`
	Next        string          `json:"next,omitempty"`
	Booking     *domain.Booking `json:"booking,omitempty"`
}

// ValidationError lists every local validation failure by form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range []string{FieldGuestName, FieldGuestPhone, FieldNumberOfPeople} {
		if msg, ok := e.Fields[f]; ok {
			parts = append(parts, f+": "+msg)
		}
	}
	return "invalid booking form: " + strings.Join(parts, "; ")
}

// SubmitError is a failed create call. Message is ready to show; Err keeps
// the underlying API error for classification.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	return e.Message
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

type API interface {
	CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.CreateBookingResponse, error)
	CreateHotelBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.HotelBookingResponse, error)
}

type Limits struct {
	MinPeople int
	MaxPeople int
}

func DefaultLimits() Limits {
	return Limits{MinPeople: 1, MaxPeople: 11}
}

type Flow struct {
	api    API
	trip   *domain.Trip
	role   domain.Role
	limits Limits

	mu      sync.Mutex
	state   State
	outcome *Outcome
}

func (l Limits) normalized() Limits {
	if l.MinPeople <= 0 {
		l.MinPeople = 1
	}
	if l.MaxPeople < l.MinPeople {
		l.MaxPeople = DefaultLimits().MaxPeople
	}
	return l
}

func NewFlow(api API, trip *domain.Trip, role domain.Role, limits Limits) *Flow {
	return &Flow{api: api, trip: trip, role: role, limits: limits.normalized(), state: StateIdle}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Outcome() *Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome
}

// ValidateForm runs the checks that need no trip: name, phone and the
// party size range.
func ValidateForm(form Form, limits Limits) map[string]string {
	limits = limits.normalized()
	errs := make(map[string]string)
	if strings.TrimSpace(form.GuestName) == "" {
		errs[FieldGuestName] = MsgNameRequired
	}
	if strings.TrimSpace(form.GuestPhone) == "" {
		errs[FieldGuestPhone] = MsgPhoneRequired
	}
	if form.NumberOfPeople < limits.MinPeople || form.NumberOfPeople > limits.MaxPeople {
		errs[FieldNumberOfPeople] = fmt.Sprintf(MsgPeopleRange, limits.MinPeople, limits.MaxPeople)
	}
	return errs
}

// Validate checks the form against the trip without touching the network.
// The spots check only runs when the party size is within limits.
func (f *Flow) Validate(form Form) map[string]string {
	errs := ValidateForm(form, f.limits)
	if _, bad := errs[FieldNumberOfPeople]; !bad && f.trip != nil && form.NumberOfPeople > f.trip.AvailableSpots {
		errs[FieldNumberOfPeople] = fmt.Sprintf(MsgNotEnoughSpots, f.trip.AvailableSpots)
	}
	return errs
}

func (f *Flow) transition(ctx context.Context, to State) {
	logger.DebugContext(ctx, "Booking flow transition", "from", f.state, "to", to)
	f.state = to
}

// Submit validates and places the booking. A validation or API failure leaves
// the flow in StateFailed and it may be submitted again; success is terminal.
func (f *Flow) Submit(ctx context.Context, form Form) (*Outcome, error) {
	if f.trip == nil {
		return nil, ErrNoTrip
	}

	f.mu.Lock()
	switch f.state {
	case StateSubmitting, StateValidating:
		f.mu.Unlock()
		return nil, ErrInFlight
	case StateSucceeded:
		f.mu.Unlock()
		return nil, ErrFinished
	}
	f.transition(ctx, StateValidating)

	if errs := f.Validate(form); len(errs) > 0 {
		f.transition(ctx, StateFailed)
		f.mu.Unlock()
		return nil, &ValidationError{Fields: errs}
	}
	f.transition(ctx, StateSubmitting)
	f.mu.Unlock()

	req := domain.CreateBookingRequest{
		TripID:         f.trip.ID,
		NumberOfPeople: form.NumberOfPeople,
		GuestName:      utils.NormalizeString(form.GuestName),
		GuestPhone:     utils.NormalizePhone(form.GuestPhone),
		PromoCode:      strings.TrimSpace(form.PromoCode),
	}

	outcome, err := f.create(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.transition(ctx, StateFailed)
		return nil, &SubmitError{Message: apiclient.MessageOf(err, MsgCreateFailed), Err: err}
	}
	f.outcome = outcome
	f.transition(ctx, StateSucceeded)
	return outcome, nil
}

func (f *Flow) create(ctx context.Context, req domain.CreateBookingRequest) (*Outcome, error) {
	if f.role == domain.RoleHotel {
		resp, err := f.api.CreateHotelBooking(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomePayableLink, PaymentLink: resp.PaymentLink, Booking: &resp.Booking}, nil
	}

	resp, err := f.api.CreateBooking(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.PaymentURL != "" {
		return &Outcome{Kind: OutcomeRedirect, PaymentURL: resp.PaymentURL, Booking: &resp.Booking}, nil
	}
	return &Outcome{Kind: OutcomeConfirmed, Next: BookingsPath, Booking: &resp.Booking}, nil
}
