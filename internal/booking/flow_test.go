package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/diagnosis/seatrips/internal/apiclient"
	"github.com/diagnosis/seatrips/internal/domain"
)

type fakeAPI struct {
	createCalls int
	hotelCalls  int
	lastReq     domain.CreateBookingRequest
	resp        *domain.CreateBookingResponse
	hotelResp   *domain.HotelBookingResponse
	err         error
}

func (f *fakeAPI) CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.CreateBookingResponse, error) {
	f.createCalls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeAPI) CreateHotelBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.HotelBookingResponse, error) {
	f.hotelCalls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.hotelResp, nil
}

func validForm() Form {
	return Form{GuestName: "Иван", GuestPhone: "8 918 000-00-00", NumberOfPeople: 2}
}

func TestValidate(t *testing.T) {
	trip := &domain.Trip{ID: 1, AvailableSpots: 3}
	flow := NewFlow(&fakeAPI{}, trip, domain.RoleCustomer, DefaultLimits())

	tests := []struct {
		name  string
		form  Form
		field string
		msg   string
	}{
		{"empty name", Form{GuestPhone: "1", NumberOfPeople: 1}, FieldGuestName, "Введите имя"},
		{"blank phone", Form{GuestName: "A", GuestPhone: "  ", NumberOfPeople: 1}, FieldGuestPhone, "Введите телефон"},
		{"zero people", Form{GuestName: "A", GuestPhone: "1", NumberOfPeople: 0}, FieldNumberOfPeople, "Количество людей должно быть от 1 до 11"},
		{"twelve people beats spots", Form{GuestName: "A", GuestPhone: "1", NumberOfPeople: 12}, FieldNumberOfPeople, "Количество людей должно быть от 1 до 11"},
		{"over spots", Form{GuestName: "A", GuestPhone: "1", NumberOfPeople: 5}, FieldNumberOfPeople, "Недостаточно свободных мест. Доступно: 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := flow.Validate(tt.form)
			if errs[tt.field] != tt.msg {
				t.Fatalf("Expected %s=%q, got %v", tt.field, tt.msg, errs)
			}
		})
	}

	if errs := flow.Validate(Form{}); len(errs) != 3 {
		t.Fatalf("Expected all three fields reported, got %v", errs)
	}
}

func TestValidateForm_NoTrip(t *testing.T) {
	errs := ValidateForm(Form{GuestName: "A", GuestPhone: "1", NumberOfPeople: 12}, DefaultLimits())
	if errs[FieldNumberOfPeople] != "Количество людей должно быть от 1 до 11" {
		t.Fatalf("Expected range message, got %v", errs)
	}
	if errs := ValidateForm(validForm(), Limits{}); len(errs) != 0 {
		t.Fatalf("Expected zero limits to fall back to defaults, got %v", errs)
	}
	// Spots are not known here, so an in-range party passes.
	if errs := ValidateForm(Form{GuestName: "A", GuestPhone: "1", NumberOfPeople: 11}, DefaultLimits()); len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}
}

func TestSubmit_ValidationNeverCallsAPI(t *testing.T) {
	api := &fakeAPI{}
	flow := NewFlow(api, &domain.Trip{ID: 1, AvailableSpots: 3}, domain.RoleCustomer, DefaultLimits())

	_, err := flow.Submit(context.Background(), Form{NumberOfPeople: 4})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if api.createCalls != 0 || api.hotelCalls != 0 {
		t.Fatal("Validation failure must not reach the network")
	}
	if flow.State() != StateFailed {
		t.Fatalf("Expected failed state, got %s", flow.State())
	}
}

func TestSubmit_Redirect(t *testing.T) {
	api := &fakeAPI{resp: &domain.CreateBookingResponse{Booking: domain.Booking{ID: 7}, PaymentURL: "https://pay.example/7"}}
	flow := NewFlow(api, &domain.Trip{ID: 3, AvailableSpots: 5}, domain.RoleCustomer, DefaultLimits())

	out, err := flow.Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Kind != OutcomeRedirect || out.PaymentURL != "https://pay.example/7" || out.Next != "" {
		t.Fatalf("Unexpected outcome %+v", out)
	}
	if api.lastReq.TripID != 3 || api.lastReq.GuestPhone != "+79180000000" || api.lastReq.Preview {
		t.Fatalf("Unexpected request %+v", api.lastReq)
	}
	if flow.State() != StateSucceeded {
		t.Fatalf("Expected succeeded, got %s", flow.State())
	}
	if _, err := flow.Submit(context.Background(), validForm()); !errors.Is(err, ErrFinished) {
		t.Fatalf("Expected ErrFinished on resubmit, got %v", err)
	}
	if api.createCalls != 1 {
		t.Fatalf("Expected one create call, got %d", api.createCalls)
	}
}

func TestSubmit_ConfirmedWithoutPaymentURL(t *testing.T) {
	api := &fakeAPI{resp: &domain.CreateBookingResponse{Booking: domain.Booking{ID: 8, Status: domain.BookingConfirmed}}}
	flow := NewFlow(api, &domain.Trip{ID: 3, AvailableSpots: 5}, domain.RoleGuide, DefaultLimits())

	out, err := flow.Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Kind != OutcomeConfirmed || out.Next != BookingsPath {
		t.Fatalf("Unexpected outcome %+v", out)
	}
}

func TestSubmit_HotelGetsPayableLink(t *testing.T) {
	api := &fakeAPI{hotelResp: &domain.HotelBookingResponse{Booking: domain.Booking{ID: 9}, PaymentLink: "https://pay.example/h9"}}
	flow := NewFlow(api, &domain.Trip{ID: 3, AvailableSpots: 5}, domain.RoleHotel, DefaultLimits())

	out, err := flow.Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Kind != OutcomePayableLink || out.PaymentLink != "https://pay.example/h9" {
		t.Fatalf("Unexpected outcome %+v", out)
	}
	if api.hotelCalls != 1 || api.createCalls != 0 {
		t.Fatal("Hotel role must use the hotel variant only")
	}
}

func TestSubmit_FailureIsRecoverable(t *testing.T) {
	api := &fakeAPI{err: &apiclient.Error{
		Kind:     apiclient.KindValidation,
		NonField: []string{"Недостаточно свободных мест. Доступно: 1, запрошено: 2"},
	}}
	flow := NewFlow(api, &domain.Trip{ID: 3, AvailableSpots: 5}, domain.RoleCustomer, DefaultLimits())

	_, err := flow.Submit(context.Background(), validForm())
	var serr *SubmitError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected SubmitError, got %v", err)
	}
	if serr.Message != "Недостаточно свободных мест. Доступно: 1, запрошено: 2" {
		t.Fatalf("Unexpected message %q", serr.Message)
	}
	if flow.State() != StateFailed {
		t.Fatalf("Expected failed, got %s", flow.State())
	}

	api.err = nil
	api.resp = &domain.CreateBookingResponse{Booking: domain.Booking{ID: 1}}
	if _, err := flow.Submit(context.Background(), validForm()); err != nil {
		t.Fatalf("Resubmit after failure: %v", err)
	}
}

func TestSubmit_FallbackMessage(t *testing.T) {
	api := &fakeAPI{err: &apiclient.Error{Kind: apiclient.KindUnexpected, Status: 500}}
	flow := NewFlow(api, &domain.Trip{ID: 3, AvailableSpots: 5}, domain.RoleCustomer, DefaultLimits())

	_, err := flow.Submit(context.Background(), validForm())
	if err == nil || err.Error() != MsgCreateFailed {
		t.Fatalf("Expected fallback message, got %v", err)
	}
	if apiclient.KindOf(err) != apiclient.KindUnexpected {
		t.Fatal("Underlying API error must stay reachable")
	}
}
