package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diagnosis/seatrips/internal/domain"
	"github.com/diagnosis/seatrips/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(srv.URL+"/api", srv.Client())
}

func TestClient_SendsTokenAndRequestID(t *testing.T) {
	var gotAuth, gotReqID, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "email": "a@b.c", "role": "customer"})
	})

	ctx := context.WithValue(context.Background(), logger.RequestIDKey, "req-1")
	user, err := c.WithToken("abc").Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if gotAuth != "Token abc" {
		t.Fatalf("Expected Token header, got %q", gotAuth)
	}
	if gotReqID != "req-1" {
		t.Fatalf("Expected request id to propagate, got %q", gotReqID)
	}
	if gotPath != "/api/accounts/profile/" {
		t.Fatalf("Unexpected path %s", gotPath)
	}
	if user.ID != 7 || user.Role != domain.RoleCustomer {
		t.Fatalf("Unexpected user %+v", user)
	}
}

func TestClient_LoginIsUnauthenticated(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"token":"t1","user":{"id":1,"email":"x@y.z","role":"guide"}}`))
	})

	resp, err := c.WithToken("stale").Login(context.Background(), domain.LoginRequest{Email: "x@y.z", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("Login must not send a token, got %q", gotAuth)
	}
	if resp.Token != "t1" || resp.User.Role != domain.RoleGuide {
		t.Fatalf("Unexpected login response %+v", resp)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
		msg    string
	}{
		{"field error first", 400, `{"number_of_people":["Слишком много"],"non_field_errors":["Общая ошибка"]}`, KindValidation, "Слишком много"},
		{"non field", 400, `{"non_field_errors":["Промокод истёк"]}`, KindValidation, "Промокод истёк"},
		{"error key", 400, `{"error":"Недостаточно свободных мест. Доступно: 2, запрошено: 5"}`, KindValidation, "Недостаточно свободных мест. Доступно: 2, запрошено: 5"},
		{"detail", 401, `{"detail":"Invalid token."}`, KindUnauthorized, "Invalid token."},
		{"forbidden", 403, `{"detail":"Требуется верификация"}`, KindForbidden, "Требуется верификация"},
		{"not found", 404, ``, KindNotFound, "fallback"},
		{"server", 500, `<html>oops</html>`, KindUnexpected, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Profile(context.Background())
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *Error, got %v", err)
			}
			if apiErr.Kind != tt.kind {
				t.Fatalf("Expected kind %s, got %s", tt.kind, apiErr.Kind)
			}
			if got := apiErr.Message("fallback"); got != tt.msg {
				t.Fatalf("Expected message %q, got %q", tt.msg, got)
			}
		})
	}
}

func TestClient_FieldOrderPreserved(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"guest_phone":["bad phone"],"guest_name":["bad name"]}`)
	})

	_, err := c.CreateBooking(context.Background(), domain.CreateBookingRequest{TripID: 1, NumberOfPeople: 1})
	if got := MessageOf(err, "x"); got != "bad phone" {
		t.Fatalf("Expected first field in body order, got %q", got)
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := NewWithHTTPClient(srv.URL, srv.Client())
	srv.Close()

	_, err := c.Profile(context.Background())
	if KindOf(err) != KindTransport {
		t.Fatalf("Expected transport error, got %v", err)
	}
	if IsUnauthorized(err) {
		t.Fatal("Transport error must not be unauthorized")
	}
}

func TestPreviewBooking_SendsMarkerAndStampsTuple(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		io.WriteString(w, `{"total_price":"9000.00","deposit":"3000.00","remaining_amount":"6000.00","original_price":"10000.00","guide_discount_amount":"0.00","promo_code":{"code":"SEA10","discount_amount":"1000.00"}}`)
	})

	p, err := c.PreviewBooking(context.Background(), 5, 3, "SEA10")
	if err != nil {
		t.Fatalf("PreviewBooking: %v", err)
	}
	if body["preview"] != true {
		t.Fatalf("Expected preview marker, got %v", body)
	}
	if !p.Matches(5, 3, "SEA10") {
		t.Fatalf("Preview not stamped with its tuple: %+v", p)
	}
	if p.TotalPrice.StringFixed(2) != "9000.00" || p.PromoCode.DiscountAmount.StringFixed(2) != "1000.00" {
		t.Fatalf("Unexpected figures %+v", p)
	}
}

func TestCreateBooking_NeverSendsPreviewMarker(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		io.WriteString(w, `{"id":11,"payment_url":"https://pay.example/11"}`)
	})

	resp, err := c.CreateBooking(context.Background(), domain.CreateBookingRequest{TripID: 1, NumberOfPeople: 2, Preview: true})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, ok := body["preview"]; ok {
		t.Fatalf("Creation must omit preview marker, got %v", body)
	}
	if resp.ID != 11 || resp.PaymentURL == "" {
		t.Fatalf("Unexpected response %+v", resp)
	}
}

func TestSearchTrips_QueryAndBareArray(t *testing.T) {
	var rawQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		io.WriteString(w, `[{"id":1,"departure_date":"2024-06-01","available_spots":4,"price_per_person":"2500.00"}]`)
	})

	page, err := c.SearchTrips(context.Background(), domain.TripSearch{
		Date:           "2024-06-01",
		NumberOfPeople: 2,
		Features:       []string{"wc", "shade"},
	})
	if err != nil {
		t.Fatalf("SearchTrips: %v", err)
	}
	want := "date=2024-06-01&features=wc&features=shade&number_of_people=2"
	if rawQuery != want {
		t.Fatalf("Expected query %q, got %q", want, rawQuery)
	}
	if page.Count != 1 || len(page.Results) != 1 || page.HasNext() {
		t.Fatalf("Unexpected page %+v", page)
	}
	if page.Results[0].DepartureDate != domain.NewDate(2024, 6, 1) {
		t.Fatalf("Unexpected date %v", page.Results[0].DepartureDate)
	}
}

func TestSearchTrips_RequiresDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Request must not be sent")
	})

	_, err := c.SearchTrips(context.Background(), domain.TripSearch{DateFrom: "2024-06-01"})
	if KindOf(err) != KindValidation {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestArticles_PaginatedObject(t *testing.T) {
	var gotPage string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPage = r.URL.Query().Get("page")
		io.WriteString(w, `{"count":25,"next":"http://h/api/blog/articles/?page=3","previous":"http://h/api/blog/articles/","results":[{"id":1,"slug":"a","title":"A"}]}`)
	})

	page, err := c.Articles(context.Background(), 2)
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if gotPage != "2" {
		t.Fatalf("Expected page=2, got %q", gotPage)
	}
	if page.Count != 25 || page.NextPage() != 3 || page.PreviousPage() != 1 {
		t.Fatalf("Unexpected page navigation %+v next=%d prev=%d", page, page.NextPage(), page.PreviousPage())
	}
}

func TestDecodePage_Empty(t *testing.T) {
	page, err := decodePage[domain.Article]([]byte(" "))
	if err != nil {
		t.Fatalf("decodePage: %v", err)
	}
	if page.Results == nil || page.Count != 0 {
		t.Fatalf("Expected empty non-nil results, got %+v", page)
	}
}

func TestBoats_PathsAndMethods(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		call   func(c *Client) error
	}{
		{"list", http.MethodGet, "/api/boats/", `[{"id":1}]`, func(c *Client) error {
			p, err := c.ListBoats(ctx)
			if err == nil && (p.Count != 1 || p.Results[0].ID != 1) {
				t.Errorf("Expected bare array as one-item page, got %+v", p)
			}
			return err
		}},
		{"mine", http.MethodGet, "/api/boats/my-boats/", `{"count":1,"results":[{"id":2}]}`, func(c *Client) error {
			p, err := c.MyBoats(ctx)
			if err == nil && p.Results[0].ID != 2 {
				t.Errorf("Unexpected page %+v", p)
			}
			return err
		}},
		{"get", http.MethodGet, "/api/boats/3/", `{"id":3}`, func(c *Client) error { _, err := c.GetBoat(ctx, 3); return err }},
		{"create", http.MethodPost, "/api/boats/", `{"id":4}`, func(c *Client) error {
			_, err := c.CreateBoat(ctx, domain.Boat{Name: "Чайка", Capacity: 8})
			return err
		}},
		{"update", http.MethodPatch, "/api/boats/3/", `{"id":3}`, func(c *Client) error {
			_, err := c.UpdateBoat(ctx, 3, map[string]any{"capacity": 6})
			return err
		}},
		{"delete", http.MethodDelete, "/api/boats/3/", ``, func(c *Client) error { return c.DeleteBoat(ctx, 3) }},
		{"features", http.MethodGet, "/api/boats/3/features/", `[]`, func(c *Client) error { _, err := c.BoatFeatures(ctx, 3); return err }},
		{"zones", http.MethodGet, "/api/boats/sailing-zones/", `[]`, func(c *Client) error { _, err := c.SailingZones(ctx); return err }},
		{"availability", http.MethodGet, "/api/boats/3/availability/", `[]`, func(c *Client) error { _, err := c.BoatAvailability(ctx, 3); return err }},
		{"blocked dates", http.MethodGet, "/api/boats/3/blocked-dates/", `[]`, func(c *Client) error { _, err := c.BlockedDates(ctx, 3); return err }},
		{"add blocked date", http.MethodPost, "/api/boats/3/blocked-dates/", `{"id":9}`, func(c *Client) error {
			_, err := c.AddBlockedDate(ctx, 3, domain.BlockedDate{DateFrom: domain.NewDate(2024, 6, 1)})
			return err
		}},
		{"delete blocked date", http.MethodDelete, "/api/boats/3/blocked-dates/9/", ``, func(c *Client) error { return c.DeleteBlockedDate(ctx, 3, 9) }},
		{"seasonal", http.MethodGet, "/api/boats/3/seasonal-pricing/", `[]`, func(c *Client) error { _, err := c.SeasonalPricing(ctx, 3); return err }},
		{"add seasonal", http.MethodPost, "/api/boats/3/seasonal-pricing/", `{"id":5,"price_per_person":"3000.00"}`, func(c *Client) error {
			_, err := c.AddSeasonalPrice(ctx, 3, domain.SeasonalPrice{DateFrom: domain.NewDate(2024, 7, 1), DateTo: domain.NewDate(2024, 8, 31)})
			return err
		}},
		{"delete seasonal", http.MethodDelete, "/api/boats/3/seasonal-pricing/5/", ``, func(c *Client) error { return c.DeleteSeasonalPrice(ctx, 3, 5) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMethod, gotPath string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotMethod, gotPath = r.Method, r.URL.Path
				if tt.body == "" {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				io.WriteString(w, tt.body)
			})

			if err := tt.call(c.WithToken("owner")); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if gotMethod != tt.method || gotPath != tt.path {
				t.Fatalf("Expected %s %s, got %s %s", tt.method, tt.path, gotMethod, gotPath)
			}
		})
	}
}

func TestBlockedSeats_FilterAndLifecycle(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery = r.Method, r.URL.Path, r.URL.RawQuery
		gotBody = nil
		json.NewDecoder(r.Body).Decode(&gotBody)
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, `[{"id":1,"trip_id":5,"seats":2}]`)
		case http.MethodPost:
			io.WriteString(w, `{"id":2,"trip_id":5,"seats":3,"reason":"crew"}`)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	blocks, err := c.BlockedSeats(ctx, 5)
	if err != nil {
		t.Fatalf("BlockedSeats: %v", err)
	}
	if gotPath != "/api/bookings/blocked-seats/" || gotQuery != "trip_id=5" {
		t.Fatalf("Unexpected request %s?%s", gotPath, gotQuery)
	}
	if len(blocks) != 1 || blocks[0].Seats != 2 {
		t.Fatalf("Unexpected blocks %+v", blocks)
	}

	if _, err := c.BlockedSeats(ctx, 0); err != nil || gotQuery != "" {
		t.Fatalf("Expected no filter for trip 0, got %q (%v)", gotQuery, err)
	}

	held, err := c.BlockSeats(ctx, 5, 3, "crew")
	if err != nil {
		t.Fatalf("BlockSeats: %v", err)
	}
	if gotMethod != http.MethodPost || gotBody["trip_id"] != float64(5) || gotBody["seats"] != float64(3) {
		t.Fatalf("Unexpected block request %s %v", gotMethod, gotBody)
	}
	if held.ID != 2 {
		t.Fatalf("Unexpected block %+v", held)
	}

	if err := c.UnblockSeats(ctx, 2); err != nil {
		t.Fatalf("UnblockSeats: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/bookings/blocked-seats/2/" {
		t.Fatalf("Unexpected unblock request %s %s", gotMethod, gotPath)
	}
}
