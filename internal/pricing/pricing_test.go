package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/seatrips/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate_LocalFormula(t *testing.T) {
	calc := NewCalculator(1000)
	trip := &domain.Trip{ID: 1, PricePerPerson: dec("2500.00")}

	tests := []struct {
		name      string
		price     string
		n         int
		total     string
		deposit   string
		remaining string
	}{
		{"three people", "2500.00", 3, "7500", "3000", "4500"},
		{"one person", "2500.00", 1, "2500", "1000", "1500"},
		{"price below deposit", "800.00", 2, "1600", "2000", "0"},
		{"fractional price", "1250.50", 2, "2501", "2000", "501"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip.PricePerPerson = dec(tt.price)
			q := calc.Calculate(trip, tt.n, nil)
			if !q.Total.Equal(dec(tt.total)) {
				t.Fatalf("Expected total %s, got %s", tt.total, q.Total)
			}
			if !q.Deposit.Equal(dec(tt.deposit)) {
				t.Fatalf("Expected deposit %s, got %s", tt.deposit, q.Deposit)
			}
			if !q.Remaining.Equal(dec(tt.remaining)) {
				t.Fatalf("Expected remaining %s, got %s", tt.remaining, q.Remaining)
			}
			if q.HasDiscount() || q.FromPreview {
				t.Fatalf("Local quote must carry no discount: %+v", q)
			}
		})
	}
}

func TestCalculate_NonPositivePeopleIsZero(t *testing.T) {
	calc := NewCalculator(1000)
	trip := &domain.Trip{PricePerPerson: dec("2500")}

	for _, n := range []int{0, -2} {
		q := calc.Calculate(trip, n, nil)
		if !q.Total.IsZero() || !q.Deposit.IsZero() || !q.Remaining.IsZero() {
			t.Fatalf("Expected zero quote for n=%d, got %+v", n, q)
		}
	}
	if q := calc.Calculate(nil, 2, nil); !q.Total.IsZero() {
		t.Fatalf("Expected zero quote for nil trip, got %+v", q)
	}
}

func TestCalculate_UsesMatchingPreview(t *testing.T) {
	calc := NewCalculator(1000)
	trip := &domain.Trip{PricePerPerson: dec("2500")}
	preview := &domain.PromoPreview{
		TripID:              1,
		NumberOfPeople:      3,
		TotalPrice:          dec("6500"),
		Deposit:             dec("3000"),
		RemainingAmount:     dec("3500"),
		OriginalPrice:       dec("7500"),
		GuideDiscountAmount: dec("250"),
		PromoCode:           &domain.PromoDiscount{Code: "SEA", DiscountAmount: dec("750")},
	}

	q := calc.Calculate(trip, 3, preview)
	if !q.FromPreview {
		t.Fatal("Expected preview figures")
	}
	if !q.Total.Equal(dec("6500")) || !q.Remaining.Equal(dec("3500")) {
		t.Fatalf("Preview figures not used verbatim: %+v", q)
	}
	if !q.Discount.Equal(dec("1000")) || q.PromoCode != "SEA" {
		t.Fatalf("Unexpected discount %+v", q)
	}
	if !q.HasDiscount() {
		t.Fatal("Expected HasDiscount")
	}
}

func TestCalculate_IgnoresPreviewForOtherPartySize(t *testing.T) {
	calc := NewCalculator(1000)
	trip := &domain.Trip{PricePerPerson: dec("2500")}
	preview := &domain.PromoPreview{NumberOfPeople: 2, TotalPrice: dec("1")}

	q := calc.Calculate(trip, 3, preview)
	if q.FromPreview || !q.Total.Equal(dec("7500")) {
		t.Fatalf("Expected local formula, got %+v", q)
	}
}

func TestNewCalculator_DefaultDeposit(t *testing.T) {
	calc := NewCalculator(0)
	q := calc.Calculate(&domain.Trip{PricePerPerson: dec("5000")}, 2, nil)
	if !q.Deposit.Equal(dec("2000")) {
		t.Fatalf("Expected default deposit, got %s", q.Deposit)
	}
}

func TestQuote_MarshalJSONFixedDecimals(t *testing.T) {
	q := NewCalculator(1000).Calculate(&domain.Trip{PricePerPerson: dec("2500")}, 2, nil)
	data, err := q.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	want := `{"number_of_people":2,"total_price":"5000.00","deposit":"2000.00","remaining_amount":"3000.00","original_price":"5000.00","discount_amount":"0.00","guide_discount_amount":"0.00","promo_discount_amount":"0.00","from_preview":false}`
	if string(data) != want {
		t.Fatalf("Unexpected JSON\n got: %s\nwant: %s", data, want)
	}
}
