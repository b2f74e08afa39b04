// Package pricing computes the figures shown next to a trip before and during
// booking: total, deposit and the amount left to pay on board.
package pricing

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/seatrips/internal/domain"
)

// DefaultDepositPerPerson is charged online per passenger; the remainder is
// paid on the boat.
const DefaultDepositPerPerson int64 = 1000

// Quote is always fully populated. Zero values mean "nothing to pay".
type Quote struct {
	NumberOfPeople int             `json:"number_of_people"`
	Total          decimal.Decimal `json:"total_price"`
	Deposit        decimal.Decimal `json:"deposit"`
	Remaining      decimal.Decimal `json:"remaining_amount"`
	OriginalTotal  decimal.Decimal `json:"original_price"`
	Discount       decimal.Decimal `json:"discount_amount"`
	GuideDiscount  decimal.Decimal `json:"guide_discount_amount"`
	PromoDiscount  decimal.Decimal `json:"promo_discount_amount"`
	PromoCode      string          `json:"promo_code,omitempty"`
	FromPreview    bool            `json:"from_preview"`
}

type Calculator struct {
	depositPerPerson decimal.Decimal
}

func NewCalculator(depositPerPerson int64) *Calculator {
	if depositPerPerson <= 0 {
		depositPerPerson = DefaultDepositPerPerson
	}
	return &Calculator{depositPerPerson: decimal.NewFromInt(depositPerPerson)}
}

// Calculate prices a trip for numberOfPeople. A preview is used verbatim only
// when it was computed for the same party size; otherwise the local formula
// applies and no discount is shown.
func (c *Calculator) Calculate(trip *domain.Trip, numberOfPeople int, preview *domain.PromoPreview) Quote {
	if trip == nil || numberOfPeople <= 0 {
		return Quote{}
	}

	if preview != nil && preview.NumberOfPeople == numberOfPeople {
		return fromPreview(preview)
	}

	n := decimal.NewFromInt(int64(numberOfPeople))
	total := trip.PricePerPerson.Mul(n)
	deposit := c.depositPerPerson.Mul(n)
	remaining := total.Sub(deposit)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Quote{
		NumberOfPeople: numberOfPeople,
		Total:          total,
		Deposit:        deposit,
		Remaining:      remaining,
		OriginalTotal:  total,
	}
}

func fromPreview(p *domain.PromoPreview) Quote {
	q := Quote{
		NumberOfPeople: p.NumberOfPeople,
		Total:          p.TotalPrice,
		Deposit:        p.Deposit,
		Remaining:      p.RemainingAmount,
		OriginalTotal:  p.OriginalPrice,
		GuideDiscount:  p.GuideDiscountAmount,
		FromPreview:    true,
	}
	if p.PromoCode != nil {
		q.PromoCode = p.PromoCode.Code
		q.PromoDiscount = p.PromoCode.DiscountAmount
	}
	q.Discount = q.GuideDiscount.Add(q.PromoDiscount)
	if q.OriginalTotal.IsZero() {
		q.OriginalTotal = q.Total.Add(q.Discount)
	}
	return q
}

// HasDiscount reports whether the quote should render a struck-through
// original price.
func (q Quote) HasDiscount() bool {
	return q.Discount.IsPositive()
}

// MarshalJSON renders money the way the API does: strings with two decimals.
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		NumberOfPeople int    `json:"number_of_people"`
		Total          string `json:"total_price"`
		Deposit        string `json:"deposit"`
		Remaining      string `json:"remaining_amount"`
		OriginalTotal  string `json:"original_price"`
		Discount       string `json:"discount_amount"`
		GuideDiscount  string `json:"guide_discount_amount"`
		PromoDiscount  string `json:"promo_discount_amount"`
		PromoCode      string `json:"promo_code,omitempty"`
		FromPreview    bool   `json:"from_preview"`
	}{
		NumberOfPeople: q.NumberOfPeople,
		Total:          q.Total.StringFixed(2),
		Deposit:        q.Deposit.StringFixed(2),
		Remaining:      q.Remaining.StringFixed(2),
		OriginalTotal:  q.OriginalTotal.StringFixed(2),
		Discount:       q.Discount.StringFixed(2),
		GuideDiscount:  q.GuideDiscount.StringFixed(2),
		PromoDiscount:  q.PromoDiscount.StringFixed(2),
		PromoCode:      q.PromoCode,
		FromPreview:    q.FromPreview,
	})
}
