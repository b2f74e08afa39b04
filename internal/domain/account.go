package domain

import "github.com/shopspring/decimal"

// CalendarMonth is the owner/guide calendar payload for one month.
type CalendarMonth struct {
	Month           string          `json:"month"`
	Bookings        []Booking       `json:"bookings"`
	BlockedDates    []BlockedDate   `json:"blocked_dates"`
	SeasonalPricing []SeasonalPrice `json:"seasonal_pricing"`
}

type Finances struct {
	Revenue            decimal.Decimal `json:"revenue"`
	PlatformCommission decimal.Decimal `json:"platform_commission"`
	ToPayout           decimal.Decimal `json:"to_payout"`
	TotalCommission    decimal.Decimal `json:"total_commission"`
	PendingCommission  decimal.Decimal `json:"pending_commission"`
	PayoutHistory      []Payout        `json:"payout_history"`
}

type Payout struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type Article struct {
	ID           int64  `json:"id"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Excerpt      string `json:"excerpt,omitempty"`
	Content      string `json:"content,omitempty"`
	Category     string `json:"category,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	PublishedAt  string `json:"published_at,omitempty"`
	ViewsCount   int    `json:"views_count"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
