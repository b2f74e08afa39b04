package domain

import "github.com/shopspring/decimal"

type Boat struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	BoatType     string        `json:"boat_type,omitempty"`
	Capacity     int           `json:"capacity"`
	Description  string        `json:"description,omitempty"`
	IsActive     bool          `json:"is_active"`
	Owner        *User         `json:"owner,omitempty"`
	Features     []BoatFeature `json:"features,omitempty"`
	Pricing      []BoatPricing `json:"pricing,omitempty"`
	SailingZones []SailingZone `json:"sailing_zones,omitempty"`
}

type BoatFeature struct {
	ID                 int64  `json:"id"`
	FeatureType        string `json:"feature_type"`
	FeatureTypeDisplay string `json:"feature_type_display,omitempty"`
}

type BoatPricing struct {
	ID             int64           `json:"id"`
	DurationHours  int             `json:"duration_hours"`
	PricePerPerson decimal.Decimal `json:"price_per_person"`
}

type SailingZone struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

type AvailabilitySlot struct {
	ID            int64  `json:"id"`
	DepartureDate Date   `json:"departure_date"`
	DepartureTime string `json:"departure_time"`
	ReturnTime    string `json:"return_time"`
	CapacityLimit *int   `json:"capacity_limit,omitempty"`
	IsActive      bool   `json:"is_active"`
}

// BlockedDate marks whole days on which a boat does not sail. A single-day
// block may arrive without date_to.
type BlockedDate struct {
	ID       int64  `json:"id"`
	BoatID   int64  `json:"boat_id,omitempty"`
	DateFrom Date   `json:"date_from"`
	DateTo   Date   `json:"date_to"`
	Reason   string `json:"reason,omitempty"`
}

func (b *BlockedDate) Days() (Date, Date) {
	return spanOf(b.DateFrom, b.DateTo)
}

// SeasonalPrice overrides the per-person price for a date range.
type SeasonalPrice struct {
	ID             int64           `json:"id"`
	BoatID         int64           `json:"boat_id,omitempty"`
	DateFrom       Date            `json:"date_from"`
	DateTo         Date            `json:"date_to"`
	DurationHours  int             `json:"duration_hours,omitempty"`
	PricePerPerson decimal.Decimal `json:"price_per_person"`
}

func (s *SeasonalPrice) Days() (Date, Date) {
	return spanOf(s.DateFrom, s.DateTo)
}

func spanOf(from, to Date) (Date, Date) {
	if to.IsZero() {
		return from, from
	}
	return from, to
}
