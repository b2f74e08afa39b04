package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Trip is a bookable departure as returned by the trips endpoint. The client
// never mutates it.
type Trip struct {
	ID                       int64            `json:"id"`
	Boat                     *Boat            `json:"boat"`
	DepartureDate            Date             `json:"departure_date"`
	DepartureTime            string           `json:"departure_time"`
	ReturnTime               string           `json:"return_time"`
	DurationHours            int              `json:"duration_hours"`
	AvailableSpots           int              `json:"available_spots"`
	PricePerPerson           decimal.Decimal  `json:"price_per_person"`
	GuideCommissionPerPerson *decimal.Decimal `json:"guide_commission_per_person,omitempty"`
	GuideTotalCommission     *decimal.Decimal `json:"guide_total_commission,omitempty"`
	Route                    []SailingZone    `json:"route,omitempty"`
}

// TripSearch is encoded into the trips query string.
type TripSearch struct {
	Date           string   `url:"date,omitempty"`
	DateFrom       string   `url:"date_from,omitempty"`
	DateTo         string   `url:"date_to,omitempty"`
	NumberOfPeople int      `url:"number_of_people,omitempty"`
	Duration       int      `url:"duration,omitempty"`
	BoatID         int64    `url:"boat_id,omitempty"`
	BoatType       string   `url:"boat_type,omitempty"`
	Features       []string `url:"features,omitempty"`
	RouteID        int64    `url:"route_id,omitempty"`
}

var ErrSearchDateRequired = errors.New("date or date_from and date_to are required")

func (s TripSearch) Validate() error {
	if s.Date != "" {
		if _, err := ParseDate(s.Date); err != nil {
			return err
		}
		return nil
	}
	if s.DateFrom == "" || s.DateTo == "" {
		return ErrSearchDateRequired
	}
	from, err := ParseDate(s.DateFrom)
	if err != nil {
		return err
	}
	to, err := ParseDate(s.DateTo)
	if err != nil {
		return err
	}
	if to.Before(from.Time) {
		return errors.New("date_to must not be before date_from")
	}
	return nil
}
