// Package calendar lays out a month of owner or guide activity as a
// Monday-first grid of day cells.
package calendar

import (
	"fmt"
	"time"

	"github.com/diagnosis/seatrips/internal/domain"
)

// Cell is one day of the grid with every record whose date range covers it.
type Cell struct {
	Date            domain.Date            `json:"date"`
	Day             int                    `json:"day"`
	IsToday         bool                   `json:"is_today"`
	Bookings        []domain.Booking       `json:"bookings"`
	BlockedDates    []domain.BlockedDate   `json:"blocked_dates"`
	SeasonalPricing []domain.SeasonalPrice `json:"seasonal_pricing"`
}

func (c *Cell) IsBlocked() bool {
	return c != nil && len(c.BlockedDates) > 0
}

// LeadingBlanks is the number of empty cells before day 1 in a Monday-first
// week.
func LeadingBlanks(year int, month time.Month) int {
	wd := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	return (int(wd) + 6) % 7
}

func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// BuildGrid returns LeadingBlanks nil entries followed by one cell per day of
// the month. There is no trailing padding. Records are bucketed by day in a
// single pass and clipped to the month; a record whose end precedes its start
// counts as a single day.
func BuildGrid(year int, month time.Month, bookings []domain.Booking, blocked []domain.BlockedDate, seasonal []domain.SeasonalPrice, today domain.Date) []*Cell {
	blanks := LeadingBlanks(year, month)
	days := DaysIn(year, month)
	first := domain.NewDate(year, month, 1)

	grid := make([]*Cell, blanks, blanks+days)
	cells := make([]*Cell, days)
	for i := range cells {
		d := first.AddDays(i)
		cells[i] = &Cell{
			Date:            d,
			Day:             i + 1,
			IsToday:         d == today,
			Bookings:        []domain.Booking{},
			BlockedDates:    []domain.BlockedDate{},
			SeasonalPricing: []domain.SeasonalPrice{},
		}
	}

	each := func(from, to domain.Date, attach func(c *Cell)) {
		lo, hi, ok := clip(from, to, year, month, days)
		if !ok {
			return
		}
		for day := lo; day <= hi; day++ {
			attach(cells[day-1])
		}
	}

	for i := range bookings {
		b := bookings[i]
		from, to := b.Days()
		each(from, to, func(c *Cell) { c.Bookings = append(c.Bookings, b) })
	}
	for i := range blocked {
		bd := blocked[i]
		from, to := bd.Days()
		each(from, to, func(c *Cell) { c.BlockedDates = append(c.BlockedDates, bd) })
	}
	for i := range seasonal {
		sp := seasonal[i]
		from, to := sp.Days()
		each(from, to, func(c *Cell) { c.SeasonalPricing = append(c.SeasonalPricing, sp) })
	}

	return append(grid, cells...)
}

// clip maps [from, to] onto day numbers of the given month.
func clip(from, to domain.Date, year int, month time.Month, days int) (int, int, bool) {
	if from.IsZero() {
		return 0, 0, false
	}
	if to.IsZero() || to.Before(from.Time) {
		to = from
	}

	monthStart := domain.NewDate(year, month, 1)
	monthEnd := domain.NewDate(year, month, days)
	if to.Before(monthStart.Time) || from.After(monthEnd.Time) {
		return 0, 0, false
	}

	lo, hi := 1, days
	if !from.Before(monthStart.Time) {
		lo = from.Day()
	}
	if !to.After(monthEnd.Time) {
		hi = to.Day()
	}
	return lo, hi, true
}

// Month identifies a calendar month, as used in the ?month=YYYY-MM parameter.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func CurrentMonth(now time.Time) Month {
	return Month{Year: now.Year(), Month: now.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) PrevMonth() Month {
	t := time.Date(m.Year, m.Month-1, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) NextMonth() Month {
	t := time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Grid is the JSON shape served to the calendar page.
type Grid struct {
	Month    string  `json:"month"`
	Previous string  `json:"previous"`
	Next     string  `json:"next"`
	Cells    []*Cell `json:"cells"`
}

func Build(m Month, data *domain.CalendarMonth, today domain.Date) *Grid {
	if data == nil {
		data = &domain.CalendarMonth{}
	}
	return &Grid{
		Month:    m.String(),
		Previous: m.PrevMonth().String(),
		Next:     m.NextMonth().String(),
		Cells:    BuildGrid(m.Year, m.Month, data.Bookings, data.BlockedDates, data.SeasonalPricing, today),
	}
}
